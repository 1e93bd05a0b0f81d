//go:build unix

package netresolv

import "golang.org/x/sys/unix"

// fchownSocket reassigns the socket's owning uid, leaving the group alone.
func fchownSocket(fd int, owner uint32) error {
	return unix.Fchown(fd, int(owner), -1)
}
