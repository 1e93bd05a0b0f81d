//go:build linux

package netresolv

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// markControl returns a dialer control function that stamps the fwmark on
// the socket before it connects, so the first datagram already routes
// according to the query's network context. Needs CAP_NET_ADMIN.
func markControl(mark uint32) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_MARK, int(mark))
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}
