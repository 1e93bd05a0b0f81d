//go:build !linux

package netresolv

import "syscall"

// markControl has nothing to do off Linux: there is no fwmark. A nil control
// leaves the dialer untouched.
func markControl(mark uint32) func(network, address string, c syscall.RawConn) error {
	return nil
}
