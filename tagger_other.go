//go:build !unix

package netresolv

// fchownSocket has no equivalent here.
func fchownSocket(fd int, owner uint32) error {
	return ErrUnsupported
}
