package netresolv

import (
	"context"
	"syscall"
	"time"
)

// Exchanger sends one query to one nameserver and returns either a parsed
// answer, a timeout, or a transport error. It is the seam between the
// resolution engine and the wire: the engine decides which server to ask and
// for how long to wait (through the context deadline), the Exchanger does
// the asking.
//
// Implementations must be safe for concurrent use. An authoritative
// negative response is reported as an error wrapping ErrNoAnswer; errors
// satisfying the context deadline are treated as timeouts and everything
// else as transport failures.
type Exchanger interface {
	Exchange(ctx context.Context, server string, q Query, nc NetContext) (*exchangeReply, error)
}

// exchangeReply is one successful exchange. The connection that carried the
// winning query stays checked out until release is called, so the engine can
// attribute socket ownership before the socket is reused or closed.
type exchangeReply struct {
	// records parsed from the answer section
	records []Record

	// rtt measured over the winning attempt
	rtt time.Duration

	// conn that carried the query, for ownership attribution. May be nil
	// for exchangers that have no per-query socket to expose.
	conn syscall.Conn

	// release hands the connection back (to a pool, or to be closed).
	// Must be called exactly once; nil-safe via the method below.
	release func()
}

// done releases the underlying connection, if any.
func (r *exchangeReply) done() {
	if r.release != nil {
		r.release()
	}
}
