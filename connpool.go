// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// connPool manages reusable UDP connections to a single nameserver.
//
// Pooling avoids paying socket setup on every attempt under load. Each pool
// keeps up to 'size' idle connections, created on demand. Because the
// routing mark is baked into the socket at creation, pools are scoped to one
// (server, mark) pair and never shared across marks.
//
// The pool is safe for concurrent Get and Put.
type connPool struct {
	// addr is the nameserver in host:port form (e.g. "8.8.8.8:53")
	addr string

	// timeout bounds the connect of a fresh socket
	timeout time.Duration

	// size caps how many idle connections are kept around
	size int

	// conns is a buffered channel acting as the idle queue
	conns chan *net.UDPConn

	// mu guards closed
	mu     sync.Mutex
	closed bool

	// dialer creates new sockets; it carries the mark control when a
	// routing mark applies
	dialer *net.Dialer
}

func newConnPool(addr string, timeout time.Duration, size int, mark uint32) *connPool {
	if size <= 0 {
		size = 4 // keeps reuse without hoarding descriptors
	}

	dialer := &net.Dialer{
		Timeout: timeout,
	}
	if mark != MarkUnset {
		// Stamp the fwmark before the socket connects, so even the very
		// first datagram routes according to the query's network context.
		dialer.Control = markControl(mark)
	}

	return &connPool{
		addr:    addr,
		timeout: timeout,
		size:    size,
		// The channel buffer is what limits idle connections. A full
		// channel makes Put close the surplus instead of blocking.
		conns:  make(chan *net.UDPConn, size),
		dialer: dialer,
	}
}

// Get returns an idle connection or creates a new one.
//
// Allocation is lazy: nothing is pre-dialed, the pool fills up as
// connections come back through Put.
func (p *connPool) Get() (*net.UDPConn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, net.ErrClosed
	}
	p.mu.Unlock()

	// Non-blocking receive: take an idle connection if one is queued,
	// otherwise fall through and dial.
	select {
	case conn := <-p.conns:
		if conn != nil {
			return conn, nil
		}
	default:
		// Nothing idle: cold start, or every connection is in flight.
	}

	// The pool size is not enforced here; more than 'size' connections may
	// exist in flight. Put shrinks the pool back down by closing returns
	// that do not fit.
	conn, err := p.dialer.Dial("udp", p.addr)
	if err != nil {
		return nil, err
	}

	udpConn, ok := conn.(*net.UDPConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected connection type %T for %s", conn, p.addr)
	}

	return udpConn, nil
}

// Put returns a connection for reuse, or closes it if the pool is full or
// already shut down.
func (p *connPool) Put(conn *net.UDPConn) {
	if conn == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = conn.Close()
		return
	}

	// The send happens under the same mutex Close holds while closing the
	// channel, so the channel cannot close between the check above and the
	// send.
	select {
	case p.conns <- conn:
		// Queued for the next Get.
	default:
		// Pool is full; load spike is draining back down. Close the
		// surplus rather than grow without bound.
		_ = conn.Close()
	}
}

// Close shuts the pool down and closes all idle connections.
//
// Connections currently checked out are not touched; they get closed when
// their holders Put them back into the now-closed pool.
func (p *connPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.conns)

	for conn := range p.conns {
		if conn != nil {
			_ = conn.Close()
		}
	}

	return nil
}
