// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// localUDPConn dials the given address. A UDP dial only sets up the socket;
// nothing leaves the host until something is written.
func localUDPConn(t *testing.T, addr string) *net.UDPConn {
	t.Helper()
	conn, err := net.Dial("udp", addr)
	assert.NoError(t, err)
	return conn.(*net.UDPConn)
}

func TestConnPool_ReusesReturnedConn(t *testing.T) {
	ln, err := net.ListenPacket("udp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer ln.Close()

	p := newConnPool(ln.LocalAddr().String(), time.Second, 2, MarkUnset)
	defer p.Close()

	first, err := p.Get()
	assert.NoError(t, err)

	p.Put(first)

	second, err := p.Get()
	assert.NoError(t, err)
	assert.Same(t, first, second)
	p.Put(second)
}

func TestConnPool_FullPoolClosesSurplus(t *testing.T) {
	ln, err := net.ListenPacket("udp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer ln.Close()

	addr := ln.LocalAddr().String()
	p := newConnPool(addr, time.Second, 1, MarkUnset)
	defer p.Close()

	queued := localUDPConn(t, addr)
	surplus := localUDPConn(t, addr)

	p.Put(queued)
	p.Put(surplus)

	// The single queue slot held the first connection, so the second one
	// was closed instead of growing the pool.
	_, err = surplus.Write([]byte("x"))
	assert.Error(t, err)
	_, err = queued.Write([]byte("x"))
	assert.NoError(t, err)
}

func TestConnPool_GetAfterClose(t *testing.T) {
	p := newConnPool("127.0.0.1:53", time.Second, 2, MarkUnset)
	assert.NoError(t, p.Close())

	_, err := p.Get()
	assert.ErrorIs(t, err, net.ErrClosed)

	// Closing twice is fine.
	assert.NoError(t, p.Close())
}

func TestConnPool_PutAfterCloseClosesConn(t *testing.T) {
	ln, err := net.ListenPacket("udp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer ln.Close()

	addr := ln.LocalAddr().String()
	p := newConnPool(addr, time.Second, 2, MarkUnset)
	assert.NoError(t, p.Close())

	conn := localUDPConn(t, addr)
	p.Put(conn)

	_, err = conn.Write([]byte("x"))
	assert.Error(t, err)
}

func TestConnPool_ConcurrentPutAndClose(t *testing.T) {
	ln, err := net.ListenPacket("udp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer ln.Close()

	addr := ln.LocalAddr().String()

	// Returns racing the shutdown must either land in the queue before it
	// closes or close their own socket; a send into the closed queue would
	// panic. Enough concurrent returns per round to make the interleaving
	// likely.
	for round := 0; round < 64; round++ {
		p := newConnPool(addr, time.Second, 4, MarkUnset)

		conns := make([]*net.UDPConn, 8)
		for i := range conns {
			conns[i] = localUDPConn(t, addr)
		}

		var wg sync.WaitGroup
		start := make(chan struct{})
		for _, conn := range conns {
			wg.Add(1)
			go func(conn *net.UDPConn) {
				defer wg.Done()
				<-start
				p.Put(conn)
			}(conn)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			assert.NoError(t, p.Close())
		}()

		close(start)
		wg.Wait()
	}
}
