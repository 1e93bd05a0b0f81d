// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbacks_DefaultsWhenUnset(t *testing.T) {
	var reg callbackRegistry
	cb := reg.snapshot()

	assert.True(t, cb.checkPermission(1234))
	assert.True(t, cb.evaluateDomain(NetContext{}, "example.org"))
	cb.log("discarded")

	_, err := cb.networkContext(1, 10001)
	assert.ErrorIs(t, err, ErrMissingCallback)
}

func TestCallbacks_InstallAndReset(t *testing.T) {
	var reg callbackRegistry
	var permCalls, evalCalls, logCalls int

	reg.install(Callbacks{
		CheckPermission: func(uid uint32) bool { permCalls++; return false },
		EvaluateDomain:  func(nc NetContext, name string) bool { evalCalls++; return false },
		Log:             func(msg string) { logCalls++ },
		GetNetworkContext: func(network NetworkID, uid uint32) (NetContext, error) {
			return NetContext{Network: network, UID: uid, Mark: 7}, nil
		},
	})

	cb := reg.snapshot()
	assert.False(t, cb.checkPermission(1))
	assert.False(t, cb.evaluateDomain(NetContext{}, "example.org"))
	cb.log("hello")
	nc, err := cb.networkContext(9, 10001)
	assert.NoError(t, err)
	assert.Equal(t, NetworkID(9), nc.Network)
	assert.Equal(t, uint32(7), nc.Mark)
	assert.Equal(t, 1, permCalls)
	assert.Equal(t, 1, evalCalls)
	assert.Equal(t, 1, logCalls)

	reg.reset()

	cb = reg.snapshot()
	assert.True(t, cb.checkPermission(1))
	assert.True(t, cb.evaluateDomain(NetContext{}, "example.org"))
	cb.log("dropped")
	_, err = cb.networkContext(9, 10001)
	assert.ErrorIs(t, err, ErrMissingCallback)

	// The removed hooks were not touched again.
	assert.Equal(t, 1, permCalls)
	assert.Equal(t, 1, evalCalls)
	assert.Equal(t, 1, logCalls)
}

func TestCallbacks_SnapshotSurvivesReinstall(t *testing.T) {
	var reg callbackRegistry
	reg.install(Callbacks{CheckPermission: func(uid uint32) bool { return false }})

	cb := reg.snapshot()
	reg.install(Callbacks{CheckPermission: func(uid uint32) bool { return true }})

	// A query working off the earlier snapshot keeps seeing the set it
	// loaded; only new snapshots observe the reinstall.
	assert.False(t, cb.checkPermission(1))
	assert.True(t, reg.snapshot().checkPermission(1))
}

func TestCallbacks_InstallCopiesTheSet(t *testing.T) {
	var reg callbackRegistry
	set := Callbacks{CheckPermission: func(uid uint32) bool { return false }}
	reg.install(set)

	set.CheckPermission = nil

	assert.False(t, reg.snapshot().checkPermission(1))
}

func TestCallbacks_ConcurrentInstallAndSnapshot(t *testing.T) {
	var reg callbackRegistry
	var torn int32

	// Each install carries a matched pair of hooks. A reader that ever
	// observes the permission hook of one set and the domain hook of
	// another has seen a torn installation.
	sets := [2]Callbacks{}
	for i := range sets {
		allow := i == 0
		sets[i] = Callbacks{
			CheckPermission: func(uid uint32) bool { return allow },
			EvaluateDomain:  func(nc NetContext, name string) bool { return allow },
		}
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				reg.install(sets[(w+i)%2])
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				cb := reg.snapshot()
				if cb.checkPermission(1) != cb.evaluateDomain(NetContext{}, "example.org") {
					atomic.AddInt32(&torn, 1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&torn))
}
