// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveCache_PutGetRoundtrip(t *testing.T) {
	c := newResolveCache(8, 0, time.Hour)
	key := cacheKey{name: "example.org", qtype: TypeA, class: 1}
	records := []Record{{Name: "example.org.", Type: TypeA, Value: "192.0.2.1", TTL: 300}}

	c.put(key, records, time.Minute)

	got := c.get(key)
	assert.Equal(t, records, got)
	assert.Equal(t, 1, c.len())
}

func TestResolveCache_MissOnUnknownKey(t *testing.T) {
	c := newResolveCache(8, 0, time.Hour)

	got := c.get(cacheKey{name: "nothing.example", qtype: TypeA, class: 1})

	assert.Nil(t, got)
}

func TestResolveCache_QueryTypePartOfKey(t *testing.T) {
	c := newResolveCache(8, 0, time.Hour)
	c.put(cacheKey{name: "example.org", qtype: TypeA, class: 1},
		[]Record{{Name: "example.org.", Type: TypeA, Value: "192.0.2.1", TTL: 300}}, time.Minute)

	got := c.get(cacheKey{name: "example.org", qtype: TypeAAAA, class: 1})

	assert.Nil(t, got)
}

func TestResolveCache_ReturnsCopies(t *testing.T) {
	c := newResolveCache(8, 0, time.Hour)
	key := cacheKey{name: "example.org", qtype: TypeA, class: 1}
	records := []Record{{Name: "example.org.", Type: TypeA, Value: "192.0.2.1", TTL: 300}}

	c.put(key, records, time.Minute)

	// Mutating what the caller stored or what a lookup returned must not
	// leak into the cached answer.
	records[0].Value = "203.0.113.9"
	got := c.get(key)
	assert.Equal(t, "192.0.2.1", got[0].Value)

	got[0].Value = "203.0.113.9"
	again := c.get(key)
	assert.Equal(t, "192.0.2.1", again[0].Value)
}

func TestResolveCache_EntriesExpire(t *testing.T) {
	c := newResolveCache(8, time.Millisecond, time.Hour)
	key := cacheKey{name: "short.example", qtype: TypeA, class: 1}

	c.put(key, []Record{{Name: "short.example.", Type: TypeA, Value: "192.0.2.2", TTL: 1}}, 20*time.Millisecond)

	assert.NotNil(t, c.get(key))

	time.Sleep(40 * time.Millisecond)

	assert.Nil(t, c.get(key))
}

func TestResolveCache_ZeroTTLNotCached(t *testing.T) {
	c := newResolveCache(8, time.Second, time.Hour)
	key := cacheKey{name: "volatile.example", qtype: TypeA, class: 1}

	c.put(key, []Record{{Name: "volatile.example.", Type: TypeA, Value: "192.0.2.3", TTL: 0}}, 0)

	assert.Nil(t, c.get(key))
	assert.Equal(t, 0, c.len())
}

func TestResolveCache_ClampsBelowMinimum(t *testing.T) {
	c := newResolveCache(8, 100*time.Millisecond, time.Hour)
	key := cacheKey{name: "blippy.example", qtype: TypeA, class: 1}

	// A 1ms server TTL is lifted to the 100ms floor.
	c.put(key, []Record{{Name: "blippy.example.", Type: TypeA, Value: "192.0.2.4", TTL: 1}}, time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	assert.NotNil(t, c.get(key))
}

func TestResolveCache_ClampsAboveMaximum(t *testing.T) {
	c := newResolveCache(8, 0, 50*time.Millisecond)
	key := cacheKey{name: "sticky.example", qtype: TypeA, class: 1}

	// An hour-long server TTL is cut to the 50ms ceiling.
	c.put(key, []Record{{Name: "sticky.example.", Type: TypeA, Value: "192.0.2.5", TTL: 3600}}, time.Hour)

	assert.NotNil(t, c.get(key))

	time.Sleep(80 * time.Millisecond)

	assert.Nil(t, c.get(key))
}

func TestResolveCache_CapacityEvictsLeastRecent(t *testing.T) {
	c := newResolveCache(2, 0, time.Hour)

	for i := 0; i < 3; i++ {
		key := cacheKey{name: fmt.Sprintf("host%d.example", i), qtype: TypeA, class: 1}
		c.put(key, []Record{{Name: key.name + ".", Type: TypeA, Value: "192.0.2.1", TTL: 300}}, time.Minute)
	}

	assert.Equal(t, 2, c.len())
	assert.Nil(t, c.get(cacheKey{name: "host0.example", qtype: TypeA, class: 1}))
	assert.NotNil(t, c.get(cacheKey{name: "host1.example", qtype: TypeA, class: 1}))
	assert.NotNil(t, c.get(cacheKey{name: "host2.example", qtype: TypeA, class: 1}))
}

func TestResolveCache_FlushEmptiesEverything(t *testing.T) {
	c := newResolveCache(8, 0, time.Hour)
	k1 := cacheKey{name: "one.example", qtype: TypeA, class: 1}
	k2 := cacheKey{name: "two.example", qtype: TypeAAAA, class: 1}

	c.put(k1, []Record{{Name: "one.example.", Type: TypeA, Value: "192.0.2.1", TTL: 300}}, time.Minute)
	c.put(k2, []Record{{Name: "two.example.", Type: TypeAAAA, Value: "2001:db8::1", TTL: 300}}, time.Minute)

	c.flush()

	assert.Equal(t, 0, c.len())
	assert.Nil(t, c.get(k1))
	assert.Nil(t, c.get(k2))
}

func TestResolveCache_PurgeRemovesOnlyExpired(t *testing.T) {
	c := newResolveCache(8, time.Millisecond, time.Hour)
	short := cacheKey{name: "short.example", qtype: TypeA, class: 1}
	long := cacheKey{name: "long.example", qtype: TypeA, class: 1}

	c.put(short, []Record{{Name: "short.example.", Type: TypeA, Value: "192.0.2.1", TTL: 1}}, 10*time.Millisecond)
	c.put(long, []Record{{Name: "long.example.", Type: TypeA, Value: "192.0.2.2", TTL: 300}}, time.Minute)

	time.Sleep(30 * time.Millisecond)
	c.purgeExpired()

	assert.Equal(t, 1, c.len())
	assert.Nil(t, c.get(short))
	assert.NotNil(t, c.get(long))
}

func TestResolveCache_DisabledByZeroSize(t *testing.T) {
	c := newResolveCache(0, time.Second, time.Hour)
	key := cacheKey{name: "example.org", qtype: TypeA, class: 1}

	c.put(key, []Record{{Name: "example.org.", Type: TypeA, Value: "192.0.2.1", TTL: 300}}, time.Minute)

	assert.Nil(t, c.get(key))
	assert.Equal(t, 0, c.len())

	// The disabled cache ignores maintenance calls.
	c.purgeExpired()
	c.flush()
}
