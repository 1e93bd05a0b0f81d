// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// cacheKey is the identity of a cached answer within one network: the
// normalized query name plus type and class. Network partitioning is
// structural - every network owns its own resolveCache - so tearing a
// network down removes exactly its entries and nothing else.
type cacheKey struct {
	name  string
	qtype RecordType
	class uint16
}

// cacheEntry holds one answer set with its expiry. The expiry derives from
// the weakest record TTL of the answer, clamped to the cache bounds.
type cacheEntry struct {
	records   []Record
	expiresAt time.Time
}

// expired checks the entry against its own TTL-derived deadline.
func (e *cacheEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// resolveCache is the per-network answer cache. Eviction is expiry-first:
// entries past their TTL are rejected lazily on lookup and removed eagerly
// by the periodic sweep; among unexpired entries the LRU evicts once the
// capacity is reached.
type resolveCache struct {
	entries *lru.LRU[cacheKey, *cacheEntry]
	mu      sync.RWMutex
	enabled bool

	// minTTL prevents thrashing on very short server TTLs. A server TTL of
	// zero is not cached at all.
	minTTL time.Duration

	// maxTTL caps how long an answer may be served regardless of what the
	// server claimed, forcing periodic re-resolution.
	maxTTL time.Duration
}

// newResolveCache creates a cache bounded to size entries with the given TTL
// clamp. A size of zero or less disables caching entirely.
func newResolveCache(size int, minTTL, maxTTL time.Duration) *resolveCache {
	if size <= 0 {
		return &resolveCache{enabled: false}
	}

	// The expirable LRU handles capacity eviction and hard expiry at
	// maxTTL; per-entry expiry below maxTTL is checked manually in get and
	// swept by purgeExpired, since each answer carries its own deadline.
	entries := lru.NewLRU[cacheKey, *cacheEntry](size, nil, maxTTL)

	return &resolveCache{
		entries: entries,
		enabled: true,
		minTTL:  minTTL,
		maxTTL:  maxTTL,
	}
}

// get returns a copy of the cached records, or nil on miss or expiry.
func (c *resolveCache) get(key cacheKey) []Record {
	if !c.enabled {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		return nil
	}
	if entry.expired(time.Now()) {
		// Signal a miss and leave removal to the sweep, which takes the
		// write path.
		return nil
	}

	// Copy so callers cannot mutate the cached answer.
	records := make([]Record, len(entry.records))
	copy(records, entry.records)
	return records
}

// put stores an answer under the key with the given TTL, clamped to the
// cache bounds. A TTL of zero or less means the answer is uncacheable.
func (c *resolveCache) put(key cacheKey, records []Record, ttl time.Duration) {
	if !c.enabled || len(records) == 0 || ttl <= 0 {
		return
	}

	if ttl < c.minTTL {
		ttl = c.minTTL
	}
	if ttl > c.maxTTL {
		ttl = c.maxTTL
	}

	stored := make([]Record, len(records))
	copy(stored, records)

	entry := &cacheEntry{
		records:   stored,
		expiresAt: time.Now().Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, entry)
}

// purgeExpired eagerly removes entries past their own deadline. Runs from
// the owning Resolver's sweep loop.
func (c *resolveCache) purgeExpired() {
	if !c.enabled {
		return
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.entries.Keys() {
		if entry, ok := c.entries.Peek(key); ok && entry.expired(now) {
			c.entries.Remove(key)
		}
	}
}

// flush drops every entry in one step.
func (c *resolveCache) flush() {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// len reports the number of stored entries, expired ones included.
func (c *resolveCache) len() int {
	if !c.enabled {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Len()
}
