// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"time"
)

// normalizeName lowercases a query name and strips the trailing root dot, so
// cache keys treat WWW.Example.COM. and www.example.com as the same name.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

// ensurePort appends the default DNS port to a server address that lacks one.
// Addresses that already carry a port pass through unchanged.
func ensurePort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}

// minimumTTL returns the smallest TTL across the records, as a duration.
// An answer is only as fresh as its shortest-lived record.
func minimumTTL(records []Record) time.Duration {
	var min uint32
	for i, r := range records {
		if i == 0 || r.TTL < min {
			min = r.TTL
		}
	}
	return time.Duration(min) * time.Second
}

// isTimeout reports whether an attempt failed by running out of time rather
// than by a hard transport error.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// recordKey is used as a map key for comparing DNS records.
// It combines value and TTL to enable multiset equality checking.
type recordKey struct {
	value string
	ttl   uint32
}

// recordsEqual checks if two slices of DNS records are equal, treating them
// as multisets.
//
// This means:
//   - Order doesn't matter: [A, B] equals [B, A]
//   - Duplicates matter: [A, A, B] does not equal [A, B]
//   - When ignoreTTL is true, records are compared only by value (useful
//     since TTLs naturally decay over time and can differ between servers
//     even for the same data)
func recordsEqual(a, b []Record, ignoreTTL bool) bool {
	if len(a) != len(b) {
		return false
	}

	aMap := make(map[recordKey]int)
	for _, r := range a {
		key := recordKey{value: r.Value, ttl: r.TTL}
		if ignoreTTL {
			key.ttl = 0
		}
		aMap[key]++
	}

	for _, r := range b {
		key := recordKey{value: r.Value, ttl: r.TTL}
		if ignoreTTL {
			key.ttl = 0
		}
		count, exists := aMap[key]
		if !exists || count == 0 {
			return false
		}
		aMap[key]--
	}

	return true
}
