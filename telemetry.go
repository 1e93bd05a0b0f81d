// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import (
	"context"
	"errors"
	"fmt"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

// TelemetryRecord captures the terminal outcome of one Resolve call. Exactly
// one record is produced per query, win or lose - early policy-gate failures
// included.
type TelemetryRecord struct {
	// Name and Type of the query as asked.
	Name string
	Type RecordType

	// Network and UID the query ran under.
	Network NetworkID
	UID     uint32

	// Outcome label: "success", "permission_denied", "domain_vetoed",
	// "network_not_found", "no_servers", "unreachable", "no_answer",
	// "missing_callback", "cancelled", "closed", "transport" or "error".
	Outcome string

	// Server that produced the answer; empty on failures and cache hits.
	Server string

	// Attempts made on the wire, failed ones included. Zero for cache
	// hits and gate failures.
	Attempts int

	// CacheHit is set when the answer came from the resolve cache.
	CacheHit bool

	// Latency of the whole Resolve call.
	Latency time.Duration

	// Err is the terminal error, nil on success.
	Err error
}

// TelemetrySink receives one record per query. It runs synchronously on the
// query path, so implementations should hand off quickly.
type TelemetrySink func(TelemetryRecord)

// emitTelemetry updates the aggregate counters and feeds the optional sink.
// Emission is unconditional: every terminal outcome passes through here.
func (r *Resolver) emitTelemetry(rec TelemetryRecord, cacheChecked bool) {
	vm.GetOrCreateCounter(fmt.Sprintf(`netresolv_queries_total{outcome=%q}`, rec.Outcome)).Inc()
	vm.GetOrCreateHistogram(`netresolv_query_duration_seconds`).Update(rec.Latency.Seconds())

	if rec.Attempts > 0 {
		vm.GetOrCreateCounter(`netresolv_query_attempts_total`).Add(rec.Attempts)
	}
	if cacheChecked {
		if rec.CacheHit {
			vm.GetOrCreateCounter(`netresolv_cache_hits_total`).Inc()
		} else {
			vm.GetOrCreateCounter(`netresolv_cache_misses_total`).Inc()
		}
	}

	if r.sink != nil {
		r.sink(rec)
	}
}

// countAttemptFailure feeds the per-attempt failure counter, split by
// reason so timeouts and transport failures stay distinguishable even
// though the retry loop treats them the same.
func countAttemptFailure(reason string) {
	vm.GetOrCreateCounter(fmt.Sprintf(`netresolv_attempt_failures_total{reason=%q}`, reason)).Inc()
}

// classifyOutcome maps a terminal error to its telemetry label.
func classifyOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrDomainVetoed):
		return "domain_vetoed"
	case errors.Is(err, ErrNetworkNotFound):
		return "network_not_found"
	case errors.Is(err, ErrNoServersConfigured):
		return "no_servers"
	case errors.Is(err, ErrAllServersUnreachable):
		return "unreachable"
	case errors.Is(err, ErrMissingCallback):
		return "missing_callback"
	case errors.Is(err, ErrNoAnswer):
		return "no_answer"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}
