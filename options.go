package netresolv

import "time"

// Option is a function that configures a Resolver.
//
// This package uses the functional options pattern, which provides:
// 1. Sensible defaults - you can create a Resolver with just New()
// 2. Flexible configuration - add only the options you need
// 3. Backward compatibility - new options don't break existing code
// 4. Clear intent - each option function name documents what it does
type Option func(*Resolver)

// WithLogger sets a custom logger for debugging and monitoring.
//
// The logger receives structured log events about query attempts, failures,
// health decisions, and cache behavior. Useful for debugging resolution
// issues or monitoring nameserver health.
//
// Default is a no-op logger that discards all log messages.
//
// Example:
//
//	res := New(
//	    WithLogger(myLogger),
//	)
func WithLogger(l Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithExchanger replaces the wire transport.
//
// The default exchanger speaks plain DNS over pooled UDP sockets and retries
// over TCP when a response comes back truncated. Supplying a custom
// Exchanger swaps the transport wholesale while keeping gating, caching,
// health tracking, and retry behavior.
//
// Mostly useful for tests and for alternative transports.
func WithExchanger(e Exchanger) Option {
	return func(r *Resolver) {
		r.exchanger = e
	}
}

// WithSocketTagger sets the fallback socket tagger.
//
// The tagger runs once per query answered over the network, on the socket
// that carried the winning attempt, whenever no TagSocket callback is
// installed. An installed callback always takes precedence.
//
// Default is none: without callback and tagger, sockets stay untagged.
//
// Example:
//
//	// Attribute sockets by changing their owner (needs CAP_CHOWN)
//	res := New(
//	    WithSocketTagger(NewChownTagger()),
//	)
func WithSocketTagger(t SocketTagger) Option {
	return func(r *Resolver) {
		r.tagger = t
	}
}

// WithTelemetrySink registers a receiver for per-query telemetry records.
//
// The sink is called synchronously once per Resolve call, after the outcome
// is known, rejections and failures included. Keep it fast; slow sinks delay
// the caller.
func WithTelemetrySink(sink TelemetrySink) Option {
	return func(r *Resolver) {
		r.sink = sink
	}
}

// WithCache adjusts the answer cache geometry applied to every network.
//
// Caching reduces query latency for repeated lookups and load on the
// nameservers. The cache respects record TTLs from responses, clamped
// between minTTL and maxTTL.
//
// Parameters:
//   - size: Maximum number of answers to cache per network (LRU eviction
//     when full)
//   - minTTL: Minimum TTL for cache entries (prevents caching very short
//     TTLs)
//   - maxTTL: Maximum TTL for cache entries (prevents indefinite caching)
//
// Default is 512 entries per network with TTLs clamped to [5s, 1h].
//
// Example:
//
//	// Cache up to 2048 answers per network, TTL between 1s and 5 minutes
//	res := New(
//	    WithCache(2048, 1*time.Second, 5*time.Minute),
//	)
func WithCache(size int, minTTL, maxTTL time.Duration) Option {
	return func(r *Resolver) {
		r.cacheSize = size
		r.cacheMinTTL = minTTL
		r.cacheMaxTTL = maxTTL
		r.cacheDisabled = size <= 0
	}
}

// WithoutCache disables answer caching entirely. Every query goes to the
// wire.
func WithoutCache() Option {
	return func(r *Resolver) {
		r.cacheDisabled = true
	}
}

// WithConnPoolSize sets the maximum number of pooled connections per
// nameserver.
//
// Connection pooling reduces socket creation/destruction overhead. Each
// (server, routing mark) pair gets its own pool. Higher values reduce the
// chance of creating new connections under load, but consume more file
// descriptors.
//
// Default is 4 connections per pool if not specified.
func WithConnPoolSize(size int) Option {
	return func(r *Resolver) {
		if size > 0 {
			r.poolSize = size
		}
	}
}

// WithDialTimeout bounds the connection establishment of fresh sockets, both
// for the UDP pools and for the TCP retry after truncation.
//
// This is not the per-attempt query timeout; that one is part of each
// network's Params.
//
// Default is 5 seconds.
func WithDialTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.dialTimeout = d
		}
	}
}

// WithDefaultNetwork sets the network used by DialContext, which has no
// per-call network parameter. Without it, DialContext fails until a default
// is set.
//
// Example:
//
//	res := New(WithDefaultNetwork(100))
//	client := &http.Client{
//	    Transport: &http.Transport{DialContext: res.DialContext},
//	}
func WithDefaultNetwork(id NetworkID) Option {
	return func(r *Resolver) {
		r.defaultNetwork = id
	}
}

// WithSweepInterval sets how often expired cache entries are evicted in the
// background. Zero or negative disables the sweep; expired entries are then
// only rejected lazily on lookup.
//
// Default is one minute.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Resolver) {
		r.sweepInterval = d
	}
}
