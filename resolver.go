package netresolv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/tevino/abool"
)

// Resolver is the main entry point for per-network DNS resolution.
//
// It keeps fully isolated state per network (servers, search domains, tuning
// parameters, health history, answer cache) and coordinates one pluggable
// transport, an optional socket tagger, and the host policy callbacks.
// All methods are safe for concurrent use.
type Resolver struct {
	mu       sync.RWMutex
	networks map[NetworkID]*networkState

	// callbacks holds the host policy hooks behind one atomic pointer
	callbacks callbackRegistry

	// exchanger performs the actual wire exchange (pooled UDP by default)
	exchanger Exchanger

	// tagger attributes winning sockets when no TagSocket callback is set
	tagger SocketTagger

	// logger is the structured logging interface (no-op by default)
	logger Logger

	// sink receives one telemetry record per Resolve call
	sink TelemetrySink

	// cache geometry, applied to every network's cache at creation
	cacheSize     int
	cacheMinTTL   time.Duration
	cacheMaxTTL   time.Duration
	cacheDisabled bool

	// poolSize is the max pooled connections per (server, mark)
	poolSize int

	// dialTimeout bounds connection establishment of fresh sockets
	dialTimeout time.Duration

	// defaultNetwork backs DialContext, which has no per-call network
	defaultNetwork NetworkID

	// dialer is reused for outbound connections made by DialContext
	dialer *net.Dialer

	sweepInterval time.Duration
	sweepStop     chan struct{}
	sweepDone     chan struct{}

	closed *abool.AtomicBool
}

// Logger provides structured logging throughout the resolution process.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
}

// Field represents a structured logging field (key-value pair).
// Used to attach context to log messages.
type Field struct {
	Key   string
	Value interface{}
}

// noopLogger is the default logger that silently discards all log messages.
// This allows the library to have zero logging overhead when not needed.
type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...Field)            {}
func (noopLogger) Info(msg string, fields ...Field)             {}
func (noopLogger) Error(msg string, err error, fields ...Field) {}

// New creates a new Resolver with the given options.
//
// Default configuration:
//
//   - Transport: plain DNS over pooled UDP, TCP retry on truncation
//   - Logger: no-op (no logging)
//   - Socket tagger: none (sockets stay untagged unless a TagSocket
//     callback is installed)
//   - Cache: 512 entries per network, TTLs clamped to [5s, 1h]
//   - Pool size: 4 connections per (server, mark)
//   - Expiry sweep: every minute
//
// Example:
//
//	res := New(
//	    WithLogger(myLogger),
//	    WithCache(2048, 5*time.Second, time.Hour),
//	    WithSocketTagger(NewChownTagger()),
//	)
//	defer res.Close()
func New(opts ...Option) *Resolver {
	r := &Resolver{
		networks:      make(map[NetworkID]*networkState),
		logger:        noopLogger{},
		cacheSize:     512,
		cacheMinTTL:   5 * time.Second,
		cacheMaxTTL:   time.Hour,
		poolSize:      4,
		dialTimeout:   5 * time.Second,
		dialer:        &net.Dialer{},
		sweepInterval: time.Minute,
		sweepStop:     make(chan struct{}),
		sweepDone:     make(chan struct{}),
		closed:        abool.New(),
	}

	for _, opt := range opts {
		opt(r)
	}

	// The exchanger is built after the options ran, so it picks up the
	// configured pool size, dial timeout, and logger.
	if r.exchanger == nil {
		r.exchanger = newUDPExchanger(r.poolSize, r.dialTimeout, r.logger)
	}

	go r.sweepLoop()

	return r
}

// SetCallbacks installs the host policy hooks. The set is copied and replaces
// any previous installation atomically: a query in flight sees either the old
// set or the new one, never a mix.
func (r *Resolver) SetCallbacks(cb Callbacks) {
	r.callbacks.install(cb)
	r.logger.Debug("callbacks installed")
}

// ResetCallbacks restores the defaults: permission granted, no domain vetoes,
// discarded log messages, fall-through socket tagging, and no network context
// source.
func (r *Resolver) ResetCallbacks() {
	r.callbacks.reset()
	r.logger.Debug("callbacks reset")
}

// Resolve answers one DNS query on one network.
//
// The sequence is fixed: admission gates (permission, domain veto), cache
// lookup, ranked attempts across the network's servers, cache insert, socket
// tagging, telemetry. A cache hit skips everything after the lookup. One
// telemetry record is emitted per call, rejections included.
func (r *Resolver) Resolve(ctx context.Context, q Query, nc NetContext) (*AnswerSet, error) {
	start := time.Now()
	q = q.withDefaults()

	ans, sched, cacheChecked, err := r.resolve(ctx, q, nc)

	rec := TelemetryRecord{
		Name:    q.Name,
		Type:    q.Type,
		Network: nc.Network,
		UID:     nc.UID,
		Outcome: classifyOutcome(err),
		Latency: time.Since(start),
		Err:     err,
	}
	if sched != nil {
		rec.Attempts = sched.attempts
		rec.Server = sched.server
	}
	if ans != nil {
		rec.CacheHit = ans.FromCache
		if ans.Server != "" {
			rec.Server = ans.Server
		}
	}
	r.emitTelemetry(rec, cacheChecked)

	return ans, err
}

func (r *Resolver) resolve(ctx context.Context, q Query, nc NetContext) (*AnswerSet, *scheduleResult, bool, error) {
	if r.closed.IsSet() {
		return nil, nil, false, ErrClosed
	}

	cb := r.callbacks.snapshot()

	if !cb.checkPermission(nc.UID) {
		cb.log(fmt.Sprintf("resolution of %q on network %d denied for uid %d", q.Name, nc.Network, nc.UID))
		return nil, nil, false, fmt.Errorf("%w: uid %d", ErrPermissionDenied, nc.UID)
	}

	if !cb.evaluateDomain(nc, q.Name) {
		cb.log(fmt.Sprintf("resolution of %q vetoed for uid %d", q.Name, nc.UID))
		return nil, nil, false, fmt.Errorf("%w: %s", ErrDomainVetoed, q.Name)
	}

	n, err := r.network(nc.Network)
	if err != nil {
		return nil, nil, false, err
	}

	servers, _, params := n.configSnapshot()
	cacheChecked := n.cache.enabled

	key := cacheKey{name: normalizeName(q.Name), qtype: q.Type, class: q.Class}
	if records := n.cache.get(key); records != nil {
		r.logger.Debug("cache hit",
			Field{"name", q.Name},
			Field{"type", q.Type.String()},
			Field{"network", nc.Network})
		return &AnswerSet{Records: records, FromCache: true}, nil, cacheChecked, nil
	}

	if len(servers) == 0 {
		return nil, nil, cacheChecked, fmt.Errorf("%w: network %d", ErrNoServersConfigured, nc.Network)
	}

	ranked := n.tracker.rankServers(servers, params)

	sched := &retryScheduler{exchanger: r.exchanger, tracker: n.tracker, logger: r.logger}
	res, err := sched.run(ctx, q, nc, ranked, params)
	if err != nil {
		return nil, res, cacheChecked, err
	}
	reply := res.reply

	// Teardown may have raced the exchange; do not repopulate a flushed
	// cache.
	if !n.tornDown.IsSet() {
		n.cache.put(key, reply.records, minimumTTL(reply.records))
	}

	r.tagReplySocket(cb, reply, nc)
	reply.done()

	return &AnswerSet{
		Records: reply.records,
		Server:  res.server,
		RTT:     reply.rtt,
	}, res, cacheChecked, nil
}

// tagReplySocket attributes the winning socket to the querying identity. The
// installed TagSocket callback takes precedence over the injected tagger.
// Failures are logged but never fail the query; the answer is already in
// hand.
func (r *Resolver) tagReplySocket(cb *Callbacks, reply *exchangeReply, nc NetContext) {
	if reply.conn == nil {
		return
	}
	if cb.TagSocket == nil && r.tagger == nil {
		return
	}

	sc, err := reply.conn.SyscallConn()
	if err != nil {
		r.logger.Error("socket tagging failed", err, Field{"network", nc.Network})
		return
	}

	var tagErr error
	ctrlErr := sc.Control(func(fd uintptr) {
		if cb.TagSocket != nil {
			tagErr = cb.TagSocket(int(fd), nc.Network, nc.UID, nc.PID)
			return
		}
		tagErr = r.tagger.TagSocket(int(fd), nc.Network, nc.UID, nc.PID)
	})
	if ctrlErr != nil {
		tagErr = ctrlErr
	}
	if tagErr != nil {
		cb.log(fmt.Sprintf("tagging socket for uid %d failed: %v", nc.UID, tagErr))
		r.logger.Error("socket tagging failed", tagErr,
			Field{"network", nc.Network},
			Field{"uid", nc.UID})
	}
}

// LookupIPs resolves a host name to IP addresses on the given network, on
// behalf of the given uid. The per-query context comes from the
// GetNetworkContext callback; without one installed the lookup fails with
// ErrMissingCallback.
//
// A and AAAA records are queried concurrently. A name without a dot is also
// tried against the network's search domains, in order, when the bare name
// yields no answer.
func (r *Resolver) LookupIPs(ctx context.Context, host string, network NetworkID, uid uint32) ([]net.IP, error) {
	cb := r.callbacks.snapshot()

	nc, err := cb.networkContext(network, uid)
	if err != nil {
		return nil, err
	}

	return r.resolveIPs(ctx, host, nc)
}

// resolveIPs walks the search candidates of a name until one yields
// addresses. Only authoritative negatives advance to the next candidate;
// hard failures surface immediately.
func (r *Resolver) resolveIPs(ctx context.Context, host string, nc NetContext) ([]net.IP, error) {
	n, err := r.network(nc.Network)
	if err != nil {
		return nil, err
	}
	_, domains, _ := n.configSnapshot()

	var lastErr error
	for _, name := range searchCandidates(host, domains) {
		ips, err := r.lookupIPs(ctx, name, nc)
		if err == nil {
			return ips, nil
		}
		if !errors.Is(err, ErrNoAnswer) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// lookupIPs queries A and AAAA for one name and extracts the addresses.
func (r *Resolver) lookupIPs(ctx context.Context, host string, nc NetContext) ([]net.IP, error) {
	queryTypes := []RecordType{TypeA, TypeAAAA}

	type result struct {
		ans   *AnswerSet
		err   error
		qtype RecordType
	}

	// Buffered channel prevents goroutines from blocking if we return early.
	// Size matches query count so all goroutines can always send their result.
	results := make(chan result, len(queryTypes))

	for _, qtype := range queryTypes {
		go func(qt RecordType) {
			ans, err := r.Resolve(ctx, Query{Name: host, Type: qt}, nc)
			results <- result{ans: ans, err: err, qtype: qt}
		}(qtype)
	}

	// Collect all results, even if one query type fails. A host might have A
	// records but no AAAA records, which surfaces as an error rather than an
	// empty result.
	ips := make([]net.IP, 0, len(queryTypes)*4)
	failures := make(map[RecordType]error, len(queryTypes))
	for i := 0; i < len(queryTypes); i++ {
		res := <-results
		if res.err != nil {
			failures[res.qtype] = res.err
			r.logger.Debug("query type failed",
				Field{"type", res.qtype.String()},
				Field{"error", res.err.Error()})
			continue
		}
		ips = append(ips, res.ans.IPs()...)
	}

	if len(ips) == 0 {
		// Results arrive in scheduler order, so the surfaced error is
		// picked in fixed family order instead, hard failures before
		// authoritative negatives. The search walk upstream advances only
		// on ErrNoAnswer.
		var negative error
		for _, qt := range queryTypes {
			switch err := failures[qt]; {
			case err == nil:
			case !errors.Is(err, ErrNoAnswer):
				return nil, err
			case negative == nil:
				negative = err
			}
		}
		if negative != nil {
			return nil, negative
		}
		return nil, fmt.Errorf("%w: no addresses for %s", ErrNoAnswer, host)
	}
	return ips, nil
}

// searchCandidates expands a name through the search domains: the name as
// given first, then name.domain for each search domain. Names that already
// contain a dot are never expanded.
func searchCandidates(host string, domains []string) []string {
	candidates := []string{host}
	if strings.Contains(host, ".") {
		return candidates
	}
	for _, d := range domains {
		d = strings.TrimSuffix(d, ".")
		if d == "" {
			continue
		}
		candidates = append(candidates, host+"."+d)
	}
	return candidates
}

// newCache builds one network's answer cache from the configured geometry.
func (r *Resolver) newCache() *resolveCache {
	if r.cacheDisabled {
		return newResolveCache(0, r.cacheMinTTL, r.cacheMaxTTL)
	}
	return newResolveCache(r.cacheSize, r.cacheMinTTL, r.cacheMaxTTL)
}

// sweepLoop evicts expired cache entries in the background, so memory is
// reclaimed even on networks that stopped receiving queries.
func (r *Resolver) sweepLoop() {
	defer close(r.sweepDone)

	if r.sweepInterval <= 0 || r.cacheDisabled {
		return
	}

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.sweepStop:
			return
		case <-ticker.C:
			r.mu.RLock()
			states := make([]*networkState, 0, len(r.networks))
			for _, n := range r.networks {
				states = append(states, n)
			}
			r.mu.RUnlock()

			for _, n := range states {
				n.cache.purgeExpired()
			}
		}
	}
}

// Close stops background work, tears every network down, and releases pooled
// connections. The resolver is unusable afterwards; operations return
// ErrClosed.
func (r *Resolver) Close() error {
	if !r.closed.SetToIf(false, true) {
		return nil
	}

	close(r.sweepStop)
	<-r.sweepDone

	r.mu.Lock()
	networks := r.networks
	r.networks = make(map[NetworkID]*networkState)
	r.mu.Unlock()

	for _, n := range networks {
		n.tornDown.Set()
		n.cache.flush()
	}

	if c, ok := r.exchanger.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
