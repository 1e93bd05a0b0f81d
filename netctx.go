package netresolv

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tevino/abool"
)

// networkState is the resolver state of one network: its server list, search
// domains, tuning parameters, health history, and answer cache. Networks are
// fully isolated; nothing in here is shared with another network.
type networkState struct {
	id NetworkID

	mu            sync.RWMutex
	servers       []string
	searchDomains []string
	params        Params

	tracker  *healthTracker
	cache    *resolveCache
	tornDown *abool.AtomicBool
}

// configSnapshot returns copies of the mutable configuration, so one query
// works against a consistent view even while SetNameservers runs.
func (n *networkState) configSnapshot() (servers, domains []string, p Params) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	servers = append([]string(nil), n.servers...)
	domains = append([]string(nil), n.searchDomains...)
	return servers, domains, n.params
}

// CreateNetwork registers a network identifier. The network starts without
// nameservers: queries against it fail with ErrNoServersConfigured until
// SetNameservers supplies a list. Identifier 0 is reserved for "unset".
func (r *Resolver) CreateNetwork(id NetworkID) error {
	if r.closed.IsSet() {
		return ErrClosed
	}
	if id == 0 {
		return fmt.Errorf("netresolv: network identifier 0 is reserved")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.networks[id]; ok {
		return fmt.Errorf("%w: network %d", ErrNetworkExists, id)
	}

	r.networks[id] = &networkState{
		id:       id,
		params:   DefaultParams(),
		tracker:  newHealthTracker(),
		cache:    r.newCache(),
		tornDown: abool.New(),
	}
	r.logger.Debug("network created", Field{"network", id})
	return nil
}

// DestroyNetwork unregisters a network and drops its cache and health
// history. Queries already in flight against it finish with
// ErrNetworkNotFound at their next gate; new ones are rejected outright.
func (r *Resolver) DestroyNetwork(id NetworkID) error {
	if r.closed.IsSet() {
		return ErrClosed
	}

	r.mu.Lock()
	n, ok := r.networks[id]
	if ok {
		delete(r.networks, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: network %d", ErrNetworkNotFound, id)
	}

	n.tornDown.Set()
	n.cache.flush()
	n.tracker.reset()
	r.logger.Debug("network destroyed", Field{"network", id})
	return nil
}

// SetOption adjusts how SetNameservers applies a new configuration.
type SetOption func(*setConfig)

type setConfig struct {
	freshHealth bool
}

// WithFreshHealth drops all health history on reconfiguration instead of
// carrying over the samples of addresses present in both the old and the
// new server lists.
func WithFreshHealth() SetOption {
	return func(c *setConfig) {
		c.freshHealth = true
	}
}

// SetNameservers replaces the server list, search domains, and tuning
// parameters of a network. Servers may be given with or without a port;
// port 53 is assumed. Duplicate addresses collapse to one attempt slot.
//
// Health samples for addresses present in both the old and the new list are
// kept, so a reconfiguration that only appends a server does not forget what
// it learned about the others. Cached answers stay valid; they do not depend
// on which server provided them.
//
// An empty server list is accepted. The network then rejects queries with
// ErrNoServersConfigured until a non-empty list arrives.
func (r *Resolver) SetNameservers(id NetworkID, servers, searchDomains []string, params Params, opts ...SetOption) error {
	if r.closed.IsSet() {
		return ErrClosed
	}

	params = params.withDefaults()
	if err := params.validate(); err != nil {
		return err
	}

	var cfg setConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	n, err := r.network(id)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(servers))
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		s = ensurePort(s)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		normalized = append(normalized, s)
	}

	n.mu.Lock()
	n.servers = normalized
	n.searchDomains = append([]string(nil), searchDomains...)
	n.params = params
	n.mu.Unlock()

	if cfg.freshHealth {
		n.tracker.reset()
	} else {
		n.tracker.retain(normalized)
	}

	r.logger.Info("nameservers configured",
		Field{"network", id},
		Field{"servers", normalized},
		Field{"search_domains", searchDomains})
	return nil
}

// FlushNetwork drops the cached answers of one network. Configuration and
// health history are kept.
func (r *Resolver) FlushNetwork(id NetworkID) error {
	if r.closed.IsSet() {
		return ErrClosed
	}
	n, err := r.network(id)
	if err != nil {
		return err
	}
	n.cache.flush()
	r.logger.Debug("network cache flushed", Field{"network", id})
	return nil
}

// Networks lists the registered network identifiers in ascending order.
func (r *Resolver) Networks() []NetworkID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]NetworkID, 0, len(r.networks))
	for id := range r.networks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Resolver) network(id NetworkID) (*networkState, error) {
	r.mu.RLock()
	n, ok := r.networks[id]
	r.mu.RUnlock()

	if !ok || n.tornDown.IsSet() {
		return nil, fmt.Errorf("%w: network %d", ErrNetworkNotFound, id)
	}
	return n, nil
}
