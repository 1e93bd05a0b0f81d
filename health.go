// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import (
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// outcome classifies one completed query attempt against one nameserver.
type outcome uint8

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeTimeout
)

// healthSample is one recorded attempt outcome. Samples are only appended
// for attempts whose outcome was actually observed; abandoned attempts leave
// no trace.
type healthSample struct {
	outcome outcome
	rtt     time.Duration
	at      time.Time
}

// serverHealth is the bounded, time-ordered sample window of one nameserver.
type serverHealth struct {
	samples []healthSample
}

// prune drops samples older than the validity window. Samples are appended
// in time order, so the expired ones form a prefix.
func (h *serverHealth) prune(now time.Time, validity time.Duration) {
	cutoff := now.Add(-validity)
	i := 0
	for i < len(h.samples) && h.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		h.samples = append(h.samples[:0], h.samples[i:]...)
	}
}

// trim enforces the window cap, dropping oldest first. The window is FIFO on
// purpose: recency of network conditions matters, not access pattern.
func (h *serverHealth) trim(max int) {
	if max > 0 && len(h.samples) > max {
		h.samples = append(h.samples[:0], h.samples[len(h.samples)-max:]...)
	}
}

// healthTracker keeps per-nameserver sample windows for one network and
// turns them into an attempt order. Writers are concurrent in-flight
// queries; all operations are short and never block on I/O.
type healthTracker struct {
	mu      sync.Mutex
	servers map[string]*serverHealth
}

func newHealthTracker() *healthTracker {
	return &healthTracker{
		servers: make(map[string]*serverHealth),
	}
}

// recordOutcome appends one observed attempt outcome for the server and
// maintains the window bounds.
func (t *healthTracker) recordOutcome(server string, oc outcome, rtt time.Duration, p Params) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.servers[server]
	if h == nil {
		h = &serverHealth{}
		t.servers[server] = h
	}

	h.samples = append(h.samples, healthSample{outcome: oc, rtt: rtt, at: now})
	h.prune(now, p.SampleValidity)
	h.trim(p.MaxSamples)
}

// retain drops the history of servers that are no longer configured, so a
// reconfigured network carries samples over only for the addresses it kept.
func (t *healthTracker) retain(servers []string) {
	keep := make(map[string]struct{}, len(servers))
	for _, s := range servers {
		keep[s] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for s := range t.servers {
		if _, ok := keep[s]; !ok {
			delete(t.servers, s)
		}
	}
}

// reset wipes all history.
func (t *healthTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.servers = make(map[string]*serverHealth)
}

// window reports the live sample window of one server: valid sample count,
// successes among them, and the mean RTT of the successful ones.
func (t *healthTracker) window(server string, p Params) (valid, successes int, meanRTT time.Duration) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.servers[server]
	if h == nil {
		return 0, 0, 0
	}
	h.prune(now, p.SampleValidity)

	rtts := make([]float64, 0, len(h.samples))
	for _, s := range h.samples {
		valid++
		if s.outcome == outcomeSuccess {
			successes++
			if s.rtt > 0 {
				// Successes recorded without a measured round trip, such
				// as authoritative negatives, count toward the ratio but
				// not the mean.
				rtts = append(rtts, float64(s.rtt))
			}
		}
	}

	if mean, err := stats.Mean(rtts); err == nil {
		meanRTT = time.Duration(mean)
	}
	return valid, successes, meanRTT
}

// Ranking tiers. Servers with enough samples and a success ratio at or above
// the threshold come first, servers without enough samples to judge follow
// in configuration order, and servers proven below the threshold come last.
// The last tier is degraded, not excluded: it is still attempted once
// everything healthier has failed.
const (
	tierHealthy = iota
	tierUnproven
	tierDegraded
)

// serverRank is derived on demand from the live window, never stored.
type serverRank struct {
	server  string
	tier    int
	ratio   float64
	meanRTT time.Duration
}

// rankServers returns the attempt order for the given configured servers.
// Within the healthy and degraded tiers, servers sort by success ratio, ties
// by lower mean RTT, remaining ties by configuration order. A server without
// any measured round trips loses the RTT tie-break. The order is computed
// once per query.
func (t *healthTracker) rankServers(servers []string, p Params) []string {
	ranks := make([]serverRank, 0, len(servers))
	for _, server := range servers {
		valid, successes, meanRTT := t.window(server, p)

		r := serverRank{server: server, tier: tierUnproven}
		if valid >= p.MinSamples && p.MinSamples > 0 {
			r.ratio = float64(successes) / float64(valid)
			r.meanRTT = meanRTT
			if r.ratio*100 >= float64(p.SuccessThreshold) {
				r.tier = tierHealthy
			} else {
				r.tier = tierDegraded
			}
		}
		ranks = append(ranks, r)
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		a, b := ranks[i], ranks[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.tier == tierUnproven {
			// Configuration order, preserved by the stable sort.
			return false
		}
		if a.ratio != b.ratio {
			return a.ratio > b.ratio
		}
		// A zero mean stands for a window with no measured round trips at
		// all, such as pure authoritative negatives. Measured servers win
		// the tie; two unmeasured ones keep configuration order.
		if (a.meanRTT > 0) != (b.meanRTT > 0) {
			return a.meanRTT > 0
		}
		if a.meanRTT != b.meanRTT {
			return a.meanRTT < b.meanRTT
		}
		return false
	})

	ordered := make([]string, len(ranks))
	for i, r := range ranks {
		ordered[i] = r.server
	}
	return ordered
}
