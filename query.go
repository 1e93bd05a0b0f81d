package netresolv

import (
	"net"
	"time"

	"github.com/miekg/dns"
)

// NetworkID identifies a logical network. All resolver state - nameservers,
// health history, cached answers - is partitioned by it, and state belonging
// to one identity is never visible under another.
//
// Zero is reserved for "unset" and never names a live network.
type NetworkID uint32

// MarkUnset is the zero value for the fwmark fields of NetContext, meaning
// no mark is applied to outbound sockets.
const MarkUnset uint32 = 0

// NetContext carries the per-query network context: which network resolves
// the query, which network the application lives on, routing marks for both,
// and the identity the query is made on behalf of.
//
// Typically filled in by the GetNetworkContext hook, but callers using
// Resolve directly may construct it themselves.
type NetContext struct {
	// Network is the network whose nameservers, cache and health history
	// serve this query.
	Network NetworkID

	// AppNetwork is the network the requesting application is attached to.
	// It can differ from Network, e.g. when DNS is redirected to another
	// network on the application's behalf.
	AppNetwork NetworkID

	// Mark is the fwmark applied to sockets carrying DNS traffic for this
	// query. MarkUnset leaves sockets unmarked.
	Mark uint32

	// AppMark is the fwmark of the requesting application's own traffic.
	AppMark uint32

	// UID is the user identity the query is attributed to, both for the
	// permission gate and for socket ownership attribution.
	UID uint32

	// PID of the requesting process, passed through to the tagging hook.
	PID int32
}

// Query names one DNS question.
type Query struct {
	// Name is the domain name to resolve. It is normalized (lowercased,
	// trailing dot stripped) for cache identity, and sent on the wire in
	// fully-qualified form.
	Name string

	// Type of record to ask for. Defaults to TypeA when zero.
	Type RecordType

	// Class of the question. Defaults to the Internet class when zero;
	// there is rarely a reason to set it.
	Class uint16
}

// withDefaults fills in the zero-value fields.
func (q Query) withDefaults() Query {
	if q.Type == 0 {
		q.Type = TypeA
	}
	if q.Class == 0 {
		q.Class = dns.ClassINET
	}
	return q
}

// AnswerSet is the result of a resolved query.
type AnswerSet struct {
	// Records of the answer, in server order.
	Records []Record

	// Server that produced the answer. Empty when the answer came from
	// the cache.
	Server string

	// RTT of the winning attempt. Zero for cache hits.
	RTT time.Duration

	// FromCache reports whether the answer was served from the resolve
	// cache without any network attempt.
	FromCache bool
}

// IPs extracts the addresses from the A and AAAA records of the answer.
func (a *AnswerSet) IPs() []net.IP {
	ips := make([]net.IP, 0, len(a.Records))
	for _, rec := range a.Records {
		if rec.Type != TypeA && rec.Type != TypeAAAA {
			continue
		}
		if ip := net.ParseIP(rec.Value); ip != nil {
			ips = append(ips, ip)
		}
	}
	return ips
}
