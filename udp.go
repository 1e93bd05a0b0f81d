package netresolv

import (
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/miekg/dns"
)

// defaultExchangeTimeout bounds an attempt when the caller supplied no
// deadline. The scheduler always sets one; this is a back-stop for direct
// use.
const defaultExchangeTimeout = 5 * time.Second

// udpExchanger is the default Exchanger: plain DNS over pooled UDP sockets,
// with a single retry over TCP when a response comes back truncated.
//
// Sockets carry the routing mark of the query's network context, so pools
// are keyed by (server, mark) and never shared across marks.
type udpExchanger struct {
	// dialTimeout bounds the connect of fresh sockets
	dialTimeout time.Duration

	// poolSize is the idle-connection cap per (server, mark) pool
	poolSize int

	logger Logger

	mu     sync.Mutex
	pools  map[poolKey]*connPool
	closed bool
}

type poolKey struct {
	server string
	mark   uint32
}

func newUDPExchanger(poolSize int, dialTimeout time.Duration, logger Logger) *udpExchanger {
	if dialTimeout <= 0 {
		dialTimeout = defaultExchangeTimeout
	}
	return &udpExchanger{
		dialTimeout: dialTimeout,
		poolSize:    poolSize,
		logger:      logger,
		pools:       make(map[poolKey]*connPool),
	}
}

// pool returns the connection pool for one (server, mark) pair, creating it
// on first use.
func (e *udpExchanger) pool(server string, mark uint32) (*connPool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, net.ErrClosed
	}

	key := poolKey{server: server, mark: mark}
	p := e.pools[key]
	if p == nil {
		p = newConnPool(server, e.dialTimeout, e.poolSize, mark)
		e.pools[key] = p
	}
	return p, nil
}

func (e *udpExchanger) Exchange(ctx context.Context, server string, q Query, nc NetContext) (*exchangeReply, error) {
	server = ensurePort(server)
	q = q.withDefaults()

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(q.Name), uint16(q.Type)) // dns.Fqdn ensures the trailing dot
	msg.Question[0].Qclass = q.Class
	msg.RecursionDesired = true

	pool, err := e.pool(server, nc.Mark)
	if err != nil {
		return nil, err
	}

	conn, err := pool.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection to %s: %w", server, err)
	}

	// Honor the caller's deadline on the socket. SetDeadline failures are
	// ignored: they only happen on dead connections, and the read or write
	// right after fails loudly anyway.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(defaultExchangeTimeout))
	}

	dnsConn := &dns.Conn{Conn: conn}

	start := time.Now()

	// A failed write or read likely means a broken socket. Close it instead
	// of poisoning the pool with it.
	if err := dnsConn.WriteMsg(msg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("query to %s failed: %w", server, err)
	}

	response, err := dnsConn.ReadMsg()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("query to %s failed: %w", server, err)
	}

	rtt := time.Since(start)

	// The response survived transport, so the socket is healthy either way
	// from here on.
	if response.Truncated {
		// The answer did not fit in the UDP payload. Retry the same
		// question over TCP; the UDP socket itself is fine to reuse.
		pool.Put(conn)
		e.logger.Debug("response truncated, retrying over TCP",
			Field{"server", server},
			Field{"name", q.Name})
		return e.exchangeTCP(ctx, server, msg, nc)
	}

	records, err := parseAnswer(response, q, server)
	if err != nil {
		pool.Put(conn)
		return nil, err
	}

	// Keep the socket checked out: the engine still needs it for ownership
	// attribution. It returns to the pool through release.
	return &exchangeReply{
		records: records,
		rtt:     rtt,
		conn:    conn,
		release: func() { pool.Put(conn) },
	}, nil
}

// exchangeTCP retries one query over TCP after a truncated UDP response.
// TCP sockets are not pooled; one truncated answer does not predict another.
func (e *udpExchanger) exchangeTCP(ctx context.Context, server string, msg *dns.Msg, nc NetContext) (*exchangeReply, error) {
	dialer := &net.Dialer{Timeout: e.dialTimeout}
	if nc.Mark != MarkUnset {
		dialer.Control = markControl(nc.Mark)
	}

	raw, err := dialer.DialContext(ctx, "tcp", server)
	if err != nil {
		return nil, fmt.Errorf("tcp retry to %s failed: %w", server, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	} else {
		_ = raw.SetDeadline(time.Now().Add(defaultExchangeTimeout))
	}

	dnsConn := &dns.Conn{Conn: raw}

	start := time.Now()

	if err := dnsConn.WriteMsg(msg); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("tcp retry to %s failed: %w", server, err)
	}

	response, err := dnsConn.ReadMsg()
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("tcp retry to %s failed: %w", server, err)
	}

	rtt := time.Since(start)

	q := Query{Name: msg.Question[0].Name, Type: RecordType(msg.Question[0].Qtype), Class: msg.Question[0].Qclass}
	records, err := parseAnswer(response, q, server)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}

	sysConn, _ := raw.(syscall.Conn)
	return &exchangeReply{
		records: records,
		rtt:     rtt,
		conn:    sysConn,
		release: func() { _ = raw.Close() },
	}, nil
}

// Close shuts down all connection pools. In-flight exchanges finish on their
// checked-out sockets and close them on release.
func (e *udpExchanger) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	for _, p := range e.pools {
		_ = p.Close()
	}
	e.pools = nil
	return nil
}

// parseAnswer maps a response to records, folding response codes into the
// error taxonomy: a name error or an empty success is an authoritative
// negative, any other non-success code is a server-side failure worth
// retrying elsewhere.
func parseAnswer(response *dns.Msg, q Query, server string) ([]Record, error) {
	switch response.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, fmt.Errorf("%w: %s has no records", ErrNoAnswer, q.Name)
	default:
		return nil, fmt.Errorf("%w: %s answered %s", ErrTransport, server, dns.RcodeToString[response.Rcode])
	}

	var records []Record
	for _, ans := range response.Answer {
		record := Record{
			Name: ans.Header().Name,
			Type: RecordType(ans.Header().Rrtype),
			TTL:  ans.Header().Ttl,
		}

		// Each record type has its own struct in miekg/dns; pull out a
		// usable value per type.
		switch a := ans.(type) {
		case *dns.A:
			record.Value = a.A.String()
		case *dns.AAAA:
			record.Value = a.AAAA.String()
		case *dns.CNAME:
			record.Value = a.Target
		case *dns.MX:
			// "priority mailserver" (e.g. "10 mail.example.com.")
			record.Value = fmt.Sprintf("%d %s", a.Preference, a.Mx)
		case *dns.NS:
			record.Value = a.Ns
		case *dns.TXT:
			record.Value = fmt.Sprintf("%v", a.Txt)
		case *dns.SOA:
			record.Value = fmt.Sprintf("%s %s %d %d %d %d %d",
				a.Ns, a.Mbox, a.Serial, a.Refresh, a.Retry, a.Expire, a.Minttl)
		case *dns.PTR:
			record.Value = a.Ptr
		case *dns.SRV:
			record.Value = fmt.Sprintf("%d %d %d %s",
				a.Priority, a.Weight, a.Port, a.Target)
		default:
			// Unhandled types still come through, just less structured.
			record.Value = ans.String()
		}

		records = append(records, record)
	}

	// Success with an empty answer section means the name exists but has
	// no records of this type. Same treatment as a name error: the server
	// is healthy and the answer is final.
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s has no %s records", ErrNoAnswer, q.Name, q.Type)
	}

	return records, nil
}
