package netresolv

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc/resolver"
)

// GRPCScheme is the URI scheme the gRPC builder answers to.
const GRPCScheme = "netresolv"

// GRPCBuilder adapts a Resolver into a gRPC name resolver, so a client
// built with it resolves targets like "netresolv:///api.example.com:443"
// through a chosen network instead of the system resolver.
//
// Example:
//
//	conn, err := grpc.NewClient("netresolv:///api.example.com:443",
//	    grpc.WithResolvers(NewGRPCBuilder(res, netID)),
//	)
type GRPCBuilder struct {
	res     *Resolver
	network NetworkID
	scheme  string
}

// GRPCOption configures a GRPCBuilder.
type GRPCOption func(*GRPCBuilder)

// WithGRPCScheme changes the URI scheme the builder registers under, for
// clients that run several builders against different networks side by side.
// An empty scheme keeps the default.
func WithGRPCScheme(scheme string) GRPCOption {
	return func(b *GRPCBuilder) {
		if scheme != "" {
			b.scheme = scheme
		}
	}
}

// NewGRPCBuilder returns a builder that resolves on the given network.
func NewGRPCBuilder(res *Resolver, network NetworkID, opts ...GRPCOption) *GRPCBuilder {
	b := &GRPCBuilder{res: res, network: network, scheme: GRPCScheme}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Scheme implements resolver.Builder.
func (b *GRPCBuilder) Scheme() string { return b.scheme }

// Build implements resolver.Builder.
func (b *GRPCBuilder) Build(target resolver.Target, cc resolver.ClientConn, _ resolver.BuildOptions) (resolver.Resolver, error) {
	host, port, err := net.SplitHostPort(target.Endpoint())
	if err != nil {
		// Bare host without port; gRPC convention is 443.
		host, port = target.Endpoint(), "443"
	}
	if host == "" {
		return nil, fmt.Errorf("netresolv: empty host in target %q", target.Endpoint())
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &grpcResolver{
		res:     b.res,
		network: b.network,
		host:    host,
		port:    port,
		cc:      cc,
		ctx:     ctx,
		cancel:  cancel,
		rn:      make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go g.watch()
	return g, nil
}

// grpcResolver watches one target name: it pushes the initial address set
// right away and re-resolves whenever gRPC asks via ResolveNow.
type grpcResolver struct {
	res     *Resolver
	network NetworkID
	host    string
	port    string
	cc      resolver.ClientConn

	ctx    context.Context
	cancel context.CancelFunc

	// rn has one buffered slot, so bursts of ResolveNow collapse into a
	// single pending pass.
	rn   chan struct{}
	done chan struct{}

	// lastRecords is only touched by the watch goroutine
	lastRecords []Record
}

// ResolveNow implements resolver.Resolver.
func (g *grpcResolver) ResolveNow(resolver.ResolveNowOptions) {
	select {
	case g.rn <- struct{}{}:
	default:
	}
}

// Close implements resolver.Resolver.
func (g *grpcResolver) Close() {
	g.cancel()
	<-g.done
}

func (g *grpcResolver) watch() {
	defer close(g.done)

	for {
		g.resolveOnce()
		select {
		case <-g.ctx.Done():
			return
		case <-g.rn:
		}
	}
}

// resolveOnce queries both address families and pushes the result to gRPC.
// An unchanged address set is not pushed again; gRPC treats every update as
// news and would churn the balancer.
func (g *grpcResolver) resolveOnce() {
	nc, err := g.res.identityContext(g.network)
	if err != nil {
		g.cc.ReportError(err)
		return
	}

	var records []Record
	for _, qt := range []RecordType{TypeA, TypeAAAA} {
		ans, err := g.res.Resolve(g.ctx, Query{Name: g.host, Type: qt}, nc)
		if err != nil {
			if errors.Is(err, ErrNoAnswer) {
				continue
			}
			g.cc.ReportError(err)
			return
		}
		records = append(records, ans.Records...)
	}

	if len(records) == 0 {
		g.cc.ReportError(fmt.Errorf("%w: no addresses for %s", ErrNoAnswer, g.host))
		return
	}

	if recordsEqual(g.lastRecords, records, true) {
		return
	}
	g.lastRecords = records

	addrs := make([]resolver.Address, 0, len(records))
	for _, rec := range records {
		if rec.Type != TypeA && rec.Type != TypeAAAA {
			continue
		}
		addrs = append(addrs, resolver.Address{Addr: net.JoinHostPort(rec.Value, g.port)})
	}

	if err := g.cc.UpdateState(resolver.State{Addresses: addrs}); err != nil {
		// gRPC signals through this error that it wants a re-resolve; the
		// next ResolveNow covers it.
		g.res.logger.Debug("grpc state update rejected",
			Field{"host", g.host},
			Field{"error", err.Error()})
	}
}
