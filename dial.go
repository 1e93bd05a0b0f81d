package netresolv

import (
	"context"
	"fmt"
	"net"
	"os"
)

// DialContext implements the net.Dialer.DialContext signature, making the
// Resolver a drop-in replacement for any Go code that accepts a custom
// dialer. Names resolve on the default network (see WithDefaultNetwork), on
// behalf of the calling process.
//
// Use with HTTP clients, gRPC connections, or any custom connection pool
// that needs DNS resolution:
//
//	// HTTP Client
//	client := &http.Client{
//	    Transport: &http.Transport{
//	        DialContext: res.DialContext,
//	    },
//	}
//
//	// gRPC
//	conn, err := grpc.NewClient("api.example.com:443",
//	    grpc.WithContextDialer(res.DialContext),
//	)
func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	// If host is already an IP address, use it directly without DNS lookup.
	if ip := net.ParseIP(host); ip != nil {
		return r.dialer.DialContext(ctx, network, addr)
	}

	if r.defaultNetwork == 0 {
		return nil, fmt.Errorf("%w: no default network configured", ErrNetworkNotFound)
	}

	nc, err := r.identityContext(r.defaultNetwork)
	if err != nil {
		return nil, err
	}

	ips, err := r.resolveIPs(ctx, host, nc)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed for %s: %w", host, err)
	}

	// Filter IPs based on network type
	var filteredIPs []net.IP
	switch network {
	case "tcp4", "udp4":
		for _, ip := range ips {
			if ip.To4() != nil {
				filteredIPs = append(filteredIPs, ip)
			}
		}
	case "tcp6", "udp6":
		for _, ip := range ips {
			if ip.To4() == nil && ip.To16() != nil {
				filteredIPs = append(filteredIPs, ip)
			}
		}
	default:
		// For "tcp" and "udp", use all IPs. Try IPv4 first for compatibility.
		filteredIPs = make([]net.IP, 0, len(ips))
		for _, ip := range ips {
			if ip.To4() != nil {
				filteredIPs = append(filteredIPs, ip)
			}
		}
		for _, ip := range ips {
			if ip.To4() == nil && ip.To16() != nil {
				filteredIPs = append(filteredIPs, ip)
			}
		}
	}

	if len(filteredIPs) == 0 {
		return nil, fmt.Errorf("no suitable IP addresses found for %s (network: %s)", host, network)
	}

	var lastErr error
	for _, ip := range filteredIPs {
		ipAddr := net.JoinHostPort(ip.String(), portStr)
		conn, err := r.dialer.DialContext(ctx, network, ipAddr)
		if err == nil {
			return conn, nil
		}

		lastErr = err
		r.logger.Debug("connection failed, trying next IP",
			Field{"ip", ip.String()},
			Field{"error", err.Error()})
	}

	return nil, fmt.Errorf("failed to connect to %s: %w", host, lastErr)
}

// identityContext builds a per-query context for callers without one of
// their own, such as DialContext and the gRPC adapter: the
// GetNetworkContext callback when installed, otherwise the calling process
// identity on the given network.
func (r *Resolver) identityContext(network NetworkID) (NetContext, error) {
	uid := uint32(os.Getuid())

	cb := r.callbacks.snapshot()
	if cb.GetNetworkContext != nil {
		return cb.networkContext(network, uid)
	}

	return NetContext{
		Network:    network,
		AppNetwork: network,
		UID:        uid,
		PID:        int32(os.Getpid()),
	}, nil
}
