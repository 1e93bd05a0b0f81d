// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package netresolv provides per-network DNS resolution with pluggable host
// policy hooks.
//
// Every query runs against one registered network, which owns its own
// nameserver list, search domains, tuning parameters, answer cache, and
// server health history. Nameservers are ranked by observed success rate, so
// attempts go to servers that have recently answered before servers that
// have recently failed. Host policy (permission checks, per-domain vetoes,
// socket attribution) is interposed through an atomically swappable callback
// set.
//
// # Usage
//
// Register a network, configure its nameservers, and resolve:
//
//	res := netresolv.New()
//	defer res.Close()
//
//	res.CreateNetwork(100)
//	res.SetNameservers(100,
//	    netresolv.ServerAddrs(netresolv.GooglePublicDNSv4),
//	    nil, netresolv.DefaultParams())
//
//	ans, err := res.Resolve(ctx,
//	    netresolv.Query{Name: "example.org", Type: netresolv.TypeA},
//	    netresolv.NetContext{Network: 100, UID: 10001})
//
// With a default network set, the Resolver is also a drop-in dialer for any
// HTTP client, gRPC connection, or custom connection pool:
//
//	res := netresolv.New(netresolv.WithDefaultNetwork(100))
//
//	client := &http.Client{
//	    Transport: &http.Transport{
//	        DialContext: res.DialContext,
//	    },
//	}
package netresolv
