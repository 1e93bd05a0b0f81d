// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import (
	"fmt"
	"time"
)

// Params are the per-network resolver tunables, supplied alongside the
// nameserver list in SetNameservers. The zero value of any field is replaced
// by its default, so callers only set what they want to change.
type Params struct {
	// SampleValidity is how long a recorded health sample on a nameserver
	// stays relevant for ranking. Older samples are dropped.
	SampleValidity time.Duration

	// SuccessThreshold is the minimum success ratio, in percent (0-100),
	// for a server with enough samples to count as healthy. Servers below
	// it rank last but are never excluded outright.
	SuccessThreshold int

	// MinSamples is how many valid samples a server needs before its
	// success ratio is trusted for ranking.
	MinSamples int

	// MaxSamples caps the sample window per server. When full, the oldest
	// sample is dropped first.
	MaxSamples int

	// BaseTimeout bounds each individual attempt against one server. It
	// is fixed per attempt, so the worst case for a whole query stays at
	// BaseTimeout * RetryCount * number of servers.
	BaseTimeout time.Duration

	// RetryCount is the number of attempts per server before moving on to
	// the next one.
	RetryCount int
}

// DefaultParams returns the default tunables: samples stay valid for 30
// minutes in a window of 8 to 64, servers need a 25% success ratio to count
// as healthy, and each server gets 2 attempts of 5 seconds each.
func DefaultParams() Params {
	return Params{
		SampleValidity:   30 * time.Minute,
		SuccessThreshold: 25,
		MinSamples:       8,
		MaxSamples:       64,
		BaseTimeout:      5 * time.Second,
		RetryCount:       2,
	}
}

// withDefaults fills zero-valued fields from DefaultParams.
func (p Params) withDefaults() Params {
	def := DefaultParams()
	if p.SampleValidity == 0 {
		p.SampleValidity = def.SampleValidity
	}
	if p.SuccessThreshold == 0 {
		p.SuccessThreshold = def.SuccessThreshold
	}
	if p.MinSamples == 0 {
		p.MinSamples = def.MinSamples
	}
	if p.MaxSamples == 0 {
		p.MaxSamples = def.MaxSamples
	}
	if p.BaseTimeout == 0 {
		p.BaseTimeout = def.BaseTimeout
	}
	if p.RetryCount == 0 {
		p.RetryCount = def.RetryCount
	}
	return p
}

// validate rejects parameter combinations the engine cannot honor. It is
// called on the defaulted value, so only genuinely bad input fails.
func (p Params) validate() error {
	if p.SampleValidity < 0 {
		return fmt.Errorf("sample validity must be positive, got %s", p.SampleValidity)
	}
	if p.SuccessThreshold < 0 || p.SuccessThreshold > 100 {
		return fmt.Errorf("success threshold must be within 0-100, got %d", p.SuccessThreshold)
	}
	if p.MinSamples < 0 || p.MaxSamples < 0 {
		return fmt.Errorf("sample window sizes must be positive, got min %d max %d", p.MinSamples, p.MaxSamples)
	}
	if p.MinSamples > p.MaxSamples {
		return fmt.Errorf("min samples %d exceeds max samples %d", p.MinSamples, p.MaxSamples)
	}
	if p.BaseTimeout < 0 {
		return fmt.Errorf("base timeout must be positive, got %s", p.BaseTimeout)
	}
	if p.RetryCount < 0 {
		return fmt.Errorf("retry count must be positive, got %d", p.RetryCount)
	}
	return nil
}
