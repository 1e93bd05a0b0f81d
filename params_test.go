// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	assert.Equal(t, 30*time.Minute, p.SampleValidity)
	assert.Equal(t, 25, p.SuccessThreshold)
	assert.Equal(t, 8, p.MinSamples)
	assert.Equal(t, 64, p.MaxSamples)
	assert.Equal(t, 5*time.Second, p.BaseTimeout)
	assert.Equal(t, 2, p.RetryCount)
}

func TestParams_WithDefaultsFillsZeroFields(t *testing.T) {
	p := Params{RetryCount: 5, BaseTimeout: time.Second}.withDefaults()

	assert.Equal(t, 5, p.RetryCount)
	assert.Equal(t, time.Second, p.BaseTimeout)
	assert.Equal(t, 30*time.Minute, p.SampleValidity)
	assert.Equal(t, 25, p.SuccessThreshold)
	assert.Equal(t, 8, p.MinSamples)
	assert.Equal(t, 64, p.MaxSamples)
}

func TestParams_ZeroValueEqualsDefaults(t *testing.T) {
	assert.Equal(t, DefaultParams(), Params{}.withDefaults())
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().validate())

	p := DefaultParams()
	p.SuccessThreshold = 150
	assert.Error(t, p.validate())

	p = DefaultParams()
	p.SuccessThreshold = -1
	assert.Error(t, p.validate())

	p = DefaultParams()
	p.MinSamples = p.MaxSamples + 1
	assert.Error(t, p.validate())

	p = DefaultParams()
	p.BaseTimeout = -time.Second
	assert.Error(t, p.validate())

	p = DefaultParams()
	p.RetryCount = -1
	assert.Error(t, p.validate())

	p = DefaultParams()
	p.SampleValidity = -time.Minute
	assert.Error(t, p.validate())
}
