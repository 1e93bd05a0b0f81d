// Copyright 2025 Bruno Schaatsbergen. All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netresolv

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "example.org", normalizeName("example.org"))
	assert.Equal(t, "example.org", normalizeName("EXAMPLE.ORG"))
	assert.Equal(t, "example.org", normalizeName("Example.Org."))
	assert.Equal(t, "", normalizeName("."))
}

func TestEnsurePort(t *testing.T) {
	assert.Equal(t, "8.8.8.8:53", ensurePort("8.8.8.8"))
	assert.Equal(t, "8.8.8.8:5353", ensurePort("8.8.8.8:5353"))
	assert.Equal(t, "[2001:4860:4860::8888]:53", ensurePort("2001:4860:4860::8888"))
	assert.Equal(t, "[2001:4860:4860::8888]:53", ensurePort("[2001:4860:4860::8888]:53"))
	assert.Equal(t, "ns.example.net:53", ensurePort("ns.example.net"))
}

func TestMinimumTTL(t *testing.T) {
	records := []Record{
		{Value: "192.0.2.1", TTL: 300},
		{Value: "192.0.2.2", TTL: 60},
		{Value: "192.0.2.3", TTL: 600},
	}

	assert.Equal(t, 60*time.Second, minimumTTL(records))
	assert.Equal(t, time.Duration(0), minimumTTL(nil))
	assert.Equal(t, time.Duration(0), minimumTTL([]Record{{Value: "192.0.2.1", TTL: 0}}))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, isTimeout(context.DeadlineExceeded))
	assert.True(t, isTimeout(os.ErrDeadlineExceeded))
	assert.True(t, isTimeout(&net.OpError{Op: "read", Err: os.ErrDeadlineExceeded}))

	assert.False(t, isTimeout(nil))
	assert.False(t, isTimeout(errors.New("connection refused")))
	assert.False(t, isTimeout(context.Canceled))
}

func TestSearchCandidates(t *testing.T) {
	// A bare label expands through the search list, tried as given first.
	assert.Equal(t,
		[]string{"db", "db.corp.example", "db.example.org"},
		searchCandidates("db", []string{"corp.example", "example.org."}))

	// Names that already carry a dot are never expanded.
	assert.Equal(t,
		[]string{"db.corp"},
		searchCandidates("db.corp", []string{"corp.example"}))

	assert.Equal(t, []string{"db"}, searchCandidates("db", nil))
	assert.Equal(t, []string{"db"}, searchCandidates("db", []string{"", "."}))
}

func TestRecordsEqual_SameRecords(t *testing.T) {
	records1 := []Record{
		{Value: "192.168.1.1", TTL: 300},
		{Value: "192.168.1.2", TTL: 300},
	}
	records2 := []Record{
		{Value: "192.168.1.1", TTL: 300},
		{Value: "192.168.1.2", TTL: 300},
	}

	assert.True(t, recordsEqual(records1, records2, false))
}

func TestRecordsEqual_DifferentOrder(t *testing.T) {
	records1 := []Record{
		{Value: "192.168.1.1", TTL: 300},
		{Value: "192.168.1.2", TTL: 300},
	}
	records2 := []Record{
		{Value: "192.168.1.2", TTL: 300},
		{Value: "192.168.1.1", TTL: 300},
	}

	assert.True(t, recordsEqual(records1, records2, false))
}

func TestRecordsEqual_DifferentValues(t *testing.T) {
	records1 := []Record{
		{Value: "192.168.1.1", TTL: 300},
	}
	records2 := []Record{
		{Value: "192.168.1.2", TTL: 300},
	}

	assert.False(t, recordsEqual(records1, records2, false))
}

func TestRecordsEqual_DifferentTTL(t *testing.T) {
	records1 := []Record{
		{Value: "192.168.1.1", TTL: 300},
	}
	records2 := []Record{
		{Value: "192.168.1.1", TTL: 600},
	}

	assert.False(t, recordsEqual(records1, records2, false))
}

func TestRecordsEqual_IgnoreTTL(t *testing.T) {
	records1 := []Record{
		{Value: "192.168.1.1", TTL: 300},
	}
	records2 := []Record{
		{Value: "192.168.1.1", TTL: 600},
	}

	assert.True(t, recordsEqual(records1, records2, true))
}

func TestRecordsEqual_DuplicateRecords(t *testing.T) {
	records1 := []Record{
		{Value: "192.168.1.1", TTL: 300},
		{Value: "192.168.1.1", TTL: 300},
		{Value: "192.168.1.2", TTL: 300},
	}
	records2 := []Record{
		{Value: "192.168.1.2", TTL: 300},
		{Value: "192.168.1.1", TTL: 300},
		{Value: "192.168.1.1", TTL: 300},
	}

	assert.True(t, recordsEqual(records1, records2, false))
}

func TestRecordsEqual_DifferentDuplicateCount(t *testing.T) {
	records1 := []Record{
		{Value: "192.168.1.1", TTL: 300},
		{Value: "192.168.1.1", TTL: 300},
	}
	records2 := []Record{
		{Value: "192.168.1.1", TTL: 300},
	}

	assert.False(t, recordsEqual(records1, records2, false))
}

func TestRecordsEqual_EmptySlices(t *testing.T) {
	var records1 []Record
	var records2 []Record

	assert.True(t, recordsEqual(records1, records2, false))
}

func TestRecordsEqual_OneEmpty(t *testing.T) {
	records1 := []Record{
		{Value: "192.168.1.1", TTL: 300},
	}
	var records2 []Record

	assert.False(t, recordsEqual(records1, records2, false))
}

func TestRecordsEqual_DifferentLengths(t *testing.T) {
	records1 := []Record{
		{Value: "192.168.1.1", TTL: 300},
		{Value: "192.168.1.2", TTL: 300},
	}
	records2 := []Record{
		{Value: "192.168.1.1", TTL: 300},
	}

	assert.False(t, recordsEqual(records1, records2, false))
}
