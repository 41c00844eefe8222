package conflict

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newID(b byte) uuid.UUID {
	var u uuid.UUID
	u[15] = b
	return u
}

func TestFirstComeFirstServedScenarioS2(t *testing.T) {
	a, b, c := newID(1), newID(2), newID(3)
	claims := []Claim{
		{AgentID: a, Requested: 5, SubmittedAt: 0},
		{AgentID: b, Requested: 5, SubmittedAt: 100},
		{AgentID: c, Requested: 5, SubmittedAt: 200},
	}
	out := Resolve(6, claims, FirstComeFirstServed)

	require.Len(t, out, 3)
	assert.Equal(t, uint32(5), out[a].Granted)
	assert.Equal(t, uint32(1), out[b].Granted)
	assert.True(t, out[c].Rejected)
	assert.Equal(t, ConflictLost, out[c].Reason)

	var total uint32
	for _, o := range out {
		total += o.Granted
	}
	assert.Equal(t, uint32(6), total)
}

func TestEqualSplitScenarioS3(t *testing.T) {
	a, b := newID(1), newID(2)
	claims := []Claim{
		{AgentID: a, Requested: 10, SubmittedAt: 0},
		{AgentID: b, Requested: 10, SubmittedAt: 1},
	}
	out := Resolve(7, claims, EqualSplit)

	assert.Equal(t, uint32(4), out[a].Granted)
	assert.Equal(t, uint32(3), out[b].Granted)
}

func TestEqualSplitCapsAtRequested(t *testing.T) {
	a, b := newID(1), newID(2)
	claims := []Claim{
		{AgentID: a, Requested: 2, SubmittedAt: 0},
		{AgentID: b, Requested: 10, SubmittedAt: 1},
	}
	// base=5, leftover=0; a requested only 2, capped.
	out := Resolve(10, claims, EqualSplit)
	assert.Equal(t, uint32(2), out[a].Granted)
	assert.Equal(t, uint32(5), out[b].Granted)
}

func TestZeroAvailableRejectsAll(t *testing.T) {
	a, b := newID(1), newID(2)
	claims := []Claim{
		{AgentID: a, Requested: 5, SubmittedAt: 0},
		{AgentID: b, Requested: 5, SubmittedAt: 1},
	}
	for _, strat := range []Strategy{FirstComeFirstServed, EqualSplit} {
		out := Resolve(0, claims, strat)
		assert.True(t, out[a].Rejected)
		assert.True(t, out[b].Rejected)
	}
}

func TestEmptyClaimsReturnsEmptyMap(t *testing.T) {
	out := Resolve(10, nil, FirstComeFirstServed)
	assert.Empty(t, out)
}

func TestSingleAgentCappedAtAvailable(t *testing.T) {
	a := newID(1)
	claims := []Claim{{AgentID: a, Requested: 20, SubmittedAt: 0}}
	out := Resolve(6, claims, FirstComeFirstServed)
	assert.Equal(t, uint32(6), out[a].Granted)
}

func TestTieBreakOnIdenticalTimestampByLowerAgentID(t *testing.T) {
	low, high := newID(1), newID(9)
	claims := []Claim{
		{AgentID: high, Requested: 5, SubmittedAt: 50},
		{AgentID: low, Requested: 5, SubmittedAt: 50},
	}
	out := Resolve(5, claims, FirstComeFirstServed)
	assert.Equal(t, uint32(5), out[low].Granted)
	assert.True(t, out[high].Rejected)
}
