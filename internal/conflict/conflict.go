// Package conflict resolves contention between two or more agents
// submitting gather claims against the same resource at the same
// location in the same tick. Both strategies are pure functions:
// identical inputs always yield identical outputs, which is required for
// the simulation's determinism guarantee.
package conflict

import (
	"sort"

	"github.com/google/uuid"
)

// Strategy selects which conflict-resolution algorithm to apply. It is a
// global configuration choice, not a per-claim one.
type Strategy uint8

const (
	FirstComeFirstServed Strategy = iota
	EqualSplit
)

// Claim is one agent's request for a quantity of a contested resource.
type Claim struct {
	AgentID     uuid.UUID
	Requested   uint32
	SubmittedAt uint64 // monotonic submission tick-order timestamp
}

// RejectionReason mirrors the closed rejection enum used across the
// action pipeline; conflict.go only ever produces ConflictLost.
const ConflictLost = "conflict_lost"

// Outcome is either a Granted quantity or a rejection.
type Outcome struct {
	Granted  uint32
	Rejected bool
	Reason   string
}

// Resolve distributes `available` units of a resource among `claims`
// according to `strategy`. The returned map has exactly one entry per
// claim's AgentID — every claim appears exactly once in the outcome map,
// whether granted or rejected.
func Resolve(available uint32, claims []Claim, strategy Strategy) map[uuid.UUID]Outcome {
	if len(claims) == 0 {
		return map[uuid.UUID]Outcome{}
	}
	switch strategy {
	case EqualSplit:
		return resolveEqualSplit(available, claims)
	default:
		return resolveFirstComeFirstServed(available, claims)
	}
}

// sortedClaims returns claims ordered by (submitted_at, agent_id), the
// tie-break rule for identical timestamps being the lower agent id.
func sortedClaims(claims []Claim) []Claim {
	sorted := make([]Claim, len(claims))
	copy(sorted, claims)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SubmittedAt != sorted[j].SubmittedAt {
			return sorted[i].SubmittedAt < sorted[j].SubmittedAt
		}
		return idLess(sorted[i].AgentID, sorted[j].AgentID)
	})
	return sorted
}

func idLess(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func resolveFirstComeFirstServed(available uint32, claims []Claim) map[uuid.UUID]Outcome {
	out := make(map[uuid.UUID]Outcome, len(claims))
	remaining := available

	for _, c := range sortedClaims(claims) {
		granted := c.Requested
		if granted > remaining {
			granted = remaining
		}
		remaining -= granted

		if granted == 0 {
			out[c.AgentID] = Outcome{Rejected: true, Reason: ConflictLost}
			continue
		}
		out[c.AgentID] = Outcome{Granted: granted}
	}
	return out
}

func resolveEqualSplit(available uint32, claims []Claim) map[uuid.UUID]Outcome {
	out := make(map[uuid.UUID]Outcome, len(claims))
	sorted := sortedClaims(claims)
	n := uint32(len(sorted))

	if available == 0 || n == 0 {
		for _, c := range sorted {
			out[c.AgentID] = Outcome{Rejected: true, Reason: ConflictLost}
		}
		return out
	}

	base := available / n
	leftover := available % n

	for i, c := range sorted {
		share := base
		if i == 0 {
			share += leftover
		}
		if share > c.Requested {
			share = c.Requested
		}
		if share == 0 {
			out[c.AgentID] = Outcome{Rejected: true, Reason: ConflictLost}
			continue
		}
		out[c.AgentID] = Outcome{Granted: share}
	}
	return out
}
