package decision

import (
	"context"

	"github.com/google/uuid"
	"github.com/talgya/emergence/internal/action"
)

// DecisionSource turns one tick's perceptions into one requested action
// per agent. Implementations must treat perceptions as read-only and
// must not block past ctx's deadline; Phase 3 synthesizes a NoAction
// for any agent absent from the returned map or for which Decide
// returns after ctx is done.
type DecisionSource interface {
	Decide(ctx context.Context, tick uint64, perceptions map[uuid.UUID]Perception) map[uuid.UUID]action.Request
}

// StubDecisionSource always returns NoAction for every agent. Used for
// tests and headless runs where no planning backend is wired in.
type StubDecisionSource struct{}

func (StubDecisionSource) Decide(_ context.Context, tick uint64, perceptions map[uuid.UUID]Perception) map[uuid.UUID]action.Request {
	out := make(map[uuid.UUID]action.Request, len(perceptions))
	for id := range perceptions {
		out[id] = action.Request{AgentID: id, Kind: action.KindNoAction, SubmittedAt: tick}
	}
	return out
}

// SynthesizeMissing fills in a NoAction request for every perceived
// agent absent from a partial decision map, the fallback Phase 3 applies
// to timed-out or unparseable responses.
func SynthesizeMissing(tick uint64, perceptions map[uuid.UUID]Perception, partial map[uuid.UUID]action.Request) map[uuid.UUID]action.Request {
	out := make(map[uuid.UUID]action.Request, len(perceptions))
	for id, req := range partial {
		out[id] = req
	}
	for id := range perceptions {
		if _, ok := out[id]; !ok {
			out[id] = action.Request{AgentID: id, Kind: action.KindNoAction, SubmittedAt: tick}
		}
	}
	return out
}
