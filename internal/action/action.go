// Package action defines the action request/result vocabulary and the
// per-kind validator/resolver registry that Phase 4 (Resolution) drives.
package action

import (
	"github.com/google/uuid"
	"github.com/talgya/emergence/internal/world"
)

// Kind enumerates every action an agent may request in a tick.
type Kind uint8

const (
	KindNoAction Kind = iota
	KindGather
	KindEat
	KindDrink
	KindRest
	KindMove
	KindBuild
	KindRepair
	KindDemolish
	KindImproveRoute
	KindCommunicate
	KindBroadcast
	KindTradeOffer
	KindTradeAccept
	KindTradeReject
	KindFormGroup
	KindTeach
	KindFarmPlant
	KindFarmHarvest
	KindCraft
	KindMine
	KindSmelt
	KindWrite
	KindRead
	KindClaim
	KindLegislate
	KindEnforce
	KindReproduce
)

func (k Kind) String() string {
	names := [...]string{
		"no_action", "gather", "eat", "drink", "rest", "move", "build",
		"repair", "demolish", "improve_route", "communicate", "broadcast",
		"trade_offer", "trade_accept", "trade_reject", "form_group",
		"teach", "farm_plant", "farm_harvest", "craft", "mine", "smelt",
		"write", "read", "claim", "legislate", "enforce", "reproduce",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// energyCost is the exact per-kind energy cost table consulted by the
// validator before any other precondition.
var energyCost = map[Kind]uint32{
	KindNoAction:     0,
	KindGather:       10,
	KindEat:          0,
	KindDrink:        0,
	KindRest:         0,
	KindMove:         15,
	KindBuild:        25,
	KindRepair:       15,
	KindDemolish:     20,
	KindImproveRoute: 30,
	KindCommunicate:  2,
	KindBroadcast:    5,
	KindTradeOffer:   2,
	KindTradeAccept:  0,
	KindTradeReject:  0,
	KindFormGroup:    5,
	KindTeach:        10,
	KindFarmPlant:    20,
	KindFarmHarvest:  10,
	KindCraft:        15,
	KindMine:         20,
	KindSmelt:        20,
	KindWrite:        5,
	KindRead:         5,
	KindClaim:        5,
	KindLegislate:    10,
	KindEnforce:      15,
	KindReproduce:    30,
}

// EnergyCost returns the fixed energy cost of performing an action kind.
func EnergyCost(k Kind) uint32 {
	return energyCost[k]
}

// Request is one agent's requested action for the current tick, as
// returned by a DecisionSource. SubmittedAt breaks resolution-order ties
// together with AgentID, per the fixed deterministic resolution order.
type Request struct {
	AgentID      uuid.UUID
	Kind         Kind
	SubmittedAt  uint64 // monotonic sequence assigned at collection time
	TargetID     uuid.UUID      // structure, other agent, or route endpoint
	Resource     world.Resource
	Quantity     uint32
	Message      string
	Destination  uuid.UUID // location id for Move
	StructureTyp string    // for Build
}

// RejectReason classifies why a Resolver refused to apply an action.
type RejectReason uint8

const (
	RejectNone RejectReason = iota
	RejectInsufficientEnergy
	RejectInsufficientResource
	RejectCarryCapacity
	RejectMissingKnowledge
	RejectUnreachable
	RejectInvalidTarget
	RejectConflictLost
	RejectCooldown
)

func (r RejectReason) String() string {
	switch r {
	case RejectInsufficientEnergy:
		return "insufficient_energy"
	case RejectInsufficientResource:
		return "insufficient_resource"
	case RejectCarryCapacity:
		return "carry_capacity_exceeded"
	case RejectMissingKnowledge:
		return "missing_knowledge"
	case RejectUnreachable:
		return "unreachable"
	case RejectInvalidTarget:
		return "invalid_target"
	case RejectConflictLost:
		return "conflict_lost"
	case RejectCooldown:
		return "cooldown"
	default:
		return "none"
	}
}

// Result is the outcome of resolving one Request.
type Result struct {
	AgentID  uuid.UUID
	Kind     Kind
	Accepted bool
	Reject   RejectReason
	Detail   string
}

// Accept builds a successful Result.
func Accept(agentID uuid.UUID, kind Kind, detail string) Result {
	return Result{AgentID: agentID, Kind: kind, Accepted: true, Detail: detail}
}

// Reject builds a failed Result.
func Reject(agentID uuid.UUID, kind Kind, reason RejectReason) Result {
	return Result{AgentID: agentID, Kind: kind, Accepted: false, Reject: reason}
}
