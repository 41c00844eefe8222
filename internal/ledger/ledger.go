// Package ledger implements the append-only, double-entry journal of
// resource movements that backs conservation accounting for the whole
// simulation. Every resource that moves between an agent, a location, a
// structure, the world, or the void is recorded as exactly one entry with
// a (from, to) pair whose entity types are fixed by the entry's kind.
package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntityType identifies which kind of entity sits on one side of an entry.
type EntityType uint8

const (
	EntityWorld EntityType = iota
	EntityLocation
	EntityAgent
	EntityStructure
	EntityVoid
)

func (t EntityType) String() string {
	switch t {
	case EntityWorld:
		return "world"
	case EntityLocation:
		return "location"
	case EntityAgent:
		return "agent"
	case EntityStructure:
		return "structure"
	case EntityVoid:
		return "void"
	default:
		return "unknown"
	}
}

// Kind enumerates the closed set of ledger entry kinds. Each kind binds a
// fixed (from-type, to-type) pair, enforced by Builder.Build.
type Kind uint8

const (
	Regeneration Kind = iota
	Gather
	Pickup
	Consume
	Transfer
	Build
	Salvage
	Decay
	Drop
	Theft
	CombatLoot
)

func (k Kind) String() string {
	switch k {
	case Regeneration:
		return "regeneration"
	case Gather:
		return "gather"
	case Pickup:
		return "pickup"
	case Consume:
		return "consume"
	case Transfer:
		return "transfer"
	case Build:
		return "build"
	case Salvage:
		return "salvage"
	case Decay:
		return "decay"
	case Drop:
		return "drop"
	case Theft:
		return "theft"
	case CombatLoot:
		return "combat_loot"
	default:
		return "unknown"
	}
}

// entityPair is the expected (from, to) type pair for a kind.
type entityPair struct {
	from EntityType
	to   EntityType
}

// expectedEntityTypes is the exact table from the ledger entry-kind
// contract: Regeneration=(World,Location), Gather|Pickup=(Location,Agent),
// Consume=(Agent,Void), Transfer=(Agent,Agent), Build=(Agent,Structure),
// Salvage=(Structure,Agent), Decay=(Structure,Void), Drop=(Agent,Location),
// Theft|CombatLoot=(Agent,Agent).
var expectedEntityTypes = map[Kind]entityPair{
	Regeneration: {EntityWorld, EntityLocation},
	Gather:       {EntityLocation, EntityAgent},
	Pickup:       {EntityLocation, EntityAgent},
	Consume:      {EntityAgent, EntityVoid},
	Transfer:     {EntityAgent, EntityAgent},
	Build:        {EntityAgent, EntityStructure},
	Salvage:      {EntityStructure, EntityAgent},
	Decay:        {EntityStructure, EntityVoid},
	Drop:         {EntityAgent, EntityLocation},
	Theft:        {EntityAgent, EntityAgent},
	CombatLoot:   {EntityAgent, EntityAgent},
}

// Side identifies one end of a transaction.
type Side struct {
	ID   uuid.UUID
	Type EntityType
}

// Entry is a single append-only ledger record. Never mutated after it is
// recorded.
type Entry struct {
	ID          uuid.UUID       `json:"id"`
	Tick        uint64          `json:"tick"`
	Kind        Kind            `json:"kind"`
	From        Side            `json:"from"`
	To          Side            `json:"to"`
	Resource    string          `json:"resource"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reason      string          `json:"reason"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// Error is the closed set of errors Builder.Build can return.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrZeroQuantity      Error = "ledger: quantity must be positive"
	ErrNegativeQuantity  Error = "ledger: quantity must not be negative"
	ErrMissingField      Error = "ledger: missing required field"
	ErrInvalidEntityType Error = "ledger: entity type does not match entry-kind contract"
)

// Builder constructs a validated Entry. Zero value is not usable; use
// NewBuilder.
type Builder struct {
	kind        Kind
	from        Side
	to          Side
	resource    string
	quantity    decimal.Decimal
	reason      string
	referenceID *uuid.UUID
	tick        uint64
}

// NewBuilder starts a new entry of the given kind for the given tick.
func NewBuilder(kind Kind, tick uint64) *Builder {
	return &Builder{kind: kind, tick: tick}
}

func (b *Builder) From(id uuid.UUID, t EntityType) *Builder {
	b.from = Side{ID: id, Type: t}
	return b
}

func (b *Builder) To(id uuid.UUID, t EntityType) *Builder {
	b.to = Side{ID: id, Type: t}
	return b
}

func (b *Builder) Quantity(q decimal.Decimal) *Builder {
	b.quantity = q
	return b
}

func (b *Builder) Resource(resource string) *Builder {
	b.resource = resource
	return b
}

func (b *Builder) Reason(reason string) *Builder {
	b.reason = reason
	return b
}

func (b *Builder) ReferenceID(id uuid.UUID) *Builder {
	b.referenceID = &id
	return b
}

// Build validates and produces the Entry, generating a fresh time-ordered
// ID. Validation order: quantity sign, required fields, entity-type
// contract.
func (b *Builder) Build() (Entry, error) {
	if b.quantity.IsZero() {
		return Entry{}, ErrZeroQuantity
	}
	if b.quantity.IsNegative() {
		return Entry{}, ErrNegativeQuantity
	}
	if b.resource == "" {
		return Entry{}, ErrMissingField
	}
	if err := b.validateEntityTypes(); err != nil {
		return Entry{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return Entry{
		ID:          id,
		Tick:        b.tick,
		Kind:        b.kind,
		From:        b.from,
		To:          b.to,
		Resource:    b.resource,
		Quantity:    b.quantity,
		Reason:      b.reason,
		ReferenceID: b.referenceID,
		RecordedAt:  time.Now().UTC(),
	}, nil
}

func (b *Builder) validateEntityTypes() error {
	expected, ok := expectedEntityTypes[b.kind]
	if !ok {
		return ErrInvalidEntityType
	}
	if b.from.Type != expected.from || b.to.Type != expected.to {
		return ErrInvalidEntityType
	}
	return nil
}

// gainingTypes are entity types that conceptually gain a resource when on
// the "to" side of an entry; losingTypes lose it when on the "from" side.
// World and Void are the conceptual source/sink and are not counted on
// their own side — they exist purely to make every entry single-sided on
// the gain/loss ledger, which is what the conservation check sums.
var gainingTypes = map[EntityType]bool{
	EntityAgent:     true,
	EntityLocation:  true,
	EntityStructure: true,
}

var losingTypes = map[EntityType]bool{
	EntityAgent:     true,
	EntityLocation:  true,
	EntityStructure: true,
}

// sourceOrSinkKinds are the kinds whose entity-type contract names World
// or Void on one side (Regeneration, Consume, Decay): a genuine
// single-sided flow into or out of the simulation, not a transfer
// between two tracked entities. These are excluded from the
// conservation check entirely rather than counted on their one tracked
// side, since counting them would demand a matching entry on the
// World/Void side that by definition never exists.
var sourceOrSinkKinds = map[Kind]bool{
	Regeneration: true,
	Consume:      true,
	Decay:        true,
}

// Journal is the append-only store of ledger entries for one simulation
// run, queried by tick for conservation checks and by entity for history
// queries; it keeps no index, so each query scans every entry.
type Journal struct {
	entries []Entry
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Append records an already-built entry. The caller is responsible for
// having gone through Builder.Build.
func (j *Journal) Append(e Entry) {
	j.entries = append(j.entries, e)
}

// ForTick returns all entries recorded during the given tick, in append
// order.
func (j *Journal) ForTick(tick uint64) []Entry {
	var out []Entry
	for _, e := range j.entries {
		if e.Tick == tick {
			out = append(out, e)
		}
	}
	return out
}

// ForEntity returns all entries where the given id appears on either
// side, most recent first.
func (j *Journal) ForEntity(id uuid.UUID) []Entry {
	var out []Entry
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		if e.From.ID == id || e.To.ID == id {
			out = append(out, e)
		}
	}
	return out
}

// All returns every recorded entry, in append order. Callers must not
// mutate the result kind/quantity fields are treated as immutable by
// convention.
func (j *Journal) All() []Entry {
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Len returns the total number of recorded entries.
func (j *Journal) Len() int { return len(j.entries) }

// Imbalance describes a resource whose credits and debits did not match
// for a given tick.
type Imbalance struct {
	Resource    string
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
}

// Anomaly is the highest-severity alert the ledger can raise: one or more
// resources failed to balance for a tick. Raising an Anomaly does not
// halt the simulation.
type Anomaly struct {
	Tick       uint64
	Imbalances []Imbalance
}

func (a Anomaly) Error() string {
	return "ledger: conservation violated at tick"
}

// CheckConservation verifies, for every resource touched during the given
// tick, that the sum of quantities credited to gaining entities equals
// the sum of quantities debited from losing entities. Regeneration,
// Consume, and Decay are excluded entirely: they are the explicitly
// allowed single-sided source/sink flows (World produces, Void absorbs),
// not transfers between two tracked entities, so they carry no
// expectation of a matching opposite-side entry. Every other kind moves
// a resource between two tracked entities and is counted on both sides.
//
// Returns nil if every resource balances, or an *Anomaly naming each
// resource that did not.
func (j *Journal) CheckConservation(tick uint64) *Anomaly {
	debits := map[string]decimal.Decimal{}
	credits := map[string]decimal.Decimal{}

	for _, e := range j.ForTick(tick) {
		if sourceOrSinkKinds[e.Kind] {
			continue
		}
		if losingTypes[e.From.Type] {
			debits[e.Resource] = debits[e.Resource].Add(e.Quantity)
		}
		if gainingTypes[e.To.Type] {
			credits[e.Resource] = credits[e.Resource].Add(e.Quantity)
		}
	}

	resources := map[string]bool{}
	for r := range debits {
		resources[r] = true
	}
	for r := range credits {
		resources[r] = true
	}

	var imbalances []Imbalance
	for r := range resources {
		d := debits[r]
		c := credits[r]
		if !d.Equal(c) {
			imbalances = append(imbalances, Imbalance{Resource: r, DebitTotal: d, CreditTotal: c})
		}
	}
	if len(imbalances) == 0 {
		return nil
	}
	sort.Slice(imbalances, func(i, j int) bool { return imbalances[i].Resource < imbalances[j].Resource })
	return &Anomaly{Tick: tick, Imbalances: imbalances}
}
