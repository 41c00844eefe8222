// Package persistence implements the two-tier persistence adapter the
// tick engine's Persist phase writes through: an embedded key-value hot
// store for idempotent per-tick snapshots (see hotstore.go) and a
// relational cold store for append-only event/ledger history.
package persistence

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
	"github.com/shopspring/decimal"

	"github.com/talgya/emergence/internal/ledger"
	"github.com/talgya/emergence/internal/tick"
)

// ColdStore is the append-only relational store for event and ledger
// history, backed by SQLite (pure-Go driver, no cgo) via sqlx.
type ColdStore struct {
	conn *sqlx.DB
}

// OpenColdStore opens or creates a SQLite database at path, running
// migrations idempotently.
func OpenColdStore(path string) (*ColdStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("persistence: open cold store: %w", err)
	}
	cs := &ColdStore{conn: conn}
	if err := cs.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("persistence: migrate cold store: %w", err)
	}
	return cs, nil
}

// Close closes the underlying connection.
func (cs *ColdStore) Close() error { return cs.conn.Close() }

func (cs *ColdStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		category TEXT NOT NULL,
		detail TEXT NOT NULL,
		agent_id TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		tick INTEGER NOT NULL,
		kind INTEGER NOT NULL,
		from_id TEXT NOT NULL,
		from_type INTEGER NOT NULL,
		to_id TEXT NOT NULL,
		to_type INTEGER NOT NULL,
		resource TEXT NOT NULL,
		quantity TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		reference_id TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_tick ON ledger_entries(tick);
	CREATE INDEX IF NOT EXISTS idx_ledger_resource_tick ON ledger_entries(resource, tick);
	CREATE INDEX IF NOT EXISTS idx_ledger_from ON ledger_entries(from_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_to ON ledger_entries(to_id);
	`
	_, err := cs.conn.Exec(schema)
	return err
}

// AppendEvents writes a tick's events as one atomic batch.
func (cs *ColdStore) AppendEvents(t uint64, events []tick.Event) error {
	if len(events) == 0 {
		return nil
	}
	txn, err := cs.conn.Beginx()
	if err != nil {
		return err
	}
	defer txn.Rollback()

	stmt, err := txn.Preparex(`INSERT INTO events (tick, category, detail, agent_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(e.Tick, e.Category, e.Detail, e.AgentID.String()); err != nil {
			return fmt.Errorf("persistence: insert event: %w", err)
		}
	}
	return txn.Commit()
}

// AppendLedger writes a tick's ledger entries as one atomic batch.
func (cs *ColdStore) AppendLedger(t uint64, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	txn, err := cs.conn.Beginx()
	if err != nil {
		return err
	}
	defer txn.Rollback()

	stmt, err := txn.Preparex(`INSERT OR IGNORE INTO ledger_entries
		(id, tick, kind, from_id, from_type, to_id, to_type, resource, quantity, reason, reference_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		var refID string
		if e.ReferenceID != nil {
			refID = e.ReferenceID.String()
		}
		_, err := stmt.Exec(
			e.ID.String(), e.Tick, e.Kind, e.From.ID.String(), e.From.Type,
			e.To.ID.String(), e.To.Type, e.Resource, e.Quantity.String(),
			e.Reason, refID, e.RecordedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		)
		if err != nil {
			return fmt.Errorf("persistence: insert ledger entry: %w", err)
		}
	}
	return txn.Commit()
}

const maxQueryRows = 1000

// EventsForTick returns events recorded at a given tick, bounded to
// maxQueryRows.
func (cs *ColdStore) EventsForTick(t uint64) ([]tick.Event, error) {
	type row struct {
		Tick     uint64 `db:"tick"`
		Category string `db:"category"`
		Detail   string `db:"detail"`
		AgentID  string `db:"agent_id"`
	}
	var rows []row
	err := cs.conn.Select(&rows,
		"SELECT tick, category, detail, agent_id FROM events WHERE tick = ? ORDER BY id LIMIT ?",
		t, maxQueryRows)
	if err != nil {
		return nil, err
	}
	out := make([]tick.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, tick.Event{Tick: r.Tick, Category: r.Category, Detail: r.Detail, AgentID: parseUUIDOrNil(r.AgentID)})
	}
	return out, nil
}

// LedgerForEntity returns every ledger entry touching an entity id,
// bounded to maxQueryRows, most recent first.
func (cs *ColdStore) LedgerForEntity(id string) ([]ledger.Entry, error) {
	type row struct {
		ID          string `db:"id"`
		Tick        uint64 `db:"tick"`
		Kind        uint8  `db:"kind"`
		FromID      string `db:"from_id"`
		FromType    uint8  `db:"from_type"`
		ToID        string `db:"to_id"`
		ToType      uint8  `db:"to_type"`
		Resource    string `db:"resource"`
		Quantity    string `db:"quantity"`
		Reason      string `db:"reason"`
		ReferenceID string `db:"reference_id"`
		RecordedAt  string `db:"recorded_at"`
	}
	var rows []row
	err := cs.conn.Select(&rows,
		`SELECT id, tick, kind, from_id, from_type, to_id, to_type, resource, quantity, reason, reference_id, recorded_at
		 FROM ledger_entries WHERE from_id = ? OR to_id = ? ORDER BY tick DESC LIMIT ?`,
		id, id, maxQueryRows)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Entry, 0, len(rows))
	for _, r := range rows {
		qty, _ := decimal.NewFromString(r.Quantity)
		out = append(out, ledger.Entry{
			ID:       parseUUIDOrNil(r.ID),
			Tick:     r.Tick,
			Kind:     ledger.Kind(r.Kind),
			From:     ledger.Side{ID: parseUUIDOrNil(r.FromID), Type: ledger.EntityType(r.FromType)},
			To:       ledger.Side{ID: parseUUIDOrNil(r.ToID), Type: ledger.EntityType(r.ToType)},
			Resource: r.Resource,
			Quantity: qty,
			Reason:   r.Reason,
		})
	}
	return out, nil
}
