package persistence

import (
	"github.com/talgya/emergence/internal/ledger"
	"github.com/talgya/emergence/internal/tick"
)

// Adapter wires the hot and cold stores together to satisfy
// tick.PersistenceAdapter: snapshots go to badger, events and ledger
// history go to SQLite.
type Adapter struct {
	Hot  *HotStore
	Cold *ColdStore
}

var _ tick.PersistenceAdapter = (*Adapter)(nil)

// Open opens both stores rooted at the given directory: a badger
// database at <dir>/snapshots and a SQLite file at <dir>/history.db.
func Open(dir string) (*Adapter, error) {
	hot, err := OpenHotStore(dir + "/snapshots")
	if err != nil {
		return nil, err
	}
	cold, err := OpenColdStore(dir + "/history.db")
	if err != nil {
		hot.Close()
		return nil, err
	}
	return &Adapter{Hot: hot, Cold: cold}, nil
}

// Close closes both underlying stores.
func (a *Adapter) Close() error {
	coldErr := a.Cold.Close()
	hotErr := a.Hot.Close()
	if coldErr != nil {
		return coldErr
	}
	return hotErr
}

func (a *Adapter) PutTickSnapshot(t uint64, snapshot tick.Snapshot) error {
	return a.Hot.PutTickSnapshot(t, snapshot)
}

func (a *Adapter) AppendEvents(t uint64, events []tick.Event) error {
	return a.Cold.AppendEvents(t, events)
}

func (a *Adapter) AppendLedger(t uint64, entries []ledger.Entry) error {
	return a.Cold.AppendLedger(t, entries)
}
