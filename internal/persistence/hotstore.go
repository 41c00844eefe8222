package persistence

import (
	"encoding/json"
	"encoding/binary"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/talgya/emergence/internal/tick"
)

// HotStore is the key-value store for per-tick snapshots, backed by
// badger. Writes are keyed by tick number so PutTickSnapshot is
// idempotent: replaying the same tick overwrites the same key.
type HotStore struct {
	db *badger.DB
}

// OpenHotStore opens or creates a badger database at dir.
func OpenHotStore(dir string) (*HotStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("persistence: open hot store: %w", err)
	}
	return &HotStore{db: db}, nil
}

// Close closes the underlying database.
func (hs *HotStore) Close() error { return hs.db.Close() }

func snapshotKey(t uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, t)
	return key
}

// PutTickSnapshot stores a tick's snapshot, overwriting any prior
// snapshot recorded for the same tick.
func (hs *HotStore) PutTickSnapshot(t uint64, snapshot tick.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persistence: marshal snapshot: %w", err)
	}
	return hs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(t), payload)
	})
}

// GetTickSnapshot loads the snapshot recorded for a tick, if any.
func (hs *HotStore) GetTickSnapshot(t uint64) (tick.Snapshot, bool, error) {
	var snapshot tick.Snapshot
	found := false
	err := hs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(t))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snapshot)
		})
	})
	if err != nil {
		return tick.Snapshot{}, false, fmt.Errorf("persistence: read snapshot: %w", err)
	}
	return snapshot, found, nil
}

// LatestTick returns the highest tick number with a stored snapshot.
func (hs *HotStore) LatestTick() (uint64, bool, error) {
	var latest uint64
	found := false
	err := hs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Rewind()
		if it.Valid() {
			key := it.Item().KeyCopy(nil)
			latest = binary.BigEndian.Uint64(key)
			found = true
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return latest, found, nil
}

func parseUUIDOrNil(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
