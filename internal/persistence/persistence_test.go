package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/emergence/internal/environment"
	"github.com/talgya/emergence/internal/ledger"
	"github.com/talgya/emergence/internal/tick"
)

func TestHotStorePutAndGetTickSnapshotRoundTrips(t *testing.T) {
	hs, err := OpenHotStore(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)
	defer hs.Close()

	snap := tick.Snapshot{Tick: 42, Clock: environment.DeriveClock(42)}
	require.NoError(t, hs.PutTickSnapshot(42, snap))

	got, found, err := hs.GetTickSnapshot(42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(42), got.Tick)
}

func TestHotStorePutTickSnapshotIsIdempotent(t *testing.T) {
	hs, err := OpenHotStore(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)
	defer hs.Close()

	require.NoError(t, hs.PutTickSnapshot(1, tick.Snapshot{Tick: 1}))
	require.NoError(t, hs.PutTickSnapshot(1, tick.Snapshot{Tick: 1}))

	latest, found, err := hs.LatestTick()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(1), latest)
}

func TestHotStoreLatestTickTracksHighestWrittenTick(t *testing.T) {
	hs, err := OpenHotStore(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)
	defer hs.Close()

	require.NoError(t, hs.PutTickSnapshot(5, tick.Snapshot{Tick: 5}))
	require.NoError(t, hs.PutTickSnapshot(9, tick.Snapshot{Tick: 9}))
	require.NoError(t, hs.PutTickSnapshot(3, tick.Snapshot{Tick: 3}))

	latest, found, err := hs.LatestTick()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(9), latest)
}

func TestColdStoreAppendAndQueryEventsForTick(t *testing.T) {
	cs, err := OpenColdStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer cs.Close()

	agentID := uuid.New()
	events := []tick.Event{
		{Tick: 7, Category: "death", Detail: "starved", AgentID: agentID},
		{Tick: 7, Category: "birth", Detail: "born", AgentID: uuid.New()},
	}
	require.NoError(t, cs.AppendEvents(7, events))

	got, err := cs.EventsForTick(7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "death", got[0].Category)
}

func TestColdStoreAppendLedgerAndQueryByEntity(t *testing.T) {
	cs, err := OpenColdStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer cs.Close()

	agentID := uuid.New()
	locID := uuid.New()
	entries := []ledger.Entry{
		{
			ID: uuid.New(), Tick: 3, Kind: ledger.Gather,
			From: ledger.Side{ID: locID, Type: ledger.EntityLocation},
			To:   ledger.Side{ID: agentID, Type: ledger.EntityAgent},
			Resource: "wood", Quantity: decimal.NewFromInt(10),
			RecordedAt: time.Unix(0, 0).UTC(),
		},
	}
	require.NoError(t, cs.AppendLedger(3, entries))

	got, err := cs.LedgerForEntity(agentID.String())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "wood", got[0].Resource)
	assert.True(t, got[0].Quantity.Equal(decimal.NewFromInt(10)))
}

func TestColdStoreAppendEventsEmptyBatchIsNoOp(t *testing.T) {
	cs, err := OpenColdStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer cs.Close()

	require.NoError(t, cs.AppendEvents(1, nil))
	got, err := cs.EventsForTick(1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAdapterSatisfiesPersistenceInterface(t *testing.T) {
	a, err := Open(t.TempDir())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.PutTickSnapshot(1, tick.Snapshot{Tick: 1}))
	require.NoError(t, a.AppendEvents(1, []tick.Event{{Tick: 1, Category: "test"}}))
	require.NoError(t, a.AppendLedger(1, nil))
}
