package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"poolpulse/pkg/models"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestRecordCycleAndRecentCycles verifies cycle rows round-trip and come back
// newest first with the limit applied.
func TestRecordCycleAndRecentCycles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := CycleRecord{
		StartedAt:  time.Now().Add(-time.Minute).UTC(),
		DurationMS: 1200,
		PoolCount:  10,
		Status:     "success",
	}
	newer := CycleRecord{
		StartedAt:  time.Now().UTC(),
		DurationMS: 800,
		Status:     "no_data",
		Reason:     "all sources returned no data",
	}

	_, err := store.RecordCycle(ctx, older)
	require.NoError(t, err)
	newerID, err := store.RecordCycle(ctx, newer)
	require.NoError(t, err)

	cycles, err := store.RecentCycles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	require.Equal(t, newerID, cycles[0].ID)
	require.Equal(t, "no_data", cycles[0].Status)
	require.Equal(t, "all sources returned no data", cycles[0].Reason)
	require.Equal(t, 10, cycles[1].PoolCount)

	cycles, err = store.RecentCycles(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	require.Equal(t, newerID, cycles[0].ID)
}

// TestSaveSnapshotRoundTrip verifies ranked pools persist in rank order with
// the top-N cap applied and a nullable APR.
func TestSaveSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cycleID, err := store.RecordCycle(ctx, CycleRecord{
		StartedAt: time.Now().UTC(),
		Status:    "success",
		PoolCount: 3,
	})
	require.NoError(t, err)

	apr := 10.95
	pools := []*models.Pool{
		{
			ID: "p1", Name: "WBTC/USDC", PairType: models.PairBTCStable,
			Chain: "ethereum", Source: models.SourceGeckoTerminal,
			LiquidityUSD: 500_000, VolumeUSD24h: 50_000, Score: 0.1, APR: &apr,
		},
		{
			ID: "p2", Name: "WETH/USDT", PairType: models.PairETHStable,
			Chain: "ethereum", Source: models.SourceDexScreener,
			LiquidityUSD: 200_000, VolumeUSD24h: 10_000, Score: 0.05,
		},
		{
			ID: "p3", Name: "WBTC/WETH", PairType: models.PairBTCETH,
			Chain: "base", Source: models.SourceGeckoTerminal,
			LiquidityUSD: 100_000, VolumeUSD24h: 4_000, Score: 0.04,
		},
	}

	require.NoError(t, store.SaveSnapshot(ctx, cycleID, pools, 2))

	records, err := store.SnapshotForCycle(ctx, cycleID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, 1, records[0].Rank)
	require.Equal(t, "p1", records[0].PoolID)
	require.Equal(t, "btc-stable", records[0].PairType)
	require.True(t, records[0].APR.Valid)
	require.InDelta(t, 10.95, records[0].APR.Float64, 1e-9)

	require.Equal(t, 2, records[1].Rank)
	require.Equal(t, "p2", records[1].PoolID)
	require.False(t, records[1].APR.Valid)
}

// TestSnapshotForUnknownCycleIsEmpty verifies querying a missing cycle id
// yields no rows, not an error.
func TestSnapshotForUnknownCycleIsEmpty(t *testing.T) {
	store := newTestStore(t)

	records, err := store.SnapshotForCycle(context.Background(), 999)
	require.NoError(t, err)
	require.Empty(t, records)
}
