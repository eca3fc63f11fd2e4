package runledger

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordAndLatest(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	_, err := l.Latest(ctx)
	require.ErrorIs(t, err, ErrNoRuns)

	summary, err := EncodeSummary(map[string]any{"brands": []string{"BA", "BB"}})
	require.NoError(t, err)

	require.NoError(t, l.Record(ctx, Run{
		ID: snowflake.ID(1), Status: StatusSucceeded, StartedAt: start, FinishedAt: start.Add(time.Minute),
		Records: 10, Brands: 2, Customers: 4, SnapshotPath: "dist/snapshot.json", Summary: summary,
	}))
	require.NoError(t, l.Record(ctx, Run{
		ID: snowflake.ID(2), Status: StatusFailed, StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour), Error: "brand BA: boom",
	}))

	latest, err := l.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(2), latest.ID)
	assert.Equal(t, StatusFailed, latest.Status)
	assert.Empty(t, latest.SnapshotPath)

	ok, err := l.LastSucceeded(ctx)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(1), ok.ID)
	assert.Equal(t, time.Minute, ok.Duration())

	var decoded map[string][]string
	require.NoError(t, json.Unmarshal(ok.Summary, &decoded))
	assert.Equal(t, []string{"BA", "BB"}, decoded["brands"])
}

func TestRecordRejectsDuplicateRunID(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()
	run := Run{ID: snowflake.ID(9), Status: StatusSucceeded, StartedAt: time.Now(), FinishedAt: time.Now()}

	require.NoError(t, l.Record(ctx, run))
	assert.ErrorIs(t, l.Record(ctx, run), ErrDuplicateRun)
}
