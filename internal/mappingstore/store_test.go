package mappingstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storepulse/internal/pseudonym"
	"github.com/smallbiznis/storepulse/internal/sales/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleTables() *pseudonym.Tables {
	c := pseudonym.NewCollector()
	c.Add(domain.SalesRecord{MemberID: "AB1234", StoreName: "渋谷店", AssociateName: "山田"})
	c.Add(domain.SalesRecord{MemberID: "CD5678", StoreName: "Online Shop", AssociateName: "鈴木"})
	return c.Build()
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "mappings.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndReloadPrefixMap(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	tables := sampleTables()
	runID := snowflake.ID(1001)

	require.NoError(t, s.Save(ctx, runID, tables, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))

	got, err := s.PrefixMap(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, tables.PrefixMap(), got)

	stores, err := s.List(ctx, runID, KindStore)
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, "Online Shop", stores[0].Raw)
	assert.True(t, stores[0].Online)
	assert.Equal(t, pseudonym.OnlineStoreName, stores[0].Pseudonym)
	assert.False(t, stores[1].Online)

	associates, err := s.List(ctx, runID, KindAssociate)
	require.NoError(t, err)
	assert.Len(t, associates, 2)
}

func TestSaveReplacesExistingRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	runID := snowflake.ID(7)
	at := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, runID, sampleTables(), at))
	require.NoError(t, s.Save(ctx, runID, sampleTables(), at.Add(time.Hour)))

	prefixes, err := s.List(ctx, runID, KindMemberPrefix)
	require.NoError(t, err)
	assert.Len(t, prefixes, 2)
}

func TestLatestRunID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.LatestRunID(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	at := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, snowflake.ID(1), sampleTables(), at))
	require.NoError(t, s.Save(ctx, snowflake.ID(2), sampleTables(), at.Add(time.Minute)))

	latest, err := s.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(2), latest)

	_, err = s.PrefixMap(ctx, snowflake.ID(99))
	assert.ErrorIs(t, err, ErrRunNotFound)
}
