package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storepulse/internal/clock"
	"github.com/smallbiznis/storepulse/internal/config"
	"github.com/smallbiznis/storepulse/internal/mappingstore"
	"github.com/smallbiznis/storepulse/internal/observability/metrics"
	"github.com/smallbiznis/storepulse/internal/pseudonym"
	"github.com/smallbiznis/storepulse/internal/runledger"
	"github.com/smallbiznis/storepulse/internal/sales/domain"
	"github.com/smallbiznis/storepulse/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const exportHeader = "会員番号,購入日,商品名,数量,税抜金額,店舗名,販売員名,ブランドコード\n"

const brandAExport = exportHeader +
	"AB1234,2024/06/01,フレアスカート,1,\"1,000\",渋谷店,山田,01\n" +
	"AB1234,2024-06-08,フレアスカート,1,2000,渋谷店,山田,01\n" +
	"AB1234,2024-06-08,シャツ,x,500,渋谷店,山田,01\n" +
	",2024-06-09,シャツ,1,700,渋谷店,山田,01\n"

type serviceFixture struct {
	cfg     config.Config
	service *Service
	metrics *metrics.PipelineMetrics
}

func newServiceFixture(t *testing.T, inputs ...string) serviceFixture {
	t.Helper()
	dir := t.TempDir()
	files := make([]string, 0, len(inputs))
	for i, body := range inputs {
		path := filepath.Join(dir, "in", "brand_"+string(rune('a'+i))+".csv")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		files = append(files, path)
	}

	cfg := config.Config{
		AppName:     "storepulse",
		Environment: "test",
		Input: config.InputConfig{
			Files:     files,
			Encoding:  config.EncodingUTF8,
			Streaming: true,
		},
		Output: config.OutputConfig{
			SnapshotPath:      filepath.Join(dir, "dist", "snapshot.json"),
			PrefixMapPath:     filepath.Join(dir, "dist", "member_prefix_map.json"),
			MappingDBPath:     filepath.Join(dir, "state", "mappings.db"),
			LedgerDBPath:      filepath.Join(dir, "state", "ledger.db"),
			AnonymizedCSVPath: filepath.Join(dir, "dist", "anonymized.csv"),
			MetricsPath:       filepath.Join(dir, "dist", "storepulse.prom"),
			Pretty:            true,
		},
		Pipeline: config.PipelineConfig{CustomerLimit: 100},
	}

	metrics.ResetPipelineMetricsForTest()
	t.Cleanup(metrics.ResetPipelineMetricsForTest)
	m := metrics.PipelineWithConfig(metrics.Config{ServiceName: cfg.AppName, Environment: cfg.Environment})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(runAt)
	o, err := NewOrchestrator(Params{Log: zap.NewNop(), Clock: fake, GenID: node, Metrics: m, Options: OptionsFromConfig(cfg)})
	require.NoError(t, err)

	svc := NewService(ServiceParams{
		Config:       cfg,
		Log:          zap.NewNop(),
		Clock:        fake,
		GenID:        node,
		Orchestrator: o,
		Metrics:      m,
	})
	return serviceFixture{cfg: cfg, service: svc, metrics: m}
}

func TestServiceExecuteEndToEnd(t *testing.T) {
	f := newServiceFixture(t, brandAExport)
	ctx := context.Background()

	report, err := f.service.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Ingest.Rows)
	assert.Equal(t, 1, report.Ingest.Dropped)
	assert.Equal(t, 1, report.Ingest.QuantityDefaulted)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 1, report.Customers)

	body, err := os.ReadFile(f.cfg.Output.SnapshotPath)
	require.NoError(t, err)
	var snap snapshot.GlobalSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))

	assert.Equal(t, report.RunID.String(), snap.Meta.RunID)
	assert.Equal(t, 3500.0, snap.KPIs.TotalRevenue)
	assert.Equal(t, 2, snap.KPIs.TotalTransactions)
	assert.Equal(t, 1750.0, snap.KPIs.AverageOrderValue)
	require.Len(t, snap.Customers, 1)
	assert.Equal(t, "ZA1234", snap.Customers[0].MemberID)
	assert.Equal(t, "2024-06-01", snap.Customers[0].FirstPurchase)
	require.Len(t, snap.PurchaseHistory, 3)
	assert.Equal(t, "スカート", snap.PurchaseHistory[0].Category)
	require.Contains(t, snap.Brands, "BA")
	assert.Equal(t, 3500.0, snap.Brands["BA"].KPIs.TotalRevenue)
	assert.NotContains(t, string(body), "AB1234")
	assert.NotContains(t, string(body), "渋谷店")
	assert.NotContains(t, string(body), "山田")

	prefixes, err := pseudonym.LoadPrefixMap(f.cfg.Output.PrefixMapPath)
	require.NoError(t, err)
	assert.Equal(t, pseudonym.PrefixMap{"AB": "ZA"}, prefixes)

	store, err := mappingstore.Open(ctx, f.cfg.Output.MappingDBPath, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	stored, err := store.PrefixMap(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, prefixes, stored)

	ledger, err := runledger.Open(ctx, f.cfg.Output.LedgerDBPath, zap.NewNop())
	require.NoError(t, err)
	defer ledger.Close()
	run, err := ledger.LastSucceeded(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, run.ID)
	assert.Equal(t, f.cfg.Output.SnapshotPath, run.SnapshotPath)
	assert.Equal(t, 3, run.Records)

	anonymized, err := os.ReadFile(f.cfg.Output.AnonymizedCSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(anonymized), "ZA1234")
	assert.NotContains(t, string(anonymized), "AB1234")

	textfile, err := os.ReadFile(f.cfg.Output.MetricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(textfile), `stage="`+metrics.StagePseudonym+`"`)
	assert.Contains(t, string(textfile), `stage="`+metrics.StageWrite+`"`)
}

const storeLedExport = exportHeader +
	"AB1234,2024-06-01,シャツ,1,1000,Brand A 渋谷店,山田,01\n" +
	"AB5678,2024-06-02,シャツ,1,400,Brand A 新宿店,山田,\n" +
	"CD0001,2024-06-03,コート,1,2000,梅田店,鈴木,02\n"

func TestServiceExecuteAttributesBlankBrandRowsByStoreName(t *testing.T) {
	f := newServiceFixture(t, storeLedExport)

	_, err := f.service.Execute(context.Background())
	require.NoError(t, err)

	body, err := os.ReadFile(f.cfg.Output.SnapshotPath)
	require.NoError(t, err)
	var snap snapshot.GlobalSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))

	assert.Equal(t, 3400.0, snap.KPIs.TotalRevenue)
	require.Contains(t, snap.Brands, "BA")
	require.Contains(t, snap.Brands, "BB")
	assert.Equal(t, 1400.0, snap.Brands["BA"].KPIs.TotalRevenue)
	assert.Equal(t, 2, snap.Brands["BA"].KPIs.TotalTransactions)
	assert.Equal(t, 2000.0, snap.Brands["BB"].KPIs.TotalRevenue)
	assert.Equal(t, 1, snap.Brands["BB"].KPIs.TotalTransactions)

	var brandRevenue float64
	for _, b := range snap.Brands {
		brandRevenue += b.KPIs.TotalRevenue
	}
	assert.Equal(t, snap.KPIs.TotalRevenue, brandRevenue)

	assert.NotContains(t, string(body), "渋谷店")
	assert.NotContains(t, string(body), "新宿店")
	assert.Contains(t, string(body), "Brand A Store")
}

func TestServiceExecuteRequiresEveryInput(t *testing.T) {
	f := newServiceFixture(t, brandAExport)
	f.service.cfg.Input.Files = append(f.service.cfg.Input.Files, filepath.Join(t.TempDir(), "brand_missing.csv"))
	ctx := context.Background()

	_, err := f.service.Execute(ctx)
	require.ErrorIs(t, err, domain.ErrMissingInput)

	_, statErr := os.Stat(f.cfg.Output.SnapshotPath)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(f.cfg.Output.PrefixMapPath)
	assert.True(t, os.IsNotExist(statErr))

	ledger, err := runledger.Open(ctx, f.cfg.Output.LedgerDBPath, zap.NewNop())
	require.NoError(t, err)
	defer ledger.Close()
	run, err := ledger.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, runledger.StatusFailed, run.Status)
	assert.Contains(t, run.Error, "missing_input_file")

	_, err = ledger.LastSucceeded(ctx)
	assert.ErrorIs(t, err, runledger.ErrNoRuns)
}

func TestServiceExecuteFailsWhenDemographicsCannotBeJoined(t *testing.T) {
	f := newServiceFixture(t, brandAExport)
	f.service.cfg.Demographics.Path = filepath.Join(t.TempDir(), "members.csv")

	_, err := f.service.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load demographics")

	_, statErr := os.Stat(f.cfg.Output.SnapshotPath)
	assert.True(t, os.IsNotExist(statErr))
}
