package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("brand A: %w", context.DeadlineExceeded), want: ErrorTypeTimeout},
		{name: "canceled", err: context.Canceled, want: ErrorTypeCanceled},
		{name: "panic", err: fmt.Errorf("%w: index out of range", ErrPanic), want: ErrorTypePanic},
		{name: "unknown", err: errors.New("boom"), want: ErrorTypeUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}

func TestAddRows(t *testing.T) {
	m := newPipelineMetrics(prometheus.NewRegistry(), Config{ServiceName: "storepulse", Environment: "test"})

	m.AddRows(RowOutcomeAccepted, 3)
	m.AddRows(RowOutcomeAccepted, 0)
	m.AddRows(RowOutcomeDroppedIdentity, 2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.rows.WithLabelValues(RowOutcomeAccepted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rows.WithLabelValues(RowOutcomeDroppedIdentity)))
}

func TestWriteTextfile(t *testing.T) {
	m := newPipelineMetrics(prometheus.NewRegistry(), Config{})
	m.IncRun("succeeded")
	m.IncBrandError("BA", context.DeadlineExceeded)

	path := filepath.Join(t.TempDir(), "storepulse.prom")
	require.NoError(t, m.WriteTextfile(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `storepulse_runs_total{env="unknown",service="storepulse",status="succeeded"} 1`))
	assert.True(t, strings.Contains(string(body), `error_type="timeout"`))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *PipelineMetrics
	m.AddRows(RowOutcomeAccepted, 1)
	m.IncBrandError("BA", errors.New("x"))
	assert.NoError(t, m.WriteTextfile("ignored"))
}

func findFamily(t *testing.T, g prometheus.Gatherer, name string) *dto.MetricFamily {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not gathered", name)
	return nil
}

func TestBrandGaugesAndHistograms(t *testing.T) {
	m := newPipelineMetrics(prometheus.NewRegistry(), Config{ServiceName: "storepulse", Environment: "test"})
	m.SetBrandRecords("BA", 120)
	m.SetBrandRecords("BB", 40)
	m.ObserveBrandRun("BA", 250*time.Millisecond)
	m.ObserveStage(StageDispatch, 2*time.Second)
	m.MarkSuccess(time.Unix(1719824400, 0))

	records := findFamily(t, m.Gatherer(), "storepulse_brand_records")
	require.Len(t, records.GetMetric(), 2)
	assert.Equal(t, dto.MetricType_GAUGE, records.GetType())
	assert.Equal(t, 120.0, records.GetMetric()[0].GetGauge().GetValue())

	stages := findFamily(t, m.Gatherer(), "storepulse_stage_duration_seconds")
	require.Len(t, stages.GetMetric(), 1)
	assert.Equal(t, uint64(1), stages.GetMetric()[0].GetHistogram().GetSampleCount())

	last := findFamily(t, m.Gatherer(), "storepulse_last_success_timestamp_seconds")
	assert.Equal(t, 1719824400.0, last.GetMetric()[0].GetGauge().GetValue())
}
