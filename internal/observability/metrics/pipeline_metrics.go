package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	RowOutcomeAccepted          = "accepted"
	RowOutcomeDroppedIdentity   = "dropped_identity"
	RowOutcomeQuantityDefaulted = "quantity_defaulted"
	RowOutcomeAmountDefaulted   = "amount_defaulted"
)

const (
	StageIngest      = "ingest"
	StagePseudonym   = "pseudonymize"
	StageDemographic = "demographic_join"
	StageGroup       = "group"
	StageDispatch    = "dispatch"
	StageMerge       = "merge"
	StageWrite       = "write"
)

const (
	ErrorTypeTimeout  = "timeout"
	ErrorTypeCanceled = "canceled"
	ErrorTypePanic    = "panic"
	ErrorTypeUnknown  = "unknown"
)

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

// PipelineMetrics captures batch health signals for the snapshot job.
type PipelineMetrics struct {
	registry       *prometheus.Registry
	rows           *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	brandDuration  *prometheus.HistogramVec
	brandErrors    *prometheus.CounterVec
	brandRecords   *prometheus.GaugeVec
	runs           *prometheus.CounterVec
	lastSuccessful prometheus.Gauge
}

// ErrPanic marks errors recovered from a panicking worker.
var ErrPanic = errors.New("worker panic")

var (
	pipelineMetricsOnce sync.Once
	pipelineMetrics     *PipelineMetrics
)

// Pipeline returns the singleton pipeline metrics registry.
func Pipeline() *PipelineMetrics {
	return PipelineWithConfig(Config{})
}

// PipelineWithConfig returns the singleton pipeline metrics registry using config labels.
func PipelineWithConfig(cfg Config) *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = newPipelineMetrics(prometheus.NewRegistry(), cfg)
	})
	return pipelineMetrics
}

// ResetPipelineMetricsForTest resets the singleton for tests.
func ResetPipelineMetricsForTest() {
	pipelineMetricsOnce = sync.Once{}
	pipelineMetrics = nil
}

func newPipelineMetrics(registry *prometheus.Registry, cfg Config) *PipelineMetrics {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "storepulse"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "storepulse_ingest_rows_total",
		Help:        "Sales rows read from brand exports by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "storepulse_stage_duration_seconds",
		Help:        "Wall time per pipeline stage.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		ConstLabels: constLabels,
	}, []string{"stage"})
	brandDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "storepulse_brand_run_duration_seconds",
		Help:        "Analytics computation time per brand worker.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	}, []string{"brand"})
	brandErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "storepulse_brand_run_errors_total",
		Help:        "Brand worker failures by low-cardinality type.",
		ConstLabels: constLabels,
	}, []string{"brand", "error_type"})
	brandRecords := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "storepulse_brand_records",
		Help:        "Qualifying records assigned to each brand partition.",
		ConstLabels: constLabels,
	}, []string{"brand"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "storepulse_runs_total",
		Help:        "Pipeline runs by final status.",
		ConstLabels: constLabels,
	}, []string{"status"})
	lastSuccessful := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "storepulse_last_success_timestamp_seconds",
		Help:        "Unix time of the last snapshot written.",
		ConstLabels: constLabels,
	})

	registry.MustRegister(rows, stageDuration, brandDuration, brandErrors, brandRecords, runs, lastSuccessful)

	return &PipelineMetrics{
		registry:       registry,
		rows:           rows,
		stageDuration:  stageDuration,
		brandDuration:  brandDuration,
		brandErrors:    brandErrors,
		brandRecords:   brandRecords,
		runs:           runs,
		lastSuccessful: lastSuccessful,
	}
}

// Gatherer exposes the registry for textfile export.
func (m *PipelineMetrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// AddRows increments row counts for an ingest outcome.
func (m *PipelineMetrics) AddRows(outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.rows.WithLabelValues(outcome).Add(float64(count))
}

// ObserveStage records how long a pipeline stage took.
func (m *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveBrandRun records a brand worker's computation time.
func (m *PipelineMetrics) ObserveBrandRun(brand string, duration time.Duration) {
	if m == nil {
		return
	}
	m.brandDuration.WithLabelValues(brand).Observe(duration.Seconds())
}

// SetBrandRecords records the partition size for a brand.
func (m *PipelineMetrics) SetBrandRecords(brand string, count int) {
	if m == nil {
		return
	}
	m.brandRecords.WithLabelValues(brand).Set(float64(count))
}

// IncBrandError classifies and counts a brand worker failure.
func (m *PipelineMetrics) IncBrandError(brand string, err error) {
	if m == nil || err == nil {
		return
	}
	m.brandErrors.WithLabelValues(brand, ClassifyError(err)).Inc()
}

// IncRun counts a finished run by status.
func (m *PipelineMetrics) IncRun(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

// MarkSuccess stamps the last successful snapshot time.
func (m *PipelineMetrics) MarkSuccess(at time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessful.Set(float64(at.Unix()))
}

// WriteTextfile flushes all series in node-exporter textfile format.
func (m *PipelineMetrics) WriteTextfile(path string) error {
	if m == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// ClassifyError maps an error to a low-cardinality label.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ErrorTypeUnknown
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	case errors.Is(err, ErrPanic):
		return ErrorTypePanic
	default:
		return ErrorTypeUnknown
	}
}
