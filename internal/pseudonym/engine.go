package pseudonym

import (
	"context"
	"fmt"

	"github.com/smallbiznis/storepulse/internal/observability/tracing"
	"github.com/smallbiznis/storepulse/internal/sales/domain"
	"github.com/smallbiznis/storepulse/internal/sales/ingest"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Output is the rewritten dataset plus the tables that produced it.
type Output struct {
	Records []domain.SalesRecord
	Tables  *Tables
	Stats   ingest.Stats
}

// Engine runs the collect, build and rewrite passes over a set of export files.
type Engine struct {
	log       *zap.Logger
	reader    *ingest.Reader
	streaming bool
}

// NewEngine returns an engine; streaming re-reads files for the rewrite pass
// instead of holding raw rows in memory.
func NewEngine(log *zap.Logger, reader *ingest.Reader, streaming bool) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if reader == nil {
		reader = ingest.NewReader(log, ingest.Options{})
	}
	return &Engine{log: log.Named("pseudonym"), reader: reader, streaming: streaming}
}

func (e *Engine) Run(ctx context.Context, paths []string) (out Output, err error) {
	ctx, span := tracing.Start(ctx, "pseudonym.run",
		attribute.Int("files", len(paths)),
		attribute.Bool("streaming", e.streaming),
	)
	defer func() { tracing.End(span, err) }()

	if len(paths) == 0 {
		return Output{}, fmt.Errorf("%w: no input files", domain.ErrMissingInput)
	}
	if err := ingest.CheckFiles(paths); err != nil {
		return Output{}, err
	}

	if e.streaming {
		out, err = e.runStreaming(ctx, paths)
	} else {
		out, err = e.runInMemory(ctx, paths)
	}
	if err != nil {
		return Output{}, err
	}

	e.log.Info("pseudonymization complete",
		zap.Int("records", len(out.Records)),
		zap.Int("member_prefixes", len(out.Tables.prefixes)),
		zap.Int("stores", len(out.Tables.stores)),
		zap.Int("associates", len(out.Tables.associates)),
		zap.Int("dropped", out.Stats.Dropped),
	)
	return out, nil
}

func (e *Engine) runStreaming(ctx context.Context, paths []string) (Output, error) {
	collector := NewCollector()
	var stats ingest.Stats
	for _, path := range paths {
		s, err := e.reader.StreamFile(ctx, path, func(rec domain.SalesRecord) error {
			collector.Add(rec)
			return nil
		})
		if err != nil {
			return Output{}, fmt.Errorf("collect: %w", err)
		}
		stats.Add(s)
	}

	tables := collector.Build()
	records := make([]domain.SalesRecord, 0, stats.Accepted)
	for _, path := range paths {
		_, err := e.reader.StreamFile(ctx, path, func(rec domain.SalesRecord) error {
			records = append(records, tables.Rewrite(rec))
			return nil
		})
		if err != nil {
			return Output{}, fmt.Errorf("rewrite: %w", err)
		}
	}
	return Output{Records: records, Tables: tables, Stats: stats}, nil
}

func (e *Engine) runInMemory(ctx context.Context, paths []string) (Output, error) {
	collector := NewCollector()
	var (
		stats ingest.Stats
		raw   []domain.SalesRecord
	)
	for _, path := range paths {
		recs, s, err := e.reader.ReadAll(ctx, path)
		if err != nil {
			return Output{}, fmt.Errorf("collect: %w", err)
		}
		for _, rec := range recs {
			collector.Add(rec)
		}
		raw = append(raw, recs...)
		stats.Add(s)
	}

	tables := collector.Build()
	records := make([]domain.SalesRecord, len(raw))
	for i, rec := range raw {
		records[i] = tables.Rewrite(rec)
	}
	return Output{Records: records, Tables: tables, Stats: stats}, nil
}
