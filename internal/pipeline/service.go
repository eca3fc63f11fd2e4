package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storepulse/internal/clock"
	"github.com/smallbiznis/storepulse/internal/config"
	"github.com/smallbiznis/storepulse/internal/demographic"
	"github.com/smallbiznis/storepulse/internal/mappingstore"
	"github.com/smallbiznis/storepulse/internal/observability/logger"
	"github.com/smallbiznis/storepulse/internal/observability/metrics"
	"github.com/smallbiznis/storepulse/internal/pseudonym"
	"github.com/smallbiznis/storepulse/internal/runledger"
	"github.com/smallbiznis/storepulse/internal/sales/ingest"
	"github.com/smallbiznis/storepulse/internal/snapshot"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParams struct {
	fx.In

	Config       config.Config
	Log          *zap.Logger
	Clock        clock.Clock
	GenID        *snowflake.Node
	Orchestrator *Orchestrator
	Metrics      *metrics.PipelineMetrics `optional:"true"`
}

// Service runs one end-to-end batch: pseudonymize the exports, persist the
// mapping artifacts, join demographics, compute and write the snapshot.
type Service struct {
	cfg          config.Config
	log          *zap.Logger
	clock        clock.Clock
	genID        *snowflake.Node
	orchestrator *Orchestrator
	metrics      *metrics.PipelineMetrics
}

func NewService(p ServiceParams) *Service {
	return &Service{
		cfg:          p.Config,
		log:          p.Log.Named("pipeline"),
		clock:        p.Clock,
		genID:        p.GenID,
		orchestrator: p.Orchestrator,
		metrics:      p.Metrics,
	}
}

// Report summarizes an executed run.
type Report struct {
	RunID     snowflake.ID
	Ingest    ingest.Stats
	Records   int
	Brands    int
	Customers int
	Snapshot  *snapshot.GlobalSnapshot
}

func (s *Service) Execute(ctx context.Context) (report Report, err error) {
	runID := s.genID.Generate()
	startedAt := s.clock.Now()
	ctx = logger.WithRunID(ctx, runID.String())
	log := logger.WithContext(ctx, s.log)
	log.Info("run started", zap.Strings("inputs", s.cfg.InputPaths()))

	report.RunID = runID
	defer func() {
		status := runledger.StatusSucceeded
		if err != nil {
			status = runledger.StatusFailed
			log.Error("run failed", zap.String("error_type", metrics.ClassifyError(err)), zap.Error(err))
		}
		s.metrics.IncRun(status)
		if err == nil {
			s.metrics.MarkSuccess(s.clock.Now())
		}
		if ledgerErr := s.recordRun(ctx, report, startedAt, err); ledgerErr != nil {
			log.Warn("record run failed", zap.Error(ledgerErr))
		}
		if path := s.cfg.Output.MetricsPath; path != "" {
			if mErr := s.metrics.WriteTextfile(path); mErr != nil {
				log.Warn("write metrics textfile failed", zap.Error(mErr))
			}
		}
	}()

	stageStart := time.Now()
	reader := ingest.NewReader(s.log, ingest.Options{Encoding: s.cfg.Input.Encoding})
	out, err := pseudonym.NewEngine(s.log, reader, s.cfg.Input.Streaming).Run(ctx, s.cfg.InputPaths())
	if err != nil {
		return report, err
	}
	s.metrics.ObserveStage(metrics.StagePseudonym, time.Since(stageStart))
	s.observeIngest(out.Stats)
	report.Ingest = out.Stats

	if err := s.persistMappings(ctx, runID, out); err != nil {
		return report, err
	}

	lookup, err := s.loadDemographics(ctx)
	if err != nil {
		return report, err
	}

	sink := SnapshotSink{
		Writer: snapshot.NewWriter(s.log),
		Path:   s.cfg.Output.SnapshotPath,
		Pretty: s.cfg.Output.Pretty,
	}
	snap, err := s.orchestrator.Run(ctx, Input{RunID: runID, Records: out.Records, Demographics: lookup}, sink)
	if err != nil {
		return report, err
	}

	report.Snapshot = snap
	report.Records = snap.Meta.RecordCount
	report.Brands = snap.Meta.BrandCount
	report.Customers = snap.Meta.CustomerCount
	log.Info("run finished",
		zap.Int("records", report.Records),
		zap.Int("brands", report.Brands),
		zap.Int("customers", report.Customers),
		zap.String("snapshot", s.cfg.Output.SnapshotPath),
	)
	return report, nil
}

func (s *Service) observeIngest(stats ingest.Stats) {
	s.metrics.AddRows(metrics.RowOutcomeAccepted, stats.Accepted)
	s.metrics.AddRows(metrics.RowOutcomeDroppedIdentity, stats.Dropped)
	s.metrics.AddRows(metrics.RowOutcomeQuantityDefaulted, stats.QuantityDefaulted)
	s.metrics.AddRows(metrics.RowOutcomeAmountDefaulted, stats.AmountDefaulted)
}

// persistMappings writes the prefix map, the optional mapping database and
// the optional anonymized export.
func (s *Service) persistMappings(ctx context.Context, runID snowflake.ID, out pseudonym.Output) error {
	if err := pseudonym.SavePrefixMap(s.cfg.Output.PrefixMapPath, out.Tables.PrefixMap()); err != nil {
		return fmt.Errorf("save prefix map: %w", err)
	}

	if path := s.cfg.Output.MappingDBPath; path != "" {
		store, err := mappingstore.Open(ctx, path, s.log)
		if err != nil {
			return fmt.Errorf("open mapping store: %w", err)
		}
		saveErr := store.Save(ctx, runID, out.Tables, s.clock.Now())
		if err := errors.Join(saveErr, store.Close()); err != nil {
			return fmt.Errorf("save mappings: %w", err)
		}
	}

	if path := s.cfg.Output.AnonymizedCSVPath; path != "" {
		if err := ingest.WriteFile(path, out.Records); err != nil {
			return fmt.Errorf("write anonymized export: %w", err)
		}
	}
	return nil
}

func (s *Service) loadDemographics(ctx context.Context) (demographic.Lookup, error) {
	path := s.cfg.Demographics.Path
	if path == "" {
		return nil, nil
	}
	stageStart := time.Now()
	lookup, err := demographic.NewLoader(s.log, s.cfg.Input.Encoding).
		LoadFile(ctx, path, s.cfg.Output.PrefixMapPath, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("load demographics: %w", err)
	}
	s.metrics.ObserveStage(metrics.StageDemographic, time.Since(stageStart))
	return lookup, nil
}

func (s *Service) recordRun(ctx context.Context, report Report, startedAt time.Time, runErr error) error {
	path := s.cfg.Output.LedgerDBPath
	if path == "" {
		return nil
	}
	ledger, err := runledger.Open(ctx, path, s.log)
	if err != nil {
		return err
	}
	defer ledger.Close()

	run := runledger.Run{
		ID:         report.RunID,
		Status:     runledger.StatusSucceeded,
		StartedAt:  startedAt,
		FinishedAt: s.clock.Now(),
		Records:    report.Records,
		Brands:     report.Brands,
		Customers:  report.Customers,
	}
	if runErr != nil {
		run.Status = runledger.StatusFailed
		run.Error = runErr.Error()
	} else {
		run.SnapshotPath = s.cfg.Output.SnapshotPath
	}
	summary, err := runledger.EncodeSummary(report.Ingest)
	if err != nil {
		return err
	}
	run.Summary = summary
	return ledger.Record(ctx, run)
}
