// Package pipeline runs the brand-parallel analytics precompute and assembles
// the snapshot document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storepulse/internal/analytics"
	"github.com/smallbiznis/storepulse/internal/clock"
	"github.com/smallbiznis/storepulse/internal/config"
	"github.com/smallbiznis/storepulse/internal/demographic"
	"github.com/smallbiznis/storepulse/internal/observability/logger"
	"github.com/smallbiznis/storepulse/internal/observability/metrics"
	"github.com/smallbiznis/storepulse/internal/observability/tracing"
	"github.com/smallbiznis/storepulse/internal/pseudonym"
	"github.com/smallbiznis/storepulse/internal/sales/domain"
	"github.com/smallbiznis/storepulse/internal/snapshot"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultWorkerTimeout = 10 * time.Minute

// Options tunes orchestration. Zero values fall back to defaults.
type Options struct {
	// CustomerLimit caps the customer list; 0 means unlimited.
	CustomerLimit int
	WorkerTimeout time.Duration
	MaxWorkers    int
	Limits        analytics.Limits
	// Catalog lists brands whose display name is matched as a store-name prefix.
	Catalog []analytics.Brand
}

func (o Options) withDefaults() Options {
	if o.WorkerTimeout <= 0 {
		o.WorkerTimeout = defaultWorkerTimeout
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = runtime.GOMAXPROCS(0)
	}
	if o.Catalog == nil {
		for _, b := range pseudonym.NewBrandLookup().Known() {
			o.Catalog = append(o.Catalog, analytics.Brand{Code: b.Code, Name: b.Name})
		}
	}
	return o
}

// OptionsFromConfig maps the pipeline section of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		CustomerLimit: cfg.Pipeline.CustomerLimit,
		WorkerTimeout: cfg.Pipeline.WorkerTimeout,
		MaxWorkers:    cfg.Pipeline.MaxWorkers,
	}
}

// Input is one run's pseudonymized dataset.
type Input struct {
	RunID        snowflake.ID
	Records      []domain.SalesRecord
	Demographics demographic.Lookup
}

// Sink receives the merged snapshot exactly once per successful run.
type Sink interface {
	Write(ctx context.Context, snap *snapshot.GlobalSnapshot) error
}

// ComputeFunc runs the analytics engine for one unit of work.
type ComputeFunc func(ctx context.Context, engine analytics.Engine, records []domain.SalesRecord) (analytics.Result, error)

func computeResult(_ context.Context, engine analytics.Engine, records []domain.SalesRecord) (analytics.Result, error) {
	return engine.Compute(records), nil
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Metrics *metrics.PipelineMetrics `optional:"true"`
	Options Options                  `optional:"true"`
}

type Orchestrator struct {
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	metrics *metrics.PipelineMetrics
	opts    Options
	compute ComputeFunc
}

func NewOrchestrator(p Params) (*Orchestrator, error) {
	if p.Log == nil || p.Clock == nil || p.GenID == nil {
		return nil, ErrInvalidConfig
	}
	if p.Options.CustomerLimit < 0 {
		return nil, fmt.Errorf("%w: negative customer limit", ErrInvalidConfig)
	}
	return &Orchestrator{
		log:     p.Log.Named("pipeline").With(zap.String("component", "orchestrator")),
		clock:   p.Clock,
		genID:   p.GenID,
		metrics: p.Metrics,
		opts:    p.Options.withDefaults(),
		compute: computeResult,
	}, nil
}

type brandUnit struct {
	brand   analytics.Brand
	records []domain.SalesRecord
}

// Run groups the records, computes every brand and the chain-wide view
// concurrently, merges them and hands the snapshot to sink. When any unit
// fails, sink is never called.
func (o *Orchestrator) Run(ctx context.Context, in Input, sink Sink) (snap *snapshot.GlobalSnapshot, err error) {
	runID := in.RunID
	if runID == 0 {
		runID = o.genID.Generate()
	}
	ctx = logger.WithRunID(ctx, runID.String())
	ctx, span := tracing.Start(ctx, "pipeline.orchestrate", attribute.String("run_id", runID.String()))
	defer func() { tracing.End(span, err) }()

	log := logger.WithContext(ctx, o.log)
	sm := newMachine(log)
	defer func() {
		if err != nil {
			_ = sm.advance(StateFailed)
			log.Error("run failed", zap.Stringer("state", sm.state()), zap.Error(err))
		}
	}()

	now := o.clock.Now()
	engine := analytics.Engine{Now: now, Demographics: in.Demographics, Limits: o.opts.Limits}

	stageStart := time.Now()
	qualifying := domain.Qualifying(in.Records)
	units := o.group(qualifying)
	if err := sm.advance(StateGrouped); err != nil {
		return nil, err
	}
	o.metrics.ObserveStage(metrics.StageGroup, time.Since(stageStart))
	log.Info("records grouped", zap.Int("qualifying", len(qualifying)), zap.Int("brands", len(units)))

	stageStart = time.Now()
	if err := sm.advance(StateDispatched); err != nil {
		return nil, err
	}
	brandResults, chain, err := o.dispatch(ctx, engine, units, qualifying)
	o.metrics.ObserveStage(metrics.StageDispatch, time.Since(stageStart))
	if err != nil {
		return nil, err
	}

	stageStart = time.Now()
	snap = o.merge(runID, now, units, brandResults, chain, qualifying)
	if err := sm.advance(StateMerged); err != nil {
		return nil, err
	}
	o.metrics.ObserveStage(metrics.StageMerge, time.Since(stageStart))

	if sink == nil {
		return snap, nil
	}
	stageStart = time.Now()
	if err := sink.Write(ctx, snap); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if err := sm.advance(StateWritten); err != nil {
		return nil, err
	}
	o.metrics.ObserveStage(metrics.StageWrite, time.Since(stageStart))
	log.Info("run complete",
		zap.Int("brands", len(snap.Brands)),
		zap.Int("customers", len(snap.Customers)),
		zap.Float64("revenue", snap.KPIs.TotalRevenue),
	)
	return snap, nil
}

// group builds one private record copy per brand with qualifying rows, from a
// single scan. Units are ordered by brand code.
func (o *Orchestrator) group(qualifying []domain.SalesRecord) []brandUnit {
	names := map[string]string{}
	for _, b := range o.opts.Catalog {
		names[b.Code] = b.Name
	}
	for _, rec := range qualifying {
		if rec.BrandCode == "" {
			continue
		}
		if names[rec.BrandCode] == "" {
			names[rec.BrandCode] = rec.BrandName
		}
	}

	brands := make([]analytics.Brand, 0, len(names))
	for code, name := range names {
		brands = append(brands, analytics.Brand{Code: code, Name: name})
	}
	sort.Slice(brands, func(i, j int) bool { return brands[i].Code < brands[j].Code })

	groups := analytics.GroupRecords(qualifying, brands)
	units := make([]brandUnit, 0, len(brands))
	for _, b := range brands {
		idx := groups.Partition(b.Code)
		if len(idx) == 0 {
			continue
		}
		records := make([]domain.SalesRecord, len(idx))
		for i, j := range idx {
			records[i] = qualifying[j]
		}
		units = append(units, brandUnit{brand: b, records: records})
	}
	return units
}

func (o *Orchestrator) dispatch(ctx context.Context, engine analytics.Engine, units []brandUnit, qualifying []domain.SalesRecord) (map[string]analytics.Result, analytics.Result, error) {
	var (
		mu      sync.Mutex
		results = make(map[string]analytics.Result, len(units))
		chain   analytics.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.MaxWorkers)

	g.Go(func() error {
		res, err := o.runUnit(gctx, engine, ChainScope, qualifying)
		if err != nil {
			o.metrics.IncBrandError(ChainScope, err)
			return &BrandError{Brand: ChainScope, Err: err}
		}
		chain = res
		return nil
	})
	for _, u := range units {
		o.metrics.SetBrandRecords(u.brand.Code, len(u.records))
		g.Go(func() error {
			res, err := o.runUnit(gctx, engine, u.brand.Code, u.records)
			if err != nil {
				o.metrics.IncBrandError(u.brand.Code, err)
				return &BrandError{Brand: u.brand.Code, Err: err}
			}
			mu.Lock()
			results[u.brand.Code] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, analytics.Result{}, err
	}
	return results, chain, nil
}

type unitOutcome struct {
	result analytics.Result
	err    error
}

// runUnit computes one scope under the worker timeout. A panic becomes an
// error; a unit that outlives its deadline fails with ErrWorkerTimeout.
func (o *Orchestrator) runUnit(ctx context.Context, engine analytics.Engine, scope string, records []domain.SalesRecord) (res analytics.Result, err error) {
	ctx = logger.WithBrand(ctx, scope)
	ctx, span := tracing.Start(ctx, "pipeline.unit",
		attribute.String("brand", scope),
		attribute.Int("records", len(records)),
	)
	defer func() { tracing.End(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, o.opts.WorkerTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan unitOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- unitOutcome{err: fmt.Errorf("%w: %v", metrics.ErrPanic, r)}
			}
		}()
		result, err := o.compute(ctx, engine, records)
		done <- unitOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return analytics.Result{}, out.err
		}
		o.metrics.ObserveBrandRun(scope, time.Since(start))
		logger.WithContext(ctx, o.log).Debug("unit computed",
			zap.Int("records", len(records)),
			zap.Duration("elapsed", time.Since(start)),
		)
		return out.result, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return analytics.Result{}, fmt.Errorf("%w after %s: %w", ErrWorkerTimeout, o.opts.WorkerTimeout, ctx.Err())
		}
		return analytics.Result{}, ctx.Err()
	}
}

func (o *Orchestrator) merge(runID snowflake.ID, now time.Time, units []brandUnit, results map[string]analytics.Result, chain analytics.Result, qualifying []domain.SalesRecord) *snapshot.GlobalSnapshot {
	brands := make(map[string]snapshot.BrandSnapshot, len(units))
	for _, u := range units {
		brands[u.brand.Code] = snapshot.BrandSnapshot{
			Code:   u.brand.Code,
			Name:   u.brand.Name,
			Result: results[u.brand.Code],
		}
	}

	listed := CapCustomers(chain.Customers, o.opts.CustomerLimit)
	rows := make([]snapshot.CustomerRow, len(listed))
	members := make(map[string]struct{}, len(listed))
	for i, c := range listed {
		rows[i] = snapshot.CustomerRow{CustomerAggregate: c, AverageOrderValue: c.AverageOrderValue()}
		members[c.MemberID] = struct{}{}
	}

	return &snapshot.GlobalSnapshot{
		Meta: snapshot.Meta{
			RunID:         runID.String(),
			GeneratedAt:   now.UTC(),
			RecordCount:   len(qualifying),
			CustomerCount: len(chain.Customers),
			CustomerLimit: o.opts.CustomerLimit,
			BrandCount:    len(brands),
		},
		Result:          chain,
		Brands:          brands,
		Customers:       rows,
		PurchaseHistory: PurchaseHistory(qualifying, members),
	}
}

// CapCustomers keeps the limit highest-revenue customers and re-derives
// S/A/B/C within that subset. limit 0 keeps everyone.
func CapCustomers(customers []analytics.CustomerAggregate, limit int) []analytics.CustomerAggregate {
	ranked := analytics.AssignRanks(customers)
	if limit > 0 && len(ranked) > limit {
		ranked = analytics.AssignRanks(ranked[:limit])
	}
	return ranked
}

// PurchaseHistory lists qualifying line items of the given members, ordered
// by member then date.
func PurchaseHistory(records []domain.SalesRecord, members map[string]struct{}) []snapshot.PurchaseRow {
	out := make([]snapshot.PurchaseRow, 0)
	for _, rec := range records {
		if _, ok := members[rec.MemberID]; !ok || !rec.Qualifies() {
			continue
		}
		out = append(out, snapshot.PurchaseRow{
			MemberID:     rec.MemberID,
			PurchaseDate: rec.PurchaseDate,
			StoreName:    rec.StoreName,
			BrandCode:    rec.BrandCode,
			ProductID:    rec.ProductID,
			Category:     rec.Category,
			ColorName:    rec.ColorName,
			SizeName:     rec.SizeName,
			Quantity:     rec.Quantity,
			Amount:       rec.Amount,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MemberID != out[j].MemberID {
			return out[i].MemberID < out[j].MemberID
		}
		return out[i].PurchaseDate < out[j].PurchaseDate
	})
	return out
}

// SnapshotSink writes snapshots to a file with the atomic writer.
type SnapshotSink struct {
	Writer *snapshot.Writer
	Path   string
	Pretty bool
}

func (s SnapshotSink) Write(_ context.Context, snap *snapshot.GlobalSnapshot) error {
	return s.Writer.Write(s.Path, snap, s.Pretty)
}
