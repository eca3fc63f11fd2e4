package runledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smallbiznis/storepulse/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNoRuns       = errors.New("no_pipeline_runs")
	ErrDuplicateRun = errors.New("duplicate_pipeline_run")
)

type Ledger struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(conn *gorm.DB, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{db: conn, log: log.Named("runledger")}
}

// Open connects to the SQLite ledger at path and migrates the schema.
func Open(ctx context.Context, path string, log *zap.Logger) (*Ledger, error) {
	conn, err := db.Open(db.Config{Path: path}, log)
	if err != nil {
		return nil, err
	}
	l := New(conn, log)
	if err := l.Migrate(ctx); err != nil {
		_ = db.Close(conn)
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Migrate(ctx context.Context) error {
	return l.db.WithContext(ctx).AutoMigrate(&Run{})
}

func (l *Ledger) Close() error {
	return db.Close(l.db)
}

// Record inserts run. Run ids are unique; recording the same id twice fails.
func (l *Ledger) Record(ctx context.Context, run Run) error {
	if err := l.db.WithContext(ctx).Create(&run).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateRun, run.ID)
		}
		return err
	}
	l.log.Info("run recorded",
		zap.String("run_id", run.ID.String()),
		zap.String("status", run.Status),
		zap.Duration("duration", run.Duration()),
	)
	return nil
}

// Latest returns the most recently started run.
func (l *Ledger) Latest(ctx context.Context) (*Run, error) {
	var run Run
	err := l.db.WithContext(ctx).Order("started_at DESC").Order("id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LastSucceeded returns the most recent run that wrote a snapshot.
func (l *Ledger) LastSucceeded(ctx context.Context) (*Run, error) {
	var run Run
	err := l.db.WithContext(ctx).
		Where("status = ?", StatusSucceeded).
		Order("started_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// EncodeSummary marshals v for Run.Summary.
func EncodeSummary(v any) (datatypes.JSON, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(body), nil
}
