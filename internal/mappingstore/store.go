package mappingstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storepulse/internal/pseudonym"
	"github.com/smallbiznis/storepulse/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const batchSize = 500

var ErrRunNotFound = errors.New("mapping_run_not_found")

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(conn *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: conn, log: log.Named("mappingstore")}
}

// Open connects to the SQLite file at path and migrates the schema.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	conn, err := db.Open(db.Config{Path: path}, log)
	if err != nil {
		return nil, err
	}
	s := New(conn, log)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close(conn)
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Mapping{})
}

func (s *Store) Close() error {
	return db.Close(s.db)
}

// Save replaces every mapping stored for runID with the contents of tables.
func (s *Store) Save(ctx context.Context, runID snowflake.ID, tables *pseudonym.Tables, at time.Time) error {
	rows := rowsFor(runID, tables, at.UTC())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM pseudonym_mappings WHERE run_id = ?`, runID).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("save mappings for run %s: %w", runID, err)
	}
	s.log.Info("mappings saved", zap.String("run_id", runID.String()), zap.Int("rows", len(rows)))
	return nil
}

// List returns the mappings of one kind for runID ordered by raw value.
func (s *Store) List(ctx context.Context, runID snowflake.ID, kind string) ([]Mapping, error) {
	var rows []Mapping
	err := s.db.WithContext(ctx).Raw(
		`SELECT run_id, kind, raw, pseudonym, online, created_at
		 FROM pseudonym_mappings
		 WHERE run_id = ? AND kind = ?
		 ORDER BY raw ASC`,
		runID,
		kind,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PrefixMap rebuilds the member-id prefix map persisted for runID.
func (s *Store) PrefixMap(ctx context.Context, runID snowflake.ID) (pseudonym.PrefixMap, error) {
	rows, err := s.List(ctx, runID, KindMemberPrefix)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	out := make(pseudonym.PrefixMap, len(rows))
	for _, r := range rows {
		out[r.Raw] = r.Pseudonym
	}
	return out, nil
}

// LatestRunID returns the most recent run with stored mappings.
func (s *Store) LatestRunID(ctx context.Context) (snowflake.ID, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT run_id FROM pseudonym_mappings ORDER BY created_at DESC, run_id DESC LIMIT 1`,
	).Scan(&ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrRunNotFound
	}
	return snowflake.ID(ids[0]), nil
}

func rowsFor(runID snowflake.ID, tables *pseudonym.Tables, at time.Time) []Mapping {
	if tables == nil {
		return nil
	}
	prefixes := tables.PrefixMap()
	raws := make([]string, 0, len(prefixes))
	for raw := range prefixes {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	stores := tables.StoreMappings()
	associates := tables.AssociateMappings()
	rows := make([]Mapping, 0, len(raws)+len(stores)+len(associates))
	for _, raw := range raws {
		rows = append(rows, Mapping{RunID: runID, Kind: KindMemberPrefix, Raw: raw, Pseudonym: prefixes[raw], CreatedAt: at})
	}
	for _, m := range stores {
		rows = append(rows, Mapping{RunID: runID, Kind: KindStore, Raw: m.Raw, Pseudonym: m.Pseudonym, Online: m.Online, CreatedAt: at})
	}
	for _, m := range associates {
		rows = append(rows, Mapping{RunID: runID, Kind: KindAssociate, Raw: m.Raw, Pseudonym: m.Pseudonym, CreatedAt: at})
	}
	return rows
}
