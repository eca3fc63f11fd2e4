package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/storepulse/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrPathRequired = errors.New("db: path is required")

const memoryDSN = "file::memory:?cache=shared"

// Dialect returns the SQLite dialector for cfg, creating the parent directory of file databases.
func Dialect(cfg Config) (gorm.Dialector, error) {
	path := strings.TrimSpace(cfg.Path)
	switch path {
	case "":
		return nil, ErrPathRequired
	case ":memory:":
		return sqlite.Open(memoryDSN), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return sqlite.Open(path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), nil
}

// Open connects to the database described by cfg, logging through log.
func Open(cfg Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{}
	if log != nil {
		lcfg := logger.DefaultGormLoggerConfig()
		if cfg.SlowThreshold > 0 {
			lcfg.SlowThreshold = cfg.SlowThreshold
		}
		gormCfg.Logger = logger.NewGormLogger(log, lcfg)
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}
	if err := conn.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(filepath.Base(cfg.Path)),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return nil, fmt.Errorf("register tracing plugin: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	maxOpen := cfg.MaxOpenConn
	if maxOpen <= 0 {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return conn, nil
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
