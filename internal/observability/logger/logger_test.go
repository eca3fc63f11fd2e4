package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsRunAndBrand(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := WithBrand(WithRunID(context.Background(), "42"), "BA")

	WithContext(ctx, zap.New(core)).Info("unit computed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "42", fields["run_id"])
	assert.Equal(t, "BA", fields["brand"])
}

func TestWithContextIgnoresEmptyValues(t *testing.T) {
	ctx := WithBrand(WithRunID(context.Background(), ""), "")
	assert.Empty(t, RunIDFromContext(ctx))
	assert.Empty(t, BrandFromContext(ctx))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: 200 * time.Millisecond})
	query := func() (string, int64) { return "INSERT INTO pipeline_runs (id) VALUES (?)", 1 }

	l.Trace(context.Background(), time.Now(), query, nil)
	assert.Zero(t, logs.Len())

	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	l.Trace(context.Background(), time.Now(), query, errors.New("UNIQUE constraint failed"))
	l.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "INSERT", entries[0].ContextMap()["operation"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)

	sql, params := l.ParamsFilter(context.Background(), "SELECT 1", "raw name")
	assert.Equal(t, "SELECT 1", sql)
	assert.Nil(t, params)
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "DELETE", operationFromSQL("  delete from pseudonym_mappings"))
	assert.Equal(t, "UNKNOWN", operationFromSQL("PRAGMA journal_mode"))
}
