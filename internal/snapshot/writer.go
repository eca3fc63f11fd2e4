package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

var ErrNilSnapshot = errors.New("nil_snapshot")

// Writer serializes snapshots. A reader of path sees either the previous
// document or the complete new one.
type Writer struct {
	log *zap.Logger
}

func NewWriter(log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{log: log.Named("snapshot")}
}

func Marshal(snap *GlobalSnapshot, pretty bool) ([]byte, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}
	if pretty {
		return json.MarshalIndent(snap, "", "  ")
	}
	return json.Marshal(snap)
}

// Write marshals snap in memory, then replaces path via a synced temp file in
// the same directory.
func (w *Writer) Write(path string, snap *GlobalSnapshot, pretty bool) (err error) {
	body, err := Marshal(snap, pretty)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(body); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod snapshot: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	w.log.Info("snapshot written",
		zap.String("path", path),
		zap.Int("bytes", len(body)),
		zap.Bool("pretty", pretty),
	)
	return nil
}
