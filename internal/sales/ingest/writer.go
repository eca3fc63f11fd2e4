package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/smallbiznis/storepulse/internal/sales/domain"
)

// Writer emits records with canonical snake_case headers.
type Writer struct {
	w      *csv.Writer
	header bool
}

func NewWriter(dst io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(dst)}
}

func (w *Writer) Write(rec domain.SalesRecord) error {
	if !w.header {
		header := make([]string, len(domain.Fields))
		for i, f := range domain.Fields {
			header[i] = f.Name()
		}
		if err := w.w.Write(header); err != nil {
			return err
		}
		w.header = true
	}
	return w.w.Write(recordRow(rec))
}

// Flush writes any buffered rows and reports the first error seen.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// WriteFile writes records to path through a temp file and rename.
func WriteFile(path string, records []domain.SalesRecord) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".records-*.csv")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := NewWriter(tmp)
	for _, rec := range records {
		if err = w.Write(rec); err != nil {
			return err
		}
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func recordRow(rec domain.SalesRecord) []string {
	return []string{
		rec.MemberID, rec.PurchaseDate, rec.ProductID, rec.ProductName,
		rec.ColorCode, rec.ColorName, rec.SizeCode, rec.SizeName,
		rec.StoreBrandCode, rec.StoreBrandName, rec.BrandCode, rec.BrandName,
		strconv.Itoa(rec.Quantity),
		strconv.FormatFloat(rec.Amount, 'f', -1, 64),
		rec.StoreCode, rec.StoreName,
		rec.AssociateCode, rec.AssociateName, rec.SaleID,
		strconv.FormatFloat(rec.ListPrice, 'f', -1, 64),
		rec.Category,
	}
}
