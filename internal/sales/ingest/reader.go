// Package ingest decodes POS CSV exports into sales records.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/smallbiznis/storepulse/internal/sales/domain"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const (
	EncodingUTF8     = "utf-8"
	EncodingShiftJIS = "shift_jis"
)

const ctxCheckEvery = 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures decoding of one export file.
type Options struct {
	Encoding string
	Headers  HeaderMap
}

// Stats counts row-level tolerances applied while decoding.
type Stats struct {
	Rows              int `json:"rows"`
	Accepted          int `json:"accepted"`
	Dropped           int `json:"dropped"`
	QuantityDefaulted int `json:"quantity_defaulted"`
	AmountDefaulted   int `json:"amount_defaulted"`
}

func (s *Stats) Add(other Stats) {
	s.Rows += other.Rows
	s.Accepted += other.Accepted
	s.Dropped += other.Dropped
	s.QuantityDefaulted += other.QuantityDefaulted
	s.AmountDefaulted += other.AmountDefaulted
}

// Reader decodes export files in either streaming or in-memory mode. Both modes
// share the row decoder and yield identical records for identical input.
type Reader struct {
	log  *zap.Logger
	opts Options
}

func NewReader(log *zap.Logger, opts Options) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Headers == nil {
		opts.Headers = DefaultHeaderMap()
	}
	if opts.Encoding == "" {
		opts.Encoding = EncodingUTF8
	}
	return &Reader{log: log.Named("ingest"), opts: opts}
}

// CheckFiles fails with domain.ErrMissingInput if any path is absent.
func CheckFiles(paths []string) error {
	var errs []error
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%w: %s", domain.ErrMissingInput, p))
		case info.IsDir():
			errs = append(errs, fmt.Errorf("%w: %s is a directory", domain.ErrMissingInput, p))
		}
	}
	return errors.Join(errs...)
}

// StreamFile decodes path row by row, calling fn for every record that keeps its identity fields.
func (r *Reader) StreamFile(ctx context.Context, path string, fn func(domain.SalesRecord) error) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %s", domain.ErrMissingInput, path)
	}
	defer f.Close()

	stats, err := r.Stream(ctx, f, fn)
	if err != nil {
		return stats, fmt.Errorf("read %s: %w", path, err)
	}
	r.logStats(path, stats)
	return stats, nil
}

// Stream decodes src row by row in constant memory.
func (r *Reader) Stream(ctx context.Context, src io.Reader, fn func(domain.SalesRecord) error) (Stats, error) {
	decoded, err := r.decode(src)
	if err != nil {
		return Stats{}, err
	}
	cr := NewCSVReader(decoded)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := r.opts.Headers.resolve(header)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		if stats.Rows%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		rec, keep := decodeRow(cols, row, &stats)
		if !keep {
			continue
		}
		if err := fn(rec); err != nil {
			return stats, err
		}
	}
}

// ReadAll loads path into memory and decodes every row at once.
func (r *Reader) ReadAll(ctx context.Context, path string) ([]domain.SalesRecord, Stats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%w: %s", domain.ErrMissingInput, path)
	}
	decoded, err := r.decode(bytes.NewReader(raw))
	if err != nil {
		return nil, Stats{}, err
	}
	rows, err := NewCSVReader(decoded).ReadAll()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, Stats{}, nil
	}
	cols, err := r.opts.Headers.resolve(rows[0])
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}

	var stats Stats
	out := make([]domain.SalesRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if rec, keep := decodeRow(cols, row, &stats); keep {
			out = append(out, rec)
		}
	}
	r.logStats(path, stats)
	return out, stats, nil
}

func (r *Reader) decode(src io.Reader) (io.Reader, error) {
	return Decode(src, r.opts.Encoding)
}

// Decode wraps src with the character decoder for encoding and drops a leading UTF-8 BOM.
func Decode(src io.Reader, encoding string) (io.Reader, error) {
	var in io.Reader = src
	if encoding == EncodingShiftJIS {
		in = transform.NewReader(src, japanese.ShiftJIS.NewDecoder())
	}
	br := bufio.NewReaderSize(in, 64*1024)
	head, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	} else if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("peek input: %w", err)
	}
	return br, nil
}

func (r *Reader) logStats(path string, stats Stats) {
	r.log.Info("file decoded",
		zap.String("path", path),
		zap.Int("rows", stats.Rows),
		zap.Int("accepted", stats.Accepted),
		zap.Int("dropped", stats.Dropped),
		zap.Int("quantity_defaulted", stats.QuantityDefaulted),
		zap.Int("amount_defaulted", stats.AmountDefaulted),
	)
}

// NewCSVReader returns a csv.Reader tolerant of ragged rows and stray quotes.
func NewCSVReader(src io.Reader) *csv.Reader {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func decodeRow(cols columnIndex, row []string, stats *Stats) (domain.SalesRecord, bool) {
	stats.Rows++
	rec := domain.SalesRecord{
		MemberID:       cols.value(row, domain.FieldMemberID),
		PurchaseDate:   NormalizeDate(cols.value(row, domain.FieldPurchaseDate)),
		ProductID:      cols.value(row, domain.FieldProductID),
		ProductName:    cols.value(row, domain.FieldProductName),
		ColorCode:      cols.value(row, domain.FieldColorCode),
		ColorName:      cols.value(row, domain.FieldColorName),
		SizeCode:       cols.value(row, domain.FieldSizeCode),
		SizeName:       cols.value(row, domain.FieldSizeName),
		StoreBrandCode: cols.value(row, domain.FieldStoreBrandCode),
		StoreBrandName: cols.value(row, domain.FieldStoreBrandName),
		BrandCode:      cols.value(row, domain.FieldBrandCode),
		BrandName:      cols.value(row, domain.FieldBrandName),
		StoreCode:      cols.value(row, domain.FieldStoreCode),
		StoreName:      cols.value(row, domain.FieldStoreName),
		AssociateCode:  cols.value(row, domain.FieldAssociateCode),
		AssociateName:  cols.value(row, domain.FieldAssociateName),
		SaleID:         cols.value(row, domain.FieldSaleID),
		Category:       cols.value(row, domain.FieldCategory),
	}
	if !rec.HasIdentity() {
		stats.Dropped++
		return domain.SalesRecord{}, false
	}

	qty, ok := ParseQuantity(cols.value(row, domain.FieldQuantity))
	if !ok {
		stats.QuantityDefaulted++
	}
	rec.Quantity = qty

	amount, ok := ParseAmount(cols.value(row, domain.FieldAmount))
	if !ok {
		stats.AmountDefaulted++
	}
	rec.Amount = amount

	rec.ListPrice, _ = ParseAmount(cols.value(row, domain.FieldListPrice))
	stats.Accepted++
	return rec, true
}
