// Package demographic joins per-member age and gender data onto pseudonymized ids.
package demographic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/storepulse/internal/pseudonym"
	"github.com/smallbiznis/storepulse/internal/sales/ingest"
	"go.uber.org/zap"
	"golang.org/x/text/width"
)

const (
	AgeBandUnknown = "unknown"
	GenderFemale   = "female"
	GenderMale     = "male"
	GenderOther    = "other"
	GenderUnknown  = "unknown"
)

// AgeBands lists every band in display order.
var AgeBands = []string{"10s", "20s", "30s", "40s", "50s", "60+", AgeBandUnknown}

// Genders lists every normalized gender in display order.
var Genders = []string{GenderFemale, GenderMale, GenderOther, GenderUnknown}

var ErrMissingColumns = errors.New("demographic_missing_columns")

type Profile struct {
	AgeBand string `json:"age_band"`
	Gender  string `json:"gender"`
}

// Lookup maps pseudonymized member ids to profiles. It is read-only once loaded.
type Lookup map[string]Profile

func (l Lookup) Get(memberID string) (Profile, bool) {
	if l == nil {
		return Profile{}, false
	}
	p, ok := l[memberID]
	return p, ok
}

type Loader struct {
	log      *zap.Logger
	encoding string
}

func NewLoader(log *zap.Logger, encoding string) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{log: log.Named("demographic"), encoding: encoding}
}

// LoadFile reads the prefix map first and fails with pseudonym.ErrMissingPrefixMap
// when it has not been written.
func (l *Loader) LoadFile(ctx context.Context, path, prefixMapPath string, now time.Time) (Lookup, error) {
	prefixes, err := pseudonym.LoadPrefixMap(prefixMapPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open demographics: %w", err)
	}
	defer f.Close()

	lookup, err := l.Load(ctx, f, prefixes, now)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return lookup, nil
}

// Load decodes src, rewriting member ids through prefixes.
func (l *Loader) Load(ctx context.Context, src io.Reader, prefixes pseudonym.PrefixMap, now time.Time) (Lookup, error) {
	decoded, err := ingest.Decode(src, l.encoding)
	if err != nil {
		return nil, err
	}
	cr := ingest.NewCSVReader(decoded)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Lookup{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnsFor(header)
	if cols.member < 0 {
		return nil, fmt.Errorf("%w: member id", ErrMissingColumns)
	}

	lookup := Lookup{}
	var skipped int
	for n := 0; ; n++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", n+1, err)
		}
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := cell(row, cols.member)
		if raw == "" {
			skipped++
			continue
		}
		age := -1
		if v := cell(row, cols.age); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				age = parsed
			}
		}
		if age < 0 {
			if birth, err := ingest.ParseDate(cell(row, cols.birth)); err == nil {
				age = AgeAt(birth, now)
			}
		}
		lookup[prefixes.Apply(raw)] = Profile{
			AgeBand: AgeBand(age),
			Gender:  NormalizeGender(cell(row, cols.gender)),
		}
	}

	l.log.Info("demographics loaded", zap.Int("members", len(lookup)), zap.Int("skipped", skipped))
	return lookup, nil
}

// AgeAt returns the completed years between birth and now.
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

func AgeBand(age int) string {
	switch {
	case age < 10 || age > 120:
		return AgeBandUnknown
	case age >= 60:
		return "60+"
	default:
		return strconv.Itoa(age/10*10) + "s"
	}
}

func NormalizeGender(raw string) string {
	switch strings.ToLower(width.Fold.String(strings.TrimSpace(raw))) {
	case "女性", "女", "f", "female", "woman", "2":
		return GenderFemale
	case "男性", "男", "m", "male", "man", "1":
		return GenderMale
	case "その他", "other", "x", "3", "9":
		return GenderOther
	default:
		return GenderUnknown
	}
}

type columns struct {
	member, age, birth, gender int
}

func columnsFor(header []string) columns {
	cols := columns{member: -1, age: -1, birth: -1, gender: -1}
	for i, h := range header {
		switch strings.ToLower(width.Fold.String(strings.TrimSpace(h))) {
		case "会員番号", "会員id", "member_id":
			setOnce(&cols.member, i)
		case "年齢", "age":
			setOnce(&cols.age, i)
		case "生年月日", "誕生日", "birth_date", "birthday":
			setOnce(&cols.birth, i)
		case "性別", "gender", "sex":
			setOnce(&cols.gender, i)
		}
	}
	return cols
}

func setOnce(dst *int, v int) {
	if *dst < 0 {
		*dst = v
	}
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
