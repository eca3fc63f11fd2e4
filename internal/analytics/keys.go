package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/storepulse/internal/sales/domain"
	"github.com/smallbiznis/storepulse/internal/sales/ingest"
)

// keySep cannot occur in CSV-decoded text fields.
const keySep = "\x1f"

// TransactionKey identifies a purchase occasion: line items sharing date,
// member and store count as one transaction.
func TransactionKey(rec domain.SalesRecord) string {
	return rec.PurchaseDate + keySep + rec.MemberID + keySep + rec.StoreName
}

type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// DateBucket formats date for g. Weeks count from January 1st:
// week = floor((dayOfYear-1)/7)+1, unpadded ("2024-W1"). This is not
// ISO-8601 week numbering.
func DateBucket(date string, g Granularity) (string, error) {
	t, err := ingest.ParseDate(date)
	if err != nil {
		return "", fmt.Errorf("bucket %q: %w", date, err)
	}
	return bucketOf(t, g), nil
}

func bucketOf(t time.Time, g Granularity) string {
	switch g {
	case Monthly:
		return t.Format("2006-01")
	case Weekly:
		week := (t.YearDay()-1)/7 + 1
		return fmt.Sprintf("%04d-W%d", t.Year(), week)
	default:
		return t.Format("2006-01-02")
	}
}

// Brand identifies a brand partition by code and display name.
type Brand struct {
	Code string
	Name string
}

// Groupings holds record indices per brand, built in one pass.
type Groupings struct {
	ByBrand       map[string][]int
	ByStorePrefix map[string][]int
}

// GroupRecords partitions qualifying records by brand code and, for each brand
// with a display name, by store names that begin with that name.
func GroupRecords(records []domain.SalesRecord, brands []Brand) Groupings {
	g := Groupings{
		ByBrand:       map[string][]int{},
		ByStorePrefix: map[string][]int{},
	}
	for i, rec := range records {
		if !rec.Qualifies() {
			continue
		}
		if rec.BrandCode != "" {
			g.ByBrand[rec.BrandCode] = append(g.ByBrand[rec.BrandCode], i)
		}
		for _, b := range brands {
			if b.Name != "" && strings.HasPrefix(rec.StoreName, b.Name) {
				g.ByStorePrefix[b.Code] = append(g.ByStorePrefix[b.Code], i)
			}
		}
	}
	return g
}

// Partition returns the union of brand and store-prefix indices for code,
// deduplicated and in original record order.
func (g Groupings) Partition(code string) []int {
	byBrand, byPrefix := g.ByBrand[code], g.ByStorePrefix[code]
	out := make([]int, 0, len(byBrand)+len(byPrefix))
	i, j := 0, 0
	for i < len(byBrand) || j < len(byPrefix) {
		switch {
		case j >= len(byPrefix) || (i < len(byBrand) && byBrand[i] < byPrefix[j]):
			out = append(out, byBrand[i])
			i++
		case i >= len(byBrand) || byPrefix[j] < byBrand[i]:
			out = append(out, byPrefix[j])
			j++
		default:
			out = append(out, byBrand[i])
			i++
			j++
		}
	}
	return out
}
