package analytics

import (
	"sort"

	"github.com/smallbiznis/storepulse/internal/pseudonym"
	"github.com/smallbiznis/storepulse/internal/sales/domain"
)

const unknownKey = "unknown"

// dimension describes one entity-performance view.
type dimension struct {
	key       func(domain.SalesRecord) (key, name string)
	breakdown func(domain.SalesRecord) string
}

func codeOrName(code, name string) (string, string) {
	switch {
	case code == "" && name == "":
		return unknownKey, unknownKey
	case code == "":
		return name, name
	case name == "":
		return code, code
	default:
		return code, name
	}
}

func productKey(rec domain.SalesRecord) (string, string) {
	return codeOrName(rec.ProductID, rec.ProductName)
}

func storeOf(rec domain.SalesRecord) string {
	if rec.StoreName == "" {
		return unknownKey
	}
	return rec.StoreName
}

func productOf(rec domain.SalesRecord) string {
	key, _ := productKey(rec)
	return key
}

var productDimension = dimension{key: productKey, breakdown: storeOf}

var (
	categoryDimension = dimension{
		key: func(r domain.SalesRecord) (string, string) {
			return codeOrName("", r.Category)
		},
		breakdown: storeOf,
	}
	collectionDimension = dimension{
		key: func(r domain.SalesRecord) (string, string) {
			return codeOrName(r.BrandCode, r.BrandName)
		},
		breakdown: storeOf,
	}
	colorDimension = dimension{
		key: func(r domain.SalesRecord) (string, string) {
			return codeOrName(r.ColorCode, r.ColorName)
		},
		breakdown: storeOf,
	}
	sizeDimension = dimension{
		key: func(r domain.SalesRecord) (string, string) {
			return codeOrName(r.SizeCode, r.SizeName)
		},
		breakdown: storeOf,
	}
	storeDimension = dimension{
		key: func(r domain.SalesRecord) (string, string) {
			s := storeOf(r)
			return s, s
		},
		breakdown: productOf,
	}
)

type entityAcc struct {
	key, name string
	revenue   float64
	quantity  int
	txKeys    map[string]struct{}
	customers map[string]struct{}
	breakdown map[string]*Breakdown
}

// entityTable accumulates one dimension over a single pass of records.
type entityTable struct {
	dim      dimension
	entities map[string]*entityAcc
}

func newEntityTable(dim dimension) *entityTable {
	return &entityTable{dim: dim, entities: map[string]*entityAcc{}}
}

func (t *entityTable) add(rec domain.SalesRecord, txKey string) {
	key, name := t.dim.key(rec)
	acc, ok := t.entities[key]
	if !ok {
		acc = &entityAcc{
			key:       key,
			name:      name,
			txKeys:    map[string]struct{}{},
			customers: map[string]struct{}{},
			breakdown: map[string]*Breakdown{},
		}
		t.entities[key] = acc
	}
	acc.revenue += rec.Amount
	acc.quantity += rec.Quantity
	acc.txKeys[txKey] = struct{}{}
	acc.customers[rec.MemberID] = struct{}{}

	part := t.dim.breakdown(rec)
	b, ok := acc.breakdown[part]
	if !ok {
		b = &Breakdown{Name: part}
		acc.breakdown[part] = b
	}
	b.Revenue += rec.Amount
	b.Quantity += rec.Quantity
}

// ranked returns entities by revenue descending, ties by key.
func (t *entityTable) ranked() []*entityAcc {
	out := make([]*entityAcc, 0, len(t.entities))
	for _, acc := range t.entities {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].revenue != out[j].revenue {
			return out[i].revenue > out[j].revenue
		}
		return out[i].key < out[j].key
	})
	return out
}

// top keeps the limit highest-revenue entities; the rest are dropped, not merged.
func (t *entityTable) top(limit int, totalRevenue float64) []EntityPerformance {
	ranked := t.ranked()
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]EntityPerformance, 0, len(ranked))
	for _, acc := range ranked {
		out = append(out, EntityPerformance{
			Key:          acc.key,
			Name:         acc.name,
			Revenue:      acc.revenue,
			Quantity:     acc.quantity,
			Transactions: len(acc.txKeys),
			Customers:    len(acc.customers),
			Share:        percentOf(acc.revenue, totalRevenue),
			Breakdown:    acc.breakdownList(),
		})
	}
	return out
}

func (acc *entityAcc) breakdownList() []Breakdown {
	out := make([]Breakdown, 0, len(acc.breakdown))
	for _, b := range acc.breakdown {
		item := *b
		item.Share = percentOf(b.Revenue, acc.revenue)
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// channels reads the store table as channel segments, top limit by revenue.
func (t *entityTable) channels(limit int, totalRevenue float64) []ChannelSegment {
	ranked := t.ranked()
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]ChannelSegment, 0, len(ranked))
	for _, acc := range ranked {
		out = append(out, ChannelSegment{
			Store:        acc.key,
			Online:       pseudonym.IsOnlineStore(acc.key),
			Revenue:      acc.revenue,
			Transactions: len(acc.txKeys),
			Customers:    len(acc.customers),
			Share:        percentOf(acc.revenue, totalRevenue),
		})
	}
	return out
}
