// Package analytics turns qualifying sales records into KPIs, trends, entity
// breakdowns, customer segments, RFM scores and internal ranks.
package analytics

import (
	"sort"
	"time"

	"github.com/smallbiznis/storepulse/internal/demographic"
	"github.com/smallbiznis/storepulse/internal/sales/domain"
	"github.com/smallbiznis/storepulse/internal/sales/ingest"
)

// Limits caps the length of each top-N list.
type Limits struct {
	Products    int
	Categories  int
	Collections int
	Colors      int
	Sizes       int
	Stores      int
	Channels    int
}

func DefaultLimits() Limits {
	return Limits{
		Products:    50,
		Categories:  20,
		Collections: 20,
		Colors:      20,
		Sizes:       20,
		Stores:      20,
		Channels:    10,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	pick := func(v, def int) int {
		if v <= 0 {
			return def
		}
		return v
	}
	return Limits{
		Products:    pick(l.Products, d.Products),
		Categories:  pick(l.Categories, d.Categories),
		Collections: pick(l.Collections, d.Collections),
		Colors:      pick(l.Colors, d.Colors),
		Sizes:       pick(l.Sizes, d.Sizes),
		Stores:      pick(l.Stores, d.Stores),
		Channels:    pick(l.Channels, d.Channels),
	}
}

// Engine computes a Result from a record set. It holds no mutable state and
// may be shared by concurrent callers.
type Engine struct {
	Now          time.Time
	Demographics demographic.Lookup
	Limits       Limits
}

type trendAcc struct {
	first     time.Time
	revenue   float64
	txKeys    map[string]struct{}
	customers map[string]struct{}
}

type trendTable map[string]*trendAcc

func (t trendTable) add(day time.Time, bucket string, rec domain.SalesRecord, txKey string) {
	acc, ok := t[bucket]
	if !ok {
		acc = &trendAcc{first: day, txKeys: map[string]struct{}{}, customers: map[string]struct{}{}}
		t[bucket] = acc
	}
	if day.Before(acc.first) {
		acc.first = day
	}
	acc.revenue += rec.Amount
	acc.txKeys[txKey] = struct{}{}
	acc.customers[rec.MemberID] = struct{}{}
}

// points orders buckets by their earliest day, so unpadded week keys still
// come out chronologically.
func (t trendTable) points() []TrendPoint {
	periods := make([]string, 0, len(t))
	for period := range t {
		periods = append(periods, period)
	}
	sort.Slice(periods, func(i, j int) bool {
		a, b := t[periods[i]].first, t[periods[j]].first
		if !a.Equal(b) {
			return a.Before(b)
		}
		return periods[i] < periods[j]
	})

	out := make([]TrendPoint, 0, len(t))
	for _, period := range periods {
		acc := t[period]
		out = append(out, TrendPoint{
			Period:       period,
			Revenue:      acc.revenue,
			Transactions: len(acc.txKeys),
			Customers:    len(acc.customers),
		})
	}
	return out
}

// Compute runs every analytic over the qualifying subset of records.
func (e Engine) Compute(records []domain.SalesRecord) Result {
	limits := e.Limits.withDefaults()

	products := newEntityTable(productDimension)
	categories := newEntityTable(categoryDimension)
	collections := newEntityTable(collectionDimension)
	colors := newEntityTable(colorDimension)
	sizes := newEntityTable(sizeDimension)
	stores := newEntityTable(storeDimension)
	tables := []*entityTable{products, categories, collections, colors, sizes, stores}

	daily, weekly, monthly := trendTable{}, trendTable{}, trendTable{}
	txKeys := map[string]struct{}{}
	members := map[string]struct{}{}
	qualifying := make([]domain.SalesRecord, 0, len(records))
	var kpis KPIs

	for _, rec := range records {
		if !rec.Qualifies() {
			continue
		}
		qualifying = append(qualifying, rec)
		txKey := TransactionKey(rec)

		kpis.TotalRevenue += rec.Amount
		kpis.TotalQuantity += rec.Quantity
		txKeys[txKey] = struct{}{}
		members[rec.MemberID] = struct{}{}

		if day, err := ingest.ParseDate(rec.PurchaseDate); err == nil {
			daily.add(day, bucketOf(day, Daily), rec, txKey)
			weekly.add(day, bucketOf(day, Weekly), rec, txKey)
			monthly.add(day, bucketOf(day, Monthly), rec, txKey)
		}
		for _, t := range tables {
			t.add(rec, txKey)
		}
	}
	kpis.TotalTransactions = len(txKeys)
	kpis.ActiveCustomers = len(members)
	kpis.AverageOrderValue = safeDiv(kpis.TotalRevenue, float64(kpis.TotalTransactions))

	customers := AssignRanks(ScoreRFM(BuildCustomers(qualifying, e.Now)))
	rfmSegments, rfmMatrix := SummarizeRFM(customers)
	ageGender, source := AgeGenderSegments(customers, e.Demographics)

	return Result{
		KPIs:                  kpis,
		DailyTrend:            daily.points(),
		WeeklyTrend:           weekly.points(),
		MonthlyTrend:          monthly.points(),
		ProductPerformance:    products.top(limits.Products, kpis.TotalRevenue),
		CategoryPerformance:   categories.top(limits.Categories, kpis.TotalRevenue),
		CollectionPerformance: collections.top(limits.Collections, kpis.TotalRevenue),
		ColorPerformance:      colors.top(limits.Colors, kpis.TotalRevenue),
		SizePerformance:       sizes.top(limits.Sizes, kpis.TotalRevenue),
		StorePerformance:      stores.top(limits.Stores, kpis.TotalRevenue),
		ValueSegments:         ValueSegments(customers),
		FrequencySegments:     FrequencySegments(customers),
		AOVSegments:           AOVSegments(customers),
		ChannelSegments:       stores.channels(limits.Channels, kpis.TotalRevenue),
		AgeGenderSegments:     ageGender,
		AgeGenderSource:       source,
		RFMSegments:           rfmSegments,
		RFMMatrix:             rfmMatrix,
		Ranks:                 SummarizeRanks(customers),
		Customers:             customers,
	}
}
