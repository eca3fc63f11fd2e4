package analytics

import (
	"sort"
	"time"

	"github.com/smallbiznis/storepulse/internal/pseudonym"
	"github.com/smallbiznis/storepulse/internal/sales/domain"
	"github.com/smallbiznis/storepulse/internal/sales/ingest"
)

// CustomerAggregate folds every qualifying record of one member.
type CustomerAggregate struct {
	MemberID              string  `json:"member_id"`
	Revenue               float64 `json:"revenue"`
	Transactions          int     `json:"transactions"`
	Quantity              int     `json:"quantity"`
	FirstPurchase         string  `json:"first_purchase"`
	LastPurchase          string  `json:"last_purchase"`
	DaysSinceLastPurchase int     `json:"days_since_last_purchase"`
	PreferredStore        string  `json:"preferred_store"`
	PreferredCategory     string  `json:"preferred_category"`
	Online                bool    `json:"online"`

	Rank string   `json:"rank"`
	RFM  RFMScore `json:"rfm"`
}

// AverageOrderValue is revenue per transaction, 0 without transactions.
func (c CustomerAggregate) AverageOrderValue() float64 {
	return safeDiv(c.Revenue, float64(c.Transactions))
}

type customerAcc struct {
	agg        CustomerAggregate
	txKeys     map[string]struct{}
	byStore    map[string]float64
	byCategory map[string]float64
}

// BuildCustomers aggregates qualifying records per member, ordered by revenue
// descending then member id ascending. Days are counted up to now.
func BuildCustomers(records []domain.SalesRecord, now time.Time) []CustomerAggregate {
	accs := map[string]*customerAcc{}
	for _, rec := range records {
		if !rec.Qualifies() {
			continue
		}
		acc, ok := accs[rec.MemberID]
		if !ok {
			acc = &customerAcc{
				agg:        CustomerAggregate{MemberID: rec.MemberID, FirstPurchase: rec.PurchaseDate, LastPurchase: rec.PurchaseDate},
				txKeys:     map[string]struct{}{},
				byStore:    map[string]float64{},
				byCategory: map[string]float64{},
			}
			accs[rec.MemberID] = acc
		}
		acc.agg.Revenue += rec.Amount
		acc.agg.Quantity += rec.Quantity
		acc.txKeys[TransactionKey(rec)] = struct{}{}
		acc.byStore[rec.StoreName] += rec.Amount
		acc.byCategory[rec.Category] += rec.Amount
		if rec.PurchaseDate < acc.agg.FirstPurchase {
			acc.agg.FirstPurchase = rec.PurchaseDate
		}
		if rec.PurchaseDate > acc.agg.LastPurchase {
			acc.agg.LastPurchase = rec.PurchaseDate
		}
		if pseudonym.IsOnlineStore(rec.StoreName) {
			acc.agg.Online = true
		}
	}

	today := truncateDay(now)
	out := make([]CustomerAggregate, 0, len(accs))
	for _, acc := range accs {
		c := acc.agg
		c.Transactions = len(acc.txKeys)
		c.PreferredStore = topByRevenue(acc.byStore)
		c.PreferredCategory = topByRevenue(acc.byCategory)
		if last, err := ingest.ParseDate(c.LastPurchase); err == nil {
			if days := int(today.Sub(last).Hours() / 24); days > 0 {
				c.DaysSinceLastPurchase = days
			}
		}
		out = append(out, c)
	}
	sortCustomers(out)
	return out
}

func sortCustomers(customers []CustomerAggregate) {
	sort.SliceStable(customers, func(i, j int) bool {
		if customers[i].Revenue != customers[j].Revenue {
			return customers[i].Revenue > customers[j].Revenue
		}
		return customers[i].MemberID < customers[j].MemberID
	})
}

// topByRevenue picks the highest-revenue name; ties resolve to the smallest name.
func topByRevenue(m map[string]float64) string {
	var (
		best    string
		bestRev float64
		found   bool
	)
	for name, rev := range m {
		if !found || rev > bestRev || (rev == bestRev && name < best) {
			best, bestRev, found = name, rev, true
		}
	}
	return best
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
