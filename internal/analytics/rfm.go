package analytics

import (
	"math"
	"sort"
)

const (
	SegmentChampions          = "Champions"
	SegmentPotentialLoyalists = "Potential Loyalists"
	SegmentAtRisk             = "At Risk"
	SegmentHibernating        = "Hibernating"
	SegmentLost               = "Lost"
)

// RFMSegments lists segment names in output order.
var RFMSegments = []string{SegmentChampions, SegmentPotentialLoyalists, SegmentAtRisk, SegmentHibernating, SegmentLost}

// RFMScore holds 1 (worst) to 4 (best) per axis and the derived segment.
type RFMScore struct {
	Recency   int    `json:"recency"`
	Frequency int    `json:"frequency"`
	Monetary  int    `json:"monetary"`
	Segment   string `json:"segment"`
}

// ScoreRFM returns a copy of customers with RFM scores set.
//
// Recency and frequency are scored by rank position: customers are stably
// sorted (fewest days since purchase first, most transactions first) and split
// into four equal-size quartiles, so ties are broken by input order alone.
// Monetary is scored against the 25th/50th/75th percentile of revenue values.
func ScoreRFM(customers []CustomerAggregate) []CustomerAggregate {
	out := append([]CustomerAggregate(nil), customers...)
	n := len(out)
	if n == 0 {
		return out
	}

	byRecency := positions(n)
	sort.SliceStable(byRecency, func(a, b int) bool {
		return out[byRecency[a]].DaysSinceLastPurchase < out[byRecency[b]].DaysSinceLastPurchase
	})
	byFrequency := positions(n)
	sort.SliceStable(byFrequency, func(a, b int) bool {
		return out[byFrequency[a]].Transactions > out[byFrequency[b]].Transactions
	})
	for pos := 0; pos < n; pos++ {
		out[byRecency[pos]].RFM.Recency = quartileScore(pos, n)
		out[byFrequency[pos]].RFM.Frequency = quartileScore(pos, n)
	}

	revenues := make([]float64, n)
	for i, c := range out {
		revenues[i] = c.Revenue
	}
	sort.Float64s(revenues)
	p25, p50, p75 := percentile(revenues, 25), percentile(revenues, 50), percentile(revenues, 75)
	for i := range out {
		switch rev := out[i].Revenue; {
		case rev >= p75:
			out[i].RFM.Monetary = 4
		case rev >= p50:
			out[i].RFM.Monetary = 3
		case rev >= p25:
			out[i].RFM.Monetary = 2
		default:
			out[i].RFM.Monetary = 1
		}
		out[i].RFM.Segment = SegmentFor(out[i].RFM.Recency, out[i].RFM.Frequency, out[i].RFM.Monetary)
	}
	return out
}

// SegmentFor applies the fixed RFM decision table.
func SegmentFor(r, f, m int) string {
	switch {
	case r >= 3 && f >= 3 && m >= 3:
		return SegmentChampions
	case r >= 3 && f <= 2 && m >= 3:
		return SegmentPotentialLoyalists
	case r <= 2 && f >= 3 && m >= 3:
		return SegmentAtRisk
	case r <= 2 && f <= 2 && m <= 2:
		return SegmentLost
	default:
		return SegmentHibernating
	}
}

// quartileScore maps sort position pos of n to 4 (first quarter) down to 1.
func quartileScore(pos, n int) int {
	return 4 - pos*4/n
}

func positions(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// percentile interpolates linearly between closest ranks of sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo, hi := int(math.Floor(rank)), int(math.Ceil(rank))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

// runningMean keeps an incremental average: avg = (avg*(n-1) + v) / n.
type runningMean struct {
	n   int
	avg float64
}

func (m *runningMean) add(v float64) {
	m.n++
	m.avg = (m.avg*float64(m.n-1) + v) / float64(m.n)
}

// SummarizeRFM builds per-segment summaries and the 4x4 recency/frequency
// matrix from scored customers.
func SummarizeRFM(scored []CustomerAggregate) ([]RFMSegmentSummary, []RFMMatrixCell) {
	type segAcc struct {
		revenue float64
		r, f, m runningMean
	}
	type cellAcc struct {
		revenue      float64
		transactions int
		m            runningMean
	}

	segs := make(map[string]*segAcc, len(RFMSegments))
	for _, name := range RFMSegments {
		segs[name] = &segAcc{}
	}
	var cells [4][4]cellAcc

	for _, c := range scored {
		s := segs[c.RFM.Segment]
		if s == nil {
			continue
		}
		s.revenue += c.Revenue
		s.r.add(float64(c.RFM.Recency))
		s.f.add(float64(c.RFM.Frequency))
		s.m.add(float64(c.RFM.Monetary))

		cell := &cells[clampScore(c.RFM.Recency)-1][clampScore(c.RFM.Frequency)-1]
		cell.revenue += c.Revenue
		cell.transactions += c.Transactions
		cell.m.add(float64(c.RFM.Monetary))
	}

	total := len(scored)
	summaries := make([]RFMSegmentSummary, 0, len(RFMSegments))
	var matrix [4][4][]string
	for _, name := range RFMSegments {
		s := segs[name]
		summaries = append(summaries, RFMSegmentSummary{
			Name:         name,
			Customers:    s.r.n,
			Revenue:      s.revenue,
			AvgRecency:   round2(s.r.avg),
			AvgFrequency: round2(s.f.avg),
			AvgMonetary:  round2(s.m.avg),
		})
		if s.r.n == 0 {
			continue
		}
		r, f := clampScore(int(math.Round(s.r.avg))), clampScore(int(math.Round(s.f.avg)))
		matrix[r-1][f-1] = append(matrix[r-1][f-1], name)
	}

	out := make([]RFMMatrixCell, 0, 16)
	for r := 1; r <= 4; r++ {
		for f := 1; f <= 4; f++ {
			acc := cells[r-1][f-1]
			segments := matrix[r-1][f-1]
			if segments == nil {
				segments = []string{}
			}
			out = append(out, RFMMatrixCell{
				Recency:                  r,
				Frequency:                f,
				Customers:                acc.m.n,
				Revenue:                  acc.revenue,
				AvgRevenuePerTransaction: round2(safeDiv(acc.revenue, float64(acc.transactions))),
				AvgMonetaryScore:         round2(acc.m.avg),
				Share:                    percent(acc.m.n, total),
				Segments:                 segments,
			})
		}
	}
	return summaries, out
}

func clampScore(v int) int {
	switch {
	case v < 1:
		return 1
	case v > 4:
		return 4
	default:
		return v
	}
}
