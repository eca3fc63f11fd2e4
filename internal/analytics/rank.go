package analytics

const (
	RankS = "S"
	RankA = "A"
	RankB = "B"
	RankC = "C"
)

var Ranks = []string{RankS, RankA, RankB, RankC}

// Cumulative position cutoffs, in percent of customers: top 5% S, next 15% A,
// next 30% B, remainder C.
const (
	rankCutoffS = 5
	rankCutoffA = 20
	rankCutoffB = 50
)

// AssignRanks returns customers sorted by revenue descending with S/A/B/C set
// by position. The last index of a tier is ceil(n*pct/100)-1, so customers with
// equal revenue may straddle a tier boundary.
func AssignRanks(customers []CustomerAggregate) []CustomerAggregate {
	out := append([]CustomerAggregate(nil), customers...)
	sortCustomers(out)

	n := len(out)
	lastS, lastA, lastB := cutoffIndex(n, rankCutoffS), cutoffIndex(n, rankCutoffA), cutoffIndex(n, rankCutoffB)
	for i := range out {
		switch {
		case i <= lastS:
			out[i].Rank = RankS
		case i <= lastA:
			out[i].Rank = RankA
		case i <= lastB:
			out[i].Rank = RankB
		default:
			out[i].Rank = RankC
		}
	}
	return out
}

// cutoffIndex is ceil(n*pct/100)-1 in integer arithmetic.
func cutoffIndex(n, pct int) int {
	return (n*pct+99)/100 - 1
}

func SummarizeRanks(customers []CustomerAggregate) []RankSummary {
	byRank := make(map[string]*RankSummary, len(Ranks))
	out := make([]RankSummary, len(Ranks))
	for i, r := range Ranks {
		out[i] = RankSummary{Rank: r}
		byRank[r] = &out[i]
	}
	for _, c := range customers {
		if s, ok := byRank[c.Rank]; ok {
			s.Customers++
			s.Revenue += c.Revenue
		}
	}
	return out
}
