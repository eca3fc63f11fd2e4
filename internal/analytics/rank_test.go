package analytics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customersWithRevenue(n int) []CustomerAggregate {
	out := make([]CustomerAggregate, n)
	for i := range out {
		out[i] = CustomerAggregate{MemberID: fmt.Sprintf("M%04d", i), Revenue: float64((i*7)%n + 1)}
	}
	return out
}

func TestCutoffIndex(t *testing.T) {
	assert.Equal(t, 4, cutoffIndex(100, rankCutoffS))
	assert.Equal(t, 19, cutoffIndex(100, rankCutoffA))
	assert.Equal(t, 49, cutoffIndex(100, rankCutoffB))
	assert.Equal(t, 0, cutoffIndex(1, rankCutoffS))
	assert.Equal(t, 0, cutoffIndex(3, rankCutoffS))
	assert.Equal(t, 1, cutoffIndex(21, rankCutoffS))
	assert.Equal(t, -1, cutoffIndex(0, rankCutoffS))
}

func TestAssignRanksOnTruncatedSubset(t *testing.T) {
	all := AssignRanks(customersWithRevenue(1000))
	require.Len(t, all, 1000)

	shown := AssignRanks(all[:100])

	var s int
	for i, c := range shown {
		if c.Rank == RankS {
			s++
			assert.Less(t, i, 5, "S must be contiguous from the top")
		}
	}
	assert.Equal(t, 5, s)

	summary := SummarizeRanks(shown)
	assert.Equal(t, []int{5, 15, 30, 50}, []int{summary[0].Customers, summary[1].Customers, summary[2].Customers, summary[3].Customers})

	// The chain-wide ranking of the same customers differs: most are S or A there.
	assert.Equal(t, RankS, all[49].Rank)
	assert.Equal(t, RankC, shown[99].Rank)
}

func TestAssignRanksIsPositionalOnTies(t *testing.T) {
	customers := make([]CustomerAggregate, 20)
	for i := range customers {
		customers[i] = CustomerAggregate{MemberID: fmt.Sprintf("M%02d", i), Revenue: 1000}
	}

	ranked := AssignRanks(customers)

	assert.Equal(t, RankS, ranked[0].Rank)
	assert.Equal(t, RankA, ranked[1].Rank)
	assert.Equal(t, "M00", ranked[0].MemberID)
}
