package analytics

import (
	"testing"

	"github.com/smallbiznis/storepulse/internal/sales/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCustomersOrderingAndPreferences(t *testing.T) {
	a := rec("ZB0001", "2024-06-20", "Store Bravo", 500)
	a.Category = "トップス"
	b := rec("ZB0001", "2024-06-21", "Store Alpha", 500)
	records := []domain.SalesRecord{
		rec("ZA0002", "2024-05-01", "Store Alpha", 1000),
		a,
		b,
		rec("ZA0001", "2024-06-30", "Store Alpha", 1000),
		rec("ZC0001", "2024-08-01", "Store Alpha", 10),
	}

	customers := BuildCustomers(records, runAt)

	require.Len(t, customers, 4)
	assert.Equal(t, []string{"ZA0001", "ZA0002", "ZB0001", "ZC0001"}, []string{
		customers[0].MemberID, customers[1].MemberID, customers[2].MemberID, customers[3].MemberID,
	})

	tied := customers[2]
	assert.Equal(t, "Store Alpha", tied.PreferredStore)
	assert.Equal(t, "スカート", tied.PreferredCategory)
	assert.Equal(t, 2, tied.Transactions)
	assert.Equal(t, "2024-06-20", tied.FirstPurchase)
	assert.Equal(t, 10, tied.DaysSinceLastPurchase)

	assert.Equal(t, 1, customers[0].DaysSinceLastPurchase)
	assert.Zero(t, customers[3].DaysSinceLastPurchase)
	assert.Equal(t, 500.0, tied.AverageOrderValue())
}
