// Package snapshot defines the terminal document of a pipeline run and writes it atomically.
package snapshot

import (
	"time"

	"github.com/smallbiznis/storepulse/internal/analytics"
)

// GlobalSnapshot is written once per run. The embedded Result holds the
// chain-wide analytics.
type GlobalSnapshot struct {
	Meta Meta `json:"meta"`
	analytics.Result
	Brands          map[string]BrandSnapshot `json:"brands"`
	Customers       []CustomerRow            `json:"customers"`
	PurchaseHistory []PurchaseRow            `json:"purchase_history"`
}

type Meta struct {
	RunID         string    `json:"run_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	RecordCount   int       `json:"record_count"`
	CustomerCount int       `json:"customer_count"`
	CustomerLimit int       `json:"customer_limit"`
	BrandCount    int       `json:"brand_count"`
}

type BrandSnapshot struct {
	Code string `json:"code"`
	Name string `json:"name"`
	analytics.Result
}

// CustomerRow is one entry of the capped customer list.
type CustomerRow struct {
	analytics.CustomerAggregate
	AverageOrderValue float64 `json:"average_order_value"`
}

// PurchaseRow is one qualifying line item of a listed customer.
type PurchaseRow struct {
	MemberID     string  `json:"member_id"`
	PurchaseDate string  `json:"purchase_date"`
	StoreName    string  `json:"store_name"`
	BrandCode    string  `json:"brand_code"`
	ProductID    string  `json:"product_id"`
	Category     string  `json:"category"`
	ColorName    string  `json:"color_name"`
	SizeName     string  `json:"size_name"`
	Quantity     int     `json:"quantity"`
	Amount       float64 `json:"amount"`
}
