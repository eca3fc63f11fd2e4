// Package domain contains the canonical sales-record shape shared by ingestion,
// pseudonymization and analytics.
package domain

import "errors"

// SalesRecord is one POS line item. It is treated as immutable once parsed;
// rewriting stages return modified copies.
type SalesRecord struct {
	MemberID       string  `json:"member_id"`
	PurchaseDate   string  `json:"purchase_date"`
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	ColorCode      string  `json:"color_code"`
	ColorName      string  `json:"color_name"`
	SizeCode       string  `json:"size_code"`
	SizeName       string  `json:"size_name"`
	StoreBrandCode string  `json:"store_brand_code"`
	StoreBrandName string  `json:"store_brand_name"`
	BrandCode      string  `json:"brand_code"`
	BrandName      string  `json:"brand_name"`
	Quantity       int     `json:"quantity"`
	Amount         float64 `json:"amount"`
	StoreCode      string  `json:"store_code"`
	StoreName      string  `json:"store_name"`
	AssociateCode  string  `json:"associate_code"`
	AssociateName  string  `json:"associate_name"`
	SaleID         string  `json:"sale_id"`
	ListPrice      float64 `json:"list_price"`
	Category       string  `json:"category"`
}

// HasIdentity reports whether the record carries the fields every aggregate keys on.
func (r SalesRecord) HasIdentity() bool {
	return r.MemberID != "" && r.PurchaseDate != ""
}

// Qualifies reports whether the record participates in revenue-bearing aggregates.
func (r SalesRecord) Qualifies() bool {
	return r.HasIdentity() && r.Amount > 0
}

// Qualifying returns the qualifying subset of records, preserving order.
func Qualifying(records []SalesRecord) []SalesRecord {
	out := make([]SalesRecord, 0, len(records))
	for _, rec := range records {
		if rec.Qualifies() {
			out = append(out, rec)
		}
	}
	return out
}

var (
	ErrMissingInput  = errors.New("missing_input_file")
	ErrMissingHeader = errors.New("missing_required_header")
)
