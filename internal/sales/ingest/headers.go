package ingest

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/storepulse/internal/sales/domain"
	"golang.org/x/text/width"
)

// HeaderMap lists the accepted header aliases for each canonical field.
type HeaderMap map[domain.Field][]string

// DefaultHeaderMap accepts the Japanese POS export headers and the canonical snake_case names.
func DefaultHeaderMap() HeaderMap {
	return HeaderMap{
		domain.FieldMemberID:       {"会員番号", "会員ID", "顧客番号"},
		domain.FieldPurchaseDate:   {"購入日", "売上日", "取引日"},
		domain.FieldProductID:      {"商品コード", "品番"},
		domain.FieldProductName:    {"商品名"},
		domain.FieldColorCode:      {"カラーコード", "色コード"},
		domain.FieldColorName:      {"カラー名", "色名"},
		domain.FieldSizeCode:       {"サイズコード"},
		domain.FieldSizeName:       {"サイズ名"},
		domain.FieldStoreBrandCode: {"店舗ブランドコード"},
		domain.FieldStoreBrandName: {"店舗ブランド名"},
		domain.FieldBrandCode:      {"ブランドコード", "商品ブランドコード"},
		domain.FieldBrandName:      {"ブランド名", "商品ブランド名"},
		domain.FieldQuantity:       {"数量", "販売数"},
		domain.FieldAmount:         {"税抜金額", "売上金額(税抜)", "金額"},
		domain.FieldStoreCode:      {"店舗コード"},
		domain.FieldStoreName:      {"店舗名"},
		domain.FieldAssociateCode:  {"販売員コード", "担当者コード"},
		domain.FieldAssociateName:  {"販売員名", "担当者名"},
		domain.FieldSaleID:         {"売上ID", "伝票番号"},
		domain.FieldListPrice:      {"上代", "定価"},
		domain.FieldCategory:       {"カテゴリ"},
	}
}

var requiredFields = []domain.Field{domain.FieldMemberID, domain.FieldPurchaseDate}

// columnIndex maps canonical fields to their column position; -1 means absent.
type columnIndex map[domain.Field]int

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = width.Fold.String(strings.TrimSpace(h))
	return strings.ToLower(h)
}

func (m HeaderMap) resolve(header []string) (columnIndex, error) {
	lookup := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, ok := lookup[key]; !ok {
			lookup[key] = i
		}
	}

	idx := make(columnIndex, len(domain.Fields))
	for _, f := range domain.Fields {
		idx[f] = -1
		candidates := append([]string{f.Name()}, m[f]...)
		for _, alias := range candidates {
			if pos, ok := lookup[normalizeHeader(alias)]; ok {
				idx[f] = pos
				break
			}
		}
	}

	for _, f := range requiredFields {
		if idx[f] < 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingHeader, f.Name())
		}
	}
	return idx, nil
}

func (c columnIndex) value(row []string, f domain.Field) string {
	pos := c[f]
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}
