package pseudonym

import (
	"strings"

	"golang.org/x/text/width"
)

// FallbackCategory is assigned when no rule matches a product name.
const FallbackCategory = "その他"

// CategoryRule assigns Category to product names containing any keyword.
type CategoryRule struct {
	Category string
	Keywords []string
}

// DefaultCategoryRules are evaluated in order; the first match wins.
var DefaultCategoryRules = []CategoryRule{
	{Category: "スカート", Keywords: []string{"スカート", "skirt"}},
	{Category: "ワンピース", Keywords: []string{"ワンピース", "ドレス", "dress"}},
	{Category: "アウター", Keywords: []string{"コート", "ジャケット", "ブルゾン", "ダウン", "coat", "jacket"}},
	{Category: "パンツ", Keywords: []string{"パンツ", "デニム", "スラックス", "ジーンズ", "pants", "denim"}},
	{Category: "トップス", Keywords: []string{"シャツ", "ブラウス", "ニット", "カットソー", "セーター", "パーカー", "カーディガン", "shirt", "knit"}},
	{Category: "バッグ", Keywords: []string{"バッグ", "トート", "リュック", "ポーチ", "bag"}},
	{Category: "シューズ", Keywords: []string{"シューズ", "スニーカー", "ブーツ", "パンプス", "サンダル", "shoes"}},
	{Category: "アクセサリー", Keywords: []string{"ネックレス", "ピアス", "イヤリング", "リング", "ブレスレット"}},
	{Category: "小物", Keywords: []string{"ソックス", "靴下", "ベルト", "帽子", "キャップ", "ストール", "マフラー", "ハンカチ"}},
}

// Generalizer maps free-text product names onto a small category vocabulary.
type Generalizer struct {
	rules    []CategoryRule
	fallback string
}

func NewGeneralizer(rules []CategoryRule, fallback string) *Generalizer {
	if rules == nil {
		rules = DefaultCategoryRules
	}
	if fallback == "" {
		fallback = FallbackCategory
	}
	folded := make([]CategoryRule, len(rules))
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = strings.ToLower(foldWidth(kw))
		}
		folded[i] = CategoryRule{Category: r.Category, Keywords: kws}
	}
	return &Generalizer{rules: folded, fallback: fallback}
}

func (g *Generalizer) Categorize(productName string) string {
	name := strings.ToLower(foldWidth(productName))
	if name == "" {
		return g.fallback
	}
	for _, r := range g.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(name, kw) {
				return r.Category
			}
		}
	}
	return g.fallback
}

// foldWidth maps full-width ASCII to half-width and half-width katakana to full-width.
func foldWidth(s string) string {
	return width.Fold.String(s)
}

// IsOnlineStore reports whether a raw store name carries an online indicator.
func IsOnlineStore(name string) bool {
	folded := strings.ToLower(foldWidth(name))
	for _, kw := range onlineKeywords {
		if strings.Contains(folded, strings.ToLower(foldWidth(kw))) {
			return true
		}
	}
	return false
}
