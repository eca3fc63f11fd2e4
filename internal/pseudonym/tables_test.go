package pseudonym

import (
	"fmt"
	"testing"

	"github.com/smallbiznis/storepulse/internal/sales/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTables(records ...domain.SalesRecord) *Tables {
	c := NewCollector()
	for _, rec := range records {
		c.Add(rec)
	}
	return c.Build()
}

func TestMemberIDPrefixIsStable(t *testing.T) {
	tables := buildTables(
		domain.SalesRecord{MemberID: "CD0001"},
		domain.SalesRecord{MemberID: "AB1234"},
		domain.SalesRecord{MemberID: "AB9999"},
	)

	first := tables.MemberID("AB1234")
	assert.Equal(t, "ZA1234", first)
	assert.Equal(t, first, tables.MemberID("AB1234"))
	assert.Equal(t, "ZA9999", tables.MemberID("AB9999"))
	assert.Equal(t, "ZB0001", tables.MemberID("CD0001"))
	assert.Equal(t, "A", tables.MemberID("A"))
}

func TestMemberPrefixFallbackBeyondPool(t *testing.T) {
	c := NewCollector()
	for i := 0; i < len(prefixPool)+2; i++ {
		c.Add(domain.SalesRecord{MemberID: fmt.Sprintf("%c%c001", 'A', 'A'+i)})
	}
	tables := c.Build()

	assert.Equal(t, "ZA001", tables.MemberID("AA001"))
	assert.Equal(t, "ZK001", tables.MemberID("AJ001"))
	assert.Equal(t, "X10001", tables.MemberID("AK001"))
	assert.Equal(t, "X11001", tables.MemberID("AL001"))
}

func TestPhysicalStorePoolWrapsAround(t *testing.T) {
	c := NewCollector()
	raw := make([]string, 0, 2*len(physicalStorePool)+3)
	for i := 0; i < cap(raw); i++ {
		name := fmt.Sprintf("路面店%03d", i)
		raw = append(raw, name)
		c.Add(domain.SalesRecord{StoreName: name})
	}
	tables := c.Build()

	used := map[string]int{}
	for i, name := range raw {
		got := tables.StoreName(name)
		assert.Equal(t, physicalStorePool[i%len(physicalStorePool)], got)
		assert.Equal(t, got, tables.StoreName(name))
		used[got]++
	}
	for _, entry := range physicalStorePool {
		assert.GreaterOrEqual(t, used[entry], 2, entry)
	}
}

func TestOnlineStoresShareOnePseudonym(t *testing.T) {
	tables := buildTables(
		domain.SalesRecord{StoreName: "公式オンラインストア"},
		domain.SalesRecord{StoreName: "Brand A Online"},
		domain.SalesRecord{StoreName: "ＥＣ店"},
		domain.SalesRecord{StoreName: "渋谷店"},
	)

	assert.Equal(t, OnlineStoreName, tables.StoreName("公式オンラインストア"))
	assert.Equal(t, OnlineStoreName, tables.StoreName("Brand A Online"))
	assert.Equal(t, OnlineStoreName, tables.StoreName("ＥＣ店"))
	assert.Equal(t, physicalStorePool[0], tables.StoreName("渋谷店"))

	var online int
	for _, m := range tables.StoreMappings() {
		if m.Online {
			online++
		}
	}
	assert.Equal(t, 3, online)
}

func TestBrandLedStoresKeepBrandInPseudonym(t *testing.T) {
	tables := buildTables(
		domain.SalesRecord{StoreName: "Brand A 渋谷店"},
		domain.SalesRecord{StoreName: "Brand A 新宿店"},
		domain.SalesRecord{StoreName: "ブランドＢ 梅田店"},
		domain.SalesRecord{StoreName: "渋谷店"},
		domain.SalesRecord{StoreName: "Brand A Online"},
	)

	assert.Equal(t, "Brand A Store Alpha", tables.StoreName("Brand A 新宿店"))
	assert.Equal(t, "Brand A Store Bravo", tables.StoreName("Brand A 渋谷店"))
	assert.Equal(t, "Brand B Store Charlie", tables.StoreName("ブランドＢ 梅田店"))
	assert.Equal(t, "Store Delta", tables.StoreName("渋谷店"))
	assert.Equal(t, OnlineStoreName, tables.StoreName("Brand A Online"))
}

func TestRewriteFillsBlankBrandFromStoreName(t *testing.T) {
	tables := buildTables(
		domain.SalesRecord{StoreName: "Brand A 新宿店"},
		domain.SalesRecord{StoreName: "Brand A Online"},
		domain.SalesRecord{StoreName: "渋谷店"},
	)

	got := tables.Rewrite(domain.SalesRecord{MemberID: "AB5678", StoreName: "Brand A 新宿店", Amount: 400})
	assert.Equal(t, "BA", got.BrandCode)
	assert.Equal(t, "Brand A", got.BrandName)

	got = tables.Rewrite(domain.SalesRecord{MemberID: "AB5678", StoreName: "Brand A Online", Amount: 400})
	assert.Equal(t, OnlineStoreName, got.StoreName)
	assert.Equal(t, "BA", got.BrandCode)

	got = tables.Rewrite(domain.SalesRecord{MemberID: "AB5678", StoreName: "Brand A 新宿店", BrandCode: "02"})
	assert.Equal(t, "BB", got.BrandCode)

	got = tables.Rewrite(domain.SalesRecord{MemberID: "AB5678", StoreName: "渋谷店"})
	assert.Empty(t, got.BrandCode)
	assert.Empty(t, got.BrandName)
}

func TestAssociateNamesWalkFamilyThenGiven(t *testing.T) {
	c := NewCollector()
	for i := 0; i <= len(familyNamePool); i++ {
		c.Add(domain.SalesRecord{AssociateName: fmt.Sprintf("staff-%03d", i)})
	}
	tables := c.Build()

	assert.Equal(t, familyNamePool[0]+" "+givenNamePool[0], tables.AssociateName("staff-000"))
	assert.Equal(t, familyNamePool[1]+" "+givenNamePool[0], tables.AssociateName("staff-001"))
	assert.Equal(t, familyNamePool[0]+" "+givenNamePool[1], tables.AssociateName("staff-050"))
}

func TestRewriteAppliesBrandLookupToBothBrandFields(t *testing.T) {
	tables := buildTables(domain.SalesRecord{MemberID: "AB1234", StoreName: "渋谷店", AssociateName: "山田"})

	got := tables.Rewrite(domain.SalesRecord{
		MemberID:       "AB1234",
		StoreName:      "渋谷店",
		AssociateName:  "山田",
		AssociateCode:  "E001",
		StoreBrandCode: "01",
		BrandName:      "ブランドA",
		ProductName:    "デニムスカート",
		Amount:         1000,
	})

	assert.Equal(t, "ZA1234", got.MemberID)
	assert.Equal(t, "BA", got.StoreBrandCode)
	assert.Equal(t, "Brand A", got.StoreBrandName)
	assert.Equal(t, "BA", got.BrandCode)
	assert.Equal(t, "Brand A", got.BrandName)
	assert.Equal(t, "スカート", got.Category)
	assert.Equal(t, "スカート", got.ProductName)
	assert.Empty(t, got.AssociateCode)
	assert.Equal(t, 1000.0, got.Amount)

	code, name := tables.Brand("ZZ", "Unknown")
	assert.Equal(t, "ZZ", code)
	assert.Equal(t, "Unknown", name)
}

func TestCategorizeFirstRuleWins(t *testing.T) {
	g := NewGeneralizer(nil, "")

	cases := map[string]string{
		"デニムスカート":   "スカート",
		"ﾌﾚｱｽｶｰﾄ":   "スカート",
		"スカート付きパンツ": "スカート",
		"ストレートデニム":  "パンツ",
		"ウールコート":    "アウター",
		"ＳＨＩＲＴ":     "トップス",
		"":          FallbackCategory,
		"ギフトカード":    FallbackCategory,
	}
	for in, want := range cases {
		assert.Equal(t, want, g.Categorize(in), in)
	}
}

func TestGeneralizerCustomRules(t *testing.T) {
	g := NewGeneralizer([]CategoryRule{
		{Category: "ボトムス", Keywords: []string{"パンツ"}},
		{Category: "スカート", Keywords: []string{"スカート"}},
	}, "misc")

	assert.Equal(t, "ボトムス", g.Categorize("スカート付きパンツ"))
	assert.Equal(t, "misc", g.Categorize("帽子"))
}

func TestCollectorSkipsShortIDs(t *testing.T) {
	tables := buildTables(domain.SalesRecord{MemberID: "A"}, domain.SalesRecord{MemberID: "会員01"})
	require.Len(t, tables.PrefixMap(), 1)
	assert.Equal(t, "ZA01", tables.MemberID("会員01"))
}
