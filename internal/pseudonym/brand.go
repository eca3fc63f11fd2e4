package pseudonym

import "strings"

// Brand is a canonical brand code and display name pair.
type Brand struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type brandEntry struct {
	canonical Brand
	codes     []string
	names     []string
}

var brandTable = []brandEntry{
	{canonical: Brand{Code: "BA", Name: "Brand A"}, codes: []string{"01", "BA", "A"}, names: []string{"ブランドA", "Brand A"}},
	{canonical: Brand{Code: "BB", Name: "Brand B"}, codes: []string{"02", "BB", "B"}, names: []string{"ブランドB", "Brand B"}},
	{canonical: Brand{Code: "BC", Name: "Brand C"}, codes: []string{"03", "BC", "C"}, names: []string{"ブランドC", "Brand C"}},
	{canonical: Brand{Code: "BD", Name: "Brand D"}, codes: []string{"04", "BD", "D"}, names: []string{"ブランドD", "Brand D"}},
	{canonical: Brand{Code: "BO", Name: "Brand Outlet"}, codes: []string{"90", "BO", "OUT"}, names: []string{"アウトレット", "Outlet"}},
}

// BrandLookup resolves raw brand codes and names to canonical pairs.
type BrandLookup struct {
	byCode map[string]Brand
	byName map[string]Brand
	names  []string
	known  []Brand
}

func NewBrandLookup() *BrandLookup {
	l := &BrandLookup{
		byCode: map[string]Brand{},
		byName: map[string]Brand{},
	}
	for _, e := range brandTable {
		for _, c := range e.codes {
			l.byCode[normalizeKey(c)] = e.canonical
		}
		for _, n := range e.names {
			l.byName[normalizeKey(n)] = e.canonical
			l.names = append(l.names, normalizeKey(n))
		}
		l.known = append(l.known, e.canonical)
	}
	return l
}

// Resolve looks up code first, then name. Unknown pairs pass through unchanged.
func (l *BrandLookup) Resolve(code, name string) (string, string) {
	if b, ok := l.byCode[normalizeKey(code)]; ok && code != "" {
		return b.Code, b.Name
	}
	if b, ok := l.byName[normalizeKey(name)]; ok && name != "" {
		return b.Code, b.Name
	}
	return code, name
}

// StorePrefix finds the brand whose name or alias begins store. The longest
// matching alias wins.
func (l *BrandLookup) StorePrefix(store string) (Brand, bool) {
	key := normalizeKey(store)
	best := ""
	for _, n := range l.names {
		if len(n) > len(best) && strings.HasPrefix(key, n) {
			best = n
		}
	}
	if best == "" {
		return Brand{}, false
	}
	return l.byName[best], true
}

// Known returns the canonical brands in table order.
func (l *BrandLookup) Known() []Brand {
	return append([]Brand(nil), l.known...)
}

func normalizeKey(s string) string {
	return strings.ToLower(foldWidth(strings.TrimSpace(s)))
}
