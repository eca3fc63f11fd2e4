// Package pseudonym builds deterministic mapping tables from an observed dataset
// and rewrites sales records through them.
package pseudonym

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/smallbiznis/storepulse/internal/sales/domain"
)

const memberPrefixLen = 2

// Collector accumulates the distinct raw values seen during the collect pass.
type Collector struct {
	prefixes   map[string]struct{}
	stores     map[string]struct{}
	associates map[string]struct{}
}

func NewCollector() *Collector {
	return &Collector{
		prefixes:   map[string]struct{}{},
		stores:     map[string]struct{}{},
		associates: map[string]struct{}{},
	}
}

func (c *Collector) Add(rec domain.SalesRecord) {
	if p, ok := memberPrefix(rec.MemberID); ok {
		c.prefixes[p] = struct{}{}
	}
	if rec.StoreName != "" {
		c.stores[rec.StoreName] = struct{}{}
	}
	if rec.AssociateName != "" {
		c.associates[rec.AssociateName] = struct{}{}
	}
}

// Build assigns pseudonyms to everything collected so far.
func (c *Collector) Build() *Tables {
	t := &Tables{
		prefixes:    make(map[string]string, len(c.prefixes)),
		stores:      make(map[string]string, len(c.stores)),
		online:      map[string]bool{},
		storeBrands: map[string]Brand{},
		associates:  make(map[string]string, len(c.associates)),
		brands:      NewBrandLookup(),
		generalizer: NewGeneralizer(nil, ""),
	}

	for i, p := range sortedKeys(c.prefixes) {
		if i < len(prefixPool) {
			t.prefixes[p] = prefixPool[i]
			continue
		}
		t.prefixes[p] = fallbackPrefix + strconv.Itoa(i)
	}

	var physical []string
	for _, name := range sortedKeys(c.stores) {
		if b, ok := t.brands.StorePrefix(name); ok {
			t.storeBrands[name] = b
		}
		if IsOnlineStore(name) {
			t.stores[name] = OnlineStoreName
			t.online[name] = true
			continue
		}
		physical = append(physical, name)
	}
	// A brand-led store name keeps the canonical brand in front of its
	// pseudonym so prefix attribution still works downstream.
	for i, name := range physical {
		alias := physicalStorePool[i%len(physicalStorePool)]
		if b, ok := t.storeBrands[name]; ok {
			alias = b.Name + " " + alias
		}
		t.stores[name] = alias
	}

	families, givens := len(familyNamePool), len(givenNamePool)
	for i, name := range sortedKeys(c.associates) {
		t.associates[name] = fmt.Sprintf("%s %s", familyNamePool[i%families], givenNamePool[(i/families)%givens])
	}
	return t
}

// Tables is the immutable set of mappings for one pipeline run.
type Tables struct {
	prefixes    map[string]string
	stores      map[string]string
	online      map[string]bool
	storeBrands map[string]Brand
	associates  map[string]string
	brands      *BrandLookup
	generalizer *Generalizer
}

// MemberID substitutes the two-character prefix and keeps the suffix.
func (t *Tables) MemberID(raw string) string {
	return PrefixMap(t.prefixes).Apply(raw)
}

func (t *Tables) StoreName(raw string) string {
	if v, ok := t.stores[raw]; ok {
		return v
	}
	return raw
}

func (t *Tables) AssociateName(raw string) string {
	if v, ok := t.associates[raw]; ok {
		return v
	}
	return raw
}

func (t *Tables) Brand(code, name string) (string, string) {
	return t.brands.Resolve(code, name)
}

func (t *Tables) Category(productName string) string {
	return t.generalizer.Categorize(productName)
}

// Rewrite returns rec with every identifier replaced. The product name is
// replaced by its generalized category and associate codes are cleared.
// A record with no brand takes the brand its raw store name starts with.
func (t *Tables) Rewrite(rec domain.SalesRecord) domain.SalesRecord {
	out := rec
	out.MemberID = t.MemberID(rec.MemberID)
	out.StoreName = t.StoreName(rec.StoreName)
	out.AssociateName = t.AssociateName(rec.AssociateName)
	out.AssociateCode = ""
	out.StoreBrandCode, out.StoreBrandName = t.Brand(rec.StoreBrandCode, rec.StoreBrandName)
	out.BrandCode, out.BrandName = t.Brand(rec.BrandCode, rec.BrandName)
	if out.BrandCode == "" && out.BrandName == "" {
		if b, ok := t.storeBrands[rec.StoreName]; ok {
			out.BrandCode, out.BrandName = b.Code, b.Name
		}
	}
	out.Category = t.Category(rec.ProductName)
	out.ProductName = out.Category
	return out
}

// PrefixMap returns a copy of the member-id prefix substitutions.
func (t *Tables) PrefixMap() PrefixMap {
	out := make(PrefixMap, len(t.prefixes))
	for k, v := range t.prefixes {
		out[k] = v
	}
	return out
}

// Mapping is one raw value and its pseudonym.
type Mapping struct {
	Raw       string
	Pseudonym string
	Online    bool
}

// StoreMappings lists store pseudonyms sorted by raw name.
func (t *Tables) StoreMappings() []Mapping {
	out := make([]Mapping, 0, len(t.stores))
	for _, raw := range sortedKeys(t.stores) {
		out = append(out, Mapping{Raw: raw, Pseudonym: t.stores[raw], Online: t.online[raw]})
	}
	return out
}

// AssociateMappings lists associate pseudonyms sorted by raw name.
func (t *Tables) AssociateMappings() []Mapping {
	out := make([]Mapping, 0, len(t.associates))
	for _, raw := range sortedKeys(t.associates) {
		out = append(out, Mapping{Raw: raw, Pseudonym: t.associates[raw]})
	}
	return out
}

// Brands returns the canonical brands known to the lookup table.
func (t *Tables) Brands() []Brand {
	return t.brands.Known()
}

func memberPrefix(id string) (string, bool) {
	r := []rune(id)
	if len(r) < memberPrefixLen {
		return "", false
	}
	return string(r[:memberPrefixLen]), true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
