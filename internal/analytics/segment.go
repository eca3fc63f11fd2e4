package analytics

import (
	"hash/fnv"

	"github.com/smallbiznis/storepulse/internal/demographic"
)

const (
	AgeGenderSourceDemographic = "demographic"
	AgeGenderSourceHash        = "hash"
)

// band is one fixed segment: customers whose metric is at least Min fall into
// the first matching band.
type band struct {
	name string
	min  float64
}

var valueBands = []band{
	{name: "VIP", min: 100000},
	{name: "High", min: 50000},
	{name: "Middle", min: 10000},
	{name: "Light", min: 0},
}

var frequencyBands = []band{
	{name: "Loyal", min: 10},
	{name: "Regular", min: 5},
	{name: "Repeat", min: 2},
	{name: "One-time", min: 0},
}

var aovBands = []band{
	{name: "Premium", min: 30000},
	{name: "Upper", min: 15000},
	{name: "Standard", min: 5000},
	{name: "Entry", min: 0},
}

// segmentBy assigns each customer to exactly one band; every band is emitted.
func segmentBy(customers []CustomerAggregate, bands []band, metric func(CustomerAggregate) float64) []Segment {
	out := make([]Segment, len(bands))
	for i, b := range bands {
		out[i].Name = b.name
	}
	for _, c := range customers {
		v := metric(c)
		for i, b := range bands {
			if v >= b.min || i == len(bands)-1 {
				out[i].Customers++
				out[i].Revenue += c.Revenue
				break
			}
		}
	}
	for i := range out {
		out[i].AverageRevenue = round2(safeDiv(out[i].Revenue, float64(out[i].Customers)))
		out[i].Share = percent(out[i].Customers, len(customers))
	}
	return out
}

func ValueSegments(customers []CustomerAggregate) []Segment {
	return segmentBy(customers, valueBands, func(c CustomerAggregate) float64 { return c.Revenue })
}

func FrequencySegments(customers []CustomerAggregate) []Segment {
	return segmentBy(customers, frequencyBands, func(c CustomerAggregate) float64 { return float64(c.Transactions) })
}

func AOVSegments(customers []CustomerAggregate) []Segment {
	return segmentBy(customers, aovBands, CustomerAggregate.AverageOrderValue)
}

var hashAgeBands = demographic.AgeBands[:len(demographic.AgeBands)-1]

var hashGenders = []string{demographic.GenderFemale, demographic.GenderMale}

// AgeGenderSegments groups customers by age band and gender. Without a lookup
// every customer is placed by an FNV hash of the member id, which is stable but
// carries no demographic meaning.
func AgeGenderSegments(customers []CustomerAggregate, lookup demographic.Lookup) ([]AgeGenderSegment, string) {
	source := AgeGenderSourceDemographic
	if len(lookup) == 0 {
		source = AgeGenderSourceHash
	}

	type cellKey struct{ age, gender string }
	cells := map[cellKey]*AgeGenderSegment{}
	for _, c := range customers {
		var p demographic.Profile
		if source == AgeGenderSourceHash {
			p = hashProfile(c.MemberID)
		} else if found, ok := lookup.Get(c.MemberID); ok {
			p = found
		} else {
			p = demographic.Profile{AgeBand: demographic.AgeBandUnknown, Gender: demographic.GenderUnknown}
		}
		k := cellKey{p.AgeBand, p.Gender}
		seg, ok := cells[k]
		if !ok {
			seg = &AgeGenderSegment{AgeBand: p.AgeBand, Gender: p.Gender}
			cells[k] = seg
		}
		seg.Customers++
		seg.Revenue += c.Revenue
	}

	out := make([]AgeGenderSegment, 0, len(cells))
	for _, age := range demographic.AgeBands {
		for _, gender := range demographic.Genders {
			if seg, ok := cells[cellKey{age, gender}]; ok {
				seg.Share = percent(seg.Customers, len(customers))
				out = append(out, *seg)
			}
		}
	}
	return out, source
}

func hashProfile(memberID string) demographic.Profile {
	h := fnv.New32a()
	_, _ = h.Write([]byte(memberID))
	sum := h.Sum32()
	return demographic.Profile{
		AgeBand: hashAgeBands[sum%uint32(len(hashAgeBands))],
		Gender:  hashGenders[(sum/uint32(len(hashAgeBands)))%uint32(len(hashGenders))],
	}
}
