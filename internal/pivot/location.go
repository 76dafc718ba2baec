package pivot

import (
	"math"
	"sort"

	"gprs_formatter/internal/ticket"
)

// Location quality categories.
const (
	CategoryRealLocation  = "Real Location"
	CategoryDummyLocation = "Dummy Location"
	CategoryNoLocation    = "No Location"
)

// LocationSlice is one category of the location-quality distribution.
type LocationSlice struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

// Locations categorizes each record by its latitude sentinel and returns
// the non-empty categories sorted descending by count, with percentages
// of the total rounded to one decimal.
func Locations(records []ticket.CanonicalRecord) []LocationSlice {
	if len(records) == 0 {
		return nil
	}
	counts := map[string]int{}
	for _, rec := range records {
		counts[categorize(rec.Latitude)]++
	}

	out := make([]LocationSlice, 0, 3)
	total := float64(len(records))
	for _, cat := range []string{CategoryRealLocation, CategoryDummyLocation, CategoryNoLocation} {
		n := counts[cat]
		if n == 0 {
			continue
		}
		out = append(out, LocationSlice{
			Category: cat,
			Count:    n,
			Percent:  math.Round(float64(n)/total*1000) / 10,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func categorize(latitude string) string {
	switch latitude {
	case ticket.NoLocation:
		return CategoryNoLocation
	case ticket.DummyLocation:
		return CategoryDummyLocation
	default:
		return CategoryRealLocation
	}
}
