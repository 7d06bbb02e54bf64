package resolver

import (
	"math"
	"sort"
	"strings"

	"domusreport/server/internal/models"
)

// CityAverageLabel marks a reference value aggregated from city-wide records
// rather than matched to a specific zone or postal code.
const CityAverageLabel = "city average"

// ReferenceValue is the resolved price-per-sqm range for a query.
type ReferenceValue struct {
	City           string
	Zone           string
	MinPricePerSqm float64
	AvgPricePerSqm float64
	MaxPricePerSqm float64
	Period         models.Period
	Source         string
	CityAverage    bool
}

// Resolver finds the most specific reference record for a property query,
// narrowing progressively: zone match, postal-code match, then a city-wide
// average built from the most recent records.
type Resolver struct {
	// Number of most recent records averaged for the city-wide fallback.
	cityAverageWindow int
}

func New() *Resolver {
	return &Resolver{cityAverageWindow: 5}
}

// Resolve returns the best matching reference value for the query, or false
// when no record exists for the city at all. Matching on city, zone and
// postal code is case-insensitive after trimming.
func (r *Resolver) Resolve(records []models.ReferenceRecord, city, zone, postalCode string, kind models.PropertyKind, category string) (*ReferenceValue, bool) {
	city = strings.TrimSpace(city)
	zone = strings.TrimSpace(zone)
	postalCode = strings.TrimSpace(postalCode)
	category = strings.TrimSpace(category)

	cityRecords := filter(records, func(rec models.ReferenceRecord) bool {
		if !strings.EqualFold(rec.City, city) {
			return false
		}
		if rec.Kind != kind {
			return false
		}
		if category != "" && rec.Category != "" && !strings.EqualFold(rec.Category, category) {
			return false
		}
		return true
	})
	if len(cityRecords) == 0 {
		return nil, false
	}

	if zone != "" {
		matches := filter(cityRecords, func(rec models.ReferenceRecord) bool {
			return strings.EqualFold(rec.Zone, zone)
		})
		if rec, ok := mostRecent(matches); ok {
			return fromRecord(rec), true
		}
	}

	if postalCode != "" {
		matches := filter(cityRecords, func(rec models.ReferenceRecord) bool {
			return strings.EqualFold(rec.PostalCode, postalCode)
		})
		if rec, ok := mostRecent(matches); ok {
			return fromRecord(rec), true
		}
	}

	return r.cityAverage(city, cityRecords), true
}

// cityAverage builds a pseudo-zone value by averaging the most recent
// records for the city. Precision is reduced, so the value is flagged and
// labeled for downstream consumers.
func (r *Resolver) cityAverage(city string, records []models.ReferenceRecord) *ReferenceValue {
	sorted := make([]models.ReferenceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Period.After(sorted[j].Period)
	})

	window := r.cityAverageWindow
	if window <= 0 {
		window = 5
	}
	if len(sorted) > window {
		sorted = sorted[:window]
	}

	var minSum, avgSum, maxSum float64
	for _, rec := range sorted {
		minSum += rec.MinPricePerSqm
		avgSum += rec.AvgPricePerSqm
		maxSum += rec.MaxPricePerSqm
	}
	n := float64(len(sorted))

	return &ReferenceValue{
		City:           city,
		Zone:           CityAverageLabel,
		MinPricePerSqm: math.Round(minSum / n),
		AvgPricePerSqm: math.Round(avgSum / n),
		MaxPricePerSqm: math.Round(maxSum / n),
		Period:         sorted[0].Period,
		Source:         sorted[0].Source,
		CityAverage:    true,
	}
}

func fromRecord(rec models.ReferenceRecord) *ReferenceValue {
	zone := rec.Zone
	if zone == "" {
		zone = rec.PostalCode
	}
	return &ReferenceValue{
		City:           rec.City,
		Zone:           zone,
		MinPricePerSqm: rec.MinPricePerSqm,
		AvgPricePerSqm: rec.AvgPricePerSqm,
		MaxPricePerSqm: rec.MaxPricePerSqm,
		Period:         rec.Period,
		Source:         rec.Source,
	}
}

// mostRecent picks the record with the highest period (year, then half).
func mostRecent(records []models.ReferenceRecord) (models.ReferenceRecord, bool) {
	if len(records) == 0 {
		return models.ReferenceRecord{}, false
	}
	best := records[0]
	for _, rec := range records[1:] {
		if rec.Period.After(best.Period) {
			best = rec
		}
	}
	return best, true
}

func filter(records []models.ReferenceRecord, keep func(models.ReferenceRecord) bool) []models.ReferenceRecord {
	var out []models.ReferenceRecord
	for _, rec := range records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
