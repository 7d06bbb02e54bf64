package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domusreport/server/internal/models"
)

func record(city, zone, postal string, kind models.PropertyKind, min, avg, max float64, year, half int) models.ReferenceRecord {
	return models.ReferenceRecord{
		City:           city,
		Zone:           zone,
		PostalCode:     postal,
		Kind:           kind,
		MinPricePerSqm: min,
		AvgPricePerSqm: avg,
		MaxPricePerSqm: max,
		Period:         models.Period{Year: year, Half: half},
		Source:         "OMI",
	}
}

func TestResolve_PrefersZoneOverCityAverage(t *testing.T) {
	records := []models.ReferenceRecord{
		record("Roma", "Trastevere", "00153", models.KindResidential, 4200, 5100, 6000, 2024, 2),
		record("Roma", "Prati", "00193", models.KindResidential, 3800, 4500, 5200, 2024, 2),
	}

	r := New()
	value, ok := r.Resolve(records, "Roma", "Trastevere", "", models.KindResidential, "")
	require.True(t, ok)
	assert.Equal(t, "Trastevere", value.Zone)
	assert.Equal(t, 5100.0, value.AvgPricePerSqm)
	assert.False(t, value.CityAverage)
}

func TestResolve_ZoneMatchIsCaseInsensitive(t *testing.T) {
	records := []models.ReferenceRecord{
		record("Roma", "Trastevere", "00153", models.KindResidential, 4200, 5100, 6000, 2024, 2),
	}

	r := New()
	value, ok := r.Resolve(records, "roma", "TRASTEVERE", "", models.KindResidential, "")
	require.True(t, ok)
	assert.Equal(t, "Trastevere", value.Zone)
}

func TestResolve_PicksMostRecentPeriod(t *testing.T) {
	records := []models.ReferenceRecord{
		record("Roma", "Trastevere", "00153", models.KindResidential, 4000, 4800, 5600, 2023, 2),
		record("Roma", "Trastevere", "00153", models.KindResidential, 4200, 5100, 6000, 2024, 2),
		record("Roma", "Trastevere", "00153", models.KindResidential, 4100, 5000, 5900, 2024, 1),
	}

	r := New()
	value, ok := r.Resolve(records, "Roma", "Trastevere", "", models.KindResidential, "")
	require.True(t, ok)
	assert.Equal(t, models.Period{Year: 2024, Half: 2}, value.Period)
	assert.Equal(t, 5100.0, value.AvgPricePerSqm)
}

func TestResolve_FallsBackToPostalCode(t *testing.T) {
	records := []models.ReferenceRecord{
		record("Roma", "", "00132", models.KindResidential, 1800, 2200, 2600, 2024, 2),
	}

	r := New()
	value, ok := r.Resolve(records, "Roma", "Borghesiana", "00132", models.KindResidential, "")
	require.True(t, ok)
	assert.Equal(t, 2200.0, value.AvgPricePerSqm)
	assert.False(t, value.CityAverage)
}

func TestResolve_CityAverageWindow(t *testing.T) {
	// Seven zone records; the average must only use the five most recent.
	records := []models.ReferenceRecord{
		record("Roma", "Zona1", "00101", models.KindResidential, 1000, 2000, 3000, 2024, 2),
		record("Roma", "Zona2", "00102", models.KindResidential, 1000, 2000, 3000, 2024, 2),
		record("Roma", "Zona3", "00103", models.KindResidential, 1000, 2000, 3000, 2024, 2),
		record("Roma", "Zona4", "00104", models.KindResidential, 1000, 2000, 3000, 2024, 2),
		record("Roma", "Zona5", "00105", models.KindResidential, 1000, 2000, 3000, 2024, 2),
		record("Roma", "Zona6", "00106", models.KindResidential, 9000, 9000, 9000, 2020, 1),
		record("Roma", "Zona7", "00107", models.KindResidential, 9000, 9000, 9000, 2020, 1),
	}

	r := New()
	value, ok := r.Resolve(records, "Roma", "Sconosciuta", "99999", models.KindResidential, "")
	require.True(t, ok)
	assert.True(t, value.CityAverage)
	assert.Equal(t, CityAverageLabel, value.Zone)
	assert.Equal(t, 1000.0, value.MinPricePerSqm)
	assert.Equal(t, 2000.0, value.AvgPricePerSqm)
	assert.Equal(t, 3000.0, value.MaxPricePerSqm)
}

func TestResolve_FiltersByKind(t *testing.T) {
	records := []models.ReferenceRecord{
		record("Roma", "Trastevere", "00153", models.KindOffices, 3000, 3500, 4000, 2024, 2),
	}

	r := New()
	_, ok := r.Resolve(records, "Roma", "Trastevere", "", models.KindResidential, "")
	assert.False(t, ok)
}

func TestResolve_FiltersByCategory(t *testing.T) {
	withCategory := record("Roma", "Trastevere", "00153", models.KindResidential, 4200, 5100, 6000, 2024, 2)
	withCategory.Category = "A/1"
	other := record("Roma", "Trastevere", "00153", models.KindResidential, 3000, 3600, 4200, 2024, 2)
	other.Category = "A/3"

	r := New()
	value, ok := r.Resolve([]models.ReferenceRecord{withCategory, other}, "Roma", "Trastevere", "", models.KindResidential, "A/3")
	require.True(t, ok)
	assert.Equal(t, 3600.0, value.AvgPricePerSqm)
}

func TestResolve_UnknownCityNotFound(t *testing.T) {
	records := []models.ReferenceRecord{
		record("Roma", "Trastevere", "00153", models.KindResidential, 4200, 5100, 6000, 2024, 2),
	}

	r := New()
	_, ok := r.Resolve(records, "Atlantis", "", "", models.KindResidential, "")
	assert.False(t, ok)
}

func TestResolve_EmptyDatasetNotFound(t *testing.T) {
	r := New()
	_, ok := r.Resolve(nil, "Roma", "", "", models.KindResidential, "")
	assert.False(t, ok)
}
