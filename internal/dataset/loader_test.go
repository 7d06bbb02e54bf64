package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domusreport/server/internal/models"
)

const sampleCSV = `city,zone,postal_code,property_kind,category,min_price_sqm,avg_price_sqm,max_price_sqm,year,half,source
Roma,Trastevere,00153,residential,A/2,4200,5100,6000,2024,2,OMI
Roma,,00132,residential,A/3,1800,2200,2600,2024,2,OMI
Milano,Brera,20121,residential,A/1,7500,9000,10500,2024,1,OMI
`

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "reference_prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_Load(t *testing.T) {
	logger := logrus.New()
	path := writeDataset(t, sampleCSV)
	loader := NewLoader(logger, path, 30*time.Minute)

	records, err := loader.Load()
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "Roma", first.City)
	assert.Equal(t, "Trastevere", first.Zone)
	assert.Equal(t, "00153", first.PostalCode)
	assert.Equal(t, models.KindResidential, first.Kind)
	assert.Equal(t, 4200.0, first.MinPricePerSqm)
	assert.Equal(t, 5100.0, first.AvgPricePerSqm)
	assert.Equal(t, 6000.0, first.MaxPricePerSqm)
	assert.Equal(t, models.Period{Year: 2024, Half: 2}, first.Period)
	assert.Equal(t, "OMI", first.Source)
}

func TestLoader_MissingFileReturnsEmpty(t *testing.T) {
	logger := logrus.New()
	loader := NewLoader(logger, filepath.Join(t.TempDir(), "nope.csv"), 30*time.Minute)

	records, err := loader.Load()
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoader_CorruptFileIsAnError(t *testing.T) {
	logger := logrus.New()
	path := writeDataset(t, "Roma,Trastevere,00153,residential,A/2,not-a-number,5100,6000,2024,2,OMI\n")
	loader := NewLoader(logger, path, 30*time.Minute)

	_, err := loader.Load()
	assert.Error(t, err)
}

func TestLoader_CachesWithinTTL(t *testing.T) {
	logger := logrus.New()
	path := writeDataset(t, sampleCSV)
	loader := NewLoader(logger, path, 30*time.Minute)

	first, err := loader.Load()
	require.NoError(t, err)
	require.Len(t, first, 3)

	// Replace the file; the cached slice must still be served.
	require.NoError(t, os.WriteFile(path, []byte("city,zone,postal_code,property_kind,category,min_price_sqm,avg_price_sqm,max_price_sqm,year,half,source\n"), 0644))

	second, err := loader.Load()
	require.NoError(t, err)
	assert.Len(t, second, 3)
}

func TestLoader_ReloadsAfterTTL(t *testing.T) {
	logger := logrus.New()
	path := writeDataset(t, sampleCSV)
	loader := NewLoader(logger, path, 30*time.Minute)

	_, err := loader.Load()
	require.NoError(t, err)

	// Age the cache past the TTL.
	current := time.Now()
	loader.now = func() time.Time { return current.Add(31 * time.Minute) }

	require.NoError(t, os.WriteFile(path, []byte(
		"city,zone,postal_code,property_kind,category,min_price_sqm,avg_price_sqm,max_price_sqm,year,half,source\n"+
			"Torino,Centro,10121,residential,A/2,2500,3000,3500,2025,1,OMI\n"), 0644))

	records, err := loader.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Torino", records[0].City)
}

func TestLoader_InvalidateForcesReload(t *testing.T) {
	logger := logrus.New()
	path := writeDataset(t, sampleCSV)
	loader := NewLoader(logger, path, 30*time.Minute)

	_, err := loader.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(
		"city,zone,postal_code,property_kind,category,min_price_sqm,avg_price_sqm,max_price_sqm,year,half,source\n"+
			"Napoli,Vomero,80127,residential,A/2,2400,2900,3400,2025,1,OMI\n"), 0644))

	loader.Invalidate()

	records, err := loader.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Napoli", records[0].City)
}
