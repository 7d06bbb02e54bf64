package geocoding

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"domusreport/server/config"
)

// viewboxRadius is the half-size, in degrees, of the search window placed
// around a supported city's center.
const viewboxRadius = 0.25

type coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves Italian street addresses to coordinates through
// Nominatim, with an in-memory cache persisted to disk. Lookups for cities
// in the dashboard table are biased toward that city's map window.
type Geocoder struct {
	logger    *logrus.Logger
	cacheDir  string
	cache     map[string]coordinates
	cacheLock sync.RWMutex
	client    *http.Client
	baseURL   string

	// Pause before each remote lookup, per Nominatim's usage policy.
	pause time.Duration
}

func NewGeocoder(logger *logrus.Logger, cacheDir string) *Geocoder {
	os.MkdirAll(cacheDir, 0755)

	g := &Geocoder{
		logger:   logger,
		cacheDir: cacheDir,
		cache:    make(map[string]coordinates),
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  "https://nominatim.openstreetmap.org/search",
		pause:    time.Second,
	}

	g.loadCache()

	return g
}

func (g *Geocoder) cacheFile() string {
	return filepath.Join(g.cacheDir, "geocode_cache.json")
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(g.cacheFile())
	if err != nil {
		g.logger.Warnf("Could not load geocode cache: %v", err)
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() {
	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	if err := os.WriteFile(g.cacheFile(), data, 0644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
		return
	}

	g.logger.Info("Saved geocode cache to disk")
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// GeocodeAddress resolves a street address within an Italian city.
func (g *Geocoder) GeocodeAddress(street, postalCode, city string) (float64, float64, error) {
	cacheKey := strings.ToLower(fmt.Sprintf("%s|%s|%s", street, postalCode, city))

	g.cacheLock.RLock()
	if coords, ok := g.cache[cacheKey]; ok {
		g.cacheLock.RUnlock()
		g.logger.WithFields(logrus.Fields{
			"street":    street,
			"city":      city,
			"latitude":  coords.Lat,
			"longitude": coords.Lon,
			"source":    "cache",
		}).Info("Found coordinates in cache")
		return coords.Lat, coords.Lon, nil
	}
	g.cacheLock.RUnlock()

	g.logger.WithFields(logrus.Fields{
		"street": street,
		"city":   city,
	}).Info("Geocoding address with Nominatim")

	time.Sleep(g.pause)

	params := url.Values{
		"street":       []string{street},
		"city":         []string{city},
		"country":      []string{"Italia"},
		"countrycodes": []string{"it"},
		"format":       []string{"jsonv2"},
		"limit":        []string{"1"},
	}
	if postalCode != "" {
		params.Set("postalcode", postalCode)
	}
	// Bias the search toward the city's map window when it is a city we
	// render on the dashboard.
	if c := config.GetCityByName(city); c != nil && len(c.Center) == 2 {
		params.Set("viewbox", fmt.Sprintf("%f,%f,%f,%f",
			c.Center[1]-viewboxRadius, c.Center[0]-viewboxRadius,
			c.Center[1]+viewboxRadius, c.Center[0]+viewboxRadius))
	}

	req, err := http.NewRequest("GET", g.baseURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %v", err)
	}

	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", "DomusReport Valuation Service/1.0")
	req.Header.Set("Accept-Language", "it-IT,it;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("city", city).Error("Geocoding request failed")
		return 0, 0, fmt.Errorf("geocoding request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		g.logger.WithError(err).WithField("city", city).Error("Failed to parse response")
		return 0, 0, fmt.Errorf("failed to parse response: %v", err)
	}

	if len(result) == 0 {
		g.logger.WithFields(logrus.Fields{
			"street": street,
			"city":   city,
		}).Warn("No results found")
		return 0, 0, fmt.Errorf("no results found for %s, %s", street, city)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %v", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %v", result[0].Lon, err)
	}

	g.logger.WithFields(logrus.Fields{
		"street":    street,
		"city":      city,
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	g.cacheLock.Lock()
	g.cache[cacheKey] = coordinates{Lat: lat, Lon: lon}
	g.cacheLock.Unlock()

	go g.saveCache()

	return lat, lon, nil
}
