package geocoding

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGeocoder(t *testing.T, handler http.HandlerFunc) (*Geocoder, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	g := NewGeocoder(logrus.New(), t.TempDir())
	g.baseURL = server.URL
	g.pause = 0
	return g, server
}

func TestGeocodeAddress_StructuredQuery(t *testing.T) {
	var query url.Values
	g, server := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`[{"lat":"41.889","lon":"12.469"}]`))
	})
	defer server.Close()

	lat, lon, err := g.GeocodeAddress("Via della Lungara 10", "00165", "Roma")
	require.NoError(t, err)
	assert.Equal(t, 41.889, lat)
	assert.Equal(t, 12.469, lon)

	assert.Equal(t, "Via della Lungara 10", query.Get("street"))
	assert.Equal(t, "Roma", query.Get("city"))
	assert.Equal(t, "00165", query.Get("postalcode"))
	assert.Equal(t, "it", query.Get("countrycodes"))
	// Roma is in the dashboard city table, so the search is biased to its
	// map window.
	assert.NotEmpty(t, query.Get("viewbox"))
}

func TestGeocodeAddress_NoViewboxForUnlistedCity(t *testing.T) {
	var query url.Values
	g, server := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`[{"lat":"44.494","lon":"11.342"}]`))
	})
	defer server.Close()

	_, _, err := g.GeocodeAddress("Via Zamboni 33", "40126", "Bologna")
	require.NoError(t, err)
	assert.Empty(t, query.Get("viewbox"))
}

func TestGeocodeAddress_CacheAvoidsSecondRequest(t *testing.T) {
	calls := 0
	g, server := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"lat":"41.889","lon":"12.469"}]`))
	})
	defer server.Close()

	_, _, err := g.GeocodeAddress("Via della Lungara 10", "00165", "Roma")
	require.NoError(t, err)

	lat, lon, err := g.GeocodeAddress("Via della Lungara 10", "00165", "Roma")
	require.NoError(t, err)
	assert.Equal(t, 41.889, lat)
	assert.Equal(t, 12.469, lon)
	assert.Equal(t, 1, calls)
}

func TestGeocodeAddress_NoResultsIsAnError(t *testing.T) {
	g, server := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	defer server.Close()

	_, _, err := g.GeocodeAddress("Via Inesistente 1", "", "Roma")
	assert.Error(t, err)
}

func TestGeocodeAddress_InvalidCoordinatesAreAnError(t *testing.T) {
	g, server := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat":"north","lon":"east"}]`))
	})
	defer server.Close()

	_, _, err := g.GeocodeAddress("Via della Lungara 10", "", "Roma")
	assert.Error(t, err)
}
