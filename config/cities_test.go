package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCityNames(t *testing.T) {
	names := GetCityNames()

	assert.Len(t, names, len(SupportedCities))
	assert.Contains(t, names, "roma")
	assert.Contains(t, names, "milano")
}

func TestGetCityByName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Exact match",
			input:    "roma",
			expected: "roma",
		},
		{
			name:     "Case-insensitive match",
			input:    "ROMA",
			expected: "roma",
		},
		{
			name:     "Mixed case",
			input:    "Firenze",
			expected: "firenze",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			city := GetCityByName(tt.input)
			require.NotNil(t, city)
			assert.Equal(t, tt.expected, city.Name)
			assert.Len(t, city.Center, 2)
			assert.Greater(t, city.ZoomLevel, 0)
		})
	}
}

func TestGetCityByName_Unknown(t *testing.T) {
	assert.Nil(t, GetCityByName("atlantide"))
}
