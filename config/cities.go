package config

import "strings"

// City represents a city configuration
type City struct {
	Name      string    `json:"name"`
	Center    []float64 `json:"center"`
	ZoomLevel int       `json:"zoom_level"`
}

// SupportedCities is a list of cities with dashboard map support
var SupportedCities = []City{
	{
		Name:      "roma",
		Center:    []float64{41.9028, 12.4964},
		ZoomLevel: 12,
	},
	{
		Name:      "milano",
		Center:    []float64{45.4642, 9.1900},
		ZoomLevel: 13,
	},
	{
		Name:      "torino",
		Center:    []float64{45.0703, 7.6869},
		ZoomLevel: 13,
	},
	{
		Name:      "napoli",
		Center:    []float64{40.8518, 14.2681},
		ZoomLevel: 13,
	},
	{
		Name:      "firenze",
		Center:    []float64{43.7696, 11.2558},
		ZoomLevel: 13,
	},
	// Add more cities here as needed
}

// GetCityNames returns a list of supported city names
func GetCityNames() []string {
	names := make([]string, len(SupportedCities))
	for i, city := range SupportedCities {
		names[i] = city.Name
	}
	return names
}

// GetCityByName returns a city configuration by name
func GetCityByName(name string) *City {
	for _, city := range SupportedCities {
		if strings.EqualFold(city.Name, name) {
			return &city
		}
	}
	return nil
}
