package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"domusreport/server/internal/models"
)

// LeadSource supplies geocoded leads for a city. Implemented by the
// database package.
type LeadSource interface {
	GetLeadsWithCoordinates(city string) ([]models.Lead, error)
}

// ZoneHullManager builds convex hull polygons around the geocoded leads of
// each city zone, rendered on the agency dashboard map.
type ZoneHullManager struct {
	source LeadSource
	logger *logrus.Logger
}

func NewZoneHullManager(source LeadSource, logger *logrus.Logger) *ZoneHullManager {
	return &ZoneHullManager{
		source: source,
		logger: logger,
	}
}

// BuildCityHulls groups a city's geocoded leads by zone and returns one
// hull feature per zone with at least three leads.
func (m *ZoneHullManager) BuildCityHulls(city string) (*geojson.FeatureCollection, error) {
	leads, err := m.source.GetLeadsWithCoordinates(city)
	if err != nil {
		return nil, err
	}

	zones := make(map[string][]orb.Point)
	for _, lead := range leads {
		zone := lead.Neighborhood
		if zone == "" {
			zone = lead.PostalCode
		}
		if zone == "" {
			continue
		}
		zones[zone] = append(zones[zone], orb.Point{*lead.Longitude, *lead.Latitude})
	}

	fc := geojson.NewFeatureCollection()
	for zone, points := range zones {
		hull := convexHull(points)
		if hull == nil {
			m.logger.WithFields(logrus.Fields{
				"city": city,
				"zone": zone,
			}).Debug("Not enough leads for a zone hull")
			continue
		}

		feature := geojson.NewFeature(orb.Polygon{hull})
		feature.Properties = geojson.Properties{
			"zone":       zone,
			"city":       city,
			"lead_count": len(points),
		}
		fc.Append(feature)
	}

	return fc, nil
}

// convexHull runs a Graham scan over the points and returns a closed ring,
// or nil when fewer than three points are available.
func convexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return nil
	}

	pts := make([]orb.Point, len(points))
	copy(pts, points)

	// Find the leftmost point and anchor the scan there.
	leftmostIdx := 0
	for i := 1; i < len(pts); i++ {
		if pts[i][0] < pts[leftmostIdx][0] {
			leftmostIdx = i
		}
	}
	pts[0], pts[leftmostIdx] = pts[leftmostIdx], pts[0]

	anchor := pts[0]
	sort.Slice(pts[1:], func(i, j int) bool {
		return angle(anchor, pts[1+i]) < angle(anchor, pts[1+j])
	})

	hull := []orb.Point{pts[0], pts[1]}
	for i := 2; i < len(pts); i++ {
		for len(hull) > 1 {
			n := len(hull)
			v1x := hull[n-1][0] - hull[n-2][0]
			v1y := hull[n-1][1] - hull[n-2][1]
			v2x := pts[i][0] - hull[n-2][0]
			v2y := pts[i][1] - hull[n-2][1]
			if v1x*v2y-v1y*v2x >= 0 {
				break
			}
			hull = hull[:n-1]
		}
		hull = append(hull, pts[i])
	}

	if len(hull) < 3 {
		return nil
	}
	hull = append(hull, hull[0])
	return orb.Ring(hull)
}

func angle(center, p orb.Point) float64 {
	return math.Atan2(p[1]-center[1], p[0]-center[0])
}
