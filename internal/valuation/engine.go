package valuation

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"domusreport/server/internal/models"
	"domusreport/server/internal/resolver"
)

// ReferenceSource supplies the reference dataset the engine resolves base
// values from.
type ReferenceSource interface {
	Load() ([]models.ReferenceRecord, error)
}

// Engine computes price estimates from the reference dataset, the zone
// resolver and the coefficient tables, caching results per input.
type Engine struct {
	logger   *logrus.Logger
	source   ReferenceSource
	resolver *resolver.Resolver
	cache    *ResultCache
}

// NewEngine creates an engine backed by the given reference source and
// result cache.
func NewEngine(logger *logrus.Logger, source ReferenceSource, cache *ResultCache) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Engine{
		logger:   logger,
		source:   source,
		resolver: resolver.New(),
		cache:    cache,
	}
}

// Calculate produces a price range and estimate for the described property.
// Missing reference data never fails the calculation; the only error path is
// a reference dataset that exists but cannot be read.
func (e *Engine) Calculate(input models.ValuationInput) (models.ValuationResult, error) {
	key := cacheKey(input)
	if result, ok := e.cache.Get(key); ok {
		e.logger.WithField("city", input.City).Debug("Valuation served from cache")
		return result, nil
	}

	records, err := e.source.Load()
	if err != nil {
		return models.ValuationResult{}, fmt.Errorf("failed to load reference data: %w", err)
	}

	kind := input.PropertyType.Kind()
	ref, found := e.resolver.Resolve(records, input.City, input.Neighborhood, input.PostalCode, kind, input.Category)

	var minSqm, avgSqm, maxSqm float64
	var explanation []string
	if found {
		minSqm, avgSqm, maxSqm = ref.MinPricePerSqm, ref.AvgPricePerSqm, ref.MaxPricePerSqm
		explanation = append(explanation, fmt.Sprintf("Base value €%.0f/m² for %s (%s)", avgSqm, input.City, ref.Zone))
		if ref.CityAverage {
			explanation = append(explanation, "zone-level data was unavailable so a city-wide average was used and precision is reduced")
		}
	} else {
		minSqm, avgSqm, maxSqm = fallbackValue(kind)
		explanation = append(explanation, fmt.Sprintf("Base value €%.0f/m² from generic %s figures", avgSqm, kind))
		explanation = append(explanation, fmt.Sprintf("no reference data was found for %s so precision is reduced", input.City))
	}

	floorCoef := FloorCoefficient(input.Floor, input.HasElevator)
	condCoef := ConditionCoefficient(input.Condition)

	result := models.ValuationResult{
		MinPrice:             priceFor(minSqm, input.SurfaceSqm, floorCoef, condCoef),
		MaxPrice:             priceFor(maxSqm, input.SurfaceSqm, floorCoef, condCoef),
		EstimatedPrice:       priceFor(avgSqm, input.SurfaceSqm, floorCoef, condCoef),
		BaseReferenceValue:   avgSqm,
		FloorCoefficient:     floorCoef,
		ConditionCoefficient: condCoef,
	}

	explanation = append(explanation, fmt.Sprintf("surface %.0f m²", input.SurfaceSqm))
	explanation = append(explanation, floorPhrase(input.Floor, input.HasElevator, floorCoef))
	explanation = append(explanation, conditionPhrase(input.Condition, condCoef))
	result.Explanation = strings.Join(explanation, ", ") + "."

	e.cache.Set(key, result)

	e.logger.WithFields(logrus.Fields{
		"city":      input.City,
		"kind":      kind,
		"estimated": result.EstimatedPrice,
	}).Info("Computed valuation")

	return result, nil
}

func priceFor(perSqm, surface, floorCoef, condCoef float64) int {
	return int(math.Round(perSqm * surface * floorCoef * condCoef))
}

// fallbackValue returns generic €/m² figures per segment, used when the
// reference dataset has nothing for the requested city.
func fallbackValue(kind models.PropertyKind) (min, avg, max float64) {
	switch kind {
	case models.KindResidential:
		return 2800, 3500, 4200
	case models.KindBox:
		return 1200, 1800, 2400
	case models.KindCommercial:
		return 1500, 2200, 3000
	case models.KindOffices:
		return 1800, 2600, 3400
	case models.KindOther:
		return 1000, 1500, 2000
	default:
		return 1000, 1500, 2000
	}
}

func floorPhrase(floor *int, hasElevator *bool, coef float64) string {
	if floor == nil {
		return "floor not specified"
	}

	var phrase string
	switch {
	case *floor <= 0:
		phrase = "ground floor"
	case *floor == 1:
		phrase = "first floor"
	default:
		phrase = fmt.Sprintf("floor %d", *floor)
		if hasElevator != nil && *hasElevator {
			phrase += " with elevator"
		} else {
			phrase += " without elevator"
		}
	}

	if coef != 1.0 {
		phrase += fmt.Sprintf(" (%+.0f%%)", (coef-1)*100)
	}
	return phrase
}

func conditionPhrase(condition models.Condition, coef float64) string {
	name := string(condition)
	if name == "" {
		name = "unspecified"
	}
	phrase := "condition " + strings.ReplaceAll(name, "_", " ")
	if coef != 1.0 {
		phrase += fmt.Sprintf(" (%+.0f%%)", (coef-1)*100)
	}
	return phrase
}

// cacheKey derives the result cache key from the fields the calculation
// depends on.
func cacheKey(input models.ValuationInput) string {
	floor := "nil"
	if input.Floor != nil {
		floor = fmt.Sprintf("%d", *input.Floor)
	}
	elevator := "nil"
	if input.HasElevator != nil {
		elevator = fmt.Sprintf("%t", *input.HasElevator)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%.2f|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(input.City)),
		strings.ToLower(strings.TrimSpace(input.Neighborhood)),
		strings.TrimSpace(input.PostalCode),
		input.PropertyType.Kind(),
		strings.ToLower(strings.TrimSpace(input.Category)),
		input.SurfaceSqm,
		floor,
		elevator,
		input.Condition,
	)
}
