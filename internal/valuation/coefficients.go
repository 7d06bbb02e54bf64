package valuation

import "domusreport/server/internal/models"

// Floor coefficient bounds. The bracket math cannot currently leave this
// range, the clamp guards the documented contract.
const (
	minFloorCoefficient = 0.85
	maxFloorCoefficient = 1.15
)

// FloorCoefficient returns the multiplicative adjustment for the floor a
// property is on. An unknown floor is neutral. Floors above the first get a
// bonus with an elevator and a penalty without one.
func FloorCoefficient(floor *int, hasElevator *bool) float64 {
	if floor == nil {
		return 1.0
	}

	var coef float64
	switch f := *floor; {
	case f <= 0:
		coef = 0.92
	case f == 1:
		coef = 0.97
	case f == 2:
		coef = 1.00
	case f == 3:
		coef = 1.03
	default:
		coef = 1.05
	}

	if *floor > 1 {
		if hasElevator != nil && *hasElevator {
			coef += 0.03
		} else {
			coef -= 0.05
		}
	}

	return clamp(coef, minFloorCoefficient, maxFloorCoefficient)
}

// ConditionCoefficient returns the fixed adjustment for the declared state
// of maintenance. The constants are domain heuristics, not statistics; an
// unknown condition is neutral.
func ConditionCoefficient(condition models.Condition) float64 {
	switch condition {
	case models.ConditionNew:
		return 1.25
	case models.ConditionRenovated:
		return 1.12
	case models.ConditionGood:
		return 1.00
	case models.ConditionToRenovate:
		return 0.82
	default:
		return 1.00
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
