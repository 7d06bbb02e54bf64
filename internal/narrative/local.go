package narrative

import (
	"context"
	"fmt"
	"strings"

	"domusreport/server/internal/models"
)

// LocalProvider builds a deterministic narrative from the property flags.
// It never fails and is the fallback for every remote provider.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (p *LocalProvider) Narrate(_ context.Context, req Request) (*models.Narrative, error) {
	var sentences []string

	sentences = append(sentences, fmt.Sprintf(
		"The property in %s was estimated at €%d, within a range of €%d to €%d.",
		displayCity(req.Input), req.Result.EstimatedPrice, req.Result.MinPrice, req.Result.MaxPrice))

	if phrase := positionPhrase(req.Input); phrase != "" {
		sentences = append(sentences, phrase)
	}
	sentences = append(sentences, conditionSentence(req.Input.Condition))
	if req.Input.HasParking != nil && *req.Input.HasParking {
		sentences = append(sentences, "A parking space adds to the property's appeal in urban areas.")
	}

	return &models.Narrative{
		Analysis:         strings.Join(sentences, " "),
		AdjustmentFactor: 1.0,
		Confidence:       ConfidenceMedium,
		Generated:        false,
	}, nil
}

func displayCity(input models.ValuationInput) string {
	if input.Neighborhood != "" {
		return fmt.Sprintf("%s (%s)", input.City, input.Neighborhood)
	}
	return input.City
}

func positionPhrase(input models.ValuationInput) string {
	if input.Floor == nil {
		return ""
	}
	switch f := *input.Floor; {
	case f <= 0:
		return "Ground-floor units typically trade at a discount, which the estimate reflects."
	case f == 1:
		return "The first-floor position is close to the market baseline for this segment."
	default:
		if input.HasElevator != nil && *input.HasElevator {
			return fmt.Sprintf("The position on floor %d with an elevator is a plus for this segment.", f)
		}
		return fmt.Sprintf("The position on floor %d without an elevator weighs on the estimate.", f)
	}
}

func conditionSentence(condition models.Condition) string {
	switch condition {
	case models.ConditionNew:
		return "As a new build, the property commands a significant premium over comparable stock."
	case models.ConditionRenovated:
		return "The recent renovation supports a price above the zone average."
	case models.ConditionToRenovate:
		return "Renovation needs were priced in, leaving room to add value through works."
	default:
		return "The overall condition is in line with the zone average."
	}
}
