package narrative

import (
	"context"

	"domusreport/server/internal/models"
)

// Confidence labels attached to a narrative.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Adjustment factor bounds. Whatever the provider suggests is clamped here;
// applying the factor at all is the caller's decision.
const (
	MinAdjustmentFactor = 0.90
	MaxAdjustmentFactor = 1.10
)

// Request carries the property description and the already-computed
// valuation a narrative is requested for. Providers must never change the
// numeric prices.
type Request struct {
	Input  models.ValuationInput
	Result models.ValuationResult
}

// Provider produces a human-readable analysis for a computed valuation.
type Provider interface {
	Narrate(ctx context.Context, req Request) (*models.Narrative, error)
}

func clampAdjustment(factor float64) float64 {
	if factor < MinAdjustmentFactor {
		return MinAdjustmentFactor
	}
	if factor > MaxAdjustmentFactor {
		return MaxAdjustmentFactor
	}
	return factor
}
