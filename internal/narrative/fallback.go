package narrative

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"domusreport/server/internal/models"
)

// FallbackProvider decorates a primary provider with a local one: any
// primary failure (missing credentials, network error, malformed response)
// is swallowed and the deterministic local narrative is returned instead.
// Narrate therefore never returns an error.
type FallbackProvider struct {
	logger   *logrus.Logger
	primary  Provider
	fallback Provider
}

// WithFallback wraps primary so callers always get a narrative.
func WithFallback(logger *logrus.Logger, primary Provider) *FallbackProvider {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &FallbackProvider{
		logger:   logger,
		primary:  primary,
		fallback: NewLocalProvider(),
	}
}

func (p *FallbackProvider) Narrate(ctx context.Context, req Request) (*models.Narrative, error) {
	if p.primary != nil {
		narrative, err := p.primary.Narrate(ctx, req)
		if err == nil && narrative != nil && narrative.Analysis != "" {
			return narrative, nil
		}
		if err != nil {
			p.logger.WithError(err).Warn("AI narrative failed, using local fallback")
		}
	}

	return p.fallback.Narrate(ctx, req)
}
