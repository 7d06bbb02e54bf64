package narrative

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domusreport/server/internal/models"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func sampleRequest() Request {
	return Request{
		Input: models.ValuationInput{
			City:         "Roma",
			Neighborhood: "Trastevere",
			PropertyType: models.TypeApartment,
			SurfaceSqm:   75,
			Floor:        intPtr(3),
			HasElevator:  boolPtr(false),
			Condition:    models.ConditionGood,
		},
		Result: models.ValuationResult{
			MinPrice:       280000,
			MaxPrice:       390000,
			EstimatedPrice: 330000,
		},
	}
}

type failingProvider struct{}

func (failingProvider) Narrate(context.Context, Request) (*models.Narrative, error) {
	return nil, errors.New("upstream timeout")
}

func TestLocalProvider_NonEmptyAnalysis(t *testing.T) {
	provider := NewLocalProvider()

	narrative, err := provider.Narrate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, narrative.Analysis)
	assert.Equal(t, 1.0, narrative.AdjustmentFactor)
	assert.Equal(t, ConfidenceMedium, narrative.Confidence)
	assert.False(t, narrative.Generated)
}

func TestLocalProvider_Deterministic(t *testing.T) {
	provider := NewLocalProvider()

	a, err := provider.Narrate(context.Background(), sampleRequest())
	require.NoError(t, err)
	b, err := provider.Narrate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFallback_PrimaryFailureUsesLocal(t *testing.T) {
	provider := WithFallback(logrus.New(), failingProvider{})
	req := sampleRequest()

	narrative, err := provider.Narrate(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, narrative.Analysis)

	// The computed prices must be untouched by the failed AI call.
	assert.Equal(t, 330000, req.Result.EstimatedPrice)
	assert.Equal(t, 280000, req.Result.MinPrice)
	assert.Equal(t, 390000, req.Result.MaxPrice)
}

func TestFallback_NilPrimaryUsesLocal(t *testing.T) {
	provider := WithFallback(logrus.New(), nil)

	narrative, err := provider.Narrate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, narrative.Analysis)
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	provider := NewOpenAIProvider(logrus.New(), "", "https://api.openai.com/v1", "gpt-4o-mini", time.Second)

	_, err := provider.Narrate(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestOpenAIProvider_ParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"analysis\":\"A solid mid-range property.\",\"adjustment_factor\":1.25,\"confidence\":\"high\"}"}}]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(logrus.New(), "test-key", server.URL, "gpt-4o-mini", time.Second)

	narrative, err := provider.Narrate(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "A solid mid-range property.", narrative.Analysis)
	// The out-of-range suggestion is clamped to the documented bound.
	assert.Equal(t, MaxAdjustmentFactor, narrative.AdjustmentFactor)
	assert.Equal(t, ConfidenceHigh, narrative.Confidence)
	assert.True(t, narrative.Generated)
}

func TestOpenAIProvider_MalformedResponseIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"not json"}}]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(logrus.New(), "test-key", server.URL, "gpt-4o-mini", time.Second)

	_, err := provider.Narrate(context.Background(), sampleRequest())
	assert.Error(t, err)
}

func TestOpenAIProvider_ServerErrorIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewOpenAIProvider(logrus.New(), "test-key", server.URL, "gpt-4o-mini", time.Second)

	_, err := provider.Narrate(context.Background(), sampleRequest())
	assert.Error(t, err)
}
