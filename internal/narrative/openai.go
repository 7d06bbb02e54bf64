package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"domusreport/server/internal/models"
)

// ErrNoAPIKey is returned when the provider is constructed without
// credentials; callers wrap the provider with a fallback so the valuation
// flow keeps working.
var ErrNoAPIKey = errors.New("completion API key is not configured")

// OpenAIProvider requests a short analysis and an advisory adjustment
// factor from a chat-completion API.
type OpenAIProvider struct {
	logger  *logrus.Logger
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

func NewOpenAIProvider(logger *logrus.Logger, apiKey, baseURL, model string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// analysisPayload is the structured JSON the model is instructed to return.
type analysisPayload struct {
	Analysis         string  `json:"analysis"`
	AdjustmentFactor float64 `json:"adjustment_factor"`
	Confidence       string  `json:"confidence"`
}

func (p *OpenAIProvider) Narrate(ctx context.Context, req Request) (*models.Narrative, error) {
	if p.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	payload := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, errors.New("invalid completion API key")
		case http.StatusTooManyRequests:
			return nil, errors.New("completion API rate limit exceeded")
		default:
			return nil, fmt.Errorf("completion API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, errors.New("completion response contained no choices")
	}

	var analysis analysisPayload
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis payload: %w", err)
	}
	if analysis.Analysis == "" {
		return nil, errors.New("completion returned an empty analysis")
	}

	confidence := analysis.Confidence
	switch confidence {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		confidence = ConfidenceMedium
	}

	factor := analysis.AdjustmentFactor
	if factor == 0 {
		factor = 1.0
	}

	p.logger.WithFields(logrus.Fields{
		"model":      p.model,
		"confidence": confidence,
	}).Info("Generated AI narrative")

	return &models.Narrative{
		Analysis:         analysis.Analysis,
		AdjustmentFactor: clampAdjustment(factor),
		Confidence:       confidence,
		Generated:        true,
	}, nil
}

const systemPrompt = `You are a real-estate analyst. Given a property description and a computed price range, write a short market analysis for the property owner. Respond with a JSON object: {"analysis": string, "adjustment_factor": number between 0.9 and 1.1, "confidence": "high"|"medium"|"low"}.`

func userPrompt(req Request) string {
	data, _ := json.Marshal(map[string]interface{}{
		"address":         req.Input.Address,
		"city":            req.Input.City,
		"neighborhood":    req.Input.Neighborhood,
		"property_type":   req.Input.PropertyType,
		"surface_sqm":     req.Input.SurfaceSqm,
		"floor":           req.Input.Floor,
		"has_elevator":    req.Input.HasElevator,
		"condition":       req.Input.Condition,
		"min_price":       req.Result.MinPrice,
		"max_price":       req.Result.MaxPrice,
		"estimated_price": req.Result.EstimatedPrice,
	})
	return string(data)
}
