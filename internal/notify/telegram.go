package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"domusreport/server/internal/models"
)

// Service sends lead notifications to the agency's Telegram chat.
type Service struct {
	logger  *logrus.Logger
	client  *http.Client
	config  *models.TelegramConfig
	filters *models.TelegramFilters
	baseURL string
}

func NewService(logger *logrus.Logger) *Service {
	return &Service{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: "https://api.telegram.org",
	}
}

func (s *Service) UpdateConfig(config *models.TelegramConfig) {
	s.config = config
}

func (s *Service) UpdateFilters(filters *models.TelegramFilters) {
	s.filters = filters
}

// SendMessage sends a message to the configured Telegram chat
func (s *Service) SendMessage(message string) error {
	if s.config == nil || !s.config.IsEnabled {
		return nil
	}

	if s.config.BotToken == "" {
		return errors.New("Telegram bot token is not configured")
	}

	if s.config.ChatID == "" {
		return errors.New("Telegram chat ID is not configured")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    s.config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %v", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found - please check your token from @BotFather")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyNewLead sends a notification about a freshly captured lead with its
// valuation summary.
func (s *Service) NotifyNewLead(lead *models.Lead) error {
	if s.config == nil || !s.config.IsEnabled {
		return nil
	}

	if !s.filters.IsLeadAllowed(lead) {
		s.logger.WithField("lead_id", lead.ID).Debug("Lead filtered out of notifications")
		return nil
	}

	contact := lead.Name
	if contact == "" {
		contact = lead.Email
	}

	floor := "n/a"
	if lead.Floor != nil {
		floor = fmt.Sprintf("%d", *lead.Floor)
	}

	message := fmt.Sprintf(
		"<b>New Valuation Lead!</b>\n\n"+
			"👤 %s\n"+
			"📍 %s, %s\n"+
			"🏠 %s, %.0f m², floor %s\n"+
			"🔧 Condition: %s\n"+
			"💰 Estimate: €%d (€%d – €%d)\n\n"+
			"📊 %s",
		contact,
		lead.Address,
		lead.City,
		lead.PropertyType,
		lead.SurfaceSqm,
		floor,
		lead.Condition,
		lead.EstimatedPrice,
		lead.MinPrice,
		lead.MaxPrice,
		lead.Explanation,
	)

	return s.SendMessage(message)
}
