package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"domusreport/server/config"
	"domusreport/server/internal/database"
	"domusreport/server/internal/dataset"
	"domusreport/server/internal/geometry"
	"domusreport/server/internal/models"
	"domusreport/server/internal/narrative"
	"domusreport/server/internal/notify"
	"domusreport/server/internal/queue"
	"domusreport/server/internal/valuation"
)

type Handler struct {
	db          *database.Database
	logger      *logrus.Logger
	loader      *dataset.Loader
	engine      *valuation.Engine
	narrator    narrative.Provider
	leadQueue   *queue.LeadQueue
	hullManager *geometry.ZoneHullManager
	telegram    *notify.Service
}

// ValuationRequest is the payload posted by the chat widget after basic
// front-end validation.
type ValuationRequest struct {
	Name         string              `json:"name"`
	Email        string              `json:"email" binding:"omitempty,email"`
	Phone        string              `json:"phone"`
	Address      string              `json:"address" binding:"required"`
	City         string              `json:"city" binding:"required"`
	Neighborhood string              `json:"neighborhood"`
	PostalCode   string              `json:"postal_code"`
	PropertyType models.PropertyType `json:"property_type" binding:"required"`
	Category     string              `json:"category"`
	SurfaceSqm   float64             `json:"surface_sqm" binding:"required,gt=0"`
	Floor        *int                `json:"floor"`
	HasElevator  *bool               `json:"has_elevator"`
	HasParking   *bool               `json:"has_parking"`
	Condition    models.Condition    `json:"condition"`
}

type ValuationResponse struct {
	Valuation models.ValuationResult `json:"valuation"`
	Narrative models.Narrative       `json:"narrative"`
}

func NewHandler(
	db *database.Database,
	logger *logrus.Logger,
	loader *dataset.Loader,
	engine *valuation.Engine,
	narrator narrative.Provider,
	leadQueue *queue.LeadQueue,
	telegram *notify.Service,
) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:          db,
		logger:      logger,
		loader:      loader,
		engine:      engine,
		narrator:    narrator,
		leadQueue:   leadQueue,
		hullManager: geometry.NewZoneHullManager(db, logger),
		telegram:    telegram,
	}
}

// CreateValuation computes a price estimate for the described property,
// stores the interaction as a lead and returns the result to the widget.
func (h *Handler) CreateValuation(c *gin.Context) {
	var req ValuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse valuation request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	input := models.ValuationInput{
		Address:      req.Address,
		City:         req.City,
		Neighborhood: req.Neighborhood,
		PostalCode:   req.PostalCode,
		PropertyType: req.PropertyType,
		Category:     req.Category,
		SurfaceSqm:   req.SurfaceSqm,
		Floor:        req.Floor,
		HasElevator:  req.HasElevator,
		HasParking:   req.HasParking,
		Condition:    req.Condition,
	}

	result, err := h.engine.Calculate(input)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute valuation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute valuation"})
		return
	}

	// The narrator is fallback-wrapped and never fails.
	story, err := h.narrator.Narrate(c.Request.Context(), narrative.Request{Input: input, Result: result})
	if err != nil || story == nil {
		h.logger.WithError(err).Error("Narrative provider returned no result")
		story = &models.Narrative{Analysis: result.Explanation, AdjustmentFactor: 1.0, Confidence: narrative.ConfidenceLow}
	}

	lead := &models.Lead{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		City:           req.City,
		Neighborhood:   req.Neighborhood,
		PostalCode:     req.PostalCode,
		PropertyType:   req.PropertyType,
		SurfaceSqm:     req.SurfaceSqm,
		Floor:          req.Floor,
		HasElevator:    req.HasElevator,
		Condition:      req.Condition,
		MinPrice:       result.MinPrice,
		MaxPrice:       result.MaxPrice,
		EstimatedPrice: result.EstimatedPrice,
		Explanation:    result.Explanation,
		Analysis:       story.Analysis,
		Confidence:     story.Confidence,
	}

	if err := h.leadQueue.Push([]*models.Lead{lead}); err != nil {
		// The visitor still gets their estimate; only persistence lagged.
		h.logger.WithError(err).Error("Failed to enqueue lead")
	}

	if h.telegram != nil {
		go func(lead models.Lead) {
			if err := h.telegram.NotifyNewLead(&lead); err != nil {
				h.logger.WithError(err).Error("Failed to send lead notification")
			}
		}(*lead)
	}

	c.JSON(http.StatusOK, ValuationResponse{Valuation: result, Narrative: *story})
}

// GetRecentLeads returns the newest stored leads.
func (h *Handler) GetRecentLeads(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 10
	}

	city := c.Query("city")
	leads, err := h.db.GetRecentLeads(limit, city)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recent leads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recent leads"})
		return
	}

	c.JSON(http.StatusOK, leads)
}

// GetLeadStats returns aggregate lead figures for the dashboard.
func (h *Handler) GetLeadStats(c *gin.Context) {
	city := c.Query("city")
	stats, err := h.db.GetLeadStats(city)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get lead stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get lead stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetCityReference returns the reference records known for a city.
func (h *Handler) GetCityReference(c *gin.Context) {
	city := c.Param("city")

	records, err := h.loader.Load()
	if err != nil {
		h.logger.WithError(err).Error("Failed to load reference dataset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load reference data"})
		return
	}

	var matches []models.ReferenceRecord
	for _, record := range records {
		if strings.EqualFold(record.City, city) {
			matches = append(matches, record)
		}
	}

	if len(matches) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No reference data for city"})
		return
	}

	c.JSON(http.StatusOK, matches)
}

// GetZoneHulls returns GeoJSON hull polygons built from a city's geocoded
// leads.
func (h *Handler) GetZoneHulls(c *gin.Context) {
	city := c.Param("city")
	if config.GetCityByName(city) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unsupported city"})
		return
	}

	hulls, err := h.hullManager.BuildCityHulls(city)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build zone hulls")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build zone hulls"})
		return
	}

	c.JSON(http.StatusOK, hulls)
}

// GetCities lists cities with dashboard map support.
func (h *Handler) GetCities(c *gin.Context) {
	c.JSON(http.StatusOK, config.SupportedCities)
}

// RefreshDataset drops the reference cache and reloads the file.
func (h *Handler) RefreshDataset(c *gin.Context) {
	h.loader.Invalidate()
	records, err := h.loader.Load()
	if err != nil {
		h.logger.WithError(err).Error("Failed to refresh reference dataset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh dataset"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "Dataset refreshed",
		"records": len(records),
	})
}

// UpdateCoordinates triggers a geocoding sweep over stored leads.
func (h *Handler) UpdateCoordinates(geocoder database.Geocoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.db.UpdateMissingCoordinates(geocoder); err != nil {
			h.logger.WithError(err).Error("Failed to update coordinates")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update coordinates"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "Coordinates update process started",
		})
	}
}

// GetTelegramConfig returns the current Telegram configuration
func (h *Handler) GetTelegramConfig(c *gin.Context) {
	cfg, err := h.db.GetTelegramConfig()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get Telegram config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get Telegram config"})
		return
	}

	if cfg == nil {
		c.JSON(http.StatusOK, gin.H{
			"is_enabled": false,
			"chat_id":    "",
			"bot_token":  "",
		})
		return
	}

	// Don't send the full bot token back to the client for security
	if len(cfg.BotToken) > 4 {
		cfg.BotToken = "••••" + cfg.BotToken[len(cfg.BotToken)-4:]
	}
	c.JSON(http.StatusOK, cfg)
}

// UpdateTelegramConfig updates the Telegram configuration
func (h *Handler) UpdateTelegramConfig(c *gin.Context) {
	var request models.TelegramConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.WithError(err).Error("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Basic validation
	if len(request.BotToken) < 20 || !strings.Contains(request.BotToken, ":") {
		h.logger.Error("Invalid bot token format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bot token format. Please check your bot token from @BotFather"})
		return
	}

	if request.ChatID == "" {
		h.logger.Error("Chat ID is required")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Chat ID is required"})
		return
	}

	// Test the Telegram configuration before saving
	testService := notify.NewService(h.logger)
	testService.UpdateConfig(&models.TelegramConfig{
		BotToken:  request.BotToken,
		ChatID:    request.ChatID,
		IsEnabled: true,
	})

	testMessage := "🔔 Test notification from DomusReport\n\nIf you see this message, your Telegram configuration is working correctly!"
	if err := testService.SendMessage(testMessage); err != nil {
		h.logger.WithError(err).Error("Failed to send test message")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Save the configuration
	if err := h.db.UpdateTelegramConfig(&request); err != nil {
		h.logger.WithError(err).Error("Failed to update Telegram config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save configuration to database"})
		return
	}

	// Update the service configuration
	if cfg, err := h.db.GetTelegramConfig(); err == nil && cfg != nil && h.telegram != nil {
		h.telegram.UpdateConfig(cfg)
		h.telegram.UpdateFilters(cfg.Filters())
	}

	c.JSON(http.StatusOK, gin.H{"message": "Telegram configuration updated successfully"})
}
