package models

import (
	"strings"
	"time"
)

// TelegramConfig stores the bot credentials, basic settings and the lead
// notification filters
type TelegramConfig struct {
	ID        int64  `json:"id" gorm:"primaryKey"`
	IsEnabled bool   `json:"is_enabled"`
	BotToken  string `json:"bot_token"`
	ChatID    string `json:"chat_id"`

	// Notification filters; nil/empty means no restriction. The list
	// columns are stored comma-separated.
	MinEstimate   *int     `json:"min_estimate"`
	MaxEstimate   *int     `json:"max_estimate"`
	MinSurfaceSqm *float64 `json:"min_surface_sqm"`
	Cities        string   `json:"cities"`
	PropertyTypes string   `json:"property_types"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filters returns the notification filter settings stored with the config.
func (c *TelegramConfig) Filters() *TelegramFilters {
	if c == nil {
		return nil
	}

	filters := &TelegramFilters{
		MinEstimate:   c.MinEstimate,
		MaxEstimate:   c.MaxEstimate,
		MinSurfaceSqm: c.MinSurfaceSqm,
		Cities:        splitList(c.Cities),
	}
	for _, t := range splitList(c.PropertyTypes) {
		filters.PropertyTypes = append(filters.PropertyTypes, PropertyType(strings.ToLower(t)))
	}
	return filters
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// TelegramConfigRequest is used when updating the configuration
type TelegramConfigRequest struct {
	IsEnabled bool   `json:"is_enabled"`
	BotToken  string `json:"bot_token"`
	ChatID    string `json:"chat_id"`

	MinEstimate   *int     `json:"min_estimate"`
	MaxEstimate   *int     `json:"max_estimate"`
	MinSurfaceSqm *float64 `json:"min_surface_sqm"`
	Cities        string   `json:"cities"`
	PropertyTypes string   `json:"property_types"`
}

// TelegramFilters stores the lead notification filter settings
type TelegramFilters struct {
	MinEstimate   *int           `json:"min_estimate"`
	MaxEstimate   *int           `json:"max_estimate"`
	MinSurfaceSqm *float64       `json:"min_surface_sqm"`
	Cities        []string       `json:"cities"`
	PropertyTypes []PropertyType `json:"property_types"`
}

// IsLeadAllowed checks if a lead matches the filter criteria
func (f *TelegramFilters) IsLeadAllowed(lead *Lead) bool {
	if f == nil {
		return true // No filters means allow all
	}

	if f.MinEstimate != nil && lead.EstimatedPrice < *f.MinEstimate {
		return false
	}
	if f.MaxEstimate != nil && lead.EstimatedPrice > *f.MaxEstimate {
		return false
	}
	if f.MinSurfaceSqm != nil && lead.SurfaceSqm < *f.MinSurfaceSqm {
		return false
	}

	if len(f.Cities) > 0 {
		allowed := false
		for _, city := range f.Cities {
			if strings.EqualFold(city, lead.City) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if len(f.PropertyTypes) > 0 {
		allowed := false
		for _, t := range f.PropertyTypes {
			if t == lead.PropertyType {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	return true
}
