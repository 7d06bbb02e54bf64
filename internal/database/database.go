package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"domusreport/server/internal/models"
)

// Geocoder resolves an address to coordinates. Implemented by the geocoding
// package; declared here so the store does not depend on it directly.
type Geocoder interface {
	GeocodeAddress(street, postalCode, city string) (float64, float64, error)
}

// Database wraps the gorm connection for lead storage.
type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{db: db, logger: logger}, nil
}

// RunMigrations creates or updates the schema.
func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&models.Lead{}, &models.TelegramConfig{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// GetDB exposes the underlying gorm handle for collaborators that manage
// their own transactions.
func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertLeads stores a batch of leads inside tx.
func InsertLeads(tx *gorm.DB, leads []*models.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	if err := tx.Create(leads).Error; err != nil {
		return fmt.Errorf("failed to insert leads: %w", err)
	}
	return nil
}

// GetRecentLeads returns the newest leads, optionally filtered by city.
func (d *Database) GetRecentLeads(limit int, city string) ([]models.Lead, error) {
	if limit <= 0 {
		limit = 10
	}

	query := d.db.Order("created_at DESC").Limit(limit)
	if city != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(city))
	}

	var leads []models.Lead
	if err := query.Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to query recent leads: %w", err)
	}
	return leads, nil
}

// GetLeadStats aggregates stored leads, optionally filtered by city.
func (d *Database) GetLeadStats(city string) (models.LeadStats, error) {
	query := d.db.Model(&models.Lead{}).Select(`
		COUNT(*) as total_leads,
		COALESCE(AVG(estimated_price), 0) as average_estimate,
		COALESCE(AVG(surface_sqm), 0) as average_surface_sqm,
		COALESCE(AVG(CAST(estimated_price AS FLOAT) / NULLIF(surface_sqm, 0)), 0) as avg_price_per_sqm
	`)
	if city != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(city))
	}

	var stats models.LeadStats
	if err := query.Scan(&stats).Error; err != nil {
		return models.LeadStats{}, fmt.Errorf("failed to query lead stats: %w", err)
	}
	return stats, nil
}

// GetLeadsWithCoordinates returns geocoded leads for a city, used to build
// the zone map overlay.
func (d *Database) GetLeadsWithCoordinates(city string) ([]models.Lead, error) {
	var leads []models.Lead
	err := d.db.
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("LOWER(city) = ?", strings.ToLower(city)).
		Find(&leads).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query geocoded leads: %w", err)
	}
	return leads, nil
}

// CityExists reports whether any lead was stored for the city.
func (d *Database) CityExists(city string) (bool, error) {
	var count int64
	err := d.db.Model(&models.Lead{}).
		Where("LOWER(city) = ?", strings.ToLower(city)).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// UpdateMissingCoordinates geocodes stored leads that have an address but no
// coordinates yet. Each lead is attempted once; failures are recorded so the
// sweep does not retry them forever.
func (d *Database) UpdateMissingCoordinates(geocoder Geocoder) error {
	var pending []models.Lead
	err := d.db.
		Where("(latitude IS NULL OR longitude IS NULL)").
		Where("geocoding_attempted = ?", false).
		Where("address <> '' AND city <> ''").
		Limit(50).
		Find(&pending).Error
	if err != nil {
		return fmt.Errorf("failed to query leads for geocoding: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	var processed, failed int
	for _, lead := range pending {
		lat, lon, err := geocoder.GeocodeAddress(lead.Address, lead.PostalCode, lead.City)
		updates := map[string]interface{}{"geocoding_attempted": true}
		if err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				"lead_id": lead.ID,
				"city":    lead.City,
			}).Warn("Failed to geocode lead")
			failed++
		} else {
			updates["latitude"] = lat
			updates["longitude"] = lon
			processed++
		}

		if err := d.db.Model(&models.Lead{}).Where("id = ?", lead.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update lead coordinates: %w", err)
		}
	}

	d.logger.WithFields(logrus.Fields{
		"processed": processed,
		"failed":    failed,
	}).Info("Geocoding sweep completed")

	return nil
}

// GetTelegramConfig returns the stored bot configuration, or nil when none
// was saved yet.
func (d *Database) GetTelegramConfig() (*models.TelegramConfig, error) {
	var config models.TelegramConfig
	err := d.db.Order("id DESC").First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query telegram config: %w", err)
	}
	return &config, nil
}

// UpdateTelegramConfig saves the bot configuration, replacing any previous
// one.
func (d *Database) UpdateTelegramConfig(request *models.TelegramConfigRequest) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.TelegramConfig{}).Error; err != nil {
			return fmt.Errorf("failed to clear telegram config: %w", err)
		}
		config := models.TelegramConfig{
			IsEnabled:     request.IsEnabled,
			BotToken:      request.BotToken,
			ChatID:        request.ChatID,
			MinEstimate:   request.MinEstimate,
			MaxEstimate:   request.MaxEstimate,
			MinSurfaceSqm: request.MinSurfaceSqm,
			Cities:        request.Cities,
			PropertyTypes: request.PropertyTypes,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		if err := tx.Create(&config).Error; err != nil {
			return fmt.Errorf("failed to save telegram config: %w", err)
		}
		return nil
	})
}
