package main

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"domusreport/server/config"
	"domusreport/server/internal/api"
	"domusreport/server/internal/database"
	"domusreport/server/internal/dataset"
	"domusreport/server/internal/geocoding"
	"domusreport/server/internal/narrative"
	"domusreport/server/internal/notify"
	"domusreport/server/internal/processor"
	"domusreport/server/internal/queue"
	"domusreport/server/internal/scheduler"
	"domusreport/server/internal/valuation"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.Server.DBPath)
	db, err := database.NewDatabase(cfg.Server.DBPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Reference dataset and valuation engine
	loader := dataset.NewLoader(logger, cfg.Dataset.Path, cfg.DatasetTTL())
	if records, err := loader.Load(); err != nil {
		logger.WithError(err).Fatal("Failed to load reference dataset")
	} else {
		logger.Infof("Loaded %d reference records", len(records))
	}

	cache := valuation.NewResultCache(cfg.ResultCacheTTL(), cfg.ResultCache.MaxEntries)
	engine := valuation.NewEngine(logger, loader, cache)

	// Narrative provider: remote completion when a key is configured, with a
	// deterministic local fallback either way
	var remote narrative.Provider
	if cfg.Narrative.APIKey != "" {
		remote = narrative.NewOpenAIProvider(logger, cfg.Narrative.APIKey, cfg.Narrative.BaseURL, cfg.Narrative.Model, cfg.NarrativeTimeout())
	} else {
		logger.Info("No narrative API key configured, using local narratives only")
	}
	narrator := narrative.WithFallback(logger, remote)

	// Lead persistence pipeline
	leadQueue := queue.NewLeadQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(db.GetDB(), leadQueue, cfg, logger)
	batchProcessor.Start()
	defer batchProcessor.Stop()

	// Telegram notifications, configured from the database
	telegram := notify.NewService(logger)
	if tgConfig, err := db.GetTelegramConfig(); err != nil {
		logger.WithError(err).Error("Failed to load Telegram config")
	} else if tgConfig != nil {
		telegram.UpdateConfig(tgConfig)
		telegram.UpdateFilters(tgConfig.Filters())
	}

	cacheDir := filepath.Join(os.TempDir(), "domusreport", "geocode_cache")
	geocoder := geocoding.NewGeocoder(logger, cacheDir)

	// Background jobs
	jobs := scheduler.NewScheduler(logger)
	if err := jobs.AddJob(cfg.Scheduler.DatasetRefreshSpec, scheduler.JobFunc{
		JobName: "dataset-refresh",
		Fn: func() error {
			loader.Invalidate()
			_, err := loader.Load()
			return err
		},
	}); err != nil {
		logger.WithError(err).Fatal("Failed to register dataset refresh job")
	}
	if err := jobs.AddJob(cfg.Scheduler.GeocodingSweepSpec, scheduler.JobFunc{
		JobName: "geocoding-sweep",
		Fn: func() error {
			return db.UpdateMissingCoordinates(geocoder)
		},
	}); err != nil {
		logger.WithError(err).Fatal("Failed to register geocoding job")
	}
	jobs.Start()
	defer jobs.Stop()

	handler := api.NewHandler(db, logger, loader, engine, narrator, leadQueue, telegram)

	router := gin.Default()
	api.SetupRoutes(router, handler, geocoder)

	logger.Infof("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
