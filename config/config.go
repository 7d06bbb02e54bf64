package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Server struct {
		Port   string `env:"SERVER_PORT" envDefault:"5260"`
		DBPath string `env:"DB_PATH" envDefault:"database/domusreport.db"`
	}

	// Dataset configuration
	Dataset struct {
		// Path to the CSV price reference table
		Path string `env:"DATASET_PATH" envDefault:"data/reference_prices.csv"`

		// How long a loaded dataset stays valid (in minutes)
		TTLMinutes int `env:"DATASET_TTL_MINUTES" envDefault:"30"`
	}

	// Valuation result cache configuration
	ResultCache struct {
		// How long a computed valuation stays valid (in minutes)
		TTLMinutes int `env:"RESULT_CACHE_TTL_MINUTES" envDefault:"15"`

		// Entry count past which the cache prunes expired entries
		MaxEntries int `env:"RESULT_CACHE_MAX_ENTRIES" envDefault:"1000"`
	}

	// AI narrative configuration
	Narrative struct {
		// API key for the completion service; empty disables the remote call
		APIKey string `env:"OPENAI_API_KEY"`

		BaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
		Model   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

		// Request timeout in seconds
		TimeoutSeconds int `env:"NARRATIVE_TIMEOUT_SECONDS" envDefault:"20"`
	}

	// Lead batch processing configuration
	BatchProcessing struct {
		// Maximum number of queued lead batches
		QueueSize int `env:"LEAD_QUEUE_SIZE" envDefault:"100"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"LEAD_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"LEAD_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"LEAD_RETRY_DELAY" envDefault:"5"`
	}

	// Scheduler configuration
	Scheduler struct {
		// Cron expression for the dataset refresh job
		DatasetRefreshSpec string `env:"DATASET_REFRESH_SPEC" envDefault:"*/30 * * * *"`

		// Cron expression for the geocoding sweep
		GeocodingSweepSpec string `env:"GEOCODING_SWEEP_SPEC" envDefault:"15 * * * *"`
	}
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatasetTTL returns the dataset cache TTL as a duration.
func (c *Config) DatasetTTL() time.Duration {
	return time.Duration(c.Dataset.TTLMinutes) * time.Minute
}

// ResultCacheTTL returns the valuation cache TTL as a duration.
func (c *Config) ResultCacheTTL() time.Duration {
	return time.Duration(c.ResultCache.TTLMinutes) * time.Minute
}

// NarrativeTimeout returns the completion request timeout as a duration.
func (c *Config) NarrativeTimeout() time.Duration {
	return time.Duration(c.Narrative.TimeoutSeconds) * time.Second
}
