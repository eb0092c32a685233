package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/robfig/cron/v3"
)

// Config holds the application configuration
type Config struct {
	Environment       string
	LogLevel          string
	Port              string
	StorageDir        string
	DatabasePath      string
	CatalogPath       string
	SweepSchedule     string
	NATSURL           string
	NATSSubjectPrefix string
	NotifyRatePerSec  float64
	NotifyBurst       int
	StatsDefaultRange string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "development")
	storageDir := getEnv("STORAGE_DIR", environment+"-data")

	config := &Config{
		Environment:       environment,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Port:              getEnv("PORT", "8080"),
		StorageDir:        storageDir,
		DatabasePath:      getEnv("DATABASE_PATH", filepath.Join(storageDir, "maintenance.db")),
		CatalogPath:       getEnv("CATALOG_PATH", ""),
		SweepSchedule:     getEnv("SCHEDULE_SWEEP_CRON", "0 6 * * *"),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "maintenance.notifications"),
		NotifyRatePerSec:  getEnvAsFloat("NOTIFY_RATE_PER_SEC", 10),
		NotifyBurst:       getEnvAsInt("NOTIFY_BURST", 5),
		StatsDefaultRange: getEnv("STATS_DEFAULT_RANGE", "30d"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("SCHEDULE_SWEEP_CRON is invalid: %w", err)
	}
	if c.NotifyRatePerSec <= 0 {
		return fmt.Errorf("NOTIFY_RATE_PER_SEC must be positive, got %v", c.NotifyRatePerSec)
	}
	if c.NotifyBurst <= 0 {
		return fmt.Errorf("NOTIFY_BURST must be positive, got %d", c.NotifyBurst)
	}
	switch c.StatsDefaultRange {
	case "7d", "30d", "90d":
	default:
		return fmt.Errorf("STATS_DEFAULT_RANGE must be one of 7d, 30d, 90d, got %q", c.StatsDefaultRange)
	}
	if c.NATSSubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must not be empty")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
