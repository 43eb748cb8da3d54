// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Schedules holds the cron specs (with a leading seconds field) of the refresh jobs
type Schedules struct {
	Correlations string
	Sequences    string
	Calibration  string
	Portfolio    string
	Retention    string
}

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for the database (always absolute)
	LogLevel      string
	Port          int
	DevMode       bool
	Timezone      string
	Location      *time.Location // Resolved from Timezone by Load
	RetentionDays int
	CacheTTL      time.Duration
	Schedules     Schedules
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("QV_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Port:          getEnvAsInt("QV_PORT", 8080),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		Timezone:      getEnv("QV_TIMEZONE", "Local"),
		RetentionDays: getEnvAsInt("QV_RETENTION_DAYS", 180),
		CacheTTL:      time.Duration(getEnvAsInt("QV_CACHE_TTL_SECONDS", 300)) * time.Second,
		Schedules: Schedules{
			Correlations: getEnv("QV_SCHEDULE_CORRELATIONS", "0 0 * * * *"),
			Sequences:    getEnv("QV_SCHEDULE_SEQUENCES", "0 15 * * * *"),
			Calibration:  getEnv("QV_SCHEDULE_CALIBRATION", "0 30 3 * * *"),
			Portfolio:    getEnv("QV_SCHEDULE_PORTFOLIO", "0 45 3 * * *"),
			Retention:    getEnv("QV_SCHEDULE_RETENTION", "0 0 4 * * SUN"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// SchedulerParser parses the six-field specs the scheduler runs with.
var SchedulerParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks that every value is usable
func (c *Config) Validate() error {
	if c.Port <= 0 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("invalid retention days %d", c.RetentionDays)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	specs := map[string]string{
		"QV_SCHEDULE_CORRELATIONS": c.Schedules.Correlations,
		"QV_SCHEDULE_SEQUENCES":    c.Schedules.Sequences,
		"QV_SCHEDULE_CALIBRATION":  c.Schedules.Calibration,
		"QV_SCHEDULE_PORTFOLIO":    c.Schedules.Portfolio,
		"QV_SCHEDULE_RETENTION":    c.Schedules.Retention,
	}
	for name, spec := range specs {
		if _, err := SchedulerParser.Parse(spec); err != nil {
			return fmt.Errorf("invalid cron spec for %s %q: %w", name, spec, err)
		}
	}
	return nil
}

// Retention is the age past which derived records are swept
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// DatabasePath is the learning database file inside DataDir
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "learning.db")
}

// CacheDatabasePath is the result cache database file inside DataDir
func (c *Config) CacheDatabasePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
