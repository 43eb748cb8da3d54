package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	t.Setenv("QV_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.DirExists(t, dir)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 180, cfg.RetentionDays)
	assert.Equal(t, 180*24*time.Hour, cfg.Retention())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "0 0 4 * * SUN", cfg.Schedules.Retention)
	assert.NotNil(t, cfg.Location)
	assert.Equal(t, filepath.Join(dir, "learning.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(dir, "cache.db"), cfg.CacheDatabasePath())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("QV_DATA_DIR", t.TempDir())
	t.Setenv("QV_PORT", "9090")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("QV_TIMEZONE", "UTC")
	t.Setenv("QV_CACHE_TTL_SECONDS", "0")
	t.Setenv("QV_SCHEDULE_SEQUENCES", "@every 10m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, time.UTC.String(), cfg.Location.String())
	assert.Zero(t, cfg.CacheTTL)
	assert.Equal(t, "@every 10m", cfg.Schedules.Sequences)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:          8080,
			RetentionDays: 30,
			Timezone:      "UTC",
			Schedules: Schedules{
				Correlations: "0 0 * * * *",
				Sequences:    "0 15 * * * *",
				Calibration:  "0 30 3 * * *",
				Portfolio:    "0 45 3 * * *",
				Retention:    "0 0 4 * * SUN",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero port", func(c *Config) { c.Port = 0 }, "invalid port"},
		{"negative retention", func(c *Config) { c.RetentionDays = -1 }, "invalid retention"},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "invalid timezone"},
		{"five field spec", func(c *Config) { c.Schedules.Portfolio = "45 3 * * *" }, "QV_SCHEDULE_PORTFOLIO"},
		{"garbage spec", func(c *Config) { c.Schedules.Retention = "whenever" }, "QV_SCHEDULE_RETENTION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
