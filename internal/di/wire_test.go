package di

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/config"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/database"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir:       t.TempDir(),
		Port:          8080,
		Timezone:      "UTC",
		Location:      time.UTC,
		RetentionDays: 30,
		CacheTTL:      time.Minute,
		Schedules: config.Schedules{
			Correlations: "0 0 * * * *",
			Sequences:    "0 15 * * * *",
			Calibration:  "0 30 3 * * *",
			Portfolio:    "0 45 3 * * *",
			Retention:    "0 0 4 * * SUN",
		},
	}
}

func TestWire(t *testing.T) {
	container, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.LedgerRepo)
	assert.NotNil(t, container.LearningRepo)
	assert.NotNil(t, container.ResultCache)
	require.NotNil(t, container.CacheDB)
	assert.Equal(t, database.ProfileCache, container.CacheDB.Profile())
	assert.Equal(t, database.ProfileLedger, container.DB.Profile())
	assert.NotNil(t, container.Forecaster)
	assert.NotNil(t, container.LearningHandler)
	require.NotNil(t, container.Jobs)

	names := make([]string, 0)
	for _, job := range container.Jobs.All() {
		names = append(names, job.Name())
	}
	assert.Equal(t, []string{
		"correlation_refresh", "sequence_refresh", "threshold_calibration", "portfolio_snapshot", "retention_sweep",
	}, names)
}

func TestWire_JobsRunAgainstRealStore(t *testing.T) {
	container, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })
	ctx := context.Background()

	start := time.Now().Add(-24 * time.Hour)
	for i := 0; i < 40; i++ {
		outcome := domain.OutcomeWin
		if i%3 == 0 {
			outcome = domain.OutcomeLoss
		}
		_, err := container.LedgerRepo.RecordOutcome(ctx, domain.PatternOutcome{
			PatternName: []string{"Flag", "Wedge"}[i%2],
			Outcome:     outcome,
			Timestamp:   start.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	for _, job := range container.Jobs.All() {
		assert.NoError(t, container.Scheduler.RunNow(job), job.Name())
	}
}

func TestWire_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedules.Portfolio = "every so often"

	_, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portfolio_snapshot")
}
