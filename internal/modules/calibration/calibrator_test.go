package calibration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
	testingpkg "github.com/Lamont-Labs/QuantraVision-sub001/internal/testing"
)

func newTestCalibrator(store *testingpkg.MockStore) *Calibrator {
	c := NewCalibrator(store, zerolog.New(nil).Level(zerolog.Disabled))
	c.now = testingpkg.Clock(testingpkg.FixedNow)
	return c
}

func series(pattern string, wins, total int) []domain.PatternOutcome {
	start := testingpkg.FixedNow.Add(-time.Duration(total) * time.Hour)
	return testingpkg.OutcomeSeries(pattern, start, time.Hour, testingpkg.Interleave(wins, total)...)
}

func TestOptimizeThresholds_BiasedWins(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(series("Double Bottom", 32, 40)...)

	thresholds := newTestCalibrator(store).OptimizeThresholds(context.Background())

	require.Contains(t, thresholds, "Double Bottom")
	opt := thresholds["Double Bottom"]
	assert.GreaterOrEqual(t, opt.TruePositiveRate, opt.FalsePositiveRate)
	assert.InDelta(t, 0.8, opt.TruePositiveRate, 1e-9)
	assert.InDelta(t, 0.2, opt.FalsePositiveRate, 1e-9)
	assert.InDelta(t, 0.8, opt.Precision, 1e-9)
	assert.InDelta(t, 0.8, opt.F1Score, 1e-9)
	assert.InDelta(t, 0.4, opt.Loss, 1e-9)
	assert.GreaterOrEqual(t, opt.Threshold, minThreshold)
	assert.LessOrEqual(t, opt.Threshold, maxThreshold)

	stored := store.Thresholds()
	require.Contains(t, stored, "Double Bottom")
	assert.InDelta(t, opt.Threshold, stored["Double Bottom"].Threshold, 1e-12)
	assert.True(t, stored["Double Bottom"].LastUpdated.Equal(testingpkg.FixedNow))
}

func TestOptimizeThresholds_Deterministic(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(series("Wedge", 32, 40)...)
	c := newTestCalibrator(store)

	first := c.OptimizeThresholds(context.Background())["Wedge"]
	second := c.OptimizeThresholds(context.Background())["Wedge"]

	assert.InDelta(t, first.Threshold, second.Threshold, 1e-3)
	assert.Equal(t, first.Iterations, second.Iterations)
}

func TestOptimizeThresholds_SkipsSmallPatterns(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(series("Pennant", 20, 29)...)
	store.AddOutcomes(series("Flag", 15, 30)...)

	thresholds := newTestCalibrator(store).OptimizeThresholds(context.Background())

	assert.NotContains(t, thresholds, "Pennant")
	assert.Contains(t, thresholds, "Flag")
	assert.Len(t, store.Thresholds(), 1)
}

func TestOptimizeThresholds_StoreError(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(series("Flag", 15, 30)...)
	store.SetError(errors.New("unavailable"))

	assert.Empty(t, newTestCalibrator(store).OptimizeThresholds(context.Background()))
}

// The loss only depends on the win/loss mix, so the tuned threshold never
// changes what it is scored on.
func TestCalculateLoss_IgnoresThreshold(t *testing.T) {
	outcomes := series("Flag", 32, 40)

	low := CalculateLoss(0.3, outcomes)
	high := CalculateLoss(0.9, outcomes)

	assert.Equal(t, low, high)
	assert.InDelta(t, 0.4, low, 1e-9)
	assert.Equal(t, 1.0, CalculateLoss(0.5, nil))
}

func TestOptimize_StopsEarlyOnFlatLoss(t *testing.T) {
	opt := Optimize("Flag", series("Flag", 32, 40))

	assert.Equal(t, 2, opt.Iterations)
	assert.Len(t, opt.LossHistory, 2)
	assert.Equal(t, InitialThreshold, opt.Threshold)
	assert.Equal(t, domain.ConvergenceConverged, ConvergenceStatus(opt.LossHistory))
}

func TestGradientStep(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(series("Flag", 32, 40)...)
	c := newTestCalibrator(store)

	threshold, loss := c.GradientStep(context.Background(), "Flag", 0.5, 0.01)
	assert.Equal(t, 0.5, threshold)
	assert.InDelta(t, 0.4, loss, 1e-9)

	threshold, _ = c.GradientStep(context.Background(), "Flag", 0.95, 0.01)
	assert.Equal(t, maxThreshold, threshold)

	threshold, _ = c.GradientStep(context.Background(), "Flag", 0.1, 0.01)
	assert.Equal(t, minThreshold, threshold)

	store.SetError(errors.New("unavailable"))
	threshold, loss = c.GradientStep(context.Background(), "Flag", 0.6, 0.01)
	assert.Equal(t, 0.6, threshold)
	assert.Equal(t, 1.0, loss)
}

func TestConvergenceStatus(t *testing.T) {
	tests := []struct {
		name    string
		history []float64
		want    domain.ConvergenceStatus
	}{
		{"empty", nil, domain.ConvergenceInsufficientData},
		{"single", []float64{0.5}, domain.ConvergenceInsufficientData},
		{"flat", []float64{0.5, 0.5}, domain.ConvergenceConverged},
		{"decreasing", []float64{0.9, 0.8, 0.7}, domain.ConvergenceImproving},
		{"increasing", []float64{0.5, 0.6}, domain.ConvergenceStuck},
		{"only last five count", []float64{2.0, 0.5, 0.4, 0.6, 0.5, 0.5}, domain.ConvergenceConverged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvergenceStatus(tt.history))
		})
	}
}

func TestCalibratePattern(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(series("Flag", 24, 30)...)
	store.AddOutcomes(series("Cup", 5, 10)...)
	c := newTestCalibrator(store)

	opt, ok := c.CalibratePattern(context.Background(), "Flag")
	require.True(t, ok)
	assert.InDelta(t, 0.8, opt.TruePositiveRate, 1e-9)
	assert.Contains(t, store.Thresholds(), "Flag")

	_, ok = c.CalibratePattern(context.Background(), "Cup")
	assert.False(t, ok)
}

func TestCalibrateAll(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(series("Double Bottom", 32, 40)...)
	store.AddOutcomes(series("Flag", 15, 30)...)

	result := newTestCalibrator(store).CalibrateAll(context.Background())

	assert.Equal(t, domain.ConvergenceConverged, result.ConvergenceStatus)
	assert.Len(t, result.OptimalThresholds, 2)
	assert.InDelta(t, (0.4+1.0)/2, result.FinalLoss, 1e-9)
	assert.Equal(t, 2, result.Iterations)
}

func TestCalibrateAll_NoData(t *testing.T) {
	result := newTestCalibrator(testingpkg.NewMockStore()).CalibrateAll(context.Background())

	assert.Equal(t, domain.ConvergenceInsufficientData, result.ConvergenceStatus)
	assert.Equal(t, 1.0, result.FinalLoss)
	assert.Zero(t, result.Iterations)
	assert.Empty(t, result.OptimalThresholds)
}
