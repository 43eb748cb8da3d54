package anomaly

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
	testingpkg "github.com/Lamont-Labs/QuantraVision-sub001/internal/testing"
)

func newTestDetector(store *testingpkg.MockStore) *Detector {
	d := NewDetector(store, zerolog.New(nil).Level(zerolog.Disabled))
	d.now = testingpkg.Clock(testingpkg.FixedNow)
	return d
}

func dailySeries(pattern string, labels ...domain.Outcome) []domain.PatternOutcome {
	start := testingpkg.FixedNow.Add(-time.Duration(len(labels)) * 24 * time.Hour)
	return testingpkg.OutcomeSeries(pattern, start, 24*time.Hour, labels...)
}

func TestDetectAnomalies_SuddenDrop(t *testing.T) {
	store := testingpkg.NewMockStore()
	// 14 older outcomes around 70%, then 7 recent at ~14%
	labels := append(testingpkg.Interleave(10, 14), testingpkg.Interleave(1, 7)...)
	store.AddOutcomes(dailySeries("Head and Shoulders", labels...)...)

	anomalies := newTestDetector(store).DetectAnomalies(context.Background())

	var drop *Anomaly
	for i := range anomalies {
		if anomalies[i].Type == domain.AnomalySuddenDrop {
			drop = &anomalies[i]
		}
	}
	require.NotNil(t, drop, "expected a sudden drop")
	assert.Equal(t, domain.SeverityCritical, drop.Severity)
	assert.Equal(t, "Head and Shoulders", drop.PatternType)
	assert.InDelta(t, 10.0/14.0, drop.ExpectedValue, 1e-9)
	assert.InDelta(t, 1.0/7.0, drop.ActualValue, 1e-9)
	assert.Contains(t, drop.Description, "Sudden drop: Head and Shoulders win rate dropped")
	assert.True(t, drop.DetectedAt.Equal(testingpkg.FixedNow))
}

func TestDetectAnomalies_SuddenImprovement(t *testing.T) {
	store := testingpkg.NewMockStore()
	labels := append(testingpkg.Interleave(3, 14), testingpkg.Repeat(domain.OutcomeWin, 7)...)
	store.AddOutcomes(dailySeries("Cup", labels...)...)

	anomalies := newTestDetector(store).DetectAnomalies(context.Background())

	found := false
	for _, a := range anomalies {
		if a.Type == domain.AnomalySuddenImprovement {
			found = true
			assert.Equal(t, domain.SeverityInfo, a.Severity)
		}
	}
	assert.True(t, found)
}

func TestDetectAnomalies_SortedBySeverityAndSkipsSmallPatterns(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(dailySeries("Cup", append(testingpkg.Interleave(3, 14), testingpkg.Repeat(domain.OutcomeWin, 7)...)...)...)
	store.AddOutcomes(dailySeries("Flag", append(testingpkg.Interleave(10, 14), testingpkg.Interleave(1, 7)...)...)...)
	store.AddOutcomes(dailySeries("Tiny", testingpkg.Repeat(domain.OutcomeLoss, 19)...)...)

	anomalies := newTestDetector(store).DetectAnomalies(context.Background())
	require.NotEmpty(t, anomalies)

	for i := 1; i < len(anomalies); i++ {
		assert.GreaterOrEqual(t, anomalies[i-1].Severity, anomalies[i].Severity)
	}
	for _, a := range anomalies {
		assert.NotEqual(t, "Tiny", a.PatternType)
	}
	assert.Equal(t, domain.SeverityCritical, anomalies[0].Severity)
}

func TestDetectAnomalies_UnusualStreak(t *testing.T) {
	store := testingpkg.NewMockStore()
	// 50% overall with a 10-win run at the end
	labels := append(testingpkg.Repeat(domain.OutcomeLoss, 10), testingpkg.Repeat(domain.OutcomeWin, 10)...)
	store.AddOutcomes(dailySeries("Pennant", labels...)...)

	anomalies := newTestDetector(store).DetectAnomalies(context.Background())

	var streak *Anomaly
	for i := range anomalies {
		if anomalies[i].Type == domain.AnomalyUnusualStreak {
			streak = &anomalies[i]
		}
	}
	require.NotNil(t, streak)
	assert.Equal(t, 10.0, streak.ActualValue)
	assert.InDelta(t, ExpectedMaxStreak(0.5), streak.ExpectedValue, 1e-9)
}

func TestDetectAnomalies_StoreFailureIsEmpty(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.SetError(errors.New("disk on fire"))

	d := newTestDetector(store)
	assert.Empty(t, d.DetectAnomalies(context.Background()))
	assert.Empty(t, d.DetectPerformanceShifts(context.Background()))
	assert.Empty(t, d.AttentionRequired(context.Background()))
}

func TestExpectedMaxStreak(t *testing.T) {
	assert.InDelta(t, math.Log(50)/math.Log(2), ExpectedMaxStreak(0.5), 1e-9)
	assert.Equal(t, 0.0, ExpectedMaxStreak(0))
	assert.Equal(t, 0.0, ExpectedMaxStreak(1))
}

func TestLongestStreaks_CountsFinalRun(t *testing.T) {
	outcomes := testingpkg.OutcomeSeries("X", testingpkg.FixedNow, time.Minute,
		domain.OutcomeWin, domain.OutcomeLoss, domain.OutcomeLoss, domain.OutcomeWin, domain.OutcomeWin, domain.OutcomeWin)

	maxWin, maxLoss := longestStreaks(outcomes)
	assert.Equal(t, 3, maxWin)
	assert.Equal(t, 2, maxLoss)
}

func TestIsOutlier(t *testing.T) {
	store := testingpkg.NewMockStore()
	history := dailySeries("Wedge", testingpkg.Interleave(6, 12)...)
	testingpkg.WithReturns(history, 1, 1.2, 0.8, 1.1, 0.9, 1, 1.2, 0.8, 1.1, 0.9, 1, 1)
	store.AddOutcomes(history...)
	d := newTestDetector(store)
	ctx := context.Background()

	assert.True(t, d.IsOutlier(ctx, domain.PatternOutcome{PatternName: "Wedge", ProfitLossPercent: testingpkg.Float64Ptr(10)}))
	assert.False(t, d.IsOutlier(ctx, domain.PatternOutcome{PatternName: "Wedge", ProfitLossPercent: testingpkg.Float64Ptr(1.05)}))
	assert.False(t, d.IsOutlier(ctx, domain.PatternOutcome{PatternName: "Wedge"}), "no profit/loss recorded")
	assert.False(t, d.IsOutlier(ctx, domain.PatternOutcome{PatternName: "Unknown", ProfitLossPercent: testingpkg.Float64Ptr(10)}))
}

func TestIsOutlier_ZeroVarianceIsNeverOutlier(t *testing.T) {
	store := testingpkg.NewMockStore()
	history := dailySeries("Flat", testingpkg.Interleave(5, 10)...)
	testingpkg.WithReturns(history, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2)
	store.AddOutcomes(history...)

	assert.False(t, newTestDetector(store).IsOutlier(context.Background(),
		domain.PatternOutcome{PatternName: "Flat", ProfitLossPercent: testingpkg.Float64Ptr(50)}))
}

func TestDetectPerformanceShifts(t *testing.T) {
	store := testingpkg.NewMockStore()
	// 80% then 40%: relative change -50%
	store.AddOutcomes(dailySeries("Triangle", append(testingpkg.Interleave(12, 15), testingpkg.Interleave(6, 15)...)...)...)
	// Stable pattern
	store.AddOutcomes(dailySeries("Stable", testingpkg.Interleave(15, 30)...)...)

	d := newTestDetector(store)
	shifts := d.DetectPerformanceShifts(context.Background())
	require.Len(t, shifts, 1)
	assert.Equal(t, "Triangle", shifts[0].PatternType)
	assert.InDelta(t, -50.0, shifts[0].ChangePercent, 1e-9)
	assert.Contains(t, shifts[0].LikelyReason, "Declining performance")

	alerts := d.AttentionRequired(context.Background())
	var shiftAlert *AlertItem
	for i := range alerts {
		if alerts[i].Type == domain.AnomalyPerformanceShift {
			shiftAlert = &alerts[i]
		}
	}
	require.NotNil(t, shiftAlert)
	assert.Equal(t, domain.PriorityUrgent, shiftAlert.Priority)
	assert.Equal(t, "Performance shift: -50% change", shiftAlert.Message)

	for i := 1; i < len(alerts); i++ {
		assert.GreaterOrEqual(t, alerts[i-1].Priority, alerts[i].Priority)
	}
}

func TestShiftPriority(t *testing.T) {
	assert.Equal(t, domain.PriorityUrgent, shiftPriority(-45))
	assert.Equal(t, domain.PriorityHigh, shiftPriority(35))
	assert.Equal(t, domain.PriorityMedium, shiftPriority(26))
}

func TestRecommendedAction(t *testing.T) {
	assert.Equal(t, "Review pattern settings and recent outcomes", RecommendedAction(domain.AnomalySuddenDrop))
	assert.Equal(t, "Recalibrate confidence thresholds", RecommendedAction(domain.AnomalyPerformanceShift))
}
