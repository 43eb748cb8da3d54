package forecast

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

func newTestForecaster(store *testingpkg.MockStore) *Forecaster {
	return NewForecaster(store, time.UTC, zerolog.New(nil).Level(zerolog.Disabled))
}

// threePerDay spreads labels over consecutive days, three outcomes a day
// at 09:00, 10:00 and 11:00 UTC, ending yesterday.
func threePerDay(pattern string, labels ...domain.Outcome) []domain.PatternOutcome {
	days := (len(labels) + 2) / 3
	first := testingpkg.FixedNow.Truncate(24 * time.Hour).Add(-time.Duration(days) * 24 * time.Hour)
	out := make([]domain.PatternOutcome, len(labels))
	for i, o := range labels {
		ts := first.Add(time.Duration(i/3)*24*time.Hour + time.Duration(9+i%3)*time.Hour)
		out[i] = domain.PatternOutcome{ID: int64(i + 1), PatternName: pattern, Outcome: o, Timestamp: ts}
	}
	return out
}

// winsPerDay builds three outcomes per day with the given number of wins each day.
func winsPerDay(pattern string, wins ...int) []domain.PatternOutcome {
	labels := make([]domain.Outcome, 0, len(wins)*3)
	for _, w := range wins {
		for i := 0; i < 3; i++ {
			if i < w {
				labels = append(labels, domain.OutcomeWin)
			} else {
				labels = append(labels, domain.OutcomeLoss)
			}
		}
	}
	return threePerDay(pattern, labels...)
}

func TestDailyWinRates(t *testing.T) {
	outcomes := winsPerDay("Flag", 0, 3, 2)

	assert.Equal(t, []float64{0, 1, 2.0 / 3.0}, DailyWinRates(outcomes, time.UTC))

	// 23:30 UTC on the first day is the following morning in UTC+2
	late := outcomes[0]
	late.Timestamp = late.Timestamp.Truncate(24 * time.Hour).Add(23*time.Hour + 30*time.Minute)
	rates := DailyWinRates([]domain.PatternOutcome{outcomes[0], late}, time.FixedZone("EET", 2*3600))
	assert.Len(t, rates, 2)
}

func TestPredictNextWeekPerformance_Stable(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(winsPerDay("Flag", 2, 2, 2, 2, 2, 2, 2, 2, 2, 2)...)

	forecast := newTestForecaster(store).PredictNextWeekPerformance(context.Background(), "Flag")

	assert.Equal(t, domain.StatusOK, forecast.Status)
	assert.Equal(t, 10, forecast.DaysObserved)
	assert.InDelta(t, 2.0/3.0, forecast.PredictedWinRate, 1e-9)
	assert.InDelta(t, forecast.PredictedWinRate, forecast.ConfidenceIntervalUpper, 1e-9)
	assert.InDelta(t, forecast.PredictedWinRate, forecast.ConfidenceIntervalLower, 1e-9)
	assert.Equal(t, domain.TrendStable, forecast.TrendDirection)
	assert.InDelta(t, 1.0, forecast.Confidence, 1e-9)
}

func TestPredictNextWeekPerformance_Improving(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(winsPerDay("Flag", 0, 0, 1, 1, 1, 2, 2, 2, 3, 3)...)

	forecast := newTestForecaster(store).PredictNextWeekPerformance(context.Background(), "Flag")

	assert.Equal(t, domain.TrendImproving, forecast.TrendDirection)
	assert.Equal(t, 1.0, forecast.PredictedWinRate)
	assert.Equal(t, 1.0, forecast.ConfidenceIntervalUpper)
	assert.InDelta(t, 1-1.96*0.08528, forecast.ConfidenceIntervalLower, 1e-4)
	assert.InDelta(t, 1-0.08528, forecast.Confidence, 1e-4)
	assert.LessOrEqual(t, forecast.ConfidenceIntervalLower, forecast.PredictedWinRate)
}

func TestPredictNextWeekPerformance_Idempotent(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(winsPerDay("Flag", 1, 3, 0, 2, 2, 1, 3, 0, 2, 1, 2)...)
	f := newTestForecaster(store)

	first := f.PredictNextWeekPerformance(context.Background(), "Flag")
	second := f.PredictNextWeekPerformance(context.Background(), "Flag")

	assert.Equal(t, first, second)
}

func TestPredictNextWeekPerformance_InsufficientData(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(winsPerDay("Short", 2, 2, 2, 2, 2, 2, 2, 2, 2)...)
	// 30 outcomes packed into five days
	packed := make([]domain.PatternOutcome, 30)
	for i := range packed {
		packed[i] = domain.PatternOutcome{
			PatternName: "Packed",
			Outcome:     domain.OutcomeWin,
			Timestamp:   testingpkg.FixedNow.Add(-time.Duration(i%5) * 24 * time.Hour),
		}
	}
	store.AddOutcomes(packed...)
	f := newTestForecaster(store)

	short := f.PredictNextWeekPerformance(context.Background(), "Short")
	assert.Equal(t, domain.StatusInsufficientData, short.Status)
	assert.Equal(t, domain.TrendStable, short.TrendDirection)

	few := f.PredictNextWeekPerformance(context.Background(), "Packed")
	assert.Equal(t, domain.StatusInsufficientData, few.Status)
	assert.Equal(t, 5, few.DaysObserved)
}

func TestTrendStrength(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(winsPerDay("Rising", 0, 0, 1, 1, 1, 2, 2, 2, 3, 3)...)
	store.AddOutcomes(winsPerDay("Falling", 3, 3, 3, 3, 3, 0, 0, 0, 0, 0)...)
	store.AddOutcomes(winsPerDay("Flat", 2, 2, 2, 2, 2, 2, 2, 2, 2, 2)...)
	store.AddOutcomes(winsPerDay("Young", 3, 3, 0)...)
	f := newTestForecaster(store)

	assert.Equal(t, domain.TrendImproving, f.TrendStrength(context.Background(), "Rising"))
	assert.Equal(t, domain.TrendDeclining, f.TrendStrength(context.Background(), "Falling"))
	assert.Equal(t, domain.TrendStable, f.TrendStrength(context.Background(), "Flat"))
	assert.Equal(t, domain.TrendStable, f.TrendStrength(context.Background(), "Young"))
}

func TestBreakoutProbability(t *testing.T) {
	store := testingpkg.NewMockStore()
	wins := make([]int, 0, 40)
	for i := 0; i < 30; i++ {
		wins = append(wins, 1)
	}
	for i := 0; i < 10; i++ {
		wins = append(wins, 3)
	}
	store.AddOutcomes(winsPerDay("Breakout", wins...)...)
	flat := make([]int, 30)
	for i := range flat {
		flat[i] = 3
	}
	store.AddOutcomes(winsPerDay("Flat", flat...)...)
	store.AddOutcomes(winsPerDay("Short", 2, 2, 2, 2, 2, 2, 2, 2, 2, 2)...)
	f := newTestForecaster(store)

	assert.Equal(t, 1.0, f.BreakoutProbability(context.Background(), "Breakout"))
	assert.Equal(t, 0.0, f.BreakoutProbability(context.Background(), "Flat"))
	assert.Equal(t, 0.0, f.BreakoutProbability(context.Background(), "Short"))
}

func TestBreakoutProbability_Declining(t *testing.T) {
	store := testingpkg.NewMockStore()
	wins := make([]int, 0, 40)
	for i := 0; i < 30; i++ {
		wins = append(wins, 3)
	}
	for i := 0; i < 10; i++ {
		wins = append(wins, 0)
	}
	store.AddOutcomes(winsPerDay("Fading", wins...)...)

	p := newTestForecaster(store).BreakoutProbability(context.Background(), "Fading")

	assert.GreaterOrEqual(t, p, 0.0)
	assert.Less(t, p, 0.5)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		trend    domain.TrendDirection
		change   float64
		severity domain.WarningSeverity
		flagged  bool
	}{
		{domain.TrendDeclining, -30, domain.SeverityCritical, true},
		{domain.TrendDeclining, -15, domain.SeverityWarning, true},
		{domain.TrendDeclining, -5, domain.SeverityInfo, false},
		{domain.TrendStable, -40, domain.SeverityInfo, false},
		{domain.TrendImproving, 30, domain.SeverityInfo, true},
		{domain.TrendImproving, 15, domain.SeverityInfo, false},
	}

	for _, tt := range tests {
		severity, flagged := classify(tt.trend, tt.change)
		assert.Equal(t, tt.flagged, flagged, "%v %v", tt.trend, tt.change)
		if tt.flagged {
			assert.Equal(t, tt.severity, severity)
		}
	}
}

func TestWarningSignals(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(threePerDay("Improver", append(testingpkg.Repeat(domain.OutcomeLoss, 15), testingpkg.Repeat(domain.OutcomeWin, 15)...)...)...)
	store.AddOutcomes(threePerDay("Decliner", testingpkg.Mix(15, 15)...)...)
	store.AddOutcomes(threePerDay("Steady", testingpkg.Interleave(20, 30)...)...)
	store.AddOutcomes(threePerDay("Tiny", testingpkg.Mix(10, 9)...)...)

	warnings := newTestForecaster(store).WarningSignals(context.Background())

	require.Len(t, warnings, 2)
	assert.Equal(t, "Decliner", warnings[0].PatternType)
	assert.Equal(t, domain.SeverityCritical, warnings[0].Severity)
	assert.Equal(t, "Decliner declining: 50% drop in last 10 trades", warnings[0].Message)
	assert.Equal(t, domain.TrendDeclining, warnings[0].CurrentTrend)

	assert.Equal(t, "Improver", warnings[1].PatternType)
	assert.Equal(t, domain.SeverityInfo, warnings[1].Severity)
	assert.Equal(t, "Improver improving: 50% gain in recent trades", warnings[1].Message)
}

func TestWarningSignals_StoreError(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddOutcomes(threePerDay("Decliner", testingpkg.Mix(15, 15)...)...)
	store.SetError(errors.New("boom"))

	f := newTestForecaster(store)
	assert.Empty(t, f.WarningSignals(context.Background()))
	assert.Equal(t, domain.StatusInsufficientData, f.PredictNextWeekPerformance(context.Background(), "Decliner").Status)
	assert.Zero(t, f.BreakoutProbability(context.Background(), "Decliner"))
}
