// Package forecast projects daily win rates forward and raises warnings on
// deteriorating patterns.
package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
	"github.com/Lamont-Labs/QuantraVision-sub001/pkg/formulas"
)

const (
	minDataPoints     = 30
	minDays           = 7
	forecastHorizon   = 7
	confidenceZ       = 1.96
	forecastTrendBand = 0.01
	strengthTrendBand = 0.02

	shortWindow       = 7
	longWindow        = 30
	recentAverages    = 3
	volatilityWindow  = 30
	minWarningSamples = 20
	warningWindow     = 10
)

// OutcomeReaderInterface is the ledger slice the forecaster reads.
type OutcomeReaderInterface interface {
	GetAll(ctx context.Context) ([]domain.PatternOutcome, error)
	GetByPatternType(ctx context.Context, name string) ([]domain.PatternOutcome, error)
}

// Forecaster fits linear trends to daily win rates
type Forecaster struct {
	store OutcomeReaderInterface
	loc   *time.Location
	log   zerolog.Logger
}

// NewForecaster creates a new trend forecaster. Days are cut at midnight in
// loc, or in the local zone when loc is nil.
func NewForecaster(store OutcomeReaderInterface, loc *time.Location, log zerolog.Logger) *Forecaster {
	if loc == nil {
		loc = time.Local
	}
	return &Forecaster{
		store: store,
		loc:   loc,
		log:   log.With().Str("component", "trend_forecaster").Logger(),
	}
}

// DailyWinRates buckets outcomes by local calendar day, oldest day first.
// Days without outcomes are skipped.
func DailyWinRates(outcomes []domain.PatternOutcome, loc *time.Location) []float64 {
	type day struct {
		wins, total int
	}
	days := make(map[int64]*day)
	keys := make([]int64, 0)
	for _, o := range outcomes {
		local := o.Timestamp.In(loc)
		midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).Unix()
		d, ok := days[midnight]
		if !ok {
			d = &day{}
			days[midnight] = d
			keys = append(keys, midnight)
		}
		d.total++
		if o.IsWin() {
			d.wins++
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	rates := make([]float64, len(keys))
	for i, k := range keys {
		rates[i] = float64(days[k].wins) / float64(days[k].total)
	}
	return rates
}

func (f *Forecaster) load(ctx context.Context, patternType string) ([]domain.PatternOutcome, bool) {
	outcomes, err := f.store.GetByPatternType(ctx, patternType)
	if err != nil {
		f.log.Error().Err(err).Str("pattern_type", patternType).Msg("Failed to load outcomes for forecast")
		return nil, false
	}
	return outcomes, true
}

// PredictNextWeekPerformance extrapolates the daily win-rate trend seven days
// past the last observed day, with a 95% band from the residual error.
func (f *Forecaster) PredictNextWeekPerformance(ctx context.Context, patternType string) Forecast {
	forecast := Forecast{
		PatternType:    patternType,
		TrendDirection: domain.TrendStable,
		Status:         domain.StatusInsufficientData,
	}

	outcomes, ok := f.load(ctx, patternType)
	if !ok || len(outcomes) < minDataPoints {
		return forecast
	}
	daily := DailyWinRates(outcomes, f.loc)
	forecast.DaysObserved = len(daily)
	if len(daily) < minDays {
		return forecast
	}

	fit, ok := formulas.FitSeries(daily)
	if !ok {
		forecast.Status = domain.StatusDegenerate
		return forecast
	}

	predicted := formulas.Clamp(fit.Predict(float64(len(daily)-1+forecastHorizon)), 0, 1)
	band := confidenceZ * fit.StdError

	forecast.PredictedWinRate = predicted
	forecast.ConfidenceIntervalUpper = formulas.Clamp(predicted+band, 0, 1)
	forecast.ConfidenceIntervalLower = formulas.Clamp(predicted-band, 0, 1)
	forecast.TrendDirection = domain.TrendForSlope(fit.Slope, forecastTrendBand)
	forecast.Confidence = formulas.Clamp(1-fit.StdError, 0, 1)
	forecast.Status = domain.StatusOK
	return forecast
}

func trendStrength(outcomes []domain.PatternOutcome, loc *time.Location) domain.TrendDirection {
	if len(outcomes) < minDataPoints {
		return domain.TrendStable
	}
	fit, ok := formulas.FitSeries(DailyWinRates(outcomes, loc))
	if !ok {
		return domain.TrendStable
	}
	return domain.TrendForSlope(fit.Slope, strengthTrendBand)
}

// TrendStrength classifies the daily trend with the stricter 0.02 band.
func (f *Forecaster) TrendStrength(ctx context.Context, patternType string) domain.TrendDirection {
	outcomes, ok := f.load(ctx, patternType)
	if !ok {
		return domain.TrendStable
	}
	return trendStrength(outcomes, f.loc)
}

// BreakoutProbability scales the gap between the 7-day and 30-day moving
// averages of daily win rate by recent volatility, mapped onto [0, 1].
func (f *Forecaster) BreakoutProbability(ctx context.Context, patternType string) float64 {
	outcomes, ok := f.load(ctx, patternType)
	if !ok || len(outcomes) < minDataPoints {
		return 0
	}

	daily := DailyWinRates(outcomes, f.loc)
	short := formulas.SMA(daily, shortWindow)
	long := formulas.SMA(daily, longWindow)
	if len(short) == 0 || len(long) == 0 {
		return 0
	}

	volatility := formulas.PopStdDev(formulas.Tail(daily, volatilityWindow))
	if volatility == 0 {
		return 0
	}
	momentum := formulas.Mean(formulas.Tail(short, recentAverages)) - formulas.Mean(formulas.Tail(long, recentAverages))
	return formulas.Clamp((momentum/volatility)*50+50, 0, 100) / 100
}

// classify maps a recent-vs-prior change in points to a warning severity.
func classify(trend domain.TrendDirection, change float64) (domain.WarningSeverity, bool) {
	switch {
	case trend == domain.TrendDeclining && change < -20:
		return domain.SeverityCritical, true
	case trend == domain.TrendDeclining && change < -10:
		return domain.SeverityWarning, true
	case trend == domain.TrendImproving && change > 20:
		return domain.SeverityInfo, true
	default:
		return domain.SeverityInfo, false
	}
}

func warningMessage(patternType string, severity domain.WarningSeverity, change float64) string {
	points := int(math.Abs(change))
	switch severity {
	case domain.SeverityCritical:
		return fmt.Sprintf("%s declining: %d%% drop in last %d trades", patternType, points, warningWindow)
	case domain.SeverityWarning:
		return fmt.Sprintf("%s showing weakness: %d%% drop", patternType, points)
	default:
		return fmt.Sprintf("%s improving: %d%% gain in recent trades", patternType, points)
	}
}

// WarningSignals compares each pattern's last ten outcomes with the ten
// before them and reports sharp moves that agree with the daily trend.
func (f *Forecaster) WarningSignals(ctx context.Context) []TrendWarning {
	outcomes, err := f.store.GetAll(ctx)
	if err != nil {
		f.log.Error().Err(err).Msg("Failed to get warning signals")
		return []TrendWarning{}
	}

	groups := domain.GroupByPattern(outcomes)
	warnings := make([]TrendWarning, 0)
	for _, patternType := range domain.SortedKeys(groups) {
		series := groups[patternType]
		if len(series) < minWarningSamples {
			continue
		}

		recent := series[len(series)-warningWindow:]
		older := series[len(series)-2*warningWindow : len(series)-warningWindow]
		change := (domain.OutcomeWinRate(recent) - domain.OutcomeWinRate(older)) * 100

		trend := trendStrength(series, f.loc)
		severity, flagged := classify(trend, change)
		if !flagged {
			continue
		}
		warnings = append(warnings, TrendWarning{
			PatternType:  patternType,
			Severity:     severity,
			Message:      warningMessage(patternType, severity, change),
			CurrentTrend: trend,
			Change:       change,
		})
	}

	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].Severity.Compare(warnings[j].Severity) > 0 })
	return warnings
}
