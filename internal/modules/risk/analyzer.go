// Package risk scores pattern types by return-adjusted reliability.
package risk

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
	"github.com/Lamont-Labs/QuantraVision-sub001/pkg/formulas"
)

const (
	// MinSampleSize is the floor for every per-pattern risk figure.
	MinSampleSize = 10

	lowVolatility    = 2.0
	mediumVolatility = 5.0
	rankingLimit     = 10
)

// OutcomeReaderInterface is the ledger slice the analyzer reads.
type OutcomeReaderInterface interface {
	GetAll(ctx context.Context) ([]domain.PatternOutcome, error)
	GetByPatternType(ctx context.Context, name string) ([]domain.PatternOutcome, error)
}

// Analyzer computes Sharpe-like ratios, expected values and drawdowns
type Analyzer struct {
	store OutcomeReaderInterface
	log   zerolog.Logger
}

// NewAnalyzer creates a new risk-adjusted analyzer
func NewAnalyzer(store OutcomeReaderInterface, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		store: store,
		log:   log.With().Str("component", "risk_adjusted_analyzer").Logger(),
	}
}

// SharpeOf is mean return over population std dev. Without return data it
// falls back to (winRate - 0.5) / 0.25. Below ten samples or with zero
// spread it is 0.
func SharpeOf(outcomes []domain.PatternOutcome) float64 {
	if len(outcomes) < MinSampleSize {
		return 0
	}
	returns := domain.Returns(outcomes)
	if len(returns) == 0 {
		return (domain.OutcomeWinRate(outcomes) - 0.5) / 0.25
	}
	mean, std := formulas.MeanStdDev(returns)
	if std == 0 {
		return 0
	}
	return mean / std
}

// ExpectedValueOf is winRate*avgWin - lossRate*|avgLoss|, or winRate - 0.5
// when either side has no return data.
func ExpectedValueOf(outcomes []domain.PatternOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}

	var wins, losses []float64
	winCount := 0
	for _, o := range outcomes {
		if o.IsWin() {
			winCount++
		}
		if o.ProfitLossPercent == nil {
			continue
		}
		if o.IsWin() {
			wins = append(wins, *o.ProfitLossPercent)
		} else {
			losses = append(losses, *o.ProfitLossPercent)
		}
	}

	winRate := float64(winCount) / float64(len(outcomes))
	if len(wins) == 0 || len(losses) == 0 {
		return winRate - 0.5
	}
	lossRate := 1 - winRate
	return winRate*formulas.Mean(wins) - lossRate*math.Abs(formulas.Mean(losses))
}

// LevelForVolatility bands return volatility into a risk level.
func LevelForVolatility(volatility float64) domain.RiskLevel {
	switch {
	case volatility < lowVolatility:
		return domain.RiskLow
	case volatility < mediumVolatility:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

// RiskLevelOf classifies a pattern's outcomes, MEDIUM when there is not
// enough return data to tell.
func RiskLevelOf(outcomes []domain.PatternOutcome) domain.RiskLevel {
	if len(outcomes) < MinSampleSize {
		return domain.RiskMedium
	}
	returns := domain.Returns(outcomes)
	if len(returns) == 0 {
		return domain.RiskMedium
	}
	return LevelForVolatility(formulas.PopStdDev(returns))
}

// RecoveryTimeOf is the longest gap between the first loss of a losing run
// and the next win.
func RecoveryTimeOf(outcomes []domain.PatternOutcome) time.Duration {
	ordered := append([]domain.PatternOutcome(nil), outcomes...)
	domain.SortByTime(ordered)

	var longest time.Duration
	var start time.Time
	inDrawdown := false
	for _, o := range ordered {
		switch {
		case !o.IsWin() && !inDrawdown:
			inDrawdown = true
			start = o.Timestamp
		case o.IsWin() && inDrawdown:
			if d := o.Timestamp.Sub(start); d > longest {
				longest = d
			}
			inDrawdown = false
		}
	}
	return longest
}

func (a *Analyzer) load(ctx context.Context, patternType string) ([]domain.PatternOutcome, bool) {
	outcomes, err := a.store.GetByPatternType(ctx, patternType)
	if err != nil {
		a.log.Error().Err(err).Str("pattern_type", patternType).Msg("Failed to load outcomes for risk analysis")
		return nil, false
	}
	return outcomes, true
}

// SharpeRatio returns the pattern's Sharpe-like ratio, 0 on failure.
func (a *Analyzer) SharpeRatio(ctx context.Context, patternType string) float64 {
	outcomes, ok := a.load(ctx, patternType)
	if !ok {
		return 0
	}
	return SharpeOf(outcomes)
}

// ExpectedValue returns the pattern's expected value, 0 on failure.
func (a *Analyzer) ExpectedValue(ctx context.Context, patternType string) float64 {
	outcomes, ok := a.load(ctx, patternType)
	if !ok {
		return 0
	}
	return ExpectedValueOf(outcomes)
}

// RiskScore returns the pattern's risk level, MEDIUM on failure.
func (a *Analyzer) RiskScore(ctx context.Context, patternType string) domain.RiskLevel {
	outcomes, ok := a.load(ctx, patternType)
	if !ok {
		return domain.RiskMedium
	}
	return RiskLevelOf(outcomes)
}

// BestRiskAdjusted ranks every pattern with at least ten outcomes by Sharpe
// ratio and returns the top ten.
func (a *Analyzer) BestRiskAdjusted(ctx context.Context) []RankedPattern {
	outcomes, err := a.store.GetAll(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to get best risk-adjusted patterns")
		return []RankedPattern{}
	}

	groups := domain.GroupByPattern(outcomes)
	ranked := make([]RankedPattern, 0, len(groups))
	for _, patternType := range domain.SortedKeys(groups) {
		series := groups[patternType]
		if len(series) < MinSampleSize {
			continue
		}
		ranked = append(ranked, RankedPattern{
			PatternType:   patternType,
			SharpeRatio:   SharpeOf(series),
			ExpectedValue: ExpectedValueOf(series),
			WinRate:       domain.OutcomeWinRate(series),
			SampleSize:    len(series),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].SharpeRatio > ranked[j].SharpeRatio })
	if len(ranked) > rankingLimit {
		ranked = ranked[:rankingLimit]
	}
	return ranked
}

// RiskMetrics returns the pattern's full risk profile. Status is
// INSUFFICIENT_DATA below ten outcomes or without return data.
func (a *Analyzer) RiskMetrics(ctx context.Context, patternType string) Metrics {
	metrics := Metrics{
		PatternType: patternType,
		RiskLevel:   domain.RiskMedium,
		Status:      domain.StatusInsufficientData,
	}

	outcomes, ok := a.load(ctx, patternType)
	if !ok || len(outcomes) < MinSampleSize {
		return metrics
	}
	returns := domain.Returns(outcomes)
	if len(returns) == 0 {
		return metrics
	}

	volatility := formulas.PopStdDev(returns)
	metrics.SharpeRatio = SharpeOf(outcomes)
	metrics.ExpectedValue = ExpectedValueOf(outcomes)
	metrics.Volatility = volatility
	metrics.MaxDrawdown = formulas.MaxDrawdownOfReturns(returns)
	metrics.RecoveryTime = RecoveryTimeOf(outcomes)
	metrics.RiskLevel = LevelForVolatility(volatility)
	metrics.Status = domain.StatusOK
	return metrics
}
