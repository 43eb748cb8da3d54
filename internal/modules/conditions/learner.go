// Package conditions learns which patterns perform best in each market regime.
package conditions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
)

const (
	minSampleSize   = 10
	minBestWinRate  = 0.60
	maxBestPatterns = 5
)

// ErrUnknownRegime is returned when a volatility/trend pair does not map to a condition.
var ErrUnknownRegime = errors.New("unknown market regime")

// ConditionBreakdown is a pattern's record in one market condition.
type ConditionBreakdown struct {
	Condition              domain.MarketCondition        `json:"condition"`
	WinRate                float64                       `json:"win_rate"`
	SampleSize             int                           `json:"sample_size"`
	RecommendationStrength domain.RecommendationStrength `json:"recommendation_strength"`
}

// ConditionStoreInterface is the slice of the learning store the learner uses.
type ConditionStoreInterface interface {
	InsertMarketConditionOutcome(ctx context.Context, o domain.MarketConditionOutcome) (int64, error)
	GetOutcomesByCondition(ctx context.Context, patternType string, condition domain.MarketCondition) ([]domain.MarketConditionOutcome, error)
	GetAllOutcomesForCondition(ctx context.Context, condition domain.MarketCondition) ([]domain.MarketConditionOutcome, error)
}

// Learner aggregates outcomes by market condition
type Learner struct {
	store ConditionStoreInterface
	now   func() time.Time
	log   zerolog.Logger
}

// NewLearner creates a new market condition learner
func NewLearner(store ConditionStoreInterface, log zerolog.Logger) *Learner {
	return &Learner{
		store: store,
		now:   time.Now,
		log:   log.With().Str("component", "market_condition_learner").Logger(),
	}
}

// TrackOutcome tags an outcome with the condition for the given regime reading.
func (l *Learner) TrackOutcome(ctx context.Context, patternType string, outcome domain.Outcome, vol domain.VolatilityLevel, trend domain.TrendStrength) error {
	condition, ok := domain.ConditionFor(vol, trend)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownRegime, vol, trend)
	}

	_, err := l.store.InsertMarketConditionOutcome(ctx, domain.MarketConditionOutcome{
		PatternType:     patternType,
		MarketCondition: condition,
		Outcome:         outcome,
		Timestamp:       l.now(),
		VolatilityLevel: vol,
		TrendStrength:   trend,
	})
	if err != nil {
		return fmt.Errorf("failed to track market condition outcome: %w", err)
	}
	return nil
}

func conditionWinRate(outcomes []domain.MarketConditionOutcome) float64 {
	labels := make([]domain.Outcome, len(outcomes))
	for i, o := range outcomes {
		labels[i] = o.Outcome
	}
	return domain.WinRate(labels)
}

// BestPatternsForCondition returns up to five patterns with a win rate of at
// least 60% in the condition, best first.
func (l *Learner) BestPatternsForCondition(ctx context.Context, condition domain.MarketCondition) []string {
	outcomes, err := l.store.GetAllOutcomesForCondition(ctx, condition)
	if err != nil {
		l.log.Error().Err(err).Str("condition", string(condition)).Msg("Failed to get best patterns for condition")
		return []string{}
	}

	byPattern := make(map[string][]domain.MarketConditionOutcome)
	for _, o := range outcomes {
		byPattern[o.PatternType] = append(byPattern[o.PatternType], o)
	}

	type ranked struct {
		pattern string
		winRate float64
	}
	candidates := make([]ranked, 0, len(byPattern))
	for _, pattern := range domain.SortedKeys(byPattern) {
		if wr := conditionWinRate(byPattern[pattern]); wr >= minBestWinRate {
			candidates = append(candidates, ranked{pattern, wr})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].winRate > candidates[j].winRate })

	best := make([]string, 0, maxBestPatterns)
	for i := 0; i < len(candidates) && i < maxBestPatterns; i++ {
		best = append(best, candidates[i].pattern)
	}
	return best
}

// ConditionAnalysis breaks a pattern's record down by every condition with at
// least ten samples.
func (l *Learner) ConditionAnalysis(ctx context.Context, patternType string) []ConditionBreakdown {
	breakdown := make([]ConditionBreakdown, 0)
	for _, condition := range domain.AllMarketConditions() {
		if ctx.Err() != nil {
			return []ConditionBreakdown{}
		}
		outcomes, err := l.store.GetOutcomesByCondition(ctx, patternType, condition)
		if err != nil {
			l.log.Warn().Err(err).
				Str("pattern_type", patternType).
				Str("condition", string(condition)).
				Msg("Skipping condition in analysis")
			continue
		}
		if len(outcomes) < minSampleSize {
			continue
		}

		wr := conditionWinRate(outcomes)
		breakdown = append(breakdown, ConditionBreakdown{
			Condition:              condition,
			WinRate:                wr,
			SampleSize:             len(outcomes),
			RecommendationStrength: domain.StrengthForWinRate(wr),
		})
	}
	return breakdown
}

// CurrentOptimalPatterns resolves the live regime reading and returns its best patterns.
func (l *Learner) CurrentOptimalPatterns(ctx context.Context, vol domain.VolatilityLevel, trend domain.TrendStrength) []string {
	condition, ok := domain.ConditionFor(vol, trend)
	if !ok {
		l.log.Warn().Str("volatility", string(vol)).Str("trend", string(trend)).Msg("Unknown regime reading")
		return []string{}
	}
	return l.BestPatternsForCondition(ctx, condition)
}
