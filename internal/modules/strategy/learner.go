// Package strategy assembles diversified multi-pattern portfolios.
package strategy

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
	"github.com/Lamont-Labs/QuantraVision-sub001/pkg/formulas"
)

const (
	// DefaultMaxPatterns is the portfolio size used when none is given.
	DefaultMaxPatterns = 5

	minSampleSize           = 20
	minComplementSamples    = 10
	minSynergy              = 0.05
	maxComplementaryResults = 5
	scoreEpsilon            = 1e-9
)

// StoreInterface is what the learner reads and writes.
type StoreInterface interface {
	GetAll(ctx context.Context) ([]domain.PatternOutcome, error)
	UpsertStrategySnapshot(ctx context.Context, snap domain.StrategyMetricsSnapshot) error
	GetTopStrategies(ctx context.Context, limit int) ([]domain.StrategyMetricsSnapshot, error)
}

// RiskScorerInterface supplies per-pattern risk figures.
type RiskScorerInterface interface {
	SharpeRatio(ctx context.Context, patternType string) float64
	ExpectedValue(ctx context.Context, patternType string) float64
}

// Learner builds portfolios from the outcome ledger
type Learner struct {
	store StoreInterface
	risk  RiskScorerInterface
	now   func() time.Time
	newID func() string
	log   zerolog.Logger
}

// NewLearner creates a new strategy learner
func NewLearner(store StoreInterface, risk RiskScorerInterface, log zerolog.Logger) *Learner {
	return &Learner{
		store: store,
		risk:  risk,
		now:   time.Now,
		newID: uuid.NewString,
		log:   log.With().Str("component", "strategy_learner").Logger(),
	}
}

type candidate struct {
	pattern string
	winRate float64
	sharpe  float64
	samples int
}

func (c candidate) score() float64 { return c.winRate + c.sharpe }

// BestPortfolio picks the top maxPatterns patterns by (winRate + sharpe) / 2
// among those with at least 20 outcomes, weights them by score and records
// a snapshot of the run. Fewer qualifying patterns than maxPatterns yields
// an empty INSUFFICIENT_DATA portfolio.
func (l *Learner) BestPortfolio(ctx context.Context, maxPatterns int) Portfolio {
	if maxPatterns <= 0 {
		maxPatterns = DefaultMaxPatterns
	}
	empty := Portfolio{
		Patterns:   []string{},
		Allocation: map[string]float64{},
		Status:     domain.StatusInsufficientData,
	}

	outcomes, err := l.store.GetAll(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("Failed to get best portfolio")
		return empty
	}

	groups := domain.GroupByPattern(outcomes)
	candidates := make([]candidate, 0, len(groups))
	for _, patternType := range domain.SortedKeys(groups) {
		series := groups[patternType]
		if len(series) < minSampleSize {
			continue
		}
		candidates = append(candidates, candidate{
			pattern: patternType,
			winRate: domain.OutcomeWinRate(series),
			sharpe:  l.risk.SharpeRatio(ctx, patternType),
			samples: len(series),
		})
	}
	if ctx.Err() != nil || len(candidates) < maxPatterns {
		return empty
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score() > candidates[j].score() })
	selected := candidates[:maxPatterns]

	portfolio := Portfolio{
		RunID:      l.newID(),
		Patterns:   make([]string, len(selected)),
		Allocation: make(map[string]float64, len(selected)),
		Status:     domain.StatusOK,
	}

	total := 0.0
	winRates := make([]float64, len(selected))
	sharpes := make([]float64, len(selected))
	counts := make([]int, len(selected))
	for i, c := range selected {
		portfolio.Patterns[i] = c.pattern
		total += c.score()
		winRates[i] = c.winRate
		sharpes[i] = c.sharpe
		counts[i] = c.samples
		portfolio.SampleSize += c.samples
	}

	for _, c := range selected {
		if math.Abs(total) < scoreEpsilon {
			portfolio.Allocation[c.pattern] = 0
			portfolio.Status = domain.StatusDegenerate
			continue
		}
		portfolio.Allocation[c.pattern] = c.score() / total
	}
	portfolio.CombinedWinRate = formulas.Mean(winRates)
	portfolio.SharpeRatio = formulas.Mean(sharpes)
	portfolio.Diversification = formulas.Diversification(counts)

	if err := l.store.UpsertStrategySnapshot(ctx, domain.StrategyMetricsSnapshot{
		RunID:             portfolio.RunID,
		PortfolioPatterns: portfolio.Patterns,
		WinRate:           portfolio.CombinedWinRate,
		SharpeRatio:       portfolio.SharpeRatio,
		Diversification:   portfolio.Diversification,
		SampleSize:        portfolio.SampleSize,
		LastUpdated:       l.now(),
	}); err != nil {
		l.log.Warn().Err(err).Str("run_id", portfolio.RunID).Msg("Failed to store strategy snapshot")
	}

	return portfolio
}

// ComplementaryPatterns finds up to five patterns whose pooled win rate with
// the target beats the average of the two rates by more than 5 points.
func (l *Learner) ComplementaryPatterns(ctx context.Context, patternType string) []Complement {
	outcomes, err := l.store.GetAll(ctx)
	if err != nil {
		l.log.Error().Err(err).Str("pattern_type", patternType).Msg("Failed to get complementary patterns")
		return []Complement{}
	}

	groups := domain.GroupByPattern(outcomes)
	target := groups[patternType]
	if len(target) == 0 {
		return []Complement{}
	}
	targetWins := wins(target)
	targetRate := float64(targetWins) / float64(len(target))

	complements := make([]Complement, 0)
	for _, other := range domain.SortedKeys(groups) {
		series := groups[other]
		if other == patternType || len(series) < minComplementSamples {
			continue
		}
		otherWins := wins(series)
		otherRate := float64(otherWins) / float64(len(series))
		combined := float64(targetWins+otherWins) / float64(len(target)+len(series))

		if synergy := combined - (targetRate+otherRate)/2; synergy > minSynergy {
			complements = append(complements, Complement{PatternType: other, Synergy: synergy})
		}
	}

	sort.SliceStable(complements, func(i, j int) bool { return complements[i].Synergy > complements[j].Synergy })
	if len(complements) > maxComplementaryResults {
		complements = complements[:maxComplementaryResults]
	}
	return complements
}

func wins(outcomes []domain.PatternOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.IsWin() {
			n++
		}
	}
	return n
}

func patternCounts(groups map[string][]domain.PatternOutcome) []int {
	counts := make([]int, 0, len(groups))
	for _, patternType := range domain.SortedKeys(groups) {
		counts = append(counts, len(groups[patternType]))
	}
	return counts
}

// DiversificationScore is 1 - HHI of detection-count shares across every
// pattern type: 0 for one type and (n-1)/n for n equal types.
func (l *Learner) DiversificationScore(ctx context.Context) float64 {
	outcomes, err := l.store.GetAll(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("Failed to calculate diversification score")
		return 0
	}
	return formulas.Diversification(patternCounts(domain.GroupByPattern(outcomes)))
}

// PortfolioMetrics averages win rate, Sharpe ratio and expected value over
// every pattern type.
func (l *Learner) PortfolioMetrics(ctx context.Context) Stats {
	outcomes, err := l.store.GetAll(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("Failed to get portfolio metrics")
		return Stats{}
	}

	groups := domain.GroupByPattern(outcomes)
	if len(groups) == 0 {
		return Stats{}
	}

	winRates := make([]float64, 0, len(groups))
	sharpes := make([]float64, 0, len(groups))
	values := make([]float64, 0, len(groups))
	for _, patternType := range domain.SortedKeys(groups) {
		winRates = append(winRates, domain.OutcomeWinRate(groups[patternType]))
		sharpes = append(sharpes, l.risk.SharpeRatio(ctx, patternType))
		values = append(values, l.risk.ExpectedValue(ctx, patternType))
	}

	counts := patternCounts(groups)
	return Stats{
		TotalPatterns:             len(groups),
		AvgWinRate:                formulas.Mean(winRates),
		DiversificationScore:      formulas.Diversification(counts),
		NormalizedDiversification: formulas.NormalizedDiversification(counts),
		SharpeRatio:               formulas.Mean(sharpes),
		ExpectedValue:             formulas.Mean(values),
	}
}

// TopStrategies reads back stored snapshots, best Sharpe ratio first.
func (l *Learner) TopStrategies(ctx context.Context, limit int) []domain.StrategyMetricsSnapshot {
	snapshots, err := l.store.GetTopStrategies(ctx, limit)
	if err != nil {
		l.log.Error().Err(err).Msg("Failed to load strategy snapshots")
		return []domain.StrategyMetricsSnapshot{}
	}
	return snapshots
}
