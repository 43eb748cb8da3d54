// Package calibration tunes a per-pattern confidence threshold by numerical
// gradient descent on a hit/miss loss.
package calibration

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
	"github.com/Lamont-Labs/QuantraVision-sub001/pkg/formulas"
)

// Starting point of every calibration run
const (
	InitialThreshold    = 0.5
	InitialLearningRate = 0.01
)

const (
	maxIterations        = 100
	convergenceThreshold = 0.001
	gradientEpsilon      = 0.001
	minThreshold         = 0.3
	maxThreshold         = 0.9
	minSampleSize        = 30
	convergenceWindow    = 5
)

// StoreInterface is what the calibrator reads and writes.
type StoreInterface interface {
	GetAll(ctx context.Context) ([]domain.PatternOutcome, error)
	GetByPatternType(ctx context.Context, name string) ([]domain.PatternOutcome, error)
	UpsertThreshold(ctx context.Context, rec domain.ThresholdRecord) error
}

// Calibrator optimizes confidence thresholds
type Calibrator struct {
	store StoreInterface
	now   func() time.Time
	log   zerolog.Logger
}

// NewCalibrator creates a new threshold calibrator
func NewCalibrator(store StoreInterface, log zerolog.Logger) *Calibrator {
	return &Calibrator{
		store: store,
		now:   time.Now,
		log:   log.With().Str("component", "threshold_calibrator").Logger(),
	}
}

// CalculateLoss scores an operating point as FPR + (1 - TPR). Every WIN is a
// true positive and every LOSS a false positive, so the threshold does not
// move the loss.
func CalculateLoss(threshold float64, outcomes []domain.PatternOutcome) float64 {
	if len(outcomes) == 0 {
		return 1
	}
	tpr, fpr := rates(outcomes)
	return fpr + (1 - tpr)
}

func rates(outcomes []domain.PatternOutcome) (tpr, fpr float64) {
	wins := 0
	for _, o := range outcomes {
		if o.IsWin() {
			wins++
		}
	}
	total := float64(len(outcomes))
	return float64(wins) / total, float64(len(outcomes)-wins) / total
}

// step moves the threshold against the central-difference gradient.
func step(threshold, learningRate float64, outcomes []domain.PatternOutcome) float64 {
	lossPlus := CalculateLoss(threshold+gradientEpsilon, outcomes)
	lossMinus := CalculateLoss(threshold-gradientEpsilon, outcomes)
	gradient := (lossPlus - lossMinus) / (2 * gradientEpsilon)
	return formulas.Clamp(threshold-learningRate*gradient, minThreshold, maxThreshold)
}

// GradientStep performs one update for a pattern type and returns the new
// threshold with its loss. A failed read leaves the threshold unchanged at
// the worst loss.
func (c *Calibrator) GradientStep(ctx context.Context, patternType string, threshold, learningRate float64) (float64, float64) {
	outcomes, err := c.store.GetByPatternType(ctx, patternType)
	if err != nil {
		c.log.Error().Err(err).Str("pattern_type", patternType).Msg("Failed to perform gradient step")
		return threshold, 1
	}
	next := step(threshold, learningRate, outcomes)
	return next, CalculateLoss(next, outcomes)
}

// Optimize runs gradient descent for one pattern's outcomes.
func Optimize(patternType string, outcomes []domain.PatternOutcome) OptimalThreshold {
	threshold := InitialThreshold
	learningRate := InitialLearningRate
	history := make([]float64, 0, maxIterations)

	for i := 0; i < maxIterations; i++ {
		loss := CalculateLoss(threshold, outcomes)
		history = append(history, loss)
		if i > 0 && math.Abs(loss-history[i-1]) < convergenceThreshold {
			break
		}

		threshold = step(threshold, learningRate, outcomes)

		if i > 0 && history[i] > history[i-1] {
			learningRate *= 0.5
		}
	}

	tpr, fpr := rates(outcomes)
	precision := 0.0
	if tpr+fpr > 0 {
		precision = tpr / (tpr + fpr)
	}
	f1 := 0.0
	if precision+tpr > 0 {
		f1 = 2 * precision * tpr / (precision + tpr)
	}

	return OptimalThreshold{
		PatternType:       patternType,
		Threshold:         threshold,
		TruePositiveRate:  tpr,
		FalsePositiveRate: fpr,
		Precision:         precision,
		F1Score:           f1,
		Loss:              history[len(history)-1],
		Iterations:        len(history),
		LossHistory:       history,
	}
}

// OptimizeThresholds calibrates every pattern type with at least 30 outcomes
// and upserts the results. Patterns below the floor are left out.
func (c *Calibrator) OptimizeThresholds(ctx context.Context) map[string]OptimalThreshold {
	result := make(map[string]OptimalThreshold)

	outcomes, err := c.store.GetAll(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to load outcomes for calibration")
		return result
	}

	groups := domain.GroupByPattern(outcomes)
	for _, patternType := range domain.SortedKeys(groups) {
		if ctx.Err() != nil {
			return make(map[string]OptimalThreshold)
		}
		series := groups[patternType]
		if len(series) < minSampleSize {
			continue
		}
		result[patternType] = Optimize(patternType, series)
	}

	c.persist(ctx, result)
	return result
}

// CalibratePattern calibrates a single pattern type. The second value is
// false when the pattern has too few outcomes.
func (c *Calibrator) CalibratePattern(ctx context.Context, patternType string) (OptimalThreshold, bool) {
	outcomes, err := c.store.GetByPatternType(ctx, patternType)
	if err != nil {
		c.log.Error().Err(err).Str("pattern_type", patternType).Msg("Failed to load outcomes for calibration")
		return OptimalThreshold{}, false
	}
	if len(outcomes) < minSampleSize {
		return OptimalThreshold{}, false
	}

	optimal := Optimize(patternType, outcomes)
	c.persist(ctx, map[string]OptimalThreshold{patternType: optimal})
	return optimal, true
}

func (c *Calibrator) persist(ctx context.Context, thresholds map[string]OptimalThreshold) {
	now := c.now()
	for _, patternType := range domain.SortedKeys(thresholds) {
		rec := thresholds[patternType].record()
		rec.LastUpdated = now
		if err := c.store.UpsertThreshold(ctx, rec); err != nil {
			c.log.Warn().Err(err).Str("pattern_type", patternType).Msg("Failed to store optimal threshold")
		}
	}
}

// ConvergenceStatus classifies a loss history by its last five samples.
func ConvergenceStatus(lossHistory []float64) domain.ConvergenceStatus {
	if len(lossHistory) < 2 {
		return domain.ConvergenceInsufficientData
	}

	recent := formulas.Tail(lossHistory, convergenceWindow)
	first, last := recent[0], recent[len(recent)-1]

	switch {
	case math.Abs(last-first) < convergenceThreshold:
		return domain.ConvergenceConverged
	case last < first:
		return domain.ConvergenceImproving
	default:
		return domain.ConvergenceStuck
	}
}

// CalibrateAll optimizes every pattern and averages their final losses.
func (c *Calibrator) CalibrateAll(ctx context.Context) Result {
	thresholds := c.OptimizeThresholds(ctx)
	if len(thresholds) == 0 {
		return Result{
			FinalLoss:         1,
			ConvergenceStatus: domain.ConvergenceInsufficientData,
			OptimalThresholds: thresholds,
		}
	}

	losses := make([]float64, 0, len(thresholds))
	iterations := 0
	for _, t := range thresholds {
		losses = append(losses, t.FalsePositiveRate+(1-t.TruePositiveRate))
		if t.Iterations > iterations {
			iterations = t.Iterations
		}
	}

	c.log.Info().
		Int("patterns", len(thresholds)).
		Int("iterations", iterations).
		Msg("Calibrated pattern thresholds")

	return Result{
		FinalLoss:         formulas.Mean(losses),
		Iterations:        iterations,
		ConvergenceStatus: domain.ConvergenceConverged,
		OptimalThresholds: thresholds,
	}
}
