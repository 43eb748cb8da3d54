// Package anomaly flags sudden win-rate changes, unusual streaks, per-outcome
// outliers and half-over-half performance shifts.
package anomaly

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
	minSampleSize      = 20
	minOutlierSamples  = 10
	minShiftSamples    = 30
	outlierZScore      = 2.5
	recentWindow       = 7
	baselineWindow     = 14
	suddenChangePoints = 30.0
	shiftPercent       = 25.0
	streakPercentile   = 0.02
	streakMultiplier   = 1.5
)

// OutcomeReaderInterface is the slice of the outcome store the detector reads.
type OutcomeReaderInterface interface {
	GetAll(ctx context.Context) ([]domain.PatternOutcome, error)
	GetByPatternType(ctx context.Context, name string) ([]domain.PatternOutcome, error)
}

// Detector finds anomalies in pattern outcomes
type Detector struct {
	store OutcomeReaderInterface
	now   func() time.Time
	log   zerolog.Logger
}

// NewDetector creates a new anomaly detector
func NewDetector(store OutcomeReaderInterface, log zerolog.Logger) *Detector {
	return &Detector{
		store: store,
		now:   time.Now,
		log:   log.With().Str("component", "anomaly_detector").Logger(),
	}
}

// DetectAnomalies scans every pattern with enough history and returns the
// anomalies ordered by severity, most severe first.
func (d *Detector) DetectAnomalies(ctx context.Context) []Anomaly {
	all, err := d.store.GetAll(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("Failed to load outcomes for anomaly detection")
		return []Anomaly{}
	}

	now := d.now()
	groups := domain.GroupByPattern(all)
	anomalies := make([]Anomaly, 0)

	for _, pattern := range domain.SortedKeys(groups) {
		if ctx.Err() != nil {
			return []Anomaly{}
		}
		outcomes := groups[pattern]
		if len(outcomes) < minSampleSize {
			continue
		}
		if a, ok := suddenChange(pattern, outcomes, now); ok {
			anomalies = append(anomalies, a)
		}
		if a, ok := unusualStreak(pattern, outcomes, now); ok {
			anomalies = append(anomalies, a)
		}
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Severity > anomalies[j].Severity
	})
	return anomalies
}

// suddenChange compares the most recent window against the one before it.
func suddenChange(pattern string, outcomes []domain.PatternOutcome, now time.Time) (Anomaly, bool) {
	n := len(outcomes)
	if n < recentWindow+baselineWindow {
		return Anomaly{}, false
	}
	recent := outcomes[n-recentWindow:]
	older := outcomes[n-recentWindow-baselineWindow : n-recentWindow]

	recentRate := domain.OutcomeWinRate(recent)
	olderRate := domain.OutcomeWinRate(older)
	change := (recentRate - olderRate) * 100

	switch {
	case change < -suddenChangePoints:
		return Anomaly{
			Type:          domain.AnomalySuddenDrop,
			PatternType:   pattern,
			Severity:      domain.SeverityCritical,
			Description:   fmt.Sprintf("Sudden drop: %s win rate dropped %.0f%% in last %d days", pattern, math.Abs(change), recentWindow),
			ZScore:        math.Abs(change) / 10,
			DetectedAt:    now,
			ExpectedValue: olderRate,
			ActualValue:   recentRate,
		}, true
	case change > suddenChangePoints:
		return Anomaly{
			Type:          domain.AnomalySuddenImprovement,
			PatternType:   pattern,
			Severity:      domain.SeverityInfo,
			Description:   fmt.Sprintf("Sudden improvement: %s improved %.0f%% in last %d days", pattern, change, recentWindow),
			ZScore:        change / 10,
			DetectedAt:    now,
			ExpectedValue: olderRate,
			ActualValue:   recentRate,
		}, true
	}
	return Anomaly{}, false
}

// unusualStreak compares the longest win streak to the 98th-percentile
// expectation for the pattern's win rate.
func unusualStreak(pattern string, outcomes []domain.PatternOutcome, now time.Time) (Anomaly, bool) {
	winRate := domain.OutcomeWinRate(outcomes)
	if winRate <= 0 || winRate >= 1 {
		return Anomaly{}, false
	}

	maxWin, _ := longestStreaks(outcomes)
	expected := ExpectedMaxStreak(winRate)
	if expected <= 0 || float64(maxWin) <= expected*streakMultiplier {
		return Anomaly{}, false
	}

	return Anomaly{
		Type:          domain.AnomalyUnusualStreak,
		PatternType:   pattern,
		Severity:      domain.SeverityInfo,
		Description:   fmt.Sprintf("Unusual win streak: %s won %d in a row (98th percentile)", pattern, maxWin),
		ZScore:        float64(maxWin) / expected,
		DetectedAt:    now,
		ExpectedValue: expected,
		ActualValue:   float64(maxWin),
	}, true
}

// ExpectedMaxStreak is the magnitude of -ln(0.02) / ln(1 - winRate).
func ExpectedMaxStreak(winRate float64) float64 {
	if winRate <= 0 || winRate >= 1 {
		return 0
	}
	return math.Abs(-math.Log(streakPercentile) / math.Log(1-winRate))
}

// longestStreaks returns the longest WIN run and the longest LOSS run.
func longestStreaks(outcomes []domain.PatternOutcome) (maxWin, maxLoss int) {
	run := 0
	var prev domain.Outcome
	for i, o := range outcomes {
		if i > 0 && o.Outcome == prev {
			run++
		} else {
			run = 1
		}
		prev = o.Outcome
		if o.Outcome == domain.OutcomeWin && run > maxWin {
			maxWin = run
		}
		if o.Outcome == domain.OutcomeLoss && run > maxLoss {
			maxLoss = run
		}
	}
	return maxWin, maxLoss
}

// IsOutlier reports whether the outcome's profit/loss sits more than 2.5
// standard deviations from its pattern's history.
func (d *Detector) IsOutlier(ctx context.Context, outcome domain.PatternOutcome) bool {
	if outcome.ProfitLossPercent == nil {
		return false
	}

	history, err := d.store.GetByPatternType(ctx, outcome.PatternName)
	if err != nil {
		d.log.Error().Err(err).Str("pattern_type", outcome.PatternName).Msg("Failed to load outcomes for outlier check")
		return false
	}

	returns := domain.Returns(history)
	if len(history) < minOutlierSamples || len(returns) < minOutlierSamples {
		return false
	}

	mean, std := formulas.MeanStdDev(returns)
	if std == 0 {
		return false
	}
	z := math.Abs(*outcome.ProfitLossPercent-mean) / std
	return z > outlierZScore
}

// DetectPerformanceShifts splits each pattern's history at the midpoint and
// reports relative win-rate changes over 25%.
func (d *Detector) DetectPerformanceShifts(ctx context.Context) []PerformanceShift {
	all, err := d.store.GetAll(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("Failed to load outcomes for shift detection")
		return []PerformanceShift{}
	}

	now := d.now()
	groups := domain.GroupByPattern(all)
	shifts := make([]PerformanceShift, 0)

	for _, pattern := range domain.SortedKeys(groups) {
		outcomes := groups[pattern]
		if len(outcomes) < minShiftSamples {
			continue
		}

		mid := len(outcomes) / 2
		oldRate := domain.OutcomeWinRate(outcomes[:mid])
		newRate := domain.OutcomeWinRate(outcomes[mid:])
		if oldRate == 0 {
			continue
		}

		change := (newRate - oldRate) / oldRate * 100
		if math.Abs(change) <= shiftPercent {
			continue
		}

		reason := "Declining performance - may need threshold recalibration or pattern review"
		if change > 0 {
			reason = "Improved performance - possible learning effect or threshold adjustment"
		}

		shifts = append(shifts, PerformanceShift{
			PatternType:   pattern,
			OldWinRate:    oldRate,
			NewWinRate:    newRate,
			ChangePercent: change,
			DetectedAt:    now,
			LikelyReason:  reason,
		})
	}

	return shifts
}

var recommendedActions = map[domain.AnomalyType]string{
	domain.AnomalySuddenDrop:        "Review pattern settings and recent outcomes",
	domain.AnomalySuddenImprovement: "Document what changed to maintain improvements",
	domain.AnomalyUnusualStreak:     "Verify pattern reliability with more data",
	domain.AnomalyPerformanceShift:  "Recalibrate confidence thresholds",
	domain.AnomalyOutlier:           "Investigate unusual trade conditions",
}

// RecommendedAction returns the follow-up advice for an anomaly type.
func RecommendedAction(t domain.AnomalyType) string {
	if action, ok := recommendedActions[t]; ok {
		return action
	}
	return "Review pattern"
}

// AttentionRequired merges anomalies and shifts into a prioritized alert list.
func (d *Detector) AttentionRequired(ctx context.Context) []AlertItem {
	alerts := make([]AlertItem, 0)

	for _, a := range d.DetectAnomalies(ctx) {
		alerts = append(alerts, AlertItem{
			Priority:          domain.PriorityForSeverity(a.Severity),
			Type:              a.Type,
			PatternType:       a.PatternType,
			Message:           a.Description,
			RecommendedAction: RecommendedAction(a.Type),
		})
	}

	for _, s := range d.DetectPerformanceShifts(ctx) {
		alerts = append(alerts, AlertItem{
			Priority:          shiftPriority(s.ChangePercent),
			Type:              domain.AnomalyPerformanceShift,
			PatternType:       s.PatternType,
			Message:           fmt.Sprintf("Performance shift: %.0f%% change", s.ChangePercent),
			RecommendedAction: s.LikelyReason,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Priority > alerts[j].Priority
	})
	return alerts
}

func shiftPriority(changePercent float64) domain.AlertPriority {
	switch magnitude := math.Abs(changePercent); {
	case magnitude > 40:
		return domain.PriorityUrgent
	case magnitude > 30:
		return domain.PriorityHigh
	default:
		return domain.PriorityMedium
	}
}
