// Package correlation relates pattern types through their hour-of-day
// occurrence profiles and mines frequent detection sequences.
package correlation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
	"github.com/Lamont-Labs/QuantraVision-sub001/pkg/formulas"
)

const (
	hourlyBuckets          = 24
	minPatternsForAnalysis = 20
	correlationWindow      = 90 * 24 * time.Hour
	sequenceWindow         = 30 * 24 * time.Hour
	cooccurrenceWindow     = time.Hour
	sequenceLength         = 3
	minPredictionSamples   = 3
	minSequenceFrequency   = 2
	commonSequenceLimit    = 10
)

// StoreInterface combines the ledger and learning store methods the analyzer uses.
type StoreInterface interface {
	GetRecent(ctx context.Context, since time.Time) ([]domain.PatternDetection, error)
	GetAll(ctx context.Context) ([]domain.PatternOutcome, error)
	UpsertCorrelation(ctx context.Context, rec domain.PatternCorrelationRecord) error
	GetTopCorrelations(ctx context.Context, limit int) ([]domain.PatternCorrelationRecord, error)
	UpsertSequence(ctx context.Context, rec domain.PatternSequenceRecord) error
	GetCommonSequences(ctx context.Context, limit int) ([]domain.PatternSequenceRecord, error)
}

// Analyzer computes cross-pattern correlations and sequences
type Analyzer struct {
	store StoreInterface
	now   func() time.Time
	log   zerolog.Logger
}

// NewAnalyzer creates a new pattern correlation analyzer
func NewAnalyzer(store StoreInterface, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		store: store,
		now:   time.Now,
		log:   log.With().Str("component", "pattern_correlation_analyzer").Logger(),
	}
}

// hourBucket is the UTC hour of day of the detection's epoch timestamp.
func hourBucket(t time.Time) int {
	return int((t.UnixMilli() / time.Hour.Milliseconds()) % hourlyBuckets)
}

func hourlyProfile(detections []domain.PatternDetection, pattern string) []float64 {
	buckets := make([]float64, hourlyBuckets)
	for _, d := range detections {
		if d.PatternName == pattern {
			buckets[hourBucket(d.Timestamp)]++
		}
	}
	return buckets
}

func countCooccurrences(detections []domain.PatternDetection, a, b string) int {
	count := 0
	for _, first := range detections {
		if first.PatternName != a {
			continue
		}
		for _, second := range detections {
			if second.PatternName != b || second.ID == first.ID {
				continue
			}
			gap := second.Timestamp.Sub(first.Timestamp)
			if gap < 0 {
				gap = -gap
			}
			if gap < cooccurrenceWindow {
				count++
				break
			}
		}
	}
	return count
}

func distinctNames(detections []domain.PatternDetection) []string {
	seen := make(map[string]struct{})
	for _, d := range detections {
		seen[d.PatternName] = struct{}{}
	}
	return domain.SortedKeys(seen)
}

// AnalyzeCorrelations correlates every pair of pattern types seen in the last
// 90 days and upserts a record per defined pair. Pairs whose coefficient is
// undefined are left out.
func (a *Analyzer) AnalyzeCorrelations(ctx context.Context) []Correlation {
	result := make([]Correlation, 0)

	detections, err := a.store.GetRecent(ctx, a.now().Add(-correlationWindow))
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to load detections for correlation analysis")
		return result
	}
	if len(detections) < minPatternsForAnalysis {
		a.log.Warn().
			Int("detections", len(detections)).
			Int("required", minPatternsForAnalysis).
			Msg("Insufficient data for correlation analysis")
		return result
	}

	names := distinctNames(detections)
	profiles := make(map[string][]float64, len(names))
	for _, name := range names {
		profiles[name] = hourlyProfile(detections, name)
	}

	now := a.now()
	for i, pa := range names {
		for _, pb := range names[i+1:] {
			if ctx.Err() != nil {
				return make([]Correlation, 0)
			}
			r, ok := formulas.Correlation(profiles[pa], profiles[pb])
			if !ok {
				continue
			}
			c := Correlation{
				PatternA:          pa,
				PatternB:          pb,
				Coefficient:       r,
				CooccurrenceCount: countCooccurrences(detections, pa, pb),
			}
			result = append(result, c)

			coefficient := r
			if err := a.store.UpsertCorrelation(ctx, domain.PatternCorrelationRecord{
				PatternA:          pa,
				PatternB:          pb,
				Correlation:       &coefficient,
				CooccurrenceCount: c.CooccurrenceCount,
				LastUpdated:       now,
			}); err != nil {
				a.log.Warn().Err(err).Str("pattern_a", pa).Str("pattern_b", pb).Msg("Failed to store correlation")
			}
		}
	}

	return result
}

// TopCorrelations reads back the strongest stored correlations.
func (a *Analyzer) TopCorrelations(ctx context.Context, limit int) []Correlation {
	records, err := a.store.GetTopCorrelations(ctx, limit)
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to load stored correlations")
		return []Correlation{}
	}

	out := make([]Correlation, 0, len(records))
	for _, rec := range records {
		if rec.Correlation == nil {
			continue
		}
		out = append(out, Correlation{
			PatternA:          rec.PatternA,
			PatternB:          rec.PatternB,
			Coefficient:       *rec.Correlation,
			CooccurrenceCount: rec.CooccurrenceCount,
		})
	}
	return out
}

// window is one contiguous run of detections in time order.
type window []domain.PatternDetection

func (w window) names() []string {
	names := make([]string, len(w))
	for i, d := range w {
		names[i] = d.PatternName
	}
	return names
}

func (w window) span() time.Duration {
	return w[len(w)-1].Timestamp.Sub(w[0].Timestamp)
}

func extractWindows(detections []domain.PatternDetection) []window {
	if len(detections) < sequenceLength {
		return nil
	}
	windows := make([]window, 0, len(detections)-sequenceLength+1)
	for i := 0; i+sequenceLength <= len(detections); i++ {
		windows = append(windows, window(detections[i:i+sequenceLength]))
	}
	return windows
}

func indexOf(names []string, target string) int {
	for i, n := range names {
		if n == target {
			return i
		}
	}
	return -1
}

// PredictNextPatterns tallies what followed the current pattern inside the
// last 30 days of length-3 windows and keeps followers seen at least three
// times.
func (a *Analyzer) PredictNextPatterns(ctx context.Context, current string) []Prediction {
	detections, err := a.store.GetRecent(ctx, a.now().Add(-sequenceWindow))
	if err != nil {
		a.log.Error().Err(err).Str("pattern_type", current).Msg("Failed to predict next patterns")
		return []Prediction{}
	}

	windows := extractWindows(detections)
	counts := make(map[string]int)
	for _, w := range windows {
		names := w.names()
		if idx := indexOf(names, current); idx >= 0 && idx < len(names)-1 {
			counts[names[idx+1]]++
		}
	}

	predictions := make([]Prediction, 0, len(counts))
	for _, next := range domain.SortedKeys(counts) {
		if counts[next] < minPredictionSamples {
			continue
		}
		predictions = append(predictions, Prediction{
			PatternType: next,
			Probability: float64(counts[next]) / float64(len(windows)),
			SampleSize:  counts[next],
		})
	}
	sort.SliceStable(predictions, func(i, j int) bool { return predictions[i].Probability > predictions[j].Probability })
	return predictions
}

// UpdateSequences rebuilds the sequence cache from the last 30 days and
// returns how many sequences were stored. A sequence's success rate is the
// win rate of outcomes linked to any detection inside its windows.
func (a *Analyzer) UpdateSequences(ctx context.Context) (int, error) {
	now := a.now()
	detections, err := a.store.GetRecent(ctx, now.Add(-sequenceWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to load detections for sequences: %w", err)
	}
	outcomes, err := a.store.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load outcomes for sequences: %w", err)
	}

	byDetection := make(map[int64][]domain.Outcome)
	for _, o := range outcomes {
		if o.DetectionID != nil {
			byDetection[*o.DetectionID] = append(byDetection[*o.DetectionID], o.Outcome)
		}
	}

	grouped := make(map[string][]window)
	for _, w := range extractWindows(detections) {
		key := domain.SequenceKey(w.names())
		grouped[key] = append(grouped[key], w)
	}

	stored := 0
	for _, key := range domain.SortedKeys(grouped) {
		windows := grouped[key]
		if len(windows) < minSequenceFrequency {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		spans := make([]float64, len(windows))
		linked := make(map[int64]struct{})
		for i, w := range windows {
			spans[i] = float64(w.span())
			for _, d := range w {
				linked[d.ID] = struct{}{}
			}
		}
		labels := make([]domain.Outcome, 0)
		for id := range linked {
			labels = append(labels, byDetection[id]...)
		}

		rec := domain.PatternSequenceRecord{
			Sequence:       windows[0].names(),
			Frequency:      len(windows),
			AvgSuccessRate: domain.WinRate(labels),
			AvgTimeSpan:    time.Duration(formulas.Mean(spans)),
			LastSeen:       now,
		}
		if err := a.store.UpsertSequence(ctx, rec); err != nil {
			return stored, fmt.Errorf("failed to store sequence %q: %w", key, err)
		}
		stored++
	}

	a.log.Debug().Int("sequences", stored).Msg("Updated pattern sequences")
	return stored, nil
}

// CommonSequences returns the ten most frequent stored sequences.
func (a *Analyzer) CommonSequences(ctx context.Context) []Sequence {
	records, err := a.store.GetCommonSequences(ctx, commonSequenceLimit)
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to get common sequences")
		return []Sequence{}
	}

	out := make([]Sequence, len(records))
	for i, rec := range records {
		out[i] = Sequence{
			Patterns:       rec.Sequence,
			Frequency:      rec.Frequency,
			AvgSuccessRate: rec.AvgSuccessRate,
			TimeSpan:       rec.AvgTimeSpan,
		}
	}
	return out
}
