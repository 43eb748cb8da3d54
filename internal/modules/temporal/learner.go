// Package temporal learns when in the day and week each pattern performs best.
package temporal

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
	minSampleSize  = 5
	minBestWinRate = 0.60
	hoursPerDay    = 24
	daysPerWeek    = 7
)

// TemporalStoreInterface is the slice of the learning store the learner uses.
type TemporalStoreInterface interface {
	InsertTemporalData(ctx context.Context, d domain.TemporalDatum) (int64, error)
	GetTemporalData(ctx context.Context, patternType string) ([]domain.TemporalDatum, error)
	GetTemporalDataByHour(ctx context.Context, patternType string, hour int) ([]domain.TemporalDatum, error)
}

// Learner aggregates outcomes by local hour and weekday
type Learner struct {
	store TemporalStoreInterface
	loc   *time.Location
	log   zerolog.Logger
}

// NewLearner creates a new temporal pattern learner. Timestamps are
// decomposed in loc, or the local zone when loc is nil.
func NewLearner(store TemporalStoreInterface, loc *time.Location, log zerolog.Logger) *Learner {
	if loc == nil {
		loc = time.Local
	}
	return &Learner{
		store: store,
		loc:   loc,
		log:   log.With().Str("component", "temporal_pattern_learner").Logger(),
	}
}

// Decompose splits an outcome timestamp into its local hour and ISO weekday.
func (l *Learner) Decompose(patternType string, outcome domain.Outcome, ts time.Time) domain.TemporalDatum {
	local := ts.In(l.loc)
	return domain.TemporalDatum{
		PatternType: patternType,
		HourOfDay:   local.Hour(),
		DayOfWeek:   domain.ISOWeekday(local.Weekday()),
		Outcome:     outcome,
		Timestamp:   ts,
	}
}

// TrackOutcome records the temporal decomposition of an outcome.
func (l *Learner) TrackOutcome(ctx context.Context, patternType string, outcome domain.Outcome, ts time.Time) error {
	if _, err := l.store.InsertTemporalData(ctx, l.Decompose(patternType, outcome, ts)); err != nil {
		return fmt.Errorf("failed to track temporal outcome: %w", err)
	}
	return nil
}

func (l *Learner) load(ctx context.Context, patternType string) ([]domain.TemporalDatum, bool) {
	data, err := l.store.GetTemporalData(ctx, patternType)
	if err != nil {
		l.log.Error().Err(err).Str("pattern_type", patternType).Msg("Failed to load temporal data")
		return nil, false
	}
	valid := data[:0]
	for _, d := range data {
		if d.HourOfDay >= 0 && d.HourOfDay < hoursPerDay && d.DayOfWeek >= 1 && d.DayOfWeek <= daysPerWeek {
			valid = append(valid, d)
		}
	}
	return valid, true
}

func temporalWinRate(data []domain.TemporalDatum) (float64, int) {
	wins := 0
	for _, d := range data {
		if d.Outcome == domain.OutcomeWin {
			wins++
		}
	}
	if len(data) == 0 {
		return 0, 0
	}
	return float64(wins) / float64(len(data)), wins
}

// bestBucket returns the first bucket with the highest win rate among those
// at or above 60%.
func bestBucket(buckets [][]domain.TemporalDatum) (int, bool) {
	best, bestRate := -1, -1.0
	for i, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		rate, _ := temporalWinRate(bucket)
		if rate >= minBestWinRate && rate > bestRate {
			best, bestRate = i, rate
		}
	}
	return best, best >= 0
}

// BestTimeOfDay returns the hour with the best win rate of at least 60%.
func (l *Learner) BestTimeOfDay(ctx context.Context, patternType string) (TimeRange, bool) {
	data, ok := l.load(ctx, patternType)
	if !ok || len(data) < minSampleSize {
		return TimeRange{}, false
	}

	buckets := make([][]domain.TemporalDatum, hoursPerDay)
	for _, d := range data {
		buckets[d.HourOfDay] = append(buckets[d.HourOfDay], d)
	}
	hour, found := bestBucket(buckets)
	if !found {
		return TimeRange{}, false
	}
	return TimeRange{StartHour: hour, EndHour: (hour + 1) % hoursPerDay}, true
}

// BestDayOfWeek returns the weekday with the best win rate of at least 60%.
func (l *Learner) BestDayOfWeek(ctx context.Context, patternType string) (time.Weekday, bool) {
	data, ok := l.load(ctx, patternType)
	if !ok || len(data) < minSampleSize {
		return time.Sunday, false
	}

	buckets := make([][]domain.TemporalDatum, daysPerWeek)
	for _, d := range data {
		buckets[d.DayOfWeek-1] = append(buckets[d.DayOfWeek-1], d)
	}
	idx, found := bestBucket(buckets)
	if !found {
		return time.Sunday, false
	}
	return domain.WeekdayFromISO(idx + 1), true
}

// significance runs the bucket-vs-overall chi-squared test.
func significance(bucket, all []domain.TemporalDatum) (float64, bool) {
	if len(bucket) < minSampleSize {
		return 0, false
	}
	_, bucketWins := temporalWinRate(bucket)
	overallRate, _ := temporalWinRate(all)
	chi, ok := formulas.BinomialChiSquared(bucketWins, len(bucket), overallRate)
	if !ok {
		return 0, false
	}
	return chi, chi > formulas.ChiSquaredCritical95
}

// Heatmap builds the hour x weekday grid. Cells need at least five samples.
func (l *Learner) Heatmap(ctx context.Context, patternType string) Heatmap {
	heatmap := Heatmap{PatternType: patternType}
	data, ok := l.load(ctx, patternType)
	if !ok {
		return heatmap
	}

	var cells [hoursPerDay][daysPerWeek][]domain.TemporalDatum
	for _, d := range data {
		cells[d.HourOfDay][d.DayOfWeek-1] = append(cells[d.HourOfDay][d.DayOfWeek-1], d)
	}

	for hour := 0; hour < hoursPerDay; hour++ {
		for day := 0; day < daysPerWeek; day++ {
			bucket := cells[hour][day]
			if len(bucket) < minSampleSize {
				continue
			}
			rate, _ := temporalWinRate(bucket)
			chi, significant := significance(bucket, data)
			heatmap.Grid[hour][day] = &HeatmapCell{
				Hour:          hour,
				DayOfWeek:     day + 1,
				WinRate:       rate,
				SampleSize:    len(bucket),
				ChiSquared:    chi,
				IsSignificant: significant,
			}
		}
	}
	return heatmap
}

// IsStatisticallySignificant tests one hour/ISO-weekday bucket against the
// pattern's overall win rate at 95% confidence.
func (l *Learner) IsStatisticallySignificant(ctx context.Context, patternType string, hour, day int) bool {
	data, ok := l.load(ctx, patternType)
	if !ok {
		return false
	}
	bucket := make([]domain.TemporalDatum, 0)
	for _, d := range data {
		if d.HourOfDay == hour && d.DayOfWeek == day {
			bucket = append(bucket, d)
		}
	}
	_, significant := significance(bucket, data)
	return significant
}

// BestHoursOfDay ranks every hour with a win rate of at least 60%.
func (l *Learner) BestHoursOfDay(ctx context.Context, patternType string) []HourStat {
	stats := make([]HourStat, 0)
	for hour := 0; hour < hoursPerDay; hour++ {
		data, err := l.store.GetTemporalDataByHour(ctx, patternType, hour)
		if err != nil {
			l.log.Error().Err(err).Str("pattern_type", patternType).Int("hour", hour).Msg("Failed to load hourly temporal data")
			return []HourStat{}
		}
		if len(data) == 0 {
			continue
		}
		if rate, _ := temporalWinRate(data); rate >= minBestWinRate {
			stats = append(stats, HourStat{Hour: hour, WinRate: rate, SampleSize: len(data)})
		}
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].WinRate > stats[j].WinRate })
	return stats
}
