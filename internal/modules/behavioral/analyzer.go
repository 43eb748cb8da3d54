// Package behavioral looks for overtrading and revenge trading in session
// events and estimates the session length with the best results.
package behavioral

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
	minSampleSize         = 10
	normalPatternsPerHour = 4.0
	overtradingFactor     = 1.5
	overtradingImpact     = 0.10
	revengeTimeFactor     = 0.5
	revengeWinRateGap     = 0.20
	overtradingWindow     = 7 * 24 * time.Hour
	revengeWindow         = 30 * 24 * time.Hour
	sessionWindow         = 30 * 24 * time.Hour

	// DefaultSessionLength is returned when there is no session history.
	DefaultSessionLength = 2 * time.Hour
	// FallbackSessionLength is returned when the event store cannot be read.
	FallbackSessionLength = 150 * time.Minute
)

// EventStoreInterface is the slice of the learning store the analyzer uses.
type EventStoreInterface interface {
	InsertBehavioralEvent(ctx context.Context, e domain.BehavioralEvent) (int64, error)
	GetRecentBehavioralEvents(ctx context.Context, since time.Time) ([]domain.BehavioralEvent, error)
}

// Analyzer derives trading-behavior signals from session events
type Analyzer struct {
	store EventStoreInterface
	now   func() time.Time
	log   zerolog.Logger
}

// NewAnalyzer creates a new behavioral analyzer
func NewAnalyzer(store EventStoreInterface, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		store: store,
		now:   time.Now,
		log:   log.With().Str("component", "behavioral_analyzer").Logger(),
	}
}

// TrackEvent records a session event
func (a *Analyzer) TrackEvent(ctx context.Context, e domain.BehavioralEvent) error {
	if _, err := a.store.InsertBehavioralEvent(ctx, e); err != nil {
		return fmt.Errorf("failed to track behavioral event: %w", err)
	}
	return nil
}

type session struct {
	events []domain.BehavioralEvent
	start  time.Time
	end    time.Time
}

func (s session) duration() time.Duration { return s.end.Sub(s.start) }

func (s session) winRate() float64 { return eventWinRate(s.events) }

// groupSessions buckets events by session id. A session spans from its
// earliest recorded start to its latest event.
func groupSessions(events []domain.BehavioralEvent) []session {
	byID := make(map[string]*session)
	order := make([]string, 0)
	for _, e := range events {
		s, ok := byID[e.SessionID]
		if !ok {
			s = &session{start: e.SessionStartTime, end: e.Timestamp}
			byID[e.SessionID] = s
			order = append(order, e.SessionID)
		}
		s.events = append(s.events, e)
		if e.SessionStartTime.Before(s.start) {
			s.start = e.SessionStartTime
		}
		if e.Timestamp.After(s.end) {
			s.end = e.Timestamp
		}
	}
	sort.Strings(order)

	sessions := make([]session, 0, len(order))
	for _, id := range order {
		sessions = append(sessions, *byID[id])
	}
	return sessions
}

func eventWinRate(events []domain.BehavioralEvent) float64 {
	labels := make([]domain.Outcome, len(events))
	for i, e := range events {
		labels[i] = e.Outcome
	}
	return domain.WinRate(labels)
}

// DetectOvertrading compares detection pace against the normal 4 per hour
// and measures how much win rate suffers in rushed sessions.
func (a *Analyzer) DetectOvertrading(ctx context.Context) OvertradingAnalysis {
	neutral := OvertradingAnalysis{NormalRate: normalPatternsPerHour, Status: domain.StatusInsufficientData}

	events, err := a.store.GetRecentBehavioralEvents(ctx, a.now().Add(-overtradingWindow))
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to load events for overtrading analysis")
		return neutral
	}
	if len(events) < minSampleSize {
		return neutral
	}

	highThreshold := normalPatternsPerHour * overtradingFactor
	rates := make([]float64, 0)
	var rushed, calm []domain.BehavioralEvent

	for _, s := range groupSessions(events) {
		hours := s.duration().Hours()
		if hours <= 0 {
			continue
		}
		rate := float64(len(s.events)) / hours
		rates = append(rates, rate)
		if rate > highThreshold {
			rushed = append(rushed, s.events...)
		} else {
			calm = append(calm, s.events...)
		}
	}

	if len(rates) == 0 {
		neutral.Status = domain.StatusDegenerate
		return neutral
	}

	avgRate := formulas.Mean(rates)
	impact := 0.0
	if len(rushed) > 0 {
		baseline := calm
		if len(baseline) == 0 {
			baseline = events
		}
		impact = eventWinRate(baseline) - eventWinRate(rushed)
	}

	return OvertradingAnalysis{
		PatternsPerHour: avgRate,
		NormalRate:      normalPatternsPerHour,
		ImpactOnWinRate: impact,
		IsOvertrading:   avgRate > highThreshold && impact > overtradingImpact,
		Status:          domain.StatusOK,
	}
}

// DetectRevengeTrading checks whether trades that follow a loss come faster
// and win less often than usual.
func (a *Analyzer) DetectRevengeTrading(ctx context.Context) RevengePattern {
	neutral := RevengePattern{Status: domain.StatusInsufficientData}

	events, err := a.store.GetRecentBehavioralEvents(ctx, a.now().Add(-revengeWindow))
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to load events for revenge trading analysis")
		return neutral
	}
	if len(events) < minSampleSize {
		return neutral
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	var allGaps, postLossGaps []float64
	var postLoss []domain.BehavioralEvent
	for i := 1; i < len(events); i++ {
		gap := float64(events[i].Timestamp.Sub(events[i-1].Timestamp))
		allGaps = append(allGaps, gap)
		if events[i-1].Outcome == domain.OutcomeLoss {
			postLossGaps = append(postLossGaps, gap)
			postLoss = append(postLoss, events[i])
		}
	}

	normalGap := formulas.Mean(allGaps)
	result := RevengePattern{
		NormalTime:    time.Duration(normalGap),
		NormalWinRate: eventWinRate(events),
		Status:        domain.StatusOK,
	}
	if len(postLoss) == 0 {
		return result
	}
	if normalGap <= 0 {
		result.Status = domain.StatusDegenerate
		return result
	}

	avgPostLoss := formulas.Mean(postLossGaps)
	result.AvgTimeToNextTrade = time.Duration(avgPostLoss)
	result.PostLossWinRate = eventWinRate(postLoss)
	result.DetectedPostLoss = avgPostLoss < normalGap*revengeTimeFactor &&
		result.NormalWinRate-result.PostLossWinRate > revengeWinRateGap

	return result
}

// OptimalSessionLength returns the whole-hour session length with the best
// average win rate over the last month.
func (a *Analyzer) OptimalSessionLength(ctx context.Context) time.Duration {
	events, err := a.store.GetRecentBehavioralEvents(ctx, a.now().Add(-sessionWindow))
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to load events for session length analysis")
		return FallbackSessionLength
	}

	buckets := make(map[int][]float64)
	for _, s := range groupSessions(events) {
		d := s.duration()
		if d <= 0 {
			continue
		}
		hours := int(math.Round(d.Hours()))
		if hours < 1 {
			hours = 1
		}
		buckets[hours] = append(buckets[hours], s.winRate())
	}
	if len(buckets) == 0 {
		return DefaultSessionLength
	}

	hours := make([]int, 0, len(buckets))
	for h := range buckets {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	best, bestRate := hours[0], -1.0
	for _, h := range hours {
		if rate := formulas.Mean(buckets[h]); rate > bestRate {
			best, bestRate = h, rate
		}
	}
	return time.Duration(best) * time.Hour
}

// Warnings aggregates the behavioral signals into trader-facing messages.
func (a *Analyzer) Warnings(ctx context.Context) []Warning {
	warnings := make([]Warning, 0, 3)

	if ot := a.DetectOvertrading(ctx); ot.IsOvertrading {
		warnings = append(warnings, Warning{
			Type:     domain.WarningOvertrading,
			Severity: domain.SeverityWarning,
			Message: fmt.Sprintf("Taking too many patterns (%.1f/hour) - success rate drops %.0f%% when rushed",
				ot.PatternsPerHour, ot.ImpactOnWinRate*100),
			Recommendation: fmt.Sprintf("Slow down to %.0f patterns per hour for better results", ot.NormalRate),
		})
	}

	if rp := a.DetectRevengeTrading(ctx); rp.DetectedPostLoss {
		warnings = append(warnings, Warning{
			Type:     domain.WarningRevengeTrading,
			Severity: domain.SeverityCritical,
			Message: fmt.Sprintf("Win rate %.0f%% lower after losses - detected revenge trading pattern",
				(rp.NormalWinRate-rp.PostLossWinRate)*100),
			Recommendation: fmt.Sprintf("Take a break after losses - wait at least %d minutes",
				int64(math.Ceil(rp.NormalTime.Minutes()))),
		})
	}

	optimal := a.OptimalSessionLength(ctx)
	warnings = append(warnings, Warning{
		Type:           domain.WarningFatigue,
		Severity:       domain.SeverityInfo,
		Message:        fmt.Sprintf("Optimal session length: %s hours", formatHours(optimal)),
		Recommendation: fmt.Sprintf("Take breaks every %s hours to maintain peak performance", formatHours(optimal)),
	})

	return warnings
}

func formatHours(d time.Duration) string {
	h := d.Hours()
	if h == math.Trunc(h) {
		return fmt.Sprintf("%.0f", h)
	}
	return fmt.Sprintf("%.1f", h)
}
