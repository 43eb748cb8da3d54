package behavioral

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

func newTestAnalyzer(store *testingpkg.MockStore) *Analyzer {
	a := NewAnalyzer(store, zerolog.New(nil).Level(zerolog.Disabled))
	a.now = testingpkg.Clock(testingpkg.FixedNow)
	return a
}

// sessionEvents lays out one event every step starting one step after start.
func sessionEvents(id string, start time.Time, step time.Duration, labels ...domain.Outcome) []domain.BehavioralEvent {
	events := make([]domain.BehavioralEvent, len(labels))
	for i, o := range labels {
		events[i] = domain.BehavioralEvent{
			SessionID:             id,
			PatternType:           "Flag",
			Outcome:               o,
			Timestamp:             start.Add(time.Duration(i+1) * step),
			SessionStartTime:      start,
			PatternCountInSession: i + 1,
		}
	}
	return events
}

// revengeEvents is ten wins an hour apart followed by ten losses five
// minutes apart.
func revengeEvents() []domain.BehavioralEvent {
	start := testingpkg.FixedNow.Add(-48 * time.Hour)
	events := make([]domain.BehavioralEvent, 0, 20)
	ts := start
	for i := 0; i < 10; i++ {
		ts = ts.Add(60 * time.Minute)
		events = append(events, domain.BehavioralEvent{SessionID: "r", Outcome: domain.OutcomeWin, Timestamp: ts, SessionStartTime: start})
	}
	ts = ts.Add(60 * time.Minute)
	events = append(events, domain.BehavioralEvent{SessionID: "r", Outcome: domain.OutcomeLoss, Timestamp: ts, SessionStartTime: start})
	for i := 0; i < 9; i++ {
		ts = ts.Add(5 * time.Minute)
		events = append(events, domain.BehavioralEvent{SessionID: "r", Outcome: domain.OutcomeLoss, Timestamp: ts, SessionStartTime: start})
	}
	return events
}

func rushedAndCalmSessions() []domain.BehavioralEvent {
	base := testingpkg.FixedNow.Add(-72 * time.Hour)
	rushedLabels := append(testingpkg.Repeat(domain.OutcomeWin, 3), testingpkg.Repeat(domain.OutcomeLoss, 9)...)
	rushed := sessionEvents("s1", base, 5*time.Minute, rushedLabels...)
	calm := sessionEvents("s2", base.Add(24*time.Hour), 30*time.Minute, testingpkg.Repeat(domain.OutcomeWin, 6)...)
	return append(rushed, calm...)
}

func TestTrackEvent(t *testing.T) {
	store := testingpkg.NewMockStore()
	a := newTestAnalyzer(store)

	err := a.TrackEvent(context.Background(), domain.BehavioralEvent{
		SessionID: "s", Outcome: domain.OutcomeWin, Timestamp: testingpkg.FixedNow, SessionStartTime: testingpkg.FixedNow,
	})
	require.NoError(t, err)

	events, err := store.GetRecentBehavioralEvents(context.Background(), testingpkg.FixedNow.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	store.SetError(errors.New("disk full"))
	err = a.TrackEvent(context.Background(), domain.BehavioralEvent{SessionID: "s"})
	assert.ErrorContains(t, err, "failed to track behavioral event")
}

func TestDetectOvertrading(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddEvents(rushedAndCalmSessions()...)

	result := newTestAnalyzer(store).DetectOvertrading(context.Background())

	assert.Equal(t, domain.StatusOK, result.Status)
	assert.InDelta(t, 7.0, result.PatternsPerHour, 1e-9)
	assert.Equal(t, 4.0, result.NormalRate)
	assert.InDelta(t, 0.75, result.ImpactOnWinRate, 1e-9)
	assert.True(t, result.IsOvertrading)
}

func TestDetectOvertrading_SteadyPace(t *testing.T) {
	store := testingpkg.NewMockStore()
	base := testingpkg.FixedNow.Add(-72 * time.Hour)
	store.AddEvents(sessionEvents("a", base, 20*time.Minute, testingpkg.Interleave(3, 6)...)...)
	store.AddEvents(sessionEvents("b", base.Add(5*time.Hour), 20*time.Minute, testingpkg.Interleave(3, 6)...)...)

	result := newTestAnalyzer(store).DetectOvertrading(context.Background())

	assert.InDelta(t, 3.0, result.PatternsPerHour, 1e-9)
	assert.False(t, result.IsOvertrading)
}

func TestDetectOvertrading_InsufficientData(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddEvents(sessionEvents("a", testingpkg.FixedNow.Add(-time.Hour), time.Minute, testingpkg.Mix(5, 4)...)...)

	result := newTestAnalyzer(store).DetectOvertrading(context.Background())

	assert.Equal(t, domain.StatusInsufficientData, result.Status)
	assert.False(t, result.IsOvertrading)
	assert.Zero(t, result.PatternsPerHour)
}

func TestDetectOvertrading_StoreError(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddEvents(rushedAndCalmSessions()...)
	store.SetError(errors.New("boom"))

	result := newTestAnalyzer(store).DetectOvertrading(context.Background())

	assert.False(t, result.IsOvertrading)
	assert.Equal(t, 4.0, result.NormalRate)
}

func TestDetectRevengeTrading(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddEvents(revengeEvents()...)

	result := newTestAnalyzer(store).DetectRevengeTrading(context.Background())

	assert.True(t, result.DetectedPostLoss)
	assert.Equal(t, 5*time.Minute, result.AvgTimeToNextTrade)
	assert.InDelta(t, (645.0 / 19.0), result.NormalTime.Minutes(), 1e-6)
	assert.Equal(t, 0.0, result.PostLossWinRate)
	assert.InDelta(t, 0.5, result.NormalWinRate, 1e-9)
}

func TestDetectRevengeTrading_NoLosses(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddEvents(sessionEvents("a", testingpkg.FixedNow.Add(-24*time.Hour), 10*time.Minute, testingpkg.Repeat(domain.OutcomeWin, 12)...)...)

	result := newTestAnalyzer(store).DetectRevengeTrading(context.Background())

	assert.False(t, result.DetectedPostLoss)
	assert.Equal(t, domain.StatusOK, result.Status)
	assert.Equal(t, 1.0, result.NormalWinRate)
}

func TestDetectRevengeTrading_TooFewEvents(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddEvents(revengeEvents()[:9]...)

	result := newTestAnalyzer(store).DetectRevengeTrading(context.Background())

	assert.False(t, result.DetectedPostLoss)
	assert.Equal(t, domain.StatusInsufficientData, result.Status)
}

func TestOptimalSessionLength(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddEvents(rushedAndCalmSessions()...)

	assert.Equal(t, 3*time.Hour, newTestAnalyzer(store).OptimalSessionLength(context.Background()))
}

func TestOptimalSessionLength_Defaults(t *testing.T) {
	store := testingpkg.NewMockStore()
	a := newTestAnalyzer(store)

	assert.Equal(t, DefaultSessionLength, a.OptimalSessionLength(context.Background()))

	store.SetError(errors.New("locked"))
	assert.Equal(t, FallbackSessionLength, a.OptimalSessionLength(context.Background()))
}

func TestWarnings_Overtrading(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddEvents(rushedAndCalmSessions()...)

	warnings := newTestAnalyzer(store).Warnings(context.Background())

	require.NotEmpty(t, warnings)
	assert.Equal(t, domain.WarningOvertrading, warnings[0].Type)
	assert.Equal(t, domain.SeverityWarning, warnings[0].Severity)
	assert.Equal(t, "Taking too many patterns (7.0/hour) - success rate drops 75% when rushed", warnings[0].Message)
	assert.Equal(t, "Slow down to 4 patterns per hour for better results", warnings[0].Recommendation)

	last := warnings[len(warnings)-1]
	assert.Equal(t, domain.WarningFatigue, last.Type)
	assert.Equal(t, "Optimal session length: 3 hours", last.Message)
	assert.Equal(t, "Take breaks every 3 hours to maintain peak performance", last.Recommendation)
}

func TestWarnings_RevengeTrading(t *testing.T) {
	store := testingpkg.NewMockStore()
	store.AddEvents(revengeEvents()...)

	warnings := newTestAnalyzer(store).Warnings(context.Background())

	require.Len(t, warnings, 2)
	assert.Equal(t, domain.WarningRevengeTrading, warnings[0].Type)
	assert.Equal(t, domain.SeverityCritical, warnings[0].Severity)
	assert.Equal(t, "Win rate 50% lower after losses - detected revenge trading pattern", warnings[0].Message)
	assert.Equal(t, "Take a break after losses - wait at least 34 minutes", warnings[0].Recommendation)
	assert.Equal(t, domain.WarningFatigue, warnings[1].Type)
}

func TestWarnings_EmptyHistory(t *testing.T) {
	warnings := newTestAnalyzer(testingpkg.NewMockStore()).Warnings(context.Background())

	require.Len(t, warnings, 1)
	assert.Equal(t, domain.WarningFatigue, warnings[0].Type)
	assert.Equal(t, domain.SeverityInfo, warnings[0].Severity)
	assert.Equal(t, "Optimal session length: 2 hours", warnings[0].Message)
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "2", formatHours(2*time.Hour))
	assert.Equal(t, "2.5", formatHours(FallbackSessionLength))
}
