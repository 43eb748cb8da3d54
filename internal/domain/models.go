// Package domain contains the data model shared by the store, the analyzers
// and the HTTP surface.
package domain

import (
	"strings"
	"time"
)

// Outcome is the binary label attached to a pattern detection after the fact.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// Valid reports whether o is WIN or LOSS.
func (o Outcome) Valid() bool {
	return o == OutcomeWin || o == OutcomeLoss
}

// ParseOutcome accepts WIN/LOSS in any case.
func ParseOutcome(s string) (Outcome, bool) {
	o := Outcome(strings.ToUpper(strings.TrimSpace(s)))
	return o, o.Valid()
}

// PatternOutcome is one append-only ledger entry.
type PatternOutcome struct {
	ID                int64     `json:"id"`
	DetectionID       *int64    `json:"detection_id,omitempty"`
	PatternName       string    `json:"pattern_name"`
	Outcome           Outcome   `json:"outcome"`
	ProfitLossPercent *float64  `json:"profit_loss_percent,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// IsWin reports whether the outcome is a WIN.
func (o PatternOutcome) IsWin() bool { return o.Outcome == OutcomeWin }

// PatternDetection is a raw detection used for correlation and sequence mining.
type PatternDetection struct {
	ID          int64     `json:"id"`
	PatternName string    `json:"pattern_name"`
	Confidence  float64   `json:"confidence"`
	Timestamp   time.Time `json:"timestamp"`
}

// BehavioralEvent is recorded once per detection-and-outcome inside a session.
type BehavioralEvent struct {
	ID                    int64         `json:"id"`
	SessionID             string        `json:"session_id"`
	PatternType           string        `json:"pattern_type"`
	Outcome               Outcome       `json:"outcome"`
	Timestamp             time.Time     `json:"timestamp"`
	SessionStartTime      time.Time     `json:"session_start_time"`
	PatternCountInSession int           `json:"pattern_count_in_session"`
	TimeSinceLastPattern  time.Duration `json:"time_since_last_pattern"`
	IsAfterLoss           bool          `json:"is_after_loss"`
}

// MarketConditionOutcome is an outcome tagged with the regime it happened in.
type MarketConditionOutcome struct {
	ID              int64           `json:"id"`
	PatternType     string          `json:"pattern_type"`
	MarketCondition MarketCondition `json:"market_condition"`
	Outcome         Outcome         `json:"outcome"`
	Timestamp       time.Time       `json:"timestamp"`
	VolatilityLevel VolatilityLevel `json:"volatility_level"`
	TrendStrength   TrendStrength   `json:"trend_strength"`
}

// TemporalDatum is an outcome decomposed into local hour of day and ISO weekday.
type TemporalDatum struct {
	ID          int64     `json:"id"`
	PatternType string    `json:"pattern_type"`
	HourOfDay   int       `json:"hour_of_day"` // 0-23
	DayOfWeek   int       `json:"day_of_week"` // 1 (Monday) - 7 (Sunday)
	Outcome     Outcome   `json:"outcome"`
	Timestamp   time.Time `json:"timestamp"`
}

// PatternCorrelationRecord stores the correlation of an unordered pattern pair
// with PatternA < PatternB.
type PatternCorrelationRecord struct {
	PatternA          string    `json:"pattern_a"`
	PatternB          string    `json:"pattern_b"`
	Correlation       *float64  `json:"correlation,omitempty"`
	CooccurrenceCount int       `json:"cooccurrence_count"`
	LastUpdated       time.Time `json:"last_updated"`
}

// PatternSequenceRecord is a cached frequent sequence of pattern names.
type PatternSequenceRecord struct {
	Sequence       []string      `json:"sequence"`
	Frequency      int           `json:"frequency"`
	AvgSuccessRate float64       `json:"avg_success_rate"`
	AvgTimeSpan    time.Duration `json:"avg_time_span"`
	LastSeen       time.Time     `json:"last_seen"`
}

// Key is the natural identity of the sequence.
func (r PatternSequenceRecord) Key() string {
	return SequenceKey(r.Sequence)
}

// SequenceKey joins pattern names into a stable identity string.
func SequenceKey(patterns []string) string {
	return strings.Join(patterns, " > ")
}

// StrategyMetricsSnapshot is the result of one portfolio-construction run.
type StrategyMetricsSnapshot struct {
	RunID             string    `json:"run_id"`
	PortfolioPatterns []string  `json:"portfolio_patterns"`
	WinRate           float64   `json:"win_rate"`
	SharpeRatio       float64   `json:"sharpe_ratio"`
	Diversification   float64   `json:"diversification"`
	SampleSize        int       `json:"sample_size"`
	LastUpdated       time.Time `json:"last_updated"`
}

// PortfolioKey is the natural identity of a portfolio.
func (s StrategyMetricsSnapshot) PortfolioKey() string {
	return strings.Join(s.PortfolioPatterns, ",")
}

// ThresholdRecord is a persisted calibrated threshold for a pattern type.
type ThresholdRecord struct {
	PatternType       string    `json:"pattern_type"`
	Threshold         float64   `json:"threshold"`
	TruePositiveRate  float64   `json:"true_positive_rate"`
	FalsePositiveRate float64   `json:"false_positive_rate"`
	Precision         float64   `json:"precision"`
	F1Score           float64   `json:"f1_score"`
	Loss              float64   `json:"loss"`
	Iterations        int       `json:"iterations"`
	LastUpdated       time.Time `json:"last_updated"`
}
