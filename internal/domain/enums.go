package domain

import (
	"fmt"
	"strings"
)

// WarningSeverity orders INFO < WARNING < CRITICAL.
type WarningSeverity int

const (
	SeverityInfo WarningSeverity = iota
	SeverityWarning
	SeverityCritical
)

var severityNames = []string{"INFO", "WARNING", "CRITICAL"}

func (s WarningSeverity) String() string { return enumName(severityNames, int(s)) }

// MarshalText encodes the severity by name.
func (s WarningSeverity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a severity name.
func (s *WarningSeverity) UnmarshalText(b []byte) error {
	return enumParse(severityNames, "severity", b, (*int)(s))
}

// Compare returns -1, 0 or +1.
func (s WarningSeverity) Compare(o WarningSeverity) int { return compareInt(int(s), int(o)) }

// AlertPriority orders MEDIUM < HIGH < URGENT.
type AlertPriority int

const (
	PriorityMedium AlertPriority = iota
	PriorityHigh
	PriorityUrgent
)

var priorityNames = []string{"MEDIUM", "HIGH", "URGENT"}

func (p AlertPriority) String() string { return enumName(priorityNames, int(p)) }

func (p AlertPriority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *AlertPriority) UnmarshalText(b []byte) error {
	return enumParse(priorityNames, "priority", b, (*int)(p))
}

// Compare returns -1, 0 or +1.
func (p AlertPriority) Compare(o AlertPriority) int { return compareInt(int(p), int(o)) }

// PriorityForSeverity maps an anomaly severity onto an alert priority.
func PriorityForSeverity(s WarningSeverity) AlertPriority {
	switch s {
	case SeverityCritical:
		return PriorityUrgent
	case SeverityWarning:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// RiskLevel orders LOW < MEDIUM < HIGH.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

var riskNames = []string{"LOW", "MEDIUM", "HIGH"}

func (r RiskLevel) String() string { return enumName(riskNames, int(r)) }

func (r RiskLevel) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *RiskLevel) UnmarshalText(b []byte) error {
	return enumParse(riskNames, "risk level", b, (*int)(r))
}

// Compare returns -1, 0 or +1.
func (r RiskLevel) Compare(o RiskLevel) int { return compareInt(int(r), int(o)) }

// RecommendationStrength orders STRONG_AVOID < AVOID < NEUTRAL < BUY < STRONG_BUY.
type RecommendationStrength int

const (
	StrengthStrongAvoid RecommendationStrength = iota
	StrengthAvoid
	StrengthNeutral
	StrengthBuy
	StrengthStrongBuy
)

var strengthNames = []string{"STRONG_AVOID", "AVOID", "NEUTRAL", "BUY", "STRONG_BUY"}

func (r RecommendationStrength) String() string { return enumName(strengthNames, int(r)) }

func (r RecommendationStrength) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *RecommendationStrength) UnmarshalText(b []byte) error {
	return enumParse(strengthNames, "recommendation strength", b, (*int)(r))
}

// Compare returns -1, 0 or +1.
func (r RecommendationStrength) Compare(o RecommendationStrength) int {
	return compareInt(int(r), int(o))
}

// StrengthForWinRate bands a win rate into a recommendation strength.
func StrengthForWinRate(winRate float64) RecommendationStrength {
	switch {
	case winRate >= 0.75:
		return StrengthStrongBuy
	case winRate >= 0.65:
		return StrengthBuy
	case winRate >= 0.45:
		return StrengthNeutral
	case winRate >= 0.35:
		return StrengthAvoid
	default:
		return StrengthStrongAvoid
	}
}

// TrendDirection orders DECLINING < STABLE < IMPROVING.
type TrendDirection int

const (
	TrendDeclining TrendDirection = iota
	TrendStable
	TrendImproving
)

var trendNames = []string{"DECLINING", "STABLE", "IMPROVING"}

func (t TrendDirection) String() string { return enumName(trendNames, int(t)) }

func (t TrendDirection) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TrendDirection) UnmarshalText(b []byte) error {
	return enumParse(trendNames, "trend direction", b, (*int)(t))
}

// TrendForSlope classifies a slope against a symmetric band.
func TrendForSlope(slope, band float64) TrendDirection {
	switch {
	case slope > band:
		return TrendImproving
	case slope < -band:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// ConvergenceStatus describes how a calibration loss history ended.
type ConvergenceStatus string

const (
	ConvergenceInsufficientData ConvergenceStatus = "INSUFFICIENT_DATA"
	ConvergenceConverged        ConvergenceStatus = "CONVERGED"
	ConvergenceImproving        ConvergenceStatus = "IMPROVING"
	ConvergenceStuck            ConvergenceStatus = "STUCK"
)

// AnomalyType names the kind of anomaly raised by the detector.
type AnomalyType string

const (
	AnomalySuddenDrop        AnomalyType = "SUDDEN_DROP"
	AnomalySuddenImprovement AnomalyType = "SUDDEN_IMPROVEMENT"
	AnomalyUnusualStreak     AnomalyType = "UNUSUAL_STREAK"
	AnomalyPerformanceShift  AnomalyType = "PERFORMANCE_SHIFT"
	AnomalyOutlier           AnomalyType = "OUTLIER_DETECTION"
)

// WarningType names a behavioral warning.
type WarningType string

const (
	WarningOvertrading    WarningType = "OVERTRADING"
	WarningRevengeTrading WarningType = "REVENGE_TRADING"
	WarningFatigue        WarningType = "FATIGUE"
)

// Status marks results whose value is undefined.
type Status string

const (
	StatusOK               Status = "OK"
	StatusInsufficientData Status = "INSUFFICIENT_DATA"
	StatusDegenerate       Status = "DEGENERATE"
)

func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("UNKNOWN(%d)", v)
	}
	return names[v]
}

func enumParse(names []string, kind string, b []byte, dst *int) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	for i, n := range names {
		if n == s {
			*dst = i
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q", kind, string(b))
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
