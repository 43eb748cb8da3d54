package anomaly

import (
	"time"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
)

// Anomaly is an unusual shift in a pattern's results.
type Anomaly struct {
	Type          domain.AnomalyType     `json:"type"`
	PatternType   string                 `json:"pattern_type"`
	Severity      domain.WarningSeverity `json:"severity"`
	Description   string                 `json:"description"`
	ZScore        float64                `json:"z_score"`
	DetectedAt    time.Time              `json:"detected_at"`
	ExpectedValue float64                `json:"expected_value"`
	ActualValue   float64                `json:"actual_value"`
}

// PerformanceShift compares the older and newer halves of a pattern's history.
type PerformanceShift struct {
	PatternType   string    `json:"pattern_type"`
	OldWinRate    float64   `json:"old_win_rate"`
	NewWinRate    float64   `json:"new_win_rate"`
	ChangePercent float64   `json:"change_percent"`
	DetectedAt    time.Time `json:"detected_at"`
	LikelyReason  string    `json:"likely_reason"`
}

// AlertItem is one entry in the attention list.
type AlertItem struct {
	Priority          domain.AlertPriority `json:"priority"`
	Type              domain.AnomalyType   `json:"type"`
	PatternType       string               `json:"pattern_type"`
	Message           string               `json:"message"`
	RecommendedAction string               `json:"recommended_action"`
}
