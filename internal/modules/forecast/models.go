package forecast

import "github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"

// Forecast is the projected win rate a week past the last observed day.
type Forecast struct {
	PatternType             string                `json:"pattern_type"`
	PredictedWinRate        float64               `json:"predicted_win_rate"`
	ConfidenceIntervalUpper float64               `json:"confidence_interval_upper"`
	ConfidenceIntervalLower float64               `json:"confidence_interval_lower"`
	TrendDirection          domain.TrendDirection `json:"trend_direction"`
	Confidence              float64               `json:"confidence"`
	DaysObserved            int                   `json:"days_observed"`
	Status                  domain.Status         `json:"status"`
}

// TrendWarning flags a pattern whose recent results moved sharply.
type TrendWarning struct {
	PatternType  string                 `json:"pattern_type"`
	Severity     domain.WarningSeverity `json:"severity"`
	Message      string                 `json:"message"`
	CurrentTrend domain.TrendDirection  `json:"current_trend"`
	Change       float64                `json:"change"`
}
