package behavioral

import (
	"time"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
)

// OvertradingAnalysis summarizes detection pace over the last week.
type OvertradingAnalysis struct {
	PatternsPerHour float64       `json:"patterns_per_hour"`
	NormalRate      float64       `json:"normal_rate"`
	ImpactOnWinRate float64       `json:"impact_on_win_rate"`
	IsOvertrading   bool          `json:"is_overtrading"`
	Status          domain.Status `json:"status"`
}

// RevengePattern summarizes behavior right after losses over the last month.
type RevengePattern struct {
	DetectedPostLoss   bool          `json:"detected_post_loss"`
	AvgTimeToNextTrade time.Duration `json:"avg_time_to_next_trade"`
	NormalTime         time.Duration `json:"normal_time"`
	PostLossWinRate    float64       `json:"post_loss_win_rate"`
	NormalWinRate      float64       `json:"normal_win_rate"`
	Status             domain.Status `json:"status"`
}

// Warning is a behavioral message for the trader.
type Warning struct {
	Type           domain.WarningType     `json:"type"`
	Severity       domain.WarningSeverity `json:"severity"`
	Message        string                 `json:"message"`
	Recommendation string                 `json:"recommendation"`
}
