package risk

import (
	"time"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
)

// RankedPattern is one entry of the risk-adjusted leaderboard.
type RankedPattern struct {
	PatternType   string  `json:"pattern_type"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	ExpectedValue float64 `json:"expected_value"`
	WinRate       float64 `json:"win_rate"`
	SampleSize    int     `json:"sample_size"`
}

// Metrics is the full risk profile of a pattern type.
type Metrics struct {
	PatternType   string           `json:"pattern_type"`
	SharpeRatio   float64          `json:"sharpe_ratio"`
	ExpectedValue float64          `json:"expected_value"`
	Volatility    float64          `json:"volatility"`
	MaxDrawdown   float64          `json:"max_drawdown"`
	RecoveryTime  time.Duration    `json:"recovery_time"`
	RiskLevel     domain.RiskLevel `json:"risk_level"`
	Status        domain.Status    `json:"status"`
}
