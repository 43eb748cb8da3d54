package strategy

import "github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"

// Portfolio is a weighted selection of pattern types.
type Portfolio struct {
	RunID           string             `json:"run_id,omitempty"`
	Patterns        []string           `json:"patterns"`
	Allocation      map[string]float64 `json:"allocation"`
	CombinedWinRate float64            `json:"combined_win_rate"`
	SharpeRatio     float64            `json:"sharpe_ratio"`
	Diversification float64            `json:"diversification"`
	SampleSize      int                `json:"sample_size"`
	Status          domain.Status      `json:"status"`
}

// Stats summarizes every pattern type in the ledger.
type Stats struct {
	TotalPatterns             int     `json:"total_patterns"`
	AvgWinRate                float64 `json:"avg_win_rate"`
	DiversificationScore      float64 `json:"diversification_score"`
	NormalizedDiversification float64 `json:"normalized_diversification"`
	SharpeRatio               float64 `json:"sharpe_ratio"`
	ExpectedValue             float64 `json:"expected_value"`
}

// Complement is a pattern that does better alongside the target than apart.
type Complement struct {
	PatternType string  `json:"pattern_type"`
	Synergy     float64 `json:"synergy"`
}
