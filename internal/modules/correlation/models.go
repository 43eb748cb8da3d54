package correlation

import "time"

// Correlation is the Pearson coefficient of two patterns' hour-of-day
// occurrence profiles.
type Correlation struct {
	PatternA          string  `json:"pattern_a"`
	PatternB          string  `json:"pattern_b"`
	Coefficient       float64 `json:"correlation"`
	CooccurrenceCount int     `json:"cooccurrence_count"`
}

// Prediction is a likely next pattern after the current one.
type Prediction struct {
	PatternType string  `json:"pattern_type"`
	Probability float64 `json:"probability"`
	SampleSize  int     `json:"sample_size"`
}

// Sequence is a frequently seen run of pattern names.
type Sequence struct {
	Patterns       []string      `json:"patterns"`
	Frequency      int           `json:"frequency"`
	AvgSuccessRate float64       `json:"avg_success_rate"`
	TimeSpan       time.Duration `json:"time_span"`
}
