package calibration

import "github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"

// OptimalThreshold is the calibrated operating point for one pattern type.
type OptimalThreshold struct {
	PatternType       string    `json:"pattern_type"`
	Threshold         float64   `json:"threshold"`
	TruePositiveRate  float64   `json:"true_positive_rate"`
	FalsePositiveRate float64   `json:"false_positive_rate"`
	Precision         float64   `json:"precision"`
	F1Score           float64   `json:"f1_score"`
	Loss              float64   `json:"loss"`
	Iterations        int       `json:"iterations"`
	LossHistory       []float64 `json:"loss_history"`
}

// Result aggregates a calibration run over every eligible pattern type.
type Result struct {
	FinalLoss         float64                     `json:"final_loss"`
	Iterations        int                         `json:"iterations"`
	ConvergenceStatus domain.ConvergenceStatus    `json:"convergence_status"`
	OptimalThresholds map[string]OptimalThreshold `json:"optimal_thresholds"`
}

func (t OptimalThreshold) record() domain.ThresholdRecord {
	return domain.ThresholdRecord{
		PatternType:       t.PatternType,
		Threshold:         t.Threshold,
		TruePositiveRate:  t.TruePositiveRate,
		FalsePositiveRate: t.FalsePositiveRate,
		Precision:         t.Precision,
		F1Score:           t.F1Score,
		Loss:              t.Loss,
		Iterations:        t.Iterations,
	}
}
