package testing

import (
	"time"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/domain"
)

// FixedNow is the reference instant used by analyzer tests.
var FixedNow = time.Date(2026, time.March, 16, 12, 0, 0, 0, time.UTC)

// Clock returns a now func that always reports t.
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// OutcomeSeries builds outcomes for one pattern, oldest first, spaced by step.
func OutcomeSeries(pattern string, start time.Time, step time.Duration, outcomes ...domain.Outcome) []domain.PatternOutcome {
	series := make([]domain.PatternOutcome, len(outcomes))
	for i, o := range outcomes {
		series[i] = domain.PatternOutcome{
			ID:          int64(i + 1),
			PatternName: pattern,
			Outcome:     o,
			Timestamp:   start.Add(time.Duration(i) * step),
		}
	}
	return series
}

// Repeat returns n copies of o.
func Repeat(o domain.Outcome, n int) []domain.Outcome {
	out := make([]domain.Outcome, n)
	for i := range out {
		out[i] = o
	}
	return out
}

// Mix returns wins WIN labels followed by losses LOSS labels.
func Mix(wins, losses int) []domain.Outcome {
	return append(Repeat(domain.OutcomeWin, wins), Repeat(domain.OutcomeLoss, losses)...)
}

// Interleave spreads wins evenly through a series of total labels.
func Interleave(wins, total int) []domain.Outcome {
	out := make([]domain.Outcome, total)
	placed := 0
	for i := range out {
		// Bresenham-style spacing keeps the running win rate close to wins/total.
		if (i+1)*wins/total > placed {
			out[i] = domain.OutcomeWin
			placed++
		} else {
			out[i] = domain.OutcomeLoss
		}
	}
	return out
}

// WithReturns attaches profit/loss percentages to outcomes in order.
func WithReturns(outcomes []domain.PatternOutcome, returns ...float64) []domain.PatternOutcome {
	for i := range outcomes {
		if i >= len(returns) {
			break
		}
		r := returns[i]
		outcomes[i].ProfitLossPercent = &r
	}
	return outcomes
}

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 {
	return &f
}
