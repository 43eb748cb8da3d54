package formulas

import (
	"github.com/markcheno/go-talib"
)

// SMA returns the simple moving average values that have a full window,
// oldest first. It returns nil when there are fewer values than the period.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	sma := talib.Sma(values, period)
	if len(sma) < period {
		return nil
	}
	out := make([]float64, len(sma)-(period-1))
	copy(out, sma[period-1:])
	return out
}

// Tail returns the last n values (or all of them when there are fewer).
func Tail(values []float64, n int) []float64 {
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}
