package formulas

// MaxDrawdownOfReturns walks the cumulative sum of returns and reports the
// largest (peak - value) / peak ratio. The running peak starts at zero, so a
// series that never rises above zero has no measurable drawdown.
func MaxDrawdownOfReturns(returns []float64) float64 {
	var cumulative, peak, maxDrawdown float64

	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if peak > 0 {
			if dd := (peak - cumulative) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	return maxDrawdown
}
