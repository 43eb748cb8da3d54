package formulas

import "gonum.org/v1/gonum/stat"

// ChiSquaredCritical95 is the 95% critical value for one degree of freedom.
const ChiSquaredCritical95 = 3.84

// BinomialChiSquared scores a wins/losses split against an expected win rate.
// ok is false when an expected frequency is zero.
func BinomialChiSquared(wins, total int, expectedRate float64) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	n := float64(total)
	expected := []float64{n * expectedRate, n * (1 - expectedRate)}
	if expected[0] <= 0 || expected[1] <= 0 {
		return 0, false
	}
	observed := []float64{float64(wins), float64(total - wins)}
	return stat.ChiSquare(observed, expected), true
}
