// Package formulas holds the numeric building blocks shared by the analyzers.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population (biased) standard deviation.
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(data, nil)
	return std
}

// MeanStdDev returns the mean and population standard deviation in one pass.
func MeanStdDev(data []float64) (mean, std float64) {
	if len(data) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(data, nil)
}

// Correlation calculates the Pearson correlation coefficient between two datasets.
// ok is false when the coefficient is undefined (mismatched lengths or zero variance).
func Correlation(x, y []float64) (float64, bool) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, false
	}
	if PopStdDev(x) == 0 || PopStdDev(y) == 0 {
		return 0, false
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return Clamp(r, -1, 1), true
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
