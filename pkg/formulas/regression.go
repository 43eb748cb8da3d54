package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// LinearFit is an ordinary least-squares line y = Intercept + Slope*x.
type LinearFit struct {
	Intercept float64
	Slope     float64
	// StdError is the root mean squared residual of the fit.
	StdError float64
}

// Predict evaluates the fitted line at x.
func (f LinearFit) Predict(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// FitLine fits y against x. With a single point the line is flat through it.
func FitLine(x, y []float64) (LinearFit, bool) {
	if len(x) == 0 || len(x) != len(y) {
		return LinearFit{}, false
	}
	if len(x) == 1 {
		return LinearFit{Intercept: y[0]}, true
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return LinearFit{}, false
	}

	fit := LinearFit{Intercept: alpha, Slope: beta}
	var sse float64
	for i := range x {
		r := y[i] - fit.Predict(x[i])
		sse += r * r
	}
	fit.StdError = math.Sqrt(sse / float64(len(x)))
	return fit, true
}

// FitSeries fits values against their index 0..n-1.
func FitSeries(values []float64) (LinearFit, bool) {
	x := make([]float64, len(values))
	for i := range x {
		x[i] = float64(i)
	}
	return FitLine(x, values)
}
