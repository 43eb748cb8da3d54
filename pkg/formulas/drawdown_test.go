package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxDrawdownOfReturns(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
		want    float64
	}{
		{"empty", nil, 0},
		{"only gains", []float64{1, 2, 3}, 0},
		{"never above zero", []float64{-1, -2, -3}, 0},
		// cumulative: 10, 5, 8 -> peak 10, trough 5
		{"half retrace", []float64{10, -5, 3}, 0.5},
		// cumulative: 4, 8, 2, 10, 9 -> worst (8-2)/8
		{"worst of several", []float64{4, 4, -6, 8, -1}, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MaxDrawdownOfReturns(tt.returns), 1e-9)
		})
	}
}
