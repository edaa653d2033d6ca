package app

import "testing"

func TestGraticuleStep(t *testing.T) {
	tests := []struct {
		span float64
		want float64
	}{
		{360, 30},
		{100, 10},
		{40, 5},
		{9, 1},
		{3, 0.25},
		{0.5, 0.1},
	}
	for _, tt := range tests {
		if got := graticuleStep(tt.span); got != tt.want {
			t.Errorf("graticuleStep(%v) = %v, want %v", tt.span, got, tt.want)
		}
	}
}
