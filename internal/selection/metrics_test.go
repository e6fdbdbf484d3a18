package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyReturns(t *testing.T) {
	got := DailyReturns([]float64{100, 110, 99})
	require.Len(t, got, 2)
	assert.InDelta(t, 0.1, got[0], 1e-12)
	assert.InDelta(t, -0.1, got[1], 1e-12)

	assert.Nil(t, DailyReturns([]float64{100}))
	assert.Nil(t, DailyReturns(nil))
}

func TestComputeMetrics(t *testing.T) {
	// returns: +10%, -10%, +10%
	m, ok := ComputeMetrics("AAPL", []float64{100, 110, 99, 108.9})
	require.True(t, ok)

	assert.Equal(t, 3, m.Observations)
	assert.InDelta(t, 0.1/3*252, m.AnnualizedReturn, 1e-6)
	assert.InDelta(t, 0.11547005*math.Sqrt(252), m.AnnualizedVolatility, 1e-6)
	assert.InDelta(t, 4.58257569, m.SharpeRatio, 1e-6)
	assert.Equal(t, "AAPL", string(m.Symbol))
}

func TestComputeMetrics_ZeroVolatility(t *testing.T) {
	m, ok := ComputeMetrics("FLAT", []float64{50, 50, 50, 50})
	require.True(t, ok)

	assert.Equal(t, 0.0, m.AnnualizedVolatility)
	assert.Equal(t, 0.0, m.SharpeRatio)
	assert.False(t, math.IsNaN(m.SharpeRatio))
	assert.False(t, math.IsInf(m.SharpeRatio, 0))
}

func TestComputeMetrics_Undefined(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
	}{
		{"empty", nil},
		{"single close", []float64{100}},
		{"two closes", []float64{100, 101}},
		{"zero close then move", []float64{0, 1, 2}},
		{"zero over zero", []float64{1, 0, 0}},
		{"nan close", []float64{1, math.NaN(), 2}},
		{"inf among valid returns", []float64{0, 0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ComputeMetrics("X", tt.closes)
			assert.False(t, ok)
		})
	}
}

func TestComputeMetrics_SkipsNaNReturns(t *testing.T) {
	// 4→2→0→0: -0.5, -1, 0/0 → NaN 제외 후 2개로 계산
	m, ok := ComputeMetrics("FALL", []float64{4, 2, 0, 0})
	require.True(t, ok)

	mean := (-0.5 + -1.0) / 2
	std := math.Sqrt((math.Pow(-0.5-mean, 2) + math.Pow(-1.0-mean, 2)) / 1)
	assert.Equal(t, 2, m.Observations)
	assert.InDelta(t, mean*TradingDaysPerYear, m.AnnualizedReturn, 1e-9)
	assert.InDelta(t, std*math.Sqrt(TradingDaysPerYear), m.AnnualizedVolatility, 1e-9)
	assert.InDelta(t, mean/std*math.Sqrt(TradingDaysPerYear), m.SharpeRatio, 1e-9)
}

func TestComputeMetrics_NegativeSharpe(t *testing.T) {
	m, ok := ComputeMetrics("DOWN", []float64{100, 99, 97.5, 97, 95})
	require.True(t, ok)
	assert.Less(t, m.AnnualizedReturn, 0.0)
	assert.Less(t, m.SharpeRatio, 0.0)
}
