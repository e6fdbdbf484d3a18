package selection

import (
	"math"

	"github.com/wonny/toprank/internal/contracts"
)

// TradingDaysPerYear annualizes daily statistics
const TradingDaysPerYear = 252

// DailyReturns returns the percentage change between consecutive closes
func DailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}

	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns[i-1] = closes[i]/closes[i-1] - 1
	}
	return returns
}

// ComputeMetrics derives annualized return, volatility and Sharpe ratio from a close series.
// NaN returns (0/0) are skipped. ok is false when the metrics are undefined: fewer than two
// remaining daily returns (sample standard deviation needs n-1 > 0) or an infinite return.
func ComputeMetrics(symbol contracts.Symbol, closes []float64) (m contracts.PerformanceMetrics, ok bool) {
	returns, ok := finiteReturns(DailyReturns(closes))
	if !ok || len(returns) < 2 {
		return contracts.PerformanceMetrics{}, false
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns) - 1)

	annReturn := mean * TradingDaysPerYear
	annVol := math.Sqrt(variance) * math.Sqrt(TradingDaysPerYear)

	// 변동성 0 → 위험조정 수익 없음
	sharpe := 0.0
	if annVol != 0 {
		sharpe = annReturn / annVol
	}

	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		return contracts.PerformanceMetrics{}, false
	}

	return contracts.PerformanceMetrics{
		Symbol:               symbol,
		AnnualizedReturn:     annReturn,
		AnnualizedVolatility: annVol,
		SharpeRatio:          sharpe,
		Observations:         len(returns),
	}, true
}

// finiteReturns drops NaN returns; ok is false on any ±Inf (a move off a zero close)
func finiteReturns(returns []float64) ([]float64, bool) {
	out := returns[:0:0]
	for _, r := range returns {
		if math.IsInf(r, 0) {
			return nil, false
		}
		if math.IsNaN(r) {
			continue
		}
		out = append(out, r)
	}
	return out, true
}
