package contracts

import (
	"time"

	"github.com/google/uuid"
)

// PerformanceMetrics is the per-symbol risk/return summary used for ranking
type PerformanceMetrics struct {
	Symbol               Symbol  `json:"symbol"`
	AnnualizedReturn     float64 `json:"annualized_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	Observations         int     `json:"observations"` // number of daily returns
}

// RankedStock represents a selected symbol with its rank
// ⭐ SSOT: Ranker → Strategy Host 랭킹 결과 전달
type RankedStock struct {
	Symbol  Symbol             `json:"symbol"`
	Name    string             `json:"name,omitempty"`
	Rank    int                `json:"rank"` // 1-based ranking
	Metrics PerformanceMetrics `json:"metrics"`
}

// RankedStockList is the ordered selection, highest Sharpe first
type RankedStockList []RankedStock

// Symbols returns the selected symbols in rank order
func (l RankedStockList) Symbols() []Symbol {
	out := make([]Symbol, len(l))
	for i, s := range l {
		out[i] = s.Symbol
	}
	return out
}

// IsTopRanked reports whether the stock holds one of the first n ranks (ranks start at 1)
func (r RankedStock) IsTopRanked(n int) bool {
	return r.Rank >= 1 && r.Rank <= n
}

// RankingRun captures one ranking invocation for history and broadcasting
type RankingRun struct {
	ID          uuid.UUID            `json:"id"`
	StrategyID  string               `json:"strategy_id"`
	ConfigHash  string               `json:"config_hash,omitempty"`
	Provider    string               `json:"provider"`
	StartDate   time.Time            `json:"start_date"`
	EndDate     time.Time            `json:"end_date"`
	NumStocks   int                  `json:"num_stocks"`
	Requested   []Symbol             `json:"requested"`
	Metrics     []PerformanceMetrics `json:"metrics"` // every symbol with defined metrics, input order
	Selected    RankedStockList      `json:"selected"`
	CompletedAt time.Time            `json:"completed_at"`
}
