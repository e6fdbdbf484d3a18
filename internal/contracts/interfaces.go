package contracts

import (
	"context"
	"time"
)

// MarketDataProvider returns historical closes for one symbol.
// An unknown symbol or a range without trading days yields an empty series, not an error.
// ⭐ SSOT: 과거 시세 조회 인터페이스
type MarketDataProvider interface {
	Name() string
	GetHistoricalData(ctx context.Context, symbol Symbol, start, end time.Time) (PriceSeries, error)
}

// SelectionRequest is the input of a ranking call
type SelectionRequest struct {
	Symbols   []Symbol
	StartDate time.Time
	EndDate   time.Time
	NumStocks int
}

// Selection is the ranking output: the top-N list plus the full metrics table
type Selection struct {
	Ranked  RankedStockList
	Metrics []PerformanceMetrics
}

// StockRanker ranks symbols by Sharpe ratio
type StockRanker interface {
	SelectTopStocks(ctx context.Context, req SelectionRequest) (*Selection, error)
}

// NameResolver looks up a display name for a symbol
type NameResolver interface {
	ResolveName(ctx context.Context, symbol Symbol) (string, error)
}

// RunRecorder persists ranking runs
type RunRecorder interface {
	RecordRun(ctx context.Context, run *RankingRun) error
}
