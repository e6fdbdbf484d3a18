package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/metrics"
	"github.com/wonny/toprank/pkg/logger"
)

var (
	// ErrInvalidNumStocks is returned when fewer than one stock is requested
	ErrInvalidNumStocks = errors.New("num stocks must be at least 1")
	// ErrInvalidDateRange is returned when the start date is after the end date
	ErrInvalidDateRange = errors.New("start date is after end date")
)

// Config tunes the ranker
type Config struct {
	Workers int // concurrent fetches; 1 = sequential
}

// Ranker selects the top-N symbols by Sharpe ratio
// ⭐ SSOT: 랭킹 로직은 여기서만
type Ranker struct {
	provider contracts.MarketDataProvider
	names    contracts.NameResolver
	config   Config
	logger   *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(provider contracts.MarketDataProvider, cfg Config, log *logger.Logger) *Ranker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Ranker{
		provider: provider,
		config:   cfg,
		logger:   log.Module("selection"),
	}
}

// WithNameResolver attaches a display-name lookup for ranked symbols
func (r *Ranker) WithNameResolver(names contracts.NameResolver) *Ranker {
	r.names = names
	return r
}

// fetched is one provider response slot, indexed by request position
type fetched struct {
	series contracts.PriceSeries
	err    error
}

// SelectTopStocks ranks the requested symbols by Sharpe ratio and returns the best NumStocks.
// Symbols without data or with undefined metrics are skipped silently.
// Provider errors abort the call.
func (r *Ranker) SelectTopStocks(ctx context.Context, req contracts.SelectionRequest) (*contracts.Selection, error) {
	selection, err := r.selectTopStocks(ctx, req)
	metrics.RankingRuns.WithLabelValues(metrics.Result(err)).Inc()
	return selection, err
}

func (r *Ranker) selectTopStocks(ctx context.Context, req contracts.SelectionRequest) (*contracts.Selection, error) {
	if req.NumStocks < 1 {
		return nil, ErrInvalidNumStocks
	}
	if req.StartDate.After(req.EndDate) {
		return nil, ErrInvalidDateRange
	}

	symbols := uniqueSymbols(req.Symbols)

	// 1. 시세 조회
	results, err := r.fetchAll(ctx, symbols, req)
	if err != nil {
		return nil, err
	}

	// 2. 지표 계산 (입력 순서 유지)
	candidates := make([]candidate, 0, len(symbols))
	for i, symbol := range symbols {
		series := results[i].series
		if series.IsEmpty() {
			metrics.SymbolsSkipped.WithLabelValues(metrics.ReasonNoData).Inc()
			r.logger.ForSymbol(symbol).Debug("No price data, skipping symbol")
			continue
		}

		m, ok := ComputeMetrics(symbol, series.Closes())
		if !ok {
			metrics.SymbolsSkipped.WithLabelValues(metrics.ReasonUndefined).Inc()
			r.logger.WithFields(map[string]interface{}{
				"symbol": symbol,
				"points": len(series.Points),
			}).Debug("Metrics undefined, skipping symbol")
			continue
		}

		candidates = append(candidates, candidate{metrics: m, index: i})
	}

	// 3. 상위 N 선정
	best := topN(candidates, req.NumStocks)

	selection := &contracts.Selection{
		Ranked:  make(contracts.RankedStockList, len(best)),
		Metrics: make([]contracts.PerformanceMetrics, len(candidates)),
	}
	for i, c := range candidates {
		selection.Metrics[i] = c.metrics
	}
	for i, c := range best {
		selection.Ranked[i] = contracts.RankedStock{
			Symbol:  c.metrics.Symbol,
			Rank:    i + 1,
			Metrics: c.metrics,
		}
	}

	r.resolveNames(ctx, selection.Ranked)

	fields := map[string]interface{}{
		"requested": len(symbols),
		"valid":     len(candidates),
		"selected":  len(selection.Ranked),
	}
	if len(selection.Ranked) > 0 {
		fields["top_symbol"] = selection.Ranked[0].Symbol
		fields["top_sharpe"] = selection.Ranked[0].Metrics.SharpeRatio
	}
	r.logger.WithFields(fields).Info("Ranking completed")

	return selection, nil
}

// fetchAll retrieves every series; the slice is aligned with symbols
func (r *Ranker) fetchAll(ctx context.Context, symbols []contracts.Symbol, req contracts.SelectionRequest) ([]fetched, error) {
	results := make([]fetched, len(symbols))

	if r.config.Workers == 1 || len(symbols) <= 1 {
		for i, symbol := range symbols {
			series, err := r.provider.GetHistoricalData(ctx, symbol, req.StartDate, req.EndDate)
			if err != nil {
				return nil, fmt.Errorf("get historical data for %s: %w", symbol, err)
			}
			results[i] = fetched{series: series}
		}
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	indexCh := make(chan int, len(symbols))
	for i := range symbols {
		indexCh <- i
	}
	close(indexCh)

	var wg sync.WaitGroup
	workers := r.config.Workers
	if workers > len(symbols) {
		workers = len(symbols)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				if ctx.Err() != nil {
					results[i] = fetched{err: ctx.Err()}
					continue
				}
				series, err := r.provider.GetHistoricalData(ctx, symbols[i], req.StartDate, req.EndDate)
				results[i] = fetched{series: series, err: err}
				if err != nil {
					cancel()
				}
			}
		}()
	}
	wg.Wait()

	// 첫 번째 (입력 순서 기준) 원인 에러 반환
	var firstErr error
	for i, res := range results {
		if res.err == nil {
			continue
		}
		wrapped := fmt.Errorf("get historical data for %s: %w", symbols[i], res.err)
		if !errors.Is(res.err, context.Canceled) {
			return nil, wrapped
		}
		if firstErr == nil {
			firstErr = wrapped
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return results, nil
}

// resolveNames fills display names; lookup failures only cost the label
func (r *Ranker) resolveNames(ctx context.Context, ranked contracts.RankedStockList) {
	if r.names == nil {
		return
	}
	for i := range ranked {
		name, err := r.names.ResolveName(ctx, ranked[i].Symbol)
		if err != nil {
			r.logger.ForSymbol(ranked[i].Symbol).WithError(err).Warn("Failed to resolve symbol name")
			continue
		}
		ranked[i].Name = name
	}
}

// uniqueSymbols drops blanks and repeats, keeping first occurrence order
func uniqueSymbols(symbols []contracts.Symbol) []contracts.Symbol {
	seen := make(map[contracts.Symbol]struct{}, len(symbols))
	out := make([]contracts.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
