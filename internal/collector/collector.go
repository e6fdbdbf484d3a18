// Package collector copies price history from a remote provider into local storage.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/pkg/logger"
)

// PriceSink stores fetched series
type PriceSink interface {
	SavePrices(ctx context.Context, source string, series contracts.PriceSeries) error
}

// Collector orchestrates price collection
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	source contracts.MarketDataProvider
	sink   PriceSink
	logger *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent workers
}

// NewCollector creates a new Collector instance
func NewCollector(source contracts.MarketDataProvider, sink PriceSink, log *logger.Logger) *Collector {
	return &Collector{
		source: source,
		sink:   sink,
		logger: log.Module("collector"),
	}
}

// FetchResult represents the result of a fetch operation
type FetchResult struct {
	Symbol     contracts.Symbol
	PriceCount int
	Error      error
}

// Summary counts successes and failures
func Summary(results []FetchResult) (success, failed int) {
	for _, r := range results {
		if r.Error != nil {
			failed++
		} else {
			success++
		}
	}
	return success, failed
}

// CollectPrices fetches and stores prices for every symbol.
// Per-symbol failures are reported in the results and do not stop the batch.
// Results are in input order.
func (c *Collector) CollectPrices(ctx context.Context, symbols []contracts.Symbol, from, to time.Time, cfg Config) []FetchResult {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"source":       c.source.Name(),
		"symbol_count": len(symbols),
		"from":         from.Format("2006-01-02"),
		"to":           to.Format("2006-01-02"),
		"workers":      workers,
	}).Info("Starting price collection")

	results := make([]FetchResult, len(symbols))
	indexCh := make(chan int, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.priceWorker(ctx, workerID, symbols, indexCh, results, from, to)
		}(i)
	}

	for i := range symbols {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	success, failed := Summary(results)
	c.logger.WithFields(map[string]interface{}{
		"success": success,
		"failed":  failed,
		"total":   len(results),
	}).Info("Price collection completed")

	return results
}

// priceWorker processes price fetching for symbols; each slot is written by one worker
func (c *Collector) priceWorker(ctx context.Context, workerID int, symbols []contracts.Symbol, indexCh <-chan int, results []FetchResult, from, to time.Time) {
	for i := range indexCh {
		symbol := symbols[i]

		if err := ctx.Err(); err != nil {
			results[i] = FetchResult{Symbol: symbol, Error: err}
			continue
		}

		series, err := c.source.GetHistoricalData(ctx, symbol, from, to)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Error("Failed to fetch prices")
			results[i] = FetchResult{Symbol: symbol, Error: err}
			continue
		}

		if err := c.sink.SavePrices(ctx, c.source.Name(), series); err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Error("Failed to save prices")
			results[i] = FetchResult{Symbol: symbol, PriceCount: len(series.Points), Error: err}
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"worker": workerID,
			"symbol": symbol,
			"count":  len(series.Points),
		}).Debug("Collected prices")

		results[i] = FetchResult{Symbol: symbol, PriceCount: len(series.Points)}
	}
}
