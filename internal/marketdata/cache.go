package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/pkg/logger"
	"github.com/wonny/toprank/pkg/redis"
)

// SeriesCache is the subset of redis.Cache the provider needs
type SeriesCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SeriesInvalidator drops cached entries by key prefix
type SeriesInvalidator interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

type seriesStore interface {
	SeriesCache
	SeriesInvalidator
}

// InvalidateSeries drops every cached range of symbols fetched from provider,
// so a collection run re-reads today's bars instead of a stale copy
func InvalidateSeries(ctx context.Context, inv SeriesInvalidator, provider string, symbols []contracts.Symbol) (int, error) {
	if inv == nil {
		return 0, nil
	}
	total := 0
	for _, symbol := range symbols {
		n, err := inv.DeletePrefix(ctx, redis.PriceSymbolPrefix(provider, string(symbol)))
		if err != nil {
			return total, fmt.Errorf("invalidate cached %s series: %w", symbol, err)
		}
		total += n
	}
	return total, nil
}

// CachedProvider serves repeated range requests from Redis.
// Cache failures fall through to the wrapped provider.
type CachedProvider struct {
	next   contracts.MarketDataProvider
	cache  SeriesCache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedProvider wraps next with a read-through cache
func NewCachedProvider(next contracts.MarketDataProvider, cache SeriesCache, ttl time.Duration, log *logger.Logger) *CachedProvider {
	return &CachedProvider{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: log.Module("marketdata.cache"),
	}
}

// Name returns the wrapped provider name
func (p *CachedProvider) Name() string { return p.next.Name() }

// GetHistoricalData returns the cached series or fetches and stores it
func (p *CachedProvider) GetHistoricalData(ctx context.Context, symbol contracts.Symbol, start, end time.Time) (contracts.PriceSeries, error) {
	key := redis.PriceSeriesKey(p.next.Name(), string(symbol), start, end)

	var cached contracts.PriceSeries
	hit, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("Price cache read failed")
	}
	if hit {
		return cached, nil
	}

	series, err := p.next.GetHistoricalData(ctx, symbol, start, end)
	if err != nil {
		return series, err
	}

	// 빈 시리즈는 캐시하지 않음 (신규 상장/일시 장애)
	if !series.IsEmpty() {
		if err := p.cache.Set(ctx, key, series, p.ttl); err != nil {
			p.logger.WithError(err).WithField("key", key).Warn("Price cache write failed")
		}
	}
	return series, nil
}
