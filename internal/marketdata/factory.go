package marketdata

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/external/naver"
	"github.com/wonny/toprank/internal/external/yahoo"
	"github.com/wonny/toprank/pkg/config"
	"github.com/wonny/toprank/pkg/httputil"
	"github.com/wonny/toprank/pkg/logger"
	"github.com/wonny/toprank/pkg/redis"
)

// ErrNoPool is returned when the postgres provider is selected without a pool
var ErrNoPool = errors.New("postgres provider requires a database pool")

// Deps are the shared clients a provider chain is built from
type Deps struct {
	HTTP   *httputil.Client
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	Memory *MemoryCache // used when Redis is disabled; nil = no cache
	Logger *logger.Logger
}

// cacheStore picks the series cache: Redis when enabled, else the in-process cache
func (d Deps) cacheStore() (seriesStore, string) {
	switch {
	case d.Redis != nil && d.Redis.Enabled():
		return redis.NewCache(d.Redis, "toprank"), "redis"
	case d.Memory != nil:
		return d.Memory, "memory"
	}
	return nil, "none"
}

// Invalidator returns the cache remote providers read through, nil when uncached
func (d Deps) Invalidator() SeriesInvalidator {
	store, _ := d.cacheStore()
	if store == nil {
		return nil
	}
	return store
}

// New builds the configured provider chain:
// cache → instrumentation → circuit breaker → source.
// ⭐ SSOT: 시세 제공자 조립은 여기서만
func New(cfg *config.Config, deps Deps) (contracts.MarketDataProvider, error) {
	source, err := NewSource(cfg, deps)
	if err != nil {
		return nil, err
	}

	var provider contracts.MarketDataProvider = source
	remote := cfg.MarketData.Provider != config.ProviderPostgres

	if remote && cfg.MarketData.BreakerEnabled {
		provider = NewBreakerProvider(provider, 0)
	}
	provider = NewInstrumentedProvider(provider)

	cache := "none"
	if remote {
		if store, kind := deps.cacheStore(); store != nil {
			provider = NewCachedProvider(provider, store, cfg.MarketData.CacheTTL, deps.Logger)
			cache = kind
		}
	}

	deps.Logger.WithFields(map[string]interface{}{
		"provider": provider.Name(),
		"breaker":  remote && cfg.MarketData.BreakerEnabled,
		"cache":    cache,
	}).Info("Market data provider ready")

	return provider, nil
}

// NewSource builds the undecorated provider for cfg.MarketData.Provider
func NewSource(cfg *config.Config, deps Deps) (contracts.MarketDataProvider, error) {
	switch cfg.MarketData.Provider {
	case config.ProviderYahoo:
		client := yahoo.NewClient(deps.HTTP, deps.Logger).WithBaseURL(cfg.MarketData.YahooBaseURL)
		return NewYahooProvider(client), nil
	case config.ProviderNaver:
		return NewNaverProvider(newNaverClient(cfg, deps)), nil
	case config.ProviderPostgres:
		if deps.Pool == nil {
			return nil, ErrNoPool
		}
		return NewPriceRepository(deps.Pool), nil
	default:
		return nil, fmt.Errorf("unknown market data provider: %q", cfg.MarketData.Provider)
	}
}

// NewNameResolver returns a display-name lookup for KRX codes, or nil for Yahoo tickers
func NewNameResolver(cfg *config.Config, deps Deps) contracts.NameResolver {
	if cfg.MarketData.Provider != config.ProviderNaver {
		return nil
	}
	return newNaverClient(cfg, deps)
}

func newNaverClient(cfg *config.Config, deps Deps) *naver.Client {
	return naver.NewClient(deps.HTTP, deps.Logger).
		WithBaseURLs(cfg.MarketData.NaverBaseURL, cfg.MarketData.NaverChartURL)
}
