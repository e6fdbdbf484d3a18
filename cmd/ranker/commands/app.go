package commands

import (
	"fmt"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/marketdata"
	"github.com/wonny/toprank/internal/recorder"
	"github.com/wonny/toprank/internal/selection"
	"github.com/wonny/toprank/internal/strategy"
	"github.com/wonny/toprank/internal/strategyconfig"
	"github.com/wonny/toprank/pkg/config"
	"github.com/wonny/toprank/pkg/database"
	"github.com/wonny/toprank/pkg/httputil"
	"github.com/wonny/toprank/pkg/logger"
	"github.com/wonny/toprank/pkg/redis"
)

// app holds the shared clients every command is wired from
// ⭐ SSOT: CLI 의존성 조립은 여기서만
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB // nil when DATABASE_URL is unset
	redis    *redis.Client
	memory   *marketdata.MemoryCache // nil when Redis caches series
	http     *httputil.Client
	recorder recorder.Recorder
	provider contracts.MarketDataProvider
	ranker   *selection.Ranker
}

// loadConfig applies global flag overrides on top of the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp connects the optional stores and builds the ranker
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAppWithConfig(cfg)
}

func newAppWithConfig(cfg *config.Config) (*app, error) {
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		log.Info("Connected to database")
	}

	rc, err := redis.New(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc

	if !rc.Enabled() && cfg.MarketData.CacheTTL > 0 {
		a.memory = marketdata.NewMemoryCache(log)
	}

	a.http = httputil.New(cfg, log)
	if rc.Enabled() && cfg.MarketData.RatePerSecond > 0 {
		// 여러 프로세스가 같은 공급자 한도를 공유
		a.http.WithRateLimiter(redis.NewRateLimiter(rc, "toprank"), cfg.MarketData.RatePerSecond)
	}

	rec, err := recorder.New(cfg, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open recorder: %w", err)
	}
	a.recorder = rec

	deps := a.deps()
	provider, err := marketdata.New(cfg, deps)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build market data provider: %w", err)
	}
	a.provider = provider

	a.ranker = selection.NewRanker(provider, selection.Config{Workers: cfg.Ranking.Workers}, log)
	if names := marketdata.NewNameResolver(cfg, deps); names != nil {
		a.ranker.WithNameResolver(names)
	}

	return a, nil
}

func (a *app) deps() marketdata.Deps {
	deps := marketdata.Deps{
		HTTP:   a.http,
		Redis:  a.redis,
		Memory: a.memory,
		Logger: a.log,
	}
	if a.db != nil {
		deps.Pool = a.db.Pool
	}
	return deps
}

// strategy loads the strategy file and binds it to the ranker
func (a *app) strategy(override func(*strategyconfig.Config)) (*strategy.Strategy, error) {
	cfg, err := loadStrategyConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
		if err := strategyconfig.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid strategy overrides: %w", err)
		}
	}

	return strategy.New(cfg.Meta.StrategyID, cfg, a.ranker, a.provider.Name(), a.log).
		WithRecorder(a.recorder), nil
}

// Close releases every connection the app opened
func (a *app) Close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close recorder")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// loadStrategyConfig resolves --strategy, then STRATEGY_FILE, then the built-in default
func loadStrategyConfig(cfg *config.Config) (*strategyconfig.Config, error) {
	sc, _, err := strategyconfig.Resolve([]string{strategyFile, cfg.Ranking.StrategyFile}, cfg.Ranking.NumStocks)
	return sc, err
}
