package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported market data providers
const (
	ProviderYahoo    = "yahoo"
	ProviderNaver    = "naver"
	ProviderPostgres = "postgres"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data
	MarketData MarketDataConfig

	// Ranking
	Ranking RankingConfig

	// Recorder
	Recorder RecorderConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// MarketDataConfig selects and tunes the historical price source
type MarketDataConfig struct {
	Provider       string // yahoo, naver, postgres
	YahooBaseURL   string
	NaverBaseURL   string
	NaverChartURL  string
	Timeout        time.Duration
	RatePerSecond  float64
	CacheTTL       time.Duration
	BreakerEnabled bool
}

// RankingConfig holds defaults for the stock ranker
type RankingConfig struct {
	Workers      int
	NumStocks    int
	StrategyFile string
	Schedule     string // cron (with seconds)
	CollectCron  string
}

// RecorderConfig holds ranking run history settings
type RecorderConfig struct {
	SQLitePath string // empty = disabled
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Market data
		MarketData: MarketDataConfig{
			Provider:       strings.ToLower(getEnv("MARKETDATA_PROVIDER", ProviderYahoo)),
			YahooBaseURL:   getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			NaverBaseURL:   getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
			NaverChartURL:  getEnv("NAVER_CHART_URL", "https://fchart.stock.naver.com"),
			Timeout:        getEnvAsDuration("MARKETDATA_TIMEOUT", "30s"),
			RatePerSecond:  getEnvAsFloat("MARKETDATA_RATE_PER_SECOND", 5),
			CacheTTL:       getEnvAsDuration("MARKETDATA_CACHE_TTL", "24h"),
			BreakerEnabled: getEnvAsBool("MARKETDATA_BREAKER_ENABLED", true),
		},

		// Ranking
		Ranking: RankingConfig{
			Workers:      getEnvAsInt("RANKING_WORKERS", 1),
			NumStocks:    getEnvAsInt("RANKING_NUM_STOCKS", 5),
			StrategyFile: getEnv("STRATEGY_FILE", ""),
			Schedule:     getEnv("RANKING_SCHEDULE", "0 30 16 * * 1-5"),
			CollectCron:  getEnv("COLLECT_SCHEDULE", "0 0 16 * * 1-5"),
		},

		Recorder: RecorderConfig{
			SQLitePath: getEnv("RECORDER_SQLITE_PATH", ""),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.MarketData.Provider {
	case ProviderYahoo, ProviderNaver:
	case ProviderPostgres:
		// postgres 공급자는 DB 필수
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres provider")
		}
	default:
		return fmt.Errorf("MARKETDATA_PROVIDER must be one of: yahoo, naver, postgres")
	}

	if c.Ranking.Workers < 1 {
		return fmt.Errorf("RANKING_WORKERS must be at least 1")
	}
	if c.Ranking.NumStocks < 1 {
		return fmt.Errorf("RANKING_NUM_STOCKS must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
