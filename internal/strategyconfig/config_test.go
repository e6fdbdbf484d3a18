package strategyconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/toprank/internal/contracts"
)

const validYAML = `
meta:
  strategy_id: krx_large_caps
  version: "2"
universe:
  symbols: ["005930", "000660", "035420"]
period:
  start: 2022-01-01
  end: 2023-12-31
ranking:
  num_stocks: 2
  metric: sharpe
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	cfg, raw, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, validYAML, string(raw))

	assert.Equal(t, "krx_large_caps", cfg.Meta.StrategyID)
	assert.Equal(t, []contracts.Symbol{"005930", "000660", "035420"}, cfg.Symbols())

	req := cfg.RequestAt(time.Now())
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), req.StartDate)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), req.EndDate)
	assert.Equal(t, 2, req.NumStocks)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(validYAML + "\nportfolio:\n  max_weight: 0.2\n"))
	assert.Error(t, err)
}

func TestParse_DefaultsMetric(t *testing.T) {
	cfg, err := Parse([]byte(`
meta: {strategy_id: s}
universe: {symbols: [AAPL]}
period: {start: 2020-01-01, end: 2020-12-31}
ranking: {num_stocks: 1}
`))
	require.NoError(t, err)
	assert.Equal(t, MetricSharpe, cfg.Ranking.Metric)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, []string{"JNJ", "XOM", "AAPL", "WMT", "JPM"}, cfg.Universe.Symbols)
	assert.Equal(t, 5, cfg.Ranking.NumStocks)
	start, end := cfg.Window(time.Now())
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"no symbols", func(c *Config) { c.Universe.Symbols = nil }, "universe.symbols"},
		{"blank symbol", func(c *Config) { c.Universe.Symbols = []string{"AAPL", " "} }, "universe.symbols[1]"},
		{"bad start", func(c *Config) { c.Period.Start = "2020/01/01" }, "period.start"},
		{"bad end", func(c *Config) { c.Period.End = "" }, "period.end"},
		{"reversed period", func(c *Config) { c.Period.Start, c.Period.End = c.Period.End, c.Period.Start }, "period"},
		{"zero stocks", func(c *Config) { c.Ranking.NumStocks = 0 }, "ranking.num_stocks"},
		{"unknown metric", func(c *Config) { c.Ranking.Metric = "sortino" }, "ranking.metric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidate_SingleDayPeriod(t *testing.T) {
	cfg := Default()
	cfg.Period.End = cfg.Period.Start
	assert.NoError(t, Validate(cfg))
}

func TestLookbackWindow(t *testing.T) {
	cfg, err := Parse([]byte(`
meta: {strategy_id: rolling}
universe: {symbols: [AAPL, MSFT]}
period: {lookback_days: 365}
ranking: {num_stocks: 1}
`))
	require.NoError(t, err)

	now := time.Date(2024, 6, 14, 21, 30, 0, 0, time.UTC)
	req := cfg.RequestAt(now)
	assert.Equal(t, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), req.EndDate)
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), req.StartDate)
}

func TestValidate_LookbackExcludesDates(t *testing.T) {
	cfg := Default()
	cfg.Period.LookbackDays = 30

	var verr ValidationError
	require.ErrorAs(t, Validate(cfg), &verr)
	assert.Equal(t, "period", verr.Field)

	cfg.Period = Period{LookbackDays: -1}
	require.ErrorAs(t, Validate(cfg), &verr)
	assert.Equal(t, "period.lookback_days", verr.Field)
}

func TestHash(t *testing.T) {
	a, err := Hash(Default())
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, _ := Hash(Default())
	assert.Equal(t, a, b)

	changed := Default()
	changed.Ranking.NumStocks = 3
	c, _ := Hash(changed)
	assert.NotEqual(t, a, c)
}

func TestResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	// 첫 번째 비어있지 않은 경로 사용
	cfg, source, err := Resolve([]string{"", path}, 7)
	require.NoError(t, err)
	assert.Equal(t, path, source)
	assert.Equal(t, "krx_large_caps", cfg.Meta.StrategyID)
	assert.Equal(t, 2, cfg.Ranking.NumStocks)

	cfg, source, err = Resolve([]string{"", ""}, 7)
	require.NoError(t, err)
	assert.Equal(t, "default", source)
	assert.Equal(t, 7, cfg.Ranking.NumStocks)

	cfg, _, err = Resolve(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, Default().Ranking.NumStocks, cfg.Ranking.NumStocks)

	_, _, err = Resolve([]string{filepath.Join(t.TempDir(), "nope.yaml"), path}, 7)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
