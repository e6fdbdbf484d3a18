package strategyconfig

import (
	"time"

	"github.com/wonny/toprank/internal/contracts"
)

// DateLayout is the calendar date format used in strategy files
const DateLayout = "2006-01-02"

// MetricSharpe is the only supported ranking metric
const MetricSharpe = "sharpe"

// Config는 종목 선정 전략의 전체 설정
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Universe Universe `yaml:"universe" json:"universe"`
	Period   Period   `yaml:"period" json:"period"`
	Ranking  Ranking  `yaml:"ranking" json:"ranking"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Universe 후보 종목
type Universe struct {
	Symbols []string `yaml:"symbols" json:"symbols"`
}

// Period 평가 기간 (양끝 포함)
// LookbackDays > 0 이면 start/end 대신 실행일 기준 롤링 윈도우
type Period struct {
	Start        string `yaml:"start,omitempty" json:"start,omitempty"` // YYYY-MM-DD
	End          string `yaml:"end,omitempty" json:"end,omitempty"`     // YYYY-MM-DD
	LookbackDays int    `yaml:"lookback_days,omitempty" json:"lookback_days,omitempty"`
}

// Ranking 선정 규칙
type Ranking struct {
	NumStocks int    `yaml:"num_stocks" json:"num_stocks"`
	Metric    string `yaml:"metric" json:"metric"`
}

// Default returns the stock-picker strategy: five US large caps over 2020-2023, top 5
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "stock_picker",
			Version:    "1",
		},
		Universe: Universe{
			Symbols: []string{"JNJ", "XOM", "AAPL", "WMT", "JPM"},
		},
		Period: Period{
			Start: "2020-01-01",
			End:   "2023-12-31",
		},
		Ranking: Ranking{
			NumStocks: 5,
			Metric:    MetricSharpe,
		},
	}
}

// Symbols returns the universe as ranker symbols
func (c *Config) Symbols() []contracts.Symbol {
	out := make([]contracts.Symbol, len(c.Universe.Symbols))
	for i, s := range c.Universe.Symbols {
		out[i] = contracts.Symbol(s)
	}
	return out
}

// Window returns the evaluation period as of now; call after Validate
func (c *Config) Window(now time.Time) (start, end time.Time) {
	if c.Period.LookbackDays > 0 {
		y, m, d := now.Date()
		end = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return end.AddDate(0, 0, -c.Period.LookbackDays), end
	}
	start, _ = time.Parse(DateLayout, c.Period.Start)
	end, _ = time.Parse(DateLayout, c.Period.End)
	return start, end
}

// RequestAt builds the ranking request for the window ending at now
func (c *Config) RequestAt(now time.Time) contracts.SelectionRequest {
	start, end := c.Window(now)
	return contracts.SelectionRequest{
		Symbols:   c.Symbols(),
		StartDate: start,
		EndDate:   end,
		NumStocks: c.Ranking.NumStocks,
	}
}
