package strategyconfig

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Universe ===
	if len(cfg.Universe.Symbols) == 0 {
		return ValidationError{"universe.symbols", "at least one symbol required"}
	}
	for i, s := range cfg.Universe.Symbols {
		if strings.TrimSpace(s) == "" {
			return ValidationError{fmt.Sprintf("universe.symbols[%d]", i), "blank symbol"}
		}
	}

	// === Period ===
	if cfg.Period.LookbackDays < 0 {
		return ValidationError{"period.lookback_days", "must be >= 0"}
	}
	if cfg.Period.LookbackDays > 0 {
		if cfg.Period.Start != "" || cfg.Period.End != "" {
			return ValidationError{"period", "lookback_days excludes start/end"}
		}
		return validateRanking(cfg)
	}
	start, err := time.Parse(DateLayout, cfg.Period.Start)
	if err != nil {
		return ValidationError{"period.start", "must be YYYY-MM-DD"}
	}
	end, err := time.Parse(DateLayout, cfg.Period.End)
	if err != nil {
		return ValidationError{"period.end", "must be YYYY-MM-DD"}
	}
	if start.After(end) {
		return ValidationError{"period", "start must not be after end"}
	}

	return validateRanking(cfg)
}

func validateRanking(cfg *Config) error {
	if cfg.Ranking.NumStocks < 1 {
		return ValidationError{"ranking.num_stocks", "must be >= 1"}
	}
	if cfg.Ranking.Metric != MetricSharpe {
		return ValidationError{"ranking.metric", fmt.Sprintf("unsupported metric %q (only %q)", cfg.Ranking.Metric, MetricSharpe)}
	}

	return nil
}
