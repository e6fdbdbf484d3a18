// Package quality checks whether stored price history can feed a ranking run.
package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/toprank/internal/contracts"
)

// MinCloses is the fewest closes that yield defined metrics (two daily returns)
const MinCloses = 3

// Config holds coverage thresholds
type Config struct {
	MinCloses   int     `yaml:"min_closes"`   // 3
	MinCoverage float64 `yaml:"min_coverage"` // share of rankable symbols, 1.0 = all
}

// DefaultConfig requires every symbol to be rankable
func DefaultConfig() Config {
	return Config{MinCloses: MinCloses, MinCoverage: 1.0}
}

// Gate validates stored price coverage for a ranking window
// ⭐ SSOT: 적재 시세 → 랭킹 품질 검증
type Gate struct {
	db     *pgxpool.Pool
	config Config
}

// NewGate creates a new coverage gate
func NewGate(db *pgxpool.Pool, cfg Config) *Gate {
	if cfg.MinCloses < MinCloses {
		cfg.MinCloses = MinCloses
	}
	return &Gate{db: db, config: cfg}
}

// SymbolCoverage is the stored history of one symbol within the window
type SymbolCoverage struct {
	Symbol   contracts.Symbol `json:"symbol"`
	Closes   int              `json:"closes"`
	First    time.Time        `json:"first,omitempty"`
	Last     time.Time        `json:"last,omitempty"`
	Rankable bool             `json:"rankable"`
}

// Snapshot summarizes coverage for a symbol set
type Snapshot struct {
	From     time.Time        `json:"from"`
	To       time.Time        `json:"to"`
	Symbols  []SymbolCoverage `json:"symbols"` // request order, duplicates dropped
	Rankable int              `json:"rankable"`
	Coverage float64          `json:"coverage"` // Rankable / len(Symbols)
	Passed   bool             `json:"passed"`
}

// Missing returns the symbols that cannot be ranked
func (s *Snapshot) Missing() []contracts.Symbol {
	var out []contracts.Symbol
	for _, c := range s.Symbols {
		if !c.Rankable {
			out = append(out, c.Symbol)
		}
	}
	return out
}

type stored struct {
	closes      int
	first, last time.Time
}

// Check counts stored closes per symbol in [from, to]
func (g *Gate) Check(ctx context.Context, symbols []contracts.Symbol, from, to time.Time) (*Snapshot, error) {
	codes := make([]string, len(symbols))
	for i, s := range symbols {
		codes[i] = string(s)
	}

	query := `
		SELECT symbol, COUNT(*), MIN(trade_date), MAX(trade_date)
		FROM data.daily_prices
		WHERE symbol = ANY($1) AND trade_date BETWEEN $2 AND $3
		GROUP BY symbol
	`

	rows, err := g.db.Query(ctx, query, codes, from, to)
	if err != nil {
		return nil, fmt.Errorf("query coverage: %w", err)
	}
	defer rows.Close()

	found := make(map[contracts.Symbol]stored)
	for rows.Next() {
		var (
			symbol string
			st     stored
		)
		if err := rows.Scan(&symbol, &st.closes, &st.first, &st.last); err != nil {
			return nil, fmt.Errorf("scan coverage: %w", err)
		}
		found[contracts.Symbol(symbol)] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coverage: %w", err)
	}

	return g.summarize(symbols, found, from, to), nil
}

// summarize builds the snapshot in request order
func (g *Gate) summarize(symbols []contracts.Symbol, found map[contracts.Symbol]stored, from, to time.Time) *Snapshot {
	snap := &Snapshot{From: from, To: to}
	seen := make(map[contracts.Symbol]struct{}, len(symbols))

	for _, sym := range symbols {
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}

		st := found[sym]
		cov := SymbolCoverage{
			Symbol:   sym,
			Closes:   st.closes,
			First:    st.first,
			Last:     st.last,
			Rankable: st.closes >= g.config.MinCloses,
		}
		if cov.Rankable {
			snap.Rankable++
		}
		snap.Symbols = append(snap.Symbols, cov)
	}

	if len(snap.Symbols) > 0 {
		snap.Coverage = float64(snap.Rankable) / float64(len(snap.Symbols))
	}
	snap.Passed = len(snap.Symbols) > 0 && snap.Coverage >= g.config.MinCoverage
	return snap
}
