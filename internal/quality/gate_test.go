package quality

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/marketdata"
	"github.com/wonny/toprank/pkg/config"
	"github.com/wonny/toprank/pkg/database"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestSummarize(t *testing.T) {
	found := map[contracts.Symbol]stored{
		"AAPL": {closes: 20, first: day(2), last: day(31)},
		"JNJ":  {closes: 2, first: day(2), last: day(3)},
	}

	tests := []struct {
		name         string
		cfg          Config
		symbols      []contracts.Symbol
		wantRankable int
		wantCoverage float64
		wantPassed   bool
		wantMissing  []contracts.Symbol
	}{
		{"all required", DefaultConfig(), []contracts.Symbol{"AAPL", "JNJ", "XOM"}, 1, 1.0 / 3, false, []contracts.Symbol{"JNJ", "XOM"}},
		{"partial allowed", Config{MinCoverage: 0.3}, []contracts.Symbol{"AAPL", "JNJ", "XOM"}, 1, 1.0 / 3, true, []contracts.Symbol{"JNJ", "XOM"}},
		{"duplicates dropped", DefaultConfig(), []contracts.Symbol{"AAPL", "AAPL"}, 1, 1, true, nil},
		{"empty", DefaultConfig(), nil, 0, 0, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(nil, tt.cfg)
			snap := g.summarize(tt.symbols, found, day(1), day(31))

			assert.Equal(t, tt.wantRankable, snap.Rankable)
			assert.InDelta(t, tt.wantCoverage, snap.Coverage, 1e-12)
			assert.Equal(t, tt.wantPassed, snap.Passed)
			assert.Equal(t, tt.wantMissing, snap.Missing())
		})
	}
}

func TestSummarize_KeepsRequestOrder(t *testing.T) {
	g := NewGate(nil, DefaultConfig())
	snap := g.summarize([]contracts.Symbol{"XOM", "AAPL"}, map[contracts.Symbol]stored{
		"AAPL": {closes: 3, first: day(2), last: day(4)},
	}, day(1), day(5))

	require.Len(t, snap.Symbols, 2)
	assert.Equal(t, contracts.Symbol("XOM"), snap.Symbols[0].Symbol)
	assert.Zero(t, snap.Symbols[0].Closes)
	assert.True(t, snap.Symbols[0].First.IsZero())
	assert.Equal(t, SymbolCoverage{Symbol: "AAPL", Closes: 3, First: day(2), Last: day(4), Rankable: true}, snap.Symbols[1])
}

func TestNewGate_FloorsMinCloses(t *testing.T) {
	g := NewGate(nil, Config{MinCloses: 1})
	assert.Equal(t, MinCloses, g.config.MinCloses)
}

func TestGate_Check(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg, err := config.Load()
	if err != nil || cfg.Database.URL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx := context.Background()
	repo := marketdata.NewPriceRepository(db.Pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	symbol := contracts.Symbol("QTEST_" + time.Now().Format("150405.000"))
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM data.daily_prices WHERE symbol = $1`, string(symbol))
	})
	require.NoError(t, repo.SavePrices(ctx, "test", contracts.PriceSeries{Symbol: symbol, Points: []contracts.PricePoint{
		{Date: day(2), Close: 100},
		{Date: day(3), Close: 101},
		{Date: day(4), Close: 102},
	}}))

	snap, err := NewGate(db.Pool, DefaultConfig()).Check(ctx, []contracts.Symbol{symbol, "QTEST_MISSING"}, day(1), day(31))
	require.NoError(t, err)

	require.Len(t, snap.Symbols, 2)
	assert.Equal(t, 3, snap.Symbols[0].Closes)
	assert.True(t, snap.Symbols[0].Rankable)
	assert.Equal(t, day(2), snap.Symbols[0].First)
	assert.Equal(t, day(4), snap.Symbols[0].Last)
	assert.False(t, snap.Passed)
	assert.Equal(t, []contracts.Symbol{"QTEST_MISSING"}, snap.Missing())
}
