package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/toprank/internal/collector"
	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/strategy"
	"github.com/wonny/toprank/internal/strategyconfig"
	"github.com/wonny/toprank/pkg/logger"
)

type fixedRanker struct {
	err error
}

func (f *fixedRanker) SelectTopStocks(_ context.Context, req contracts.SelectionRequest) (*contracts.Selection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &contracts.Selection{Ranked: contracts.RankedStockList{{Symbol: req.Symbols[0], Rank: 1}}}, nil
}

func TestRankingJob(t *testing.T) {
	s := strategy.New("mlstrat", strategyconfig.Default(), &fixedRanker{}, "yahoo", logger.Nop())
	job := NewRankingJob(s, "", logger.Nop())

	assert.Equal(t, "ranking", job.Name())
	assert.Equal(t, DefaultRankingSchedule, job.Schedule())

	assert.Empty(t, job.Summary())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []contracts.Symbol{"JNJ"}, s.Selected().Symbols())
	assert.Contains(t, job.Summary(), ": JNJ")
}

func TestRankingJob_Error(t *testing.T) {
	boom := errors.New("provider down")
	s := strategy.New("mlstrat", strategyconfig.Default(), &fixedRanker{err: boom}, "yahoo", logger.Nop())
	job := NewRankingJob(s, "0 0 17 * * *", logger.Nop())

	assert.Equal(t, "0 0 17 * * *", job.Schedule())
	assert.ErrorIs(t, job.Run(context.Background()), boom)
	assert.Empty(t, job.Summary())
}

type rangeSource struct {
	err   map[contracts.Symbol]error
	start time.Time
	end   time.Time
}

func (r *rangeSource) Name() string { return "yahoo" }

func (r *rangeSource) GetHistoricalData(_ context.Context, symbol contracts.Symbol, start, end time.Time) (contracts.PriceSeries, error) {
	r.start, r.end = start, end
	if err := r.err[symbol]; err != nil {
		return contracts.PriceSeries{}, err
	}
	return contracts.PriceSeries{Symbol: symbol, Points: []contracts.PricePoint{{Date: start, Close: 1}}}, nil
}

type discardSink struct{}

func (discardSink) SavePrices(context.Context, string, contracts.PriceSeries) error { return nil }

func TestCollectionJob(t *testing.T) {
	source := &rangeSource{err: map[contracts.Symbol]error{"XOM": errors.New("timeout")}}
	col := collector.NewCollector(source, discardSink{}, logger.Nop())

	job := NewCollectionJob(col, []contracts.Symbol{"AAPL", "XOM"}, "", 1, logger.Nop())
	now := time.Date(2024, 3, 8, 16, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	assert.Equal(t, "collection", job.Name())
	assert.Equal(t, DefaultCollectionSchedule, job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now, source.end)
	assert.Equal(t, now.AddDate(0, 0, -7), source.start)
	assert.Equal(t, "1 collected, 1 failed", job.Summary())
}

type latestDates struct {
	dates map[contracts.Symbol]time.Time
	err   error
}

func (l latestDates) LatestDate(_ context.Context, symbol contracts.Symbol) (time.Time, bool, error) {
	if l.err != nil {
		return time.Time{}, false, l.err
	}
	d, ok := l.dates[symbol]
	return d, ok, nil
}

func TestCollectionJob_ResumesFromLatestStored(t *testing.T) {
	now := time.Date(2024, 3, 8, 16, 0, 0, 0, time.UTC)
	fallback := now.AddDate(0, 0, -7)
	gap := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		latest latestDates
		want   time.Time
	}{
		{"oldest latest wins", latestDates{dates: map[contracts.Symbol]time.Time{"AAPL": gap, "XOM": recent}}, gap},
		{"all recent", latestDates{dates: map[contracts.Symbol]time.Time{"AAPL": recent, "XOM": recent}}, recent},
		{"unstored symbol falls back", latestDates{dates: map[contracts.Symbol]time.Time{"AAPL": recent}}, fallback},
		{"lookup error falls back", latestDates{err: errors.New("db down")}, fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &rangeSource{}
			col := collector.NewCollector(source, discardSink{}, logger.Nop())
			job := NewCollectionJob(col, []contracts.Symbol{"AAPL", "XOM"}, "", 1, logger.Nop()).WithLatest(tt.latest)
			job.now = func() time.Time { return now }

			require.NoError(t, job.Run(context.Background()))
			assert.Equal(t, tt.want, source.start)
			assert.Equal(t, now, source.end)
		})
	}
}

func TestCollectionJob_RefreshesCacheFirst(t *testing.T) {
	source := &rangeSource{}
	col := collector.NewCollector(source, discardSink{}, logger.Nop())

	var refreshed []contracts.Symbol
	job := NewCollectionJob(col, []contracts.Symbol{"AAPL", "XOM"}, "", 1, logger.Nop()).
		WithRefresh(func(_ context.Context, symbols []contracts.Symbol) (int, error) {
			refreshed = symbols
			return 0, errors.New("redis down")
		})

	// 무효화 실패해도 수집은 진행
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []contracts.Symbol{"AAPL", "XOM"}, refreshed)
	assert.Equal(t, "2 collected, 0 failed", job.Summary())
}

func TestCollectionJob_AllFailed(t *testing.T) {
	boom := errors.New("timeout")
	source := &rangeSource{err: map[contracts.Symbol]error{"AAPL": boom, "XOM": boom}}
	col := collector.NewCollector(source, discardSink{}, logger.Nop())

	job := NewCollectionJob(col, []contracts.Symbol{"AAPL", "XOM"}, "", 1, logger.Nop())
	err := job.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "all 2 symbols failed")
}

type countingCache struct {
	expired int
	total   int
	cleaned int
}

func (c *countingCache) CleanExpired() int {
	c.cleaned++
	n := c.expired
	c.total -= n
	c.expired = 0
	return n
}

func (c *countingCache) Len() int { return c.total }

func TestCacheCleanupJob(t *testing.T) {
	cache := &countingCache{expired: 2, total: 5}
	job := NewCacheCleanupJob(cache, logger.Nop())

	assert.Equal(t, "cache_cleanup", job.Name())
	assert.Equal(t, DefaultCacheCleanupSchedule, job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 2, cache.cleaned)
	assert.Equal(t, 3, cache.Len())
	assert.Equal(t, "0 expired removed, 3 cached", job.Summary())
}
