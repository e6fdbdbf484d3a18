package strategy

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/strategyconfig"
	"github.com/wonny/toprank/pkg/logger"
)

type stubRanker struct {
	selection *contracts.Selection
	err       error
	got       contracts.SelectionRequest
}

func (s *stubRanker) SelectTopStocks(_ context.Context, req contracts.SelectionRequest) (*contracts.Selection, error) {
	s.got = req
	return s.selection, s.err
}

type stubRecorder struct {
	runs []*contracts.RankingRun
	err  error
}

func (s *stubRecorder) RecordRun(_ context.Context, run *contracts.RankingRun) error {
	s.runs = append(s.runs, run)
	return s.err
}

func sampleSelection() *contracts.Selection {
	return &contracts.Selection{
		Ranked: contracts.RankedStockList{
			{Symbol: "WMT", Rank: 1, Metrics: contracts.PerformanceMetrics{Symbol: "WMT", SharpeRatio: 0.9}},
			{Symbol: "XOM", Rank: 2, Metrics: contracts.PerformanceMetrics{Symbol: "XOM", SharpeRatio: 0.7}},
		},
		Metrics: []contracts.PerformanceMetrics{
			{Symbol: "JNJ", SharpeRatio: 0.2},
			{Symbol: "XOM", SharpeRatio: 0.7},
			{Symbol: "WMT", SharpeRatio: 0.9},
		},
	}
}

func TestOnStart(t *testing.T) {
	ranker := &stubRanker{selection: sampleSelection()}
	recorder := &stubRecorder{}
	var notified []*contracts.RankingRun

	cfg := strategyconfig.Default()
	s := New("mlstrat", cfg, ranker, "yahoo", logger.Nop()).
		WithRecorder(recorder).
		OnRun(func(run *contracts.RankingRun) { notified = append(notified, run) })

	assert.Nil(t, s.LastRun())

	run, err := s.OnStart(context.Background())
	require.NoError(t, err)

	assert.Equal(t, cfg.RequestAt(time.Now()), ranker.got)
	assert.Equal(t, []contracts.Symbol{"WMT", "XOM"}, s.Selected().Symbols())
	assert.Equal(t, run, s.LastRun())

	assert.Equal(t, "stock_picker", run.StrategyID)
	assert.Equal(t, "yahoo", run.Provider)
	assert.Len(t, run.ConfigHash, 64)
	assert.Len(t, run.Metrics, 3)
	assert.NotEmpty(t, run.ID.String())

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, run, recorder.runs[0])
	require.Len(t, notified, 1)
}

func TestOnStartAt_UsesGivenClock(t *testing.T) {
	ranker := &stubRanker{selection: sampleSelection()}
	cfg := strategyconfig.Default()
	cfg.Period = strategyconfig.Period{LookbackDays: 30}
	s := New("mlstrat", cfg, ranker, "yahoo", logger.Nop())

	// 자정 직전: 실행 중 날짜가 바뀌어도 창은 now 기준
	now := time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC)
	run, err := s.OnStartAt(context.Background(), now)
	require.NoError(t, err)

	start, end := cfg.Window(now)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, start, run.StartDate)
	assert.Equal(t, end, run.EndDate)
	assert.Equal(t, start, ranker.got.StartDate)
	assert.Equal(t, end, ranker.got.EndDate)
}

func TestOnStart_RankerError(t *testing.T) {
	boom := errors.New("provider down")
	s := New("mlstrat", strategyconfig.Default(), &stubRanker{err: boom}, "yahoo", logger.Nop())

	_, err := s.OnStart(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, s.LastRun())
	assert.Empty(t, s.Selected())
}

func TestOnStart_RecorderErrorKeepsSelection(t *testing.T) {
	recorder := &stubRecorder{err: errors.New("disk full")}
	s := New("mlstrat", strategyconfig.Default(), &stubRanker{selection: sampleSelection()}, "yahoo", logger.Nop()).
		WithRecorder(recorder)

	_, err := s.OnStart(context.Background())
	require.NoError(t, err)
	assert.Len(t, s.Selected(), 2)
}

func TestPrintSelection(t *testing.T) {
	s := New("mlstrat", strategyconfig.Default(), &stubRanker{selection: sampleSelection()}, "yahoo", logger.Nop())
	_, err := s.OnStart(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.PrintSelection(&buf))
	assert.Equal(t, "Top 5 stocks selected by the strategy:\n1. WMT\n2. XOM\n", buf.String())
}

func TestWriteSelection_WithNames(t *testing.T) {
	ranked := contracts.RankedStockList{{Symbol: "005930", Name: "삼성전자", Rank: 1}}

	var buf bytes.Buffer
	require.NoError(t, WriteSelection(&buf, 1, ranked))
	assert.Equal(t, "Top 1 stocks selected by the strategy:\n1. 005930 (삼성전자)\n", buf.String())
}

func TestWriteSelection_OnlyTopRanks(t *testing.T) {
	ranked := contracts.RankedStockList{
		{Symbol: "WMT", Rank: 1},
		{Symbol: "XOM", Rank: 2},
		{Symbol: "JNJ", Rank: 3},
		{Symbol: "ZZZ"}, // 순위 없음
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSelection(&buf, 2, ranked))
	assert.Equal(t, "Top 2 stocks selected by the strategy:\n1. WMT\n2. XOM\n", buf.String())
}

func TestWriteSelection_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSelection(&buf, 3, nil))
	assert.Equal(t, "Top 3 stocks selected by the strategy:\n", buf.String())
}
