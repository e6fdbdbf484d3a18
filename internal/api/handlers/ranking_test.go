package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/selection"
	"github.com/wonny/toprank/pkg/logger"
)

type stubRanker struct {
	got contracts.SelectionRequest
	sel *contracts.Selection
	err error
}

func (s *stubRanker) SelectTopStocks(_ context.Context, req contracts.SelectionRequest) (*contracts.Selection, error) {
	s.got = req
	return s.sel, s.err
}

type stubRuns struct {
	last      *contracts.RankingRun
	runs      []*contracts.RankingRun
	err       error
	lastLimit int
}

func (s *stubRuns) LastRun() *contracts.RankingRun { return s.last }

func (s *stubRuns) RecentRuns(_ context.Context, limit int) ([]*contracts.RankingRun, error) {
	s.lastLimit = limit
	return s.runs, s.err
}

func serve(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetRanking(t *testing.T) {
	ranker := &stubRanker{sel: &contracts.Selection{
		Ranked: contracts.RankedStockList{
			{Symbol: "XOM", Rank: 1, Metrics: contracts.PerformanceMetrics{Symbol: "XOM", SharpeRatio: 1.2}},
		},
		Metrics: []contracts.PerformanceMetrics{
			{Symbol: "JNJ", SharpeRatio: 0.4},
			{Symbol: "XOM", SharpeRatio: 1.2},
		},
	}}
	h := NewRankingHandler(ranker, &stubRuns{}, &stubRuns{}, 5, logger.Nop())

	rec := serve(h.GetRanking, "/api/ranking?symbols=JNJ,%20XOM,,&from=2020-01-01&to=2023-12-31&top=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, []contracts.Symbol{"JNJ", "XOM"}, ranker.got.Symbols)
	assert.Equal(t, 1, ranker.got.NumStocks)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), ranker.got.StartDate)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), ranker.got.EndDate)

	var body RankingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2020-01-01", body.From)
	assert.Equal(t, "2023-12-31", body.To)
	require.Len(t, body.Ranked, 1)
	assert.Equal(t, contracts.Symbol("XOM"), body.Ranked[0].Symbol)
	assert.Len(t, body.Metrics, 2)
}

func TestGetRanking_DefaultTopAndEmptyResult(t *testing.T) {
	ranker := &stubRanker{sel: &contracts.Selection{}}
	h := NewRankingHandler(ranker, &stubRuns{}, &stubRuns{}, 3, logger.Nop())

	rec := serve(h.GetRanking, "/api/ranking?symbols=AAPL&from=2024-01-01&to=2024-02-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, ranker.got.NumStocks)
	assert.JSONEq(t, `{"from":"2024-01-01","to":"2024-02-01","num_stocks":3,"ranked":[],"metrics":[]}`, rec.Body.String())
}

func TestGetRanking_BadRequest(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		err     error
		wantMsg string
	}{
		{"missing symbols", "/api/ranking?from=2024-01-01&to=2024-02-01", nil, "symbols is required"},
		{"blank symbols", "/api/ranking?symbols=,,&from=2024-01-01&to=2024-02-01", nil, "symbols is required"},
		{"bad from", "/api/ranking?symbols=A&from=01/01/2024&to=2024-02-01", nil, "from must be YYYY-MM-DD"},
		{"missing to", "/api/ranking?symbols=A&from=2024-01-01", nil, "to must be YYYY-MM-DD"},
		{"bad top", "/api/ranking?symbols=A&from=2024-01-01&to=2024-02-01&top=five", nil, "top must be an integer"},
		{"ranker rejects top", "/api/ranking?symbols=A&from=2024-01-01&to=2024-02-01&top=0", selection.ErrInvalidNumStocks, selection.ErrInvalidNumStocks.Error()},
		{"ranker rejects range", "/api/ranking?symbols=A&from=2024-03-01&to=2024-02-01", selection.ErrInvalidDateRange, selection.ErrInvalidDateRange.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRankingHandler(&stubRanker{err: tt.err}, &stubRuns{}, &stubRuns{}, 5, logger.Nop())

			rec := serve(h.GetRanking, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantMsg)
		})
	}
}

func TestGetRanking_ProviderFailure(t *testing.T) {
	err := fmt.Errorf("get historical data for AAPL: %w", errors.New("connection refused"))
	h := NewRankingHandler(&stubRanker{err: err}, &stubRuns{}, &stubRuns{}, 5, logger.Nop())

	rec := serve(h.GetRanking, "/api/ranking?symbols=AAPL&from=2024-01-01&to=2024-02-01")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestGetLatest(t *testing.T) {
	runs := &stubRuns{}
	h := NewRankingHandler(&stubRanker{}, runs, runs, 5, logger.Nop())

	rec := serve(h.GetLatest, "/api/ranking/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := uuid.New()
	runs.last = &contracts.RankingRun{ID: id, StrategyID: "stock_picker", NumStocks: 5}
	rec = serve(h.GetLatest, "/api/ranking/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var got contracts.RankingRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "stock_picker", got.StrategyID)
}

func TestGetRuns(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		runs      []*contracts.RankingRun
		err       error
		wantCode  int
		wantLimit int
		wantLen   int
	}{
		{"default limit", "/api/ranking/runs", []*contracts.RankingRun{{ID: uuid.New()}, {ID: uuid.New()}}, nil, http.StatusOK, 10, 2},
		{"explicit limit", "/api/ranking/runs?limit=1", []*contracts.RankingRun{{ID: uuid.New()}}, nil, http.StatusOK, 1, 1},
		{"no runs", "/api/ranking/runs", nil, nil, http.StatusOK, 10, 0},
		{"bad limit", "/api/ranking/runs?limit=0", nil, nil, http.StatusBadRequest, 0, 0},
		{"too large", "/api/ranking/runs?limit=1000", nil, nil, http.StatusBadRequest, 0, 0},
		{"store failure", "/api/ranking/runs", nil, errors.New("disk I/O error"), http.StatusInternalServerError, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := &stubRuns{runs: tt.runs, err: tt.err}
			h := NewRankingHandler(&stubRanker{}, runs, runs, 5, logger.Nop())

			rec := serve(h.GetRuns, tt.target)
			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLimit, runs.lastLimit)
			if tt.wantCode != http.StatusOK {
				return
			}

			var got []contracts.RankingRun
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Len(t, got, tt.wantLen)
			assert.NotNil(t, got)
		})
	}
}
