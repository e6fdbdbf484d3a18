package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/selection"
	"github.com/wonny/toprank/pkg/logger"
)

const (
	dateLayout     = "2006-01-02"
	maxSymbols     = 200
	defaultRunsCap = 10
)

// LatestRun exposes the last in-process run (implemented by strategy.Strategy)
type LatestRun interface {
	LastRun() *contracts.RankingRun
}

// RunHistory lists recorded runs (implemented by recorder.Recorder)
type RunHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]*contracts.RankingRun, error)
}

// RankingHandler handles ranking-related API endpoints
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	ranker     contracts.StockRanker
	latest     LatestRun
	history    RunHistory
	defaultTop int
	logger     *logger.Logger
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(ranker contracts.StockRanker, latest LatestRun, history RunHistory, defaultTop int, log *logger.Logger) *RankingHandler {
	if defaultTop < 1 {
		defaultTop = 5
	}
	return &RankingHandler{
		ranker:     ranker,
		latest:     latest,
		history:    history,
		defaultTop: defaultTop,
		logger:     log,
	}
}

// RankingResponse is the body of GET /api/ranking
type RankingResponse struct {
	From      string                         `json:"from"`
	To        string                         `json:"to"`
	NumStocks int                            `json:"num_stocks"`
	Ranked    contracts.RankedStockList      `json:"ranked"`
	Metrics   []contracts.PerformanceMetrics `json:"metrics"`
}

// GetRanking ranks the requested symbols on demand
// GET /api/ranking?symbols=AAPL,JNJ&from=2020-01-01&to=2023-12-31&top=5
func (h *RankingHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sel, err := h.ranker.SelectTopStocks(r.Context(), req)
	if err != nil {
		if errors.Is(err, selection.ErrInvalidNumStocks) || errors.Is(err, selection.ErrInvalidDateRange) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to rank symbols")
		WriteError(w, http.StatusBadGateway, "Failed to fetch market data")
		return
	}

	ranked := sel.Ranked
	if ranked == nil {
		ranked = contracts.RankedStockList{}
	}
	metrics := sel.Metrics
	if metrics == nil {
		metrics = []contracts.PerformanceMetrics{}
	}

	WriteJSON(w, http.StatusOK, RankingResponse{
		From:      req.StartDate.Format(dateLayout),
		To:        req.EndDate.Format(dateLayout),
		NumStocks: req.NumStocks,
		Ranked:    ranked,
		Metrics:   metrics,
	})
}

// parseRequest validates query parameters
func (h *RankingHandler) parseRequest(r *http.Request) (contracts.SelectionRequest, error) {
	q := r.URL.Query()
	var req contracts.SelectionRequest

	for _, s := range strings.Split(q.Get("symbols"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			req.Symbols = append(req.Symbols, contracts.Symbol(s))
		}
	}
	if len(req.Symbols) == 0 {
		return req, errors.New("symbols is required")
	}
	if len(req.Symbols) > maxSymbols {
		return req, fmt.Errorf("at most %d symbols per request", maxSymbols)
	}

	var err error
	if req.StartDate, err = time.Parse(dateLayout, q.Get("from")); err != nil {
		return req, errors.New("from must be YYYY-MM-DD")
	}
	if req.EndDate, err = time.Parse(dateLayout, q.Get("to")); err != nil {
		return req, errors.New("to must be YYYY-MM-DD")
	}

	req.NumStocks = h.defaultTop
	if top := q.Get("top"); top != "" {
		if req.NumStocks, err = strconv.Atoi(top); err != nil {
			return req, errors.New("top must be an integer")
		}
	}

	return req, nil
}

// GetLatest returns the last scheduled run
// GET /api/ranking/latest
func (h *RankingHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	run := h.latest.LastRun()
	if run == nil {
		WriteError(w, http.StatusNotFound, "No ranking run yet")
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// LastRun returns the last in-process run, nil before the first one
func (h *RankingHandler) LastRun() *contracts.RankingRun {
	return h.latest.LastRun()
}

// GetRuns returns recorded runs, newest first
// GET /api/ranking/runs?limit=10
func (h *RankingHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsCap
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			WriteError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	runs, err := h.history.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load ranking runs")
		WriteError(w, http.StatusInternalServerError, "Failed to load ranking runs")
		return
	}
	if runs == nil {
		runs = []*contracts.RankingRun{}
	}
	WriteJSON(w, http.StatusOK, runs)
}
