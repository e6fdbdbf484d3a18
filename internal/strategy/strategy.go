// Package strategy hosts a ranking strategy: it runs the ranker on start and keeps the selection.
package strategy

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/strategyconfig"
	"github.com/wonny/toprank/pkg/logger"
)

// Listener is notified after every completed run
type Listener func(run *contracts.RankingRun)

// Strategy runs a stock selection over its configured universe and period
// ⭐ SSOT: 전략 실행/선정 결과 보관은 여기서만
type Strategy struct {
	name     string
	config   *strategyconfig.Config
	ranker   contracts.StockRanker
	provider string
	recorder contracts.RunRecorder
	logger   *logger.Logger

	listeners []Listener

	mu       sync.RWMutex
	selected contracts.RankedStockList
	lastRun  *contracts.RankingRun
}

// New creates a strategy host
func New(name string, cfg *strategyconfig.Config, ranker contracts.StockRanker, provider string, log *logger.Logger) *Strategy {
	return &Strategy{
		name:     name,
		config:   cfg,
		ranker:   ranker,
		provider: provider,
		logger:   log.Module("strategy").WithField("strategy", name),
	}
}

// WithRecorder persists every run
func (s *Strategy) WithRecorder(rec contracts.RunRecorder) *Strategy {
	s.recorder = rec
	return s
}

// OnRun registers a listener for completed runs
func (s *Strategy) OnRun(fn Listener) *Strategy {
	s.listeners = append(s.listeners, fn)
	return s
}

// Name returns the strategy name
func (s *Strategy) Name() string { return s.name }

// Config returns the strategy parameters
func (s *Strategy) Config() *strategyconfig.Config { return s.config }

// OnStart selects the top stocks for the window ending today
func (s *Strategy) OnStart(ctx context.Context) (*contracts.RankingRun, error) {
	return s.OnStartAt(ctx, time.Now())
}

// OnStartAt selects the top stocks for the window ending at now and stores them.
// A failed recording is logged; the selection still stands.
func (s *Strategy) OnStartAt(ctx context.Context, now time.Time) (*contracts.RankingRun, error) {
	req := s.config.RequestAt(now)

	selection, err := s.ranker.SelectTopStocks(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("select top stocks: %w", err)
	}

	run := &contracts.RankingRun{
		ID:          uuid.New(),
		StrategyID:  s.config.Meta.StrategyID,
		Provider:    s.provider,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		NumStocks:   req.NumStocks,
		Requested:   req.Symbols,
		Metrics:     selection.Metrics,
		Selected:    selection.Ranked,
		CompletedAt: time.Now().UTC(),
	}
	if hash, err := strategyconfig.Hash(s.config); err == nil {
		run.ConfigHash = hash
	}

	s.mu.Lock()
	s.selected = selection.Ranked
	s.lastRun = run
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.RecordRun(ctx, run); err != nil {
			s.logger.ForRun(run.ID).WithError(err).Warn("Failed to record ranking run")
		}
	}

	for _, fn := range s.listeners {
		fn(run)
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id":   run.ID.String(),
		"selected": selection.Ranked.Symbols(),
	}).Info("Strategy started")

	return run, nil
}

// Selected returns the stocks picked by the last run
func (s *Strategy) Selected() contracts.RankedStockList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// LastRun returns the last completed run, or nil
func (s *Strategy) LastRun() *contracts.RankingRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// PrintSelection writes the header and a 1-indexed "{rank}. {symbol}" list
func (s *Strategy) PrintSelection(w io.Writer) error {
	return WriteSelection(w, s.config.Ranking.NumStocks, s.Selected())
}

// WriteSelection formats a ranked list for humans
func WriteSelection(w io.Writer, numStocks int, ranked contracts.RankedStockList) error {
	if _, err := fmt.Fprintf(w, "Top %d stocks selected by the strategy:\n", numStocks); err != nil {
		return err
	}
	for _, stock := range ranked {
		// 기록된 실행을 더 작은 N으로 출력할 때 잘라냄
		if !stock.IsTopRanked(numStocks) {
			continue
		}
		line := fmt.Sprintf("%d. %s", stock.Rank, stock.Symbol)
		if stock.Name != "" {
			line += fmt.Sprintf(" (%s)", stock.Name)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
