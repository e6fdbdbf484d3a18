package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/toprank/internal/collector"
	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/pkg/logger"
)

// DefaultCollectionSchedule is weekdays at 4 PM
const DefaultCollectionSchedule = "0 0 16 * * 1-5"

// CollectionJob refreshes recent prices for the strategy universe
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type CollectionJob struct {
	collector    *collector.Collector
	symbols      []contracts.Symbol
	schedule     string
	lookbackDays int
	workers      int
	logger       *logger.Logger
	now          func() time.Time
	refresh      RefreshFunc
	latest       LatestStore

	mu      sync.Mutex
	summary string
}

// RefreshFunc drops cached series for symbols before they are re-collected
type RefreshFunc func(ctx context.Context, symbols []contracts.Symbol) (int, error)

// LatestStore reports the newest stored trade date per symbol (implemented by marketdata.PriceRepository)
type LatestStore interface {
	LatestDate(ctx context.Context, symbol contracts.Symbol) (time.Time, bool, error)
}

// NewCollectionJob creates a new data collection job
func NewCollectionJob(col *collector.Collector, symbols []contracts.Symbol, schedule string, workers int, log *logger.Logger) *CollectionJob {
	if schedule == "" {
		schedule = DefaultCollectionSchedule
	}
	return &CollectionJob{
		collector:    col,
		symbols:      symbols,
		schedule:     schedule,
		lookbackDays: 7,
		workers:      workers,
		logger:       log,
		now:          time.Now,
	}
}

// WithRefresh runs fn before every collection
func (j *CollectionJob) WithRefresh(fn RefreshFunc) *CollectionJob {
	j.refresh = fn
	return j
}

// WithLatest resumes each run from the oldest of the symbols' newest stored dates
func (j *CollectionJob) WithLatest(store LatestStore) *CollectionJob {
	j.latest = store
	return j
}

// Name returns the job name
func (j *CollectionJob) Name() string {
	return "collection"
}

// Schedule returns the cron schedule
func (j *CollectionJob) Schedule() string {
	return j.schedule
}

// Run collects prices since the last stored close (a week when nothing is stored);
// it fails only when every symbol failed
func (j *CollectionJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled data collection")

	if j.refresh != nil {
		// 캐시 무효화 실패는 수집을 막지 않음
		if n, err := j.refresh(ctx, j.symbols); err != nil {
			j.logger.WithError(err).Warn("Failed to drop cached series")
		} else if n > 0 {
			j.logger.WithField("dropped", n).Debug("Dropped cached series")
		}
	}

	to := j.now()
	from := j.resumeFrom(ctx, to)

	results := j.collector.CollectPrices(ctx, j.symbols, from, to, collector.Config{Workers: j.workers})
	success, failed := collector.Summary(results)

	if len(results) > 0 && success == 0 {
		return fmt.Errorf("all %d symbols failed: %w", failed, results[0].Error)
	}

	if failed > 0 {
		j.logger.Warnf("%d of %d symbols failed to collect", failed, len(results))
	}
	j.logger.WithFields(map[string]interface{}{
		"from":    from.Format("2006-01-02"),
		"success": success,
		"failed":  failed,
	}).Info("Scheduled data collection completed")

	j.mu.Lock()
	j.summary = fmt.Sprintf("%d collected, %d failed", success, failed)
	j.mu.Unlock()
	return nil
}

// Summary describes the last completed collection
func (j *CollectionJob) Summary() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.summary
}

// resumeFrom returns the earliest date any symbol still needs. A symbol with no stored
// closes (or a failed lookup) falls back to the default lookback window.
func (j *CollectionJob) resumeFrom(ctx context.Context, to time.Time) time.Time {
	fallback := to.AddDate(0, 0, -j.lookbackDays)
	if j.latest == nil || len(j.symbols) == 0 {
		return fallback
	}

	var from time.Time
	for _, symbol := range j.symbols {
		start := fallback
		latest, ok, err := j.latest.LatestDate(ctx, symbol)
		switch {
		case err != nil:
			j.logger.ForSymbol(symbol).WithError(err).Warn("Failed to read latest stored date")
		case ok && latest.Before(to):
			// 마지막 저장일 재수집 (장중 저장분 보정)
			start = latest
		case ok:
			start = to
		}
		if from.IsZero() || start.Before(from) {
			from = start
		}
	}
	return from
}
