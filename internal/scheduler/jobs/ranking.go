package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wonny/toprank/internal/strategy"
	"github.com/wonny/toprank/pkg/logger"
)

// DefaultRankingSchedule is weekdays at 4:30 PM, after the close
const DefaultRankingSchedule = "0 30 16 * * 1-5"

// RankingJob re-runs the strategy's selection
// ⭐ SSOT: 랭킹 스케줄은 이 Job에서만
type RankingJob struct {
	strategy *strategy.Strategy
	schedule string
	logger   *logger.Logger

	mu      sync.Mutex
	summary string
}

// NewRankingJob creates a new ranking job; an empty schedule uses the default
func NewRankingJob(s *strategy.Strategy, schedule string, log *logger.Logger) *RankingJob {
	if schedule == "" {
		schedule = DefaultRankingSchedule
	}
	return &RankingJob{
		strategy: s,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *RankingJob) Name() string {
	return "ranking"
}

// Schedule returns the cron schedule
func (j *RankingJob) Schedule() string {
	return j.schedule
}

// Run executes the ranking
func (j *RankingJob) Run(ctx context.Context) error {
	j.logger.WithField("strategy", j.strategy.Name()).Info("Starting scheduled ranking")

	run, err := j.strategy.OnStart(ctx)
	if err != nil {
		return fmt.Errorf("run strategy: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":   run.ID.String(),
		"selected": len(run.Selected),
	}).Info("Scheduled ranking completed")

	symbols := make([]string, len(run.Selected))
	for i, r := range run.Selected {
		symbols[i] = string(r.Symbol)
	}
	j.mu.Lock()
	j.summary = fmt.Sprintf("run %s: %s", run.ID.String()[:8], strings.Join(symbols, ","))
	j.mu.Unlock()
	return nil
}

// Summary describes the last completed run
func (j *RankingJob) Summary() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.summary
}
