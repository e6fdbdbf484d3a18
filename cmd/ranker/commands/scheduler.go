package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/toprank/internal/collector"
	"github.com/wonny/toprank/internal/contracts"
	"github.com/wonny/toprank/internal/marketdata"
	"github.com/wonny/toprank/internal/scheduler"
	"github.com/wonny/toprank/internal/scheduler/jobs"
	"github.com/wonny/toprank/internal/strategy"
	"github.com/wonny/toprank/pkg/config"
)

const rankingJobName = "ranking"

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/ranker scheduler start
  go run ./cmd/ranker scheduler list
  go run ./cmd/ranker scheduler run ranking`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- ranking: RANKING_SCHEDULE (기본 평일 16:30, 전략 랭킹)
- collection: COLLECT_SCHEDULE (기본 평일 16:00, DATABASE_URL 설정 시 최근 시세 적재)
- cache_cleanup: 5분마다 (Redis 미사용 시 메모리 캐시 정리)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== toprank Scheduler ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	strat, err := a.strategy(nil)
	if err != nil {
		return err
	}

	sched, err := newScheduler(a, strat)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.NextRun(jobName)
		fmt.Printf("  - %-12s next: %s\n", jobName, next.Format("2006-01-02 15:04:05"))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	strat, err := a.strategy(nil)
	if err != nil {
		return err
	}

	sched, err := newScheduler(a, strat)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()
	fmt.Println("Registered jobs:")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  - %-12s %s\n", name, stats[name].Schedule)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	strat, err := a.strategy(nil)
	if err != nil {
		return err
	}

	sched, err := newScheduler(a, strat)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := sched.RunNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		PrintError(fmt.Sprintf("Job %s failed after %s: %s", jobName, result.Duration.Round(time.Millisecond), result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	if jobName == rankingJobName {
		fmt.Println()
		if err := strat.PrintSelection(os.Stdout); err != nil {
			return err
		}
	}
	PrintSuccess(fmt.Sprintf("Job %s completed in %s (attempts: %d)", jobName, result.Duration.Round(time.Millisecond), result.Attempts))
	if result.Summary != "" {
		PrintInfo(result.Summary)
	}
	return nil
}

// newScheduler registers the ranking job, plus price collection when a database is configured
func newScheduler(a *app, strat *strategy.Strategy) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	if err := sched.AddJob(jobs.NewRankingJob(strat, a.cfg.Ranking.Schedule, a.log)); err != nil {
		return nil, err
	}

	if a.memory != nil {
		if err := sched.AddJob(jobs.NewCacheCleanupJob(a.memory, a.log)); err != nil {
			return nil, err
		}
	}

	if a.db == nil {
		return sched, nil
	}

	// postgres 공급자면 Yahoo에서 수집, 아니면 같은 원격 공급자 사용
	srcCfg := *a.cfg
	if srcCfg.MarketData.Provider == config.ProviderPostgres {
		srcCfg.MarketData.Provider = config.ProviderYahoo
	}
	source, err := marketdata.New(&srcCfg, a.deps())
	if err != nil {
		return nil, fmt.Errorf("build collection source: %w", err)
	}

	repo := marketdata.NewPriceRepository(a.db.Pool)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	col := collector.NewCollector(source, repo, a.log)
	invalidator := a.deps().Invalidator()
	job := jobs.NewCollectionJob(col, strat.Config().Symbols(), a.cfg.Ranking.CollectCron, a.cfg.Ranking.Workers, a.log).
		WithRefresh(func(ctx context.Context, symbols []contracts.Symbol) (int, error) {
			return marketdata.InvalidateSeries(ctx, invalidator, srcCfg.MarketData.Provider, symbols)
		}).
		WithLatest(repo)
	if err := sched.AddJob(job); err != nil {
		return nil, err
	}

	return sched, nil
}
