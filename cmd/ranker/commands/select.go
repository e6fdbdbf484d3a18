package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/toprank/internal/quality"
	"github.com/wonny/toprank/internal/strategyconfig"
	"github.com/wonny/toprank/pkg/config"
)

// selectCmd represents the select command
var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "상위 N개 종목 선정",
	Long: `전략 파일의 유니버스를 Sharpe ratio로 랭킹하고 상위 N개를 출력합니다.

플래그는 전략 파일 값을 덮어씁니다.
--from/--to를 지정하면 lookback_days는 무시됩니다.

Example:
  go run ./cmd/ranker select
  go run ./cmd/ranker select --symbols AAPL,MSFT,JNJ --from 2020-01-01 --to 2023-12-31 --top 2
  go run ./cmd/ranker select --strategy config/strategy.yaml --workers 4 --metrics`,
	RunE: runSelect,
}

var (
	selectSymbols     string
	selectFrom        string
	selectTo          string
	selectTop         int
	selectWorkers     int
	selectShowMetrics bool
	selectTimeout     time.Duration
)

func init() {
	rootCmd.AddCommand(selectCmd)

	selectCmd.Flags().StringVar(&selectSymbols, "symbols", "", "comma separated symbols (overrides universe)")
	selectCmd.Flags().StringVar(&selectFrom, "from", "", "start date YYYY-MM-DD")
	selectCmd.Flags().StringVar(&selectTo, "to", "", "end date YYYY-MM-DD")
	selectCmd.Flags().IntVar(&selectTop, "top", 0, "number of stocks to select")
	selectCmd.Flags().IntVar(&selectWorkers, "workers", 0, "concurrent fetches (default: RANKING_WORKERS)")
	selectCmd.Flags().BoolVar(&selectShowMetrics, "metrics", false, "print the full metrics table")
	selectCmd.Flags().DurationVar(&selectTimeout, "timeout", 5*time.Minute, "overall timeout")
}

func runSelect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if selectWorkers > 0 {
		cfg.Ranking.Workers = selectWorkers
	}

	a, err := newAppWithConfig(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	strat, err := a.strategy(applySelectFlags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, selectTimeout)
	defer cancel()

	sc := strat.Config()
	// 헤더와 랭킹이 같은 창을 보도록 시각은 한 번만 읽음
	now := time.Now()
	start, end := sc.Window(now)
	PrintHeader("Stock Selection", [][2]string{
		{"Strategy", sc.Meta.StrategyID},
		{"Provider", a.provider.Name()},
		{"Period", fmt.Sprintf("%s ~ %s", start.Format(strategyconfig.DateLayout), end.Format(strategyconfig.DateLayout))},
		{"Symbols", strings.Join(sc.Universe.Symbols, ", ")},
		{"Top", fmt.Sprintf("%d", sc.Ranking.NumStocks)},
	})

	// 적재 시세로 랭킹할 때는 커버리지 먼저 확인
	if cfg.MarketData.Provider == config.ProviderPostgres {
		snap, err := quality.NewGate(a.db.Pool, quality.DefaultConfig()).Check(ctx, sc.Symbols(), start, end)
		if err != nil {
			return fmt.Errorf("coverage check: %w", err)
		}
		if !snap.Passed {
			printCoverage(snap)
		}
	}

	began := time.Now()
	run, err := strat.OnStartAt(ctx, now)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	fmt.Println()
	if err := strat.PrintSelection(os.Stdout); err != nil {
		return err
	}

	if selectShowMetrics || verbose {
		fmt.Println()
		PrintMetricsTable(run.Metrics, run.Selected)
	}

	if skipped := countUnique(run.Requested) - len(run.Metrics); skipped > 0 {
		PrintWarning(fmt.Sprintf("%d symbol(s) skipped: no data or undefined metrics", skipped))
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("Run %s completed in %.2fs", run.ID, time.Since(began).Seconds()))
	return nil
}

// applySelectFlags overrides strategy values with command-line flags
func applySelectFlags(cfg *strategyconfig.Config) {
	if symbols := parseSymbols(selectSymbols); len(symbols) > 0 {
		cfg.Universe.Symbols = symbols
	}
	if selectFrom != "" || selectTo != "" {
		cfg.Period.LookbackDays = 0
		if selectFrom != "" {
			cfg.Period.Start = selectFrom
		}
		if selectTo != "" {
			cfg.Period.End = selectTo
		}
	}
	if selectTop > 0 {
		cfg.Ranking.NumStocks = selectTop
	}
}
