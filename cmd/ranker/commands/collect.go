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
	"github.com/wonny/toprank/internal/quality"
	"github.com/wonny/toprank/internal/strategyconfig"
	"github.com/wonny/toprank/pkg/config"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "원격 시세를 PostgreSQL에 적재",
	Long: `Yahoo 또는 Naver에서 일별 종가를 받아 data.daily_prices에 저장합니다.
저장된 시세는 MARKETDATA_PROVIDER=postgres로 랭킹에 사용할 수 있습니다.

DATABASE_URL 필수.

Example:
  go run ./cmd/ranker collect
  go run ./cmd/ranker collect --source naver --symbols 005930,000660 --from 2023-01-01
  go run ./cmd/ranker collect --from 2020-01-01 --to 2023-12-31 --workers 4`,
	RunE: runCollect,
}

var (
	collectSource  string
	collectSymbols string
	collectFrom    string
	collectTo      string
	collectWorkers int
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectSource, "source", config.ProviderYahoo, "remote source (yahoo|naver)")
	collectCmd.Flags().StringVar(&collectSymbols, "symbols", "", "comma separated symbols (default: strategy universe)")
	collectCmd.Flags().StringVar(&collectFrom, "from", "", "start date YYYY-MM-DD (default: strategy window)")
	collectCmd.Flags().StringVar(&collectTo, "to", "", "end date YYYY-MM-DD (default: strategy window)")
	collectCmd.Flags().IntVar(&collectWorkers, "workers", 4, "concurrent fetches")
}

func runCollect(cmd *cobra.Command, args []string) error {
	if collectSource != config.ProviderYahoo && collectSource != config.ProviderNaver {
		return fmt.Errorf("--source must be yahoo or naver, got %q", collectSource)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("collect requires DATABASE_URL")
	}

	a, err := newAppWithConfig(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	symbols, from, to, err := collectTargets(a.cfg, time.Now())
	if err != nil {
		return err
	}

	// 원격 공급자 체인(브레이커/메트릭/캐시)을 그대로 사용
	srcCfg := *a.cfg
	srcCfg.MarketData.Provider = collectSource
	source, err := marketdata.New(&srcCfg, a.deps())
	if err != nil {
		return fmt.Errorf("build source: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := marketdata.NewPriceRepository(a.db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	PrintHeader("Price Collection", [][2]string{
		{"Source", collectSource},
		{"Period", fmt.Sprintf("%s ~ %s", from.Format(strategyconfig.DateLayout), to.Format(strategyconfig.DateLayout))},
		{"Symbols", fmt.Sprintf("%d", len(symbols))},
	})

	// 캐시된 원격 시세는 당일 종가 이전일 수 있음
	if n, err := marketdata.InvalidateSeries(ctx, a.deps().Invalidator(), collectSource, symbols); err != nil {
		PrintWarning(fmt.Sprintf("Cache invalidation failed: %v", err))
	} else if n > 0 {
		PrintInfo(fmt.Sprintf("Dropped %d cached %s series", n, collectSource))
	}

	began := time.Now()
	col := collector.NewCollector(source, repo, a.log)
	results := col.CollectPrices(ctx, symbols, from, to, collector.Config{Workers: collectWorkers})

	PrintTableHeader([]string{"Symbol", "Prices", "Status"}, []int{10, 8, 40})
	for _, r := range results {
		status := "ok"
		if r.Error != nil {
			status = r.Error.Error()
		}
		PrintTableRow([]string{string(r.Symbol), fmt.Sprintf("%d", r.PriceCount), status}, []int{10, 8, 40})
	}

	success, failed := collector.Summary(results)
	fmt.Println()
	if failed > 0 {
		PrintWarning(fmt.Sprintf("%d of %d symbols failed", failed, len(results)))
	}
	PrintSuccess(fmt.Sprintf("Collected %d symbols in %.2fs", success, time.Since(began).Seconds()))

	if success == 0 && failed > 0 {
		return fmt.Errorf("all %d symbols failed", failed)
	}

	snap, err := quality.NewGate(a.db.Pool, quality.DefaultConfig()).Check(ctx, symbols, from, to)
	if err != nil {
		return fmt.Errorf("coverage check: %w", err)
	}
	printCoverage(snap)
	return nil
}

// printCoverage reports which stored series can be ranked
func printCoverage(snap *quality.Snapshot) {
	fmt.Println()
	PrintInfo(fmt.Sprintf("Coverage: %d/%d symbols rankable (%.0f%%)", snap.Rankable, len(snap.Symbols), snap.Coverage*100))
	if missing := snap.Missing(); len(missing) > 0 {
		PrintWarning(fmt.Sprintf("Fewer than %d stored closes: %v", quality.MinCloses, missing))
	}
}

// collectTargets resolves symbols and dates from flags, falling back to the strategy
func collectTargets(cfg *config.Config, now time.Time) ([]contracts.Symbol, time.Time, time.Time, error) {
	sc, err := loadStrategyConfig(cfg)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}

	symbols := sc.Symbols()
	if flagged := parseSymbols(collectSymbols); len(flagged) > 0 {
		symbols = make([]contracts.Symbol, len(flagged))
		for i, s := range flagged {
			symbols[i] = contracts.Symbol(s)
		}
	}

	from, to := sc.Window(now)
	if collectFrom != "" {
		if from, err = time.Parse(strategyconfig.DateLayout, collectFrom); err != nil {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("--from must be YYYY-MM-DD")
		}
	}
	if collectTo != "" {
		if to, err = time.Parse(strategyconfig.DateLayout, collectTo); err != nil {
			return nil, time.Time{}, time.Time{}, fmt.Errorf("--to must be YYYY-MM-DD")
		}
	}
	if from.After(to) {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("--from is after --to")
	}

	return symbols, from, to, nil
}
