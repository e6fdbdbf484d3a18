package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/toprank/internal/marketdata"
	"github.com/wonny/toprank/internal/strategyconfig"
	"github.com/wonny/toprank/pkg/database"
)

var dbTimeout time.Duration

// dbCmd checks the price store that backs the postgres provider
var dbCmd = &cobra.Command{
	Use:     "db",
	Aliases: []string{"test-db"},
	Short:   "가격 저장소(PostgreSQL) 점검",
	Long: `PostgreSQL 연결과 data.daily_prices 상태를 점검합니다.

- Health Check 및 Connection Pool 통계
- data.daily_prices 스키마 생성/확인
- 저장된 종목 수, 행 수, 기간, 소스별 행 수

Example:
  go run ./cmd/ranker db
  go run ./cmd/ranker db --env production --timeout 30s`,
	RunE: runDBCheck,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.Flags().DurationVar(&dbTimeout, "timeout", 10*time.Second, "점검 타임아웃")
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	PrintHeader("Price Store Check", [][2]string{
		{"Env", cfg.Env},
		{"Database", maskPassword(cfg.Database.URL)},
	})

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), dbTimeout)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	PrintSuccess(fmt.Sprintf("Healthy (%v)", status.ResponseTime.Round(time.Microsecond)))
	fmt.Printf("Pool: %d/%d acquired, %d idle, %d total acquires\n",
		status.Stats.AcquiredConns, status.Stats.MaxConns, status.Stats.IdleConns, status.Stats.AcquireCount)

	repo := marketdata.NewPriceRepository(db.Pool)
	if !status.PriceTable {
		PrintInfo("data.daily_prices missing, creating")
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	inv, err := repo.Inventory(ctx)
	if err != nil {
		return err
	}
	printInventory(inv)
	return nil
}

func printInventory(inv marketdata.StoreInventory) {
	PrintSeparator()
	if inv.Rows == 0 {
		PrintWarning("data.daily_prices is empty; run `ranker collect` first")
		return
	}

	fmt.Printf("Symbols: %d\n", inv.Symbols)
	fmt.Printf("Rows:    %d\n", inv.Rows)
	fmt.Printf("Range:   %s ~ %s\n", inv.First.Format(strategyconfig.DateLayout), inv.Last.Format(strategyconfig.DateLayout))

	sources := make([]string, 0, len(inv.BySource))
	for s := range inv.BySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	PrintTableHeader([]string{"Source", "Rows"}, []int{12, 10})
	for _, s := range sources {
		name := s
		if name == "" {
			name = "-"
		}
		PrintTableRow([]string{name, fmt.Sprintf("%d", inv.BySource[s])}, []int{12, 10})
	}
}
