package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	env          string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ranker",
	Short: "toprank - Sharpe ratio 기반 종목 선정",
	Long: `toprank Unified CLI

과거 종가로 연환산 수익률/변동성/Sharpe ratio를 계산하고
상위 N개 종목을 선정합니다.

Usage:
  go run ./cmd/ranker [command]

Examples:
  go run ./cmd/ranker select
  go run ./cmd/ranker select --symbols AAPL,MSFT,JNJ --from 2020-01-01 --to 2023-12-31 --top 2
  go run ./cmd/ranker collect --from 2023-01-01
  go run ./cmd/ranker serve
  go run ./cmd/ranker scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML file (default: STRATEGY_FILE or built-in)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
