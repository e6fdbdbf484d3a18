package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/toprank/internal/api"
	"github.com/wonny/toprank/internal/api/handlers"
	"github.com/wonny/toprank/internal/metrics"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 + 랭킹 스케줄러 시작",
	Long: `REST API 서버와 랭킹 스케줄러를 함께 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 스케줄에 따라 전략 랭킹 실행 (RANKING_SCHEDULE)
- 랭킹 결과를 웹소켓으로 브로드캐스트
- Prometheus 메트릭 노출 (METRICS_ENABLED)

Endpoints:
  GET  /health               - Health check
  GET  /api/ranking          - 즉시 랭킹 (symbols, from, to, top)
  GET  /api/ranking/latest   - 마지막 스케줄 실행 결과
  GET  /api/ranking/runs     - 기록된 실행 이력
  GET  /ws/ranking           - 랭킹 결과 스트림

Example:
  go run ./cmd/ranker serve
  go run ./cmd/ranker serve --port 8080 --run-on-start=false`,
	RunE: runServe,
}

var (
	servePort       string
	serveRunOnStart bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default: PORT)")
	serveCmd.Flags().BoolVar(&serveRunOnStart, "run-on-start", true, "rank once immediately at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== toprank API Server ===")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	a, err := newAppWithConfig(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	strat, err := a.strategy(nil)
	if err != nil {
		return err
	}

	hub := api.NewHub(log)
	strat.OnRun(hub.Broadcast)

	sched, err := newScheduler(a, strat)
	if err != nil {
		return err
	}

	rankingHandler := handlers.NewRankingHandler(a.ranker, strat, a.recorder, cfg.Ranking.NumStocks, log)
	router := api.NewRouter(rankingHandler, hub, log)
	server := api.New(":"+cfg.Port, router, hub, log)

	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		metricsServer = metrics.Serve(":" + cfg.MetricsPort)
		log.WithField("port", cfg.MetricsPort).Info("Metrics server started")
	}

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	sched.Start()
	if serveRunOnStart {
		if err := sched.RunJob(rankingJobName); err != nil {
			log.WithError(err).Warn("Failed to trigger initial ranking")
		}
	}

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/ranking")
	fmt.Println("  GET  /api/ranking/latest")
	fmt.Println("  GET  /api/ranking/runs")
	fmt.Println("  GET  /ws/ranking")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	sched.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		_ = metricsServer.Shutdown(ctx)
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
