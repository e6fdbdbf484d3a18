// Package metrics exposes Prometheus collectors for ranking runs and market data fetches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Skip reasons for SymbolsSkipped
const (
	ReasonNoData    = "no_data"
	ReasonUndefined = "undefined_metrics"
)

var (
	RankingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toprank_ranking_runs_total",
			Help: "Ranking invocations by result",
		},
		[]string{"result"},
	)
	SymbolsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toprank_symbols_skipped_total",
			Help: "Symbols excluded from ranking by reason",
		},
		[]string{"reason"},
	)
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toprank_provider_requests_total",
			Help: "Historical data requests by provider and result",
		},
		[]string{"provider", "result"},
	)
	ProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toprank_provider_request_duration_seconds",
			Help:    "Historical data request latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toprank_http_requests_total",
			Help: "API requests by route template and status code",
		},
		[]string{"route", "code"},
	)
	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "toprank_ws_clients",
			Help: "Connected ranking websocket clients",
		},
	)
)

func init() {
	prometheus.MustRegister(RankingRuns, SymbolsSkipped, ProviderRequests, ProviderDuration, HTTPRequests, WSClients)
}

// Result converts an error into a result label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Handler returns the /metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a metrics server in the background on addr
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
