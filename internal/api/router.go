package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/toprank/internal/api/handlers"
	"github.com/wonny/toprank/internal/metrics"
	"github.com/wonny/toprank/pkg/logger"
)

// NewRouter wires the ranking API, the run stream and health
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(rankingHandler *handlers.RankingHandler, hub *Hub, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler(rankingHandler, hub)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ranking", rankingHandler.GetRanking).Methods(http.MethodGet)
	api.HandleFunc("/ranking/latest", rankingHandler.GetLatest).Methods(http.MethodGet)
	api.HandleFunc("/ranking/runs", rankingHandler.GetRuns).Methods(http.MethodGet)

	r.HandleFunc("/ws/ranking", hub.ServeWS).Methods(http.MethodGet)

	// recovery가 안쪽: 패닉도 500으로 기록됨
	r.Use(accessLogMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthResponse is the body of GET /health
type healthResponse struct {
	Status    string     `json:"status"`
	Service   string     `json:"service"`
	LastRunID string     `json:"last_run_id,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	WSClients int        `json:"ws_clients"`
}

func healthHandler(rankingHandler *handlers.RankingHandler, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:    "ok",
			Service:   "toprank-api",
			WSClients: hub.Clients(),
		}
		if run := rankingHandler.LastRun(); run != nil {
			resp.LastRunID = run.ID.String()
			completed := run.CompletedAt
			resp.LastRunAt = &completed
		}
		handlers.WriteJSON(w, http.StatusOK, resp)
	}
}

// statusWriter remembers the status code written by the handler
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack hands the connection to the websocket upgrader
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// routeTemplate returns the matched mux template so metrics stay low-cardinality
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// accessLogMiddleware logs each request and counts it per route and status
func accessLogMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			route := routeTemplate(r)
			metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()

			entry := log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"route":    route,
				"query":    r.URL.RawQuery,
				"status":   sw.status,
				"duration": time.Since(start),
			})
			if sw.status >= http.StatusInternalServerError {
				entry.Warn("HTTP request failed")
				return
			}
			entry.Debug("HTTP request")
		})
	}
}

// recoveryMiddleware turns handler panics into a JSON 500
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"panic": err,
						"route": routeTemplate(r),
					}).Error("Panic recovered")
					handlers.WriteError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
