package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "success", Result(nil))
	assert.Equal(t, "error", Result(errors.New("boom")))
}

func TestSymbolsSkippedCounter(t *testing.T) {
	before := testutil.ToFloat64(SymbolsSkipped.WithLabelValues(ReasonNoData))
	SymbolsSkipped.WithLabelValues(ReasonNoData).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SymbolsSkipped.WithLabelValues(ReasonNoData)))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RankingRuns.WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "toprank_ranking_runs_total")
}
