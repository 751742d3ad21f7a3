package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveQuery_CountsByMode(t *testing.T) {
	// Given: fresh metrics
	m := NewMetrics(StatsConfig{})

	// When: recording two rrf queries and one bm25 query
	m.ObserveQuery("rrf", "bear attack", 5*time.Millisecond, 5, nil)
	m.ObserveQuery("rrf", "space opera", 20*time.Millisecond, 3, nil)
	m.ObserveQuery("bm25", "bear", time.Millisecond, 0, nil)

	// Then: counters are per mode
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queriesTotal.WithLabelValues("rrf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queriesTotal.WithLabelValues("bm25")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.queryErrors.WithLabelValues("rrf")))
}

func TestMetrics_ObserveQuery_Error(t *testing.T) {
	// Given: fresh metrics
	m := NewMetrics(StatsConfig{})

	// When: recording a failed query
	m.ObserveQuery("semantic", "dinosaurs", time.Millisecond, 0, errors.New("boom"))

	// Then: the error counter moves and no result count is observed
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queryErrors.WithLabelValues("semantic")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.resultsReturned))

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.ErrorCount)
	assert.Equal(t, int64(0), stats.ZeroResultCount, "failures are not zero-result queries")
}

func TestMetrics_Handler_ExposesCollectors(t *testing.T) {
	// Given: metrics with one recorded query
	m := NewMetrics(StatsConfig{})
	m.ObserveQuery("weighted", "heist", 2*time.Millisecond, 4, nil)

	// When: scraping the handler
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Then: the search collectors are in the exposition
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `hybridsearch_search_queries_total{mode="weighted"} 1`)
	assert.Contains(t, body, "hybridsearch_search_query_duration_seconds")
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_Registry_GathersSearchFamilies(t *testing.T) {
	m := NewMetrics(StatsConfig{})
	m.ObserveQuery("rrf", "q", time.Millisecond, 1, nil)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), namespace+"_") {
			names = append(names, f.GetName())
		}
	}
	assert.ElementsMatch(t, []string{
		"hybridsearch_search_queries_total",
		"hybridsearch_search_query_duration_seconds",
		"hybridsearch_search_results_returned",
	}, names, "error counter has no series until an error is recorded")
}
