package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCountsDomainEvents(t *testing.T) {
	m := NewMetricsService()

	m.IncBallot("accepted")
	m.IncBallot("accepted")
	m.IncBallot("duplicate")
	m.IncGpaRecalc(false)
	m.IncUpload("reports", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ballots.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ballots.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gpaRecalcs.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("reports", "success")))
}

func TestMetricsServiceCacheHitRatio(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	assert.InDelta(t, 0.75, testutil.ToFloat64(m.cacheHitRatio), 0.0001)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cacheHits))
}

func TestMetricsServiceHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/clubs", http.StatusOK, 5*time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/api/v1/clubs",status="200"} 1`)
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService
	m.IncMarkWrite("upsert")
	m.RecordCacheOperation(true, time.Millisecond)
	assert.Nil(t, m.Registry())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
