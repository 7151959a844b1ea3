package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHTTP(http.MethodGet, "/api/v1/harvest/list", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTP(http.MethodGet, "/api/v1/harvest/list", http.StatusOK, 30*time.Millisecond)
	m.LinePush(true)
	m.LinePush(false)
	m.LinePush(false)
	m.RequestSubmitted("harvest")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/harvest/list", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linePushes.WithLabelValues(ResultSent)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.linePushes.WithLabelValues(ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("harvest")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
