package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainCounters(t *testing.T) {
	m := NewMetrics()

	m.MessagesSentCounter.Inc()
	m.MessagesSentCounter.Inc()
	m.ReconnectAttemptsCounter.Inc()
	m.SessionsActiveGauge.Set(3)
	m.WebhookDeliveriesCounter.WithLabelValues("success").Inc()
	m.WebhookDeliveriesCounter.WithLabelValues("failure").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.MessagesSentCounter))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReconnectAttemptsCounter))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.SessionsActiveGauge))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WebhookDeliveriesCounter.WithLabelValues("failure")))
}

func TestHTTPMiddlewareCountsRequests(t *testing.T) {
	m := NewMetrics()

	handler := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(m.TotalHTTPRequestsCounter))
}

func TestMetricsEndpointServes(t *testing.T) {
	m := NewMetrics()
	m.MessagesSentCounter.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway_messages_sent_total")
}
