package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDispatch(t *testing.T) {
	before := testutil.ToFloat64(dispatchTotal.WithLabelValues("sent"))
	ObserveDispatch("sent")
	ObserveDispatch("sent")
	assert.Equal(t, before+2, testutil.ToFloat64(dispatchTotal.WithLabelValues("sent")))
}

func TestRegisterServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := Register(reg)
	require.NoError(t, err)

	ObserveResolutionFailure("confirmation", "no_email_service")
	ObserveHTTP("POST", "/api/subscribe", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "optin_resolution_failures_total")
	assert.Contains(t, string(body), `http_requests_total{method="POST",path="/api/subscribe",status="200"}`)
}
