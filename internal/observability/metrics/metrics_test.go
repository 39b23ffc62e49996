package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTPRequestCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(httpErrors.WithLabelValues("/api/v1/actions/:name", "POST"))
	ObserveHTTPRequest("/api/v1/actions/:name", "POST", 502, 30*time.Millisecond)
	ObserveHTTPRequest("/api/v1/actions/:name", "POST", 200, 30*time.Millisecond)

	after := testutil.ToFloat64(httpErrors.WithLabelValues("/api/v1/actions/:name", "POST"))
	assert.Equal(t, before+1, after)
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequests.WithLabelValues("/api/v1/actions/:name", "POST", "200")), 1.0)
}

func TestHandlerExposesActionMetrics(t *testing.T) {
	ObserveAction("GET_WALLET_INFO", "succeeded", time.Second)
	ObserveAgentInit("pool")

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `binkd_action_executions_total{action="GET_WALLET_INFO",status="succeeded"}`)
	assert.Contains(t, text, `binkd_agent_initializations_total{source="pool"}`)
	assert.Contains(t, text, "binkd_action_duration_seconds_bucket")
}
