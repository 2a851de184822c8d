package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"supportdesk/backend/internal/metrics"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesCounters(t *testing.T) {
	metrics.MessagesAppended.WithLabelValues("text").Inc()
	metrics.SupportThreadsServed.Inc()

	srv := httptest.NewServer(metrics.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `supportdesk_messages_appended_total{kind="text"}`)
	assert.Contains(t, string(body), "supportdesk_support_threads_served_total")
}

func TestRejectedWrites_ByCode(t *testing.T) {
	before := testutil.ToFloat64(metrics.RejectedWrites.WithLabelValues("EMPTY_MESSAGE"))
	metrics.RejectedWrites.WithLabelValues("EMPTY_MESSAGE").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RejectedWrites.WithLabelValues("EMPTY_MESSAGE")))
}
