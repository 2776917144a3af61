package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ScheduleFallbacks.WithLabelValues("missing_interval").Inc()
	m.ScheduleFallbacks.WithLabelValues("missing_interval").Inc()
	m.DosesGenerated.Add(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScheduleFallbacks.WithLabelValues("missing_interval")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DosesGenerated))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `adherence_schedule_fallbacks_total{reason="missing_interval"} 2`)
}
