package observability

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	require.NotNil(t, m)

	m.LoginsInitiated.Inc()
	m.CallbacksTotal.WithLabelValues("success").Inc()
	m.ResolutionsTotal.WithLabelValues("failure").Inc()
	m.GuardDecisionsTotal.WithLabelValues("redirect_external").Inc()
	m.ProvisionedUsersTotal.WithLabelValues("created").Inc()
	m.LogoutsTotal.Inc()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body := w.Body.String()
	assert.True(t, strings.Contains(body, "portal_sso_logins_initiated_total 1"))
	assert.True(t, strings.Contains(body, `portal_sso_callbacks_total{result="success"} 1`))
	assert.True(t, strings.Contains(body, `portal_guard_decisions_total{decision="redirect_external"} 1`))
}

func TestNewMetricsNilRegistry(t *testing.T) {
	m := NewMetrics(nil)
	require.NotNil(t, m)
	m.LoginsInitiated.Inc()
}
