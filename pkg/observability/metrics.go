package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the SSO session protocol.
type Metrics struct {
	// SSO handshake metrics
	LoginsInitiated    prometheus.Counter
	CallbacksTotal     *prometheus.CounterVec
	ResolutionsTotal   *prometheus.CounterVec
	LogoutsTotal       prometheus.Counter

	// Guard metrics
	GuardDecisionsTotal *prometheus.CounterVec

	// Provisioning metrics
	ProvisionedUsersTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		LoginsInitiated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_sso_logins_initiated_total",
				Help: "Redirects to the mother application login portal",
			},
		),
		CallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_sso_callbacks_total",
				Help: "Inbound SSO token captures by result",
			},
			[]string{"result"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_profile_resolutions_total",
				Help: "Profile resolutions against the identity backend by result",
			},
			[]string{"result"},
		),
		LogoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_logouts_total",
				Help: "Full session teardowns",
			},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_guard_decisions_total",
				Help: "Navigation guard outcomes by decision",
			},
			[]string{"decision"},
		),
		ProvisionedUsersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_provisioned_users_total",
				Help: "JIT user provisioning operations by kind",
			},
			[]string{"kind"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.LoginsInitiated,
		m.CallbacksTotal,
		m.ResolutionsTotal,
		m.LogoutsTotal,
		m.GuardDecisionsTotal,
		m.ProvisionedUsersTotal,
	)

	return m
}

// Handler returns the HTTP handler exposing the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
