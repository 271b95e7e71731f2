// Package guard is the authorization decision point of the child
// application. It evaluates every navigation against the session and
// the static route table, and returns a terminal outcome: allow the
// navigation, redirect the browser out of the app entirely, or abandon
// the navigation because the session just ended.
package guard

import (
	"context"

	"github.com/devsoft-reco/portal-hija/pkg/observability"
	"github.com/devsoft-reco/portal-hija/pkg/session"
)

// Well-known routes that stay reachable without a session: the inbound
// SSO capture and the access-denied display.
const (
	CallbackPath     = "/callback"
	UnauthorizedPath = "/unauthorized"
)

// Decision is the terminal classification of a navigation attempt.
type Decision string

const (
	// DecisionAllow lets the navigation proceed in-app.
	DecisionAllow Decision = "allow"
	// DecisionRedirectExternal leaves the application for a mother URL.
	DecisionRedirectExternal Decision = "redirect_external"
	// DecisionAbandon drops the navigation; the session teardown that
	// caused it has already happened.
	DecisionAbandon Decision = "abandon"
)

// Outcome is what a navigation attempt resolves to.
type Outcome struct {
	Decision    Decision
	RedirectURL string
}

// Guard evaluates navigations. Each evaluation is fresh: no state is
// carried between navigations beyond the session itself.
type Guard struct {
	table   *Table
	session *session.Session
	logger  *observability.Logger
	metrics *observability.Metrics
}

// New creates a navigation guard over a session and route table.
func New(table *Table, sess *session.Session, logger *observability.Logger, metrics *observability.Metrics) *Guard {
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}
	return &Guard{table: table, session: sess, logger: logger, metrics: metrics}
}

// Decide evaluates a navigation to path. The checks short-circuit on
// the first applicable outcome, in this order: always-reachable routes,
// authentication, session readiness, permission, role.
func (g *Guard) Decide(ctx context.Context, path string) Outcome {
	if path == CallbackPath || path == UnauthorizedPath {
		return g.done(Outcome{Decision: DecisionAllow})
	}

	access := g.table.Resolve(path)
	hasToken := g.session.Token() != ""

	if access.RequiresAuth || path == "/" {
		if !hasToken {
			url := g.session.Login()
			return g.done(Outcome{Decision: DecisionRedirectExternal, RedirectURL: url})
		}
	}

	if hasToken {
		if !g.session.IsReady() {
			if err := g.session.ResolveCurrentUser(ctx); err != nil {
				// The session already tore itself down; the navigation
				// just stops here.
				return g.done(Outcome{Decision: DecisionAbandon})
			}
		}

		if access.Permission != "" && !g.session.HasPermission(access.Permission) {
			g.logger.Warnf("access denied: missing permission %q, ejecting to mother catalog", access.Permission)
			return g.done(Outcome{Decision: DecisionRedirectExternal, RedirectURL: g.session.CatalogURL()})
		}

		if access.Role != "" && !g.session.HasRole(access.Role) {
			g.logger.Warnf("access denied: missing role %q, ejecting to mother catalog", access.Role)
			return g.done(Outcome{Decision: DecisionRedirectExternal, RedirectURL: g.session.CatalogURL()})
		}
	}

	return g.done(Outcome{Decision: DecisionAllow})
}

func (g *Guard) done(o Outcome) Outcome {
	g.metrics.GuardDecisionsTotal.WithLabelValues(string(o.Decision)).Inc()
	return o
}
