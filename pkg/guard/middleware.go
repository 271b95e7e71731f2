package guard

import (
	"net/http"

	"github.com/devsoft-reco/portal-hija/pkg/contextkeys"
	"github.com/devsoft-reco/portal-hija/pkg/httputil"
)

// Middleware enforces guard outcomes on HTTP navigations. Allowed
// requests continue with the resolved profile in context; external
// redirects become 302s; abandoned navigations surface as 401.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outcome := g.Decide(r.Context(), r.URL.Path)

		switch outcome.Decision {
		case DecisionRedirectExternal:
			http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)
		case DecisionAbandon:
			httputil.WriteUnauthorized(w, "session is no longer valid")
		default:
			ctx := contextkeys.WithProfile(r.Context(), g.session.User())
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	})
}
