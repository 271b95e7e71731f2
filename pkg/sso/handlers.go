// Package sso is the inbound half of the handshake with the mother
// application: the callback route that captures a token (and optional
// inline profile) arriving via URL parameters, and the logout route
// that hands the browser back to the mother for global teardown.
package sso

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
	"github.com/devsoft-reco/portal-hija/pkg/guard"
	"github.com/devsoft-reco/portal-hija/pkg/httputil"
	"github.com/devsoft-reco/portal-hija/pkg/observability"
	"github.com/devsoft-reco/portal-hija/pkg/session"
)

// DashboardPath is where a successful capture lands.
const DashboardPath = "/admin/dashboard"

// Handlers serves the SSO bootstrap routes.
type Handlers struct {
	session *session.Session
	logger  *observability.Logger
}

// NewHandlers creates the SSO handlers over a session.
func NewHandlers(sess *session.Session, logger *observability.Logger) *Handlers {
	return &Handlers{session: sess, logger: logger}
}

// RegisterRoutes registers the SSO routes.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(guard.CallbackPath, h.handleCallback).Methods("GET")
	router.HandleFunc(guard.UnauthorizedPath, h.handleUnauthorized).Methods("GET")
	router.HandleFunc("/logout", h.handleLogout).Methods("GET")
}

// handleCallback captures the token handed over by the mother
// application. Inline user data rides along as a JSON query parameter;
// when present and well-formed it spares the profile fetch.
func (h *Handlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	var inline *auth.Profile
	if raw := r.URL.Query().Get("user_data"); raw != "" {
		var p auth.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			// Malformed inline data is not fatal: drop it and let the
			// resolver fetch the profile instead.
			h.logger.WithError(err).Warn("discarding malformed inline user data from callback")
		} else {
			inline = &p
		}
	}

	if err := h.session.HandleIncomingToken(r.Context(), token, inline); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			httputil.WriteErrorMessage(w, http.StatusBadRequest, "no token provided")
			return
		}
		h.logger.WithError(err).Warn("SSO capture failed")
		httputil.WriteUnauthorized(w, "token validation failed")
		return
	}

	http.Redirect(w, r, DashboardPath, http.StatusFound)
}

// handleLogout ends the local session and sends the browser to the
// mother application so the global session dies with it.
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	url := h.session.Logout(r.Context())
	http.Redirect(w, r, url, http.StatusFound)
}

// handleUnauthorized is the access-denied display route. It must stay
// reachable without a session.
func (h *Handlers) handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusForbidden, map[string]string{
		"message": "You do not have access to this application.",
	})
}
