package provision

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
	"github.com/devsoft-reco/portal-hija/pkg/httputil"
	"github.com/devsoft-reco/portal-hija/pkg/observability"
)

// ProfileFetcher validates a bearer token against the mother
// application and returns the canonical profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, token string) (*auth.Profile, error)
}

// Syncer mirrors a mother profile into local storage. Satisfied by
// *Provisioner; nil-able for deployments without a local database.
type Syncer interface {
	Sync(ctx context.Context, profile *auth.Profile) (*auth.Profile, error)
}

// MeHandler serves GET /api/me: validate the caller's bearer token
// against the mother, sync the user locally, and return the profile.
type MeHandler struct {
	fetcher ProfileFetcher
	syncer  Syncer
	logger  *observability.Logger
}

// NewMeHandler creates the handler. syncer may be nil, in which case
// the profile is returned without touching the local database.
func NewMeHandler(fetcher ProfileFetcher, syncer Syncer, logger *observability.Logger) *MeHandler {
	return &MeHandler{fetcher: fetcher, syncer: syncer, logger: logger}
}

// RegisterRoutes registers the identity endpoint.
func (h *MeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/me", h.handleMe).Methods("GET")
}

func (h *MeHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httputil.WriteUnauthorized(w, "missing bearer token")
		return
	}

	profile, err := h.fetcher.FetchProfile(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
			httputil.WriteUnauthorized(w, "token rejected")
		default:
			h.logger.WithError(err).Error("failed to validate token against mother application")
			httputil.WriteErrorMessage(w, http.StatusBadGateway, "identity provider unavailable")
		}
		return
	}

	if h.syncer != nil {
		synced, err := h.syncer.Sync(r.Context(), profile)
		if err != nil {
			// The mother already vouched for the user; a sync failure
			// must not block them.
			h.logger.WithError(err).WithField("user_id", profile.ID).Error("failed to sync user locally")
		} else {
			profile = synced
		}
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
