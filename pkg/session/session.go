// Package session holds the authoritative in-memory session of the
// child application: the bearer token, the resolved user profile, and
// the readiness/SSO-in-progress flags the navigation guard relies on.
//
// There is one Session per process. It orchestrates the credential
// store and the profile resolver; redirects that would leave the page
// in a browser runtime are modeled as returned URLs so callers (and
// tests) can observe the terminal navigation instead of simulating it.
package session

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
	"github.com/devsoft-reco/portal-hija/pkg/credstore"
	"github.com/devsoft-reco/portal-hija/pkg/observability"
)

// ProfileResolver resolves the canonical profile for a bearer token.
// The canonical wiring is the local JIT-sync endpoint (localapi.Me);
// the mother identity client satisfies the same contract.
type ProfileResolver func(ctx context.Context, token string) (*auth.Profile, error)

// Config wires a Session's collaborators.
type Config struct {
	Store        credstore.Store
	Resolver     ProfileResolver
	MotherAppURL string
	Logger       *observability.Logger
	Metrics      *observability.Metrics
}

// Session is the process-wide authenticated session.
type Session struct {
	mu            sync.Mutex
	token         string
	user          *auth.Profile
	isReady       bool
	processingSSO bool

	store   credstore.Store
	resolve ProfileResolver
	appURL  string
	logger  *observability.Logger
	metrics *observability.Metrics
	group   singleflight.Group
}

// New creates the session, hydrating the token (and the possibly stale
// profile snapshot) from the credential store. The snapshot is not
// trusted: isReady stays false until the token has been revalidated.
func New(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetrics(nil)
	}

	token, snapshot, err := cfg.Store.Load(ctx)
	if err != nil {
		return nil, err
	}

	s := &Session{
		token:   token,
		store:   cfg.Store,
		resolve: cfg.Resolver,
		appURL:  cfg.MotherAppURL,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if token != "" {
		s.user = snapshot
	}
	return s, nil
}

// Login starts the SSO flow: it marks SSO as in progress and returns
// the mother portal URL the browser must be sent to. Terminal for this
// navigation; control does not come back until the callback.
func (s *Session) Login() string {
	s.mu.Lock()
	s.processingSSO = true
	s.mu.Unlock()

	s.metrics.LoginsInitiated.Inc()
	s.logger.Info("no session held, redirecting to mother portal for SSO")
	return s.appURL
}

// HandleIncomingToken is the inbound half of the handshake: it commits
// a token arriving from the mother application, adopting inline profile
// data when provided or resolving the profile otherwise. Errors from
// resolution are re-raised to the caller after cleanup.
func (s *Session) HandleIncomingToken(ctx context.Context, token string, inline *auth.Profile) error {
	if token == "" {
		return auth.ErrInvalidToken
	}

	s.mu.Lock()
	s.processingSSO = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.processingSSO = false
		s.mu.Unlock()
	}()

	// Persist before validating: the token must survive a reload that
	// happens mid-handshake.
	if err := s.store.Save(ctx, token, inline); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	if inline != nil {
		// Inline profile skips the network round trip entirely.
		s.user = inline
		s.isReady = true
		s.mu.Unlock()
		s.metrics.CallbacksTotal.WithLabelValues("inline").Inc()
		return nil
	}
	s.mu.Unlock()

	if err := s.ResolveCurrentUser(ctx); err != nil {
		s.metrics.CallbacksTotal.WithLabelValues("failure").Inc()
		return err
	}
	s.metrics.CallbacksTotal.WithLabelValues("success").Inc()
	return nil
}

// ResolveCurrentUser validates the held token and loads the profile.
// With no token it settles isReady and does nothing else. On failure
// the whole session is torn down (token and user both dropped) and only
// a generic failure is surfaced. isReady is true on every exit path.
// Concurrent callers share a single in-flight resolution.
func (s *Session) ResolveCurrentUser(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	if token == "" {
		s.isReady = true
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_, err, _ := s.group.Do("resolve-current-user", func() (interface{}, error) {
		return nil, s.resolveOnce(ctx, token)
	})
	return err
}

func (s *Session) resolveOnce(ctx context.Context, token string) error {
	defer func() {
		s.mu.Lock()
		s.isReady = true
		s.mu.Unlock()
	}()

	profile, err := s.resolve(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNetworkFailure):
			s.logger.WithError(err).Warn("identity backend unreachable, invalidating session")
			s.metrics.ResolutionsTotal.WithLabelValues("network_failure").Inc()
		case errors.Is(err, auth.ErrUnauthorized):
			s.logger.WithError(err).Warn("token rejected, invalidating session")
			s.metrics.ResolutionsTotal.WithLabelValues("unauthorized").Inc()
		default:
			s.logger.WithError(err).Warn("profile resolution failed, invalidating session")
			s.metrics.ResolutionsTotal.WithLabelValues("failure").Inc()
		}

		s.logoutLocal(ctx)
		return auth.ErrSessionInvalidated
	}

	s.mu.Lock()
	s.user = profile
	s.mu.Unlock()

	// Best-effort snapshot backup; a write failure does not fail the
	// resolution.
	if err := s.store.Save(ctx, token, profile); err != nil {
		s.logger.WithError(err).Warn("failed to back up profile snapshot")
	}

	s.metrics.ResolutionsTotal.WithLabelValues("success").Inc()
	return nil
}

// Logout tears the session down and returns the mother application's
// logout URL, where the global session is terminated. Terminal.
func (s *Session) Logout(ctx context.Context) string {
	s.logoutLocal(ctx)
	s.metrics.LogoutsTotal.Inc()
	return s.appURL + "/logout"
}

// CatalogURL is the mother application's app catalog, the ejection
// target for authenticated-but-not-entitled users.
func (s *Session) CatalogURL() string {
	return s.appURL + "/apps"
}

func (s *Session) logoutLocal(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.isReady = false
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		s.logger.WithError(err).Warn("failed to clear credential store")
	}
}

// Token returns the current bearer token, or "" without a session.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the current profile, or nil while unresolved.
func (s *Session) User() *auth.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// IsReady reports whether the first profile resolution has completed,
// successfully or not. The guard must not evaluate permissions earlier.
func (s *Session) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isReady
}

// ProcessingSSO reports whether an inbound token capture is in flight.
func (s *Session) ProcessingSSO() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processingSSO
}

// HasPermission checks the resolved profile for a permission, honoring
// the Super Admin override. False while no profile is held.
func (s *Session) HasPermission(permission string) bool {
	return s.User().HasPermission(permission)
}

// HasRole checks the resolved profile for a role. False while no
// profile is held.
func (s *Session) HasRole(role string) bool {
	return s.User().HasRole(role)
}
