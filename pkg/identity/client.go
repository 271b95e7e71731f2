// Package identity is the outbound client for the mother application's
// identity endpoint. It validates a bearer token and returns the
// canonical profile; it never mutates session state.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
	"github.com/devsoft-reco/portal-hija/pkg/observability"
)

// Client calls the mother application's identity API.
type Client struct {
	baseURL   string
	transport http.RoundTripper
	timeout   time.Duration
	logger    *observability.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithTransport overrides the base HTTP transport; used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates an identity client against the mother API base URL.
func NewClient(baseURL string, logger *observability.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		transport: otelhttp.NewTransport(http.DefaultTransport),
		timeout:   15 * time.Second,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchProfile validates the token against the mother identity endpoint
// and returns the normalized profile. A rejected credential maps to
// auth.ErrUnauthorized; transport failures map to auth.ErrNetworkFailure.
// One attempt per call; the caller decides whether to retry.
func (c *Client) FetchProfile(ctx context.Context, token string) (*auth.Profile, error) {
	if token == "" {
		return nil, auth.ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build identity request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	// The bearer credential is attached by an oauth2 transport so every
	// request through this client carries it uniformly.
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   c.transport,
		},
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: identity endpoint returned %d", auth.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: identity endpoint returned %d", auth.ErrNetworkFailure, resp.StatusCode)
	}

	var profile auth.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	// Normalize the avatar reference at the boundary so downstream code
	// always sees an absolute URL.
	profile.Avatar = auth.AvatarURL(c.baseURL, profile.Avatar)

	c.logger.WithField("user_id", profile.ID).Debug("profile fetched from mother identity API")
	return &profile, nil
}
