// Package localapi is the outbound client for the child application's
// own backend. Every request automatically carries the current bearer
// token when one is held; 401 responses are logged distinctly as a
// diagnostic but never force a logout from here — session teardown is
// the session layer's decision.
package localapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
	"github.com/devsoft-reco/portal-hija/pkg/observability"
)

// TokenSource yields the current bearer token, or "" when no session is
// held. Wired to the credential store or the session at construction.
type TokenSource func(ctx context.Context) string

// Client is a request builder for the child backend API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenSource TokenSource
	logger      *observability.Logger
	cache       *responseCache
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client; used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithListCache enables the TTL response cache for GET list endpoints.
func WithListCache(maxEntries int, ttl time.Duration) Option {
	return func(c *Client) { c.cache = newResponseCache(maxEntries, ttl) }
}

// NewClient creates a local API client rooted at the backend base URL.
func NewClient(baseURL string, tokenSource TokenSource, logger *observability.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
		tokenSource: tokenSource,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET against the backend and returns the raw body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// GetJSON performs a GET and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, path string, v interface{}) error {
	body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// GetCachedJSON is GetJSON with a TTL cache in front, for list views
// that tolerate briefly stale data. Falls back to a plain GetJSON when
// the cache is not enabled.
func (c *Client) GetCachedJSON(ctx context.Context, path string, v interface{}) error {
	if c.cache == nil {
		return c.GetJSON(ctx, path, v)
	}

	if body, ok := c.cache.get(path); ok {
		return json.Unmarshal(body, v)
	}

	body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	c.cache.add(path, body)
	return json.Unmarshal(body, v)
}

// InvalidateCache drops a cached list response after a mutation.
func (c *Client) InvalidateCache(path string) {
	if c.cache != nil {
		c.cache.remove(path)
	}
}

// Me resolves the current user through the local just-in-time sync
// endpoint. The backend validates the bearer token against the mother
// application and returns the locally synced profile.
func (c *Client) Me(ctx context.Context) (*auth.Profile, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/me", nil)
	if err != nil {
		return nil, err
	}

	var profile auth.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	if token := c.tokenSource(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		c.logger.Warnf("no token held, %s %s goes out unauthenticated", method, path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Diagnostic only: the token went out but the backend rejected
		// it. The session layer decides whether this ends the session.
		c.logger.WithField("path", path).Warn("local API rejected the bearer token with 401")
		return nil, fmt.Errorf("%w: local API returned 401", auth.ErrUnauthorized)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("local API %s returned %d: %s", path, resp.StatusCode, data)
	}

	return data, nil
}
