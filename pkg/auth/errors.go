package auth

import "errors"

var (
	// ErrInvalidToken is returned by the SSO bootstrap when the inbound
	// capture received an empty or missing token.
	ErrInvalidToken = errors.New("auth: no token provided")

	// ErrUnauthorized is returned when identity resolution rejected the
	// bearer credential.
	ErrUnauthorized = errors.New("auth: token rejected by identity provider")

	// ErrNetworkFailure is returned when identity resolution failed to
	// reach the remote service at all.
	ErrNetworkFailure = errors.New("auth: identity provider unreachable")

	// ErrSessionInvalidated is the generic failure signal surfaced after
	// a failed profile resolution has already torn the session down. The
	// underlying cause is deliberately not distinguishable to callers.
	ErrSessionInvalidated = errors.New("auth: session invalidated")
)
