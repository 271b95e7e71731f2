// Package credstore persists the bearer token and the cached profile
// snapshot across process restarts. It is pure key/value persistence: no
// validation of token contents happens here, and a corrupt or absent
// snapshot loads as nil rather than as an error.
package credstore

import (
	"context"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
)

// Keys under which credentials are persisted.
const (
	TokenKey    = "access_token"
	SnapshotKey = "user_data"
)

// Store is the credential persistence contract. The profile snapshot is
// a best-effort cache: it is never trusted without the token also
// resolving successfully upstream.
type Store interface {
	// Save persists the token and, when non-nil, the profile snapshot.
	Save(ctx context.Context, token string, snapshot *auth.Profile) error

	// Load returns the persisted token and snapshot. A missing token
	// yields ("", nil, nil); a corrupt snapshot yields a nil snapshot,
	// never an error.
	Load(ctx context.Context) (string, *auth.Profile, error)

	// Clear removes every persisted credential.
	Clear(ctx context.Context) error
}
