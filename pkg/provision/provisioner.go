// Package provision implements server-side just-in-time user
// synchronization: when a bearer token validates against the mother
// application, the local user record is created or refreshed from the
// canonical profile, and the local `/api/me` endpoint returns the
// synced copy.
package provision

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
	"github.com/devsoft-reco/portal-hija/pkg/observability"
)

// Provisioner syncs mother profiles into the local database.
type Provisioner struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewProvisioner creates a provisioner over the local database.
func NewProvisioner(db *sql.DB, metrics *observability.Metrics) *Provisioner {
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}
	return &Provisioner{db: db, metrics: metrics}
}

// Sync creates or updates the local user from the mother profile and
// replaces the role/permission snapshot. Returns the synced profile.
func (p *Provisioner) Sync(ctx context.Context, profile *auth.Profile) (*auth.Profile, error) {
	var localID int64
	err := p.db.QueryRowContext(ctx, `
		SELECT id FROM users WHERE external_id = $1
	`, profile.ID).Scan(&localID)

	switch {
	case err == sql.ErrNoRows:
		localID, err = p.createUser(ctx, profile)
		if err != nil {
			return nil, err
		}
		p.metrics.ProvisionedUsersTotal.WithLabelValues("created").Inc()
	case err != nil:
		return nil, fmt.Errorf("failed to look up local user: %w", err)
	default:
		if err := p.updateUser(ctx, localID, profile); err != nil {
			return nil, err
		}
		p.metrics.ProvisionedUsersTotal.WithLabelValues("updated").Inc()
	}

	if err := p.replaceGrants(ctx, localID, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

func (p *Provisioner) createUser(ctx context.Context, profile *auth.Profile) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO users (external_id, name, email, avatar, created_at, updated_at, last_seen_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW(), NOW())
		RETURNING id
	`, profile.ID, profile.Name, profile.Email, profile.Avatar).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create local user: %w", err)
	}
	return id, nil
}

func (p *Provisioner) updateUser(ctx context.Context, localID int64, profile *auth.Profile) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE users
		SET name = $1, email = $2, avatar = $3, updated_at = NOW(), last_seen_at = NOW()
		WHERE id = $4
	`, profile.Name, profile.Email, profile.Avatar, localID)
	if err != nil {
		return fmt.Errorf("failed to update local user: %w", err)
	}
	return nil
}

// replaceGrants swaps the role/permission snapshot wholesale; the
// mother registry is canonical, the local copy is only a mirror.
func (p *Provisioner) replaceGrants(ctx context.Context, localID int64, profile *auth.Profile) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, localID); err != nil {
		return fmt.Errorf("failed to clear role snapshot: %w", err)
	}
	for _, role := range profile.Roles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		`, localID, role); err != nil {
			return fmt.Errorf("failed to record role: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, localID); err != nil {
		return fmt.Errorf("failed to clear permission snapshot: %w", err)
	}
	for _, perm := range profile.Permissions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_permissions (user_id, permission) VALUES ($1, $2)
		`, localID, perm); err != nil {
			return fmt.Errorf("failed to record permission: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit grant snapshot: %w", err)
	}
	return nil
}
