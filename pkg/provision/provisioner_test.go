package provision

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
)

func TestSyncCreatesNewUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	profile := &auth.Profile{
		ID:          42,
		Name:        "Ana Torres",
		Email:       "ana@example.com",
		Roles:       []string{"Tech"},
		Permissions: []string{"app_gestiones"},
	}

	mock.ExpectQuery("SELECT id FROM users").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(int64(42), "Ana Torres", "ana@example.com", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_roles").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs(int64(7), "Tech").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM user_permissions").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO user_permissions").
		WithArgs(int64(7), "app_gestiones").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	p := NewProvisioner(db, nil)
	synced, err := p.Sync(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, profile, synced)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncUpdatesExistingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	profile := &auth.Profile{
		ID:    42,
		Name:  "Ana Torres",
		Email: "ana@example.com",
		Roles: []string{"Super Admin"},
	}

	mock.ExpectQuery("SELECT id FROM users").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("UPDATE users").
		WithArgs("Ana Torres", "ana@example.com", "", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_roles").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs(int64(7), "Super Admin").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM user_permissions").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	p := NewProvisioner(db, nil)
	_, err = p.Sync(context.Background(), profile)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncRollsBackOnGrantFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	profile := &auth.Profile{ID: 42, Roles: []string{"Tech"}}

	mock.ExpectQuery("SELECT id FROM users").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_roles").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	p := NewProvisioner(db, nil)
	_, err = p.Sync(context.Background(), profile)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
