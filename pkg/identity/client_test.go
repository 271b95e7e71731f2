package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
	"github.com/devsoft-reco/portal-hija/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, os.Stderr)
}

func TestFetchProfile_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user", r.URL.Path)
		assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 5,
			"name": "Ana Torres",
			"email": "ana@example.com",
			"avatar": "storage/users/ana.jpg",
			"roles": ["Tech"],
			"permissions": ["app_gestiones"]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	profile, err := client.FetchProfile(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, int64(5), profile.ID)
	assert.Equal(t, []string{"Tech"}, profile.Roles)
	assert.Equal(t, srv.URL+"/storage/users/ana.jpg", profile.Avatar, "relative avatar path must be absolutized")
}

func TestFetchProfile_NormalizesPermisos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":1,"name":"Luis","roles":["Admin"],"permisos":["crear_gestiones"]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	profile, err := client.FetchProfile(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{"crear_gestiones"}, profile.Permissions)
}

func TestFetchProfile_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	_, err := client.FetchProfile(context.Background(), "expired")
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestFetchProfile_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	_, err := client.FetchProfile(context.Background(), "abc123")
	assert.ErrorIs(t, err, auth.ErrNetworkFailure)
}

func TestFetchProfile_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed on purpose

	client := NewClient(srv.URL, testLogger())
	_, err := client.FetchProfile(context.Background(), "abc123")
	assert.ErrorIs(t, err, auth.ErrNetworkFailure)
}

func TestFetchProfile_EmptyToken(t *testing.T) {
	client := NewClient("http://localhost:0", testLogger())
	_, err := client.FetchProfile(context.Background(), "")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
