package sso

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
	"github.com/devsoft-reco/portal-hija/pkg/credstore"
	"github.com/devsoft-reco/portal-hija/pkg/observability"
	"github.com/devsoft-reco/portal-hija/pkg/session"
)

const motherAppURL = "http://localhost:5173"

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, os.Stderr)
}

func testRouter(t *testing.T, resolver session.ProfileResolver) (*mux.Router, *session.Session) {
	t.Helper()

	store, err := credstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	sess, err := session.New(context.Background(), session.Config{
		Store:        store,
		Resolver:     resolver,
		MotherAppURL: motherAppURL,
		Logger:       testLogger(),
	})
	require.NoError(t, err)

	router := mux.NewRouter()
	NewHandlers(sess, testLogger()).RegisterRoutes(router)
	return router, sess
}

func TestCallback(t *testing.T) {
	t.Run("missing token yields 400", func(t *testing.T) {
		router, _ := testRouter(t, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/callback", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("token without inline data resolves the profile", func(t *testing.T) {
		var calls atomic.Int64
		resolver := func(ctx context.Context, token string) (*auth.Profile, error) {
			calls.Add(1)
			assert.Equal(t, "abc123", token)
			return &auth.Profile{ID: 1, Permissions: []string{"app_gestiones"}}, nil
		}
		router, sess := testRouter(t, resolver)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/callback?token=abc123", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, DashboardPath, w.Header().Get("Location"))
		assert.Equal(t, int64(1), calls.Load())
		assert.True(t, sess.IsReady())
	})

	t.Run("inline user data skips the fetch", func(t *testing.T) {
		var calls atomic.Int64
		resolver := func(ctx context.Context, token string) (*auth.Profile, error) {
			calls.Add(1)
			return nil, auth.ErrNetworkFailure
		}
		router, sess := testRouter(t, resolver)

		inline := url.QueryEscape(`{"id":2,"name":"Eva","roles":["Super Admin"]}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/callback?token=abc123&user_data="+inline, nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, int64(0), calls.Load(), "no network fetch with inline user data")
		assert.True(t, sess.HasPermission("anything"), "super admin from inline data")
	})

	t.Run("malformed inline data falls back to the resolver", func(t *testing.T) {
		resolver := func(ctx context.Context, token string) (*auth.Profile, error) {
			return &auth.Profile{ID: 3, Name: "Luis"}, nil
		}
		router, sess := testRouter(t, resolver)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/callback?token=abc123&user_data=%7Bnope", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		require.NotNil(t, sess.User())
		assert.Equal(t, "Luis", sess.User().Name)
	})

	t.Run("rejected token yields 401 and a torn-down session", func(t *testing.T) {
		router, sess := testRouter(t, func(ctx context.Context, token string) (*auth.Profile, error) {
			return nil, auth.ErrUnauthorized
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/callback?token=bad", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, sess.Token())
		assert.Nil(t, sess.User())
	})
}

func TestLogout(t *testing.T) {
	router, sess := testRouter(t, func(ctx context.Context, token string) (*auth.Profile, error) {
		return &auth.Profile{ID: 1}, nil
	})
	require.NoError(t, sess.HandleIncomingToken(context.Background(), "abc123", &auth.Profile{ID: 1}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/logout", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, motherAppURL+"/logout", w.Header().Get("Location"))
	assert.Empty(t, sess.Token())
}

func TestUnauthorized(t *testing.T) {
	router, _ := testRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/unauthorized", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "access")
}
