package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
)

func testProfile() *auth.Profile {
	return &auth.Profile{
		ID:          42,
		Name:        "Ana Torres",
		Roles:       []string{"Tech"},
		Permissions: []string{"app_gestiones"},
	}
}

// storeUnderTest runs the shared contract tests against any Store.
func storeUnderTest(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("empty store loads absent credentials", func(t *testing.T) {
		token, snapshot, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, token)
		assert.Nil(t, snapshot)
	})

	t.Run("round-trips token and snapshot", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "abc123", testProfile()))

		token, snapshot, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "abc123", token)
		require.NotNil(t, snapshot)
		assert.Equal(t, int64(42), snapshot.ID)
		assert.Equal(t, []string{"Tech"}, snapshot.Roles)
	})

	t.Run("token-only save keeps prior snapshot", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "abc123", testProfile()))
		require.NoError(t, store.Save(ctx, "def456", nil))

		token, snapshot, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "def456", token)
		assert.NotNil(t, snapshot)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "abc123", testProfile()))
		require.NoError(t, store.Clear(ctx))

		token, snapshot, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, token)
		assert.Nil(t, snapshot)
	})
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	storeUnderTest(t, store)
}

func TestFileStoreCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"abc123","user_data":{"roles":12}}`), 0o600))

	token, snapshot, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
	assert.Nil(t, snapshot, "corrupt snapshot must degrade to absent, not error")
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json at all`), 0o600))

	token, snapshot, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, snapshot)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "portal")
	defer store.Close()

	storeUnderTest(t, store)
}

func TestRedisStoreCorruptSnapshot(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "portal")
	defer store.Close()

	require.NoError(t, mr.Set("portal:access_token", "abc123"))
	require.NoError(t, mr.Set("portal:user_data", "{{{"))

	token, snapshot, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
	assert.Nil(t, snapshot)
}
