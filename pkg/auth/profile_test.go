package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileUnmarshal(t *testing.T) {
	t.Run("decodes canonical permissions field", func(t *testing.T) {
		var p Profile
		err := json.Unmarshal([]byte(`{
			"id": 7,
			"name": "Ana Torres",
			"email": "ana@example.com",
			"avatar": "users/avatars/ana.jpg",
			"roles": ["Tech"],
			"permissions": ["solicitudes.ver_bandeja"]
		}`), &p)
		require.NoError(t, err)
		assert.Equal(t, int64(7), p.ID)
		assert.Equal(t, []string{"Tech"}, p.Roles)
		assert.Equal(t, []string{"solicitudes.ver_bandeja"}, p.Permissions)
	})

	t.Run("decodes legacy permisos field", func(t *testing.T) {
		var p Profile
		err := json.Unmarshal([]byte(`{"id":3,"name":"Luis","roles":["Admin"],"permisos":["crear_gestiones"]}`), &p)
		require.NoError(t, err)
		assert.Equal(t, []string{"crear_gestiones"}, p.Permissions)
	})

	t.Run("canonical field wins when both are present", func(t *testing.T) {
		var p Profile
		err := json.Unmarshal([]byte(`{"permissions":["a"],"permisos":["b"]}`), &p)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, p.Permissions)
	})
}

func TestProfileHasPermission(t *testing.T) {
	t.Run("nil profile has no permissions", func(t *testing.T) {
		var p *Profile
		assert.False(t, p.HasPermission("anything"))
	})

	t.Run("explicit permission grants access", func(t *testing.T) {
		p := &Profile{Permissions: []string{"app_gestiones", "crear_gestiones"}}
		assert.True(t, p.HasPermission("crear_gestiones"))
		assert.False(t, p.HasPermission("borrar_gestiones"))
	})

	t.Run("super admin overrides every permission check", func(t *testing.T) {
		p := &Profile{Roles: []string{SuperAdminRole}}
		assert.True(t, p.HasPermission("anything"))
		assert.True(t, p.HasPermission("solicitudes.crear"))
	})
}

func TestProfileHasRole(t *testing.T) {
	t.Run("nil profile has no roles", func(t *testing.T) {
		var p *Profile
		assert.False(t, p.HasRole("Admin"))
	})

	t.Run("matches exact role name", func(t *testing.T) {
		p := &Profile{Roles: []string{"Tech", "Admin"}}
		assert.True(t, p.HasRole("Tech"))
		assert.False(t, p.HasRole(SuperAdminRole))
	})

	t.Run("super admin does not grant other roles", func(t *testing.T) {
		p := &Profile{Roles: []string{SuperAdminRole}}
		assert.False(t, p.HasRole("Tech"))
	})
}

func TestAvatarURL(t *testing.T) {
	base := "http://localhost:8000/"

	tests := []struct {
		name string
		path string
		want string
	}{
		{"empty path", "", ""},
		{"absolute url passes through", "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"data uri passes through", "data:image/png;base64,xyz", "data:image/png;base64,xyz"},
		{"relative path joined to base", "users/avatars/x.jpg", "http://localhost:8000/users/avatars/x.jpg"},
		{"leading slash cleaned", "/storage/users/x.jpg", "http://localhost:8000/storage/users/x.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AvatarURL(base, tt.path))
		})
	}
}
