package auth

import "encoding/json"

// SuperAdminRole is the standing override role: a user holding it passes
// every permission check regardless of the explicit permission list.
const SuperAdminRole = "Super Admin"

// Profile is the normalized snapshot of an authenticated user as issued
// by the mother application's identity registry.
type Profile struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// profileWire is the raw shape accepted from either backend. The mother
// API emits `permissions`; the local backend has been observed emitting
// `permisos` for the same field.
type profileWire struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Avatar      string   `json:"avatar"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Permisos    []string `json:"permisos"`
}

// UnmarshalJSON decodes a profile from either wire variant.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var w profileWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	perms := w.Permissions
	if perms == nil {
		perms = w.Permisos
	}

	*p = Profile{
		ID:          w.ID,
		Name:        w.Name,
		Email:       w.Email,
		Avatar:      w.Avatar,
		Roles:       w.Roles,
		Permissions: perms,
	}
	return nil
}

// HasRole checks whether the profile holds a specific role.
func (p *Profile) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission checks whether the profile holds a specific permission.
// The Super Admin role short-circuits to true for any permission.
func (p *Profile) HasPermission(permission string) bool {
	if p == nil {
		return false
	}
	if p.HasRole(SuperAdminRole) {
		return true
	}
	for _, perm := range p.Permissions {
		if perm == permission {
			return true
		}
	}
	return false
}
