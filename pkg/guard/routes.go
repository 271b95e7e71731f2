package guard

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Route is a static route definition with its access requirements.
// Requirements inherit down the path tree: a child without its own
// permission/role takes the nearest ancestor's, and requiresAuth on any
// ancestor protects the whole subtree.
type Route struct {
	Path         string `yaml:"path"`
	Name         string `yaml:"name,omitempty"`
	Title        string `yaml:"title,omitempty"`
	RequiresAuth bool   `yaml:"requires_auth,omitempty"`
	Permission   string `yaml:"permission,omitempty"`
	Role         string `yaml:"role,omitempty"`
}

// Access is the effective requirement set for a navigation target after
// ancestor inheritance has been applied.
type Access struct {
	RequiresAuth bool
	Permission   string
	Role         string
}

// Table holds the route definitions, ordered ancestor-first.
type Table struct {
	routes []Route
}

// NewTable builds a table from route definitions.
func NewTable(routes []Route) *Table {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Path) < len(sorted[j].Path)
	})
	return &Table{routes: sorted}
}

// LoadTable parses a YAML route table.
func LoadTable(data []byte) (*Table, error) {
	var doc struct {
		Routes []Route `yaml:"routes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}
	if len(doc.Routes) == 0 {
		return nil, fmt.Errorf("route table defines no routes")
	}
	return NewTable(doc.Routes), nil
}

// Resolve returns the effective access requirements for a path, merging
// every matching ancestor from root to leaf. Child values override
// ancestor values; requiresAuth accumulates.
func (t *Table) Resolve(path string) Access {
	var access Access
	for _, r := range t.routes {
		if !matches(r.Path, path) {
			continue
		}
		if r.RequiresAuth {
			access.RequiresAuth = true
		}
		if r.Permission != "" {
			access.Permission = r.Permission
		}
		if r.Role != "" {
			access.Role = r.Role
		}
	}
	return access
}

// Lookup finds the route whose path exactly matches, if any.
func (t *Table) Lookup(path string) (Route, bool) {
	for _, r := range t.routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// matches reports whether route path `route` is the target or one of
// its ancestors. The root route only matches exactly, otherwise it
// would be an ancestor of everything.
func matches(route, target string) bool {
	if route == target {
		return true
	}
	if route == "/" {
		return false
	}
	return strings.HasPrefix(target, route+"/")
}

// DefaultRoutes is the built-in route tree of the administrative app.
// The admin subtree requires authentication plus the app-level
// permission; individual views layer their own role or permission on
// top of that.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/", Name: "root"},
		{Path: CallbackPath, Name: "callback"},
		{Path: UnauthorizedPath, Name: "unauthorized"},
		{Path: "/admin", RequiresAuth: true, Permission: "app_gestiones"},
		{Path: "/admin/dashboard", Name: "dashboard", Title: "Gestiones"},
		{Path: "/admin/solicitudes/bandeja", Name: "bandeja-solicitudes", Title: "Bandeja de Solicitudes (Tec)", Role: "Super Admin"},
		{Path: "/admin/solicitudes/bandeja-admin", Name: "bandeja-solicitudes-admin", Title: "Bandeja de Solicitudes (Admin)", Role: "Super Admin"},
		{Path: "/admin/solicitudes/config/categorias-generales", Name: "categorias-generales", Title: "Categorías Generales", Role: "Super Admin"},
		{Path: "/admin/solicitudes/config/subcategorias", Name: "subcategorias", Title: "Subcategorías", Role: "Super Admin"},
		{Path: "/admin/solicitudes/mis-asignaciones", Name: "mis-asignaciones", Title: "Mis Asignaciones (Tec)"},
		{Path: "/admin/solicitudes/mis-asignaciones-admin", Name: "mis-asignaciones-admin", Title: "Mis Asignaciones (Admin)"},
		{Path: "/admin/solicitudes/mis-solicitudes-tec", Name: "mis-solicitudes-tec", Title: "Mis Solicitudes (Tec)", Permission: "crear_gestiones"},
		{Path: "/admin/solicitudes/mis-solicitudes-admin", Name: "mis-solicitudes-admin", Title: "Mis Solicitudes (Admin)", Permission: "crear_gestiones"},
	}
}
