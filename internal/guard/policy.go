package guard

import (
	"fmt"
	"pharmacy/internal/access"
	"strings"

	"golang.org/x/exp/slices"
)

const (
	RouteLogin     = "login"
	RouteDashboard = "dashboard"

	PathLogin = "/login"
	PathHome  = "/"
)

// Route is the access policy of one navigable screen.
type Route struct {
	Name         string
	Path         string
	RequiresAuth bool
	// RequiredPermissions are OR-ed: one granted permission is enough.
	RequiredPermissions []access.Permission
	AdminOnly           bool
}

func DefaultRoutes() []Route {
	return []Route{
		{Name: RouteLogin, Path: PathLogin},
		{Name: RouteDashboard, Path: PathHome, RequiresAuth: true},
		{
			Name:                "atencion-usuario",
			Path:                "/atencion-usuario",
			RequiresAuth:        true,
			RequiredPermissions: []access.Permission{access.PermCreatePatients, access.PermEditPatients},
		},
		{
			Name:                "validacion",
			Path:                "/validacion",
			RequiresAuth:        true,
			RequiredPermissions: []access.Permission{access.PermValidateRecipes},
		},
		{
			Name:                "farmacia",
			Path:                "/farmacia",
			RequiresAuth:        true,
			RequiredPermissions: []access.Permission{access.PermDispensePharmacy},
		},
		{
			Name:                "cmi",
			Path:                "/cmi",
			RequiresAuth:        true,
			RequiredPermissions: []access.Permission{access.PermDispenseCMI},
		},
		{
			Name:                "prescripcion",
			Path:                "/prescripcion",
			RequiresAuth:        true,
			RequiredPermissions: []access.Permission{access.PermCreateRecipes},
		},
		{
			Name:         "recetas-completadas",
			Path:         "/recetas-completadas",
			RequiresAuth: true,
			RequiredPermissions: []access.Permission{
				access.PermValidateRecipes, access.PermDispensePharmacy, access.PermDispenseCMI,
			},
		},
		{
			Name:                "reportes",
			Path:                "/reportes",
			RequiresAuth:        true,
			RequiredPermissions: []access.Permission{access.PermValidateRecipes},
		},
		{
			Name:                "inventario",
			Path:                "/inventario",
			RequiresAuth:        true,
			RequiredPermissions: []access.Permission{access.PermDispensePharmacy},
		},
		{
			Name:         "notificaciones",
			Path:         "/notificaciones",
			RequiresAuth: true,
			RequiredPermissions: []access.Permission{
				access.PermValidateRecipes, access.PermDispensePharmacy, access.PermDispenseCMI,
			},
		},
		{Name: "auditoria", Path: "/auditoria", RequiresAuth: true, AdminOnly: true},
		{Name: "registro-movimientos", Path: "/registro-movimientos", RequiresAuth: true},
	}
}

// Policy is an immutable route table.
type Policy struct {
	routes []Route
}

// NewPolicy rejects duplicate names or paths and unknown permission keys.
func NewPolicy(routes []Route) (*Policy, error) {
	const op = "guard.NewPolicy"

	seen := make(map[string]struct{}, len(routes)*2)
	for _, r := range routes {
		if r.Name == "" || r.Path == "" {
			return nil, fmt.Errorf("%s: route needs a name and a path", op)
		}
		for _, key := range []string{"name:" + r.Name, "path:" + normalize(r.Path)} {
			if _, dup := seen[key]; dup {
				return nil, fmt.Errorf("%s: duplicate route %s", op, key)
			}
			seen[key] = struct{}{}
		}
		if err := access.Validate(r.RequiredPermissions); err != nil {
			return nil, fmt.Errorf("%s: route %s: %w", op, r.Name, err)
		}
	}
	return &Policy{routes: slices.Clone(routes)}, nil
}

// MustPolicy is NewPolicy for static tables.
func MustPolicy(routes []Route) *Policy {
	p, err := NewPolicy(routes)
	if err != nil {
		panic(err)
	}
	return p
}

// Match finds the route for path. Query strings, fragments and a trailing
// slash are ignored.
func (p *Policy) Match(path string) (Route, bool) {
	path = normalize(path)
	i := slices.IndexFunc(p.routes, func(r Route) bool { return normalize(r.Path) == path })
	if i < 0 {
		return Route{}, false
	}
	return p.routes[i], true
}

func (p *Policy) Lookup(name string) (Route, bool) {
	i := slices.IndexFunc(p.routes, func(r Route) bool { return r.Name == name })
	if i < 0 {
		return Route{}, false
	}
	return p.routes[i], true
}

func (p *Policy) Routes() []Route {
	return slices.Clone(p.routes)
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
