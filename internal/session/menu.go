package session

import (
	"pharmacy/internal/access"
	"pharmacy/internal/model"
)

type menuItem struct {
	entry model.MenuEntry
	show  func(role access.Role, c access.Capabilities) bool
}

var menu = []menuItem{
	{
		entry: model.MenuEntry{Name: "atencion-usuario", Title: "Atención al Usuario", Icon: "UserGroupIcon"},
		show: func(_ access.Role, c access.Capabilities) bool {
			return c.CreatePatients || c.EditPatients
		},
	},
	{
		entry: model.MenuEntry{Name: "validacion", Title: "Validación de Recetas", Icon: "ClipboardDocumentCheckIcon"},
		show:  func(_ access.Role, c access.Capabilities) bool { return c.ValidateRecipes },
	},
	{
		entry: model.MenuEntry{Name: "farmacia", Title: "Farmacia", Icon: "BeakerIcon"},
		show:  func(_ access.Role, c access.Capabilities) bool { return c.DispensePharmacy },
	},
	{
		entry: model.MenuEntry{Name: "cmi", Title: "Centro de Mezclas", Icon: "FlaskConicalIcon"},
		show:  func(_ access.Role, c access.Capabilities) bool { return c.DispenseCMI },
	},
	{
		entry: model.MenuEntry{Name: "prescripcion", Title: "Prescripción", Icon: "DocumentTextIcon"},
		show:  func(_ access.Role, c access.Capabilities) bool { return c.CreateRecipes },
	},
	{
		entry: model.MenuEntry{Name: "recetas-completadas", Title: "Recetas Completadas", Icon: "CheckCircleIcon"},
		show: func(_ access.Role, c access.Capabilities) bool {
			return c.ValidateRecipes || c.DispensePharmacy || c.DispenseCMI
		},
	},
	{
		entry: model.MenuEntry{Name: "reportes", Title: "Reportes y Estadísticas", Icon: "ChartBarIcon"},
		show: func(r access.Role, c access.Capabilities) bool {
			return r == access.RoleAdmin || c.ValidateRecipes
		},
	},
	{
		entry: model.MenuEntry{Name: "registro-movimientos", Title: "Registro de Movimientos", Icon: "DocumentTextIcon"},
		show: func(r access.Role, c access.Capabilities) bool {
			return r == access.RoleAdmin || c.ValidateRecipes
		},
	},
	{
		entry: model.MenuEntry{Name: "inventario", Title: "Gestión de Inventario", Icon: "CubeIcon"},
		show: func(r access.Role, c access.Capabilities) bool {
			return r == access.RoleAdmin || c.DispensePharmacy
		},
	},
	{
		entry: model.MenuEntry{Name: "auditoria", Title: "Auditoría Avanzada", Icon: "ShieldCheckIcon"},
		show:  func(r access.Role, _ access.Capabilities) bool { return r == access.RoleAdmin },
	},
	{
		entry: model.MenuEntry{Name: "notificaciones", Title: "Centro de Notificaciones", Icon: "BellIcon"},
		show: func(r access.Role, c access.Capabilities) bool {
			return r == access.RoleAdmin || c.ValidateRecipes || c.DispensePharmacy || c.DispenseCMI
		},
	},
}

// AvailableRoutes lists the menu entries the effective role may see, in menu
// order. It grants nothing: the guard enforces access.
func (s *Store) AvailableRoutes() []model.MenuEntry {
	role := s.EffectiveRole()
	caps := access.For(role)

	routes := make([]model.MenuEntry, 0, len(menu))
	for _, item := range menu {
		if item.show(role, caps) {
			routes = append(routes, item.entry)
		}
	}
	return routes
}
