// Package access maps pharmacy roles to the capabilities they unlock.
//
// The role set is closed: any role string the backend sends that is not listed
// here decodes to RoleUnknown, which carries no capabilities.
package access

import (
	"fmt"
	"strings"
)

type Role uint8

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleAtencionUsuario
	RoleFarmacia
	RoleCMI
	RoleMedico

	roleCount
)

var roleNames = [roleCount]string{
	RoleUnknown:         "",
	RoleAdmin:           "ADMIN",
	RoleAtencionUsuario: "ATENCION_USUARIO",
	RoleFarmacia:        "FARMACIA",
	RoleCMI:             "CMI",
	RoleMedico:          "MEDICO",
}

// Roles lists every known role, RoleUnknown excluded.
func Roles() []Role {
	return []Role{RoleAdmin, RoleAtencionUsuario, RoleFarmacia, RoleCMI, RoleMedico}
}

// ParseRole never fails: unrecognised values yield RoleUnknown.
func ParseRole(s string) Role {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return RoleUnknown
	}
	for r := RoleAdmin; r < roleCount; r++ {
		if roleNames[r] == s {
			return r
		}
	}
	return RoleUnknown
}

func (r Role) String() string {
	if r >= roleCount {
		return ""
	}
	return roleNames[r]
}

func (r Role) Known() bool {
	return r > RoleUnknown && r < roleCount
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}

type Permission string

const (
	PermCreatePatients   Permission = "create_patients"
	PermEditPatients     Permission = "edit_patients"
	PermValidateRecipes  Permission = "validate_recipes"
	PermDispensePharmacy Permission = "dispense_pharmacy"
	PermDispenseCMI      Permission = "dispense_cmi"
	PermCreateRecipes    Permission = "create_recipes"
)

// Permissions lists every permission key routes may declare.
func Permissions() []Permission {
	return []Permission{
		PermCreatePatients,
		PermEditPatients,
		PermValidateRecipes,
		PermDispensePharmacy,
		PermDispenseCMI,
		PermCreateRecipes,
	}
}

// Capabilities is the derived set of feature flags for an effective role.
type Capabilities struct {
	CreatePatients   bool
	EditPatients     bool
	ValidateRecipes  bool
	DispensePharmacy bool
	DispenseCMI      bool
	CreateRecipes    bool
}

// Has reports whether p is granted. Unknown keys deny.
func (c Capabilities) Has(p Permission) bool {
	switch p {
	case PermCreatePatients:
		return c.CreatePatients
	case PermEditPatients:
		return c.EditPatients
	case PermValidateRecipes:
		return c.ValidateRecipes
	case PermDispensePharmacy:
		return c.DispensePharmacy
	case PermDispenseCMI:
		return c.DispenseCMI
	case PermCreateRecipes:
		return c.CreateRecipes
	default:
		return false
	}
}

// Any reports whether at least one of ps is granted.
func (c Capabilities) Any(ps ...Permission) bool {
	for _, p := range ps {
		if c.Has(p) {
			return true
		}
	}
	return false
}

var capabilityTable = [...]Capabilities{
	RoleUnknown: {},
	RoleAdmin: {
		CreatePatients:   true,
		EditPatients:     true,
		ValidateRecipes:  true,
		DispensePharmacy: true,
		DispenseCMI:      true,
		CreateRecipes:    true,
	},
	RoleAtencionUsuario: {
		CreatePatients:  true,
		EditPatients:    true,
		ValidateRecipes: true,
		CreateRecipes:   true,
	},
	RoleFarmacia: {DispensePharmacy: true},
	RoleCMI:      {DispenseCMI: true},
	RoleMedico:   {CreateRecipes: true},
}

// Compile-time guard: adding a role without a table row breaks the build.
var _ = [1]struct{}{}[len(capabilityTable)-int(roleCount)]

// For returns the capabilities of role r.
func For(r Role) Capabilities {
	if r >= roleCount {
		return Capabilities{}
	}
	return capabilityTable[r]
}

// Validate reports keys that are not known permissions.
func Validate(ps []Permission) error {
	for _, p := range ps {
		if !known(p) {
			return fmt.Errorf("unknown permission %q", p)
		}
	}
	return nil
}

func known(p Permission) bool {
	for _, k := range Permissions() {
		if k == p {
			return true
		}
	}
	return false
}
