package access

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"ADMIN":            RoleAdmin,
		"admin":            RoleAdmin,
		" FARMACIA ":       RoleFarmacia,
		"ATENCION_USUARIO": RoleAtencionUsuario,
		"CMI":              RoleCMI,
		"MEDICO":           RoleMedico,
		"ENFERMERIA":       RoleUnknown,
		"":                 RoleUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseRole(in), "input %q", in)
	}
}

func TestRole_JSON(t *testing.T) {
	var out struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"CMI"}`), &out))
	assert.Equal(t, RoleCMI, out.Role)

	require.NoError(t, json.Unmarshal([]byte(`{"role":"SUPERVISOR"}`), &out))
	assert.Equal(t, RoleUnknown, out.Role)
	assert.False(t, out.Role.Known())

	b, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{RoleAtencionUsuario})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"ATENCION_USUARIO"}`, string(b))
}

func TestFor_CapabilityTable(t *testing.T) {
	tests := []struct {
		role Role
		want Capabilities
	}{
		{RoleAdmin, Capabilities{true, true, true, true, true, true}},
		{RoleAtencionUsuario, Capabilities{CreatePatients: true, EditPatients: true, ValidateRecipes: true, CreateRecipes: true}},
		{RoleFarmacia, Capabilities{DispensePharmacy: true}},
		{RoleCMI, Capabilities{DispenseCMI: true}},
		{RoleMedico, Capabilities{CreateRecipes: true}},
		{RoleUnknown, Capabilities{}},
		{Role(200), Capabilities{}},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, For(tt.role))
		})
	}
}

func TestCapabilities_CreatePatientsOnlyForIntakeAndAdmin(t *testing.T) {
	for _, r := range Roles() {
		want := r == RoleAtencionUsuario || r == RoleAdmin
		assert.Equal(t, want, For(r).Has(PermCreatePatients), "role %s", r)
	}
}

func TestCapabilities_UnknownPermissionDenies(t *testing.T) {
	for _, r := range append(Roles(), RoleUnknown) {
		assert.False(t, For(r).Has("unknown_key"))
		assert.False(t, For(r).Has(""))
	}
}

func TestCapabilities_Any(t *testing.T) {
	c := For(RoleFarmacia)
	assert.True(t, c.Any(PermValidateRecipes, PermDispensePharmacy, PermDispenseCMI))
	assert.False(t, c.Any(PermValidateRecipes))
	assert.False(t, c.Any())
}

func TestEveryRoleHasARow(t *testing.T) {
	require.Len(t, capabilityTable, int(roleCount))
	for _, r := range Roles() {
		assert.True(t, r.Known())
		assert.NotEmpty(t, r.String())
		assert.NotEqual(t, Capabilities{}, For(r), "role %s grants nothing", r)
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Permissions()))
	require.Error(t, Validate([]Permission{PermDispenseCMI, "dispense_cmi "}))
}
