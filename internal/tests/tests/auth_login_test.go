package tests

import (
	"pharmacy/internal/access"
	"pharmacy/internal/model"
	"pharmacy/internal/storage"
	"pharmacy/internal/tests/suite"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_HappyPath(t *testing.T) {
	s := suite.New(t)
	ctx := s.Context()

	const (
		testUsername = "qfb.lopez"
		testPassword = "Password123"
	)
	s.Backend.AddUser(testUsername, testPassword, access.RoleFarmacia)

	res := s.App.Session.Login(ctx, model.Credentials{Username: testUsername, Password: testPassword})

	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.User)
	assert.Equal(t, testUsername, res.User.Username)
	assert.Equal(t, access.RoleFarmacia, res.User.Role)

	assert.True(t, s.App.Session.IsAuthenticated())
	assert.True(t, s.Storage.Has(storage.KeyAccessToken))
	assert.True(t, s.Storage.Has(storage.KeyRefreshToken))

	pair, err := s.Storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.App.Session.Tokens(), pair)

	var out map[string]any
	require.NoError(t, s.App.Client.Get(ctx, "/pacientes/", &out))
	assert.EqualValues(t, 0, out["count"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := suite.New(t)
	ctx := s.Context()
	s.Backend.AddUser("dr.ruiz", "Password123", access.RoleMedico)

	res := s.App.Session.Login(ctx, model.Credentials{Username: "dr.ruiz", Password: "wrong"})

	assert.False(t, res.Success)
	assert.Equal(t, "Credenciales inválidas. Por favor, verifica tu usuario y contraseña.", res.Error)
	assert.False(t, s.App.Session.IsAuthenticated())
	assert.False(t, s.Storage.Has(storage.KeyAccessToken))
	assert.Zero(t, s.Backend.RefreshCalls.Load(), "a rejected login never refreshes")
	assert.Zero(t, s.LoginRequired.Load())
}

func TestLogin_MissingFields(t *testing.T) {
	s := suite.New(t)

	res := s.App.Session.Login(s.Context(), model.Credentials{Username: "dr.ruiz"})

	assert.False(t, res.Success)
	assert.Equal(t, "Debe proporcionar usuario y contraseña.", res.Error)
	assert.Zero(t, s.Backend.LoginCalls.Load())
}

func TestLogin_BackendDown(t *testing.T) {
	s := suite.New(t)
	s.Backend.Close()

	res := s.App.Session.Login(s.Context(), model.Credentials{Username: "x", Password: "y"})

	assert.False(t, res.Success)
	assert.Equal(t, "Error de autenticación", res.Error)
	assert.False(t, s.App.Session.IsAuthenticated())
}
