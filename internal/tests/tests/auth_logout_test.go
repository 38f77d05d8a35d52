package tests

import (
	"pharmacy/internal/access"
	"pharmacy/internal/httpclient"
	"pharmacy/internal/model"
	"pharmacy/internal/storage"
	"pharmacy/internal/tests/suite"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogout_ClearsEverything(t *testing.T) {
	s := suite.New(t)
	ctx := s.Context()
	s.Backend.AddUser("admin", "Password123", access.RoleAdmin)

	require.True(t, s.App.Session.Login(ctx, model.Credentials{Username: "admin", Password: "Password123"}).Success)
	s.App.Session.SetSimulatedRole(access.RoleCMI)

	s.App.Session.Logout()
	s.App.Session.Logout()

	assert.False(t, s.App.Session.IsAuthenticated())
	assert.False(t, s.App.Session.IsSimulating())
	assert.Nil(t, s.App.Session.User())
	assert.False(t, s.Storage.Has(storage.KeyAccessToken))
	assert.False(t, s.Storage.Has(storage.KeyRefreshToken))

	err := s.App.Client.Get(ctx, "/pacientes/", nil)
	require.ErrorIs(t, err, httpclient.ErrUnauthorized)
	assert.Zero(t, s.Backend.RefreshCalls.Load())
}

func TestLogout_SurvivesRestart(t *testing.T) {
	s := suite.New(t)
	ctx := s.Context()
	s.Backend.AddUser("cmi.perez", "Password123", access.RoleCMI)

	require.True(t, s.App.Session.Login(ctx, model.Credentials{Username: "cmi.perez", Password: "Password123"}).Success)
	s.App.Session.Logout()

	restarted := s.Restart()
	require.NoError(t, restarted.App.Start(ctx))
	assert.False(t, restarted.App.Session.IsAuthenticated())
	assert.Zero(t, s.Backend.ProfileCalls.Load())
}
