package tests

import (
	"pharmacy/internal/access"
	"pharmacy/internal/httpclient"
	"pharmacy/internal/model"
	"pharmacy/internal/storage"
	"pharmacy/internal/storage/memory"
	"pharmacy/internal/tests/suite"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func login(t *testing.T, s *suite.Suite, role access.Role) model.User {
	t.Helper()

	username := "user." + role.String()
	u := s.Backend.AddUser(username, "Password123", role)
	res := s.App.Session.Login(s.Context(), model.Credentials{Username: username, Password: "Password123"})
	require.True(t, res.Success, res.Error)
	return u
}

func TestRefresh_On401RetriesOnce(t *testing.T) {
	s := suite.New(t)
	ctx := s.Context()
	login(t, s, access.RoleFarmacia)
	before := s.App.Session.Tokens()

	s.Backend.ExpireAccessTokens()

	require.NoError(t, s.App.Client.Get(ctx, "/pacientes/", nil))

	after := s.App.Session.Tokens()
	assert.NotEqual(t, before.Access, after.Access)
	assert.Equal(t, before.Refresh, after.Refresh)
	assert.EqualValues(t, 1, s.Backend.RefreshCalls.Load())
	assert.EqualValues(t, 1, s.Backend.ResourceCalls.Load())

	pair, err := s.Storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, after.Access, pair.Access)
	assert.Empty(t, s.Notifier.Sent())
}

func TestRefresh_ConcurrentRequestsShareOneRefresh(t *testing.T) {
	s := suite.New(t)
	ctx := s.Context()
	login(t, s, access.RoleCMI)
	s.Backend.ExpireAccessTokens()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.App.Client.Get(ctx, "/pacientes/", nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, s.Backend.RefreshCalls.Load())
	assert.True(t, s.App.Session.IsAuthenticated())
}

func TestRefresh_RevokedRefreshTokenEndsSession(t *testing.T) {
	s := suite.New(t)
	ctx := s.Context()
	login(t, s, access.RoleMedico)

	s.Backend.ExpireAccessTokens()
	s.Backend.RevokeRefreshTokens()

	err := s.App.Client.Get(ctx, "/pacientes/", nil)
	require.ErrorIs(t, err, httpclient.ErrSessionExpired)
	require.ErrorIs(t, err, httpclient.ErrUnauthorized)

	assert.False(t, s.App.Session.IsAuthenticated())
	assert.False(t, s.Storage.Has(storage.KeyRefreshToken))
	assert.EqualValues(t, 1, s.LoginRequired.Load())

	sent := s.Notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, httpclient.KindUnauthorized, sent[0].Kind)
	assert.Equal(t, "Sesión expirada, inicia sesión nuevamente", sent[0].Message)
}

func TestRefreshToken_NoRefreshTokenNoNetwork(t *testing.T) {
	s := suite.New(t)

	assert.False(t, s.App.Session.RefreshToken(s.Context()))
	assert.Zero(t, s.Backend.RefreshCalls.Load())
}

func TestRefresh_ProactiveBeforeExpiry(t *testing.T) {
	backend := suite.NewBackend()
	t.Cleanup(backend.Close)
	backend.AccessTTL = 5 * time.Second

	s := suite.NewWithBackend(t, backend, memory.New(), suite.WithRefreshSkew(30*time.Second))
	ctx := s.Context()
	login(t, s, access.RoleFarmacia)
	before := s.App.Session.AccessToken()

	require.NoError(t, s.App.Client.Get(ctx, "/pacientes/", nil))

	assert.EqualValues(t, 1, s.Backend.RefreshCalls.Load())
	assert.EqualValues(t, 1, s.Backend.ResourceCalls.Load())
	assert.NotEqual(t, before, s.App.Session.AccessToken())
}
