package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy/internal/access"
	"pharmacy/internal/httpclient"
	"pharmacy/internal/model"
	"pharmacy/internal/provider"
)

func newProvider(t *testing.T, h http.HandlerFunc) Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := httpclient.New(httpclient.Options{
		BaseURL:  srv.URL,
		Log:      log,
		Notifier: httpclient.NotifierFunc(func(httpclient.Kind, string) {}),
	})
	return NewAuthProvider(client, log)
}

func TestLogin_HappyPath(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var in model.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, model.Credentials{Username: "qfb.lopez", Password: "Secreta123"}, in)

		_, _ = w.Write([]byte(`{
			"user": {"id": 3, "username": "qfb.lopez", "role": "FARMACIA", "is_active": true},
			"tokens": {"access": "acc", "refresh": "ref"}
		}`))
	})

	resp, err := p.Login(context.Background(), model.Credentials{Username: "qfb.lopez", Password: "Secreta123"})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.User.ID)
	assert.Equal(t, access.RoleFarmacia, resp.User.Role)
	assert.Equal(t, model.TokenPair{Access: "acc", Refresh: "ref"}, resp.Tokens)
}

func TestLogin_Rejected(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"non_field_errors":["Credenciales inválidas."]}`))
	})

	_, err := p.Login(context.Background(), model.Credentials{Username: "x", Password: "y"})
	require.ErrorIs(t, err, provider.ErrInvalidCredentials)

	var apiErr *httpclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Credenciales inválidas.", apiErr.Detail)
}

func TestLogin_MissingFieldsSkipsNetwork(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := p.Login(context.Background(), model.Credentials{Username: "x"})
	require.ErrorIs(t, err, provider.ErrInvalidCredentials)
	require.ErrorIs(t, err, provider.ErrMissingCredentials)
}

func TestLogin_ResponseWithoutTokens(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":1},"tokens":{}}`))
	})
	_, err := p.Login(context.Background(), model.Credentials{Username: "x", Password: "y"})
	require.ErrorIs(t, err, provider.ErrEmptyResponse)
}

func TestRefresh(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/refresh/", r.URL.Path)
		var in model.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in.Refresh != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Token de renovación inválido"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access":"new-access"}`))
	})

	got, err := p.Refresh(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "new-access", got)

	_, err = p.Refresh(context.Background(), "bad")
	require.ErrorIs(t, err, httpclient.ErrUnauthorized)

	_, err = p.Refresh(context.Background(), "")
	require.ErrorIs(t, err, provider.ErrNoRefreshToken)
}

func TestProfileAndUpdate(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/auth/profile/":
			_, _ = w.Write([]byte(`{"id":9,"username":"dr.ruiz","role":"MEDICO","departamento":"Urgencias"}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/auth/profile/update/":
			var patch map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			assert.Equal(t, "5550001111", patch["telefono"])
			_, _ = w.Write([]byte(`{"id":9,"username":"dr.ruiz","role":"MEDICO","telefono":"5550001111"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	u, err := p.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, access.RoleMedico, u.Role)
	assert.Equal(t, "Urgencias", u.Departamento)

	u, err = p.UpdateProfile(context.Background(), map[string]any{"telefono": "5550001111"})
	require.NoError(t, err)
	assert.Equal(t, "5550001111", u.Telefono)
}
