package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"pharmacy/internal/httpclient"
	"pharmacy/internal/model"
	"pharmacy/internal/provider"
)

const (
	pathLogin         = "/auth/login/"
	pathRefresh       = "/auth/refresh/"
	pathProfile       = "/auth/profile/"
	pathProfileUpdate = "/auth/profile/update/"
)

// Provider is the backend's authentication API.
type Provider interface {
	Login(ctx context.Context, creds model.Credentials) (*model.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (access string, err error)
	Profile(ctx context.Context) (*model.User, error)
	UpdateProfile(ctx context.Context, patch map[string]any) (*model.User, error)
}

// Doer is the part of httpclient.Client the provider uses.
type Doer interface {
	Do(ctx context.Context, r httpclient.Request) error
}

type authProvider struct {
	client Doer
	log    *slog.Logger
}

func NewAuthProvider(client Doer, log *slog.Logger) Provider {
	return &authProvider{client: client, log: log}
}

// Login posts credentials without any bearer token; a rejected login never refreshes.
func (a *authProvider) Login(ctx context.Context, creds model.Credentials) (*model.LoginResponse, error) {
	const op = "auth.Login"

	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("%s: %w: %w", op, provider.ErrInvalidCredentials, provider.ErrMissingCredentials)
	}

	a.log.Debug("calling auth API",
		slog.String("op", op),
		slog.String("username", creds.Username))

	var out model.LoginResponse
	err := a.client.Do(ctx, httpclient.Request{
		Method:    http.MethodPost,
		Path:      pathLogin,
		Body:      creds,
		Out:       &out,
		Anonymous: true,
	})
	if err != nil {
		if errors.Is(err, httpclient.ErrBadRequest) || errors.Is(err, httpclient.ErrUnauthorized) {
			return nil, fmt.Errorf("%s: %w: %w", op, provider.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if out.Tokens.Access == "" || out.Tokens.Refresh == "" {
		a.log.Error("login response without tokens", slog.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, provider.ErrEmptyResponse)
	}

	return &out, nil
}

func (a *authProvider) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "auth.Refresh"

	if refreshToken == "" {
		return "", fmt.Errorf("%s: %w", op, provider.ErrNoRefreshToken)
	}

	var out model.RefreshResponse
	err := a.client.Do(ctx, httpclient.Request{
		Method:    http.MethodPost,
		Path:      pathRefresh,
		Body:      model.RefreshRequest{Refresh: refreshToken},
		Out:       &out,
		Anonymous: true,
		Quiet:     true,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if out.Access == "" {
		return "", fmt.Errorf("%s: %w", op, provider.ErrEmptyResponse)
	}
	return out.Access, nil
}

func (a *authProvider) Profile(ctx context.Context) (*model.User, error) {
	const op = "auth.Profile"

	var user model.User
	if err := a.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: pathProfile, Out: &user}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

func (a *authProvider) UpdateProfile(ctx context.Context, patch map[string]any) (*model.User, error) {
	const op = "auth.UpdateProfile"

	var user model.User
	err := a.client.Do(ctx, httpclient.Request{
		Method: http.MethodPatch,
		Path:   pathProfileUpdate,
		Body:   patch,
		Out:    &user,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}
