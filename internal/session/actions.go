package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"pharmacy/internal/httpclient"
	"pharmacy/internal/model"
	"pharmacy/internal/provider"
	"pharmacy/internal/storage"
)

const (
	msgLoginFailed        = "Error de autenticación"
	msgMissingCredentials = "Debe proporcionar usuario y contraseña."
	msgUpdateFailed       = "Error al actualizar perfil"
)

// Login never returns an error: failures are reported in the result and leave
// the current state untouched.
func (s *Store) Login(ctx context.Context, creds model.Credentials) model.LoginResult {
	const op = "session.Login"

	done := s.beginLoading()
	defer done()

	resp, err := s.provider.Login(ctx, creds)
	if err != nil {
		s.metrics.Login(false)
		s.log.Warn("login failed",
			slog.String("op", op),
			slog.String("username", creds.Username),
			slog.String("error", err.Error()))
		return model.LoginResult{Error: loginMessage(err)}
	}

	user := resp.User
	s.mu.Lock()
	s.epoch++
	s.tokens = resp.Tokens
	s.user = &user
	s.simulation = simulation{}
	s.mu.Unlock()

	sctx, cancel := storageContext()
	defer cancel()
	if err := storage.Save(sctx, s.storage, resp.Tokens); err != nil {
		s.log.Error("failed to persist tokens",
			slog.String("op", op),
			slog.String("error", err.Error()))
	}

	s.metrics.Login(true)
	s.log.Info("user logged in",
		slog.Int("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("role", user.Role.String()))

	out := user
	return model.LoginResult{Success: true, User: &out}
}

// Logout clears memory and durable storage. It is safe to call repeatedly.
func (s *Store) Logout() {
	s.logout(reasonUser)
}

func (s *Store) logout(reason string) {
	s.mu.Lock()
	active := s.user != nil || !s.tokens.Empty()
	s.epoch++
	s.tokens = model.TokenPair{}
	s.setUserLocked(nil)
	s.mu.Unlock()

	ctx, cancel := storageContext()
	defer cancel()
	if err := s.storage.Clear(ctx); err != nil {
		s.log.Error("failed to clear persisted tokens", slog.String("error", err.Error()))
	}

	if active {
		s.metrics.Logout(reason)
		s.log.Info("session closed", slog.String("reason", reason))
	}
}

// RefreshToken exchanges the refresh token for a new access token. Without a
// refresh token it returns false and changes nothing; any other failure logs
// the session out.
func (s *Store) RefreshToken(ctx context.Context) bool {
	_, err := s.Refresh(ctx)
	return err == nil
}

// Refresh is RefreshToken for the HTTP client: it returns the new access token.
func (s *Store) Refresh(ctx context.Context) (string, error) {
	const op = "session.Refresh"

	s.mu.RLock()
	refresh, epoch := s.tokens.Refresh, s.epoch
	s.mu.RUnlock()

	if refresh == "" {
		s.metrics.Refresh("unavailable")
		return "", fmt.Errorf("%s: %w", op, provider.ErrNoRefreshToken)
	}

	access, err := s.provider.Refresh(ctx, refresh)
	if err != nil {
		s.metrics.Refresh("failure")
		s.log.Warn("token refresh failed",
			slog.String("op", op),
			slog.Int("status", httpclient.StatusCode(err)),
			slog.String("error", err.Error()))
		if !canceled(err) && s.currentEpoch() == epoch {
			s.logout(reasonRefreshFailed)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return "", fmt.Errorf("%s: %w", op, ErrSuperseded)
	}
	s.tokens.Access = access
	s.mu.Unlock()

	sctx, cancel := storageContext()
	defer cancel()
	if err := s.storage.SaveAccess(sctx, access); err != nil {
		s.log.Error("failed to persist access token",
			slog.String("op", op),
			slog.String("error", err.Error()))
	}

	s.metrics.Refresh("success")
	return access, nil
}

// FetchProfile replaces the user with the backend's profile. A 401 logs the
// session out before the error is returned.
func (s *Store) FetchProfile(ctx context.Context) (*model.User, error) {
	const op = "session.FetchProfile"

	done := s.beginLoading()
	defer done()

	epoch := s.currentEpoch()
	user, err := s.provider.Profile(ctx)
	if err != nil {
		if httpclient.IsUnauthorized(err) && s.currentEpoch() == epoch {
			s.logout(reasonUnauthorized)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, ErrSuperseded)
	}
	s.setUserLocked(user)
	s.mu.Unlock()

	out := *user
	return &out, nil
}

// UpdateProfile sends a partial user record. Field errors from the backend are
// rendered into the result's Error.
func (s *Store) UpdateProfile(ctx context.Context, patch map[string]any) model.ProfileResult {
	const op = "session.UpdateProfile"

	epoch := s.currentEpoch()
	user, err := s.provider.UpdateProfile(ctx, patch)
	if err != nil {
		s.log.Warn("profile update failed",
			slog.String("op", op),
			slog.Int("status", httpclient.StatusCode(err)),
			slog.String("error", err.Error()))
		return model.ProfileResult{Error: updateMessage(err)}
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return model.ProfileResult{Error: httpclient.Message(httpclient.KindUnauthorized, "")}
	}
	s.setUserLocked(user)
	s.mu.Unlock()

	out := *user
	return model.ProfileResult{Success: true, User: &out}
}

// Initialize restores a persisted session. It fetches the profile with the
// stored access token and, if that fails, refreshes once and fetches again.
func (s *Store) Initialize(ctx context.Context) error {
	const op = "session.Initialize"

	pair, err := s.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if pair.Access == "" {
		return nil
	}

	s.mu.Lock()
	s.tokens = pair
	s.mu.Unlock()

	_, err = s.FetchProfile(ctx)
	if err == nil {
		return nil
	}
	s.log.Debug("profile fetch with stored token failed",
		slog.String("op", op),
		slog.String("error", err.Error()))

	if _, err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.FetchProfile(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// loginMessage prefers the backend's detail, then its first non-field error.
func loginMessage(err error) string {
	if errors.Is(err, provider.ErrMissingCredentials) {
		return msgMissingCredentials
	}
	var apiErr *httpclient.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Body) == 0 {
		return msgLoginFailed
	}
	var body struct {
		Detail         string   `json:"detail"`
		NonFieldErrors []string `json:"non_field_errors"`
	}
	if json.Unmarshal(apiErr.Body, &body) != nil {
		return msgLoginFailed
	}
	switch {
	case body.Detail != "":
		return body.Detail
	case len(body.NonFieldErrors) > 0 && body.NonFieldErrors[0] != "":
		return body.NonFieldErrors[0]
	}
	return msgLoginFailed
}

func updateMessage(err error) string {
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return msgUpdateFailed
}
