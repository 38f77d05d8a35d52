package suite

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"pharmacy/internal/access"
	"pharmacy/internal/model"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var signingKey = []byte("test-signing-key")

type account struct {
	password string
	user     model.User
}

// Backend imitates the pharmacy REST API: JWT access/refresh tokens, the four
// auth endpoints and one protected resource at /api/pacientes/.
type Backend struct {
	*httptest.Server

	AccessTTL time.Duration

	mu       sync.Mutex
	accounts map[string]*account
	access   map[string]string
	refresh  map[string]string

	LoginCalls    atomic.Int32
	RefreshCalls  atomic.Int32
	ProfileCalls  atomic.Int32
	ResourceCalls atomic.Int32
}

func NewBackend() *Backend {
	b := &Backend{
		AccessTTL: time.Hour,
		accounts:  make(map[string]*account),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login/", b.login)
	mux.HandleFunc("POST /api/auth/refresh/", b.refreshToken)
	mux.HandleFunc("GET /api/auth/profile/", b.authenticated(b.profile))
	mux.HandleFunc("PATCH /api/auth/profile/update/", b.authenticated(b.updateProfile))
	mux.HandleFunc("GET /api/pacientes/", b.authenticated(b.patients))

	b.Server = httptest.NewServer(mux)
	return b
}

// AddUser registers an account and returns its record.
func (b *Backend) AddUser(username, password string, role access.Role) model.User {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := model.User{
		ID:        len(b.accounts) + 1,
		Username:  username,
		Email:     username + "@hospital.example",
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	b.accounts[username] = &account{password: password, user: u}
	return u
}

// ExpireAccessTokens invalidates every issued access token.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.access)
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.refresh)
}

func (b *Backend) APIURL() string {
	return b.URL + "/api"
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	b.LoginCalls.Add(1)

	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" || creds.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"non_field_errors": []string{"Debe proporcionar usuario y contraseña."},
		})
		return
	}

	b.mu.Lock()
	acc, ok := b.accounts[creds.Username]
	b.mu.Unlock()
	if !ok || acc.password != creds.Password {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"non_field_errors": []string{"Credenciales inválidas. Por favor, verifica tu usuario y contraseña."},
		})
		return
	}
	if !acc.user.IsActive {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"non_field_errors": []string{"Esta cuenta está desactivada."},
		})
		return
	}

	writeJSON(w, http.StatusOK, model.LoginResponse{
		User: acc.user,
		Tokens: model.TokenPair{
			Access:  b.issue(b.access, acc.user.Username, "access", b.AccessTTL),
			Refresh: b.issue(b.refresh, acc.user.Username, "refresh", 24*time.Hour),
		},
	})
}

func (b *Backend) refreshToken(w http.ResponseWriter, r *http.Request) {
	b.RefreshCalls.Add(1)

	var req model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Token de renovación requerido"})
		return
	}

	b.mu.Lock()
	username, ok := b.refresh[req.Refresh]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token de renovación inválido"})
		return
	}

	writeJSON(w, http.StatusOK, model.RefreshResponse{
		Access: b.issue(b.access, username, "access", b.AccessTTL),
	})
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request, acc *account) {
	b.ProfileCalls.Add(1)

	b.mu.Lock()
	user := acc.user
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request, acc *account) {
	var patch map[string]string
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
		return
	}
	if email, ok := patch["email"]; ok && !strings.Contains(email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"email": {"Introduzca una dirección de correo electrónico válida."},
		})
		return
	}

	b.mu.Lock()
	for k, v := range patch {
		switch k {
		case "email":
			acc.user.Email = v
		case "telefono":
			acc.user.Telefono = v
		case "departamento":
			acc.user.Departamento = v
		case "first_name":
			acc.user.FirstName = v
		case "last_name":
			acc.user.LastName = v
		}
	}
	acc.user.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	user := acc.user
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, user)
}

func (b *Backend) patients(w http.ResponseWriter, r *http.Request, acc *account) {
	b.ResourceCalls.Add(1)
	writeJSON(w, http.StatusOK, map[string]any{"count": 0, "results": []any{}})
}

func (b *Backend) authenticated(next func(http.ResponseWriter, *http.Request, *account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Las credenciales de autenticación no se proveyeron.",
			})
			return
		}

		b.mu.Lock()
		username, valid := b.access[raw]
		acc := b.accounts[username]
		b.mu.Unlock()

		if !valid || acc == nil || !b.verify(raw) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		next(w, r, acc)
	}
}

func (b *Backend) issue(into map[string]string, username, kind string, ttl time.Duration) string {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"token_type": kind,
		"user_id":    username,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	})
	signed, err := tok.SignedString(signingKey)
	if err != nil {
		panic(fmt.Sprintf("sign token: %v", err))
	}

	b.mu.Lock()
	into[signed] = username
	b.mu.Unlock()
	return signed
}

func (b *Backend) verify(raw string) bool {
	_, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
