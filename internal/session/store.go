// Package session holds the authenticated user, the token pair and the admin
// role simulation, and derives capabilities and the navigation menu from them.
//
// A Store is created once per process by the composition root and injected into
// the HTTP client (as its credentials), the navigation guard and the inactivity
// monitor.
package session

import (
	"context"
	"errors"
	"log/slog"
	"pharmacy/internal/access"
	"pharmacy/internal/metrics"
	"pharmacy/internal/model"
	"pharmacy/internal/provider/auth"
	"pharmacy/internal/storage"
	"sync"
	"time"
)

// ErrSuperseded is returned when a logout or a new login happened while the
// operation was waiting on the network; its result was discarded.
var ErrSuperseded = errors.New("session changed while the request was in flight")

const storageTimeout = 5 * time.Second

const (
	reasonUser          = "user"
	reasonRefreshFailed = "refresh_failed"
	reasonUnauthorized  = "unauthorized"
)

type simulation struct {
	role   access.Role
	active bool
}

type Store struct {
	provider auth.Provider
	storage  storage.Storage
	metrics  *metrics.Metrics
	log      *slog.Logger

	mu         sync.RWMutex
	user       *model.User
	tokens     model.TokenPair
	loading    int
	simulation simulation
	// epoch changes on every login and logout.
	epoch uint64
}

func New(provider auth.Provider, storage storage.Storage, m *metrics.Metrics, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		provider: provider,
		storage:  storage,
		metrics:  m,
		log:      log,
	}
}

// IsAuthenticated requires both an access token and a user record.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access != "" && s.user != nil
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) Tokens() model.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// UserRole is the real role of the user, RoleUnknown when logged out.
func (s *Store) UserRole() access.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return access.RoleUnknown
	}
	return s.user.Role
}

func (s *Store) EffectiveRole() access.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.effectiveRoleLocked()
}

func (s *Store) effectiveRoleLocked() access.Role {
	if s.user == nil {
		return access.RoleUnknown
	}
	if s.user.Role == access.RoleAdmin && s.simulation.active {
		return s.simulation.role
	}
	return s.user.Role
}

func (s *Store) IsSimulating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.simulation.active
}

// SimulatedRole returns the simulated role and whether a simulation is active.
func (s *Store) SimulatedRole() (access.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.simulation.role, s.simulation.active
}

func (s *Store) Capabilities() access.Capabilities {
	return access.For(s.EffectiveRole())
}

// HasPermission denies any name that is not a known permission.
func (s *Store) HasPermission(name string) bool {
	return s.Capabilities().Has(access.Permission(name))
}

// SetSimulatedRole lets an admin act as another role. It does nothing for
// non-admins or for roles outside the known set.
func (s *Store) SetSimulatedRole(role access.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.Role != access.RoleAdmin || !role.Known() {
		return
	}
	s.simulation = simulation{role: role, active: true}
	s.log.Info("role simulation started",
		slog.Int("user_id", s.user.ID),
		slog.String("role", role.String()))
}

func (s *Store) ClearSimulatedRole() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.Role != access.RoleAdmin {
		return
	}
	s.simulation = simulation{}
}

// AccessToken is the credential the HTTP client stamps on each request.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access
}

// HasPersistedSession reports whether durable storage holds an access token.
func (s *Store) HasPersistedSession(ctx context.Context) bool {
	pair, err := s.storage.Load(ctx)
	if err != nil {
		s.log.Warn("failed to read persisted session", slog.String("error", err.Error()))
		return false
	}
	return pair.Access != ""
}

// setUserLocked replaces the user; a non-admin user ends any simulation.
func (s *Store) setUserLocked(u *model.User) {
	s.user = u
	if u == nil || u.Role != access.RoleAdmin {
		s.simulation = simulation{}
	}
}

func (s *Store) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

func (s *Store) beginLoading() func() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
	}
}

func storageContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storageTimeout)
}
