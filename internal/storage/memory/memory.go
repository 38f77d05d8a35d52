package memory

import (
	"context"
	"pharmacy/internal/model"
	"pharmacy/internal/storage"
	"sync"
)

// Memory keeps tokens for the lifetime of the process only.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func New() *Memory {
	return &Memory{data: make(map[string]string)}
}

// NewWith returns a store pre-seeded with pair, as if written by an earlier run.
func NewWith(pair model.TokenPair) *Memory {
	m := New()
	if pair.Access != "" {
		m.data[storage.KeyAccessToken] = pair.Access
	}
	if pair.Refresh != "" {
		m.data[storage.KeyRefreshToken] = pair.Refresh
	}
	return m
}

func (m *Memory) Load(ctx context.Context) (model.TokenPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return model.TokenPair{
		Access:  m.data[storage.KeyAccessToken],
		Refresh: m.data[storage.KeyRefreshToken],
	}, nil
}

func (m *Memory) SaveAccess(ctx context.Context, access string) error {
	m.set(storage.KeyAccessToken, access)
	return nil
}

func (m *Memory) SaveRefresh(ctx context.Context, refresh string) error {
	m.set(storage.KeyRefreshToken, refresh)
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, storage.KeyAccessToken)
	delete(m.data, storage.KeyRefreshToken)
	return nil
}

// Has reports whether key is currently stored.
func (m *Memory) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.data[key]
	return ok
}

func (m *Memory) set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if value == "" {
		delete(m.data, key)
		return
	}
	m.data[key] = value
}
