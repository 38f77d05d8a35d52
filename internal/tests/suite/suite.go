package suite

import (
	"context"
	"io"
	"log/slog"
	"os"
	"pharmacy/internal/app"
	"pharmacy/internal/config"
	"pharmacy/internal/storage/memory"
	mock "pharmacy/internal/tests/mock"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Suite runs the whole session stack against a fake backend.
type Suite struct {
	*testing.T

	Backend *Backend
	App     *app.App
	Config  config.Config

	Storage       *memory.Memory
	Notifier      *mock.MockNotifier
	LoginRequired atomic.Int32
}

// New creates a suite with an empty in-memory token store.
func New(t *testing.T) *Suite {
	t.Helper()

	backend := NewBackend()
	t.Cleanup(backend.Close)

	return NewWithBackend(t, backend, memory.New())
}

// Option adjusts the configuration before the application is built.
type Option func(*config.Config)

func WithRefreshSkew(d time.Duration) Option {
	return func(cfg *config.Config) { cfg.API.RefreshSkew = d }
}

// NewWithBackend builds a fresh application over an existing backend and
// storage, the way a restarted process would see them.
func NewWithBackend(t *testing.T, backend *Backend, st *memory.Memory, opts ...Option) *Suite {
	t.Helper()

	cfg := config.Config{
		API: config.APIConfig{
			BaseURL: backend.APIURL(),
			Timeout: 5 * time.Second,
		},
		Storage: config.StorageConfig{Driver: config.DriverMemory, Namespace: "pharmacy-test"},
		Inactivity: config.InactivityConfig{
			Timeout: 200 * time.Millisecond,
			Warning: 100 * time.Millisecond,
		},
		Env: "local",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Suite{
		T:        t,
		Backend:  backend,
		Config:   cfg,
		Storage:  st,
		Notifier: mock.NewMockNotifier(),
	}

	application, err := app.New(context.Background(), cfg, testLogger(), app.Options{
		Storage:         st,
		Notifier:        s.Notifier,
		OnLoginRequired: func() { s.LoginRequired.Add(1) },
	})
	require.NoError(t, err)
	t.Cleanup(application.Stop)

	s.App = application
	return s
}

// Restart simulates a new process sharing the backend and the token store.
func (s *Suite) Restart() *Suite {
	s.Helper()
	return NewWithBackend(s.T, s.Backend, s.Storage)
}

// Context returns a context that ends with the test.
func (s *Suite) Context() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	s.Cleanup(cancel)
	return ctx
}

func testLogger() *slog.Logger {
	if os.Getenv("SUITE_VERBOSE") != "" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
