package app

import (
	"context"
	"fmt"
	"log/slog"
	"pharmacy/internal/config"
	"pharmacy/internal/guard"
	"pharmacy/internal/httpclient"
	"pharmacy/internal/inactivity"
	"pharmacy/internal/metrics"
	"pharmacy/internal/provider/auth"
	redis2 "pharmacy/internal/redis"
	"pharmacy/internal/session"
	"pharmacy/internal/storage"
	"pharmacy/internal/storage/file"
	"pharmacy/internal/storage/memory"
	"pharmacy/pkg/client/redis"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	Session  *session.Store
	Guard    *guard.Guard
	Client   *httpclient.Client
	Storage  storage.Storage
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	cfg     config.Config
	log     *slog.Logger
	closers []func() error
}

// Options override parts of the wiring, mainly for tests.
type Options struct {
	Storage         storage.Storage
	Notifier        httpclient.Notifier
	OnLoginRequired func()
}

// New builds the session stack. The session is created before the HTTP client
// can use it, so the client receives it as credentials once both exist.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	const op = "app.New"

	a := &App{cfg: cfg, log: log, Registry: prometheus.NewRegistry()}
	a.Metrics = metrics.New(a.Registry)

	st := opts.Storage
	if st == nil {
		var err error
		if st, err = a.newStorage(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	a.Storage = st

	a.Client = httpclient.New(httpclient.Options{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		RefreshSkew:     cfg.API.RefreshSkew,
		Notifier:        opts.Notifier,
		OnLoginRequired: opts.OnLoginRequired,
		Metrics:         a.Metrics,
		Log:             log,
	})

	provider := auth.NewAuthProvider(a.Client, log)
	a.Session = session.New(provider, st, a.Metrics, log)
	a.Client.SetCredentials(a.Session)

	a.Guard = guard.New(guard.MustPolicy(guard.DefaultRoutes()), a.Session, a.Metrics, log)

	log.Debug("application wired",
		slog.String("api", cfg.API.BaseURL),
		slog.String("storage", cfg.Storage.Driver))
	return a, nil
}

func (a *App) newStorage(ctx context.Context) (storage.Storage, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverRedis:
		client, err := redis.NewClient(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return redis2.NewRepositoryRedis(client, a.cfg.Storage.Namespace, a.cfg.Redis.RefreshTTL), nil
	default:
		path := a.cfg.Storage.Path
		if path == "" {
			var err error
			if path, err = file.DefaultPath(); err != nil {
				return nil, err
			}
		}
		return file.New(path), nil
	}
}

// Start restores a persisted session, if any.
func (a *App) Start(ctx context.Context) error {
	if !a.Session.HasPersistedSession(ctx) {
		return nil
	}
	if err := a.Session.Initialize(ctx); err != nil {
		a.log.Warn("failed to restore session", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// NewMonitor returns an inactivity monitor bound to the session with the
// configured timeouts.
func (a *App) NewMonitor(onWarning func(time.Duration), onLogout func()) *inactivity.Monitor {
	return inactivity.New(a.Session, inactivity.Options{
		Timeout:   a.cfg.Inactivity.Timeout,
		Warning:   a.cfg.Inactivity.Warning,
		OnWarning: onWarning,
		OnLogout:  onLogout,
		Log:       a.log,
	})
}

// Stop releases connections. The session itself is kept in storage.
func (a *App) Stop() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.log.Warn("failed to close resource", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
