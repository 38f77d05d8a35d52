// Package guard decides whether a navigation may proceed, from the route table
// and the current session.
package guard

import (
	"context"
	"log/slog"
	"pharmacy/internal/access"
	"pharmacy/internal/metrics"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/singleflight"
)

// Session is what the guard reads from the session store.
type Session interface {
	IsAuthenticated() bool
	HasPersistedSession(ctx context.Context) bool
	Initialize(ctx context.Context) error
	EffectiveRole() access.Role
	Capabilities() access.Capabilities
}

type Reason string

const (
	ReasonAllowed              Reason = "allowed"
	ReasonAuthRequired         Reason = "auth_required"
	ReasonAlreadyAuthenticated Reason = "already_authenticated"
	ReasonAdminOnly            Reason = "admin_only"
	ReasonMissingPermission    Reason = "missing_permission"
	ReasonUnknownRoute         Reason = "unknown_route"
)

type Decision struct {
	Allow bool
	// Redirect is the path to navigate to instead. Empty when Allow is set.
	Redirect string
	Reason   Reason
	Route    string
}

type Guard struct {
	policy  *Policy
	session Session
	metrics *metrics.Metrics
	log     *slog.Logger

	restore singleflight.Group
}

func New(policy *Policy, session Session, m *metrics.Metrics, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{policy: policy, session: session, metrics: m, log: log}
}

// Check decides a navigation to path. When the session is not authenticated
// but a persisted one exists, it is restored first; restoration errors only
// affect the outcome through the session state.
func (g *Guard) Check(ctx context.Context, path string) Decision {
	g.rehydrate(ctx)

	route, ok := g.policy.Match(path)
	if !ok {
		return g.record(path, Decision{Redirect: PathHome, Reason: ReasonUnknownRoute})
	}
	return g.record(path, g.decide(route))
}

// CheckRoute is Check addressed by route name.
func (g *Guard) CheckRoute(ctx context.Context, name string) Decision {
	g.rehydrate(ctx)

	route, ok := g.policy.Lookup(name)
	if !ok {
		return g.record(name, Decision{Redirect: PathHome, Reason: ReasonUnknownRoute})
	}
	return g.record(route.Path, g.decide(route))
}

func (g *Guard) decide(route Route) Decision {
	authenticated := g.session.IsAuthenticated()
	redirect := func(to string, reason Reason) Decision {
		return Decision{Redirect: to, Reason: reason, Route: route.Name}
	}

	switch {
	case route.RequiresAuth && !authenticated:
		return redirect(PathLogin, ReasonAuthRequired)
	case route.Name == RouteLogin && authenticated:
		return redirect(PathHome, ReasonAlreadyAuthenticated)
	case route.AdminOnly && authenticated && g.session.EffectiveRole() != access.RoleAdmin:
		return redirect(PathHome, ReasonAdminOnly)
	case len(route.RequiredPermissions) > 0 && authenticated &&
		!slices.ContainsFunc(route.RequiredPermissions, g.session.Capabilities().Has):
		return redirect(PathHome, ReasonMissingPermission)
	}
	return Decision{Allow: true, Reason: ReasonAllowed, Route: route.Name}
}

// rehydrate runs at most one Initialize at a time for concurrent checks.
// Routes lists the guarded routes in declaration order.
func (g *Guard) Routes() []Route {
	return g.policy.Routes()
}

func (g *Guard) rehydrate(ctx context.Context) {
	if g.session.IsAuthenticated() || !g.session.HasPersistedSession(ctx) {
		return
	}

	_, err, _ := g.restore.Do("initialize", func() (interface{}, error) {
		if g.session.IsAuthenticated() {
			return nil, nil
		}
		return nil, g.session.Initialize(context.WithoutCancel(ctx))
	})
	if err != nil {
		g.log.Warn("session restore failed", slog.String("error", err.Error()))
	}
}

func (g *Guard) record(target string, d Decision) Decision {
	g.metrics.GuardDecision(d.Allow, string(d.Reason))
	if !d.Allow {
		g.log.Debug("navigation redirected",
			slog.String("target", target),
			slog.String("redirect", d.Redirect),
			slog.String("reason", string(d.Reason)))
	}
	return d
}
