// Package metrics defines Prometheus counters for session and navigation events.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	// LoginsTotal counts login attempts by result (success, failure).
	LoginsTotal *prometheus.CounterVec

	// RefreshesTotal counts access token refreshes by result (success, failure, unavailable).
	RefreshesTotal *prometheus.CounterVec

	// LogoutsTotal counts session teardowns by reason.
	LogoutsTotal *prometheus.CounterVec

	// GuardDecisionsTotal counts navigation decisions by outcome and reason.
	GuardDecisionsTotal *prometheus.CounterVec

	// APIErrorsTotal counts classified HTTP failures by kind.
	APIErrorsTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmacy_session_logins_total",
				Help: "Total login attempts by result.",
			},
			[]string{"result"},
		),
		RefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmacy_session_refreshes_total",
				Help: "Total access token refresh attempts by result.",
			},
			[]string{"result"},
		),
		LogoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmacy_session_logouts_total",
				Help: "Total session teardowns by reason.",
			},
			[]string{"reason"},
		),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmacy_guard_decisions_total",
				Help: "Total navigation guard decisions by outcome and reason.",
			},
			[]string{"outcome", "reason"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmacy_api_errors_total",
				Help: "Total classified API failures by kind.",
			},
			[]string{"kind"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.LoginsTotal,
			m.RefreshesTotal,
			m.LogoutsTotal,
			m.GuardDecisionsTotal,
			m.APIErrorsTotal,
		)
	}
	return m
}

func (m *Metrics) Login(success bool) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result(success)).Inc()
}

func (m *Metrics) Refresh(res string) {
	if m == nil {
		return
	}
	m.RefreshesTotal.WithLabelValues(res).Inc()
}

func (m *Metrics) Logout(reason string) {
	if m == nil {
		return
	}
	m.LogoutsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) GuardDecision(allowed bool, reason string) {
	if m == nil {
		return
	}
	outcome := "redirect"
	if allowed {
		outcome = "allow"
	}
	m.GuardDecisionsTotal.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) APIError(kind string) {
	if m == nil {
		return
	}
	m.APIErrorsTotal.WithLabelValues(kind).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
