// Package inactivity logs the session out after a period without user input,
// with a warning shortly before.
package inactivity

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultTimeout = 60 * time.Second
	DefaultWarning = 20 * time.Second
)

type Session interface {
	IsAuthenticated() bool
	Logout()
}

type Options struct {
	Timeout time.Duration
	// Warning is how long before Timeout OnWarning fires. Zero disables it.
	Warning   time.Duration
	OnWarning func(remaining time.Duration)
	OnLogout  func()
	Log       *slog.Logger
}

type Monitor struct {
	session Session
	opts    Options
	log     *slog.Logger

	mu          sync.Mutex
	running     bool
	warning     bool
	deadline    time.Time
	warnTimer   *time.Timer
	logoutTimer *time.Timer
	// gen invalidates timers armed before the last Touch, Extend or Stop.
	gen uint64

	now func() time.Time
}

func New(session Session, opts Options) *Monitor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Warning < 0 || opts.Warning >= opts.Timeout {
		opts.Warning = min(DefaultWarning, opts.Timeout/3)
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{session: session, opts: opts, log: log, now: time.Now}
}

// Start arms the timers. It does nothing and returns false when the session is
// not authenticated.
func (m *Monitor) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.session.IsAuthenticated() {
		return false
	}
	m.running = true
	m.armLocked()
	m.log.Debug("inactivity monitor started", slog.Duration("timeout", m.opts.Timeout))
	return true
}

// Touch records user input. While the warning is visible only Extend re-arms.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || m.warning {
		return
	}
	m.armLocked()
}

// Extend dismisses the warning and starts a full timeout again.
func (m *Monitor) Extend() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.armLocked()
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running = false
	m.warning = false
	m.gen++
	m.stopTimersLocked()
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) WarningVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warning
}

// Remaining is the time left before the forced logout, zero when stopped.
func (m *Monitor) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return 0
	}
	return max(m.deadline.Sub(m.now()), 0)
}

func (m *Monitor) armLocked() {
	m.stopTimersLocked()
	m.gen++
	gen := m.gen

	m.warning = false
	m.deadline = m.now().Add(m.opts.Timeout)

	if m.opts.Warning > 0 {
		m.warnTimer = time.AfterFunc(m.opts.Timeout-m.opts.Warning, func() { m.fireWarning(gen) })
	}
	m.logoutTimer = time.AfterFunc(m.opts.Timeout, func() { m.fireLogout(gen) })
}

func (m *Monitor) stopTimersLocked() {
	if m.warnTimer != nil {
		m.warnTimer.Stop()
		m.warnTimer = nil
	}
	if m.logoutTimer != nil {
		m.logoutTimer.Stop()
		m.logoutTimer = nil
	}
}

func (m *Monitor) fireWarning(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.running {
		m.mu.Unlock()
		return
	}
	if !m.session.IsAuthenticated() {
		m.running = false
		m.stopTimersLocked()
		m.mu.Unlock()
		return
	}
	m.warning = true
	remaining := max(m.deadline.Sub(m.now()), 0)
	onWarning := m.opts.OnWarning
	m.mu.Unlock()

	m.log.Info("inactivity warning", slog.String("remaining", FormatRemaining(remaining)))
	if onWarning != nil {
		onWarning(remaining)
	}
}

func (m *Monitor) fireLogout(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.warning = false
	m.gen++
	m.stopTimersLocked()
	onLogout := m.opts.OnLogout
	m.mu.Unlock()

	m.log.Info("session closed for inactivity", slog.Duration("timeout", m.opts.Timeout))
	m.session.Logout()
	if onLogout != nil {
		onLogout()
	}
}

// FormatRemaining renders d as m:ss, rounding partial seconds up.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
