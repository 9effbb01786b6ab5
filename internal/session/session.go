package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/pr-poehali-dev/weather-viewer-project/internal/geo"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/view"
)

var ErrNotFound = errors.New("session not found")

// Session is one open page: its controller, the locator the browser
// reports into, and an action limiter.
type Session struct {
	ID         uuid.UUID
	Controller *view.Controller
	Locator    *geo.Reported
	CreatedAt  time.Time

	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// Allow reports whether another action fits in the session's budget.
func (s *Session) Allow() bool { return s.limiter.Allow() }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Options struct {
	View      view.Options
	IdleTTL   time.Duration
	RateLimit rate.Limit
	Burst     int
	Now       func() time.Time
	// OnChange is called with the session count after every create or delete.
	OnChange func(n int)
}

type Manager struct {
	opts Options

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	cron *cron.Cron
}

func NewManager(opts Options) *Manager {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{opts: opts, sessions: map[uuid.UUID]*Session{}}
}

// Create opens a session and starts its initial location flow.
func (m *Manager) Create(ctx context.Context) *Session {
	now := m.opts.Now()
	loc := geo.NewReported()
	s := &Session{
		ID:         uuid.New(),
		Controller: view.NewController(loc, m.opts.View),
		Locator:    loc,
		CreatedAt:  now,
		limiter:    rate.NewLimiter(m.opts.RateLimit, m.opts.Burst),
		lastSeen:   now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()
	m.changed(n)

	slog.Info("session opened", "session", s.ID)
	s.Controller.Initialize(ctx)
	return s
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.touch(m.opts.Now())
	return s, nil
}

func (m *Manager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Controller.Close()
	m.changed(n)
	slog.Info("session closed", "session", id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the configured TTL and
// returns how many were removed.
func (m *Manager) Sweep() int {
	cutoff := m.opts.Now().Add(-m.opts.IdleTTL)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Controller.Close()
	}
	if len(expired) > 0 {
		m.changed(n)
		slog.Info("expired idle sessions", "count", len(expired), "open", n)
	}
	return len(expired)
}

// StartSweeper runs Sweep on the given cron spec, e.g. "@every 1m".
func (m *Manager) StartSweeper(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { m.Sweep() }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	c.Start()
	m.cron = c
	return nil
}

// Close stops the sweeper and closes every session.
func (m *Manager) Close() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
	m.mu.Lock()
	all := m.sessions
	m.sessions = map[uuid.UUID]*Session{}
	m.mu.Unlock()
	for _, s := range all {
		s.Controller.Close()
	}
	m.changed(0)
}

func (m *Manager) changed(n int) {
	if m.opts.OnChange != nil {
		m.opts.OnChange(n)
	}
}
