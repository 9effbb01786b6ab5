package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pr-poehali-dev/weather-viewer-project/internal/view"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	opts := Options{
		View:    view.Options{InitDelay: time.Millisecond, SearchDelay: time.Millisecond},
		IdleTTL: time.Minute,
		Burst:   2,
	}
	if clock != nil {
		opts.Now = clock.Now
	}
	m := NewManager(opts)
	t.Cleanup(m.Close)
	return m
}

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(t, nil)
	s := m.Create(context.Background())

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != s {
		t.Fatalf("expected same session")
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", m.Len())
	}
}

func TestGetUnknown(t *testing.T) {
	m := newTestManager(t, nil)
	if _, err := m.Get(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	m := newTestManager(t, nil)
	s := m.Create(context.Background())
	if err := m.Delete(s.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := m.Delete(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if s.Controller.Search("Paris") {
		t.Fatalf("expected controller to be closed")
	}
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	idle := m.Create(context.Background())
	clock.Advance(45 * time.Second)
	active := m.Create(context.Background())
	clock.Advance(30 * time.Second)

	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 expired session, got %d", n)
	}
	if _, err := m.Get(idle.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected idle session to be gone, got %v", err)
	}
	if _, err := m.Get(active.ID); err != nil {
		t.Fatalf("expected active session to survive, got %v", err)
	}
}

func TestGetKeepsSessionAlive(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)
	s := m.Create(context.Background())

	clock.Advance(50 * time.Second)
	if _, err := m.Get(s.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	clock.Advance(50 * time.Second)
	if n := m.Sweep(); n != 0 {
		t.Fatalf("expected touched session to survive, swept %d", n)
	}
}

func TestOnChangeReportsCount(t *testing.T) {
	var counts []int
	m := NewManager(Options{
		View:     view.Options{InitDelay: time.Millisecond},
		OnChange: func(n int) { counts = append(counts, n) },
	})
	a := m.Create(context.Background())
	m.Create(context.Background())
	_ = m.Delete(a.ID)
	m.Close()

	want := []int{1, 2, 1, 0}
	if len(counts) != len(want) {
		t.Fatalf("expected %v, got %v", want, counts)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, counts)
		}
	}
}

func TestAllowRespectsBurst(t *testing.T) {
	m := newTestManager(t, nil)
	s := m.Create(context.Background())
	if !s.Allow() || !s.Allow() {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	if s.Allow() {
		t.Fatalf("expected third immediate action to be limited")
	}
}

func TestStartSweeperRejectsBadSpec(t *testing.T) {
	m := newTestManager(t, nil)
	if err := m.StartSweeper("every now and then"); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
	if err := m.StartSweeper("@every 1h"); err != nil {
		t.Fatalf("expected valid spec to start, got %v", err)
	}
}
