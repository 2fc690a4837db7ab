package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wichananm65/recommender-web/internal/lookup"
	"github.com/wichananm65/recommender-web/internal/metrics"
)

type session struct {
	ctrl     *lookup.Controller
	lastSeen time.Time
}

// Sessions keeps one form controller per browser session.
type Sessions struct {
	mu      sync.Mutex
	items   map[string]*session
	ttl     time.Duration
	factory func() *lookup.Controller
	now     func() time.Time
}

func NewSessions(ttl time.Duration, factory func() *lookup.Controller) *Sessions {
	return &Sessions{
		items:   map[string]*session{},
		ttl:     ttl,
		factory: factory,
		now:     time.Now,
	}
}

// Get returns the controller for id, creating a session with a fresh id when
// id is unknown or expired.
func (s *Sessions) Get(id string) (*lookup.Controller, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.items[id]; ok && now.Sub(sess.lastSeen) <= s.ttl {
		sess.lastSeen = now
		return sess.ctrl, id
	}
	delete(s.items, id)

	newID := uuid.NewString()
	s.items[newID] = &session{ctrl: s.factory(), lastSeen: now}
	metrics.ActiveSessions.Set(float64(len(s.items)))
	return s.items[newID].ctrl, newID
}

// Sweep drops sessions idle for longer than the ttl and returns how many.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.items {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.items, id)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.items)))
	return removed
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Run sweeps every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
