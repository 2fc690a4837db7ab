package web

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wichananm65/recommender-web/internal/lookup"
)

func TestSessionsGetAndExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessions(time.Minute, func() *lookup.Controller {
		return lookup.NewController(nil, nil, zerolog.Nop())
	})
	s.now = func() time.Time { return now }

	c1, id := s.Get("")
	if id == "" || c1 == nil {
		t.Fatalf("expected a new session")
	}
	c2, same := s.Get(id)
	if same != id || c2 != c1 {
		t.Fatalf("expected the same session back")
	}

	now = now.Add(2 * time.Minute)
	c3, fresh := s.Get(id)
	if fresh == id || c3 == c1 {
		t.Fatalf("expected expired session to be replaced")
	}

	s.Get("")
	now = now.Add(2 * time.Minute)
	if removed := s.Sweep(); removed != 2 || s.Len() != 0 {
		t.Fatalf("expected 2 sessions swept, got %d (left %d)", removed, s.Len())
	}
}

func TestSessionsRunStopsOnCancel(t *testing.T) {
	s := NewSessions(time.Minute, func() *lookup.Controller { return nil })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("janitor did not stop")
	}
}
