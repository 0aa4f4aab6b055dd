package session

import (
	"regexp"
	"testing"
	"time"
)

var sessionIDPattern = regexp.MustCompile(`^session_\d{8}_\d{6}_[0-9a-f]{8}$`)

func TestNewID(t *testing.T) {
	t.Run("matches the required format", func(t *testing.T) {
		now := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
		id := NewID(now)
		if !sessionIDPattern.MatchString(id) {
			t.Errorf("id %q does not match session_{YYYYMMDD}_{HHMMSS}_{8-hex}", id)
		}
	})

	t.Run("two ids minted in the same second do not collide", func(t *testing.T) {
		now := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
		a := NewID(now)
		b := NewID(now)
		if a == b {
			t.Error("expected distinct session ids for two calls at the same timestamp")
		}
	})
}

func TestNew(t *testing.T) {
	now := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	s := New("goal-1", now)

	if s.Status != StatusActive {
		t.Errorf("expected new session to be active, got %q", s.Status)
	}
	if s.Timestamps.StartedAt != now || s.Timestamps.UpdatedAt != now {
		t.Error("expected both timestamps to equal the creation time")
	}
	if s.Timestamps.CompletedAt != nil {
		t.Error("expected a fresh session to have no completion time")
	}
	if s.Progress.NodesExecuted == nil || s.Progress.NodesWithFailures == nil {
		t.Error("expected progress slices to be initialized, not nil")
	}
}

func TestState_Touch(t *testing.T) {
	t0 := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	t1 := t0.Add(5 * time.Minute)
	s := New("goal-1", t0)

	t.Run("non-terminal status leaves completed_at unset", func(t *testing.T) {
		s.Touch(StatusPaused, t1)
		if s.Timestamps.CompletedAt != nil {
			t.Error("expected pausing not to set completed_at")
		}
		if s.Timestamps.UpdatedAt != t1 {
			t.Error("expected updated_at to advance")
		}
	})

	t.Run("terminal status stamps completed_at", func(t *testing.T) {
		t2 := t1.Add(time.Minute)
		s.Touch(StatusCompleted, t2)
		if s.Timestamps.CompletedAt == nil || !s.Timestamps.CompletedAt.Equal(t2) {
			t.Error("expected completed_at to be stamped on completion")
		}
	})
}
