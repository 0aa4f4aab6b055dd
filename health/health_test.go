package health

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"
)

func TestReporter_RecordStepResetsOnSuccess(t *testing.T) {
	r := NewReporter()
	now := time.Now()
	r.RecordStep(false, now)
	r.RecordStep(false, now)
	if got := r.Snapshot().ConsecutiveFailures; got != 2 {
		t.Fatalf("expected 2 consecutive failures, got %d", got)
	}
	r.RecordStep(true, now)
	if got := r.Snapshot().ConsecutiveFailures; got != 0 {
		t.Errorf("expected failure count reset to 0 after success, got %d", got)
	}
}

func TestReporter_UnhealthyAfterMaxConsecutiveFailures(t *testing.T) {
	r := NewReporter()
	r.MaxConsecutiveFailures = 3
	now := time.Now()

	for i := 0; i < 2; i++ {
		r.RecordStep(false, now)
	}
	if r.Snapshot().Healthy != true {
		t.Error("expected still healthy below threshold")
	}
	r.RecordStep(false, now)
	if r.Snapshot().Healthy != false {
		t.Error("expected unhealthy once threshold reached")
	}
}

func TestReporter_SessionCountTracksStartEnd(t *testing.T) {
	r := NewReporter()
	r.SessionStarted()
	r.SessionStarted()
	r.SessionEnded()
	if got := r.Snapshot().ActiveSessions; got != 1 {
		t.Errorf("expected 1 active session, got %d", got)
	}
}

func TestReporter_SessionEndedFlooredAtZero(t *testing.T) {
	r := NewReporter()
	r.SessionEnded()
	if got := r.Snapshot().ActiveSessions; got != 0 {
		t.Errorf("expected active sessions floored at 0, got %d", got)
	}
}

func TestReporter_HandlerReturns503WhenUnhealthy(t *testing.T) {
	r := NewReporter()
	r.MaxConsecutiveFailures = 1
	r.RecordStep(false, time.Now())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	r.Handler()(rec, req)

	if rec.Code != 503 {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	var status Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status.Healthy {
		t.Error("expected healthy=false in response body")
	}
}
