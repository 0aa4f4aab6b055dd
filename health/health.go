// Package health tracks lightweight liveness signals for a running
// executor process: when it last made progress, how many consecutive
// node failures it has seen, and how many sessions are active. It does
// not replace the trace/episode record, it answers "is this process
// still making progress" for an external prober.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status is a point-in-time health snapshot, safe to marshal directly.
type Status struct {
	Healthy             bool      `json:"healthy"`
	LastStepAt          time.Time `json:"last_step_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	ActiveSessions      int       `json:"active_sessions"`
	Uptime              string    `json:"uptime"`
}

// Reporter accumulates the counters behind Status. The executor calls
// RecordStep after every node attempt; a process embedding the executor
// calls Snapshot (directly or via Handler) to answer a liveness probe.
type Reporter struct {
	mu                  sync.Mutex
	startTime           time.Time
	lastStepAt          time.Time
	consecutiveFailures int
	activeSessions      int
	// MaxConsecutiveFailures marks the reporter unhealthy once
	// ConsecutiveFailures reaches it. Zero disables the check.
	MaxConsecutiveFailures int
}

// NewReporter returns a Reporter whose uptime clock starts now.
func NewReporter() *Reporter {
	return &Reporter{startTime: time.Now()}
}

// RecordStep registers one node attempt's outcome, resetting the
// consecutive-failure counter on success and incrementing it otherwise.
func (r *Reporter) RecordStep(success bool, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastStepAt = at
	if success {
		r.consecutiveFailures = 0
	} else {
		r.consecutiveFailures++
	}
}

// SessionStarted increments the active-session count.
func (r *Reporter) SessionStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeSessions++
}

// SessionEnded decrements the active-session count, floored at zero.
func (r *Reporter) SessionEnded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeSessions > 0 {
		r.activeSessions--
	}
}

// Snapshot returns the current Status.
func (r *Reporter) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	healthy := true
	if r.MaxConsecutiveFailures > 0 && r.consecutiveFailures >= r.MaxConsecutiveFailures {
		healthy = false
	}
	return Status{
		Healthy:             healthy,
		LastStepAt:          r.lastStepAt,
		ConsecutiveFailures: r.consecutiveFailures,
		ActiveSessions:      r.activeSessions,
		Uptime:              time.Since(r.startTime).String(),
	}
}

// Handler serves Snapshot as JSON, returning 503 when unhealthy.
func (r *Reporter) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		status := r.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(status)
	}
}
