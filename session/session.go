// Package session persists the per-run state that lets an interrupted
// graph execution be resumed: session state (position, progress, result)
// and the user-visible conversation log.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Timestamps tracks when a session started, was last touched, and finished.
type Timestamps struct {
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Progress accumulates counters updated by the executor at every step.
type Progress struct {
	StepsExecuted     int      `json:"steps_executed"`
	TotalLatencyMS    int64    `json:"total_latency_ms"`
	NodesExecuted     []string `json:"nodes_executed"`
	NodesWithFailures []string `json:"nodes_with_failures"`
	TotalTokens       int      `json:"total_tokens"`
}

// Result is the terminal (or in-progress) outcome of a run.
type Result struct {
	Success bool                   `json:"success"`
	Output  map[string]interface{} `json:"output"`
	Error   string                 `json:"error,omitempty"`
}

// State is the normative persisted shape of a session.
type State struct {
	SessionID       string                 `json:"session_id"`
	GoalID          string                 `json:"goal_id"`
	Status          Status                 `json:"status"`
	Timestamps      Timestamps             `json:"timestamps"`
	Progress        Progress               `json:"progress"`
	Result          Result                 `json:"result"`
	CurrentNodeID   string                 `json:"current_node_id,omitempty"`
	MemorySnapshot  map[string]interface{} `json:"memory_snapshot"`
}

// NewID mints a session ID in the form session_{YYYYMMDD}_{HHMMSS}_{8-hex},
// derived from now and a random suffix so two sessions started within the
// same second still don't collide.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return "session_" + now.UTC().Format("20060102") + "_" + now.UTC().Format("150405") + "_" + suffix
}

// New constructs a fresh, active session for goalID starting at now.
func New(goalID string, now time.Time) *State {
	id := NewID(now)
	return &State{
		SessionID: id,
		GoalID:    goalID,
		Status:    StatusActive,
		Timestamps: Timestamps{
			StartedAt: now,
			UpdatedAt: now,
		},
		Progress: Progress{
			NodesExecuted:     []string{},
			NodesWithFailures: []string{},
		},
		MemorySnapshot: map[string]interface{}{},
	}
}

// Touch bumps UpdatedAt and, for a terminal status, stamps CompletedAt.
func (s *State) Touch(status Status, now time.Time) {
	s.Status = status
	s.Timestamps.UpdatedAt = now
	if status == StatusCompleted || status == StatusFailed {
		completedAt := now
		s.Timestamps.CompletedAt = &completedAt
	}
}
