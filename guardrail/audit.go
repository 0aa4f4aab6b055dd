package guardrail

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/agentgraph/agentgraph/eventbus"
)

// AuditEvent is the normative audit record. PrevHash/Hash form an
// optional tamper-evident chain: when a sink has chaining enabled, each
// recorded event's Hash covers its own fields plus the prior event's
// Hash, so altering or removing an entry breaks every hash after it.
type AuditEvent struct {
	EventType   string                 `json:"event_type"`
	Timestamp   time.Time              `json:"timestamp"`
	ToolName    string                 `json:"tool_name,omitempty"`
	Decision    string                 `json:"decision,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	RiskLevel   string                 `json:"risk_level,omitempty"`
	Actor       string                 `json:"actor,omitempty"`
	SessionID   string                 `json:"session_id,omitempty"`
	AgentID     string                 `json:"agent_id,omitempty"`
	ExecutionID string                 `json:"execution_id,omitempty"`
	NodeID      string                 `json:"node_id,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	DurationMS  *int64                 `json:"duration_ms,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	PrevHash    string                 `json:"prev_hash,omitempty"`
	Hash        string                 `json:"hash,omitempty"`
}

// chainHash computes event's hash over its JSON-encoded fields (Hash
// itself excluded) chained onto prevHash.
func chainHash(event AuditEvent, prevHash string) string {
	event.Hash = ""
	data, err := json.Marshal(event)
	if err != nil {
		return ""
	}
	h := blake3.New()
	h.Write([]byte(prevHash))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// redactionPattern matches parameter/context keys whose values are
// sensitive by name and should be replaced rather than logged.
var redactionPattern = regexp.MustCompile(`(?i)(password|secret|token|api[_-]?key|credential)`)

func redactContext(ctx map[string]interface{}, allowUnredacted bool) map[string]interface{} {
	if ctx == nil || allowUnredacted {
		return ctx
	}
	out := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		if redactionPattern.MatchString(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}

// AuditSink is the destination set an audit event is routed to.
type AuditSink struct {
	// ringSize bounds the in-memory ring buffer; spec default is 10000.
	ringSize int
	FilePath string
	Bus      *eventbus.Bus
	AllowUnredacted bool
	// ChainHashes enables the PrevHash/Hash tamper-evidence chain.
	ChainHashes bool

	mu       sync.Mutex
	ring     []AuditEvent
	head     int
	file     *os.File
	lastHash string
}

// NewAuditSink returns a sink with the default ring capacity (10000
// events). filePath and bus are optional; pass "" / nil to disable them.
func NewAuditSink(filePath string, bus *eventbus.Bus) (*AuditSink, error) {
	s := &AuditSink{ringSize: 10000, FilePath: filePath, Bus: bus}
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("guardrail: open audit log: %w", err)
		}
		s.file = f
	}
	return s, nil
}

// Record routes event through every configured destination. Ring-buffer
// insertion never fails; file append and event-bus publish failures are
// swallowed (audit is best-effort beyond the in-memory ring), matching
// the "non-blocking observability" posture used throughout this module.
func (s *AuditSink) Record(event AuditEvent) {
	event.Context = redactContext(event.Context, s.AllowUnredacted)

	s.mu.Lock()
	if s.ChainHashes {
		event.PrevHash = s.lastHash
		event.Hash = chainHash(event, s.lastHash)
		s.lastHash = event.Hash
	}
	if s.ring == nil {
		s.ring = make([]AuditEvent, 0, s.ringSize)
	}
	if len(s.ring) < s.ringSize {
		s.ring = append(s.ring, event)
	} else {
		s.ring[s.head] = event
		s.head = (s.head + 1) % s.ringSize
	}
	s.mu.Unlock()

	if s.file != nil {
		if data, err := json.Marshal(event); err == nil {
			data = append(data, '\n')
			s.mu.Lock()
			_, _ = s.file.Write(data)
			s.mu.Unlock()
		}
	}

	if s.Bus != nil {
		s.Bus.Publish(eventbus.Event{
			Topic:  eventbus.TopicCustom,
			RunID:  event.ExecutionID,
			NodeID: event.NodeID,
			At:     event.Timestamp,
			Meta:   map[string]interface{}{"audit_event": event},
		})
	}
}

// Recent returns up to n most-recently-recorded events, oldest first.
func (s *AuditSink) Recent(n int) []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.ring) {
		n = len(s.ring)
	}
	out := make([]AuditEvent, 0, n)
	if len(s.ring) < s.ringSize {
		start := len(s.ring) - n
		if start < 0 {
			start = 0
		}
		out = append(out, s.ring[start:]...)
		return out
	}
	for i := 0; i < n; i++ {
		idx := (s.head + len(s.ring) - n + i) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out
}

// Close releases the underlying file handle, if any.
func (s *AuditSink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
