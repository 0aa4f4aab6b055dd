package guardrail

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ApprovalMode selects when the approval gate blocks a call.
type ApprovalMode string

const (
	ApprovalAlways    ApprovalMode = "always"
	ApprovalFirstTime ApprovalMode = "first_time"
	ApprovalThreshold ApprovalMode = "threshold"
	ApprovalNever     ApprovalMode = "never"
)

// ApprovalPolicy configures the approval gate.
type ApprovalPolicy struct {
	Mode                     ApprovalMode
	RiskThresholdForApproval RiskLevel
	TimeoutSeconds           int
}

// ApprovalRequest is handed to the caller-supplied callback.
type ApprovalRequest struct {
	RequestID      string
	ToolName       string
	ToolInput      map[string]interface{}
	RiskLevel      RiskLevel
	RiskReasons    []string
	Context        map[string]interface{}
	CreatedAt      time.Time
	TimeoutSeconds int
}

// Callback requests a human (or automated) approval decision for req,
// returning true to approve. The context passed to Callback is cancelled
// when the configured timeout elapses.
type Callback func(ctx context.Context, req ApprovalRequest) bool

// approvalGate tracks which tools have already been seen, for
// ApprovalFirstTime mode.
type approvalGate struct {
	mu                   sync.Mutex
	policy               ApprovalPolicy
	autoEscalateCritical bool
	callback             Callback
	seen                 map[string]bool
}

func newApprovalGate(policy ApprovalPolicy, autoEscalateCritical bool, callback Callback) *approvalGate {
	return &approvalGate{policy: policy, autoEscalateCritical: autoEscalateCritical, callback: callback, seen: make(map[string]bool)}
}

var riskRank = map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}

func (g *approvalGate) required(call ToolCall, risk RiskAssessment) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.autoEscalateCritical && risk.Level == RiskCritical {
		return true
	}

	switch g.policy.Mode {
	case ApprovalAlways:
		return true
	case ApprovalFirstTime:
		if g.seen[call.ToolName] {
			return false
		}
		return true
	case ApprovalThreshold:
		return riskRank[risk.Level] >= riskRank[g.policy.RiskThresholdForApproval]
	default:
		return false
	}
}

// markSeen records that call.ToolName has now been requested at least
// once, for first_time mode bookkeeping.
func (g *approvalGate) markSeen(toolName string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen[toolName] = true
}

// Decide requests approval if required, honoring the configured timeout.
// A timeout is treated as a deny: approval waits use the configured
// timeout, and on timeout the approval result is deny.
func (g *approvalGate) Decide(ctx context.Context, call ToolCall, risk RiskAssessment) (required, approved bool, req *ApprovalRequest) {
	if !g.required(call, risk) {
		return false, true, nil
	}
	g.markSeen(call.ToolName)

	timeout := g.policy.TimeoutSeconds
	if timeout <= 0 {
		timeout = 300
	}

	ar := ApprovalRequest{
		RequestID:      uuid.New().String(),
		ToolName:       call.ToolName,
		ToolInput:      call.Input,
		RiskLevel:      risk.Level,
		RiskReasons:    risk.Reasons,
		CreatedAt:      time.Now().UTC(),
		TimeoutSeconds: timeout,
	}

	if g.callback == nil {
		return true, false, &ar
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	result := make(chan bool, 1)
	go func() {
		result <- g.callback(callCtx, ar)
	}()

	select {
	case approved := <-result:
		return true, approved, &ar
	case <-callCtx.Done():
		return true, false, &ar
	}
}
