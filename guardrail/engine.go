package guardrail

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agentgraph/agentgraph/agerrors"
)

// Policy bundles every sub-policy the Engine enforces.
type Policy struct {
	Permission                           PermissionPolicy
	Risk                                 RiskPolicy
	Approval                             ApprovalPolicy
	Isolation                            IsolationPolicy
	AutoEscalateCriticalRequiresApproval bool
	FailClosed                           bool
}

// Result is the full pipeline verdict for one tool call.
type Result struct {
	Allowed          bool
	ToolName         string
	ToolUseID        string
	Reason           string
	RiskLevel        RiskLevel
	RequiresApproval bool
	ApprovalRequest  *ApprovalRequest
	Blocked          bool
}

// ToErrorContent renders a blocked/denied result as the JSON-encoded
// error object a tool result surfaces to the LLM.
func (r Result) ToErrorContent() string {
	payload := map[string]interface{}{
		"error":      true,
		"tool_name":  r.ToolName,
		"reason":     r.Reason,
		"risk_level": string(r.RiskLevel),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return `{"error":true,"reason":"guardrail: failed to encode denial"}`
	}
	return string(data)
}

// Engine orchestrates the permission -> risk -> approval -> audit
// pipeline for every tool call.
type Engine struct {
	policy     Policy
	permission *permissionChecker
	risk       *riskAssessor
	approval   *approvalGate
	audit      *AuditSink
	metrics    *Metrics
}

// WithMetrics attaches a Prometheus metrics sink and returns e, so it
// chains onto New. A nil m disables metrics collection.
func (e *Engine) WithMetrics(m *Metrics) *Engine {
	e.metrics = m
	return e
}

// IsolationPolicy returns the data-isolation policy e was constructed
// with, for callers (the memory package's scoped View) that need to
// enforce it outside the tool-call pipeline.
func (e *Engine) IsolationPolicy() IsolationPolicy {
	return e.policy.Isolation
}

// New constructs an Engine. audit may be nil, in which case audit events
// are dropped (not recommended outside tests).
func New(policy Policy, callback Callback, audit *AuditSink) *Engine {
	return &Engine{
		policy:     policy,
		permission: newPermissionChecker(policy.Permission),
		risk:       newRiskAssessor(policy.Risk),
		approval:   newApprovalGate(policy.Approval, policy.AutoEscalateCriticalRequiresApproval, callback),
		audit:      audit,
	}
}

// Evaluate runs the full pipeline for call and returns the final verdict.
// It never panics: an internal error is converted into a deny (fail_closed
// = true) or an allow-with-audit (fail_closed = false, the zero value of
// Policy.FailClosed).
func (e *Engine) Evaluate(ctx context.Context, call ToolCall) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = e.failurePolicy(call, "internal guardrail error")
			e.recordAudit("internal_error", call, result, nil)
			e.metrics.recordDecision(call.ToolName, decisionString(result.Allowed))
		}
	}()

	now := time.Now().UTC()

	perm := e.permission.Check(call, now)
	if !perm.Allowed {
		result = Result{Allowed: false, Blocked: true, ToolName: call.ToolName, ToolUseID: call.ToolUseID, Reason: perm.Reason}
		e.recordAudit("tool_blocked", call, result, nil)
		e.metrics.recordDecision(call.ToolName, "deny")
		return result
	}

	risk := e.risk.Assess(call)
	e.metrics.recordRisk(call.ToolName, risk.Level)

	required, approved, req := e.approval.Decide(ctx, call, risk)
	if required {
		decision := "approved"
		reason := ""
		if !approved {
			decision = "denied"
			reason = "approval was denied or timed out"
		}
		e.recordApprovalAudit(call, risk, req, decision)
		e.metrics.recordApproval(call.ToolName, decision)
		if !approved {
			result = Result{
				Allowed: false, Blocked: true, ToolName: call.ToolName, ToolUseID: call.ToolUseID,
				Reason: reason, RiskLevel: risk.Level, RequiresApproval: true, ApprovalRequest: req,
			}
			e.recordAudit("tool_blocked", call, result, nil)
			e.metrics.recordDecision(call.ToolName, "deny")
			return result
		}
	}

	result = Result{
		Allowed: true, ToolName: call.ToolName, ToolUseID: call.ToolUseID,
		RiskLevel: risk.Level, RequiresApproval: required,
	}
	e.recordAudit("tool_executed", call, result, risk.Reasons)
	e.metrics.recordDecision(call.ToolName, "allow")
	return result
}

func (e *Engine) failurePolicy(call ToolCall, reason string) Result {
	if e.policy.FailClosed {
		return Result{Allowed: false, Blocked: true, ToolName: call.ToolName, ToolUseID: call.ToolUseID, Reason: reason}
	}
	return Result{Allowed: true, ToolName: call.ToolName, ToolUseID: call.ToolUseID, Reason: reason}
}

func (e *Engine) recordAudit(eventType string, call ToolCall, result Result, riskReasons []string) {
	if e.audit == nil {
		return
	}
	ctx := map[string]interface{}{"input": call.Input}
	if len(riskReasons) > 0 {
		ctx["risk_reasons"] = riskReasons
	}
	e.audit.Record(AuditEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		ToolName:  call.ToolName,
		Decision:  decisionString(result.Allowed),
		Reason:    result.Reason,
		RiskLevel: string(result.RiskLevel),
		Actor:     call.Actor,
		SessionID: call.SessionID,
		Context:   ctx,
	})
}

func (e *Engine) recordApprovalAudit(call ToolCall, risk RiskAssessment, req *ApprovalRequest, decision string) {
	if e.audit == nil {
		return
	}
	var requestID string
	if req != nil {
		requestID = req.RequestID
	}
	e.audit.Record(AuditEvent{
		EventType: "approval_result",
		Timestamp: time.Now().UTC(),
		ToolName:  call.ToolName,
		Decision:  decision,
		RiskLevel: string(risk.Level),
		Actor:     call.Actor,
		SessionID: call.SessionID,
		Context:   map[string]interface{}{"request_id": requestID, "risk_reasons": risk.Reasons},
	})
}

func decisionString(allowed bool) string {
	if allowed {
		return "allow"
	}
	return "deny"
}

// ToNodeError converts a blocking Result into the executor's error
// taxonomy: GuardrailBlock for permission/risk denials, ApprovalDenied
// for approval-gate denials. A timed-out approval is a denial and also
// maps to ApprovalDenied; ApprovalTimeout is never returned.
func (r Result) ToNodeError() *agerrors.Error {
	if r.Allowed {
		return nil
	}
	if r.RequiresApproval {
		return agerrors.New(agerrors.ApprovalDenied, r.Reason)
	}
	return agerrors.New(agerrors.GuardrailBlock, r.Reason)
}
