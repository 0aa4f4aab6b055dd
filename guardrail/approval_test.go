package guardrail

import (
	"context"
	"testing"
	"time"
)

func TestApprovalGate_FirstTimeMode(t *testing.T) {
	gate := newApprovalGate(ApprovalPolicy{Mode: ApprovalFirstTime, TimeoutSeconds: 1}, false, func(ctx context.Context, req ApprovalRequest) bool { return true })

	required, approved, _ := gate.Decide(context.Background(), ToolCall{ToolName: "send_email"}, RiskAssessment{Level: RiskLow})
	if !required || !approved {
		t.Fatalf("expected first call to require and receive approval, got required=%v approved=%v", required, approved)
	}

	required, approved, _ = gate.Decide(context.Background(), ToolCall{ToolName: "send_email"}, RiskAssessment{Level: RiskLow})
	if required {
		t.Error("expected second call to the same tool not to require approval under first_time mode")
	}
	if !approved {
		t.Error("expected a not-required decision to report approved=true")
	}
}

func TestApprovalGate_TimeoutDenies(t *testing.T) {
	gate := newApprovalGate(ApprovalPolicy{Mode: ApprovalAlways, TimeoutSeconds: 1}, false, func(ctx context.Context, req ApprovalRequest) bool {
		<-ctx.Done()
		return true
	})

	start := time.Now()
	required, approved, _ := gate.Decide(context.Background(), ToolCall{ToolName: "shell"}, RiskAssessment{Level: RiskLow})
	elapsed := time.Since(start)

	if !required {
		t.Fatal("expected approval to be required under always mode")
	}
	if approved {
		t.Error("expected a timed-out approval to be denied")
	}
	if elapsed > 2*time.Second {
		t.Errorf("expected the gate to respect the configured timeout, took %v", elapsed)
	}
}

func TestApprovalGate_NoCallbackDenies(t *testing.T) {
	gate := newApprovalGate(ApprovalPolicy{Mode: ApprovalAlways, TimeoutSeconds: 1}, false, nil)
	required, approved, req := gate.Decide(context.Background(), ToolCall{ToolName: "shell"}, RiskAssessment{Level: RiskLow})
	if !required || approved || req == nil {
		t.Errorf("expected required=true approved=false with a request, got required=%v approved=%v req=%v", required, approved, req)
	}
}

func TestApprovalGate_AutoEscalateCriticalForcesApproval(t *testing.T) {
	// first_time mode would normally skip approval once a tool has been
	// seen; auto-escalation must override that for a critical-risk call.
	gate := newApprovalGate(ApprovalPolicy{Mode: ApprovalFirstTime, TimeoutSeconds: 1}, true, func(ctx context.Context, req ApprovalRequest) bool { return true })
	gate.markSeen("delete_database")

	required, approved, req := gate.Decide(context.Background(), ToolCall{ToolName: "delete_database"}, RiskAssessment{Level: RiskCritical})
	if !required {
		t.Fatal("expected a critical-risk call to require approval under auto_escalate_critical, even with the tool already seen")
	}
	if !approved {
		t.Error("expected the approval callback's decision to be honored")
	}
	if req == nil {
		t.Error("expected an approval request to be produced")
	}
}

func TestApprovalGate_AutoEscalateCriticalDoesNotAffectLowerRisk(t *testing.T) {
	gate := newApprovalGate(ApprovalPolicy{Mode: ApprovalThreshold, RiskThresholdForApproval: RiskHigh, TimeoutSeconds: 1}, true, nil)

	required, _, _ := gate.Decide(context.Background(), ToolCall{ToolName: "read_file"}, RiskAssessment{Level: RiskMedium})
	if required {
		t.Error("expected auto_escalate_critical not to force approval for a non-critical risk level")
	}
}
