package mocktool

import (
	"context"
	"errors"
	"testing"
)

func TestTool_ReturnsConfiguredOutput(t *testing.T) {
	tool := &Tool{ToolName: "stub", Output: map[string]interface{}{"ok": true}}
	out, err := tool.Call(context.Background(), map[string]interface{}{"in": 1})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out["ok"] != true {
		t.Errorf("expected ok=true, got %v", out)
	}
	if tool.CallCount() != 1 {
		t.Errorf("expected 1 recorded call, got %d", tool.CallCount())
	}
}

func TestTool_ReturnsConfiguredError(t *testing.T) {
	tool := &Tool{ToolName: "stub", Err: errors.New("boom")}
	_, err := tool.Call(context.Background(), nil)
	if err == nil {
		t.Fatal("expected configured error")
	}
}
