package tool

import (
	"context"
	"errors"
	"testing"
)

type echoTool struct{}

func (echoTool) Name() string { return "echo" }
func (echoTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	return input, nil
}

type failingTool struct{}

func (failingTool) Name() string { return "fail" }
func (failingTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	return nil, errors.New("always fails")
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool{})

	got, ok := r.Lookup("echo")
	if !ok || got.Name() != "echo" {
		t.Fatalf("expected to find registered tool, got ok=%v got=%v", ok, got)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("expected missing tool to not be found")
	}
}

func TestRegistry_DispatchUnknownToolYieldsErrorResult(t *testing.T) {
	r := NewRegistry()
	result := r.Dispatch(context.Background(), Call{ToolName: "nope"})
	if !result.IsError {
		t.Fatal("expected an unknown tool to yield an error result, not a panic or Go error")
	}
}

func TestRegistry_DispatchSuccessEncodesOutput(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool{})

	result := r.Dispatch(context.Background(), Call{ToolName: "echo", Input: map[string]interface{}{"x": "y"}})
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", result.Content)
	}
	if result.Content == "" {
		t.Error("expected encoded content")
	}
}

func TestRegistry_DispatchToolErrorYieldsErrorResult(t *testing.T) {
	r := NewRegistry()
	r.Register(failingTool{})

	result := r.Dispatch(context.Background(), Call{ToolName: "fail"})
	if !result.IsError {
		t.Fatal("expected tool error to surface as an error result")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool{})
	r.Register(failingTool{})

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %v", names)
	}
}
