package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubProvider struct {
	result CompleteResult
	err    error
}

func (s stubProvider) Complete(ctx context.Context, messages []Message, system string, maxTokens int, tools []ToolSpec) (CompleteResult, error) {
	return s.result, s.err
}

func TestTracingProvider_ReportsInteraction(t *testing.T) {
	var captured Interaction
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p := NewTracingProvider(stubProvider{result: CompleteResult{Content: "hi", Usage: Usage{InputTokens: 3, OutputTokens: 5}}}, "test-model", func(i Interaction) {
		captured = i
	})
	p.now = func() time.Time {
		t := tick
		tick = tick.Add(200 * time.Millisecond)
		return t
	}

	result, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hey"}}, "sys", 100, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Content != "hi" {
		t.Errorf("expected passthrough content, got %q", result.Content)
	}
	if captured.Model != "test-model" {
		t.Errorf("expected model tag recorded, got %q", captured.Model)
	}
	if captured.LatencyMS != 200 {
		t.Errorf("expected 200ms latency, got %d", captured.LatencyMS)
	}
	if captured.Result.Usage.InputTokens != 3 {
		t.Errorf("expected usage propagated, got %+v", captured.Result.Usage)
	}
}

func TestTracingProvider_ReportsErrors(t *testing.T) {
	var captured Interaction
	p := NewTracingProvider(stubProvider{err: errors.New("boom")}, "m", func(i Interaction) { captured = i })

	_, err := p.Complete(context.Background(), nil, "", 0, nil)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if captured.Err == nil {
		t.Error("expected error to be reported to the observer")
	}
}
