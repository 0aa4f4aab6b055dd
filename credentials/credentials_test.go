package credentials

import (
	"context"
	"errors"
	"testing"
)

func TestEnvStore_ResolvesPrefixedUppercaseName(t *testing.T) {
	t.Setenv("AGENTGRAPH_OPENAI_API_KEY", "sk-test-123")
	s := NewEnvStore("agentgraph")

	v, err := s.Get(context.Background(), "openai-api-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "sk-test-123" {
		t.Errorf("expected sk-test-123, got %q", v)
	}
}

func TestEnvStore_NoPrefix(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-456")
	s := NewEnvStore("")

	v, err := s.Get(context.Background(), "openai_api_key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "sk-test-456" {
		t.Errorf("expected sk-test-456, got %q", v)
	}
}

func TestEnvStore_MissingReturnsErrNotFound(t *testing.T) {
	s := NewEnvStore("agentgraph")
	_, err := s.Get(context.Background(), "definitely_not_set")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEnvStore_EmptyValueTreatedAsMissing(t *testing.T) {
	t.Setenv("AGENTGRAPH_EMPTY_KEY", "")
	s := NewEnvStore("agentgraph")
	_, err := s.Get(context.Background(), "empty_key")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty value, got %v", err)
	}
}
