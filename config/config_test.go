package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithNoFileOrEnv(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultModelProvider != "anthropic" {
		t.Errorf("expected default provider anthropic, got %q", cfg.DefaultModelProvider)
	}
	if cfg.VectorBackend != VectorBackendMemory {
		t.Errorf("expected default vector backend memory, got %q", cfg.VectorBackend)
	}
	if cfg.ApprovalTimeout != 5*time.Minute {
		t.Errorf("expected default approval timeout 5m, got %v", cfg.ApprovalTimeout)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	contents := "default_model_provider: openai\nvector_backend: pgvector\napproval_timeout: 30s\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultModelProvider != "openai" {
		t.Errorf("expected provider openai, got %q", cfg.DefaultModelProvider)
	}
	if cfg.VectorBackend != VectorBackendPGVector {
		t.Errorf("expected vector backend pgvector, got %q", cfg.VectorBackend)
	}
	if cfg.ApprovalTimeout != 30*time.Second {
		t.Errorf("expected approval timeout 30s, got %v", cfg.ApprovalTimeout)
	}
	if cfg.SessionBackend != SessionBackendMemory {
		t.Errorf("expected unset session_backend to keep default memory, got %q", cfg.SessionBackend)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte("default_model_provider: openai\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	os.Setenv("AGENTGRAPH_DEFAULT_MODEL_PROVIDER", "google")
	defer os.Unsetenv("AGENTGRAPH_DEFAULT_MODEL_PROVIDER")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultModelProvider != "google" {
		t.Errorf("expected env to win over file, got %q", cfg.DefaultModelProvider)
	}
}

func TestLoad_MissingExplicitFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
