package trace

import (
	"testing"
	"time"
)

func TestSQLiteArchive_StoreLoadRoundTrip(t *testing.T) {
	a, err := NewSQLiteArchive(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteArchive: %v", err)
	}
	defer a.Close()

	tr := ExecutionTrace{
		RunID: "run_1",
		Summary: Summary{
			RunID:     "run_1",
			GraphID:   "graph_1",
			StartedAt: time.Now().UTC(),
			EndedAt:   time.Now().UTC(),
			Outcome:   "success",
		},
	}
	if err := a.Store(tr); err != nil {
		t.Fatalf("Store: %v", err)
	}

	loaded, err := a.Load("run_1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Summary.GraphID != "graph_1" || loaded.Summary.Outcome != "success" {
		t.Errorf("loaded trace mismatch: %+v", loaded.Summary)
	}
}

func TestSQLiteArchive_StoreIsUpsert(t *testing.T) {
	a, err := NewSQLiteArchive(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteArchive: %v", err)
	}
	defer a.Close()

	tr := ExecutionTrace{RunID: "run_1", Summary: Summary{Outcome: "failed"}}
	if err := a.Store(tr); err != nil {
		t.Fatalf("Store: %v", err)
	}
	tr.Summary.Outcome = "success"
	if err := a.Store(tr); err != nil {
		t.Fatalf("Store (update): %v", err)
	}

	loaded, err := a.Load("run_1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Summary.Outcome != "success" {
		t.Errorf("expected updated outcome, got %q", loaded.Summary.Outcome)
	}
}

func TestSQLiteArchive_LoadMissingReturnsError(t *testing.T) {
	a, err := NewSQLiteArchive(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteArchive: %v", err)
	}
	defer a.Close()

	if _, err := a.Load("does-not-exist"); err == nil {
		t.Fatal("expected error for missing trace")
	}
}
