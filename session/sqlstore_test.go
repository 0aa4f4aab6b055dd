package session

import (
	"testing"
	"time"
)

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	s := &State{
		SessionID: "session_20260305_143000_deadbeef",
		GoalID:    "goal_1",
		Status:    StatusActive,
		Timestamps: Timestamps{
			StartedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		},
	}
	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(s.SessionID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.GoalID != s.GoalID || loaded.Status != s.Status {
		t.Errorf("loaded state mismatch: %+v", loaded)
	}
}

func TestSQLiteStore_SaveIsUpsert(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	s := &State{SessionID: "session_1", Status: StatusActive}
	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Status = StatusCompleted
	if err := store.Save(s); err != nil {
		t.Fatalf("Save (update): %v", err)
	}

	loaded, err := store.Load("session_1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Status != StatusCompleted {
		t.Errorf("expected updated status, got %q", loaded.Status)
	}
}

func TestSQLiteStore_LoadMissingReturnsErrNotFound(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	_, err = store.Load("does-not-exist")
	if err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestSQLiteStore_ListReturnsSortedIDs(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	for _, id := range []string{"session_b", "session_a", "session_c"} {
		if err := store.Save(&State{SessionID: id}); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"session_a", "session_b", "session_c"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d: %v", len(want), len(ids), ids)
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("index %d: expected %q, got %q", i, id, ids[i])
		}
	}
}

func TestSQLiteStore_CloseIsIdempotent(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close should be a no-op: %v", err)
	}
}

func TestSQLiteStore_OperationsAfterCloseFail(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	store.Close()

	if err := store.Save(&State{SessionID: "x"}); err == nil {
		t.Error("expected Save after Close to fail")
	}
	if _, err := store.Load("x"); err == nil {
		t.Error("expected Load after Close to fail")
	}
}
