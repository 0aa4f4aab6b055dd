package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestConversationStore_WritePartReadParts(t *testing.T) {
	dir := t.TempDir()
	cs := NewConversationStore(dir, "session_20260305_143000_cafebabe")

	if err := cs.WritePart(0, map[string]string{"role": "user", "text": "hello"}); err != nil {
		t.Fatalf("write part 0: %v", err)
	}
	if err := cs.WritePart(1, map[string]string{"role": "assistant", "text": "hi there"}); err != nil {
		t.Fatalf("write part 1: %v", err)
	}

	parts, err := cs.ReadParts()
	if err != nil {
		t.Fatalf("read parts: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}

	var first map[string]string
	if err := json.Unmarshal(parts[0], &first); err != nil {
		t.Fatalf("unmarshal part 0: %v", err)
	}
	if first["role"] != "user" {
		t.Errorf("expected parts in ascending sequence, first was %v", first)
	}
}

func TestConversationStore_WritePartOverwritesDuplicateSeq(t *testing.T) {
	dir := t.TempDir()
	cs := NewConversationStore(dir, "session_20260305_143000_cafebabe")

	_ = cs.WritePart(0, map[string]string{"text": "first"})
	_ = cs.WritePart(0, map[string]string{"text": "second"})

	parts, err := cs.ReadParts()
	if err != nil {
		t.Fatalf("read parts: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected duplicate sequence to overwrite, got %d parts", len(parts))
	}
	var got map[string]string
	_ = json.Unmarshal(parts[0], &got)
	if got["text"] != "second" {
		t.Errorf("expected overwrite to win, got %v", got)
	}
}

func TestConversationStore_ReadPartsSkipsUnparseable(t *testing.T) {
	dir := t.TempDir()
	cs := NewConversationStore(dir, "session_20260305_143000_cafebabe")
	_ = cs.WritePart(0, map[string]string{"text": "ok"})

	if err := os.MkdirAll(cs.partsDir(), 0o755); err != nil {
		t.Fatalf("mkdir parts dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cs.partsDir(), "0000000001.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("seed bad part: %v", err)
	}

	parts, err := cs.ReadParts()
	if err != nil {
		t.Fatalf("read parts: %v", err)
	}
	if len(parts) != 1 {
		t.Errorf("expected unparseable part to be skipped, got %d parts", len(parts))
	}
}

func TestConversationStore_DeletePartsBefore(t *testing.T) {
	dir := t.TempDir()
	cs := NewConversationStore(dir, "session_20260305_143000_cafebabe")
	for i := 0; i < 5; i++ {
		_ = cs.WritePart(i, map[string]int{"seq": i})
	}

	if err := cs.DeletePartsBefore(3); err != nil {
		t.Fatalf("delete parts before 3: %v", err)
	}
	parts, err := cs.ReadParts()
	if err != nil {
		t.Fatalf("read parts: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts remaining, got %d", len(parts))
	}

	t.Run("idempotent on already-empty ranges", func(t *testing.T) {
		if err := cs.DeletePartsBefore(3); err != nil {
			t.Errorf("expected repeat delete to be a no-op, got %v", err)
		}
	})

	t.Run("idempotent on an empty store", func(t *testing.T) {
		empty := NewConversationStore(t.TempDir(), "session_20260305_143000_deadbeef")
		if err := empty.DeletePartsBefore(10); err != nil {
			t.Errorf("expected delete on empty store to be a no-op, got %v", err)
		}
	})
}

func TestConversationStore_Destroy(t *testing.T) {
	dir := t.TempDir()
	cs := NewConversationStore(dir, "session_20260305_143000_cafebabe")
	_ = cs.WritePart(0, map[string]string{"text": "hi"})

	if err := cs.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	parts, err := cs.ReadParts()
	if err != nil {
		t.Fatalf("read parts after destroy: %v", err)
	}
	if len(parts) != 0 {
		t.Error("expected no parts after destroy")
	}

	t.Run("idempotent when already missing", func(t *testing.T) {
		if err := cs.Destroy(); err != nil {
			t.Errorf("expected destroy on missing dir to be a no-op, got %v", err)
		}
	})
}

func TestConversationStore_Cursor(t *testing.T) {
	dir := t.TempDir()
	cs := NewConversationStore(dir, "session_20260305_143000_cafebabe")

	t.Run("defaults to zero value", func(t *testing.T) {
		cur, err := cs.LoadCursor()
		if err != nil {
			t.Fatalf("load cursor: %v", err)
		}
		if cur.LastSeq != 0 {
			t.Errorf("expected zero-value cursor, got %+v", cur)
		}
	})

	t.Run("round trips a saved cursor", func(t *testing.T) {
		if err := cs.SaveCursor(ConversationCursor{LastSeq: 7}); err != nil {
			t.Fatalf("save cursor: %v", err)
		}
		cur, err := cs.LoadCursor()
		if err != nil {
			t.Fatalf("load cursor: %v", err)
		}
		if cur.LastSeq != 7 {
			t.Errorf("expected last_seq 7, got %d", cur.LastSeq)
		}
	})
}

func TestConversationStore_Close(t *testing.T) {
	cs := NewConversationStore(t.TempDir(), "session_20260305_143000_cafebabe")
	if err := cs.Close(); err != nil {
		t.Errorf("expected close to be a no-op, got %v", err)
	}
}
