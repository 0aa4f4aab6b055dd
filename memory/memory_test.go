package memory

import (
	"errors"
	"strings"
	"testing"

	"github.com/agentgraph/agentgraph/guardrail"
)

func TestSharedMemory_WriteRead(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		m := New(nil)
		if err := m.Write("topic", "robots", true); err != nil {
			t.Fatalf("write: %v", err)
		}
		v, ok := m.Read("topic")
		if !ok {
			t.Fatal("expected key to be present")
		}
		if v != "robots" {
			t.Errorf("expected %q, got %v", "robots", v)
		}
	})

	t.Run("absent key", func(t *testing.T) {
		m := New(nil)
		if _, ok := m.Read("missing"); ok {
			t.Error("expected absent key to report not-present")
		}
	})

	t.Run("overwrite replaces prior value", func(t *testing.T) {
		m := New(nil)
		_ = m.Write("count", 1, true)
		_ = m.Write("count", 2, true)
		v, _ := m.Read("count")
		if v != 2 {
			t.Errorf("expected 2, got %v", v)
		}
	})
}

func TestSharedMemory_ReadAllIsDeepCopy(t *testing.T) {
	m := New(nil)
	_ = m.Write("nested", map[string]interface{}{"a": []interface{}{1, 2, 3}}, true)

	snap1 := m.ReadAll()
	nested := snap1["nested"].(map[string]interface{})
	nested["a"].([]interface{})[0] = 999
	nested["injected"] = "should not leak"

	snap2 := m.ReadAll()
	nested2 := snap2["nested"].(map[string]interface{})
	if nested2["a"].([]interface{})[0] != 1 {
		t.Errorf("mutating a prior snapshot affected the store: got %v", nested2["a"])
	}
	if _, ok := nested2["injected"]; ok {
		t.Error("mutating a prior snapshot leaked a new key into the store")
	}
}

func TestSharedMemory_SchemaValidation(t *testing.T) {
	schemas := NewSchemaRegistry()
	err := schemas.Register("age", []byte(`{"type": "integer", "minimum": 0}`))
	if err != nil {
		t.Fatalf("register schema: %v", err)
	}
	m := New(schemas)

	if err := m.Write("age", 30, true); err != nil {
		t.Errorf("expected valid write to succeed, got %v", err)
	}

	err = m.Write("age", -5, true)
	if err == nil {
		t.Fatal("expected schema violation to be rejected")
	}
	writeErr, ok := err.(*WriteError)
	if !ok {
		t.Fatalf("expected *WriteError, got %T", err)
	}
	if writeErr.Tag != TagSchemaMismatch {
		t.Errorf("expected tag %q, got %q", TagSchemaMismatch, writeErr.Tag)
	}

	if err := m.Write("age", "thirty", true); err == nil {
		t.Error("expected wrong-type write to be rejected")
	}
}

func TestSharedMemory_ValidateFalseBypassesChecks(t *testing.T) {
	schemas := NewSchemaRegistry()
	_ = schemas.Register("age", []byte(`{"type": "integer"}`))
	m := New(schemas)

	if err := m.Write("age", "not an int", false); err != nil {
		t.Errorf("expected validate=false to bypass schema check, got %v", err)
	}
}

func TestSharedMemory_HallucinationGuard(t *testing.T) {
	t.Run("short string never scanned", func(t *testing.T) {
		m := New(nil)
		short := "```python\ndef f(): pass\n```"
		if err := m.Write("note", short, true); err != nil {
			t.Errorf("expected short string to bypass the scan regardless of content, got %v", err)
		}
	})

	t.Run("long prose passes", func(t *testing.T) {
		m := New(nil)
		prose := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 200)
		if err := m.Write("summary", prose, true); err != nil {
			t.Errorf("expected long prose to pass, got %v", err)
		}
	})

	t.Run("long string with code fence at start is rejected", func(t *testing.T) {
		m := New(nil)
		padding := strings.Repeat("x", hallucinationScanThreshold+1)
		value := "```\ndef handler():\n    pass\n```\n" + padding
		err := m.Write("answer", value, true)
		if err == nil {
			t.Fatal("expected code indicator to be rejected")
		}
		writeErr, ok := err.(*WriteError)
		if !ok || writeErr.Tag != TagHallucinatedCode {
			t.Fatalf("expected hallucinated-code tag, got %v", err)
		}
	})

	t.Run("code buried past the sampling threshold is still caught", func(t *testing.T) {
		m := New(nil)
		prefix := strings.Repeat("a", hallucinationSampleThreshold+5000)
		buried := prefix + "\nimport os\nclass Handler:\n    pass\n" + strings.Repeat("b", 1000)
		if err := m.Write("answer", buried, true); err == nil {
			t.Error("expected a code indicator deep inside a long value to still be detected via sampling")
		}
	})
}

func TestSharedMemory_ScopedView(t *testing.T) {
	m := New(nil)
	_ = m.Write("public", "visible", true)
	_ = m.Write("secret", "hidden", true)

	view := m.WithPermissions([]string{"public"}, []string{"public"})

	t.Run("read within scope", func(t *testing.T) {
		v, err := view.Read("public")
		if err != nil {
			t.Fatalf("expected read to succeed, got %v", err)
		}
		if v != "visible" {
			t.Errorf("expected %q, got %v", "visible", v)
		}
	})

	t.Run("read outside scope denied", func(t *testing.T) {
		_, err := view.Read("secret")
		if err == nil {
			t.Fatal("expected read outside scope to be denied")
		}
		if _, ok := err.(*PermissionDeniedError); !ok {
			t.Errorf("expected *PermissionDeniedError, got %T", err)
		}
	})

	t.Run("write outside scope denied", func(t *testing.T) {
		err := view.Write("secret", "overwritten", true)
		if err == nil {
			t.Fatal("expected write outside scope to be denied")
		}
		v, _ := m.Read("secret")
		if v != "hidden" {
			t.Error("denied write must not mutate the backing store")
		}
	})

	t.Run("write within scope is visible to the backing store", func(t *testing.T) {
		if err := view.Write("public", "updated", true); err != nil {
			t.Fatalf("expected write to succeed, got %v", err)
		}
		v, _ := m.Read("public")
		if v != "updated" {
			t.Errorf("expected backing store to see %q, got %v", "updated", v)
		}
	})

	t.Run("read all restricted to readable keys", func(t *testing.T) {
		snap := view.ReadAll()
		if _, ok := snap["secret"]; ok {
			t.Error("expected ReadAll to omit keys outside the view's read scope")
		}
		if _, ok := snap["public"]; !ok {
			t.Error("expected ReadAll to include keys within the view's read scope")
		}
	})
}

func TestSharedMemory_ScopedViewIsolationDenylist(t *testing.T) {
	m := New(nil)
	_ = m.Write("public", "visible", true)
	_ = m.Write("secret_token", "hidden", true)

	view := m.WithPermissions([]string{"public", "secret_token"}, nil).
		WithIsolation(guardrail.IsolationPolicy{DeniedKeyPatterns: []string{"secret_*"}}, "session-1")

	t.Run("denylisted key is denied even though it is within the view's scope", func(t *testing.T) {
		_, err := view.Read("secret_token")
		if err == nil {
			t.Fatal("expected a denylisted key to be denied")
		}
		var pd *PermissionDeniedError
		if !errors.As(err, &pd) || pd.Reason == "" {
			t.Errorf("expected a PermissionDeniedError carrying a reason, got %v", err)
		}
	})

	t.Run("non-denylisted key still reads normally", func(t *testing.T) {
		v, err := view.Read("public")
		if err != nil {
			t.Fatalf("expected read to succeed, got %v", err)
		}
		if v != "visible" {
			t.Errorf("expected %q, got %v", "visible", v)
		}
	})

	t.Run("read all omits the denylisted key", func(t *testing.T) {
		snap := view.ReadAll()
		if _, ok := snap["secret_token"]; ok {
			t.Error("expected ReadAll to omit a denylisted key")
		}
		if _, ok := snap["public"]; !ok {
			t.Error("expected ReadAll to still include a non-denylisted key")
		}
	})
}
