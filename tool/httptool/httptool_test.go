package httptool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTool_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	tool := New()
	out, err := tool.Call(context.Background(), map[string]interface{}{"url": srv.URL})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out["status_code"] != http.StatusOK {
		t.Errorf("expected 200, got %v", out["status_code"])
	}
	if out["body"] != "hello" {
		t.Errorf("expected body 'hello', got %v", out["body"])
	}
}

func TestTool_MissingURL(t *testing.T) {
	tool := New()
	_, err := tool.Call(context.Background(), map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestTool_UnsupportedMethod(t *testing.T) {
	tool := New()
	_, err := tool.Call(context.Background(), map[string]interface{}{"url": "http://example.com", "method": "DELETE"})
	if err == nil {
		t.Fatal("expected error for unsupported method")
	}
}
