// Package mocktool provides a scriptable tool.Tool for tests.
package mocktool

import (
	"context"
	"sync"
)

// Tool returns a fixed output/error pair and records every call it sees.
type Tool struct {
	ToolName string
	Output   map[string]interface{}
	Err      error

	mu    sync.Mutex
	Calls []map[string]interface{}
}

func (t *Tool) Name() string { return t.ToolName }

func (t *Tool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	t.mu.Lock()
	t.Calls = append(t.Calls, input)
	t.mu.Unlock()

	if t.Err != nil {
		return nil, t.Err
	}
	return t.Output, nil
}

// CallCount returns how many times Call has been invoked.
func (t *Tool) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
