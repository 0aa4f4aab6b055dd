package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Dispatch resolves call.ToolName in r and executes it. An unknown name
// yields a standard error Result rather than a Go error, matching the
// tool executor contract: callers never need a type switch to tell a
// registry miss from an application error.
func (r *Registry) Dispatch(ctx context.Context, call Call) Result {
	t, ok := r.Lookup(call.ToolName)
	if !ok {
		return Result{Content: fmt.Sprintf("unknown tool: %s", call.ToolName), IsError: true}
	}

	output, err := t.Call(ctx, call.Input)
	if err != nil {
		return Result{Content: err.Error(), IsError: true}
	}

	content, err := json.Marshal(output)
	if err != nil {
		return Result{Content: fmt.Sprintf("failed to encode tool output: %v", err), IsError: true}
	}
	return Result{Content: string(content)}
}
