// Package mock provides a deterministic llm.Provider for tests and
// replay wrappers, so the executor can be exercised without a live SDK.
package mock

import (
	"context"
	"sync"

	"github.com/agentgraph/agentgraph/llm"
)

// Call records a single invocation of Provider.Complete.
type Call struct {
	Messages  []llm.Message
	System    string
	MaxTokens int
	Tools     []llm.ToolSpec
}

// Provider returns a configured sequence of responses, repeating the last
// one once exhausted. Thread-safe.
type Provider struct {
	Responses []llm.CompleteResult
	Err       error

	mu    sync.Mutex
	Calls []Call
	index int
}

var _ llm.Provider = (*Provider)(nil)

func (p *Provider) Complete(ctx context.Context, messages []llm.Message, system string, maxTokens int, tools []llm.ToolSpec) (llm.CompleteResult, error) {
	if err := ctx.Err(); err != nil {
		return llm.CompleteResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, Call{Messages: messages, System: system, MaxTokens: maxTokens, Tools: tools})

	if p.Err != nil {
		return llm.CompleteResult{}, p.Err
	}
	if len(p.Responses) == 0 {
		return llm.CompleteResult{}, nil
	}

	idx := p.index
	if idx >= len(p.Responses) {
		idx = len(p.Responses) - 1
	} else {
		p.index++
	}
	return p.Responses[idx], nil
}

// CallCount returns the number of completions observed so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears call history and rewinds to the first configured response.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
	p.index = 0
}
