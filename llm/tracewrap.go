package llm

import (
	"context"
	"time"
)

// Interaction is one full request/response pair observed through a
// TracingProvider, suitable for handing to an execution trace recorder
// without llm depending on the trace package.
type Interaction struct {
	Model     string
	Messages  []Message
	System    string
	MaxTokens int
	Tools     []ToolSpec
	Result    CompleteResult
	Err       error
	StartedAt time.Time
	LatencyMS int64
}

// Observer receives one Interaction per completion. Implementations must
// not block meaningfully; they run synchronously on the calling goroutine.
type Observer func(Interaction)

// TracingProvider wraps a Provider and reports every request/response pair,
// token usage, latency, and model identity to an Observer.
type TracingProvider struct {
	inner    Provider
	modelTag string
	observe  Observer
	now      func() time.Time
}

// NewTracingProvider wraps inner. modelTag labels interactions in traces
// (typically the configured model identifier); now defaults to time.Now.
func NewTracingProvider(inner Provider, modelTag string, observe Observer) *TracingProvider {
	return &TracingProvider{inner: inner, modelTag: modelTag, observe: observe, now: time.Now}
}

func (p *TracingProvider) Complete(ctx context.Context, messages []Message, system string, maxTokens int, tools []ToolSpec) (CompleteResult, error) {
	start := p.now()
	result, err := p.inner.Complete(ctx, messages, system, maxTokens, tools)
	elapsed := p.now().Sub(start)

	if p.observe != nil {
		p.observe(Interaction{
			Model:     p.modelTag,
			Messages:  messages,
			System:    system,
			MaxTokens: maxTokens,
			Tools:     tools,
			Result:    result,
			Err:       err,
			StartedAt: start,
			LatencyMS: elapsed.Milliseconds(),
		})
	}
	return result, err
}

var _ Provider = (*TracingProvider)(nil)
