package llm

import (
	"sync"
	"time"
)

// ModelPricing is the USD cost per 1M input/output tokens for one model.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// defaultPricing lists rates for a fixed set of OpenAI, Anthropic and
// Gemini models. The anthropic and google adapters' default models
// (claude-sonnet-4-5-20250929, gemini-2.5-flash) are not in it and are
// priced at zero unless added with SetPricing. Prices are current as of 2026-01-01
// and drift over time; callers with their own contract rates should use
// CostTracker.SetPricing rather than editing this table.
var defaultPricing = map[string]ModelPricing{
	"gpt-4o":                     {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4o-mini":                {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4-turbo":                {InputPer1M: 10.00, OutputPer1M: 30.00},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.00, OutputPer1M: 15.00},
	"claude-3-opus-20240229":     {InputPer1M: 15.00, OutputPer1M: 75.00},
	"claude-3-haiku-20240307":    {InputPer1M: 0.25, OutputPer1M: 1.25},
	"gemini-1.5-pro":             {InputPer1M: 1.25, OutputPer1M: 5.00},
	"gemini-1.5-flash":           {InputPer1M: 0.075, OutputPer1M: 0.30},
}

// LLMCall is one recorded completion's token usage and attributed cost.
type LLMCall struct {
	Model        string
	NodeID       string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	At           time.Time
}

// CostTracker accumulates per-run LLM spend across every provider call,
// attributed by model and node. A nil *CostTracker is a valid receiver
// for RecordLLMCall, so callers that don't want cost tracking can leave
// it unset.
type CostTracker struct {
	RunID   string
	Pricing map[string]ModelPricing

	mu         sync.Mutex
	calls      []LLMCall
	totalCost  float64
	modelCosts map[string]float64
}

// NewCostTracker constructs a tracker seeded with defaultPricing.
func NewCostTracker(runID string) *CostTracker {
	pricing := make(map[string]ModelPricing, len(defaultPricing))
	for k, v := range defaultPricing {
		pricing[k] = v
	}
	return &CostTracker{
		RunID:      runID,
		Pricing:    pricing,
		modelCosts: make(map[string]float64),
	}
}

// SetPricing overrides or adds a model's per-1M-token rates.
func (ct *CostTracker) SetPricing(model string, p ModelPricing) {
	if ct == nil {
		return
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.Pricing[model] = p
}

// RecordLLMCall attributes inputTokens/outputTokens to model and nodeID,
// pricing an unknown model at zero cost rather than erroring, since a
// missing price shouldn't block the run it's attached to.
func (ct *CostTracker) RecordLLMCall(model, nodeID string, inputTokens, outputTokens int, now time.Time) {
	if ct == nil {
		return
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()

	pricing := ct.Pricing[model]
	cost := (float64(inputTokens)/1_000_000.0)*pricing.InputPer1M + (float64(outputTokens)/1_000_000.0)*pricing.OutputPer1M

	ct.calls = append(ct.calls, LLMCall{
		Model: model, NodeID: nodeID, InputTokens: inputTokens, OutputTokens: outputTokens, CostUSD: cost, At: now,
	})
	ct.totalCost += cost
	ct.modelCosts[model] += cost
}

// TotalCost returns the cumulative USD cost across every recorded call.
func (ct *CostTracker) TotalCost() float64 {
	if ct == nil {
		return 0
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.totalCost
}

// CostByModel returns a copy of the per-model cost breakdown.
func (ct *CostTracker) CostByModel() map[string]float64 {
	if ct == nil {
		return nil
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	out := make(map[string]float64, len(ct.modelCosts))
	for k, v := range ct.modelCosts {
		out[k] = v
	}
	return out
}

// Calls returns a copy of every recorded LLM invocation, in order.
func (ct *CostTracker) Calls() []LLMCall {
	if ct == nil {
		return nil
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	out := make([]LLMCall, len(ct.calls))
	copy(out, ct.calls)
	return out
}
