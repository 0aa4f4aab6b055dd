// Package anthropic adapts Anthropic's Claude API to the llm.Provider
// contract.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentgraph/agentgraph/llm"
)

// Provider implements llm.Provider against Claude models.
type Provider struct {
	apiKey    string
	modelName string
	client    apiClient
}

// apiClient is narrowed to the single operation needed, so tests can
// substitute a fake without touching the real SDK.
type apiClient interface {
	createMessage(ctx context.Context, system string, messages []llm.Message, maxTokens int, tools []llm.ToolSpec) (llm.CompleteResult, error)
}

// New returns a Provider for the given model (empty uses a default).
func New(apiKey, modelName string) *Provider {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}
	return &Provider{
		apiKey:    apiKey,
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

func (p *Provider) Complete(ctx context.Context, messages []llm.Message, system string, maxTokens int, tools []llm.ToolSpec) (llm.CompleteResult, error) {
	if err := ctx.Err(); err != nil {
		return llm.CompleteResult{}, err
	}
	out, err := p.client.createMessage(ctx, system, messages, maxTokens, tools)
	if err != nil {
		return llm.CompleteResult{}, err
	}
	out.Model = p.modelName
	return out, nil
}

var _ llm.Provider = (*Provider)(nil)

type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createMessage(ctx context.Context, system string, messages []llm.Message, maxTokens int, tools []llm.ToolSpec) (llm.CompleteResult, error) {
	if c.apiKey == "" {
		return llm.CompleteResult{}, errors.New("anthropic: API key is required")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	client := anthropicsdk.NewClient(option.WithAPIKey(c.apiKey))

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.modelName),
		Messages:  convertMessages(messages),
		MaxTokens: int64(maxTokens),
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompleteResult{}, fmt.Errorf("anthropic: %w", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(messages []llm.Message) []anthropicsdk.MessageParam {
	result := make([]anthropicsdk.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleAssistant:
			result = append(result, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content)))
		case llm.RoleSystem:
			// system prompts are passed via params.System, not the message list
			continue
		default:
			result = append(result, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content)))
		}
	}
	return result
}

func convertTools(tools []llm.ToolSpec) []anthropicsdk.ToolUnionParam {
	result := make([]anthropicsdk.ToolUnionParam, len(tools))
	for i, tool := range tools {
		var properties any
		var required []string
		if tool.Schema != nil {
			if props, ok := tool.Schema["properties"]; ok {
				properties = props
			}
			if req, ok := tool.Schema["required"].([]string); ok {
				required = req
			}
		}
		result[i] = anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        tool.Name,
				Description: anthropicsdk.String(tool.Description),
				InputSchema: anthropicsdk.ToolInputSchemaParam{Properties: properties, Required: required},
			},
		}
	}
	return result
}

func convertResponse(resp *anthropicsdk.Message) llm.CompleteResult {
	var out llm.CompleteResult
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			if out.Content != "" {
				out.Content += "\n"
			}
			out.Content += b.Text
		case anthropicsdk.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: asMap(b.Input),
			})
		}
	}
	out.Usage = llm.Usage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	return out
}

func asMap(input interface{}) map[string]interface{} {
	if m, ok := input.(map[string]interface{}); ok {
		return m
	}
	if input == nil {
		return nil
	}
	return map[string]interface{}{"_raw": input}
}
