// Package openai adapts the OpenAI chat completions API to the
// llm.Provider contract.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/agentgraph/agentgraph/llm"
)

// Provider implements llm.Provider against OpenAI chat models.
type Provider struct {
	apiKey    string
	modelName string
	client    apiClient
}

type apiClient interface {
	createChatCompletion(ctx context.Context, system string, messages []llm.Message, maxTokens int, tools []llm.ToolSpec) (llm.CompleteResult, error)
}

// New returns a Provider for the given model (empty uses a default).
func New(apiKey, modelName string) *Provider {
	if modelName == "" {
		modelName = "gpt-4o"
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
	out, err := p.client.createChatCompletion(ctx, system, messages, maxTokens, tools)
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

func (c *defaultClient) createChatCompletion(ctx context.Context, system string, messages []llm.Message, maxTokens int, tools []llm.ToolSpec) (llm.CompleteResult, error) {
	if c.apiKey == "" {
		return llm.CompleteResult{}, errors.New("openai: API key is required")
	}

	client := openaisdk.NewClient(option.WithAPIKey(c.apiKey))

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.modelName),
		Messages: convertMessages(system, messages),
	}
	if maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(maxTokens))
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.CompleteResult{}, fmt.Errorf("openai: %w", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(system string, messages []llm.Message) []openaisdk.ChatCompletionMessageParamUnion {
	result := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		result = append(result, openaisdk.SystemMessage(system))
	}
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			result = append(result, openaisdk.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			result = append(result, openaisdk.AssistantMessage(msg.Content))
		case llm.RoleTool:
			result = append(result, openaisdk.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			result = append(result, openaisdk.UserMessage(msg.Content))
		}
	}
	return result
}

func convertTools(tools []llm.ToolSpec) []openaisdk.ChatCompletionToolParam {
	result := make([]openaisdk.ChatCompletionToolParam, len(tools))
	for i, tool := range tools {
		result[i] = openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openaisdk.String(tool.Description),
				Parameters:  shared.FunctionParameters(tool.Schema),
			},
		}
	}
	return result
}

func convertResponse(resp *openaisdk.ChatCompletion) llm.CompleteResult {
	var out llm.CompleteResult
	if len(resp.Choices) == 0 {
		return out
	}
	msg := resp.Choices[0].Message
	out.Content = msg.Content

	if len(msg.ToolCalls) > 0 {
		out.ToolCalls = make([]llm.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			out.ToolCalls[i] = llm.ToolCall{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: parseArguments(tc.Function.Arguments),
			}
		}
	}

	out.Usage = llm.Usage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	return out
}

func parseArguments(raw string) map[string]interface{} {
	if raw == "" {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]interface{}{"_raw": raw}
	}
	return m
}
