// Package google adapts Google's Gemini API to the llm.Provider contract.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/agentgraph/agentgraph/llm"
)

// Provider implements llm.Provider against Gemini models.
type Provider struct {
	apiKey    string
	modelName string
	client    apiClient
}

type apiClient interface {
	generateContent(ctx context.Context, system string, messages []llm.Message, maxTokens int, tools []llm.ToolSpec) (llm.CompleteResult, error)
}

// New returns a Provider for the given model (empty uses a default).
func New(apiKey, modelName string) *Provider {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
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
	out, err := p.client.generateContent(ctx, system, messages, maxTokens, tools)
	if err != nil {
		var safetyErr *SafetyFilterError
		if errors.As(err, &safetyErr) {
			return llm.CompleteResult{}, safetyErr
		}
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

func (c *defaultClient) generateContent(ctx context.Context, system string, messages []llm.Message, maxTokens int, tools []llm.ToolSpec) (llm.CompleteResult, error) {
	if c.apiKey == "" {
		return llm.CompleteResult{}, errors.New("google: API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return llm.CompleteResult{}, fmt.Errorf("google: create client: %w", err)
	}
	defer client.Close()

	genModel := client.GenerativeModel(c.modelName)
	if system != "" {
		genModel.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	if maxTokens > 0 {
		genModel.SetMaxOutputTokens(int32(maxTokens))
	}
	if len(tools) > 0 {
		genModel.Tools = convertTools(tools)
	}

	resp, err := genModel.GenerateContent(ctx, convertMessages(messages)...)
	if err != nil {
		return llm.CompleteResult{}, fmt.Errorf("google: %w", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(messages []llm.Message) []genai.Part {
	var parts []genai.Part
	for _, msg := range messages {
		if msg.Content != "" {
			parts = append(parts, genai.Text(msg.Content))
		}
	}
	return parts
}

func convertTools(tools []llm.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, tool := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  convertSchema(tool.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func convertSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}
	result := &genai.Schema{Type: genai.TypeObject}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		properties := make(map[string]*genai.Schema, len(props))
		for key, val := range props {
			propMap, ok := val.(map[string]interface{})
			if !ok {
				continue
			}
			propSchema := &genai.Schema{}
			if typeStr, ok := propMap["type"].(string); ok {
				propSchema.Type = convertType(typeStr)
			}
			if desc, ok := propMap["description"].(string); ok {
				propSchema.Description = desc
			}
			properties[key] = propSchema
		}
		result.Properties = properties
	}

	switch req := schema["required"].(type) {
	case []string:
		result.Required = req
	case []interface{}:
		required := make([]string, 0, len(req))
		for _, v := range req {
			if s, ok := v.(string); ok {
				required = append(required, s)
			}
		}
		result.Required = required
	}
	return result
}

func convertType(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func convertResponse(resp *genai.GenerateContentResponse) llm.CompleteResult {
	var out llm.CompleteResult
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Content != "" {
				out.Content += "\n"
			}
			out.Content += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{Name: p.Name, Input: p.Args})
		}
	}

	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out
}

// SafetyFilterError reports that Gemini blocked content for safety reasons.
type SafetyFilterError struct {
	Reason   string
	Category string
}

func (e *SafetyFilterError) Error() string {
	return fmt.Sprintf("google: content blocked (%s: %s)", e.Reason, e.Category)
}
