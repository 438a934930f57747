// Package anthropic adapts Anthropic's Claude API to completer.Completer
// by forcing a single named tool call rather than leaving tool choice
// open, so Schema always yields a Structured response.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/blueprint-go/completer"
)

// Completer implements completer.Completer against Claude.
type Completer struct {
	apiKey    string
	modelName string
	client    anthropicClient
}

type anthropicClient interface {
	createMessage(ctx context.Context, req completer.Request) (completer.Response, error)
}

// New creates a Completer. An empty modelName selects a current default.
func New(apiKey, modelName string) *Completer {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}
	return &Completer{
		apiKey:    apiKey,
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

// Complete implements completer.Completer.
func (c *Completer) Complete(ctx context.Context, req completer.Request) (completer.Response, error) {
	if ctx.Err() != nil {
		return completer.Response{}, ctx.Err()
	}
	out, err := c.client.createMessage(ctx, req)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return completer.Response{}, apiErr
		}
		return completer.Response{}, err
	}
	return out, nil
}

type defaultClient struct {
	apiKey    string
	modelName string
}

// toolName is the synthetic single-tool name used to bind Schema as a
// forced tool call, so the response's tool_use block carries Structured.
const toolName = "emit_structured_output"

func (c *defaultClient) createMessage(ctx context.Context, req completer.Request) (completer.Response, error) {
	if c.apiKey == "" {
		return completer.Response{}, errors.New("anthropic API key is required")
	}

	client := anthropicsdk.NewClient(option.WithAPIKey(c.apiKey))

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.modelName),
		Messages:  []anthropicsdk.MessageParam{anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.Prompt))},
		MaxTokens: 4096,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropicsdk.Float(req.Temperature)
	}
	if req.Schema != nil {
		params.Tools = []anthropicsdk.ToolUnionParam{schemaAsTool(req.Schema)}
		params.ToolChoice = anthropicsdk.ToolChoiceUnionParam{
			OfTool: &anthropicsdk.ToolChoiceToolParam{Name: toolName},
		}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return completer.Response{}, fmt.Errorf("anthropic API error: %w", err)
	}
	return convertResponse(resp), nil
}

func schemaAsTool(schema map[string]any) anthropicsdk.ToolUnionParam {
	var properties any
	var required []string
	if props, ok := schema["properties"]; ok {
		properties = props
	}
	switch r := schema["required"].(type) {
	case []string:
		required = r
	case []interface{}:
		for _, v := range r {
			if s, ok := v.(string); ok {
				required = append(required, s)
			}
		}
	}
	return anthropicsdk.ToolUnionParam{
		OfTool: &anthropicsdk.ToolParam{
			Name:        toolName,
			Description: anthropicsdk.String("Emit the structured arguments requested by the prompt."),
			InputSchema: anthropicsdk.ToolInputSchemaParam{Properties: properties, Required: required},
		},
	}
}

func convertResponse(resp *anthropicsdk.Message) completer.Response {
	out := completer.Response{}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			if out.Content != "" {
				out.Content += "\n"
			}
			out.Content += b.Text
		case anthropicsdk.ToolUseBlock:
			if b.Name == toolName {
				out.Structured = asObject(b.Input)
			}
		}
	}
	return out
}

func asObject(input any) map[string]any {
	if m, ok := input.(map[string]any); ok {
		return m
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

type apiError struct {
	Type    string
	Message string
}

func (e *apiError) Error() string { return e.Type + ": " + e.Message }
