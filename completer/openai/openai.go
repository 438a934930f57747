// Package openai adapts OpenAI's Chat Completions API to completer.Completer:
// Schema is bound as a single forced function call rather than an optional
// tool the model may or may not invoke.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dshills/blueprint-go/completer"
)

// Completer implements completer.Completer against the Chat Completions API.
type Completer struct {
	apiKey    string
	modelName string
	client    openaiClient
}

type openaiClient interface {
	createChatCompletion(ctx context.Context, req completer.Request) (completer.Response, error)
}

// New creates a Completer. An empty modelName selects a current default.
func New(apiKey, modelName string) *Completer {
	if modelName == "" {
		modelName = "gpt-4o"
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
	return c.client.createChatCompletion(ctx, req)
}

type defaultClient struct {
	apiKey    string
	modelName string
}

// toolName is the synthetic single function name Schema is bound to, so
// the response's forced tool call carries Structured.
const toolName = "emit_structured_output"

func (c *defaultClient) createChatCompletion(ctx context.Context, req completer.Request) (completer.Response, error) {
	if c.apiKey == "" {
		return completer.Response{}, errors.New("OpenAI API key is required")
	}

	client := openaisdk.NewClient(option.WithAPIKey(c.apiKey))

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.modelName),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{openaisdk.UserMessage(req.Prompt)},
	}
	if req.Temperature > 0 {
		params.Temperature = openaisdk.Float(req.Temperature)
	}
	if req.Schema != nil {
		params.Tools = []openaisdk.ChatCompletionToolParam{schemaAsTool(req.Schema)}
		params.ToolChoice = openaisdk.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openaisdk.ChatCompletionNamedToolChoiceParam{
				Function: openaisdk.ChatCompletionNamedToolChoiceFunctionParam{Name: toolName},
			},
		}
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return completer.Response{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	return convertResponse(resp), nil
}

func schemaAsTool(schema map[string]any) openaisdk.ChatCompletionToolParam {
	return openaisdk.ChatCompletionToolParam{
		Function: shared.FunctionDefinitionParam{
			Name:        toolName,
			Description: openaisdk.String("Emit the structured arguments requested by the prompt."),
			Parameters:  shared.FunctionParameters(schema),
		},
	}
}

func convertResponse(resp *openaisdk.ChatCompletion) completer.Response {
	out := completer.Response{}
	if len(resp.Choices) == 0 {
		return out
	}
	msg := resp.Choices[0].Message
	out.Content = msg.Content

	for _, tc := range msg.ToolCalls {
		if tc.Function.Name != toolName {
			continue
		}
		out.Structured = parseArguments(tc.Function.Arguments)
		break
	}
	return out
}

func parseArguments(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}
