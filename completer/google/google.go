// Package google adapts Google's Gemini API to completer.Completer: Schema
// is bound as a single forced function declaration rather than a tool the
// model may or may not call.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/blueprint-go/completer"
)

// Completer implements completer.Completer against the Gemini API.
type Completer struct {
	apiKey    string
	modelName string
	client    googleClient
}

type googleClient interface {
	generateContent(ctx context.Context, req completer.Request) (completer.Response, error)
}

// New creates a Completer. An empty modelName selects a current default.
func New(apiKey, modelName string) *Completer {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
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
	resp, err := c.client.generateContent(ctx, req)
	if err != nil {
		var safetyErr *SafetyFilterError
		if errors.As(err, &safetyErr) {
			return completer.Response{}, handleSafetyFilterError(safetyErr)
		}
		return completer.Response{}, err
	}
	return resp, nil
}

// SafetyFilterError reports that Gemini blocked a response on safety grounds.
type SafetyFilterError struct {
	Reason   string
	Category string
}

func (e *SafetyFilterError) Error() string {
	return fmt.Sprintf("content blocked by safety filter: %s (%s)", e.Category, e.Reason)
}

func handleSafetyFilterError(err *SafetyFilterError) error {
	return err
}

type defaultClient struct {
	apiKey    string
	modelName string
}

// functionName is the synthetic single function declaration Schema is
// bound to, so the response's forced function call carries Structured.
const functionName = "emit_structured_output"

func (c *defaultClient) generateContent(ctx context.Context, req completer.Request) (completer.Response, error) {
	if c.apiKey == "" {
		return completer.Response{}, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return completer.Response{}, fmt.Errorf("failed to create Google client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	genModel := client.GenerativeModel(c.modelName)
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		genModel.Temperature = &temp
	}

	if req.Schema != nil {
		genModel.Tools = []*genai.Tool{
			{
				FunctionDeclarations: []*genai.FunctionDeclaration{
					{
						Name:        functionName,
						Description: "Emit the structured arguments requested by the prompt.",
						Parameters:  convertSchemaToGenai(req.Schema),
					},
				},
			},
		}
		genModel.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingAny,
				AllowedFunctionNames: []string{functionName},
			},
		}
	}

	resp, err := genModel.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return completer.Response{}, fmt.Errorf("google API error: %w", err)
	}
	return convertResponse(resp), nil
}

// convertSchemaToGenai converts a JSON schema map to genai.Schema. Handles
// only object/properties/required/basic scalar types, matching the depth
// our tool schemas actually use.
func convertSchemaToGenai(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	result := &genai.Schema{Type: genai.TypeObject}

	if props, ok := schema["properties"].(map[string]any); ok {
		properties := make(map[string]*genai.Schema, len(props))
		for key, val := range props {
			propMap, ok := val.(map[string]any)
			if !ok {
				continue
			}
			propSchema := &genai.Schema{}
			if typeStr, ok := propMap["type"].(string); ok {
				propSchema.Type = convertTypeString(typeStr)
			}
			if desc, ok := propMap["description"].(string); ok {
				propSchema.Description = desc
			}
			properties[key] = propSchema
		}
		result.Properties = properties
	}

	if required, ok := schema["required"].([]string); ok {
		result.Required = required
	} else if required, ok := schema["required"].([]any); ok {
		requiredStrs := make([]string, 0, len(required))
		for _, v := range required {
			if s, ok := v.(string); ok {
				requiredStrs = append(requiredStrs, s)
			}
		}
		result.Required = requiredStrs
	}

	return result
}

func convertTypeString(typeStr string) genai.Type {
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

func convertResponse(resp *genai.GenerateContentResponse) completer.Response {
	out := completer.Response{}
	if len(resp.Candidates) == 0 {
		return out
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return out
	}

	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Content != "" {
				out.Content += "\n"
			}
			out.Content += string(p)
		case genai.FunctionCall:
			if p.Name == functionName {
				out.Structured = p.Args
			}
		}
	}
	return out
}
