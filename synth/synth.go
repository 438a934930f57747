// Package synth implements the Argument Synthesizer: it turns a tool's
// schema, the task, and the last two tool results into a validated
// argument mapping via a completer.Completer structured-output call.
package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/blueprint-go/completer"
	"github.com/dshills/blueprint-go/registry"
	"github.com/dshills/blueprint-go/state"
)

// Synthesizer produces args for a tool call.
type Synthesizer struct {
	Completer completer.Completer
}

// New builds a Synthesizer over the given Completer.
func New(c completer.Completer) *Synthesizer {
	return &Synthesizer{Completer: c}
}

// Synthesize builds a completion prompt and extracts structured tool
// arguments from the response. It never returns an error value of its
// own: a Completer failure or an empty structured response is instead
// signalled by ok=false, leaving the caller to record an
// ArgsSynthesisFailed result and skip invoking the tool rather than
// calling it with a fabricated empty argument set.
func (s *Synthesizer) Synthesize(ctx context.Context, tool registry.ToolDescriptor, task string, results []state.ToolExecutionResult) (args map[string]any, ok bool) {
	prompt := buildPrompt(tool, task, results)

	resp, err := s.Completer.Complete(ctx, completer.Request{
		Prompt:      prompt,
		Schema:      tool.Schema,
		Temperature: 0,
	})
	if err != nil || resp.Structured == nil {
		return map[string]any{}, false
	}
	return validate(resp.Structured, tool.Schema), true
}

// buildPrompt renders the task, the last-two-results context, the tool's
// name and description, and, for chart_*/pdf_* tools, the advisory
// structural-field instructions.
func buildPrompt(tool registry.ToolDescriptor, task string, results []state.ToolExecutionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", task)

	ctx := renderContext(results)
	if ctx != "" {
		fmt.Fprintf(&b, "Context:\n%s\n\n", ctx)
	}

	fmt.Fprintf(&b, "Tool: %s\nDescription: %s\n", tool.Name, tool.Description)

	if edge := edgePolicy(tool.Name); edge != "" {
		b.WriteString("\n" + edge + "\n")
	}
	return b.String()
}

// renderContext implements the "last two entries of tool_execution_results
// rendered as short text" contract.
func renderContext(results []state.ToolExecutionResult) string {
	start := 0
	if len(results) > 2 {
		start = len(results) - 2
	}
	var lines []string
	for _, r := range results[start:] {
		lines = append(lines, fmt.Sprintf("Tool: %s\nArgs: %v\nResult: %v", r.Tool, r.Args, r.Result))
	}
	return strings.Join(lines, "\n---\n")
}

// edgePolicy returns the advisory instruction text for chart_/pdf_ tools.
// These are prompt additions only, never schema changes.
func edgePolicy(toolName string) string {
	switch {
	case strings.HasPrefix(toolName, "chart_"):
		return "Include the required structural field \"data\" as an array of labeled values."
	case strings.HasPrefix(toolName, "pdf_"):
		return "Include the required structural field \"report_content\", substituting any {placeholder} tokens the task implies."
	default:
		return ""
	}
}

// validate keeps only the keys present in schema's properties, matching
// the contract that returned args are "a subset of the tool's schema".
func validate(structured map[string]any, schema registry.Schema) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	if props == nil {
		return structured
	}
	out := make(map[string]any, len(structured))
	for k, v := range structured {
		if _, ok := props[k]; ok {
			out[k] = v
		}
	}
	return out
}
