// Package builtin is an in-process registry.Provider exposing chart_* and
// pdf_* tools directly, giving the Synthesizer's chart_/pdf_ prefix edge
// policies a real target to exercise without a subprocess.
package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/blueprint-go/registry"
)

// Func is one built-in tool's implementation.
type Func func(ctx context.Context, args map[string]any) (map[string]any, error)

// Provider exposes a fixed, in-process tool set.
type Provider struct {
	descriptors []registry.ToolDescriptor
	funcs       map[string]Func
}

// New returns a Provider pre-registered with the chart_bar and pdf_report
// tools. Connect/Disconnect are no-ops; there is no subprocess to manage.
func New() *Provider {
	p := &Provider{funcs: map[string]Func{}}
	p.register(chartBarDescriptor(), chartBar)
	p.register(pdfReportDescriptor(), pdfReport)
	return p
}

func (p *Provider) register(d registry.ToolDescriptor, fn Func) {
	p.descriptors = append(p.descriptors, d)
	p.funcs[d.Name] = fn
}

// Connect implements registry.Provider.
func (p *Provider) Connect(ctx context.Context) error { return nil }

// Disconnect implements registry.Provider.
func (p *Provider) Disconnect(ctx context.Context) error { return nil }

// ListTools implements registry.Provider.
func (p *Provider) ListTools(ctx context.Context) ([]registry.ToolDescriptor, error) {
	return append([]registry.ToolDescriptor{}, p.descriptors...), nil
}

// CallTool implements registry.Provider. A failure from the tool's own
// logic (a missing required field, say) is reported as a
// *registry.ToolError so Session.Invoke classifies it as ToolFailed
// rather than a provider crash.
func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	fn, ok := p.funcs[name]
	if !ok {
		return nil, fmt.Errorf("builtin tool %q not found", name)
	}
	result, err := fn(ctx, args)
	if err != nil {
		return nil, &registry.ToolError{Tool: name, Err: err}
	}
	return result, nil
}

func chartBarDescriptor() registry.ToolDescriptor {
	return registry.ToolDescriptor{
		Name:        "chart_bar",
		Description: "Renders a bar chart from a data series.",
		Schema: registry.Schema{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
				"data": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"label": map[string]any{"type": "string"},
							"value": map[string]any{"type": "number"},
						},
						"required": []string{"label", "value"},
					},
				},
			},
			"required": []string{"data"},
		},
	}
}

// chartBar is a structural stand-in for a chart renderer: it validates
// the required "data" field is present and shaped as expected and
// returns a descriptor of what would be rendered. Actual image
// rendering is an artifact-storage concern, out of scope here.
func chartBar(ctx context.Context, args map[string]any) (map[string]any, error) {
	data, ok := args["data"].([]any)
	if !ok || len(data) == 0 {
		return nil, fmt.Errorf("chart_bar: missing or empty required field %q", "data")
	}
	title, _ := args["title"].(string)
	return map[string]any{
		"rendered":    true,
		"title":       title,
		"point_count": len(data),
	}, nil
}

func pdfReportDescriptor() registry.ToolDescriptor {
	return registry.ToolDescriptor{
		Name:        "pdf_report",
		Description: "Renders a PDF report from templated content.",
		Schema: registry.Schema{
			"type": "object",
			"properties": map[string]any{
				"report_content": map[string]any{"type": "string"},
				"placeholders":   map[string]any{"type": "object"},
			},
			"required": []string{"report_content"},
		},
	}
}

// pdfReport substitutes "{placeholder}" tokens in report_content from the
// placeholders map.
func pdfReport(ctx context.Context, args map[string]any) (map[string]any, error) {
	content, ok := args["report_content"].(string)
	if !ok || content == "" {
		return nil, fmt.Errorf("pdf_report: missing or empty required field %q", "report_content")
	}
	placeholders, _ := args["placeholders"].(map[string]any)
	for k, v := range placeholders {
		content = strings.ReplaceAll(content, "{"+k+"}", fmt.Sprintf("%v", v))
	}
	return map[string]any{
		"rendered": true,
		"content":  content,
	}, nil
}
