// Package completer defines the structured-output language-model contract
// consumed by the Argument Synthesizer and the Colleagues Reviewer.
//
// The model itself is out of scope: this package only pins the interface
// as the boundary and leaves provider wiring to adapter subpackages
// (completer/anthropic, completer/openai, completer/google).
package completer

import "context"

// Request is one structured-output call.
type Request struct {
	// Prompt is the full rendered prompt text.
	Prompt string

	// Schema binds the response to a tool's argument schema
	// ({"type":"object","properties":{...},"required":[...]}). Nil means
	// free-text mode: only Content is meaningful in the Response.
	Schema map[string]any

	// Temperature controls sampling; callers compute it from the current
	// iteration depth (level/max_depth for analyses, 0.1×level/max_depth
	// for the judge).
	Temperature float64
}

// Response is the result of a Complete call.
type Response struct {
	// Content is the raw text of the completion.
	Content string

	// Structured is the extracted object honoring Schema's required set,
	// or nil if the model could not produce one (implementations must
	// return nil rather than a partial object that violates Required).
	Structured map[string]any
}

// Completer is the opaque structured-output language model used by the
// Synthesizer and the Reviewer. Implementations must honor ctx
// cancellation. The engine applies its per-call timeout
// (COMPLETER_TIMEOUT_MS, default 30s) around the Synthesizer's Complete
// call only; the Reviewer's analysis and judge calls run under the run's
// own context, with no per-call deadline.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
