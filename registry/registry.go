// Package registry defines the Tool Registry & Session surface: a typed
// Invoke(name, args) over one or more tool providers, and the scoped
// resource lifecycle (acquire connects, release disconnects) that owns
// it for the duration of a blueprint run.
package registry

import (
	"context"
	"fmt"
)

// Schema is a tool's argument schema: a JSON-Schema-shaped object with
// "properties" and "required", the same shape the Synthesizer binds a
// Completer call to.
type Schema map[string]any

// ToolDescriptor is a named, schema-typed operation exposed by a provider.
type ToolDescriptor struct {
	Name        string
	Description string
	Schema      Schema
}

// Provider is anything Session.Open can connect to: a subprocess speaking
// the MCP-style initialize/list_tools/call_tool protocol (registry/mcp),
// or an in-process tool set (registry/builtin). Session multiplexes
// across however many Providers a run needs.
type Provider interface {
	// Connect establishes the provider connection. Called once by
	// Session.Open; Session.Close calls Disconnect exactly once for
	// every Provider successfully connected.
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// ListTools snapshots the provider's currently advertised tools.
	ListTools(ctx context.Context) ([]ToolDescriptor, error)

	// CallTool invokes name with args, returning the structured result.
	// An error reached after the tool itself ran — a protocol-level
	// error response, a failed validation, a non-zero exit from the
	// tool's own logic — must be a *ToolError so Session.Invoke can tell
	// it apart from a transport/process failure. Any other error is
	// treated as the provider having crashed.
	CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

// ToolError wraps an error a Provider's CallTool got back from the tool
// itself (it ran and reported failure), as distinct from a transport or
// subprocess failure. Session.Invoke maps a ToolError to rerr.ToolFailed
// instead of rerr.ProviderCrashed.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Invoker is the typed surface the Engine depends on; Session implements
// it.
type Invoker interface {
	List() []ToolDescriptor
	Get(name string) (ToolDescriptor, bool)
	Invoke(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}
