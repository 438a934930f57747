// Package mcp adapts a subprocess speaking the Model Context Protocol
// into a registry.Provider: initialize -> list_tools -> call_tool over
// the child's stdio, multiplexed by the official SDK's client session.
// Ported from the jarvis-term-llm internal/mcp.Client connection pattern.
package mcp

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dshills/blueprint-go/registry"
)

// ServerConfig describes how to launch one provider subprocess.
type ServerConfig struct {
	Command string
	Args    []string
	Env     map[string]string

	// Prefix is prepended ("prefix_toolname") to every tool this provider
	// advertises, so tool names stay globally unique across providers.
	Prefix string
}

// Provider is a registry.Provider backed by one MCP server subprocess.
type Provider struct {
	name   string
	config ServerConfig

	client  *mcpsdk.Client
	mu      sync.Mutex
	session *mcpsdk.ClientSession
}

// New creates a Provider for the given server configuration. name
// identifies this provider in client implementation metadata; it does
// not have to match config.Prefix.
func New(name string, config ServerConfig) *Provider {
	return &Provider{name: name, config: config}
}

// Connect implements registry.Provider.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		return nil
	}

	p.client = mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "blueprint-go",
		Version: "1.0.0",
	}, nil)

	cmd := exec.CommandContext(ctx, p.config.Command, p.config.Args...)
	for k, v := range p.config.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	transport := &mcpsdk.CommandTransport{Command: cmd}
	session, err := p.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect to mcp provider %s: %w", p.name, err)
	}
	p.session = session
	return nil
}

// Disconnect implements registry.Provider.
func (p *Provider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	return err
}

// ListTools implements registry.Provider, applying config.Prefix so the
// returned names are globally unique across every provider in a Session.
func (p *Provider) ListTools(ctx context.Context) ([]registry.ToolDescriptor, error) {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()
	if session == nil {
		return nil, fmt.Errorf("mcp provider %s is not connected", p.name)
	}

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list_tools on %s: %w", p.name, err)
	}

	out := make([]registry.ToolDescriptor, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema := registry.Schema{}
		if m, ok := t.InputSchema.(map[string]any); ok {
			schema = m
		}
		out = append(out, registry.ToolDescriptor{
			Name:        p.prefixed(t.Name),
			Description: t.Description,
			Schema:      schema,
		})
	}
	return out, nil
}

// CallTool implements registry.Provider, stripping config.Prefix before
// forwarding to the subprocess. A transport-level failure (the session
// call itself erroring) surfaces as a plain error — the subprocess is
// assumed dead. A protocol-level error response (the subprocess reached
// the tool and it reported failure, result.IsError) surfaces as a
// *registry.ToolError so Session.Invoke classifies it as ToolFailed
// instead of a provider crash.
func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()
	if session == nil {
		return nil, fmt.Errorf("mcp provider %s is not connected", p.name)
	}

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      p.unprefixed(name),
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("call_tool %s on %s: %w", name, p.name, err)
	}
	if result.IsError {
		return nil, &registry.ToolError{Tool: name, Err: fmt.Errorf("tool returned an error: %s", formatContent(result.Content))}
	}
	return map[string]any{"content": formatContent(result.Content)}, nil
}

func (p *Provider) prefixed(name string) string {
	if p.config.Prefix == "" {
		return name
	}
	return p.config.Prefix + "_" + name
}

func (p *Provider) unprefixed(name string) string {
	if p.config.Prefix == "" {
		return name
	}
	prefix := p.config.Prefix + "_"
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):]
	}
	return name
}

func formatContent(content []mcpsdk.Content) string {
	var out string
	for _, c := range content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			out += tc.Text
		}
	}
	return out
}
