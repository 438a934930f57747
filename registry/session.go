package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/blueprint-go/runtime/rerr"
)

// DefaultInvokeTimeout is the default per-tool invocation deadline.
const DefaultInvokeTimeout = 60 * time.Second

// Session is the scoped resource owning one or more Providers for the
// duration of a single blueprint run. All invocations for a run occur
// inside one Session; Close guarantees release on every exit path.
type Session struct {
	providers     []Provider
	invokeTimeout time.Duration

	mu    sync.RWMutex
	tools map[string]ToolDescriptor
	owner map[string]Provider
}

// Option configures Open.
type Option func(*Session)

// WithInvokeTimeout overrides DefaultInvokeTimeout.
func WithInvokeTimeout(d time.Duration) Option {
	return func(s *Session) { s.invokeTimeout = d }
}

// Open connects every provider and lists its tools. Either all providers
// come up live or Open fails with rerr.ProviderUnavailable and any
// providers that did connect are disconnected before returning — partial
// success is never returned to the caller.
func Open(ctx context.Context, providers []Provider, opts ...Option) (*Session, error) {
	s := &Session{
		invokeTimeout: DefaultInvokeTimeout,
		tools:         map[string]ToolDescriptor{},
		owner:         map[string]Provider{},
	}
	for _, o := range opts {
		o(s)
	}

	connected := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if err := p.Connect(ctx); err != nil {
			for _, c := range connected {
				_ = c.Disconnect(ctx)
			}
			return nil, rerr.Wrap(rerr.ProviderUnavailable, "provider connect failed", err)
		}
		connected = append(connected, p)
	}
	s.providers = connected

	for _, p := range connected {
		descs, err := p.ListTools(ctx)
		if err != nil {
			_ = s.Close(ctx)
			return nil, rerr.Wrap(rerr.ProviderUnavailable, "provider list_tools failed", err)
		}
		for _, d := range descs {
			s.tools[d.Name] = d
			s.owner[d.Name] = p
		}
	}
	return s, nil
}

// List returns a snapshot of every tool across every connected provider.
func (s *Session) List() []ToolDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ToolDescriptor, 0, len(s.tools))
	for _, d := range s.tools {
		out = append(out, d)
	}
	return out
}

// Get looks up a tool by its globally unique name.
func (s *Session) Get(name string) (ToolDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.tools[name]
	return d, ok
}

// Invoke calls name with args, enforcing the per-tool deadline and
// translating provider failures into the uniform error taxonomy: unknown
// name -> ToolUnavailable, deadline elapsed -> TimedOut, a *ToolError
// (the tool ran and reported failure) -> ToolFailed, any other provider
// error -> ProviderCrashed (the provider is assumed dead; the caller
// decides whether to retry with a fresh Session).
func (s *Session) Invoke(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	s.mu.RLock()
	p, ok := s.owner[name]
	s.mu.RUnlock()
	if !ok {
		return nil, rerr.New(rerr.ToolUnavailable, fmt.Sprintf("tool %q not in registry", name))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.invokeTimeout)
	defer cancel()

	result, err := p.CallTool(callCtx, name, args)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, rerr.Wrap(rerr.TimedOut, fmt.Sprintf("tool %q timed out", name), err)
		}
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			return nil, rerr.Wrap(rerr.ToolFailed, fmt.Sprintf("tool %q failed", name), toolErr.Err)
		}
		return nil, rerr.Wrap(rerr.ProviderCrashed, fmt.Sprintf("tool %q invocation failed", name), err)
	}
	return result, nil
}

// Close disconnects every provider, best-effort, returning the first
// error encountered (if any). Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	var first error
	for _, p := range s.providers {
		if err := p.Disconnect(ctx); err != nil && first == nil {
			first = err
		}
	}
	s.providers = nil
	return first
}
