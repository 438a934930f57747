// Package mock provides a test double for completer.Completer: a
// configurable response sequence, call history, error injection,
// thread-safe.
package mock

import (
	"context"
	"sync"

	"github.com/dshills/blueprint-go/completer"
)

// Completer is a test implementation of completer.Completer.
type Completer struct {
	// Responses is the sequence of responses to return. Each call to
	// Complete returns the next response in order; once exhausted, the
	// last response repeats.
	Responses []completer.Response

	// Err, if set, is returned by Complete instead of a response.
	Err error

	// Calls records every Complete invocation for assertions.
	Calls []completer.Request

	mu        sync.Mutex
	callIndex int
}

// Complete implements completer.Completer.
func (m *Completer) Complete(ctx context.Context, req completer.Request) (completer.Response, error) {
	if ctx.Err() != nil {
		return completer.Response{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if m.Err != nil {
		return completer.Response{}, m.Err
	}
	if len(m.Responses) == 0 {
		return completer.Response{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// CallCount returns the number of times Complete has been called.
func (m *Completer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears call history and rewinds the response index.
func (m *Completer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}
