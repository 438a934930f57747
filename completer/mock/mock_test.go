package mock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dshills/blueprint-go/completer"
)

func TestCompleter_ReturnsResponsesInOrderThenRepeatsLast(t *testing.T) {
	c := &Completer{
		Responses: []completer.Response{
			{Content: "first"},
			{Content: "second"},
		},
	}

	for i, want := range []string{"first", "second", "second", "second"} {
		got, err := c.Complete(context.Background(), completer.Request{Prompt: "p"})
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if got.Content != want {
			t.Errorf("call %d: Content = %q, want %q", i, got.Content, want)
		}
	}
	if c.CallCount() != 4 {
		t.Errorf("CallCount() = %d, want 4", c.CallCount())
	}
}

func TestCompleter_EmptyResponsesReturnsZeroValue(t *testing.T) {
	c := &Completer{}
	got, err := c.Complete(context.Background(), completer.Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Content != "" || got.Structured != nil {
		t.Errorf("Complete() = %+v, want zero value", got)
	}
}

func TestCompleter_ErrInjection(t *testing.T) {
	injected := errors.New("rate limited")
	c := &Completer{Err: injected}

	_, err := c.Complete(context.Background(), completer.Request{Prompt: "p"})
	if !errors.Is(err, injected) {
		t.Errorf("Complete() error = %v, want %v", err, injected)
	}
	if c.CallCount() != 1 {
		t.Errorf("CallCount() = %d, want 1 (call is still recorded on error)", c.CallCount())
	}
}

func TestCompleter_CancelledContextShortCircuits(t *testing.T) {
	c := &Completer{Responses: []completer.Response{{Content: "should not be seen"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, completer.Request{Prompt: "p"})
	if err == nil {
		t.Fatal("Complete() with cancelled context: expected error")
	}
	if c.CallCount() != 0 {
		t.Errorf("CallCount() = %d, want 0 (cancelled before recording)", c.CallCount())
	}
}

func TestCompleter_RecordsCalls(t *testing.T) {
	c := &Completer{Responses: []completer.Response{{Content: "ok"}}}

	req1 := completer.Request{Prompt: "one", Temperature: 0.2}
	req2 := completer.Request{Prompt: "two", Temperature: 0.5}
	c.Complete(context.Background(), req1)
	c.Complete(context.Background(), req2)

	if len(c.Calls) != 2 {
		t.Fatalf("len(Calls) = %d, want 2", len(c.Calls))
	}
	if c.Calls[0].Prompt != req1.Prompt || c.Calls[1].Prompt != req2.Prompt {
		t.Errorf("Calls = %+v, want prompts [%q %q]", c.Calls, req1.Prompt, req2.Prompt)
	}
}

func TestCompleter_Reset(t *testing.T) {
	c := &Completer{Responses: []completer.Response{{Content: "a"}, {Content: "b"}}}
	c.Complete(context.Background(), completer.Request{})
	c.Complete(context.Background(), completer.Request{})

	c.Reset()

	if c.CallCount() != 0 {
		t.Errorf("CallCount() after Reset = %d, want 0", c.CallCount())
	}
	got, _ := c.Complete(context.Background(), completer.Request{})
	if got.Content != "a" {
		t.Errorf("Content after Reset = %q, want %q (index rewound)", got.Content, "a")
	}
}

func TestCompleter_ConcurrentCallsAreSafe(t *testing.T) {
	c := &Completer{Responses: []completer.Response{{Content: "x"}}}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Complete(context.Background(), completer.Request{})
		}()
	}
	wg.Wait()

	if c.CallCount() != 50 {
		t.Errorf("CallCount() = %d, want 50", c.CallCount())
	}
}
