package colleagues

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dshills/blueprint-go/completer"
	"github.com/dshills/blueprint-go/state"
)

var errNoScoresConfigured = errors.New("no judge scores configured")

// scriptedCompleter returns judge scores in order for Schema-bound calls,
// and a fixed analysis text for free-text calls. Thread-safe: Evaluate
// fans analyses out across goroutines.
type scriptedCompleter struct {
	mu          sync.Mutex
	judgeScores []float64
	judgeCalls  int
	analysisN   int
}

func (s *scriptedCompleter) Complete(ctx context.Context, req completer.Request) (completer.Response, error) {
	if req.Schema != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if len(s.judgeScores) == 0 {
			s.judgeCalls++
			return completer.Response{}, errNoScoresConfigured
		}
		idx := s.judgeCalls
		if idx >= len(s.judgeScores) {
			idx = len(s.judgeScores) - 1
		}
		s.judgeCalls++
		return completer.Response{Structured: map[string]any{
			"score":           s.judgeScores[idx],
			"recommendations": "looks fine",
		}}, nil
	}
	s.mu.Lock()
	s.analysisN++
	s.mu.Unlock()
	return completer.Response{Content: "analysis text"}, nil
}

func lastResult() []state.ToolExecutionResult {
	return []state.ToolExecutionResult{{Tool: "chart_bar", Args: map[string]any{"data": 1}, Result: map[string]any{"ok": true}}}
}

func TestEvaluate_NoResults(t *testing.T) {
	r := New(&scriptedCompleter{})
	score, rec := r.Evaluate(context.Background(), nil)
	if score != 0 || rec != "no tool results" {
		t.Errorf("got (%v, %q), want (0, no tool results)", score, rec)
	}
}

func TestEvaluate_HighScoreStopsAtLevelOne(t *testing.T) {
	c := &scriptedCompleter{judgeScores: []float64{9}}
	r := New(c)
	score, rec := r.Evaluate(context.Background(), lastResult())

	if score != 9 {
		t.Errorf("score = %v, want 9", score)
	}
	if rec != "looks fine" {
		t.Errorf("rec = %q", rec)
	}
	if c.analysisN != 2 {
		t.Errorf("expected k=2 analyses at level 1, got %d", c.analysisN)
	}
}

func TestEvaluate_LowScoreDoublesK(t *testing.T) {
	c := &scriptedCompleter{judgeScores: []float64{4, 8}}
	r := New(c)
	r.MaxDepth = 2
	score, _ := r.Evaluate(context.Background(), lastResult())

	mean := (4.0 + 8.0) / 2
	if score != mean {
		t.Errorf("score = %v, want mean %v", score, mean)
	}
	if c.analysisN != 2+4 {
		t.Errorf("expected 2 then 4 analyses, got %d", c.analysisN)
	}
	if c.judgeCalls != 2 {
		t.Errorf("expected 2 judge calls, got %d", c.judgeCalls)
	}
}

func TestEvaluate_StopsAtMaxDepthRegardlessOfScore(t *testing.T) {
	c := &scriptedCompleter{judgeScores: []float64{2, 3, 1}}
	r := New(c)
	r.MaxDepth = 3
	_, rec := r.Evaluate(context.Background(), lastResult())

	if c.judgeCalls != 3 {
		t.Errorf("expected exactly 3 judge rounds (max_depth), got %d", c.judgeCalls)
	}
	if rec != "looks fine" {
		t.Errorf("rec = %q", rec)
	}
}

func TestEvaluate_JudgeFailureYieldsZeroScore(t *testing.T) {
	c := &scriptedCompleter{judgeScores: []float64{}}
	r := New(c)
	r.MaxDepth = 1
	score, _ := r.Evaluate(context.Background(), lastResult())
	if score != 0 {
		t.Errorf("score = %v, want 0 on judge failure", score)
	}
}
