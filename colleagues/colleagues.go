// Package colleagues implements the Colleagues Reviewer: k independent
// analyses of the last tool result fanned out in parallel, followed by a
// judge, run at one tenth of the analyses' temperature, that scores the
// round, iterating with a doubled k until the running mean score clears
// the threshold or max_depth is exhausted.
package colleagues

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/blueprint-go/completer"
	"github.com/dshills/blueprint-go/state"
)

// Threshold is the default COLLEAGUES_THRESHOLD.
const Threshold = 7.0

// DefaultMaxDepth is the default COLLEAGUES_MAX_DEPTH.
const DefaultMaxDepth = 1

// Record is one judge verdict accumulated during a single Evaluate call.
type Record = state.ReviewRecord

// Reviewer runs the Colleagues algorithm against a Completer.
type Reviewer struct {
	Completer completer.Completer
	Threshold float64
	MaxDepth  int
}

// New builds a Reviewer with default threshold and max depth.
func New(c completer.Completer) *Reviewer {
	return &Reviewer{Completer: c, Threshold: Threshold, MaxDepth: DefaultMaxDepth}
}

// Evaluate scores the last entry of results. The returned score is the
// mean of every judge score produced across all levels run so far;
// recommendation is the most recent judge's text.
func (r *Reviewer) Evaluate(ctx context.Context, results []state.ToolExecutionResult) (float64, string) {
	if len(results) == 0 {
		return 0, "no tool results"
	}
	last := results[len(results)-1]
	rendered := renderResult(last)

	maxDepth := r.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = Threshold
	}

	var records []Record
	k := 2
	level := 1
	var scoreSum float64
	var recommendation string

	for {
		analyses := r.runAnalyses(ctx, rendered, k, level, maxDepth)
		score, rec := r.judge(ctx, rendered, analyses, level, maxDepth)

		records = append(records, Record{Score: score, Recommendations: rec})
		scoreSum += score
		recommendation = rec

		mean := scoreSum / float64(len(records))
		if mean >= threshold {
			return mean, recommendation
		}
		if level >= maxDepth {
			return mean, recommendation
		}
		k *= 2
		level++
	}
}

// runAnalyses fans out k independent Completer calls in parallel; their
// order is irrelevant and there is no shared mutable state between them.
func (r *Reviewer) runAnalyses(ctx context.Context, rendered string, k, level, maxDepth int) []string {
	temperature := float64(level) / float64(maxDepth)

	out := make([]string, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			resp, err := r.Completer.Complete(ctx, completer.Request{
				Prompt:      analysisPrompt(rendered),
				Temperature: temperature,
			})
			if err != nil {
				out[idx] = fmt.Sprintf("analysis failed: %v", err)
				return
			}
			out[idx] = resp.Content
		}(i)
	}
	wg.Wait()
	return out
}

// judge concatenates the analyses and asks a lower-temperature Completer
// call for a numeric score in [1,10] and a recommendations string.
func (r *Reviewer) judge(ctx context.Context, rendered string, analyses []string, level, maxDepth int) (float64, string) {
	temperature := 0.1 * float64(level) / float64(maxDepth)

	resp, err := r.Completer.Complete(ctx, completer.Request{
		Prompt:      judgePrompt(rendered, analyses),
		Schema:      judgeSchema,
		Temperature: temperature,
	})
	if err != nil || resp.Structured == nil {
		return 0, fmt.Sprintf("judge failed: %v", err)
	}
	return extractScore(resp.Structured), extractRecommendations(resp.Structured)
}

var judgeSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"score":           map[string]any{"type": "number"},
		"recommendations": map[string]any{"type": "string"},
	},
	"required": []string{"score", "recommendations"},
}

func extractScore(structured map[string]any) float64 {
	switch v := structured["score"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func extractRecommendations(structured map[string]any) string {
	if s, ok := structured["recommendations"].(string); ok {
		return s
	}
	return ""
}

func renderResult(r state.ToolExecutionResult) string {
	errPart := ""
	if r.Err != "" {
		errPart = fmt.Sprintf(" (error: %s)", r.Err)
	}
	return fmt.Sprintf("Tool: %s\nArgs: %v\nResult: %v%s", r.Tool, r.Args, r.Result, errPart)
}

func analysisPrompt(rendered string) string {
	return "Analyze this tool execution for correctness and quality:\n\n" + rendered
}

func judgePrompt(rendered string, analyses []string) string {
	prompt := "Tool execution:\n" + rendered + "\n\nIndependent analyses:\n"
	for i, a := range analyses {
		prompt += fmt.Sprintf("\n--- Analysis %d ---\n%s\n", i+1, a)
	}
	prompt += "\nEmit a score from 1 to 10 and a recommendations string."
	return prompt
}
