package state

import "testing"

func TestNew(t *testing.T) {
	s := New("summarize Q3 revenue")

	if s.Task != "summarize Q3 revenue" {
		t.Errorf("Task = %q, want %q", s.Task, "summarize Q3 revenue")
	}
	if s.Status != StatusRunning {
		t.Errorf("Status = %q, want %q", s.Status, StatusRunning)
	}
	if s.ToolIndex() != 0 {
		t.Errorf("ToolIndex() = %d, want 0", s.ToolIndex())
	}
	if s.Score() != 0 {
		t.Errorf("Score() = %v, want 0", s.Score())
	}
}

func TestState_ToolIndexAndScoreDefaults(t *testing.T) {
	var s State
	if s.ToolIndex() != 0 {
		t.Errorf("ToolIndex() on zero value = %d, want 0", s.ToolIndex())
	}
	if s.Score() != 0 {
		t.Errorf("Score() on zero value = %v, want 0", s.Score())
	}

	s.ToolSequenceIndex = IntPtr(3)
	s.ColleaguesScore = Float64Ptr(8.5)
	if s.ToolIndex() != 3 {
		t.Errorf("ToolIndex() = %d, want 3", s.ToolIndex())
	}
	if s.Score() != 8.5 {
		t.Errorf("Score() = %v, want 8.5", s.Score())
	}
}

func TestReduce_AppendsLogFields(t *testing.T) {
	prev := New("task")
	prev.Messages = append(prev.Messages, Message{Role: RoleHuman, Content: "go"})
	prev.ExecutedTools = append(prev.ExecutedTools, "chart_bar")

	delta := State{
		Messages:      []Message{{Role: RoleAssistant, Content: "done"}},
		ExecutedTools: []string{"pdf_report"},
		ToolExecutionResults: []ToolExecutionResult{
			{Tool: "pdf_report", Args: map[string]any{"report_content": "x"}},
		},
	}

	got := Reduce(prev, delta)

	if len(got.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(got.Messages))
	}
	if got.Messages[1].Content != "done" {
		t.Errorf("Messages[1].Content = %q, want %q", got.Messages[1].Content, "done")
	}
	if len(got.ExecutedTools) != 2 || got.ExecutedTools[1] != "pdf_report" {
		t.Errorf("ExecutedTools = %v, want [chart_bar pdf_report]", got.ExecutedTools)
	}
	if len(got.ToolExecutionResults) != 1 {
		t.Errorf("len(ToolExecutionResults) = %d, want 1", len(got.ToolExecutionResults))
	}

	// prev must be unmutated by the merge (Reduce must not alias prev's slices).
	if len(prev.Messages) != 1 {
		t.Errorf("prev.Messages mutated by Reduce, len = %d, want 1", len(prev.Messages))
	}
}

func TestReduce_ScalarFieldsOnlyOverwriteWhenSet(t *testing.T) {
	prev := New("task")
	prev.CurrentNode = "review"
	prev.Route = "next_tool"

	got := Reduce(prev, State{})

	if got.CurrentNode != "review" {
		t.Errorf("CurrentNode = %q, want unchanged %q", got.CurrentNode, "review")
	}
	if got.Route != "next_tool" {
		t.Errorf("Route = %q, want unchanged %q", got.Route, "next_tool")
	}

	got2 := Reduce(got, State{CurrentNode: "finish", Route: "finish"})
	if got2.CurrentNode != "finish" {
		t.Errorf("CurrentNode = %q, want %q", got2.CurrentNode, "finish")
	}
	if got2.Route != "finish" {
		t.Errorf("Route = %q, want %q", got2.Route, "finish")
	}
}

func TestReduce_PointerFieldsAreSetVsUnchanged(t *testing.T) {
	prev := New("task")
	prev.ToolSequenceIndex = IntPtr(2)
	prev.ColleaguesScore = Float64Ptr(5.0)

	// nil delta pointers leave prev's values untouched.
	got := Reduce(prev, State{})
	if got.ToolIndex() != 2 {
		t.Errorf("ToolIndex() = %d, want unchanged 2", got.ToolIndex())
	}
	if got.Score() != 5.0 {
		t.Errorf("Score() = %v, want unchanged 5.0", got.Score())
	}

	// non-nil delta pointers, including a meaningful zero, overwrite.
	got2 := Reduce(got, State{ToolSequenceIndex: IntPtr(0), ColleaguesScore: Float64Ptr(0)})
	if got2.ToolIndex() != 0 {
		t.Errorf("ToolIndex() = %d, want 0", got2.ToolIndex())
	}
	if got2.Score() != 0 {
		t.Errorf("Score() = %v, want 0", got2.Score())
	}
}

func TestReduce_ApprovedToolsMergesRatherThanReplaces(t *testing.T) {
	prev := New("task")
	prev.ApprovedTools = map[string]bool{"pdf_report:abc": true}

	got := Reduce(prev, State{ApprovedTools: map[string]bool{"pdf_report:def": true}})

	if !got.ApprovedTools["pdf_report:abc"] || !got.ApprovedTools["pdf_report:def"] {
		t.Errorf("ApprovedTools = %v, want both keys present", got.ApprovedTools)
	}
	if len(prev.ApprovedTools) != 1 {
		t.Errorf("prev.ApprovedTools mutated, len = %d, want 1", len(prev.ApprovedTools))
	}
}

func TestReduce_PendingSetAndCleared(t *testing.T) {
	prev := New("task")
	pending := &PendingTool{ToolName: "pdf_report", ExecutionKey: "pdf_report:abc"}

	got := Reduce(prev, State{Pending: pending})
	if got.Pending == nil || got.Pending.ToolName != "pdf_report" {
		t.Fatalf("Pending = %+v, want set", got.Pending)
	}

	cleared := Reduce(got, State{ClearPending: true})
	if cleared.Pending != nil {
		t.Errorf("Pending = %+v, want nil after ClearPending", cleared.Pending)
	}
}

func TestReduce_FailureReasonOnlyOverwritesWhenSet(t *testing.T) {
	prev := New("task")
	prev.FailureReason = "tool_unavailable"

	got := Reduce(prev, State{})
	if got.FailureReason != "tool_unavailable" {
		t.Errorf("FailureReason = %q, want unchanged", got.FailureReason)
	}

	got2 := Reduce(got, State{FailureReason: "step_limit_exceeded"})
	if got2.FailureReason != "step_limit_exceeded" {
		t.Errorf("FailureReason = %q, want %q", got2.FailureReason, "step_limit_exceeded")
	}
}
