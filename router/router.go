// Package router implements the deterministic routing decision taken after
// every Colleagues review.
package router

// Label is a routing decision emitted by Route.
type Label string

const (
	RetrySame Label = "retry_same"
	NextTool  Label = "next_tool"
	NextStep  Label = "next_step"
)

const scoreThreshold = 7.0

// loopGuardCount is the number of consecutive identical tool executions
// that force an advance regardless of score.
const loopGuardCount = 3

// Route is the pure, synchronous, deterministic router: given the last
// Colleagues score, the run's executed-tool history, the current tool
// index within the active node's tool list, and that tool list, it
// returns one of {retry_same, next_tool, next_step}.
//
// Rules are evaluated top-to-bottom; the first match wins.
func Route(score float64, executedTools []string, toolIndex int, nodeTools []string) Label {
	hasNext := toolIndex < len(nodeTools)-1

	// Rule 1: loop guard. The same tool name appearing loopGuardCount times
	// in a row at the tail of executed_tools forces an advance regardless
	// of score; the reviewer may oscillate but the engine must not.
	if consecutiveTail(executedTools) >= loopGuardCount {
		if hasNext {
			return NextTool
		}
		return NextStep
	}

	// Rule 2: already at (or past) the last tool in the node.
	if toolIndex >= len(nodeTools)-1 {
		return NextStep
	}

	// Rule 3: the next tool in sequence was already executed — don't
	// re-run a completed tool just because the review oscillated.
	nextTool := nodeTools[toolIndex+1]
	if contains(executedTools, nextTool) {
		return NextStep
	}

	// Rule 4: good score, advance.
	if score >= scoreThreshold {
		return NextTool
	}

	// Rule 5: retry the current tool.
	return RetrySame
}

// consecutiveTail returns the length of the run of identical entries at the
// end of executedTools (0 if executedTools is empty).
func consecutiveTail(executedTools []string) int {
	n := len(executedTools)
	if n == 0 {
		return 0
	}
	last := executedTools[n-1]
	count := 0
	for i := n - 1; i >= 0 && executedTools[i] == last; i-- {
		count++
	}
	return count
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
