package blueprint

import (
	"testing"

	"github.com/dshills/blueprint-go/runtime/rerr"
)

func simpleReviewEdges() map[string]map[string]string {
	return map[string]map[string]string{
		NodeColleagues: {
			RouteRetrySame: "chart",
			RouteNextTool:  "chart",
			RouteNextStep:  NodeFinish,
		},
	}
}

func TestNew_Valid(t *testing.T) {
	bp, err := New(
		[]string{"chart", NodeColleagues, NodeFinish},
		[][2]string{{"chart", NodeColleagues}},
		map[string][]string{"chart": {"chart_bar"}},
		simpleReviewEdges(),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bp.EntryNode() != "chart" {
		t.Errorf("EntryNode() = %q, want chart", bp.EntryNode())
	}
	if !bp.IsToolNode("chart") {
		t.Errorf("IsToolNode(chart) = false, want true")
	}
}

func TestNew_OnlyFinish(t *testing.T) {
	bp, err := New([]string{NodeFinish}, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bp.EntryNode() != NodeFinish {
		t.Errorf("EntryNode() = %q, want finish", bp.EntryNode())
	}
}

func TestValidate_DuplicateNode(t *testing.T) {
	_, err := New([]string{"a", "a"}, nil, nil, nil)
	assertInvalid(t, err)
}

func TestValidate_EdgeToUndeclared(t *testing.T) {
	_, err := New([]string{"a", NodeFinish}, [][2]string{{"a", "ghost"}}, nil, nil)
	assertInvalid(t, err)
}

func TestValidate_ConditionalEdgeToUndeclared(t *testing.T) {
	edges := map[string]map[string]string{
		NodeColleagues: {RouteRetrySame: "ghost", RouteNextTool: NodeFinish, RouteNextStep: NodeFinish},
	}
	_, err := New([]string{"a", NodeColleagues, NodeFinish}, nil, nil, edges)
	assertInvalid(t, err)
}

func TestValidate_ReviewNodeWrongLabels(t *testing.T) {
	edges := map[string]map[string]string{
		NodeColleagues: {RouteRetrySame: NodeFinish, RouteNextTool: NodeFinish},
	}
	_, err := New([]string{"a", NodeColleagues, NodeFinish}, nil, nil, edges)
	assertInvalid(t, err)
}

func TestValidate_ReviewNodeUnknownLabel(t *testing.T) {
	edges := map[string]map[string]string{
		NodeColleagues: {RouteRetrySame: NodeFinish, RouteNextTool: NodeFinish, "maybe": NodeFinish},
	}
	_, err := New([]string{"a", NodeColleagues, NodeFinish}, nil, nil, edges)
	assertInvalid(t, err)
}

func TestValidate_FinishHasOutgoingEdge(t *testing.T) {
	_, err := New([]string{NodeFinish, "a"}, [][2]string{{NodeFinish, "a"}}, nil, nil)
	assertInvalid(t, err)
}

func TestValidate_EmptyNodeTools(t *testing.T) {
	_, err := New([]string{"chart", NodeFinish}, [][2]string{{"chart", NodeFinish}}, map[string][]string{"chart": {}}, nil)
	assertInvalid(t, err)
}

func TestValidate_DuplicateToolInNode(t *testing.T) {
	_, err := New([]string{"chart", NodeFinish}, [][2]string{{"chart", NodeFinish}},
		map[string][]string{"chart": {"chart_bar", "chart_bar"}}, nil)
	assertInvalid(t, err)
}

func TestValidate_ReservedNodeWithTools(t *testing.T) {
	_, err := New([]string{NodeFinish}, nil, map[string][]string{NodeFinish: {"x"}}, nil)
	assertInvalid(t, err)
}

func TestValidate_ToolNodeNoSuccessor(t *testing.T) {
	_, err := New([]string{"chart", NodeFinish}, nil, map[string][]string{"chart": {"chart_bar"}}, nil)
	assertInvalid(t, err)
}

func TestValidate_ToolNodeWithConditionalSuccessorOK(t *testing.T) {
	edges := map[string]map[string]string{
		"chart": {"ok": NodeFinish},
	}
	_, err := New([]string{"chart", NodeFinish}, nil, map[string][]string{"chart": {"chart_bar"}}, edges)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSuccessors_Order(t *testing.T) {
	bp, err := New(
		[]string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"a", "c"}},
		nil, nil,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := bp.Successors("a")
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("Successors(a) = %v, want [b c]", got)
	}
}

func assertInvalid(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if !rerr.Is(err, rerr.BlueprintInvalid) {
		t.Errorf("expected rerr.BlueprintInvalid, got %v", err)
	}
}
