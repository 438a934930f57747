// Package blueprint parses and validates the declarative graph a run
// executes: an ordered node list, unconditional edges, per-node tool
// lists, and the conditional routing table attached to the review and
// other branching nodes.
package blueprint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/blueprint-go/runtime/rerr"
)

// Reserved node names with fixed handler semantics.
const (
	NodeColleagues = "colleagues"
	NodeFinish     = "finish"
)

// Route labels the review node must expose via ConditionalEdges.
const (
	RouteRetrySame = "retry_same"
	RouteNextTool  = "next_tool"
	RouteNextStep  = "next_step"
)

var reviewRouteLabels = map[string]bool{
	RouteRetrySame: true,
	RouteNextTool:  true,
	RouteNextStep:  true,
}

// Edge is an unconditional (from, to) transition.
type Edge struct {
	From string
	To   string
}

// Blueprint is immutable once Validate succeeds.
type Blueprint struct {
	Nodes            []string
	Edges            []Edge
	NodeTools        map[string][]string
	ConditionalEdges map[string]map[string]string
}

// New builds a Blueprint from the wire-shaped RunRequest.Blueprint fields
// and validates it. The returned error, when non-nil, is always a
// *rerr.Error of kind rerr.BlueprintInvalid.
func New(nodes []string, edges [][2]string, nodeTools map[string][]string, conditionalEdges map[string]map[string]string) (Blueprint, error) {
	bp := Blueprint{
		Nodes:            append([]string{}, nodes...),
		NodeTools:        copyNodeTools(nodeTools),
		ConditionalEdges: copyConditionalEdges(conditionalEdges),
	}
	for _, e := range edges {
		bp.Edges = append(bp.Edges, Edge{From: e[0], To: e[1]})
	}
	if err := bp.Validate(); err != nil {
		return Blueprint{}, err
	}
	return bp, nil
}

func copyNodeTools(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string{}, v...)
	}
	return out
}

func copyConditionalEdges(in map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(in))
	for k, v := range in {
		m := make(map[string]string, len(v))
		for rk, rv := range v {
			m[rk] = rv
		}
		out[k] = m
	}
	return out
}

// EntryNode returns the blueprint's first declared node.
func (b Blueprint) EntryNode() string {
	if len(b.Nodes) == 0 {
		return ""
	}
	return b.Nodes[0]
}

// IsToolNode reports whether name has a declared, non-empty tool list.
func (b Blueprint) IsToolNode(name string) bool {
	tools, ok := b.NodeTools[name]
	return ok && len(tools) > 0
}

// Successors returns the direct-edge targets of name, in declaration order.
func (b Blueprint) Successors(name string) []string {
	var out []string
	for _, e := range b.Edges {
		if e.From == name {
			out = append(out, e.To)
		}
	}
	return out
}

// Validate checks every structural invariant that does not require I/O
// (tool-name-in-registry is checked separately by engine.Compile, since
// the Registry is an external collaborator).
func (b Blueprint) Validate() error {
	if len(b.Nodes) == 0 {
		return invalid("blueprint has no nodes")
	}

	declared := make(map[string]bool, len(b.Nodes))
	for _, n := range b.Nodes {
		if n == "" {
			return invalid("node name must not be empty")
		}
		if declared[n] {
			return invalid(fmt.Sprintf("duplicate node name %q", n))
		}
		declared[n] = true
	}

	if err := b.validateEdges(declared); err != nil {
		return err
	}
	if err := b.validateConditionalEdges(declared); err != nil {
		return err
	}
	if err := b.validateNodeTools(declared); err != nil {
		return err
	}
	if err := b.validateFinishIsTerminal(); err != nil {
		return err
	}
	if err := b.validateToolNodesHaveSuccessor(); err != nil {
		return err
	}
	return nil
}

func (b Blueprint) validateEdges(declared map[string]bool) error {
	for _, e := range b.Edges {
		if !declared[e.From] {
			return invalid(fmt.Sprintf("edge references undeclared node %q", e.From))
		}
		if !declared[e.To] {
			return invalid(fmt.Sprintf("edge references undeclared node %q", e.To))
		}
	}
	return nil
}

func (b Blueprint) validateConditionalEdges(declared map[string]bool) error {
	for from, routes := range b.ConditionalEdges {
		if !declared[from] {
			return invalid(fmt.Sprintf("conditional_edges references undeclared node %q", from))
		}
		for label, to := range routes {
			if !declared[to] {
				return invalid(fmt.Sprintf("conditional_edges[%q][%q] targets undeclared node %q", from, label, to))
			}
		}
		if from == NodeColleagues {
			if err := validateReviewLabels(routes); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateReviewLabels(routes map[string]string) error {
	if len(routes) != len(reviewRouteLabels) {
		return invalid(fmt.Sprintf("%q must declare exactly the route labels %s", NodeColleagues, sortedKeys(reviewRouteLabels)))
	}
	for label := range routes {
		if !reviewRouteLabels[label] {
			return invalid(fmt.Sprintf("%q has unknown route label %q", NodeColleagues, label))
		}
	}
	return nil
}

func (b Blueprint) validateNodeTools(declared map[string]bool) error {
	for node, tools := range b.NodeTools {
		if !declared[node] {
			return invalid(fmt.Sprintf("node_tools references undeclared node %q", node))
		}
		if node == NodeColleagues || node == NodeFinish {
			return invalid(fmt.Sprintf("reserved node %q must not declare node_tools", node))
		}
		if len(tools) == 0 {
			return invalid(fmt.Sprintf("node_tools[%q] must be non-empty", node))
		}
		seen := make(map[string]bool, len(tools))
		for _, t := range tools {
			if t == "" {
				return invalid(fmt.Sprintf("node_tools[%q] contains an empty tool name", node))
			}
			if seen[t] {
				return invalid(fmt.Sprintf("node_tools[%q] lists %q more than once", node, t))
			}
			seen[t] = true
		}
	}
	return nil
}

func (b Blueprint) validateFinishIsTerminal() error {
	for _, e := range b.Edges {
		if e.From == NodeFinish {
			return invalid(fmt.Sprintf("%q must have no outgoing edges", NodeFinish))
		}
	}
	if _, ok := b.ConditionalEdges[NodeFinish]; ok {
		return invalid(fmt.Sprintf("%q must have no outgoing edges", NodeFinish))
	}
	return nil
}

// validateToolNodesHaveSuccessor ensures every tool node can transition
// somewhere, direct or conditional.
func (b Blueprint) validateToolNodesHaveSuccessor() error {
	for node := range b.NodeTools {
		if len(b.Successors(node)) > 0 {
			continue
		}
		if routes, ok := b.ConditionalEdges[node]; ok && len(routes) > 0 {
			continue
		}
		return invalid(fmt.Sprintf("tool node %q has no outgoing edge", node))
	}
	return nil
}

func sortedKeys(m map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func invalid(msg string) error {
	return rerr.New(rerr.BlueprintInvalid, msg)
}
