// Package engine implements the Blueprint Engine: it compiles a Blueprint
// against a live tool Registry, then drives the resulting graph node by
// node, integrating the Argument Synthesizer, the Colleagues Reviewer, the
// HIL Gate, and the Checkpoint Store into a single step loop.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/blueprint-go/blueprint"
	"github.com/dshills/blueprint-go/checkpoint"
	"github.com/dshills/blueprint-go/colleagues"
	"github.com/dshills/blueprint-go/hil"
	"github.com/dshills/blueprint-go/obs"
	"github.com/dshills/blueprint-go/registry"
	"github.com/dshills/blueprint-go/router"
	"github.com/dshills/blueprint-go/runtime/rerr"
	"github.com/dshills/blueprint-go/state"
	"github.com/dshills/blueprint-go/synth"
)

// Compiled is a validated Blueprint bound to a concrete Registry. The one
// structural invariant that needs I/O — every node_tools entry names a
// tool the Registry actually has — is checked here rather than in
// blueprint.Validate, which never touches the Registry.
type Compiled struct {
	bp blueprint.Blueprint
}

// Compile binds bp against reg. Compiling the same blueprint against an
// equivalent registry twice yields equivalent Compiled values; Compile
// itself performs no I/O beyond the registry lookups.
func Compile(bp blueprint.Blueprint, reg registry.Invoker) (*Compiled, error) {
	for node, tools := range bp.NodeTools {
		for _, t := range tools {
			if _, ok := reg.Get(t); !ok {
				return nil, rerr.New(rerr.BlueprintInvalid, fmt.Sprintf("node %q declares tool %q, not present in registry", node, t))
			}
		}
	}
	return &Compiled{bp: bp}, nil
}

// Result is the RunResult: a run that reached finish or that
// terminated in failure.
type Result struct {
	Status string // "completed" | "failed"
	State  state.State
}

// Suspension is the tagged alternative return value of a run step that
// requires a human decision before it can proceed.
type Suspension struct {
	ThreadID string
	Pending  state.PendingTool
}

// Engine drives one Compiled blueprint to completion against a Registry,
// Synthesizer, Reviewer, HIL gate, and Checkpoint Store. It holds no
// run-specific state between Run/Resume calls; all of that lives in the
// Checkpoint Store, keyed by thread_id.
type Engine struct {
	compiled  *Compiled
	reg       registry.Invoker
	synth     *synth.Synthesizer
	reviewer  *colleagues.Reviewer
	guarded   hil.GuardedSet
	store     checkpoint.Store
	opts      Options
}

// New builds an Engine. opts.ColleaguesThreshold/MaxDepth, when non-zero,
// override reviewer's own defaults; opts.GuardedTools, when non-nil,
// replaces guarded.
func New(compiled *Compiled, reg registry.Invoker, synthesizer *synth.Synthesizer, reviewer *colleagues.Reviewer, guarded hil.GuardedSet, store checkpoint.Store, opts ...Option) *Engine {
	o := resolveOptions(opts)
	if o.ColleaguesThreshold > 0 {
		reviewer.Threshold = o.ColleaguesThreshold
	}
	if o.ColleaguesMaxDepth > 0 {
		reviewer.MaxDepth = o.ColleaguesMaxDepth
	}
	if o.GuardedTools != nil {
		guarded = hil.NewGuardedSet(o.GuardedTools)
	}
	return &Engine{
		compiled: compiled,
		reg:      reg,
		synth:    synthesizer,
		reviewer: reviewer,
		guarded:  guarded,
		store:    store,
		opts:     o,
	}
}

// Run starts a fresh thread_id with task, saving the initial checkpoint
// before driving the graph.
func (e *Engine) Run(ctx context.Context, threadID, task string) (*Result, *Suspension, error) {
	st := state.New(task)
	if err := e.store.Save(ctx, threadID, st); err != nil {
		return nil, nil, err
	}
	return e.drive(ctx, threadID, st, nil)
}

// Resume loads threadID's checkpoint and applies decision to its pending
// suspension. On deny, the run terminates failed with PermissionDenied. On
// continue, the approved keys are merged and the same pending tool call is
// retried — its previously synthesized args are reused rather than
// re-synthesized, though the HIL gate is re-checked before it proceeds.
func (e *Engine) Resume(ctx context.Context, threadID string, decision hil.Decision) (*Result, *Suspension, error) {
	st, err := e.store.Load(ctx, threadID)
	if err != nil {
		return nil, nil, err
	}
	if st.Pending == nil {
		return nil, nil, rerr.New(rerr.BlueprintInvalid, "no pending suspension for thread_id "+threadID)
	}

	pending := st.Pending

	if !decision.Continue {
		failed := state.Reduce(st, state.State{
			ToolExecutionResults: []state.ToolExecutionResult{{
				Tool: pending.ToolName,
				Args: pending.ToolArgs,
				Err:  string(rerr.PermissionDenied),
			}},
			ExecutedTools: []string{pending.ToolName},
			Status:        state.StatusFailed,
			FailureReason: string(rerr.PermissionDenied),
			ClearPending:  true,
		})
		if err := e.store.Save(ctx, threadID, failed); err != nil {
			return nil, nil, err
		}
		return &Result{Status: "failed", State: failed}, nil, nil
	}

	st.ApprovedTools = hil.Resume(st.ApprovedTools, decision)
	st.Status = state.StatusRunning
	return e.drive(ctx, threadID, st, pending)
}

// drive is the step loop. forced, when non-nil, is the pending tool a
// Resume is retrying; it is consumed by the first tool-node handler
// invocation and ignored thereafter.
func (e *Engine) drive(ctx context.Context, threadID string, st state.State, forced *state.PendingTool) (*Result, *Suspension, error) {
	steps := 0
	for {
		if ctx.Err() != nil {
			failed := state.Reduce(st, state.State{
				Status:        state.StatusFailed,
				FailureReason: string(rerr.Cancelled),
				ClearPending:  true,
			})
			_ = e.store.Save(ctx, threadID, failed)
			return nil, nil, rerr.Wrap(rerr.Cancelled, "run cancelled", ctx.Err())
		}

		if st.Status == state.StatusCompleted || st.Status == state.StatusFailed {
			_ = e.store.Save(ctx, threadID, st)
			return &Result{Status: string(st.Status), State: st}, nil, nil
		}

		steps++
		if steps > e.opts.StepLimit {
			if e.opts.Metrics != nil {
				e.opts.Metrics.IncrementStepLimitExceeded()
			}
			failed := state.Reduce(st, state.State{
				Status:        state.StatusFailed,
				FailureReason: string(rerr.StepLimitExceeded),
			})
			_ = e.store.Save(ctx, threadID, failed)
			return &Result{Status: "failed", State: failed}, nil, nil
		}

		if st.CurrentNode == "" {
			st = state.Reduce(st, state.State{CurrentNode: e.compiled.bp.EntryNode()})
		}
		node := st.CurrentNode
		e.opts.Emitter.Emit(obs.Event{ThreadID: threadID, Step: steps, NodeID: node, Msg: "node_enter"})

		switch {
		case node == blueprint.NodeFinish:
			st = state.Reduce(st, state.State{Status: state.StatusCompleted})

		case node == blueprint.NodeColleagues:
			next, err := e.runColleagues(ctx, st, node)
			if err != nil {
				return nil, nil, err
			}
			st = next

		case e.compiled.bp.IsToolNode(node):
			next, suspended, err := e.runToolNode(ctx, st, node, forced)
			forced = nil
			if err != nil {
				failed := state.Reduce(next, state.State{
					Status:        state.StatusFailed,
					FailureReason: string(rerr.KindOf(err)),
					ClearPending:  true,
				})
				_ = e.store.Save(ctx, threadID, failed)
				if closer, ok := e.reg.(interface {
					Close(context.Context) error
				}); ok {
					_ = closer.Close(ctx)
				}
				return nil, nil, err
			}
			if suspended {
				if err := e.store.Save(ctx, threadID, next); err != nil {
					return nil, nil, err
				}
				return nil, &Suspension{ThreadID: threadID, Pending: *next.Pending}, nil
			}
			st = next

		default:
			st = e.runPassThrough(st, node)
		}
	}
}

// runColleagues scores the last tool result, routes, and transitions via
// the node's conditional_edges.
func (e *Engine) runColleagues(ctx context.Context, st state.State, node string) (state.State, error) {
	score, rec := e.reviewer.Evaluate(ctx, st.ToolExecutionResults)
	label := router.Route(score, st.ExecutedTools, st.ToolIndex(), st.CurrentNodeTools)

	routes, ok := e.compiled.bp.ConditionalEdges[node]
	if !ok {
		return state.State{}, rerr.New(rerr.BlueprintInvalid, fmt.Sprintf("%q has no conditional_edges", node))
	}
	target, ok := routes[string(label)]
	if !ok {
		return state.State{}, rerr.New(rerr.BlueprintInvalid, fmt.Sprintf("%q has no route for label %q", node, label))
	}

	if label == router.RetrySame && e.opts.Metrics != nil {
		e.opts.Metrics.IncrementRetries(node)
	}

	return state.Reduce(st, state.State{
		ColleaguesScore: state.Float64Ptr(score),
		Route:           string(label),
		CurrentNode:     target,
		Messages:        []state.Message{{Role: state.RoleAssistant, Content: rec}},
	}), nil
}

// runToolNode is the tool-node handler. forced, if it names the same tool
// this handler selects, skips re-synthesis and reuses its args (the
// Resume path); the HIL gate is still re-checked. A non-nil error return
// is always rerr.ProviderCrashed: the one invocation failure that must
// stop the run rather than be recorded as a step result, per spec.md §7's
// propagation policy.
func (e *Engine) runToolNode(ctx context.Context, st state.State, node string, forced *state.PendingTool) (state.State, bool, error) {
	tools := e.compiled.bp.NodeTools[node]

	idx := st.ToolIndex()
	sameNode := st.CurrentNode == node && sameTools(st.CurrentNodeTools, tools)
	switch {
	case !sameNode:
		idx = 0
	case forced != nil:
		// Resuming the exact pending tool: tool_sequence_index was
		// already finalized by the pass that suspended, and Route
		// still holds the label that produced it. Re-applying the
		// next_tool increment here would advance past the tool that
		// is actually pending.
	case st.Route == blueprint.RouteNextTool:
		idx++
	}

	entered := state.Reduce(st, state.State{
		CurrentNode:      node,
		CurrentNodeTools: tools,
		ToolSequenceIndex: state.IntPtr(idx),
	})

	toolName := selectTool(tools, idx, e.reg)

	desc, ok := e.reg.Get(toolName)
	if !ok {
		next := firstSuccessor(e.compiled.bp, node)
		delta := state.State{
			ToolExecutionResults: []state.ToolExecutionResult{{Tool: toolName, Err: string(rerr.ToolUnavailable)}},
			ExecutedTools:        []string{toolName},
		}
		setNext(&delta, next)
		return state.Reduce(entered, delta), false, nil
	}

	var args map[string]any
	if forced != nil && forced.ToolName == toolName {
		args = forced.ToolArgs
	} else {
		synthCtx, cancelSynth := ctx, context.CancelFunc(func() {})
		if e.opts.CompleterTimeout > 0 {
			synthCtx, cancelSynth = context.WithTimeout(ctx, e.opts.CompleterTimeout)
		}
		synthesized, ok := e.synth.Synthesize(synthCtx, desc, entered.Task, entered.ToolExecutionResults)
		cancelSynth()
		if !ok {
			next := firstSuccessor(e.compiled.bp, node)
			delta := state.State{
				ToolExecutionResults: []state.ToolExecutionResult{{
					Tool: toolName,
					Err:  string(rerr.ArgsSynthesisFailed),
				}},
				ExecutedTools: []string{toolName},
			}
			setNext(&delta, next)
			return state.Reduce(entered, delta), false, nil
		}
		args = synthesized
	}

	if !hil.Check(e.guarded, toolName, args, entered.ApprovedTools) {
		key := hil.Key(toolName, args)
		pending := &state.PendingTool{
			ToolName:     toolName,
			ToolArgs:     args,
			Task:         entered.Task,
			Context:      renderContext(entered.ToolExecutionResults),
			ExecutionKey: key,
		}
		if e.opts.Metrics != nil {
			e.opts.Metrics.IncrementSuspensions(toolName)
		}
		suspended := state.Reduce(entered, state.State{Status: state.StatusSuspended, Pending: pending})
		return suspended, true, nil
	}

	invokeCtx, cancelInvoke := ctx, context.CancelFunc(func() {})
	if e.opts.ToolTimeout > 0 {
		invokeCtx, cancelInvoke = context.WithTimeout(ctx, e.opts.ToolTimeout)
	}
	start := time.Now()
	result, invokeErr := e.reg.Invoke(invokeCtx, toolName, args)
	cancelInvoke()
	if e.opts.Metrics != nil {
		status := "success"
		if invokeErr != nil {
			status = "error"
		}
		e.opts.Metrics.RecordStepLatency(node, time.Since(start), status)
	}

	// ProviderCrashed prevents the engine from making any forward
	// progress at all — the provider is assumed dead, so this is
	// surfaced to the caller (after a single Close attempt) rather than
	// recorded as a retryable step result like ToolFailed/TimedOut.
	if invokeErr != nil && rerr.KindOf(invokeErr) == rerr.ProviderCrashed {
		return entered, false, invokeErr
	}

	execResult := state.ToolExecutionResult{Tool: toolName, Args: args, Result: result}
	if invokeErr != nil {
		execResult.Err = string(rerr.KindOf(invokeErr))
		if execResult.Err == "" {
			execResult.Err = invokeErr.Error()
		}
	}

	next := firstSuccessor(e.compiled.bp, node)
	delta := state.State{
		ToolExecutionResults: []state.ToolExecutionResult{execResult},
		ExecutedTools:        []string{toolName},
		ClearPending:         true,
	}
	setNext(&delta, next)
	return state.Reduce(entered, delta), false, nil
}

// runPassThrough implements the identity handler for nodes that are
// neither colleagues, finish, nor a declared tool node.
func (e *Engine) runPassThrough(st state.State, node string) state.State {
	next := firstSuccessor(e.compiled.bp, node)
	delta := state.State{}
	setNext(&delta, next)
	return state.Reduce(st, delta)
}

// setNext sets delta's transition: CurrentNode when next names a node, or
// Status=completed when next is "" (the node has no successor, which
// terminates the run).
func setNext(delta *state.State, next string) {
	if next == "" {
		delta.Status = state.StatusCompleted
		return
	}
	delta.CurrentNode = next
}

func firstSuccessor(bp blueprint.Blueprint, node string) string {
	succ := bp.Successors(node)
	if len(succ) == 0 {
		return ""
	}
	return succ[0]
}

// selectTool picks tools[idx] when in range, else the first of tools
// present in reg, else tools[0] so the caller always has a name to
// report ToolUnavailable against.
func selectTool(tools []string, idx int, reg registry.Invoker) string {
	if idx >= 0 && idx < len(tools) {
		return tools[idx]
	}
	for _, t := range tools {
		if _, ok := reg.Get(t); ok {
			return t
		}
	}
	if len(tools) > 0 {
		return tools[0]
	}
	return ""
}

func sameTools(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// renderContext mirrors synth.renderContext's "last two results" rule for
// the Context field a Suspension carries.
func renderContext(results []state.ToolExecutionResult) string {
	start := 0
	if len(results) > 2 {
		start = len(results) - 2
	}
	var s string
	for _, r := range results[start:] {
		s += fmt.Sprintf("Tool: %s\nArgs: %v\nResult: %v\n", r.Tool, r.Args, r.Result)
	}
	return s
}
