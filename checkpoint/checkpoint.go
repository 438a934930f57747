// Package checkpoint persists and loads run State keyed by thread_id:
// Save/Update are atomic and serialized per thread_id; across threads
// they may run in parallel.
package checkpoint

import (
	"context"

	"github.com/dshills/blueprint-go/runtime/rerr"
	"github.com/dshills/blueprint-go/state"
)

// Store is the Checkpoint Store interface. An in-memory implementation
// (memory.go) suffices for single-process runs; sqlite.go backs it with
// a durable file for multi-process resumption.
type Store interface {
	// Save atomically overwrites the snapshot for threadID.
	Save(ctx context.Context, threadID string, s state.State) error

	// Load returns the snapshot for threadID, or a rerr.NotFound error.
	Load(ctx context.Context, threadID string) (state.State, error)

	// Update applies a shallow merge of patch's non-zero top-level
	// fields onto the stored snapshot, atomically.
	Update(ctx context.Context, threadID string, patch Patch) error
}

// Patch is the shallow-merge delta Update applies. Only non-nil/non-empty
// fields are merged; zero-value fields are left untouched (the same
// "unchanged means nil" convention state.Reduce uses for State deltas).
type Patch struct {
	Status          *state.Status
	Route           *string
	ColleaguesScore *float64
	ApprovedTools   map[string]bool
	Pending         *state.PendingTool
	ClearPending    bool
	FailureReason   *string
}

// Apply merges p onto s and returns the result.
func (p Patch) Apply(s state.State) state.State {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Route != nil {
		s.Route = *p.Route
	}
	if p.ColleaguesScore != nil {
		s.ColleaguesScore = p.ColleaguesScore
	}
	if p.ApprovedTools != nil {
		merged := make(map[string]bool, len(s.ApprovedTools)+len(p.ApprovedTools))
		for k, v := range s.ApprovedTools {
			merged[k] = v
		}
		for k, v := range p.ApprovedTools {
			merged[k] = v
		}
		s.ApprovedTools = merged
	}
	if p.Pending != nil {
		s.Pending = p.Pending
	}
	if p.ClearPending {
		s.Pending = nil
	}
	if p.FailureReason != nil {
		s.FailureReason = *p.FailureReason
	}
	return s
}

func notFound(threadID string) error {
	return rerr.New(rerr.NotFound, "no checkpoint for thread_id "+threadID)
}
