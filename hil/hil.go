// Package hil implements the human-in-the-loop gate: classifying a tool
// call as guarded, hashing its arguments into an approval key, and
// deciding whether the engine may proceed or must suspend for a human
// decision.
package hil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// GuardedSet is the configurable predicate over tool names requiring human
// approval before execution. It is populated from data (a caller-supplied
// list of guarded tool names) rather than hardcoded.
type GuardedSet struct {
	names map[string]bool
}

// NewGuardedSet builds a GuardedSet from an explicit list of tool names.
func NewGuardedSet(names []string) GuardedSet {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return GuardedSet{names: m}
}

// IsGuarded is the pure guarded-tool-name predicate.
func (g GuardedSet) IsGuarded(toolName string) bool {
	return g.names[toolName]
}

// Decision is the caller's resumption choice after a Suspension.
type Decision struct {
	Continue     bool
	ApprovedKeys []string
}

// Key builds the approval key for a concrete invocation:
// tool_name ":" hash(args). Hashing canonicalizes args by sorting keys
// before JSON-encoding so equivalent argument maps always hash the same
// way regardless of construction order.
func Key(toolName string, args map[string]any) string {
	return toolName + ":" + HashArgs(args)
}

// WildcardKey is the prefix-only approval entry that matches any
// arguments for toolName.
func WildcardKey(toolName string) string {
	return toolName + ":"
}

// HashArgs returns a stable hex digest of the canonicalized args mapping.
func HashArgs(args map[string]any) string {
	canon := canonicalize(args)
	raw, err := json.Marshal(canon)
	if err != nil {
		// canonicalize only produces JSON-marshalable values; this path
		// is unreachable in practice.
		raw = []byte("null")
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// canonicalize produces a deterministically ordered representation: a
// []pair slice of {key, value} in sorted-key order, recursing into
// nested maps. json.Marshal on a map[string]any already sorts keys, so
// this mainly normalizes nested maps and scalar encodings consistently.
func canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, [2]any{k, canonicalize(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return t
	}
}

// Approved reports whether (toolName, args) may proceed given the
// accumulated approved-key set: either an exact hashed match, or a
// wildcard prefix entry for toolName.
func Approved(toolName string, args map[string]any, approvedTools map[string]bool) bool {
	if approvedTools[Key(toolName, args)] {
		return true
	}
	return approvedTools[WildcardKey(toolName)]
}

// Check is the full gate: not guarded, or already approved, both proceed;
// otherwise the caller must suspend.
func Check(guarded GuardedSet, toolName string, args map[string]any, approvedTools map[string]bool) (proceed bool) {
	if !guarded.IsGuarded(toolName) {
		return true
	}
	return Approved(toolName, args, approvedTools)
}

// Resume applies a continue Decision to an approved-tools set, returning
// the updated set. Applying the same Decision twice in succession is
// equivalent to applying it once (idempotent union).
func Resume(approvedTools map[string]bool, decision Decision) map[string]bool {
	out := make(map[string]bool, len(approvedTools)+len(decision.ApprovedKeys))
	for k, v := range approvedTools {
		out[k] = v
	}
	if decision.Continue {
		for _, k := range decision.ApprovedKeys {
			out[k] = true
		}
	}
	return out
}
