package engine

import "github.com/google/uuid"

// NewThreadID generates a thread_id for callers that do not supply
// their own.
func NewThreadID() string {
	return uuid.NewString()
}
