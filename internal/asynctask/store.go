package asynctask

import (
	"context"
	"encoding/json"
)

// Store persists task state for polling. Tasks are never deleted by this
// interface; retention policy is an implementation concern (the redis store
// applies a TTL, the memory store keeps everything).
type Store interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	// Complete marks a running task completed and stores its result. It is a
	// no-op on an already-completed task and reports not_found for unknown ids.
	Complete(ctx context.Context, id string, result json.RawMessage) error
}
