package asynctask

import (
	"encoding/json"
	"time"
)

// Status of a polled task. running -> completed is the only transition.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// Task is a polled handle for work that outlives the triggering request.
// Result is opaque and present only once the task completes.
type Task struct {
	ID        string          `json:"task_id"`
	MatchID   int64           `json:"match_id"`
	Status    Status          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
