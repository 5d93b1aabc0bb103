package asynctask

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service tracks long-running match reprocessing. Creation returns
// immediately; the worker goroutine completes the task after the configured
// delay. Once started, the work runs to completion — there is no cancellation.
type Service struct {
	store  Store
	delay  time.Duration
	logger *slog.Logger
}

func NewService(store Store, delay time.Duration, logger *slog.Logger) *Service {
	return &Service{store: store, delay: delay, logger: logger}
}

// StartReprocess registers a running task for the match and hands the
// simulated work off to a background goroutine.
func (s *Service) StartReprocess(ctx context.Context, matchID int64) (*Task, error) {
	t := &Task{
		ID:      uuid.NewString(),
		MatchID: matchID,
		Status:  StatusRunning,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	go s.run(t.ID, matchID)
	return t, nil
}

// run simulates the slow reprocessing unit of work. It deliberately does not
// inherit the request context: the work outlives the request that started it.
func (s *Service) run(taskID string, matchID int64) {
	time.Sleep(s.delay)

	result, _ := json.Marshal(map[string]any{
		"match_id": matchID,
		"message":  fmt.Sprintf("match %d reprocessed", matchID),
	})
	if err := s.store.Complete(context.Background(), taskID, result); err != nil {
		s.logger.Error("complete async task failed",
			"task_id", taskID,
			"error", err.Error(),
		)
	}
}

// Get returns the task's current state for polling.
func (s *Service) Get(ctx context.Context, taskID string) (*Task, error) {
	return s.store.Get(ctx, taskID)
}

// Delay exposes the simulated work duration so handlers can hint Retry-After.
func (s *Service) Delay() time.Duration {
	return s.delay
}
