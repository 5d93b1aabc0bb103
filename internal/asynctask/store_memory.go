package asynctask

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	dErrors "lifeline/pkg/domain-errors"
)

// InMemoryStore retains tasks for the lifetime of the process.
type InMemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tasks: make(map[string]Task)}
}

func (s *InMemoryStore) Create(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.tasks[t.ID] = *t
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "task "+id+" not found")
	}
	return &t, nil
}

func (s *InMemoryStore) Complete(_ context.Context, id string, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "task "+id+" not found")
	}
	if t.Status == StatusCompleted {
		return nil
	}
	t.Status = StatusCompleted
	t.Result = result
	s.tasks[id] = t
	return nil
}
