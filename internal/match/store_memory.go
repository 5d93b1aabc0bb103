package match

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	dErrors "lifeline/pkg/domain-errors"
)

// InMemoryStore keeps matches in a process-local map. It backs tests and the
// zero-dependency development mode.
type InMemoryStore struct {
	mu      sync.RWMutex
	matches map[int64]Match
	nextID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{matches: make(map[int64]Match), nextID: 1}
}

func (s *InMemoryStore) Create(_ context.Context, m *Match) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextID
	s.nextID++
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.matches[m.ID] = *m
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id int64) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("match %d not found", id))
	}
	return &m, nil
}

func (s *InMemoryStore) List(_ context.Context, f Filter) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := s.filtered(f)
	if f.Offset >= len(filtered) {
		return []Match{}, nil
	}
	end := len(filtered)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return filtered[f.Offset:end], nil
}

func (s *InMemoryStore) Count(_ context.Context, f Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filtered(f)), nil
}

// filtered returns matching rows ordered by id ascending. Callers hold s.mu.
func (s *InMemoryStore) filtered(f Filter) []Match {
	out := make([]Match, 0, len(s.matches))
	for _, m := range s.matches {
		if f.DonorID != "" && m.DonorID != f.DonorID {
			continue
		}
		if f.RecipientID != "" && m.RecipientID != f.RecipientID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *InMemoryStore) Update(_ context.Context, id int64, p UpdateParams) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.matches[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("match %d not found", id))
	}
	next, err := p.applyTo(cur)
	if err != nil {
		return nil, err
	}
	s.matches[id] = next
	return &next, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[id]; !ok {
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("match %d not found", id))
	}
	delete(s.matches, id)
	return nil
}
