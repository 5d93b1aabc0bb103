package offer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	dErrors "lifeline/pkg/domain-errors"
)

// InMemoryStore keeps offers in a process-local map for tests and development.
// The match reference stands in for the foreign key the Postgres schema
// enforces.
type InMemoryStore struct {
	mu      sync.RWMutex
	matches MatchRef
	offers  map[int64]Offer
	nextID  int64
}

func NewInMemoryStore(matches MatchRef) *InMemoryStore {
	return &InMemoryStore{matches: matches, offers: make(map[int64]Offer), nextID: 1}
}

func (s *InMemoryStore) Create(ctx context.Context, o *Offer) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if _, err := s.matches.Get(ctx, o.MatchID); err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("match %d does not exist", o.MatchID))
		}
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt
	s.offers[o.ID] = *o
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id int64) (*Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("offer %d not found", id))
	}
	return &o, nil
}

func (s *InMemoryStore) List(_ context.Context, p Page) ([]Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sorted()
	if p.Offset >= len(all) {
		return []Offer{}, nil
	}
	end := len(all)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return all[p.Offset:end], nil
}

func (s *InMemoryStore) ListByMatch(_ context.Context, matchID int64) ([]Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Offer{}
	for _, o := range s.sorted() {
		if o.MatchID == matchID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.offers), nil
}

func (s *InMemoryStore) Update(_ context.Context, id int64, p UpdateParams) (*Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.offers[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("offer %d not found", id))
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid offer status: "+string(*p.Status))
	}
	if p.RecipientID != nil {
		cur.RecipientID = *p.RecipientID
	}
	if p.Status != nil {
		cur.Status = *p.Status
	}
	// UpdatedAt is monotonically non-decreasing and refreshed on every mutation.
	if now := time.Now().UTC(); now.After(cur.UpdatedAt) {
		cur.UpdatedAt = now
	}
	s.offers[id] = cur
	return &cur, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[id]; !ok {
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("offer %d not found", id))
	}
	delete(s.offers, id)
	return nil
}

// sorted returns all offers ordered by id ascending. Callers hold s.mu.
func (s *InMemoryStore) sorted() []Offer {
	out := make([]Offer, 0, len(s.offers))
	for _, o := range s.offers {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
