// Package events publishes match domain events to the bus.
package events

import (
	"context"
	"sync"
)

// MatchEvent is emitted once per successful match in a matching pass.
type MatchEvent struct {
	MatchID     int64  `json:"match_id"`
	DonorID     string `json:"donor_id"`
	OrganID     string `json:"organ_id"`
	RecipientID string `json:"recipient_id"`
	OrganType   string `json:"organ_type"`
	Message     string `json:"message"`
}

// Publisher delivers match events to interested consumers.
type Publisher interface {
	PublishMatch(ctx context.Context, ev MatchEvent) error
	Close()
}

// MemoryPublisher records events in memory. It backs tests and runs without a
// broker in development.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []MatchEvent
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) PublishMatch(_ context.Context, ev MatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []MatchEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]MatchEvent{}, p.events...)
}

func (p *MemoryPublisher) Close() {}
