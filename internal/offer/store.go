package offer

import (
	"context"

	"lifeline/internal/match"
)

// MatchRef resolves a match id to its record so offer creation can reject
// dangling references. match.Store satisfies it.
type MatchRef interface {
	Get(ctx context.Context, id int64) (*match.Match, error)
}

// Store persists offer records. List ordering is by id ascending and stable
// across pages. Create rejects offers whose MatchID does not reference an
// existing match.
type Store interface {
	Create(ctx context.Context, o *Offer) error
	Get(ctx context.Context, id int64) (*Offer, error)
	List(ctx context.Context, p Page) ([]Offer, error)
	ListByMatch(ctx context.Context, matchID int64) ([]Offer, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id int64, p UpdateParams) (*Offer, error)
	Delete(ctx context.Context, id int64) error
}
