package match

import "context"

// Filter narrows List results. Equality filters compose with AND.
type Filter struct {
	DonorID     string
	RecipientID string
	Limit       int
	Offset      int
}

// Store persists match records. Ordering of List is by id ascending and must
// stay stable across pages for a fixed filter set.
type Store interface {
	Create(ctx context.Context, m *Match) error
	Get(ctx context.Context, id int64) (*Match, error)
	List(ctx context.Context, f Filter) ([]Match, error)
	Count(ctx context.Context, f Filter) (int, error)
	Update(ctx context.Context, id int64, p UpdateParams) (*Match, error)
	Delete(ctx context.Context, id int64) error
}
