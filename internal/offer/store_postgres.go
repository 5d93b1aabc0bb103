package offer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	dErrors "lifeline/pkg/domain-errors"
)

// PostgresStore persists offers in PostgreSQL. The offers.match_id foreign key
// backs the one-offer-one-match invariant at the schema level.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const offerColumns = `id, match_id, COALESCE(recipient_id, ''), status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, o *Offer) error {
	if err := o.Validate(); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO offers (match_id, recipient_id, status)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id, created_at, updated_at`,
		o.MatchID, o.RecipientID, string(o.Status),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("match %d does not exist", o.MatchID))
		}
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*Offer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	o, err := scanOffer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("offer %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) List(ctx context.Context, p Page) ([]Offer, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM offers ORDER BY id ASC LIMIT $1 OFFSET $2`,
		limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()
	return collectOffers(rows)
}

func (s *PostgresStore) ListByMatch(ctx context.Context, matchID int64) ([]Offer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE match_id = $1 ORDER BY id ASC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list offers by match: %w", err)
	}
	defer rows.Close()
	return collectOffers(rows)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count offers: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, p UpdateParams) (*Offer, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid offer status: "+string(*p.Status))
	}
	// updated_at only moves forward; GREATEST guards against clock skew
	// between app servers. A nil recipient keeps the prior value; a supplied
	// one is assigned, with empty normalized to NULL as on insert.
	row := s.db.QueryRowContext(ctx, `
		UPDATE offers SET
			recipient_id = CASE WHEN $1::text IS NULL THEN recipient_id ELSE NULLIF($1, '') END,
			status = COALESCE($2, status),
			updated_at = GREATEST(updated_at, now())
		WHERE id = $3
		RETURNING `+offerColumns,
		p.RecipientID, statusOrNil(p.Status), id)
	o, err := scanOffer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("offer %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("update offer: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete offer rows affected: %w", err)
	}
	if n == 0 {
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("offer %d not found", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*Offer, error) {
	var o Offer
	var status string
	err := row.Scan(&o.ID, &o.MatchID, &o.RecipientID, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

func collectOffers(rows *sql.Rows) ([]Offer, error) {
	offers := []Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, *o)
	}
	return offers, rows.Err()
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func statusOrNil(s *Status) any {
	if s == nil {
		return nil
	}
	return string(*s)
}
