package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	dErrors "lifeline/pkg/domain-errors"
)

// PostgresStore persists matches in PostgreSQL through database/sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const matchColumns = `id, donor_id, organ_id, recipient_id, donor_blood_type,
	recipient_blood_type, organ_type, score, status, created_at`

func (s *PostgresStore) Create(ctx context.Context, m *Match) error {
	if err := m.Validate(); err != nil {
		return err
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO matches
			(donor_id, organ_id, recipient_id, donor_blood_type,
			 recipient_blood_type, organ_type, score, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		m.DonorID, m.OrganID, m.RecipientID, m.DonorBloodType,
		m.RecipientBloodType, string(m.OrganType), m.Score, string(m.Status),
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*Match, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("match %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE 1=1`
	args := []any{}
	if f.DonorID != "" {
		args = append(args, f.DonorID)
		query += fmt.Sprintf(" AND donor_id = $%d", len(args))
	}
	if f.RecipientID != "" {
		args = append(args, f.RecipientID)
		query += fmt.Sprintf(" AND recipient_id = $%d", len(args))
	}
	query += " ORDER BY id ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	args = append(args, f.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int, error) {
	query := `SELECT COUNT(*) FROM matches WHERE 1=1`
	args := []any{}
	if f.DonorID != "" {
		args = append(args, f.DonorID)
		query += fmt.Sprintf(" AND donor_id = $%d", len(args))
	}
	if f.RecipientID != "" {
		args = append(args, f.RecipientID)
		query += fmt.Sprintf(" AND recipient_id = $%d", len(args))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return n, nil
}

// Update reads the current row under a lock, validates the transition, and
// writes the merged record. The row lock keeps concurrent partial updates from
// interleaving.
func (s *PostgresStore) Update(ctx context.Context, id int64, p UpdateParams) (*Match, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update match: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
	cur, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("match %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("load match for update: %w", err)
	}

	next, err := p.applyTo(*cur)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE matches SET
			donor_id = $1, organ_id = $2, recipient_id = $3,
			donor_blood_type = $4, recipient_blood_type = $5,
			organ_type = $6, score = $7, status = $8
		WHERE id = $9`,
		next.DonorID, next.OrganID, next.RecipientID,
		next.DonorBloodType, next.RecipientBloodType,
		string(next.OrganType), next.Score, string(next.Status), id)
	if err != nil {
		return nil, fmt.Errorf("update match: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update match: %w", err)
	}
	return &next, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete match rows affected: %w", err)
	}
	if n == 0 {
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("match %d not found", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*Match, error) {
	var m Match
	var organType, status string
	err := row.Scan(&m.ID, &m.DonorID, &m.OrganID, &m.RecipientID,
		&m.DonorBloodType, &m.RecipientBloodType, &organType, &m.Score,
		&status, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.OrganType = OrganType(organType)
	m.Status = Status(status)
	return &m, nil
}
