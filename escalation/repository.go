package escalation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("escalation: not found")
	ErrBadStatus = errors.New("escalation: already resolved")
)

const recordColumns = `id, offer_id, reason, status::text, created_at, updated_at, resolved_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Raise inserts an open escalation inside the caller's transaction, so the
// escalation and the audit event that references it commit together.
func (r *Repository) Raise(ctx context.Context, tx pgx.Tx, offerID, reason string) error {
	if offerID == "" {
		return fmt.Errorf("escalation: offer id required")
	}
	const insertSQL = `
INSERT INTO escalations (offer_id, reason, status)
VALUES ($1, $2, 'open')
`
	if _, err := tx.Exec(ctx, insertSQL, offerID, reason); err != nil {
		return fmt.Errorf("escalation: raise: %w", err)
	}
	return nil
}

// List returns escalations, optionally filtered to one status.
func (r *Repository) List(ctx context.Context, status Status) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM escalations`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("escalation: list: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 8)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.OfferID, &rec.Reason, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("escalation: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("escalation: iterate: %w", err)
	}
	return out, nil
}

// Resolve marks an open escalation resolved.
func (r *Repository) Resolve(ctx context.Context, id string) (Record, error) {
	const updateSQL = `
UPDATE escalations
SET status = 'resolved',
    resolved_at = now(),
    updated_at = now()
WHERE id = $1 AND status <> 'resolved'
RETURNING ` + recordColumns

	var rec Record
	err := r.pool.QueryRow(ctx, updateSQL, id).Scan(&rec.ID, &rec.OfferID, &rec.Reason, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt, &rec.ResolvedAt)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("escalation: resolve: %w", err)
	}

	var status Status
	if err := r.pool.QueryRow(ctx, `SELECT status::text FROM escalations WHERE id = $1`, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("escalation: resolve fetch: %w", err)
	}
	return Record{}, ErrBadStatus
}
