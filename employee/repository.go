package employee

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested employee does not exist.
var ErrNotFound = errors.New("employee: not found")

const recordColumns = `id, full_name, email, chat_id, messenger_id, position, department, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts the employee or, when the email is already registered,
// refreshes the mutable fields and returns the existing row. Runs inside the
// caller's transaction so offer creation and employee creation commit
// together.
func (r *Repository) Upsert(ctx context.Context, tx pgx.Tx, params UpsertParams) (Record, error) {
	if params.Email == "" {
		return Record{}, fmt.Errorf("employee: email required")
	}
	if params.FullName == "" {
		return Record{}, fmt.Errorf("employee: full name required")
	}

	const upsertSQL = `
INSERT INTO employees (id, full_name, email, chat_id, messenger_id, position, department)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (email) DO UPDATE
SET full_name = EXCLUDED.full_name,
    chat_id = EXCLUDED.chat_id,
    messenger_id = EXCLUDED.messenger_id,
    position = EXCLUDED.position,
    department = EXCLUDED.department,
    updated_at = now()
RETURNING ` + recordColumns

	var rec Record
	if err := tx.QueryRow(ctx, upsertSQL,
		params.ID,
		params.FullName,
		params.Email,
		params.ChatID,
		params.MessengerID,
		params.Position,
		params.Department,
	).Scan(
		&rec.ID,
		&rec.FullName,
		&rec.Email,
		&rec.ChatID,
		&rec.MessengerID,
		&rec.Position,
		&rec.Department,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return Record{}, fmt.Errorf("employee: upsert: %w", err)
	}
	return rec, nil
}

// GetByID fetches an employee by primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM employees WHERE id = $1`, id).Scan(
		&rec.ID,
		&rec.FullName,
		&rec.Email,
		&rec.ChatID,
		&rec.MessengerID,
		&rec.Position,
		&rec.Department,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("employee: query by id: %w", err)
	}
	return rec, nil
}
