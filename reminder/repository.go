package reminder

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateSent signals an insert that would record a second sent task for
// the same (employee, type, level). The partial unique index enforces this.
var ErrDuplicateSent = errors.New("reminder: level already sent")

const taskColumns = `id, employee_id, type::text, channel, scheduled_for, sent_at, status::text, escalation_level, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Tasks returns every task for one (employee, type) pair, newest level first.
func (r *Repository) Tasks(ctx context.Context, employeeID string, typ Type) ([]Task, error) {
	const query = `
SELECT ` + taskColumns + `
FROM agentix_reminders
WHERE employee_id = $1 AND type = $2
ORDER BY escalation_level DESC, created_at DESC
`
	rows, err := r.pool.Query(ctx, query, employeeID, string(typ))
	if err != nil {
		return nil, fmt.Errorf("reminder: query tasks: %w", err)
	}
	defer rows.Close()

	out := make([]Task, 0, 4)
	for rows.Next() {
		var t Task
		if err := rows.Scan(
			&t.ID,
			&t.EmployeeID,
			&t.Type,
			&t.Channel,
			&t.ScheduledFor,
			&t.SentAt,
			&t.Status,
			&t.EscalationLevel,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("reminder: scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reminder: iterate tasks: %w", err)
	}
	return out, nil
}

// Insert creates a pending task for one escalation level.
func (r *Repository) Insert(ctx context.Context, t Task) (Task, error) {
	const insertSQL = `
INSERT INTO agentix_reminders (id, employee_id, type, channel, scheduled_for, status, escalation_level)
VALUES ($1, $2, $3, $4, $5, 'pending', $6)
RETURNING created_at, updated_at
`
	err := r.pool.QueryRow(ctx, insertSQL,
		t.ID,
		t.EmployeeID,
		string(t.Type),
		t.Channel,
		t.ScheduledFor,
		t.EscalationLevel,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Task{}, ErrDuplicateSent
		}
		return Task{}, fmt.Errorf("reminder: insert task: %w", err)
	}
	t.Status = TaskPending
	return t, nil
}

// MarkSent records a successful delivery. The partial unique index rejects a
// second sent row for the same (employee, type, level).
func (r *Repository) MarkSent(ctx context.Context, id string) error {
	const updateSQL = `
UPDATE agentix_reminders
SET status = 'sent', sent_at = now(), updated_at = now()
WHERE id = $1 AND status = 'pending'
`
	tag, err := r.pool.Exec(ctx, updateSQL, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSent
		}
		return fmt.Errorf("reminder: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminder: mark sent: task %s not pending", id)
	}
	return nil
}

// MarkFailed records a delivery failure. The next sweep creates a fresh task
// for the level.
func (r *Repository) MarkFailed(ctx context.Context, id string) error {
	const updateSQL = `
UPDATE agentix_reminders
SET status = 'failed', updated_at = now()
WHERE id = $1 AND status = 'pending'
`
	tag, err := r.pool.Exec(ctx, updateSQL, id)
	if err != nil {
		return fmt.Errorf("reminder: mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminder: mark failed: task %s not pending", id)
	}
	return nil
}
