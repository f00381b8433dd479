package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUntraceable signals an event carrying neither an offer id nor an
// employee id; such rows would be unqueryable and are rejected up front.
var ErrUntraceable = errors.New("audit: event needs an offer id or employee id")

// Recorder appends audit events. Transition audit rows are written through
// Append inside the same transaction as the state change, so a transition is
// only visible to callers once its audit row is committed with it.
type Recorder struct {
	pool *pgxpool.Pool
}

func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Append writes the event inside the caller's transaction.
func (r *Recorder) Append(ctx context.Context, tx pgx.Tx, ev Event) error {
	return insertEvent(ctx, tx, ev)
}

// Record writes the event on its own connection, for callers that are not
// inside a transaction (dispatch attempts, sweep bookkeeping).
func (r *Recorder) Record(ctx context.Context, ev Event) error {
	return insertEvent(ctx, r.pool, ev)
}

func insertEvent(ctx context.Context, q execer, ev Event) error {
	if ev.OfferID == "" && ev.EmployeeID == "" {
		return ErrUntraceable
	}
	if ev.Kind == "" {
		return fmt.Errorf("audit: event kind required")
	}

	payload := ev.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("audit: marshal payload: %w", err)
	}

	var offerID, employeeID any
	if ev.OfferID != "" {
		offerID = ev.OfferID
	}
	if ev.EmployeeID != "" {
		employeeID = ev.EmployeeID
	}

	const insertSQL = `
INSERT INTO audit_events (offer_id, employee_id, kind, payload)
VALUES ($1, $2, $3, $4::jsonb)
`
	if _, err := q.Exec(ctx, insertSQL, offerID, employeeID, ev.Kind, body); err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

// ListByOffer returns the full trail for an offer, oldest first.
func (r *Recorder) ListByOffer(ctx context.Context, offerID string) ([]Stored, error) {
	const query = `
SELECT id, offer_id::text, employee_id::text, kind, payload, created_at
FROM audit_events
WHERE offer_id = $1
ORDER BY id ASC
`
	rows, err := r.pool.Query(ctx, query, offerID)
	if err != nil {
		return nil, fmt.Errorf("audit: list by offer: %w", err)
	}
	defer rows.Close()

	out := make([]Stored, 0, 16)
	for rows.Next() {
		var ev Stored
		if err := rows.Scan(&ev.ID, &ev.OfferID, &ev.EmployeeID, &ev.Kind, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}
	return out, nil
}
