package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hronboard/reminder"
	"hronboard/validation"
)

var (
	// ErrNotFound is returned when no offer row exists for the identifier.
	ErrNotFound = errors.New("offer: not found")
	// ErrDuplicateOffer signals a non-terminal offer already exists for the
	// employee; the partial unique index is the source of truth.
	ErrDuplicateOffer = errors.New("offer: active offer already exists for employee")
)

const recordColumns = `
id, employee_id, status::text, jurisdiction, salary, position, department,
start_date, probation_months, notice_weeks, annual_leave_days,
offer_sent_at, offer_expires_at, responded_at, rejection_reason, hr_notified_at,
documents_assigned_at, training_assigned_at, checklist_done,
last_validation_id::text, version, created_at, updated_at`

// Repository is the pgx-backed store for onboarding_states. Mutating methods
// run inside the caller's transaction so a transition and its audit row
// commit or roll back together.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert creates a new offer row in offer_pending.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, rec Record) (Record, error) {
	const insertSQL = `
INSERT INTO onboarding_states
    (id, employee_id, status, jurisdiction, salary, position, department,
     start_date, probation_months, notice_weeks, annual_leave_days,
     offer_sent_at, offer_expires_at)
VALUES ($1, $2, 'offer_pending', $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + recordColumns

	row := tx.QueryRow(ctx, insertSQL,
		rec.ID,
		rec.EmployeeID,
		rec.Jurisdiction,
		rec.Salary,
		rec.Position,
		rec.Department,
		rec.StartDate,
		rec.ProbationMonths,
		rec.NoticeWeeks,
		rec.AnnualLeaveDays,
		rec.OfferSentAt,
		rec.OfferExpiresAt,
	)
	created, err := scanRecord(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrDuplicateOffer
		}
		return Record{}, fmt.Errorf("offer: insert: %w", err)
	}
	return created, nil
}

// Get fetches an offer by id.
func (r *Repository) Get(ctx context.Context, id string) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM onboarding_states WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("offer: get: %w", err)
	}
	return rec, nil
}

// GetForUpdate locks the offer row for the remainder of the transaction.
// Every transition re-reads status under this lock so a candidate response
// and the expiry sweep cannot both commit against the same row.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Record, error) {
	row := tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM onboarding_states WHERE id = $1 FOR UPDATE`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("offer: get for update: %w", err)
	}
	return rec, nil
}

// MarkResponded records the candidate's decision.
func (r *Repository) MarkResponded(ctx context.Context, tx pgx.Tx, id string, to Status, reason *string, at time.Time) error {
	const updateSQL = `
UPDATE onboarding_states
SET status = $1::onboarding_status,
    responded_at = $2,
    rejection_reason = $3,
    version = version + 1,
    updated_at = now()
WHERE id = $4
`
	if _, err := tx.Exec(ctx, updateSQL, string(to), at, reason, id); err != nil {
		return fmt.Errorf("offer: mark responded: %w", err)
	}
	return nil
}

// MarkExpired transitions a pending offer to expired. The WHERE clause
// re-checks the status so a row that was answered moments earlier is left
// alone; callers inspect the returned flag.
func (r *Repository) MarkExpired(ctx context.Context, tx pgx.Tx, id string) (bool, error) {
	const updateSQL = `
UPDATE onboarding_states
SET status = 'expired',
    version = version + 1,
    updated_at = now()
WHERE id = $1 AND status = 'offer_pending'
`
	tag, err := tx.Exec(ctx, updateSQL, id)
	if err != nil {
		return false, fmt.Errorf("offer: mark expired: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkActive transitions an accepted offer into onboarding and stamps the
// document/training milestone clocks used by overdue reminders.
func (r *Repository) MarkActive(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	const updateSQL = `
UPDATE onboarding_states
SET status = 'onboarding_active',
    documents_assigned_at = COALESCE(documents_assigned_at, $1),
    training_assigned_at = COALESCE(training_assigned_at, $1),
    version = version + 1,
    updated_at = now()
WHERE id = $2
`
	if _, err := tx.Exec(ctx, updateSQL, at, id); err != nil {
		return fmt.Errorf("offer: mark active: %w", err)
	}
	return nil
}

// MarkComplete closes out onboarding.
func (r *Repository) MarkComplete(ctx context.Context, tx pgx.Tx, id string) error {
	const updateSQL = `
UPDATE onboarding_states
SET status = 'onboarding_complete',
    checklist_done = true,
    version = version + 1,
    updated_at = now()
WHERE id = $1
`
	if _, err := tx.Exec(ctx, updateSQL, id); err != nil {
		return fmt.Errorf("offer: mark complete: %w", err)
	}
	return nil
}

// MarkHRNotified stamps hr_notified_at when an escalation is raised.
func (r *Repository) MarkHRNotified(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	const updateSQL = `
UPDATE onboarding_states
SET hr_notified_at = $1,
    updated_at = now()
WHERE id = $2
`
	if _, err := tx.Exec(ctx, updateSQL, at, id); err != nil {
		return fmt.Errorf("offer: mark hr notified: %w", err)
	}
	return nil
}

// DueForExpiry lists pending offers whose window has passed. The ids are
// candidates only; the expiry transaction re-checks each row under lock.
func (r *Repository) DueForExpiry(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
SELECT id
FROM onboarding_states
WHERE status = 'offer_pending' AND offer_expires_at < $1
ORDER BY offer_expires_at ASC
`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("offer: due for expiry: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("offer: scan expiry id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("offer: iterate expiry ids: %w", err)
	}
	return ids, nil
}

// ListPending returns all non-terminal offers with the remaining days of the
// response window (zero once past due or already answered).
func (r *Repository) ListPending(ctx context.Context, now time.Time) ([]PendingOffer, error) {
	const query = `
SELECT ` + recordColumns + `
FROM onboarding_states
WHERE status IN ('offer_pending', 'offer_accepted', 'onboarding_active')
ORDER BY offer_sent_at ASC
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("offer: list pending: %w", err)
	}
	defer rows.Close()

	out := make([]PendingOffer, 0, 16)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("offer: scan pending: %w", err)
		}
		days := 0
		if rec.Status == StatusOfferPending && rec.OfferExpiresAt.After(now) {
			days = int(rec.OfferExpiresAt.Sub(now).Hours() / 24)
		}
		out = append(out, PendingOffer{Record: rec, DaysUntilExpiry: days})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("offer: iterate pending: %w", err)
	}
	return out, nil
}

// Stats counts offers per status.
func (r *Repository) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status::text, COUNT(*) FROM onboarding_states GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("offer: stats: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, 6)
	for rows.Next() {
		var (
			raw string
			n   int
		)
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, fmt.Errorf("offer: scan stats: %w", err)
		}
		st, err := ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		counts[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("offer: iterate stats: %w", err)
	}
	return counts, nil
}

// ActiveByEmployee returns the employee's one non-terminal offer. The partial
// unique index guarantees at most one such row exists.
func (r *Repository) ActiveByEmployee(ctx context.Context, employeeID string) (Record, error) {
	const query = `
SELECT ` + recordColumns + `
FROM onboarding_states
WHERE employee_id = $1
  AND status NOT IN ('offer_rejected', 'onboarding_complete', 'expired')
`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("offer: active by employee: %w", err)
	}
	return rec, nil
}

// Subject loads the slice of the offer the cross-validation checks evaluate.
func (r *Repository) Subject(ctx context.Context, offerID string) (validation.Subject, error) {
	rec, err := r.Get(ctx, offerID)
	if err != nil {
		return validation.Subject{}, err
	}
	return validation.Subject{
		OfferID:         rec.ID,
		EmployeeID:      rec.EmployeeID,
		Jurisdiction:    rec.Jurisdiction,
		MonthlySalary:   rec.Salary,
		ProbationMonths: rec.ProbationMonths,
		NoticeWeeks:     rec.NoticeWeeks,
		AnnualLeaveDays: rec.AnnualLeaveDays,
	}, nil
}

// ReminderCandidates lists the milestone clocks the reminder sweep evaluates:
// the offer-sent time for pending offers, and the document/training
// assignment times for active onboardings that still have work open.
func (r *Repository) ReminderCandidates(ctx context.Context) ([]reminder.Candidate, error) {
	const query = `
SELECT id, employee_id, status::text, offer_sent_at,
       documents_assigned_at, training_assigned_at, checklist_done
FROM onboarding_states
WHERE status IN ('offer_pending', 'onboarding_active')
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("offer: reminder candidates: %w", err)
	}
	defer rows.Close()

	out := make([]reminder.Candidate, 0, 16)
	for rows.Next() {
		var (
			id            string
			employeeID    string
			status        string
			sentAt        time.Time
			docsAt        *time.Time
			trainingAt    *time.Time
			checklistDone bool
		)
		if err := rows.Scan(&id, &employeeID, &status, &sentAt, &docsAt, &trainingAt, &checklistDone); err != nil {
			return nil, fmt.Errorf("offer: scan reminder candidate: %w", err)
		}

		switch Status(status) {
		case StatusOfferPending:
			out = append(out, reminder.Candidate{
				OfferID:     id,
				EmployeeID:  employeeID,
				Type:        reminder.TypeOfferPending,
				MilestoneAt: sentAt,
			})
		case StatusOnboardingActive:
			if checklistDone {
				continue
			}
			if docsAt != nil {
				out = append(out, reminder.Candidate{
					OfferID:     id,
					EmployeeID:  employeeID,
					Type:        reminder.TypeDocumentOverdue,
					MilestoneAt: *docsAt,
				})
			}
			if trainingAt != nil {
				out = append(out, reminder.Candidate{
					OfferID:     id,
					EmployeeID:  employeeID,
					Type:        reminder.TypeTrainingIncomplete,
					MilestoneAt: *trainingAt,
				})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("offer: iterate reminder candidates: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec    Record
		status string
	)
	err := row.Scan(
		&rec.ID,
		&rec.EmployeeID,
		&status,
		&rec.Jurisdiction,
		&rec.Salary,
		&rec.Position,
		&rec.Department,
		&rec.StartDate,
		&rec.ProbationMonths,
		&rec.NoticeWeeks,
		&rec.AnnualLeaveDays,
		&rec.OfferSentAt,
		&rec.OfferExpiresAt,
		&rec.RespondedAt,
		&rec.RejectionReason,
		&rec.HRNotifiedAt,
		&rec.DocumentsAssignedAt,
		&rec.TrainingAssignedAt,
		&rec.ChecklistDone,
		&rec.LastValidationID,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}
