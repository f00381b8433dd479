package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OfferCreator hammers the one-live-offer rule: it keeps inserting fresh
// pending offers for the same employee and expects the partial unique index
// to reject all but one at a time.
func OfferCreator(ctx context.Context, pool *pgxpool.Pool, employeeID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `
INSERT INTO onboarding_states
    (id, employee_id, status, jurisdiction, salary, start_date,
     probation_months, notice_weeks, annual_leave_days, offer_sent_at, offer_expires_at)
VALUES ($1, $2, 'offer_pending', 'MY', 5000, CURRENT_DATE + 30, 3, 4, 8, NOW(), NOW() + interval '2 seconds')`,
			uuid.NewString(), employeeID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" { // expected under contention
			} else {
				return fmt.Errorf("offer creator insert: %w", err)
			}
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Responder races the expiry sweep: it locks a pending offer for the employee
// and answers it. The status re-check under the lock mirrors the service.
func Responder(ctx context.Context, pool *pgxpool.Pool, employeeID string, stop <-chan struct{}) error {
	responses := []string{"offer_accepted", "offer_rejected"}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var offerID string
		err = tx.QueryRow(ctx, `
SELECT id FROM onboarding_states
WHERE employee_id = $1 AND status = 'offer_pending' AND offer_expires_at > NOW()
LIMIT 1 FOR UPDATE`, employeeID).Scan(&offerID)
		if err == nil {
			next := responses[rand.Intn(len(responses))]
			_, err = tx.Exec(ctx, `
UPDATE onboarding_states
SET status = $1::onboarding_status, responded_at = NOW(), version = version + 1, updated_at = NOW()
WHERE id = $2`, next, offerID)
			if err == nil {
				kind := "OFFER_ACCEPTED"
				if next == "offer_rejected" {
					kind = "OFFER_REJECTED"
				}
				_, _ = tx.Exec(ctx, `INSERT INTO audit_events (offer_id, kind, payload) VALUES ($1, $2, '{}'::jsonb)`, offerID, kind)
				_ = tx.Commit(ctx)
			}
		}
		_ = tx.Rollback(ctx)
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Sweeper expires overdue pending offers one row per transaction, re-checking
// the status under the lock so it never clobbers a concurrent response.
func Sweeper(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var offerID string
		err = tx.QueryRow(ctx, `
SELECT id FROM onboarding_states
WHERE status = 'offer_pending' AND offer_expires_at < NOW()
LIMIT 1 FOR UPDATE SKIP LOCKED`).Scan(&offerID)
		if err == nil {
			_, err = tx.Exec(ctx, `
UPDATE onboarding_states
SET status = 'expired', version = version + 1, updated_at = NOW()
WHERE id = $1 AND status = 'offer_pending'`, offerID)
			if err == nil {
				_, _ = tx.Exec(ctx, `INSERT INTO audit_events (offer_id, kind, payload) VALUES ($1, 'OFFER_EXPIRED', '{}'::jsonb)`, offerID)
				_ = tx.Commit(ctx)
			}
		}
		_ = tx.Rollback(ctx)
		time.Sleep(time.Duration(15+rand.Intn(30)) * time.Millisecond)
	}
}

// Activator plays the cross-validation coordinator: it records a verdict,
// stamps last_validation_id, and moves accepted offers into onboarding only
// when the verdict is valid, all in one transaction.
func Activator(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var offerID string
		err = tx.QueryRow(ctx, `
SELECT id FROM onboarding_states
WHERE status = 'offer_accepted'
LIMIT 1 FOR UPDATE SKIP LOCKED`).Scan(&offerID)
		if err == nil {
			valid := rand.Intn(4) != 0
			overall := "valid"
			if !valid {
				overall = "invalid"
			}
			verdictID := uuid.NewString()
			_, err = tx.Exec(ctx, `
INSERT INTO agent_cross_checks (id, offer_id, source_action, policy_result, salary_result, overall_result)
VALUES ($1, $2, 'advance_to_active', $3, 'valid', $3)`, verdictID, offerID, overall)
			if err == nil {
				if valid {
					_, err = tx.Exec(ctx, `
UPDATE onboarding_states
SET status = 'onboarding_active', last_validation_id = $1,
    documents_assigned_at = COALESCE(documents_assigned_at, NOW()),
    training_assigned_at = COALESCE(training_assigned_at, NOW()),
    version = version + 1, updated_at = NOW()
WHERE id = $2`, verdictID, offerID)
				} else {
					_, err = tx.Exec(ctx, `
UPDATE onboarding_states
SET last_validation_id = $1, hr_notified_at = NOW(), updated_at = NOW()
WHERE id = $2`, verdictID, offerID)
					if err == nil {
						_, _ = tx.Exec(ctx, `INSERT INTO escalations (offer_id, reason) VALUES ($1, 'cross-validation failed')`, offerID)
					}
				}
				if err == nil {
					_, _ = tx.Exec(ctx, `INSERT INTO audit_events (offer_id, kind, payload) VALUES ($1, 'VALIDATION_RECORDED', '{}'::jsonb)`, offerID)
					_ = tx.Commit(ctx)
				}
			}
		}
		_ = tx.Rollback(ctx)
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// ReminderSender drives the once-per-level delivery guarantee: competing
// senders insert tasks and flip them to sent; the partial unique index must
// keep each (employee, type, level) sent at most once.
func ReminderSender(ctx context.Context, pool *pgxpool.Pool, employeeID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		level := 1 + rand.Intn(3)
		taskID := uuid.NewString()
		_, err := pool.Exec(ctx, `
INSERT INTO agentix_reminders (id, employee_id, type, channel, scheduled_for, status, escalation_level)
VALUES ($1, $2, 'offer_pending', 'email', NOW(), 'pending', $3)`, taskID, employeeID, level)
		if err == nil {
			_, err = pool.Exec(ctx, `
UPDATE agentix_reminders
SET status = 'sent', sent_at = NOW(), updated_at = NOW()
WHERE id = $1 AND status = 'pending'`, taskID)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					// another sender won the level; mark this attempt failed
					_, _ = pool.Exec(ctx, `UPDATE agentix_reminders SET status = 'failed', updated_at = NOW() WHERE id = $1`, taskID)
				} else {
					return fmt.Errorf("reminder sender mark sent: %w", err)
				}
			}
		}
		time.Sleep(time.Duration(25+rand.Intn(50)) * time.Millisecond)
	}
}

// AuditVandal tries to rewrite history; every attempt must bounce off the
// append-only trigger.
func AuditVandal(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var id int64
		if err := pool.QueryRow(ctx, `SELECT MIN(id) FROM audit_events`).Scan(&id); err != nil {
			time.Sleep(200 * time.Millisecond)
			continue
		}
		if _, err := pool.Exec(ctx, `UPDATE audit_events SET kind = 'TAMPERED' WHERE id = $1`, id); err == nil {
			return errors.New("audit vandal: update was allowed on audit_events")
		}
		if _, err := pool.Exec(ctx, `DELETE FROM audit_events WHERE id = $1`, id); err == nil {
			return errors.New("audit vandal: delete was allowed on audit_events")
		}
		time.Sleep(time.Duration(200+rand.Intn(200)) * time.Millisecond)
	}
}
