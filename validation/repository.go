package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists verdicts to agent_cross_checks and stamps the offer's
// last_validation_id, in one transaction, so a committed verdict and the
// offer's pointer to it never diverge.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Save(ctx context.Context, v Verdict) (Verdict, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Verdict{}, fmt.Errorf("validation: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
INSERT INTO agent_cross_checks
    (id, offer_id, source_action, policy_result, policy_reason, salary_result, salary_reason, overall_result)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at
`
	if err := tx.QueryRow(ctx, insertSQL,
		v.ID,
		v.OfferID,
		v.SourceAction,
		string(v.PolicyResult),
		v.PolicyReason,
		string(v.SalaryResult),
		v.SalaryReason,
		string(v.Overall),
	).Scan(&v.CreatedAt); err != nil {
		return Verdict{}, fmt.Errorf("validation: insert verdict: %w", err)
	}

	if _, err := tx.Exec(ctx, `
UPDATE onboarding_states
SET last_validation_id = $1,
    updated_at = now()
WHERE id = $2
`, v.ID, v.OfferID); err != nil {
		return Verdict{}, fmt.Errorf("validation: stamp last validation: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"verdict_id":    v.ID,
		"source_action": v.SourceAction,
		"policy_result": v.PolicyResult,
		"salary_result": v.SalaryResult,
		"overall":       v.Overall,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("validation: marshal audit payload: %w", err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO audit_events (offer_id, kind, payload)
VALUES ($1, 'VALIDATION_RECORDED', $2::jsonb)
`, v.OfferID, payload); err != nil {
		return Verdict{}, fmt.Errorf("validation: audit verdict: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Verdict{}, fmt.Errorf("validation: commit verdict: %w", err)
	}
	return v, nil
}

// LastForOffer returns the most recent verdict for the offer, or false when
// none exists.
func (r *Repository) LastForOffer(ctx context.Context, offerID string) (Verdict, bool, error) {
	const query = `
SELECT id, offer_id, source_action, policy_result, policy_reason, salary_result, salary_reason, overall_result, created_at
FROM agent_cross_checks
WHERE offer_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1
`
	var v Verdict
	err := r.pool.QueryRow(ctx, query, offerID).Scan(
		&v.ID,
		&v.OfferID,
		&v.SourceAction,
		&v.PolicyResult,
		&v.PolicyReason,
		&v.SalaryResult,
		&v.SalaryReason,
		&v.Overall,
		&v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Verdict{}, false, nil
		}
		return Verdict{}, false, fmt.Errorf("validation: last verdict: %w", err)
	}
	return v, true, nil
}
