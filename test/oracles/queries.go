package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_unique_active_offer",
			SQL: `SELECT employee_id, COUNT(*) FROM onboarding_states
                  WHERE status NOT IN ('offer_rejected','onboarding_complete','expired')
                  GROUP BY employee_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_offer_window_positive",
			SQL:  `SELECT id FROM onboarding_states WHERE offer_expires_at <= offer_sent_at`,
		},
		{
			Name: "O3_active_requires_valid_verdict",
			SQL: `SELECT s.id FROM onboarding_states s
                  LEFT JOIN agent_cross_checks c ON c.id = s.last_validation_id
                  WHERE s.status IN ('onboarding_active','onboarding_complete')
                    AND (c.id IS NULL OR c.overall_result <> 'valid')`,
		},
		{
			Name: "O4_expired_never_responded",
			SQL:  `SELECT id FROM onboarding_states WHERE status = 'expired' AND responded_at IS NOT NULL`,
		},
		{
			Name: "O5_sent_reminder_level_unique",
			SQL: `SELECT employee_id, type, escalation_level, COUNT(*) FROM agentix_reminders
                  WHERE status = 'sent'
                  GROUP BY employee_id, type, escalation_level HAVING COUNT(*) > 1`,
		},
		{
			Name: "O6_open_escalation_notifies_hr",
			SQL: `SELECT e.id FROM escalations e
                  JOIN onboarding_states s ON s.id = e.offer_id
                  WHERE e.status = 'open' AND s.hr_notified_at IS NULL`,
		},
		{
			Name: "O7_audit_append_only_guard",
			SQL: `SELECT 'missing_audit_guard_trigger' AS detail
                  WHERE NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname='audit_events_no_rewrite')`,
		},
		{
			Name: "O8_audit_traceability",
			SQL:  `SELECT id FROM audit_events WHERE offer_id IS NULL AND employee_id IS NULL`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
