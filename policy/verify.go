package policy

import (
	"context"
	"strings"

	"hronboard/validation"
)

// CheckPolicy adapts the rule checker to the policy-checking capability
// consumed by the cross-validation coordinator.
func (c *Checker) CheckPolicy(ctx context.Context, subject validation.Subject) (validation.CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return validation.CheckResult{}, err
	}

	res := c.Check(OfferTerms{
		Jurisdiction:    subject.Jurisdiction,
		MonthlySalary:   subject.MonthlySalary,
		ProbationMonths: subject.ProbationMonths,
		NoticeWeeks:     subject.NoticeWeeks,
		AnnualLeaveDays: subject.AnnualLeaveDays,
	})
	if !res.Valid {
		return validation.CheckResult{Valid: false, Reason: strings.Join(res.Reasons, "; ")}, nil
	}
	return validation.CheckResult{Valid: true, Reason: "all employment-law floors met"}, nil
}
