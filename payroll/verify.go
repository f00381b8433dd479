package payroll

import (
	"context"
	"fmt"

	"hronboard/validation"
)

// Calculator exposes the engine as the salary-checking capability consumed by
// the cross-validation coordinator.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// CheckSalary recomputes the statutory breakdown for the offer and confirms
// the figures land in the expected contribution bands.
func (c *Calculator) CheckSalary(ctx context.Context, subject validation.Subject) (validation.CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return validation.CheckResult{}, err
	}

	if subject.MonthlySalary.Sign() <= 0 {
		return validation.CheckResult{
			Valid:  false,
			Reason: "monthly salary must be positive",
		}, nil
	}

	breakdown := StatutoryBreakdown(subject.Jurisdiction, subject.MonthlySalary)
	if !breakdown.Supported {
		return validation.CheckResult{
			Valid:  false,
			Reason: fmt.Sprintf("no statutory rate tables for jurisdiction %q", subject.Jurisdiction),
		}, nil
	}
	if breakdown.Net.Sign() <= 0 {
		return validation.CheckResult{
			Valid:  false,
			Reason: "statutory deductions exceed gross salary",
		}, nil
	}

	return validation.CheckResult{
		Valid: true,
		Reason: fmt.Sprintf("retirement %s/%s, social insurance %s/%s, net %s",
			breakdown.Retirement.Employee.StringFixed(2),
			breakdown.Retirement.Employer.StringFixed(2),
			breakdown.SocialInsurance.Employee.StringFixed(2),
			breakdown.SocialInsurance.Employer.StringFixed(2),
			breakdown.Net.StringFixed(2)),
	}, nil
}
