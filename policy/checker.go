// Package policy checks proposed offer terms against jurisdiction
// employment-law constraints. The checker is stateless; every call evaluates
// the full rule table for the stated jurisdiction.
package policy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OfferTerms are the contract terms subject to statutory floors.
type OfferTerms struct {
	Jurisdiction    string
	MonthlySalary   decimal.Decimal
	ProbationMonths int
	NoticeWeeks     int
	AnnualLeaveDays int
}

// Result reports whether the terms clear every rule, with one reason per
// violated rule.
type Result struct {
	Valid   bool
	Reasons []string
}

type Checker struct{}

func NewChecker() *Checker {
	return &Checker{}
}

// Check evaluates terms against the jurisdiction's rule table. Unknown
// jurisdictions fail closed.
func (c *Checker) Check(terms OfferTerms) Result {
	lim, ok := jurisdictionLimits[terms.Jurisdiction]
	if !ok {
		return Result{Reasons: []string{
			fmt.Sprintf("no employment-law rules for jurisdiction %q", terms.Jurisdiction),
		}}
	}

	var reasons []string
	if terms.MonthlySalary.Sign() <= 0 {
		reasons = append(reasons, "monthly salary must be positive")
	} else if lim.MinMonthlySalary.Sign() > 0 && terms.MonthlySalary.LessThan(lim.MinMonthlySalary) {
		reasons = append(reasons, fmt.Sprintf(
			"monthly salary %s is below the statutory minimum wage %s",
			terms.MonthlySalary.StringFixed(2), lim.MinMonthlySalary.StringFixed(2)))
	}
	if terms.ProbationMonths < 0 || terms.ProbationMonths > lim.MaxProbationMonths {
		reasons = append(reasons, fmt.Sprintf(
			"probation of %d months exceeds the %d month limit",
			terms.ProbationMonths, lim.MaxProbationMonths))
	}
	if terms.NoticeWeeks < lim.MinNoticeWeeks {
		reasons = append(reasons, fmt.Sprintf(
			"notice period of %d weeks is below the %d week minimum",
			terms.NoticeWeeks, lim.MinNoticeWeeks))
	}
	if terms.AnnualLeaveDays < lim.MinAnnualLeaveDays {
		reasons = append(reasons, fmt.Sprintf(
			"annual leave of %d days is below the %d day entitlement floor",
			terms.AnnualLeaveDays, lim.MinAnnualLeaveDays))
	}

	return Result{Valid: len(reasons) == 0, Reasons: reasons}
}
