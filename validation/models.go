package validation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Result is a single check outcome.
type Result string

const (
	ResultValid   Result = "valid"
	ResultInvalid Result = "invalid"
)

// ReasonUnavailable marks a check that could not complete. It is always
// mapped to ResultInvalid; an unreachable collaborator never passes.
const ReasonUnavailable = "validation_unavailable"

// Subject is the slice of an offer that the two checks evaluate.
type Subject struct {
	OfferID         string
	EmployeeID      string
	Jurisdiction    string
	MonthlySalary   decimal.Decimal
	ProbationMonths int
	NoticeWeeks     int
	AnnualLeaveDays int
}

// CheckResult is what each capability returns for a subject.
type CheckResult struct {
	Valid  bool
	Reason string
}

// Verdict is one persisted cross-validation run. Verdicts are append-only; a
// re-evaluation writes a new row.
type Verdict struct {
	ID           string
	OfferID      string
	SourceAction string
	PolicyResult Result
	PolicyReason string
	SalaryResult Result
	SalaryReason string
	Overall      Result
	CreatedAt    time.Time
}

// IsValid reports whether both checks passed.
func (v Verdict) IsValid() bool {
	return v.Overall == ResultValid
}
