// Package validation coordinates the independent policy and payroll checks
// that gate compliance-sensitive offer transitions.
package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PolicyChecker confirms the offer terms meet jurisdiction employment-law
// floors.
type PolicyChecker interface {
	CheckPolicy(ctx context.Context, subject Subject) (CheckResult, error)
}

// PayrollCalculator confirms compensation figures land in the expected
// statutory contribution bands.
type PayrollCalculator interface {
	CheckSalary(ctx context.Context, subject Subject) (CheckResult, error)
}

// SubjectSource loads the validation subject for an offer.
type SubjectSource interface {
	Subject(ctx context.Context, offerID string) (Subject, error)
}

// VerdictStore persists verdicts before they are handed back to callers.
type VerdictStore interface {
	Save(ctx context.Context, v Verdict) (Verdict, error)
}

// Coordinator runs both checks for a gated transition and folds them into a
// single persisted verdict. The two checks are independent and run jointly,
// so the caller waits for the slower of the two, not their sum.
type Coordinator struct {
	source  SubjectSource
	store   VerdictStore
	policy  PolicyChecker
	salary  PayrollCalculator
	timeout time.Duration
	now     func() time.Time
	idGen   func() string
}

func NewCoordinator(source SubjectSource, store VerdictStore, policy PolicyChecker, salary PayrollCalculator, timeout time.Duration) *Coordinator {
	return &Coordinator{
		source:  source,
		store:   store,
		policy:  policy,
		salary:  salary,
		timeout: timeout,
		now:     time.Now,
		idGen:   func() string { return uuid.NewString() },
	}
}

func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

func (c *Coordinator) WithIDGenerator(gen func() string) *Coordinator {
	c.idGen = gen
	return c
}

// Validate runs both checks for the offer and returns the persisted verdict.
// A check that errors or times out is recorded as invalid with reason
// "validation_unavailable"; there is no pass-by-default path.
func (c *Coordinator) Validate(ctx context.Context, offerID, sourceAction string) (Verdict, error) {
	if offerID == "" {
		return Verdict{}, fmt.Errorf("validation: missing offer id")
	}

	subject, err := c.source.Subject(ctx, offerID)
	if err != nil {
		return Verdict{}, fmt.Errorf("validation: load subject: %w", err)
	}

	checkCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// Each check reports on its own buffered channel; awaitCheck gives up at
	// the deadline, so a check that ignores its context cannot stall the
	// verdict.
	policyCh := make(chan CheckResult, 1)
	salaryCh := make(chan CheckResult, 1)
	go func() { policyCh <- runCheck(checkCtx, subject, c.policy.CheckPolicy) }()
	go func() { salaryCh <- runCheck(checkCtx, subject, c.salary.CheckSalary) }()
	policyRes := awaitCheck(checkCtx, policyCh)
	salaryRes := awaitCheck(checkCtx, salaryCh)

	verdict := Verdict{
		ID:           c.idGen(),
		OfferID:      offerID,
		SourceAction: sourceAction,
		PolicyResult: toResult(policyRes.Valid),
		PolicyReason: policyRes.Reason,
		SalaryResult: toResult(salaryRes.Valid),
		SalaryReason: salaryRes.Reason,
		CreatedAt:    c.now(),
	}
	verdict.Overall = toResult(policyRes.Valid && salaryRes.Valid)

	saved, err := c.store.Save(ctx, verdict)
	if err != nil {
		return Verdict{}, err
	}
	return saved, nil
}

func awaitCheck(ctx context.Context, ch <-chan CheckResult) CheckResult {
	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		return CheckResult{Valid: false, Reason: ReasonUnavailable}
	}
}

func runCheck(ctx context.Context, subject Subject, check func(context.Context, Subject) (CheckResult, error)) CheckResult {
	res, err := check(ctx, subject)
	if err != nil {
		return CheckResult{Valid: false, Reason: ReasonUnavailable}
	}
	if ctx.Err() != nil {
		return CheckResult{Valid: false, Reason: ReasonUnavailable}
	}
	return res
}

func toResult(valid bool) Result {
	if valid {
		return ResultValid
	}
	return ResultInvalid
}
