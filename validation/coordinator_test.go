package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fakeSource struct {
	subject Subject
	err     error
}

func (f *fakeSource) Subject(ctx context.Context, offerID string) (Subject, error) {
	if f.err != nil {
		return Subject{}, f.err
	}
	return f.subject, nil
}

type fakeStore struct {
	saved []Verdict
	err   error
}

func (f *fakeStore) Save(ctx context.Context, v Verdict) (Verdict, error) {
	if f.err != nil {
		return Verdict{}, f.err
	}
	f.saved = append(f.saved, v)
	return v, nil
}

type checkFunc func(ctx context.Context, s Subject) (CheckResult, error)

type fakePolicy struct{ fn checkFunc }

func (f *fakePolicy) CheckPolicy(ctx context.Context, s Subject) (CheckResult, error) {
	return f.fn(ctx, s)
}

type fakeSalary struct{ fn checkFunc }

func (f *fakeSalary) CheckSalary(ctx context.Context, s Subject) (CheckResult, error) {
	return f.fn(ctx, s)
}

func pass(ctx context.Context, s Subject) (CheckResult, error) {
	return CheckResult{Valid: true, Reason: "ok"}, nil
}

func fail(reason string) checkFunc {
	return func(ctx context.Context, s Subject) (CheckResult, error) {
		return CheckResult{Valid: false, Reason: reason}, nil
	}
}

func newTestCoordinator(store *fakeStore, policy, salary checkFunc, timeout time.Duration) *Coordinator {
	source := &fakeSource{subject: Subject{
		OfferID:       "offer-1",
		EmployeeID:    "emp-1",
		Jurisdiction:  "MY",
		MonthlySalary: decimal.NewFromInt(5000),
	}}
	return NewCoordinator(source, store, &fakePolicy{fn: policy}, &fakeSalary{fn: salary}, timeout).
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }).
		WithIDGenerator(func() string { return "verdict-1" })
}

func TestValidate_BothPass(t *testing.T) {
	store := &fakeStore{}
	c := newTestCoordinator(store, pass, pass, time.Second)

	v, err := c.Validate(context.Background(), "offer-1", "advance_to_active")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if v.Overall != ResultValid {
		t.Fatalf("expected overall valid, got %s", v.Overall)
	}
	if v.SourceAction != "advance_to_active" {
		t.Fatalf("unexpected source action %q", v.SourceAction)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected verdict persisted before return, got %d saves", len(store.saved))
	}
}

func TestValidate_OneFailureInvalidatesOverall(t *testing.T) {
	store := &fakeStore{}
	c := newTestCoordinator(store, fail("probation too long"), pass, time.Second)

	v, err := c.Validate(context.Background(), "offer-1", "advance_to_active")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if v.Overall != ResultInvalid {
		t.Fatalf("expected overall invalid, got %s", v.Overall)
	}
	if v.PolicyResult != ResultInvalid || v.SalaryResult != ResultValid {
		t.Fatalf("unexpected per-check results: policy=%s salary=%s", v.PolicyResult, v.SalaryResult)
	}
	if v.PolicyReason != "probation too long" {
		t.Fatalf("unexpected policy reason %q", v.PolicyReason)
	}
}

func TestValidate_CheckErrorBecomesUnavailable(t *testing.T) {
	store := &fakeStore{}
	broken := func(ctx context.Context, s Subject) (CheckResult, error) {
		return CheckResult{}, errors.New("rate table offline")
	}
	c := newTestCoordinator(store, pass, broken, time.Second)

	v, err := c.Validate(context.Background(), "offer-1", "advance_to_active")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if v.Overall != ResultInvalid {
		t.Fatal("an unavailable check must not pass by default")
	}
	if v.SalaryReason != ReasonUnavailable {
		t.Fatalf("expected reason %q, got %q", ReasonUnavailable, v.SalaryReason)
	}
	if len(store.saved) != 1 {
		t.Fatal("failed verdicts must be persisted too")
	}
}

func TestValidate_TimeoutBecomesUnavailable(t *testing.T) {
	store := &fakeStore{}
	slow := func(ctx context.Context, s Subject) (CheckResult, error) {
		select {
		case <-ctx.Done():
			return CheckResult{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return CheckResult{Valid: true}, nil
		}
	}
	c := newTestCoordinator(store, pass, slow, 20*time.Millisecond)

	v, err := c.Validate(context.Background(), "offer-1", "advance_to_active")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if v.Overall != ResultInvalid {
		t.Fatal("a timed-out check must invalidate the verdict")
	}
	if v.SalaryReason != ReasonUnavailable {
		t.Fatalf("expected reason %q, got %q", ReasonUnavailable, v.SalaryReason)
	}
}

func TestValidate_StalledCheckerCannotBlock(t *testing.T) {
	store := &fakeStore{}
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	stalled := func(ctx context.Context, s Subject) (CheckResult, error) {
		// Ignores ctx entirely; only the cleanup unblocks it.
		<-release
		return CheckResult{Valid: true}, nil
	}
	c := newTestCoordinator(store, pass, stalled, 30*time.Millisecond)

	done := make(chan Verdict, 1)
	go func() {
		v, err := c.Validate(context.Background(), "offer-1", "advance_to_active")
		if err != nil {
			t.Errorf("validate: %v", err)
		}
		done <- v
	}()

	var v Verdict
	select {
	case v = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("validate did not return by the check deadline")
	}

	if v.Overall != ResultInvalid {
		t.Fatalf("expected overall invalid, got %s", v.Overall)
	}
	if v.SalaryReason != ReasonUnavailable {
		t.Fatalf("expected reason %q, got %q", ReasonUnavailable, v.SalaryReason)
	}
}

func TestValidate_ChecksRunJointly(t *testing.T) {
	store := &fakeStore{}
	delay := 60 * time.Millisecond
	slowPass := func(ctx context.Context, s Subject) (CheckResult, error) {
		select {
		case <-ctx.Done():
			return CheckResult{}, ctx.Err()
		case <-time.After(delay):
			return CheckResult{Valid: true}, nil
		}
	}
	c := newTestCoordinator(store, slowPass, slowPass, time.Second)

	start := time.Now()
	v, err := c.Validate(context.Background(), "offer-1", "advance_to_active")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	elapsed := time.Since(start)

	if v.Overall != ResultValid {
		t.Fatalf("expected valid, got %s", v.Overall)
	}
	if elapsed >= 2*delay {
		t.Fatalf("checks appear to have run sequentially: took %s", elapsed)
	}
}

func TestValidate_StoreFailurePropagates(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	c := newTestCoordinator(store, pass, pass, time.Second)

	if _, err := c.Validate(context.Background(), "offer-1", "advance_to_active"); err == nil {
		t.Fatal("expected store failure to surface")
	}
}
