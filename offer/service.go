package offer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hronboard/audit"
	"hronboard/employee"
	"hronboard/validation"
)

var (
	// ErrInvalidResponse signals a response value other than accepted/rejected.
	ErrInvalidResponse = errors.New("offer: response must be accepted or rejected")
	// ErrAlreadyResponded signals a response against a non-pending record.
	ErrAlreadyResponded = errors.New("offer: offer already responded to")
	// ErrOfferExpired signals a response after the offer window closed. Late
	// responses are rejected, never silently accepted.
	ErrOfferExpired = errors.New("offer: offer has expired")
	// ErrChecklistIncomplete signals completion requested before the
	// onboarding checklist reached 100%.
	ErrChecklistIncomplete = errors.New("offer: onboarding checklist incomplete")
	// ErrInvalidTransition signals an event with no matching edge in the
	// state machine; always a caller error.
	ErrInvalidTransition = errors.New("offer: invalid state transition")
)

const (
	ResponseAccepted = "accepted"
	ResponseRejected = "rejected"

	defaultProbationMonths = 3
	defaultNoticeWeeks     = 4
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the data access the service needs.
type Store interface {
	Insert(ctx context.Context, tx pgx.Tx, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Record, error)
	MarkResponded(ctx context.Context, tx pgx.Tx, id string, to Status, reason *string, at time.Time) error
	MarkExpired(ctx context.Context, tx pgx.Tx, id string) (bool, error)
	MarkActive(ctx context.Context, tx pgx.Tx, id string, at time.Time) error
	MarkComplete(ctx context.Context, tx pgx.Tx, id string) error
	MarkHRNotified(ctx context.Context, tx pgx.Tx, id string, at time.Time) error
	DueForExpiry(ctx context.Context, now time.Time) ([]string, error)
	ListPending(ctx context.Context, now time.Time) ([]PendingOffer, error)
	Stats(ctx context.Context) (map[Status]int, error)
}

// EmployeeDirectory creates or refreshes the employee row an offer addresses.
type EmployeeDirectory interface {
	Upsert(ctx context.Context, tx pgx.Tx, params employee.UpsertParams) (employee.Record, error)
}

// AuditWriter appends the transition's audit row inside the same transaction.
type AuditWriter interface {
	Append(ctx context.Context, tx pgx.Tx, ev audit.Event) error
}

// Validator is the cross-validation coordinator.
type Validator interface {
	Validate(ctx context.Context, offerID, sourceAction string) (validation.Verdict, error)
}

// EscalationRaiser records a failed gated transition for HR follow-up.
type EscalationRaiser interface {
	Raise(ctx context.Context, tx pgx.Tx, offerID, reason string) error
}

// Service is the offer lifecycle engine. All transitions are serialized per
// record via row locks taken in the repository.
type Service struct {
	pool        TxBeginner
	repo        Store
	employees   EmployeeDirectory
	auditor     AuditWriter
	validator   Validator
	escalations EscalationRaiser

	expiryWindow time.Duration
	now          func() time.Time
	idGen        func() string
}

func NewService(pool TxBeginner, repo Store, employees EmployeeDirectory, auditor AuditWriter, expiryWindow time.Duration) *Service {
	return &Service{
		pool:         pool,
		repo:         repo,
		employees:    employees,
		auditor:      auditor,
		expiryWindow: expiryWindow,
		now:          time.Now,
		idGen:        func() string { return uuid.NewString() },
	}
}

func (s *Service) WithValidator(v Validator) *Service {
	s.validator = v
	return s
}

func (s *Service) WithEscalations(e EscalationRaiser) *Service {
	s.escalations = e
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGen = gen
	return s
}

// Create opens a new offer in offer_pending. The employee row, the offer row,
// and the audit event commit in one transaction; a second non-terminal offer
// for the same employee fails with ErrDuplicateOffer.
func (s *Service) Create(ctx context.Context, params CreateParams) (Record, error) {
	if params.Employee.Email == "" || params.Employee.FullName == "" {
		return Record{}, fmt.Errorf("offer: employee name and email required")
	}
	if params.Details.Salary.Sign() <= 0 {
		return Record{}, fmt.Errorf("offer: salary must be positive")
	}
	if params.Details.Jurisdiction == "" {
		return Record{}, fmt.Errorf("offer: jurisdiction required")
	}
	if params.Details.StartDate.IsZero() {
		return Record{}, fmt.Errorf("offer: start date required")
	}

	details := params.Details
	if details.ProbationMonths == 0 {
		details.ProbationMonths = defaultProbationMonths
	}
	if details.NoticeWeeks == 0 {
		details.NoticeWeeks = defaultNoticeWeeks
	}
	if details.AnnualLeaveDays == 0 {
		details.AnnualLeaveDays = defaultAnnualLeave(details.Jurisdiction)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("offer: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	emp, err := s.employees.Upsert(ctx, tx, employee.UpsertParams{
		ID:          s.idGen(),
		FullName:    params.Employee.FullName,
		Email:       params.Employee.Email,
		ChatID:      params.Employee.ChatID,
		MessengerID: params.Employee.MessengerID,
		Position:    details.Position,
		Department:  details.Department,
	})
	if err != nil {
		return Record{}, err
	}

	sentAt := s.now()
	rec := Record{
		ID:              s.idGen(),
		EmployeeID:      emp.ID,
		Jurisdiction:    details.Jurisdiction,
		Salary:          details.Salary,
		Position:        details.Position,
		Department:      details.Department,
		StartDate:       details.StartDate,
		ProbationMonths: details.ProbationMonths,
		NoticeWeeks:     details.NoticeWeeks,
		AnnualLeaveDays: details.AnnualLeaveDays,
		OfferSentAt:     sentAt,
		OfferExpiresAt:  sentAt.Add(s.expiryWindow),
	}

	created, err := s.repo.Insert(ctx, tx, rec)
	if err != nil {
		return Record{}, err
	}

	if err := s.auditor.Append(ctx, tx, audit.Event{
		OfferID:    created.ID,
		EmployeeID: created.EmployeeID,
		Kind:       audit.KindOfferCreated,
		Payload: map[string]any{
			"position":         created.Position,
			"jurisdiction":     created.Jurisdiction,
			"salary":           created.Salary.StringFixed(2),
			"offer_expires_at": created.OfferExpiresAt.UTC(),
		},
	}); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("offer: commit create: %w", err)
	}
	return created, nil
}

// Respond applies the candidate's decision. The row lock serializes the
// response against a concurrent expiry sweep; whichever commits first wins
// and the loser sees the updated status.
func (s *Service) Respond(ctx context.Context, params RespondParams) (Record, error) {
	if params.Response != ResponseAccepted && params.Response != ResponseRejected {
		return Record{}, ErrInvalidResponse
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("offer: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.GetForUpdate(ctx, tx, params.OfferID)
	if err != nil {
		return Record{}, err
	}

	if rec.Status == StatusExpired {
		return Record{}, ErrOfferExpired
	}
	if rec.Status != StatusOfferPending {
		return Record{}, ErrAlreadyResponded
	}

	now := s.now()
	if now.After(rec.OfferExpiresAt) {
		// The window closed before the sweep caught this row; expire it here
		// rather than accepting a late response.
		if _, err := s.repo.MarkExpired(ctx, tx, rec.ID); err != nil {
			return Record{}, err
		}
		if err := s.auditor.Append(ctx, tx, audit.Event{
			OfferID:    rec.ID,
			EmployeeID: rec.EmployeeID,
			Kind:       audit.KindOfferExpired,
			Payload:    map[string]any{"expired_at": now.UTC(), "trigger": "late_response"},
		}); err != nil {
			return Record{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return Record{}, fmt.Errorf("offer: commit late-response expiry: %w", err)
		}
		return Record{}, ErrOfferExpired
	}

	next := StatusOfferAccepted
	kind := audit.KindOfferAccepted
	var reason *string
	if params.Response == ResponseRejected {
		next = StatusOfferRejected
		kind = audit.KindOfferRejected
		reason = params.Reason
	}

	if err := s.repo.MarkResponded(ctx, tx, rec.ID, next, reason, now); err != nil {
		return Record{}, err
	}

	payload := map[string]any{"response": params.Response, "responded_at": now.UTC()}
	if reason != nil {
		payload["reason"] = *reason
	}
	if err := s.auditor.Append(ctx, tx, audit.Event{
		OfferID:    rec.ID,
		EmployeeID: rec.EmployeeID,
		Kind:       kind,
		Payload:    payload,
	}); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("offer: commit response: %w", err)
	}
	return s.repo.Get(ctx, rec.ID)
}

// AdvanceResult reports the outcome of a gated activation attempt.
type AdvanceResult struct {
	Record    Record
	Verdict   validation.Verdict
	Activated bool
}

// AdvanceToActive runs cross-validation and, only on a valid verdict, commits
// the move to onboarding_active. An invalid verdict leaves the record in
// offer_accepted and raises an escalation for HR; there are no retries here.
func (s *Service) AdvanceToActive(ctx context.Context, offerID string) (AdvanceResult, error) {
	if s.validator == nil {
		return AdvanceResult{}, fmt.Errorf("offer: validator not configured")
	}

	rec, err := s.repo.Get(ctx, offerID)
	if err != nil {
		return AdvanceResult{}, err
	}
	if rec.Status != StatusOfferAccepted {
		return AdvanceResult{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, StatusOnboardingActive)
	}

	verdict, err := s.validator.Validate(ctx, offerID, "advance_to_active")
	if err != nil {
		return AdvanceResult{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("offer: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Re-read under lock: the record may have moved while validation ran.
	rec, err = s.repo.GetForUpdate(ctx, tx, offerID)
	if err != nil {
		return AdvanceResult{}, err
	}
	if rec.Status != StatusOfferAccepted {
		return AdvanceResult{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, StatusOnboardingActive)
	}

	now := s.now()

	if !verdict.IsValid() {
		if s.escalations != nil {
			reason := fmt.Sprintf("cross-validation failed: policy=%s (%s), salary=%s (%s)",
				verdict.PolicyResult, verdict.PolicyReason, verdict.SalaryResult, verdict.SalaryReason)
			if err := s.escalations.Raise(ctx, tx, rec.ID, reason); err != nil {
				return AdvanceResult{}, err
			}
		}
		if err := s.repo.MarkHRNotified(ctx, tx, rec.ID, now); err != nil {
			return AdvanceResult{}, err
		}
		if err := s.auditor.Append(ctx, tx, audit.Event{
			OfferID:    rec.ID,
			EmployeeID: rec.EmployeeID,
			Kind:       audit.KindValidationEscalated,
			Payload: map[string]any{
				"verdict_id":    verdict.ID,
				"policy_reason": verdict.PolicyReason,
				"salary_reason": verdict.SalaryReason,
			},
		}); err != nil {
			return AdvanceResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return AdvanceResult{}, fmt.Errorf("offer: commit escalation: %w", err)
		}
		return AdvanceResult{Record: rec, Verdict: verdict, Activated: false}, nil
	}

	if err := s.repo.MarkActive(ctx, tx, rec.ID, now); err != nil {
		return AdvanceResult{}, err
	}
	if err := s.auditor.Append(ctx, tx, audit.Event{
		OfferID:    rec.ID,
		EmployeeID: rec.EmployeeID,
		Kind:       audit.KindOnboardingActivated,
		Payload:    map[string]any{"verdict_id": verdict.ID, "activated_at": now.UTC()},
	}); err != nil {
		return AdvanceResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return AdvanceResult{}, fmt.Errorf("offer: commit activation: %w", err)
	}

	updated, err := s.repo.Get(ctx, rec.ID)
	if err != nil {
		return AdvanceResult{}, err
	}
	return AdvanceResult{Record: updated, Verdict: verdict, Activated: true}, nil
}

// CompleteOnboarding closes out onboarding once the checklist hits 100%.
// Repeated calls on an already-complete record are no-ops.
func (s *Service) CompleteOnboarding(ctx context.Context, offerID string, checklistPct int) (Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("offer: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.GetForUpdate(ctx, tx, offerID)
	if err != nil {
		return Record{}, err
	}
	if rec.Status == StatusOnboardingComplete {
		return rec, nil
	}
	if rec.Status != StatusOnboardingActive {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, StatusOnboardingComplete)
	}
	if checklistPct < 100 {
		return Record{}, ErrChecklistIncomplete
	}

	if err := s.repo.MarkComplete(ctx, tx, rec.ID); err != nil {
		return Record{}, err
	}
	if err := s.auditor.Append(ctx, tx, audit.Event{
		OfferID:    rec.ID,
		EmployeeID: rec.EmployeeID,
		Kind:       audit.KindOnboardingCompleted,
		Payload:    map[string]any{"completed_at": s.now().UTC()},
	}); err != nil {
		return Record{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("offer: commit completion: %w", err)
	}
	return s.repo.Get(ctx, rec.ID)
}

// ExpireDue sweeps offers past their window into expired. Each record gets
// its own transaction with a status re-check under lock, so an interrupted
// sweep leaves no partial state and a concurrent response is never clobbered.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.repo.DueForExpiry(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		ok, err := s.expireOne(ctx, id, now)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *Service) expireOne(ctx context.Context, id string, now time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("offer: begin expiry tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	// A response may have landed between the candidate query and this lock.
	if rec.Status != StatusOfferPending || !now.After(rec.OfferExpiresAt) {
		return false, nil
	}

	ok, err := s.repo.MarkExpired(ctx, tx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := s.auditor.Append(ctx, tx, audit.Event{
		OfferID:    rec.ID,
		EmployeeID: rec.EmployeeID,
		Kind:       audit.KindOfferExpired,
		Payload:    map[string]any{"expired_at": now.UTC(), "trigger": "sweep"},
	}); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("offer: commit expiry: %w", err)
	}
	return true, nil
}

// ListPending returns all non-terminal offers with their expiry countdown.
func (s *Service) ListPending(ctx context.Context) ([]PendingOffer, error) {
	return s.repo.ListPending(ctx, s.now())
}

// Stats counts offers per status.
func (s *Service) Stats(ctx context.Context) (map[Status]int, error) {
	return s.repo.Stats(ctx)
}

func defaultAnnualLeave(jurisdiction string) int {
	if jurisdiction == "SG" {
		return 7
	}
	return 8
}
