package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hronboard/audit"
)

// ErrNothingDue signals a manual trigger for a milestone no threshold has
// crossed yet.
var ErrNothingDue = errors.New("reminder: no escalation level due")

// OfferSource yields the milestone clocks the sweep evaluates.
type OfferSource interface {
	ReminderCandidates(ctx context.Context) ([]Candidate, error)
}

// Expirer moves offers past their window into expired before reminders are
// computed, so a freshly expired offer never gets nagged.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// TaskStore persists reminder tasks.
type TaskStore interface {
	Tasks(ctx context.Context, employeeID string, typ Type) ([]Task, error)
	Insert(ctx context.Context, t Task) (Task, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// Dispatcher delivers one reminder over its channel.
type Dispatcher interface {
	Send(ctx context.Context, t Task) error
}

// AuditRecorder appends delivery outcomes outside any transaction.
type AuditRecorder interface {
	Record(ctx context.Context, ev audit.Event) error
}

// Scheduler runs the periodic reminder sweep. Each sweep expires overdue
// offers, then walks every milestone clock and delivers any escalation level
// that is due and not yet sent. Sweeps are restartable: the sent partial
// unique index makes redelivery of a level impossible even when two sweeps
// overlap.
type Scheduler struct {
	offers   OfferSource
	expirer  Expirer
	tasks    TaskStore
	dispatch Dispatcher
	auditor  AuditRecorder

	thresholds []time.Duration
	interval   time.Duration
	channel    string
	now        func() time.Time
	idGen      func() string
	log        *slog.Logger
}

func NewScheduler(offers OfferSource, expirer Expirer, tasks TaskStore, dispatch Dispatcher, auditor AuditRecorder, thresholds []time.Duration, interval time.Duration, channel string, log *slog.Logger) *Scheduler {
	return &Scheduler{
		offers:     offers,
		expirer:    expirer,
		tasks:      tasks,
		dispatch:   dispatch,
		auditor:    auditor,
		thresholds: thresholds,
		interval:   interval,
		channel:    channel,
		now:        time.Now,
		idGen:      func() string { return uuid.NewString() },
		log:        log,
	}
}

func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

func (s *Scheduler) WithIDGenerator(gen func() string) *Scheduler {
	s.idGen = gen
	return s
}

// Run sweeps immediately, then on every tick until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.sweepLogged(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweepLogged(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) sweepLogged(ctx context.Context) error {
	sent, err := s.Sweep(ctx, s.now())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Error("reminder sweep failed", "error", err)
		return nil
	}
	s.log.Info("reminder sweep done", "sent", sent)
	return nil
}

// Sweep expires overdue offers, then delivers every due, unsent escalation
// level. Returns the number of reminders delivered.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.expirer.ExpireDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("reminder: expire due: %w", err)
	}
	if expired > 0 {
		s.log.Info("expired overdue offers", "count", expired)
	}

	candidates, err := s.offers.ReminderCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("reminder: load candidates: %w", err)
	}

	sent := 0
	for _, c := range candidates {
		n, err := s.sweepCandidate(ctx, c, now)
		if err != nil {
			return sent, err
		}
		sent += n
	}
	return sent, nil
}

func (s *Scheduler) sweepCandidate(ctx context.Context, c Candidate, now time.Time) (int, error) {
	due := LevelFor(now.Sub(c.MilestoneAt), s.thresholds)
	if due == 0 {
		return 0, nil
	}

	existing, err := s.tasks.Tasks(ctx, c.EmployeeID, c.Type)
	if err != nil {
		return 0, err
	}

	sent := 0
	for level := 1; level <= due; level++ {
		delivered, err := s.deliverLevel(ctx, c, level, now, existing)
		if err != nil {
			return sent, err
		}
		if delivered {
			sent++
		}
	}
	return sent, nil
}

// deliverLevel sends one escalation level unless a sent task already covers
// it. A pending task from an interrupted sweep is reused; a failed task gets
// a fresh attempt.
func (s *Scheduler) deliverLevel(ctx context.Context, c Candidate, level int, now time.Time, existing []Task) (bool, error) {
	var pending *Task
	for i := range existing {
		t := &existing[i]
		if t.EscalationLevel != level {
			continue
		}
		if t.Status == TaskSent {
			return false, nil
		}
		if t.Status == TaskPending && pending == nil {
			pending = t
		}
	}

	task := Task{}
	if pending != nil {
		task = *pending
	} else {
		created, err := s.tasks.Insert(ctx, Task{
			ID:              s.idGen(),
			EmployeeID:      c.EmployeeID,
			Type:            c.Type,
			Channel:         s.channel,
			ScheduledFor:    now,
			EscalationLevel: level,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateSent) {
				return false, nil
			}
			return false, err
		}
		task = created
	}

	if err := s.dispatch.Send(ctx, task); err != nil {
		s.log.Warn("reminder delivery failed",
			"employee_id", c.EmployeeID, "type", c.Type, "level", level, "error", err)
		if markErr := s.tasks.MarkFailed(ctx, task.ID); markErr != nil {
			return false, markErr
		}
		s.recordOutcome(ctx, c, task, audit.KindReminderFailed, err)
		return false, nil
	}

	if err := s.tasks.MarkSent(ctx, task.ID); err != nil {
		if errors.Is(err, ErrDuplicateSent) {
			return false, nil
		}
		return false, err
	}
	s.recordOutcome(ctx, c, task, audit.KindReminderSent, nil)
	return true, nil
}

// Trigger delivers one reminder outside the sweep cadence, e.g. from the
// manual nudge endpoint. It sends the lowest level not yet sent, honoring the
// same once-per-level guarantee.
func (s *Scheduler) Trigger(ctx context.Context, c Candidate, channel string) (Task, error) {
	now := s.now()
	due := LevelFor(now.Sub(c.MilestoneAt), s.thresholds)
	if due == 0 {
		return Task{}, ErrNothingDue
	}

	existing, err := s.tasks.Tasks(ctx, c.EmployeeID, c.Type)
	if err != nil {
		return Task{}, err
	}
	sentLevels := make(map[int]bool)
	for _, t := range existing {
		if t.Status == TaskSent {
			sentLevels[t.EscalationLevel] = true
		}
	}

	level := 0
	for l := 1; l <= due; l++ {
		if !sentLevels[l] {
			level = l
			break
		}
	}
	if level == 0 {
		return Task{}, ErrNothingDue
	}

	if channel == "" {
		channel = s.channel
	}
	task, err := s.tasks.Insert(ctx, Task{
		ID:              s.idGen(),
		EmployeeID:      c.EmployeeID,
		Type:            c.Type,
		Channel:         channel,
		ScheduledFor:    now,
		EscalationLevel: level,
	})
	if err != nil {
		// A concurrent sweep already sent this level.
		if errors.Is(err, ErrDuplicateSent) {
			return Task{}, ErrNothingDue
		}
		return Task{}, err
	}

	if err := s.dispatch.Send(ctx, task); err != nil {
		if markErr := s.tasks.MarkFailed(ctx, task.ID); markErr != nil {
			return Task{}, markErr
		}
		s.recordOutcome(ctx, c, task, audit.KindReminderFailed, err)
		return Task{}, fmt.Errorf("reminder: deliver: %w", err)
	}
	if err := s.tasks.MarkSent(ctx, task.ID); err != nil {
		if errors.Is(err, ErrDuplicateSent) {
			return Task{}, ErrNothingDue
		}
		return Task{}, err
	}
	s.recordOutcome(ctx, c, task, audit.KindReminderSent, nil)
	return task, nil
}

func (s *Scheduler) recordOutcome(ctx context.Context, c Candidate, t Task, kind string, cause error) {
	payload := map[string]any{
		"type":    string(t.Type),
		"channel": t.Channel,
		"level":   t.EscalationLevel,
	}
	if cause != nil {
		payload["error"] = cause.Error()
	}
	if err := s.auditor.Record(ctx, audit.Event{
		OfferID:    c.OfferID,
		EmployeeID: c.EmployeeID,
		Kind:       kind,
		Payload:    payload,
	}); err != nil {
		s.log.Error("audit record failed", "kind", kind, "error", err)
	}
}
