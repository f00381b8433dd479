package reminder

import "time"

// Type classifies what a reminder nags about.
type Type string

const (
	TypeOfferPending       Type = "offer_pending"
	TypeDocumentOverdue    Type = "document_overdue"
	TypeTrainingIncomplete Type = "training_incomplete"
)

// ParseType converts a raw string to a Type, rejecting unknown values.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeOfferPending, TypeDocumentOverdue, TypeTrainingIncomplete:
		return Type(s), true
	}
	return "", false
}

// TaskStatus tracks a reminder task's delivery state.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskSent    TaskStatus = "sent"
	TaskFailed  TaskStatus = "failed"
)

// Task mirrors the agentix_reminders table. Tasks are created once per
// delivery attempt; the sent partial unique index guarantees each escalation
// level is recorded as sent at most once per (employee, type).
type Task struct {
	ID              string
	EmployeeID      string
	Type            Type
	Channel         string
	ScheduledFor    time.Time
	SentAt          *time.Time
	Status          TaskStatus
	EscalationLevel int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Candidate is one milestone clock the sweep evaluates: when the milestone
// was reached decides which escalation levels are due.
type Candidate struct {
	OfferID     string
	EmployeeID  string
	Type        Type
	MilestoneAt time.Time
}

// LevelFor returns the highest 1-based escalation level whose threshold the
// elapsed time has crossed, or 0 when none has.
func LevelFor(elapsed time.Duration, thresholds []time.Duration) int {
	level := 0
	for i, th := range thresholds {
		if elapsed >= th {
			level = i + 1
		}
	}
	return level
}
