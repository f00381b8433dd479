package audit

import "time"

// Event kinds appended by the lifecycle, validation, and reminder components.
const (
	KindOfferCreated        = "OFFER_CREATED"
	KindOfferAccepted       = "OFFER_ACCEPTED"
	KindOfferRejected       = "OFFER_REJECTED"
	KindOfferExpired        = "OFFER_EXPIRED"
	KindOnboardingActivated = "ONBOARDING_ACTIVATED"
	KindOnboardingCompleted = "ONBOARDING_COMPLETED"
	KindValidationRecorded  = "VALIDATION_RECORDED"
	KindValidationEscalated = "VALIDATION_ESCALATED"
	KindReminderSent        = "REMINDER_SENT"
	KindReminderFailed      = "REMINDER_FAILED"
	KindEscalationRaised    = "ESCALATION_RAISED"
	KindEscalationResolved  = "ESCALATION_RESOLVED"
)

// Event is the write-side shape. OfferID and EmployeeID are optional; at
// least one must be set so the row stays traceable.
type Event struct {
	OfferID    string
	EmployeeID string
	Kind       string
	Payload    map[string]any
}

// Stored is an audit row as read back from audit_events. Rows are append-only
// and never mutated.
type Stored struct {
	ID         int64
	OfferID    *string
	EmployeeID *string
	Kind       string
	Payload    []byte
	CreatedAt  time.Time
}
