package escalation

import "time"

// Status tracks whether HR has dealt with the escalation.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Record mirrors the escalations table. A row is raised when a gated
// transition fails cross-validation and needs a human decision.
type Record struct {
	ID         string
	OfferID    string
	Reason     string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}
