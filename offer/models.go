package offer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record mirrors the onboarding_states table. One row tracks a candidate's
// offer from creation to a terminal status; rows are never deleted.
type Record struct {
	ID              string
	EmployeeID      string
	Status          Status
	Jurisdiction    string
	Salary          decimal.Decimal
	Position        string
	Department      string
	StartDate       time.Time
	ProbationMonths int
	NoticeWeeks     int
	AnnualLeaveDays int

	OfferSentAt    time.Time
	OfferExpiresAt time.Time
	RespondedAt    *time.Time

	RejectionReason *string
	HRNotifiedAt    *time.Time

	DocumentsAssignedAt *time.Time
	TrainingAssignedAt  *time.Time
	ChecklistDone       bool

	LastValidationID *string
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EmployeeData identifies (or creates) the employee the offer is addressed
// to, including the notification addresses used for reminders.
type EmployeeData struct {
	FullName    string
	Email       string
	ChatID      string
	MessengerID string
}

// OfferDetails are the contract terms of a new offer. Zero-valued notice and
// leave fields fall back to jurisdiction defaults.
type OfferDetails struct {
	Jurisdiction    string
	Salary          decimal.Decimal
	Position        string
	Department      string
	StartDate       time.Time
	ProbationMonths int
	NoticeWeeks     int
	AnnualLeaveDays int
}

// CreateParams bundles the create-offer request.
type CreateParams struct {
	Employee EmployeeData
	Details  OfferDetails
}

// RespondParams applies a candidate's accept/reject decision.
type RespondParams struct {
	OfferID  string
	Response string // "accepted" or "rejected"
	Reason   *string
}

// PendingOffer is a non-terminal record with the countdown the dashboard
// shows.
type PendingOffer struct {
	Record
	DaysUntilExpiry int
}
