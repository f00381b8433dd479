package employee

import "time"

// Record mirrors the employees table. The chat/messenger ids are the
// send-only addresses the notification dispatcher resolves per channel.
type Record struct {
	ID          string
	FullName    string
	Email       string
	ChatID      string
	MessengerID string
	Position    string
	Department  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpsertParams creates an employee or refreshes the addresses of an existing
// one, keyed by email.
type UpsertParams struct {
	ID          string
	FullName    string
	Email       string
	ChatID      string
	MessengerID string
	Position    string
	Department  string
}
