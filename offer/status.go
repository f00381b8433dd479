// Package offer implements the offer lifecycle state machine.
//
// Valid status graph:
//
//	offer_pending ──► offer_accepted ──► onboarding_active ──► onboarding_complete
//	      │ │
//	      │ └──► offer_rejected
//	      └────► expired
//
// offer_rejected, expired, and onboarding_complete are terminal.
package offer

import "fmt"

// Status values mirror the onboarding_status enum in PostgreSQL.
type Status string

const (
	StatusOfferPending       Status = "offer_pending"
	StatusOfferAccepted      Status = "offer_accepted"
	StatusOfferRejected      Status = "offer_rejected"
	StatusOnboardingActive   Status = "onboarding_active"
	StatusOnboardingComplete Status = "onboarding_complete"
	StatusExpired            Status = "expired"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusOfferPending:     {StatusOfferAccepted, StatusOfferRejected, StatusExpired},
	StatusOfferAccepted:    {StatusOnboardingActive},
	StatusOnboardingActive: {StatusOnboardingComplete},
	// terminal states have no outgoing transitions
}

// ParseStatus converts a raw string to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusOfferPending, StatusOfferAccepted, StatusOfferRejected,
		StatusOnboardingActive, StatusOnboardingComplete, StatusExpired:
		return st, nil
	}
	return "", fmt.Errorf("offer: unknown status %q", s)
}

// IsTerminal reports whether no further transitions exist from s.
func IsTerminal(s Status) bool {
	return len(validTransitions[s]) == 0
}

// CanTransition reports whether from → to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
