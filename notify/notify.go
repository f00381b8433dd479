// Package notify delivers reminder messages over the configured channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"hronboard/reminder"
)

var (
	// ErrChannelDisabled signals a send over a channel switched off in config.
	ErrChannelDisabled = errors.New("notify: channel disabled")
	// ErrUnknownChannel signals a channel with no registered sender.
	ErrUnknownChannel = errors.New("notify: unknown channel")
)

// Recipient carries the delivery addresses of one employee.
type Recipient struct {
	EmployeeID  string
	FullName    string
	Email       string
	ChatID      string
	MessengerID string
}

// Urgency escalates with the reminder level so higher levels read louder.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

func urgencyFor(level int) Urgency {
	switch {
	case level >= 3:
		return UrgencyCritical
	case level == 2:
		return UrgencyHigh
	default:
		return UrgencyNormal
	}
}

// Message is one rendered notification ready for a channel sender.
type Message struct {
	To      Recipient
	Channel string
	Subject string
	Body    string
	Urgency Urgency
}

// Sender delivers messages over one channel.
type Sender interface {
	Channel() string
	Send(ctx context.Context, msg Message) error
}

// DirectoryFunc resolves an employee id to delivery addresses.
type DirectoryFunc func(ctx context.Context, employeeID string) (Recipient, error)

// Dispatcher routes a reminder task to the sender for its channel. It
// implements the scheduler's Dispatcher interface.
type Dispatcher struct {
	senders   map[string]Sender
	enabled   map[string]bool
	directory DirectoryFunc
}

func NewDispatcher(directory DirectoryFunc, enabled map[string]bool, senders ...Sender) *Dispatcher {
	byChannel := make(map[string]Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}
	return &Dispatcher{senders: byChannel, enabled: enabled, directory: directory}
}

// Send renders and delivers one reminder task.
func (d *Dispatcher) Send(ctx context.Context, t reminder.Task) error {
	if !d.enabled[t.Channel] {
		return fmt.Errorf("%w: %s", ErrChannelDisabled, t.Channel)
	}
	sender, ok := d.senders[t.Channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, t.Channel)
	}

	to, err := d.directory(ctx, t.EmployeeID)
	if err != nil {
		return fmt.Errorf("notify: resolve recipient: %w", err)
	}

	subject, body := compose(t.Type, t.EscalationLevel, to.FullName)
	return sender.Send(ctx, Message{
		To:      to,
		Channel: t.Channel,
		Subject: subject,
		Body:    body,
		Urgency: urgencyFor(t.EscalationLevel),
	})
}

func compose(typ reminder.Type, level int, name string) (subject, body string) {
	switch typ {
	case reminder.TypeOfferPending:
		subject = "Your offer is awaiting a response"
		body = fmt.Sprintf("Hi %s, your offer is still waiting for your decision. Please accept or decline before it expires.", name)
	case reminder.TypeDocumentOverdue:
		subject = "Onboarding documents overdue"
		body = fmt.Sprintf("Hi %s, your onboarding documents have not been submitted yet. Please upload them as soon as possible.", name)
	case reminder.TypeTrainingIncomplete:
		subject = "Onboarding training incomplete"
		body = fmt.Sprintf("Hi %s, your assigned onboarding training is not finished. Please complete the remaining modules.", name)
	default:
		subject = "Onboarding reminder"
		body = fmt.Sprintf("Hi %s, you have an outstanding onboarding task.", name)
	}
	if level >= 2 {
		subject = fmt.Sprintf("[Reminder %d] %s", level, subject)
	}
	return subject, body
}
