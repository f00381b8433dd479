package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LogSender writes the message to the structured log instead of an external
// provider. It stands in for email, chatbot, and messenger transports in
// environments without provider credentials.
type LogSender struct {
	channel string
	log     *slog.Logger
}

func NewLogSender(channel string, log *slog.Logger) *LogSender {
	return &LogSender{channel: channel, log: log}
}

func (s *LogSender) Channel() string { return s.channel }

func (s *LogSender) Send(_ context.Context, msg Message) error {
	addr := msg.To.Email
	switch s.channel {
	case "chatbot":
		addr = msg.To.ChatID
	case "messenger":
		addr = msg.To.MessengerID
	}
	if addr == "" {
		return fmt.Errorf("notify: %s: no address for employee %s", s.channel, msg.To.EmployeeID)
	}
	s.log.Info("notification delivered",
		"channel", s.channel,
		"to", addr,
		"subject", msg.Subject,
		"urgency", string(msg.Urgency),
	)
	return nil
}

// InAppSender persists the message to the in-app notification feed.
type InAppSender struct {
	pool *pgxpool.Pool
}

func NewInAppSender(pool *pgxpool.Pool) *InAppSender {
	return &InAppSender{pool: pool}
}

func (s *InAppSender) Channel() string { return "inapp" }

func (s *InAppSender) Send(ctx context.Context, msg Message) error {
	const insertSQL = `
INSERT INTO inapp_notifications (employee_id, subject, body, urgency)
VALUES ($1, $2, $3, $4)
`
	if _, err := s.pool.Exec(ctx, insertSQL, msg.To.EmployeeID, msg.Subject, msg.Body, string(msg.Urgency)); err != nil {
		return fmt.Errorf("notify: inapp insert: %w", err)
	}
	return nil
}
