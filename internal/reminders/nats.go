package reminders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/tripdeck/internal/foundation/errors"
	"git.home.luguber.info/inful/tripdeck/internal/logfields"
)

// ScheduleCommand is published when reminders should be (re)scheduled for a timer.
type ScheduleCommand struct {
	TimerID     string    `json:"timer_id"`
	Destination string    `json:"destination"`
	Date        time.Time `json:"date"`
	IssuedAt    time.Time `json:"issued_at"`
}

// CancelCommand is published when reminders should be cancelled.
// An empty TimerID means cancel everything.
type CancelCommand struct {
	TimerID  string    `json:"timer_id,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}

// NATSOrchestrator publishes reminder commands to a companion notifier
// process instead of scheduling in-process. Delivery is best-effort core
// NATS; a notifier that is down simply misses commands, which matches the
// degraded behavior the store already tolerates.
type NATSOrchestrator struct {
	conn          *nats.Conn
	subjectPrefix string
}

// NewNATS connects to the given NATS URL.
func NewNATS(url, subjectPrefix string) (*NATSOrchestrator, error) {
	if subjectPrefix == "" {
		subjectPrefix = "tripdeck.reminders"
	}
	conn, err := nats.Connect(url, nats.Name("tripdeck"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS reminder orchestrator initialized",
		slog.String("url", url),
		logfields.Subject(subjectPrefix))

	return &NATSOrchestrator{conn: conn, subjectPrefix: subjectPrefix}, nil
}

// Close drains and closes the connection.
func (n *NATSOrchestrator) Close() error {
	return n.conn.Drain()
}

// ScheduleReminders publishes a schedule command for the timer.
func (n *NATSOrchestrator) ScheduleReminders(ctx context.Context, timerID, destination string, date time.Time) error {
	return n.publish(ctx, n.subjectPrefix+".schedule", ScheduleCommand{
		TimerID:     timerID,
		Destination: destination,
		Date:        date,
		IssuedAt:    time.Now(),
	})
}

// CancelReminders publishes a cancel command for the timer.
func (n *NATSOrchestrator) CancelReminders(ctx context.Context, timerID string) error {
	return n.publish(ctx, n.subjectPrefix+".cancel", CancelCommand{
		TimerID:  timerID,
		IssuedAt: time.Now(),
	})
}

// CancelAll publishes a cancel-everything command.
func (n *NATSOrchestrator) CancelAll(ctx context.Context) error {
	return n.publish(ctx, n.subjectPrefix+".cancel", CancelCommand{
		IssuedAt: time.Now(),
	})
}

func (n *NATSOrchestrator) publish(ctx context.Context, subject string, cmd any) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return ferrors.ReminderError("failed to marshal reminder command").
			WithCause(err).Build()
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return ferrors.ReminderError("failed to publish reminder command").
			WithCause(err).
			WithContext("subject", subject).Build()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return ferrors.ReminderError("failed to flush reminder command").
			WithCause(err).
			WithContext("subject", subject).Build()
	}

	slog.Debug("Published reminder command", logfields.Subject(subject))
	return nil
}
