// Package reminders is the boundary between timer state transitions and
// best-effort local reminder delivery. Implementations are substitutable:
// gocron-backed in-process scheduling, NATS command publishing for a
// companion notifier, or Noop on platforms without the capability. The store
// never branches on platform; it just holds an Orchestrator.
package reminders

import (
	"context"
	"time"
)

// Orchestrator schedules and cancels trip reminders keyed by timer id.
// Calls are fire-and-forget from the store's perspective: implementations may
// block internally, but errors are informational and never roll back state.
// Scheduling an id that already has reminders replaces them (no orphans).
type Orchestrator interface {
	ScheduleReminders(ctx context.Context, timerID, destination string, date time.Time) error
	CancelReminders(ctx context.Context, timerID string) error
	CancelAll(ctx context.Context) error
}

// Noop satisfies Orchestrator on platforms without reminder support.
type Noop struct{}

func (Noop) ScheduleReminders(context.Context, string, string, time.Time) error { return nil }
func (Noop) CancelReminders(context.Context, string) error                      { return nil }
func (Noop) CancelAll(context.Context) error                                    { return nil }

// DefaultLeadTimes are the offsets before the trip date at which a reminder
// fires, farthest first.
var DefaultLeadTimes = []time.Duration{
	7 * 24 * time.Hour,
	24 * time.Hour,
	2 * time.Hour,
}
