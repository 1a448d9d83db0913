package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/tripdeck/internal/foundation/errors"
	"git.home.luguber.info/inful/tripdeck/internal/logfields"
)

// Notifier delivers a single reminder to the user when its job fires.
type Notifier interface {
	Notify(timerID, destination string, date time.Time)
}

// LogNotifier writes reminders to the log. Platform integrations replace it.
type LogNotifier struct{}

func (LogNotifier) Notify(timerID, destination string, date time.Time) {
	slog.Info("Trip reminder",
		logfields.TimerID(timerID),
		logfields.Destination(destination),
		slog.Time("date", date))
}

// GocronOrchestrator schedules one-shot reminder jobs in-process. Jobs carry
// the timer id as their tag, so cancellation and rescheduling are tag removal.
type GocronOrchestrator struct {
	scheduler gocron.Scheduler
	notifier  Notifier
	leadTimes []time.Duration
}

// NewGocron creates an in-process reminder orchestrator.
// leadTimes defaults to DefaultLeadTimes when empty.
func NewGocron(notifier Notifier, leadTimes []time.Duration) (*GocronOrchestrator, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if len(leadTimes) == 0 {
		leadTimes = DefaultLeadTimes
	}
	return &GocronOrchestrator{
		scheduler: s,
		notifier:  notifier,
		leadTimes: leadTimes,
	}, nil
}

// Start begins the scheduler.
func (g *GocronOrchestrator) Start() {
	slog.Info("Starting reminder scheduler")
	g.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (g *GocronOrchestrator) Stop() error {
	slog.Info("Stopping reminder scheduler")
	return g.scheduler.Shutdown()
}

// ScheduleReminders replaces any existing reminders for the timer with
// one-shot jobs at each configured lead time before the trip date. Lead times
// already in the past are skipped; a trip that is too close for every lead
// time simply gets no reminders.
func (g *GocronOrchestrator) ScheduleReminders(ctx context.Context, timerID, destination string, date time.Time) error {
	// Replace-on-reschedule: drop whatever was scheduled for this id first.
	g.scheduler.RemoveByTags(timerID)

	now := time.Now()
	scheduled := 0
	for _, lead := range g.leadTimes {
		fireAt := date.Add(-lead)
		if !fireAt.After(now) {
			continue
		}
		_, err := g.scheduler.NewJob(
			gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(fireAt)),
			gocron.NewTask(g.notifier.Notify, timerID, destination, date),
			gocron.WithTags(timerID),
			gocron.WithName(fmt.Sprintf("reminder-%s-%s", timerID, lead)),
		)
		if err != nil {
			return ferrors.ReminderError("failed to schedule reminder job").
				WithCause(err).
				WithContext("timer_id", timerID).
				WithContext("fire_at", fireAt).Build()
		}
		scheduled++
	}

	slog.Debug("Reminders scheduled",
		logfields.TimerID(timerID),
		logfields.Destination(destination),
		logfields.Count(scheduled))
	return nil
}

// CancelReminders removes all reminder jobs for the timer.
func (g *GocronOrchestrator) CancelReminders(ctx context.Context, timerID string) error {
	g.scheduler.RemoveByTags(timerID)
	return nil
}

// CancelAll removes every reminder job.
func (g *GocronOrchestrator) CancelAll(ctx context.Context) error {
	for _, job := range g.scheduler.Jobs() {
		if err := g.scheduler.RemoveJob(job.ID()); err != nil {
			return ferrors.ReminderError("failed to remove reminder job").
				WithCause(err).Build()
		}
	}
	return nil
}

// JobCount reports the number of scheduled reminder jobs (test helper).
func (g *GocronOrchestrator) JobCount() int {
	return len(g.scheduler.Jobs())
}
