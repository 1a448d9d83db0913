// Package store holds the canonical in-memory timer state and its mutation
// operations. All mutations replace state through a single atomic assignment
// and notify subscribers synchronously, in registration order, before the
// mutation call returns. Best-effort side effects (reminders, checklist
// cascade) are dispatched after the state transition has been committed and
// can never fail or roll it back.
package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/tripdeck/internal/logfields"
	"git.home.luguber.info/inful/tripdeck/internal/metrics"
	"git.home.luguber.info/inful/tripdeck/internal/reminders"
	"git.home.luguber.info/inful/tripdeck/internal/storage"
	"git.home.luguber.info/inful/tripdeck/internal/timer"
)

// ChecklistDeleter is the cascade hook for the external checklist entity that
// shares the timer's id. Deletion is best-effort; failures are logged only.
type ChecklistDeleter interface {
	DeleteChecklist(ctx context.Context, timerID string) error
}

// Subscriber receives the full state after every mutation. The snapshot is
// shared between subscribers of the same notification and must not be mutated.
type Subscriber func(timer.Snapshot)

// Options configures a Store. Zero-value collaborators fall back to no-ops so
// the store stays usable in tests and on platforms without the capability.
type Options struct {
	KV           storage.KV
	Key          string
	Orchestrator reminders.Orchestrator
	Checklists   ChecklistDeleter
	Recorder     metrics.Recorder

	// Now is the clock used for createdAt/lastCheckIn; defaults to time.Now.
	Now func() time.Time
	// Location is the calendar-day frame for check-ins; defaults to time.Local.
	Location *time.Location
	// SideEffectTimeout bounds each dispatched side-effect call.
	SideEffectTimeout time.Duration
}

// Store is the process-wide timer state container. Construct exactly one per
// process and pass it by reference; the readiness flag is an explicit field,
// not hidden module state.
type Store struct {
	mu    sync.Mutex
	state timer.Snapshot
	subs  []Subscriber

	hydrated  bool
	hydrateCh chan struct{}

	kv          storage.KV
	key         string
	orch        reminders.Orchestrator
	checklists  ChecklistDeleter
	recorder    metrics.Recorder
	now         func() time.Time
	loc         *time.Location
	effectLimit time.Duration

	// wg tracks in-flight side-effect goroutines so tests and shutdown can
	// wait for them; the store itself never blocks on it during mutations.
	wg sync.WaitGroup
}

// New creates a Store. State is empty and not hydrated until Hydrate runs.
func New(opts Options) *Store {
	if opts.Orchestrator == nil {
		opts.Orchestrator = reminders.Noop{}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = 10 * time.Second
	}
	if opts.Key == "" {
		opts.Key = DefaultSnapshotKey
	}

	return &Store{
		state:       timer.EmptySnapshot(),
		hydrateCh:   make(chan struct{}),
		kv:          opts.KV,
		key:         opts.Key,
		orch:        opts.Orchestrator,
		checklists:  opts.Checklists,
		recorder:    opts.Recorder,
		now:         opts.Now,
		loc:         opts.Location,
		effectLimit: opts.SideEffectTimeout,
	}
}

// Subscribe registers fn to be called synchronously after every state change.
// Subscribers fire in registration order. The returned function unsubscribes.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.subs[idx] = nil
		})
	}
}

// IsHydrated reports whether startup hydration has completed. Callers must
// check this before trusting an empty collection to mean "no timers".
func (s *Store) IsHydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Hydrated is closed once hydration completes (test/startup sequencing helper).
func (s *Store) Hydrated() <-chan struct{} {
	return s.hydrateCh
}

// State returns a deep copy of the current state.
func (s *Store) State() timer.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Wait blocks until all dispatched side effects have finished.
// Intended for shutdown and tests only.
func (s *Store) Wait() {
	s.wg.Wait()
}

// mutate clones the state, applies fn, installs the result under a single
// assignment, and notifies subscribers. fn returning false means no-op:
// nothing is installed and nobody is notified.
func (s *Store) mutate(op string, fn func(*timer.Snapshot) bool) {
	s.mu.Lock()
	next := s.state.Clone()
	if !fn(&next) {
		s.mu.Unlock()
		return
	}
	s.state = next
	subs := slices.Clone(s.subs)
	notification := next.Clone()
	s.mu.Unlock()

	s.recorder.IncMutation(op)
	s.recorder.SetTimerCounts(len(notification.Timers), len(notification.Archived))

	// Mutations come from a single caller goroutine, so notifying after the
	// install keeps registration order.
	for _, sub := range subs {
		if sub != nil {
			sub(notification)
		}
	}
}

// dispatch runs a side effect on its own goroutine. Errors and panics are
// logged and counted, never surfaced to the caller of the mutation.
func (s *Store) dispatch(op, id string, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Side effect panicked",
					logfields.Op(op), logfields.TimerID(id), slog.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.effectLimit)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.recorder.IncSideEffectResult(op, false)
			slog.Warn("Side effect failed",
				logfields.Op(op), logfields.TimerID(id), logfields.Error(err))
			return
		}
		s.recorder.IncSideEffectResult(op, true)
	}()
}

func (s *Store) cascadeCleanup(id string) {
	s.dispatch("cancel_reminders", id, func(ctx context.Context) error {
		return s.orch.CancelReminders(ctx, id)
	})
	if s.checklists != nil {
		s.dispatch("delete_checklist", id, func(ctx context.Context) error {
			return s.checklists.DeleteChecklist(ctx, id)
		})
	}
}

func (s *Store) scheduleReminders(t timer.Timer) {
	dest, date := t.Destination, t.Date
	s.dispatch("schedule_reminders", t.ID, func(ctx context.Context) error {
		return s.orch.ScheduleReminders(ctx, t.ID, dest, date)
	})
}

func findTimer(list []timer.Timer, id string) int {
	return slices.IndexFunc(list, func(t timer.Timer) bool { return t.ID == id })
}
