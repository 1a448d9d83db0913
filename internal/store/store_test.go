package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tripdeck/internal/timer"
)

// fakeOrchestrator records reminder calls for assertions.
type fakeOrchestrator struct {
	mu        sync.Mutex
	scheduled []string
	canceled  []string
	err       error
}

func (f *fakeOrchestrator) ScheduleReminders(ctx context.Context, timerID, destination string, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, timerID)
	return f.err
}

func (f *fakeOrchestrator) CancelReminders(ctx context.Context, timerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, timerID)
	return f.err
}

func (f *fakeOrchestrator) CancelAll(ctx context.Context) error { return nil }

func (f *fakeOrchestrator) scheduledIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scheduled...)
}

func (f *fakeOrchestrator) canceledIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.canceled...)
}

// fakeChecklists records cascade deletions.
type fakeChecklists struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (f *fakeChecklists) DeleteChecklist(ctx context.Context, timerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, timerID)
	return f.err
}

func (f *fakeChecklists) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestStore(opts Options) *Store {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return New(opts)
}

func TestStore_Subscribe_NotifiesSynchronouslyInRegistrationOrder(t *testing.T) {
	s := newTestStore(Options{})

	var order []string
	s.Subscribe(func(timer.Snapshot) { order = append(order, "first") })
	s.Subscribe(func(timer.Snapshot) { order = append(order, "second") })
	s.Subscribe(func(timer.Snapshot) { order = append(order, "third") })

	_, err := s.AddTimer(timer.Input{Destination: "Lisbon", Adults: 1, Duration: 3})
	require.NoError(t, err)

	// Subscribers ran before AddTimer returned; no waiting needed.
	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestStore_Subscribe_UnsubscribeStopsNotifications(t *testing.T) {
	s := newTestStore(Options{})

	count := 0
	unsubscribe := s.Subscribe(func(timer.Snapshot) { count++ })

	_, err := s.AddTimer(timer.Input{Destination: "A", Adults: 1, Duration: 1})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	unsubscribe()
	_, err = s.AddTimer(timer.Input{Destination: "B", Adults: 1, Duration: 1})
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestStore_Subscribe_ReceivesFullStateSnapshot(t *testing.T) {
	s := newTestStore(Options{})

	var last timer.Snapshot
	s.Subscribe(func(snap timer.Snapshot) { last = snap })

	created, err := s.AddTimer(timer.Input{Destination: "Lisbon", Adults: 2, Duration: 3})
	require.NoError(t, err)

	require.Len(t, last.Timers, 1)
	require.Equal(t, created.ID, last.Timers[0].ID)
	require.Equal(t, timer.CurrentSchemaVersion, last.SchemaVersion)
}

func TestStore_NoOpMutation_DoesNotNotify(t *testing.T) {
	s := newTestStore(Options{})

	count := 0
	s.Subscribe(func(timer.Snapshot) { count++ })

	s.RemoveTimer("does-not-exist")
	s.ArchiveTimer("does-not-exist")
	s.RestoreTimer("does-not-exist")
	s.CheckIn("does-not-exist")
	s.PurgeArchive()

	require.Equal(t, 0, count)
}

func TestStore_State_ReturnsDefensiveCopy(t *testing.T) {
	s := newTestStore(Options{})

	created, err := s.AddTimer(timer.Input{Destination: "Oslo", Adults: 1, Duration: 2})
	require.NoError(t, err)

	snap := s.State()
	snap.Timers[0].Destination = "mutated"
	snap.Timers = nil

	got := s.State()
	require.Len(t, got.Timers, 1)
	require.Equal(t, "Oslo", got.Timers[0].Destination)
	require.Equal(t, created.ID, got.Timers[0].ID)
}

func TestStore_SideEffectFailure_DoesNotAffectState(t *testing.T) {
	orch := &fakeOrchestrator{err: context.DeadlineExceeded}
	s := newTestStore(Options{Orchestrator: orch})

	created, err := s.AddTimer(timer.Input{Destination: "Lima", Adults: 1, Duration: 2})
	require.NoError(t, err)
	s.Wait()

	require.Len(t, s.State().Timers, 1)
	require.Equal(t, []string{created.ID}, orch.scheduledIDs())
}
