package store

import (
	"context"
	"log/slog"
	"slices"

	"git.home.luguber.info/inful/tripdeck/internal/logfields"
	"git.home.luguber.info/inful/tripdeck/internal/storage"
	"git.home.luguber.info/inful/tripdeck/internal/timer"
)

// DefaultSnapshotKey is the single well-known key the snapshot lives under.
const DefaultSnapshotKey = "tripdeck/snapshot"

// Hydrate runs the one-time startup sequence: read → parse → migrate →
// install → mark ready. Missing and corrupt snapshots both resolve to the
// empty first-run state; hydration never fails the process. Calling Hydrate
// on an already hydrated store is a no-op.
//
// The persistence gateway refuses to write until IsHydrated is true, so an
// early empty in-memory state can never overwrite good on-disk data.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		slog.Warn("Hydrate called twice; ignoring")
		return nil
	}
	s.mu.Unlock()

	snap := s.loadSnapshot(ctx)

	s.mu.Lock()
	s.state = snap
	s.hydrated = true
	subs := slices.Clone(s.subs)
	notification := snap.Clone()
	close(s.hydrateCh)
	s.mu.Unlock()

	s.recorder.SetTimerCounts(len(notification.Timers), len(notification.Archived))
	slog.Info("Store hydrated",
		slog.Int("active", len(notification.Timers)),
		slog.Int("archived", len(notification.Archived)))

	// Installing the hydrated state is a state replacement like any other;
	// notifying here lets the gateway persist a freshly migrated snapshot.
	for _, sub := range subs {
		if sub != nil {
			sub(notification)
		}
	}
	return nil
}

func (s *Store) loadSnapshot(ctx context.Context) timer.Snapshot {
	if s.kv == nil {
		s.recorder.IncHydration("no_store")
		return timer.EmptySnapshot()
	}

	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if storage.IsNotFound(err) {
			// Normal first run.
			s.recorder.IncHydration("first_run")
			return timer.EmptySnapshot()
		}
		s.recorder.IncHydration("read_error")
		slog.Warn("Snapshot read failed; starting empty",
			logfields.StorageKey(s.key), logfields.Error(err))
		return timer.EmptySnapshot()
	}

	snap, err := timer.MigrateSnapshot([]byte(raw), s.now())
	if err != nil {
		s.recorder.IncHydration("migrate_error")
		slog.Warn("Snapshot unusable; starting empty",
			logfields.StorageKey(s.key), logfields.Error(err))
		return timer.EmptySnapshot()
	}

	s.recorder.IncHydration("ok")
	return snap
}
