package store

import (
	"slices"
	"time"

	"git.home.luguber.info/inful/tripdeck/internal/timer"
)

// UpdatePatch is a partial timer update; nil fields are left untouched.
type UpdatePatch struct {
	Destination *string
	Date        *time.Time
}

// AddTimer validates the input, appends a new timer to the active collection,
// and requests reminder scheduling (best-effort, non-blocking).
func (s *Store) AddTimer(in timer.Input) (timer.Timer, error) {
	in, err := in.Validate()
	if err != nil {
		return timer.Timer{}, err
	}

	created := timer.New(in, s.now())
	s.mutate("add_timer", func(st *timer.Snapshot) bool {
		st.Timers = append(st.Timers, created.Clone())
		return true
	})
	s.scheduleReminders(created)
	return created, nil
}

// UpdateTimer replaces the destination and/or date of an active timer,
// preserving all other fields, and re-issues reminder scheduling keyed to the
// new date. Unknown ids are silently absorbed as no-ops. Reminder failures
// never surface to the caller.
func (s *Store) UpdateTimer(id string, patch UpdatePatch) {
	var updated timer.Timer
	var found bool

	s.mutate("update_timer", func(st *timer.Snapshot) bool {
		i := findTimer(st.Timers, id)
		if i < 0 {
			return false
		}
		t := st.Timers[i]
		if patch.Destination != nil {
			if dest := timer.NormalizeDestination(*patch.Destination); dest != "" {
				t.Destination = dest
			}
		}
		if patch.Date != nil {
			t.Date = *patch.Date
		}
		st.Timers[i] = t
		updated, found = t.Clone(), true
		return true
	})

	if found {
		// Scheduling for an id implicitly cancels its previous reminders, so
		// the stale-date reminders go away with the reschedule.
		s.scheduleReminders(updated)
	}
}

// ArchiveTimer moves a timer from active to the front of archived (soft
// delete). Cascades reminder cancellation and checklist deletion, each
// best-effort and independent. No-op if the id is not active.
func (s *Store) ArchiveTimer(id string) {
	var found bool
	s.mutate("archive_timer", func(st *timer.Snapshot) bool {
		i := findTimer(st.Timers, id)
		if i < 0 {
			return false
		}
		t := st.Timers[i]
		st.Timers = slices.Delete(st.Timers, i, i+1)
		st.Archived = append([]timer.Timer{t}, st.Archived...)
		found = true
		return true
	})
	if found {
		s.cascadeCleanup(id)
	}
}

// RestoreTimer moves a timer from archived to the front of active and
// re-requests reminder scheduling. No-op if the id is not archived.
func (s *Store) RestoreTimer(id string) {
	var restored timer.Timer
	var found bool

	s.mutate("restore_timer", func(st *timer.Snapshot) bool {
		i := findTimer(st.Archived, id)
		if i < 0 {
			return false
		}
		t := st.Archived[i]
		st.Archived = slices.Delete(st.Archived, i, i+1)
		st.Timers = append([]timer.Timer{t}, st.Timers...)
		restored, found = t.Clone(), true
		return true
	})

	if found {
		s.scheduleReminders(restored)
	}
}

// RemoveTimer hard-deletes a timer from whichever collection holds it and
// cascades the same cleanup as archiving. Removing an absent id is a
// successful no-op, so the operation is idempotent.
func (s *Store) RemoveTimer(id string) {
	var found bool
	s.mutate("remove_timer", func(st *timer.Snapshot) bool {
		if i := findTimer(st.Timers, id); i >= 0 {
			st.Timers = slices.Delete(st.Timers, i, i+1)
			found = true
			return true
		}
		if i := findTimer(st.Archived, id); i >= 0 {
			st.Archived = slices.Delete(st.Archived, i, i+1)
			found = true
			return true
		}
		return false
	})
	if found {
		s.cascadeCleanup(id)
	}
}

// PurgeArchive hard-deletes every archived timer, cascading cleanup for each.
// The active collection is untouched.
func (s *Store) PurgeArchive() {
	var purged []string
	s.mutate("purge_archive", func(st *timer.Snapshot) bool {
		if len(st.Archived) == 0 {
			return false
		}
		for _, t := range st.Archived {
			purged = append(purged, t.ID)
		}
		st.Archived = []timer.Timer{}
		return true
	})
	for _, id := range purged {
		s.cascadeCleanup(id)
	}
}

// UpdateSettings shallow-merges the patch into the settings.
func (s *Store) UpdateSettings(patch timer.SettingsPatch) {
	s.mutate("update_settings", func(st *timer.Snapshot) bool {
		st.Settings = st.Settings.Apply(patch)
		return true
	})
}
