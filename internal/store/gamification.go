package store

import (
	"slices"

	"git.home.luguber.info/inful/tripdeck/internal/timer"
)

// CheckIn records a daily check-in for an active timer.
//
// The gap to the previous check-in is measured in calendar days in the
// store's location, not in 24h intervals: same day is a no-op, exactly one
// day later extends the streak, any larger gap resets it to 1. lastCheckIn
// advances to now on every non-same-day check-in.
func (s *Store) CheckIn(id string) {
	now := s.now()
	s.mutate("check_in", func(st *timer.Snapshot) bool {
		i := findTimer(st.Timers, id)
		if i < 0 {
			return false
		}
		t := st.Timers[i]

		switch days := timer.CalendarDaysBetween(t.LastCheckIn, now, s.loc); {
		case days <= 0:
			// Same calendar day (or a clock that moved backwards): no-op.
			return false
		case days == 1:
			t.Streak++
		default:
			t.Streak = 1
		}
		t.LastCheckIn = now
		st.Timers[i] = t
		return true
	})
}

// AwardXP adds a non-negative amount of XP to the matching active timer.
// Unknown ids and non-positive amounts are no-ops.
func (s *Store) AwardXP(id string, amount int) {
	if amount <= 0 {
		return
	}
	s.mutate("award_xp", func(st *timer.Snapshot) bool {
		i := findTimer(st.Timers, id)
		if i < 0 {
			return false
		}
		st.Timers[i].XP += amount
		return true
	})
}

// GrantBadge appends a badge to the matching active timer. Re-granting an
// already held badge is a no-op.
func (s *Store) GrantBadge(id, badgeID string) {
	s.mutate("grant_badge", func(st *timer.Snapshot) bool {
		i := findTimer(st.Timers, id)
		if i < 0 {
			return false
		}
		if slices.Contains(st.Timers[i].Badges, badgeID) {
			return false
		}
		st.Timers[i].Badges = append(st.Timers[i].Badges, badgeID)
		return true
	})
}

// CompleteQuest records a completed quest on the matching active timer.
// Completing the same quest twice is a no-op.
func (s *Store) CompleteQuest(id, questID string) {
	s.mutate("complete_quest", func(st *timer.Snapshot) bool {
		i := findTimer(st.Timers, id)
		if i < 0 {
			return false
		}
		if slices.Contains(st.Timers[i].CompletedQuests, questID) {
			return false
		}
		st.Timers[i].CompletedQuests = append(st.Timers[i].CompletedQuests, questID)
		return true
	})
}
