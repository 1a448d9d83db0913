package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tripdeck/internal/timer"
)

// addTimerAt creates a store with a movable clock and one active timer whose
// lastCheckIn is the given instant.
func addTimerAt(t *testing.T, start time.Time) (*Store, *time.Time, string) {
	t.Helper()

	now := start
	s := newTestStore(Options{Now: func() time.Time { return now }})

	created, err := s.AddTimer(timer.Input{Destination: "Lisbon", Adults: 1, Duration: 3})
	require.NoError(t, err)
	s.Wait()

	return s, &now, created.ID
}

func TestStore_CheckIn_NextCalendarDay_ExtendsStreak(t *testing.T) {
	start := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	s, now, id := addTimerAt(t, start)

	*now = time.Date(2026, 8, 28, 7, 0, 0, 0, time.UTC)
	s.CheckIn(id)

	got := s.State().Timers[0]
	require.Equal(t, 1, got.Streak)
	require.Equal(t, *now, got.LastCheckIn)

	*now = time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)
	s.CheckIn(id)
	require.Equal(t, 2, s.State().Timers[0].Streak)
}

func TestStore_CheckIn_SameCalendarDay_IsNoOp(t *testing.T) {
	start := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	s, now, id := addTimerAt(t, start)

	before := s.State().Timers[0]

	*now = time.Date(2026, 8, 28, 21, 0, 0, 0, time.UTC)
	s.CheckIn(id)

	got := s.State().Timers[0]
	require.Equal(t, before.Streak, got.Streak)
	require.Equal(t, before.LastCheckIn, got.LastCheckIn, "same-day check-in must not advance lastCheckIn")
}

func TestStore_CheckIn_AfterGap_ResetsStreakToOne(t *testing.T) {
	start := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	s, now, id := addTimerAt(t, start)

	*now = time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)
	s.CheckIn(id)
	*now = time.Date(2026, 8, 22, 9, 0, 0, 0, time.UTC)
	s.CheckIn(id)
	require.Equal(t, 2, s.State().Timers[0].Streak)

	// Three days of silence.
	*now = time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	s.CheckIn(id)
	require.Equal(t, 1, s.State().Timers[0].Streak)
}

func TestStore_CheckIn_JustBeforeAndAfterMidnight_CountsAsNextDay(t *testing.T) {
	start := time.Date(2026, 8, 27, 23, 55, 0, 0, time.UTC)
	s, now, id := addTimerAt(t, start)

	// Ten minutes later, but past midnight.
	*now = time.Date(2026, 8, 28, 0, 5, 0, 0, time.UTC)
	s.CheckIn(id)
	require.Equal(t, 1, s.State().Timers[0].Streak)
}

func TestStore_CheckIn_UnknownID_IsNoOp(t *testing.T) {
	s := newTestStore(Options{})
	s.CheckIn("missing")
	require.Empty(t, s.State().Timers)
}

func TestStore_AwardXP_Accumulates(t *testing.T) {
	s, _, id := addTimerAt(t, time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))

	s.AwardXP(id, 10)
	s.AwardXP(id, 25)
	require.Equal(t, 35, s.State().Timers[0].XP)
}

func TestStore_AwardXP_NonPositiveAmount_IsNoOp(t *testing.T) {
	s, _, id := addTimerAt(t, time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))

	s.AwardXP(id, 0)
	s.AwardXP(id, -5)
	require.Equal(t, 0, s.State().Timers[0].XP)
}

func TestStore_GrantBadge_IsIdempotent(t *testing.T) {
	s, _, id := addTimerAt(t, time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))

	s.GrantBadge(id, "early-bird")
	s.GrantBadge(id, "early-bird")
	s.GrantBadge(id, "globetrotter")

	require.Equal(t, []string{"early-bird", "globetrotter"}, s.State().Timers[0].Badges)
}

func TestStore_CompleteQuest_IsIdempotent(t *testing.T) {
	s, _, id := addTimerAt(t, time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))

	s.CompleteQuest(id, "pack-bags")
	s.CompleteQuest(id, "pack-bags")

	require.Equal(t, []string{"pack-bags"}, s.State().Timers[0].CompletedQuests)
}
