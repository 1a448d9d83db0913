// Package timer holds the trip countdown domain model and its persisted snapshot format.
package timer

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	ferrors "git.home.luguber.info/inful/tripdeck/internal/foundation/errors"
)

// Schema defaults applied when backfilling legacy snapshots and when creating timers.
const (
	DefaultAdults   = 1
	DefaultChildren = 0
	DefaultDuration = 7
)

// Timer is one tracked trip countdown. The JSON field names are the persisted
// wire format and must stay stable across schema versions.
type Timer struct {
	ID          string `json:"id"`
	Destination string `json:"destination"`

	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`

	Adults   int `json:"adults"`
	Children int `json:"children"`
	Duration int `json:"duration"`

	Streak          int       `json:"streak"`
	XP              int       `json:"xp"`
	Badges          []string  `json:"badges"`
	CompletedQuests []string  `json:"completedQuests"`
	LastCheckIn     time.Time `json:"lastCheckIn"`
}

// Clone returns a deep copy of the timer.
func (t Timer) Clone() Timer {
	out := t
	out.Badges = slices.Clone(t.Badges)
	out.CompletedQuests = slices.Clone(t.CompletedQuests)
	return out
}

// Settings is the small record of user preferences persisted alongside timers.
type Settings struct {
	ReduceMotion bool `json:"reduceMotion"`
}

// SettingsPatch is a partial settings update; nil fields are left untouched.
type SettingsPatch struct {
	ReduceMotion *bool
}

// Apply shallow-merges the patch into the settings.
func (s Settings) Apply(patch SettingsPatch) Settings {
	if patch.ReduceMotion != nil {
		s.ReduceMotion = *patch.ReduceMotion
	}
	return s
}

// Snapshot is the full serialized unit written under the single storage key.
// Legacy snapshots carry no schemaVersion field; absence decodes as version 0.
type Snapshot struct {
	SchemaVersion int      `json:"schemaVersion"`
	Timers        []Timer  `json:"timers"`
	Archived      []Timer  `json:"archivedTimers"`
	Settings      Settings `json:"settings"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Timers = cloneTimers(s.Timers)
	out.Archived = cloneTimers(s.Archived)
	return out
}

func cloneTimers(ts []Timer) []Timer {
	out := make([]Timer, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// EmptySnapshot returns the first-run state at the current schema version.
func EmptySnapshot() Snapshot {
	return Snapshot{
		SchemaVersion: CurrentSchemaVersion,
		Timers:        []Timer{},
		Archived:      []Timer{},
	}
}

// Input carries the caller-supplied fields for a new timer.
type Input struct {
	Destination string
	Date        time.Time
	Adults      int
	Children    int
	Duration    int
}

// NormalizeDestination trims surrounding whitespace and applies Unicode NFC so
// visually identical destinations compare equal regardless of input method.
func NormalizeDestination(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Validate checks input constraints and returns the sanitized input.
func (in Input) Validate() (Input, error) {
	in.Destination = NormalizeDestination(in.Destination)
	if in.Destination == "" {
		return in, ferrors.ValidationError("destination must not be empty").Build()
	}
	if in.Adults < 0 {
		return in, ferrors.ValidationError("adults must not be negative").
			WithContext("adults", in.Adults).Build()
	}
	if in.Children < 0 {
		return in, ferrors.ValidationError("children must not be negative").
			WithContext("children", in.Children).Build()
	}
	if in.Duration < 1 {
		return in, ferrors.ValidationError("duration must be at least one day").
			WithContext("duration", in.Duration).Build()
	}
	return in, nil
}

// New creates a Timer from validated input with gamification fields zero-initialized.
func New(in Input, now time.Time) Timer {
	return Timer{
		ID:              uuid.NewString(),
		Destination:     in.Destination,
		Date:            in.Date,
		CreatedAt:       now,
		Adults:          in.Adults,
		Children:        in.Children,
		Duration:        in.Duration,
		Streak:          0,
		XP:              0,
		Badges:          []string{},
		CompletedQuests: []string{},
		LastCheckIn:     now,
	}
}

// CalendarDaysBetween returns the whole calendar days from a to b in the given
// location (midnight-truncated difference, not a 24h interval count).
func CalendarDaysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	am0 := time.Date(ay, am, ad, 0, 0, 0, 0, loc)
	bm0 := time.Date(by, bm, bd, 0, 0, 0, 0, loc)
	// Rounding absorbs the one-hour skew of DST transition days.
	return int(math.Round(bm0.Sub(am0).Hours() / 24))
}
