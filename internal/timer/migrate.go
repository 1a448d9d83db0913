package timer

import (
	"encoding/json"
	"time"

	ferrors "git.home.luguber.info/inful/tripdeck/internal/foundation/errors"
)

// CurrentSchemaVersion is the version stamped into every written snapshot.
//
// Version history:
//
//	v0 — legacy unversioned format; timers may lack party, duration, and
//	     gamification fields, which are backfilled by presence sniffing.
//	v1 — all Timer fields present, schemaVersion stamped.
//	v2 — settings envelope always present, destinations normalized.
const CurrentSchemaVersion = 2

// rawTimer mirrors Timer with optional fields so missing legacy keys are
// distinguishable from zero values during migration.
type rawTimer struct {
	ID          string     `json:"id"`
	Destination string     `json:"destination"`
	Date        time.Time  `json:"date"`
	CreatedAt   time.Time  `json:"createdAt"`
	Adults      *int       `json:"adults"`
	Children    *int       `json:"children"`
	Duration    *int       `json:"duration"`
	Streak      *int       `json:"streak"`
	XP          *int       `json:"xp"`
	Badges      []string   `json:"badges"`
	Quests      []string   `json:"completedQuests"`
	LastCheckIn *time.Time `json:"lastCheckIn"`
}

// rawSnapshot is the parse target for snapshots of unknown vintage.
type rawSnapshot struct {
	SchemaVersion int        `json:"schemaVersion"`
	Timers        []rawTimer `json:"timers"`
	Archived      []rawTimer `json:"archivedTimers"`
	Settings      *Settings  `json:"settings"`
}

// migration upgrades a raw snapshot from version v to v+1.
type migration func(*rawSnapshot, time.Time)

// migrations[v] upgrades version v to v+1; the chain runs in order until
// CurrentSchemaVersion is reached.
var migrations = []migration{
	migrateV0toV1,
	migrateV1toV2,
}

// migrateV0toV1 backfills fields the legacy format omitted. Presence sniffing
// is the only option here: v0 snapshots carry no version tag at all.
func migrateV0toV1(s *rawSnapshot, now time.Time) {
	for _, list := range [][]rawTimer{s.Timers, s.Archived} {
		for i := range list {
			t := &list[i]
			if t.Adults == nil {
				t.Adults = intPtr(DefaultAdults)
			}
			if t.Children == nil {
				t.Children = intPtr(DefaultChildren)
			}
			if t.Duration == nil {
				t.Duration = intPtr(DefaultDuration)
			}
			if t.Streak == nil {
				t.Streak = intPtr(0)
			}
			if t.XP == nil {
				t.XP = intPtr(0)
			}
			if t.Badges == nil {
				t.Badges = []string{}
			}
			if t.Quests == nil {
				t.Quests = []string{}
			}
			if t.LastCheckIn == nil {
				lastCheckIn := t.CreatedAt
				if lastCheckIn.IsZero() {
					lastCheckIn = now
				}
				t.LastCheckIn = &lastCheckIn
			}
		}
	}
}

// migrateV1toV2 guarantees the settings envelope and normalized destinations.
func migrateV1toV2(s *rawSnapshot, now time.Time) {
	if s.Settings == nil {
		s.Settings = &Settings{}
	}
	for _, list := range [][]rawTimer{s.Timers, s.Archived} {
		for i := range list {
			list[i].Destination = NormalizeDestination(list[i].Destination)
		}
	}
}

// MigrateSnapshot parses a persisted snapshot of any supported vintage and
// upgrades it to the current schema. Malformed JSON and future schema versions
// are errors; callers fall back to EmptySnapshot per the hydration contract.
func MigrateSnapshot(data []byte, now time.Time) (Snapshot, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, ferrors.HydrationError("snapshot is not valid JSON").
			WithCause(err).Build()
	}
	if raw.SchemaVersion > CurrentSchemaVersion {
		return Snapshot{}, ferrors.HydrationError("snapshot schema is newer than this build").
			WithContext("schema_version", raw.SchemaVersion).
			WithContext("supported", CurrentSchemaVersion).Build()
	}
	if raw.SchemaVersion < 0 {
		return Snapshot{}, ferrors.HydrationError("snapshot schema version is negative").
			WithContext("schema_version", raw.SchemaVersion).Build()
	}

	for v := raw.SchemaVersion; v < CurrentSchemaVersion; v++ {
		migrations[v](&raw, now)
	}

	settings := Settings{}
	if raw.Settings != nil {
		settings = *raw.Settings
	}
	return Snapshot{
		SchemaVersion: CurrentSchemaVersion,
		Timers:        materialize(raw.Timers, now),
		Archived:      materialize(raw.Archived, now),
		Settings:      settings,
	}, nil
}

// materialize converts raw timers into the model type. Versioned snapshots are
// expected to carry every field, but a hand-edited file easily drops one, so
// absent fields still collapse to schema defaults instead of panicking.
func materialize(raw []rawTimer, now time.Time) []Timer {
	out := make([]Timer, 0, len(raw))
	for _, r := range raw {
		t := Timer{
			ID:              r.ID,
			Destination:     r.Destination,
			Date:            r.Date,
			CreatedAt:       r.CreatedAt,
			Adults:          intOr(r.Adults, DefaultAdults),
			Children:        intOr(r.Children, DefaultChildren),
			Duration:        intOr(r.Duration, DefaultDuration),
			Streak:          intOr(r.Streak, 0),
			XP:              intOr(r.XP, 0),
			Badges:          r.Badges,
			CompletedQuests: r.Quests,
		}
		if t.Badges == nil {
			t.Badges = []string{}
		}
		if t.CompletedQuests == nil {
			t.CompletedQuests = []string{}
		}
		switch {
		case r.LastCheckIn != nil:
			t.LastCheckIn = *r.LastCheckIn
		case !r.CreatedAt.IsZero():
			t.LastCheckIn = r.CreatedAt
		default:
			t.LastCheckIn = now
		}
		out = append(out, t)
	}
	return out
}

func intOr(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}

func intPtr(v int) *int { return &v }
