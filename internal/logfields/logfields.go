package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTimerID     = "timer_id"
	KeyDestination = "destination"
	KeyOp          = "op"
	KeyKey         = "storage_key"
	KeyBackend     = "backend"
	KeyCount       = "count"
	KeyDurationMS  = "duration_ms"
	KeySubject     = "subject"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func TimerID(id string) slog.Attr     { return slog.String(KeyTimerID, id) }
func Destination(d string) slog.Attr  { return slog.String(KeyDestination, d) }
func Op(op string) slog.Attr          { return slog.String(KeyOp, op) }
func StorageKey(k string) slog.Attr   { return slog.String(KeyKey, k) }
func Backend(b string) slog.Attr      { return slog.String(KeyBackend, b) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
