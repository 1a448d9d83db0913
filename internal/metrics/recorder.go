package metrics

import "time"

// Recorder defines observability hooks for store and gateway activity.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the NoopRecorder so injection stays optional.
type Recorder interface {
	IncMutation(op string)
	SetTimerCounts(active, archived int)
	IncSideEffectResult(op string, success bool)
	IncHydration(outcome string) // outcome: ok|first_run|read_error|migrate_error|no_store
	ObserveWriteDuration(d time.Duration)
	IncWriteResult(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncMutation(string)                 {}
func (NoopRecorder) SetTimerCounts(int, int)            {}
func (NoopRecorder) IncSideEffectResult(string, bool)   {}
func (NoopRecorder) IncHydration(string)                {}
func (NoopRecorder) ObserveWriteDuration(time.Duration) {}
func (NoopRecorder) IncWriteResult(bool)                {}
