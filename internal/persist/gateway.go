// Package persist owns debounced snapshot persistence. The gateway subscribes
// to the timer store and coalesces bursts of mutations into a single write of
// the final state under one storage key.
package persist

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/tripdeck/internal/foundation/errors"
	"git.home.luguber.info/inful/tripdeck/internal/logfields"
	"git.home.luguber.info/inful/tripdeck/internal/metrics"
	"git.home.luguber.info/inful/tripdeck/internal/storage"
	"git.home.luguber.info/inful/tripdeck/internal/timer"
)

// GatewayConfig configures the debounce policy.
type GatewayConfig struct {
	// QuietWindow is how long after the last mutation the write happens.
	QuietWindow time.Duration
	// MaxDelay bounds total postponement: a continuous mutation stream still
	// gets persisted at least this often.
	MaxDelay time.Duration

	// IsReady reports whether the store has finished hydrating. The gateway
	// refuses to stage writes before then, so an early empty in-memory state
	// can never clobber good on-disk data.
	IsReady func() bool

	Recorder metrics.Recorder
}

// Gateway debounces store notifications into single-key snapshot writes.
//
//   - quiet window debounce (~100ms): N mutations in the window → 1 write
//   - max delay: persistence cannot be postponed indefinitely
//   - single-slot pending state: a new notification replaces, never queues
//
// Run it as a single goroutine. Write failures are logged and counted; the
// next mutation is the retry.
type Gateway struct {
	kv  storage.KV
	key string
	cfg GatewayConfig

	mu       sync.Mutex
	pending  *timer.Snapshot
	stagedAt time.Time

	notifyCh  chan struct{}
	readyOnce sync.Once
	ready     chan struct{}

	saveMu   sync.Mutex
	lastSave time.Time
}

// NewGateway creates a gateway writing to kv under key.
func NewGateway(kv storage.KV, key string, cfg GatewayConfig) (*Gateway, error) {
	if kv == nil {
		return nil, ferrors.ValidationError("kv store is required").Build()
	}
	if key == "" {
		return nil, ferrors.ValidationError("storage key is required").Build()
	}
	if cfg.QuietWindow <= 0 {
		cfg.QuietWindow = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * cfg.QuietWindow
	}
	if cfg.IsReady == nil {
		cfg.IsReady = func() bool { return true }
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NoopRecorder{}
	}

	return &Gateway{
		kv:       kv,
		key:      key,
		cfg:      cfg,
		notifyCh: make(chan struct{}, 1),
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once Run has initialized. Primarily for tests and
// deterministic startup sequencing.
func (g *Gateway) Ready() <-chan struct{} {
	return g.ready
}

// LastSave reports when the gateway last wrote the snapshot (watcher hook).
func (g *Gateway) LastSave() time.Time {
	g.saveMu.Lock()
	defer g.saveMu.Unlock()
	return g.lastSave
}

// Notify is the store subscriber. It stages the snapshot into the single
// pending slot and returns immediately; it never blocks the mutation path.
// Notifications before the store is ready are dropped.
func (g *Gateway) Notify(snap timer.Snapshot) {
	if !g.cfg.IsReady() {
		return
	}

	g.mu.Lock()
	if g.pending == nil {
		g.stagedAt = time.Now()
	}
	g.pending = &snap
	g.mu.Unlock()

	select {
	case g.notifyCh <- struct{}{}:
	default:
	}
}

// Run drives the debounce loop until ctx is canceled, then flushes any
// pending snapshot so a clean shutdown loses nothing.
func (g *Gateway) Run(ctx context.Context) error {
	if ctx == nil {
		return ferrors.ValidationError("context cannot be nil").Build()
	}

	g.readyOnce.Do(func() { close(g.ready) })

	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()

	var (
		quietC <-chan time.Time
		maxC   <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			g.Flush(context.Background())
			return nil

		case <-g.notifyCh:
			resetTimer(quietTimer, g.cfg.QuietWindow)
			quietC = quietTimer.C

			if maxC == nil && g.hasPending() {
				resetTimer(maxTimer, g.cfg.MaxDelay)
				maxC = maxTimer.C
			}

		case <-quietC:
			g.writePending(ctx)
			quietC = nil
			maxC = nil

		case <-maxC:
			g.writePending(ctx)
			quietC = nil
			maxC = nil
		}
	}
}

// Flush writes any pending snapshot immediately, bypassing the debounce.
func (g *Gateway) Flush(ctx context.Context) {
	g.writePending(ctx)
}

func (g *Gateway) hasPending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// writePending takes the pending slot and writes it. The slot is cleared even
// when the write fails: per the error contract, a failed write is retried on
// the next mutation, not by a dedicated retry loop.
func (g *Gateway) writePending(ctx context.Context) {
	g.mu.Lock()
	snap := g.pending
	g.pending = nil
	g.mu.Unlock()

	if snap == nil {
		return
	}

	start := time.Now()
	data, err := json.Marshal(snap)
	if err != nil {
		g.cfg.Recorder.IncWriteResult(false)
		slog.Error("Snapshot marshal failed", logfields.Error(err))
		return
	}

	g.saveMu.Lock()
	g.lastSave = time.Now()
	g.saveMu.Unlock()

	if err := g.kv.Set(ctx, g.key, string(data)); err != nil {
		g.cfg.Recorder.IncWriteResult(false)
		slog.Warn("Snapshot write failed; will retry on next mutation",
			logfields.StorageKey(g.key), logfields.Error(err))
		return
	}

	g.cfg.Recorder.IncWriteResult(true)
	g.cfg.Recorder.ObserveWriteDuration(time.Since(start))
	slog.Debug("Snapshot persisted",
		logfields.StorageKey(g.key),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
