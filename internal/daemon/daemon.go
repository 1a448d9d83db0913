// Package daemon wires the tripdeck subsystems into a running process:
// storage backend, timer store, persistence gateway, reminder orchestrator,
// snapshot watcher, and the HTTP surface.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/tripdeck/internal/checklist"
	"git.home.luguber.info/inful/tripdeck/internal/config"
	"git.home.luguber.info/inful/tripdeck/internal/logfields"
	"git.home.luguber.info/inful/tripdeck/internal/metrics"
	"git.home.luguber.info/inful/tripdeck/internal/persist"
	"git.home.luguber.info/inful/tripdeck/internal/reminders"
	"git.home.luguber.info/inful/tripdeck/internal/storage"
	"git.home.luguber.info/inful/tripdeck/internal/store"
)

// Daemon owns the lifecycle of all tripdeck components.
type Daemon struct {
	cfg *config.Config

	kv         storage.KV
	checklists *checklist.Store
	orch       reminders.Orchestrator
	gocronOrch *reminders.GocronOrchestrator
	natsOrch   *reminders.NATSOrchestrator
	store      *store.Store
	gateway    *persist.Gateway
	watcher    *storage.SnapshotWatcher
	registry   *prom.Registry
	httpServer *HTTPServer
}

// New assembles a daemon from configuration. Nothing starts running until Run.
func New(cfg *config.Config) (*Daemon, error) {
	d := &Daemon{cfg: cfg}

	kv, err := OpenKV(cfg.Storage)
	if err != nil {
		return nil, err
	}
	d.kv = kv

	if cfg.Storage.ChecklistPath != "" {
		cl, err := checklist.NewStore(cfg.Storage.ChecklistPath)
		if err != nil {
			return nil, fmt.Errorf("open checklist store: %w", err)
		}
		d.checklists = cl
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		d.registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(d.registry)
	}

	if err := d.buildOrchestrator(); err != nil {
		return nil, err
	}

	opts := store.Options{
		KV:           d.kv,
		Key:          cfg.Storage.SnapshotKey,
		Orchestrator: d.orch,
		Recorder:     recorder,
	}
	if d.checklists != nil {
		opts.Checklists = d.checklists
	}
	d.store = store.New(opts)

	gw, err := persist.NewGateway(d.kv, cfg.Storage.SnapshotKey, persist.GatewayConfig{
		QuietWindow: cfg.Debounce.QuietWindow,
		MaxDelay:    cfg.Debounce.MaxDelay,
		IsReady:     d.store.IsHydrated,
		Recorder:    recorder,
	})
	if err != nil {
		return nil, err
	}
	d.gateway = gw
	d.store.Subscribe(gw.Notify)

	if fileKV, ok := d.kv.(*storage.FileKV); ok && cfg.Storage.WatchSnapshot {
		w, err := storage.NewSnapshotWatcher(fileKV.Path(), gw.LastSave)
		if err != nil {
			slog.Warn("Snapshot watcher unavailable", logfields.Error(err))
		} else {
			d.watcher = w
		}
	}

	d.httpServer = NewHTTPServer(cfg.Metrics, d.store, d.registry)
	return d, nil
}

// OpenKV opens the configured key-value backend.
func OpenKV(cfg config.StorageConfig) (storage.KV, error) {
	switch cfg.Backend {
	case "file":
		kv, err := storage.NewFileKV(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return kv, nil
	case "sqlite":
		kv, err := storage.NewSQLiteKV(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return kv, nil
	case "memory":
		return storage.NewMemKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func (d *Daemon) buildOrchestrator() error {
	switch d.cfg.Reminders.Backend {
	case "gocron":
		orch, err := reminders.NewGocron(reminders.LogNotifier{}, d.cfg.Reminders.LeadTimes)
		if err != nil {
			return fmt.Errorf("create reminder scheduler: %w", err)
		}
		d.gocronOrch = orch
		d.orch = orch
	case "nats":
		orch, err := reminders.NewNATS(d.cfg.Reminders.NATSURL, d.cfg.Reminders.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("connect reminder publisher: %w", err)
		}
		d.natsOrch = orch
		d.orch = orch
	case "none":
		d.orch = reminders.Noop{}
	default:
		return fmt.Errorf("unknown reminders backend %q", d.cfg.Reminders.Backend)
	}
	return nil
}

// Store exposes the timer store to callers embedding the daemon.
func (d *Daemon) Store() *store.Store {
	return d.store
}

// Run hydrates the store and drives all components until ctx is canceled,
// then shuts down cleanly: the gateway flushes its pending snapshot, side
// effects drain, and the backends close.
func (d *Daemon) Run(ctx context.Context) error {
	slog.Info("Starting tripdeck daemon",
		logfields.Backend(d.cfg.Storage.Backend),
		slog.String("reminders", d.cfg.Reminders.Backend))

	var wg sync.WaitGroup
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.gateway.Run(runCtx); err != nil {
			slog.Error("Persistence gateway stopped", logfields.Error(err))
		}
	}()
	<-d.gateway.Ready()

	if d.gocronOrch != nil {
		d.gocronOrch.Start()
	}

	if d.watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.watcher.Run(runCtx); err != nil {
				slog.Warn("Snapshot watcher stopped", logfields.Error(err))
			}
		}()
	}

	// Hydration runs after the gateway subscribes so the freshly migrated
	// snapshot is persisted, and before callers get the store.
	if err := d.store.Hydrate(runCtx); err != nil {
		return err
	}

	if d.cfg.Metrics.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.httpServer.Run(runCtx)
		}()
	}

	<-ctx.Done()
	slog.Info("Shutting down tripdeck daemon")

	cancel()
	wg.Wait()
	d.store.Wait()
	d.close()
	return nil
}

func (d *Daemon) close() {
	if d.gocronOrch != nil {
		if err := d.gocronOrch.Stop(); err != nil {
			slog.Warn("Reminder scheduler shutdown failed", logfields.Error(err))
		}
	}
	if d.natsOrch != nil {
		if err := d.natsOrch.Close(); err != nil {
			slog.Warn("NATS orchestrator shutdown failed", logfields.Error(err))
		}
	}
	if d.checklists != nil {
		if err := d.checklists.Close(); err != nil {
			slog.Warn("Checklist store close failed", logfields.Error(err))
		}
	}
	if err := d.kv.Close(); err != nil {
		slog.Warn("Key-value store close failed", logfields.Error(err))
	}
}
