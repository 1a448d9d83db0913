package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/tripdeck/internal/logfields"
)

// SnapshotWatcher monitors the snapshot file for writes that did not come from
// the persistence gateway. The snapshot key is owned exclusively by this
// subsystem; a foreign write means some other process is racing us, which is
// worth a loud warning even though nothing is done about it.
type SnapshotWatcher struct {
	path        string
	watcher     *fsnotify.Watcher
	lastOwnSave func() time.Time

	// grace is how close to our own save a change event may land and still be
	// attributed to the gateway (rename events arrive slightly after the save).
	grace time.Duration
}

// NewSnapshotWatcher creates a watcher for the given snapshot file.
// lastOwnSave reports when the gateway last wrote the file.
func NewSnapshotWatcher(path string, lastOwnSave func() time.Time) (*SnapshotWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("resolve snapshot path: %w", err)
	}

	return &SnapshotWatcher{
		path:        absPath,
		watcher:     w,
		lastOwnSave: lastOwnSave,
		grace:       2 * time.Second,
	}, nil
}

// Run watches until the context is canceled.
// Watching the parent directory is more reliable than watching the file itself,
// since atomic renames replace the inode.
func (sw *SnapshotWatcher) Run(ctx context.Context) error {
	if err := sw.watcher.Add(filepath.Dir(sw.path)); err != nil {
		return fmt.Errorf("watch snapshot directory: %w", err)
	}
	defer func() { _ = sw.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return nil
			}
			sw.handleEvent(event)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Snapshot watcher error", logfields.Error(err))
		}
	}
}

func (sw *SnapshotWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != sw.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	if time.Since(sw.lastOwnSave()) < sw.grace {
		return
	}
	slog.Warn("Snapshot file modified outside the persistence gateway",
		logfields.StorageKey(sw.path),
		slog.String("event", event.Op.String()))
}
