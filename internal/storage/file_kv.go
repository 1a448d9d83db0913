package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileKV is a filesystem-backed implementation of KV. All keys live in a single
// JSON file; every write replaces the file atomically via a temporary file and
// rename so a crash mid-write never leaves a torn snapshot behind.
type FileKV struct {
	path string
	mu   sync.RWMutex
	data map[string]string
}

// NewFileKV creates a file-backed store at path, loading existing data if present.
func NewFileKV(path string) (*FileKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	kv := &FileKV{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path) // #nosec G304 - path comes from trusted config
	if err != nil {
		if os.IsNotExist(err) {
			return kv, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if err := json.Unmarshal(raw, &kv.data); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	return kv, nil
}

// Path returns the backing file path (used by the snapshot watcher).
func (f *FileKV) Path() string { return f.path }

// Get retrieves the value stored under key.
func (f *FileKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.data[key]
	if !ok {
		return "", ErrNotFound{Key: key}
	}
	return v, nil
}

// Set stores value under key and flushes to disk.
func (f *FileKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.data[key] = value
	return f.flushLocked()
}

// Delete removes a key and flushes to disk.
func (f *FileKV) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flushLocked()
}

// Close flushes any state to disk.
func (f *FileKV) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushLocked()
}

func (f *FileKV) flushLocked() error {
	data, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store file: %w", err)
	}

	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("write temporary store file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
