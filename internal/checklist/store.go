// Package checklist persists the packing-checklist documents that live
// alongside timers. From the timer store's point of view this is an external
// entity: it shares the timer's id and must be cascade-deleted when the timer
// is archived or purged.
package checklist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/tripdeck/internal/foundation/errors"
)

// Checklist is one checklist document keyed by its timer's id.
type Checklist struct {
	TimerID   string    `json:"timerId"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is a SQLite-backed checklist store.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (or creates) the checklist database.
// Use ":memory:" for tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checklists (
		timer_id TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put creates or replaces the checklist for a timer.
func (s *Store) Put(ctx context.Context, timerID, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checklists (timer_id, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(timer_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		timerID, body, time.Now().Unix(),
	)
	if err != nil {
		return ferrors.NewError(ferrors.CategoryChecklist, "failed to store checklist").
			WithCause(err).
			WithContext("timer_id", timerID).Build()
	}
	return nil
}

// Get retrieves the checklist for a timer.
func (s *Store) Get(ctx context.Context, timerID string) (Checklist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Checklist
	var updatedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT timer_id, body, updated_at FROM checklists WHERE timer_id = ?", timerID,
	).Scan(&c.TimerID, &c.Body, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Checklist{}, ferrors.NotFoundError("checklist not found").
				WithContext("timer_id", timerID).Build()
		}
		return Checklist{}, ferrors.NewError(ferrors.CategoryChecklist, "failed to query checklist").
			WithCause(err).Build()
	}
	c.UpdatedAt = time.Unix(updatedAt, 0)
	return c, nil
}

// DeleteChecklist removes the checklist for a timer. Deleting an absent
// checklist is a successful no-op, which keeps the cascade idempotent.
// Satisfies the store's ChecklistDeleter hook.
func (s *Store) DeleteChecklist(ctx context.Context, timerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM checklists WHERE timer_id = ?", timerID); err != nil {
		return ferrors.NewError(ferrors.CategoryChecklist, "failed to delete checklist").
			WithCause(err).
			WithContext("timer_id", timerID).Build()
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
