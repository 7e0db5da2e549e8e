// internal/store/memory.go
//
// Result store interface and its in-memory implementation.
// The memory store keeps finished-game results for the lifetime of the
// process and is used when no database path is configured, and in tests.
//
// Characteristics:
//   - Results keyed by session ID in a map, plus insertion order for Recent.
//   - Concurrency-safe via RWMutex (the admin API reads while the session writes).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no result exists for an ID.
var ErrNotFound = errors.New("not found")

// Result describes one finished session.
type Result struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Players   int       `json:"players"`
	Scores    []int     `json:"scores"`
	Winners   []int     `json:"winners"`
	Turns     int       `json:"turns"`
	Reason    string    `json:"reason"` // "game_over" | "connection_fault" | "canceled"
}

// Store defines the persistence interface for finished games.
// Implementations may be backed by memory (this file) or SQLite.
type Store interface {
	// Save persists or replaces a result.
	Save(ctx context.Context, r *Result) error

	// Get retrieves a result by session ID.
	// Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Result, error)

	// Recent returns up to limit results, newest first.
	Recent(ctx context.Context, limit int) ([]*Result, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex       // guards results and order
	results map[string]*Result // keyed by Result.ID
	order   []string           // insertion order
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{results: make(map[string]*Result)}
}

// Save adds or updates the result. A copy is stored.
func (m *memory) Save(ctx context.Context, r *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.results[r.ID] = clone(r)
	return nil
}

// Get looks up a result by ID.
func (m *memory) Get(ctx context.Context, id string) (*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.results[id]; ok {
		return clone(r), nil
	}
	return nil, ErrNotFound
}

// Recent returns the newest results first.
func (m *memory) Recent(ctx context.Context, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Result, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, clone(m.results[m.order[i]]))
	}
	return out, nil
}

// defaultLimit applies when Recent is called without a positive limit.
const defaultLimit = 20

func clone(r *Result) *Result {
	c := *r
	c.Scores = append([]int(nil), r.Scores...)
	c.Winners = append([]int(nil), r.Winners...)
	return &c
}
