// internal/session/status.go
//
// Read-only snapshots of the live session for the admin API.
// The controller publishes a fresh Status after every state change; HTTP
// handlers read the latest copy. Hands are never included.

package session

import (
	"sync"
	"time"
)

// Session states reported in Status.State.
const (
	StateWaiting = "waiting" // accepting players
	StateActive  = "active"
	StateEnded   = "ended"
)

// Status is a point-in-time copy of the public game state.
type Status struct {
	ID         string    `json:"id,omitempty"`
	State      string    `json:"state"`
	Players    int       `json:"players"`
	Turn       int       `json:"turn"`
	Turns      int       `json:"turns"`
	Scores     []int     `json:"scores"`
	BagCount   int       `json:"bagCount"`
	BoardTiles int       `json:"boardTiles"`
	First      bool      `json:"first"`
	Reason     string    `json:"reason,omitempty"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Tracker holds the most recently published Status.
type Tracker struct {
	mu  sync.RWMutex
	cur Status
}

// NewTracker returns a tracker reporting StateWaiting.
func NewTracker() *Tracker {
	return &Tracker{cur: Status{State: StateWaiting, Scores: []int{}, UpdatedAt: time.Now().UTC()}}
}

// Publish replaces the current snapshot.
func (t *Tracker) Publish(s Status) {
	s.Scores = append([]int{}, s.Scores...)
	t.mu.Lock()
	t.cur = s
	t.mu.Unlock()
}

// Snapshot returns a copy of the current snapshot.
func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.cur
	s.Scores = append([]int{}, t.cur.Scores...)
	return s
}
