// internal/game/player.go
//
// Per-player state: a fixed hand of six slots and a score that may only
// grow. Empty slots hold the zero Tile.

package game

import (
	"errors"
	"fmt"
)

// HandSize is the number of slots in a hand.
const HandSize = 6

// ErrNegativeScore is returned when a score write would go below zero
// or decrease the score.
var ErrNegativeScore = errors.New("invalid score")

// Hand is a player's rack of tiles.
type Hand [HandSize]Tile

// Count returns the number of occupied slots.
func (h *Hand) Count() int {
	n := 0
	for _, t := range h {
		if !t.IsZero() {
			n++
		}
	}
	return n
}

// Tiles returns the occupied slots in slot order.
func (h *Hand) Tiles() []Tile {
	out := make([]Tile, 0, HandSize)
	for _, t := range h {
		if !t.IsZero() {
			out = append(out, t)
		}
	}
	return out
}

// TakeKind clears the first slot holding a tile of the given kind and
// returns that tile.
func (h *Hand) TakeKind(key uint8) (Tile, bool) {
	for i, t := range h {
		if !t.IsZero() && t.TypeKey() == key {
			h[i] = Tile{}
			return t, true
		}
	}
	return Tile{}, false
}

// Fill draws tiles from the bag into empty slots. It returns false if
// the bag ran out before every slot was filled.
func (h *Hand) Fill(bag *Bag) bool {
	for i := range h {
		if !h[i].IsZero() {
			continue
		}
		t, ok := bag.Draw()
		if !ok {
			return false
		}
		h[i] = t
	}
	return true
}

// Player holds one seat's hand and score.
type Player struct {
	Hand  Hand
	score int
}

// NewPlayer returns a player with an empty hand and zero score.
func NewPlayer() *Player { return &Player{} }

// Score returns the current score.
func (p *Player) Score() int { return p.score }

// SetScore overwrites the score. Negative values and decreases are
// rejected; scores only ever grow.
func (p *Player) SetScore(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (negative)", ErrNegativeScore, n)
	}
	if n < p.score {
		return fmt.Errorf("%w: %d (below current %d)", ErrNegativeScore, n, p.score)
	}
	p.score = n
	return nil
}

// AddScore adds delta points.
func (p *Player) AddScore(delta int) error {
	return p.SetScore(p.score + delta)
}
