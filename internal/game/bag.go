// internal/game/bag.go
//
// The tile bag: a multiset of undrawn tiles. Draws pick a uniformly random
// element; discards return tiles to the bag.

package game

import (
	"fmt"
	"math/rand/v2"
)

// CopiesPerKind is how many tiles of each colour/shape pair exist.
const CopiesPerKind = 3

// BagSize is the total number of tiles in a fresh bag.
const BagSize = CopiesPerKind * len(Colors) * len(Shapes)

// Bag is the set of tiles yet to be drawn.
type Bag struct {
	tiles []Tile
	rng   *rand.Rand
}

// NewBag returns a full bag. A nil rng uses a randomly seeded source.
func NewBag(rng *rand.Rand) *Bag {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	bag := &Bag{tiles: make([]Tile, 0, BagSize), rng: rng}
	for i := 0; i < CopiesPerKind; i++ {
		for _, c := range Colors {
			for _, s := range Shapes {
				bag.tiles = append(bag.tiles, NewTile(c, s))
			}
		}
	}
	return bag
}

// Draw removes and returns a random tile, or false if the bag is empty.
func (b *Bag) Draw() (Tile, bool) {
	if b == nil || len(b.tiles) == 0 {
		return Tile{}, false
	}
	i := b.rng.IntN(len(b.tiles))
	t := b.tiles[i]
	last := len(b.tiles) - 1
	b.tiles[i] = b.tiles[last]
	b.tiles = b.tiles[:last]
	return t, true
}

// Return puts a previously drawn tile back. It comes back temporary.
func (b *Bag) Return(t Tile) {
	if t.IsZero() {
		return
	}
	t.Temporary = true
	b.tiles = append(b.tiles, t)
}

// Len returns the number of tiles left.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.tiles)
}

// IsEmpty reports whether nothing is left to draw.
func (b *Bag) IsEmpty() bool { return b.Len() == 0 }

func (b *Bag) String() string {
	if b.Len() == 0 {
		return "Empty"
	}
	return fmt.Sprintf("(%d tiles)", b.Len())
}
