// internal/game/board.go
//
// Sparse 217x217 game board.
// Responsibilities:
//   - Store committed and tentative tiles keyed by coordinate.
//   - Refuse to overwrite an occupied cell (Put is a no-op there).
//   - Compare boards by occupied cells only.

package game

import "sort"

// BoardSize is the width and height of the board.
const BoardSize = 217

// Coord is a board coordinate.
type Coord struct {
	X, Y int
}

// InBounds reports whether c lies on the board.
func (c Coord) InBounds() bool {
	return c.X >= 0 && c.X < BoardSize && c.Y >= 0 && c.Y < BoardSize
}

// Board maps occupied coordinates to tiles. The zero value is not usable;
// call NewBoard.
type Board struct {
	cells map[Coord]Tile
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{cells: make(map[Coord]Tile)}
}

// At returns the tile at (x, y), if any.
func (b *Board) At(x, y int) (Tile, bool) {
	t, ok := b.cells[Coord{x, y}]
	return t, ok
}

// Occupied reports whether (x, y) holds a tile.
func (b *Board) Occupied(x, y int) bool {
	_, ok := b.cells[Coord{x, y}]
	return ok
}

// Put stores the placement's tile. It returns false, leaving the board
// unchanged, when the cell is off the board or already occupied.
func (b *Board) Put(p Placement) bool {
	c := Coord{p.X, p.Y}
	if !c.InBounds() || p.Tile.IsZero() {
		return false
	}
	if _, taken := b.cells[c]; taken {
		return false
	}
	b.cells[c] = p.Tile
	return true
}

// Remove empties (x, y) and returns the tile that was there.
func (b *Board) Remove(x, y int) (Tile, bool) {
	c := Coord{x, y}
	t, ok := b.cells[c]
	if ok {
		delete(b.cells, c)
	}
	return t, ok
}

// Len returns the number of occupied cells.
func (b *Board) Len() int { return len(b.cells) }

// IsEmpty reports whether no tile has been placed yet.
func (b *Board) IsEmpty() bool { return len(b.cells) == 0 }

// Each calls fn for every occupied cell in row-major order (y, then x).
// Iteration stops early when fn returns false.
func (b *Board) Each(fn func(c Coord, t Tile) bool) {
	coords := make([]Coord, 0, len(b.cells))
	for c := range b.cells {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Y != coords[j].Y {
			return coords[i].Y < coords[j].Y
		}
		return coords[i].X < coords[j].X
	})
	for _, c := range coords {
		if !fn(c, b.cells[c]) {
			return
		}
	}
}

// Equal compares occupied cells and their tiles.
func (b *Board) Equal(o *Board) bool {
	if b == nil || o == nil {
		return b == o
	}
	if len(b.cells) != len(o.cells) {
		return false
	}
	for c, t := range b.cells {
		if ot, ok := o.cells[c]; !ok || ot != t {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	out := &Board{cells: make(map[Coord]Tile, len(b.cells))}
	for c, t := range b.cells {
		out.cells[c] = t
	}
	return out
}
