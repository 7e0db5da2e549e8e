// internal/rules/lines.go
//
// Line discovery around a candidate placement.
//
// A line is the run of occupied cells adjacent to the placement along one
// axis, in both directions, never including the placement's own cell.
// Each axis yields one of three results: no neighbours, a valid line of
// 1..MaxNeighbors tiles, or an invalid line.

package rules

import "github.com/robalobadob/qwirkle/server/internal/game"

const (
	// MaxLine is the longest legal line, new tile included.
	MaxLine = 6
	// MaxNeighbors is the most tiles a placement may join on one axis.
	MaxNeighbors = MaxLine - 1
	// FullLineBonus is awarded per axis when a line reaches MaxLine.
	FullLineBonus = 6
)

// LineState classifies the run found on one axis.
type LineState uint8

const (
	LineEmpty LineState = iota
	LineValid
	LineInvalid
)

// Line is the set of neighbours a placement would join on one axis.
type Line struct {
	State LineState
	Tiles []game.Placement
}

// Len returns the number of neighbouring tiles (the new tile excluded).
func (l Line) Len() int { return len(l.Tiles) }

// Scoring reports whether the line is valid and non-empty.
func (l Line) Scoring() bool { return l.State == LineValid && len(l.Tiles) > 0 }

// HasTemporary reports whether any tile of the line belongs to the move
// in progress.
func (l Line) HasTemporary() bool {
	for _, p := range l.Tiles {
		if p.Tile.Temporary {
			return true
		}
	}
	return false
}

// Lines returns the horizontal (along x) and vertical (along y) lines the
// placement would join on the board.
func Lines(p game.Placement, b *game.Board) (alongX, alongY Line) {
	alongX = axisLine(p, b, 1, 0)
	alongY = axisLine(p, b, 0, 1)
	return alongX, alongY
}

// axisLine walks both directions of one axis and validates the result.
func axisLine(p game.Placement, b *game.Board, dx, dy int) Line {
	var tiles []game.Placement
	for _, sign := range [2]int{-1, 1} {
		// One step past MaxNeighbors is enough to notice an overlong line.
		for k := 1; k <= MaxNeighbors+1; k++ {
			x, y := p.X+sign*k*dx, p.Y+sign*k*dy
			if !(game.Coord{X: x, Y: y}).InBounds() {
				break
			}
			t, ok := b.At(x, y)
			if !ok {
				break
			}
			tiles = append(tiles, game.Placement{Tile: t, X: x, Y: y})
		}
	}
	if len(tiles) == 0 {
		return Line{State: LineEmpty}
	}
	if len(tiles) > MaxNeighbors || !matches(p.Tile, tiles) {
		return Line{State: LineInvalid}
	}
	return Line{State: LineValid, Tiles: tiles}
}

// matches checks that every neighbour shares exactly one attribute with t,
// that the whole line shares one common attribute, and that no kind
// appears twice.
func matches(t game.Tile, tiles []game.Placement) bool {
	allColor, allShape := true, true
	seen := map[uint8]bool{t.TypeKey(): true}
	for _, n := range tiles {
		if seen[n.Tile.TypeKey()] {
			return false
		}
		seen[n.Tile.TypeKey()] = true

		sameColor := n.Tile.Color == t.Color
		sameShape := n.Tile.Shape == t.Shape
		if !sameColor && !sameShape {
			return false
		}
		allColor = allColor && sameColor
		allShape = allShape && sameShape
	}
	return allColor || allShape
}
