// internal/rules/rules.go
//
// Move validation and scoring.
// Responsibilities:
//   - Verify single placements and whole moves against the live board.
//   - Score placements and moves, including the full-line bonus.
//   - Undo tentative placements (RemovePlacement) with the matching score.
//   - Detect the end of the game and validate discards.
//
// Moves are evaluated in order: each placement sees the move's earlier
// placements as temporary tiles on the board. Every function that puts
// tentative tiles down removes them again before returning, so callers
// always get their board back unchanged.

package rules

import (
	"errors"

	"github.com/robalobadob/qwirkle/server/internal/game"
)

var (
	// ErrNoTile is returned when undoing a placement on an empty cell.
	ErrNoTile = errors.New("no tile at placement")
	// ErrCommitted is returned when undoing a tile that is already permanent.
	ErrCommitted = errors.New("tile already committed")
)

// Move is an ordered set of placements made in one turn.
type Move []game.Placement

// VerifyPlacement reports whether p may be placed on b.
//
// On an empty board any on-board placement seeds the game. Otherwise the
// tile must join at least one valid line and neither axis may be invalid.
func VerifyPlacement(p game.Placement, b *game.Board) bool {
	if p.Tile.IsZero() || !(game.Coord{X: p.X, Y: p.Y}).InBounds() || b.Occupied(p.X, p.Y) {
		return false
	}
	if b.IsEmpty() {
		return true
	}
	alongX, alongY := Lines(p, b)
	if alongX.State == LineInvalid || alongY.State == LineInvalid {
		return false
	}
	return alongX.Scoring() || alongY.Scoring()
}

// VerifyMove reports whether every placement of m verifies, each against
// the board plus the move's earlier placements.
func VerifyMove(m Move, b *game.Board) bool {
	if len(m) == 0 || len(m) > game.HandSize {
		return false
	}
	ok := true
	placed := make([]game.Placement, 0, len(m))
	for _, p := range m {
		p.Tile.Temporary = true
		if !VerifyPlacement(p, b) || !b.Put(p) {
			ok = false
			break
		}
		placed = append(placed, p)
	}
	undo(placed, b)
	return ok
}

// ScorePlacement scores p against b without placing it.
//
// Each scoring axis is worth its full length (new tile included), or a
// single point when the line already holds a temporary tile from the same
// move, so a shared line is paid out in full only once. Completing a line
// of MaxLine tiles adds FullLineBonus on that axis.
func ScorePlacement(p game.Placement, b *game.Board) int {
	alongX, alongY := Lines(p, b)
	return lineScore(alongX) + lineScore(alongY)
}

// ScoreMove sums ScorePlacement over the move, placing each tile
// tentatively before scoring the next one.
func ScoreMove(m Move, b *game.Board) int {
	total := 0
	placed := make([]game.Placement, 0, len(m))
	for _, p := range m {
		p.Tile.Temporary = true
		total += ScorePlacement(p, b)
		if !b.Put(p) {
			break
		}
		placed = append(placed, p)
	}
	undo(placed, b)
	return total
}

// RemovePlacement takes a tentative tile back off the board and returns
// the points its placement was worth. It fails with ErrCommitted once the
// tile is permanent; the board is left untouched in that case.
func RemovePlacement(p game.Placement, b *game.Board) (int, error) {
	t, ok := b.At(p.X, p.Y)
	if !ok {
		return 0, ErrNoTile
	}
	if !t.Temporary {
		return -1, ErrCommitted
	}
	b.Remove(p.X, p.Y)
	alongX, alongY := Lines(game.Placement{Tile: t, X: p.X, Y: p.Y}, b)
	return lineScore(alongX) + lineScore(alongY), nil
}

// lineScore mirrors the scoring rule for one axis.
func lineScore(l Line) int {
	if !l.Scoring() {
		return 0
	}
	length := l.Len() + 1
	pts := length
	if l.HasTemporary() {
		pts = 1
	}
	if length == MaxLine {
		pts += FullLineBonus
	}
	return pts
}

// undo removes tentative placements in reverse order.
func undo(placed []game.Placement, b *game.Board) {
	for i := len(placed) - 1; i >= 0; i-- {
		_, _ = RemovePlacement(placed[i], b)
	}
}

// GameOver reports whether no tile in any player's hand can be placed
// anywhere on the board.
//
// Once the board holds a tile, only empty cells next to an occupied cell
// can join a line, so those are the only candidates checked.
func GameOver(players []*game.Player, b *game.Board) bool {
	kinds := make(map[uint8]game.Tile)
	for _, pl := range players {
		for _, t := range pl.Hand.Tiles() {
			kinds[t.TypeKey()] = t
		}
	}
	if len(kinds) == 0 {
		return true
	}
	if b.IsEmpty() {
		return false
	}

	candidates := make(map[game.Coord]struct{})
	b.Each(func(c game.Coord, _ game.Tile) bool {
		for _, d := range [4]game.Coord{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
			n := game.Coord{X: c.X + d.X, Y: c.Y + d.Y}
			if n.InBounds() && !b.Occupied(n.X, n.Y) {
				candidates[n] = struct{}{}
			}
		}
		return true
	})
	for c := range candidates {
		for _, t := range kinds {
			if VerifyPlacement(game.Placement{Tile: t, X: c.X, Y: c.Y}, b) {
				return false
			}
		}
	}
	return true
}

// InHand reports whether tiles is a sub-multiset of the hand, compared by
// type key.
func InHand(h *game.Hand, tiles []game.Tile) bool {
	counts := make(map[uint8]int, game.HandSize)
	for _, t := range h.Tiles() {
		counts[t.TypeKey()]++
	}
	for _, t := range tiles {
		if t.IsZero() {
			return false
		}
		k := t.TypeKey()
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}

// ValidDiscard reports whether discard is 1..HandSize tiles the player
// actually holds.
func ValidDiscard(h *game.Hand, discard []game.Tile) bool {
	if len(discard) < 1 || len(discard) > game.HandSize {
		return false
	}
	return InHand(h, discard)
}

// Winners returns the seats holding the highest score. Ties share the win.
func Winners(scores []int) []int {
	if len(scores) == 0 {
		return nil
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s > best {
			best = s
		}
	}
	var out []int
	for i, s := range scores {
		if s == best {
			out = append(out, i)
		}
	}
	return out
}
