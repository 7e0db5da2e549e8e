// internal/game/types.go
//
// Core value types for the tile game.
// Defines:
//   - Color, Shape: the two attributes of a tile (6 values each).
//   - Tile: a colour/shape pair plus the temporary flag.
//   - Placement: a tile at a board coordinate.
//
// Colors occupy the low nibble and shapes the high nibble, so
// color XOR shape is a unique "type key" for each of the 36 kinds.

package game

import (
	"errors"
	"fmt"
)

// Color of a tile.
type Color uint8

const (
	Red    Color = 0x01
	Orange Color = 0x02
	Yellow Color = 0x03
	Green  Color = 0x04
	Blue   Color = 0x05
	Violet Color = 0x06
)

// Colors lists every tile colour in declaration order.
var Colors = [...]Color{Red, Orange, Yellow, Green, Blue, Violet}

// Shape of a tile.
type Shape uint8

const (
	Circle  Shape = 0x10
	Cross   Shape = 0x20
	Diamond Shape = 0x30
	Square  Shape = 0x40
	Star    Shape = 0x50
	Club    Shape = 0x60
)

// Shapes lists every tile shape in declaration order.
var Shapes = [...]Shape{Circle, Cross, Diamond, Square, Star, Club}

// ErrUnknownKind is returned when a type key does not map to a real tile.
var ErrUnknownKind = errors.New("unknown tile kind")

func (c Color) Valid() bool { return c >= Red && c <= Violet }
func (s Shape) Valid() bool { return s >= Circle && s <= Club && s&0x0f == 0 }

func (c Color) String() string {
	switch c {
	case Red:
		return "RED"
	case Orange:
		return "ORANGE"
	case Yellow:
		return "YELLOW"
	case Green:
		return "GREEN"
	case Blue:
		return "BLUE"
	case Violet:
		return "VIOLET"
	}
	return fmt.Sprintf("Color(%d)", uint8(c))
}

func (s Shape) String() string {
	switch s {
	case Circle:
		return "CIRCLE"
	case Cross:
		return "CROSS"
	case Diamond:
		return "DIAMOND"
	case Square:
		return "SQUARE"
	case Star:
		return "STAR"
	case Club:
		return "CLUB"
	}
	return fmt.Sprintf("Shape(%d)", uint8(s))
}

// Tile is a single game piece. The zero value is "no tile" and is used
// for empty hand slots.
//
// Two tiles are equal (==) only when colour, shape and the temporary flag
// all match; use SameKind/TypeKey to compare tiles regardless of the flag.
type Tile struct {
	Color     Color
	Shape     Shape
	Temporary bool
}

// NewTile returns a freshly drawn (temporary) tile.
func NewTile(c Color, s Shape) Tile {
	return Tile{Color: c, Shape: s, Temporary: true}
}

// TileFromKey rebuilds a tile from its type key.
func TileFromKey(key uint8, temporary bool) (Tile, error) {
	t := Tile{Color: Color(key & 0x0f), Shape: Shape(key & 0xf0), Temporary: temporary}
	if !t.Color.Valid() || !t.Shape.Valid() {
		return Tile{}, fmt.Errorf("%w: %#x", ErrUnknownKind, key)
	}
	return t, nil
}

// TypeKey identifies the tile's kind independent of its temporary flag.
func (t Tile) TypeKey() uint8 { return uint8(t.Color) ^ uint8(t.Shape) }

// IsZero reports whether t is the empty marker.
func (t Tile) IsZero() bool { return t.Color == 0 && t.Shape == 0 }

// SameKind reports whether both tiles have the same colour and shape.
func (t Tile) SameKind(o Tile) bool { return t.Color == o.Color && t.Shape == o.Shape }

// Permanent returns a copy of t with the temporary flag cleared.
func (t Tile) Permanent() Tile {
	t.Temporary = false
	return t
}

func (t Tile) String() string {
	if t.IsZero() {
		return "empty slot"
	}
	if t.Temporary {
		return fmt.Sprintf("Temporary %s %s tile", t.Color, t.Shape)
	}
	return fmt.Sprintf("%s %s tile", t.Color, t.Shape)
}

// Placement puts a tile at (X, Y). Placements are plain values and are
// never mutated after construction.
type Placement struct {
	Tile Tile
	X, Y int
}

func (p Placement) String() string {
	return fmt.Sprintf("%v at (%d, %d)", p.Tile, p.X, p.Y)
}
