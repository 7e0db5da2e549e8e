// internal/protocol/messages.go
//
// Wire messages exchanged between clients and the server.
// Defines:
//   - Kind: the "type" discriminator carried by every JSON object.
//   - Tile, Placement, Board: wire forms of the game model.
//   - ClientRequest: a discard or placement request from a player.
//   - ServerResponse: the personalised state snapshot sent to a player.
//
// Every message implements Message so a single decoder can hand back the
// right variant (see codec.go).

package protocol

import (
	"github.com/robalobadob/qwirkle/server/internal/game"
)

// Kind is the value of the "type" discriminator.
type Kind string

const (
	KindTile      Kind = "tile"
	KindPlacement Kind = "placement"
	KindBoard     Kind = "board"
	KindRequest   Kind = "request"
	KindResponse  Kind = "response"
)

// Message is the closed set of wire variants.
type Message interface {
	Kind() Kind
}

// RequestType selects what a ClientRequest carries.
type RequestType string

const (
	RequestDiscard   RequestType = "discard"
	RequestPlacement RequestType = "placement"
)

// Flag is the ServerResponse bitmask.
type Flag uint8

const (
	FlagValid     Flag = 1 << iota // request accepted / state is authoritative
	FlagFirst                      // no points scored yet
	FlagStartTurn                  // recipient should act now
	FlagGameOver                   // session ended
	FlagWinner                     // recipient won; only set with FlagGameOver
)

// Has reports whether every bit of want is set.
func (f Flag) Has(want Flag) bool { return f&want == want }

// Tile is the wire form of game.Tile.
type Tile struct {
	game.Tile
}

// Placement is the wire form of game.Placement.
type Placement struct {
	game.Placement
}

// Board is the wire form of game.Board. Only occupied cells are sent.
type Board struct {
	*game.Board
}

// ClientRequest asks the server to discard tiles or place a move.
// Exactly one of Tiles (discard) or Placements (placement) is used.
type ClientRequest struct {
	Type       RequestType
	Tiles      []game.Tile
	Placements []game.Placement
}

// ServerResponse is one player's view of the authoritative state.
// Hand contains only the recipient's own tiles.
type ServerResponse struct {
	Flags  Flag
	Hand   game.Hand
	Board  *game.Board
	UserID int
	Scores []int
}

func (Tile) Kind() Kind { return KindTile }
func (Placement) Kind() Kind { return KindPlacement }
func (Board) Kind() Kind { return KindBoard }
func (*ClientRequest) Kind() Kind { return KindRequest }
func (*ServerResponse) Kind() Kind { return KindResponse }
