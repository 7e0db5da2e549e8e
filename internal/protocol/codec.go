// internal/protocol/codec.go
//
// JSON encoding and tagged-union decoding of wire messages.
//
// Framing is one JSON object per line. Decode peeks at the "type" field
// and unmarshals into the matching variant; unknown types are rejected
// with ErrUnknownKind.

package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/robalobadob/qwirkle/server/internal/game"
)

var (
	// ErrUnknownKind is returned for a missing or unrecognised "type".
	ErrUnknownKind = errors.New("unknown message type")
	// ErrUnknownRequest is returned for a request_type other than discard/placement.
	ErrUnknownRequest = errors.New("unknown request type")
	// ErrMalformed is returned when a message's fields cannot be decoded.
	ErrMalformed = errors.New("malformed message")
)

type envelope struct {
	Type Kind `json:"type"`
}

// Decode parses one framed message into its concrete variant.
// Tile, Placement and Board come back as pointers.
func Decode(data []byte) (Message, error) {
	data = bytes.TrimSpace(data)
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var m interface {
		Message
		json.Unmarshaler
	}
	switch env.Type {
	case KindTile:
		m = &Tile{}
	case KindPlacement:
		m = &Placement{}
	case KindBoard:
		m = &Board{}
	case KindRequest:
		m = &ClientRequest{}
	case KindResponse:
		m = &ServerResponse{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode renders m as a single newline-terminated frame.
func Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// checkKind rejects an object whose "type" is present but wrong.
func checkKind(got, want Kind) error {
	if got != "" && got != want {
		return fmt.Errorf("%w: expected %q, got %q", ErrMalformed, want, got)
	}
	return nil
}

// ------------------------------- Tile --------------------------------------

type tileJSON struct {
	Type      Kind  `json:"type"`
	TileType  uint8 `json:"tile_type"`
	Temporary bool  `json:"temporary"`
}

func (t Tile) MarshalJSON() ([]byte, error) {
	return json.Marshal(tileJSON{Type: KindTile, TileType: t.TypeKey(), Temporary: t.Temporary})
}

func (t *Tile) UnmarshalJSON(data []byte) error {
	var raw tileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: tile: %v", ErrMalformed, err)
	}
	if err := checkKind(raw.Type, KindTile); err != nil {
		return err
	}
	tile, err := game.TileFromKey(raw.TileType, raw.Temporary)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	t.Tile = tile
	return nil
}

// ----------------------------- Placement -----------------------------------

type placementJSON struct {
	Type Kind   `json:"type"`
	Tile Tile   `json:"tile"`
	Pos  [2]int `json:"pos"`
}

func (p Placement) MarshalJSON() ([]byte, error) {
	return json.Marshal(placementJSON{
		Type: KindPlacement,
		Tile: Tile{p.Tile},
		Pos:  [2]int{p.X, p.Y},
	})
}

func (p *Placement) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type Kind            `json:"type"`
		Tile json.RawMessage `json:"tile"`
		Pos  []int           `json:"pos"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: placement: %v", ErrMalformed, err)
	}
	if err := checkKind(raw.Type, KindPlacement); err != nil {
		return err
	}
	if len(raw.Pos) != 2 {
		return fmt.Errorf("%w: placement pos needs 2 coordinates", ErrMalformed)
	}
	c := game.Coord{X: raw.Pos[0], Y: raw.Pos[1]}
	if !c.InBounds() {
		return fmt.Errorf("%w: placement (%d, %d) off the board", ErrMalformed, c.X, c.Y)
	}
	var t Tile
	if err := t.UnmarshalJSON(raw.Tile); err != nil {
		return err
	}
	p.Placement = game.Placement{Tile: t.Tile, X: c.X, Y: c.Y}
	return nil
}

// ------------------------------- Board -------------------------------------

// coordKey renders a coordinate the way boards are keyed on the wire.
func coordKey(c game.Coord) string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// parseCoordKey accepts "(x, y)" with optional whitespace.
func parseCoordKey(s string) (game.Coord, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return game.Coord{}, fmt.Errorf("%w: board key %q", ErrMalformed, s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return game.Coord{}, fmt.Errorf("%w: board key %q", ErrMalformed, s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return game.Coord{}, fmt.Errorf("%w: board key %q", ErrMalformed, s)
	}
	c := game.Coord{X: x, Y: y}
	if !c.InBounds() {
		return game.Coord{}, fmt.Errorf("%w: board key %q off the board", ErrMalformed, s)
	}
	return c, nil
}

func (b Board) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": KindBoard}
	if b.Board != nil {
		b.Each(func(c game.Coord, t game.Tile) bool {
			out[coordKey(c)] = Tile{t}
			return true
		})
	}
	return json.Marshal(out)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: board: %v", ErrMalformed, err)
	}
	board := game.NewBoard()
	for key, val := range raw {
		if key == "type" {
			var k Kind
			if err := json.Unmarshal(val, &k); err != nil {
				return fmt.Errorf("%w: board type: %v", ErrMalformed, err)
			}
			if err := checkKind(k, KindBoard); err != nil {
				return err
			}
			continue
		}
		c, err := parseCoordKey(key)
		if err != nil {
			return err
		}
		var t Tile
		if err := t.UnmarshalJSON(val); err != nil {
			return err
		}
		board.Put(game.Placement{Tile: t.Tile, X: c.X, Y: c.Y})
	}
	b.Board = board
	return nil
}

// --------------------------- ClientRequest ---------------------------------

type requestJSON struct {
	Type        Kind              `json:"type"`
	RequestType RequestType       `json:"request_type"`
	Data        []json.RawMessage `json:"data"`
}

func (r ClientRequest) MarshalJSON() ([]byte, error) {
	out := requestJSON{Type: KindRequest, RequestType: r.Type, Data: []json.RawMessage{}}
	switch r.Type {
	case RequestDiscard:
		for _, t := range r.Tiles {
			b, err := json.Marshal(Tile{t})
			if err != nil {
				return nil, err
			}
			out.Data = append(out.Data, b)
		}
	case RequestPlacement:
		for _, p := range r.Placements {
			b, err := json.Marshal(Placement{p})
			if err != nil {
				return nil, err
			}
			out.Data = append(out.Data, b)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequest, r.Type)
	}
	return json.Marshal(out)
}

func (r *ClientRequest) UnmarshalJSON(data []byte) error {
	var raw requestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: request: %v", ErrMalformed, err)
	}
	if err := checkKind(raw.Type, KindRequest); err != nil {
		return err
	}
	req := ClientRequest{Type: raw.RequestType}
	switch raw.RequestType {
	case RequestDiscard:
		for _, item := range raw.Data {
			var t Tile
			if err := t.UnmarshalJSON(item); err != nil {
				return err
			}
			req.Tiles = append(req.Tiles, t.Tile)
		}
	case RequestPlacement:
		for _, item := range raw.Data {
			var p Placement
			if err := p.UnmarshalJSON(item); err != nil {
				return err
			}
			req.Placements = append(req.Placements, p.Placement)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRequest, raw.RequestType)
	}
	*r = req
	return nil
}

// --------------------------- ServerResponse --------------------------------

type responseJSON struct {
	Type     Kind    `json:"type"`
	Flag     Flag    `json:"flag"`
	CurrHand []*Tile `json:"curr_hand"`
	Board    Board   `json:"curr_board"`
	UserID   int     `json:"user_id"`
	Scores   []int   `json:"scores"`
}

func (r ServerResponse) MarshalJSON() ([]byte, error) {
	out := responseJSON{
		Type:     KindResponse,
		Flag:     r.Flags,
		CurrHand: make([]*Tile, game.HandSize),
		Board:    Board{r.Board},
		UserID:   r.UserID,
		Scores:   r.Scores,
	}
	for i, t := range r.Hand {
		if !t.IsZero() {
			out.CurrHand[i] = &Tile{t}
		}
	}
	if out.Scores == nil {
		out.Scores = []int{}
	}
	return json.Marshal(out)
}

func (r *ServerResponse) UnmarshalJSON(data []byte) error {
	var raw responseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: response: %v", ErrMalformed, err)
	}
	if err := checkKind(raw.Type, KindResponse); err != nil {
		return err
	}
	if len(raw.CurrHand) > game.HandSize {
		return fmt.Errorf("%w: hand holds %d slots", ErrMalformed, len(raw.CurrHand))
	}
	resp := ServerResponse{
		Flags:  raw.Flag,
		Board:  raw.Board.Board,
		UserID: raw.UserID,
		Scores: raw.Scores,
	}
	for i, t := range raw.CurrHand {
		if t != nil {
			resp.Hand[i] = t.Tile
		}
	}
	if resp.Board == nil {
		resp.Board = game.NewBoard()
	}
	*r = resp
	return nil
}
