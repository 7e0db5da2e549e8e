// internal/session/session.go
//
// The turn controller.
// Responsibilities:
//   - Deal hands and announce the opening state (Start).
//   - Pop requests off the shared queue one at a time (Run) and apply them
//     to the board, bag and players (Handle).
//   - Reject out-of-turn, malformed and illegal requests by resending the
//     requester's current state; the turn does not move.
//   - Broadcast a personalised ServerResponse to every seat after each
//     accepted request.
//   - Detect the end of the game, persist the result and publish status.
//
// All game state is owned by the goroutine calling Run/Handle. Nothing
// here is safe for concurrent use except the Tracker it publishes to.

package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/qwirkle/server/internal/game"
	"github.com/robalobadob/qwirkle/server/internal/protocol"
	"github.com/robalobadob/qwirkle/server/internal/rules"
	"github.com/robalobadob/qwirkle/server/internal/store"
)

// End reasons recorded in store.Result.Reason and Status.Reason.
const (
	ReasonGameOver        = "game_over"
	ReasonConnectionFault = "connection_fault"
	ReasonCanceled        = "canceled"
)

var (
	// ErrNoPlayers is returned by New when no peers are given.
	ErrNoPlayers = errors.New("session needs at least one player")
	// ErrEnded is returned when a request arrives after the session ended.
	ErrEnded = errors.New("session ended")
)

// Peer is the outbound half of a player connection.
type Peer interface {
	Send(resp *protocol.ServerResponse) error
}

// Session is one game from deal to end.
type Session struct {
	id      string
	peers   []Peer
	players []*game.Player
	board   *game.Board
	bag     *game.Bag
	queue   *Queue

	turn    int
	turns   int
	started bool
	active  bool
	reason  string

	startedAt time.Time
	endedAt   time.Time

	rng     *rand.Rand
	store   store.Store
	tracker *Tracker
	log     zerolog.Logger
	now     func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithRand sets the bag's random source (tests use a seeded one).
func WithRand(rng *rand.Rand) Option { return func(s *Session) { s.rng = rng } }

// WithStore persists the result to st when the session ends.
func WithStore(st store.Store) Option { return func(s *Session) { s.store = st } }

// WithTracker publishes status snapshots to t.
func WithTracker(t *Tracker) Option { return func(s *Session) { s.tracker = t } }

// WithLogger replaces the global logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Session) { s.log = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// New creates a session for the given seats. Turn order is peer order.
// Hands are dealt by Start.
func New(peers []Peer, q *Queue, opts ...Option) (*Session, error) {
	if len(peers) == 0 {
		return nil, ErrNoPlayers
	}
	s := &Session{
		id:     uuid.NewString(),
		peers:  peers,
		board:  game.NewBoard(),
		queue:  q,
		active: true,
		log:    log.Logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.bag = game.NewBag(s.rng)
	s.players = make([]*game.Player, len(peers))
	for i := range s.players {
		s.players[i] = game.NewPlayer()
	}
	s.log = s.log.With().Str("session", s.id).Logger()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Active reports whether the session still accepts requests.
func (s *Session) Active() bool { return s.active }

// Turn returns the seat whose turn it is.
func (s *Session) Turn() int { return s.turn }

// Reason returns why the session ended, or "" while active.
func (s *Session) Reason() string { return s.reason }

// Board returns the live board. Callers must not modify it.
func (s *Session) Board() *game.Board { return s.board }

// Player returns the player at seat.
func (s *Session) Player(seat int) *game.Player { return s.players[seat] }

// Scores returns every seat's score in seat order.
func (s *Session) Scores() []int {
	out := make([]int, len(s.players))
	for i, p := range s.players {
		out[i] = p.Score()
	}
	return out
}

// Start deals a full hand to every seat and broadcasts the opening state.
func (s *Session) Start(ctx context.Context) error {
	if s.started {
		return nil
	}
	s.started = true
	s.startedAt = s.now().UTC()
	for _, p := range s.players {
		p.Hand.Fill(s.bag)
	}
	s.log.Info().Int("players", len(s.players)).Int("bag", s.bag.Len()).Msg("session started")
	return s.broadcast(ctx, false)
}

// Run starts the session if needed and handles queued requests until the
// game ends, ctx is done or a connection fault arrives. A fault is
// returned as an error wrapping ErrConnectionFault; cancellation returns
// ctx.Err().
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	for s.active {
		req, err := s.queue.Pop(ctx)
		if err != nil {
			s.end(ctx, ReasonCanceled)
			return err
		}
		if err := s.Handle(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// Handle applies one request. Rejections are not errors; only faults and
// broken invariants are returned.
func (s *Session) Handle(ctx context.Context, req Request) error {
	if !s.active {
		return ErrEnded
	}
	l := s.log.With().Int("seat", req.Seat).Logger()

	if req.Err != nil && errors.Is(req.Err, ErrConnectionFault) {
		l.Error().Err(req.Err).Msg("connection fault")
		s.end(ctx, ReasonConnectionFault)
		return req.Err
	}
	if req.Seat < 0 || req.Seat >= len(s.players) {
		l.Warn().Msg("request from unknown seat dropped")
		return nil
	}
	if req.Seat != s.turn {
		l.Warn().Int("turn", s.turn).Msg("out of turn")
		return s.resync(ctx, req.Seat, 0)
	}
	if req.Err != nil {
		l.Warn().Err(req.Err).Msg("undecodable request")
		return s.resync(ctx, req.Seat, protocol.FlagStartTurn)
	}
	cr, ok := req.Msg.(*protocol.ClientRequest)
	if !ok {
		l.Warn().Str("type", kindOf(req.Msg)).Msg("unexpected message")
		return s.resync(ctx, req.Seat, protocol.FlagStartTurn)
	}

	var accepted bool
	var err error
	switch cr.Type {
	case protocol.RequestDiscard:
		accepted = s.discard(req.Seat, cr.Tiles)
	case protocol.RequestPlacement:
		accepted, err = s.place(req.Seat, cr.Placements)
	}
	if err != nil {
		return err
	}
	if !accepted {
		l.Warn().Str("request", string(cr.Type)).Msg("rejected")
		return s.resync(ctx, req.Seat, protocol.FlagStartTurn)
	}
	l.Debug().Str("request", string(cr.Type)).Int("score", s.players[req.Seat].Score()).Msg("accepted")
	return s.advance(ctx)
}

// discard returns the tiles to the bag. The hand is refilled by advance.
func (s *Session) discard(seat int, tiles []game.Tile) bool {
	pl := s.players[seat]
	if !rules.ValidDiscard(&pl.Hand, tiles) {
		return false
	}
	for _, t := range tiles {
		if held, ok := pl.Hand.TakeKind(t.TypeKey()); ok {
			s.bag.Return(held)
		}
	}
	return true
}

// place validates, scores and commits a move.
func (s *Session) place(seat int, placements []game.Placement) (bool, error) {
	pl := s.players[seat]
	tiles := make([]game.Tile, len(placements))
	for i, p := range placements {
		tiles[i] = p.Tile
	}
	if len(placements) == 0 || !rules.InHand(&pl.Hand, tiles) {
		return false, nil
	}

	move := make(rules.Move, len(placements))
	for i, p := range placements {
		t, err := game.TileFromKey(p.Tile.TypeKey(), true)
		if err != nil {
			return false, nil
		}
		move[i] = game.Placement{Tile: t, X: p.X, Y: p.Y}
	}
	if !rules.VerifyMove(move, s.board) {
		return false, nil
	}

	pts := rules.ScoreMove(move, s.board)
	if err := pl.AddScore(pts); err != nil {
		return false, fmt.Errorf("seat %d: %w", seat, err)
	}
	for _, p := range move {
		pl.Hand.TakeKind(p.Tile.TypeKey())
		s.board.Put(game.Placement{Tile: p.Tile.Permanent(), X: p.X, Y: p.Y})
	}
	return true, nil
}

// advance refills the acting hand, checks for the end of the game and
// passes the turn on. The turn moves even on the final broadcast; nobody
// gets START_TURN once the game is over.
func (s *Session) advance(ctx context.Context) error {
	acting := s.players[s.turn]
	acting.Hand.Fill(s.bag)
	s.turns++

	over := false
	if s.bag.IsEmpty() {
		over = acting.Hand.Count() == 0 || rules.GameOver(s.players, s.board)
	}
	s.turn = (s.turn + 1) % len(s.players)
	if err := s.broadcast(ctx, over); err != nil {
		return err
	}
	if over {
		s.end(ctx, ReasonGameOver)
	}
	return nil
}

// broadcast sends every seat its view of the current state.
func (s *Session) broadcast(ctx context.Context, over bool) error {
	scores := s.Scores()
	var winners []int
	if over {
		winners = rules.Winners(scores)
	}
	for seat := range s.peers {
		flags := protocol.FlagValid | s.firstFlag(scores)
		if over {
			flags |= protocol.FlagGameOver
			if slices.Contains(winners, seat) {
				flags |= protocol.FlagWinner
			}
		} else if seat == s.turn {
			flags |= protocol.FlagStartTurn
		}
		if err := s.send(ctx, seat, flags, scores); err != nil {
			return err
		}
	}
	s.publish()
	return nil
}

// resync resends a seat its own unchanged state.
func (s *Session) resync(ctx context.Context, seat int, flags protocol.Flag) error {
	scores := s.Scores()
	return s.send(ctx, seat, flags|s.firstFlag(scores), scores)
}

func (s *Session) send(ctx context.Context, seat int, flags protocol.Flag, scores []int) error {
	resp := &protocol.ServerResponse{
		Flags:  flags,
		Hand:   s.players[seat].Hand,
		Board:  s.board.Clone(),
		UserID: seat,
		Scores: scores,
	}
	if err := s.peers[seat].Send(resp); err != nil {
		fault := fmt.Errorf("%w: send to seat %d: %v", ErrConnectionFault, seat, err)
		s.log.Error().Err(err).Int("seat", seat).Msg("send failed")
		s.end(ctx, ReasonConnectionFault)
		return fault
	}
	return nil
}

func (s *Session) firstFlag(scores []int) protocol.Flag {
	for _, sc := range scores {
		if sc != 0 {
			return 0
		}
	}
	return protocol.FlagFirst
}

// end marks the session finished, saves the result and publishes status.
func (s *Session) end(ctx context.Context, reason string) {
	if !s.active {
		return
	}
	s.active = false
	s.reason = reason
	s.endedAt = s.now().UTC()
	scores := s.Scores()
	s.log.Info().Str("reason", reason).Ints("scores", scores).Int("turns", s.turns).Msg("session ended")

	if s.store != nil {
		res := &store.Result{
			ID:        s.id,
			StartedAt: s.startedAt,
			EndedAt:   s.endedAt,
			Players:   len(s.players),
			Scores:    scores,
			Winners:   rules.Winners(scores),
			Turns:     s.turns,
			Reason:    reason,
		}
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.store.Save(saveCtx, res); err != nil {
			s.log.Error().Err(err).Msg("save result")
		}
	}
	s.publish()
}

// publish pushes a status snapshot to the tracker, if any.
func (s *Session) publish() {
	if s.tracker == nil {
		return
	}
	scores := s.Scores()
	state := StateActive
	if !s.active {
		state = StateEnded
	}
	s.tracker.Publish(Status{
		ID:         s.id,
		State:      state,
		Players:    len(s.players),
		Turn:       s.turn,
		Turns:      s.turns,
		Scores:     scores,
		BagCount:   s.bag.Len(),
		BoardTiles: s.board.Len(),
		First:      s.firstFlag(scores) != 0,
		Reason:     s.reason,
		StartedAt:  s.startedAt,
		UpdatedAt:  s.now().UTC(),
	})
}

func kindOf(m protocol.Message) string {
	if m == nil {
		return "none"
	}
	return string(m.Kind())
}
