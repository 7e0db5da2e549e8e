package transport

import (
	"bufio"
	"context"
	"io"
	"math/rand/v2"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/qwirkle/server/internal/protocol"
	"github.com/robalobadob/qwirkle/server/internal/session"
	"github.com/robalobadob/qwirkle/server/internal/store"
)

type client struct {
	c net.Conn
	r *bufio.Reader
}

func (c *client) next(t *testing.T) *protocol.ServerResponse {
	t.Helper()
	_ = c.c.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.r.ReadBytes('\n')
	require.NoError(t, err)
	m, err := protocol.Decode(line)
	require.NoError(t, err)
	resp, ok := m.(*protocol.ServerResponse)
	require.True(t, ok)
	return resp
}

func (c *client) send(t *testing.T, req *protocol.ClientRequest) {
	t.Helper()
	b, err := protocol.Encode(req)
	require.NoError(t, err)
	_, err = c.c.Write(b)
	require.NoError(t, err)
}

// TestSessionOverTCP plays a discard, an out-of-turn request and a hangup
// through real sockets.
func TestSessionOverTCP(t *testing.T) {
	conns, raw := pair(t, 2)
	clients := make([]*client, len(raw))
	for i, c := range raw {
		clients[i] = &client{c: c, r: bufio.NewReader(c)}
	}

	q := session.NewQueue(8)
	peers := make([]session.Peer, len(conns))
	for i, c := range conns {
		peers[i] = c
	}
	results := store.NewMemoryStore()
	sess, err := session.New(peers, q,
		session.WithRand(rand.New(rand.NewPCG(3, 4))),
		session.WithStore(results),
		session.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			_ = c.Listen(ctx, q)
		}(c)
	}
	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx) }()

	open0 := clients[0].next(t)
	open1 := clients[1].next(t)
	assert.True(t, open0.Flags.Has(protocol.FlagValid|protocol.FlagFirst|protocol.FlagStartTurn))
	assert.False(t, open1.Flags.Has(protocol.FlagStartTurn))
	assert.Equal(t, 1, open1.UserID)

	// Seat 1 jumps the queue: only seat 1 hears back.
	clients[1].send(t, &protocol.ClientRequest{Type: protocol.RequestDiscard, Tiles: open1.Hand.Tiles()[:1]})
	resync := clients[1].next(t)
	assert.False(t, resync.Flags.Has(protocol.FlagValid))
	assert.Equal(t, open1.Hand, resync.Hand)

	// Seat 0 discards; both seats get the new state.
	clients[0].send(t, &protocol.ClientRequest{Type: protocol.RequestDiscard, Tiles: open0.Hand.Tiles()[:2]})
	after0 := clients[0].next(t)
	after1 := clients[1].next(t)
	assert.True(t, after0.Flags.Has(protocol.FlagValid))
	assert.False(t, after0.Flags.Has(protocol.FlagStartTurn))
	assert.True(t, after1.Flags.Has(protocol.FlagValid|protocol.FlagStartTurn))
	assert.Equal(t, 6, after0.Hand.Count())

	// Seat 1 drops; the session ends with a fault.
	require.NoError(t, raw[1].Close())
	select {
	case err := <-runErr:
		assert.ErrorIs(t, err, session.ErrConnectionFault)
	case <-time.After(3 * time.Second):
		t.Fatal("session did not end")
	}

	cancel()
	wg.Wait()
	CloseAll(conns)

	// Seat 0 sees the server hang up.
	_ = raw[0].SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadAll(clients[0].r)
	assert.NoError(t, err)

	res, err := results.Get(context.Background(), sess.ID())
	require.NoError(t, err)
	assert.Equal(t, session.ReasonConnectionFault, res.Reason)
	assert.Equal(t, 1, res.Turns)
}
