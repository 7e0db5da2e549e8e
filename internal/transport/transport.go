// internal/transport/transport.go
//
// TCP transport for game clients.
// Responsibilities:
//   - Bind the game port and accept exactly N players, then stop accepting.
//   - Per connection: read newline-framed JSON, decode it and push a
//     session.Request onto the shared queue (Listen).
//   - Write ServerResponses back to the client (Send).
//   - Close politely: half-close the write side, drain until the peer
//     hangs up (bounded), then close the socket.
//
// Reads use a short deadline so Listen notices cancellation promptly even
// while a client is idle.

package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/qwirkle/server/internal/protocol"
	"github.com/robalobadob/qwirkle/server/internal/session"
)

// Options tunes socket timing.
type Options struct {
	ReadPoll     time.Duration // read deadline per poll
	DrainTimeout time.Duration // upper bound on draining during Close
	WriteTimeout time.Duration // deadline for one Send
	MaxFrame     int           // largest accepted frame in bytes
}

// DefaultOptions returns the timings used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		ReadPoll:     100 * time.Millisecond,
		DrainTimeout: 2 * time.Second,
		WriteTimeout: 5 * time.Second,
		MaxFrame:     1 << 20,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ReadPoll <= 0 {
		o.ReadPoll = d.ReadPoll
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = d.DrainTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.MaxFrame <= 0 {
		o.MaxFrame = d.MaxFrame
	}
	return o
}

// ErrFrameTooLarge is reported, wrapped in protocol.ErrMalformed, when a
// client sends a line over MaxFrame.
var ErrFrameTooLarge = errors.New("frame too large")

// Listener accepts game clients.
type Listener struct {
	ln   net.Listener
	opts Options
}

// Listen binds addr (e.g. ":12345", or "127.0.0.1:0" in tests).
func Listen(addr string, opts Options) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Listener{ln: ln, opts: opts.withDefaults()}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Accept waits for exactly n clients, assigning seats in arrival order,
// and then closes the listening socket. On error or cancellation every
// connection accepted so far is closed.
func (l *Listener) Accept(ctx context.Context, n int) ([]*Conn, error) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = l.ln.Close()
		case <-stop:
		}
	}()
	defer l.ln.Close()

	conns := make([]*Conn, 0, n)
	for len(conns) < n {
		nc, err := l.ln.Accept()
		if err != nil {
			for _, c := range conns {
				_ = c.Close()
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("accept: %w", err)
		}
		c := newConn(len(conns), nc, l.opts)
		c.log.Info().Int("waiting", n-len(conns)-1).Msg("player connected")
		conns = append(conns, c)
	}
	log.Info().Int("players", n).Msg("all players connected")
	return conns, nil
}

// Conn is one player's connection.
type Conn struct {
	seat int
	nc   net.Conn
	r    *bufio.Reader
	opts Options
	log  zerolog.Logger

	wmu       sync.Mutex // serialises writes
	closeOnce sync.Once
	closeErr  error
}

func newConn(seat int, nc net.Conn, opts Options) *Conn {
	return &Conn{
		seat: seat,
		nc:   nc,
		r:    bufio.NewReader(nc),
		opts: opts,
		log: log.With().
			Int("seat", seat).
			Str("remote", nc.RemoteAddr().String()).
			Logger(),
	}
}

// Seat returns the seat index assigned at accept time.
func (c *Conn) Seat() int { return c.seat }

// Listen reads frames until ctx is done or the connection fails. Every
// frame becomes a Request on q; a decode failure is pushed with Err set so
// the controller can reject it in order. A frame over MaxFrame is dropped
// up to its newline and reported the same way. A read failure is pushed as
// a connection fault and also returned.
func (c *Conn) Listen(ctx context.Context, q *session.Queue) error {
	var pending []byte
	oversized := false
	for {
		if ctx.Err() != nil {
			return nil
		}
		_ = c.nc.SetReadDeadline(time.Now().Add(c.opts.ReadPoll))
		chunk, err := c.r.ReadSlice('\n')
		if !oversized {
			pending = append(pending, chunk...)
			if len(pending) > c.opts.MaxFrame {
				pending, oversized = nil, true
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			fault := fmt.Errorf("%w: seat %d: %v", session.ErrConnectionFault, c.seat, err)
			c.log.Error().Err(err).Msg("read failed")
			_ = q.Push(ctx, session.Request{Seat: c.seat, At: time.Now(), Err: fault})
			return fault
		}

		var (
			msg  protocol.Message
			derr error
		)
		if oversized {
			oversized = false
			derr = fmt.Errorf("%w: %w", protocol.ErrMalformed, ErrFrameTooLarge)
		} else {
			frame := pending
			pending = nil
			if len(bytes.TrimSpace(frame)) == 0 {
				continue
			}
			msg, derr = protocol.Decode(frame)
		}
		if derr != nil {
			c.log.Debug().Err(derr).Msg("bad frame")
		}
		if err := q.Push(ctx, session.Request{Seat: c.seat, At: time.Now(), Msg: msg, Err: derr}); err != nil {
			return nil
		}
	}
}

// Send writes one response frame.
func (c *Conn) Send(resp *protocol.ServerResponse) error {
	b, err := protocol.Encode(resp)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.nc.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if _, err := c.nc.Write(b); err != nil {
		return fmt.Errorf("write seat %d: %w", c.seat, err)
	}
	return nil
}

// Close half-closes the connection, drains anything the client still
// sends until it closes its side or the drain timeout passes, and then
// releases the socket. Listen must have returned before Close is called.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		if cw, ok := c.nc.(interface{ CloseWrite() error }); ok {
			_ = cw.CloseWrite()
		}
		c.wmu.Unlock()
		_ = c.nc.SetReadDeadline(time.Now().Add(c.opts.DrainTimeout))
		n, _ := io.Copy(io.Discard, c.r)
		c.closeErr = c.nc.Close()
		c.log.Debug().Int64("drained", n).Msg("connection closed")
	})
	return c.closeErr
}

// CloseAll closes every connection concurrently.
func CloseAll(conns []*Conn) {
	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			_ = c.Close()
		}(c)
	}
	wg.Wait()
}
