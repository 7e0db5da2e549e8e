// internal/session/queue.go
//
// The shared request queue: many connection listeners push, the session
// controller pops. Requests are handled strictly in queue order.

package session

import (
	"context"
	"errors"
	"time"

	"github.com/robalobadob/qwirkle/server/internal/protocol"
)

// ErrConnectionFault marks a request that reports a broken connection
// rather than a client message. It ends the session.
var ErrConnectionFault = errors.New("connection fault")

// Request is one item on the queue. Exactly one of Msg or Err is set.
// Err wrapping ErrConnectionFault is fatal; any other Err is a frame that
// could not be decoded.
type Request struct {
	Seat int
	At   time.Time
	Msg  protocol.Message
	Err  error
}

// Queue is a bounded multi-producer, single-consumer FIFO.
type Queue struct {
	ch chan Request
}

// DefaultQueueSize is used when NewQueue is given a non-positive size.
const DefaultQueueSize = 64

// NewQueue returns a queue holding up to size pending requests.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Request, size)}
}

// Push enqueues r, blocking while the queue is full. It gives up when ctx
// is done.
func (q *Queue) Push(ctx context.Context, r Request) error {
	select {
	case q.ch <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop blocks until a request is available or ctx is done.
func (q *Queue) Pop(ctx context.Context) (Request, error) {
	select {
	case r := <-q.ch:
		return r, nil
	case <-ctx.Done():
		return Request{}, ctx.Err()
	}
}

// Len returns the number of pending requests.
func (q *Queue) Len() int { return len(q.ch) }
