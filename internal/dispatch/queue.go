package dispatch

import (
	"context"
	"sync"
)

// callerQueue serializes inputs for a single caller. Enqueued lines run
// strictly in arrival order with exactly one in flight; the drain
// goroutine exists only while work is pending.
type callerQueue struct {
	mu      sync.Mutex
	pending []queuedInput
	running bool
	dropped bool

	process func(ctx context.Context, input string)
}

type queuedInput struct {
	ctx   context.Context
	input string
}

func newCallerQueue(process func(ctx context.Context, input string)) *callerQueue {
	return &callerQueue{process: process}
}

func (q *callerQueue) enqueue(ctx context.Context, input string) {
	q.mu.Lock()
	if q.dropped {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, queuedInput{ctx: ctx, input: input})
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	go q.drain()
}

func (q *callerQueue) drain() {
	for {
		q.mu.Lock()
		if q.dropped || len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		if next.ctx.Err() != nil {
			continue
		}
		q.process(next.ctx, next.input)
	}
}

// drop discards queued input and refuses new work. Used on disconnect.
func (q *callerQueue) drop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dropped = true
	q.pending = nil
}
