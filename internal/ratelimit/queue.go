// Package ratelimit serializes calls to a rate-sensitive upstream so that
// no two executions start closer together than a minimum interval.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultMinInterval keeps Nominatim usage safely above its 1 req/s
// policy.
const DefaultMinInterval = 1100 * time.Millisecond

// ErrClosed is returned by Do after the queue has been closed.
var ErrClosed = eris.New("ratelimit: queue closed")

// Queue executes submitted tasks strictly one at a time, in FIFO
// submission order, with at least the configured interval between the
// completion of one execution and the start of the next. A single worker
// goroutine drains the submissions; callers block cooperatively until
// their turn.
type Queue struct {
	interval time.Duration
	tasks    chan *task
	quit     chan struct{}
	once     sync.Once
}

type task struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

// NewQueue starts a queue worker with the given minimum interval.
// A non-positive interval falls back to DefaultMinInterval.
func NewQueue(interval time.Duration) *Queue {
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	q := &Queue{
		interval: interval,
		tasks:    make(chan *task),
		quit:     make(chan struct{}),
	}
	go q.worker()
	return q
}

// Do submits fn and blocks until it has run or ctx is done. Tasks run in
// submission order; a caller whose context expires while queued gives up
// its slot without executing.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	t := &task{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case q.tasks <- t:
	case <-q.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-t.result:
		return err
	case <-ctx.Done():
		// The worker may still execute the task; abandoning the wait does
		// not preempt an execution already committed to.
		return ctx.Err()
	}
}

// Close stops the worker. Queued tasks that have not started are
// abandoned with ErrClosed.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.quit) })
}

// worker drains submissions one at a time, spacing executions by the
// minimum interval measured from the previous execution's completion.
func (q *Queue) worker() {
	var lastDone time.Time

	for {
		var t *task
		select {
		case <-q.quit:
			return
		case t = <-q.tasks:
		}

		if !lastDone.IsZero() {
			if wait := q.interval - time.Since(lastDone); wait > 0 {
				zap.L().Debug("ratelimit: throttling request",
					zap.Duration("wait", wait),
				)
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-t.ctx.Done():
					timer.Stop()
					t.result <- t.ctx.Err()
					continue
				case <-q.quit:
					timer.Stop()
					t.result <- ErrClosed
					return
				}
			}
		}

		if err := t.ctx.Err(); err != nil {
			t.result <- err
			continue
		}

		err := t.fn(t.ctx)
		lastDone = time.Now()
		t.result <- err
	}
}
