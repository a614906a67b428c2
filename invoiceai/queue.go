package invoiceai

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CallQueue serializes every call to the rate-limited model endpoint.
// Calls dispatch strictly FIFO, one in flight, with at least minDelay
// between the start of one call and the start of the next. The external API
// enforces a hard requests-per-minute cap, so exactly one instance must be
// constructed at the composition root and shared by every caller.
type CallQueue struct {
	minDelay time.Duration
	calls    chan *queuedCall
	done     chan struct{}
	stopOnce sync.Once
	logger   *logrus.Logger

	mu           sync.Mutex
	pending      int
	lastDispatch time.Time
}

type queuedCall struct {
	ctx    context.Context
	fn     func(ctx context.Context) (string, error)
	result chan callResult
}

type callResult struct {
	text string
	err  error
}

func NewCallQueue(minDelay time.Duration, logger *logrus.Logger) *CallQueue {
	q := &CallQueue{
		minDelay: minDelay,
		calls:    make(chan *queuedCall, 256),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go q.drain()
	return q
}

// Enqueue submits fn and blocks until it has run (or ctx is done while
// still queued). A failing call rejects only its own caller; the queue
// keeps draining. No retry: retry policy belongs to the caller.
func (q *CallQueue) Enqueue(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	call := &queuedCall{ctx: ctx, fn: fn, result: make(chan callResult, 1)}

	q.mu.Lock()
	q.pending++
	q.mu.Unlock()

	select {
	case q.calls <- call:
	case <-ctx.Done():
		q.decrement()
		return "", ctx.Err()
	case <-q.done:
		q.decrement()
		return "", context.Canceled
	}

	select {
	case res := <-call.result:
		return res.text, res.err
	case <-ctx.Done():
		// The drain loop notices the dead context before dispatching.
		return "", ctx.Err()
	}
}

// Pending reports queued plus in-flight calls.
func (q *CallQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

func (q *CallQueue) Close() {
	q.stopOnce.Do(func() { close(q.done) })
}

func (q *CallQueue) drain() {
	for {
		select {
		case <-q.done:
			return
		case call := <-q.calls:
			q.dispatch(call)
		}
	}
}

func (q *CallQueue) dispatch(call *queuedCall) {
	defer q.decrement()

	q.mu.Lock()
	last := q.lastDispatch
	q.mu.Unlock()

	if !last.IsZero() {
		if wait := q.minDelay - time.Since(last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-q.done:
				timer.Stop()
				call.result <- callResult{err: context.Canceled}
				return
			}
		}
	}

	if err := call.ctx.Err(); err != nil {
		call.result <- callResult{err: err}
		return
	}

	q.mu.Lock()
	q.lastDispatch = time.Now()
	q.mu.Unlock()

	text, err := call.fn(call.ctx)
	if err != nil && q.logger != nil {
		q.logger.WithField("module", "invoiceai").WithError(err).Warn("queued model call failed")
	}
	call.result <- callResult{text: text, err: err}
}

func (q *CallQueue) decrement() {
	q.mu.Lock()
	q.pending--
	q.mu.Unlock()
}
