package event

import "sync"

// Queue is an unbounded FIFO delivering envelopes from any number of
// producers to a single consumer. Push never blocks: producers run in
// platform callback contexts that must return immediately, so the queue
// cannot apply backpressure the way a fixed-capacity channel would.
type Queue struct {
	mu      sync.Mutex
	items   []Envelope
	signal  chan struct{}
	closed  bool
	drained bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Push appends an envelope. Envelopes pushed after Close are dropped.
func (q *Queue) Push(e Envelope) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, e)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Pop blocks until an envelope is available or the queue is closed and
// drained. The second return is false once no more envelopes will come.
func (q *Queue) Pop() (Envelope, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return e, true
		}
		if q.closed {
			q.drained = true
			q.mu.Unlock()
			return Envelope{}, false
		}
		q.mu.Unlock()
		<-q.signal
	}
}

// TryPop returns the next envelope without blocking. The second return
// is false when the queue is currently empty.
func (q *Queue) TryPop() (Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Envelope{}, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, true
}

// Close stops the queue. Pending envelopes are still delivered; the
// consumer observes the close once the backlog drains.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Len reports the current backlog. Diagnostic only.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
