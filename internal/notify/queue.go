package notify

import (
	"sync"
	"time"
)

// Queue is a thread-safe FIFO of notification records.
//
// The queue is unbounded so a burst of notifications for one keystroke never
// blocks the delivery context. Producers may call Enqueue from any goroutine;
// a single consumer drains with TryDequeue.
//
// The queue uses a channel for signaling so a consumer can wait for records
// with a select alongside ctx.Done().
type Queue struct {
	mu      sync.Mutex
	records []Record
	closed  bool
	signal  chan struct{} // Signals record availability (buffered, size 1)

	total int       // records ever accepted
	last  time.Time // arrival time of the most recent accepted record
	now   func() time.Time
}

// NewQueue creates a queue pre-filled with records, in order.
func NewQueue(records ...Record) *Queue {
	q := &Queue{
		records: make([]Record, 0, max(len(records), 64)),
		signal:  make(chan struct{}, 1),
		now:     time.Now,
	}
	for _, r := range records {
		q.Enqueue(r)
	}
	return q
}

// Enqueue appends a record to the back of the queue.
// Safe for concurrent use. Returns false if the queue is closed, in which
// case the record is dropped whole.
func (q *Queue) Enqueue(r Record) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.records = append(q.records, r)
	q.total++
	q.last = q.now()

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front record without blocking.
// Returns (Record{}, false) if the queue is empty. Records remaining in a
// closed queue can still be dequeued.
func (q *Queue) TryDequeue() (Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.records) == 0 {
		return Record{}, false
	}

	r := q.records[0]
	if len(q.records) == 1 {
		q.records = q.records[:0]
	} else {
		q.records = q.records[1:]
	}
	return r, true
}

// Drain removes and returns every queued record in FIFO order.
func (q *Queue) Drain() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Record, len(q.records))
	copy(out, q.records)
	q.records = q.records[:0]
	return out
}

// Wait returns a channel that signals when records may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *Queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of records currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Total returns how many records the queue has ever accepted. It only grows,
// so callers can use it as a watermark.
func (q *Queue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}

// LastArrival returns when the most recent record was accepted.
// The zero time means nothing has arrived yet.
func (q *Queue) LastArrival() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last
}

// Close stops the queue from accepting records and wakes any waiters.
// Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
