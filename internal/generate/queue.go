package generate

import "sync/atomic"

// RecordQueue is the closed-channel MPMC work queue feeding RayCaster
// workers, replacing the ad-hoc flag-per-worker-plus-counter
// coordination of the original multiprocessing orchestrator: closing
// the channel after every record id has been posted *is* the
// "no more work" signal, with no separate done-flag needed.
type RecordQueue struct {
	records chan string
}

// NewRecordQueue returns a queue preloaded with records and already
// closed for reading — the producer side is just this constructor,
// since the full sample list is known up front (generate_data.py's
// _get_subsample runs once before any worker starts).
func NewRecordQueue(records []string) *RecordQueue {
	ch := make(chan string, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)
	return &RecordQueue{records: ch}
}

// Next pops the next record id, or returns ok=false once the queue is
// drained.
func (q *RecordQueue) Next() (string, bool) {
	r, ok := <-q.records
	return r, ok
}

// PayloadQueue is the bounded channel between RayCaster workers and
// DataGenerator workers. Close once every RayCaster worker has
// finished (tracked by the caller's sync.WaitGroup).
type PayloadQueue[T any] struct {
	items chan T
}

// NewPayloadQueue returns a PayloadQueue with the given buffer depth.
func NewPayloadQueue[T any](depth int) *PayloadQueue[T] {
	return &PayloadQueue[T]{items: make(chan T, depth)}
}

// Send posts one item onto the queue.
func (q *PayloadQueue[T]) Send(item T) { q.items <- item }

// Close closes the underlying channel. Call once, after every producer
// has stopped sending.
func (q *PayloadQueue[T]) Close() { close(q.items) }

// Receive pops the next item, or ok=false once the queue is drained
// and closed.
func (q *PayloadQueue[T]) Receive() (T, bool) {
	item, ok := <-q.items
	return item, ok
}

// Chan exposes the underlying channel for range-based consumption.
func (q *PayloadQueue[T]) Chan() <-chan T { return q.items }

// Progress is a shared completion counter polled by an orchestrator to
// log progress, replacing the original's per-worker shared-memory
// counters with a single sync/atomic value.
type Progress struct {
	completed atomic.Int64
	total     int64
}

// NewProgress returns a Progress tracker for a known total record count.
func NewProgress(total int) *Progress {
	return &Progress{total: int64(total)}
}

// Increment advances the completed count by one.
func (p *Progress) Increment() { p.completed.Add(1) }

// Completed and Total report the current progress.
func (p *Progress) Completed() int64 { return p.completed.Load() }
func (p *Progress) Total() int64     { return p.total }
