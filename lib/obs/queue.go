package obs

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// ----------------------------------------
// Lock-Free Event Queue
// ----------------------------------------

// qnode is a single element of the queue. Nodes are linked through an atomic
// next pointer so producers can append without taking a lock.
type qnode struct {
	event *Event
	next  atomic.Pointer[qnode]
}

// eventQueue is an unbounded lock-free multi-producer single-consumer queue.
// Producers append via push, the single consumer goroutine forwards events to
// the out channel. The queue always contains a sentinel node: head points to
// the sentinel, head.next is the oldest undelivered event.
type eventQueue struct {
	head   atomic.Pointer[qnode]
	tail   atomic.Pointer[qnode]
	out    chan *Event
	closed atomic.Bool

	// mu and cond park the consumer while the queue is empty
	mu   sync.Mutex
	cond *sync.Cond
}

// newEventQueue creates the queue and starts its consumer goroutine.
func newEventQueue() *eventQueue {
	q := &eventQueue{
		out: make(chan *Event),
	}
	sentinel := &qnode{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	q.cond = sync.NewCond(&q.mu)

	go q.consume()

	return q
}

// push appends an event. It never blocks and returns false once the queue is
// closed. Safe for concurrent use by any number of goroutines.
func (q *eventQueue) push(e *Event) bool {
	if q.closed.Load() {
		return false
	}

	n := &qnode{event: e}

	backoff := 1
	for {
		tail := q.tail.Load()
		next := tail.next.Load()

		if next == nil {
			// Tail is the real last node, try to link the new one
			if tail.next.CompareAndSwap(nil, n) {
				// Swing tail forward, losing the race here is fine because
				// the next producer will help via the else branch below
				q.tail.CompareAndSwap(tail, n)

				// Wake the consumer in case it is parked
				q.mu.Lock()
				q.cond.Signal()
				q.mu.Unlock()
				return true
			}
		} else {
			// Tail is lagging behind, help move it forward
			q.tail.CompareAndSwap(tail, next)
		}

		// Contention, back off exponentially before retrying
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < 16 {
			backoff <<= 1
		}
	}
}

// pop removes the oldest event. Only the consumer goroutine may call this.
func (q *eventQueue) pop() (*Event, bool) {
	head := q.head.Load()
	next := head.next.Load()
	if next == nil {
		return nil, false
	}

	// The old first node becomes the new sentinel
	q.head.Store(next)
	e := next.event
	next.event = nil
	return e, true
}

// recv returns the channel on which the consumer delivers events. The channel
// is closed after close() once every remaining event has been delivered.
func (q *eventQueue) recv() <-chan *Event {
	return q.out
}

// close stops the queue. Events already pushed are still delivered, further
// pushes are rejected.
func (q *eventQueue) close() {
	q.closed.Store(true)

	// Wake the consumer so it can run its final sweep
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// consume moves events from the linked list to the out channel. Runs as a
// dedicated goroutine owned by the queue.
func (q *eventQueue) consume() {
	defer close(q.out)

	for {
		if e, ok := q.pop(); ok {
			q.out <- e
			continue
		}

		if q.closed.Load() {
			// Final sweep so events pushed concurrently with close are not
			// lost
			for {
				e, ok := q.pop()
				if !ok {
					return
				}
				q.out <- e
			}
		}

		// Park until a producer signals. The re-check under the lock keeps a
		// signal sent between the failed pop and the wait from being lost.
		q.mu.Lock()
		if q.head.Load().next.Load() == nil && !q.closed.Load() {
			q.cond.Wait()
		}
		q.mu.Unlock()
	}
}
