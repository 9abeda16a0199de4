package obs

import (
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger is the logger instance used by the observer
var Logger = logger.GetLogger("obs")

// ----------------------------------------
// Events
// ----------------------------------------

// EventKind classifies an observable occurrence in the client
type EventKind uint8

const (
	// KindRetryScheduled is emitted when a failed attempt will be retried
	KindRetryScheduled EventKind = iota
	// KindRetryBlocked is emitted when a transient failure could not be
	// retried because the operation is not idempotent
	KindRetryBlocked
	// KindRetriesExhausted is emitted when the retry budget ran out
	KindRetriesExhausted
	// KindScanResumed is emitted when a broken scan stream is reissued
	KindScanResumed
	// KindScanTimeout is emitted when a scan attempt timed out mid stream
	KindScanTimeout
	// KindStreamCancelled is emitted when a caller abandons an open stream
	KindStreamCancelled
	// KindPoolExpansionFailed is emitted when growing the connection pool
	// in the background did not succeed
	KindPoolExpansionFailed
)

// String returns the snake_case name used in logs and metric labels
func (k EventKind) String() string {
	switch k {
	case KindRetryScheduled:
		return "retry_scheduled"
	case KindRetryBlocked:
		return "retry_blocked"
	case KindRetriesExhausted:
		return "retries_exhausted"
	case KindScanResumed:
		return "scan_resumed"
	case KindScanTimeout:
		return "scan_timeout"
	case KindStreamCancelled:
		return "stream_cancelled"
	case KindPoolExpansionFailed:
		return "pool_expansion_failed"
	default:
		return "unknown"
	}
}

// Event is one observable occurrence. Method names the RPC it belongs to and
// may be empty for events not tied to a single call.
type Event struct {
	Kind   EventKind
	Method string
	Detail string
	Err    error
}

// ----------------------------------------
// Observer
// ----------------------------------------

// Observer collects events from the rpc layer. Emit never blocks, events are
// buffered in a lock-free queue and processed by a single drain goroutine
// that logs them and increments their metrics counters.
//
// A nil Observer is valid, it silently discards all events.
type Observer struct {
	queue *eventQueue
	done  sync.WaitGroup
}

// NewObserver creates an observer and starts its drain goroutine.
func NewObserver() *Observer {
	o := &Observer{
		queue: newEventQueue(),
	}
	o.done.Add(1)
	go o.drain()
	return o
}

// Emit hands an event to the observer. Never blocks, safe for concurrent use
// and safe on a nil receiver. Events emitted after Close are dropped and
// counted in drow_obs_events_dropped_total.
func (o *Observer) Emit(e Event) {
	if o == nil {
		return
	}
	if !o.queue.push(&e) {
		metrics.GetOrCreateCounter("drow_obs_events_dropped_total").Inc()
	}
}

// Close stops the observer and waits until all previously emitted events
// have been logged and counted. Safe on a nil receiver.
func (o *Observer) Close() {
	if o == nil {
		return
	}
	o.queue.close()
	o.done.Wait()
}

// drain is the single consumer of the event queue
func (o *Observer) drain() {
	defer o.done.Done()

	for e := range o.queue.recv() {
		metrics.GetOrCreateCounter(fmt.Sprintf(`drow_obs_events_total{kind=%q}`, e.Kind)).Inc()

		switch {
		case e.Err != nil && e.Method != "":
			Logger.Warningf("%s (%s): %s: %v", e.Kind, e.Method, e.Detail, e.Err)
		case e.Err != nil:
			Logger.Warningf("%s: %s: %v", e.Kind, e.Detail, e.Err)
		case e.Method != "":
			Logger.Infof("%s (%s): %s", e.Kind, e.Method, e.Detail)
		default:
			Logger.Infof("%s: %s", e.Kind, e.Detail)
		}
	}
}
