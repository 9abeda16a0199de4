// Package obs provides the client's event pipeline: a non-blocking channel
// through which the rpc layer reports retries, scan resumptions, pool
// expansion failures and similar noteworthy occurrences without slowing down
// the calling goroutine.
//
// The package focuses on:
//   - Never blocking or failing the emitting call path
//   - Decoupling event production from logging and metrics
//   - Counting every event kind as a Prometheus-compatible metric
//
// Key Components:
//
//   - Event/EventKind: One observable occurrence and its classification.
//
//   - Observer: Accepts events from any number of goroutines via Emit and
//     drains them on a single consumer goroutine, which logs each event and
//     increments its metrics counter (drow_obs_events_total). A nil Observer
//     is valid and discards everything.
//
//   - eventQueue: Lock-free unbounded multi-producer single-consumer queue
//     buffering events between producers and the drain goroutine.
//
// Thread Safety:
//
//	Emit is safe for concurrent use. Close waits until all previously
//	emitted events are drained.
package obs
