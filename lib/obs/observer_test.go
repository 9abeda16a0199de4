package obs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/VictoriaMetrics/metrics"
)

func kindCounter(k EventKind) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`drow_obs_events_total{kind=%q}`, k))
}

func TestObserverCountsEvents(t *testing.T) {
	before := kindCounter(KindScanResumed).Get()

	o := NewObserver()
	const count = 25
	for i := 0; i < count; i++ {
		o.Emit(Event{
			Kind:   KindScanResumed,
			Method: "ReadRows",
			Detail: fmt.Sprintf("restart %d", i),
			Err:    errors.New("connection lost"),
		})
	}

	// Close waits for the drain goroutine, afterwards every emitted event
	// must be reflected in the counter
	o.Close()

	got := kindCounter(KindScanResumed).Get() - before
	if got != count {
		t.Errorf("counter advanced by %d, want %d", got, count)
	}
}

func TestObserverDropsAfterClose(t *testing.T) {
	dropped := metrics.GetOrCreateCounter("drow_obs_events_dropped_total")
	before := dropped.Get()

	o := NewObserver()
	o.Close()
	o.Emit(Event{Kind: KindRetryScheduled, Detail: "too late"})

	if got := dropped.Get() - before; got != 1 {
		t.Errorf("dropped counter advanced by %d, want 1", got)
	}
}

func TestNilObserver(t *testing.T) {
	var o *Observer

	// Both must be no-ops on a nil receiver
	o.Emit(Event{Kind: KindRetriesExhausted, Detail: "ignored"})
	o.Close()
}

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{KindRetryScheduled, "retry_scheduled"},
		{KindRetryBlocked, "retry_blocked"},
		{KindRetriesExhausted, "retries_exhausted"},
		{KindScanResumed, "scan_resumed"},
		{KindScanTimeout, "scan_timeout"},
		{KindStreamCancelled, "stream_cancelled"},
		{KindPoolExpansionFailed, "pool_expansion_failed"},
		{EventKind(255), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("EventKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
