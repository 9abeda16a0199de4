package client

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
	"github.com/ValentinKolb/dRow/rpc/serializer"
	"github.com/ValentinKolb/dRow/rpc/transport"
)

// recordingCall is a transport.ICall that records credit grants and
// cancellation instead of talking to a server.
type recordingCall struct {
	mu        sync.Mutex
	grants    []uint32
	cancelled bool
}

func (c *recordingCall) Start(payload []byte, initialCredit uint32, listener transport.ICallListener) error {
	return nil
}

func (c *recordingCall) RequestMore(n uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grants = append(c.grants, n)
}

func (c *recordingCall) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
}

func (c *recordingCall) grantLog() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint32(nil), c.grants...)
}

func (c *recordingCall) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

func newTestReader(batch, buffer int, timeout time.Duration) (*responseQueueReader, *recordingCall) {
	call := &recordingCall{}
	return newResponseQueueReader(call, serializer.NewJSONSerializer(), batch, buffer, timeout), call
}

func encode(t *testing.T, msg *common.Message) []byte {
	t.Helper()
	payload, err := serializer.NewJSONSerializer().Serialize(*msg)
	if err != nil {
		t.Fatalf("failed to serialize message: %v", err)
	}
	return payload
}

// committedRow builds a one-message payload carrying a single complete row.
func committedRow(t *testing.T, key string) []byte {
	t.Helper()
	return encode(t, common.NewChunkResponse([]table.RowChunk{{
		RowKey: []byte(key), Family: "f", Qualifier: []byte("q"),
		Value: []byte("v"), Commit: true,
	}}))
}

func readRowKey(t *testing.T, r *responseQueueReader) string {
	t.Helper()
	row, ok, err := r.NextRow()
	if err != nil || !ok {
		t.Fatalf("NextRow() = (%v, %v, %v), want a row", row, ok, err)
	}
	return string(row.Key)
}

func TestReaderDeliversMergedRows(t *testing.T) {
	r, _ := newTestReader(4, 8, time.Second)

	r.OnChunk(encode(t, common.NewChunkResponse([]table.RowChunk{
		{RowKey: []byte("a"), Family: "f", Qualifier: []byte("q1"), Value: []byte("1")},
		{Family: "f", Qualifier: []byte("q2"), Value: []byte("2"), Commit: true},
	})))
	r.OnChunk(committedRow(t, "b"))
	r.OnComplete()

	row, ok, err := r.NextRow()
	if err != nil || !ok {
		t.Fatalf("NextRow() = (%v, %v, %v), want row a", row, ok, err)
	}
	if string(row.Key) != "a" || len(row.Cells) != 2 {
		t.Errorf("row = %+v, want key a with 2 cells", row)
	}
	if got := readRowKey(t, r); got != "b" {
		t.Errorf("second row key = %q, want b", got)
	}

	// The clean end is sticky
	for i := 0; i < 2; i++ {
		if row, ok, err := r.NextRow(); row != nil || ok || err != nil {
			t.Fatalf("NextRow() after end = (%v, %v, %v), want (nil, false, nil)", row, ok, err)
		}
	}
}

func TestReaderTimeout(t *testing.T) {
	r, _ := newTestReader(4, 8, 50*time.Millisecond)

	start := time.Now()
	_, _, err := r.NextRow()
	if common.StatusCodeOf(err) != common.StatusDeadlineExceeded {
		t.Fatalf("NextRow() error = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout fired after %v, want roughly 50ms", elapsed)
	}

	// The timeout is terminal
	if _, _, err2 := r.NextRow(); !errors.Is(err2, err) {
		t.Errorf("NextRow() after timeout = %v, want the recorded %v", err2, err)
	}
}

func TestReaderCreditRefill(t *testing.T) {
	r, call := newTestReader(4, 8, time.Second)

	for _, key := range []string{"a", "b", "c"} {
		r.OnChunk(committedRow(t, key))
	}

	// Credit has dropped to 1 of 4, so the first pull tops it back up
	readRowKey(t, r)
	if grants := call.grantLog(); len(grants) != 1 || grants[0] != 3 {
		t.Fatalf("grants after first pull = %v, want [3]", grants)
	}

	// With the credit restored no further grant is issued
	readRowKey(t, r)
	readRowKey(t, r)
	if grants := call.grantLog(); len(grants) != 1 {
		t.Errorf("grants after draining = %v, want no more than the refill", grants)
	}
}

func TestReaderGrantsCappedByBuffer(t *testing.T) {
	// Buffer of 4 with one reserved slot: after the server spends all 4
	// credits the reader may only re-grant what leaves the queue.
	r, call := newTestReader(4, 4, time.Second)

	for _, key := range []string{"a", "b", "c", "d"} {
		r.OnChunk(committedRow(t, key))
	}

	for _, want := range []string{"a", "b", "c", "d"} {
		if got := readRowKey(t, r); got != want {
			t.Fatalf("row key = %q, want %q", got, want)
		}
	}

	grants := call.grantLog()
	if len(grants) != 3 {
		t.Fatalf("grants = %v, want three single-frame grants", grants)
	}
	for _, g := range grants {
		if g != 1 {
			t.Errorf("grants = %v, want each grant capped at 1", grants)
		}
	}
}

func TestReaderPointLookupCredit(t *testing.T) {
	r, call := newTestReader(1, 10, time.Second)

	r.OnChunk(committedRow(t, "a"))
	r.OnComplete()

	if got := readRowKey(t, r); got != "a" {
		t.Fatalf("row key = %q, want a", got)
	}
	if _, ok, err := r.NextRow(); ok || err != nil {
		t.Fatalf("NextRow() after end = (ok=%v, err=%v), want clean end", ok, err)
	}

	for _, g := range call.grantLog() {
		if g != 1 {
			t.Errorf("grants = %v, want single-frame grants only", call.grantLog())
		}
	}
}

func TestReaderDeliversRowsBeforeError(t *testing.T) {
	r, _ := newTestReader(4, 8, time.Second)

	r.OnChunk(encode(t, common.NewChunkResponse([]table.RowChunk{
		{RowKey: []byte("a"), Family: "f", Qualifier: []byte("q"), Value: []byte("1"), Commit: true},
		{RowKey: []byte("b"), Family: "f", Qualifier: []byte("q"), Value: []byte("2"), Commit: true},
	})))
	r.OnError(common.NewStatus(common.StatusUnavailable, "connection reset"))

	if got := readRowKey(t, r); got != "a" {
		t.Errorf("first row key = %q, want a", got)
	}
	if got := readRowKey(t, r); got != "b" {
		t.Errorf("second row key = %q, want b", got)
	}

	_, _, err := r.NextRow()
	if common.StatusCodeOf(err) != common.StatusUnavailable {
		t.Fatalf("NextRow() error = %v, want Unavailable", err)
	}
	if _, _, err2 := r.NextRow(); !errors.Is(err2, err) {
		t.Errorf("NextRow() repeated error = %v, want %v", err2, err)
	}
}

func TestReaderIncompleteRowAtEnd(t *testing.T) {
	r, _ := newTestReader(4, 8, time.Second)

	r.OnChunk(encode(t, common.NewChunkResponse([]table.RowChunk{
		{RowKey: []byte("a"), Family: "f", Qualifier: []byte("q"), Value: []byte("1")},
	})))
	r.OnComplete()

	_, _, err := r.NextRow()
	if common.StatusCodeOf(err) != common.StatusInternal {
		t.Errorf("NextRow() error = %v, want Internal for a truncated row", err)
	}
}

func TestReaderServerErrorMessage(t *testing.T) {
	r, _ := newTestReader(4, 8, time.Second)

	r.OnChunk(encode(t, common.NewErrorResponse(common.StatusNotFound, "no such table")))

	_, _, err := r.NextRow()
	if common.StatusCodeOf(err) != common.StatusNotFound {
		t.Fatalf("NextRow() error = %v, want the server's NotFound", err)
	}
}

func TestReaderNextMessageSamples(t *testing.T) {
	r, _ := newTestReader(4, 8, time.Second)

	r.OnChunk(encode(t, common.NewSamplesResponse([]table.SampleRowKey{
		{RowKey: []byte("k1"), OffsetBytes: 100},
	})))
	r.OnChunk(encode(t, common.NewSamplesResponse([]table.SampleRowKey{
		{RowKey: []byte("k2"), OffsetBytes: 200},
	})))
	r.OnComplete()

	var samples []table.SampleRowKey
	for {
		msg, ok, err := r.NextMessage()
		if err != nil {
			t.Fatalf("NextMessage() error = %v", err)
		}
		if !ok {
			break
		}
		if msg.MsgType != common.MsgTSamples {
			t.Fatalf("message type = %s, want %s", msg.MsgType, common.MsgTSamples)
		}
		samples = append(samples, msg.Samples...)
	}
	if len(samples) != 2 || string(samples[0].RowKey) != "k1" || samples[1].OffsetBytes != 200 {
		t.Errorf("samples = %+v, want k1@100 and k2@200", samples)
	}
}

func TestReaderCloseCancelsCall(t *testing.T) {
	r, call := newTestReader(4, 8, time.Second)
	r.Close()
	if !call.isCancelled() {
		t.Error("Close() did not cancel the underlying call")
	}
}
