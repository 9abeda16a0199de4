package client

import (
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
	"github.com/ValentinKolb/dRow/rpc/serializer"
	"github.com/ValentinKolb/dRow/rpc/transport"
)

// --------------------------------------------------------------------------
// Flow-Controlled Stream Reader
// --------------------------------------------------------------------------

// queueEntry is one delivery from the transport: a response payload, a
// terminal error, or the clean end of the stream.
type queueEntry struct {
	payload []byte
	err     error
	end     bool
}

// responseQueueReader bridges the transport's push delivery to a pull
// interface. It implements transport.ICallListener: the reader goroutine
// enqueues raw payloads, the consumer dequeues them with a per-chunk
// timeout, decodes them, and merges row chunks into complete rows.
//
// Backpressure is credit based. outstanding tracks how many more frames the
// server may deliver; it is decremented on arrival and topped back up to
// the batch size from the pull side once it falls to half or below. Grants
// are capped so that queued plus in-flight frames never exceed the buffer
// capacity, which keeps the enqueue non-blocking. One slot stays reserved
// for the single terminal entry, which is exempt from flow control.
//
// The reader belongs to exactly one call and supports a single consumer.
type responseQueueReader struct {
	queue       chan queueEntry
	call        transport.ICall
	serializer  serializer.IRPCSerializer
	outstanding atomic.Int64
	batch       int64
	timeout     time.Duration
	merger      rowMerger
	pendingRows []*table.Row
	finished    bool
	finalErr    error
	stopWatch   func() bool
}

// newResponseQueueReader creates a reader for a call that will be started
// with an initial credit of batch frames.
func newResponseQueueReader(call transport.ICall, ser serializer.IRPCSerializer, batch, buffer int, timeout time.Duration) *responseQueueReader {
	r := &responseQueueReader{
		queue:      make(chan queueEntry, buffer+1),
		call:       call,
		serializer: ser,
		batch:      int64(batch),
		timeout:    timeout,
	}
	r.outstanding.Store(int64(batch))
	return r
}

// --------------------------------------------------------------------------
// Push Side (transport.ICallListener, reader goroutine)
// --------------------------------------------------------------------------

func (r *responseQueueReader) OnChunk(payload []byte) {
	r.outstanding.Add(-1)
	// The credit accounting guarantees a free slot here
	r.queue <- queueEntry{payload: payload}
}

func (r *responseQueueReader) OnComplete() {
	r.queue <- queueEntry{end: true}
}

func (r *responseQueueReader) OnError(err error) {
	r.queue <- queueEntry{err: err}
}

// --------------------------------------------------------------------------
// Pull Side (consumer goroutine)
// --------------------------------------------------------------------------

// NextRow returns the next complete row of the stream. It reports
// ok = false with a nil error at the clean end of the stream and keeps
// doing so afterwards. A wait longer than the per-chunk timeout fails with
// DeadlineExceeded, which a resuming scanner treats as transient.
func (r *responseQueueReader) NextRow() (*table.Row, bool, error) {
	for {
		// Rows completed by an earlier batch are handed out before any
		// terminal outcome
		if len(r.pendingRows) > 0 {
			row := r.pendingRows[0]
			r.pendingRows = r.pendingRows[1:]
			return row, true, nil
		}
		if r.finished {
			return nil, false, r.finalErr
		}

		msg, ok, err := r.nextMessage()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			if r.merger.HasPartialRow() {
				err := common.NewStatus(common.StatusInternal, "stream ended with an incomplete row")
				r.finish(err)
				return nil, false, err
			}
			return nil, false, nil
		}
		if msg.MsgType != common.MsgTChunk {
			err := common.NewStatusf(common.StatusInternal, "unexpected message type %s in row stream", msg.MsgType)
			r.finish(err)
			return nil, false, err
		}

		for _, chunk := range msg.Chunks {
			row, err := r.merger.Merge(chunk)
			if err != nil {
				r.finish(err)
				return nil, false, err
			}
			if row != nil {
				r.pendingRows = append(r.pendingRows, row)
			}
		}
	}
}

// NextMessage returns the next decoded response of the stream without any
// row merging. It is used for streams whose units are self-contained, such
// as key sampling. End of stream and errors behave like NextRow.
func (r *responseQueueReader) NextMessage() (*common.Message, bool, error) {
	if r.finished {
		return nil, false, r.finalErr
	}
	return r.nextMessage()
}

// nextMessage dequeues and decodes one entry, granting credit beforehand.
func (r *responseQueueReader) nextMessage() (*common.Message, bool, error) {
	r.maybeRequestMore()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	var entry queueEntry
	select {
	case entry = <-r.queue:
	case <-timer.C:
		err := common.NewStatus(common.StatusDeadlineExceeded, "timeout while merging responses")
		r.finish(err)
		return nil, false, err
	}

	switch {
	case entry.err != nil:
		r.finish(entry.err)
		return nil, false, entry.err
	case entry.end:
		r.finish(nil)
		return nil, false, nil
	}

	msg := &common.Message{}
	if err := r.serializer.Deserialize(entry.payload, msg); err != nil {
		err = common.WrapStatus(common.StatusInternal, "failed to decode stream response", err)
		r.finish(err)
		return nil, false, err
	}
	if msg.MsgType == common.MsgTError || msg.Err != "" {
		err := common.NewStatus(common.StatusCode(msg.Code), msg.Err)
		r.finish(err)
		return nil, false, err
	}
	return msg, true, nil
}

// maybeRequestMore tops the server's credit back up to the batch size once
// it has fallen to half or below.
func (r *responseQueueReader) maybeRequestMore() {
	if r.finished {
		return
	}
	out := r.outstanding.Load()
	if out > r.batch/2 {
		return
	}
	grant := r.batch - out
	// Never authorize more frames than the buffer can absorb. outstanding
	// is read before the queue length so a concurrent arrival can only make
	// the estimate more conservative.
	if slack := int64(cap(r.queue)) - 1 - out - int64(len(r.queue)); grant > slack {
		grant = slack
	}
	if grant <= 0 {
		return
	}
	r.outstanding.Add(grant)
	r.call.RequestMore(uint32(grant))
}

// finish records the terminal outcome. finalErr stays nil for a clean end.
func (r *responseQueueReader) finish(err error) {
	r.finished = true
	r.finalErr = err
	if r.stopWatch != nil {
		r.stopWatch()
		r.stopWatch = nil
	}
}

// Close cancels the underlying call. Pending rows already merged remain
// readable; the cancellation surfaces once they are drained.
func (r *responseQueueReader) Close() {
	if r.stopWatch != nil {
		r.stopWatch()
		r.stopWatch = nil
	}
	r.call.Cancel()
}
