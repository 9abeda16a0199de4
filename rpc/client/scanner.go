package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/dRow/lib/obs"
	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
	"github.com/grafana/dskit/backoff"
)

// --------------------------------------------------------------------------
// Scanner State Machine
// --------------------------------------------------------------------------

// scanState is the state of a resuming scan.
type scanState uint8

const (
	scanStreaming scanState = iota // Pulling rows from the current reader
	scanResuming                   // Reissuing a narrowed request
	scanExhausted                  // Clean end, Next keeps returning ok = false
	scanFailed                     // Terminal failure, Next keeps returning it
)

// --------------------------------------------------------------------------
// Resuming Result Scanner
// --------------------------------------------------------------------------

// resumingResultScanner iterates a range read and hides recoverable stream
// failures from the caller. When the current stream breaks with a transient
// error it reissues the query, narrowed to start strictly after the last
// delivered row key and with the row limit reduced by the rows already
// delivered, so every row reaches the caller exactly once.
//
// Per-chunk timeouts are reissued immediately and counted against the
// policy's scan timeout budget; any other transient failure consumes the
// regular backoff budget. A delivered row resets both.
//
// Next must not be called concurrently. Close may be called from any
// goroutine and unblocks a pending Next.
type resumingResultScanner struct {
	client *RPCTableClient
	ctx    context.Context
	token  *CancelToken

	query     table.ReadQuery // original query, never mutated
	limit     int64           // original row limit, 0 = unlimited
	delivered int64
	lastKey   []byte
	batch     int
	buffer    int

	reader   *responseQueueReader
	boff     *backoff.Backoff
	timeouts int // consecutive per-chunk timeouts

	state scanState
	err   error

	closed   atomic.Bool
	finished atomic.Bool
}

func (s *resumingResultScanner) Next() (*table.Row, bool, error) {
	for {
		switch s.state {
		case scanExhausted:
			return nil, false, nil
		case scanFailed:
			return nil, false, s.err
		}

		if s.closed.Load() {
			return s.fail(common.NewStatus(common.StatusCancelled, "scanner closed"))
		}

		row, ok, err := s.reader.NextRow()
		if err == nil && ok {
			s.lastKey = row.Key
			s.delivered++
			s.timeouts = 0
			s.boff.Reset()
			if s.limit > 0 && s.delivered >= s.limit {
				s.exhaust()
			}
			return row, true, nil
		}
		if err == nil {
			s.exhaust()
			return nil, false, nil
		}

		if common.IsCancelled(err) || !common.IsTransient(err) {
			return s.fail(err)
		}

		// A point lookup whose row already arrived only lost the trailing
		// end-of-stream frame, there is nothing left to resume
		if s.query.IsGet() && len(s.lastKey) > 0 {
			s.exhaust()
			return nil, false, nil
		}

		if rerr := s.resume(err); rerr != nil {
			return s.fail(rerr)
		}
	}
}

// resume transitions through Resuming: it applies the timeout or backoff
// budget for cause, then opens a fresh reader for the narrowed query. Open
// failures consume further budget instead of surfacing immediately.
func (s *resumingResultScanner) resume(cause error) error {
	s.state = scanResuming
	s.reader.Close()

	for {
		if cerr := s.ctx.Err(); cerr != nil {
			return common.FromError(cerr)
		}

		if common.StatusCodeOf(cause) == common.StatusDeadlineExceeded {
			s.timeouts++
			if s.timeouts > s.client.config.Retry.MaxScanTimeoutRetries {
				return common.WrapStatus(common.StatusRetriesExhausted,
					fmt.Sprintf("scan timed out %d consecutive times", s.timeouts), cause)
			}
			// A timeout already waited long enough, reissue immediately
			s.client.observer.Emit(obs.Event{
				Kind:   obs.KindScanTimeout,
				Method: common.MsgTReadRows.String(),
				Detail: fmt.Sprintf("reissuing after timeout %d of %d", s.timeouts, s.client.config.Retry.MaxScanTimeoutRetries),
				Err:    cause,
			})
		} else {
			if s.client.config.Retry.MaxRetries <= 0 || !s.boff.Ongoing() {
				return common.WrapStatus(common.StatusRetriesExhausted,
					fmt.Sprintf("scan failed after %d resume attempts", s.boff.NumRetries()), cause)
			}
			s.client.observer.Emit(obs.Event{
				Kind:   obs.KindScanResumed,
				Method: common.MsgTReadRows.String(),
				Detail: fmt.Sprintf("resuming after %d rows", s.delivered),
				Err:    cause,
			})
			s.boff.Wait()
			if cerr := s.ctx.Err(); cerr != nil {
				return common.FromError(cerr)
			}
		}

		reader, err := s.client.openStream(s.ctx, s.nextRequest(), s.token, s.batch, s.buffer)
		if err == nil {
			s.reader = reader
			s.state = scanStreaming
			return nil
		}
		if common.IsCancelled(err) || !common.IsTransient(err) {
			return err
		}
		cause = err
	}
}

// nextRequest builds the follow-up request: identical to the original query
// but starting strictly after the last delivered key and asking only for
// the rows still missing.
func (s *resumingResultScanner) nextRequest() *common.Message {
	q := s.query
	if len(s.lastKey) > 0 {
		q.RowKey = nil
		q.Range.StartKey = table.SuccessorKey(s.lastKey)
	}
	if s.limit > 0 {
		q.Limit = s.limit - s.delivered
	}
	return common.NewReadRowsRequest(s.client.config.Table, q)
}

func (s *resumingResultScanner) exhaust() {
	s.state = scanExhausted
	s.finished.Store(true)
	s.reader.Close()
	s.token.Cancel()
}

func (s *resumingResultScanner) fail(err error) (*table.Row, bool, error) {
	s.state = scanFailed
	s.err = err
	s.finished.Store(true)
	s.token.Cancel()
	return nil, false, err
}

// Close stops the scan and cancels the live network call. Idempotent.
func (s *resumingResultScanner) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !s.finished.Load() {
		s.client.observer.Emit(obs.Event{
			Kind:   obs.KindStreamCancelled,
			Method: common.MsgTReadRows.String(),
			Detail: fmt.Sprintf("scan abandoned after %d rows", s.delivered),
		})
	}
	s.token.Cancel()
	return nil
}

// --------------------------------------------------------------------------
// Non-Resuming Result Scanner
// --------------------------------------------------------------------------

// streamingResultScanner is the scanner used when retries are disabled: a
// thin shell over one reader that surfaces every failure directly.
type streamingResultScanner struct {
	reader   *responseQueueReader
	token    *CancelToken
	observer *obs.Observer

	delivered int64
	closed    atomic.Bool
	finished  atomic.Bool
}

func (s *streamingResultScanner) Next() (*table.Row, bool, error) {
	if s.closed.Load() && !s.finished.Load() {
		s.finished.Store(true)
		return nil, false, common.NewStatus(common.StatusCancelled, "scanner closed")
	}
	row, ok, err := s.reader.NextRow()
	if err != nil || !ok {
		s.finished.Store(true)
		s.token.Cancel()
		return nil, false, err
	}
	s.delivered++
	return row, true, nil
}

func (s *streamingResultScanner) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !s.finished.Load() {
		s.observer.Emit(obs.Event{
			Kind:   obs.KindStreamCancelled,
			Method: common.MsgTReadRows.String(),
			Detail: fmt.Sprintf("scan abandoned after %d rows", s.delivered),
		})
	}
	s.token.Cancel()
	return nil
}
