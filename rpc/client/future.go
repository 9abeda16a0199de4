package client

import (
	"context"
	"sync/atomic"

	"github.com/ValentinKolb/dRow/rpc/common"
)

// --------------------------------------------------------------------------
// Future
// --------------------------------------------------------------------------

// Future is the handle returned by the asynchronous client methods. It
// resolves exactly once, either with the call's result or with its error,
// and can cancel the underlying call via Cancel.
type Future[T any] struct {
	done     chan struct{}
	value    T
	err      error
	resolved atomic.Bool
	token    *CancelToken
}

func newFuture[T any](token *CancelToken) *Future[T] {
	return &Future[T]{
		done:  make(chan struct{}),
		token: token,
	}
}

// resolve completes the future. Only the first call takes effect.
func (f *Future[T]) resolve(value T, err error) {
	if !f.resolved.CompareAndSwap(false, true) {
		return
	}
	f.value = value
	f.err = err
	close(f.done)
}

// Done returns a channel that is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get waits for the result. If ctx ends first, Get returns the context's
// status without cancelling the call; use Cancel to abandon it.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, common.FromError(ctx.Err())
	}
}

// Cancel abandons the call behind the future. The future then resolves with
// a cancelled status unless it already completed. Cancel is idempotent.
func (f *Future[T]) Cancel() {
	f.token.Cancel()
}

// await blocks until the future resolves. If ctx ends first, the call is
// cancelled and await returns its cancelled outcome. This is the bridge the
// blocking client methods use.
func await[T any](ctx context.Context, fut *Future[T]) (T, error) {
	select {
	case <-fut.done:
	case <-ctx.Done():
		fut.Cancel()
		<-fut.done
	}
	return fut.value, fut.err
}
