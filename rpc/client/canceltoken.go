package client

import "sync"

// --------------------------------------------------------------------------
// Cancellation Token
// --------------------------------------------------------------------------

// CancelToken is a cooperative cancel signal shared by one logical call. It
// links external stop requests (a closed scanner, an abandoned future) to
// the live network call: every layer that owns a cancellable resource
// registers a listener, and Cancel fires each listener at most once.
//
// There is no ordering guarantee between listeners. Cancellation may race
// with natural completion; whichever happens first wins.
type CancelToken struct {
	mu        sync.Mutex
	cancelled bool
	listeners []func()
	done      chan struct{}
}

// NewCancelToken creates a token in the active state.
func NewCancelToken() *CancelToken {
	return &CancelToken{
		done: make(chan struct{}),
	}
}

// Cancel transitions the token to cancelled and fires all registered
// listeners. Further calls are no-ops.
func (t *CancelToken) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	listeners := t.listeners
	t.listeners = nil
	close(t.done)
	t.mu.Unlock()

	// Fire outside the lock, listeners may call back into the token
	for _, fn := range listeners {
		fn()
	}
}

// AddListener registers fn to run once when the token is cancelled. If the
// token is already cancelled, fn runs immediately on the calling goroutine.
func (t *CancelToken) AddListener(fn func()) {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		fn()
		return
	}
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

// IsCancelled reports whether Cancel was called.
func (t *CancelToken) IsCancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the token is cancelled.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}
