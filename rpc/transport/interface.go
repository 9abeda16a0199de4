package transport

import (
	"github.com/ValentinKolb/dRow/rpc/common"
)

// --------------------------------------------------------------------------
// Call Handling
// --------------------------------------------------------------------------

// ICallListener receives the events of a single call. The transport invokes
// the methods from its connection reader goroutine, so implementations must
// not block. OnComplete and OnError are terminal: each call delivers at most
// one of them, and no further events follow.
type ICallListener interface {
	// OnChunk delivers one response payload. The slice is owned by the
	// listener and stays valid after the method returns.
	OnChunk(payload []byte)
	// OnComplete signals the clean end of the response stream
	OnComplete()
	// OnError signals that the call failed or was cancelled
	OnError(err error)
}

// ICall is a single request/response exchange on the transport. A call is
// single use: Start may be called at most once, and after a terminal
// listener event or Cancel the call is finished.
type ICall interface {
	// Start registers the listener and sends the request. initialCredit is
	// the number of response frames the server may send before it must wait
	// for further grants. Terminal frames are exempt from flow control.
	Start(payload []byte, initialCredit uint32, listener ICallListener) error
	// RequestMore grants the server n additional response frames
	RequestMore(n uint32)
	// Cancel abandons the call. The server is notified best effort. If no
	// terminal event was delivered yet the listener receives a cancellation
	// error, otherwise Cancel has no effect.
	Cancel()
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// EnsureChannelCount grows the connection pool until it holds at least
	// n connections. The pool never shrinks back below that size.
	EnsureChannelCount(n int) error
	// NewCall creates a new call bound to one pooled connection
	NewCall() (ICall, error)
	// Close closes the transport and fails all in-flight calls
	Close() error
}
