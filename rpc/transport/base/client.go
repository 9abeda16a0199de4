package base

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dRow/rpc/common"
	"github.com/ValentinKolb/dRow/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sethvargo/go-retry"
)

var Logger = logger.GetLogger("transport/rpc")

// Dial retry tuning. Dial failures are retried with fibonacci backoff, an
// upgrade failure is a configuration problem and aborts immediately.
const (
	dialRetryBase = 50 * time.Millisecond
	dialRetryMax  = 5
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection based on the provided configuration
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientCall is one in-flight exchange, bound to a single connection. The
// terminal flag guarantees that the listener sees at most one of OnComplete,
// OnError or the cancellation error.
type clientCall struct {
	id       uint64
	conn     *clientConnection
	listener transport.ICallListener
	started  atomic.Bool
	terminal atomic.Bool
}

// clientConnection represents a single net connection
type clientConnection struct {
	conn     net.Conn
	endpoint string
	stopCh   chan struct{} // Close signal for the reader goroutine
	calls    *xsync.MapOf[uint64, *clientCall]
	connMu   sync.Mutex // Protects writes to and replacement of the connection
	parent   *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex uint64 // Atomic counter for Round Robin
	nextCallID    uint64 // Atomic counter for unique call IDs
	nextEndpoint  uint64 // Atomic counter spreading pool growth over endpoints
	stopping      atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector:  connector,
		nextCallID: 1, // Start from 1
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Store the config
	t.config = config
	t.stopping.Store(false)

	// Close all existing connections
	t.closeConnections()

	// Set default value for ConnectionsPerEndpoint
	connectionsPerEP := 1
	if config.Transport.ConnectionsPerEndpoint > 0 {
		connectionsPerEP = config.Transport.ConnectionsPerEndpoint
	}

	// Initialize client connections
	for _, endpoint := range config.Transport.Endpoints {
		// Create multiple connections per endpoint
		for i := 0; i < connectionsPerEP; i++ {
			if _, err := t.addConnection(endpoint); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}
			Logger.Infof("Connected to %s (connection %d/%d)", endpoint, i+1, connectionsPerEP)
		}
	}

	// Check if we have at least one connection
	t.connectionsMu.RLock()
	connected := len(t.connections)
	t.connectionsMu.RUnlock()

	if connected == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	Logger.Infof("Connected to %d out of %d connections to %d endpoints using %s transport",
		connected, len(config.Transport.Endpoints)*connectionsPerEP, len(config.Transport.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) EnsureChannelCount(n int) error {
	if t.stopping.Load() {
		return fmt.Errorf("transport is closed")
	}

	endpoints := t.config.Transport.Endpoints
	if len(endpoints) == 0 {
		return fmt.Errorf("transport is not connected")
	}

	for {
		t.connectionsMu.RLock()
		current := len(t.connections)
		t.connectionsMu.RUnlock()

		if current >= n {
			return nil
		}

		// Spread new connections over the endpoints
		endpoint := endpoints[atomic.AddUint64(&t.nextEndpoint, 1)%uint64(len(endpoints))]
		if _, err := t.addConnection(endpoint); err != nil {
			return fmt.Errorf("failed to grow connection pool from %d to %d: %w", current, n, err)
		}
		Logger.Infof("Expanded connection pool to %d connections (target %d)", current+1, n)
	}
}

func (t *clientTransport) NewCall() (transport.ICall, error) {
	if t.stopping.Load() {
		return nil, fmt.Errorf("transport is closed")
	}

	conn := t.getNextConnection()
	if conn == nil {
		return nil, common.NewStatus(common.StatusUnavailable, "no active connections available")
	}

	return &clientCall{
		id:   atomic.AddUint64(&t.nextCallID, 1),
		conn: conn,
	}, nil
}

func (t *clientTransport) Close() error {
	t.stopping.Store(true)
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Call Methods (docu see transport.ICall)
// --------------------------------------------------------------------------

func (c *clientCall) Start(payload []byte, initialCredit uint32, listener transport.ICallListener) error {
	if listener == nil {
		return fmt.Errorf("listener must not be nil")
	}
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("call %d already started", c.id)
	}
	if c.terminal.Load() {
		return common.NewStatus(common.StatusCancelled, "call cancelled")
	}

	c.listener = listener
	c.conn.calls.Store(c.id, c)

	// Re-check after registering so a concurrent Cancel cannot leave a
	// cancelled call in the routing table
	if c.terminal.Load() {
		c.conn.calls.Delete(c.id)
		return common.NewStatus(common.StatusCancelled, "call cancelled")
	}

	if err := c.conn.writeFrame(c.id, frameOpen, 0, initialCredit, payload); err != nil {
		c.terminal.Store(true)
		c.conn.calls.Delete(c.id)
		return common.WrapStatus(common.StatusUnavailable, "failed to send request", err)
	}
	return nil
}

func (c *clientCall) RequestMore(n uint32) {
	if c.terminal.Load() {
		return
	}
	if err := c.conn.writeFrame(c.id, frameCredit, 0, n, nil); err != nil {
		c.fail(common.WrapStatus(common.StatusUnavailable, "failed to send flow control grant", err))
	}
}

func (c *clientCall) Cancel() {
	if !c.terminal.CompareAndSwap(false, true) {
		return
	}
	c.conn.calls.Delete(c.id)

	// Notify the server best effort, it may already be gone
	if c.started.Load() {
		_ = c.conn.writeFrame(c.id, frameCancel, 0, 0, nil)
	}

	if c.listener != nil {
		c.listener.OnError(common.NewStatus(common.StatusCancelled, "call cancelled"))
	}
}

// fail moves the call into its terminal state with an error
func (c *clientCall) fail(err error) {
	if !c.terminal.CompareAndSwap(false, true) {
		return
	}
	c.conn.calls.Delete(c.id)
	if c.listener != nil {
		c.listener.OnError(err)
	}
}

// complete moves the call into its terminal state after a clean end of stream
func (c *clientCall) complete() {
	if !c.terminal.CompareAndSwap(false, true) {
		return
	}
	c.conn.calls.Delete(c.id)
	if c.listener != nil {
		c.listener.OnComplete()
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// addConnection dials one connection to the endpoint, adds it to the pool
// and starts its reader goroutine
func (t *clientTransport) addConnection(endpoint string) (*clientConnection, error) {
	clientConn := &clientConnection{
		conn:     nil, // Will be set by reconnect
		endpoint: endpoint,
		stopCh:   make(chan struct{}),
		calls:    xsync.NewMapOf[uint64, *clientCall](),
		parent:   t,
	}

	// Establish the initial connection using reconnect
	if err := clientConn.reconnect(); err != nil {
		return nil, err
	}

	// Add to our connections list
	t.connectionsMu.Lock()
	t.connections = append(t.connections, clientConn)
	t.connectionsMu.Unlock()

	// Start the frame reader
	go clientConn.readFrames()

	return clientConn, nil
}

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}

	// Simple Round Robin algorithm
	var index uint64
	if len(t.connections) == 1 {
		// optimize for single connection
		index = 0
	} else {
		index = atomic.AddUint64(&t.nextConnIndex, 1) % uint64(len(t.connections))
	}
	return t.connections[index]
}

// removeConnection drops a dead connection from the pool
func (t *clientTransport) removeConnection(conn *clientConnection) {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()

	for i, c := range t.connections {
		if c == conn {
			t.connections = append(t.connections[:i], t.connections[i+1:]...)
			break
		}
	}
}

// closeConnections closes all active connections and fails their calls
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	conns := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, conn := range conns {
		// Signal reader goroutine to stop
		close(conn.stopCh)

		// Close the connection
		conn.connMu.Lock()
		if conn.conn != nil {
			conn.conn.Close()
		}
		conn.connMu.Unlock()

		// Fail whatever was still in flight
		conn.failCalls(common.NewStatus(common.StatusCancelled, "transport closed"))
	}
}

// writeFrame writes one frame under the connection write lock
func (c *clientConnection) writeFrame(requestID uint64, kind byte, meta, credit uint32, payload []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("connection is closed")
	}

	// Set write timeout
	if c.parent.config.TimeoutSecond > 0 {
		timeout := time.Duration(c.parent.config.TimeoutSecond) * time.Second
		c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}

	return writeFrame(c.conn, requestID, kind, meta, credit, payload)
}

// failCalls fails every in-flight call of this connection
func (c *clientConnection) failCalls(err error) {
	c.calls.Range(func(id uint64, call *clientCall) bool {
		call.fail(err)
		return true
	})
}

// readFrames reads frames in a loop and routes them to their calls. No read
// deadline is set: response streams may idle for long stretches, per-chunk
// timeouts are enforced by the consumer.
func (c *clientConnection) readFrames() {
	for {
		// Check if we should stop
		select {
		case <-c.stopCh:
			return
		default:
			// Continue
		}

		f, err := readFrame(c.conn)
		if err != nil {
			select {
			case <-c.stopCh:
				return
			default:
			}

			// A read error desyncs the framing, the connection cannot be
			// reused. Fail everything in flight and start over.
			Logger.Errorf("Connection to %s failed: %v", c.endpoint, err)
			c.failCalls(common.WrapStatus(common.StatusUnavailable, "connection lost", err))

			if err := c.reconnect(); err != nil {
				Logger.Errorf("Failed to reconnect to %s: %v", c.endpoint, err)
				c.parent.removeConnection(c)
				return
			}
			Logger.Infof("Reconnected to %s", c.endpoint)
			continue
		}

		call, found := c.calls.Load(f.requestID)
		if !found {
			// Expected after cancellation, frames may still be in flight
			Logger.Debugf("Received %s frame for unknown call %d", frameKindName(f.kind), f.requestID)
			continue
		}

		switch f.kind {
		case frameChunk:
			if !call.terminal.Load() {
				call.listener.OnChunk(f.payload)
			}
		case frameFinal:
			call.complete()
		case frameError:
			call.fail(common.NewStatus(common.StatusCode(f.meta), string(f.payload)))
		default:
			Logger.Warningf("Received unexpected %s frame for call %d", frameKindName(f.kind), f.requestID)
		}
	}
}

// reconnect establishes or restores a connection to the endpoint
func (c *clientConnection) reconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	// Close the old connection if it exists
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	// Dial with fibonacci backoff
	b := retry.NewFibonacci(dialRetryBase)
	return retry.Do(context.Background(), retry.WithMaxRetries(dialRetryMax, b), func(ctx context.Context) error {
		conn, err := c.parent.connector.Connect(c.endpoint)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to connect to %s: %w", c.endpoint, err))
		}

		// Upgrade the connection with protocol-specific settings
		if err := c.parent.connector.UpgradeConnection(conn, c.parent.config); err != nil {
			conn.Close()
			return fmt.Errorf("failed to upgrade connection to %s: %w", c.endpoint, err)
		}

		c.conn = conn
		return nil
	})
}
