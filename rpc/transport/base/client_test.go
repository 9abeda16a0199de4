package base

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/dRow/rpc/common"
	"github.com/ValentinKolb/dRow/rpc/transport"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

// testConnector dials plain TCP connections without any upgrades
type testConnector struct{}

func (testConnector) GetName() string                                       { return "tcp-test" }
func (testConnector) Connect(ep string) (net.Conn, error)                   { return net.Dial("tcp", ep) }
func (testConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

// testListener records call events on channels
type testListener struct {
	chunks chan []byte
	done   chan error // nil for OnComplete, the error for OnError
}

func newTestListener() *testListener {
	return &testListener{
		chunks: make(chan []byte, 64),
		done:   make(chan error, 4),
	}
}

func (l *testListener) OnChunk(p []byte)  { l.chunks <- p }
func (l *testListener) OnComplete()       { l.done <- nil }
func (l *testListener) OnError(err error) { l.done <- err }

// waitChunk waits for the next chunk or fails the test
func (l *testListener) waitChunk(t *testing.T) []byte {
	t.Helper()
	// Events arrive in order, but chunks and the terminal event travel on
	// separate channels; when both are already buffered a bare select picks
	// randomly. Take any pending chunk first.
	select {
	case p := <-l.chunks:
		return p
	default:
	}
	select {
	case p := <-l.chunks:
		return p
	case err := <-l.done:
		t.Fatalf("Expected chunk but call terminated: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for chunk")
	}
	return nil
}

// waitDone waits for the terminal event or fails the test
func (l *testListener) waitDone(t *testing.T) error {
	t.Helper()
	select {
	case err := <-l.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for terminal event")
		return nil
	}
}

// testFrameServer is a minimal frame protocol server for exercising the
// client transport. The handler runs on the connection's reader goroutine.
type testFrameServer struct {
	t        *testing.T
	listener net.Listener
	handle   func(conn net.Conn, f frame)
}

func newTestFrameServer(t *testing.T, handle func(conn net.Conn, f frame)) *testFrameServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	s := &testFrameServer{t: t, listener: listener, handle: handle}
	go s.acceptLoop()
	return s
}

func (s *testFrameServer) endpoint() string { return s.listener.Addr().String() }

func (s *testFrameServer) close() { s.listener.Close() }

func (s *testFrameServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConnection(conn)
	}
}

func (s *testFrameServer) handleConnection(conn net.Conn) {
	defer conn.Close()
	for {
		f, err := readFrame(conn)
		if err != nil {
			return
		}
		s.handle(conn, f)
	}
}

// testClientConfig returns a minimal configuration for one endpoint
func testClientConfig(endpoint string) common.ClientConfig {
	return common.ClientConfig{
		Table:         "test",
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{endpoint},
			ConnectionsPerEndpoint: 1,
		},
		Retry: common.DefaultRetryOptions(),
	}
}

// connectTestTransport connects a transport to the server and registers cleanup
func connectTestTransport(t *testing.T, server *testFrameServer) transport.IRPCClientTransport {
	t.Helper()
	tp := NewBaseClientTransport(testConnector{})
	if err := tp.Connect(testClientConfig(server.endpoint())); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { tp.Close() })
	return tp
}

// --------------------------------------------------------------------------
// Frame Codec
// --------------------------------------------------------------------------

func TestFrameRoundTrip(t *testing.T) {
	testCases := []struct {
		name    string
		id      uint64
		kind    byte
		meta    uint32
		credit  uint32
		payload []byte
	}{
		{name: "OpenWithPayload", id: 1, kind: frameOpen, credit: 30, payload: []byte("request")},
		{name: "CreditOnly", id: 2, kind: frameCredit, credit: 15},
		{name: "Cancel", id: 3, kind: frameCancel},
		{name: "Chunk", id: 4, kind: frameChunk, payload: []byte("chunk data")},
		{name: "Final", id: 5, kind: frameFinal},
		{name: "ErrorWithCode", id: 6, kind: frameError, meta: 14, payload: []byte("unavailable")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			writeDone := make(chan struct{})
			go func() {
				defer close(writeDone)
				if err := writeFrame(client, tc.id, tc.kind, tc.meta, tc.credit, tc.payload); err != nil {
					t.Errorf("Failed to write frame: %v", err)
				}
			}()

			f, err := readFrame(server)
			if err != nil {
				t.Fatalf("Failed to read frame: %v", err)
			}

			if f.requestID != tc.id {
				t.Errorf("Expected request ID %d, got %d", tc.id, f.requestID)
			}
			if f.kind != tc.kind {
				t.Errorf("Expected kind %s, got %s", frameKindName(tc.kind), frameKindName(f.kind))
			}
			if f.meta != tc.meta {
				t.Errorf("Expected meta %d, got %d", tc.meta, f.meta)
			}
			if f.credit != tc.credit {
				t.Errorf("Expected credit %d, got %d", tc.credit, f.credit)
			}
			if len(tc.payload) == 0 {
				if f.payload != nil {
					t.Errorf("Expected no payload, got %d bytes", len(f.payload))
				}
			} else if !bytes.Equal(f.payload, tc.payload) {
				t.Errorf("Payload mismatch: expected %q, got %q", tc.payload, f.payload)
			}

			// net.Pipe has no writev, so writeFrame's zero-length payload
			// write for empty frames blocks until one more read rendezvous.
			// Drain it so the writer goroutine finishes before the subtest.
			if len(tc.payload) == 0 {
				if _, err := server.Read(make([]byte, 1)); err != nil {
					t.Errorf("Failed to drain empty payload write: %v", err)
				}
			}
			<-writeDone
		})
	}
}

// --------------------------------------------------------------------------
// Transport Behavior
// --------------------------------------------------------------------------

func TestClientTransportUnaryCall(t *testing.T) {
	// Echo server: answers every open frame with one chunk and a final frame
	server := newTestFrameServer(t, func(conn net.Conn, f frame) {
		if f.kind != frameOpen {
			return
		}
		writeFrame(conn, f.requestID, frameChunk, 0, 0, f.payload)
		writeFrame(conn, f.requestID, frameFinal, 0, 0, nil)
	})
	defer server.close()

	tp := connectTestTransport(t, server)

	call, err := tp.NewCall()
	if err != nil {
		t.Fatalf("Failed to create call: %v", err)
	}

	listener := newTestListener()
	if err := call.Start([]byte("ping"), 1, listener); err != nil {
		t.Fatalf("Failed to start call: %v", err)
	}

	chunk := listener.waitChunk(t)
	if !bytes.Equal(chunk, []byte("ping")) {
		t.Errorf("Expected echoed payload, got %q", chunk)
	}
	if err := listener.waitDone(t); err != nil {
		t.Errorf("Expected clean completion, got: %v", err)
	}
}

func TestClientTransportStreamingCall(t *testing.T) {
	chunks := [][]byte{[]byte("one"), []byte("two"), []byte("three")}

	server := newTestFrameServer(t, func(conn net.Conn, f frame) {
		if f.kind != frameOpen {
			return
		}
		for _, c := range chunks {
			writeFrame(conn, f.requestID, frameChunk, 0, 0, c)
		}
		writeFrame(conn, f.requestID, frameFinal, 0, 0, nil)
	})
	defer server.close()

	tp := connectTestTransport(t, server)

	call, err := tp.NewCall()
	if err != nil {
		t.Fatalf("Failed to create call: %v", err)
	}

	listener := newTestListener()
	if err := call.Start([]byte("scan"), 30, listener); err != nil {
		t.Fatalf("Failed to start call: %v", err)
	}

	for i, want := range chunks {
		got := listener.waitChunk(t)
		if !bytes.Equal(got, want) {
			t.Errorf("Chunk %d mismatch: expected %q, got %q", i, want, got)
		}
	}
	if err := listener.waitDone(t); err != nil {
		t.Errorf("Expected clean completion, got: %v", err)
	}
}

func TestClientTransportErrorCall(t *testing.T) {
	server := newTestFrameServer(t, func(conn net.Conn, f frame) {
		if f.kind != frameOpen {
			return
		}
		writeFrame(conn, f.requestID, frameError, uint32(common.StatusNotFound), 0, []byte("no such table"))
	})
	defer server.close()

	tp := connectTestTransport(t, server)

	call, err := tp.NewCall()
	if err != nil {
		t.Fatalf("Failed to create call: %v", err)
	}

	listener := newTestListener()
	if err := call.Start([]byte("get"), 1, listener); err != nil {
		t.Fatalf("Failed to start call: %v", err)
	}

	err = listener.waitDone(t)
	if err == nil {
		t.Fatalf("Expected error termination")
	}
	if code := common.StatusCodeOf(err); code != common.StatusNotFound {
		t.Errorf("Expected status %s, got %s (%v)", common.StatusNotFound, code, err)
	}
}

func TestClientTransportCancel(t *testing.T) {
	cancelled := make(chan uint64, 1)

	// Silent server: never answers, but records cancel frames
	server := newTestFrameServer(t, func(conn net.Conn, f frame) {
		if f.kind == frameCancel {
			cancelled <- f.requestID
		}
	})
	defer server.close()

	tp := connectTestTransport(t, server)

	call, err := tp.NewCall()
	if err != nil {
		t.Fatalf("Failed to create call: %v", err)
	}

	listener := newTestListener()
	if err := call.Start([]byte("scan"), 30, listener); err != nil {
		t.Fatalf("Failed to start call: %v", err)
	}

	call.Cancel()
	call.Cancel() // Cancelling twice must be a safe no-op

	err = listener.waitDone(t)
	if !common.IsCancelled(err) {
		t.Errorf("Expected cancellation error, got: %v", err)
	}

	// The server must have been notified
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Errorf("Server never received the cancel frame")
	}

	// No second terminal event may arrive
	select {
	case err := <-listener.done:
		t.Errorf("Received second terminal event: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientTransportCreditFlow(t *testing.T) {
	const totalChunks = 5

	type creditState struct {
		remaining int
		credit    uint32
	}

	// Credit-respecting server: sends chunks only while it holds credit.
	// The handler runs on a single goroutine (one connection in this test),
	// so the state map needs no locking.
	states := map[uint64]*creditState{}
	server := newTestFrameServer(t, func(conn net.Conn, f frame) {
		st, ok := states[f.requestID]
		if !ok {
			st = &creditState{remaining: totalChunks}
			states[f.requestID] = st
		}

		switch f.kind {
		case frameOpen:
			st.credit = f.credit
		case frameCredit:
			st.credit += f.credit
		default:
			return
		}

		for st.credit > 0 && st.remaining > 0 {
			writeFrame(conn, f.requestID, frameChunk, 0, 0, []byte("chunk"))
			st.credit--
			st.remaining--
		}
		if st.remaining == 0 {
			writeFrame(conn, f.requestID, frameFinal, 0, 0, nil)
		}
	})
	defer server.close()

	tp := connectTestTransport(t, server)

	call, err := tp.NewCall()
	if err != nil {
		t.Fatalf("Failed to create call: %v", err)
	}

	listener := newTestListener()
	if err := call.Start([]byte("scan"), 2, listener); err != nil {
		t.Fatalf("Failed to start call: %v", err)
	}

	// The initial credit of 2 allows exactly two chunks
	listener.waitChunk(t)
	listener.waitChunk(t)

	select {
	case p := <-listener.chunks:
		t.Fatalf("Server sent chunk %q beyond its credit", p)
	case <-time.After(200 * time.Millisecond):
	}

	// Grant the rest
	call.RequestMore(3)

	for i := 0; i < totalChunks-2; i++ {
		listener.waitChunk(t)
	}
	if err := listener.waitDone(t); err != nil {
		t.Errorf("Expected clean completion, got: %v", err)
	}
}

func TestClientTransportConnectionLost(t *testing.T) {
	// Server drops the connection as soon as a call arrives
	server := newTestFrameServer(t, func(conn net.Conn, f frame) {
		if f.kind == frameOpen {
			conn.Close()
		}
	})
	defer server.close()

	tp := connectTestTransport(t, server)

	call, err := tp.NewCall()
	if err != nil {
		t.Fatalf("Failed to create call: %v", err)
	}

	listener := newTestListener()
	if err := call.Start([]byte("get"), 1, listener); err != nil {
		t.Fatalf("Failed to start call: %v", err)
	}

	err = listener.waitDone(t)
	if err == nil {
		t.Fatalf("Expected the call to fail")
	}
	if !common.IsTransient(err) {
		t.Errorf("Expected a transient error for a lost connection, got: %v", err)
	}
}

func TestEnsureChannelCount(t *testing.T) {
	server := newTestFrameServer(t, func(conn net.Conn, f frame) {})
	defer server.close()

	tp := connectTestTransport(t, server)
	ct := tp.(*clientTransport)

	poolSize := func() int {
		ct.connectionsMu.RLock()
		defer ct.connectionsMu.RUnlock()
		return len(ct.connections)
	}

	if got := poolSize(); got != 1 {
		t.Fatalf("Expected 1 initial connection, got %d", got)
	}

	if err := tp.EnsureChannelCount(3); err != nil {
		t.Fatalf("Failed to grow pool: %v", err)
	}
	if got := poolSize(); got != 3 {
		t.Errorf("Expected 3 connections after growth, got %d", got)
	}

	// Requesting fewer connections must not shrink the pool
	if err := tp.EnsureChannelCount(2); err != nil {
		t.Fatalf("EnsureChannelCount with smaller target failed: %v", err)
	}
	if got := poolSize(); got != 3 {
		t.Errorf("Expected pool to stay at 3 connections, got %d", got)
	}
}

func TestClientTransportConnectValidation(t *testing.T) {
	tp := NewBaseClientTransport(testConnector{})

	// No endpoints
	if err := tp.Connect(common.ClientConfig{}); err == nil {
		t.Errorf("Expected error for missing endpoints")
	}

	// Unreachable endpoint
	cfg := testClientConfig("127.0.0.1:1")
	if err := tp.Connect(cfg); err == nil {
		t.Errorf("Expected error for unreachable endpoint")
	}
}

func TestClientTransportStartTwice(t *testing.T) {
	server := newTestFrameServer(t, func(conn net.Conn, f frame) {
		if f.kind == frameOpen {
			writeFrame(conn, f.requestID, frameFinal, 0, 0, nil)
		}
	})
	defer server.close()

	tp := connectTestTransport(t, server)

	call, err := tp.NewCall()
	if err != nil {
		t.Fatalf("Failed to create call: %v", err)
	}

	listener := newTestListener()
	if err := call.Start(nil, 1, listener); err != nil {
		t.Fatalf("Failed to start call: %v", err)
	}
	if err := call.Start(nil, 1, listener); err == nil {
		t.Errorf("Expected error when starting a call twice")
	}

	if err := listener.waitDone(t); err != nil {
		t.Errorf("Expected clean completion, got: %v", err)
	}
}

func TestClientTransportClosedTransport(t *testing.T) {
	server := newTestFrameServer(t, func(conn net.Conn, f frame) {})
	tp := connectTestTransport(t, server)
	server.close()

	if err := tp.Close(); err != nil {
		t.Fatalf("Failed to close transport: %v", err)
	}
	if _, err := tp.NewCall(); err == nil {
		t.Errorf("Expected error creating a call on a closed transport")
	}
	if err := tp.EnsureChannelCount(2); err == nil {
		t.Errorf("Expected error growing a closed transport")
	}
}
