// Package base provides a foundation for transport layers in the row-store client,
// implementing core functionality for RPC communication independent of the specific
// network protocol (TCP, Unix sockets, etc.). It serves as a base layer that can be
// extended with protocol-specific connectors.
//
// The package focuses on:
//   - Protocol-agnostic client transport implementation
//   - Performance optimization through connection pooling
//   - Frame-based wire protocol with per-call flow control
//   - Automatic routing of response frames to their calls
//   - Robust error handling with backoff-based reconnection
//
// Key Components:
//
//   - IClientConnector: Interface for protocol-specific operations that allows
//     extending the base transport with different network protocols.
//
//   - clientTransport: Core client implementation that manages multiple connections
//     with round-robin load balancing. Supports multiple connections per endpoint
//     and can grow the pool at runtime for scan-heavy workloads.
//
//   - clientCall: One in-flight exchange. Calls are multiplexed over their
//     connection by request ID; chunk frames stream in until a terminal final or
//     error frame arrives, and credit frames pace the server.
//
// Wire Protocol:
//
//	Every frame starts with a fixed 21 byte header (request ID, frame kind,
//	meta, credit, payload length) followed by the payload. Clients send open,
//	credit and cancel frames; servers answer with chunk frames terminated by a
//	final or error frame. The credit field of an open frame carries the initial
//	flow control window, error frames carry their status code in the meta field.
//
// Performance Optimizations:
//
//   - Connection Pooling: Multiple connections per endpoint improve throughput
//     for high-load scenarios. This is particularly beneficial for scans where
//     connection saturation becomes a bottleneck. For small point reads, a
//     single connection per endpoint may actually perform better due to reduced
//     overhead.
//
//   - Asynchronous Processing: Each connection has one reader goroutine that
//     routes incoming frames to their calls by request ID, enabling many
//     concurrent calls per connection.
//
//   - Frame Batching: The transport uses net.Buffers to reduce syscalls when
//     writing frames, combining header and payload into a single write operation.
//
// Thread Safety:
//
//	All public methods are thread-safe. The transport uses atomic operations
//	and mutexes to ensure concurrent access safety, and every call delivers
//	its terminal listener event exactly once.
package base
