// Package tcp implements TCP socket-based transport for the row-store client's
// RPC system. It provides a concrete implementation of the base package's connector
// interface optimized for TCP connections.
//
// This package builds on the base package's transport functionality, inheriting its
// performance optimizations including connection pooling, frame routing and
// flow-controlled calls. See the base package documentation for detailed information
// on the underlying transport mechanisms and performance characteristics.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector. Its
//     connection upgrade applies the configured socket buffer sizes, keep-alive,
//     linger and no-delay options.
package tcp
