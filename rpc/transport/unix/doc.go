// Package unix implements a transport layer for the row-store client's
// RPC system using Unix domain sockets. It provides optimized communication for
// processes running on the same machine.
//
// This package extends the base transport layer with a Unix socket-specific
// connector while inheriting all core functionality like connection pooling,
// frame routing and flow-controlled calls from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets. Its
//     connection upgrade applies the configured socket buffer sizes; the TCP
//     options do not apply.
//
// Performance Characteristics:
//
//   - Reduced overhead: Eliminates TCP/IP stack processing for better performance
//   - Lower latency: Direct kernel-mediated IPC avoids network subsystem overhead
package unix
