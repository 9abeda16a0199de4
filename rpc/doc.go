// Package rpc provides the remote procedure call layer of the dRow row-store
// client. It turns the table operations of lib/table into wire messages,
// moves them over a pluggable transport and drives retries, flow control and
// scan resumption on the client side.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, status codes, configuration structures,
//     and logging.
//
//   - transport: Network communication abstractions with pluggable
//     implementations (TCP, Unix sockets) exposing flow-controlled calls.
//
//   - serializer: Message serialization with multiple format options
//     (Binary, JSON, GOB) for converting between Message objects and byte
//     arrays.
//
//   - client: The client execution engine implementing lib/table's
//     ITableClient: idempotency classification, retrying call execution,
//     flow-controlled stream reading and resumable scans.
package rpc
