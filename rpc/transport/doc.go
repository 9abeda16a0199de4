// Package transport defines the interfaces and abstractions for RPC communication
// in the row-store client. It provides a common contract that all transport
// implementations must fulfill, enabling protocol-agnostic communication.
//
// The package focuses on:
//   - Defining clear interfaces for the client transport layer
//   - Modelling streamed responses as flow-controlled calls
//   - Enabling multiple transport implementations (TCP, Unix sockets)
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection pooling and call creation.
//
//   - ICall: A single request/response exchange. Responses arrive as a stream of
//     chunk frames terminated by a final or error frame, paced by credit grants.
//
//   - ICallListener: Callback interface receiving the chunk and terminal events
//     of one call.
package transport
