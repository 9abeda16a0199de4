// Package common provides core data structures and utilities shared across
// the row-store client. It defines fundamental types, configuration
// structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Status codes and the error type used by every rpc failure path
//   - Configuration structures for the client
//   - Custom logging implementation integrated with the dragonboat logger
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with a
//     flexible structure that adapts to different operation types.
//     Includes factory methods for creating various request and response
//     messages.
//
//   - MessageType: Enumeration defining all supported operation types,
//     categorized into mutation operations, read operations, and control
//     messages.
//
//   - Status / StatusCode: The error model of the client. Every failure is
//     classified by a status code; helpers decide transience (retryable) and
//     cancellation, and causes stay reachable via errors.Unwrap.
//
//   - ClientConfig: Configuration for the client, controlling connection
//     parameters, timeouts, retry behavior, and streaming flow control.
//
//   - Logger: Custom logging implementation that integrates with
//     dragonboat's logging system while providing consistent formatting
//     across the application.
package common
