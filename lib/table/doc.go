// Package table defines the data model and the client interface for a
// remote row store: rows addressed by a byte key, holding cells grouped
// into column families, each cell carrying a qualifier, a value and a
// timestamp in microseconds.
//
// The package focuses on:
//   - Pure data types shared by the rpc layer and by applications
//     (Row, Cell, Mutation, ReadQuery, ...)
//   - A unified client interface (ITableClient) for all table operations,
//     implemented by the rpc/client package
//   - A pull-based scanner interface (IResultScanner) for range reads
//
// Key Components:
//
//   - Mutation: a tagged variant describing one change to a row. Exactly
//     one of its fields is set. SetCell mutations carry an explicit cell
//     timestamp or the ServerTime sentinel; the distinction matters for
//     retry safety and is evaluated by the rpc layer.
//
//   - ReadQuery: describes either a point lookup (RowKey set) or a scan
//     over a half-open key range with an optional row limit.
//
//   - ITableClient: the blocking client surface. Implementations handle
//     retries, flow control and scan resumption internally; see the
//     rpc/client package for the canonical implementation and its
//     future-returning variants.
//
// The package has no dependencies on the rpc layer, so applications can
// construct and inspect all model values without pulling in transport
// code.
package table
