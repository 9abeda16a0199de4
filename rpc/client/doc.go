// Package client implements the execution engine of the row-store RPC
// client: it issues unary and streaming calls over the transport, decides
// which failed calls are safe to retry, bounds memory while streaming large
// scans, and resumes interrupted scans without surfacing the failure.
//
// The package focuses on:
//   - Retrying transient failures only when a repeat cannot duplicate writes
//   - Credit-based backpressure for row streams
//   - Transparent resumption of broken scans, exactly once per row
//   - Cooperative cancellation down to the live network call
//
// Key Components:
//
//   - NewRPCTableClient: Factory function that creates a client implementing
//     the table.ITableClient interface. Every blocking method has an Async
//     counterpart returning a Future that can be cancelled.
//
//   - IsIdempotent: Pure classification of a request's retry safety. A
//     mutation is only retried when every change carries an explicit
//     positive timestamp; read-modify-write requests are never retried.
//
//   - CancelToken: Links external stop signals (scanner close, abandoned
//     future, context expiry) to the cancel operation of the live call.
//
//   - responseQueueReader: Bridges the transport's push delivery to a pull
//     interface with a bounded buffer, credit grants, and a per-chunk
//     timeout.
//
//   - resumingResultScanner: Re-issues a failed scan narrowed to start
//     after the last delivered row key, so callers never see duplicates,
//     gaps, or recoverable errors.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  Table:         "metrics",
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:5000"},
//	    ConnectionsPerEndpoint: 1,
//	  },
//	  Retry: common.DefaultRetryOptions(),
//	}
//
//	// Create the client
//	c, _ := client.NewRPCTableClient(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	defer c.Close()
//
//	// Write a cell with an explicit timestamp so the call may be retried
//	_ = c.MutateRow(ctx, []byte("row-1"), []table.Mutation{
//	  table.NewSetCellMutation("f", []byte("q"), []byte("v"), time.Now().UnixMicro()),
//	})
//
//	// Scan a key range
//	sc, _ := c.ReadRows(ctx, table.ReadQuery{Range: table.RowRange{StartKey: []byte("a")}})
//	defer sc.Close()
//	for {
//	  row, ok, err := sc.Next()
//	  if err != nil || !ok {
//	    break
//	  }
//	  process(row)
//	}
//
// Performance Considerations:
//
//   - Point lookups run with minimal streaming credit to keep latency low;
//     range scans use the configured batch and buffer sizes to maximize
//     throughput. Raise StreamingBatchSize for wide scans over fast links.
//
//   - Retried attempts share the connection pool with everything else. For
//     workloads with many concurrent calls, increasing
//     ConnectionsPerEndpoint reduces head-of-line blocking.
//
// Thread Safety:
//
//	The client is safe for concurrent use. Scanners support one consumer;
//	only Close may be called from another goroutine.
package client
