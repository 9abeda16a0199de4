package table

import "context"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ITableClient is the blocking interface for interacting with a remote row
// store. All methods honor ctx: when it is cancelled or times out while a
// call is in flight, the call is cancelled on the wire and a cancelled
// error is returned. Errors returned by implementations carry status codes
// as defined by the rpc layer.
type ITableClient interface {
	// MutateRow atomically applies the given mutations to one row.
	MutateRow(ctx context.Context, rowKey []byte, mutations []Mutation) error
	// MutateRows applies a batch of independent per-row mutations. The
	// returned slice holds one result per entry in input order. A nil
	// error means the batch was executed, not that every entry succeeded.
	MutateRows(ctx context.Context, entries []MutateRowsEntry) ([]EntryResult, error)
	// CheckAndMutateRow evaluates condition against the row and applies
	// trueMutations when it matches, falseMutations otherwise. The boolean
	// return value reports whether the condition matched.
	CheckAndMutateRow(ctx context.Context, rowKey []byte, condition *CellCondition, trueMutations, falseMutations []Mutation) (matched bool, err error)
	// ReadModifyWriteRow atomically applies delta rules (append or
	// increment) to one row and returns the resulting cells.
	ReadModifyWriteRow(ctx context.Context, rowKey []byte, rules []ReadModifyWriteRule) (*Row, error)
	// SampleRowKeys returns row keys that approximately divide the table
	// into equally sized shards.
	SampleRowKeys(ctx context.Context) ([]SampleRowKey, error)
	// ReadRow reads a single row. It returns (nil, nil) if the row does
	// not exist.
	ReadRow(ctx context.Context, rowKey []byte) (*Row, error)
	// ReadRows starts a scan and returns a scanner over the matching rows.
	// The scanner must be closed; closing cancels any live network call.
	ReadRows(ctx context.Context, query ReadQuery) (IResultScanner, error)
	// ReadAllRows runs the query to completion and returns every matching
	// row. Unlike ReadRows it buffers the full result, so it is only
	// suitable for queries with a bounded result size.
	ReadAllRows(ctx context.Context, query ReadQuery) ([]*Row, error)
	// Close releases the client's transport resources. The client must not
	// be used afterwards.
	Close() error
}

// IResultScanner iterates over the rows of one scan in key order. Next
// blocks until a row is available and returns it with ok = true; at the
// end of the scan it returns (nil, false, nil), and after a failure
// (nil, false, err). Once Next returned ok = false it keeps doing so.
type IResultScanner interface {
	Next() (row *Row, ok bool, err error)
	// Close stops the scan and cancels any live network call. Rows already
	// returned by Next are unaffected. Close is idempotent.
	Close() error
}
