package client

import (
	"context"

	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
)

// --------------------------------------------------------------------------
// Call Wiring
// --------------------------------------------------------------------------

// startCall runs one logical request on its own goroutine, driven by the
// retry executor, and resolves the returned future with the outcome. The
// request's idempotency is classified once, up front, and stays fixed for
// all attempts.
func startCall[T any](c *RPCTableClient, ctx context.Context, req *common.Message, attempt func(ctx context.Context, token *CancelToken) (T, error)) *Future[T] {
	c.ensureChannels()
	token := NewCancelToken()
	fut := newFuture[T](token)
	retryable := IsIdempotent(req)

	go func() {
		result, err := runWithRetries(ctx, c.exec, req.MsgType, retryable, token, func(ctx context.Context) (T, error) {
			return attempt(ctx, token)
		})
		fut.resolve(result, err)
	}()
	return fut
}

// startUnary is startCall for single-response requests.
func startUnary[T any](c *RPCTableClient, ctx context.Context, req *common.Message, convert func(resp *common.Message) T) *Future[T] {
	return startCall(c, ctx, req, func(ctx context.Context, token *CancelToken) (T, error) {
		var zero T
		resp, err := c.invokeUnary(ctx, req, token)
		if err != nil {
			return zero, err
		}
		return convert(resp), nil
	})
}

// --------------------------------------------------------------------------
// Asynchronous Client Methods
// --------------------------------------------------------------------------

// MutateRowAsync is the future-returning variant of MutateRow.
func (c *RPCTableClient) MutateRowAsync(ctx context.Context, rowKey []byte, mutations []table.Mutation) *Future[struct{}] {
	req := common.NewMutateRowRequest(c.config.Table, rowKey, mutations)
	return startUnary(c, ctx, req, func(*common.Message) struct{} { return struct{}{} })
}

// MutateRowsAsync is the future-returning variant of MutateRows.
func (c *RPCTableClient) MutateRowsAsync(ctx context.Context, entries []table.MutateRowsEntry) *Future[[]table.EntryResult] {
	req := common.NewMutateRowsRequest(c.config.Table, entries)
	return startUnary(c, ctx, req, func(resp *common.Message) []table.EntryResult { return resp.Results })
}

// CheckAndMutateRowAsync is the future-returning variant of
// CheckAndMutateRow.
func (c *RPCTableClient) CheckAndMutateRowAsync(ctx context.Context, rowKey []byte, condition *table.CellCondition, trueMutations, falseMutations []table.Mutation) *Future[bool] {
	req := common.NewCheckAndMutateRowRequest(c.config.Table, rowKey, condition, trueMutations, falseMutations)
	return startUnary(c, ctx, req, func(resp *common.Message) bool { return resp.Matched })
}

// ReadModifyWriteRowAsync is the future-returning variant of
// ReadModifyWriteRow.
func (c *RPCTableClient) ReadModifyWriteRowAsync(ctx context.Context, rowKey []byte, rules []table.ReadModifyWriteRule) *Future[*table.Row] {
	req := common.NewReadModifyWriteRowRequest(c.config.Table, rowKey, rules)
	return startUnary(c, ctx, req, func(resp *common.Message) *table.Row { return resp.Row })
}

// SampleRowKeysAsync is the future-returning variant of SampleRowKeys. The
// whole sample stream is collected per attempt; a mid-stream failure
// discards the partial result so a retry starts clean.
func (c *RPCTableClient) SampleRowKeysAsync(ctx context.Context) *Future[[]table.SampleRowKey] {
	req := common.NewSampleRowKeysRequest(c.config.Table)
	return startCall(c, ctx, req, func(ctx context.Context, token *CancelToken) ([]table.SampleRowKey, error) {
		return c.collectSamples(ctx, req, token)
	})
}

// ReadRowAsync is the future-returning variant of ReadRow.
func (c *RPCTableClient) ReadRowAsync(ctx context.Context, rowKey []byte) *Future[*table.Row] {
	token := NewCancelToken()
	fut := newFuture[*table.Row](token)
	go func() {
		fut.resolve(c.readRow(ctx, rowKey, token))
	}()
	return fut
}

// ReadAllRowsAsync is the future-returning variant of ReadAllRows.
func (c *RPCTableClient) ReadAllRowsAsync(ctx context.Context, query table.ReadQuery) *Future[[]*table.Row] {
	token := NewCancelToken()
	fut := newFuture[[]*table.Row](token)
	go func() {
		fut.resolve(c.readAllRows(ctx, query, token))
	}()
	return fut
}
