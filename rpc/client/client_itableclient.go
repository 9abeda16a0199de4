package client

import (
	"context"

	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
)

var _ table.ITableClient = (*RPCTableClient)(nil)

// --------------------------------------------------------------------------
// Interface Methods (docu see the table package in interface.go)
// --------------------------------------------------------------------------

func (c *RPCTableClient) MutateRow(ctx context.Context, rowKey []byte, mutations []table.Mutation) error {
	_, err := await(ctx, c.MutateRowAsync(ctx, rowKey, mutations))
	return err
}

func (c *RPCTableClient) MutateRows(ctx context.Context, entries []table.MutateRowsEntry) ([]table.EntryResult, error) {
	return await(ctx, c.MutateRowsAsync(ctx, entries))
}

func (c *RPCTableClient) CheckAndMutateRow(ctx context.Context, rowKey []byte, condition *table.CellCondition, trueMutations, falseMutations []table.Mutation) (bool, error) {
	return await(ctx, c.CheckAndMutateRowAsync(ctx, rowKey, condition, trueMutations, falseMutations))
}

func (c *RPCTableClient) ReadModifyWriteRow(ctx context.Context, rowKey []byte, rules []table.ReadModifyWriteRule) (*table.Row, error) {
	return await(ctx, c.ReadModifyWriteRowAsync(ctx, rowKey, rules))
}

func (c *RPCTableClient) SampleRowKeys(ctx context.Context) ([]table.SampleRowKey, error) {
	return await(ctx, c.SampleRowKeysAsync(ctx))
}

func (c *RPCTableClient) ReadRow(ctx context.Context, rowKey []byte) (*table.Row, error) {
	return c.readRow(ctx, rowKey, NewCancelToken())
}

func (c *RPCTableClient) ReadRows(ctx context.Context, query table.ReadQuery) (table.IResultScanner, error) {
	return c.openScanner(ctx, query, NewCancelToken())
}

func (c *RPCTableClient) ReadAllRows(ctx context.Context, query table.ReadQuery) ([]*table.Row, error) {
	return c.readAllRows(ctx, query, NewCancelToken())
}

// --------------------------------------------------------------------------
// Shared Read Paths
// --------------------------------------------------------------------------

// readRow reads one row via a point query. A missing row is (nil, nil).
func (c *RPCTableClient) readRow(ctx context.Context, rowKey []byte, token *CancelToken) (*table.Row, error) {
	if len(rowKey) == 0 {
		return nil, common.NewStatus(common.StatusInvalidArgument, "row key must not be empty")
	}
	sc, err := c.openScanner(ctx, table.ReadQuery{RowKey: rowKey}, token)
	if err != nil {
		return nil, err
	}
	defer sc.Close()

	row, ok, err := sc.Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return row, nil
}

// readAllRows drains a scan into memory.
func (c *RPCTableClient) readAllRows(ctx context.Context, query table.ReadQuery, token *CancelToken) ([]*table.Row, error) {
	sc, err := c.openScanner(ctx, query, token)
	if err != nil {
		return nil, err
	}
	defer sc.Close()

	var rows []*table.Row
	for {
		row, ok, err := sc.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}
