package client

import (
	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
)

// --------------------------------------------------------------------------
// Row Merger
// --------------------------------------------------------------------------

// rowMerger assembles complete rows from the chunks of one response stream.
// A chunk with a row key opens a new row, a chunk with an empty key
// continues the open one. Commit completes the open row, Reset discards it.
// A row is never handed out before its Commit chunk arrived.
//
// The merger is stateful and belongs to exactly one stream. It is not safe
// for concurrent use.
type rowMerger struct {
	key   []byte
	cells []table.Cell
	open  bool
}

// Merge folds one chunk into the merger state. It returns a non-nil row
// exactly when the chunk completes one. Protocol violations (a continuation
// without an open row, a new key while a row is open) fail with an internal
// status because they indicate a corrupted stream.
func (m *rowMerger) Merge(chunk table.RowChunk) (*table.Row, error) {
	if chunk.Reset {
		if chunk.Commit {
			return nil, common.NewStatus(common.StatusInternal, "chunk carries both reset and commit")
		}
		m.clear()
		return nil, nil
	}

	switch {
	case len(chunk.RowKey) > 0 && !m.open:
		m.key = chunk.RowKey
		m.open = true
	case len(chunk.RowKey) > 0 && m.open:
		return nil, common.NewStatusf(common.StatusInternal,
			"chunk opens row %q while row %q is incomplete", chunk.RowKey, m.key)
	case !m.open:
		return nil, common.NewStatus(common.StatusInternal, "continuation chunk without an open row")
	}

	// A chunk without a column family carries no cell, it is a bare commit
	// or key marker
	if chunk.Family != "" {
		m.cells = append(m.cells, table.Cell{
			Family:          chunk.Family,
			Qualifier:       chunk.Qualifier,
			Value:           chunk.Value,
			TimestampMicros: chunk.TimestampMicros,
		})
	}

	if !chunk.Commit {
		return nil, nil
	}

	row := &table.Row{Key: m.key, Cells: m.cells}
	m.clear()
	return row, nil
}

// HasPartialRow reports whether a row is open but not yet committed. A
// stream that ends in this state lost data.
func (m *rowMerger) HasPartialRow() bool {
	return m.open
}

func (m *rowMerger) clear() {
	m.key = nil
	m.cells = nil
	m.open = false
}
