package table

import (
	"bytes"
	"fmt"
)

// ServerTime is the sentinel timestamp for SetCell mutations that lets the
// server assign the cell timestamp at apply time. Mutations carrying it are
// not safe to retry: two attempts would create two distinct cells.
const ServerTime int64 = -1

// --------------------------------------------------------------------------
// Rows and Cells
// --------------------------------------------------------------------------

// Cell is a single versioned value within a row.
type Cell struct {
	Family          string // Column family name
	Qualifier       []byte // Column qualifier within the family
	Value           []byte // Cell payload
	TimestampMicros int64  // Cell version in microseconds since the epoch
}

// Row is an ordered, keyed collection of cells. A row value handed to
// application code is always complete: partially merged rows never leave
// the rpc layer.
type Row struct {
	Key   []byte
	Cells []Cell
}

// CellsByFamily groups the row's cells by column family, preserving the
// per-family cell order.
func (r *Row) CellsByFamily() map[string][]Cell {
	if r == nil {
		return nil
	}
	families := make(map[string][]Cell)
	for _, c := range r.Cells {
		families[c.Family] = append(families[c.Family], c)
	}
	return families
}

// RowChunk is the wire unit of row streaming. A chunk carries at most one
// cell. An empty RowKey continues the row opened by a previous chunk;
// Commit marks the row complete and Reset discards all uncommitted chunks
// of the current row.
type RowChunk struct {
	RowKey          []byte
	Family          string
	Qualifier       []byte
	Value           []byte
	TimestampMicros int64
	Commit          bool
	Reset           bool
}

// SampleRowKey is one entry of a key sampling response: a row key that
// approximately splits the table into equally sized shards, together with
// the cumulative table offset it represents.
type SampleRowKey struct {
	RowKey      []byte
	OffsetBytes int64
}

// --------------------------------------------------------------------------
// Mutations
// --------------------------------------------------------------------------

// Mutation describes one change to a single row. Exactly one of the variant
// fields is non-nil; use the New*Mutation constructors to build well-formed
// values.
type Mutation struct {
	SetCell          *SetCellMutation
	DeleteFromColumn *DeleteFromColumnMutation
	DeleteFromFamily *DeleteFromFamilyMutation
	DeleteFromRow    *DeleteFromRowMutation
}

// SetCellMutation writes one cell. TimestampMicros must be a positive
// explicit timestamp or the ServerTime sentinel.
type SetCellMutation struct {
	Family          string
	Qualifier       []byte
	Value           []byte
	TimestampMicros int64
}

// DeleteFromColumnMutation deletes all cells of one column.
type DeleteFromColumnMutation struct {
	Family    string
	Qualifier []byte
}

// DeleteFromFamilyMutation deletes all cells of one column family.
type DeleteFromFamilyMutation struct {
	Family string
}

// DeleteFromRowMutation deletes the entire row.
type DeleteFromRowMutation struct{}

// NewSetCellMutation creates a mutation writing one cell with an explicit
// timestamp in microseconds. Pass ServerTime to let the server assign the
// timestamp (which makes the mutation unsafe to retry).
func NewSetCellMutation(family string, qualifier, value []byte, timestampMicros int64) Mutation {
	return Mutation{SetCell: &SetCellMutation{
		Family:          family,
		Qualifier:       qualifier,
		Value:           value,
		TimestampMicros: timestampMicros,
	}}
}

// NewDeleteFromColumnMutation creates a mutation deleting one column.
func NewDeleteFromColumnMutation(family string, qualifier []byte) Mutation {
	return Mutation{DeleteFromColumn: &DeleteFromColumnMutation{
		Family:    family,
		Qualifier: qualifier,
	}}
}

// NewDeleteFromFamilyMutation creates a mutation deleting one column family.
func NewDeleteFromFamilyMutation(family string) Mutation {
	return Mutation{DeleteFromFamily: &DeleteFromFamilyMutation{Family: family}}
}

// NewDeleteFromRowMutation creates a mutation deleting the whole row.
func NewDeleteFromRowMutation() Mutation {
	return Mutation{DeleteFromRow: &DeleteFromRowMutation{}}
}

// Validate checks that exactly one variant field is set.
func (m Mutation) Validate() error {
	count := 0
	if m.SetCell != nil {
		count++
	}
	if m.DeleteFromColumn != nil {
		count++
	}
	if m.DeleteFromFamily != nil {
		count++
	}
	if m.DeleteFromRow != nil {
		count++
	}
	if count != 1 {
		return fmt.Errorf("mutation must set exactly one variant, got %d", count)
	}
	return nil
}

// MutateRowsEntry is one row's worth of mutations within a batch request.
type MutateRowsEntry struct {
	RowKey    []byte
	Mutations []Mutation
}

// EntryResult is the per-entry outcome of a batch mutation. Code is a
// status code as defined by the rpc layer, zero meaning success.
type EntryResult struct {
	Code uint32
	Err  string
}

// CellCondition is the predicate of a conditional mutation: it matches when
// the addressed column has at least one cell and, if ValueEquals is
// non-nil, its most recent cell value equals it byte for byte.
type CellCondition struct {
	Family      string
	Qualifier   []byte
	ValueEquals []byte
}

// ReadModifyWriteRule describes one delta operation of a read-modify-write
// request: either append AppendValue to the latest cell of the addressed
// column, or add IncrementAmount to its value interpreted as a big-endian
// 64-bit integer. Exactly one of the two actions is set per rule
// (a non-nil AppendValue selects append).
type ReadModifyWriteRule struct {
	Family          string
	Qualifier       []byte
	AppendValue     []byte
	IncrementAmount int64
}

// --------------------------------------------------------------------------
// Read Queries
// --------------------------------------------------------------------------

// RowRange is a half-open key interval [StartKey, EndKey). An empty
// StartKey starts at the first row, an empty EndKey scans to the last.
type RowRange struct {
	StartKey []byte
	EndKey   []byte
}

// Contains reports whether key falls inside the range.
func (r RowRange) Contains(key []byte) bool {
	if len(r.StartKey) > 0 && bytes.Compare(key, r.StartKey) < 0 {
		return false
	}
	if len(r.EndKey) > 0 && bytes.Compare(key, r.EndKey) >= 0 {
		return false
	}
	return true
}

// ReadQuery describes one read operation: a point lookup when RowKey is
// set, otherwise a scan over Range. Limit caps the number of returned rows
// (zero means unlimited) and only applies to scans.
type ReadQuery struct {
	RowKey []byte
	Range  RowRange
	Limit  int64
}

// IsGet reports whether the query addresses a single row.
func (q ReadQuery) IsGet() bool {
	return len(q.RowKey) > 0
}

// Validate rejects queries that mix point and range addressing or carry a
// negative limit.
func (q ReadQuery) Validate() error {
	if q.Limit < 0 {
		return fmt.Errorf("row limit must not be negative, got %d", q.Limit)
	}
	if q.IsGet() && (len(q.Range.StartKey) > 0 || len(q.Range.EndKey) > 0) {
		return fmt.Errorf("query must set either a row key or a range, not both")
	}
	return nil
}

// SuccessorKey returns the smallest key strictly greater than key: the key
// with a zero byte appended. Scan resumption uses it to exclude every key
// up to and including the last delivered one.
func SuccessorKey(key []byte) []byte {
	next := make([]byte, len(key)+1)
	copy(next, key)
	return next
}
