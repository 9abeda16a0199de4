package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dRow/lib/table"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request addressing
	Table  string `json:"table,omitempty"`   // Target table, set on every request
	RowKey []byte `json:"row_key,omitempty"` // Used for: MutateRow, CheckAndMutateRow, ReadModifyWriteRow, point ReadRows

	// Mutation payloads
	Mutations      []table.Mutation            `json:"mutations,omitempty"`       // Used for: MutateRow
	Entries        []table.MutateRowsEntry     `json:"entries,omitempty"`         // Used for: MutateRows
	Condition      *table.CellCondition        `json:"condition,omitempty"`       // Used for: CheckAndMutateRow
	TrueMutations  []table.Mutation            `json:"true_mutations,omitempty"`  // Used for: CheckAndMutateRow
	FalseMutations []table.Mutation            `json:"false_mutations,omitempty"` // Used for: CheckAndMutateRow
	Rules          []table.ReadModifyWriteRule `json:"rules,omitempty"`           // Used for: ReadModifyWriteRow

	// Range read fields
	StartKey []byte `json:"start_key,omitempty"` // Used for: ReadRows (inclusive)
	EndKey   []byte `json:"end_key,omitempty"`   // Used for: ReadRows (exclusive, empty = unbounded)
	Limit    int64  `json:"limit,omitempty"`     // Used for: ReadRows (0 = unlimited)

	// Response only fields
	Row     *table.Row           `json:"row,omitempty"`     // Used for: ReadModifyWriteRow response
	Matched bool                 `json:"matched,omitempty"` // Used for: CheckAndMutateRow response
	Results []table.EntryResult  `json:"results,omitempty"` // Used for: MutateRows response, one per entry
	Chunks  []table.RowChunk     `json:"chunks,omitempty"`  // Used for: ReadRows stream responses
	Samples []table.SampleRowKey `json:"samples,omitempty"` // Used for: SampleRowKeys stream responses

	// Error reporting
	Code uint32 `json:"code,omitempty"` // Status code, used for: Error responses
	Err  string `json:"err,omitempty"`  // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewMutateRowRequest creates a new MutateRow request
func NewMutateRowRequest(tbl string, rowKey []byte, mutations []table.Mutation) *Message {
	return &Message{
		MsgType:   MsgTMutateRow,
		Table:     tbl,
		RowKey:    rowKey,
		Mutations: mutations,
	}
}

// NewMutateRowsRequest creates a new MutateRows (batch) request
func NewMutateRowsRequest(tbl string, entries []table.MutateRowsEntry) *Message {
	return &Message{
		MsgType: MsgTMutateRows,
		Table:   tbl,
		Entries: entries,
	}
}

// NewMutateRowsResponse creates a new MutateRows response carrying one
// result per request entry, in entry order
func NewMutateRowsResponse(results []table.EntryResult) *Message {
	return &Message{
		MsgType: MsgTMutateRows,
		Results: results,
	}
}

// NewCheckAndMutateRowRequest creates a new CheckAndMutateRow request
func NewCheckAndMutateRowRequest(tbl string, rowKey []byte, condition *table.CellCondition, trueMutations, falseMutations []table.Mutation) *Message {
	return &Message{
		MsgType:        MsgTCheckAndMutateRow,
		Table:          tbl,
		RowKey:         rowKey,
		Condition:      condition,
		TrueMutations:  trueMutations,
		FalseMutations: falseMutations,
	}
}

// NewCheckAndMutateRowResponse creates a new CheckAndMutateRow response
func NewCheckAndMutateRowResponse(matched bool) *Message {
	return &Message{
		MsgType: MsgTCheckAndMutateRow,
		Matched: matched,
	}
}

// NewReadModifyWriteRowRequest creates a new ReadModifyWriteRow request
func NewReadModifyWriteRowRequest(tbl string, rowKey []byte, rules []table.ReadModifyWriteRule) *Message {
	return &Message{
		MsgType: MsgTReadModifyWriteRow,
		Table:   tbl,
		RowKey:  rowKey,
		Rules:   rules,
	}
}

// NewReadModifyWriteRowResponse creates a new ReadModifyWriteRow response
// carrying the row as it looks after the rules were applied
func NewReadModifyWriteRowResponse(row *table.Row) *Message {
	return &Message{
		MsgType: MsgTReadModifyWriteRow,
		Row:     row,
	}
}

// NewSampleRowKeysRequest creates a new SampleRowKeys request
func NewSampleRowKeysRequest(tbl string) *Message {
	return &Message{
		MsgType: MsgTSampleRowKeys,
		Table:   tbl,
	}
}

// NewReadRowsRequest creates a new ReadRows request from a query
func NewReadRowsRequest(tbl string, query table.ReadQuery) *Message {
	return &Message{
		MsgType:  MsgTReadRows,
		Table:    tbl,
		RowKey:   query.RowKey,
		StartKey: query.Range.StartKey,
		EndKey:   query.Range.EndKey,
		Limit:    query.Limit,
	}
}

// NewChunkResponse creates one streamed ReadRows response carrying a batch
// of row chunks
func NewChunkResponse(chunks []table.RowChunk) *Message {
	return &Message{
		MsgType: MsgTChunk,
		Chunks:  chunks,
	}
}

// NewSamplesResponse creates one streamed SampleRowKeys response carrying a
// batch of key samples
func NewSamplesResponse(samples []table.SampleRowKey) *Message {
	return &Message{
		MsgType: MsgTSamples,
		Samples: samples,
	}
}

// NewSuccessResponse creates an empty success response
func NewSuccessResponse() *Message {
	return &Message{
		MsgType: MsgTSuccess,
	}
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code StatusCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    uint32(code),
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTMutateRow:
		return "mutateRow"
	case MsgTMutateRows:
		return "mutateRows"
	case MsgTCheckAndMutateRow:
		return "checkAndMutateRow"
	case MsgTReadModifyWriteRow:
		return "readModifyWriteRow"
	case MsgTSampleRowKeys:
		return "sampleRowKeys"
	case MsgTReadRows:
		return "readRows"
	case MsgTChunk:
		return "chunk"
	case MsgTSamples:
		return "samples"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "mutateRow":
		*t = MsgTMutateRow
	case "mutateRows":
		*t = MsgTMutateRows
	case "checkAndMutateRow":
		*t = MsgTCheckAndMutateRow
	case "readModifyWriteRow":
		*t = MsgTReadModifyWriteRow
	case "sampleRowKeys":
		*t = MsgTSampleRowKeys
	case "readRows":
		*t = MsgTReadRows
	case "chunk":
		*t = MsgTChunk
	case "samples":
		*t = MsgTSamples
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Table mutation operations

	MsgTMutateRow          // Atomically mutate a single row
	MsgTMutateRows         // Mutate a batch of rows
	MsgTCheckAndMutateRow  // Conditionally mutate a single row
	MsgTReadModifyWriteRow // Apply append/increment rules to a single row

	// Table read operations

	MsgTSampleRowKeys // Sample the table's row keys (streamed)
	MsgTReadRows      // Read a row or a row range (streamed)

	// Streaming response frames

	MsgTChunk   // One batch of row chunks within a ReadRows stream
	MsgTSamples // One batch of key samples within a SampleRowKeys stream
)
