package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Single row mutation request
		{
			MsgType: common.MsgTMutateRow,
			Table:   "test-table",
			RowKey:  []byte("row-1"),
			Mutations: []table.Mutation{
				table.NewSetCellMutation("cf", []byte("col"), []byte("value"), 1000),
				table.NewDeleteFromColumnMutation("cf", []byte("old-col")),
				table.NewDeleteFromFamilyMutation("stale"),
			},
		},

		// Batch mutation request
		{
			MsgType: common.MsgTMutateRows,
			Table:   "test-table",
			Entries: []table.MutateRowsEntry{
				{
					RowKey: []byte("row-1"),
					Mutations: []table.Mutation{
						table.NewSetCellMutation("cf", []byte("a"), []byte("1"), 1000),
					},
				},
				{
					RowKey: []byte("row-2"),
					Mutations: []table.Mutation{
						table.NewSetCellMutation("cf", []byte("b"), []byte("2"), 2000),
						table.NewDeleteFromColumnMutation("cf", []byte("c")),
					},
				},
			},
		},

		// Batch mutation response
		{
			MsgType: common.MsgTMutateRows,
			Results: []table.EntryResult{
				{Code: 0, Err: ""},
				{Code: 14, Err: "entry failed"},
			},
		},

		// Conditional mutation request
		{
			MsgType: common.MsgTCheckAndMutateRow,
			Table:   "test-table",
			RowKey:  []byte("row-1"),
			Condition: &table.CellCondition{
				Family:      "cf",
				Qualifier:   []byte("col"),
				ValueEquals: []byte("expected"),
			},
			TrueMutations: []table.Mutation{
				table.NewSetCellMutation("cf", []byte("col"), []byte("new"), 3000),
			},
			FalseMutations: []table.Mutation{
				table.NewDeleteFromColumnMutation("cf", []byte("col")),
			},
		},

		// Conditional mutation response
		{
			MsgType: common.MsgTCheckAndMutateRow,
			Matched: true,
		},

		// Read-modify-write request with both rule kinds
		{
			MsgType: common.MsgTReadModifyWriteRow,
			Table:   "test-table",
			RowKey:  []byte("row-1"),
			Rules: []table.ReadModifyWriteRule{
				{Family: "cf", Qualifier: []byte("log"), AppendValue: []byte("-suffix")},
				{Family: "cf", Qualifier: []byte("counter"), IncrementAmount: -7},
			},
		},

		// Read-modify-write response carrying the resulting row
		{
			MsgType: common.MsgTReadModifyWriteRow,
			Row: &table.Row{
				Key: []byte("row-1"),
				Cells: []table.Cell{
					{Family: "cf", Qualifier: []byte("log"), Value: []byte("entry-suffix"), TimestampMicros: 4000},
					{Family: "cf", Qualifier: []byte("counter"), Value: []byte{0, 0, 0, 0, 0, 0, 0, 35}, TimestampMicros: 4000},
				},
			},
		},

		// Key sampling request
		{
			MsgType: common.MsgTSampleRowKeys,
			Table:   "test-table",
		},

		// Point read request
		{
			MsgType: common.MsgTReadRows,
			Table:   "test-table",
			RowKey:  []byte("row-1"),
			Limit:   1,
		},

		// Range read request
		{
			MsgType:  common.MsgTReadRows,
			Table:    "test-table",
			StartKey: []byte("row-1"),
			EndKey:   []byte("row-9"),
			Limit:    100,
		},

		// Chunk batch with a continuation chunk and a reset chunk
		{
			MsgType: common.MsgTChunk,
			Chunks: []table.RowChunk{
				{RowKey: []byte("row-1"), Family: "cf", Qualifier: []byte("a"), Value: []byte("1"), TimestampMicros: 1000},
				{Family: "cf", Qualifier: []byte("b"), Value: []byte("2"), TimestampMicros: 1000, Commit: true},
				{RowKey: []byte("row-2"), Family: "cf", Qualifier: []byte("c"), Value: []byte("3"), TimestampMicros: 2000, Reset: true},
			},
		},

		// Key sample batch
		{
			MsgType: common.MsgTSamples,
			Samples: []table.SampleRowKey{
				{RowKey: []byte("row-5"), OffsetBytes: 1024},
				{RowKey: []byte("row-9"), OffsetBytes: 2048},
			},
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Code:    14,
			Err:     "test error message",
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTSamples; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty strings and zero values",
			msg: common.Message{
				MsgType: common.MsgTReadRows,
				Table:   "",
				RowKey:  nil,
				Limit:   0,
			},
		},
		{
			name: "Delete row mutation",
			msg: common.Message{
				MsgType:   common.MsgTMutateRow,
				Table:     "t",
				RowKey:    []byte("row-1"),
				Mutations: []table.Mutation{table.NewDeleteFromRowMutation()},
			},
		},
		{
			name: "Existence check condition without value",
			msg: common.Message{
				MsgType: common.MsgTCheckAndMutateRow,
				Table:   "t",
				RowKey:  []byte("row-1"),
				Condition: &table.CellCondition{
					Family:    "cf",
					Qualifier: []byte("col"),
				},
				TrueMutations: []table.Mutation{
					table.NewSetCellMutation("cf", []byte("col"), []byte("v"), 1000),
				},
			},
		},
		{
			name: "Negative cell timestamp",
			msg: common.Message{
				MsgType: common.MsgTMutateRow,
				Table:   "t",
				RowKey:  []byte("row-1"),
				Mutations: []table.Mutation{
					table.NewSetCellMutation("cf", []byte("col"), []byte("v"), table.ServerTime),
				},
			},
		},
		{
			name: "Empty mutation list",
			msg: common.Message{
				MsgType:   common.MsgTMutateRow,
				Table:     "t",
				RowKey:    []byte("row-1"),
				Mutations: []table.Mutation{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Message doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
					tc.msg, result)
			}
		})
	}
}

// TestBinarySerializerRejectsInvalidMutation tests that a mutation without a
// variant cannot be serialized
func TestBinarySerializerRejectsInvalidMutation(t *testing.T) {
	serializer := NewBinarySerializer()

	msg := common.Message{
		MsgType:   common.MsgTMutateRow,
		Table:     "t",
		RowKey:    []byte("row-1"),
		Mutations: []table.Mutation{{}},
	}

	if _, err := serializer.Serialize(msg); err == nil {
		t.Errorf("Expected error for mutation without variant but got none")
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1, 0, 0}, // Message type plus truncated flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0, 0, 0, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for table",
			data:        []byte{3, 0, 0, 0, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims table length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for row key",
			data:        []byte{3, 0, 0, 0, 2, 0, 0, 0, 10}, // Claims row key length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Truncated mutation list",
			data:        []byte{3, 0, 0, 0, 4, 0, 0, 0, 1}, // Claims one mutation but no tag follows
			expectError: true,
		},
		{
			name:        "Unknown mutation tag",
			data:        []byte{3, 0, 0, 0, 4, 0, 0, 0, 1, 9, 0}, // Mutation tag 9 does not exist
			expectError: true,
		},
		{
			name:        "Absurd chunk count",
			data:        []byte{9, 0, 0, 64, 0, 0xFF, 0xFF, 0xFF, 0xFF}, // Chunk count larger than the data
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
