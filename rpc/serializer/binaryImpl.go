package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dRow/lib/table"
	"github.com/ValentinKolb/dRow/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasTable uint32 = 1 << iota
	hasRowKey
	hasMutations
	hasEntries
	hasCondition
	hasTrueMutations
	hasFalseMutations
	hasRules
	hasStartKey
	hasEndKey
	hasLimit
	hasRow
	hasMatched
	hasResults
	hasChunks
	hasSamples
	hasCode
	hasErr
)

// Mutation variant tags
const (
	mutTagSetCell byte = iota
	mutTagDeleteColumn
	mutTagDeleteFamily
	mutTagDeleteRow
)

// Chunk flag bits
const (
	chunkFlagCommit byte = 1 << 0
	chunkFlagReset  byte = 1 << 1
)

// headerSize is 1 byte for MsgType plus 4 bytes for the presence flags
const headerSize = 5

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed (also rejects malformed nested values)
	totalSize, err := b.sizeBytes(msg)
	if err != nil {
		return nil, err
	}
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags
	var flags uint32 = 0

	// Set position for writing
	pos := headerSize // Start after MsgType and flags

	if msg.Table != "" {
		flags |= hasTable
		pos = putString(result, pos, msg.Table)
	}
	if msg.RowKey != nil {
		flags |= hasRowKey
		pos = putBlob(result, pos, msg.RowKey)
	}
	if msg.Mutations != nil {
		flags |= hasMutations
		pos = putMutations(result, pos, msg.Mutations)
	}
	if msg.Entries != nil {
		flags |= hasEntries
		pos = putU32(result, pos, uint32(len(msg.Entries)))
		for _, e := range msg.Entries {
			pos = putBlob(result, pos, e.RowKey)
			pos = putMutations(result, pos, e.Mutations)
		}
	}
	if msg.Condition != nil {
		flags |= hasCondition
		pos = putCondition(result, pos, msg.Condition)
	}
	if msg.TrueMutations != nil {
		flags |= hasTrueMutations
		pos = putMutations(result, pos, msg.TrueMutations)
	}
	if msg.FalseMutations != nil {
		flags |= hasFalseMutations
		pos = putMutations(result, pos, msg.FalseMutations)
	}
	if msg.Rules != nil {
		flags |= hasRules
		pos = putU32(result, pos, uint32(len(msg.Rules)))
		for _, r := range msg.Rules {
			pos = putRule(result, pos, r)
		}
	}
	if msg.StartKey != nil {
		flags |= hasStartKey
		pos = putBlob(result, pos, msg.StartKey)
	}
	if msg.EndKey != nil {
		flags |= hasEndKey
		pos = putBlob(result, pos, msg.EndKey)
	}
	if msg.Limit != 0 {
		flags |= hasLimit
		pos = putI64(result, pos, msg.Limit)
	}
	if msg.Row != nil {
		flags |= hasRow
		pos = putRow(result, pos, msg.Row)
	}
	if msg.Matched {
		flags |= hasMatched
		result[pos] = 1
		pos++
	}
	if msg.Results != nil {
		flags |= hasResults
		pos = putU32(result, pos, uint32(len(msg.Results)))
		for _, r := range msg.Results {
			pos = putU32(result, pos, r.Code)
			pos = putString(result, pos, r.Err)
		}
	}
	if msg.Chunks != nil {
		flags |= hasChunks
		pos = putU32(result, pos, uint32(len(msg.Chunks)))
		for _, c := range msg.Chunks {
			pos = putChunk(result, pos, c)
		}
	}
	if msg.Samples != nil {
		flags |= hasSamples
		pos = putU32(result, pos, uint32(len(msg.Samples)))
		for _, s := range msg.Samples {
			pos = putBlob(result, pos, s.RowKey)
			pos = putI64(result, pos, s.OffsetBytes)
		}
	}
	if msg.Code != 0 {
		flags |= hasCode
		pos = putU32(result, pos, msg.Code)
	}
	if msg.Err != "" {
		flags |= hasErr
		pos = putString(result, pos, msg.Err)
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint32(result[1:headerSize], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type and flags
	msg.MsgType = common.MessageType(data[0])
	flags := binary.BigEndian.Uint32(data[1:headerSize])

	// Initialize read position
	pos := headerSize
	var err error

	// Read Table if present
	if flags&hasTable != 0 {
		if msg.Table, pos, err = readString(data, pos, "table"); err != nil {
			return err
		}
	} else {
		msg.Table = ""
	}

	// Read RowKey if present
	if flags&hasRowKey != 0 {
		if msg.RowKey, pos, err = readBlob(data, pos, "row key"); err != nil {
			return err
		}
	} else {
		msg.RowKey = nil
	}

	// Read Mutations if present
	if flags&hasMutations != 0 {
		if msg.Mutations, pos, err = readMutations(data, pos); err != nil {
			return err
		}
	} else {
		msg.Mutations = nil
	}

	// Read Entries if present
	if flags&hasEntries != 0 {
		var count uint32
		if count, pos, err = readCount(data, pos, "entries"); err != nil {
			return err
		}
		entries := make([]table.MutateRowsEntry, count)
		for i := range entries {
			if entries[i].RowKey, pos, err = readBlob(data, pos, "entry row key"); err != nil {
				return err
			}
			if entries[i].Mutations, pos, err = readMutations(data, pos); err != nil {
				return err
			}
		}
		msg.Entries = entries
	} else {
		msg.Entries = nil
	}

	// Read Condition if present
	if flags&hasCondition != 0 {
		if msg.Condition, pos, err = readCondition(data, pos); err != nil {
			return err
		}
	} else {
		msg.Condition = nil
	}

	// Read TrueMutations if present
	if flags&hasTrueMutations != 0 {
		if msg.TrueMutations, pos, err = readMutations(data, pos); err != nil {
			return err
		}
	} else {
		msg.TrueMutations = nil
	}

	// Read FalseMutations if present
	if flags&hasFalseMutations != 0 {
		if msg.FalseMutations, pos, err = readMutations(data, pos); err != nil {
			return err
		}
	} else {
		msg.FalseMutations = nil
	}

	// Read Rules if present
	if flags&hasRules != 0 {
		var count uint32
		if count, pos, err = readCount(data, pos, "rules"); err != nil {
			return err
		}
		rules := make([]table.ReadModifyWriteRule, count)
		for i := range rules {
			if rules[i], pos, err = readRule(data, pos); err != nil {
				return err
			}
		}
		msg.Rules = rules
	} else {
		msg.Rules = nil
	}

	// Read StartKey if present
	if flags&hasStartKey != 0 {
		if msg.StartKey, pos, err = readBlob(data, pos, "start key"); err != nil {
			return err
		}
	} else {
		msg.StartKey = nil
	}

	// Read EndKey if present
	if flags&hasEndKey != 0 {
		if msg.EndKey, pos, err = readBlob(data, pos, "end key"); err != nil {
			return err
		}
	} else {
		msg.EndKey = nil
	}

	// Read Limit if present
	if flags&hasLimit != 0 {
		if msg.Limit, pos, err = readI64(data, pos, "limit"); err != nil {
			return err
		}
	} else {
		msg.Limit = 0
	}

	// Read Row if present
	if flags&hasRow != 0 {
		if msg.Row, pos, err = readRow(data, pos); err != nil {
			return err
		}
	} else {
		msg.Row = nil
	}

	// Read Matched if present
	if flags&hasMatched != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for matched flag")
		}
		msg.Matched = data[pos] != 0
		pos++
	} else {
		msg.Matched = false
	}

	// Read Results if present
	if flags&hasResults != 0 {
		var count uint32
		if count, pos, err = readCount(data, pos, "results"); err != nil {
			return err
		}
		results := make([]table.EntryResult, count)
		for i := range results {
			if results[i].Code, pos, err = readU32(data, pos, "result code"); err != nil {
				return err
			}
			if results[i].Err, pos, err = readString(data, pos, "result error"); err != nil {
				return err
			}
		}
		msg.Results = results
	} else {
		msg.Results = nil
	}

	// Read Chunks if present
	if flags&hasChunks != 0 {
		var count uint32
		if count, pos, err = readCount(data, pos, "chunks"); err != nil {
			return err
		}
		chunks := make([]table.RowChunk, count)
		for i := range chunks {
			if chunks[i], pos, err = readChunk(data, pos); err != nil {
				return err
			}
		}
		msg.Chunks = chunks
	} else {
		msg.Chunks = nil
	}

	// Read Samples if present
	if flags&hasSamples != 0 {
		var count uint32
		if count, pos, err = readCount(data, pos, "samples"); err != nil {
			return err
		}
		samples := make([]table.SampleRowKey, count)
		for i := range samples {
			if samples[i].RowKey, pos, err = readBlob(data, pos, "sample row key"); err != nil {
				return err
			}
			if samples[i].OffsetBytes, pos, err = readI64(data, pos, "sample offset"); err != nil {
				return err
			}
		}
		msg.Samples = samples
	} else {
		msg.Samples = nil
	}

	// Read Code if present
	if flags&hasCode != 0 {
		if msg.Code, pos, err = readU32(data, pos, "status code"); err != nil {
			return err
		}
	} else {
		msg.Code = 0
	}

	// Read Err if present
	if flags&hasErr != 0 {
		if msg.Err, _, err = readString(data, pos, "error message"); err != nil {
			return err
		}
	} else {
		msg.Err = ""
	}

	return nil
}

// --------------------------------------------------------------------------
// Size Calculation
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization. It returns
// an error for messages carrying a mutation with no variant set.
func (b binarySerializerImpl) sizeBytes(msg common.Message) (int, error) {
	// 1 byte for MsgType + 4 bytes for flags
	size := headerSize

	if msg.Table != "" {
		size += stringSize(msg.Table)
	}
	if msg.RowKey != nil {
		size += blobSize(msg.RowKey)
	}
	if msg.Mutations != nil {
		n, err := mutationsSize(msg.Mutations)
		if err != nil {
			return 0, err
		}
		size += n
	}
	if msg.Entries != nil {
		size += 4 // 4 bytes for entry count
		for _, e := range msg.Entries {
			n, err := mutationsSize(e.Mutations)
			if err != nil {
				return 0, err
			}
			size += blobSize(e.RowKey) + n
		}
	}
	if msg.Condition != nil {
		size += conditionSize(msg.Condition)
	}
	if msg.TrueMutations != nil {
		n, err := mutationsSize(msg.TrueMutations)
		if err != nil {
			return 0, err
		}
		size += n
	}
	if msg.FalseMutations != nil {
		n, err := mutationsSize(msg.FalseMutations)
		if err != nil {
			return 0, err
		}
		size += n
	}
	if msg.Rules != nil {
		size += 4 // 4 bytes for rule count
		for _, r := range msg.Rules {
			size += ruleSize(r)
		}
	}
	if msg.StartKey != nil {
		size += blobSize(msg.StartKey)
	}
	if msg.EndKey != nil {
		size += blobSize(msg.EndKey)
	}
	if msg.Limit != 0 {
		size += 8 // int64
	}
	if msg.Row != nil {
		size += rowSize(msg.Row)
	}
	if msg.Matched {
		size += 1 // 1 byte for boolean
	}
	if msg.Results != nil {
		size += 4 // 4 bytes for result count
		for _, r := range msg.Results {
			size += 4 + stringSize(r.Err)
		}
	}
	if msg.Chunks != nil {
		size += 4 // 4 bytes for chunk count
		for _, c := range msg.Chunks {
			size += chunkSize(c)
		}
	}
	if msg.Samples != nil {
		size += 4 // 4 bytes for sample count
		for _, s := range msg.Samples {
			size += blobSize(s.RowKey) + 8
		}
	}
	if msg.Code != 0 {
		size += 4 // uint32
	}
	if msg.Err != "" {
		size += stringSize(msg.Err)
	}

	return size, nil
}

// --------------------------------------------------------------------------
// Primitive Helpers
// --------------------------------------------------------------------------

func blobSize(b []byte) int   { return 4 + len(b) }
func stringSize(s string) int { return 4 + len(s) }

func putU32(buf []byte, pos int, v uint32) int {
	binary.BigEndian.PutUint32(buf[pos:pos+4], v)
	return pos + 4
}

func putI64(buf []byte, pos int, v int64) int {
	binary.BigEndian.PutUint64(buf[pos:pos+8], uint64(v))
	return pos + 8
}

func putBlob(buf []byte, pos int, b []byte) int {
	pos = putU32(buf, pos, uint32(len(b)))
	copy(buf[pos:pos+len(b)], b)
	return pos + len(b)
}

func putString(buf []byte, pos int, s string) int {
	pos = putU32(buf, pos, uint32(len(s)))
	copy(buf[pos:pos+len(s)], s)
	return pos + len(s)
}

func readU32(data []byte, pos int, what string) (uint32, int, error) {
	if pos+4 > len(data) {
		return 0, pos, fmt.Errorf("data too short for %s", what)
	}
	return binary.BigEndian.Uint32(data[pos : pos+4]), pos + 4, nil
}

func readI64(data []byte, pos int, what string) (int64, int, error) {
	if pos+8 > len(data) {
		return 0, pos, fmt.Errorf("data too short for %s", what)
	}
	return int64(binary.BigEndian.Uint64(data[pos : pos+8])), pos + 8, nil
}

// readBlob decodes a length prefixed byte slice. Zero length blobs decode as
// nil so that continuation chunks and unbounded range keys keep their
// meaning across serializers.
func readBlob(data []byte, pos int, what string) ([]byte, int, error) {
	length, pos, err := readU32(data, pos, what+" length")
	if err != nil {
		return nil, pos, err
	}
	if pos+int(length) > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s data", what)
	}
	if length == 0 {
		return nil, pos, nil
	}
	b := make([]byte, length)
	copy(b, data[pos:pos+int(length)])
	return b, pos + int(length), nil
}

func readString(data []byte, pos int, what string) (string, int, error) {
	length, pos, err := readU32(data, pos, what+" length")
	if err != nil {
		return "", pos, err
	}
	if pos+int(length) > len(data) {
		return "", pos, fmt.Errorf("data too short for %s data", what)
	}
	return string(data[pos : pos+int(length)]), pos + int(length), nil
}

// readCount reads a slice length and rejects counts that the remaining data
// cannot possibly hold (every element takes at least one byte)
func readCount(data []byte, pos int, what string) (uint32, int, error) {
	count, pos, err := readU32(data, pos, what+" count")
	if err != nil {
		return 0, pos, err
	}
	if int(count) > len(data)-pos {
		return 0, pos, fmt.Errorf("data too short for %d %s", count, what)
	}
	return count, pos, nil
}

// --------------------------------------------------------------------------
// Mutation Encoding
// --------------------------------------------------------------------------

func mutationSize(m table.Mutation) (int, error) {
	switch {
	case m.SetCell != nil:
		s := m.SetCell
		return 1 + stringSize(s.Family) + blobSize(s.Qualifier) + blobSize(s.Value) + 8, nil
	case m.DeleteFromColumn != nil:
		d := m.DeleteFromColumn
		return 1 + stringSize(d.Family) + blobSize(d.Qualifier), nil
	case m.DeleteFromFamily != nil:
		return 1 + stringSize(m.DeleteFromFamily.Family), nil
	case m.DeleteFromRow != nil:
		return 1, nil
	default:
		return 0, fmt.Errorf("mutation has no variant set")
	}
}

func mutationsSize(ms []table.Mutation) (int, error) {
	size := 4 // 4 bytes for mutation count
	for _, m := range ms {
		n, err := mutationSize(m)
		if err != nil {
			return 0, err
		}
		size += n
	}
	return size, nil
}

func putMutation(buf []byte, pos int, m table.Mutation) int {
	switch {
	case m.SetCell != nil:
		buf[pos] = mutTagSetCell
		pos++
		pos = putString(buf, pos, m.SetCell.Family)
		pos = putBlob(buf, pos, m.SetCell.Qualifier)
		pos = putBlob(buf, pos, m.SetCell.Value)
		pos = putI64(buf, pos, m.SetCell.TimestampMicros)
	case m.DeleteFromColumn != nil:
		buf[pos] = mutTagDeleteColumn
		pos++
		pos = putString(buf, pos, m.DeleteFromColumn.Family)
		pos = putBlob(buf, pos, m.DeleteFromColumn.Qualifier)
	case m.DeleteFromFamily != nil:
		buf[pos] = mutTagDeleteFamily
		pos++
		pos = putString(buf, pos, m.DeleteFromFamily.Family)
	case m.DeleteFromRow != nil:
		buf[pos] = mutTagDeleteRow
		pos++
	}
	return pos
}

func putMutations(buf []byte, pos int, ms []table.Mutation) int {
	pos = putU32(buf, pos, uint32(len(ms)))
	for _, m := range ms {
		pos = putMutation(buf, pos, m)
	}
	return pos
}

func readMutation(data []byte, pos int) (table.Mutation, int, error) {
	var m table.Mutation
	if pos+1 > len(data) {
		return m, pos, fmt.Errorf("data too short for mutation tag")
	}
	tag := data[pos]
	pos++

	var err error
	switch tag {
	case mutTagSetCell:
		s := &table.SetCellMutation{}
		if s.Family, pos, err = readString(data, pos, "set cell family"); err != nil {
			return m, pos, err
		}
		if s.Qualifier, pos, err = readBlob(data, pos, "set cell qualifier"); err != nil {
			return m, pos, err
		}
		if s.Value, pos, err = readBlob(data, pos, "set cell value"); err != nil {
			return m, pos, err
		}
		if s.TimestampMicros, pos, err = readI64(data, pos, "set cell timestamp"); err != nil {
			return m, pos, err
		}
		m.SetCell = s
	case mutTagDeleteColumn:
		d := &table.DeleteFromColumnMutation{}
		if d.Family, pos, err = readString(data, pos, "delete column family"); err != nil {
			return m, pos, err
		}
		if d.Qualifier, pos, err = readBlob(data, pos, "delete column qualifier"); err != nil {
			return m, pos, err
		}
		m.DeleteFromColumn = d
	case mutTagDeleteFamily:
		d := &table.DeleteFromFamilyMutation{}
		if d.Family, pos, err = readString(data, pos, "delete family name"); err != nil {
			return m, pos, err
		}
		m.DeleteFromFamily = d
	case mutTagDeleteRow:
		m.DeleteFromRow = &table.DeleteFromRowMutation{}
	default:
		return m, pos, fmt.Errorf("unknown mutation tag: %d", tag)
	}
	return m, pos, nil
}

func readMutations(data []byte, pos int) ([]table.Mutation, int, error) {
	count, pos, err := readCount(data, pos, "mutations")
	if err != nil {
		return nil, pos, err
	}
	ms := make([]table.Mutation, count)
	for i := range ms {
		if ms[i], pos, err = readMutation(data, pos); err != nil {
			return nil, pos, err
		}
	}
	return ms, pos, nil
}

// --------------------------------------------------------------------------
// Condition and Rule Encoding
// --------------------------------------------------------------------------

func conditionSize(c *table.CellCondition) int {
	size := stringSize(c.Family) + blobSize(c.Qualifier) + 1
	if c.ValueEquals != nil {
		size += blobSize(c.ValueEquals)
	}
	return size
}

func putCondition(buf []byte, pos int, c *table.CellCondition) int {
	pos = putString(buf, pos, c.Family)
	pos = putBlob(buf, pos, c.Qualifier)
	if c.ValueEquals != nil {
		buf[pos] = 1
		pos++
		pos = putBlob(buf, pos, c.ValueEquals)
	} else {
		buf[pos] = 0
		pos++
	}
	return pos
}

func readCondition(data []byte, pos int) (*table.CellCondition, int, error) {
	c := &table.CellCondition{}
	var err error
	if c.Family, pos, err = readString(data, pos, "condition family"); err != nil {
		return nil, pos, err
	}
	if c.Qualifier, pos, err = readBlob(data, pos, "condition qualifier"); err != nil {
		return nil, pos, err
	}
	if pos+1 > len(data) {
		return nil, pos, fmt.Errorf("data too short for condition value presence")
	}
	hasValue := data[pos] != 0
	pos++
	if hasValue {
		if c.ValueEquals, pos, err = readBlob(data, pos, "condition value"); err != nil {
			return nil, pos, err
		}
	}
	return c, pos, nil
}

func ruleSize(r table.ReadModifyWriteRule) int {
	size := stringSize(r.Family) + blobSize(r.Qualifier) + 1
	if r.AppendValue != nil {
		size += blobSize(r.AppendValue)
	} else {
		size += 8
	}
	return size
}

func putRule(buf []byte, pos int, r table.ReadModifyWriteRule) int {
	pos = putString(buf, pos, r.Family)
	pos = putBlob(buf, pos, r.Qualifier)
	if r.AppendValue != nil {
		buf[pos] = 0 // append action
		pos++
		pos = putBlob(buf, pos, r.AppendValue)
	} else {
		buf[pos] = 1 // increment action
		pos++
		pos = putI64(buf, pos, r.IncrementAmount)
	}
	return pos
}

func readRule(data []byte, pos int) (table.ReadModifyWriteRule, int, error) {
	var r table.ReadModifyWriteRule
	var err error
	if r.Family, pos, err = readString(data, pos, "rule family"); err != nil {
		return r, pos, err
	}
	if r.Qualifier, pos, err = readBlob(data, pos, "rule qualifier"); err != nil {
		return r, pos, err
	}
	if pos+1 > len(data) {
		return r, pos, fmt.Errorf("data too short for rule action")
	}
	action := data[pos]
	pos++
	switch action {
	case 0:
		if r.AppendValue, pos, err = readBlob(data, pos, "rule append value"); err != nil {
			return r, pos, err
		}
	case 1:
		if r.IncrementAmount, pos, err = readI64(data, pos, "rule increment"); err != nil {
			return r, pos, err
		}
	default:
		return r, pos, fmt.Errorf("unknown rule action: %d", action)
	}
	return r, pos, nil
}

// --------------------------------------------------------------------------
// Row and Chunk Encoding
// --------------------------------------------------------------------------

func rowSize(r *table.Row) int {
	size := blobSize(r.Key) + 4 // key + 4 bytes for cell count
	for _, c := range r.Cells {
		size += stringSize(c.Family) + blobSize(c.Qualifier) + blobSize(c.Value) + 8
	}
	return size
}

func putRow(buf []byte, pos int, r *table.Row) int {
	pos = putBlob(buf, pos, r.Key)
	pos = putU32(buf, pos, uint32(len(r.Cells)))
	for _, c := range r.Cells {
		pos = putString(buf, pos, c.Family)
		pos = putBlob(buf, pos, c.Qualifier)
		pos = putBlob(buf, pos, c.Value)
		pos = putI64(buf, pos, c.TimestampMicros)
	}
	return pos
}

func readRow(data []byte, pos int) (*table.Row, int, error) {
	r := &table.Row{}
	var err error
	if r.Key, pos, err = readBlob(data, pos, "row key"); err != nil {
		return nil, pos, err
	}
	var count uint32
	if count, pos, err = readCount(data, pos, "cells"); err != nil {
		return nil, pos, err
	}
	cells := make([]table.Cell, count)
	for i := range cells {
		if cells[i].Family, pos, err = readString(data, pos, "cell family"); err != nil {
			return nil, pos, err
		}
		if cells[i].Qualifier, pos, err = readBlob(data, pos, "cell qualifier"); err != nil {
			return nil, pos, err
		}
		if cells[i].Value, pos, err = readBlob(data, pos, "cell value"); err != nil {
			return nil, pos, err
		}
		if cells[i].TimestampMicros, pos, err = readI64(data, pos, "cell timestamp"); err != nil {
			return nil, pos, err
		}
	}
	r.Cells = cells
	return r, pos, nil
}

func chunkSize(c table.RowChunk) int {
	return blobSize(c.RowKey) + stringSize(c.Family) + blobSize(c.Qualifier) + blobSize(c.Value) + 8 + 1
}

func putChunk(buf []byte, pos int, c table.RowChunk) int {
	pos = putBlob(buf, pos, c.RowKey)
	pos = putString(buf, pos, c.Family)
	pos = putBlob(buf, pos, c.Qualifier)
	pos = putBlob(buf, pos, c.Value)
	pos = putI64(buf, pos, c.TimestampMicros)
	var flags byte
	if c.Commit {
		flags |= chunkFlagCommit
	}
	if c.Reset {
		flags |= chunkFlagReset
	}
	buf[pos] = flags
	return pos + 1
}

func readChunk(data []byte, pos int) (table.RowChunk, int, error) {
	var c table.RowChunk
	var err error
	if c.RowKey, pos, err = readBlob(data, pos, "chunk row key"); err != nil {
		return c, pos, err
	}
	if c.Family, pos, err = readString(data, pos, "chunk family"); err != nil {
		return c, pos, err
	}
	if c.Qualifier, pos, err = readBlob(data, pos, "chunk qualifier"); err != nil {
		return c, pos, err
	}
	if c.Value, pos, err = readBlob(data, pos, "chunk value"); err != nil {
		return c, pos, err
	}
	if c.TimestampMicros, pos, err = readI64(data, pos, "chunk timestamp"); err != nil {
		return c, pos, err
	}
	if pos+1 > len(data) {
		return c, pos, fmt.Errorf("data too short for chunk flags")
	}
	c.Commit = data[pos]&chunkFlagCommit != 0
	c.Reset = data[pos]&chunkFlagReset != 0
	return c, pos + 1, nil
}
