package table

import (
	"bytes"
	"testing"
)

func TestSuccessorKey(t *testing.T) {
	tests := []struct {
		name string
		key  []byte
		want []byte
	}{
		{"Empty", []byte{}, []byte{0x00}},
		{"Simple", []byte("row-c"), append([]byte("row-c"), 0x00)},
		{"TrailingZero", []byte{0x01, 0x00}, []byte{0x01, 0x00, 0x00}},
		{"MaxByte", []byte{0xff}, []byte{0xff, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuccessorKey(tt.key)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("SuccessorKey(%v) = %v, want %v", tt.key, got, tt.want)
			}
			if bytes.Compare(got, tt.key) <= 0 {
				t.Errorf("SuccessorKey(%v) = %v is not strictly greater than its input", tt.key, got)
			}
		})
	}

	// The successor must not alias the input's backing array
	key := []byte("abc")
	succ := SuccessorKey(key)
	succ[0] = 'x'
	if key[0] != 'a' {
		t.Errorf("SuccessorKey must copy its input, input was modified to %q", key)
	}
}

func TestMutationValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Mutation
		wantErr bool
	}{
		{"SetCell", NewSetCellMutation("cf", []byte("q"), []byte("v"), 1000), false},
		{"DeleteColumn", NewDeleteFromColumnMutation("cf", []byte("q")), false},
		{"DeleteFamily", NewDeleteFromFamilyMutation("cf"), false},
		{"DeleteRow", NewDeleteFromRowMutation(), false},
		{"Empty", Mutation{}, true},
		{"TwoVariants", Mutation{
			SetCell:       &SetCellMutation{Family: "cf"},
			DeleteFromRow: &DeleteFromRowMutation{},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestRowCellsByFamily(t *testing.T) {
	row := &Row{
		Key: []byte("r1"),
		Cells: []Cell{
			{Family: "a", Qualifier: []byte("q1"), Value: []byte("1")},
			{Family: "b", Qualifier: []byte("q1"), Value: []byte("2")},
			{Family: "a", Qualifier: []byte("q2"), Value: []byte("3")},
		},
	}

	families := row.CellsByFamily()
	if len(families) != 2 {
		t.Fatalf("expected 2 families, got %d", len(families))
	}
	if len(families["a"]) != 2 || len(families["b"]) != 1 {
		t.Errorf("unexpected family sizes: a=%d b=%d", len(families["a"]), len(families["b"]))
	}
	// Per-family order must follow the row's cell order
	if !bytes.Equal(families["a"][0].Qualifier, []byte("q1")) || !bytes.Equal(families["a"][1].Qualifier, []byte("q2")) {
		t.Errorf("family 'a' cells out of order: %v", families["a"])
	}

	var nilRow *Row
	if nilRow.CellsByFamily() != nil {
		t.Errorf("nil row should yield nil map")
	}
}

func TestRowRangeContains(t *testing.T) {
	tests := []struct {
		name  string
		r     RowRange
		key   []byte
		wants bool
	}{
		{"Unbounded", RowRange{}, []byte("anything"), true},
		{"InRange", RowRange{StartKey: []byte("b"), EndKey: []byte("d")}, []byte("c"), true},
		{"StartInclusive", RowRange{StartKey: []byte("b"), EndKey: []byte("d")}, []byte("b"), true},
		{"EndExclusive", RowRange{StartKey: []byte("b"), EndKey: []byte("d")}, []byte("d"), false},
		{"BeforeStart", RowRange{StartKey: []byte("b")}, []byte("a"), false},
		{"OpenEnd", RowRange{StartKey: []byte("b")}, []byte("zzz"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.key); got != tt.wants {
				t.Errorf("Contains(%q) = %v, want %v", tt.key, got, tt.wants)
			}
		})
	}
}

func TestReadQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       ReadQuery
		wantErr bool
		isGet   bool
	}{
		{"PointLookup", ReadQuery{RowKey: []byte("r1")}, false, true},
		{"RangeScan", ReadQuery{Range: RowRange{StartKey: []byte("a"), EndKey: []byte("z")}}, false, false},
		{"FullScan", ReadQuery{}, false, false},
		{"WithLimit", ReadQuery{Range: RowRange{}, Limit: 10}, false, false},
		{"NegativeLimit", ReadQuery{Limit: -1}, true, false},
		{"KeyAndRange", ReadQuery{RowKey: []byte("r1"), Range: RowRange{StartKey: []byte("a")}}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
			if got := tt.q.IsGet(); got != tt.isGet {
				t.Errorf("IsGet() = %v, want %v", got, tt.isGet)
			}
		})
	}
}
