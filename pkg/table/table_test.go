package table

import (
	"errors"
	"testing"
	"time"
)

func TestNewValidation(t *testing.T) {
	a := NewInt32("a", []int32{1, 2}, nil)
	b := NewFloat64("b", []float64{1.5, 2.5}, nil)

	tbl, err := New(a, b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tbl.NumRows() != 2 || tbl.NumCols() != 2 {
		t.Errorf("NumRows/NumCols = %d/%d, want 2/2", tbl.NumRows(), tbl.NumCols())
	}

	_, err = New(a, NewInt32("a", []int32{3, 4}, nil))
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate name error = %v, want ErrDuplicateName", err)
	}

	_, err = New(a, NewInt32("c", []int32{1}, nil))
	if !errors.Is(err, ErrRaggedColumns) {
		t.Errorf("ragged columns error = %v, want ErrRaggedColumns", err)
	}
}

func TestLookup(t *testing.T) {
	tbl, err := New(
		NewString("name", []string{"x", "y"}, nil),
		NewInt8("flag", []int8{0, 1}, nil),
	)
	if err != nil {
		t.Fatal(err)
	}

	c, i, ok := tbl.Lookup("flag")
	if !ok || i != 1 || c.Name() != "flag" {
		t.Errorf("Lookup(flag) = %v, %d, %v", c, i, ok)
	}
	if _, _, ok := tbl.Lookup("absent"); ok {
		t.Error("Lookup(absent) should fail")
	}
}

func TestNullMask(t *testing.T) {
	c := NewFloat64("x", []float64{1, 2, 3}, []bool{false, true, false})
	if c.IsNull(0) || !c.IsNull(1) || c.IsNull(2) {
		t.Error("null mask not honored")
	}

	noNulls := NewInt16("y", []int16{1, 2}, nil)
	if noNulls.IsNull(0) {
		t.Error("nil mask should mean no nulls")
	}
}

func TestSetMissing(t *testing.T) {
	c := NewInt8("x", []int8{1, 101, 3}, nil)
	c.SetMissing(1, ".a")

	if !c.IsNull(1) {
		t.Error("SetMissing should mark the cell null")
	}
	sym, ok := c.MissingSymbol(1)
	if !ok || sym != ".a" {
		t.Errorf("MissingSymbol(1) = %q, %v", sym, ok)
	}
	if _, ok := c.MissingSymbol(0); ok {
		t.Error("MissingSymbol(0) should be absent")
	}
}

func TestNumberAndInteger(t *testing.T) {
	cases := []struct {
		col  *Column
		want float64
	}{
		{NewInt8("a", []int8{-5}, nil), -5},
		{NewInt16("b", []int16{300}, nil), 300},
		{NewInt32("c", []int32{-70000}, nil), -70000},
		{NewInt64("d", []int64{1 << 40}, nil), 1 << 40},
		{NewBool("e", []bool{true}, nil), 1},
		{NewUint16("f", []uint16{40000}, nil), 40000},
		{NewFloat32("g", []float32{1.5}, nil), 1.5},
		{NewFloat64("h", []float64{-2.25}, nil), -2.25},
	}
	for _, tc := range cases {
		if got := tc.col.Number(0); got != tc.want {
			t.Errorf("column %q: Number(0) = %g, want %g", tc.col.Name(), got, tc.want)
		}
	}

	if got := NewInt32("i", []int32{7}, nil).Integer(0); got != 7 {
		t.Errorf("Integer(0) = %d, want 7", got)
	}
}

func TestKindPredicates(t *testing.T) {
	if !Int8.IsNumeric() || !Float64.IsNumeric() || !Uint32.IsNumeric() {
		t.Error("numeric kinds misclassified")
	}
	if String.IsNumeric() || Time.IsNumeric() {
		t.Error("string/time should not be numeric")
	}
	if !Int16.IsInteger() || !Bool.IsInteger() {
		t.Error("integer kinds misclassified")
	}
	if Float32.IsInteger() {
		t.Error("float32 should not be integer")
	}
}

func TestRenameShares(t *testing.T) {
	c := NewString("old", []string{"v"}, nil)
	d := c.Rename("new")
	if d.Name() != "new" || c.Name() != "old" {
		t.Errorf("Rename: got %q/%q", d.Name(), c.Name())
	}
	if d.StringAt(0) != "v" {
		t.Error("Rename should share storage")
	}
}

func TestTimeColumn(t *testing.T) {
	when := time.Date(2001, 7, 4, 0, 0, 0, 0, time.UTC)
	c := NewTime("d", []time.Time{when}, nil)
	if !c.TimeAt(0).Equal(when) {
		t.Errorf("TimeAt(0) = %v, want %v", c.TimeAt(0), when)
	}
}

func TestKindMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on kind mismatch")
		}
	}()
	NewInt8("x", []int8{1}, nil).Float64(0)
}
