package dtype

import (
	"strings"
	"testing"

	"github.com/statkit/dta/pkg/table"
)

func TestCastBool(t *testing.T) {
	c, warnings, err := CastToStorable(table.NewBool("b", []bool{true, false}, nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if c.Kind() != table.Int8 {
		t.Fatalf("bool cast to %s, want int8", c.Kind())
	}
	if c.Int8(0) != 1 || c.Int8(1) != 0 {
		t.Errorf("bool values = %d, %d", c.Int8(0), c.Int8(1))
	}
}

func TestCastUnsigned(t *testing.T) {
	tests := []struct {
		name string
		col  *table.Column
		want table.Kind
	}{
		{"uint8 small", table.NewUint8("a", []uint8{0, 100}, nil), table.Int8},
		{"uint8 large", table.NewUint8("b", []uint8{0, 200}, nil), table.Int16},
		{"uint16 small", table.NewUint16("c", []uint16{0, 30000}, nil), table.Int16},
		{"uint16 large", table.NewUint16("d", []uint16{0, 60000}, nil), table.Int32},
		{"uint32 small", table.NewUint32("e", []uint32{0, 1000}, nil), table.Int32},
		{"uint32 large", table.NewUint32("f", []uint32{0, 4000000000}, nil), table.Float64},
	}
	for _, tt := range tests {
		c, _, err := CastToStorable(tt.col)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if c.Kind() != tt.want {
			t.Errorf("%s: cast to %s, want %s", tt.name, c.Kind(), tt.want)
		}
	}
}

func TestCastSentinelRangePromotion(t *testing.T) {
	// 101 is legal in int16 but a sentinel in int8.
	c, _, err := CastToStorable(table.NewInt8("a", []int8{1, 101}, nil))
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind() != table.Int16 {
		t.Errorf("int8 with 101 cast to %s, want int16", c.Kind())
	}

	c, _, err = CastToStorable(table.NewInt16("b", []int16{32741}, nil))
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind() != table.Int32 {
		t.Errorf("int16 with 32741 cast to %s, want int32", c.Kind())
	}

	c, _, err = CastToStorable(table.NewInt32("c", []int32{2147483621}, nil))
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind() != table.Float64 {
		t.Errorf("int32 with 2147483621 cast to %s, want float64", c.Kind())
	}
}

func TestCastInt64(t *testing.T) {
	// In-range int64 downcasts to int32.
	c, warnings, err := CastToStorable(table.NewInt64("a", []int64{-5, 2147483620}, nil))
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind() != table.Int32 {
		t.Errorf("in-range int64 cast to %s, want int32", c.Kind())
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	// Out-of-range int64 becomes float64 without a warning while exact.
	c, warnings, err = CastToStorable(table.NewInt64("b", []int64{1 << 33}, nil))
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind() != table.Float64 {
		t.Errorf("wide int64 cast to %s, want float64", c.Kind())
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	// Values at or beyond 2^53 carry a precision warning.
	_, warnings, err = CastToStorable(table.NewInt64("c", []int64{1 << 53}, nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "precision") {
		t.Errorf("warnings = %v, want one precision warning", warnings)
	}
}

func TestCastNullIntegerPromotes(t *testing.T) {
	c, _, err := CastToStorable(table.NewInt32("a", []int32{1, 0, 3}, []bool{false, true, false}))
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind() != table.Float64 {
		t.Errorf("nullable int cast to %s, want float64", c.Kind())
	}
	if !c.IsNull(1) || c.IsNull(0) {
		t.Error("null mask lost in promotion")
	}
	if c.Float64(2) != 3 {
		t.Errorf("value lost in promotion: %v", c.Float64(2))
	}
}

func TestCastPassthrough(t *testing.T) {
	for _, col := range []*table.Column{
		table.NewString("s", []string{"x"}, nil),
		table.NewFloat32("f", []float32{1.5}, nil),
		table.NewFloat64("d", []float64{2.5}, nil),
	} {
		c, _, err := CastToStorable(col)
		if err != nil {
			t.Errorf("%s: %v", col.Name(), err)
			continue
		}
		if c.Kind() != col.Kind() {
			t.Errorf("%s: kind changed from %s to %s", col.Name(), col.Kind(), c.Kind())
		}
	}
}
