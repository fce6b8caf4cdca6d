// Package table implements the in-memory tabular container consumed by
// the writer and produced by the reader: ordered, uniquely-named
// columns with typed columnar storage and per-cell nullability.
package table

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies the scalar type of a column.
type Kind uint8

const (
	Int8 Kind = iota
	Int16
	Int32
	Int64
	Float32
	Float64
	Bool
	Uint8
	Uint16
	Uint32
	String
	Time
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case String:
		return "string"
	case Time:
		return "time"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsNumeric reports whether the kind is an integer or floating kind.
func (k Kind) IsNumeric() bool {
	return k <= Uint32
}

// IsInteger reports whether the kind is a signed or unsigned integer
// kind (bool counts: it is stored as 0/1).
func (k Kind) IsInteger() bool {
	return k.IsNumeric() && k != Float32 && k != Float64
}

// Column is one named, typed column. Exactly one of the value slices is
// populated, chosen by the kind. Transformations build new columns
// rather than mutating existing ones.
type Column struct {
	name string
	kind Kind

	int8s    []int8
	int16s   []int16
	int32s   []int32
	int64s   []int64
	float32s []float32
	float64s []float64
	bools    []bool
	uint8s   []uint8
	uint16s  []uint16
	uint32s  []uint32
	strings  []string
	times    []time.Time

	null    []bool
	missing map[int]string // row -> sentinel symbol (".", ".a", ..)
}

// ErrDuplicateName indicates two columns share a name.
var ErrDuplicateName = errors.New("duplicate column name")

// ErrRaggedColumns indicates columns of differing lengths.
var ErrRaggedColumns = errors.New("columns have differing lengths")

func newColumn(name string, kind Kind, n int, null []bool) *Column {
	if null != nil && len(null) != n {
		panic(fmt.Sprintf("table: null mask length %d != column length %d", len(null), n))
	}
	return &Column{name: name, kind: kind, null: null}
}

// NewInt8 creates an int8 column. null may be nil when no cell is null.
func NewInt8(name string, vals []int8, null []bool) *Column {
	c := newColumn(name, Int8, len(vals), null)
	c.int8s = vals
	return c
}

// NewInt16 creates an int16 column.
func NewInt16(name string, vals []int16, null []bool) *Column {
	c := newColumn(name, Int16, len(vals), null)
	c.int16s = vals
	return c
}

// NewInt32 creates an int32 column.
func NewInt32(name string, vals []int32, null []bool) *Column {
	c := newColumn(name, Int32, len(vals), null)
	c.int32s = vals
	return c
}

// NewInt64 creates an int64 column.
func NewInt64(name string, vals []int64, null []bool) *Column {
	c := newColumn(name, Int64, len(vals), null)
	c.int64s = vals
	return c
}

// NewFloat32 creates a float32 column.
func NewFloat32(name string, vals []float32, null []bool) *Column {
	c := newColumn(name, Float32, len(vals), null)
	c.float32s = vals
	return c
}

// NewFloat64 creates a float64 column.
func NewFloat64(name string, vals []float64, null []bool) *Column {
	c := newColumn(name, Float64, len(vals), null)
	c.float64s = vals
	return c
}

// NewBool creates a bool column.
func NewBool(name string, vals []bool, null []bool) *Column {
	c := newColumn(name, Bool, len(vals), null)
	c.bools = vals
	return c
}

// NewUint8 creates a uint8 column.
func NewUint8(name string, vals []uint8, null []bool) *Column {
	c := newColumn(name, Uint8, len(vals), null)
	c.uint8s = vals
	return c
}

// NewUint16 creates a uint16 column.
func NewUint16(name string, vals []uint16, null []bool) *Column {
	c := newColumn(name, Uint16, len(vals), null)
	c.uint16s = vals
	return c
}

// NewUint32 creates a uint32 column.
func NewUint32(name string, vals []uint32, null []bool) *Column {
	c := newColumn(name, Uint32, len(vals), null)
	c.uint32s = vals
	return c
}

// NewString creates a string column.
func NewString(name string, vals []string, null []bool) *Column {
	c := newColumn(name, String, len(vals), null)
	c.strings = vals
	return c
}

// NewTime creates a calendar date/time column.
func NewTime(name string, vals []time.Time, null []bool) *Column {
	c := newColumn(name, Time, len(vals), null)
	c.times = vals
	return c
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the column's scalar kind.
func (c *Column) Kind() Kind { return c.kind }

// Rename returns a copy of the column with a new name. Value storage is
// shared with the receiver.
func (c *Column) Rename(name string) *Column {
	dup := *c
	dup.name = name
	return &dup
}

// Len returns the number of cells.
func (c *Column) Len() int {
	switch c.kind {
	case Int8:
		return len(c.int8s)
	case Int16:
		return len(c.int16s)
	case Int32:
		return len(c.int32s)
	case Int64:
		return len(c.int64s)
	case Float32:
		return len(c.float32s)
	case Float64:
		return len(c.float64s)
	case Bool:
		return len(c.bools)
	case Uint8:
		return len(c.uint8s)
	case Uint16:
		return len(c.uint16s)
	case Uint32:
		return len(c.uint32s)
	case String:
		return len(c.strings)
	case Time:
		return len(c.times)
	}
	return 0
}

// IsNull reports whether cell i is null.
func (c *Column) IsNull(i int) bool {
	return c.null != nil && c.null[i]
}

// SetMissing annotates cell i with a sentinel symbol and marks it null.
// Used when missing-value fidelity is requested on read.
func (c *Column) SetMissing(i int, symbol string) {
	if c.null == nil {
		c.null = make([]bool, c.Len())
	}
	c.null[i] = true
	if c.missing == nil {
		c.missing = make(map[int]string)
	}
	c.missing[i] = symbol
}

// MissingSymbol returns the sentinel symbol recorded for cell i, if any.
func (c *Column) MissingSymbol(i int) (string, bool) {
	s, ok := c.missing[i]
	return s, ok
}

func (c *Column) kindCheck(want Kind) {
	if c.kind != want {
		panic(fmt.Sprintf("table: column %q is %s, not %s", c.name, c.kind, want))
	}
}

// Int8 returns cell i of an int8 column.
func (c *Column) Int8(i int) int8 {
	c.kindCheck(Int8)
	return c.int8s[i]
}

// Int16 returns cell i of an int16 column.
func (c *Column) Int16(i int) int16 {
	c.kindCheck(Int16)
	return c.int16s[i]
}

// Int32 returns cell i of an int32 column.
func (c *Column) Int32(i int) int32 {
	c.kindCheck(Int32)
	return c.int32s[i]
}

// Int64 returns cell i of an int64 column.
func (c *Column) Int64(i int) int64 {
	c.kindCheck(Int64)
	return c.int64s[i]
}

// Float32 returns cell i of a float32 column.
func (c *Column) Float32(i int) float32 {
	c.kindCheck(Float32)
	return c.float32s[i]
}

// Float64 returns cell i of a float64 column.
func (c *Column) Float64(i int) float64 {
	c.kindCheck(Float64)
	return c.float64s[i]
}

// StringAt returns cell i of a string column.
func (c *Column) StringAt(i int) string {
	c.kindCheck(String)
	return c.strings[i]
}

// TimeAt returns cell i of a time column.
func (c *Column) TimeAt(i int) time.Time {
	c.kindCheck(Time)
	return c.times[i]
}

// Number returns cell i of any numeric column widened to float64.
func (c *Column) Number(i int) float64 {
	switch c.kind {
	case Float32:
		return float64(c.float32s[i])
	case Float64:
		return c.float64s[i]
	}
	return float64(c.Integer(i))
}

// Integer returns cell i of any integer column widened to int64.
func (c *Column) Integer(i int) int64 {
	switch c.kind {
	case Int8:
		return int64(c.int8s[i])
	case Int16:
		return int64(c.int16s[i])
	case Int32:
		return int64(c.int32s[i])
	case Int64:
		return c.int64s[i]
	case Bool:
		if c.bools[i] {
			return 1
		}
		return 0
	case Uint8:
		return int64(c.uint8s[i])
	case Uint16:
		return int64(c.uint16s[i])
	case Uint32:
		return int64(c.uint32s[i])
	}
	panic(fmt.Sprintf("table: column %q is %s, not integer", c.name, c.kind))
}

// Table is an ordered set of uniquely-named, equal-length columns.
type Table struct {
	cols   []*Column
	byName map[string]int
}

// New creates a table from columns, validating name uniqueness and
// equal lengths.
func New(cols ...*Column) (*Table, error) {
	t := &Table{cols: cols, byName: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.byName[c.Name()]; dup {
			return nil, fmt.Errorf("column %q: %w", c.Name(), ErrDuplicateName)
		}
		t.byName[c.Name()] = i
		if c.Len() != cols[0].Len() {
			return nil, fmt.Errorf("column %q has %d rows, want %d: %w",
				c.Name(), c.Len(), cols[0].Len(), ErrRaggedColumns)
		}
	}
	return t, nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Column returns the i-th column.
func (t *Table) Column(i int) *Column { return t.cols[i] }

// Columns returns the columns in order.
func (t *Table) Columns() []*Column { return t.cols }

// Lookup returns the column with the given name and its position.
func (t *Table) Lookup(name string) (*Column, int, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, -1, false
	}
	return t.cols[i], i, true
}
