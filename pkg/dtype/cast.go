package dtype

import (
	"fmt"
	"math"

	"github.com/statkit/dta/pkg/table"
)

// Storable value restrictions for the writer. The legal maxima for int8
// and int16 are below the two's-complement maxima because the top of
// each range holds the sentinels.
const (
	maxExactFloat64 = float64(1 << 53)
)

func observedBounds(c *table.Column) (min, max int64, any bool) {
	min, max = math.MaxInt64, math.MinInt64
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		v := c.Integer(i)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		any = true
	}
	return min, max, any
}

func hasNulls(c *table.Column) bool {
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			return true
		}
	}
	return false
}

func rebuild(c *table.Column, k table.Kind) *table.Column {
	n := c.Len()
	null := make([]bool, n)
	for i := 0; i < n; i++ {
		null[i] = c.IsNull(i)
	}
	switch k {
	case table.Int8:
		vals := make([]int8, n)
		for i := range vals {
			if !null[i] {
				vals[i] = int8(c.Integer(i))
			}
		}
		return table.NewInt8(c.Name(), vals, null)
	case table.Int16:
		vals := make([]int16, n)
		for i := range vals {
			if !null[i] {
				vals[i] = int16(c.Integer(i))
			}
		}
		return table.NewInt16(c.Name(), vals, null)
	case table.Int32:
		vals := make([]int32, n)
		for i := range vals {
			if !null[i] {
				vals[i] = int32(c.Integer(i))
			}
		}
		return table.NewInt32(c.Name(), vals, null)
	case table.Int64:
		vals := make([]int64, n)
		for i := range vals {
			if !null[i] {
				vals[i] = c.Integer(i)
			}
		}
		return table.NewInt64(c.Name(), vals, null)
	case table.Float64:
		vals := make([]float64, n)
		for i := range vals {
			if !null[i] {
				vals[i] = c.Number(i)
			}
		}
		return table.NewFloat64(c.Name(), vals, null)
	}
	panic(fmt.Sprintf("dtype: cast target %s", k))
}

// CastToStorable converts a column to one of the format-storable kinds
// (int8, int16, int32, float32, float64, string, time), honoring the
// format's legal value ranges. The unsigned conversion runs before the
// signed range check so every emitted column lands on a legal type
// before the sentinel-range rules apply. Returned warnings describe
// possible precision loss.
func CastToStorable(c *table.Column) (*table.Column, []string, error) {
	var warnings []string

	switch c.Kind() {
	case table.Bool:
		c = rebuild(c, table.Int8)
	case table.Uint8:
		_, max, _ := observedBounds(c)
		if max <= math.MaxInt8 {
			c = rebuild(c, table.Int8)
		} else {
			c = rebuild(c, table.Int16)
		}
	case table.Uint16:
		_, max, _ := observedBounds(c)
		if max <= math.MaxInt16 {
			c = rebuild(c, table.Int16)
		} else {
			c = rebuild(c, table.Int32)
		}
	case table.Uint32:
		_, max, _ := observedBounds(c)
		if max <= math.MaxInt32 {
			c = rebuild(c, table.Int32)
		} else {
			c = rebuild(c, table.Int64)
		}
	}

	switch c.Kind() {
	case table.Int8:
		min, max, any := observedBounds(c)
		if any && (max > 100 || min < -127) {
			c = rebuild(c, table.Int16)
		}
	case table.Int16:
		min, max, any := observedBounds(c)
		if any && (max > 32740 || min < -32767) {
			c = rebuild(c, table.Int32)
		}
	case table.Int32:
		min, max, any := observedBounds(c)
		if any && (max > 2147483620 || min < -2147483647) {
			c = rebuild(c, table.Float64)
		}
	}

	if c.Kind() == table.Int64 {
		min, max, any := observedBounds(c)
		if !any || (max <= 2147483620 && min >= -2147483647) {
			c = rebuild(c, table.Int32)
		} else {
			c = rebuild(c, table.Float64)
			if float64(max) >= maxExactFloat64 || float64(min) <= -maxExactFloat64 {
				warnings = append(warnings, fmt.Sprintf(
					"column %q converted from int64 to float64; values outside the "+
						"lossless conversion range may lose precision", c.Name()))
			}
		}
	}

	// Integer columns cannot carry nulls into the data block; promote so
	// the writer can substitute the generic float sentinel.
	if c.Kind().IsInteger() && hasNulls(c) {
		c = rebuild(c, table.Float64)
	}

	switch c.Kind() {
	case table.Int8, table.Int16, table.Int32, table.Float32, table.Float64,
		table.String, table.Time:
		return c, warnings, nil
	}
	return nil, nil, fmt.Errorf("column %q: kind %s: %w", c.Name(), c.Kind(), ErrUnsupportedType)
}
