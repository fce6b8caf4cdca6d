// Package dtype maps between .dta type codes and in-memory column
// kinds, and implements the missing-value sentinel scheme.
//
// Type codes in legacy files (versions 104-115):
//
//	1..244   fixed string of that byte length
//	251      byte   (int8)
//	252      int    (int16)
//	253      long   (int32)
//	254      float  (float32)
//	255      double (float64)
//
// The tagged layout (version 117) uses a separate code set: 1..2045 for
// fixed strings, 32768 for long strings (strL) and 65526..65530 for the
// numeric kinds.
package dtype

import (
	"errors"
	"fmt"
	"math"

	"github.com/statkit/dta/pkg/table"
)

// ErrUnsupportedType indicates a type code with no native mapping.
var ErrUnsupportedType = errors.New("unsupported data type")

// Spec resolves a type code to either a fixed-width byte string or one
// of the five native scalar kinds.
type Spec struct {
	Str    bool
	StrLen int        // byte width, set when Str
	Kind   table.Kind // set when !Str
}

// Size returns the on-disk width of one value in bytes.
func (s Spec) Size() int {
	if s.Str {
		return s.StrLen
	}
	switch s.Kind {
	case table.Int8:
		return 1
	case table.Int16:
		return 2
	case table.Int32, table.Float32:
		return 4
	case table.Float64:
		return 8
	}
	panic(fmt.Sprintf("dtype: no storable width for kind %s", s.Kind))
}

// Code returns the legacy (version 114) type code for the spec.
func (s Spec) Code() byte {
	if s.Str {
		return byte(s.StrLen)
	}
	switch s.Kind {
	case table.Int8:
		return 251
	case table.Int16:
		return 252
	case table.Int32:
		return 253
	case table.Float32:
		return 254
	case table.Float64:
		return 255
	}
	panic(fmt.Sprintf("dtype: no type code for kind %s", s.Kind))
}

// FromCode resolves a legacy type code.
func FromCode(code byte) (Spec, error) {
	switch {
	case code >= 1 && code <= 244:
		return Spec{Str: true, StrLen: int(code)}, nil
	case code == 251:
		return Spec{Kind: table.Int8}, nil
	case code == 252:
		return Spec{Kind: table.Int16}, nil
	case code == 253:
		return Spec{Kind: table.Int32}, nil
	case code == 254:
		return Spec{Kind: table.Float32}, nil
	case code == 255:
		return Spec{Kind: table.Float64}, nil
	}
	return Spec{}, fmt.Errorf("type code %d: %w", code, ErrUnsupportedType)
}

// FromOldCode resolves the one-character type codes used by versions
// 108 and earlier.
func FromOldCode(ch byte) (Spec, error) {
	switch ch {
	case 'i':
		return FromCode(252)
	case 'f':
		return FromCode(254)
	case 'b':
		return FromCode(251)
	}
	return Spec{}, fmt.Errorf("old type code %q: %w", string(ch), ErrUnsupportedType)
}

// FromTaggedCode resolves a tagged-layout (version 117) type code.
// Long strings (strL, code 32768) and inline strings wider than 244
// bytes are rejected rather than silently truncated.
func FromTaggedCode(code uint16) (Spec, error) {
	switch {
	case code >= 1 && code <= 244:
		return Spec{Str: true, StrLen: int(code)}, nil
	case code == 32768 || (code >= 245 && code <= 2045):
		return Spec{}, fmt.Errorf("type code %d: long strings unsupported: %w",
			code, ErrUnsupportedType)
	case code == 65526:
		return Spec{Kind: table.Float64}, nil
	case code == 65527:
		return Spec{Kind: table.Float32}, nil
	case code == 65528:
		return Spec{Kind: table.Int32}, nil
	case code == 65529:
		return Spec{Kind: table.Int16}, nil
	case code == 65530:
		return Spec{Kind: table.Int8}, nil
	}
	return Spec{}, fmt.Errorf("type code %d: %w", code, ErrUnsupportedType)
}

// Valid-range bounds. The top of each integer range is reserved for the
// 27 sentinel values; the float bounds are the largest bit patterns
// below the sentinel region.
var (
	float32Max = math.Float32frombits(0x7effffff)
	float32Min = math.Float32frombits(0xfeffffff)
	float64Max = math.Float64frombits(0x7fdfffffffffffff)
	float64Min = math.Float64frombits(0xffefffffffffffff)
)

// ValidRange returns the inclusive range of ordinary (non-missing)
// values for a storable scalar kind.
func ValidRange(k table.Kind) (min, max float64) {
	switch k {
	case table.Int8:
		return -127, 100
	case table.Int16:
		return -32767, 32740
	case table.Int32:
		return -2147483647, 2147483620
	case table.Float32:
		return float64(float32Min), float64(float32Max)
	case table.Float64:
		return float64Min, float64Max
	}
	panic(fmt.Sprintf("dtype: no valid range for kind %s", k))
}
