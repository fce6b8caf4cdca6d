// Package dates converts between Stata Internal Format (SIF)
// epoch-relative numbers and calendar date/time values.
//
// The epoch is 01 Jan 1960. Eight display-format tags map an integer
// column onto calendar semantics:
//
//	%tc  milliseconds since the epoch
//	%tC  leap-second adjusted milliseconds; passed through undecoded
//	%td  days since the epoch (%d is an accepted alias)
//	%tw  weeks since 1960w1 (52 weeks per year, not leap-aware)
//	%tm  months since 1960m1
//	%tq  quarters since 1960q1
//	%th  half-years since 1960h1
//	%ty  absolute year
package dates

import (
	"errors"
	"fmt"
	"time"
)

// Epoch is the format's day zero.
var Epoch = time.Date(1960, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrUnsupportedFormat indicates a display format with no date
// semantics, or %tC on the encode path.
var ErrUnsupportedFormat = errors.New("unsupported date format")

// Format tags recognized on columns. %tC is accepted on read only.
var formats = map[string]bool{
	"%tc": true, "%tC": true, "%td": true, "%d": true, "%tw": true,
	"%tm": true, "%tq": true, "%th": true, "%ty": true,
}

// IsDateFormat reports whether fmt is one of the recognized date tags.
func IsDateFormat(fmt string) bool {
	return formats[fmt]
}

// IsPassthrough reports whether fmt is decoded best-effort only (%tC).
func IsPassthrough(fmt string) bool {
	return fmt == "%tC"
}

func normalize(tag string) string {
	if len(tag) > 0 && tag[0] != '%' {
		return "%" + tag
	}
	return tag
}

// Floor division and modulus, matching the reference behavior for
// pre-epoch (negative) values.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}

// ToTime decodes a SIF value according to the date tag. %tC values are
// not arithmetically converted and must be handled by the caller.
func ToTime(value int64, tag string) (time.Time, error) {
	switch normalize(tag) {
	case "%tc":
		return Epoch.Add(time.Duration(value) * time.Millisecond), nil
	case "%td", "%d":
		return Epoch.AddDate(0, 0, int(value)), nil
	case "%tw":
		year := Epoch.Year() + int(floorDiv(value, 52))
		days := int(floorMod(value, 52) * 7)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, days), nil
	case "%tm":
		year := Epoch.Year() + int(floorDiv(value, 12))
		month := time.Month(floorMod(value, 12) + 1)
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), nil
	case "%tq":
		year := Epoch.Year() + int(floorDiv(value, 4))
		month := time.Month(floorMod(value, 4)*3 + 1)
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), nil
	case "%th":
		year := Epoch.Year() + int(floorDiv(value, 2))
		month := time.Month(floorMod(value, 2)*6 + 1)
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), nil
	case "%ty":
		return time.Date(int(value), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	case "%tC":
		return time.Time{}, fmt.Errorf("tag %%tC is passthrough only: %w", ErrUnsupportedFormat)
	}
	return time.Time{}, fmt.Errorf("tag %q: %w", tag, ErrUnsupportedFormat)
}

// FromTime encodes a calendar value as a SIF number for the date tag.
// The result is a 64-bit float, the storage type the format expects for
// SIF columns. %tC is rejected.
func FromTime(t time.Time, tag string) (float64, error) {
	t = t.UTC()
	year := int64(t.Year())
	month := int64(t.Month())

	switch normalize(tag) {
	case "%tc":
		return float64(t.Sub(Epoch).Microseconds()) / 1000, nil
	case "%td", "%d":
		return float64(floorDiv(t.Sub(Epoch).Microseconds(), 86400*1000*1000)), nil
	case "%tw":
		return float64(52*(year-1960) + int64(t.YearDay()-1)/7), nil
	case "%tm":
		return float64(12*(year-1960) + month - 1), nil
	case "%tq":
		return float64(4*(year-1960) + (month-1)/3), nil
	case "%th":
		half := int64(0)
		if month > 6 {
			half = 1
		}
		return float64(2*(year-1960) + half), nil
	case "%ty":
		return float64(year), nil
	case "%tC":
		return 0, fmt.Errorf("tag %%tC cannot be encoded: %w", ErrUnsupportedFormat)
	}
	return 0, fmt.Errorf("tag %q: %w", tag, ErrUnsupportedFormat)
}
