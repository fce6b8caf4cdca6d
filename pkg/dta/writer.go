package dta

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/statkit/dta/pkg/cursor"
	"github.com/statkit/dta/pkg/dates"
	"github.com/statkit/dta/pkg/dtype"
	"github.com/statkit/dta/pkg/logging"
	"github.com/statkit/dta/pkg/table"
)

// writeVersion is the fixed output wire-format version. The writer
// emits the legacy layout only.
const writeVersion = 114

// WriterOptions configures a Writer.
type WriterOptions struct {
	// ConvertDates maps column names to date tags (tc, td, tw, tm, tq,
	// th, ty; a leading % is optional). The named columns must hold
	// calendar values and are stored as SIF doubles.
	ConvertDates map[string]string
	// ConvertDateIndexes is the position-keyed equivalent.
	ConvertDateIndexes map[int]string
	// Encoding is the single-byte code page for strings; nil selects
	// Latin-1.
	Encoding encoding.Encoding
	// ByteOrder of emitted scalars; nil selects little-endian.
	ByteOrder binary.ByteOrder
	// TimeStamp for the header; the zero value selects time.Now.
	TimeStamp time.Time
	// DataLabel is the dataset label, truncated to 80 bytes.
	DataLabel string
}

// Writer validates and casts a table into format-representable types
// and serializes it as a version 114 file. Nothing is written to the
// destination until the whole serialization has succeeded.
type Writer struct {
	dst  io.Writer
	tbl  *table.Table
	opts WriterOptions
	enc  *encoding.Encoder
	log  zerolog.Logger

	warnings []string
}

// NewWriter prepares a writer for the given table and destination.
func NewWriter(dst io.Writer, tbl *table.Table, opts WriterOptions) (*Writer, error) {
	if tbl.NumCols() == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	if opts.Encoding == nil {
		opts.Encoding = charmap.ISO8859_1
	}
	if opts.ByteOrder == nil {
		opts.ByteOrder = binary.LittleEndian
	}
	return &Writer{
		dst:  dst,
		tbl:  tbl,
		opts: opts,
		enc:  opts.Encoding.NewEncoder(),
		log:  logging.WithPhase("write"),
	}, nil
}

// Warnings returns the aggregated recoverable conditions noted while
// writing.
func (w *Writer) Warnings() []string { return w.warnings }

func (w *Writer) warn(msg string) {
	w.warnings = append(w.warnings, msg)
	w.log.Warn().Msg(msg)
}

// column state derived during preparation.
type outColumn struct {
	col    *table.Column
	spec   dtype.Spec
	format string
}

// Write runs the cast/sanitize/encode pipeline and serializes the
// file.
func (w *Writer) Write() error {
	cols, err := w.prepare()
	if err != nil {
		return err
	}

	out := cursor.NewWriter(w.opts.ByteOrder)
	if err := w.writeHeader(out); err != nil {
		return err
	}
	w.writeDescriptors(out, cols)
	// Five zero bytes stand in for the expansion-field section.
	out.PutZeros(5)
	if err := w.writeData(out, cols); err != nil {
		return err
	}

	if err := out.Flush(w.dst); err != nil {
		return fmt.Errorf("write dta stream: %w", err)
	}
	w.log.Debug().
		Int("rows", w.tbl.NumRows()).
		Int("cols", w.tbl.NumCols()).
		Int("bytes", out.Len()).
		Msg("serialized dta file")
	return nil
}

func (w *Writer) prepare() ([]outColumn, error) {
	src := w.tbl.Columns()

	// Date directives keyed by position, name keys resolved first.
	dateTags := make(map[int]string, len(w.opts.ConvertDates)+len(w.opts.ConvertDateIndexes))
	for i, tag := range w.opts.ConvertDateIndexes {
		if i < 0 || i >= len(src) {
			return nil, fmt.Errorf("date conversion index %d out of range", i)
		}
		dateTags[i] = normalizeTag(tag)
	}
	for name, tag := range w.opts.ConvertDates {
		_, i, ok := w.tbl.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("date conversion column %q not in table", name)
		}
		dateTags[i] = normalizeTag(tag)
	}

	// Stage 1: cast to storable kinds, aggregating precision warnings.
	cols := make([]*table.Column, len(src))
	var precisionNotes []string
	for i, c := range src {
		if _, isDate := dateTags[i]; isDate {
			cols[i] = c
			continue
		}
		cast, notes, err := dtype.CastToStorable(c)
		if err != nil {
			return nil, err
		}
		precisionNotes = append(precisionNotes, notes...)
		cols[i] = cast
	}
	if len(precisionNotes) > 0 {
		w.warn("possible precision loss: " + strings.Join(precisionNotes, "; "))
	}

	// Stage 2: sanitize column names, propagating renames into the
	// date-directive key space (already positional) and aggregating the
	// rename log into a single warning.
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
	}
	fixed, renames, err := sanitizeNames(names)
	if err != nil {
		return nil, err
	}
	for i, c := range cols {
		if fixed[i] != c.Name() {
			cols[i] = c.Rename(fixed[i])
		}
	}
	if len(renames) > 0 {
		w.warn("not all column names were valid variable names; renamed: " +
			strings.Join(renames, ", "))
	}

	// Stage 3: encode date columns as SIF doubles, null dates becoming
	// the generic double sentinel.
	for i, tag := range dateTags {
		converted, err := encodeDateColumn(cols[i], tag)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cols[i].Name(), err)
		}
		cols[i] = converted
	}

	// Stage 4 and 5: replace float nulls with the generic sentinel and
	// derive per-column type specs and display formats.
	out := make([]outColumn, len(cols))
	for i, c := range cols {
		oc, err := w.finishColumn(c)
		if err != nil {
			return nil, err
		}
		if tag, ok := dateTags[i]; ok {
			oc.format = tag
		}
		out[i] = oc
	}
	return out, nil
}

func normalizeTag(tag string) string {
	if !strings.HasPrefix(tag, "%") {
		return "%" + tag
	}
	return tag
}

// encodeDateColumn casts a calendar column to float64 SIF values.
func encodeDateColumn(c *table.Column, tag string) (*table.Column, error) {
	if c.Kind() != table.Time {
		return nil, fmt.Errorf("date conversion requires a time column, got %s: %w",
			c.Kind(), dates.ErrUnsupportedFormat)
	}
	n := c.Len()
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		if c.IsNull(i) {
			vals[i] = dtype.GenericMissing(table.Float64)
			continue
		}
		v, err := dates.FromTime(c.TimeAt(i), tag)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return table.NewFloat64(c.Name(), vals, nil), nil
}

// finishColumn replaces nulls with sentinels and derives the column's
// type spec and display format.
func (w *Writer) finishColumn(c *table.Column) (outColumn, error) {
	n := c.Len()
	switch c.Kind() {
	case table.Float64, table.Float32:
		c = w.fillFloatNulls(c)
	case table.Int8, table.Int16, table.Int32:
		for i := 0; i < n; i++ {
			if c.IsNull(i) {
				return outColumn{}, fmt.Errorf(
					"column %q: integer column still carries nulls after cast", c.Name())
			}
		}
	}

	switch c.Kind() {
	case table.String:
		width := 0
		for i := 0; i < n; i++ {
			if c.IsNull(i) {
				continue
			}
			enc, err := w.encodeString(c.StringAt(i))
			if err != nil {
				return outColumn{}, fmt.Errorf("column %q row %d: %w", c.Name(), i, err)
			}
			if len(enc) > width {
				width = len(enc)
			}
		}
		if width > 244 {
			return outColumn{}, fmt.Errorf("column %q is %d bytes wide: %w",
				c.Name(), width, ErrStringTooLong)
		}
		if width == 0 {
			width = 1
		}
		return outColumn{
			col:    c,
			spec:   dtype.Spec{Str: true, StrLen: width},
			format: fmt.Sprintf("%%%ds", width),
		}, nil
	case table.Float64:
		return outColumn{col: c, spec: dtype.Spec{Kind: table.Float64}, format: "%10.0g"}, nil
	case table.Float32:
		return outColumn{col: c, spec: dtype.Spec{Kind: table.Float32}, format: "%9.0g"}, nil
	case table.Int32:
		return outColumn{col: c, spec: dtype.Spec{Kind: table.Int32}, format: "%12.0g"}, nil
	case table.Int16:
		return outColumn{col: c, spec: dtype.Spec{Kind: table.Int16}, format: "%8.0g"}, nil
	case table.Int8:
		return outColumn{col: c, spec: dtype.Spec{Kind: table.Int8}, format: "%8.0g"}, nil
	case table.Time:
		return outColumn{}, fmt.Errorf("column %q: calendar column has no date "+
			"conversion directive: %w", c.Name(), dtype.ErrUnsupportedType)
	}
	return outColumn{}, fmt.Errorf("column %q: kind %s: %w",
		c.Name(), c.Kind(), dtype.ErrUnsupportedType)
}

// fillFloatNulls replaces null cells with the generic float sentinel
// for the column's kind.
func (w *Writer) fillFloatNulls(c *table.Column) *table.Column {
	n := c.Len()
	hasNull := false
	for i := 0; i < n; i++ {
		if c.IsNull(i) {
			hasNull = true
			break
		}
	}
	if !hasNull {
		return c
	}
	if c.Kind() == table.Float32 {
		sentinel := float32(dtype.GenericMissing(table.Float32))
		vals := make([]float32, n)
		for i := 0; i < n; i++ {
			if c.IsNull(i) {
				vals[i] = sentinel
			} else {
				vals[i] = c.Float32(i)
			}
		}
		return table.NewFloat32(c.Name(), vals, nil)
	}
	sentinel := dtype.GenericMissing(table.Float64)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		if c.IsNull(i) {
			vals[i] = sentinel
		} else {
			vals[i] = c.Float64(i)
		}
	}
	return table.NewFloat64(c.Name(), vals, nil)
}

func (w *Writer) encodeString(s string) ([]byte, error) {
	b, err := w.enc.Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode string: %w", err)
	}
	return b, nil
}

// writeHeader emits the fixed version 114 header: version byte, byte
// order flag, filetype flag, counts, 81-byte data label and 18-byte
// timestamp formatted as "dd Mon yyyy HH:MM".
func (w *Writer) writeHeader(out *cursor.WriteCursor) error {
	out.PutUint8(writeVersion)
	if w.opts.ByteOrder == binary.BigEndian {
		out.PutUint8(0x01)
	} else {
		out.PutUint8(0x02)
	}
	out.PutUint8(0x01) // filetype
	out.PutUint8(0x00) // unused
	out.PutInt16(int16(w.tbl.NumCols()))
	out.PutInt32(int32(w.tbl.NumRows()))

	label, err := w.encodeString(w.opts.DataLabel)
	if err != nil {
		return err
	}
	out.PutPadded(label, 80)
	out.PutUint8(0)

	ts := w.opts.TimeStamp
	if ts.IsZero() {
		ts = time.Now()
	}
	stamp := ts.Format("02 Jan 2006 15:04")
	out.PutPadded([]byte(stamp), 17)
	out.PutUint8(0)
	return nil
}

// writeDescriptors emits type bytes, 33-byte names, a zeroed sort
// list, 49-byte formats, zeroed label-name slots and zeroed variable
// labels.
func (w *Writer) writeDescriptors(out *cursor.WriteCursor, cols []outColumn) {
	for _, oc := range cols {
		out.PutUint8(oc.spec.Code())
	}
	for _, oc := range cols {
		out.PutPadded([]byte(oc.col.Name()), 33)
	}
	out.PutZeros(2 * (len(cols) + 1)) // sort list
	for _, oc := range cols {
		out.PutPadded([]byte(oc.format), 49)
	}
	out.PutZeros(33 * len(cols)) // value-label names
	out.PutZeros(81 * len(cols)) // variable labels
}

// writeData emits the data block as one flat concatenation of
// fixed-width records.
func (w *Writer) writeData(out *cursor.WriteCursor, cols []outColumn) error {
	rows := w.tbl.NumRows()
	for row := 0; row < rows; row++ {
		for _, oc := range cols {
			if oc.spec.Str {
				enc, err := w.encodeString(oc.col.StringAt(row))
				if err != nil {
					return fmt.Errorf("column %q row %d: %w", oc.col.Name(), row, err)
				}
				out.PutPadded(enc, oc.spec.StrLen)
				continue
			}
			switch oc.spec.Kind {
			case table.Int8:
				out.PutInt8(oc.col.Int8(row))
			case table.Int16:
				out.PutInt16(oc.col.Int16(row))
			case table.Int32:
				out.PutInt32(oc.col.Int32(row))
			case table.Float32:
				out.PutFloat32(oc.col.Float32(row))
			case table.Float64:
				out.PutFloat64(oc.col.Float64(row))
			}
		}
	}
	return nil
}
