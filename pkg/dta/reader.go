package dta

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
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

// ReadOptions selects the post-decode conversions applied by Read.
type ReadOptions struct {
	// ConvertDates decodes columns whose display format is a date tag
	// into calendar values.
	ConvertDates bool
	// ConvertCategoricals resolves value labels and replaces coded
	// integers with their label strings.
	ConvertCategoricals bool
	// ConvertMissing keeps missing-value fidelity: sentinel cells are
	// annotated with their symbol instead of collapsing to plain nulls.
	ConvertMissing bool
}

// Reader parses a .dta stream. The header and descriptors are parsed
// on Open and immutable afterwards; the data block, value labels and
// long-string table are read lazily. A Reader owns its stream for the
// duration of a logical read and must not be shared across goroutines.
type Reader struct {
	cur *cursor.Cursor
	dec *encoding.Decoder
	log zerolog.Logger

	hdr        Header
	specs      []dtype.Spec
	names      []string
	formats    []string
	labelNames []string
	varLabels  []string
	sortList   []int16

	valueLabels map[string]map[int32]string
	gso         map[uint64][]byte

	dataRead   bool
	labelsRead bool
	warnings   []string
}

// Open parses the header and column descriptors from a seekable
// stream. enc is the single-byte code page used for strings; nil
// selects Windows-1252.
func Open(stream io.ReadSeeker, enc encoding.Encoding) (*Reader, error) {
	if enc == nil {
		enc = charmap.Windows1252
	}
	r := &Reader{
		cur: cursor.New(stream),
		dec: enc.NewDecoder(),
		log: logging.WithPhase("read"),
	}
	if err := r.parseHeader(); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	r.log.Debug().
		Int("version", r.hdr.Version).
		Int("nvars", r.hdr.NVars).
		Int("nobs", r.hdr.NObs).
		Int64("data_offset", r.hdr.DataOffset).
		Msg("parsed dta header")
	return r, nil
}

// Version returns the wire-format version from the header.
func (r *Reader) Version() int { return r.hdr.Version }

// NVars returns the number of columns.
func (r *Reader) NVars() int { return r.hdr.NVars }

// NObs returns the number of observations.
func (r *Reader) NObs() int { return r.hdr.NObs }

// DataLabel returns the dataset label from the header.
func (r *Reader) DataLabel() string { return r.hdr.DataLabel }

// TimeStamp returns the header timestamp string.
func (r *Reader) TimeStamp() string { return r.hdr.TimeStamp }

// Names returns the column names in file order.
func (r *Reader) Names() []string { return r.names }

// Formats returns the per-column display-format strings.
func (r *Reader) Formats() []string { return r.formats }

// SortList returns the sort-order variable list from the descriptors.
func (r *Reader) SortList() []int16 { return r.sortList }

// VariableLabels returns the free-text label attached to each column.
func (r *Reader) VariableLabels() map[string]string {
	labels := make(map[string]string, len(r.names))
	for i, name := range r.names {
		labels[name] = r.varLabels[i]
	}
	return labels
}

// Warnings returns the recoverable conditions noted during reads.
func (r *Reader) Warnings() []string { return r.warnings }

func (r *Reader) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, msg)
	r.log.Warn().Msg(msg)
}

// readCString reads a fixed-width field, truncates at the first NUL
// and decodes it with the configured code page.
func (r *Reader) readCString(width int) (string, error) {
	raw, err := r.cur.ReadExact(width)
	if err != nil {
		return "", err
	}
	return r.decodeCString(raw)
}

func (r *Reader) decodeCString(raw []byte) (string, error) {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	s, err := r.dec.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode string: %w", err)
	}
	return string(s), nil
}

func (r *Reader) readCStrings(n, width int) ([]string, error) {
	out := make([]string, n)
	for i := range out {
		s, err := r.readCString(width)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Read decodes the data block and reassembles the table. It may be
// called once per Reader; a second call fails with ErrSequence.
func (r *Reader) Read(opts ReadOptions) (*table.Table, error) {
	if r.dataRead {
		return nil, fmt.Errorf("data has already been read: %w", ErrSequence)
	}
	r.dataRead = true

	if r.hdr.Tagged() {
		if err := r.readStrls(); err != nil {
			return nil, fmt.Errorf("read long-string table: %w", err)
		}
	}

	cols, err := r.readDataBlock()
	if err != nil {
		return nil, fmt.Errorf("read data block: %w", err)
	}

	if opts.ConvertCategoricals && !r.labelsRead {
		if err := r.readValueLabels(); err != nil {
			return nil, fmt.Errorf("read value labels: %w", err)
		}
	}

	for i, col := range cols {
		cols[i] = r.replaceMissing(col, opts.ConvertMissing)
	}
	if opts.ConvertDates {
		for i, col := range cols {
			if dates.IsDateFormat(r.formats[i]) {
				converted, err := r.convertDates(col, r.formats[i])
				if err != nil {
					return nil, fmt.Errorf("column %q: %w", col.Name(), err)
				}
				cols[i] = converted
			}
		}
	}
	if opts.ConvertCategoricals {
		for i, col := range cols {
			if labels, ok := r.valueLabels[r.labelNames[i]]; ok {
				cols[i] = resolveLabels(col, labels)
			}
		}
	}

	tbl, err := table.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("assemble table: %w", err)
	}
	r.log.Debug().
		Int("rows", tbl.NumRows()).
		Int("cols", tbl.NumCols()).
		Msg("decoded data block")
	return tbl, nil
}

// readDataBlock reads nobs fixed-size records in one pass and splits
// them into typed columns.
func (r *Reader) readDataBlock() ([]*table.Column, error) {
	recSize := 0
	for _, spec := range r.specs {
		recSize += spec.Size()
	}

	if err := r.cur.Seek(r.hdr.DataOffset); err != nil {
		return nil, err
	}
	block, err := r.cur.ReadExact(recSize * r.hdr.NObs)
	if err != nil {
		return nil, err
	}

	order := r.hdr.ByteOrder
	nobs := r.hdr.NObs
	cols := make([]*table.Column, len(r.specs))
	fieldOff := 0
	for i, spec := range r.specs {
		width := spec.Size()
		cell := func(row int) []byte {
			base := row*recSize + fieldOff
			return block[base : base+width]
		}
		if spec.Str {
			vals := make([]string, nobs)
			for row := 0; row < nobs; row++ {
				s, err := r.decodeCString(cell(row))
				if err != nil {
					return nil, err
				}
				vals[row] = s
			}
			cols[i] = table.NewString(r.names[i], vals, nil)
		} else {
			switch spec.Kind {
			case table.Int8:
				vals := make([]int8, nobs)
				for row := 0; row < nobs; row++ {
					vals[row] = int8(cell(row)[0])
				}
				cols[i] = table.NewInt8(r.names[i], vals, nil)
			case table.Int16:
				vals := make([]int16, nobs)
				for row := 0; row < nobs; row++ {
					vals[row] = int16(order.Uint16(cell(row)))
				}
				cols[i] = table.NewInt16(r.names[i], vals, nil)
			case table.Int32:
				vals := make([]int32, nobs)
				for row := 0; row < nobs; row++ {
					vals[row] = int32(order.Uint32(cell(row)))
				}
				cols[i] = table.NewInt32(r.names[i], vals, nil)
			case table.Float32:
				vals := make([]float32, nobs)
				for row := 0; row < nobs; row++ {
					vals[row] = math.Float32frombits(order.Uint32(cell(row)))
				}
				cols[i] = table.NewFloat32(r.names[i], vals, nil)
			case table.Float64:
				vals := make([]float64, nobs)
				for row := 0; row < nobs; row++ {
					vals[row] = math.Float64frombits(order.Uint64(cell(row)))
				}
				cols[i] = table.NewFloat64(r.names[i], vals, nil)
			}
		}
		fieldOff += width
	}
	return cols, nil
}

// replaceMissing detects sentinel values via the kind's valid range and
// replaces them: with an annotated Missing(symbol) cell when fidelity
// is requested, otherwise with a generic null. Integer columns that
// collapse to generic nulls are promoted to float64. Float NaN cells
// become plain nulls either way.
func (r *Reader) replaceMissing(c *table.Column, keepFidelity bool) *table.Column {
	kind := c.Kind()
	if !kind.IsNumeric() {
		return c
	}

	n := c.Len()
	missingRows := make([]int, 0)
	nanRows := make([]int, 0)
	for i := 0; i < n; i++ {
		v := c.Number(i)
		if math.IsNaN(v) {
			nanRows = append(nanRows, i)
			continue
		}
		if dtype.IsMissing(kind, v) {
			missingRows = append(missingRows, i)
		}
	}
	if len(missingRows) == 0 && len(nanRows) == 0 {
		return c
	}

	if keepFidelity {
		out := cloneNumeric(c)
		for _, i := range missingRows {
			symbol, ok := dtype.Symbol(kind, c.Number(i))
			if !ok {
				symbol = "."
			}
			out.SetMissing(i, symbol)
		}
		for _, i := range nanRows {
			out.SetMissing(i, ".")
		}
		return out
	}

	if kind == table.Float32 || kind == table.Float64 {
		null := make([]bool, n)
		for _, i := range missingRows {
			null[i] = true
		}
		for _, i := range nanRows {
			null[i] = true
		}
		if kind == table.Float32 {
			vals := make([]float32, n)
			for i := 0; i < n; i++ {
				vals[i] = c.Float32(i)
			}
			return table.NewFloat32(c.Name(), vals, null)
		}
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			vals[i] = c.Float64(i)
		}
		return table.NewFloat64(c.Name(), vals, null)
	}

	// Integer kinds cannot represent a generic null; promote.
	vals := make([]float64, n)
	null := make([]bool, n)
	for i := 0; i < n; i++ {
		vals[i] = c.Number(i)
	}
	for _, i := range missingRows {
		null[i] = true
	}
	return table.NewFloat64(c.Name(), vals, null)
}

// cloneNumeric copies a numeric column so each read stage hands back a
// fresh column instead of annotating its input.
func cloneNumeric(c *table.Column) *table.Column {
	n := c.Len()
	null := make([]bool, n)
	for i := 0; i < n; i++ {
		null[i] = c.IsNull(i)
	}
	switch c.Kind() {
	case table.Int8:
		vals := make([]int8, n)
		for i := range vals {
			vals[i] = c.Int8(i)
		}
		return table.NewInt8(c.Name(), vals, null)
	case table.Int16:
		vals := make([]int16, n)
		for i := range vals {
			vals[i] = c.Int16(i)
		}
		return table.NewInt16(c.Name(), vals, null)
	case table.Int32:
		vals := make([]int32, n)
		for i := range vals {
			vals[i] = c.Int32(i)
		}
		return table.NewInt32(c.Name(), vals, null)
	case table.Float32:
		vals := make([]float32, n)
		for i := range vals {
			vals[i] = c.Float32(i)
		}
		return table.NewFloat32(c.Name(), vals, null)
	case table.Float64:
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = c.Float64(i)
		}
		return table.NewFloat64(c.Name(), vals, null)
	}
	return c
}

// convertDates decodes a numeric SIF column into calendar values. %tC
// is passed through undecoded with a caller-visible warning.
func (r *Reader) convertDates(c *table.Column, format string) (*table.Column, error) {
	if dates.IsPassthrough(format) {
		r.warnf("column %q uses the %%tC format; leaving values in Stata internal form", c.Name())
		return c, nil
	}
	n := c.Len()
	vals := make([]time.Time, n)
	null := make([]bool, n)
	for i := 0; i < n; i++ {
		if c.IsNull(i) {
			null[i] = true
			continue
		}
		t, err := dates.ToTime(int64(c.Number(i)), format)
		if err != nil {
			return nil, err
		}
		vals[i] = t
	}
	return table.NewTime(c.Name(), vals, null), nil
}

// resolveLabels substitutes coded integers with their label strings,
// producing a categorical (string) column. Codes with no matching
// label keep their numeric spelling. Columns already promoted to
// float64 by missing replacement still resolve when the value is an
// exact integer.
func resolveLabels(c *table.Column, labels map[int32]string) *table.Column {
	if !c.Kind().IsNumeric() {
		return c
	}
	n := c.Len()
	vals := make([]string, n)
	null := make([]bool, n)
	for i := 0; i < n; i++ {
		if c.IsNull(i) {
			null[i] = true
			continue
		}
		v := c.Number(i)
		code := int64(v)
		if float64(code) == v {
			if label, ok := labels[int32(code)]; ok {
				vals[i] = label
				continue
			}
			vals[i] = strconv.FormatInt(code, 10)
			continue
		}
		vals[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return table.NewString(c.Name(), vals, null)
}
