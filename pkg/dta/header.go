// Package dta reads and writes Stata .dta files: versions 104-115 in
// the fixed-offset legacy layout and version 117 in the tagged layout,
// plus a version 114 writer.
package dta

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/statkit/dta/pkg/dtype"
)

// Supported wire-format versions.
var supportedVersions = map[int]bool{
	104: true, 105: true, 108: true, 113: true, 114: true, 115: true, 117: true,
}

// Header carries the parsed file header. Immutable once parsed.
type Header struct {
	Version   int
	ByteOrder binary.ByteOrder
	NVars     int
	NObs      int
	DataLabel string
	TimeStamp string

	// DataOffset is the absolute offset of the data block.
	DataOffset int64

	// Tagged layout (117) section offsets, already corrected by the
	// format-fixed additive constants.
	StrlsOffset       int64
	ValueLabelsOffset int64
}

// Tagged reports whether the header uses the offset-addressed layout.
func (h *Header) Tagged() bool {
	return h.Version >= 117
}

// parseHeader dispatches on the first byte: '<' opens the tagged
// layout's "<stata_dta>" preamble, anything else is the legacy version
// byte.
func (r *Reader) parseHeader() error {
	first, err := r.cur.Uint8()
	if err != nil {
		return err
	}
	if first == '<' {
		return r.parseTaggedHeader()
	}
	return r.parseLegacyHeader(first)
}

func (r *Reader) parseLegacyHeader(versionByte uint8) error {
	h := &r.hdr
	h.Version = int(versionByte)
	if !supportedVersions[h.Version] {
		return fmt.Errorf("version %d: %w", h.Version, ErrUnsupportedVersion)
	}

	bo, err := r.cur.Uint8()
	if err != nil {
		return err
	}
	if bo == 0x01 {
		h.ByteOrder = binary.BigEndian
	} else {
		h.ByteOrder = binary.LittleEndian
	}
	r.cur.SetOrder(h.ByteOrder)

	// Filetype byte and one unused byte.
	if err := r.cur.Skip(2); err != nil {
		return err
	}

	nvar, err := r.cur.Uint16()
	if err != nil {
		return err
	}
	h.NVars = int(nvar)
	nobs, err := r.cur.Uint32()
	if err != nil {
		return err
	}
	h.NObs = int(nobs)

	labelWidth := 81
	if h.Version <= 105 {
		labelWidth = 32
	}
	if h.DataLabel, err = r.readCString(labelWidth); err != nil {
		return err
	}
	if h.Version > 104 {
		if h.TimeStamp, err = r.readCString(18); err != nil {
			return err
		}
	}

	if err := r.parseLegacyDescriptors(); err != nil {
		return err
	}
	if err := r.skipExpansionFields(); err != nil {
		return err
	}
	h.DataOffset, err = r.cur.Tell()
	return err
}

func (r *Reader) parseLegacyDescriptors() error {
	h := &r.hdr
	nvar := h.NVars

	r.specs = make([]dtype.Spec, nvar)
	raw, err := r.cur.ReadExact(nvar)
	if err != nil {
		return err
	}
	for i, b := range raw {
		var spec dtype.Spec
		if h.Version > 108 {
			spec, err = dtype.FromCode(b)
		} else {
			spec, err = dtype.FromOldCode(b)
		}
		if err != nil {
			return err
		}
		r.specs[i] = spec
	}

	nameWidth := 33
	if h.Version <= 108 {
		nameWidth = 9
	}
	if r.names, err = r.readCStrings(nvar, nameWidth); err != nil {
		return err
	}
	if r.sortList, err = r.readSortList(); err != nil {
		return err
	}

	fmtWidth := 49
	switch {
	case h.Version <= 104:
		fmtWidth = 7
	case h.Version <= 113:
		fmtWidth = 12
	}
	if r.formats, err = r.readCStrings(nvar, fmtWidth); err != nil {
		return err
	}
	if r.labelNames, err = r.readCStrings(nvar, nameWidth); err != nil {
		return err
	}

	varLabelWidth := 81
	if h.Version <= 105 {
		varLabelWidth = 32
	}
	r.varLabels, err = r.readCStrings(nvar, varLabelWidth)
	return err
}

// skipExpansionFields consumes the terminated sequence of expansion
// fields: a type byte plus a length (int32 from version 109, int16
// before), repeated until a zero type byte. Version 104 has none.
func (r *Reader) skipExpansionFields() error {
	if r.hdr.Version <= 104 {
		return nil
	}
	for {
		typ, err := r.cur.Int8()
		if err != nil {
			return err
		}
		var length int
		if r.hdr.Version > 108 {
			v, err := r.cur.Int32()
			if err != nil {
				return err
			}
			length = int(v)
		} else {
			v, err := r.cur.Int16()
			if err != nil {
				return err
			}
			length = int(v)
		}
		if typ == 0 {
			return nil
		}
		if err := r.cur.Skip(length); err != nil {
			return err
		}
	}
}

// Additive constants applied to the tagged layout's stored section
// offsets. Each stored value points at a section's opening tag; the
// constant skips past the tag bytes to the section payload.
const (
	taggedVarTypesBase        = 16
	taggedVarNamesBase        = 10
	taggedSortListBase        = 10
	taggedFormatsBase         = 9
	taggedValueLabelNamesBase = 19
	taggedDataBase            = 6
	taggedStrlsBase           = 7
	taggedValueLabelsBase     = 14
)

func (r *Reader) parseTaggedHeader() error {
	h := &r.hdr

	// The preamble marker strings are skipped positionally, not
	// validated: "stata_dta><header><release>".
	if err := r.cur.Skip(27); err != nil {
		return err
	}
	verBytes, err := r.cur.ReadExact(3)
	if err != nil {
		return err
	}
	h.Version, err = strconv.Atoi(string(verBytes))
	if err != nil || h.Version != 117 {
		return fmt.Errorf("release %q: %w", string(verBytes), ErrUnsupportedVersion)
	}

	if err := r.cur.Skip(21); err != nil { // </release><byteorder>
		return err
	}
	order, err := r.cur.ReadExact(3)
	if err != nil {
		return err
	}
	if string(order) == "MSF" {
		h.ByteOrder = binary.BigEndian
	} else {
		h.ByteOrder = binary.LittleEndian
	}
	r.cur.SetOrder(h.ByteOrder)

	if err := r.cur.Skip(15); err != nil { // </byteorder><K>
		return err
	}
	nvar, err := r.cur.Uint16()
	if err != nil {
		return err
	}
	h.NVars = int(nvar)
	if err := r.cur.Skip(7); err != nil { // </K><N>
		return err
	}
	nobs, err := r.cur.Uint32()
	if err != nil {
		return err
	}
	h.NObs = int(nobs)

	if err := r.cur.Skip(11); err != nil { // </N><label>
		return err
	}
	labelLen, err := r.cur.Uint8()
	if err != nil {
		return err
	}
	if h.DataLabel, err = r.readCString(int(labelLen)); err != nil {
		return err
	}
	if err := r.cur.Skip(19); err != nil { // </label><timestamp>
		return err
	}
	tsLen, err := r.cur.Uint8()
	if err != nil {
		return err
	}
	if h.TimeStamp, err = r.readCString(int(tsLen)); err != nil {
		return err
	}

	// </timestamp></header><map>, then the map's first two entries
	// (file start and the map's own position).
	if err := r.cur.Skip(26 + 8 + 8); err != nil {
		return err
	}

	seekVarTypes, err := r.taggedOffset(taggedVarTypesBase)
	if err != nil {
		return err
	}
	seekVarNames, err := r.taggedOffset(taggedVarNamesBase)
	if err != nil {
		return err
	}
	seekSortList, err := r.taggedOffset(taggedSortListBase)
	if err != nil {
		return err
	}
	seekFormats, err := r.taggedOffset(taggedFormatsBase)
	if err != nil {
		return err
	}
	seekValueLabelNames, err := r.taggedOffset(taggedValueLabelNamesBase)
	if err != nil {
		return err
	}

	// On-disk 117 files do not store the variable-labels offset the way
	// the format document says. The stored value is discarded and the
	// offset is recomputed from the label-names section: 33 bytes per
	// variable plus 20 for the closing tag and 17 for the opening tag.
	if err := r.cur.Skip(8); err != nil {
		return err
	}
	seekVariableLabels := seekValueLabelNames + int64(33*h.NVars) + 20 + 17

	if err := r.cur.Skip(8); err != nil { // <characteristics>
		return err
	}
	if h.DataOffset, err = r.taggedOffset(taggedDataBase); err != nil {
		return err
	}
	if h.StrlsOffset, err = r.taggedOffset(taggedStrlsBase); err != nil {
		return err
	}
	if h.ValueLabelsOffset, err = r.taggedOffset(taggedValueLabelsBase); err != nil {
		return err
	}

	return r.parseTaggedDescriptors(seekVarTypes, seekVarNames, seekSortList,
		seekFormats, seekValueLabelNames, seekVariableLabels)
}

func (r *Reader) taggedOffset(base int64) (int64, error) {
	raw, err := r.cur.Int64()
	if err != nil {
		return 0, err
	}
	return raw + base, nil
}

// parseTaggedDescriptors reads each descriptor section by seeking to
// its corrected offset. The tagged layout does not guarantee section
// order, so scattered seeks are required.
func (r *Reader) parseTaggedDescriptors(varTypes, varNames, sortList, formats,
	valueLabelNames, variableLabels int64) error {
	nvar := r.hdr.NVars

	if err := r.cur.Seek(varTypes); err != nil {
		return err
	}
	r.specs = make([]dtype.Spec, nvar)
	for i := 0; i < nvar; i++ {
		code, err := r.cur.Uint16()
		if err != nil {
			return err
		}
		spec, err := dtype.FromTaggedCode(code)
		if err != nil {
			return err
		}
		r.specs[i] = spec
	}

	if err := r.cur.Seek(varNames); err != nil {
		return err
	}
	var err error
	if r.names, err = r.readCStrings(nvar, 33); err != nil {
		return err
	}

	if err := r.cur.Seek(sortList); err != nil {
		return err
	}
	if r.sortList, err = r.readSortList(); err != nil {
		return err
	}

	if err := r.cur.Seek(formats); err != nil {
		return err
	}
	if r.formats, err = r.readCStrings(nvar, 49); err != nil {
		return err
	}

	if err := r.cur.Seek(valueLabelNames); err != nil {
		return err
	}
	if r.labelNames, err = r.readCStrings(nvar, 33); err != nil {
		return err
	}

	if err := r.cur.Seek(variableLabels); err != nil {
		return err
	}
	r.varLabels, err = r.readCStrings(nvar, 81)
	return err
}

func (r *Reader) readSortList() ([]int16, error) {
	list := make([]int16, r.hdr.NVars+1)
	for i := range list {
		v, err := r.cur.Int16()
		if err != nil {
			return nil, err
		}
		list[i] = v
	}
	return list[:r.hdr.NVars], nil
}
