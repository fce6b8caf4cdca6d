package dta

import (
	"errors"
	"fmt"

	"github.com/statkit/dta/pkg/cursor"
)

// ValueLabels returns the label-set dictionaries: label-set name to a
// map from integer code to display string. For legacy files the
// section physically follows the data block, so Read must have been
// called first; otherwise ErrSequence is returned.
func (r *Reader) ValueLabels() (map[string]map[int32]string, error) {
	if !r.labelsRead {
		if err := r.readValueLabels(); err != nil {
			return nil, err
		}
	}
	return r.valueLabels, nil
}

// readValueLabels populates the value-label dictionary exactly once.
// Version >= 117 seeks directly via the stored offset; legacy versions
// read from the current position, which is only valid once the data
// block has been consumed.
func (r *Reader) readValueLabels() error {
	if r.hdr.Tagged() {
		if err := r.cur.Seek(r.hdr.ValueLabelsOffset); err != nil {
			return err
		}
	} else {
		if !r.dataRead {
			return fmt.Errorf("value labels are stored after the data block; "+
				"read data first: %w", ErrSequence)
		}
		if r.labelsRead {
			return fmt.Errorf("value labels have already been read: %w", ErrSequence)
		}
	}

	r.valueLabels = make(map[string]map[int32]string)
	r.labelsRead = true

	// Versions 108 and earlier have no value-label section.
	if r.hdr.Version <= 108 {
		return nil
	}

	for {
		if r.hdr.Tagged() {
			tag, err := r.cur.ReadExact(5)
			if err != nil {
				return err
			}
			if string(tag) == "</val" {
				break
			}
			// Otherwise the 5 bytes were "<lbl>".
		}

		// Table length prefix; running out of stream here ends the
		// section in legacy files.
		if _, err := r.cur.Uint32(); err != nil {
			if !r.hdr.Tagged() && errors.Is(err, cursor.ErrTruncated) {
				break
			}
			return err
		}

		name, err := r.readCString(33)
		if err != nil {
			return err
		}
		if err := r.cur.Skip(3); err != nil { // padding
			return err
		}
		n, err := r.cur.Uint32()
		if err != nil {
			return err
		}
		txtLen, err := r.cur.Uint32()
		if err != nil {
			return err
		}
		offsets := make([]uint32, n)
		for i := range offsets {
			if offsets[i], err = r.cur.Uint32(); err != nil {
				return err
			}
		}
		values := make([]int32, n)
		for i := range values {
			v, err := r.cur.Uint32()
			if err != nil {
				return err
			}
			values[i] = int32(v)
		}
		txt, err := r.cur.ReadExact(int(txtLen))
		if err != nil {
			return err
		}

		labels := make(map[int32]string, n)
		for i := uint32(0); i < n; i++ {
			off := offsets[i]
			if off > txtLen {
				return fmt.Errorf("label text offset %d beyond block of %d bytes", off, txtLen)
			}
			s, err := r.decodeCString(txt[off:])
			if err != nil {
				return err
			}
			labels[values[i]] = s
		}
		r.valueLabels[name] = labels

		if r.hdr.Tagged() {
			if err := r.cur.Skip(6); err != nil { // </lbl>
				return err
			}
		}
	}

	r.log.Debug().Int("label_sets", len(r.valueLabels)).Msg("read value labels")
	return nil
}
