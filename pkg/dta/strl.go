package dta

// readStrls populates the long-string (GSO) table for tagged files.
// Each entry is a "GSO" marker, an 8-byte composite (table index, row
// index) key, a type byte, a 32-bit length, and the content including
// a trailing NUL. Columns declared as strL are rejected at descriptor
// parse time, so the store is kept for metadata consumers only.
func (r *Reader) readStrls() error {
	if err := r.cur.Seek(r.hdr.StrlsOffset); err != nil {
		return err
	}
	r.gso = make(map[uint64][]byte)

	for {
		marker, err := r.cur.ReadExact(3)
		if err != nil {
			return err
		}
		if string(marker) != "GSO" {
			break
		}
		key, err := r.cur.Uint64()
		if err != nil {
			return err
		}
		if err := r.cur.Skip(1); err != nil { // type byte
			return err
		}
		length, err := r.cur.Uint32()
		if err != nil {
			return err
		}
		if length == 0 {
			r.gso[key] = nil
			continue
		}
		content, err := r.cur.ReadExact(int(length) - 1)
		if err != nil {
			return err
		}
		if err := r.cur.Skip(1); err != nil { // zero termination
			return err
		}
		r.gso[key] = content
	}

	if len(r.gso) > 0 {
		r.log.Debug().Int("entries", len(r.gso)).Msg("read long-string table")
	}
	return nil
}

// LongStrings returns the long-string (GSO) table keyed by the 8-byte
// composite (table index, row index) value. Populated by Read on
// tagged files; nil otherwise.
func (r *Reader) LongStrings() map[uint64][]byte {
	return r.gso
}
