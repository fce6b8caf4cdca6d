package cursor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// WriteCursor serializes primitive values into an in-memory buffer.
// Nothing touches the destination stream until Flush, so a failed
// serialization leaves the destination untouched.
type WriteCursor struct {
	buf   bytes.Buffer
	order binary.ByteOrder
}

// NewWriter creates a write cursor with the given byte order.
func NewWriter(order binary.ByteOrder) *WriteCursor {
	return &WriteCursor{order: order}
}

// Order returns the write cursor's byte order.
func (w *WriteCursor) Order() binary.ByteOrder {
	return w.order
}

// Len returns the number of bytes buffered so far.
func (w *WriteCursor) Len() int {
	return w.buf.Len()
}

// Bytes returns the buffered serialization.
func (w *WriteCursor) Bytes() []byte {
	return w.buf.Bytes()
}

// PutBytes appends raw bytes.
func (w *WriteCursor) PutBytes(b []byte) {
	w.buf.Write(b)
}

// PutUint8 appends one byte.
func (w *WriteCursor) PutUint8(v uint8) {
	w.buf.WriteByte(v)
}

// PutInt8 appends one signed byte.
func (w *WriteCursor) PutInt8(v int8) {
	w.buf.WriteByte(byte(v))
}

// PutUint16 appends a 16-bit unsigned integer.
func (w *WriteCursor) PutUint16(v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// PutInt16 appends a 16-bit signed integer.
func (w *WriteCursor) PutInt16(v int16) {
	w.PutUint16(uint16(v))
}

// PutUint32 appends a 32-bit unsigned integer.
func (w *WriteCursor) PutUint32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// PutInt32 appends a 32-bit signed integer.
func (w *WriteCursor) PutInt32(v int32) {
	w.PutUint32(uint32(v))
}

// PutUint64 appends a 64-bit unsigned integer.
func (w *WriteCursor) PutUint64(v uint64) {
	var b [8]byte
	w.order.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// PutFloat32 appends a 32-bit IEEE 754 value.
func (w *WriteCursor) PutFloat32(v float32) {
	w.PutUint32(math.Float32bits(v))
}

// PutFloat64 appends a 64-bit IEEE 754 value.
func (w *WriteCursor) PutFloat64(v float64) {
	w.PutUint64(math.Float64bits(v))
}

// PutZeros appends n zero bytes.
func (w *WriteCursor) PutZeros(n int) {
	w.buf.Write(make([]byte, n))
}

// PutPadded appends b truncated or right-padded with zero bytes to
// exactly width bytes.
func (w *WriteCursor) PutPadded(b []byte, width int) {
	if len(b) > width {
		b = b[:width]
	}
	w.buf.Write(b)
	if len(b) < width {
		w.PutZeros(width - len(b))
	}
}

// Flush copies the buffered serialization to dst in one pass.
func (w *WriteCursor) Flush(dst io.Writer) error {
	if _, err := dst.Write(w.buf.Bytes()); err != nil {
		return fmt.Errorf("flush %d bytes: %w", w.buf.Len(), err)
	}
	return nil
}
