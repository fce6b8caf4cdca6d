// Package cursor provides seekable, endianness-aware primitive reads
// and writes over a byte stream.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrTruncated indicates the stream ended before a declared field or
// section was complete.
var ErrTruncated = errors.New("truncated input")

// Cursor reads primitive values from a seekable stream. The byte order
// used for multi-byte scalars is mutable because it is only known once
// the file header has been partially parsed.
type Cursor struct {
	r     io.ReadSeeker
	order binary.ByteOrder
}

// New creates a cursor over r. The byte order defaults to little-endian
// until SetOrder is called.
func New(r io.ReadSeeker) *Cursor {
	return &Cursor{r: r, order: binary.LittleEndian}
}

// SetOrder sets the byte order for subsequent multi-byte reads.
func (c *Cursor) SetOrder(order binary.ByteOrder) {
	c.order = order
}

// Order returns the current byte order.
func (c *Cursor) Order() binary.ByteOrder {
	return c.order
}

// ReadExact reads exactly n bytes, failing with ErrTruncated if the
// stream ends first.
func (c *Cursor) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("read %d bytes: %w", n, ErrTruncated)
		}
		return nil, fmt.Errorf("read %d bytes: %w", n, err)
	}
	return buf, nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.ReadExact(n)
	return err
}

// Seek moves the cursor to an absolute offset.
func (c *Cursor) Seek(offset int64) error {
	if _, err := c.r.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", offset, err)
	}
	return nil
}

// Tell returns the current absolute offset.
func (c *Cursor) Tell() (int64, error) {
	pos, err := c.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("tell: %w", err)
	}
	return pos, nil
}

// Uint8 reads one unsigned byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.ReadExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Int8 reads one signed byte.
func (c *Cursor) Int8() (int8, error) {
	v, err := c.Uint8()
	return int8(v), err
}

// Uint16 reads a 16-bit unsigned integer in the cursor's byte order.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.ReadExact(2)
	if err != nil {
		return 0, err
	}
	return c.order.Uint16(b), nil
}

// Int16 reads a 16-bit signed integer.
func (c *Cursor) Int16() (int16, error) {
	v, err := c.Uint16()
	return int16(v), err
}

// Uint32 reads a 32-bit unsigned integer.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.ReadExact(4)
	if err != nil {
		return 0, err
	}
	return c.order.Uint32(b), nil
}

// Int32 reads a 32-bit signed integer.
func (c *Cursor) Int32() (int32, error) {
	v, err := c.Uint32()
	return int32(v), err
}

// Uint64 reads a 64-bit unsigned integer.
func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.ReadExact(8)
	if err != nil {
		return 0, err
	}
	return c.order.Uint64(b), nil
}

// Int64 reads a 64-bit signed integer.
func (c *Cursor) Int64() (int64, error) {
	v, err := c.Uint64()
	return int64(v), err
}

// Float32 reads a 32-bit IEEE 754 value.
func (c *Cursor) Float32() (float32, error) {
	v, err := c.Uint32()
	return math.Float32frombits(v), err
}

// Float64 reads a 64-bit IEEE 754 value.
func (c *Cursor) Float64() (float64, error) {
	v, err := c.Uint64()
	return math.Float64frombits(v), err
}
