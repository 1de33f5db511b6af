package bytesio

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
)

// Writer buffers typed little-endian writes to an inner sink and tracks
// the total number of bytes written so far.
type Writer struct {
	w       *bufio.Writer
	written int64
}

// NewWriter wraps w for sequential typed writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Written returns the number of bytes written so far, including any
// still sitting in the internal buffer.
func (w *Writer) Written() int64 { return w.written }

// Flush pushes any buffered bytes to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }

func (w *Writer) raw(b []byte) error {
	n, err := w.w.Write(b)
	w.written += int64(n)
	return err
}

// WriteU8 writes an unsigned 8-bit integer.
func (w *Writer) WriteU8(v uint8) error { return w.raw([]byte{v}) }

// WriteI8 writes a signed 8-bit integer.
func (w *Writer) WriteI8(v int8) error { return w.WriteU8(uint8(v)) }

// WriteU16 writes a little-endian unsigned 16-bit integer.
func (w *Writer) WriteU16(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return w.raw(b[:])
}

// WriteI16 writes a little-endian signed 16-bit integer.
func (w *Writer) WriteI16(v int16) error { return w.WriteU16(uint16(v)) }

// WriteU32 writes a little-endian unsigned 32-bit integer.
func (w *Writer) WriteU32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return w.raw(b[:])
}

// WriteI32 writes a little-endian signed 32-bit integer.
func (w *Writer) WriteI32(v int32) error { return w.WriteU32(uint32(v)) }

// WriteU64 writes a little-endian unsigned 64-bit integer.
func (w *Writer) WriteU64(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return w.raw(b[:])
}

// WriteI64 writes a little-endian signed 64-bit integer.
func (w *Writer) WriteI64(v int64) error { return w.WriteU64(uint64(v)) }

// WriteF32 writes a little-endian IEEE-754 32-bit float.
func (w *Writer) WriteF32(v float32) error { return w.WriteU32(math.Float32bits(v)) }

// WriteF64 writes a little-endian IEEE-754 64-bit float.
func (w *Writer) WriteF64(v float64) error { return w.WriteU64(math.Float64bits(v)) }

// WriteBool writes a single byte, 0 or 1.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteU8(1)
	}
	return w.WriteU8(0)
}

// WriteStr writes a u64-length-prefixed UTF-8 string with no terminator.
func (w *Writer) WriteStr(s string) error {
	if err := w.WriteU64(uint64(len(s))); err != nil {
		return err
	}
	return w.raw([]byte(s))
}

// WriteBytes writes a raw byte slice with no framing.
func (w *Writer) WriteBytes(b []byte) error { return w.raw(b) }

// Padding returns the number of zero bytes needed to round offset up to
// the next multiple of alignment.
func Padding(offset int64, alignment int64) int64 {
	if alignment <= 0 {
		return 0
	}
	return (alignment - offset%alignment) % alignment
}

// WritePadding emits the zero bytes needed to align the writer's current
// position to alignment.
func (w *Writer) WritePadding(alignment int64) error {
	n := Padding(w.written, alignment)
	if n == 0 {
		return nil
	}
	zeros := make([]byte, n)
	return w.raw(zeros)
}
