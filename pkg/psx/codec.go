package psx

import (
	"encoding/binary"
	"fmt"
	"math"

	pmath "github.com/Faultbox/psxkit/pkg/math"
)

// Decoder reads little-endian values from a byte slice.
//
// The first read past the end of the buffer records ErrTruncatedRecord;
// every read after that returns a zero value. Check Err once after decoding
// a record.
type Decoder struct {
	buf  []byte
	off  int
	base int64 // stream offset of buf[0], used in error messages
	err  error
}

// NewDecoder returns a decoder positioned at the start of buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// NewDecoderAt returns a decoder whose error messages report offsets relative
// to base.
func NewDecoderAt(buf []byte, base int64) *Decoder {
	return &Decoder{buf: buf, base: base}
}

// Err returns the first decode error, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.off
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n > len(d.buf)-d.off {
		d.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncatedRecord, n, d.base+int64(d.off), len(d.buf)-d.off)
		d.off = len(d.buf)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

// Skip discards n bytes.
func (d *Decoder) Skip(n int) {
	d.take(n)
}

// Uint8 reads one byte.
func (d *Decoder) Uint8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint16 reads a little-endian uint16.
func (d *Decoder) Uint16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Uint32 reads a little-endian uint32.
func (d *Decoder) Uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Int32 reads a little-endian int32.
func (d *Decoder) Int32() int32 {
	return int32(d.Uint32())
}

// Float32 reads a little-endian IEEE-754 float.
func (d *Decoder) Float32() float32 {
	return math.Float32frombits(d.Uint32())
}

// Name reads a fixed-width name buffer. The value ends at the first NUL, or
// spans the whole buffer when unterminated.
func (d *Decoder) Name(n int) string {
	b := d.take(n)
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Vec2 reads two floats.
func (d *Decoder) Vec2() pmath.Vec2 {
	return pmath.Vec2{X: d.Float32(), Y: d.Float32()}
}

// Vec3 reads three floats.
func (d *Decoder) Vec3() pmath.Vec3 {
	return pmath.Vec3{X: d.Float32(), Y: d.Float32(), Z: d.Float32()}
}

// Quat reads four floats in X, Y, Z, W order.
func (d *Decoder) Quat() pmath.Quat {
	return pmath.Quat{X: d.Float32(), Y: d.Float32(), Z: d.Float32(), W: d.Float32()}
}

// Encoder appends little-endian values to a buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with room for size bytes.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset empties the buffer, keeping its capacity.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Zero appends n zero bytes.
func (e *Encoder) Zero(n int) {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, 0)
	}
}

// Uint8 appends one byte.
func (e *Encoder) Uint8(v uint8) {
	e.buf = append(e.buf, v)
}

// Uint16 appends a little-endian uint16.
func (e *Encoder) Uint16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

// Uint32 appends a little-endian uint32.
func (e *Encoder) Uint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// Int32 appends a little-endian int32.
func (e *Encoder) Int32(v int32) {
	e.Uint32(uint32(v))
}

// Float32 appends a little-endian IEEE-754 float.
func (e *Encoder) Float32(v float32) {
	e.Uint32(math.Float32bits(v))
}

// Name appends s as an n-byte buffer, truncated or NUL-padded to fit.
func (e *Encoder) Name(s string, n int) {
	if len(s) > n {
		s = s[:n]
	}
	e.buf = append(e.buf, s...)
	e.Zero(n - len(s))
}

// Vec2 appends two floats.
func (e *Encoder) Vec2(v pmath.Vec2) {
	e.Float32(v.X)
	e.Float32(v.Y)
}

// Vec3 appends three floats.
func (e *Encoder) Vec3(v pmath.Vec3) {
	e.Float32(v.X)
	e.Float32(v.Y)
	e.Float32(v.Z)
}

// Quat appends four floats in X, Y, Z, W order.
func (e *Encoder) Quat(q pmath.Quat) {
	e.Float32(q.X)
	e.Float32(q.Y)
	e.Float32(q.Z)
	e.Float32(q.W)
}

// Codec binds a record type to its fixed on-disk width.
//
// Size is authoritative: Decode never reads more than Size bytes, and Write
// must append exactly Size bytes.
type Codec[T any] struct {
	Size  int
	Read  func(d *Decoder) T
	Write func(e *Encoder, v T)
}

// Decode reads one record at off and returns it with the number of bytes
// consumed.
func (c Codec[T]) Decode(buf []byte, off int) (T, int, error) {
	var zero T
	if off < 0 || off > len(buf) || len(buf)-off < c.Size {
		return zero, 0, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncatedRecord, c.Size, off, max(len(buf)-off, 0))
	}
	d := NewDecoderAt(buf[off:off+c.Size], int64(off))
	v := c.Read(d)
	if err := d.Err(); err != nil {
		return zero, 0, err
	}
	return v, c.Size, nil
}

// DecodeAll reads count consecutive records from payload. base is the stream
// offset of payload[0].
func (c Codec[T]) DecodeAll(payload []byte, count int, base int64) ([]T, error) {
	if count < 0 || len(payload)/max(c.Size, 1) < count {
		return nil, fmt.Errorf("%w: %d records of %d bytes at offset %d, have %d bytes",
			ErrTruncatedRecord, count, c.Size, base, len(payload))
	}
	items := make([]T, count)
	for i := range items {
		off := i * c.Size
		d := NewDecoderAt(payload[off:off+c.Size], base+int64(off))
		items[i] = c.Read(d)
		if err := d.Err(); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Encode returns the encoding of v.
func (c Codec[T]) Encode(v T) []byte {
	e := NewEncoder(c.Size)
	c.Write(e, v)
	return e.Bytes()
}

// EncodeAll appends every item to e.
func (c Codec[T]) EncodeAll(e *Encoder, items []T) {
	for _, v := range items {
		c.Write(e, v)
	}
}
