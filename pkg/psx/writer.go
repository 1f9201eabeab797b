package psx

import (
	"fmt"
	"io"
	"math"
)

// Writer emits sections to a stream. After the first error every further
// write is a no-op returning that error.
type Writer struct {
	w   io.Writer
	n   int64
	err error
	enc *Encoder
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, enc: NewEncoder(SectionHeaderSize)}
}

// Written returns the number of bytes written.
func (w *Writer) Written() int64 {
	return w.n
}

// Err returns the first write error.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(b)
	w.n += int64(n)
	if err != nil {
		w.err = err
	}
}

func (w *Writer) header(h SectionHeader) {
	w.enc.Reset()
	SectionHeaderCodec.Write(w.enc, h)
	w.write(w.enc.Bytes())
}

// WriteHeaderOnly writes a section with no payload (size and count 0).
func (w *Writer) WriteHeaderOnly(name string) error {
	w.header(SectionHeader{Name: name, TypeTag: TypeTag})
	return w.err
}

// WriteSection writes a section holding items encoded with c. The element
// size is always c.Size, even for an empty section.
func WriteSection[T any](w *Writer, name string, c Codec[T], items []T) error {
	if w.err != nil {
		return w.err
	}
	if len(items) > math.MaxInt32 || int64(len(items))*int64(c.Size) > math.MaxInt32 {
		w.err = &SectionError{Section: name, Offset: w.n,
			Err: fmt.Errorf("%w: %d records", ErrSectionTooLarge, len(items))}
		return w.err
	}
	w.header(SectionHeader{
		Name:         name,
		TypeTag:      TypeTag,
		ElementSize:  int32(c.Size),
		ElementCount: int32(len(items)),
	})
	e := NewEncoder(c.Size * len(items))
	c.EncodeAll(e, items)
	w.write(e.Bytes())
	return w.err
}
