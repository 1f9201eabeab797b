package psx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Section is one decoded section header plus its raw payload.
type Section struct {
	Header  SectionHeader
	Offset  int64 // Stream offset of the header
	Payload []byte
}

// PayloadOffset returns the stream offset of the first payload byte.
func (s *Section) PayloadOffset() int64 {
	return s.Offset + SectionHeaderSize
}

// Decode decodes the section payload as ElementCount records of c.
func Decode[T any](s *Section, c Codec[T]) ([]T, error) {
	return c.DecodeAll(s.Payload, int(s.Header.ElementCount), s.PayloadOffset())
}

// Reader walks the sections of a container stream.
type Reader struct {
	r   io.Reader
	off int64
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Offset returns the number of bytes consumed from the stream.
func (r *Reader) Offset() int64 {
	return r.off
}

// NextHeader reads the next section header. It returns io.EOF when the
// stream ends cleanly on a section boundary.
func (r *Reader) NextHeader() (SectionHeader, error) {
	var buf [SectionHeaderSize]byte
	n, err := io.ReadFull(r.r, buf[:])
	r.off += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return SectionHeader{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return SectionHeader{}, fmt.Errorf("%w: section header at offset %d has %d of %d bytes",
				ErrTruncatedRecord, r.off-int64(n), n, SectionHeaderSize)
		}
		return SectionHeader{}, fmt.Errorf("reading section header: %w", err)
	}
	h, _, err := SectionHeaderCodec.Decode(buf[:], 0)
	return h, err
}

// ReadPayload reads the payload that follows h. Memory grows with the bytes
// actually present, so a corrupt count cannot force a huge allocation.
func (r *Reader) ReadPayload(h SectionHeader) ([]byte, error) {
	size, err := h.PayloadSize()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r.r, size))
	r.off += n
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: payload has %d of %d bytes", ErrTruncatedRecord, n, size)
	}
	return buf.Bytes(), nil
}

// SkipPayload discards the payload that follows h.
func (r *Reader) SkipPayload(h SectionHeader) (int64, error) {
	size, err := h.PayloadSize()
	if err != nil {
		return 0, err
	}
	n, err := io.CopyN(io.Discard, r.r, size)
	r.off += n
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, fmt.Errorf("%w: payload has %d of %d bytes", ErrTruncatedRecord, n, size)
		}
		return n, fmt.Errorf("skipping payload: %w", err)
	}
	return n, nil
}

// Next reads the next full section. It returns io.EOF at the end of the
// stream.
func (r *Reader) Next() (*Section, error) {
	start := r.off
	h, err := r.NextHeader()
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, &SectionError{Offset: start, Err: err}
	}
	payload, err := r.ReadPayload(h)
	if err != nil {
		return nil, &SectionError{Section: h.Name, Offset: start, Err: err}
	}
	return &Section{Header: h, Offset: start, Payload: payload}, nil
}
