package psx

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// SectionFunc consumes one recognized section.
type SectionFunc func(s *Section) error

// Diagnostic describes a section that was skipped because its name is not
// recognized.
type Diagnostic struct {
	Section string
	Offset  int64 // Stream offset of the header
	Bytes   int64 // Payload bytes discarded
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("unrecognized section %q at offset %d skipped (%d bytes)", d.Section, d.Offset, d.Bytes)
}

// Option configures a Table read.
type Option func(*readOptions)

type readOptions struct {
	logger      *zap.Logger
	diagnostics func(Diagnostic)
	strict      bool
}

// WithLogger sets the logger used for skip warnings and debug traces.
func WithLogger(l *zap.Logger) Option {
	return func(o *readOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDiagnostics registers a callback invoked once per skipped section.
func WithDiagnostics(fn func(Diagnostic)) Option {
	return func(o *readOptions) {
		o.diagnostics = fn
	}
}

// Strict rejects a recognized section name that appears more than once.
// Without it, repeated sections are handed to their handler again, which
// appends to what was already read.
func Strict() Option {
	return func(o *readOptions) {
		o.strict = true
	}
}

type handler struct {
	key   string // Duplicate-tracking key; empty means the section name
	width int
	fn    SectionFunc
}

type prefixHandler struct {
	prefix string
	handler
}

// Table maps section names to handlers.
//
// A width of 0 registers a header-only section; its payload, if any, is
// discarded and the handler sees an empty Section.Payload.
type Table struct {
	exact    map[string]handler
	prefixes []prefixHandler
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{exact: make(map[string]handler)}
}

// Handle registers fn for sections named exactly name.
func (t *Table) Handle(name string, width int, fn SectionFunc) {
	t.HandleAs(name, name, width, fn)
}

// HandleAs registers fn for sections named exactly name and files them under
// key for the Strict repeat check. Names that fill the same data, such as a
// section and its alternate spelling, share a key so that reading both is a
// repeat.
func (t *Table) HandleAs(name, key string, width int, fn SectionFunc) {
	t.exact[name] = handler{key: key, width: width, fn: fn}
}

// HandlePrefix registers fn for every section whose name starts with prefix.
// Exact names win over prefixes.
func (t *Table) HandlePrefix(prefix string, width int, fn SectionFunc) {
	t.prefixes = append(t.prefixes, prefixHandler{prefix: prefix, handler: handler{width: width, fn: fn}})
}

func (t *Table) lookup(name string) (handler, bool) {
	if h, ok := t.exact[name]; ok {
		return h, true
	}
	for _, p := range t.prefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.handler, true
		}
	}
	return handler{}, false
}

// Read walks r to the end of the stream, dispatching every section.
func (t *Table) Read(r io.Reader, opts ...Option) error {
	o := readOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	sr := NewReader(r)
	seen := make(map[string]bool)

	for {
		start := sr.Offset()
		h, err := sr.NextHeader()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &SectionError{Offset: start, Err: err}
		}
		if h.TypeTag != TypeTag {
			o.logger.Debug("non-standard section type tag",
				zap.String("section", h.Name),
				zap.Int32("type_tag", h.TypeTag))
		}

		hd, ok := t.lookup(h.Name)
		if !ok {
			n, err := sr.SkipPayload(h)
			if err != nil {
				return &SectionError{Section: h.Name, Offset: start, Err: err}
			}
			d := Diagnostic{Section: h.Name, Offset: start, Bytes: n}
			o.logger.Warn("unrecognized section skipped",
				zap.String("section", h.Name),
				zap.Int64("offset", start),
				zap.Int64("bytes", n))
			if o.diagnostics != nil {
				o.diagnostics(d)
			}
			continue
		}

		key := hd.key
		if key == "" {
			key = h.Name
		}
		if seen[key] && o.strict {
			return &SectionError{Section: h.Name, Offset: start,
				Err: fmt.Errorf("%w: %s already read", ErrDuplicateSection, key)}
		}
		seen[key] = true

		sec := &Section{Header: h, Offset: start}
		if hd.width == 0 {
			if _, err := sr.SkipPayload(h); err != nil {
				return &SectionError{Section: h.Name, Offset: start, Err: err}
			}
		} else {
			if err := checkWidth(h, hd.width); err != nil {
				return &SectionError{Section: h.Name, Offset: start, Err: err}
			}
			sec.Payload, err = sr.ReadPayload(h)
			if err != nil {
				return &SectionError{Section: h.Name, Offset: start, Err: err}
			}
		}

		o.logger.Debug("section",
			zap.String("section", h.Name),
			zap.Int64("offset", start),
			zap.Int32("count", h.ElementCount))

		if err := hd.fn(sec); err != nil {
			return &SectionError{Section: h.Name, Offset: start, Err: err}
		}
	}
}

// checkWidth compares the declared element size with the record width. An
// empty section may declare size 0.
func checkWidth(h SectionHeader, width int) error {
	if h.ElementCount < 0 || h.ElementSize < 0 {
		return fmt.Errorf("%w: size=%d count=%d", ErrInvalidSectionHeader, h.ElementSize, h.ElementCount)
	}
	if h.ElementCount == 0 && h.ElementSize == 0 {
		return nil
	}
	if int(h.ElementSize) != width {
		return fmt.Errorf("%w: declared %d bytes, expected %d", ErrSectionSizeMismatch, h.ElementSize, width)
	}
	return nil
}
