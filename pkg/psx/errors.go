package psx

import (
	"errors"
	"fmt"
)

// Container errors.
var (
	ErrTruncatedRecord      = errors.New("truncated record")
	ErrSectionSizeMismatch  = errors.New("section element size mismatch")
	ErrDuplicateSection     = errors.New("duplicate section")
	ErrInvalidSectionHeader = errors.New("invalid section header")
	ErrSectionTooLarge      = errors.New("section too large")
	ErrDanglingReference    = errors.New("dangling reference")
)

// SectionError reports a failure while reading or writing one section.
type SectionError struct {
	Section string // Section name
	Offset  int64  // Stream offset of the section header
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %q at offset %d: %v", e.Section, e.Offset, e.Err)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}
