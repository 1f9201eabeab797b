package formats

import (
	"fmt"
	"io"

	"github.com/Faultbox/psxkit/pkg/psx"
)

// Kind identifies what a container stream holds.
type Kind int

const (
	KindUnknown Kind = iota
	KindPSK          // Skeletal mesh (ACTRHEAD first)
	KindPSA          // Animation (ANIMHEAD first)
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindPSK:
		return "PSK"
	case KindPSA:
		return "PSA"
	default:
		return "Unknown"
	}
}

// Detect reads the first section header of r and reports the file kind.
// The extension is never consulted.
func Detect(r io.Reader) (Kind, error) {
	h, err := psx.NewReader(r).NextHeader()
	if err == io.EOF {
		return KindUnknown, fmt.Errorf("detecting file kind: %w", psx.ErrTruncatedRecord)
	}
	if err != nil {
		return KindUnknown, fmt.Errorf("detecting file kind: %w", err)
	}
	switch h.Name {
	case PSKHeader:
		return KindPSK, nil
	case PSAHeader:
		return KindPSA, nil
	default:
		return KindUnknown, nil
	}
}
