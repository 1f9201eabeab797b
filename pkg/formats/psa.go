package formats

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/psxkit/pkg/math"
	"github.com/Faultbox/psxkit/pkg/psx"
	"github.com/tiendc/go-deepcopy"
)

// PSA section names.
const (
	PSAHeader    = "ANIMHEAD"
	PSABones     = "BONENAMES"
	PSASequences = "ANIMINFO"
	PSAKeys      = "ANIMKEYS"
)

const (
	psaSequenceSize = 168
	psaKeySize      = 32
)

// PSA format errors.
var (
	ErrSequenceNotFound       = errors.New("sequence not found")
	ErrDuplicateSequence      = errors.New("duplicate sequence name")
	ErrSequenceKeysOutOfRange = errors.New("sequence keys out of range")
	ErrKeyCountMismatch       = errors.New("key count does not match sequences")
)

// PSASequence describes one animation clip. Its keys are the BoneCount*FrameCount
// entries of PSA.Keys that follow the keys of every earlier sequence.
type PSASequence struct {
	Name             string // Up to 64 bytes, unique within a file
	Group            string // Up to 64 bytes
	BoneCount        int32
	RootInclude      int32
	CompressionStyle int32
	KeyQuotum        int32
	KeyReduction     float32
	TrackTime        float32
	FPS              float32
	StartBone        int32
	FrameStartIndex  int32
	FrameCount       int32
}

// KeyCount returns BoneCount*FrameCount.
func (s *PSASequence) KeyCount() int {
	return int(s.BoneCount) * int(s.FrameCount)
}

// checkShape rejects counts that describe no real key block. Frames without
// bones own no keys, so their row count is never backed by file data.
func (s *PSASequence) checkShape() error {
	if s.BoneCount < 0 || s.FrameCount < 0 || (s.BoneCount == 0 && s.FrameCount > 0) {
		return fmt.Errorf("%q has %d bones x %d frames", s.Name, s.BoneCount, s.FrameCount)
	}
	return nil
}

// PSAKey is one bone's transform at one frame.
type PSAKey struct {
	Location math.Vec3
	Rotation math.Quat
	Time     float32
}

// PSA represents a parsed animation file.
type PSA struct {
	Bones     []psx.Bone
	Sequences []PSASequence // File order; the key layout depends on it
	Keys      []PSAKey      // All sequences' keys, back to back
}

var psaSequenceCodec = psx.Codec[PSASequence]{
	Size: psaSequenceSize,
	Read: func(d *psx.Decoder) PSASequence {
		return PSASequence{
			Name:             d.Name(64),
			Group:            d.Name(64),
			BoneCount:        d.Int32(),
			RootInclude:      d.Int32(),
			CompressionStyle: d.Int32(),
			KeyQuotum:        d.Int32(),
			KeyReduction:     d.Float32(),
			TrackTime:        d.Float32(),
			FPS:              d.Float32(),
			StartBone:        d.Int32(),
			FrameStartIndex:  d.Int32(),
			FrameCount:       d.Int32(),
		}
	},
	Write: func(e *psx.Encoder, s PSASequence) {
		e.Name(s.Name, 64)
		e.Name(s.Group, 64)
		e.Int32(s.BoneCount)
		e.Int32(s.RootInclude)
		e.Int32(s.CompressionStyle)
		e.Int32(s.KeyQuotum)
		e.Float32(s.KeyReduction)
		e.Float32(s.TrackTime)
		e.Float32(s.FPS)
		e.Int32(s.StartBone)
		e.Int32(s.FrameStartIndex)
		e.Int32(s.FrameCount)
	},
}

var psaKeyCodec = psx.Codec[PSAKey]{
	Size: psaKeySize,
	Read: func(d *psx.Decoder) PSAKey {
		return PSAKey{Location: d.Vec3(), Rotation: d.Quat(), Time: d.Float32()}
	},
	Write: func(e *psx.Encoder, k PSAKey) {
		e.Vec3(k.Location)
		e.Quat(k.Rotation)
		e.Float32(k.Time)
	},
}

func (psa *PSA) sectionTable() *psx.Table {
	t := psx.NewTable()
	t.Handle(PSAHeader, 0, func(*psx.Section) error { return nil })
	t.Handle(PSABones, psx.BoneSize, appendSection(&psa.Bones, psx.BoneCodec))
	t.Handle(PSASequences, psaSequenceSize, func(s *psx.Section) error {
		seqs, err := psx.Decode(s, psaSequenceCodec)
		if err != nil {
			return err
		}
		for _, seq := range seqs {
			if psa.indexOf(seq.Name) >= 0 {
				return fmt.Errorf("%w: %q", ErrDuplicateSequence, seq.Name)
			}
			psa.Sequences = append(psa.Sequences, seq)
		}
		return nil
	})
	t.Handle(PSAKeys, psaKeySize, appendSection(&psa.Keys, psaKeyCodec))
	return t
}

// ReadPSA reads a PSA animation from r.
func ReadPSA(r io.Reader, opts ...psx.Option) (*PSA, error) {
	psa := &PSA{}
	if err := psa.sectionTable().Read(r, opts...); err != nil {
		return nil, fmt.Errorf("reading PSA: %w", err)
	}
	return psa, nil
}

// ParsePSA parses PSA data from a byte slice.
func ParsePSA(data []byte, opts ...psx.Option) (*PSA, error) {
	return ReadPSA(bytes.NewReader(data), opts...)
}

// ParsePSAFile parses a PSA file from disk.
func ParsePSAFile(path string, opts ...psx.Option) (*PSA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PSA file: %w", err)
	}
	defer f.Close()
	return ReadPSA(f, opts...)
}

// WritePSA writes psa as ANIMHEAD, BONENAMES, ANIMINFO, ANIMKEYS.
func WritePSA(w io.Writer, psa *PSA) error {
	sw := psx.NewWriter(w)
	sw.WriteHeaderOnly(PSAHeader)
	psx.WriteSection(sw, PSABones, psx.BoneCodec, psa.Bones)
	psx.WriteSection(sw, PSASequences, psaSequenceCodec, psa.Sequences)
	psx.WriteSection(sw, PSAKeys, psaKeyCodec, psa.Keys)
	if err := sw.Err(); err != nil {
		return fmt.Errorf("writing PSA: %w", err)
	}
	return nil
}

// WritePSAFile writes psa to path.
func WritePSAFile(path string, psa *PSA) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating PSA file: %w", err)
	}
	if err := WritePSA(f, psa); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (psa *PSA) indexOf(name string) int {
	for i := range psa.Sequences {
		if psa.Sequences[i].Name == name {
			return i
		}
	}
	return -1
}

// Sequence returns the sequence with the given name.
func (psa *PSA) Sequence(name string) (*PSASequence, bool) {
	i := psa.indexOf(name)
	if i < 0 {
		return nil, false
	}
	return &psa.Sequences[i], true
}

// SequenceNames returns the sequence names in file order.
func (psa *PSA) SequenceNames() []string {
	names := make([]string, len(psa.Sequences))
	for i := range psa.Sequences {
		names[i] = psa.Sequences[i].Name
	}
	return names
}

// AddSequence appends seq and its keys. keys must hold BoneCount*FrameCount
// entries in frame-major order.
func (psa *PSA) AddSequence(seq PSASequence, keys []PSAKey) error {
	if psa.indexOf(seq.Name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateSequence, seq.Name)
	}
	if seq.checkShape() != nil || len(keys) != seq.KeyCount() {
		return fmt.Errorf("%w: %q has %d keys, expected %d x %d",
			ErrKeyCountMismatch, seq.Name, len(keys), seq.BoneCount, seq.FrameCount)
	}
	psa.Sequences = append(psa.Sequences, seq)
	psa.Keys = append(psa.Keys, keys...)
	return nil
}

// SequenceKeyOffset returns the index in Keys of the sequence's first key:
// the sum of BoneCount*FrameCount over every sequence before it.
func (psa *PSA) SequenceKeyOffset(name string) (int, error) {
	offset := 0
	for i := range psa.Sequences {
		if psa.Sequences[i].Name == name {
			return offset, nil
		}
		offset += psa.Sequences[i].KeyCount()
	}
	return 0, fmt.Errorf("%w: %q", ErrSequenceNotFound, name)
}

// sequenceRun returns the sequence and the slice of Keys it owns. The slice
// aliases Keys and must not be handed to callers.
func (psa *PSA) sequenceRun(name string) (*PSASequence, []PSAKey, error) {
	seq, ok := psa.Sequence(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrSequenceNotFound, name)
	}
	offset, err := psa.SequenceKeyOffset(name)
	if err != nil {
		return nil, nil, err
	}
	if err := seq.checkShape(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSequenceKeysOutOfRange, err)
	}
	end := offset + seq.KeyCount()
	if offset < 0 || end > len(psa.Keys) {
		return nil, nil, fmt.Errorf("%w: %q needs keys [%d:%d], have %d",
			ErrSequenceKeysOutOfRange, name, offset, end, len(psa.Keys))
	}
	return seq, psa.Keys[offset:end], nil
}

// SequenceKeys returns a copy of the sequence's keys in frame-major order.
func (psa *PSA) SequenceKeys(name string) ([]PSAKey, error) {
	_, run, err := psa.sequenceRun(name)
	if err != nil {
		return nil, err
	}
	return append([]PSAKey(nil), run...), nil
}

// SequenceKeyMatrix returns the sequence's keys as FrameCount rows of
// BoneCount keys; row f column b is Keys[offset+f*BoneCount+b]. The result
// is a copy.
func (psa *PSA) SequenceKeyMatrix(name string) ([][]PSAKey, error) {
	seq, run, err := psa.sequenceRun(name)
	if err != nil {
		return nil, err
	}
	flat := append([]PSAKey(nil), run...)
	bones := int(seq.BoneCount)
	rows := make([][]PSAKey, seq.FrameCount)
	for f := range rows {
		rows[f] = flat[f*bones : (f+1)*bones : (f+1)*bones]
	}
	return rows, nil
}

// SequenceDataMatrix returns the sequence's keys as frame x bone x
// {qw, qx, qy, qz, lx, ly, lz}.
func (psa *PSA) SequenceDataMatrix(name string) ([][][7]float32, error) {
	keys, err := psa.SequenceKeyMatrix(name)
	if err != nil {
		return nil, err
	}
	data := make([][][7]float32, len(keys))
	for f, row := range keys {
		data[f] = make([][7]float32, len(row))
		for b, k := range row {
			q := k.Rotation.WXYZ()
			data[f][b] = [7]float32{q[0], q[1], q[2], q[3], k.Location.X, k.Location.Y, k.Location.Z}
		}
	}
	return data, nil
}

// Validate checks that the key stream holds exactly the keys the sequences
// describe and that the bone hierarchy is well formed.
func (psa *PSA) Validate() error {
	total := 0
	for i := range psa.Sequences {
		seq := &psa.Sequences[i]
		if err := seq.checkShape(); err != nil {
			return fmt.Errorf("%w: %v", ErrKeyCountMismatch, err)
		}
		total += seq.KeyCount()
	}
	if total != len(psa.Keys) {
		return fmt.Errorf("%w: sequences need %d keys, have %d", ErrKeyCountMismatch, total, len(psa.Keys))
	}
	return psx.ValidateBones(psa.Bones)
}

// Clone returns a deep copy of the animation.
func (psa *PSA) Clone() (*PSA, error) {
	var out PSA
	if err := deepcopy.Copy(&out, psa); err != nil {
		return nil, fmt.Errorf("copying PSA: %w", err)
	}
	return &out, nil
}
