package formats

import (
	"fmt"
	"sort"

	"github.com/Faultbox/psxkit/pkg/math"
	"github.com/Faultbox/psxkit/pkg/psx"
)

// BoneMask lists, per sequence name, the bone indices whose keys are
// excluded. It is built by whatever parses the user's bone rules; this
// package only consumes it.
type BoneMask map[string]map[int]struct{}

// Exclude marks bone as excluded for sequence.
func (m BoneMask) Exclude(sequence string, bone int) {
	set, ok := m[sequence]
	if !ok {
		set = make(map[int]struct{})
		m[sequence] = set
	}
	set[bone] = struct{}{}
}

// Excludes reports whether bone is excluded for sequence.
func (m BoneMask) Excludes(sequence string, bone int) bool {
	_, ok := m[sequence][bone]
	return ok
}

// excluded returns the sorted excluded bones for sequence.
func (m BoneMask) excluded(sequence string) []int {
	bones := make([]int, 0, len(m[sequence]))
	for b := range m[sequence] {
		bones = append(bones, b)
	}
	sort.Ints(bones)
	return bones
}

func (psa *PSA) checkMask(mask BoneMask) error {
	for name := range mask {
		seq, ok := psa.Sequence(name)
		if !ok {
			return fmt.Errorf("bone mask: %w: %q", ErrSequenceNotFound, name)
		}
		for _, b := range mask.excluded(name) {
			if b < 0 || b >= int(seq.BoneCount) {
				return fmt.Errorf("bone mask: %w: sequence %q bone %d (bones: %d)",
					psx.ErrDanglingReference, name, b, seq.BoneCount)
			}
		}
	}
	return nil
}

// MaskedKeyMatrix returns the sequence's key matrix restricted to the bones
// mask does not exclude, together with the retained bone indices in column
// order.
func (psa *PSA) MaskedKeyMatrix(name string, mask BoneMask) ([][]PSAKey, []int, error) {
	if err := psa.checkMask(mask); err != nil {
		return nil, nil, err
	}
	rows, err := psa.SequenceKeyMatrix(name)
	if err != nil {
		return nil, nil, err
	}
	seq, _ := psa.Sequence(name)

	var retained []int
	for b := 0; b < int(seq.BoneCount); b++ {
		if !mask.Excludes(name, b) {
			retained = append(retained, b)
		}
	}

	masked := make([][]PSAKey, len(rows))
	for f, row := range rows {
		masked[f] = make([]PSAKey, len(retained))
		for c, b := range retained {
			masked[f][c] = row[b]
		}
	}
	return masked, retained, nil
}

// Filtered returns a copy of psa in which every key of an excluded bone is
// replaced by that bone's rest pose. Sequence and key counts are unchanged,
// so the copy can be written as is.
func (psa *PSA) Filtered(mask BoneMask) (*PSA, error) {
	if err := psa.checkMask(mask); err != nil {
		return nil, err
	}
	out, err := psa.Clone()
	if err != nil {
		return nil, err
	}

	for name := range mask {
		seq, run, err := out.sequenceRun(name)
		if err != nil {
			return nil, err
		}
		bones := int(seq.BoneCount)
		for _, b := range mask.excluded(name) {
			loc, rot := math.Vec3Zero(), math.QuatIdentity()
			if b < len(out.Bones) {
				loc, rot = out.Bones[b].Location, out.Bones[b].Rotation
			}
			for f := 0; f < int(seq.FrameCount); f++ {
				k := &run[f*bones+b]
				k.Location = loc
				k.Rotation = rot
			}
		}
	}
	return out, nil
}
