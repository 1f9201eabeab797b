package psx

import (
	"fmt"

	"github.com/Faultbox/psxkit/pkg/math"
)

// Color is an 8-bit RGBA vertex color.
type Color struct {
	R, G, B, A uint8
}

// Normalized returns the components scaled to [0, 1].
func (c Color) Normalized() [4]float32 {
	return [4]float32{
		float32(c.R) / 255.0,
		float32(c.G) / 255.0,
		float32(c.B) / 255.0,
		float32(c.A) / 255.0,
	}
}

// Bone is a skeleton node as stored in both PSK and PSA files.
type Bone struct {
	Name          string // Up to 64 bytes
	Flags         int32
	ChildrenCount int32
	ParentIndex   int32 // -1 (or its own index) marks the root
	Rotation      math.Quat
	Location      math.Vec3
	Length        float32
	Size          math.Vec3
}

// SectionHeader precedes every section in the container.
type SectionHeader struct {
	Name         string // Up to 20 bytes
	TypeTag      int32
	ElementSize  int32
	ElementCount int32
}

// PayloadSize returns ElementSize*ElementCount, rejecting negative fields.
func (h SectionHeader) PayloadSize() (int64, error) {
	if h.ElementSize < 0 || h.ElementCount < 0 {
		return 0, fmt.Errorf("%w: size=%d count=%d", ErrInvalidSectionHeader, h.ElementSize, h.ElementCount)
	}
	return int64(h.ElementSize) * int64(h.ElementCount), nil
}

// Primitive record codecs.
var (
	Vec2Codec = Codec[math.Vec2]{
		Size:  Vec2Size,
		Read:  (*Decoder).Vec2,
		Write: (*Encoder).Vec2,
	}
	Vec3Codec = Codec[math.Vec3]{
		Size:  Vec3Size,
		Read:  (*Decoder).Vec3,
		Write: (*Encoder).Vec3,
	}
	QuatCodec = Codec[math.Quat]{
		Size:  QuatSize,
		Read:  (*Decoder).Quat,
		Write: (*Encoder).Quat,
	}
	ColorCodec = Codec[Color]{
		Size: ColorSize,
		Read: func(d *Decoder) Color {
			return Color{R: d.Uint8(), G: d.Uint8(), B: d.Uint8(), A: d.Uint8()}
		},
		Write: func(e *Encoder, c Color) {
			e.Uint8(c.R)
			e.Uint8(c.G)
			e.Uint8(c.B)
			e.Uint8(c.A)
		},
	}
)

// BoneCodec encodes the 120-byte bone record.
var BoneCodec = Codec[Bone]{
	Size: BoneSize,
	Read: func(d *Decoder) Bone {
		return Bone{
			Name:          d.Name(BoneNameSize),
			Flags:         d.Int32(),
			ChildrenCount: d.Int32(),
			ParentIndex:   d.Int32(),
			Rotation:      d.Quat(),
			Location:      d.Vec3(),
			Length:        d.Float32(),
			Size:          d.Vec3(),
		}
	},
	Write: func(e *Encoder, b Bone) {
		e.Name(b.Name, BoneNameSize)
		e.Int32(b.Flags)
		e.Int32(b.ChildrenCount)
		e.Int32(b.ParentIndex)
		e.Quat(b.Rotation)
		e.Vec3(b.Location)
		e.Float32(b.Length)
		e.Vec3(b.Size)
	},
}

// SectionHeaderCodec encodes the 32-byte section header.
var SectionHeaderCodec = Codec[SectionHeader]{
	Size: SectionHeaderSize,
	Read: func(d *Decoder) SectionHeader {
		return SectionHeader{
			Name:         d.Name(SectionNameSize),
			TypeTag:      d.Int32(),
			ElementSize:  d.Int32(),
			ElementCount: d.Int32(),
		}
	},
	Write: func(e *Encoder, h SectionHeader) {
		e.Name(h.Name, SectionNameSize)
		e.Int32(h.TypeTag)
		e.Int32(h.ElementSize)
		e.Int32(h.ElementCount)
	},
}

// ValidateBones checks that every parent index points at an earlier bone or
// at the bone itself. -1 is accepted as the root marker.
func ValidateBones(bones []Bone) error {
	for i, b := range bones {
		if b.ParentIndex < -1 || int(b.ParentIndex) > i {
			return fmt.Errorf("%w: bone %d (%q) has parent index %d", ErrDanglingReference, i, b.Name, b.ParentIndex)
		}
	}
	return nil
}
