package psx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Faultbox/psxkit/pkg/math"
)

func TestRecordSizes(t *testing.T) {
	bone := Bone{
		Name:        "pelvis",
		ParentIndex: -1,
		Rotation:    math.QuatIdentity(),
		Location:    math.Vec3{X: 1, Y: 2, Z: 3},
		Length:      4,
		Size:        math.Vec3{X: 1, Y: 1, Z: 1},
	}

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"vec2", len(Vec2Codec.Encode(math.Vec2{X: 1, Y: 2})), 8},
		{"vec3", len(Vec3Codec.Encode(math.Vec3{})), 12},
		{"quat", len(QuatCodec.Encode(math.QuatIdentity())), 16},
		{"color", len(ColorCodec.Encode(Color{1, 2, 3, 4})), 4},
		{"bone", len(BoneCodec.Encode(bone)), 120},
		{"section header", len(SectionHeaderCodec.Encode(SectionHeader{Name: "ACTRHEAD", TypeTag: TypeTag})), 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("encoded size = %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestBoneLayout(t *testing.T) {
	bone := Bone{
		Name:          "spine_01",
		Flags:         7,
		ChildrenCount: 2,
		ParentIndex:   -1,
		Rotation:      math.Quat{X: 0.1, Y: 0.2, Z: 0.3, W: 0.9},
		Location:      math.Vec3{X: 10, Y: 20, Z: 30},
		Length:        5.5,
		Size:          math.Vec3{X: 1, Y: 2, Z: 3},
	}
	data := BoneCodec.Encode(bone)

	if string(data[:8]) != "spine_01" || data[8] != 0 {
		t.Errorf("name buffer = %q", data[:9])
	}
	if got := int32(binary.LittleEndian.Uint32(data[64:68])); got != 7 {
		t.Errorf("flags = %d, want 7", got)
	}
	if got := int32(binary.LittleEndian.Uint32(data[72:76])); got != -1 {
		t.Errorf("parent index = %d, want -1", got)
	}

	got, n, err := BoneCodec.Decode(data, 0)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n != BoneSize {
		t.Errorf("consumed %d bytes, want %d", n, BoneSize)
	}
	if got != bone {
		t.Errorf("decoded bone = %+v, want %+v", got, bone)
	}
}

func TestNameBuffers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short", "ACTRHEAD", "ACTRHEAD"},
		{"exact width", "ABCDEFGHIJKLMNOPQRST", "ABCDEFGHIJKLMNOPQRST"},
		{"truncated", "ABCDEFGHIJKLMNOPQRSTUVWXYZ", "ABCDEFGHIJKLMNOPQRST"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEncoder(SectionNameSize)
			e.Name(tt.input, SectionNameSize)
			if e.Len() != SectionNameSize {
				t.Fatalf("encoded %d bytes, want %d", e.Len(), SectionNameSize)
			}
			d := NewDecoder(e.Bytes())
			if got := d.Name(SectionNameSize); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNameStopsAtFirstNUL(t *testing.T) {
	buf := append([]byte("root\x00garbage"), make([]byte, SectionNameSize-12)...)
	if len(buf) != SectionNameSize {
		t.Fatalf("fixture is %d bytes, want %d", len(buf), SectionNameSize)
	}
	d := NewDecoder(buf)
	if got := d.Name(SectionNameSize); got != "root" {
		t.Errorf("Name() = %q, want %q", got, "root")
	}
	if err := d.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := BoneCodec.Encode(Bone{Name: "b"})

	_, _, err := BoneCodec.Decode(data[:100], 0)
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Errorf("expected ErrTruncatedRecord, got %v", err)
	}

	_, _, err = BoneCodec.Decode(data, 1)
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Errorf("expected ErrTruncatedRecord at offset 1, got %v", err)
	}

	_, err = Vec3Codec.DecodeAll(make([]byte, 20), 2, 0)
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Errorf("expected ErrTruncatedRecord from DecodeAll, got %v", err)
	}
}

func TestDecoderStickyError(t *testing.T) {
	d := NewDecoder([]byte{1, 0})
	if got := d.Uint16(); got != 1 {
		t.Errorf("Uint16() = %d, want 1", got)
	}
	if got := d.Uint32(); got != 0 {
		t.Errorf("Uint32() past end = %d, want 0", got)
	}
	if !errors.Is(d.Err(), ErrTruncatedRecord) {
		t.Errorf("Err() = %v, want ErrTruncatedRecord", d.Err())
	}
	if got := d.Uint8(); got != 0 {
		t.Errorf("Uint8() after error = %d, want 0", got)
	}
}

func TestDecodeAtOffset(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF})
	buf.Write(ColorCodec.Encode(Color{10, 20, 30, 40}))

	c, n, err := ColorCodec.Decode(buf.Bytes(), 2)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n != 4 {
		t.Errorf("consumed %d, want 4", n)
	}
	if c != (Color{10, 20, 30, 40}) {
		t.Errorf("color = %v", c)
	}
}

func TestColorNormalized(t *testing.T) {
	tests := []struct {
		color Color
		want  [4]float32
	}{
		{Color{255, 128, 0, 64}, [4]float32{1.0, 128 / 255.0, 0.0, 64 / 255.0}},
		{Color{0, 0, 0, 0}, [4]float32{}},
		{Color{255, 255, 255, 255}, [4]float32{1, 1, 1, 1}},
	}

	for _, tt := range tests {
		if got := tt.color.Normalized(); got != tt.want {
			t.Errorf("%v.Normalized() = %v, want %v", tt.color, got, tt.want)
		}
	}
}

func TestValidateBones(t *testing.T) {
	tests := []struct {
		name    string
		parents []int32
		wantErr bool
	}{
		{"root -1", []int32{-1, 0, 1}, false},
		{"root self", []int32{0, 0, 0}, false},
		{"forward reference", []int32{-1, 2, 0}, true},
		{"below -1", []int32{-2}, true},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bones := make([]Bone, len(tt.parents))
			for i, p := range tt.parents {
				bones[i].ParentIndex = p
			}
			err := ValidateBones(bones)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBones() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrDanglingReference) {
				t.Errorf("expected ErrDanglingReference, got %v", err)
			}
		})
	}
}
