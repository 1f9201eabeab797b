package formats

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Faultbox/psxkit/pkg/math"
	"github.com/Faultbox/psxkit/pkg/psx"
	"github.com/tiendc/go-deepcopy"
)

// PSK section names.
const (
	PSKHeader             = "ACTRHEAD"
	PSKPoints             = "PNTS0000"
	PSKWedges             = "VTXW0000"
	PSKFaces              = "FACE0000"
	PSKFaces32            = "FACE3200"
	PSKMaterials          = "MATT0000"
	PSKBones              = "REFSKELT"
	PSKBonesAlt           = "REFSKEL0"
	PSKWeights            = "RAWWEIGHTS"
	PSKWeightsAlt         = "RAWW0000"
	PSKExtraUVsPrefix     = "EXTRAUVS"
	PSKVertexColors       = "VERTEXCOLOR"
	PSKVertexNormals      = "VTXNORMS"
	PSKMorphInfos         = "MRPHINFO"
	PSKMorphDeltas        = "MRPHDATA"
	PSKMaterialReferences = "MATREFS0"
)

// Record widths for PSK-only records.
const (
	pskWedgeSize       = 16
	pskFaceSize        = 12
	pskFace32Size      = 18
	pskMaterialSize    = 88
	pskWeightSize      = 12
	pskMorphInfoSize   = 68
	pskMorphDataSize   = 28
	pskMaterialRefSize = 256

	// Above this many wedges, wedge and face records switch to 32-bit indices.
	pskMaxWedges16 = 65536
)

// PSK format errors.
var (
	ErrPSKIndexRange = errors.New("index does not fit the record field")
)

// PSKWedge binds a point to a texture coordinate and material.
type PSKWedge struct {
	PointIndex    uint32
	U, V          float32
	MaterialIndex uint32 // Stored as a byte unless the wedge count exceeds 65536
}

// PSKFace is a triangle built from three wedges.
type PSKFace struct {
	WedgeIndices     [3]uint32 // Stored as uint16 in FACE0000
	MaterialIndex    uint8
	AuxMaterialIndex uint8
	SmoothingGroups  int32
}

// PSKMaterial is a material slot.
type PSKMaterial struct {
	Name         string // Up to 64 bytes
	TextureIndex int32
	PolyFlags    int32
	AuxMaterial  int32
	AuxFlags     int32
	LODBias      int32
	LODStyle     int32
}

// PSKWeight is the influence of one bone on one point.
type PSKWeight struct {
	Weight     float32
	PointIndex int32
	BoneIndex  int32
}

// PSKMorphInfo names a morph target and the number of delta records it owns.
type PSKMorphInfo struct {
	Name        string // Up to 64 bytes
	VertexCount int32
}

// PSKMorphData is one morph target delta.
type PSKMorphData struct {
	PositionDelta math.Vec3
	TangentZDelta math.Vec3
	PointIndex    int32
}

// PSK represents a parsed skeletal mesh.
type PSK struct {
	Points    []math.Vec3
	Wedges    []PSKWedge
	Faces     []PSKFace
	Materials []PSKMaterial
	Bones     []psx.Bone
	Weights   []PSKWeight

	// Optional sections, written only in extended mode.
	ExtraUVs           [][]math.Vec2 // One channel per EXTRAUVS<n> section
	HasExtraUVs        bool          // Any EXTRAUVS section was present, even an empty one
	VertexColors       []psx.Color   // One per point
	VertexNormals      []math.Vec3   // One per point
	MorphInfos         []PSKMorphInfo
	MorphData          []PSKMorphData
	MaterialReferences []string
}

// PSKWriteOptions controls which sections WritePSK emits.
type PSKWriteOptions struct {
	// Extended writes the optional sections (extra UVs, vertex colors,
	// normals, morphs, material references). Files written this way
	// conventionally use the .pskx extension.
	Extended bool
}

func pskWedgeCodec(wide bool) psx.Codec[PSKWedge] {
	return psx.Codec[PSKWedge]{
		Size: pskWedgeSize,
		Read: func(d *psx.Decoder) PSKWedge {
			w := PSKWedge{PointIndex: d.Uint32(), U: d.Float32(), V: d.Float32()}
			if wide {
				w.MaterialIndex = d.Uint32()
			} else {
				w.MaterialIndex = uint32(d.Uint8())
				d.Skip(3) // reserved byte + padding
			}
			return w
		},
		Write: func(e *psx.Encoder, w PSKWedge) {
			e.Uint32(w.PointIndex)
			e.Float32(w.U)
			e.Float32(w.V)
			if wide {
				e.Uint32(w.MaterialIndex)
			} else {
				e.Uint8(uint8(w.MaterialIndex))
				e.Zero(3)
			}
		},
	}
}

func pskFaceCodec(wide bool) psx.Codec[PSKFace] {
	size := pskFaceSize
	if wide {
		size = pskFace32Size
	}
	return psx.Codec[PSKFace]{
		Size: size,
		Read: func(d *psx.Decoder) PSKFace {
			var f PSKFace
			for i := range f.WedgeIndices {
				if wide {
					f.WedgeIndices[i] = d.Uint32()
				} else {
					f.WedgeIndices[i] = uint32(d.Uint16())
				}
			}
			f.MaterialIndex = d.Uint8()
			f.AuxMaterialIndex = d.Uint8()
			f.SmoothingGroups = d.Int32()
			return f
		},
		Write: func(e *psx.Encoder, f PSKFace) {
			for _, idx := range f.WedgeIndices {
				if wide {
					e.Uint32(idx)
				} else {
					e.Uint16(uint16(idx))
				}
			}
			e.Uint8(f.MaterialIndex)
			e.Uint8(f.AuxMaterialIndex)
			e.Int32(f.SmoothingGroups)
		},
	}
}

var pskMaterialCodec = psx.Codec[PSKMaterial]{
	Size: pskMaterialSize,
	Read: func(d *psx.Decoder) PSKMaterial {
		return PSKMaterial{
			Name:         d.Name(64),
			TextureIndex: d.Int32(),
			PolyFlags:    d.Int32(),
			AuxMaterial:  d.Int32(),
			AuxFlags:     d.Int32(),
			LODBias:      d.Int32(),
			LODStyle:     d.Int32(),
		}
	},
	Write: func(e *psx.Encoder, m PSKMaterial) {
		e.Name(m.Name, 64)
		e.Int32(m.TextureIndex)
		e.Int32(m.PolyFlags)
		e.Int32(m.AuxMaterial)
		e.Int32(m.AuxFlags)
		e.Int32(m.LODBias)
		e.Int32(m.LODStyle)
	},
}

var pskWeightCodec = psx.Codec[PSKWeight]{
	Size: pskWeightSize,
	Read: func(d *psx.Decoder) PSKWeight {
		return PSKWeight{Weight: d.Float32(), PointIndex: d.Int32(), BoneIndex: d.Int32()}
	},
	Write: func(e *psx.Encoder, w PSKWeight) {
		e.Float32(w.Weight)
		e.Int32(w.PointIndex)
		e.Int32(w.BoneIndex)
	},
}

var pskMorphInfoCodec = psx.Codec[PSKMorphInfo]{
	Size: pskMorphInfoSize,
	Read: func(d *psx.Decoder) PSKMorphInfo {
		return PSKMorphInfo{Name: d.Name(64), VertexCount: d.Int32()}
	},
	Write: func(e *psx.Encoder, m PSKMorphInfo) {
		e.Name(m.Name, 64)
		e.Int32(m.VertexCount)
	},
}

var pskMorphDataCodec = psx.Codec[PSKMorphData]{
	Size: pskMorphDataSize,
	Read: func(d *psx.Decoder) PSKMorphData {
		return PSKMorphData{PositionDelta: d.Vec3(), TangentZDelta: d.Vec3(), PointIndex: d.Int32()}
	},
	Write: func(e *psx.Encoder, m PSKMorphData) {
		e.Vec3(m.PositionDelta)
		e.Vec3(m.TangentZDelta)
		e.Int32(m.PointIndex)
	},
}

var pskMaterialRefCodec = psx.Codec[string]{
	Size: pskMaterialRefSize,
	Read: func(d *psx.Decoder) string {
		return d.Name(pskMaterialRefSize)
	},
	Write: func(e *psx.Encoder, s string) {
		e.Name(s, pskMaterialRefSize)
	},
}

// appendSection returns a handler that decodes a section and appends its
// records to *dst.
func appendSection[T any](dst *[]T, c psx.Codec[T]) psx.SectionFunc {
	return func(s *psx.Section) error {
		items, err := psx.Decode(s, c)
		if err != nil {
			return err
		}
		*dst = append(*dst, items...)
		return nil
	}
}

func (psk *PSK) sectionTable() *psx.Table {
	t := psx.NewTable()
	t.Handle(PSKHeader, 0, func(*psx.Section) error { return nil })
	t.Handle(PSKPoints, psx.Vec3Size, appendSection(&psk.Points, psx.Vec3Codec))
	t.Handle(PSKWedges, pskWedgeSize, func(s *psx.Section) error {
		wide := s.Header.ElementCount > pskMaxWedges16
		return appendSection(&psk.Wedges, pskWedgeCodec(wide))(s)
	})
	t.Handle(PSKFaces, pskFaceSize, appendSection(&psk.Faces, pskFaceCodec(false)))
	t.HandleAs(PSKFaces32, PSKFaces, pskFace32Size, appendSection(&psk.Faces, pskFaceCodec(true)))
	t.Handle(PSKMaterials, pskMaterialSize, appendSection(&psk.Materials, pskMaterialCodec))
	t.Handle(PSKBones, psx.BoneSize, appendSection(&psk.Bones, psx.BoneCodec))
	t.HandleAs(PSKBonesAlt, PSKBones, psx.BoneSize, appendSection(&psk.Bones, psx.BoneCodec))
	t.Handle(PSKWeights, pskWeightSize, appendSection(&psk.Weights, pskWeightCodec))
	t.HandleAs(PSKWeightsAlt, PSKWeights, pskWeightSize, appendSection(&psk.Weights, pskWeightCodec))
	t.HandlePrefix(PSKExtraUVsPrefix, psx.Vec2Size, func(s *psx.Section) error {
		psk.HasExtraUVs = true
		if s.Header.ElementCount == 0 {
			return nil
		}
		uvs, err := psx.Decode(s, psx.Vec2Codec)
		if err != nil {
			return err
		}
		psk.ExtraUVs = append(psk.ExtraUVs, uvs)
		return nil
	})
	t.Handle(PSKVertexColors, psx.ColorSize, appendSection(&psk.VertexColors, psx.ColorCodec))
	t.Handle(PSKVertexNormals, psx.Vec3Size, appendSection(&psk.VertexNormals, psx.Vec3Codec))
	t.Handle(PSKMorphInfos, pskMorphInfoSize, appendSection(&psk.MorphInfos, pskMorphInfoCodec))
	t.Handle(PSKMorphDeltas, pskMorphDataSize, appendSection(&psk.MorphData, pskMorphDataCodec))
	t.Handle(PSKMaterialReferences, pskMaterialRefSize, appendSection(&psk.MaterialReferences, pskMaterialRefCodec))
	return t
}

// ReadPSK reads a PSK mesh from r. Unrecognized sections are skipped and
// reported through the psx options; no partial mesh is returned on error.
func ReadPSK(r io.Reader, opts ...psx.Option) (*PSK, error) {
	psk := &PSK{}
	if err := psk.sectionTable().Read(r, opts...); err != nil {
		return nil, fmt.Errorf("reading PSK: %w", err)
	}
	return psk, nil
}

// ParsePSK parses PSK data from a byte slice.
func ParsePSK(data []byte, opts ...psx.Option) (*PSK, error) {
	return ReadPSK(bytes.NewReader(data), opts...)
}

// ParsePSKFile parses a PSK file from disk.
func ParsePSKFile(path string, opts ...psx.Option) (*PSK, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PSK file: %w", err)
	}
	defer f.Close()
	return ReadPSK(f, opts...)
}

// WritePSK writes psk in canonical section order.
func WritePSK(w io.Writer, psk *PSK, opts PSKWriteOptions) error {
	wide := len(psk.Wedges) > pskMaxWedges16
	if !wide {
		for i, wd := range psk.Wedges {
			if wd.MaterialIndex > 0xFF {
				return fmt.Errorf("%w: wedge %d material index %d exceeds 255", ErrPSKIndexRange, i, wd.MaterialIndex)
			}
		}
	}
	facesName := PSKFaces
	if wide {
		facesName = PSKFaces32
	}

	sw := psx.NewWriter(w)
	sw.WriteHeaderOnly(PSKHeader)
	psx.WriteSection(sw, PSKPoints, psx.Vec3Codec, psk.Points)
	psx.WriteSection(sw, PSKWedges, pskWedgeCodec(wide), psk.Wedges)
	psx.WriteSection(sw, facesName, pskFaceCodec(wide), psk.Faces)
	psx.WriteSection(sw, PSKMaterials, pskMaterialCodec, psk.Materials)
	psx.WriteSection(sw, PSKBones, psx.BoneCodec, psk.Bones)
	psx.WriteSection(sw, PSKWeights, pskWeightCodec, psk.Weights)

	if opts.Extended {
		if psk.HasExtraUVs {
			if len(psk.ExtraUVs) == 0 {
				psx.WriteSection(sw, PSKExtraUVsPrefix+"0", psx.Vec2Codec, nil)
			}
			for i, uvs := range psk.ExtraUVs {
				psx.WriteSection(sw, PSKExtraUVsPrefix+strconv.Itoa(i), psx.Vec2Codec, uvs)
			}
		}
		if len(psk.VertexColors) > 0 {
			psx.WriteSection(sw, PSKVertexColors, psx.ColorCodec, psk.VertexColors)
		}
		if len(psk.VertexNormals) > 0 {
			psx.WriteSection(sw, PSKVertexNormals, psx.Vec3Codec, psk.VertexNormals)
		}
		if len(psk.MorphInfos) > 0 {
			psx.WriteSection(sw, PSKMorphInfos, pskMorphInfoCodec, psk.MorphInfos)
		}
		if len(psk.MorphData) > 0 {
			psx.WriteSection(sw, PSKMorphDeltas, pskMorphDataCodec, psk.MorphData)
		}
		if len(psk.MaterialReferences) > 0 {
			psx.WriteSection(sw, PSKMaterialReferences, pskMaterialRefCodec, psk.MaterialReferences)
		}
	}

	if err := sw.Err(); err != nil {
		return fmt.Errorf("writing PSK: %w", err)
	}
	return nil
}

// WritePSKFile writes psk to path.
func WritePSKFile(path string, psk *PSK, opts PSKWriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating PSK file: %w", err)
	}
	if err := WritePSK(f, psk, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Clone returns a deep copy of the mesh.
func (psk *PSK) Clone() (*PSK, error) {
	var out PSK
	if err := deepcopy.Copy(&out, psk); err != nil {
		return nil, fmt.Errorf("copying PSK: %w", err)
	}
	return &out, nil
}

// Validate checks every cross-reference index against the sequence it
// points into. Raw reads never perform these checks.
func (psk *PSK) Validate() error {
	points := len(psk.Points)
	for i, w := range psk.Wedges {
		if int64(w.PointIndex) >= int64(points) {
			return fmt.Errorf("%w: wedge %d point index %d (points: %d)", psx.ErrDanglingReference, i, w.PointIndex, points)
		}
	}
	for i, f := range psk.Faces {
		for _, idx := range f.WedgeIndices {
			if int64(idx) >= int64(len(psk.Wedges)) {
				return fmt.Errorf("%w: face %d wedge index %d (wedges: %d)", psx.ErrDanglingReference, i, idx, len(psk.Wedges))
			}
		}
	}
	for i, w := range psk.Weights {
		if w.PointIndex < 0 || int(w.PointIndex) >= points {
			return fmt.Errorf("%w: weight %d point index %d (points: %d)", psx.ErrDanglingReference, i, w.PointIndex, points)
		}
		if w.BoneIndex < 0 || int(w.BoneIndex) >= len(psk.Bones) {
			return fmt.Errorf("%w: weight %d bone index %d (bones: %d)", psx.ErrDanglingReference, i, w.BoneIndex, len(psk.Bones))
		}
	}
	for i, m := range psk.MorphData {
		if m.PointIndex < 0 || int(m.PointIndex) >= points {
			return fmt.Errorf("%w: morph delta %d point index %d (points: %d)", psx.ErrDanglingReference, i, m.PointIndex, points)
		}
	}
	return psx.ValidateBones(psk.Bones)
}
