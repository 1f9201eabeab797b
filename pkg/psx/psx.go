// Package psx implements the chunked binary container shared by PSK meshes and
// PSA animations.
//
// A file is a flat run of sections. Every section starts with a 32-byte header
// (20-byte name, type tag, element size, element count) followed by
// size*count bytes of fixed-width little-endian records. There is no section
// directory: a reader walks headers until end of stream, and the header's
// size/count pair is enough to step over sections it does not understand.
package psx

// TypeTag is the type tag written into every section header.
const TypeTag int32 = 1999801

// Fixed record widths in bytes.
const (
	SectionHeaderSize = 32
	SectionNameSize   = 20
	BoneNameSize      = 64
	BoneSize          = 120
	ColorSize         = 4
	Vec2Size          = 8
	Vec3Size          = 12
	QuatSize          = 16
)
