// Package math provides the vector and quaternion value types stored in PSK/PSA records.
//
// All types are plain float32 structs whose field order matches the on-disk
// little-endian layout, so a record codec can read and write them field by field.
package math

// Vec2 is a 2D vector, typically a texture coordinate.
type Vec2 struct {
	X, Y float32
}
