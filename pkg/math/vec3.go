package math

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// Vec3Zero returns the zero vector.
func Vec3Zero() Vec3 {
	return Vec3{}
}
