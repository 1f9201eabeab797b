package math

// Quat represents a rotation quaternion.
// Components are stored as X, Y, Z, W where W is the scalar part; this is
// also the order in which they appear on disk.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// WXYZ returns the components scalar-first, the order animation tools expect.
func (q Quat) WXYZ() [4]float32 {
	return [4]float32{q.W, q.X, q.Y, q.Z}
}
