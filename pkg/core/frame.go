package core

import "math"

// Frame is an orthonormal coordinate basis. It transforms directions
// between world space and a local space where Z is the frame's normal.
type Frame struct {
	X, Y, Z Vec3
}

// NewFrame builds a frame from three mutually orthogonal unit vectors
func NewFrame(x, y, z Vec3) Frame {
	return Frame{X: x, Y: y, Z: z}
}

// FrameFromZ builds a frame around the given unit z axis using the
// branchless basis construction from Duff et al.
func FrameFromZ(z Vec3) Frame {
	sign := math.Copysign(1, z.Z)
	a := -1 / (sign + z.Z)
	b := z.X * z.Y * a
	x := NewVec3(1+sign*z.X*z.X*a, sign*b, -sign*z.X)
	y := NewVec3(b, sign+z.Y*z.Y*a, -z.Y)
	return Frame{X: x, Y: y, Z: z}
}

// FrameFromXZ builds a frame from a z axis and a tangent hint x,
// re-orthogonalizing x against z.
func FrameFromXZ(x, z Vec3) Frame {
	x = x.Subtract(z.Multiply(x.Dot(z))).Normalize()
	if x.IsZero() {
		return FrameFromZ(z)
	}
	return Frame{X: x, Y: z.Cross(x), Z: z}
}

// ToLocal transforms a world-space direction into the frame
func (f Frame) ToLocal(v Vec3) Vec3 {
	return NewVec3(v.Dot(f.X), v.Dot(f.Y), v.Dot(f.Z))
}

// FromLocal transforms a frame-local direction into world space
func (f Frame) FromLocal(v Vec3) Vec3 {
	return f.X.Multiply(v.X).Add(f.Y.Multiply(v.Y)).Add(f.Z.Multiply(v.Z))
}

// Local-frame trigonometry helpers. In a shading frame the normal is
// (0,0,1), so cosine terms reduce to the z component.

// CosTheta returns the cosine of the angle to the frame normal
func CosTheta(w Vec3) float64 { return w.Z }

// AbsCosTheta returns |cos θ| for a local-frame direction
func AbsCosTheta(w Vec3) float64 { return math.Abs(w.Z) }

// SameHemisphere reports whether two local directions share the
// hemisphere around the frame normal
func SameHemisphere(w, wp Vec3) bool {
	return w.Z*wp.Z > 0
}
