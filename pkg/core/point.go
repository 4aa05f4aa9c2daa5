package core

import "math"

// machineEpsilon is half the float64 unit roundoff, matching the
// convention used in floating-point error interval analysis.
const machineEpsilon = 0x1p-53

// Gamma returns the conservative relative error bound (n·ε)/(1-n·ε)
// for a chain of n floating-point operations.
func Gamma(n int) float64 {
	ne := float64(n) * machineEpsilon
	return ne / (1 - ne)
}

// Point3fi is a 3D point where each coordinate carries an accumulated
// rounding-error bound. Intersection routines produce these so that
// rays spawned from a surface can be offset past the error interval
// instead of relying on a fixed epsilon.
type Point3fi struct {
	Value Vec3 // Point position
	Error Vec3 // Per-coordinate absolute error bound (non-negative)
}

// NewPoint3fi creates an exact point with zero error
func NewPoint3fi(p Vec3) Point3fi {
	return Point3fi{Value: p}
}

// NewPoint3fiWithError creates a point with the given error bounds
func NewPoint3fiWithError(p, err Vec3) Point3fi {
	return Point3fi{Value: p, Error: err.Abs()}
}

// OffsetRayOrigin computes a ray origin offset from the point pi along
// the geometric normal n, far enough that a ray leaving in direction w
// cannot re-intersect the surface the point lies on. The offset point
// is rounded away from the surface so the conservative bound survives
// floating-point rounding.
func OffsetRayOrigin(pi Point3fi, n, w Vec3) Vec3 {
	d := n.Abs().Dot(pi.Error)
	offset := n.Multiply(d)
	if w.Dot(n) < 0 {
		offset = offset.Negate()
	}
	po := pi.Value.Add(offset)

	// Round the offset point away from p
	po.X = roundAway(po.X, offset.X)
	po.Y = roundAway(po.Y, offset.Y)
	po.Z = roundAway(po.Z, offset.Z)
	return po
}

func roundAway(v, offset float64) float64 {
	if offset > 0 {
		return math.Nextafter(v, math.Inf(1))
	} else if offset < 0 {
		return math.Nextafter(v, math.Inf(-1))
	}
	return v
}

// SpawnRayTo builds a ray segment from an offset origin at pFrom
// toward the point pTo, with TMax inset slightly so the ray does not
// re-hit the destination surface.
func SpawnRayTo(pFrom Point3fi, nFrom Vec3, time float64, pTo Point3fi, nTo Vec3) Ray {
	origin := OffsetRayOrigin(pFrom, nFrom, pTo.Value.Subtract(pFrom.Value))
	target := OffsetRayOrigin(pTo, nTo, origin.Subtract(pTo.Value))
	d := target.Subtract(origin)
	r := NewRay(origin, d)
	r.Time = time
	r.TMax = 1 - shadowEpsilon
	return r
}

// shadowEpsilon insets parametric shadow-ray extents below the far
// endpoint. Used only for point-to-point visibility segments; surface
// self-intersection is handled by OffsetRayOrigin.
const shadowEpsilon = 1e-4
