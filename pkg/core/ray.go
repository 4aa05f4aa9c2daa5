package core

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/tagged"
)

// Ray represents a ray with an origin, direction, time, and a
// parametric validity bound TMax. Medium is a non-owning handle to the
// participating medium the ray currently travels through (a
// medium.Medium word; the empty word means vacuum). It is stored as a
// raw tagged word so the math layer stays below the medium package.
type Ray struct {
	Origin    Vec3
	Direction Vec3
	Time      float64
	TMax      float64
	Medium    tagged.Word
}

// NewRay creates a new ray with unbounded extent at time zero
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction, TMax: math.Inf(1)}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}

// RayDifferential extends Ray with two auxiliary rays offset by one
// sample in screen x and y, used to estimate texture filter footprints.
// HasDifferentials is false when the producer could not supply them.
type RayDifferential struct {
	Ray
	HasDifferentials       bool
	RxOrigin, RyOrigin     Vec3
	RxDirection, RyDirection Vec3
}

// NewRayDifferential wraps a ray with no differentials
func NewRayDifferential(r Ray) RayDifferential {
	return RayDifferential{Ray: r}
}

// ScaleDifferentials scales the differential offsets for spp estimated
// camera rays, so footprints account for the sampling density.
func (r *RayDifferential) ScaleDifferentials(s float64) {
	if !r.HasDifferentials {
		return
	}
	r.RxOrigin = r.Origin.Add(r.RxOrigin.Subtract(r.Origin).Multiply(s))
	r.RyOrigin = r.Origin.Add(r.RyOrigin.Subtract(r.Origin).Multiply(s))
	r.RxDirection = r.Direction.Add(r.RxDirection.Subtract(r.Direction).Multiply(s))
	r.RyDirection = r.Direction.Add(r.RyDirection.Subtract(r.Direction).Multiply(s))
}
