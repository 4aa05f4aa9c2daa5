package geometry

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
)

// Sphere is a full sphere defined by center and radius
type Sphere struct {
	Center core.Vec3
	Radius float64
}

// NewSphere creates a sphere
func NewSphere(center core.Vec3, radius float64) *Sphere {
	return &Sphere{Center: center, Radius: radius}
}

// Bounds returns the axis-aligned bounding box
func (s *Sphere) Bounds() core.AABB {
	r := core.NewVec3(s.Radius, s.Radius, s.Radius)
	return core.NewAABB(s.Center.Subtract(r), s.Center.Add(r))
}

// quadratic solves the ray-sphere quadratic, returning the roots in
// ascending order
func (s *Sphere) quadratic(r core.Ray) (t0, t1 float64, ok bool) {
	oc := r.Origin.Subtract(s.Center)
	a := r.Direction.LengthSquared()
	halfB := oc.Dot(r.Direction)
	c := oc.LengthSquared() - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return 0, 0, false
	}
	sqrtD := math.Sqrt(discriminant)
	return (-halfB - sqrtD) / a, (-halfB + sqrtD) / a, true
}

// Intersect returns the nearest hit in (0, tMax)
func (s *Sphere) Intersect(r core.Ray, tMax float64) (ShapeIntersection, bool) {
	t0, t1, ok := s.quadratic(r)
	if !ok || t1 <= 0 || t0 >= tMax {
		return ShapeIntersection{}, false
	}
	t := t0
	if t <= 0 {
		t = t1
		if t >= tMax {
			return ShapeIntersection{}, false
		}
	}

	// Reproject onto the sphere to cut accumulated error, then bound
	// what remains.
	p := r.At(t)
	p = s.Center.Add(p.Subtract(s.Center).Normalize().Multiply(s.Radius))
	pErr := p.Subtract(s.Center).Abs().Multiply(core.Gamma(5))

	n := p.Subtract(s.Center).Multiply(1 / s.Radius)
	uv := sphereUV(n)

	si := material.NewSurfaceInteraction(
		core.NewPoint3fiWithError(p, pErr), n, uv, r.Direction.Negate().Normalize(), r.Time)
	return ShapeIntersection{SI: si, THit: t}, true
}

// IntersectP reports whether any hit exists in (0, tMax)
func (s *Sphere) IntersectP(r core.Ray, tMax float64) bool {
	t0, t1, ok := s.quadratic(r)
	if !ok {
		return false
	}
	return (t0 > 0 && t0 < tMax) || (t1 > 0 && t1 < tMax)
}

// sphereUV maps a unit normal to spherical parametric coordinates
func sphereUV(n core.Vec3) core.Vec2 {
	theta := math.Acos(core.Clamp(n.Z, -1, 1))
	phi := math.Atan2(n.Y, n.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return core.NewVec2(phi/(2*math.Pi), theta/math.Pi)
}

// Area returns the surface area
func (s *Sphere) Area() float64 { return 4 * math.Pi * s.Radius * s.Radius }

// SampleUniform draws a point uniformly on the surface
func (s *Sphere) SampleUniform(u core.Vec2) (core.Vec3, core.Vec3) {
	n := core.SampleUniformSphere(u)
	return s.Center.Add(n.Multiply(s.Radius)), n
}

// SampleTowards samples the cone of directions subtending the sphere
// from ref; inside the sphere it falls back to uniform area sampling.
func (s *Sphere) SampleTowards(ref core.Vec3, u core.Vec2) (core.Vec3, core.Vec3, float64, bool) {
	toCenter := s.Center.Subtract(ref)
	d2 := toCenter.LengthSquared()

	if d2 <= s.Radius*s.Radius {
		p, n := s.SampleUniform(u)
		toP := p.Subtract(ref)
		dist2 := toP.LengthSquared()
		if dist2 == 0 {
			return core.Vec3{}, core.Vec3{}, 0, false
		}
		wi := toP.Normalize()
		cosTheta := n.AbsDot(wi)
		if cosTheta == 0 {
			return core.Vec3{}, core.Vec3{}, 0, false
		}
		return p, n, dist2 / (cosTheta * s.Area()), true
	}

	// Uniform cone toward the sphere
	sinThetaMax2 := s.Radius * s.Radius / d2
	cosThetaMax := math.Sqrt(math.Max(0, 1-sinThetaMax2))
	frame := core.FrameFromZ(toCenter.Normalize())
	dir := frame.FromLocal(core.SampleUniformCone(u, cosThetaMax))

	// Project the cone sample onto the sphere surface
	hit, ok := s.Intersect(core.NewRay(ref, dir), math.Inf(1))
	var p core.Vec3
	if ok {
		p = hit.SI.P()
	} else {
		// Grazing numeric miss: take the closest point along dir
		t := toCenter.Dot(dir)
		p = s.Center.Add(ref.Add(dir.Multiply(t)).Subtract(s.Center).Normalize().Multiply(s.Radius))
	}
	n := p.Subtract(s.Center).Multiply(1 / s.Radius)
	return p, n, core.UniformConePDF(cosThetaMax), true
}

// PDFTowards returns the cone density for directions hitting the
// sphere
func (s *Sphere) PDFTowards(ref core.Vec3, wi core.Vec3) float64 {
	toCenter := s.Center.Subtract(ref)
	d2 := toCenter.LengthSquared()

	if d2 <= s.Radius*s.Radius {
		hit, ok := s.Intersect(core.NewRay(ref, wi), math.Inf(1))
		if !ok {
			return 0
		}
		dist2 := hit.SI.P().Subtract(ref).LengthSquared()
		cosTheta := hit.SI.Normal.AbsDot(wi)
		if cosTheta == 0 {
			return 0
		}
		return dist2 / (cosTheta * s.Area())
	}

	if !s.IntersectP(core.NewRay(ref, wi), math.Inf(1)) {
		return 0
	}
	sinThetaMax2 := s.Radius * s.Radius / d2
	cosThetaMax := math.Sqrt(math.Max(0, 1-sinThetaMax2))
	return core.UniformConePDF(cosThetaMax)
}
