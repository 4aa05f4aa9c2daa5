package geometry

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
)

// Quad is a parallelogram: a corner plus two edge vectors. The normal
// follows the right-hand rule of U cross V.
type Quad struct {
	Corner core.Vec3
	U, V   core.Vec3

	normal core.Vec3
	area   float64
}

// NewQuad creates a parallelogram from a corner and two edges
func NewQuad(corner, u, v core.Vec3) *Quad {
	cross := u.Cross(v)
	return &Quad{
		Corner: corner,
		U:      u,
		V:      v,
		normal: cross.Normalize(),
		area:   cross.Length(),
	}
}

// Normal returns the geometric normal
func (q *Quad) Normal() core.Vec3 { return q.normal }

// Bounds returns the box over the four corners
func (q *Quad) Bounds() core.AABB {
	return core.NewAABBFromPoints(
		q.Corner,
		q.Corner.Add(q.U),
		q.Corner.Add(q.V),
		q.Corner.Add(q.U).Add(q.V),
	)
}

// intersectPlane returns the hit parameter and parametric coordinates
func (q *Quad) intersectPlane(r core.Ray, tMax float64) (t, alpha, beta float64, ok bool) {
	denom := q.normal.Dot(r.Direction)
	if math.Abs(denom) < 1e-12 {
		return 0, 0, 0, false
	}
	t = q.normal.Dot(q.Corner.Subtract(r.Origin)) / denom
	if t <= 1e-10 || t >= tMax {
		return 0, 0, 0, false
	}

	p := r.At(t)
	rel := p.Subtract(q.Corner)

	// Decompose rel into edge coordinates
	uu := q.U.Dot(q.U)
	uv := q.U.Dot(q.V)
	vv := q.V.Dot(q.V)
	ru := rel.Dot(q.U)
	rv := rel.Dot(q.V)
	det := uu*vv - uv*uv
	if det == 0 {
		return 0, 0, 0, false
	}
	alpha = (ru*vv - rv*uv) / det
	beta = (rv*uu - ru*uv) / det
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return 0, 0, 0, false
	}
	return t, alpha, beta, true
}

// Intersect returns the hit inside the parallelogram
func (q *Quad) Intersect(r core.Ray, tMax float64) (ShapeIntersection, bool) {
	t, alpha, beta, ok := q.intersectPlane(r, tMax)
	if !ok {
		return ShapeIntersection{}, false
	}

	p := q.Corner.Add(q.U.Multiply(alpha)).Add(q.V.Multiply(beta))
	pErr := q.Corner.Abs().
		Add(q.U.Abs().Multiply(alpha)).
		Add(q.V.Abs().Multiply(beta)).
		Multiply(core.Gamma(4))

	si := material.NewSurfaceInteraction(
		core.NewPoint3fiWithError(p, pErr), q.normal, core.NewVec2(alpha, beta),
		r.Direction.Negate().Normalize(), r.Time)
	return ShapeIntersection{SI: si, THit: t}, true
}

// IntersectP reports whether the ray crosses the parallelogram
func (q *Quad) IntersectP(r core.Ray, tMax float64) bool {
	_, _, _, ok := q.intersectPlane(r, tMax)
	return ok
}

// Area returns the parallelogram area
func (q *Quad) Area() float64 { return q.area }

// SampleUniform draws a point uniformly by area
func (q *Quad) SampleUniform(u core.Vec2) (core.Vec3, core.Vec3) {
	p := q.Corner.Add(q.U.Multiply(u.X)).Add(q.V.Multiply(u.Y))
	return p, q.normal
}

// SampleTowards area-samples and converts the density to solid angle
func (q *Quad) SampleTowards(ref core.Vec3, u core.Vec2) (core.Vec3, core.Vec3, float64, bool) {
	p, n := q.SampleUniform(u)
	toP := p.Subtract(ref)
	d2 := toP.LengthSquared()
	if d2 == 0 {
		return core.Vec3{}, core.Vec3{}, 0, false
	}
	wi := toP.Normalize()
	cosTheta := n.AbsDot(wi)
	if cosTheta < 1e-12 {
		return core.Vec3{}, core.Vec3{}, 0, false
	}
	return p, n, d2 / (cosTheta * q.area), true
}

// PDFTowards returns the solid-angle density of directions hitting
// the parallelogram
func (q *Quad) PDFTowards(ref core.Vec3, wi core.Vec3) float64 {
	hit, ok := q.Intersect(core.NewRay(ref, wi), math.Inf(1))
	if !ok {
		return 0
	}
	d2 := hit.SI.P().Subtract(ref).LengthSquared()
	cosTheta := q.normal.AbsDot(wi)
	if cosTheta < 1e-12 {
		return 0
	}
	return d2 / (cosTheta * q.area)
}
