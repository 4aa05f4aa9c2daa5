// Package geometry provides the shapes, the primitive binding of
// shape to material and light, and the aggregate that finds nearest
// intersections.
package geometry

import (
	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
)

// ShapeIntersection is a shape-local hit: the surface interaction
// geometry plus the ray parameter it occurred at.
type ShapeIntersection struct {
	SI   material.SurfaceInteraction
	THit float64
}

// Shape is the geometric contract: intersection against rays in
// [0, tMax), bounds, and area sampling for lights. Shapes know
// nothing about materials.
type Shape interface {
	Bounds() core.AABB
	// Intersect returns the nearest hit with t in (0, tMax)
	Intersect(r core.Ray, tMax float64) (ShapeIntersection, bool)
	// IntersectP reports whether any hit exists in (0, tMax)
	IntersectP(r core.Ray, tMax float64) bool

	Area() float64
	SampleUniform(u core.Vec2) (p core.Vec3, n core.Vec3)
	SampleTowards(ref core.Vec3, u core.Vec2) (p core.Vec3, n core.Vec3, pdf float64, ok bool)
	PDFTowards(ref core.Vec3, wi core.Vec3) float64
}
