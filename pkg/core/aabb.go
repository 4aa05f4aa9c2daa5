package core

import "math"

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min Vec3 // Minimum corner
	Max Vec3 // Maximum corner
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// EmptyAABB returns a degenerate box that unions as the identity
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: NewVec3(inf, inf, inf),
		Max: NewVec3(-inf, -inf, -inf),
	}
}

// NewAABBFromPoints creates an AABB that bounds all given points
func NewAABBFromPoints(points ...Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}

	lo := points[0]
	hi := points[0]
	for _, p := range points[1:] {
		lo.X = min(lo.X, p.X)
		lo.Y = min(lo.Y, p.Y)
		lo.Z = min(lo.Z, p.Z)
		hi.X = max(hi.X, p.X)
		hi.Y = max(hi.Y, p.Y)
		hi.Z = max(hi.Z, p.Z)
	}
	return AABB{Min: lo, Max: hi}
}

// Union returns the smallest box containing both boxes
func (aabb AABB) Union(other AABB) AABB {
	return AABB{
		Min: NewVec3(
			min(aabb.Min.X, other.Min.X),
			min(aabb.Min.Y, other.Min.Y),
			min(aabb.Min.Z, other.Min.Z),
		),
		Max: NewVec3(
			max(aabb.Max.X, other.Max.X),
			max(aabb.Max.Y, other.Max.Y),
			max(aabb.Max.Z, other.Max.Z),
		),
	}
}

// Center returns the centroid of the box
func (aabb AABB) Center() Vec3 {
	return aabb.Min.Add(aabb.Max).Multiply(0.5)
}

// BoundingSphere returns a sphere that encloses the box. Infinite
// lights use this to importance-sample directions toward the scene.
func (aabb AABB) BoundingSphere() (center Vec3, radius float64) {
	center = aabb.Center()
	radius = aabb.Max.Subtract(center).Length()
	return center, radius
}

// Hit tests if a ray intersects this AABB within [tMin, tMax] using
// the slab method
func (aabb AABB) Hit(ray Ray, tMin, tMax float64) bool {
	for axis := 0; axis < 3; axis++ {
		lo := aabb.Min.Component(axis)
		hi := aabb.Max.Component(axis)
		origin := ray.Origin.Component(axis)
		direction := ray.Direction.Component(axis)

		invD := 1.0 / direction
		t0 := (lo - origin) * invD
		t1 := (hi - origin) * invD
		if invD < 0 {
			t0, t1 = t1, t0
		}

		tMin = max(tMin, t0)
		tMax = min(tMax, t1)
		if tMax <= tMin {
			return false
		}
	}
	return true
}
