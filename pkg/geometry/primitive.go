package geometry

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/lights"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
	"github.com/calebh/go-spectral-pathtracer/pkg/medium"
)

// MediumInterface names the media on each side of a surface. Zero
// handles mean vacuum.
type MediumInterface struct {
	Inside  medium.Medium
	Outside medium.Medium
}

// IsTransition reports whether the two sides differ
func (mi MediumInterface) IsTransition() bool {
	return mi.Inside.Word() != mi.Outside.Word()
}

// Primitive binds a shape to its material, optional area light, and
// optional medium interface. MaterialIndex of -1 marks a pure medium
// boundary with no surface scattering.
type Primitive struct {
	Shape         Shape
	MaterialIndex int
	AreaLight     lights.Light
	Interface     *MediumInterface
}

// Intersect intersects the shape and fills in the primitive's
// attachments on the interaction.
func (pr *Primitive) Intersect(r core.Ray, tMax float64) (ShapeIntersection, bool) {
	hit, ok := pr.Shape.Intersect(r, tMax)
	if !ok {
		return ShapeIntersection{}, false
	}
	hit.SI.MaterialIndex = pr.MaterialIndex
	hit.SI.AreaLight = pr.AreaLight.Word()
	hit.SI.Medium = r.Medium
	if pr.Interface != nil && pr.Interface.IsTransition() {
		hit.SI.HasMediumInterface = true
		hit.SI.InsideMedium = pr.Interface.Inside.Word()
		hit.SI.OutsideMedium = pr.Interface.Outside.Word()
	}
	return hit, true
}

// IntersectP reports whether the shape occludes in (0, tMax)
func (pr *Primitive) IntersectP(r core.Ray, tMax float64) bool {
	return pr.Shape.IntersectP(r, tMax)
}

// ListAggregate finds nearest intersections by testing every
// primitive. Quadratic in scene size but exact; the built-in scenes
// are small enough that no tree is needed.
type ListAggregate struct {
	prims  []Primitive
	bounds core.AABB
}

// NewListAggregate builds the aggregate and its bounds
func NewListAggregate(prims []Primitive) *ListAggregate {
	bounds := core.EmptyAABB()
	for i := range prims {
		bounds = bounds.Union(prims[i].Shape.Bounds())
	}
	return &ListAggregate{prims: prims, bounds: bounds}
}

// Bounds returns the union of all primitive bounds
func (a *ListAggregate) Bounds() core.AABB { return a.bounds }

// Intersect returns the nearest hit in (0, tMax)
func (a *ListAggregate) Intersect(r core.Ray, tMax float64) (material.SurfaceInteraction, float64, bool) {
	if math.IsNaN(tMax) {
		return material.SurfaceInteraction{}, 0, false
	}
	closest := tMax
	var best material.SurfaceInteraction
	found := false
	for i := range a.prims {
		if hit, ok := a.prims[i].Intersect(r, closest); ok {
			closest = hit.THit
			best = hit.SI
			found = true
		}
	}
	return best, closest, found
}

// IntersectP reports whether anything occludes in (0, tMax)
func (a *ListAggregate) IntersectP(r core.Ray, tMax float64) bool {
	for i := range a.prims {
		if a.prims[i].IntersectP(r, tMax) {
			return true
		}
	}
	return false
}
