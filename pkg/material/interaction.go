// Package material holds the interaction data model, the BxDF closed
// set, and the materials that produce BSDFs at intersection points.
package material

import (
	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/tagged"
)

// Interaction is the common core of a path-vertex record: a position
// with accumulated floating-point error bounds, the outgoing direction
// back toward the previous vertex, and the time and medium the ray was
// traveling in. Surface and medium interactions embed it; the Go type
// itself says which kind of vertex this is.
type Interaction struct {
	Point  core.Point3fi
	Wo     core.Vec3 // Unit direction back along the arriving ray, zero at path endpoints
	Time   float64
	Medium tagged.Word // Medium the arriving ray traveled through
}

// P returns the interaction position
func (it *Interaction) P() core.Vec3 { return it.Point.Value }

// SurfaceInteraction records a ray-surface intersection: geometric and
// shading geometry, parametric coordinates, and the primitive's
// attachments filled in by the aggregate.
type SurfaceInteraction struct {
	Interaction
	Normal core.Vec3 // Geometric normal
	UV     core.Vec2

	// Shading geometry, equal to the geometric frame unless the shape
	// interpolates normals.
	Shading struct {
		Normal core.Vec3
	}

	MaterialIndex int         // Index into the scene material table, -1 for none
	AreaLight     tagged.Word // Light handle word when the primitive emits, zero otherwise

	// Media on each side of the surface. Valid only when the primitive
	// declares an interface; otherwise both inherit the ray medium.
	InsideMedium  tagged.Word
	OutsideMedium tagged.Word
	HasMediumInterface bool
}

// NewSurfaceInteraction builds a surface interaction from intersection
// geometry. The shading normal starts equal to the geometric normal.
func NewSurfaceInteraction(pi core.Point3fi, n core.Vec3, uv core.Vec2, wo core.Vec3, time float64) SurfaceInteraction {
	si := SurfaceInteraction{
		Interaction: Interaction{Point: pi, Wo: wo, Time: time},
		Normal:      n,
		UV:          uv,
	}
	si.Shading.Normal = n
	return si
}

// SetShadingGeometry installs an interpolated shading normal, flipping
// the geometric normal into its hemisphere so the two agree.
func (si *SurfaceInteraction) SetShadingGeometry(ns core.Vec3) {
	si.Shading.Normal = ns
	if !ns.IsZero() {
		si.Normal = si.Normal.Faceforward(ns)
	}
}

// SpawnRay returns a ray leaving the surface in direction d, with its
// origin offset off the surface along the geometric normal.
func (si *SurfaceInteraction) SpawnRay(d core.Vec3) core.Ray {
	o := core.OffsetRayOrigin(si.Point, si.Normal, d)
	r := core.NewRay(o, d)
	r.Time = si.Time
	r.Medium = si.MediumFor(d)
	return r
}

// SpawnRayTo returns a shadow ray from this interaction to another,
// with both endpoints offset and TMax set just short of the target.
func (si *SurfaceInteraction) SpawnRayTo(to *Interaction) core.Ray {
	r := core.SpawnRayTo(si.Point, si.Normal, si.Time, to.Point, core.Vec3{})
	r.Medium = si.MediumFor(r.Direction)
	return r
}

// MediumFor returns the medium on the side of the surface that
// direction d points into.
func (si *SurfaceInteraction) MediumFor(d core.Vec3) tagged.Word {
	if !si.HasMediumInterface {
		return si.Medium
	}
	if d.Dot(si.Normal) > 0 {
		return si.OutsideMedium
	}
	return si.InsideMedium
}

// MediumInteraction records a scattering event inside a participating
// medium. Phase holds the phase-function handle word at the point.
type MediumInteraction struct {
	Interaction
	Phase tagged.Word
}

// NewMediumInteraction builds a medium interaction at a point with no
// positional error
func NewMediumInteraction(p core.Vec3, wo core.Vec3, time float64, medium, phase tagged.Word) MediumInteraction {
	return MediumInteraction{
		Interaction: Interaction{Point: core.NewPoint3fi(p), Wo: wo, Time: time, Medium: medium},
		Phase:       phase,
	}
}

// SpawnRay returns a ray leaving the medium point in direction d. No
// surface offsetting is needed in a volume.
func (mi *MediumInteraction) SpawnRay(d core.Vec3) core.Ray {
	r := core.NewRay(mi.P(), d)
	r.Time = mi.Time
	r.Medium = mi.Medium
	return r
}

// SpawnRayTo returns a shadow ray from the medium point to another
// interaction
func (mi *MediumInteraction) SpawnRayTo(to *Interaction) core.Ray {
	r := core.SpawnRayTo(mi.Point, core.Vec3{}, mi.Time, to.Point, core.Vec3{})
	r.Medium = mi.Medium
	return r
}
