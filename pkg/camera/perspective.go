package camera

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
)

// PerspectiveCamera models a pinhole or thin-lens perspective
// projection. With a zero lens radius it is an ideal pinhole; a
// positive radius adds depth of field focused at FocusDistance.
type PerspectiveCamera struct {
	position      core.Vec3
	u, v, forward core.Vec3 // Orthonormal camera basis
	lensRadius    float64
	focusDistance float64
	width, height int
	tanHalfFov    float64
	aspect        float64
	shutterOpen   float64
	shutterClose  float64
	imagePlaneArea float64 // Area of the image rectangle on the plane at unit distance
}

// PerspectiveOptions configures a perspective camera
type PerspectiveOptions struct {
	Position      core.Vec3
	LookAt        core.Vec3
	Up            core.Vec3
	VFov          float64 // Vertical field of view in degrees
	Width         int
	Height        int
	LensRadius    float64
	FocusDistance float64 // Defaults to the distance to LookAt
	ShutterOpen   float64
	ShutterClose  float64
}

// NewPerspective creates a perspective camera
func NewPerspective(opts PerspectiveOptions) *PerspectiveCamera {
	forward := opts.LookAt.Subtract(opts.Position).Normalize()
	u := forward.Cross(opts.Up).Normalize()
	v := u.Cross(forward)

	focusDistance := opts.FocusDistance
	if focusDistance == 0 {
		focusDistance = opts.LookAt.Subtract(opts.Position).Length()
	}

	tanHalfFov := math.Tan(opts.VFov * math.Pi / 360)
	aspect := float64(opts.Width) / float64(opts.Height)

	return &PerspectiveCamera{
		position:       opts.Position,
		u:              u,
		v:              v,
		forward:        forward,
		lensRadius:     opts.LensRadius,
		focusDistance:  focusDistance,
		width:          opts.Width,
		height:         opts.Height,
		tanHalfFov:     tanHalfFov,
		aspect:         aspect,
		shutterOpen:    opts.ShutterOpen,
		shutterClose:   opts.ShutterClose,
		imagePlaneArea: 4 * tanHalfFov * tanHalfFov * aspect,
	}
}

// SampleTime maps a uniform sample into the shutter interval
func (c *PerspectiveCamera) SampleTime(u float64) float64 {
	return core.Lerp(u, c.shutterOpen, c.shutterClose)
}

// rayDirection returns the unnormalized direction through a raster
// point
func (c *PerspectiveCamera) rayDirection(pFilm core.Vec2) core.Vec3 {
	// Raster to NDC, y flipped so raster y grows downward
	ndcX := 2*pFilm.X/float64(c.width) - 1
	ndcY := 1 - 2*pFilm.Y/float64(c.height)
	return c.forward.
		Add(c.u.Multiply(ndcX * c.tanHalfFov * c.aspect)).
		Add(c.v.Multiply(ndcY * c.tanHalfFov))
}

// GenerateRay produces the ray for a camera sample
func (c *PerspectiveCamera) GenerateRay(s Sample) (core.Ray, float64, bool) {
	dir := c.rayDirection(s.PFilm).Normalize()
	origin := c.position

	if c.lensRadius > 0 {
		// Defocus: shift the origin on the lens and re-aim at the
		// plane of focus
		pLens := core.SampleUniformDiskConcentric(s.PLens).Multiply(c.lensRadius)
		ft := c.focusDistance / dir.Dot(c.forward)
		pFocus := origin.Add(dir.Multiply(ft))
		origin = origin.Add(c.u.Multiply(pLens.X)).Add(c.v.Multiply(pLens.Y))
		dir = pFocus.Subtract(origin).Normalize()
	}

	r := core.NewRay(origin, dir)
	r.Time = c.SampleTime(s.Time)
	return r, 1, true
}

// GenerateRayDifferential produces the ray plus one-pixel-offset
// differentials
func (c *PerspectiveCamera) GenerateRayDifferential(s Sample) (core.RayDifferential, float64, bool) {
	r, weight, ok := c.GenerateRay(s)
	if !ok {
		return core.RayDifferential{}, 0, false
	}

	rd := core.NewRayDifferential(r)
	if c.lensRadius == 0 {
		rd.HasDifferentials = true
		rd.RxOrigin = r.Origin
		rd.RyOrigin = r.Origin
		rd.RxDirection = c.rayDirection(s.PFilm.Add(core.NewVec2(1, 0))).Normalize()
		rd.RyDirection = c.rayDirection(s.PFilm.Add(core.NewVec2(0, 1))).Normalize()
	}
	return rd, weight, ok
}

// MapRayToRaster projects a ray leaving the camera back onto the
// raster. Returns false for directions outside the field of view; the
// bidirectional and Metropolis integrators use this to find the pixel
// a light-path connection contributes to.
func (c *PerspectiveCamera) MapRayToRaster(r core.Ray) (core.Vec2, bool) {
	// For a thin lens the ray origin may be off-center; project the
	// point on the plane of focus instead of the direction alone.
	cosTheta := r.Direction.Dot(c.forward)
	if cosTheta <= 0 {
		return core.Vec2{}, false
	}

	focus := c.focusDistance
	if c.lensRadius == 0 {
		focus = 1
	}
	pFocus := r.Origin.Add(r.Direction.Multiply(focus / cosTheta))
	rel := pFocus.Subtract(c.position)
	z := rel.Dot(c.forward)
	if z <= 0 {
		return core.Vec2{}, false
	}

	ndcX := rel.Dot(c.u) / (z * c.tanHalfFov * c.aspect)
	ndcY := rel.Dot(c.v) / (z * c.tanHalfFov)
	if ndcX < -1 || ndcX > 1 || ndcY < -1 || ndcY > 1 {
		return core.Vec2{}, false
	}

	return core.NewVec2(
		(ndcX+1)/2*float64(c.width),
		(1-ndcY)/2*float64(c.height),
	), true
}

// We returns the importance the camera assigns to a ray leaving the
// lens, zero for rays outside the field of view.
func (c *PerspectiveCamera) We(r core.Ray) (float64, core.Vec2, bool) {
	pRaster, ok := c.MapRayToRaster(r)
	if !ok {
		return 0, core.Vec2{}, false
	}
	cosTheta := r.Direction.Dot(c.forward)

	lensArea := 1.0
	if c.lensRadius > 0 {
		lensArea = math.Pi * c.lensRadius * c.lensRadius
	}
	cos2 := cosTheta * cosTheta
	return 1 / (c.imagePlaneArea * lensArea * cos2 * cos2), pRaster, true
}

// PDFWe returns the positional and directional densities with which
// GenerateRay produces the given ray.
func (c *PerspectiveCamera) PDFWe(r core.Ray) (pdfPos, pdfDir float64) {
	cosTheta := r.Direction.Dot(c.forward)
	if cosTheta <= 0 {
		return 0, 0
	}
	if _, ok := c.MapRayToRaster(r); !ok {
		return 0, 0
	}

	pdfPos = 1.0
	if c.lensRadius > 0 {
		pdfPos = 1 / (math.Pi * c.lensRadius * c.lensRadius)
	}
	pdfDir = 1 / (c.imagePlaneArea * cosTheta * cosTheta * cosTheta)
	return pdfPos, pdfDir
}

// SampleWi samples a direction from a reference point to the lens,
// returning the importance along it, the direction and distance, the
// density of the sample, and the raster position it contributes to.
// The density is with respect to solid angle at the reference point.
func (c *PerspectiveCamera) SampleWi(ref core.Vec3, u core.Vec2) (wi core.Vec3, dist float64, pdf float64, we float64, pRaster core.Vec2, ok bool) {
	pLensWorld := c.position
	lensArea := 1.0
	if c.lensRadius > 0 {
		pLens := core.SampleUniformDiskConcentric(u).Multiply(c.lensRadius)
		pLensWorld = c.position.Add(c.u.Multiply(pLens.X)).Add(c.v.Multiply(pLens.Y))
		lensArea = math.Pi * c.lensRadius * c.lensRadius
	}

	toRef := ref.Subtract(pLensWorld)
	dist = toRef.Length()
	if dist == 0 {
		return core.Vec3{}, 0, 0, 0, core.Vec2{}, false
	}
	wi = toRef.Multiply(-1 / dist) // Points from ref toward the lens

	// Density of the lens-area sample converted to solid angle at ref
	cosTheta := wi.Negate().Dot(c.forward)
	if cosTheta <= 0 {
		return core.Vec3{}, 0, 0, 0, core.Vec2{}, false
	}
	pdf = dist * dist / (cosTheta * lensArea)

	we, pRaster, ok = c.We(core.NewRay(pLensWorld, wi.Negate()))
	if !ok {
		return core.Vec3{}, 0, 0, 0, core.Vec2{}, false
	}
	return wi, dist, pdf, we, pRaster, true
}

// Position returns the center of the lens
func (c *PerspectiveCamera) Position() core.Vec3 { return c.position }

// Forward returns the viewing direction
func (c *PerspectiveCamera) Forward() core.Vec3 { return c.forward }
