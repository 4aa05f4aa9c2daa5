// Package camera generates primary rays from image-sample positions.
// Camera is a closed-set polymorphic handle over the perspective and
// orthographic projections.
package camera

import (
	"unsafe"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
	"github.com/calebh/go-spectral-pathtracer/pkg/tagged"
)

// Sample carries the positions a pixel sample was drawn at: the point
// on the film in raster coordinates, the point on the lens, and the
// shutter time sample, all in [0,1) sample space except PFilm.
type Sample struct {
	PFilm        core.Vec2 // Raster-space film position
	PLens        core.Vec2 // Lens sample in [0,1)²
	Time         float64   // Shutter time sample in [0,1)
	FilterWeight float64   // Reconstruction filter weight for this sample
}

// Tags for the closed camera variant set.
const (
	tagPerspective = iota + 1
	tagOrthographic
)

// Camera is a handle over the closed set of camera models.
type Camera struct {
	w tagged.Word
}

// FromPerspective wraps a PerspectiveCamera in a handle
func FromPerspective(c *PerspectiveCamera) Camera {
	tagged.Keep(c)
	return Camera{w: tagged.Pack(unsafe.Pointer(c), tagPerspective)}
}

// FromOrthographic wraps an OrthographicCamera in a handle
func FromOrthographic(c *OrthographicCamera) Camera {
	tagged.Keep(c)
	return Camera{w: tagged.Pack(unsafe.Pointer(c), tagOrthographic)}
}

// IsNil reports whether the handle is empty
func (c Camera) IsNil() bool { return c.w.IsNil() }

// IsPerspective reports whether the handle holds a PerspectiveCamera
func (c Camera) IsPerspective() bool { return c.w.Tag() == tagPerspective }

// AsPerspective casts to *PerspectiveCamera, panicking on mismatch
func (c Camera) AsPerspective() *PerspectiveCamera {
	c.w.CheckTag(tagPerspective, "camera")
	return tagged.As[PerspectiveCamera](c.w)
}

// TryPerspective casts to *PerspectiveCamera, reporting failure
// instead of panicking
func (c Camera) TryPerspective() (*PerspectiveCamera, bool) {
	if !c.IsPerspective() {
		return nil, false
	}
	return tagged.As[PerspectiveCamera](c.w), true
}

// GenerateRay produces the camera ray for a sample, along with a
// weight applied to the radiance it carries back. Returns false when
// the sample produces no valid ray.
func (c Camera) GenerateRay(s Sample, lambda *spectrum.SampledWavelengths) (core.Ray, float64, bool) {
	c.w.CheckDispatch("camera")
	switch c.w.Tag() {
	case tagPerspective:
		return tagged.As[PerspectiveCamera](c.w).GenerateRay(s)
	default:
		return tagged.As[OrthographicCamera](c.w).GenerateRay(s)
	}
}

// GenerateRayDifferential produces the camera ray together with rays
// offset one pixel in x and y, for texture footprint estimation.
func (c Camera) GenerateRayDifferential(s Sample, lambda *spectrum.SampledWavelengths) (core.RayDifferential, float64, bool) {
	c.w.CheckDispatch("camera")
	switch c.w.Tag() {
	case tagPerspective:
		return tagged.As[PerspectiveCamera](c.w).GenerateRayDifferential(s)
	default:
		return tagged.As[OrthographicCamera](c.w).GenerateRayDifferential(s)
	}
}

// SampleTime maps a uniform sample to a time within the shutter
// interval
func (c Camera) SampleTime(u float64) float64 {
	c.w.CheckDispatch("camera")
	switch c.w.Tag() {
	case tagPerspective:
		return tagged.As[PerspectiveCamera](c.w).SampleTime(u)
	default:
		return tagged.As[OrthographicCamera](c.w).SampleTime(u)
	}
}

// MapRayToRaster projects a ray leaving the camera back onto the
// raster. Only the perspective camera supports the inverse mapping.
func (c Camera) MapRayToRaster(r core.Ray) (core.Vec2, bool) {
	c.w.CheckDispatch("camera")
	if p, ok := c.TryPerspective(); ok {
		return p.MapRayToRaster(r)
	}
	return core.Vec2{}, false
}

// We returns the importance the camera assigns to a ray leaving the
// lens, with the raster position it lands on.
func (c Camera) We(r core.Ray) (float64, core.Vec2, bool) {
	c.w.CheckDispatch("camera")
	if p, ok := c.TryPerspective(); ok {
		return p.We(r)
	}
	return 0, core.Vec2{}, false
}

// PDFWe returns the densities with which GenerateRay produces the ray
func (c Camera) PDFWe(r core.Ray) (pdfPos, pdfDir float64) {
	c.w.CheckDispatch("camera")
	if p, ok := c.TryPerspective(); ok {
		return p.PDFWe(r)
	}
	return 0, 0
}

// SampleWi samples a connection from a reference point to the lens
func (c Camera) SampleWi(ref core.Vec3, u core.Vec2) (wi core.Vec3, dist float64, pdf float64, we float64, pRaster core.Vec2, ok bool) {
	c.w.CheckDispatch("camera")
	if p, ok := c.TryPerspective(); ok {
		return p.SampleWi(ref, u)
	}
	return core.Vec3{}, 0, 0, 0, core.Vec2{}, false
}

// Position returns the center of projection
func (c Camera) Position() core.Vec3 {
	c.w.CheckDispatch("camera")
	switch c.w.Tag() {
	case tagPerspective:
		return tagged.As[PerspectiveCamera](c.w).Position()
	default:
		return tagged.As[OrthographicCamera](c.w).Position()
	}
}

// Resolution returns the raster resolution in pixels
func (c Camera) Resolution() (int, int) {
	c.w.CheckDispatch("camera")
	switch c.w.Tag() {
	case tagPerspective:
		p := tagged.As[PerspectiveCamera](c.w)
		return p.width, p.height
	default:
		o := tagged.As[OrthographicCamera](c.w)
		return o.width, o.height
	}
}
