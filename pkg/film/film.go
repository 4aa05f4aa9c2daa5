// Package film accumulates pixel radiance estimates. Film is a
// closed-set polymorphic handle; AddSample is called by the owning
// worker for pixels inside its tile, while AddSplat may target any
// pixel from any worker and is safe under concurrent contention.
package film

import (
	"image"
	"unsafe"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
	"github.com/calebh/go-spectral-pathtracer/pkg/tagged"
)

// VisibleSurface describes the first visible surface behind a pixel
// sample, for films that record auxiliary geometric channels.
type VisibleSurface struct {
	Set           bool
	Point         core.Vec3
	Normal        core.Vec3
	ShadingNormal core.Vec3
	UV            core.Vec2
	Time          float64
	Albedo        spectrum.SampledSpectrum
}

// Tags for the closed film variant set.
const (
	tagRGB = iota + 1
	tagAOV
)

// Film is a handle over the closed set of film implementations.
type Film struct {
	w tagged.Word
}

// FromRGB wraps an RGBFilm in a handle
func FromRGB(f *RGBFilm) Film {
	tagged.Keep(f)
	return Film{w: tagged.Pack(unsafe.Pointer(f), tagRGB)}
}

// FromAOV wraps an AOVFilm in a handle
func FromAOV(f *AOVFilm) Film {
	tagged.Keep(f)
	return Film{w: tagged.Pack(unsafe.Pointer(f), tagAOV)}
}

// IsNil reports whether the handle is empty
func (f Film) IsNil() bool { return f.w.IsNil() }

// AsRGB casts to *RGBFilm, panicking on mismatch
func (f Film) AsRGB() *RGBFilm {
	f.w.CheckTag(tagRGB, "film")
	return tagged.As[RGBFilm](f.w)
}

// AsAOV casts to *AOVFilm, panicking on mismatch
func (f Film) AsAOV() *AOVFilm {
	f.w.CheckTag(tagAOV, "film")
	return tagged.As[AOVFilm](f.w)
}

// AddSample accumulates one pixel sample. Accumulation per pixel is
// commutative: any ordering of a fixed sample multiset produces the
// same value up to floating-point summation order.
func (f Film) AddSample(p image.Point, l spectrum.SampledSpectrum, lambda spectrum.SampledWavelengths, vs *VisibleSurface, weight float64) {
	f.w.CheckDispatch("film")
	switch f.w.Tag() {
	case tagRGB:
		tagged.As[RGBFilm](f.w).AddSample(p, l, lambda, vs, weight)
	default:
		tagged.As[AOVFilm](f.w).AddSample(p, l, lambda, vs, weight)
	}
}

// AddRGB deposits an already-resolved RGB value, for integrators that
// accumulate their estimates outside the film.
func (f Film) AddRGB(p image.Point, rgb core.Vec3, weight float64) {
	f.w.CheckDispatch("film")
	switch f.w.Tag() {
	case tagRGB:
		tagged.As[RGBFilm](f.w).AddRGB(p, rgb, weight)
	default:
		tagged.As[AOVFilm](f.w).AddRGB(p, rgb, weight)
	}
}

// AddSplat deposits radiance at a continuous raster position from any
// worker; implementations serialize the update.
func (f Film) AddSplat(p core.Vec2, l spectrum.SampledSpectrum, lambda spectrum.SampledWavelengths) {
	f.w.CheckDispatch("film")
	switch f.w.Tag() {
	case tagRGB:
		tagged.As[RGBFilm](f.w).AddSplat(p, l, lambda)
	default:
		tagged.As[AOVFilm](f.w).AddSplat(p, l, lambda)
	}
}

// SampleWavelengths draws the wavelengths a pixel sample will carry
func (f Film) SampleWavelengths(u float64) spectrum.SampledWavelengths {
	f.w.CheckDispatch("film")
	switch f.w.Tag() {
	case tagRGB:
		return tagged.As[RGBFilm](f.w).SampleWavelengths(u)
	default:
		return tagged.As[AOVFilm](f.w).SampleWavelengths(u)
	}
}

// PixelBounds returns the raster rectangle the film accumulates
func (f Film) PixelBounds() image.Rectangle {
	f.w.CheckDispatch("film")
	switch f.w.Tag() {
	case tagRGB:
		return tagged.As[RGBFilm](f.w).PixelBounds()
	default:
		return tagged.As[AOVFilm](f.w).PixelBounds()
	}
}

// UsesVisibleSurface reports whether the film wants visible-surface
// records; integrators skip building them otherwise.
func (f Film) UsesVisibleSurface() bool {
	f.w.CheckDispatch("film")
	switch f.w.Tag() {
	case tagRGB:
		return false
	default:
		return true
	}
}

// ToImage resolves the accumulated estimates into an 8-bit image.
// splatScale rescales splat contributions (the Metropolis and
// bidirectional integrators deposit unnormalized splats).
func (f Film) ToImage(splatScale float64) *image.RGBA {
	f.w.CheckDispatch("film")
	switch f.w.Tag() {
	case tagRGB:
		return tagged.As[RGBFilm](f.w).ToImage(splatScale)
	default:
		return tagged.As[AOVFilm](f.w).ToImage(splatScale)
	}
}

// PixelRGB returns the resolved linear RGB value of one pixel
func (f Film) PixelRGB(p image.Point, splatScale float64) core.Vec3 {
	f.w.CheckDispatch("film")
	switch f.w.Tag() {
	case tagRGB:
		return tagged.As[RGBFilm](f.w).PixelRGB(p, splatScale)
	default:
		return tagged.As[AOVFilm](f.w).PixelRGB(p, splatScale)
	}
}
