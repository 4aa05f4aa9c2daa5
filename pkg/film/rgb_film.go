package film

import (
	"image"
	"image/color"
	"math"
	"sync/atomic"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// rgbPixel holds one pixel's running estimate. The weighted sums are
// written only by the worker that owns the pixel's tile; the splat
// channels are shared and updated with compare-and-swap on the float
// bit patterns.
type rgbPixel struct {
	rgbSum    [3]float64
	weightSum float64
	splat     [3]uint64
}

// RGBFilm resolves spectral samples to RGB at deposit time and stores
// a weighted running sum per pixel.
type RGBFilm struct {
	bounds     image.Rectangle
	pixels     []rgbPixel
	filterNorm float64 // Integral of the reconstruction filter, 1 for the box filter
}

// NewRGBFilm creates a film covering the given pixel bounds
func NewRGBFilm(bounds image.Rectangle) *RGBFilm {
	return &RGBFilm{
		bounds:     bounds,
		pixels:     make([]rgbPixel, bounds.Dx()*bounds.Dy()),
		filterNorm: 1,
	}
}

func (f *RGBFilm) pixel(p image.Point) *rgbPixel {
	if !p.In(f.bounds) {
		panic("film: pixel outside bounds")
	}
	i := (p.Y-f.bounds.Min.Y)*f.bounds.Dx() + (p.X - f.bounds.Min.X)
	return &f.pixels[i]
}

// PixelBounds returns the raster rectangle the film accumulates
func (f *RGBFilm) PixelBounds() image.Rectangle { return f.bounds }

// SampleWavelengths draws hero wavelengths for a pixel sample using
// the visible-importance distribution.
func (f *RGBFilm) SampleWavelengths(u float64) spectrum.SampledWavelengths {
	return spectrum.SampleVisible(u)
}

// AddSample deposits one weighted pixel sample. Only the worker that
// owns the pixel's tile may call this; cross-tile contributions go
// through AddSplat.
func (f *RGBFilm) AddSample(p image.Point, l spectrum.SampledSpectrum, lambda spectrum.SampledWavelengths, _ *VisibleSurface, weight float64) {
	if l.HasNaN() {
		return
	}
	rgb := l.ToRGB(lambda)
	px := f.pixel(p)
	px.rgbSum[0] += weight * rgb.X
	px.rgbSum[1] += weight * rgb.Y
	px.rgbSum[2] += weight * rgb.Z
	px.weightSum += weight
}

// AddRGB deposits an already-resolved RGB value, for integrators that
// accumulate their estimates outside the film.
func (f *RGBFilm) AddRGB(p image.Point, rgb core.Vec3, weight float64) {
	px := f.pixel(p)
	px.rgbSum[0] += weight * rgb.X
	px.rgbSum[1] += weight * rgb.Y
	px.rgbSum[2] += weight * rgb.Z
	px.weightSum += weight
}

// AddSplat deposits radiance at a continuous raster position. Safe to
// call from any worker concurrently.
func (f *RGBFilm) AddSplat(p core.Vec2, l spectrum.SampledSpectrum, lambda spectrum.SampledWavelengths) {
	if l.HasNaN() {
		return
	}
	pi := image.Pt(int(math.Floor(p.X)), int(math.Floor(p.Y)))
	if !pi.In(f.bounds) {
		return
	}
	rgb := l.ToRGB(lambda)
	px := f.pixel(pi)
	atomicAddFloat(&px.splat[0], rgb.X)
	atomicAddFloat(&px.splat[1], rgb.Y)
	atomicAddFloat(&px.splat[2], rgb.Z)
}

// atomicAddFloat adds v to the float64 stored in bits, retrying the
// compare-and-swap until no other writer intervenes.
func atomicAddFloat(bits *uint64, v float64) {
	for {
		old := atomic.LoadUint64(bits)
		next := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(bits, old, next) {
			return
		}
	}
}

// PixelRGB returns the resolved linear RGB value of one pixel
func (f *RGBFilm) PixelRGB(p image.Point, splatScale float64) core.Vec3 {
	px := f.pixel(p)
	var rgb core.Vec3
	if px.weightSum > 0 {
		rgb = core.NewVec3(px.rgbSum[0], px.rgbSum[1], px.rgbSum[2]).Multiply(1 / px.weightSum)
	}
	splat := core.NewVec3(
		math.Float64frombits(atomic.LoadUint64(&px.splat[0])),
		math.Float64frombits(atomic.LoadUint64(&px.splat[1])),
		math.Float64frombits(atomic.LoadUint64(&px.splat[2])),
	)
	return rgb.Add(splat.Multiply(splatScale / f.filterNorm))
}

// ToImage resolves the film into an 8-bit sRGB image
func (f *RGBFilm) ToImage(splatScale float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.bounds.Dx(), f.bounds.Dy()))
	for y := f.bounds.Min.Y; y < f.bounds.Max.Y; y++ {
		for x := f.bounds.Min.X; x < f.bounds.Max.X; x++ {
			rgb := f.PixelRGB(image.Pt(x, y), splatScale)
			img.SetRGBA(x-f.bounds.Min.X, y-f.bounds.Min.Y, color.RGBA{
				R: toSRGB(rgb.X),
				G: toSRGB(rgb.Y),
				B: toSRGB(rgb.Z),
				A: 255,
			})
		}
	}
	return img
}

// toSRGB gamma-corrects and quantizes one linear channel
func toSRGB(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	var s float64
	if v <= 0.0031308 {
		s = 12.92 * v
	} else {
		s = 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	if s >= 1 {
		return 255
	}
	return uint8(s*255 + 0.5)
}
