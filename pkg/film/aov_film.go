package film

import (
	"image"
	"math"
	"sync/atomic"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// aovPixel extends the RGB estimate with geometric channels averaged
// over the samples that produced visible-surface records.
type aovPixel struct {
	rgbSum    [3]float64
	weightSum float64
	splat     [3]uint64

	normalSum core.Vec3
	albedoSum core.Vec3
	depthSum  float64
	vsWeight  float64
}

// AOVFilm records normal, albedo, and depth channels alongside the
// RGB estimate. The auxiliary channels feed denoisers and debugging
// output; integrators fill in VisibleSurface records when the film
// reports UsesVisibleSurface.
type AOVFilm struct {
	bounds       image.Rectangle
	cameraOrigin core.Vec3
	pixels       []aovPixel
}

// NewAOVFilm creates an AOV film. The camera origin is used to derive
// the depth channel from visible-surface points.
func NewAOVFilm(bounds image.Rectangle, cameraOrigin core.Vec3) *AOVFilm {
	return &AOVFilm{
		bounds:       bounds,
		cameraOrigin: cameraOrigin,
		pixels:       make([]aovPixel, bounds.Dx()*bounds.Dy()),
	}
}

func (f *AOVFilm) pixel(p image.Point) *aovPixel {
	if !p.In(f.bounds) {
		panic("film: pixel outside bounds")
	}
	i := (p.Y-f.bounds.Min.Y)*f.bounds.Dx() + (p.X - f.bounds.Min.X)
	return &f.pixels[i]
}

// PixelBounds returns the raster rectangle the film accumulates
func (f *AOVFilm) PixelBounds() image.Rectangle { return f.bounds }

// SampleWavelengths draws hero wavelengths for a pixel sample
func (f *AOVFilm) SampleWavelengths(u float64) spectrum.SampledWavelengths {
	return spectrum.SampleVisible(u)
}

// AddSample deposits one weighted pixel sample plus its
// visible-surface record when one was produced.
func (f *AOVFilm) AddSample(p image.Point, l spectrum.SampledSpectrum, lambda spectrum.SampledWavelengths, vs *VisibleSurface, weight float64) {
	if l.HasNaN() {
		return
	}
	rgb := l.ToRGB(lambda)
	px := f.pixel(p)
	px.rgbSum[0] += weight * rgb.X
	px.rgbSum[1] += weight * rgb.Y
	px.rgbSum[2] += weight * rgb.Z
	px.weightSum += weight

	if vs != nil && vs.Set {
		px.normalSum = px.normalSum.Add(vs.ShadingNormal.Multiply(weight))
		px.albedoSum = px.albedoSum.Add(vs.Albedo.ToRGB(lambda).Multiply(weight))
		px.depthSum += weight * vs.Point.Subtract(f.cameraOrigin).Length()
		px.vsWeight += weight
	}
}

// AddRGB deposits an already-resolved RGB value
func (f *AOVFilm) AddRGB(p image.Point, rgb core.Vec3, weight float64) {
	px := f.pixel(p)
	px.rgbSum[0] += weight * rgb.X
	px.rgbSum[1] += weight * rgb.Y
	px.rgbSum[2] += weight * rgb.Z
	px.weightSum += weight
}

// AddSplat deposits radiance at a continuous raster position
func (f *AOVFilm) AddSplat(p core.Vec2, l spectrum.SampledSpectrum, lambda spectrum.SampledWavelengths) {
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

// PixelRGB returns the resolved linear RGB value of one pixel
func (f *AOVFilm) PixelRGB(p image.Point, splatScale float64) core.Vec3 {
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
	return rgb.Add(splat.Multiply(splatScale))
}

// PixelNormal returns the averaged shading normal, zero when no
// visible surface was recorded.
func (f *AOVFilm) PixelNormal(p image.Point) core.Vec3 {
	px := f.pixel(p)
	if px.vsWeight == 0 {
		return core.Vec3{}
	}
	return px.normalSum.Multiply(1 / px.vsWeight)
}

// PixelAlbedo returns the averaged surface albedo
func (f *AOVFilm) PixelAlbedo(p image.Point) core.Vec3 {
	px := f.pixel(p)
	if px.vsWeight == 0 {
		return core.Vec3{}
	}
	return px.albedoSum.Multiply(1 / px.vsWeight)
}

// PixelDepth returns the averaged camera-space depth
func (f *AOVFilm) PixelDepth(p image.Point) float64 {
	px := f.pixel(p)
	if px.vsWeight == 0 {
		return 0
	}
	return px.depthSum / px.vsWeight
}

// ToImage resolves the RGB channel into an 8-bit image
func (f *AOVFilm) ToImage(splatScale float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.bounds.Dx(), f.bounds.Dy()))
	for y := f.bounds.Min.Y; y < f.bounds.Max.Y; y++ {
		for x := f.bounds.Min.X; x < f.bounds.Max.X; x++ {
			rgb := f.PixelRGB(image.Pt(x, y), splatScale)
			i := img.PixOffset(x-f.bounds.Min.X, y-f.bounds.Min.Y)
			img.Pix[i+0] = toSRGB(rgb.X)
			img.Pix[i+1] = toSRGB(rgb.Y)
			img.Pix[i+2] = toSRGB(rgb.Z)
			img.Pix[i+3] = 255
		}
	}
	return img
}
