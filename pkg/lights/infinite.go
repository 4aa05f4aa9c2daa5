package lights

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// UniformInfiniteLight surrounds the scene with constant radiance
// arriving from every direction.
type UniformInfiniteLight struct {
	l     spectrum.Spectrum
	scale float64

	sceneCenter core.Vec3
	sceneRadius float64
}

// NewUniformInfinite creates a uniform environment light
func NewUniformInfinite(l spectrum.Spectrum, scale float64) *UniformInfiniteLight {
	return &UniformInfiniteLight{l: l, scale: scale, sceneRadius: 1}
}

// Preprocess records the scene bounds
func (l *UniformInfiniteLight) Preprocess(center core.Vec3, radius float64) {
	l.sceneCenter = center
	l.sceneRadius = radius
}

// Le returns the constant radiance for any escaped ray
func (l *UniformInfiniteLight) Le(_ core.Ray, lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	return spectrum.Sample(l.l, lambda).Scale(l.scale)
}

// SampleLi draws a uniform direction on the sphere
func (l *UniformInfiniteLight) SampleLi(ctx SampleContext, u core.Vec2, lambda spectrum.SampledWavelengths) (LiSample, bool) {
	wi := core.SampleUniformSphere(u)
	pOutside := ctx.P.Value.Add(wi.Multiply(2 * l.sceneRadius))
	return LiSample{
		L:      spectrum.Sample(l.l, lambda).Scale(l.scale),
		Wi:     wi,
		PDF:    core.UniformSpherePDF(),
		PLight: core.NewPoint3fi(pOutside),
	}, true
}

// PDFLi is the uniform sphere density
func (l *UniformInfiniteLight) PDFLi(SampleContext, core.Vec3) float64 {
	return core.UniformSpherePDF()
}

// SampleLe emits a ray inward through the scene: a uniform direction
// and a point on the disk perpendicular to it.
func (l *UniformInfiniteLight) SampleLe(u1, u2 core.Vec2, lambda spectrum.SampledWavelengths, time float64) (LeSample, bool) {
	w := core.SampleUniformSphere(u1)

	frame := core.FrameFromZ(w.Negate())
	cd := core.SampleUniformDiskConcentric(u2)
	pDisk := l.sceneCenter.Add(frame.FromLocal(core.NewVec3(cd.X, cd.Y, 0)).Multiply(l.sceneRadius))

	r := core.NewRay(pDisk.Add(w.Negate().Multiply(l.sceneRadius)), w)
	r.Time = time
	return LeSample{
		L:      spectrum.Sample(l.l, lambda).Scale(l.scale),
		Ray:    r,
		PDFPos: 1 / (math.Pi * l.sceneRadius * l.sceneRadius),
		PDFDir: core.UniformSpherePDF(),
	}, true
}

// PDFLe returns the emission densities
func (l *UniformInfiniteLight) PDFLe(core.Ray) (float64, float64) {
	return 1 / (math.Pi * l.sceneRadius * l.sceneRadius), core.UniformSpherePDF()
}

// Phi integrates the constant radiance over the bounding sphere
func (l *UniformInfiniteLight) Phi(lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	return spectrum.Sample(l.l, lambda).
		Scale(l.scale * 4 * math.Pi * math.Pi * l.sceneRadius * l.sceneRadius)
}
