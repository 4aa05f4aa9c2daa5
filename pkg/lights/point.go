package lights

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// PointLight emits intensity I uniformly in all directions from a
// single position.
type PointLight struct {
	p     core.Vec3
	i     spectrum.Spectrum
	scale float64
}

// NewPoint creates a point light with intensity spectrum i
func NewPoint(p core.Vec3, i spectrum.Spectrum, scale float64) *PointLight {
	return &PointLight{p: p, i: i, scale: scale}
}

// SampleLi returns the single direction toward the light. The pdf is
// one; the delta is folded into the returned radiance.
func (l *PointLight) SampleLi(ctx SampleContext, _ core.Vec2, lambda spectrum.SampledWavelengths) (LiSample, bool) {
	toLight := l.p.Subtract(ctx.P.Value)
	d2 := toLight.LengthSquared()
	if d2 == 0 {
		return LiSample{}, false
	}
	wi := toLight.Multiply(1 / math.Sqrt(d2))
	li := spectrum.Sample(l.i, lambda).Scale(l.scale / d2)
	return LiSample{
		L:      li,
		Wi:     wi,
		PDF:    1,
		PLight: core.NewPoint3fi(l.p),
	}, true
}

// SampleLe emits a ray in a uniformly random direction
func (l *PointLight) SampleLe(u1, _ core.Vec2, lambda spectrum.SampledWavelengths, time float64) (LeSample, bool) {
	r := core.NewRay(l.p, core.SampleUniformSphere(u1))
	r.Time = time
	return LeSample{
		L:      spectrum.Sample(l.i, lambda).Scale(l.scale),
		Ray:    r,
		PDFPos: 1,
		PDFDir: core.UniformSpherePDF(),
	}, true
}

// PDFLe returns the emission densities
func (l *PointLight) PDFLe(core.Ray) (float64, float64) {
	return 0, core.UniformSpherePDF()
}

// Phi returns 4 pi times the intensity
func (l *PointLight) Phi(lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	return spectrum.Sample(l.i, lambda).Scale(4 * math.Pi * l.scale)
}
