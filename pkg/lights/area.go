package lights

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// DiffuseAreaLight emits uniformly from a shape's surface. One-sided
// by default, emitting from the side the geometric normal points to.
type DiffuseAreaLight struct {
	shape    AreaShape
	lEmit    spectrum.Spectrum
	scale    float64
	twoSided bool
}

// NewDiffuseArea creates an area light over a shape
func NewDiffuseArea(shape AreaShape, lEmit spectrum.Spectrum, scale float64, twoSided bool) *DiffuseAreaLight {
	return &DiffuseAreaLight{shape: shape, lEmit: lEmit, scale: scale, twoSided: twoSided}
}

// L returns the emitted radiance from a surface point in direction w
func (l *DiffuseAreaLight) L(_ core.Vec3, n core.Vec3, w core.Vec3, lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	if !l.twoSided && n.Dot(w) < 0 {
		return spectrum.SampledSpectrum{}
	}
	return spectrum.Sample(l.lEmit, lambda).Scale(l.scale)
}

// SampleLi samples a point on the shape as seen from the reference
func (l *DiffuseAreaLight) SampleLi(ctx SampleContext, u core.Vec2, lambda spectrum.SampledWavelengths) (LiSample, bool) {
	p, n, pdf, ok := l.shape.SampleTowards(ctx.P.Value, u)
	if !ok || pdf == 0 {
		return LiSample{}, false
	}
	wi := p.Subtract(ctx.P.Value)
	if wi.IsZero() {
		return LiSample{}, false
	}
	wi = wi.Normalize()

	li := l.L(p, n, wi.Negate(), lambda)
	if li.IsZero() {
		return LiSample{}, false
	}
	return LiSample{
		L:      li,
		Wi:     wi,
		PDF:    pdf,
		PLight: core.NewPoint3fi(p),
		NLight: n,
	}, true
}

// PDFLi returns the shape's solid-angle density from the reference
func (l *DiffuseAreaLight) PDFLi(ctx SampleContext, wi core.Vec3) float64 {
	return l.shape.PDFTowards(ctx.P.Value, wi)
}

// SampleLe samples a surface point and a cosine-weighted direction
func (l *DiffuseAreaLight) SampleLe(u1, u2 core.Vec2, lambda spectrum.SampledWavelengths, time float64) (LeSample, bool) {
	p, n := l.shape.SampleUniform(u1)
	pdfPos := 1 / l.shape.Area()

	// Cosine-sample the hemisphere about the normal; a two-sided
	// light flips by the first dimension.
	uDir := u2
	flip := false
	if l.twoSided {
		if uDir.X < 0.5 {
			uDir.X = math.Min(2*uDir.X, 1-1e-12)
		} else {
			uDir.X = math.Min(2*(uDir.X-0.5), 1-1e-12)
			flip = true
		}
	}
	local := core.SampleCosineHemisphere(uDir)
	pdfDir := core.CosineHemispherePDF(local.Z)
	if l.twoSided {
		pdfDir /= 2
	}
	if pdfDir == 0 {
		return LeSample{}, false
	}

	frame := core.FrameFromZ(n)
	w := frame.FromLocal(local)
	if flip {
		w = w.Negate()
	}

	r := core.NewRay(core.OffsetRayOrigin(core.NewPoint3fi(p), n, w), w)
	r.Time = time
	return LeSample{
		L:      l.L(p, n, w, lambda),
		Ray:    r,
		NLight: n,
		PDFPos: pdfPos,
		PDFDir: pdfDir,
	}, true
}

// PDFLe returns the emission densities for a ray leaving the surface
func (l *DiffuseAreaLight) PDFLe(r core.Ray, n core.Vec3) (float64, float64) {
	pdfPos := 1 / l.shape.Area()
	cosTheta := n.Dot(r.Direction)
	if l.twoSided {
		return pdfPos, core.CosineHemispherePDF(math.Abs(cosTheta)) / 2
	}
	if cosTheta <= 0 {
		return pdfPos, 0
	}
	return pdfPos, core.CosineHemispherePDF(cosTheta)
}

// Phi integrates the constant radiance over area and hemisphere
func (l *DiffuseAreaLight) Phi(lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	scale := l.scale * math.Pi * l.shape.Area()
	if l.twoSided {
		scale *= 2
	}
	return spectrum.Sample(l.lEmit, lambda).Scale(scale)
}
