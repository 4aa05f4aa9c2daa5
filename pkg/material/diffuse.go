package material

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// DiffuseBxDF is the ideal Lambertian reflector
type DiffuseBxDF struct {
	Reflectance spectrum.SampledSpectrum
}

// Flags returns diffuse reflection, or none for black reflectance
func (d *DiffuseBxDF) Flags() BxDFFlags {
	if d.Reflectance.IsZero() {
		return FlagsNone
	}
	return FlagsDiffuseReflection
}

// F returns reflectance over pi for directions in the same hemisphere
func (d *DiffuseBxDF) F(wo, wi core.Vec3, _ TransportMode) spectrum.SampledSpectrum {
	if !core.SameHemisphere(wo, wi) {
		return spectrum.SampledSpectrum{}
	}
	return d.Reflectance.Scale(1 / math.Pi)
}

// SampleF draws a cosine-weighted direction in wo's hemisphere
func (d *DiffuseBxDF) SampleF(wo core.Vec3, _ float64, u core.Vec2, mode TransportMode, sampleFlags SampleFlags) (BSDFSample, bool) {
	if sampleFlags&SampleReflection == 0 {
		return BSDFSample{}, false
	}
	wi := core.SampleCosineHemisphere(u)
	if wo.Z < 0 {
		wi.Z = -wi.Z
	}
	pdf := core.CosineHemispherePDF(core.AbsCosTheta(wi))
	if pdf == 0 {
		return BSDFSample{}, false
	}
	return BSDFSample{
		F:     d.Reflectance.Scale(1 / math.Pi),
		Wi:    wi,
		PDF:   pdf,
		Flags: FlagsDiffuseReflection,
		Eta:   1,
	}, true
}

// PDF returns the cosine-weighted density
func (d *DiffuseBxDF) PDF(wo, wi core.Vec3, _ TransportMode, sampleFlags SampleFlags) float64 {
	if sampleFlags&SampleReflection == 0 || !core.SameHemisphere(wo, wi) {
		return 0
	}
	return core.CosineHemispherePDF(core.AbsCosTheta(wi))
}
