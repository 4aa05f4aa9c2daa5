package material

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// ConductorBxDF models a metallic reflector: specular when smooth,
// GGX microfacet when rough. Fresnel is the Schlick approximation
// anchored at the normal-incidence reflectance.
type ConductorBxDF struct {
	Reflectance spectrum.SampledSpectrum // Normal-incidence Fresnel reflectance
	MFD         TrowbridgeReitz
}

// schlick evaluates the Fresnel reflectance at the given cosine
func (c *ConductorBxDF) schlick(cosTheta float64) spectrum.SampledSpectrum {
	m := math.Pow(1-core.Clamp(cosTheta, 0, 1), 5)
	return c.Reflectance.Add(spectrum.One().Sub(c.Reflectance).Scale(m))
}

// Flags returns specular or glossy reflection depending on roughness
func (c *ConductorBxDF) Flags() BxDFFlags {
	if c.MFD.EffectivelySmooth() {
		return FlagsSpecularReflection
	}
	return FlagsGlossyReflection
}

// F evaluates the microfacet lobe; zero for the smooth case
func (c *ConductorBxDF) F(wo, wi core.Vec3, _ TransportMode) spectrum.SampledSpectrum {
	if !core.SameHemisphere(wo, wi) || c.MFD.EffectivelySmooth() {
		return spectrum.SampledSpectrum{}
	}
	cosThetaO, cosThetaI := core.AbsCosTheta(wo), core.AbsCosTheta(wi)
	if cosThetaO == 0 || cosThetaI == 0 {
		return spectrum.SampledSpectrum{}
	}
	wm := wo.Add(wi)
	if wm.IsZero() {
		return spectrum.SampledSpectrum{}
	}
	wm = wm.Normalize()
	fr := c.schlick(wo.AbsDot(wm))
	return fr.Scale(c.MFD.D(wm) * c.MFD.G(wo, wi) / (4 * cosThetaO * cosThetaI))
}

// SampleF reflects specularly when smooth, otherwise samples a
// visible microfacet normal.
func (c *ConductorBxDF) SampleF(wo core.Vec3, _ float64, u core.Vec2, mode TransportMode, sampleFlags SampleFlags) (BSDFSample, bool) {
	if sampleFlags&SampleReflection == 0 {
		return BSDFSample{}, false
	}

	if c.MFD.EffectivelySmooth() {
		wi := core.NewVec3(-wo.X, -wo.Y, wo.Z)
		cosTheta := core.AbsCosTheta(wi)
		if cosTheta == 0 {
			return BSDFSample{}, false
		}
		return BSDFSample{
			F:     c.schlick(cosTheta).Scale(1 / cosTheta),
			Wi:    wi,
			PDF:   1,
			Flags: FlagsSpecularReflection,
			Eta:   1,
		}, true
	}

	if wo.Z == 0 {
		return BSDFSample{}, false
	}
	wm := c.MFD.SampleWm(wo, u)
	wi := wo.Reflect(wm).Negate()
	if !core.SameHemisphere(wo, wi) {
		return BSDFSample{}, false
	}
	pdf := c.MFD.PDF(wo, wm) / (4 * wo.AbsDot(wm))
	if pdf == 0 {
		return BSDFSample{}, false
	}
	return BSDFSample{
		F:     c.F(wo, wi, mode),
		Wi:    wi,
		PDF:   pdf,
		Flags: FlagsGlossyReflection,
		Eta:   1,
	}, true
}

// PDF returns the visible-normal sampling density; zero when smooth
func (c *ConductorBxDF) PDF(wo, wi core.Vec3, _ TransportMode, sampleFlags SampleFlags) float64 {
	if sampleFlags&SampleReflection == 0 || !core.SameHemisphere(wo, wi) || c.MFD.EffectivelySmooth() {
		return 0
	}
	wm := wo.Add(wi)
	if wm.IsZero() {
		return 0
	}
	wm = wm.Normalize().Faceforward(core.NewVec3(0, 0, 1))
	return c.MFD.PDF(wo, wm) / (4 * wo.AbsDot(wm))
}

// Regularize widens the microfacet distribution
func (c *ConductorBxDF) Regularize() { c.MFD.Regularize() }
