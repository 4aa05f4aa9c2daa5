package material

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// DielectricBxDF models a smooth or rough dielectric interface such
// as glass. Eta is the index of refraction of the inside relative to
// the outside.
type DielectricBxDF struct {
	Eta float64
	MFD TrowbridgeReitz
}

// FrDielectric computes the unpolarized Fresnel reflectance at a
// dielectric interface. cosThetaI may be negative for rays arriving
// from inside; eta is flipped accordingly.
func FrDielectric(cosThetaI, eta float64) float64 {
	cosThetaI = core.Clamp(cosThetaI, -1, 1)
	if cosThetaI < 0 {
		eta = 1 / eta
		cosThetaI = -cosThetaI
	}

	sin2ThetaI := 1 - cosThetaI*cosThetaI
	sin2ThetaT := sin2ThetaI / (eta * eta)
	if sin2ThetaT >= 1 {
		return 1 // Total internal reflection
	}
	cosThetaT := math.Sqrt(1 - sin2ThetaT)

	rParl := (eta*cosThetaI - cosThetaT) / (eta*cosThetaI + cosThetaT)
	rPerp := (cosThetaI - eta*cosThetaT) / (cosThetaI + eta*cosThetaT)
	return (rParl*rParl + rPerp*rPerp) / 2
}

// Flags classifies by roughness; an eta of one is a pure pass-through
func (d *DielectricBxDF) Flags() BxDFFlags {
	flags := FlagReflection | FlagTransmission
	if d.Eta == 1 || d.MFD.EffectivelySmooth() {
		return flags | FlagSpecular
	}
	return flags | FlagGlossy
}

// F evaluates the rough lobe; zero when smooth
func (d *DielectricBxDF) F(wo, wi core.Vec3, mode TransportMode) spectrum.SampledSpectrum {
	if d.Eta == 1 || d.MFD.EffectivelySmooth() {
		return spectrum.SampledSpectrum{}
	}

	cosThetaO, cosThetaI := core.CosTheta(wo), core.CosTheta(wi)
	reflect := cosThetaI*cosThetaO > 0
	etap := 1.0
	if !reflect {
		if cosThetaO > 0 {
			etap = d.Eta
		} else {
			etap = 1 / d.Eta
		}
	}

	// Generalized half vector
	wm := wi.Multiply(etap).Add(wo)
	if cosThetaI == 0 || cosThetaO == 0 || wm.IsZero() {
		return spectrum.SampledSpectrum{}
	}
	wm = wm.Normalize().Faceforward(core.NewVec3(0, 0, 1))

	// Discard back-facing microfacets
	if wm.Dot(wi)*cosThetaI < 0 || wm.Dot(wo)*cosThetaO < 0 {
		return spectrum.SampledSpectrum{}
	}

	fr := FrDielectric(wo.Dot(wm), d.Eta)
	if reflect {
		v := d.MFD.D(wm) * d.MFD.G(wo, wi) * fr / math.Abs(4*cosThetaI*cosThetaO)
		return spectrum.Constant(v)
	}

	denom := core.Sqr(wi.Dot(wm)+wo.Dot(wm)/etap) * cosThetaI * cosThetaO
	v := d.MFD.D(wm) * (1 - fr) * d.MFD.G(wo, wi) *
		math.Abs(wi.Dot(wm)*wo.Dot(wm)/denom)
	// Radiance transport scales by 1/eta^2 on refraction
	if mode == Radiance {
		v /= core.Sqr(etap)
	}
	return spectrum.Constant(v)
}

// SampleF chooses reflection or transmission by the Fresnel term
func (d *DielectricBxDF) SampleF(wo core.Vec3, uc float64, u core.Vec2, mode TransportMode, sampleFlags SampleFlags) (BSDFSample, bool) {
	if d.Eta == 1 || d.MFD.EffectivelySmooth() {
		return d.sampleSmooth(wo, uc, mode, sampleFlags)
	}
	return d.sampleRough(wo, uc, u, mode, sampleFlags)
}

func (d *DielectricBxDF) sampleSmooth(wo core.Vec3, uc float64, mode TransportMode, sampleFlags SampleFlags) (BSDFSample, bool) {
	r := FrDielectric(core.CosTheta(wo), d.Eta)
	t := 1 - r

	pr, pt := r, t
	if sampleFlags&SampleReflection == 0 {
		pr = 0
	}
	if sampleFlags&SampleTransmission == 0 {
		pt = 0
	}
	if pr == 0 && pt == 0 {
		return BSDFSample{}, false
	}

	if uc < pr/(pr+pt) {
		wi := core.NewVec3(-wo.X, -wo.Y, wo.Z)
		cosTheta := core.AbsCosTheta(wi)
		return BSDFSample{
			F:     spectrum.Constant(r / cosTheta),
			Wi:    wi,
			PDF:   pr / (pr + pt),
			Flags: FlagsSpecularReflection,
			Eta:   1,
		}, true
	}

	wi, etap, ok := core.Refract(wo, core.NewVec3(0, 0, 1), d.Eta)
	if !ok {
		return BSDFSample{}, false
	}
	ft := t / core.AbsCosTheta(wi)
	if mode == Radiance {
		ft /= core.Sqr(etap)
	}
	return BSDFSample{
		F:     spectrum.Constant(ft),
		Wi:    wi,
		PDF:   pt / (pr + pt),
		Flags: FlagsSpecularTransmission,
		Eta:   etap,
	}, true
}

func (d *DielectricBxDF) sampleRough(wo core.Vec3, uc float64, u core.Vec2, mode TransportMode, sampleFlags SampleFlags) (BSDFSample, bool) {
	if wo.Z == 0 {
		return BSDFSample{}, false
	}
	wm := d.MFD.SampleWm(wo, u)
	r := FrDielectric(wo.Dot(wm), d.Eta)
	t := 1 - r

	pr, pt := r, t
	if sampleFlags&SampleReflection == 0 {
		pr = 0
	}
	if sampleFlags&SampleTransmission == 0 {
		pt = 0
	}
	if pr == 0 && pt == 0 {
		return BSDFSample{}, false
	}

	if uc < pr/(pr+pt) {
		wi := wo.Reflect(wm).Negate()
		if !core.SameHemisphere(wo, wi) {
			return BSDFSample{}, false
		}
		pdf := d.MFD.PDF(wo, wm) / (4 * wo.AbsDot(wm)) * pr / (pr + pt)
		f := d.MFD.D(wm) * d.MFD.G(wo, wi) * r /
			math.Abs(4*core.CosTheta(wi)*core.CosTheta(wo))
		return BSDFSample{
			F:     spectrum.Constant(f),
			Wi:    wi,
			PDF:   pdf,
			Flags: FlagsGlossyReflection,
			Eta:   1,
		}, true
	}

	wi, etap, ok := core.Refract(wo, wm, d.Eta)
	if !ok || core.SameHemisphere(wo, wi) || wi.Z == 0 {
		return BSDFSample{}, false
	}
	denom := core.Sqr(wi.Dot(wm) + wo.Dot(wm)/etap)
	dwmDwi := wi.AbsDot(wm) / denom
	pdf := d.MFD.PDF(wo, wm) * dwmDwi * pt / (pr + pt)

	f := d.MFD.D(wm) * (1 - r) * d.MFD.G(wo, wi) *
		math.Abs(wi.Dot(wm)*wo.Dot(wm)/(core.CosTheta(wi)*core.CosTheta(wo)*denom))
	if mode == Radiance {
		f /= core.Sqr(etap)
	}
	return BSDFSample{
		F:     spectrum.Constant(f),
		Wi:    wi,
		PDF:   pdf,
		Flags: FlagGlossy | FlagTransmission,
		Eta:   etap,
	}, true
}

// PDF returns the rough sampling density; zero when smooth
func (d *DielectricBxDF) PDF(wo, wi core.Vec3, _ TransportMode, sampleFlags SampleFlags) float64 {
	if d.Eta == 1 || d.MFD.EffectivelySmooth() {
		return 0
	}

	cosThetaO, cosThetaI := core.CosTheta(wo), core.CosTheta(wi)
	reflect := cosThetaI*cosThetaO > 0
	etap := 1.0
	if !reflect {
		if cosThetaO > 0 {
			etap = d.Eta
		} else {
			etap = 1 / d.Eta
		}
	}

	wm := wi.Multiply(etap).Add(wo)
	if cosThetaI == 0 || cosThetaO == 0 || wm.IsZero() {
		return 0
	}
	wm = wm.Normalize().Faceforward(core.NewVec3(0, 0, 1))
	if wm.Dot(wi)*cosThetaI < 0 || wm.Dot(wo)*cosThetaO < 0 {
		return 0
	}

	r := FrDielectric(wo.Dot(wm), d.Eta)
	t := 1 - r
	pr, pt := r, t
	if sampleFlags&SampleReflection == 0 {
		pr = 0
	}
	if sampleFlags&SampleTransmission == 0 {
		pt = 0
	}
	if pr == 0 && pt == 0 {
		return 0
	}

	if reflect {
		return d.MFD.PDF(wo, wm) / (4 * wo.AbsDot(wm)) * pr / (pr + pt)
	}
	denom := core.Sqr(wi.Dot(wm) + wo.Dot(wm)/etap)
	return d.MFD.PDF(wo, wm) * wi.AbsDot(wm) / denom * pt / (pr + pt)
}

// Regularize widens the microfacet distribution
func (d *DielectricBxDF) Regularize() { d.MFD.Regularize() }
