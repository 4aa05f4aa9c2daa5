package material

import (
	"github.com/calebh/go-spectral-pathtracer/pkg/scratch"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// Material produces the BSDF at an intersection point. The BxDF
// payload is allocated in the per-sample scratch buffer and lives
// until the buffer is reset.
type Material interface {
	BSDF(si *SurfaceInteraction, lambda *spectrum.SampledWavelengths, buf *scratch.Buffer) BSDF
}

// DiffuseMaterial is a Lambertian surface with a reflectance spectrum
type DiffuseMaterial struct {
	Reflectance spectrum.Spectrum
}

// BSDF samples the reflectance at the path's wavelengths
func (m *DiffuseMaterial) BSDF(si *SurfaceInteraction, lambda *spectrum.SampledWavelengths, buf *scratch.Buffer) BSDF {
	bx := DiffuseBxDFFrom(buf, DiffuseBxDF{
		Reflectance: spectrum.Sample(m.Reflectance, *lambda).ClampZero(),
	})
	return NewBSDF(bx, si.Shading.Normal, si.Normal)
}

// ConductorMaterial is a metal with a normal-incidence reflectance
// spectrum and a perceptual roughness.
type ConductorMaterial struct {
	Reflectance spectrum.Spectrum
	Roughness   float64
}

// BSDF builds the conductor BxDF at the path's wavelengths
func (m *ConductorMaterial) BSDF(si *SurfaceInteraction, lambda *spectrum.SampledWavelengths, buf *scratch.Buffer) BSDF {
	alpha := RoughnessToAlpha(m.Roughness)
	bx := ConductorBxDFFrom(buf, ConductorBxDF{
		Reflectance: spectrum.Sample(m.Reflectance, *lambda).ClampZero(),
		MFD:         TrowbridgeReitz{AlphaX: alpha, AlphaY: alpha},
	})
	return NewBSDF(bx, si.Shading.Normal, si.Normal)
}

// DielectricMaterial is glass-like with a scalar index of refraction.
// A scalar eta carries no dispersion, so secondary wavelengths are
// kept.
type DielectricMaterial struct {
	Eta       float64
	Roughness float64
}

// BSDF builds the dielectric BxDF
func (m *DielectricMaterial) BSDF(si *SurfaceInteraction, lambda *spectrum.SampledWavelengths, buf *scratch.Buffer) BSDF {
	alpha := RoughnessToAlpha(m.Roughness)
	bx := DielectricBxDFFrom(buf, DielectricBxDF{
		Eta: m.Eta,
		MFD: TrowbridgeReitz{AlphaX: alpha, AlphaY: alpha},
	})
	return NewBSDF(bx, si.Shading.Normal, si.Normal)
}
