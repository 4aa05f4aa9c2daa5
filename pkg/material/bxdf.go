package material

import (
	"unsafe"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/scratch"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
	"github.com/calebh/go-spectral-pathtracer/pkg/tagged"
)

// BxDFFlags classifies a scattering distribution by the hemisphere(s)
// it covers and its smoothness.
type BxDFFlags int

const (
	FlagsNone BxDFFlags = 0

	FlagReflection BxDFFlags = 1 << iota
	FlagTransmission
	FlagDiffuse
	FlagGlossy
	FlagSpecular
)

const (
	FlagsDiffuseReflection    = FlagDiffuse | FlagReflection
	FlagsGlossyReflection     = FlagGlossy | FlagReflection
	FlagsSpecularReflection   = FlagSpecular | FlagReflection
	FlagsSpecularTransmission = FlagSpecular | FlagTransmission
	FlagsAll                  = FlagReflection | FlagTransmission | FlagDiffuse | FlagGlossy | FlagSpecular
)

// IsReflective reports whether the distribution scatters into the
// upper hemisphere
func (f BxDFFlags) IsReflective() bool { return f&FlagReflection != 0 }

// IsTransmissive reports whether the distribution scatters through the
// surface
func (f BxDFFlags) IsTransmissive() bool { return f&FlagTransmission != 0 }

// IsSpecular reports whether the distribution is a delta function
func (f BxDFFlags) IsSpecular() bool { return f&FlagSpecular != 0 }

// IsDiffuse reports whether the distribution has a diffuse component
func (f BxDFFlags) IsDiffuse() bool { return f&FlagDiffuse != 0 }

// IsNonSpecular reports whether any smooth component exists
func (f BxDFFlags) IsNonSpecular() bool { return f&(FlagDiffuse|FlagGlossy) != 0 }

// IsGlossy reports whether the flags include a glossy lobe
func (f BxDFFlags) IsGlossy() bool { return f&FlagGlossy != 0 }

// TransportMode distinguishes paths traced from the camera (radiance)
// from paths traced from lights (importance); non-symmetric scattering
// such as refraction depends on it.
type TransportMode int

const (
	Radiance TransportMode = iota
	Importance
)

// SampleFlags restricts which components SampleF may choose.
type SampleFlags int

const (
	SampleReflection SampleFlags = 1 << iota
	SampleTransmission

	SampleAll = SampleReflection | SampleTransmission
)

// BSDFSample is the result of importance-sampling a scattering
// distribution. When PDFIsProportional is set, PDF is only
// proportional to the true density and must not be compared against
// densities from other strategies; dividing F by it still yields a
// correct estimator.
type BSDFSample struct {
	F                 spectrum.SampledSpectrum
	Wi                core.Vec3
	PDF               float64
	Flags             BxDFFlags
	Eta               float64 // Relative index of refraction of the sampled lobe
	PDFIsProportional bool
}

// IsSpecular reports whether the sampled lobe is a delta function
func (s BSDFSample) IsSpecular() bool { return s.Flags.IsSpecular() }

// IsTransmission reports whether the sample crossed the surface
func (s BSDFSample) IsTransmission() bool { return s.Flags.IsTransmissive() }

// Tags for the closed BxDF variant set.
const (
	tagDiffuse = iota + 1
	tagConductor
	tagDielectric
)

// BxDF is a handle over the closed set of scattering distributions.
// All directions are in the local reflection frame with the surface
// normal along +z.
type BxDF struct {
	w tagged.Word
}

// DiffuseBxDFFrom allocates a diffuse BxDF in a scratch buffer and
// wraps it. BxDF payloads are pointer-free, so block liveness in the
// buffer keeps them reachable.
func DiffuseBxDFFrom(b *scratch.Buffer, bx DiffuseBxDF) BxDF {
	return BxDF{w: tagged.Pack(unsafe.Pointer(scratch.New(b, bx)), tagDiffuse)}
}

// ConductorBxDFFrom allocates a conductor BxDF in a scratch buffer
func ConductorBxDFFrom(b *scratch.Buffer, bx ConductorBxDF) BxDF {
	return BxDF{w: tagged.Pack(unsafe.Pointer(scratch.New(b, bx)), tagConductor)}
}

// DielectricBxDFFrom allocates a dielectric BxDF in a scratch buffer
func DielectricBxDFFrom(b *scratch.Buffer, bx DielectricBxDF) BxDF {
	return BxDF{w: tagged.Pack(unsafe.Pointer(scratch.New(b, bx)), tagDielectric)}
}

// IsNil reports whether the handle is empty
func (b BxDF) IsNil() bool { return b.w.IsNil() }

// Flags returns the component classification of the held distribution
func (b BxDF) Flags() BxDFFlags {
	b.w.CheckDispatch("bxdf")
	switch b.w.Tag() {
	case tagDiffuse:
		return tagged.As[DiffuseBxDF](b.w).Flags()
	case tagConductor:
		return tagged.As[ConductorBxDF](b.w).Flags()
	default:
		return tagged.As[DielectricBxDF](b.w).Flags()
	}
}

// F evaluates the distribution for a direction pair. Zero for delta
// lobes.
func (b BxDF) F(wo, wi core.Vec3, mode TransportMode) spectrum.SampledSpectrum {
	b.w.CheckDispatch("bxdf")
	switch b.w.Tag() {
	case tagDiffuse:
		return tagged.As[DiffuseBxDF](b.w).F(wo, wi, mode)
	case tagConductor:
		return tagged.As[ConductorBxDF](b.w).F(wo, wi, mode)
	default:
		return tagged.As[DielectricBxDF](b.w).F(wo, wi, mode)
	}
}

// SampleF importance-samples an incident direction for wo. Returns
// false when no direction could be sampled.
func (b BxDF) SampleF(wo core.Vec3, uc float64, u core.Vec2, mode TransportMode, sampleFlags SampleFlags) (BSDFSample, bool) {
	b.w.CheckDispatch("bxdf")
	switch b.w.Tag() {
	case tagDiffuse:
		return tagged.As[DiffuseBxDF](b.w).SampleF(wo, uc, u, mode, sampleFlags)
	case tagConductor:
		return tagged.As[ConductorBxDF](b.w).SampleF(wo, uc, u, mode, sampleFlags)
	default:
		return tagged.As[DielectricBxDF](b.w).SampleF(wo, uc, u, mode, sampleFlags)
	}
}

// PDF returns the density SampleF uses for the direction pair. Zero
// for delta lobes.
func (b BxDF) PDF(wo, wi core.Vec3, mode TransportMode, sampleFlags SampleFlags) float64 {
	b.w.CheckDispatch("bxdf")
	switch b.w.Tag() {
	case tagDiffuse:
		return tagged.As[DiffuseBxDF](b.w).PDF(wo, wi, mode, sampleFlags)
	case tagConductor:
		return tagged.As[ConductorBxDF](b.w).PDF(wo, wi, mode, sampleFlags)
	default:
		return tagged.As[DielectricBxDF](b.w).PDF(wo, wi, mode, sampleFlags)
	}
}

// Regularize widens near-specular lobes to tame fireflies on paths
// that cannot otherwise be sampled.
func (b BxDF) Regularize() {
	b.w.CheckDispatch("bxdf")
	switch b.w.Tag() {
	case tagDiffuse:
	case tagConductor:
		tagged.As[ConductorBxDF](b.w).Regularize()
	default:
		tagged.As[DielectricBxDF](b.w).Regularize()
	}
}
