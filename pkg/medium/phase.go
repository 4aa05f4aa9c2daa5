// Package medium implements participating media: phase functions and
// the homogeneous medium with majorant-based free-flight sampling.
package medium

import (
	"math"
	"unsafe"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/tagged"
)

// Tags for the closed phase-function variant set.
const tagHG = 1

// PhaseFunction is a handle over the closed set of phase functions.
type PhaseFunction struct {
	w tagged.Word
}

// FromHG wraps a Henyey-Greenstein phase function in a handle
func FromHG(p *HGPhaseFunction) PhaseFunction {
	tagged.Keep(p)
	return PhaseFunction{w: tagged.Pack(unsafe.Pointer(p), tagHG)}
}

// PhaseFromWord rebuilds a handle from its packed word, as stored in
// a MediumInteraction.
func PhaseFromWord(w tagged.Word) PhaseFunction { return PhaseFunction{w: w} }

// Word returns the packed representation for storage in interactions
func (p PhaseFunction) Word() tagged.Word { return p.w }

// IsNil reports whether the handle is empty
func (p PhaseFunction) IsNil() bool { return p.w.IsNil() }

// P evaluates the phase function for a direction pair
func (p PhaseFunction) P(wo, wi core.Vec3) float64 {
	p.w.CheckDispatch("phase function")
	return tagged.As[HGPhaseFunction](p.w).P(wo, wi)
}

// PDF returns the sampling density, which for all current variants
// equals the phase function itself.
func (p PhaseFunction) PDF(wo, wi core.Vec3) float64 {
	p.w.CheckDispatch("phase function")
	return tagged.As[HGPhaseFunction](p.w).PDF(wo, wi)
}

// SampleP draws a scattered direction for wo
func (p PhaseFunction) SampleP(wo core.Vec3, u core.Vec2) (PhaseFunctionSample, bool) {
	p.w.CheckDispatch("phase function")
	return tagged.As[HGPhaseFunction](p.w).SampleP(wo, u)
}

// PhaseFunctionSample is the result of sampling a phase function.
// P equals PDF for perfectly importance-sampled variants.
type PhaseFunctionSample struct {
	P   float64
	Wi  core.Vec3
	PDF float64
}

// HGPhaseFunction is the Henyey-Greenstein phase function with
// asymmetry parameter g in (-1, 1); zero is isotropic.
type HGPhaseFunction struct {
	G float64
}

// hg evaluates the Henyey-Greenstein distribution for a cosine
func hg(cosTheta, g float64) float64 {
	denom := 1 + g*g + 2*g*cosTheta
	if denom < 1e-12 {
		denom = 1e-12
	}
	return (1 - g*g) / (4 * math.Pi * denom * math.Sqrt(denom))
}

// P evaluates the phase function. Both directions point away from the
// scattering point, hence the negated cosine.
func (h *HGPhaseFunction) P(wo, wi core.Vec3) float64 {
	return hg(wo.Negate().Dot(wi), h.G)
}

// PDF equals P since sampling is exact
func (h *HGPhaseFunction) PDF(wo, wi core.Vec3) float64 { return h.P(wo, wi) }

// SampleP draws a direction from the Henyey-Greenstein distribution
func (h *HGPhaseFunction) SampleP(wo core.Vec3, u core.Vec2) (PhaseFunctionSample, bool) {
	g := h.G
	var cosTheta float64
	if math.Abs(g) < 1e-3 {
		cosTheta = 1 - 2*u.X
	} else {
		s := (1 - g*g) / (1 + g - 2*g*u.X)
		cosTheta = -(1 + g*g - s*s) / (2 * g)
	}

	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * u.Y
	frame := core.FrameFromZ(wo.Negate())
	wi := frame.FromLocal(core.NewVec3(sinTheta*math.Cos(phi), sinTheta*math.Sin(phi), cosTheta))

	p := hg(cosTheta, g)
	return PhaseFunctionSample{P: p, Wi: wi, PDF: p}, true
}
