package medium

import (
	"unsafe"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
	"github.com/calebh/go-spectral-pathtracer/pkg/tagged"
)

// Tags for the closed medium variant set.
const tagHomogeneous = 1

// Medium is a handle over the closed set of participating media. Rays
// carry the packed word so the core package need not import this one.
type Medium struct {
	w tagged.Word
}

// FromHomogeneous wraps a homogeneous medium in a handle
func FromHomogeneous(m *HomogeneousMedium) Medium {
	tagged.Keep(m)
	return Medium{w: tagged.Pack(unsafe.Pointer(m), tagHomogeneous)}
}

// FromWord rebuilds a handle from a ray's packed medium word
func FromWord(w tagged.Word) Medium { return Medium{w: w} }

// Word returns the packed representation for storage on rays
func (m Medium) Word() tagged.Word { return m.w }

// IsNil reports whether the handle is empty, meaning vacuum
func (m Medium) IsNil() bool { return m.w.IsNil() }

// IsEmissive reports whether any point of the medium emits
func (m Medium) IsEmissive() bool {
	m.w.CheckDispatch("medium")
	return tagged.As[HomogeneousMedium](m.w).IsEmissive()
}

// SamplePoint returns the scattering coefficients at a point
func (m Medium) SamplePoint(p core.Vec3, lambda spectrum.SampledWavelengths) MediumProperties {
	m.w.CheckDispatch("medium")
	return tagged.As[HomogeneousMedium](m.w).SamplePoint(p, lambda)
}

// SampleTmaj iterates majorant free-flight sampling along the ray up
// to tMax. See HomogeneousMedium.SampleTmaj.
func (m Medium) SampleTmaj(r core.Ray, tMax, u float64, rng func() float64, lambda spectrum.SampledWavelengths, callback func(p core.Vec3, mp MediumProperties, sigmaMaj spectrum.SampledSpectrum, tMaj spectrum.SampledSpectrum) bool) spectrum.SampledSpectrum {
	m.w.CheckDispatch("medium")
	return tagged.As[HomogeneousMedium](m.w).SampleTmaj(r, tMax, u, rng, lambda, callback)
}

// MediumProperties bundles the local scattering coefficients, the
// phase function, and any volumetric emission.
type MediumProperties struct {
	SigmaA spectrum.SampledSpectrum
	SigmaS spectrum.SampledSpectrum
	Phase  tagged.Word // Packed phase-function handle
	Le     spectrum.SampledSpectrum
}

// HomogeneousMedium has constant scattering coefficients everywhere.
// The majorant equals sigma_a + sigma_s, so delta tracking never
// produces null collisions.
type HomogeneousMedium struct {
	sigmaA spectrum.Spectrum
	sigmaS spectrum.Spectrum
	le     spectrum.Spectrum
	leScale float64
	phase  *HGPhaseFunction
	phaseW tagged.Word
}

// NewHomogeneous creates a homogeneous medium. le may be nil for a
// non-emissive medium.
func NewHomogeneous(sigmaA, sigmaS spectrum.Spectrum, g float64, le spectrum.Spectrum, leScale float64) *HomogeneousMedium {
	phase := &HGPhaseFunction{G: g}
	m := &HomogeneousMedium{
		sigmaA:  sigmaA,
		sigmaS:  sigmaS,
		le:      le,
		leScale: leScale,
		phase:   phase,
		phaseW:  FromHG(phase).Word(),
	}
	return m
}

// IsEmissive reports whether the medium carries an emission spectrum
func (m *HomogeneousMedium) IsEmissive() bool {
	return m.le != nil && m.leScale > 0
}

// SamplePoint returns the coefficients, which are position independent
func (m *HomogeneousMedium) SamplePoint(_ core.Vec3, lambda spectrum.SampledWavelengths) MediumProperties {
	mp := MediumProperties{
		SigmaA: spectrum.Sample(m.sigmaA, lambda),
		SigmaS: spectrum.Sample(m.sigmaS, lambda),
		Phase:  m.phaseW,
	}
	if m.IsEmissive() {
		mp.Le = spectrum.Sample(m.le, lambda).Scale(m.leScale)
	}
	return mp
}

// SampleTmaj samples free-flight distances against the majorant along
// the ray, invoking the callback at each sampled point with the
// transmittance since the previous event. Iteration stops when the
// callback returns false or the ray leaves the medium; the returned
// spectrum is the majorant transmittance remaining past the last
// event. The ray direction need not be normalized; distances are
// scaled accordingly.
func (m *HomogeneousMedium) SampleTmaj(r core.Ray, tMax, u float64, rng func() float64, lambda spectrum.SampledWavelengths, callback func(p core.Vec3, mp MediumProperties, sigmaMaj spectrum.SampledSpectrum, tMaj spectrum.SampledSpectrum) bool) spectrum.SampledSpectrum {
	// Work with a unit-length direction
	length := r.Direction.Length()
	if length == 0 {
		return spectrum.One()
	}
	tMax *= length
	dir := r.Direction.Multiply(1 / length)
	ray := core.NewRay(r.Origin, dir)
	ray.Time = r.Time

	mp := m.SamplePoint(ray.Origin, lambda)
	sigmaMaj := mp.SigmaA.Add(mp.SigmaS)
	if sigmaMaj[0] == 0 {
		return spectrum.One() // Vacuum in the hero wavelength
	}

	tMin := 0.0
	for {
		t := tMin + core.SampleExponential(u, sigmaMaj[0])
		u = rng()

		if t >= tMax {
			// Left the segment; return transmittance of the remainder
			return sigmaMaj.Scale(-(tMax - tMin)).Exp().ClampZero()
		}

		tMaj := sigmaMaj.Scale(-(t - tMin)).Exp().ClampZero()
		if !callback(ray.At(t), mp, sigmaMaj, tMaj) {
			return spectrum.One()
		}
		tMin = t
	}
}
