package spectrum

import "github.com/calebh/go-spectral-pathtracer/pkg/core"

// The renderer's color pipeline is intentionally minimal: reflectances
// and emissions supplied as RGB triples are promoted to spectra with a
// three-band box model, and sampled spectra are binned back into the
// same bands on the way to the film. The band edges split the visible
// range at the conventional blue/green and green/red boundaries. A
// colorimetric pipeline (CIE matching curves, chromatic adaptation)
// would slot in behind the same Spectrum interface.

// Band describes one box of the band model
type Band struct {
	Lo, Hi  float64
	Width   float64
	Channel int // 0=R, 1=G, 2=B
}

var bands = [3]Band{
	{Lo: LambdaMin, Hi: 490, Width: 490 - LambdaMin, Channel: 2},
	{Lo: 490, Hi: 580, Width: 580 - 490, Channel: 1},
	{Lo: 580, Hi: LambdaMax, Width: LambdaMax - 580, Channel: 0},
}

// BandOf returns the band containing the given wavelength
func BandOf(lambda float64) Band {
	switch {
	case lambda < bands[0].Hi:
		return bands[0]
	case lambda < bands[1].Hi:
		return bands[1]
	default:
		return bands[2]
	}
}

// Spectrum is a full spectral distribution that can be evaluated at
// any visible wavelength. Concrete scene data (albedos, emission)
// implements this; integrators only ever see SampledSpectrum values
// produced by Sample.
type Spectrum interface {
	At(lambda float64) float64
	MaxValue() float64
}

// Sample evaluates a spectral distribution at each sampled wavelength
func Sample(s Spectrum, lambda SampledWavelengths) SampledSpectrum {
	var out SampledSpectrum
	for i := 0; i < NSamples; i++ {
		out[i] = s.At(lambda.Lambda[i])
	}
	return out
}

// RGBSpectrum promotes an RGB triple to a spectral distribution with
// the band model.
type RGBSpectrum struct {
	RGB core.Vec3
}

// NewRGBSpectrum creates a band-model spectrum from an RGB triple
func NewRGBSpectrum(rgb core.Vec3) RGBSpectrum {
	return RGBSpectrum{RGB: rgb}
}

// At returns the channel value of the band containing lambda
func (s RGBSpectrum) At(lambda float64) float64 {
	switch BandOf(lambda).Channel {
	case 0:
		return s.RGB.X
	case 1:
		return s.RGB.Y
	default:
		return s.RGB.Z
	}
}

// MaxValue returns the largest channel value
func (s RGBSpectrum) MaxValue() float64 {
	return s.RGB.MaxComponent()
}

// ConstantSpectrum is a wavelength-independent distribution
type ConstantSpectrum struct {
	C float64
}

// At returns the constant value
func (s ConstantSpectrum) At(lambda float64) float64 { return s.C }

// MaxValue returns the constant value
func (s ConstantSpectrum) MaxValue() float64 { return s.C }
