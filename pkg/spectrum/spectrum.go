// Package spectrum implements the hero-wavelength spectral
// representation carried along light transport paths: a small fixed
// number of radiance samples tied to a matching set of sampled
// wavelengths. Arithmetic is per-component; conversion back to RGB is
// an unbiased estimator that divides each sample by the density its
// wavelength was drawn with.
package spectrum

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
)

// NSamples is the number of spectral samples carried per path.
const NSamples = 4

// Visible wavelength range in nanometers.
const (
	LambdaMin = 360.0
	LambdaMax = 830.0
)

// SampledSpectrum holds one radiance value per sampled wavelength.
type SampledSpectrum [NSamples]float64

// Constant returns a spectrum with every sample set to v
func Constant(v float64) SampledSpectrum {
	var s SampledSpectrum
	for i := range s {
		s[i] = v
	}
	return s
}

// One is the unit spectrum, the starting throughput of a path
func One() SampledSpectrum { return Constant(1) }

// Add returns the per-component sum
func (s SampledSpectrum) Add(other SampledSpectrum) SampledSpectrum {
	for i := range s {
		s[i] += other[i]
	}
	return s
}

// Sub returns the per-component difference
func (s SampledSpectrum) Sub(other SampledSpectrum) SampledSpectrum {
	for i := range s {
		s[i] -= other[i]
	}
	return s
}

// Mul returns the per-component product
func (s SampledSpectrum) Mul(other SampledSpectrum) SampledSpectrum {
	for i := range s {
		s[i] *= other[i]
	}
	return s
}

// Scale returns the spectrum scaled by a scalar
func (s SampledSpectrum) Scale(v float64) SampledSpectrum {
	for i := range s {
		s[i] *= v
	}
	return s
}

// Div returns the per-component quotient
func (s SampledSpectrum) Div(other SampledSpectrum) SampledSpectrum {
	for i := range s {
		s[i] /= other[i]
	}
	return s
}

// SafeDiv returns the per-component quotient, mapping division by zero
// to zero instead of propagating non-finite values.
func (s SampledSpectrum) SafeDiv(other SampledSpectrum) SampledSpectrum {
	for i := range s {
		if other[i] != 0 {
			s[i] /= other[i]
		} else {
			s[i] = 0
		}
	}
	return s
}

// Exp returns the per-component exponential
func (s SampledSpectrum) Exp() SampledSpectrum {
	for i := range s {
		s[i] = math.Exp(s[i])
	}
	return s
}

// ClampZero replaces negative samples with zero
func (s SampledSpectrum) ClampZero() SampledSpectrum {
	for i := range s {
		if s[i] < 0 {
			s[i] = 0
		}
	}
	return s
}

// Average returns the mean of the samples
func (s SampledSpectrum) Average() float64 {
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / NSamples
}

// MaxComponent returns the largest sample value
func (s SampledSpectrum) MaxComponent() float64 {
	m := s[0]
	for _, v := range s[1:] {
		m = max(m, v)
	}
	return m
}

// IsZero reports whether every sample is exactly zero
func (s SampledSpectrum) IsZero() bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}

// HasNaN reports whether any sample is NaN
func (s SampledSpectrum) HasNaN() bool {
	for _, v := range s {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// ToRGB converts the sampled radiance into an RGB triple, dividing
// each sample by the density with which its wavelength was drawn and
// binning it into the band model of Bands. The estimate is unbiased
// for any wavelength-sampling density recorded in lambda.
func (s SampledSpectrum) ToRGB(lambda SampledWavelengths) core.Vec3 {
	var rgb core.Vec3
	// Terminated wavelengths carry pdf zero and contribute nothing
	w := s.SafeDiv(lambda.PDFSpectrum())
	for i := 0; i < NSamples; i++ {
		band := BandOf(lambda.Lambda[i])
		v := w[i] / (band.Width * NSamples)
		switch band.Channel {
		case 0:
			rgb.X += v
		case 1:
			rgb.Y += v
		default:
			rgb.Z += v
		}
	}
	return rgb
}

// Y returns the scalar luminance of the RGB conversion. The Metropolis
// integrator uses this as the scalar contribution function.
func (s SampledSpectrum) Y(lambda SampledWavelengths) float64 {
	return s.ToRGB(lambda).Luminance()
}
