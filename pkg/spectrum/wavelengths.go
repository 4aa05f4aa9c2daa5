package spectrum

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
)

// SampledWavelengths records which wavelengths the paired spectrum was
// sampled at and the density each was drawn with.
type SampledWavelengths struct {
	Lambda [NSamples]float64
	PDF    [NSamples]float64
}

// SampleUniform draws NSamples wavelengths uniformly over the visible
// range, stratified by rotating a single uniform sample.
func SampleUniform(u float64) SampledWavelengths {
	var lw SampledWavelengths
	span := LambdaMax - LambdaMin
	delta := span / NSamples

	lw.Lambda[0] = core.Lerp(u, LambdaMin, LambdaMax)
	for i := 1; i < NSamples; i++ {
		lw.Lambda[i] = lw.Lambda[i-1] + delta
		if lw.Lambda[i] > LambdaMax {
			lw.Lambda[i] = LambdaMin + (lw.Lambda[i] - LambdaMax)
		}
	}
	for i := range lw.PDF {
		lw.PDF[i] = 1 / span
	}
	return lw
}

// SampleVisible draws wavelengths from a density that approximates the
// visual importance of the visible spectrum, concentrating samples
// where the eye is most sensitive.
func SampleVisible(u float64) SampledWavelengths {
	var lw SampledWavelengths
	for i := 0; i < NSamples; i++ {
		// Rotate the sample for each slot
		up := u + float64(i)/NSamples
		if up > 1 {
			up -= 1
		}
		lw.Lambda[i] = sampleVisibleWavelength(up)
		lw.PDF[i] = visibleWavelengthPDF(lw.Lambda[i])
	}
	return lw
}

// sampleVisibleWavelength inverts the CDF of the sech²-shaped visual
// importance density centered near 538nm.
func sampleVisibleWavelength(u float64) float64 {
	return 538 - 138.888889*math.Atanh(0.85691062-1.82750197*u)
}

// visibleWavelengthPDF is the density of sampleVisibleWavelength
func visibleWavelengthPDF(lambda float64) float64 {
	if lambda < LambdaMin || lambda > LambdaMax {
		return 0
	}
	x := math.Cosh(0.0072 * (lambda - 538))
	return 0.0039398042 / (x * x)
}

// TerminateSecondary collapses the path to its first (hero) wavelength
// after an event that makes the remaining wavelengths inconsistent,
// such as a wavelength-dependent free-flight decision. The hero pdf is
// rescaled so the estimator stays unbiased.
func (lw *SampledWavelengths) TerminateSecondary() {
	if lw.SecondaryTerminated() {
		return
	}
	for i := 1; i < NSamples; i++ {
		lw.PDF[i] = 0
	}
	lw.PDF[0] /= NSamples
}

// SecondaryTerminated reports whether only the hero wavelength remains
func (lw *SampledWavelengths) SecondaryTerminated() bool {
	for i := 1; i < NSamples; i++ {
		if lw.PDF[i] != 0 {
			return false
		}
	}
	return true
}

// PDFSpectrum returns the per-sample wavelength densities as a
// spectrum; ToRGB divides by it when resolving samples to channels.
func (lw SampledWavelengths) PDFSpectrum() SampledSpectrum {
	var s SampledSpectrum
	copy(s[:], lw.PDF[:])
	return s
}
