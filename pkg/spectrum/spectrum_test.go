package spectrum

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
)

func TestArithmetic(t *testing.T) {
	a := Constant(2)
	b := Constant(3)

	if got := a.Add(b); got != Constant(5) {
		t.Errorf("Add: got %v", got)
	}
	if got := a.Mul(b); got != Constant(6) {
		t.Errorf("Mul: got %v", got)
	}
	if got := b.Scale(2); got != Constant(6) {
		t.Errorf("Scale: got %v", got)
	}
	if got := a.SafeDiv(Constant(0)); got != Constant(0) {
		t.Errorf("SafeDiv by zero: got %v, want zero", got)
	}
	if One().IsZero() || !Constant(0).IsZero() {
		t.Error("IsZero misclassifies")
	}
}

func TestSampleUniformCoversRange(t *testing.T) {
	lw := SampleUniform(0.5)
	for i, l := range lw.Lambda {
		if l < LambdaMin || l > LambdaMax {
			t.Errorf("lambda[%d] = %v outside visible range", i, l)
		}
		if lw.PDF[i] <= 0 {
			t.Errorf("pdf[%d] = %v, want positive", i, lw.PDF[i])
		}
	}
}

func TestSampleVisiblePDFMatchesSample(t *testing.T) {
	// The recorded pdf must be the density of the inverse-CDF draw;
	// check by numerically integrating the pdf over the range.
	const n = 10000
	var integral float64
	for i := 0; i < n; i++ {
		l := LambdaMin + (LambdaMax-LambdaMin)*(float64(i)+0.5)/n
		integral += visibleWavelengthPDF(l) * (LambdaMax - LambdaMin) / n
	}
	if math.Abs(integral-1) > 0.01 {
		t.Errorf("visible pdf integrates to %v, want 1", integral)
	}
}

func TestTerminateSecondary(t *testing.T) {
	lw := SampleUniform(0.3)
	heroPDF := lw.PDF[0]

	lw.TerminateSecondary()
	if !lw.SecondaryTerminated() {
		t.Fatal("secondary wavelengths should be terminated")
	}
	if math.Abs(lw.PDF[0]-heroPDF/NSamples) > 1e-15 {
		t.Errorf("hero pdf = %v, want %v", lw.PDF[0], heroPDF/NSamples)
	}

	// Idempotent
	before := lw
	lw.TerminateSecondary()
	if lw != before {
		t.Error("second TerminateSecondary changed state")
	}
}

// After TerminateSecondary, ToRGB must take only the hero wavelength,
// divided by its rescaled pdf; the zero-pdf secondaries contribute
// nothing even when the sampled values are nonzero.
func TestToRGBHonorsTerminatedSecondary(t *testing.T) {
	lw := SampleUniform(0.3)
	lw.TerminateSecondary()
	s := Constant(2)

	want := core.Vec3{}
	v := 2 / (lw.PDF[0] * BandOf(lw.Lambda[0]).Width * NSamples)
	switch BandOf(lw.Lambda[0]).Channel {
	case 0:
		want.X = v
	case 1:
		want.Y = v
	default:
		want.Z = v
	}

	got := s.ToRGB(lw)
	if got.Subtract(want).Length() > 1e-12 {
		t.Errorf("ToRGB = %v, want %v", got, want)
	}
}

// A gray distribution converted back to RGB must recover its value in
// expectation: this is the calibration contract between the band model
// and ToRGB.
func TestGrayRoundTripUnbiased(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 0))
	gray := NewRGBSpectrum(core.NewVec3(0.5, 0.5, 0.5))

	const n = 50000
	var mean core.Vec3
	for i := 0; i < n; i++ {
		lw := SampleUniform(rng.Float64())
		s := Sample(gray, lw)
		mean = mean.Add(s.ToRGB(lw))
	}
	mean = mean.Multiply(1.0 / n)

	for _, c := range []float64{mean.X, mean.Y, mean.Z} {
		if math.Abs(c-0.5) > 0.02 {
			t.Errorf("round-trip mean %v, want 0.5 per channel", mean)
		}
	}
}

// The same contract must hold under the non-uniform visible-importance
// density: ToRGB divides by the recorded pdf, so the estimator stays
// unbiased for any sampling strategy.
func TestRoundTripUnbiasedUnderVisibleSampling(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 0))
	tint := NewRGBSpectrum(core.NewVec3(0.8, 0.4, 0.2))

	const n = 200000
	var mean core.Vec3
	for i := 0; i < n; i++ {
		lw := SampleVisible(rng.Float64())
		s := Sample(tint, lw)
		mean = mean.Add(s.ToRGB(lw))
	}
	mean = mean.Multiply(1.0 / n)

	want := core.NewVec3(0.8, 0.4, 0.2)
	if mean.Subtract(want).Length() > 0.03 {
		t.Errorf("round-trip mean %v, want %v", mean, want)
	}
}
