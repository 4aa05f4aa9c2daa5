package core

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestSampleUniformSphereDistribution(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	const n = 20000

	var mean Vec3
	for i := 0; i < n; i++ {
		d := SampleUniformSphere(NewVec2(rng.Float64(), rng.Float64()))
		if math.Abs(d.Length()-1) > 1e-12 {
			t.Fatalf("direction not unit length: %v", d.Length())
		}
		mean = mean.Add(d)
	}
	mean = mean.Multiply(1.0 / n)

	// Mean direction of a uniform sphere distribution is zero
	if mean.Length() > 0.02 {
		t.Errorf("mean direction %v too far from zero", mean)
	}
}

func TestSampleCosineHemisphere(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))
	const n = 20000

	var sumCos float64
	for i := 0; i < n; i++ {
		d := SampleCosineHemisphere(NewVec2(rng.Float64(), rng.Float64()))
		if d.Z < 0 {
			t.Fatalf("cosine hemisphere sample below horizon: %v", d)
		}
		sumCos += d.Z
	}

	// E[cos θ] = 2/3 for the cosine-weighted hemisphere
	mean := sumCos / n
	if math.Abs(mean-2.0/3.0) > 0.01 {
		t.Errorf("E[cos θ] = %v, want 2/3", mean)
	}
}

func TestPowerHeuristicWeightsSumToOne(t *testing.T) {
	cases := []struct {
		fPdf, gPdf float64
	}{
		{0.5, 0.5},
		{1.0, 0.001},
		{0.001, 1.0},
		{3.7, 0.2},
	}
	for _, tc := range cases {
		wf := PowerHeuristic(1, tc.fPdf, 1, tc.gPdf)
		wg := PowerHeuristic(1, tc.gPdf, 1, tc.fPdf)
		if math.Abs(wf+wg-1) > 1e-12 {
			t.Errorf("weights for (%v, %v) sum to %v", tc.fPdf, tc.gPdf, wf+wg)
		}
	}

	// Degenerate zero pdfs contribute weight zero, not NaN
	if w := PowerHeuristic(1, 0, 1, 0); w != 0 {
		t.Errorf("zero pdfs: weight %v, want 0", w)
	}
}

func TestBalanceHeuristic(t *testing.T) {
	w := BalanceHeuristic(1, 0.25, 1, 0.75)
	if math.Abs(w-0.25) > 1e-12 {
		t.Errorf("balance weight = %v, want 0.25", w)
	}
}

func TestSampleDiscrete(t *testing.T) {
	weights := []float64{1, 3, 0, 4}

	idx, pmf, _ := SampleDiscrete(weights, 0.0)
	if idx != 0 || math.Abs(pmf-1.0/8.0) > 1e-12 {
		t.Errorf("u=0: got index %d pmf %v", idx, pmf)
	}

	idx, pmf, _ = SampleDiscrete(weights, 0.999)
	if idx != 3 || math.Abs(pmf-0.5) > 1e-12 {
		t.Errorf("u=0.999: got index %d pmf %v", idx, pmf)
	}

	// Zero weights select nothing
	idx, pmf, _ = SampleDiscrete([]float64{0, 0}, 0.5)
	if idx != -1 || pmf != 0 {
		t.Errorf("all-zero weights: got index %d pmf %v", idx, pmf)
	}

	// Frequencies track the weights
	rng := rand.New(rand.NewPCG(3, 0))
	counts := make([]int, len(weights))
	const n = 40000
	for i := 0; i < n; i++ {
		idx, _, _ := SampleDiscrete(weights, rng.Float64())
		counts[idx]++
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	for i, w := range weights {
		got := float64(counts[i]) / n
		want := w / total
		if math.Abs(got-want) > 0.01 {
			t.Errorf("weight %d: frequency %v, want %v", i, got, want)
		}
	}
}
