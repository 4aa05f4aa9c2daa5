package sampler

import (
	"image"
	"math/rand/v2"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
)

// IndependentSampler produces uncorrelated uniform values. Every
// (pixel, sample index) pair gets its own deterministic stream, so
// results do not depend on tile scheduling order.
type IndependentSampler struct {
	samplesPerPixel int
	seed            uint64
	rng             *rand.Rand
}

// NewIndependent creates an independent sampler
func NewIndependent(samplesPerPixel int, seed uint64) *IndependentSampler {
	return &IndependentSampler{
		samplesPerPixel: samplesPerPixel,
		seed:            seed,
		rng:             rand.New(rand.NewPCG(seed, 0)),
	}
}

// SamplesPerPixel returns the configured per-pixel sample count
func (s *IndependentSampler) SamplesPerPixel() int {
	return s.samplesPerPixel
}

// StartPixelSample reseeds the stream for the given pixel and sample
func (s *IndependentSampler) StartPixelSample(p image.Point, sampleIndex, dimension int) {
	s.rng = rand.New(rand.NewPCG(
		hash(s.seed, uint64(p.X), uint64(p.Y)),
		hash(uint64(sampleIndex), uint64(dimension)),
	))
}

// Get1D returns the next uniform value in [0,1)
func (s *IndependentSampler) Get1D() float64 {
	return s.rng.Float64()
}

// Get2D returns the next two uniform values
func (s *IndependentSampler) Get2D() core.Vec2 {
	return core.NewVec2(s.rng.Float64(), s.rng.Float64())
}

// GetPixel2D returns the in-pixel positioning sample
func (s *IndependentSampler) GetPixel2D() core.Vec2 {
	return s.Get2D()
}

// Clone returns an independent copy safe for another worker
func (s *IndependentSampler) Clone() *IndependentSampler {
	return NewIndependent(s.samplesPerPixel, s.seed)
}
