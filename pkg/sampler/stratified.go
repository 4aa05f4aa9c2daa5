package sampler

import (
	"image"
	"math/rand/v2"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
)

// StratifiedSampler subdivides each dimension pair into an x by y grid
// of strata and visits one stratum per pixel sample, jittering within
// it. Stratum visit order is decorrelated across dimensions with a
// seeded permutation so strata in different dimensions do not line up.
type StratifiedSampler struct {
	xSamples, ySamples int
	jitter             bool
	seed               uint64

	pixel       image.Point
	sampleIndex int
	dimension   int
	rng         *rand.Rand
}

// NewStratified creates a stratified sampler taking
// xSamples*ySamples samples per pixel
func NewStratified(xSamples, ySamples int, jitter bool, seed uint64) *StratifiedSampler {
	return &StratifiedSampler{
		xSamples: xSamples,
		ySamples: ySamples,
		jitter:   jitter,
		seed:     seed,
		rng:      rand.New(rand.NewPCG(seed, 0)),
	}
}

// SamplesPerPixel returns xSamples * ySamples
func (s *StratifiedSampler) SamplesPerPixel() int {
	return s.xSamples * s.ySamples
}

// StartPixelSample positions the stream at the given pixel and sample
func (s *StratifiedSampler) StartPixelSample(p image.Point, sampleIndex, dimension int) {
	s.pixel = p
	s.sampleIndex = sampleIndex
	s.dimension = dimension
	s.rng = rand.New(rand.NewPCG(
		hash(s.seed, uint64(p.X), uint64(p.Y)),
		hash(uint64(sampleIndex), uint64(dimension)),
	))
}

func (s *StratifiedSampler) jitterValue() float64 {
	if s.jitter {
		return s.rng.Float64()
	}
	return 0.5
}

// Get1D returns a jittered sample from this sample's stratum in the
// next dimension
func (s *StratifiedSampler) Get1D() float64 {
	n := uint32(s.SamplesPerPixel())
	perm := hash(s.seed, uint64(s.pixel.X)<<32|uint64(s.pixel.Y), uint64(s.dimension))
	stratum := permutationElement(uint32(s.sampleIndex), n, perm)
	s.dimension++
	return (float64(stratum) + s.jitterValue()) / float64(n)
}

// Get2D returns a jittered sample from this sample's 2D stratum
func (s *StratifiedSampler) Get2D() core.Vec2 {
	n := uint32(s.SamplesPerPixel())
	perm := hash(s.seed, uint64(s.pixel.X)<<32|uint64(s.pixel.Y), uint64(s.dimension))
	stratum := permutationElement(uint32(s.sampleIndex), n, perm)
	s.dimension += 2
	x := stratum % uint32(s.xSamples)
	y := stratum / uint32(s.xSamples)
	return core.NewVec2(
		(float64(x)+s.jitterValue())/float64(s.xSamples),
		(float64(y)+s.jitterValue())/float64(s.ySamples),
	)
}

// GetPixel2D returns the in-pixel positioning sample
func (s *StratifiedSampler) GetPixel2D() core.Vec2 {
	return s.Get2D()
}

// Clone returns an independent copy safe for another worker
func (s *StratifiedSampler) Clone() *StratifiedSampler {
	return NewStratified(s.xSamples, s.ySamples, s.jitter, s.seed)
}
