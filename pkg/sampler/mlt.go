package sampler

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
)

// primarySample is one lazily mutated coordinate of the Metropolis
// sampler's primary sample space, with backup state for rejection.
type primarySample struct {
	value                     float64
	lastModificationIteration int64
	valueBackup               float64
	modifyBackup              int64
}

func (ps *primarySample) backup() {
	ps.valueBackup = ps.value
	ps.modifyBackup = ps.lastModificationIteration
}

func (ps *primarySample) restore() {
	ps.value = ps.valueBackup
	ps.lastModificationIteration = ps.modifyBackup
}

// MLTSampler treats a whole light path as a point in an
// infinite-dimensional unit hypercube and mutates that point between
// iterations: usually a small Gaussian perturbation of each
// coordinate, occasionally a full independent resample ("large step")
// that lets the chain escape local modes. Coordinates are mutated
// lazily the first time an iteration reads them. The sample space is
// split into interleaved streams so camera, light, and connection
// dimensions stay aligned across mutations.
type MLTSampler struct {
	mutationsPerPixel    int
	sigma                float64
	largeStepProbability float64
	streamCount          int
	rng                  *rand.Rand

	x                      []primarySample
	currentIteration       int64
	largeStep              bool
	lastLargeStepIteration int64
	streamIndex            int
	sampleIndex            int
}

// NewMLT creates a Metropolis sampler for one Markov chain.
// rngSequence decorrelates chains from each other.
func NewMLT(mutationsPerPixel int, sigma, largeStepProbability float64, streamCount int, rngSequence uint64) *MLTSampler {
	return &MLTSampler{
		mutationsPerPixel:    mutationsPerPixel,
		sigma:                sigma,
		largeStepProbability: largeStepProbability,
		streamCount:          streamCount,
		largeStep:            true,
		rng:                  rand.New(rand.NewPCG(mixBits(rngSequence), rngSequence)),
	}
}

// SamplesPerPixel returns the configured mutations per pixel
func (s *MLTSampler) SamplesPerPixel() int {
	return s.mutationsPerPixel
}

// StartPixelSample reseeds the chain's raw generator; the Metropolis
// integrator drives iterations itself, so this only decorrelates the
// bootstrap phase.
func (s *MLTSampler) StartPixelSample(p image.Point, sampleIndex, dimension int) {
	s.rng = rand.New(rand.NewPCG(
		hash(uint64(p.X), uint64(p.Y)),
		hash(uint64(sampleIndex), uint64(dimension)),
	))
}

// StartIteration begins a new proposal, choosing between a large step
// and a small perturbation
func (s *MLTSampler) StartIteration() {
	s.currentIteration++
	s.largeStep = s.rng.Float64() < s.largeStepProbability
}

// Accept commits the current proposal
func (s *MLTSampler) Accept() {
	if s.largeStep {
		s.lastLargeStepIteration = s.currentIteration
	}
}

// Reject rolls back every coordinate touched by the current proposal
func (s *MLTSampler) Reject() {
	for i := range s.x {
		if s.x[i].lastModificationIteration == s.currentIteration {
			s.x[i].restore()
		}
	}
	s.currentIteration--
}

// StartStream directs subsequent reads at one of the interleaved
// sample streams
func (s *MLTSampler) StartStream(index int) {
	if index >= s.streamCount {
		panic("sampler: stream index out of range")
	}
	s.streamIndex = index
	s.sampleIndex = 0
}

func (s *MLTSampler) nextIndex() int {
	idx := s.streamIndex + s.streamCount*s.sampleIndex
	s.sampleIndex++
	return idx
}

func (s *MLTSampler) ensureReady(index int) float64 {
	for index >= len(s.x) {
		s.x = append(s.x, primarySample{})
	}
	xi := &s.x[index]

	// A coordinate not touched since the last large step is stale;
	// resample it as of that iteration before mutating further.
	if xi.lastModificationIteration < s.lastLargeStepIteration {
		xi.value = s.rng.Float64()
		xi.lastModificationIteration = s.lastLargeStepIteration
	}

	xi.backup()
	if s.largeStep {
		xi.value = s.rng.Float64()
	} else {
		nSmall := s.currentIteration - xi.lastModificationIteration
		// Accumulate the skipped small steps into one wider Gaussian
		normalSample := math.Sqrt2 * math.Erfinv(2*s.rng.Float64()-1)
		effSigma := s.sigma * math.Sqrt(float64(nSmall))
		xi.value += normalSample * effSigma
		xi.value -= math.Floor(xi.value)
	}
	xi.lastModificationIteration = s.currentIteration
	return xi.value
}

// Get1D returns the next coordinate of the current stream
func (s *MLTSampler) Get1D() float64 {
	return s.ensureReady(s.nextIndex())
}

// Get2D returns the next two coordinates of the current stream
func (s *MLTSampler) Get2D() core.Vec2 {
	return core.NewVec2(s.Get1D(), s.Get1D())
}

// GetPixel2D returns the in-pixel positioning sample
func (s *MLTSampler) GetPixel2D() core.Vec2 {
	return s.Get2D()
}

// Clone returns a fresh chain with the same mutation parameters
func (s *MLTSampler) Clone() *MLTSampler {
	return NewMLT(s.mutationsPerPixel, s.sigma, s.largeStepProbability, s.streamCount, s.rng.Uint64())
}
