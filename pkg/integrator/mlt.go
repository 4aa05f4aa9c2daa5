package integrator

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/calebh/go-spectral-pathtracer/pkg/camera"
	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/film"
	"github.com/calebh/go-spectral-pathtracer/pkg/sampler"
	"github.com/calebh/go-spectral-pathtracer/pkg/scene"
	"github.com/calebh/go-spectral-pathtracer/pkg/scratch"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// Metropolis sample-space streams: raster and lens dimensions, the
// wavelength dimension, and everything the path walk consumes.
const (
	streamCamera = iota
	streamWavelength
	streamPath
	mltStreamCount
)

// MLTIntegrator runs primary-sample-space Metropolis light transport:
// Markov chains mutate a point in the unit hypercube whose coordinates
// drive an ordinary path trace, so the chains spend their time where
// the image is bright. Everything is deposited through splats; the
// bootstrap phase estimates the normalization b that converts chain
// visit frequency back to radiance.
type MLTIntegrator struct {
	Integrator
	camera camera.Camera
	film   film.Film
	path   *PathIntegrator
	opts   Options
	b      float64
}

// NewMLT creates a Metropolis integrator over the path tracer's
// contribution function
func NewMLT(s *scene.Scene, f film.Film, opts Options) *MLTIntegrator {
	probe := sampler.FromMLT(sampler.NewMLT(opts.MutationsPerPixel, opts.Sigma, opts.LargeStepProbability, mltStreamCount, 0))
	return &MLTIntegrator{
		Integrator: newIntegrator(s),
		camera:     s.Camera,
		film:       f,
		path:       NewPath(s, f, probe, opts),
		opts:       opts,
	}
}

// SplatScale converts accumulated splats to radiance when the film is
// resolved. Valid after Render.
func (m *MLTIntegrator) SplatScale() float64 {
	return m.b / float64(m.opts.MutationsPerPixel)
}

// chainSampler pairs an MLTSampler with the handle wrapping it. The s
// field is the strong reference that keeps the sampler alive for the
// unpinned handle; the pair is built once per chain, never per
// mutation.
type chainSampler struct {
	s      *sampler.MLTSampler
	handle sampler.Sampler
}

// sampleState evaluates the contribution function at the sampler's
// current primary-space point.
func (m *MLTIntegrator) sampleState(ms *chainSampler, buf *scratch.Buffer) (spectrum.SampledSpectrum, spectrum.SampledWavelengths, core.Vec2) {
	s := ms.s
	buf.Reset()
	s.StartStream(streamCamera)
	w, h := m.camera.Resolution()
	u := s.Get2D()
	pRaster := core.NewVec2(u.X*float64(w), u.Y*float64(h))
	cs := camera.Sample{
		PFilm:        pRaster,
		PLens:        s.Get2D(),
		Time:         s.Get1D(),
		FilterWeight: 1,
	}

	s.StartStream(streamWavelength)
	lambda := m.film.SampleWavelengths(s.Get1D())

	rd, weight, ok := m.camera.GenerateRayDifferential(cs, &lambda)
	if !ok || weight == 0 {
		return spectrum.SampledSpectrum{}, lambda, pRaster
	}
	rd.Medium = m.scene.CameraMedium.Word()

	s.StartStream(streamPath)
	l, _ := m.path.Li(rd, lambda, ms.handle, buf)
	return l.Scale(weight).ClampZero(), lambda, pRaster
}

func (m *MLTIntegrator) newChainSampler(seq uint64) *chainSampler {
	s := sampler.NewMLT(m.opts.MutationsPerPixel, m.opts.Sigma, m.opts.LargeStepProbability, mltStreamCount, seq)
	return &chainSampler{s: s, handle: sampler.FromOwnedMLT(s)}
}

// Render runs the bootstrap phase and then the Markov chains
func (m *MLTIntegrator) Render() RenderStats {
	start := time.Now()
	numWorkers := m.opts.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}

	// Bootstrap: score independent starting states so chains can be
	// seeded proportionally to their contribution.
	nBootstrap := m.opts.BootstrapSamples
	weights := make([]float64, nBootstrap)
	var wg sync.WaitGroup
	chunk := (nBootstrap + numWorkers - 1) / numWorkers
	for w := 0; w < numWorkers; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if hi > nBootstrap {
			hi = nBootstrap
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			buf := scratch.NewBuffer()
			for i := lo; i < hi; i++ {
				smp := m.newChainSampler(uint64(i))
				smp.s.StartIteration()
				l, lambda, _ := m.sampleState(smp, buf)
				weights[i] = l.Y(lambda)
			}
		}(lo, hi)
	}
	wg.Wait()

	sum := 0.0
	cdf := make([]float64, nBootstrap+1)
	for i, w := range weights {
		sum += w
		cdf[i+1] = sum
	}
	m.b = sum / float64(nBootstrap)
	if m.b == 0 {
		// Nothing emits; the film stays black
		if m.opts.Logger != nil {
			m.opts.Logger.Printf("metropolis bootstrap found no contribution")
		}
		return RenderStats{Duration: time.Since(start)}
	}

	w, h := m.camera.Resolution()
	totalMutations := int64(m.opts.MutationsPerPixel) * int64(w) * int64(h)
	nChains := m.opts.Chains
	if nChains < 1 {
		nChains = 1
	}

	var mutations int64
	var mu sync.Mutex
	chainCh := make(chan int, nChains)
	for i := 0; i < nChains; i++ {
		chainCh <- i
	}
	close(chainCh)

	for wk := 0; wk < numWorkers; wk++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := scratch.NewBuffer()
			var local int64
			for chain := range chainCh {
				local += m.runChain(chain, nChains, totalMutations, cdf, sum, buf)
			}
			mu.Lock()
			mutations += local
			mu.Unlock()
		}()
	}
	wg.Wait()

	stats := RenderStats{
		TotalPixels:  w * h,
		TotalSamples: mutations,
		Duration:     time.Since(start),
	}
	if m.opts.Logger != nil {
		m.opts.Logger.Printf("metropolis b=%.4g, %d chains, %d mutations in %v",
			m.b, nChains, stats.TotalSamples, stats.Duration.Round(time.Millisecond))
	}
	return stats
}

// runChain replays one bootstrap state and mutates it for its share of
// the mutation budget.
func (m *MLTIntegrator) runChain(chain, nChains int, totalMutations int64, cdf []float64, cdfSum float64, buf *scratch.Buffer) int64 {
	perChain := totalMutations / int64(nChains)
	if int64(chain) < totalMutations%int64(nChains) {
		perChain++
	}
	if perChain == 0 {
		return 0
	}

	rng := rand.New(rand.NewPCG(0x9e3779b97f4a7c15, uint64(chain)))

	// Invert the bootstrap CDF to pick a seed proportional to its score
	target := rng.Float64() * cdfSum
	seed := 0
	for seed < len(cdf)-2 && cdf[seed+1] < target {
		seed++
	}

	// Rebuilding the sampler with the seed's rng sequence replays the
	// bootstrap path exactly.
	smp := m.newChainSampler(uint64(seed))
	smp.s.StartIteration()
	lCur, lambdaCur, pCur := m.sampleState(smp, buf)
	yCur := lCur.Y(lambdaCur)
	smp.s.Accept()

	for i := int64(0); i < perChain; i++ {
		smp.s.StartIteration()
		lProp, lambdaProp, pProp := m.sampleState(smp, buf)
		yProp := lProp.Y(lambdaProp)

		accept := 1.0
		if yCur > 0 {
			accept = math.Min(1, yProp/yCur)
		}

		// Both states deposit, weighted by their time share
		if yProp > 0 {
			m.film.AddSplat(pProp, lProp.Scale(accept/yProp), lambdaProp)
		}
		if yCur > 0 && accept < 1 {
			m.film.AddSplat(pCur, lCur.Scale((1-accept)/yCur), lambdaCur)
		}

		if rng.Float64() < accept {
			lCur, lambdaCur, pCur, yCur = lProp, lambdaProp, pProp, yProp
			smp.s.Accept()
		} else {
			smp.s.Reject()
		}
	}
	return perChain
}
