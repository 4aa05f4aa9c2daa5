package integrator

import (
	"image"
	"log"
	"math"
	"runtime"
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

const tileSize = 16

// Logger is the subset of the standard logger the integrators use
type Logger interface {
	Printf(format string, v ...any)
}

// Options configures the integrator family. Zero values get sensible
// defaults from NewOptions.
type Options struct {
	MaxDepth        int
	SamplesPerPixel int
	Regularize      bool
	NumWorkers      int
	Logger          Logger

	// SimplePath toggles
	SampleLights bool
	SampleBSDF   bool

	// Metropolis
	MutationsPerPixel   int
	BootstrapSamples    int
	Chains              int
	Sigma               float64
	LargeStepProbability float64

	// Photon mapping
	PhotonsPerIteration int
	Iterations          int
	InitialRadius       float64
}

// NewOptions returns the default configuration
func NewOptions() Options {
	return Options{
		MaxDepth:             5,
		SamplesPerPixel:      16,
		NumWorkers:           runtime.NumCPU(),
		Logger:               log.Default(),
		SampleLights:         true,
		SampleBSDF:           true,
		MutationsPerPixel:    100,
		BootstrapSamples:     4096,
		Chains:               32,
		Sigma:                0.01,
		LargeStepProbability: 0.3,
		PhotonsPerIteration:  1 << 14,
		Iterations:           8,
		InitialRadius:        0,
	}
}

// RenderStats reports what a render pass did
type RenderStats struct {
	TotalPixels  int
	TotalSamples int64
	Duration     time.Duration
}

// LiEvaluator computes the radiance arriving along one camera ray.
// Implementations are the per-algorithm integrators.
type LiEvaluator interface {
	Li(r core.RayDifferential, lambda spectrum.SampledWavelengths, smp sampler.Sampler, buf *scratch.Buffer) (spectrum.SampledSpectrum, *film.VisibleSurface)
}

// ImageTileIntegrator renders by splitting the film into tiles and
// farming them to a worker pool. Each worker owns a sampler clone and
// a scratch buffer reset per sample.
type ImageTileIntegrator struct {
	Integrator
	camera    camera.Camera
	film      film.Film
	sampler   sampler.Sampler
	evaluator LiEvaluator
	opts      Options
}

// newTileIntegrator wires the common tile machinery
func newTileIntegrator(s *scene.Scene, f film.Film, smp sampler.Sampler, ev LiEvaluator, opts Options) ImageTileIntegrator {
	return ImageTileIntegrator{
		Integrator: newIntegrator(s),
		camera:     s.Camera,
		film:       f,
		sampler:    smp,
		evaluator:  ev,
		opts:       opts,
	}
}

// Film returns the film samples are deposited on
func (ti *ImageTileIntegrator) Film() film.Film { return ti.film }

// effectiveSPP is the sample count Render actually uses: the options
// override when set, the sampler's count otherwise. Splat
// normalization must use the same value.
func (ti *ImageTileIntegrator) effectiveSPP() int {
	if ti.opts.SamplesPerPixel > 0 {
		return ti.opts.SamplesPerPixel
	}
	return ti.sampler.SamplesPerPixel()
}

// tiles splits a rectangle into tileSize blocks
func tiles(bounds image.Rectangle) []image.Rectangle {
	var out []image.Rectangle
	for y := bounds.Min.Y; y < bounds.Max.Y; y += tileSize {
		for x := bounds.Min.X; x < bounds.Max.X; x += tileSize {
			t := image.Rect(x, y, x+tileSize, y+tileSize).Intersect(bounds)
			out = append(out, t)
		}
	}
	return out
}

// Render runs the full pass and returns its statistics
func (ti *ImageTileIntegrator) Render() RenderStats {
	start := time.Now()
	bounds := ti.film.PixelBounds()
	work := tiles(bounds)
	spp := ti.effectiveSPP()

	numWorkers := ti.opts.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	taskCh := make(chan image.Rectangle, len(work))
	for _, t := range work {
		taskCh <- t
	}
	close(taskCh)

	var totalSamples int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			smp := ti.sampler.Clone()
			buf := scratch.NewBuffer()
			var local int64
			for tile := range taskCh {
				local += ti.renderTile(tile, spp, smp, buf)
			}
			mu.Lock()
			totalSamples += local
			mu.Unlock()
		}()
	}
	wg.Wait()

	stats := RenderStats{
		TotalPixels:  bounds.Dx() * bounds.Dy(),
		TotalSamples: totalSamples,
		Duration:     time.Since(start),
	}
	if ti.opts.Logger != nil {
		ti.opts.Logger.Printf("rendered %d pixels, %d samples in %v",
			stats.TotalPixels, stats.TotalSamples, stats.Duration.Round(time.Millisecond))
	}
	return stats
}

// renderTile renders every pixel sample inside one tile
func (ti *ImageTileIntegrator) renderTile(tile image.Rectangle, spp int, smp sampler.Sampler, buf *scratch.Buffer) int64 {
	var samples int64
	for y := tile.Min.Y; y < tile.Max.Y; y++ {
		for x := tile.Min.X; x < tile.Max.X; x++ {
			p := image.Pt(x, y)
			for s := 0; s < spp; s++ {
				smp.StartPixelSample(p, s, 0)
				buf.Reset()
				ti.renderPixelSample(p, smp, buf)
				samples++
			}
		}
	}
	return samples
}

// renderPixelSample traces one camera ray and deposits the estimate
func (ti *ImageTileIntegrator) renderPixelSample(p image.Point, smp sampler.Sampler, buf *scratch.Buffer) {
	lambda := ti.film.SampleWavelengths(smp.Get1D())

	jitter := smp.GetPixel2D()
	cs := camera.Sample{
		PFilm:        core.NewVec2(float64(p.X)+jitter.X, float64(p.Y)+jitter.Y),
		PLens:        smp.Get2D(),
		Time:         smp.Get1D(),
		FilterWeight: 1,
	}

	rd, weight, ok := ti.camera.GenerateRayDifferential(cs, &lambda)
	if !ok || weight == 0 {
		ti.film.AddSample(p, spectrum.SampledSpectrum{}, lambda, nil, 1)
		return
	}
	rd.Medium = ti.scene.CameraMedium.Word()
	rd.ScaleDifferentials(1 / math.Sqrt(float64(ti.sampler.SamplesPerPixel())))

	l, vs := ti.evaluator.Li(rd, lambda, smp, buf)
	l = l.Scale(weight).ClampZero()
	ti.film.AddSample(p, l, lambda, vs, cs.FilterWeight)
}
