package integrator

import (
	"image"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/calebh/go-spectral-pathtracer/pkg/camera"
	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/film"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
	"github.com/calebh/go-spectral-pathtracer/pkg/sampler"
	"github.com/calebh/go-spectral-pathtracer/pkg/scene"
	"github.com/calebh/go-spectral-pathtracer/pkg/scratch"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

const sppmShards = 64

// sppmPixel carries one pixel's photon statistics across iterations.
// The phi and m fields are written by photon workers under the shard
// lock covering the pixel; everything else is touched by at most one
// goroutine at a time.
type sppmPixel struct {
	radius float64
	ld     core.Vec3 // Direct lighting, accumulated in RGB
	tau    core.Vec3 // Scaled photon flux, accumulated in RGB
	n      float64   // Cumulative photon count after radius shrinking

	phi [4]float64 // Spectral photon contribution this iteration
	m   int

	vp struct {
		set  bool
		pi   core.Point3fi
		ng   core.Vec3
		wo   core.Vec3
		bsdf material.BSDF
		beta spectrum.SampledSpectrum
	}
}

// SPPMIntegrator runs stochastic progressive photon mapping: each
// iteration traces one camera path per pixel to place a visible point,
// then shoots photons from the lights and gathers the ones landing
// within each visible point's search radius. Radii shrink between
// iterations so the estimate converges.
type SPPMIntegrator struct {
	Integrator
	camera  camera.Camera
	film    film.Film
	sampler sampler.Sampler
	opts    Options

	maxDepth int
	pixels   []sppmPixel
	bounds   image.Rectangle
	shards   [sppmShards]sync.Mutex
}

// NewSPPM creates a progressive photon mapping integrator
func NewSPPM(s *scene.Scene, f film.Film, smp sampler.Sampler, opts Options) *SPPMIntegrator {
	si := &SPPMIntegrator{
		Integrator: newIntegrator(s),
		camera:     s.Camera,
		film:       f,
		sampler:    smp,
		opts:       opts,
		maxDepth:   opts.MaxDepth,
		bounds:     f.PixelBounds(),
	}
	si.pixels = make([]sppmPixel, si.bounds.Dx()*si.bounds.Dy())
	r0 := opts.InitialRadius
	if r0 <= 0 {
		r0 = 0.01 * si.sceneRadius
	}
	for i := range si.pixels {
		si.pixels[i].radius = r0
	}
	return si
}

func (si *SPPMIntegrator) pixelAt(p image.Point) *sppmPixel {
	i := (p.Y-si.bounds.Min.Y)*si.bounds.Dx() + (p.X - si.bounds.Min.X)
	return &si.pixels[i]
}

// Render runs the configured number of iterations and resolves the
// estimate into the film.
func (si *SPPMIntegrator) Render() RenderStats {
	start := time.Now()
	iterations := si.opts.Iterations
	if iterations < 1 {
		iterations = 1
	}
	numWorkers := si.opts.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}

	var photons int64
	for iter := 0; iter < iterations; iter++ {
		// One hero-wavelength set per iteration so photon and camera
		// contributions combine spectrally.
		lambda := si.film.SampleWavelengths((float64(iter) + 0.5) / float64(iterations))

		// The visible points hold BSDFs allocated in the camera-pass
		// scratch buffers; the packed words inside them are invisible
		// to the GC, so the buffers must stay reachable here until the
		// photon pass has gathered into every visible point.
		vpBufs := si.cameraPass(iter, lambda, numWorkers)
		grid, gridMin, cellSize := si.buildGrid()
		photons += si.photonPass(iter, lambda, grid, gridMin, cellSize, numWorkers)
		si.updatePixels(lambda)
		runtime.KeepAlive(vpBufs)
	}

	// Resolve: averaged direct lighting plus density-estimated flux
	np := float64(iterations) * float64(si.opts.PhotonsPerIteration)
	for y := si.bounds.Min.Y; y < si.bounds.Max.Y; y++ {
		for x := si.bounds.Min.X; x < si.bounds.Max.X; x++ {
			p := image.Pt(x, y)
			px := si.pixelAt(p)
			l := px.ld.Multiply(1 / float64(iterations))
			if np > 0 && px.radius > 0 {
				l = l.Add(px.tau.Multiply(1 / (np * math.Pi * px.radius * px.radius)))
			}
			si.film.AddRGB(p, l, 1)
		}
	}

	stats := RenderStats{
		TotalPixels:  si.bounds.Dx() * si.bounds.Dy(),
		TotalSamples: photons,
		Duration:     time.Since(start),
	}
	if si.opts.Logger != nil {
		si.opts.Logger.Printf("sppm: %d iterations, %d photons in %v",
			iterations, photons, stats.Duration.Round(time.Millisecond))
	}
	return stats
}

// cameraPass places one visible point per pixel and accumulates the
// direct lighting seen along the way. The returned buffers own the
// visible-point BSDF allocations; the caller must keep them reachable
// until the photon pass is done with them.
func (si *SPPMIntegrator) cameraPass(iter int, lambda spectrum.SampledWavelengths, numWorkers int) []*scratch.Buffer {
	work := tiles(si.bounds)
	taskCh := make(chan image.Rectangle, len(work))
	for _, t := range work {
		taskCh <- t
	}
	close(taskCh)

	bufs := make([]*scratch.Buffer, numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		bufs[w] = scratch.NewBuffer()
		wg.Add(1)
		go func(buf *scratch.Buffer) {
			defer wg.Done()
			smp := si.sampler.Clone()
			for tile := range taskCh {
				for y := tile.Min.Y; y < tile.Max.Y; y++ {
					for x := tile.Min.X; x < tile.Max.X; x++ {
						p := image.Pt(x, y)
						smp.StartPixelSample(p, iter, 0)
						si.traceVisiblePoint(p, lambda, smp, buf)
					}
				}
			}
		}(bufs[w])
	}
	wg.Wait()
	return bufs
}

// traceVisiblePoint follows one camera path until the first diffuse
// vertex and records it as the pixel's gather point.
func (si *SPPMIntegrator) traceVisiblePoint(p image.Point, lambda spectrum.SampledWavelengths, smp sampler.Sampler, buf *scratch.Buffer) {
	px := si.pixelAt(p)
	px.vp.set = false

	jitter := smp.GetPixel2D()
	cs := camera.Sample{
		PFilm:        core.NewVec2(float64(p.X)+jitter.X, float64(p.Y)+jitter.Y),
		PLens:        smp.Get2D(),
		Time:         smp.Get1D(),
		FilterWeight: 1,
	}
	pixelLambda := lambda
	rd, weight, ok := si.camera.GenerateRayDifferential(cs, &pixelLambda)
	if !ok || weight == 0 {
		return
	}
	r := rd.Ray
	r.Medium = si.scene.CameraMedium.Word()

	beta := spectrum.One().Scale(weight)
	ld := spectrum.SampledSpectrum{}
	specularBounce := true

	for depth := 0; depth <= si.maxDepth; depth++ {
		hitSI, _, hit := si.Intersect(r, r.TMax)
		if !hit {
			if specularBounce {
				ld = ld.Add(beta.Mul(si.escapedRadiance(r, lambda)))
			}
			break
		}

		wo := r.Direction.Negate().Normalize()
		if specularBounce {
			ld = ld.Add(beta.Mul(emittedAt(&hitSI, wo, lambda)))
		}

		bsdf, ok := si.bsdfAt(&hitSI, &lambda, buf)
		if !ok {
			r = hitSI.SpawnRay(r.Direction)
			depth--
			continue
		}

		// Direct lighting at every real vertex; photons carry only the
		// indirect component.
		ld = ld.Add(beta.Mul(si.directAt(&hitSI, &bsdf, lambda, smp)))

		flags := bsdf.Flags()
		if flags.IsDiffuse() || (flags.IsGlossy() && depth == si.maxDepth) {
			px.vp.set = true
			px.vp.pi = hitSI.Point
			px.vp.ng = hitSI.Normal
			px.vp.wo = wo
			px.vp.bsdf = bsdf
			px.vp.beta = beta
			break
		}

		bs, ok := bsdf.SampleF(wo, smp.Get1D(), smp.Get2D(), material.Radiance, material.SampleAll)
		if !ok {
			break
		}
		beta = beta.Mul(bs.F.Scale(bs.Wi.AbsDot(hitSI.Shading.Normal) / bs.PDF))
		specularBounce = bs.IsSpecular()
		if beta.IsZero() {
			break
		}
		r = hitSI.SpawnRay(bs.Wi)
	}

	px.ld = px.ld.Add(ld.ToRGB(lambda))
}

// directAt is uniform one-light next-event estimation without MIS;
// emission reaches the film only through specular chains, so there is
// no double counting.
func (si *SPPMIntegrator) directAt(hitSI *material.SurfaceInteraction, bsdf *material.BSDF, lambda spectrum.SampledWavelengths, smp sampler.Sampler) spectrum.SampledSpectrum {
	light, pmf, ok := si.sampleOneLight(smp.Get1D())
	if !ok {
		return spectrum.SampledSpectrum{}
	}
	ls, ok := light.SampleLi(lightContext(hitSI), smp.Get2D(), lambda)
	if !ok || ls.PDF == 0 || ls.L.IsZero() {
		return spectrum.SampledSpectrum{}
	}
	f := bsdf.F(hitSI.Wo, ls.Wi, material.Radiance).Scale(ls.Wi.AbsDot(hitSI.Shading.Normal))
	if f.IsZero() {
		return spectrum.SampledSpectrum{}
	}
	shadow := hitSI.SpawnRayTo(&material.Interaction{Point: ls.PLight})
	if !si.Unoccluded(shadow) {
		return spectrum.SampledSpectrum{}
	}
	return f.Mul(ls.L).Scale(1 / (pmf * ls.PDF))
}

// sppmGridKey hashes an integer grid cell
func sppmGridKey(x, y, z int) uint64 {
	h := uint64(x)*73856093 ^ uint64(y)*19349663 ^ uint64(z)*83492791
	return h
}

// buildGrid indexes visible points by the cells their gather discs
// overlap. Photons then only need to look up their own cell.
func (si *SPPMIntegrator) buildGrid() (map[uint64][]int32, core.Vec3, float64) {
	maxRadius := 0.0
	gridMin := core.NewVec3(math.Inf(1), math.Inf(1), math.Inf(1))
	any := false
	for i := range si.pixels {
		px := &si.pixels[i]
		if !px.vp.set {
			continue
		}
		any = true
		p := px.vp.pi.Value
		if px.radius > maxRadius {
			maxRadius = px.radius
		}
		gridMin = core.NewVec3(
			math.Min(gridMin.X, p.X-px.radius),
			math.Min(gridMin.Y, p.Y-px.radius),
			math.Min(gridMin.Z, p.Z-px.radius),
		)
	}
	if !any || maxRadius == 0 {
		return nil, core.Vec3{}, 1
	}

	cellSize := maxRadius
	grid := make(map[uint64][]int32)
	for i := range si.pixels {
		px := &si.pixels[i]
		if !px.vp.set {
			continue
		}
		p := px.vp.pi.Value
		x0 := int(math.Floor((p.X - px.radius - gridMin.X) / cellSize))
		x1 := int(math.Floor((p.X + px.radius - gridMin.X) / cellSize))
		y0 := int(math.Floor((p.Y - px.radius - gridMin.Y) / cellSize))
		y1 := int(math.Floor((p.Y + px.radius - gridMin.Y) / cellSize))
		z0 := int(math.Floor((p.Z - px.radius - gridMin.Z) / cellSize))
		z1 := int(math.Floor((p.Z + px.radius - gridMin.Z) / cellSize))
		for z := z0; z <= z1; z++ {
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					k := sppmGridKey(x, y, z)
					grid[k] = append(grid[k], int32(i))
				}
			}
		}
	}
	return grid, gridMin, cellSize
}

// photonPass shoots the iteration's photons and deposits them on
// nearby visible points.
func (si *SPPMIntegrator) photonPass(iter int, lambda spectrum.SampledWavelengths, grid map[uint64][]int32, gridMin core.Vec3, cellSize float64, numWorkers int) int64 {
	n := si.opts.PhotonsPerIteration
	if n <= 0 || len(si.lights) == 0 {
		return 0
	}

	var wg sync.WaitGroup
	chunk := (n + numWorkers - 1) / numWorkers
	for w := 0; w < numWorkers; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			buf := scratch.NewBuffer()
			for i := lo; i < hi; i++ {
				rng := rand.New(rand.NewPCG(uint64(iter)<<32|0x5bd1e995, uint64(i)))
				buf.Reset()
				si.tracePhoton(rng, lambda, grid, gridMin, cellSize, buf)
			}
		}(lo, hi)
	}
	wg.Wait()
	return int64(n)
}

// tracePhoton follows one light path, splatting flux onto visible
// points after the first bounce.
func (si *SPPMIntegrator) tracePhoton(rng *rand.Rand, lambda spectrum.SampledWavelengths, grid map[uint64][]int32, gridMin core.Vec3, cellSize float64, buf *scratch.Buffer) {
	light, pmf, ok := si.sampleOneLight(rng.Float64())
	if !ok {
		return
	}
	u1 := core.NewVec2(rng.Float64(), rng.Float64())
	u2 := core.NewVec2(rng.Float64(), rng.Float64())
	les, ok := light.SampleLe(u1, u2, lambda, 0)
	if !ok || les.PDFPos == 0 || les.PDFDir == 0 || les.L.IsZero() {
		return
	}

	cosStart := 1.0
	if !les.NLight.IsZero() {
		cosStart = les.Ray.Direction.AbsDot(les.NLight)
	}
	beta := les.L.Scale(cosStart / (pmf * les.PDFPos * les.PDFDir))
	r := les.Ray

	for depth := 0; depth < si.maxDepth; depth++ {
		hitSI, _, hit := si.Intersect(r, r.TMax)
		if !hit {
			return
		}

		wi := r.Direction.Negate().Normalize()
		if depth > 0 && grid != nil {
			si.depositPhoton(hitSI.P(), wi, beta, grid, gridMin, cellSize)
		}

		bsdf, ok := si.bsdfAt(&hitSI, &lambda, buf)
		if !ok {
			r = hitSI.SpawnRay(r.Direction)
			depth--
			continue
		}

		bs, ok := bsdf.SampleF(wi, rng.Float64(), core.NewVec2(rng.Float64(), rng.Float64()), material.Importance, material.SampleAll)
		if !ok {
			return
		}
		newBeta := beta.Mul(bs.F.Scale(bs.Wi.AbsDot(hitSI.Shading.Normal) / bs.PDF))
		newBeta = newBeta.Scale(shadingNormalCorrection(&hitSI, wi, bs.Wi))
		if newBeta.IsZero() {
			return
		}

		// Russian roulette on the throughput ratio
		q := math.Max(0, 1-newBeta.MaxComponent()/beta.MaxComponent())
		if rng.Float64() < q {
			return
		}
		beta = newBeta.Scale(1 / (1 - q))
		r = hitSI.SpawnRay(bs.Wi)
	}
}

// depositPhoton adds a photon's flux to every visible point whose
// gather disc contains it.
func (si *SPPMIntegrator) depositPhoton(p core.Vec3, wi core.Vec3, beta spectrum.SampledSpectrum, grid map[uint64][]int32, gridMin core.Vec3, cellSize float64) {
	x := int(math.Floor((p.X - gridMin.X) / cellSize))
	y := int(math.Floor((p.Y - gridMin.Y) / cellSize))
	z := int(math.Floor((p.Z - gridMin.Z) / cellSize))
	for _, idx := range grid[sppmGridKey(x, y, z)] {
		px := &si.pixels[idx]
		if !px.vp.set {
			continue
		}
		d := px.vp.pi.Value.Subtract(p)
		if d.LengthSquared() > px.radius*px.radius {
			continue
		}
		phi := beta.Mul(px.vp.bsdf.F(px.vp.wo, wi, material.Radiance))
		if phi.IsZero() {
			continue
		}

		shard := &si.shards[int(idx)%sppmShards]
		shard.Lock()
		for c := 0; c < 4; c++ {
			px.phi[c] += phi[c]
		}
		px.m++
		shard.Unlock()
	}
}

// updatePixels folds the iteration's photons into each pixel's flux
// estimate and shrinks its radius.
func (si *SPPMIntegrator) updatePixels(lambda spectrum.SampledWavelengths) {
	const gamma = 2.0 / 3.0
	for i := range si.pixels {
		px := &si.pixels[i]
		if px.m > 0 && px.vp.set {
			nNew := px.n + gamma*float64(px.m)
			rNew := px.radius * math.Sqrt(nNew/(px.n+float64(px.m)))

			phi := spectrum.SampledSpectrum{px.phi[0], px.phi[1], px.phi[2], px.phi[3]}
			tauContrib := px.vp.beta.Mul(phi).ToRGB(lambda)
			ratio := (rNew * rNew) / (px.radius * px.radius)
			px.tau = px.tau.Add(tauContrib).Multiply(ratio)

			px.n = nNew
			px.radius = rNew
		}
		px.phi = [4]float64{}
		px.m = 0
		px.vp.set = false
		px.vp.bsdf = material.BSDF{}
		px.vp.beta = spectrum.SampledSpectrum{}
	}
}
