package integrator

import (
	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/film"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
	"github.com/calebh/go-spectral-pathtracer/pkg/sampler"
	"github.com/calebh/go-spectral-pathtracer/pkg/scene"
	"github.com/calebh/go-spectral-pathtracer/pkg/scratch"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// RandomWalkIntegrator is the simplest possible estimator: scatter
// uniformly over the sphere at every bounce and count only emission
// found by accident. Hopelessly noisy, useful as a correctness
// baseline for the smarter integrators.
type RandomWalkIntegrator struct {
	ImageTileIntegrator
	maxDepth int
}

// NewRandomWalk creates a random-walk integrator
func NewRandomWalk(s *scene.Scene, f film.Film, smp sampler.Sampler, opts Options) *RandomWalkIntegrator {
	ri := &RandomWalkIntegrator{maxDepth: opts.MaxDepth}
	ri.ImageTileIntegrator = newTileIntegrator(s, f, smp, ri, opts)
	return ri
}

// Li starts the walk at the camera ray
func (ri *RandomWalkIntegrator) Li(r core.RayDifferential, lambda spectrum.SampledWavelengths, smp sampler.Sampler, buf *scratch.Buffer) (spectrum.SampledSpectrum, *film.VisibleSurface) {
	return ri.walk(r.Ray, lambda, smp, buf, 0), nil
}

func (ri *RandomWalkIntegrator) walk(r core.Ray, lambda spectrum.SampledWavelengths, smp sampler.Sampler, buf *scratch.Buffer, depth int) spectrum.SampledSpectrum {
	si, _, hit := ri.Intersect(r, r.TMax)
	if !hit {
		return ri.escapedRadiance(r, lambda)
	}

	wo := r.Direction.Negate().Normalize()
	l := emittedAt(&si, wo, lambda)
	if depth == ri.maxDepth {
		return l
	}

	bsdf, ok := ri.bsdfAt(&si, &lambda, buf)
	if !ok {
		// Boundary with no material: continue through
		next := si.SpawnRay(r.Direction)
		return l.Add(ri.walk(next, lambda, smp, buf, depth))
	}

	// Uniform sphere direction, estimator f * |cos| / pdf
	wi := core.SampleUniformSphere(smp.Get2D())
	f := bsdf.F(wo, wi, material.Radiance)
	if f.IsZero() {
		return l
	}
	cosTheta := wi.AbsDot(si.Shading.Normal)
	beta := f.Scale(cosTheta / core.UniformSpherePDF())

	next := si.SpawnRay(wi)
	return l.Add(beta.Mul(ri.walk(next, lambda, smp, buf, depth+1)))
}
