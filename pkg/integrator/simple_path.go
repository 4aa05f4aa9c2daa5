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

// SimplePathIntegrator is the pedagogical path tracer: next-event
// estimation and BSDF importance sampling can each be toggled off,
// but there is no MIS, no Russian roulette, and no media. With both
// toggles off it degenerates toward the random walk.
type SimplePathIntegrator struct {
	ImageTileIntegrator
	maxDepth     int
	sampleLights bool
	sampleBSDF   bool
}

// NewSimplePath creates a simple path integrator
func NewSimplePath(s *scene.Scene, f film.Film, smp sampler.Sampler, opts Options) *SimplePathIntegrator {
	si := &SimplePathIntegrator{
		maxDepth:     opts.MaxDepth,
		sampleLights: opts.SampleLights,
		sampleBSDF:   opts.SampleBSDF,
	}
	si.ImageTileIntegrator = newTileIntegrator(s, f, smp, si, opts)
	return si
}

// Li traces one path iteratively
func (sp *SimplePathIntegrator) Li(rd core.RayDifferential, lambda spectrum.SampledWavelengths, smp sampler.Sampler, buf *scratch.Buffer) (spectrum.SampledSpectrum, *film.VisibleSurface) {
	l := spectrum.SampledSpectrum{}
	beta := spectrum.One()
	r := rd.Ray
	// Emission is counted at hits only when light sampling could not
	// have found it: the first hit, or after a specular bounce.
	specularBounce := true
	depth := 0

	for !beta.IsZero() {
		si, _, hit := sp.Intersect(r, r.TMax)
		if !hit {
			if !sp.sampleLights || specularBounce {
				l = l.Add(beta.Mul(sp.escapedRadiance(r, lambda)))
			}
			break
		}

		wo := r.Direction.Negate().Normalize()
		if !sp.sampleLights || specularBounce {
			l = l.Add(beta.Mul(emittedAt(&si, wo, lambda)))
		}

		if depth == sp.maxDepth {
			break
		}
		depth++

		bsdf, ok := sp.bsdfAt(&si, &lambda, buf)
		if !ok {
			r = si.SpawnRay(r.Direction)
			depth--
			continue
		}

		// Uniform single-light NEE, no MIS
		if sp.sampleLights {
			if light, pmf, ok := sp.sampleOneLight(smp.Get1D()); ok {
				ls, ok := light.SampleLi(lightContext(&si), smp.Get2D(), lambda)
				if ok && ls.PDF > 0 && !ls.L.IsZero() {
					f := bsdf.F(wo, ls.Wi, material.Radiance).Scale(ls.Wi.AbsDot(si.Shading.Normal))
					if !f.IsZero() {
						shadow := si.SpawnRayTo(&material.Interaction{Point: ls.PLight})
						if sp.Unoccluded(shadow) {
							l = l.Add(beta.Mul(f).Mul(ls.L).Scale(1 / (pmf * ls.PDF)))
						}
					}
				}
			}
		}

		if sp.sampleBSDF {
			bs, ok := bsdf.SampleF(wo, smp.Get1D(), smp.Get2D(), material.Radiance, material.SampleAll)
			if !ok {
				break
			}
			beta = beta.Mul(bs.F.Scale(bs.Wi.AbsDot(si.Shading.Normal) / bs.PDF))
			specularBounce = bs.IsSpecular()
			r = si.SpawnRay(bs.Wi)
		} else {
			// Uniform hemisphere fallback
			wi := core.SampleUniformHemisphere(smp.Get2D())
			frame := core.FrameFromZ(si.Shading.Normal.Faceforward(wo))
			wi = frame.FromLocal(wi)
			f := bsdf.F(wo, wi, material.Radiance)
			if f.IsZero() {
				break
			}
			beta = beta.Mul(f.Scale(wi.AbsDot(si.Shading.Normal) / core.UniformHemispherePDF()))
			specularBounce = false
			r = si.SpawnRay(wi)
		}
	}
	return l, nil
}
