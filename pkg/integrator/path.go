package integrator

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/film"
	"github.com/calebh/go-spectral-pathtracer/pkg/lights"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
	"github.com/calebh/go-spectral-pathtracer/pkg/sampler"
	"github.com/calebh/go-spectral-pathtracer/pkg/scene"
	"github.com/calebh/go-spectral-pathtracer/pkg/scratch"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// PathIntegrator is the workhorse: iterative path construction with
// next-event estimation, power-heuristic MIS between light and BSDF
// sampling, Russian roulette throttled by accumulated eta scale, and
// optional BSDF regularization after the first non-specular bounce.
type PathIntegrator struct {
	ImageTileIntegrator
	maxDepth     int
	regularize   bool
	lightSampler lights.Sampler
}

// NewPath creates a path integrator with a uniform light sampler
func NewPath(s *scene.Scene, f film.Film, smp sampler.Sampler, opts Options) *PathIntegrator {
	pi := &PathIntegrator{
		maxDepth:     opts.MaxDepth,
		regularize:   opts.Regularize,
		lightSampler: lights.FromUniformSampler(lights.NewUniformSampler(s.Lights)),
	}
	pi.ImageTileIntegrator = newTileIntegrator(s, f, smp, pi, opts)
	return pi
}

// Li traces one path
func (pi *PathIntegrator) Li(rd core.RayDifferential, lambda spectrum.SampledWavelengths, smp sampler.Sampler, buf *scratch.Buffer) (spectrum.SampledSpectrum, *film.VisibleSurface) {
	l := spectrum.SampledSpectrum{}
	beta := spectrum.One()
	r := rd.Ray
	var vs *film.VisibleSurface

	specularBounce := true
	anyNonSpecular := false
	prevBSDFPdf := 0.0
	var prevCtx lights.SampleContext
	etaScale := 1.0
	depth := 0

	for {
		si, _, hit := pi.Intersect(r, r.TMax)
		if !hit {
			// Infinite lights, weighted against the light sampler's
			// chance of having found them.
			for _, light := range pi.infiniteLights {
				le := light.Le(r, lambda)
				if le.IsZero() {
					continue
				}
				if specularBounce {
					l = l.Add(beta.Mul(le))
				} else {
					lightPDF := pi.lightSampler.PMF(light) * light.PDFLi(prevCtx, r.Direction)
					w := core.PowerHeuristic(1, prevBSDFPdf, 1, lightPDF)
					l = l.Add(beta.Mul(le).Scale(w))
				}
			}
			break
		}

		wo := r.Direction.Negate().Normalize()
		if le := emittedAt(&si, wo, lambda); !le.IsZero() {
			if specularBounce {
				l = l.Add(beta.Mul(le))
			} else {
				light := lights.FromWord(si.AreaLight)
				lightPDF := pi.lightSampler.PMF(light) * light.PDFLi(prevCtx, r.Direction)
				w := core.PowerHeuristic(1, prevBSDFPdf, 1, lightPDF)
				l = l.Add(beta.Mul(le).Scale(w))
			}
		}

		if depth == pi.maxDepth {
			break
		}

		bsdf, ok := pi.bsdfAt(&si, &lambda, buf)
		if !ok {
			r = si.SpawnRay(r.Direction)
			continue
		}
		depth++

		if pi.regularize && anyNonSpecular {
			bsdf.Regularize()
		}

		// Record the first visible surface for films that want it
		if vs == nil && pi.film.UsesVisibleSurface() {
			vs = &film.VisibleSurface{
				Set:           true,
				Point:         si.P(),
				Normal:        si.Normal,
				ShadingNormal: si.Shading.Normal,
				UV:            si.UV,
				Time:          si.Time,
				Albedo:        approximateAlbedo(&bsdf, wo, si.Shading.Normal),
			}
		}

		if bsdf.Flags().IsNonSpecular() {
			l = l.Add(beta.Mul(pi.sampleLd(&si, &bsdf, lambda, smp)))
		}

		bs, ok := bsdf.SampleF(wo, smp.Get1D(), smp.Get2D(), material.Radiance, material.SampleAll)
		if !ok {
			break
		}
		beta = beta.Mul(bs.F.Scale(bs.Wi.AbsDot(si.Shading.Normal) / bs.PDF))

		// A proportional pdf cannot be compared to light densities
		if bs.PDFIsProportional {
			prevBSDFPdf = bsdf.PDF(wo, bs.Wi, material.Radiance, material.SampleAll)
		} else {
			prevBSDFPdf = bs.PDF
		}
		specularBounce = bs.IsSpecular()
		if !specularBounce {
			anyNonSpecular = true
		}
		etaScale *= bs.Eta * bs.Eta
		prevCtx = lightContext(&si)
		r = si.SpawnRay(bs.Wi)

		// Russian roulette on the throughput with refraction scaling
		// undone, so glass interiors are not starved.
		rrBeta := beta.MaxComponent() * etaScale
		if rrBeta < 1 && depth > 1 {
			q := math.Max(0, 1-rrBeta)
			if smp.Get1D() < q {
				break
			}
			beta = beta.Scale(1 / (1 - q))
		}
		if beta.IsZero() {
			break
		}
	}
	return l, vs
}

// sampleLd estimates direct lighting at a surface vertex with MIS
// against BSDF sampling.
func (pi *PathIntegrator) sampleLd(si *material.SurfaceInteraction, bsdf *material.BSDF, lambda spectrum.SampledWavelengths, smp sampler.Sampler) spectrum.SampledSpectrum {
	light, pmf, ok := pi.lightSampler.Sample(smp.Get1D())
	if !ok {
		return spectrum.SampledSpectrum{}
	}
	ctx := lightContext(si)
	ls, ok := light.SampleLi(ctx, smp.Get2D(), lambda)
	if !ok || ls.PDF == 0 || ls.L.IsZero() {
		return spectrum.SampledSpectrum{}
	}

	wo := si.Wo
	f := bsdf.F(wo, ls.Wi, material.Radiance).Scale(ls.Wi.AbsDot(si.Shading.Normal))
	if f.IsZero() {
		return spectrum.SampledSpectrum{}
	}

	shadow := si.SpawnRayTo(&material.Interaction{Point: ls.PLight})
	if !pi.Unoccluded(shadow) {
		return spectrum.SampledSpectrum{}
	}

	lightPDF := pmf * ls.PDF
	if light.Type().IsDelta() {
		// No other strategy samples a delta light
		return f.Mul(ls.L).Scale(1 / lightPDF)
	}
	bsdfPDF := bsdf.PDF(wo, ls.Wi, material.Radiance, material.SampleAll)
	w := core.PowerHeuristic(1, lightPDF, 1, bsdfPDF)
	return f.Mul(ls.L).Scale(w / lightPDF)
}

// approximateAlbedo evaluates a cheap hemispherical reflectance proxy
// for the AOV film's albedo channel.
func approximateAlbedo(bsdf *material.BSDF, wo, ns core.Vec3) spectrum.SampledSpectrum {
	// A couple of fixed direction pairs stand in for the integral.
	sum := spectrum.SampledSpectrum{}
	n := 0
	for _, u := range []core.Vec2{{X: 0.25, Y: 0.5}, {X: 0.75, Y: 0.25}} {
		if bs, ok := bsdf.SampleF(wo, 0.5, u, material.Radiance, material.SampleAll); ok {
			sum = sum.Add(bs.F.Scale(bs.Wi.AbsDot(ns) / bs.PDF))
			n++
		}
	}
	if n == 0 {
		return sum
	}
	return sum.Scale(1 / float64(n))
}
