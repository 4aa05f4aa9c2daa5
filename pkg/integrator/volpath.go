package integrator

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/film"
	"github.com/calebh/go-spectral-pathtracer/pkg/lights"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
	"github.com/calebh/go-spectral-pathtracer/pkg/medium"
	"github.com/calebh/go-spectral-pathtracer/pkg/sampler"
	"github.com/calebh/go-spectral-pathtracer/pkg/scene"
	"github.com/calebh/go-spectral-pathtracer/pkg/scratch"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// VolPathIntegrator extends the path integrator with participating
// media: delta tracking along ray segments inside a medium, phase
// function scattering, volumetric emission, and transmittance-aware
// next-event estimation.
type VolPathIntegrator struct {
	ImageTileIntegrator
	maxDepth     int
	regularize   bool
	lightSampler lights.Sampler
}

// NewVolPath creates a volumetric path integrator
func NewVolPath(s *scene.Scene, f film.Film, smp sampler.Sampler, opts Options) *VolPathIntegrator {
	vp := &VolPathIntegrator{
		maxDepth:     opts.MaxDepth,
		regularize:   opts.Regularize,
		lightSampler: lights.FromUniformSampler(lights.NewUniformSampler(s.Lights)),
	}
	vp.ImageTileIntegrator = newTileIntegrator(s, f, smp, vp, opts)
	return vp
}

// Li traces one path through surfaces and media
func (vp *VolPathIntegrator) Li(rd core.RayDifferential, lambda spectrum.SampledWavelengths, smp sampler.Sampler, buf *scratch.Buffer) (spectrum.SampledSpectrum, *film.VisibleSurface) {
	l := spectrum.SampledSpectrum{}
	beta := spectrum.One()
	r := rd.Ray
	rng := smp.Get1D

	specularBounce := true
	anyNonSpecular := false
	prevPdf := 0.0
	var prevCtx lights.SampleContext
	etaScale := 1.0
	depth := 0

	for {
		si, tHit, hit := vp.Intersect(r, r.TMax)

		if med := medium.FromWord(r.Medium); !med.IsNil() {
			tMax := r.TMax
			if hit {
				tMax = tHit
			}

			scattered := false
			terminated := false
			rest := med.SampleTmaj(r, tMax, rng(), rng, lambda,
				func(p core.Vec3, mp medium.MediumProperties, sigmaMaj, tMaj spectrum.SampledSpectrum) bool {
					pdf := tMaj[0] * sigmaMaj[0]
					if pdf == 0 {
						terminated = true
						return false
					}

					// Volumetric emission, estimated at every event
					if !mp.Le.IsZero() {
						l = l.Add(beta.Mul(tMaj).Mul(mp.SigmaA).Mul(mp.Le).Scale(1 / pdf))
					}

					pAbsorb := mp.SigmaA[0] / sigmaMaj[0]
					pScatter := mp.SigmaS[0] / sigmaMaj[0]
					um := rng()
					switch {
					case um < pAbsorb:
						terminated = true
						return false

					case um < pAbsorb+pScatter:
						if depth == vp.maxDepth {
							terminated = true
							return false
						}
						depth++
						beta = beta.Mul(tMaj).Mul(mp.SigmaS).Scale(1 / (pdf * pScatter))

						wo := r.Direction.Negate().Normalize()
						mi := material.NewMediumInteraction(p, wo, r.Time, r.Medium, mp.Phase)
						phase := medium.PhaseFromWord(mp.Phase)

						l = l.Add(beta.Mul(vp.sampleLdMedium(&mi, phase, lambda, smp)))

						ps, ok := phase.SampleP(wo, smp.Get2D())
						if !ok || ps.PDF == 0 {
							terminated = true
							return false
						}
						beta = beta.Scale(ps.P / ps.PDF)
						prevPdf = ps.PDF
						prevCtx = lights.SampleContext{P: mi.Point}
						specularBounce = false
						anyNonSpecular = true
						r = mi.SpawnRay(ps.Wi)
						scattered = true
						return false

					default:
						// Null collision: pass through, reweighting by
						// the null-scattering ratio.
						sigmaN := sigmaMaj.Sub(mp.SigmaA).Sub(mp.SigmaS).ClampZero()
						pNull := 1 - pAbsorb - pScatter
						if pNull <= 0 {
							terminated = true
							return false
						}
						beta = beta.Mul(tMaj).Mul(sigmaN).Scale(1 / (pdf * pNull))
						return !beta.IsZero()
					}
				})
			if terminated || beta.IsZero() {
				break
			}
			if scattered {
				continue
			}
			// Reached the segment end; account for the remaining
			// majorant transmittance.
			if rest[0] > 0 {
				beta = beta.Mul(rest.Scale(1 / rest[0]))
			}
		}

		if !hit {
			for _, light := range vp.infiniteLights {
				le := light.Le(r, lambda)
				if le.IsZero() {
					continue
				}
				if specularBounce {
					l = l.Add(beta.Mul(le))
				} else {
					lightPDF := vp.lightSampler.PMF(light) * light.PDFLi(prevCtx, r.Direction)
					w := core.PowerHeuristic(1, prevPdf, 1, lightPDF)
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
				lightPDF := vp.lightSampler.PMF(light) * light.PDFLi(prevCtx, r.Direction)
				w := core.PowerHeuristic(1, prevPdf, 1, lightPDF)
				l = l.Add(beta.Mul(le).Scale(w))
			}
		}

		if depth == vp.maxDepth {
			break
		}

		bsdf, ok := vp.bsdfAt(&si, &lambda, buf)
		if !ok {
			// Medium boundary: cross it without spending a bounce
			r = si.SpawnRay(r.Direction)
			continue
		}
		depth++

		if vp.regularize && anyNonSpecular {
			bsdf.Regularize()
		}

		if bsdf.Flags().IsNonSpecular() {
			l = l.Add(beta.Mul(vp.sampleLdSurface(&si, &bsdf, lambda, smp)))
		}

		bs, ok := bsdf.SampleF(wo, smp.Get1D(), smp.Get2D(), material.Radiance, material.SampleAll)
		if !ok {
			break
		}
		beta = beta.Mul(bs.F.Scale(bs.Wi.AbsDot(si.Shading.Normal) / bs.PDF))
		if bs.PDFIsProportional {
			prevPdf = bsdf.PDF(wo, bs.Wi, material.Radiance, material.SampleAll)
		} else {
			prevPdf = bs.PDF
		}
		specularBounce = bs.IsSpecular()
		if !specularBounce {
			anyNonSpecular = true
		}
		etaScale *= bs.Eta * bs.Eta
		prevCtx = lightContext(&si)
		r = si.SpawnRay(bs.Wi)

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
	return l, nil
}

// sampleLdSurface is next-event estimation from a surface vertex with
// transmittance along the shadow ray.
func (vp *VolPathIntegrator) sampleLdSurface(si *material.SurfaceInteraction, bsdf *material.BSDF, lambda spectrum.SampledWavelengths, smp sampler.Sampler) spectrum.SampledSpectrum {
	light, pmf, ok := vp.lightSampler.Sample(smp.Get1D())
	if !ok {
		return spectrum.SampledSpectrum{}
	}
	ls, ok := light.SampleLi(lightContext(si), smp.Get2D(), lambda)
	if !ok || ls.PDF == 0 || ls.L.IsZero() {
		return spectrum.SampledSpectrum{}
	}

	f := bsdf.F(si.Wo, ls.Wi, material.Radiance).Scale(ls.Wi.AbsDot(si.Shading.Normal))
	if f.IsZero() {
		return spectrum.SampledSpectrum{}
	}

	shadow := si.SpawnRayTo(&material.Interaction{Point: ls.PLight})
	tr := vp.Tr(shadow, lambda, smp.Get1D)
	if tr.IsZero() {
		return spectrum.SampledSpectrum{}
	}

	lightPDF := pmf * ls.PDF
	if light.Type().IsDelta() {
		return f.Mul(tr).Mul(ls.L).Scale(1 / lightPDF)
	}
	bsdfPDF := bsdf.PDF(si.Wo, ls.Wi, material.Radiance, material.SampleAll)
	w := core.PowerHeuristic(1, lightPDF, 1, bsdfPDF)
	return f.Mul(tr).Mul(ls.L).Scale(w / lightPDF)
}

// sampleLdMedium is next-event estimation from a medium scattering
// vertex, with the phase function in place of a BSDF.
func (vp *VolPathIntegrator) sampleLdMedium(mi *material.MediumInteraction, phase medium.PhaseFunction, lambda spectrum.SampledWavelengths, smp sampler.Sampler) spectrum.SampledSpectrum {
	light, pmf, ok := vp.lightSampler.Sample(smp.Get1D())
	if !ok {
		return spectrum.SampledSpectrum{}
	}
	ctx := lights.SampleContext{P: mi.Point}
	ls, ok := light.SampleLi(ctx, smp.Get2D(), lambda)
	if !ok || ls.PDF == 0 || ls.L.IsZero() {
		return spectrum.SampledSpectrum{}
	}

	p := phase.P(mi.Wo, ls.Wi)
	if p == 0 {
		return spectrum.SampledSpectrum{}
	}

	shadow := mi.SpawnRayTo(&material.Interaction{Point: ls.PLight})
	tr := vp.Tr(shadow, lambda, smp.Get1D)
	if tr.IsZero() {
		return spectrum.SampledSpectrum{}
	}

	lightPDF := pmf * ls.PDF
	if light.Type().IsDelta() {
		return tr.Mul(ls.L).Scale(p / lightPDF)
	}
	phasePDF := phase.PDF(mi.Wo, ls.Wi)
	w := core.PowerHeuristic(1, lightPDF, 1, phasePDF)
	return tr.Mul(ls.L).Scale(p * w / lightPDF)
}
