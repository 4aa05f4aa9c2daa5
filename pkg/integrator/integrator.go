// Package integrator implements the light-transport algorithms: the
// unidirectional path family, bidirectional path tracing, Metropolis,
// and photon mapping.
package integrator

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/lights"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
	"github.com/calebh/go-spectral-pathtracer/pkg/medium"
	"github.com/calebh/go-spectral-pathtracer/pkg/scene"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// Integrator is the common base: scene access, light partitioning,
// and the ray-casting and visibility helpers every algorithm shares.
type Integrator struct {
	scene          *scene.Scene
	lights         []lights.Light
	infiniteLights []lights.Light
	sceneCenter    core.Vec3
	sceneRadius    float64
}

// newIntegrator partitions the lights and hands every light the scene
// bounds.
func newIntegrator(s *scene.Scene) Integrator {
	center, radius := s.BoundingSphere()
	if radius == 0 || math.IsInf(radius, 0) {
		radius = 1
	}
	for _, l := range s.Lights {
		l.Preprocess(center, radius)
	}
	_, infinite := lights.Partition(s.Lights)
	return Integrator{
		scene:          s,
		lights:         s.Lights,
		infiniteLights: infinite,
		sceneCenter:    center,
		sceneRadius:    radius,
	}
}

// Intersect returns the nearest surface hit along the ray in
// (0, tMax)
func (in *Integrator) Intersect(r core.Ray, tMax float64) (material.SurfaceInteraction, float64, bool) {
	return in.scene.Aggregate.Intersect(r, tMax)
}

// IntersectP reports whether anything blocks the ray in (0, tMax)
func (in *Integrator) IntersectP(r core.Ray, tMax float64) bool {
	return in.scene.Aggregate.IntersectP(r, tMax)
}

// Unoccluded reports whether a shadow ray reaches its endpoint. The
// ray's TMax already stops short of the target surface.
func (in *Integrator) Unoccluded(r core.Ray) bool {
	return !in.IntersectP(r, r.TMax)
}

// Tr estimates the transmittance along a shadow ray through any
// participating media. An opaque surface in the way makes it zero:
// visibility fails closed. Surfaces without a material (pure medium
// boundaries) are stepped through.
func (in *Integrator) Tr(r core.Ray, lambda spectrum.SampledWavelengths, rng func() float64) spectrum.SampledSpectrum {
	tr := spectrum.One()
	ray := r
	remaining := r.TMax

	for i := 0; i < 64; i++ {
		si, tHit, hit := in.Intersect(ray, remaining)

		segEnd := remaining
		if hit {
			if in.scene.Material(si.MaterialIndex) != nil {
				return spectrum.SampledSpectrum{}
			}
			segEnd = tHit
		}

		// Accumulate medium transmittance over the segment using
		// ratio tracking against the majorant.
		if med := medium.FromWord(ray.Medium); !med.IsNil() {
			// Ratio tracking: each majorant collision contributes the
			// null-scattering ratio sigma_n / sigma_maj.
			segTr := spectrum.One()
			rest := med.SampleTmaj(ray, segEnd, rng(), rng, lambda,
				func(_ core.Vec3, mp medium.MediumProperties, sigmaMaj, tMaj spectrum.SampledSpectrum) bool {
					sigmaN := sigmaMaj.Sub(mp.SigmaA).Sub(mp.SigmaS).ClampZero()
					pdf := tMaj[0] * sigmaMaj[0]
					if pdf == 0 {
						segTr = spectrum.SampledSpectrum{}
						return false
					}
					segTr = segTr.Mul(tMaj.Mul(sigmaN).Scale(1 / pdf))
					return !segTr.IsZero()
				})
			if rest[0] > 0 {
				segTr = segTr.Mul(rest.Scale(1 / rest[0]))
			}
			tr = tr.Mul(segTr)
			if tr.IsZero() {
				return spectrum.SampledSpectrum{}
			}
		}

		if !hit {
			return tr
		}

		// Step through the boundary into the next medium
		next := si.SpawnRay(ray.Direction)
		remaining -= tHit
		if remaining <= 0 {
			return tr
		}
		ray = next
		ray.TMax = remaining
	}
	return tr
}

// sampleOneLight picks a light with the uniform strategy and returns
// it with its selection probability.
func (in *Integrator) sampleOneLight(u float64) (lights.Light, float64, bool) {
	n := len(in.lights)
	if n == 0 {
		return lights.Light{}, 0, false
	}
	i := int(u * float64(n))
	if i >= n {
		i = n - 1
	}
	return in.lights[i], 1 / float64(n), true
}

// escapedRadiance sums the infinite lights' contribution for a ray
// that left the scene
func (in *Integrator) escapedRadiance(r core.Ray, lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	le := spectrum.SampledSpectrum{}
	for _, l := range in.infiniteLights {
		le = le.Add(l.Le(r, lambda))
	}
	return le
}
