package integrator

import (
	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/lights"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
	"github.com/calebh/go-spectral-pathtracer/pkg/scratch"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// bsdfAt resolves the hit's material and builds its BSDF in the
// scratch buffer. Returns false for material-less boundaries.
func (in *Integrator) bsdfAt(si *material.SurfaceInteraction, lambda *spectrum.SampledWavelengths, buf *scratch.Buffer) (material.BSDF, bool) {
	m := in.scene.Material(si.MaterialIndex)
	if m == nil {
		return material.BSDF{}, false
	}
	return m.BSDF(si, lambda, buf), true
}

// emittedAt returns the radiance an intersected emitter sends back
// along wo
func emittedAt(si *material.SurfaceInteraction, wo core.Vec3, lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	l := lights.FromWord(si.AreaLight)
	if l.IsNil() {
		return spectrum.SampledSpectrum{}
	}
	return l.L(si.P(), si.Normal, wo, lambda)
}

// lightContext builds the sampling context for a surface point
func lightContext(si *material.SurfaceInteraction) lights.SampleContext {
	return lights.SampleContext{P: si.Point, N: si.Normal, Ns: si.Shading.Normal}
}
