package material

import (
	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// BSDF binds a BxDF to the shading frame at an intersection point.
// Directions cross the render/local boundary here; the BxDF itself
// only ever sees local coordinates.
type BSDF struct {
	bxdf         BxDF
	shadingFrame core.Frame
	ng           core.Vec3 // Geometric normal, for light-leak rejection
}

// NewBSDF builds a BSDF from a shading normal and the geometric
// normal
func NewBSDF(bxdf BxDF, ns, ng core.Vec3) BSDF {
	return BSDF{bxdf: bxdf, shadingFrame: core.FrameFromZ(ns), ng: ng}
}

// IsNil reports whether the BSDF holds no scattering distribution
func (b *BSDF) IsNil() bool { return b.bxdf.IsNil() }

// Flags returns the held distribution's classification
func (b *BSDF) Flags() BxDFFlags { return b.bxdf.Flags() }

// RenderToLocal transforms a render-space direction into the shading
// frame
func (b *BSDF) RenderToLocal(v core.Vec3) core.Vec3 { return b.shadingFrame.ToLocal(v) }

// LocalToRender transforms a shading-frame direction into render
// space
func (b *BSDF) LocalToRender(v core.Vec3) core.Vec3 { return b.shadingFrame.FromLocal(v) }

// F evaluates the BSDF for render-space directions
func (b *BSDF) F(woRender, wiRender core.Vec3, mode TransportMode) spectrum.SampledSpectrum {
	wo, wi := b.RenderToLocal(woRender), b.RenderToLocal(wiRender)
	if wo.Z == 0 {
		return spectrum.SampledSpectrum{}
	}
	return b.bxdf.F(wo, wi, mode)
}

// SampleF samples an incident direction for a render-space wo. The
// returned sample's Wi is in render space.
func (b *BSDF) SampleF(woRender core.Vec3, uc float64, u core.Vec2, mode TransportMode, sampleFlags SampleFlags) (BSDFSample, bool) {
	wo := b.RenderToLocal(woRender)
	if wo.Z == 0 || b.bxdf.Flags() == FlagsNone {
		return BSDFSample{}, false
	}
	bs, ok := b.bxdf.SampleF(wo, uc, u, mode, sampleFlags)
	if !ok || bs.F.IsZero() || bs.PDF == 0 || bs.Wi.Z == 0 {
		return BSDFSample{}, false
	}
	bs.Wi = b.LocalToRender(bs.Wi)
	return bs, true
}

// PDF returns the sampling density for render-space directions
func (b *BSDF) PDF(woRender, wiRender core.Vec3, mode TransportMode, sampleFlags SampleFlags) float64 {
	wo, wi := b.RenderToLocal(woRender), b.RenderToLocal(wiRender)
	if wo.Z == 0 {
		return 0
	}
	return b.bxdf.PDF(wo, wi, mode, sampleFlags)
}

// Regularize widens near-specular lobes
func (b *BSDF) Regularize() { b.bxdf.Regularize() }
