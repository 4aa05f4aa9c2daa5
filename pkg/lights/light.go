// Package lights implements the emitter variants behind the Light
// handle, plus the samplers that pick a light per shading point.
package lights

import (
	"unsafe"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
	"github.com/calebh/go-spectral-pathtracer/pkg/tagged"
)

// LightType classifies emitters by how they must be sampled.
type LightType int

const (
	DeltaPosition LightType = iota
	DeltaDirection
	Area
	Infinite
)

// IsDelta reports whether the type is a delta distribution in either
// position or direction; delta lights cannot be hit by BSDF samples.
func (t LightType) IsDelta() bool {
	return t == DeltaPosition || t == DeltaDirection
}

// SampleContext is the shading-point information light sampling needs:
// the reference position with error bounds and the surface normals,
// zero for points in media.
type SampleContext struct {
	P  core.Point3fi
	N  core.Vec3
	Ns core.Vec3
}

// LiSample is a direct-lighting sample: incident radiance arriving at
// the reference point from PLight along Wi, with the solid-angle
// density the sample was drawn with.
type LiSample struct {
	L      spectrum.SampledSpectrum
	Wi     core.Vec3
	PDF    float64
	PLight core.Point3fi
	NLight core.Vec3
}

// LeSample is an emitted-ray sample for light-path tracing: a ray
// leaving the light carrying radiance L, with the area and direction
// densities it was drawn with. NLight is zero for lights without a
// surface.
type LeSample struct {
	L       spectrum.SampledSpectrum
	Ray     core.Ray
	NLight  core.Vec3
	PDFPos  float64
	PDFDir  float64
}

// AreaShape is the geometry contract an area light samples over. The
// geometry package's shapes implement it.
type AreaShape interface {
	Area() float64
	// SampleUniform draws a point uniformly by area
	SampleUniform(u core.Vec2) (p core.Vec3, n core.Vec3)
	// SampleTowards draws a point as seen from ref, returning the
	// solid-angle density at ref
	SampleTowards(ref core.Vec3, u core.Vec2) (p core.Vec3, n core.Vec3, pdf float64, ok bool)
	// PDFTowards returns the solid-angle density of sampling the
	// direction wi from ref
	PDFTowards(ref core.Vec3, wi core.Vec3) float64
}

// Tags for the closed light variant set.
const (
	tagPoint = iota + 1
	tagDistant
	tagDiffuseArea
	tagUniformInfinite
)

// Light is a handle over the closed set of emitters.
type Light struct {
	w tagged.Word
}

// FromPoint wraps a point light in a handle
func FromPoint(l *PointLight) Light {
	tagged.Keep(l)
	return Light{w: tagged.Pack(unsafe.Pointer(l), tagPoint)}
}

// FromDistant wraps a distant light in a handle
func FromDistant(l *DistantLight) Light {
	tagged.Keep(l)
	return Light{w: tagged.Pack(unsafe.Pointer(l), tagDistant)}
}

// FromDiffuseArea wraps an area light in a handle
func FromDiffuseArea(l *DiffuseAreaLight) Light {
	tagged.Keep(l)
	return Light{w: tagged.Pack(unsafe.Pointer(l), tagDiffuseArea)}
}

// FromUniformInfinite wraps a uniform infinite light in a handle
func FromUniformInfinite(l *UniformInfiniteLight) Light {
	tagged.Keep(l)
	return Light{w: tagged.Pack(unsafe.Pointer(l), tagUniformInfinite)}
}

// FromWord rebuilds a handle from a packed word, as stored on surface
// interactions
func FromWord(w tagged.Word) Light { return Light{w: w} }

// Word returns the packed representation
func (l Light) Word() tagged.Word { return l.w }

// IsNil reports whether the handle is empty
func (l Light) IsNil() bool { return l.w.IsNil() }

// Type returns the sampling classification of the held emitter
func (l Light) Type() LightType {
	l.w.CheckDispatch("light")
	switch l.w.Tag() {
	case tagPoint:
		return DeltaPosition
	case tagDistant:
		return DeltaDirection
	case tagDiffuseArea:
		return Area
	default:
		return Infinite
	}
}

// SampleLi draws a direct-lighting sample toward the light from a
// reference point. Returns false when the light contributes nothing.
func (l Light) SampleLi(ctx SampleContext, u core.Vec2, lambda spectrum.SampledWavelengths) (LiSample, bool) {
	l.w.CheckDispatch("light")
	switch l.w.Tag() {
	case tagPoint:
		return tagged.As[PointLight](l.w).SampleLi(ctx, u, lambda)
	case tagDistant:
		return tagged.As[DistantLight](l.w).SampleLi(ctx, u, lambda)
	case tagDiffuseArea:
		return tagged.As[DiffuseAreaLight](l.w).SampleLi(ctx, u, lambda)
	default:
		return tagged.As[UniformInfiniteLight](l.w).SampleLi(ctx, u, lambda)
	}
}

// PDFLi returns the solid-angle density with which SampleLi would
// have drawn direction wi from the reference point. Zero for delta
// lights, which no other strategy can hit.
func (l Light) PDFLi(ctx SampleContext, wi core.Vec3) float64 {
	l.w.CheckDispatch("light")
	switch l.w.Tag() {
	case tagPoint, tagDistant:
		return 0
	case tagDiffuseArea:
		return tagged.As[DiffuseAreaLight](l.w).PDFLi(ctx, wi)
	default:
		return tagged.As[UniformInfiniteLight](l.w).PDFLi(ctx, wi)
	}
}

// L returns the radiance an area light emits from a surface point in
// direction w; zero for non-area lights.
func (l Light) L(p, n core.Vec3, w core.Vec3, lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	l.w.CheckDispatch("light")
	if l.w.Tag() != tagDiffuseArea {
		return spectrum.SampledSpectrum{}
	}
	return tagged.As[DiffuseAreaLight](l.w).L(p, n, w, lambda)
}

// Le returns the radiance an infinite light contributes to an escaped
// ray; zero for finite lights.
func (l Light) Le(r core.Ray, lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	l.w.CheckDispatch("light")
	if l.w.Tag() != tagUniformInfinite {
		return spectrum.SampledSpectrum{}
	}
	return tagged.As[UniformInfiniteLight](l.w).Le(r, lambda)
}

// SampleLe draws a ray leaving the light, for light-path and photon
// tracing.
func (l Light) SampleLe(u1, u2 core.Vec2, lambda spectrum.SampledWavelengths, time float64) (LeSample, bool) {
	l.w.CheckDispatch("light")
	switch l.w.Tag() {
	case tagPoint:
		return tagged.As[PointLight](l.w).SampleLe(u1, u2, lambda, time)
	case tagDistant:
		return tagged.As[DistantLight](l.w).SampleLe(u1, u2, lambda, time)
	case tagDiffuseArea:
		return tagged.As[DiffuseAreaLight](l.w).SampleLe(u1, u2, lambda, time)
	default:
		return tagged.As[UniformInfiniteLight](l.w).SampleLe(u1, u2, lambda, time)
	}
}

// PDFLe returns the densities with which SampleLe produces the given
// emitted ray. n is the surface normal at the ray origin for area
// lights and ignored otherwise.
func (l Light) PDFLe(r core.Ray, n core.Vec3) (pdfPos, pdfDir float64) {
	l.w.CheckDispatch("light")
	switch l.w.Tag() {
	case tagPoint:
		return tagged.As[PointLight](l.w).PDFLe(r)
	case tagDistant:
		return tagged.As[DistantLight](l.w).PDFLe(r)
	case tagDiffuseArea:
		return tagged.As[DiffuseAreaLight](l.w).PDFLe(r, n)
	default:
		return tagged.As[UniformInfiniteLight](l.w).PDFLe(r)
	}
}

// Phi returns the total emitted power, used by the power light
// sampler
func (l Light) Phi(lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	l.w.CheckDispatch("light")
	switch l.w.Tag() {
	case tagPoint:
		return tagged.As[PointLight](l.w).Phi(lambda)
	case tagDistant:
		return tagged.As[DistantLight](l.w).Phi(lambda)
	case tagDiffuseArea:
		return tagged.As[DiffuseAreaLight](l.w).Phi(lambda)
	default:
		return tagged.As[UniformInfiniteLight](l.w).Phi(lambda)
	}
}

// Preprocess hands lights the scene bounds before rendering; distant
// and infinite lights need them to bound emitted rays.
func (l Light) Preprocess(center core.Vec3, radius float64) {
	l.w.CheckDispatch("light")
	switch l.w.Tag() {
	case tagDistant:
		tagged.As[DistantLight](l.w).Preprocess(center, radius)
	case tagUniformInfinite:
		tagged.As[UniformInfiniteLight](l.w).Preprocess(center, radius)
	}
}
