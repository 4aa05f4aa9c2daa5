// Package sampler provides the per-pixel-sample random number streams
// consumed by the integrators. Sampler is a closed-set polymorphic
// handle; a prototype is cloned once per rendering worker, and a clone
// is never shared between workers.
package sampler

import (
	"image"
	"unsafe"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/tagged"
)

// Tags for the closed sampler variant set.
const (
	tagIndependent = iota + 1
	tagStratified
	tagMLT
)

// Sampler is a handle over the closed set of sample generators:
// IndependentSampler, StratifiedSampler, and MLTSampler.
type Sampler struct {
	w tagged.Word
}

// FromIndependent wraps an IndependentSampler in a handle
func FromIndependent(s *IndependentSampler) Sampler {
	tagged.Keep(s)
	return Sampler{w: tagged.Pack(unsafe.Pointer(s), tagIndependent)}
}

// FromStratified wraps a StratifiedSampler in a handle
func FromStratified(s *StratifiedSampler) Sampler {
	tagged.Keep(s)
	return Sampler{w: tagged.Pack(unsafe.Pointer(s), tagStratified)}
}

// FromMLT wraps an MLTSampler in a handle
func FromMLT(s *MLTSampler) Sampler {
	tagged.Keep(s)
	return Sampler{w: tagged.Pack(unsafe.Pointer(s), tagMLT)}
}

// FromOwnedMLT wraps an MLTSampler without pinning it. The caller must
// hold its own reference to s for as long as the handle is in use;
// Metropolis chains create a sampler per chain and would otherwise grow
// the pin registry with every one.
func FromOwnedMLT(s *MLTSampler) Sampler {
	return Sampler{w: tagged.Pack(unsafe.Pointer(s), tagMLT)}
}

// IsNil reports whether the handle is empty
func (s Sampler) IsNil() bool { return s.w.IsNil() }

// Tag returns the variant tag (0 for the empty handle)
func (s Sampler) Tag() int { return s.w.Tag() }

// IsIndependent reports whether the handle holds an IndependentSampler
func (s Sampler) IsIndependent() bool { return s.w.Tag() == tagIndependent }

// IsStratified reports whether the handle holds a StratifiedSampler
func (s Sampler) IsStratified() bool { return s.w.Tag() == tagStratified }

// IsMLT reports whether the handle holds an MLTSampler
func (s Sampler) IsMLT() bool { return s.w.Tag() == tagMLT }

// AsIndependent casts to *IndependentSampler, panicking on mismatch
func (s Sampler) AsIndependent() *IndependentSampler {
	s.w.CheckTag(tagIndependent, "sampler")
	return tagged.As[IndependentSampler](s.w)
}

// AsStratified casts to *StratifiedSampler, panicking on mismatch
func (s Sampler) AsStratified() *StratifiedSampler {
	s.w.CheckTag(tagStratified, "sampler")
	return tagged.As[StratifiedSampler](s.w)
}

// AsMLT casts to *MLTSampler, panicking on mismatch
func (s Sampler) AsMLT() *MLTSampler {
	s.w.CheckTag(tagMLT, "sampler")
	return tagged.As[MLTSampler](s.w)
}

// TryMLT casts to *MLTSampler, returning nil on mismatch
func (s Sampler) TryMLT() (*MLTSampler, bool) {
	if !s.IsMLT() {
		return nil, false
	}
	return tagged.As[MLTSampler](s.w), true
}

// Visitor receives the concrete sampler from Dispatch
type Visitor interface {
	VisitIndependent(*IndependentSampler)
	VisitStratified(*StratifiedSampler)
	VisitMLT(*MLTSampler)
}

// Dispatch routes to the visitor branch for the handle's concrete
// type. Dispatch on an empty handle is a programming error.
func (s Sampler) Dispatch(v Visitor) {
	s.w.CheckDispatch("sampler")
	switch s.w.Tag() {
	case tagIndependent:
		v.VisitIndependent(tagged.As[IndependentSampler](s.w))
	case tagStratified:
		v.VisitStratified(tagged.As[StratifiedSampler](s.w))
	default:
		v.VisitMLT(tagged.As[MLTSampler](s.w))
	}
}

// SamplesPerPixel returns the configured sample count per pixel
func (s Sampler) SamplesPerPixel() int {
	s.w.CheckDispatch("sampler")
	switch s.w.Tag() {
	case tagIndependent:
		return tagged.As[IndependentSampler](s.w).SamplesPerPixel()
	case tagStratified:
		return tagged.As[StratifiedSampler](s.w).SamplesPerPixel()
	default:
		return tagged.As[MLTSampler](s.w).SamplesPerPixel()
	}
}

// StartPixelSample positions the stream at the given pixel, sample
// index, and starting dimension; the values that follow are a
// deterministic function of that position.
func (s Sampler) StartPixelSample(p image.Point, sampleIndex, dimension int) {
	s.w.CheckDispatch("sampler")
	switch s.w.Tag() {
	case tagIndependent:
		tagged.As[IndependentSampler](s.w).StartPixelSample(p, sampleIndex, dimension)
	case tagStratified:
		tagged.As[StratifiedSampler](s.w).StartPixelSample(p, sampleIndex, dimension)
	default:
		tagged.As[MLTSampler](s.w).StartPixelSample(p, sampleIndex, dimension)
	}
}

// Get1D returns the next sample dimension as a uniform value in [0,1)
func (s Sampler) Get1D() float64 {
	s.w.CheckDispatch("sampler")
	switch s.w.Tag() {
	case tagIndependent:
		return tagged.As[IndependentSampler](s.w).Get1D()
	case tagStratified:
		return tagged.As[StratifiedSampler](s.w).Get1D()
	default:
		return tagged.As[MLTSampler](s.w).Get1D()
	}
}

// Get2D returns the next two sample dimensions
func (s Sampler) Get2D() core.Vec2 {
	s.w.CheckDispatch("sampler")
	switch s.w.Tag() {
	case tagIndependent:
		return tagged.As[IndependentSampler](s.w).Get2D()
	case tagStratified:
		return tagged.As[StratifiedSampler](s.w).Get2D()
	default:
		return tagged.As[MLTSampler](s.w).Get2D()
	}
}

// GetPixel2D returns the sample used to position the ray within the
// pixel footprint
func (s Sampler) GetPixel2D() core.Vec2 {
	s.w.CheckDispatch("sampler")
	switch s.w.Tag() {
	case tagIndependent:
		return tagged.As[IndependentSampler](s.w).GetPixel2D()
	case tagStratified:
		return tagged.As[StratifiedSampler](s.w).GetPixel2D()
	default:
		return tagged.As[MLTSampler](s.w).GetPixel2D()
	}
}

// Clone returns an independent deep copy. A single sampler is not safe
// for concurrent use; every worker clones the prototype once.
func (s Sampler) Clone() Sampler {
	s.w.CheckDispatch("sampler")
	switch s.w.Tag() {
	case tagIndependent:
		return FromIndependent(tagged.As[IndependentSampler](s.w).Clone())
	case tagStratified:
		return FromStratified(tagged.As[StratifiedSampler](s.w).Clone())
	default:
		return FromMLT(tagged.As[MLTSampler](s.w).Clone())
	}
}
