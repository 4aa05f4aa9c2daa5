package lights

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// DistantLight models a source at infinity emitting parallel rays in
// a fixed direction, like sunlight.
type DistantLight struct {
	dir   core.Vec3 // Direction of propagation, unit length
	l     spectrum.Spectrum
	scale float64

	sceneCenter core.Vec3
	sceneRadius float64
}

// NewDistant creates a distant light propagating along dir
func NewDistant(dir core.Vec3, l spectrum.Spectrum, scale float64) *DistantLight {
	return &DistantLight{dir: dir.Normalize(), l: l, scale: scale, sceneRadius: 1}
}

// Preprocess records the scene bounds so emitted rays can start
// outside everything
func (l *DistantLight) Preprocess(center core.Vec3, radius float64) {
	l.sceneCenter = center
	l.sceneRadius = radius
}

// SampleLi returns the fixed direction with the light placed outside
// the scene bounds.
func (l *DistantLight) SampleLi(ctx SampleContext, _ core.Vec2, lambda spectrum.SampledWavelengths) (LiSample, bool) {
	wi := l.dir.Negate()
	pOutside := ctx.P.Value.Add(wi.Multiply(2 * l.sceneRadius))
	return LiSample{
		L:      spectrum.Sample(l.l, lambda).Scale(l.scale),
		Wi:     wi,
		PDF:    1,
		PLight: core.NewPoint3fi(pOutside),
	}, true
}

// SampleLe emits a parallel ray through a disk covering the scene
func (l *DistantLight) SampleLe(u1, _ core.Vec2, lambda spectrum.SampledWavelengths, time float64) (LeSample, bool) {
	frame := core.FrameFromZ(l.dir)
	cd := core.SampleUniformDiskConcentric(u1)
	pDisk := l.sceneCenter.Add(frame.FromLocal(core.NewVec3(cd.X, cd.Y, 0)).Multiply(l.sceneRadius))

	r := core.NewRay(pDisk.Subtract(l.dir.Multiply(l.sceneRadius)), l.dir)
	r.Time = time
	return LeSample{
		L:      spectrum.Sample(l.l, lambda).Scale(l.scale),
		Ray:    r,
		PDFPos: 1 / (math.Pi * l.sceneRadius * l.sceneRadius),
		PDFDir: 1,
	}, true
}

// PDFLe returns the emission densities
func (l *DistantLight) PDFLe(core.Ray) (float64, float64) {
	return 1 / (math.Pi * l.sceneRadius * l.sceneRadius), 0
}

// Phi returns the power through the scene's cross-section disk
func (l *DistantLight) Phi(lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	return spectrum.Sample(l.l, lambda).Scale(l.scale * math.Pi * l.sceneRadius * l.sceneRadius)
}
