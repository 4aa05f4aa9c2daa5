package material

import (
	"math"
	"testing"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/scratch"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

func testSurfaceInteraction(p, n core.Vec3) SurfaceInteraction {
	pi := core.NewPoint3fiWithError(p, core.NewVec3(1e-9, 1e-9, 1e-9))
	return NewSurfaceInteraction(pi, n, core.NewVec2(0.5, 0.5), n, 0)
}

func TestSpawnRayLeavesSurface(t *testing.T) {
	si := testSurfaceInteraction(core.NewVec3(1, 2, 3), core.NewVec3(0, 1, 0))

	up := si.SpawnRay(core.NewVec3(0, 1, 0))
	if up.Origin.Y <= 2 {
		t.Errorf("ray leaving upward should start above the surface, origin %v", up.Origin)
	}
	down := si.SpawnRay(core.NewVec3(0, -1, 0))
	if down.Origin.Y >= 2 {
		t.Errorf("ray leaving downward should start below the surface, origin %v", down.Origin)
	}
	if !math.IsInf(up.TMax, 1) {
		t.Error("spawned ray should be unbounded")
	}
}

func TestSpawnRayToStopsShort(t *testing.T) {
	a := testSurfaceInteraction(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1))
	b := testSurfaceInteraction(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1))

	r := a.SpawnRayTo(&b.Interaction)
	if r.TMax >= 1 {
		t.Errorf("shadow ray TMax %v should stop short of the target", r.TMax)
	}
	hitPoint := r.At(1)
	if hitPoint.Subtract(b.P()).Length() > 1e-6 {
		t.Errorf("shadow ray at t=1 lands at %v, target %v", hitPoint, b.P())
	}
}

func TestSetShadingGeometryKeepsNormalsAgreeing(t *testing.T) {
	si := testSurfaceInteraction(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1))
	// A shading normal in the opposite hemisphere flips the geometric
	// normal to agree.
	si.SetShadingGeometry(core.NewVec3(0.1, 0, -1).Normalize())
	if si.Normal.Dot(si.Shading.Normal) <= 0 {
		t.Error("geometric and shading normals should share a hemisphere")
	}
}

func TestMediumForSelectsSide(t *testing.T) {
	si := testSurfaceInteraction(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1))
	if si.MediumFor(core.NewVec3(0, 0, 1)) != si.Medium {
		t.Error("without an interface the ray medium is inherited")
	}
}

func TestMaterialsProduceBSDFs(t *testing.T) {
	buf := scratch.NewBuffer()
	lambda := spectrum.SampleUniform(0.5)
	si := testSurfaceInteraction(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1))

	var materials = []Material{
		&DiffuseMaterial{Reflectance: spectrum.NewRGBSpectrum(core.NewVec3(0.7, 0.5, 0.3))},
		&ConductorMaterial{Reflectance: spectrum.ConstantSpectrum{C: 0.9}, Roughness: 0.1},
		&DielectricMaterial{Eta: 1.5},
	}
	for i, m := range materials {
		bsdf := m.BSDF(&si, &lambda, buf)
		if bsdf.IsNil() {
			t.Fatalf("material %d produced an empty BSDF", i)
		}
	}

	// Diffuse BSDF in render space scatters about the shading normal.
	bsdf := materials[0].BSDF(&si, &lambda, buf)
	wo := core.NewVec3(0, 0.5, 0.5).Normalize()
	bs, ok := bsdf.SampleF(wo, 0.5, core.NewVec2(0.3, 0.7), Radiance, SampleAll)
	if !ok {
		t.Fatal("diffuse BSDF sample failed")
	}
	if bs.Wi.Dot(core.NewVec3(0, 0, 1)) <= 0 {
		t.Errorf("diffuse sample %v went below the surface", bs.Wi)
	}
	if pdf := bsdf.PDF(wo, bs.Wi, Radiance, SampleAll); math.Abs(pdf-bs.PDF) > 1e-12 {
		t.Errorf("render-space pdf %v disagrees with sample %v", pdf, bs.PDF)
	}
}
