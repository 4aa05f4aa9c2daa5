package camera

import (
	"math"
	"testing"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
)

func testPerspective(lensRadius float64) *PerspectiveCamera {
	return NewPerspective(PerspectiveOptions{
		Position:      core.NewVec3(0, 0, 0),
		LookAt:        core.NewVec3(0, 0, -1),
		Up:            core.NewVec3(0, 1, 0),
		VFov:          60,
		Width:         200,
		Height:        100,
		LensRadius:    lensRadius,
		FocusDistance: 5,
	})
}

func TestCenterRayLooksForward(t *testing.T) {
	c := testPerspective(0)
	r, weight, ok := c.GenerateRay(Sample{PFilm: core.NewVec2(100, 50)})
	if !ok || weight != 1 {
		t.Fatalf("center ray: ok=%v weight=%v", ok, weight)
	}
	if r.Direction.Subtract(core.NewVec3(0, 0, -1)).Length() > 1e-9 {
		t.Errorf("center ray direction %v, want -z", r.Direction)
	}
	if !r.Origin.IsZero() {
		t.Errorf("pinhole origin %v, want camera position", r.Origin)
	}
}

func TestCornerRaysDivergeSymmetrically(t *testing.T) {
	c := testPerspective(0)
	left, _, _ := c.GenerateRay(Sample{PFilm: core.NewVec2(0, 50)})
	right, _, _ := c.GenerateRay(Sample{PFilm: core.NewVec2(200, 50)})

	if math.Abs(left.Direction.X+right.Direction.X) > 1e-9 {
		t.Errorf("left/right rays not symmetric: %v vs %v", left.Direction, right.Direction)
	}
	if left.Direction.X >= 0 {
		t.Errorf("left edge ray should aim left, got %v", left.Direction)
	}
}

func TestMapRayToRasterRoundTrip(t *testing.T) {
	c := testPerspective(0)

	for _, pFilm := range []core.Vec2{
		core.NewVec2(100, 50),
		core.NewVec2(10, 20),
		core.NewVec2(180, 90),
	} {
		r, _, _ := c.GenerateRay(Sample{PFilm: pFilm})
		back, ok := c.MapRayToRaster(r)
		if !ok {
			t.Fatalf("ray from %v did not map back", pFilm)
		}
		if back.Subtract(pFilm).X > 1e-6 || back.Subtract(pFilm).Y > 1e-6 {
			t.Errorf("round trip %v -> %v", pFilm, back)
		}
	}

	// A ray pointing away from the camera maps nowhere
	behind := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1))
	if _, ok := c.MapRayToRaster(behind); ok {
		t.Error("backward ray should not map to the raster")
	}
}

func TestThinLensFocusesAtFocalPlane(t *testing.T) {
	c := testPerspective(0.5)
	pFilm := core.NewVec2(150, 30)

	// All lens samples for the same film point must pass through the
	// same point on the plane of focus.
	var focusPoint core.Vec3
	for i, pLens := range []core.Vec2{
		core.NewVec2(0.1, 0.2),
		core.NewVec2(0.9, 0.6),
		core.NewVec2(0.5, 0.5),
	} {
		r, _, ok := c.GenerateRay(Sample{PFilm: pFilm, PLens: pLens})
		if !ok {
			t.Fatal("thin lens ray failed")
		}
		t1 := 5 / r.Direction.Dot(c.forward)
		p := r.At(t1)
		if i == 0 {
			focusPoint = p
		} else if p.Subtract(focusPoint).Length() > 1e-6 {
			t.Errorf("lens sample %v misses the focus point: %v vs %v", pLens, p, focusPoint)
		}
	}
}

func TestPDFWeMatchesSampledDensity(t *testing.T) {
	c := testPerspective(0)
	r, _, _ := c.GenerateRay(Sample{PFilm: core.NewVec2(120, 40)})

	pdfPos, pdfDir := c.PDFWe(r)
	if pdfPos != 1 {
		t.Errorf("pinhole pdfPos = %v, want 1", pdfPos)
	}
	cosTheta := r.Direction.Dot(c.forward)
	want := 1 / (c.imagePlaneArea * cosTheta * cosTheta * cosTheta)
	if math.Abs(pdfDir-want) > 1e-9 {
		t.Errorf("pdfDir = %v, want %v", pdfDir, want)
	}
}

func TestSampleWiPointsAtLens(t *testing.T) {
	c := testPerspective(0)
	ref := core.NewVec3(0.5, -0.3, -4)

	wi, dist, pdf, we, pRaster, ok := c.SampleWi(ref, core.NewVec2(0.5, 0.5))
	if !ok {
		t.Fatal("SampleWi failed for a point in front of the camera")
	}
	if math.Abs(dist-ref.Length()) > 1e-9 {
		t.Errorf("distance %v, want %v", dist, ref.Length())
	}
	// wi points from the reference point toward the lens center
	want := c.position.Subtract(ref).Normalize()
	if wi.Subtract(want).Length() > 1e-9 {
		t.Errorf("wi = %v, want %v", wi, want)
	}
	if pdf <= 0 || we <= 0 {
		t.Errorf("pdf=%v we=%v, want positive", pdf, we)
	}
	if pRaster.X < 0 || pRaster.X > 200 || pRaster.Y < 0 || pRaster.Y > 100 {
		t.Errorf("raster position %v outside the image", pRaster)
	}

	// A point behind the camera cannot see the lens
	if _, _, _, _, _, ok := c.SampleWi(core.NewVec3(0, 0, 3), core.NewVec2(0.5, 0.5)); ok {
		t.Error("SampleWi should fail behind the camera")
	}
}

func TestOrthographicRaysAreParallel(t *testing.T) {
	c := FromOrthographic(NewOrthographic(OrthographicOptions{
		Position:    core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		ScreenWidth: 4,
		Width:       100,
		Height:      100,
	}))

	r1, _, _ := c.GenerateRay(Sample{PFilm: core.NewVec2(10, 10)}, nil)
	r2, _, _ := c.GenerateRay(Sample{PFilm: core.NewVec2(90, 60)}, nil)
	if r1.Direction != r2.Direction {
		t.Error("orthographic rays should share a direction")
	}
	if r1.Origin == r2.Origin {
		t.Error("orthographic rays should have distinct origins")
	}
}

func TestHandleDispatchAndCasts(t *testing.T) {
	p := testPerspective(0)
	h := FromPerspective(p)

	if !h.IsPerspective() {
		t.Error("handle misreports variant")
	}
	if h.AsPerspective() != p {
		t.Error("cast lost the pointer")
	}
	if got, ok := h.TryPerspective(); !ok || got != p {
		t.Error("TryPerspective failed on matching variant")
	}

	o := FromOrthographic(NewOrthographic(OrthographicOptions{
		Position: core.NewVec3(0, 0, 0), LookAt: core.NewVec3(0, 0, -1),
		Up: core.NewVec3(0, 1, 0), ScreenWidth: 1, Width: 10, Height: 10,
	}))
	if _, ok := o.TryPerspective(); ok {
		t.Error("TryPerspective succeeded on orthographic handle")
	}

	if w, hgt := h.Resolution(); w != 200 || hgt != 100 {
		t.Errorf("resolution %dx%d", w, hgt)
	}
}
