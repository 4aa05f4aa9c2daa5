package lights

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

func ctxAt(p core.Vec3) SampleContext {
	return SampleContext{P: core.NewPoint3fi(p), N: core.NewVec3(0, 0, 1), Ns: core.NewVec3(0, 0, 1)}
}

// diskShape is a minimal AreaShape for tests: a unit-normal disk in
// the z=0 plane.
type diskShape struct {
	center core.Vec3
	radius float64
}

func (d diskShape) Area() float64 { return math.Pi * d.radius * d.radius }

func (d diskShape) SampleUniform(u core.Vec2) (core.Vec3, core.Vec3) {
	p := core.SampleUniformDiskConcentric(u).Multiply(d.radius)
	return d.center.Add(core.NewVec3(p.X, p.Y, 0)), core.NewVec3(0, 0, 1)
}

func (d diskShape) SampleTowards(ref core.Vec3, u core.Vec2) (core.Vec3, core.Vec3, float64, bool) {
	p, n := d.SampleUniform(u)
	toP := p.Subtract(ref)
	d2 := toP.LengthSquared()
	if d2 == 0 {
		return core.Vec3{}, core.Vec3{}, 0, false
	}
	wi := toP.Normalize()
	cosTheta := n.AbsDot(wi)
	if cosTheta == 0 {
		return core.Vec3{}, core.Vec3{}, 0, false
	}
	return p, n, d2 / (cosTheta * d.Area()), true
}

func (d diskShape) PDFTowards(ref core.Vec3, wi core.Vec3) float64 {
	if wi.Z == 0 {
		return 0
	}
	t := (d.center.Z - ref.Z) / wi.Z
	if t <= 0 {
		return 0
	}
	p := ref.Add(wi.Multiply(t))
	if p.Subtract(d.center).Length() > d.radius {
		return 0
	}
	d2 := t * t
	return d2 / (math.Abs(wi.Z) * d.Area())
}

func TestPointLightInverseSquare(t *testing.T) {
	l := NewPoint(core.NewVec3(0, 0, 4), spectrum.ConstantSpectrum{C: 10}, 1)
	lambda := spectrum.SampleUniform(0.5)

	ls, ok := l.SampleLi(ctxAt(core.NewVec3(0, 0, 0)), core.Vec2{}, lambda)
	if !ok || ls.PDF != 1 {
		t.Fatalf("point light sample: ok=%v pdf=%v", ok, ls.PDF)
	}
	if math.Abs(ls.L[0]-10.0/16) > 1e-12 {
		t.Errorf("radiance %v, want I/d^2 = 0.625", ls.L[0])
	}
	if ls.Wi.Subtract(core.NewVec3(0, 0, 1)).Length() > 1e-12 {
		t.Errorf("wi %v, want +z", ls.Wi)
	}
}

func TestPointLightPhi(t *testing.T) {
	l := NewPoint(core.Vec3{}, spectrum.ConstantSpectrum{C: 2}, 1.5)
	lambda := spectrum.SampleUniform(0.5)
	want := 4 * math.Pi * 2 * 1.5
	if got := l.Phi(lambda).Average(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Phi %v, want %v", got, want)
	}
}

func TestDistantLightDirection(t *testing.T) {
	l := NewDistant(core.NewVec3(0, -1, 0), spectrum.ConstantSpectrum{C: 3}, 1)
	l.Preprocess(core.Vec3{}, 10)
	lambda := spectrum.SampleUniform(0.5)

	ls, ok := l.SampleLi(ctxAt(core.NewVec3(1, 0, 0)), core.Vec2{}, lambda)
	if !ok || ls.PDF != 1 {
		t.Fatal("distant light sample failed")
	}
	if ls.Wi.Subtract(core.NewVec3(0, 1, 0)).Length() > 1e-12 {
		t.Errorf("wi %v should oppose the propagation direction", ls.Wi)
	}
	// The pseudo light point lies outside the scene bounds
	if ls.PLight.Value.Subtract(core.NewVec3(1, 0, 0)).Length() < 10 {
		t.Error("light point should be beyond the scene radius")
	}
}

func TestAreaLightOneSided(t *testing.T) {
	shape := diskShape{center: core.NewVec3(0, 0, 2), radius: 1}
	l := NewDiffuseArea(shape, spectrum.ConstantSpectrum{C: 5}, 1, false)
	lambda := spectrum.SampleUniform(0.5)

	// Seen from below, against the +z normal: emitting side.
	ls, ok := l.SampleLi(ctxAt(core.NewVec3(0, 0, 5)), core.NewVec2(0.4, 0.6), lambda)
	if !ok {
		t.Fatal("front-side sample failed")
	}
	if math.Abs(ls.L[0]-5) > 1e-12 {
		t.Errorf("radiance %v, want 5", ls.L[0])
	}

	// From the back side a one-sided light is dark.
	if _, ok := l.SampleLi(ctxAt(core.NewVec3(0, 0, -5)), core.NewVec2(0.4, 0.6), lambda); ok {
		t.Error("back-side sample should fail for a one-sided light")
	}

	// Two-sided emits both ways.
	l2 := NewDiffuseArea(shape, spectrum.ConstantSpectrum{C: 5}, 1, true)
	if _, ok := l2.SampleLi(ctxAt(core.NewVec3(0, 0, -5)), core.NewVec2(0.4, 0.6), lambda); !ok {
		t.Error("two-sided light should emit backward")
	}
}

func TestAreaLightPDFMatchesSample(t *testing.T) {
	shape := diskShape{center: core.NewVec3(0, 0, 2), radius: 1}
	l := NewDiffuseArea(shape, spectrum.ConstantSpectrum{C: 1}, 1, false)
	lambda := spectrum.SampleUniform(0.5)
	rng := rand.New(rand.NewPCG(3, 4))
	ctx := ctxAt(core.NewVec3(0.2, -0.1, 5))

	for i := 0; i < 100; i++ {
		ls, ok := l.SampleLi(ctx, core.NewVec2(rng.Float64(), rng.Float64()), lambda)
		if !ok {
			continue
		}
		pdf := l.PDFLi(ctx, ls.Wi)
		if math.Abs(pdf-ls.PDF) > 1e-9*math.Max(1, pdf) {
			t.Fatalf("PDFLi %v disagrees with sampled pdf %v", pdf, ls.PDF)
		}
	}
}

func TestAreaLightSampleLeStaysOnEmittingSide(t *testing.T) {
	shape := diskShape{center: core.Vec3{}, radius: 1}
	l := NewDiffuseArea(shape, spectrum.ConstantSpectrum{C: 1}, 1, false)
	lambda := spectrum.SampleUniform(0.5)
	rng := rand.New(rand.NewPCG(7, 8))

	for i := 0; i < 200; i++ {
		les, ok := l.SampleLe(
			core.NewVec2(rng.Float64(), rng.Float64()),
			core.NewVec2(rng.Float64(), rng.Float64()), lambda, 0)
		if !ok {
			t.Fatal("SampleLe failed")
		}
		if les.Ray.Direction.Dot(les.NLight) <= 0 {
			t.Fatal("one-sided light emitted into the back hemisphere")
		}
		pdfPos, pdfDir := l.PDFLe(les.Ray, les.NLight)
		if math.Abs(pdfPos-les.PDFPos) > 1e-12 {
			t.Fatalf("pdfPos %v vs %v", pdfPos, les.PDFPos)
		}
		if math.Abs(pdfDir-les.PDFDir) > 1e-9*math.Max(1, pdfDir) {
			t.Fatalf("pdfDir %v vs %v", pdfDir, les.PDFDir)
		}
	}
}

func TestInfiniteLightUniformPDF(t *testing.T) {
	l := NewUniformInfinite(spectrum.ConstantSpectrum{C: 1}, 1)
	l.Preprocess(core.Vec3{}, 5)
	lambda := spectrum.SampleUniform(0.5)

	ls, ok := l.SampleLi(ctxAt(core.Vec3{}), core.NewVec2(0.3, 0.8), lambda)
	if !ok {
		t.Fatal("infinite light sample failed")
	}
	want := 1 / (4 * math.Pi)
	if math.Abs(ls.PDF-want) > 1e-12 {
		t.Errorf("pdf %v, want uniform sphere %v", ls.PDF, want)
	}
	if pdf := l.PDFLi(ctxAt(core.Vec3{}), ls.Wi); math.Abs(pdf-want) > 1e-12 {
		t.Errorf("PDFLi %v, want %v", pdf, want)
	}

	// Every escaped ray sees the same radiance
	r := core.NewRay(core.Vec3{}, core.NewVec3(1, 0, 0))
	if math.Abs(l.Le(r, lambda)[0]-1) > 1e-12 {
		t.Error("Le should be the constant radiance")
	}
}

func TestHandleTypeClassification(t *testing.T) {
	shape := diskShape{center: core.Vec3{}, radius: 1}
	cases := []struct {
		light Light
		typ   LightType
	}{
		{FromPoint(NewPoint(core.Vec3{}, spectrum.ConstantSpectrum{C: 1}, 1)), DeltaPosition},
		{FromDistant(NewDistant(core.NewVec3(0, 0, -1), spectrum.ConstantSpectrum{C: 1}, 1)), DeltaDirection},
		{FromDiffuseArea(NewDiffuseArea(shape, spectrum.ConstantSpectrum{C: 1}, 1, false)), Area},
		{FromUniformInfinite(NewUniformInfinite(spectrum.ConstantSpectrum{C: 1}, 1)), Infinite},
	}
	for i, c := range cases {
		if c.light.Type() != c.typ {
			t.Errorf("case %d: type %v, want %v", i, c.light.Type(), c.typ)
		}
	}
	if !cases[0].light.Type().IsDelta() || cases[2].light.Type().IsDelta() {
		t.Error("delta classification wrong")
	}

	// Delta lights report zero PDFLi so MIS never weights against them
	if cases[0].light.PDFLi(ctxAt(core.Vec3{}), core.NewVec3(0, 0, 1)) != 0 {
		t.Error("delta light PDFLi must be zero")
	}

	finite, infinite := Partition([]Light{cases[0].light, cases[3].light, cases[2].light})
	if len(finite) != 2 || len(infinite) != 1 {
		t.Errorf("partition: %d finite, %d infinite", len(finite), len(infinite))
	}
}

func TestUniformSampler(t *testing.T) {
	ls := []Light{
		FromPoint(NewPoint(core.Vec3{}, spectrum.ConstantSpectrum{C: 1}, 1)),
		FromPoint(NewPoint(core.NewVec3(1, 0, 0), spectrum.ConstantSpectrum{C: 1}, 1)),
	}
	s := NewUniformSampler(ls)

	l, pmf, ok := s.Sample(0.1)
	if !ok || pmf != 0.5 {
		t.Fatalf("sample: ok=%v pmf=%v", ok, pmf)
	}
	if s.PMF(l) != 0.5 {
		t.Error("PMF should be 1/n")
	}

	empty := NewUniformSampler(nil)
	if _, _, ok := empty.Sample(0.5); ok {
		t.Error("empty sampler should fail")
	}
}

func TestPowerSamplerProportional(t *testing.T) {
	dim := FromPoint(NewPoint(core.Vec3{}, spectrum.ConstantSpectrum{C: 1}, 1))
	bright := FromPoint(NewPoint(core.NewVec3(1, 0, 0), spectrum.ConstantSpectrum{C: 9}, 1))
	s := NewPowerSampler([]Light{dim, bright})

	if math.Abs(s.PMF(dim)-0.1) > 1e-9 || math.Abs(s.PMF(bright)-0.9) > 1e-9 {
		t.Errorf("power pmf: dim=%v bright=%v", s.PMF(dim), s.PMF(bright))
	}

	// Sampling frequencies follow the pmf
	rng := rand.New(rand.NewPCG(11, 13))
	const n = 10000
	brightCount := 0
	for i := 0; i < n; i++ {
		l, _, _ := s.Sample(rng.Float64())
		if l.Word() == bright.Word() {
			brightCount++
		}
	}
	if f := float64(brightCount) / n; math.Abs(f-0.9) > 0.02 {
		t.Errorf("bright light picked %v of the time, want 0.9", f)
	}

	h := FromPowerSampler(s)
	if _, pmf, ok := h.Sample(0.95); !ok || math.Abs(pmf-0.9) > 1e-9 {
		t.Error("handle dispatch to power sampler failed")
	}
}
