package integrator

import (
	"image"
	"math"
	"math/rand/v2"
	"runtime/debug"
	"testing"

	"github.com/calebh/go-spectral-pathtracer/pkg/camera"
	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/film"
	"github.com/calebh/go-spectral-pathtracer/pkg/geometry"
	"github.com/calebh/go-spectral-pathtracer/pkg/lights"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
	"github.com/calebh/go-spectral-pathtracer/pkg/sampler"
	"github.com/calebh/go-spectral-pathtracer/pkg/scene"
	"github.com/calebh/go-spectral-pathtracer/pkg/scratch"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
	"github.com/calebh/go-spectral-pathtracer/pkg/tagged"
)

func testFilm(w, h int) film.Film {
	return film.FromRGB(film.NewRGBFilm(image.Rect(0, 0, w, h)))
}

func testSampler(seed uint64) sampler.Sampler {
	return sampler.FromIndependent(sampler.NewIndependent(16, seed))
}

func testCamera(w, h int) camera.Camera {
	return camera.FromPerspective(camera.NewPerspective(camera.PerspectiveOptions{
		Position: core.NewVec3(0, 0, 1),
		LookAt:   core.NewVec3(0, 0, -1),
		Up:       core.NewVec3(0, 1, 0),
		VFov:     45,
		Width:    w,
		Height:   h,
	}))
}

func quietOptions() Options {
	opts := NewOptions()
	opts.Logger = nil
	return opts
}

func namedScene(t *testing.T, name string) *scene.Scene {
	t.Helper()
	s, err := scene.Named(name, 16, 16)
	if err != nil {
		t.Fatalf("scene %q: %v", name, err)
	}
	return s
}

// averageLi estimates the mean RGB radiance an evaluator returns for a
// fixed camera ray.
func averageLi(f film.Film, ev LiEvaluator, smp sampler.Sampler, r core.Ray, n int) core.Vec3 {
	buf := scratch.NewBuffer()
	sum := core.Vec3{}
	for i := 0; i < n; i++ {
		smp.StartPixelSample(image.Pt(0, 0), i, 0)
		buf.Reset()
		lambda := f.SampleWavelengths(smp.Get1D())
		l, _ := ev.Li(core.RayDifferential{Ray: r}, lambda, smp, buf)
		sum = sum.Add(l.ToRGB(lambda))
	}
	return sum.Multiply(1 / float64(n))
}

func checkChannels(t *testing.T, got core.Vec3, want, tol float64) {
	t.Helper()
	for _, c := range []float64{got.X, got.Y, got.Z} {
		if math.Abs(c-want) > tol {
			t.Errorf("radiance = %v, want %.4f per channel (tol %.4f)", got, want, tol)
			return
		}
	}
}

func TestPathBlackSceneIsZero(t *testing.T) {
	b := scene.NewBuilder()
	gray := b.AddMaterial(&material.DiffuseMaterial{Reflectance: spectrum.ConstantSpectrum{C: 0.5}})
	b.AddShape(geometry.NewSphere(core.NewVec3(0, 0, -3), 1), gray)
	s := b.Build(testCamera(16, 16))

	f := testFilm(4, 4)
	pi := NewPath(s, f, testSampler(1), quietOptions())
	got := averageLi(f, pi, testSampler(1), core.NewRay(core.Vec3{}, core.NewVec3(0, 0, -1)), 64)
	if !got.IsZero() {
		t.Errorf("lightless scene returned %v, want zero", got)
	}
}

// The furnace: a convex gray sphere in a unit uniform environment.
// Every estimator must converge to albedo * 1 = 0.5.
func TestPathFurnace(t *testing.T) {
	s := namedScene(t, "furnace")
	f := testFilm(4, 4)
	opts := quietOptions()
	pi := NewPath(s, f, testSampler(7), opts)

	got := averageLi(f, pi, testSampler(7), core.NewRay(core.Vec3{}, core.NewVec3(0, 0, -1)), 3000)
	checkChannels(t, got, 0.5, 0.025)
}

func TestSimplePathFurnace(t *testing.T) {
	s := namedScene(t, "furnace")
	f := testFilm(4, 4)
	sp := NewSimplePath(s, f, testSampler(11), quietOptions())

	got := averageLi(f, sp, testSampler(11), core.NewRay(core.Vec3{}, core.NewVec3(0, 0, -1)), 3000)
	checkChannels(t, got, 0.5, 0.025)
}

func TestRandomWalkFurnace(t *testing.T) {
	s := namedScene(t, "furnace")
	f := testFilm(4, 4)
	rw := NewRandomWalk(s, f, testSampler(13), quietOptions())

	got := averageLi(f, rw, testSampler(13), core.NewRay(core.Vec3{}, core.NewVec3(0, 0, -1)), 8000)
	checkChannels(t, got, 0.5, 0.05)
}

func TestVolPathFurnaceWithoutMedia(t *testing.T) {
	s := namedScene(t, "furnace")
	f := testFilm(4, 4)
	vp := NewVolPath(s, f, testSampler(17), quietOptions())

	got := averageLi(f, vp, testSampler(17), core.NewRay(core.Vec3{}, core.NewVec3(0, 0, -1)), 3000)
	checkChannels(t, got, 0.5, 0.025)
}

// A unit point light at height d over a white plane: the radiance
// leaving the plane directly below the light is rho * I / (pi * d^2).
func TestPathPointLightPlane(t *testing.T) {
	s := namedScene(t, "point-plane")
	f := testFilm(4, 4)
	pi := NewPath(s, f, testSampler(19), quietOptions())

	r := core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0))
	got := averageLi(f, pi, testSampler(19), r, 800)
	want := 1 / (math.Pi * 4)
	checkChannels(t, got, want, 0.05*want+0.002)
}

// A point light inside a diffuse sphere bounces forever; the interior
// radiance has the closed form rho*I/(pi*R^2*(1-rho)). Deep paths only
// survive Russian roulette, so any bias there shows up directly.
func TestRussianRouletteUnbiased(t *testing.T) {
	const radius = 10.0
	b := scene.NewBuilder()
	gray := b.AddMaterial(&material.DiffuseMaterial{Reflectance: spectrum.ConstantSpectrum{C: 0.5}})
	b.AddShape(geometry.NewSphere(core.Vec3{}, radius), gray)
	b.AddLight(lights.FromPoint(lights.NewPoint(core.Vec3{}, spectrum.ConstantSpectrum{C: 1}, 1)))
	s := b.Build(testCamera(16, 16))

	f := testFilm(4, 4)
	opts := quietOptions()
	opts.MaxDepth = 64
	pi := NewPath(s, f, testSampler(23), opts)

	r := core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(0, 0, -1))
	got := averageLi(f, pi, testSampler(23), r, 6000)

	// rho = 0.5: L = 0.5 * 1 / (pi * 100 * 0.5)
	want := 1 / (math.Pi * radius * radius)
	checkChannels(t, got, want, 0.07*want)
}

func TestTrHomogeneousFog(t *testing.T) {
	s := namedScene(t, "fog")
	f := testFilm(4, 4)
	vp := NewVolPath(s, f, testSampler(29), quietOptions())

	// A segment inside the box that crosses no geometry
	const dist = 200.0
	r := core.NewRay(core.NewVec3(278, 278, -50), core.NewVec3(1, 0, 0))
	r.TMax = dist
	r.Medium = s.CameraMedium.Word()

	rng := rand.New(rand.NewPCG(31, 31))
	lambda := f.SampleWavelengths(0.5)
	sum := 0.0
	const n = 5000
	for i := 0; i < n; i++ {
		tr := vp.Tr(r, lambda, rng.Float64)
		sum += tr.Average()
	}
	got := sum / n

	// sigma_t = sigma_a + sigma_s = 0.0012
	want := math.Exp(-0.0012 * dist)
	if math.Abs(got-want) > 0.03 {
		t.Errorf("Tr = %.4f, want %.4f", got, want)
	}
}

func TestRenderFillsStats(t *testing.T) {
	s := namedScene(t, "furnace")
	f := testFilm(8, 8)
	opts := quietOptions()
	opts.SamplesPerPixel = 4
	opts.NumWorkers = 2
	pi := NewPath(s, f, sampler.FromIndependent(sampler.NewIndependent(4, 3)), opts)

	stats := pi.Render()
	if stats.TotalPixels != 64 {
		t.Errorf("TotalPixels = %d, want 64", stats.TotalPixels)
	}
	if stats.TotalSamples != 64*4 {
		t.Errorf("TotalSamples = %d, want %d", stats.TotalSamples, 64*4)
	}
}

func TestBDPTMatchesPathRender(t *testing.T) {
	const size = 16
	opts := quietOptions()
	opts.MaxDepth = 3
	opts.SamplesPerPixel = 16
	opts.NumWorkers = 2

	sPath, err := scene.Named("point-plane", size, size)
	if err != nil {
		t.Fatal(err)
	}
	fPath := testFilm(size, size)
	pi := NewPath(sPath, fPath, sampler.FromIndependent(sampler.NewIndependent(16, 41)), opts)
	pi.Render()

	sBDPT, err := scene.Named("point-plane", size, size)
	if err != nil {
		t.Fatal(err)
	}
	fBDPT := testFilm(size, size)
	bi := NewBDPT(sBDPT, fBDPT, sampler.FromIndependent(sampler.NewIndependent(16, 43)), opts)
	bi.Render()

	// Compare a center pixel; both estimators target the same image
	p := image.Pt(size/2, size/2+2)
	want := fPath.PixelRGB(p, 1)
	got := fBDPT.PixelRGB(p, bi.SplatScale())
	for i, pair := range [][2]float64{{got.X, want.X}, {got.Y, want.Y}, {got.Z, want.Z}} {
		if pair[1] < 1e-4 {
			continue
		}
		if math.Abs(pair[0]-pair[1])/pair[1] > 0.2 {
			t.Errorf("channel %d: bdpt %.4f vs path %.4f", i, pair[0], pair[1])
		}
	}
}

func TestMLTPointLightPlane(t *testing.T) {
	const size = 8
	opts := quietOptions()
	opts.MaxDepth = 3
	opts.SamplesPerPixel = 32
	opts.NumWorkers = 2
	opts.MutationsPerPixel = 400
	opts.BootstrapSamples = 2048
	opts.Chains = 16

	sPath, err := scene.Named("point-plane", size, size)
	if err != nil {
		t.Fatal(err)
	}
	fPath := testFilm(size, size)
	pi := NewPath(sPath, fPath, sampler.FromIndependent(sampler.NewIndependent(32, 47)), opts)
	pi.Render()

	sMLT, err := scene.Named("point-plane", size, size)
	if err != nil {
		t.Fatal(err)
	}
	fMLT := testFilm(size, size)
	mi := NewMLT(sMLT, fMLT, opts)
	mi.Render()
	if mi.SplatScale() == 0 {
		t.Fatal("metropolis found no contribution in an emitting scene")
	}

	// Chains correlate pixels, so compare image totals
	var wantSum, gotSum float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			w := fPath.PixelRGB(image.Pt(x, y), 1)
			g := fMLT.PixelRGB(image.Pt(x, y), mi.SplatScale())
			wantSum += w.X + w.Y + w.Z
			gotSum += g.X + g.Y + g.Z
		}
	}
	if wantSum == 0 {
		t.Fatal("path reference image is black")
	}
	if math.Abs(gotSum-wantSum)/wantSum > 0.25 {
		t.Errorf("mlt image total %.4f vs path %.4f", gotSum, wantSum)
	}
}

// Visible points hold BSDFs allocated in the camera-pass scratch
// buffers; those buffers must stay reachable until the photon pass has
// gathered into every visible point, even under collection pressure.
func TestSPPMVisiblePointsSurviveCollection(t *testing.T) {
	old := debug.SetGCPercent(1)
	defer debug.SetGCPercent(old)

	const size = 8
	opts := quietOptions()
	opts.MaxDepth = 3
	opts.NumWorkers = 2
	opts.Iterations = 2
	opts.PhotonsPerIteration = 512

	s := namedScene(t, "point-plane")
	f := testFilm(size, size)
	si := NewSPPM(s, f, sampler.FromIndependent(sampler.NewIndependent(2, 61)), opts)
	si.Render()

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			rgb := f.PixelRGB(image.Pt(x, y), 1)
			for _, c := range []float64{rgb.X, rgb.Y, rgb.Z} {
				if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
					t.Fatalf("pixel (%d,%d) = %v under collection pressure", x, y, rgb)
				}
			}
		}
	}
}

// Chain samplers get one handle each; neither bootstrap scoring nor
// mutations may grow the process-lifetime pin registry.
func TestMLTDoesNotPinPerMutation(t *testing.T) {
	const size = 4
	opts := quietOptions()
	opts.MaxDepth = 3
	opts.NumWorkers = 2
	opts.MutationsPerPixel = 200
	opts.BootstrapSamples = 256
	opts.Chains = 8

	s := namedScene(t, "point-plane")
	f := testFilm(size, size)
	mi := NewMLT(s, f, opts)

	before := tagged.Pinned()
	mi.Render()
	grown := tagged.Pinned() - before
	if grown > opts.Chains {
		t.Errorf("render pinned %d objects, want at most %d", grown, opts.Chains)
	}
}

// The t=1 splat normalization must track the sample count Render
// actually uses, whether that comes from the options or the sampler.
func TestBDPTSplatScaleMatchesRenderSampleCount(t *testing.T) {
	s := namedScene(t, "point-plane")
	opts := quietOptions()
	opts.SamplesPerPixel = 8
	bi := NewBDPT(s, testFilm(4, 4), sampler.FromIndependent(sampler.NewIndependent(16, 67)), opts)
	if got := bi.SplatScale(); got != 1.0/8 {
		t.Errorf("SplatScale = %v, want %v", got, 1.0/8)
	}

	opts.SamplesPerPixel = 0
	bi = NewBDPT(s, testFilm(4, 4), sampler.FromIndependent(sampler.NewIndependent(16, 71)), opts)
	if got := bi.SplatScale(); got != 1.0/16 {
		t.Errorf("SplatScale = %v, want %v", got, 1.0/16)
	}
}

func TestSPPMPointLightPlane(t *testing.T) {
	const size = 8
	opts := quietOptions()
	opts.MaxDepth = 3
	opts.NumWorkers = 2
	opts.Iterations = 4
	opts.PhotonsPerIteration = 2048

	sPath, err := scene.Named("point-plane", size, size)
	if err != nil {
		t.Fatal(err)
	}
	fPath := testFilm(size, size)
	pOpts := opts
	pOpts.SamplesPerPixel = 32
	pi := NewPath(sPath, fPath, sampler.FromIndependent(sampler.NewIndependent(32, 53)), pOpts)
	pi.Render()

	sSPPM, err := scene.Named("point-plane", size, size)
	if err != nil {
		t.Fatal(err)
	}
	fSPPM := testFilm(size, size)
	si := NewSPPM(sSPPM, fSPPM, sampler.FromIndependent(sampler.NewIndependent(4, 59)), opts)
	si.Render()

	// The scene is almost all direct lighting, which SPPM's camera
	// pass estimates the same way the path tracer does.
	p := image.Pt(size/2, size/2+1)
	want := fPath.PixelRGB(p, 1)
	got := fSPPM.PixelRGB(p, 1)
	for i, pair := range [][2]float64{{got.X, want.X}, {got.Y, want.Y}, {got.Z, want.Z}} {
		if pair[1] < 1e-4 {
			continue
		}
		if math.Abs(pair[0]-pair[1])/pair[1] > 0.2 {
			t.Errorf("channel %d: sppm %.4f vs path %.4f", i, pair[0], pair[1])
		}
	}
}
