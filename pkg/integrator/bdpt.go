package integrator

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/film"
	"github.com/calebh/go-spectral-pathtracer/pkg/lights"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
	"github.com/calebh/go-spectral-pathtracer/pkg/sampler"
	"github.com/calebh/go-spectral-pathtracer/pkg/scene"
	"github.com/calebh/go-spectral-pathtracer/pkg/scratch"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

// BDPTIntegrator traces a subpath from the camera and one from a
// light, connects every (s,t) prefix pair, and combines the resulting
// estimators with multiple importance sampling over path-space
// densities. Strategies that land on another pixel (t=1) go through
// the film's splat channel.
type BDPTIntegrator struct {
	ImageTileIntegrator
	maxDepth     int
	lightSampler lights.Sampler
}

// NewBDPT creates a bidirectional path integrator
func NewBDPT(s *scene.Scene, f film.Film, smp sampler.Sampler, opts Options) *BDPTIntegrator {
	bi := &BDPTIntegrator{
		maxDepth:     opts.MaxDepth,
		lightSampler: lights.FromUniformSampler(lights.NewUniformSampler(s.Lights)),
	}
	bi.ImageTileIntegrator = newTileIntegrator(s, f, smp, bi, opts)
	return bi
}

// SplatScale returns the factor splat contributions must be scaled by
// when the film is resolved. Each pixel sample runs every t=1
// strategy once, so splats average over samples per pixel.
func (bi *BDPTIntegrator) SplatScale() float64 {
	return 1 / float64(bi.effectiveSPP())
}

type vertexKind int

const (
	vertexCamera vertexKind = iota
	vertexLight
	vertexSurface
)

// pathVertex is one vertex of a camera or light subpath. The pdfFwd
// and pdfRev fields hold area densities: the probability per unit area
// of sampling this vertex from the previous one in each walk direction.
type pathVertex struct {
	kind vertexKind

	pi   core.Point3fi
	ng   core.Vec3 // Geometric normal, zero for the camera and in media
	ns   core.Vec3 // Shading normal
	time float64

	beta spectrum.SampledSpectrum

	si      material.SurfaceInteraction
	bsdf    material.BSDF
	hasBSDF bool

	light    lights.Light
	delta    bool // Sampled through a delta distribution
	infinite bool // Endpoint of an escaped camera ray

	pdfFwd float64
	pdfRev float64
}

func (v *pathVertex) p() core.Vec3 { return v.pi.Value }

func (v *pathVertex) onSurface() bool { return !v.ng.IsZero() }

func (v *pathVertex) connectible() bool {
	switch v.kind {
	case vertexCamera:
		return true
	case vertexLight:
		return v.light.Type() != lights.DeltaDirection
	default:
		return v.bsdf.Flags().IsNonSpecular()
	}
}

func (v *pathVertex) isLight() bool {
	return v.kind == vertexLight || !v.si.AreaLight.IsNil()
}

func (v *pathVertex) isDeltaLight() bool {
	return v.kind == vertexLight && !v.light.IsNil() && v.light.Type().IsDelta()
}

// f evaluates the vertex BSDF toward another vertex, without the
// cosine term.
func (v *pathVertex) f(next *pathVertex, mode material.TransportMode) spectrum.SampledSpectrum {
	wi := next.p().Subtract(v.p())
	if wi.LengthSquared() == 0 {
		return spectrum.SampledSpectrum{}
	}
	wi = wi.Normalize()
	if !v.hasBSDF {
		return spectrum.SampledSpectrum{}
	}
	return v.bsdf.F(v.si.Wo, wi, mode)
}

// Li runs both subpaths and connects every strategy pair
func (bi *BDPTIntegrator) Li(rd core.RayDifferential, lambda spectrum.SampledWavelengths, smp sampler.Sampler, buf *scratch.Buffer) (spectrum.SampledSpectrum, *film.VisibleSurface) {
	cameraVs := bi.cameraSubpath(rd.Ray, lambda, smp, buf)
	lightVs := bi.lightSubpath(rd.Ray.Time, lambda, smp, buf)

	l := spectrum.SampledSpectrum{}
	for t := 1; t <= len(cameraVs); t++ {
		for s := 0; s <= len(lightVs); s++ {
			depth := s + t - 2
			if (s == 1 && t == 1) || depth < 0 || depth > bi.maxDepth {
				continue
			}
			lst, pRaster, splat := bi.connect(cameraVs, lightVs, s, t, lambda, smp)
			if splat {
				bi.film.AddSplat(pRaster, lst, lambda)
			} else {
				l = l.Add(lst)
			}
		}
	}
	return l, nil
}

// cameraSubpath walks from the camera, producing up to maxDepth+2
// vertices.
func (bi *BDPTIntegrator) cameraSubpath(r core.Ray, lambda spectrum.SampledWavelengths, smp sampler.Sampler, buf *scratch.Buffer) []pathVertex {
	path := make([]pathVertex, 0, bi.maxDepth+2)
	path = append(path, pathVertex{
		kind: vertexCamera,
		pi:   core.NewPoint3fi(r.Origin),
		time: r.Time,
		beta: spectrum.One(),
	})
	_, pdfDir := bi.camera.PDFWe(r)
	return bi.randomWalk(path, r, spectrum.One(), pdfDir, bi.maxDepth+1, material.Radiance, lambda, smp, buf)
}

// lightSubpath samples a light ray and walks from it, producing up to
// maxDepth+1 vertices.
func (bi *BDPTIntegrator) lightSubpath(time float64, lambda spectrum.SampledWavelengths, smp sampler.Sampler, buf *scratch.Buffer) []pathVertex {
	light, pmf, ok := bi.lightSampler.Sample(smp.Get1D())
	if !ok {
		return nil
	}
	les, ok := light.SampleLe(smp.Get2D(), smp.Get2D(), lambda, time)
	if !ok || les.PDFPos == 0 || les.PDFDir == 0 || les.L.IsZero() {
		return nil
	}

	path := make([]pathVertex, 0, bi.maxDepth+1)
	v0 := pathVertex{
		kind:   vertexLight,
		pi:     core.NewPoint3fi(les.Ray.Origin),
		ng:     les.NLight,
		ns:     les.NLight,
		time:   time,
		light:  light,
		beta:   les.L.Scale(1 / (pmf * les.PDFPos)),
		pdfFwd: pmf * les.PDFPos,
		delta:  light.Type().IsDelta(),
	}
	path = append(path, v0)

	cosStart := 1.0
	if !les.NLight.IsZero() {
		cosStart = les.Ray.Direction.AbsDot(les.NLight)
	}
	beta := les.L.Scale(cosStart / (pmf * les.PDFPos * les.PDFDir))
	return bi.randomWalk(path, les.Ray, beta, les.PDFDir, bi.maxDepth, material.Importance, lambda, smp, buf)
}

// randomWalk extends a subpath by BSDF sampling until it escapes,
// hits the vertex budget, or samples a zero contribution.
func (bi *BDPTIntegrator) randomWalk(path []pathVertex, r core.Ray, beta spectrum.SampledSpectrum, pdfDir float64, maxVertices int, mode material.TransportMode, lambda spectrum.SampledWavelengths, smp sampler.Sampler, buf *scratch.Buffer) []pathVertex {
	if maxVertices == 0 || pdfDir == 0 || beta.IsZero() {
		return path
	}
	pdfFwd := pdfDir

	for {
		si, _, hit := bi.Intersect(r, r.TMax)
		if !hit {
			// Record escaped camera rays as an endpoint at infinity so
			// the s=0 strategy can pick up environment radiance.
			if mode == material.Radiance && len(bi.infiniteLights) > 0 {
				dir := r.Direction.Normalize()
				path = append(path, pathVertex{
					kind:     vertexLight,
					pi:       core.NewPoint3fi(r.Origin.Add(dir.Multiply(2 * bi.sceneRadius))),
					time:     r.Time,
					beta:     beta,
					infinite: true,
					pdfFwd:   pdfFwd,
				})
			}
			return path
		}

		bsdf, ok := bi.bsdfAt(&si, &lambda, buf)
		if !ok {
			r = si.SpawnRay(r.Direction)
			continue
		}

		prev := &path[len(path)-1]
		v := pathVertex{
			kind:    vertexSurface,
			pi:      si.Point,
			ng:      si.Normal,
			ns:      si.Shading.Normal,
			time:    si.Time,
			beta:    beta,
			si:      si,
			bsdf:    bsdf,
			hasBSDF: true,
		}
		v.pdfFwd = bi.convertDensity(pdfFwd, prev, &v)
		path = append(path, v)
		if len(path) >= maxVertices+1 {
			return path
		}

		wo := si.Wo
		bs, ok := bsdf.SampleF(wo, smp.Get1D(), smp.Get2D(), mode, material.SampleAll)
		if !ok {
			return path
		}
		pdfFwd = bs.PDF
		if bs.PDFIsProportional {
			pdfFwd = bsdf.PDF(wo, bs.Wi, mode, material.SampleAll)
		}
		pdfRev := bsdf.PDF(bs.Wi, wo, mode, material.SampleAll)

		beta = beta.Mul(bs.F.Scale(bs.Wi.AbsDot(si.Shading.Normal) / bs.PDF))
		if mode == material.Importance {
			beta = beta.Scale(shadingNormalCorrection(&si, wo, bs.Wi))
		}
		if bs.IsSpecular() {
			path[len(path)-1].delta = true
			pdfFwd = 0
			pdfRev = 0
		}

		last := len(path) - 1
		path[last-1].pdfRev = bi.convertDensity(pdfRev, &path[last], &path[last-1])

		if beta.IsZero() {
			return path
		}
		r = si.SpawnRay(bs.Wi)
	}
}

// shadingNormalCorrection is the symmetry factor light-tracing needs
// when shading normals differ from geometric ones.
func shadingNormalCorrection(si *material.SurfaceInteraction, wo, wi core.Vec3) float64 {
	denom := wo.AbsDot(si.Normal) * wi.AbsDot(si.Shading.Normal)
	if denom == 0 {
		return 0
	}
	return wo.AbsDot(si.Shading.Normal) * wi.AbsDot(si.Normal) / denom
}

// convertDensity turns a solid-angle density at from into an area
// density at to. Densities at infinity stay in solid-angle measure.
func (bi *BDPTIntegrator) convertDensity(pdf float64, from, to *pathVertex) float64 {
	if to.infinite {
		return pdf
	}
	w := to.p().Subtract(from.p())
	dist2 := w.LengthSquared()
	if dist2 == 0 {
		return 0
	}
	invDist2 := 1 / dist2
	if to.onSurface() {
		pdf *= to.ng.AbsDot(w.Multiply(1 / w.Length()))
	}
	return pdf * invDist2
}

// connect evaluates one (s,t) strategy. The third return value marks
// t=1 contributions, which belong to the raster position returned
// rather than the current pixel.
func (bi *BDPTIntegrator) connect(cameraVs, lightVs []pathVertex, s, t int, lambda spectrum.SampledWavelengths, smp sampler.Sampler) (spectrum.SampledSpectrum, core.Vec2, bool) {
	zero := spectrum.SampledSpectrum{}
	var l spectrum.SampledSpectrum
	var sampled pathVertex
	var pRaster core.Vec2

	switch {
	case s == 0:
		// The camera subpath alone; its endpoint must be emissive
		pt := &cameraVs[t-1]
		if !pt.isLight() {
			return zero, pRaster, false
		}
		l = pt.beta.Mul(bi.vertexLe(pt, &cameraVs[t-2], lambda))

	case t == 1:
		// Connect the light subpath straight to the lens
		qs := &lightVs[s-1]
		if !qs.connectible() {
			return zero, pRaster, false
		}
		wi, dist, pdf, we, raster, ok := bi.camera.SampleWi(qs.p(), smp.Get2D())
		if !ok || pdf == 0 || we == 0 {
			return zero, pRaster, false
		}
		pRaster = raster
		lensP := qs.p().Add(wi.Multiply(dist))
		sampled = pathVertex{
			kind: vertexCamera,
			pi:   core.NewPoint3fi(lensP),
			time: qs.time,
			beta: spectrum.One().Scale(we / pdf),
		}
		l = qs.beta.Mul(qs.f(&sampled, material.Importance)).Mul(sampled.beta)
		if l.IsZero() {
			return zero, pRaster, false
		}
		if qs.onSurface() {
			l = l.Scale(wi.AbsDot(qs.ns))
		}
		shadow := core.SpawnRayTo(qs.pi, qs.ng, qs.time, sampled.pi, core.Vec3{})
		if !bi.Unoccluded(shadow) {
			return zero, pRaster, false
		}

	case s == 1:
		// Resample a light for the camera subpath endpoint
		pt := &cameraVs[t-1]
		if !pt.connectible() {
			return zero, pRaster, false
		}
		light, pmf, ok := bi.lightSampler.Sample(smp.Get1D())
		if !ok {
			return zero, pRaster, false
		}
		ctx := lights.SampleContext{P: pt.pi, N: pt.ng, Ns: pt.ns}
		ls, ok := light.SampleLi(ctx, smp.Get2D(), lambda)
		if !ok || ls.PDF == 0 || ls.L.IsZero() {
			return zero, pRaster, false
		}
		sampled = pathVertex{
			kind:  vertexLight,
			pi:    ls.PLight,
			ng:    ls.NLight,
			ns:    ls.NLight,
			time:  pt.time,
			light: light,
			beta:  ls.L.Scale(1 / (pmf * ls.PDF)),
			delta: light.Type().IsDelta(),
		}
		sampled.pdfFwd = bi.pdfLightOrigin(&sampled, pt)
		l = pt.beta.Mul(pt.f(&sampled, material.Radiance)).Mul(sampled.beta)
		if l.IsZero() {
			return zero, pRaster, false
		}
		if pt.onSurface() {
			l = l.Scale(ls.Wi.AbsDot(pt.ns))
		}
		shadow := core.SpawnRayTo(pt.pi, pt.ng, pt.time, sampled.pi, core.Vec3{})
		if !bi.Unoccluded(shadow) {
			return zero, pRaster, false
		}

	default:
		qs, pt := &lightVs[s-1], &cameraVs[t-1]
		if !qs.connectible() || !pt.connectible() {
			return zero, pRaster, false
		}
		l = qs.beta.Mul(qs.f(pt, material.Importance)).Mul(pt.f(qs, material.Radiance)).Mul(pt.beta)
		if l.IsZero() {
			return zero, pRaster, false
		}
		g, visible := bi.geometryTerm(qs, pt)
		if !visible || g == 0 {
			return zero, pRaster, false
		}
		l = l.Scale(g)
	}

	if l.IsZero() {
		return zero, pRaster, false
	}
	w := bi.misWeight(cameraVs, lightVs, sampled, s, t)
	return l.Scale(w), pRaster, t == 1
}

// geometryTerm is the throughput of a connecting segment: cosines over
// squared distance, gated by visibility.
func (bi *BDPTIntegrator) geometryTerm(a, b *pathVertex) (float64, bool) {
	d := b.p().Subtract(a.p())
	dist2 := d.LengthSquared()
	if dist2 == 0 {
		return 0, false
	}
	g := 1 / dist2
	w := d.Multiply(1 / d.Length())
	if a.onSurface() {
		g *= a.ns.AbsDot(w)
	}
	if b.onSurface() {
		g *= b.ns.AbsDot(w)
	}
	shadow := core.SpawnRayTo(a.pi, a.ng, a.time, b.pi, b.ng)
	return g, bi.Unoccluded(shadow)
}

// vertexLe returns the radiance a path endpoint emits back toward the
// previous vertex.
func (bi *BDPTIntegrator) vertexLe(v, prev *pathVertex, lambda spectrum.SampledWavelengths) spectrum.SampledSpectrum {
	w := v.p().Subtract(prev.p())
	if w.LengthSquared() == 0 {
		return spectrum.SampledSpectrum{}
	}
	w = w.Normalize()
	if v.infinite {
		r := core.NewRay(prev.p(), w)
		return bi.escapedRadiance(r, lambda)
	}
	light := lights.FromWord(v.si.AreaLight)
	if light.IsNil() {
		return spectrum.SampledSpectrum{}
	}
	return light.L(v.p(), v.ng, w.Negate(), lambda)
}

// vertexPdf returns the area density with which v generates next,
// given the walk arrived at v from prev.
func (bi *BDPTIntegrator) vertexPdf(v, prev, next *pathVertex) float64 {
	if v.kind == vertexLight {
		return bi.pdfLight(v, next)
	}
	wn := next.p().Subtract(v.p())
	if wn.LengthSquared() == 0 {
		return 0
	}
	wn = wn.Normalize()

	var pdf float64
	switch v.kind {
	case vertexCamera:
		_, pdf = bi.camera.PDFWe(core.NewRay(v.p(), wn))
	default:
		if prev == nil || !v.hasBSDF {
			return 0
		}
		wp := prev.p().Subtract(v.p())
		if wp.LengthSquared() == 0 {
			return 0
		}
		pdf = v.bsdf.PDF(wp.Normalize(), wn, material.Radiance, material.SampleAll)
	}
	return bi.convertDensity(pdf, v, next)
}

// pdfLight returns the area density of the light at v emitting toward
// next.
func (bi *BDPTIntegrator) pdfLight(v, next *pathVertex) float64 {
	w := next.p().Subtract(v.p())
	dist2 := w.LengthSquared()
	if dist2 == 0 {
		return 0
	}
	w = w.Multiply(1 / w.Length())

	var pdf float64
	if v.infinite {
		// Escaped-endpoint density over the scene's bounding disk
		r := bi.sceneRadius
		pdf = 1 / (math.Pi * r * r)
	} else {
		_, pdfDir := v.light.PDFLe(core.NewRay(v.p(), w), v.ng)
		pdf = pdfDir / dist2
	}
	if next.onSurface() {
		pdf *= next.ng.AbsDot(w)
	}
	return pdf
}

// pdfLightOrigin returns the density of sampling v's position as a
// light-path origin, including light selection.
func (bi *BDPTIntegrator) pdfLightOrigin(v, next *pathVertex) float64 {
	w := next.p().Subtract(v.p())
	if w.LengthSquared() == 0 {
		return 0
	}
	w = w.Normalize()

	if v.infinite {
		// Direction density summed over the infinite lights
		pdf := 0.0
		ctx := lights.SampleContext{P: next.pi}
		for _, light := range bi.infiniteLights {
			pdf += bi.lightSampler.PMF(light) * light.PDFLi(ctx, w.Negate())
		}
		return pdf
	}

	light := v.light
	if light.IsNil() {
		light = lights.FromWord(v.si.AreaLight)
	}
	if light.IsNil() {
		return 0
	}
	pdfPos, _ := light.PDFLe(core.NewRay(v.p(), w), v.ng)
	return bi.lightSampler.PMF(light) * pdfPos
}

func remap0(f float64) float64 {
	if f != 0 {
		return f
	}
	return 1
}

// misWeight computes the balance-heuristic weight of strategy (s,t)
// against every other way the same path could have been sampled.
func (bi *BDPTIntegrator) misWeight(cameraVs, lightVs []pathVertex, sampled pathVertex, s, t int) float64 {
	if s+t == 2 {
		return 1
	}

	// Work on copies so the reverse-density overrides stay local
	cv := make([]pathVertex, t)
	copy(cv, cameraVs[:t])
	lv := make([]pathVertex, s)
	copy(lv, lightVs[:s])
	if s == 1 {
		lv[0] = sampled
	} else if t == 1 {
		cv[0] = sampled
	}

	pt := &cv[t-1]
	var ptMinus *pathVertex
	if t > 1 {
		ptMinus = &cv[t-2]
	}
	var qs, qsMinus *pathVertex
	if s > 0 {
		qs = &lv[s-1]
	}
	if s > 1 {
		qsMinus = &lv[s-2]
	}

	// Override the reverse densities across the connecting edge
	pt.delta = false
	if s > 0 {
		pt.pdfRev = bi.vertexPdf(qs, qsMinus, pt)
	} else {
		pt.pdfRev = bi.pdfLightOrigin(pt, ptMinus)
	}
	if ptMinus != nil {
		if s > 0 {
			ptMinus.pdfRev = bi.vertexPdf(pt, qs, ptMinus)
		} else {
			ptMinus.pdfRev = bi.pdfLight(pt, ptMinus)
		}
	}
	if qs != nil {
		qs.delta = false
		qs.pdfRev = bi.vertexPdf(pt, ptMinus, qs)
	}
	if qsMinus != nil {
		qsMinus.pdfRev = bi.vertexPdf(qs, pt, qsMinus)
	}

	sumRi := 0.0
	ri := 1.0
	for i := t - 1; i > 0; i-- {
		ri *= remap0(cv[i].pdfRev) / remap0(cv[i].pdfFwd)
		if !cv[i].delta && !cv[i-1].delta {
			sumRi += ri
		}
	}
	ri = 1.0
	for i := s - 1; i >= 0; i-- {
		ri *= remap0(lv[i].pdfRev) / remap0(lv[i].pdfFwd)
		deltaPred := lv[0].isDeltaLight()
		if i > 0 {
			deltaPred = lv[i-1].delta
		}
		if !lv[i].delta && !deltaPred {
			sumRi += ri
		}
	}
	return 1 / (1 + sumRi)
}
