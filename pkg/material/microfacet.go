package material

import (
	"math"

	"github.com/calebh/go-spectral-pathtracer/pkg/core"
)

// TrowbridgeReitz is the GGX microfacet normal distribution with
// anisotropic roughness, sampled by visible normals.
type TrowbridgeReitz struct {
	AlphaX, AlphaY float64
}

// RoughnessToAlpha maps a perceptual roughness in [0,1] to the
// distribution parameter
func RoughnessToAlpha(roughness float64) float64 {
	return math.Sqrt(roughness)
}

// EffectivelySmooth reports whether the distribution is close enough
// to a delta that specular handling should be used instead.
func (d TrowbridgeReitz) EffectivelySmooth() bool {
	return math.Max(d.AlphaX, d.AlphaY) < 1e-3
}

// D returns the differential area of microfacets with normal wm
func (d TrowbridgeReitz) D(wm core.Vec3) float64 {
	tan2Theta := tan2Theta(wm)
	if math.IsInf(tan2Theta, 0) {
		return 0
	}
	cos4Theta := core.Sqr(cos2Theta(wm))
	if cos4Theta < 1e-16 {
		return 0
	}
	e := tan2Theta * (core.Sqr(cosPhi(wm)/d.AlphaX) + core.Sqr(sinPhi(wm)/d.AlphaY))
	return 1 / (math.Pi * d.AlphaX * d.AlphaY * cos4Theta * core.Sqr(1+e))
}

// lambda is the Smith shadowing auxiliary function
func (d TrowbridgeReitz) lambda(w core.Vec3) float64 {
	tan2Theta := tan2Theta(w)
	if math.IsInf(tan2Theta, 0) {
		return 0
	}
	alpha2 := core.Sqr(cosPhi(w)*d.AlphaX) + core.Sqr(sinPhi(w)*d.AlphaY)
	return (math.Sqrt(1+alpha2*tan2Theta) - 1) / 2
}

// G1 is the Smith masking function for a single direction
func (d TrowbridgeReitz) G1(w core.Vec3) float64 { return 1 / (1 + d.lambda(w)) }

// G is the height-correlated Smith masking-shadowing function
func (d TrowbridgeReitz) G(wo, wi core.Vec3) float64 {
	return 1 / (1 + d.lambda(wo) + d.lambda(wi))
}

// DVisible is the distribution of visible normals from wo
func (d TrowbridgeReitz) DVisible(w, wm core.Vec3) float64 {
	cosTheta := core.AbsCosTheta(w)
	if cosTheta == 0 {
		return 0
	}
	return d.G1(w) / cosTheta * d.D(wm) * w.AbsDot(wm)
}

// SampleWm samples a visible microfacet normal for direction w
func (d TrowbridgeReitz) SampleWm(w core.Vec3, u core.Vec2) core.Vec3 {
	// Transform to the hemisphere configuration
	wh := core.NewVec3(d.AlphaX*w.X, d.AlphaY*w.Y, w.Z).Normalize()
	if wh.Z < 0 {
		wh = wh.Negate()
	}

	t1 := core.NewVec3(0, 0, 1).Cross(wh)
	if wh.Z > 0.999 {
		t1 = core.NewVec3(1, 0, 0)
	} else {
		t1 = t1.Normalize()
	}
	t2 := wh.Cross(t1)

	p := core.SampleUniformDiskConcentric(u)

	// Warp the projected disk sample to account for visibility
	h := math.Sqrt(math.Max(0, 1-p.X*p.X))
	pY := core.Lerp((1+wh.Z)/2, h, p.Y)

	pz := math.Sqrt(math.Max(0, 1-p.X*p.X-pY*pY))
	nh := t1.Multiply(p.X).Add(t2.Multiply(pY)).Add(wh.Multiply(pz))
	return core.NewVec3(
		d.AlphaX*nh.X,
		d.AlphaY*nh.Y,
		math.Max(1e-6, nh.Z),
	).Normalize()
}

// PDF returns the density of SampleWm with respect to solid angle
func (d TrowbridgeReitz) PDF(w, wm core.Vec3) float64 {
	return d.DVisible(w, wm)
}

// Regularize widens a near-specular distribution
func (d *TrowbridgeReitz) Regularize() {
	if d.AlphaX < 0.3 {
		d.AlphaX = core.Clamp(2*d.AlphaX, 0.1, 0.3)
	}
	if d.AlphaY < 0.3 {
		d.AlphaY = core.Clamp(2*d.AlphaY, 0.1, 0.3)
	}
}

// Local-frame trigonometry helpers, valid for unit vectors with the
// normal along +z.
func cos2Theta(w core.Vec3) float64 { return w.Z * w.Z }

func sin2Theta(w core.Vec3) float64 { return math.Max(0, 1-cos2Theta(w)) }

func tan2Theta(w core.Vec3) float64 { return sin2Theta(w) / cos2Theta(w) }

func sinTheta(w core.Vec3) float64 { return math.Sqrt(sin2Theta(w)) }

func cosPhi(w core.Vec3) float64 {
	s := sinTheta(w)
	if s == 0 {
		return 1
	}
	return core.Clamp(w.X/s, -1, 1)
}

func sinPhi(w core.Vec3) float64 {
	s := sinTheta(w)
	if s == 0 {
		return 0
	}
	return core.Clamp(w.Y/s, -1, 1)
}
