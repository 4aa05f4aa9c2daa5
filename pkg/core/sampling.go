package core

import "math"

// SampleUniformSphere maps a uniform [0,1)² sample to a uniformly
// distributed direction on the unit sphere.
func SampleUniformSphere(u Vec2) Vec3 {
	z := 1 - 2*u.X
	r := math.Sqrt(max(0, 1-z*z))
	phi := 2 * math.Pi * u.Y
	return NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}

// UniformSpherePDF is the solid-angle density of SampleUniformSphere
func UniformSpherePDF() float64 {
	return 1 / (4 * math.Pi)
}

// SampleUniformHemisphere maps a sample to a uniform direction in the
// +z hemisphere of the local frame.
func SampleUniformHemisphere(u Vec2) Vec3 {
	z := u.X
	r := math.Sqrt(max(0, 1-z*z))
	phi := 2 * math.Pi * u.Y
	return NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}

// UniformHemispherePDF is the solid-angle density of SampleUniformHemisphere
func UniformHemispherePDF() float64 {
	return 1 / (2 * math.Pi)
}

// SampleUniformDiskConcentric maps a [0,1)² sample to the unit disk
// with Shirley's concentric mapping, which preserves stratification
// better than polar mapping.
func SampleUniformDiskConcentric(u Vec2) Vec2 {
	uOffset := NewVec2(2*u.X-1, 2*u.Y-1)
	if uOffset.X == 0 && uOffset.Y == 0 {
		return Vec2{}
	}

	var theta, r float64
	if math.Abs(uOffset.X) > math.Abs(uOffset.Y) {
		r = uOffset.X
		theta = math.Pi / 4 * (uOffset.Y / uOffset.X)
	} else {
		r = uOffset.Y
		theta = math.Pi/2 - math.Pi/4*(uOffset.X/uOffset.Y)
	}
	return NewVec2(r*math.Cos(theta), r*math.Sin(theta))
}

// SampleCosineHemisphere maps a sample to a cosine-weighted direction
// in the +z hemisphere of the local frame, by lifting a concentric
// disk sample onto the hemisphere.
func SampleCosineHemisphere(u Vec2) Vec3 {
	d := SampleUniformDiskConcentric(u)
	z := math.Sqrt(max(0, 1-d.X*d.X-d.Y*d.Y))
	return NewVec3(d.X, d.Y, z)
}

// CosineHemispherePDF is the solid-angle density cos θ / π
func CosineHemispherePDF(cosTheta float64) float64 {
	return cosTheta / math.Pi
}

// SampleUniformCone samples a direction uniformly inside the cone of
// directions around +z with the given cosine of the full spread angle.
func SampleUniformCone(u Vec2, cosThetaMax float64) Vec3 {
	cosTheta := (1 - u.X) + u.X*cosThetaMax
	sinTheta := math.Sqrt(max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * u.Y
	return NewVec3(sinTheta*math.Cos(phi), sinTheta*math.Sin(phi), cosTheta)
}

// UniformConePDF is the solid-angle density of SampleUniformCone
func UniformConePDF(cosThetaMax float64) float64 {
	return 1 / (2 * math.Pi * (1 - cosThetaMax))
}

// BalanceHeuristic computes the multiple importance sampling weight
// for a sample drawn from density fPdf against a competing density
// gPdf, with nf and ng samples taken from each.
func BalanceHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	f := float64(nf) * fPdf
	g := float64(ng) * gPdf
	if f+g == 0 {
		return 0
	}
	return f / (f + g)
}

// PowerHeuristic computes the MIS weight with the exponent-2 power
// heuristic, which further reduces variance when one density is a much
// better match than the other.
func PowerHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	f := float64(nf) * fPdf
	g := float64(ng) * gPdf
	if math.IsInf(f*f, 1) {
		return 1
	}
	if f*f+g*g == 0 {
		return 0
	}
	return f * f / (f*f + g*g)
}

// SampleExponential draws from the density a·e^(-a·t) on [0, ∞)
func SampleExponential(u, a float64) float64 {
	return -math.Log(1-u) / a
}

// SampleDiscrete selects an index from a set of non-negative weights
// proportionally to weight. Returns the index, the probability of that
// choice, and the sample value remapped to [0,1) for reuse. Returns
// index -1 when all weights are zero.
func SampleDiscrete(weights []float64, u float64) (int, float64, float64) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return -1, 0, u
	}

	up := u * sum
	if up >= sum {
		up = math.Nextafter(sum, 0)
	}
	var cum float64
	for i, w := range weights {
		if up < cum+w {
			uRemapped := min((up-cum)/w, 1-machineEpsilon)
			return i, w / sum, uRemapped
		}
		cum += w
	}
	last := len(weights) - 1
	return last, weights[last] / sum, u
}

// Lerp linearly interpolates between a and b by t
func Lerp(t, a, b float64) float64 {
	return (1-t)*a + t*b
}

// Clamp constrains v to the range [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// Sqr returns x squared
func Sqr(x float64) float64 { return x * x }
