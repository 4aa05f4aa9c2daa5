package core

import (
	"math"
	"testing"
)

func TestVec3BasicOperations(t *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(4, 5, 6)

	if got := a.Add(b); got != NewVec3(5, 7, 9) {
		t.Errorf("Add: got %v", got)
	}
	if got := b.Subtract(a); got != NewVec3(3, 3, 3) {
		t.Errorf("Subtract: got %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot: got %v, want 32", got)
	}
	if got := a.Cross(b); got != NewVec3(-3, 6, -3) {
		t.Errorf("Cross: got %v", got)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := NewVec3(3, 4, 0).Normalize()
	if math.Abs(v.Length()-1) > 1e-12 {
		t.Errorf("normalized length = %v, want 1", v.Length())
	}

	// Zero vector normalizes to itself rather than NaN
	z := Vec3{}.Normalize()
	if !z.IsZero() {
		t.Errorf("zero normalize = %v, want zero", z)
	}
}

func TestVec3Reflect(t *testing.T) {
	v := NewVec3(1, -1, 0)
	n := NewVec3(0, 1, 0)
	if got := v.Reflect(n); got != NewVec3(1, 1, 0) {
		t.Errorf("Reflect: got %v, want (1,1,0)", got)
	}
}

func TestRefract(t *testing.T) {
	// Normal incidence passes straight through
	wi := NewVec3(0, 0, 1)
	n := NewVec3(0, 0, 1)
	wt, _, ok := Refract(wi, n, 1.5)
	if !ok {
		t.Fatal("normal incidence should refract")
	}
	if math.Abs(wt.X) > 1e-12 || math.Abs(wt.Y) > 1e-12 || wt.Z >= 0 {
		t.Errorf("normal incidence refraction = %v", wt)
	}

	// Grazing exit from dense medium triggers total internal reflection
	wi = NewVec3(math.Sqrt(1-0.01), 0, 0.1).Normalize().Negate()
	_, _, ok = Refract(wi, n, 1.5)
	if ok {
		t.Error("expected total internal reflection")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	z := NewVec3(1, 2, -1).Normalize()
	f := FrameFromZ(z)

	// Basis must be orthonormal
	for _, pair := range [][2]Vec3{{f.X, f.Y}, {f.Y, f.Z}, {f.X, f.Z}} {
		if math.Abs(pair[0].Dot(pair[1])) > 1e-12 {
			t.Errorf("basis vectors not orthogonal: %v · %v", pair[0], pair[1])
		}
	}

	v := NewVec3(0.3, -0.4, 0.5)
	back := f.FromLocal(f.ToLocal(v))
	if back.Subtract(v).Length() > 1e-12 {
		t.Errorf("round trip: got %v, want %v", back, v)
	}

	// The frame normal maps to local +z
	local := f.ToLocal(z)
	if local.Subtract(NewVec3(0, 0, 1)).Length() > 1e-12 {
		t.Errorf("z maps to %v, want (0,0,1)", local)
	}
}

func TestOffsetRayOriginLeavesErrorBox(t *testing.T) {
	pi := NewPoint3fiWithError(NewVec3(1, 1, 1), NewVec3(1e-7, 1e-7, 1e-7))
	n := NewVec3(0, 0, 1)

	// Leaving along the normal offsets above the surface
	up := OffsetRayOrigin(pi, n, NewVec3(0, 0, 1))
	if up.Z <= pi.Value.Z {
		t.Errorf("offset with the normal should raise z: %v", up.Z)
	}

	// Leaving against the normal offsets below
	down := OffsetRayOrigin(pi, n, NewVec3(0, 0, -1))
	if down.Z >= pi.Value.Z {
		t.Errorf("offset against the normal should lower z: %v", down.Z)
	}
}

func TestAABBHit(t *testing.T) {
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))

	hit := NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1))
	if !box.Hit(hit, 0, math.Inf(1)) {
		t.Error("ray through the box should hit")
	}

	miss := NewRay(NewVec3(0, 5, -5), NewVec3(0, 0, 1))
	if box.Hit(miss, 0, math.Inf(1)) {
		t.Error("ray beside the box should miss")
	}

	behind := NewRay(NewVec3(0, 0, 5), NewVec3(0, 0, 1))
	if box.Hit(behind, 0, math.Inf(1)) {
		t.Error("box behind the ray should miss")
	}
}

func TestAABBUnion(t *testing.T) {
	a := NewAABB(NewVec3(0, 0, 0), NewVec3(1, 1, 1))
	b := NewAABB(NewVec3(-1, 0.5, 0), NewVec3(0.5, 2, 1))
	u := a.Union(b)
	if u.Min != NewVec3(-1, 0, 0) || u.Max != NewVec3(1, 2, 1) {
		t.Errorf("union = %+v", u)
	}

	if got := EmptyAABB().Union(a); got != a {
		t.Errorf("empty union should be identity, got %+v", got)
	}
}
