package sampler

import (
	"image"
	"math"
	"testing"
)

func TestHandleCastsAndDispatch(t *testing.T) {
	ind := NewIndependent(16, 1)
	strat := NewStratified(4, 4, true, 1)
	mlt := NewMLT(4, 0.01, 0.3, 3, 1)

	hInd := FromIndependent(ind)
	hStrat := FromStratified(strat)
	hMLT := FromMLT(mlt)

	if !hInd.IsIndependent() || hInd.IsStratified() || hInd.IsMLT() {
		t.Error("independent handle misreports its variant")
	}
	if hInd.AsIndependent() != ind {
		t.Error("AsIndependent lost the original pointer")
	}
	if hStrat.AsStratified() != strat {
		t.Error("AsStratified lost the original pointer")
	}
	if hMLT.AsMLT() != mlt {
		t.Error("AsMLT lost the original pointer")
	}

	// Cross-variant cast is a contract violation
	func() {
		defer func() {
			if recover() == nil {
				t.Error("AsStratified on an independent handle should panic")
			}
		}()
		hInd.AsStratified()
	}()

	// Dispatch routes to the matching branch
	var visited string
	v := &recordingVisitor{out: &visited}
	hInd.Dispatch(v)
	if visited != "independent" {
		t.Errorf("dispatch routed to %q", visited)
	}
	hMLT.Dispatch(v)
	if visited != "mlt" {
		t.Errorf("dispatch routed to %q", visited)
	}

	// Dispatch on an empty handle is a contract violation
	func() {
		defer func() {
			if recover() == nil {
				t.Error("dispatch on empty handle should panic")
			}
		}()
		var empty Sampler
		empty.Dispatch(v)
	}()
}

type recordingVisitor struct{ out *string }

func (v *recordingVisitor) VisitIndependent(*IndependentSampler) { *v.out = "independent" }
func (v *recordingVisitor) VisitStratified(*StratifiedSampler)   { *v.out = "stratified" }
func (v *recordingVisitor) VisitMLT(*MLTSampler)                 { *v.out = "mlt" }

func TestIndependentDeterministicPerPixelSample(t *testing.T) {
	s := FromIndependent(NewIndependent(8, 7))
	p := image.Pt(3, 5)

	s.StartPixelSample(p, 2, 0)
	a1, a2 := s.Get1D(), s.Get2D()

	s.StartPixelSample(p, 2, 0)
	b1, b2 := s.Get1D(), s.Get2D()

	if a1 != b1 || a2 != b2 {
		t.Error("restarting the same pixel sample should replay the stream")
	}

	// A different sample index yields a different stream
	s.StartPixelSample(p, 3, 0)
	if c1 := s.Get1D(); c1 == a1 {
		t.Error("different sample index produced identical first value")
	}
}

func TestStratifiedCoversAllStrata(t *testing.T) {
	const nx, ny = 4, 4
	s := NewStratified(nx, ny, false, 3)

	seen := make(map[[2]int]bool)
	for i := 0; i < nx*ny; i++ {
		s.StartPixelSample(image.Pt(0, 0), i, 0)
		u := s.Get2D()
		seen[[2]int{int(u.X * nx), int(u.Y * ny)}] = true
	}
	if len(seen) != nx*ny {
		t.Errorf("visited %d distinct strata, want %d", len(seen), nx*ny)
	}
}

func TestStratifiedValuesInRange(t *testing.T) {
	s := NewStratified(3, 3, true, 9)
	for i := 0; i < 9; i++ {
		s.StartPixelSample(image.Pt(1, 2), i, 0)
		for d := 0; d < 8; d++ {
			if v := s.Get1D(); v < 0 || v >= 1 {
				t.Fatalf("sample %v outside [0,1)", v)
			}
		}
	}
}

func TestMLTRejectRestoresValues(t *testing.T) {
	s := NewMLT(1, 0.01, 0.0, 1, 42)

	// Establish an initial state
	s.StartIteration()
	s.StartStream(0)
	v0 := []float64{s.Get1D(), s.Get1D(), s.Get1D()}
	s.Accept()

	// Propose, then reject: the old values must come back
	s.StartIteration()
	s.StartStream(0)
	v1 := []float64{s.Get1D(), s.Get1D(), s.Get1D()}
	s.Reject()

	s.StartIteration()
	s.StartStream(0)
	v2 := []float64{s.Get1D(), s.Get1D(), s.Get1D()}

	for i := range v0 {
		if v1[i] == v0[i] {
			t.Errorf("dim %d: proposal did not perturb value", i)
		}
		// After rejection the next proposal starts from v0, not v1;
		// with small sigma it stays near v0.
		if math.Abs(v2[i]-v0[i]) > 0.2 {
			t.Errorf("dim %d: after reject, value %v drifted from %v", i, v2[i], v0[i])
		}
	}
}

func TestMLTLargeStepResamples(t *testing.T) {
	s := NewMLT(1, 0.01, 1.0, 1, 5) // always large step

	s.StartIteration()
	s.StartStream(0)
	a := s.Get1D()
	s.Accept()

	s.StartIteration()
	s.StartStream(0)
	b := s.Get1D()
	if a == b {
		t.Error("large step should draw an independent value")
	}
}

func TestMLTStreamsAreInterleaved(t *testing.T) {
	s := NewMLT(1, 0.01, 0.0, 3, 8)
	s.StartIteration()

	s.StartStream(0)
	a0 := s.Get1D()
	s.StartStream(1)
	b0 := s.Get1D()
	s.Accept()

	// Reading the same streams next iteration perturbs the same
	// coordinates rather than aliasing across streams.
	s.StartIteration()
	s.StartStream(0)
	a1 := s.Get1D()
	s.StartStream(1)
	b1 := s.Get1D()

	if math.Abs(a1-a0) > 0.2 || math.Abs(b1-b0) > 0.2 {
		t.Error("stream coordinates did not track their own history")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	proto := FromIndependent(NewIndependent(4, 11))
	clone := proto.Clone()

	proto.StartPixelSample(image.Pt(0, 0), 0, 0)
	clone.StartPixelSample(image.Pt(0, 0), 0, 0)

	// Same prototype parameters: clones replay the same deterministic
	// stream without sharing state.
	if proto.Get1D() != clone.Get1D() {
		t.Error("clone should reproduce the prototype's stream")
	}

	proto.Get1D()
	// Advancing one must not disturb the other
	clone.StartPixelSample(image.Pt(9, 9), 1, 0)
	proto.StartPixelSample(image.Pt(0, 0), 0, 0)
	clone.StartPixelSample(image.Pt(0, 0), 0, 0)
	if proto.Get1D() != clone.Get1D() {
		t.Error("clone state leaked into prototype")
	}
}
