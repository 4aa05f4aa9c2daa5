package main

import (
	"image"
	"testing"

	"github.com/calebh/go-spectral-pathtracer/pkg/film"
	"github.com/calebh/go-spectral-pathtracer/pkg/integrator"
	"github.com/calebh/go-spectral-pathtracer/pkg/sampler"
	"github.com/calebh/go-spectral-pathtracer/pkg/scene"
)

func TestBuildIntegrator(t *testing.T) {
	tests := []struct {
		name        string
		integrator  string
		expectError bool
	}{
		{"path integrator", "path", false},
		{"simple path integrator", "simple-path", false},
		{"random walk integrator", "random-walk", false},
		{"volumetric path integrator", "volpath", false},
		{"bidirectional integrator", "bdpt", false},
		{"metropolis integrator", "mlt", false},
		{"photon mapping integrator", "sppm", false},

		{"unknown integrator", "photon-beams", true},
		{"empty integrator name", "", true},
	}

	s, err := scene.Named("furnace", 16, 16)
	if err != nil {
		t.Fatalf("building furnace scene: %v", err)
	}
	opts := integrator.NewOptions()
	opts.Logger = nil

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := film.FromRGB(film.NewRGBFilm(image.Rect(0, 0, 16, 16)))
			smp := sampler.FromIndependent(sampler.NewIndependent(4, 1))
			r, splatScale, err := buildIntegrator(tt.integrator, s, f, smp, opts)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for integrator %q", tt.integrator)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r == nil {
				t.Fatal("nil renderer")
			}
			if splatScale == nil {
				t.Fatal("nil splat scale")
			}
		})
	}
}

func TestAllNamedScenesBuildForCLI(t *testing.T) {
	for _, name := range scene.Names() {
		s, err := scene.Named(name, 8, 8)
		if err != nil {
			t.Errorf("scene %q: %v", name, err)
			continue
		}
		if s.Camera.IsNil() {
			t.Errorf("scene %q has no camera", name)
		}
	}
}
