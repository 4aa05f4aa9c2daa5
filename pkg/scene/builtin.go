package scene

import (
	"github.com/calebh/go-spectral-pathtracer/pkg/camera"
	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/geometry"
	"github.com/calebh/go-spectral-pathtracer/pkg/lights"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
	"github.com/calebh/go-spectral-pathtracer/pkg/medium"
	"github.com/calebh/go-spectral-pathtracer/pkg/spectrum"
)

func rgb(r, g, b float64) spectrum.Spectrum {
	return spectrum.NewRGBSpectrum(core.NewVec3(r, g, b))
}

// Cornell is the classic box: white floor, ceiling, and back wall,
// red and green side walls, a ceiling area light, and two spheres
// (one mirror-like metal, one glass).
func Cornell(width, height int) *Scene {
	b := NewBuilder()
	addCornellContent(b)
	return b.Build(cornellCamera(width, height))
}

func addCornellContent(b *Builder) {
	white := b.AddMaterial(&material.DiffuseMaterial{Reflectance: rgb(0.73, 0.73, 0.73)})
	red := b.AddMaterial(&material.DiffuseMaterial{Reflectance: rgb(0.65, 0.05, 0.05)})
	green := b.AddMaterial(&material.DiffuseMaterial{Reflectance: rgb(0.12, 0.45, 0.15)})
	metal := b.AddMaterial(&material.ConductorMaterial{Reflectance: rgb(0.9, 0.9, 0.9), Roughness: 0.05})
	glass := b.AddMaterial(&material.DielectricMaterial{Eta: 1.5})

	// Box interior spans [0,555]^3 with the camera looking down -z.
	// Floor
	b.AddShape(geometry.NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(555, 0, 0), core.NewVec3(0, 0, -555)), white)
	// Ceiling, normal pointing down into the box
	b.AddShape(geometry.NewQuad(core.NewVec3(0, 555, 0), core.NewVec3(0, 0, -555), core.NewVec3(555, 0, 0)), white)
	// Back wall
	b.AddShape(geometry.NewQuad(core.NewVec3(0, 0, -555), core.NewVec3(555, 0, 0), core.NewVec3(0, 555, 0)), white)
	// Left wall, red
	b.AddShape(geometry.NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -555), core.NewVec3(0, 555, 0)), red)
	// Right wall, green
	b.AddShape(geometry.NewQuad(core.NewVec3(555, 0, 0), core.NewVec3(0, 555, 0), core.NewVec3(0, 0, -555)), green)

	// Ceiling light, slightly below the ceiling, emitting downward
	lightQuad := geometry.NewQuad(
		core.NewVec3(213, 554, -227), core.NewVec3(0, 0, -105), core.NewVec3(130, 0, 0))
	b.AddEmitter(lightQuad, white,
		lights.NewDiffuseArea(lightQuad, rgb(1, 1, 1), 15, false))

	b.AddShape(geometry.NewSphere(core.NewVec3(185, 90, -150), 90), metal)
	b.AddShape(geometry.NewSphere(core.NewVec3(390, 90, -340), 90), glass)
}

func cornellCamera(width, height int) camera.Camera {
	return camera.FromPerspective(camera.NewPerspective(camera.PerspectiveOptions{
		Position: core.NewVec3(278, 278, 800),
		LookAt:   core.NewVec3(278, 278, 0),
		Up:       core.NewVec3(0, 1, 0),
		VFov:     40,
		Width:    width,
		Height:   height,
	}))
}

// Furnace is the analytic test: a gray diffuse sphere inside a
// uniform environment of unit radiance. The sphere is convex, so a
// pixel covering it must converge to albedo times the environment
// radiance.
func Furnace(width, height int) *Scene {
	b := NewBuilder()
	gray := b.AddMaterial(&material.DiffuseMaterial{Reflectance: rgb(0.5, 0.5, 0.5)})
	b.AddShape(geometry.NewSphere(core.NewVec3(0, 0, -3), 1), gray)
	b.AddLight(lights.FromUniformInfinite(lights.NewUniformInfinite(rgb(1, 1, 1), 1)))

	cam := camera.FromPerspective(camera.NewPerspective(camera.PerspectiveOptions{
		Position: core.NewVec3(0, 0, 0),
		LookAt:   core.NewVec3(0, 0, -3),
		Up:       core.NewVec3(0, 1, 0),
		VFov:     45,
		Width:    width,
		Height:   height,
	}))
	return b.Build(cam)
}

// PointLightPlane is the analytic direct-lighting test: a point light
// of intensity I above an infinite-ish diffuse plane of albedo rho.
// The radiance leaving the plane directly below the light is
// rho * I / (pi * d^2).
func PointLightPlane(width, height int) *Scene {
	b := NewBuilder()
	white := b.AddMaterial(&material.DiffuseMaterial{Reflectance: rgb(1, 1, 1)})

	// A large quad standing in for the plane
	b.AddShape(geometry.NewQuad(
		core.NewVec3(-100, 0, -100), core.NewVec3(200, 0, 0), core.NewVec3(0, 0, 200)), white)
	b.AddLight(lights.FromPoint(lights.NewPoint(core.NewVec3(0, 2, 0), spectrum.ConstantSpectrum{C: 1}, 1)))

	cam := camera.FromPerspective(camera.NewPerspective(camera.PerspectiveOptions{
		Position: core.NewVec3(0, 3, 6),
		LookAt:   core.NewVec3(0, 0, 0),
		Up:       core.NewVec3(0, 1, 0),
		VFov:     40,
		Width:    width,
		Height:   height,
	}))
	return b.Build(cam)
}

// Fog wraps the Cornell layout in a thin homogeneous scattering
// medium bounded by a large sphere, for the volumetric integrator.
func Fog(width, height int) *Scene {
	b := NewBuilder()
	addCornellContent(b)

	fog := medium.FromHomogeneous(medium.NewHomogeneous(
		spectrum.ConstantSpectrum{C: 0.0002},
		spectrum.ConstantSpectrum{C: 0.001},
		0.2, nil, 0))
	boundary := geometry.NewSphere(core.NewVec3(278, 278, -278), 2000)
	b.AddShapeInMedium(boundary, -1, fog, medium.Medium{})

	s := b.Build(cornellCamera(width, height))
	// The camera sits inside the fog boundary
	s.CameraMedium = fog
	return s
}

// Spheres is a small open scene: diffuse ground, three spheres of
// the three material families under an environment light.
func Spheres(width, height int) *Scene {
	b := NewBuilder()
	ground := b.AddMaterial(&material.DiffuseMaterial{Reflectance: rgb(0.5, 0.5, 0.5)})
	diffuse := b.AddMaterial(&material.DiffuseMaterial{Reflectance: rgb(0.7, 0.3, 0.3)})
	met := b.AddMaterial(&material.ConductorMaterial{Reflectance: rgb(0.8, 0.85, 0.9), Roughness: 0.15})
	glass := b.AddMaterial(&material.DielectricMaterial{Eta: 1.5})

	b.AddShape(geometry.NewQuad(
		core.NewVec3(-50, 0, -50), core.NewVec3(100, 0, 0), core.NewVec3(0, 0, 100)), ground)
	b.AddShape(geometry.NewSphere(core.NewVec3(-2.2, 1, 0), 1), diffuse)
	b.AddShape(geometry.NewSphere(core.NewVec3(0, 1, 0), 1), glass)
	b.AddShape(geometry.NewSphere(core.NewVec3(2.2, 1, 0), 1), met)

	b.AddLight(lights.FromUniformInfinite(lights.NewUniformInfinite(rgb(0.7, 0.8, 1.0), 1)))

	cam := camera.FromPerspective(camera.NewPerspective(camera.PerspectiveOptions{
		Position:      core.NewVec3(0, 2, 8),
		LookAt:        core.NewVec3(0, 1, 0),
		Up:            core.NewVec3(0, 1, 0),
		VFov:          30,
		Width:         width,
		Height:        height,
		LensRadius:    0.05,
		FocusDistance: 8,
	}))
	return b.Build(cam)
}
