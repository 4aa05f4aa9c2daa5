// Package scene assembles cameras, geometry, materials, media, and
// lights into renderable scenes, and provides the built-in test
// scenes.
package scene

import (
	"fmt"
	"sort"

	"github.com/calebh/go-spectral-pathtracer/pkg/camera"
	"github.com/calebh/go-spectral-pathtracer/pkg/core"
	"github.com/calebh/go-spectral-pathtracer/pkg/geometry"
	"github.com/calebh/go-spectral-pathtracer/pkg/lights"
	"github.com/calebh/go-spectral-pathtracer/pkg/material"
	"github.com/calebh/go-spectral-pathtracer/pkg/medium"
)

// Scene is everything an integrator needs to render an image.
// Materials are referenced by index from surface interactions.
type Scene struct {
	Camera    camera.Camera
	Aggregate *geometry.ListAggregate
	Lights    []lights.Light
	Materials []material.Material

	// Medium the camera sits in, vacuum when nil
	CameraMedium medium.Medium
}

// Material resolves an interaction's material index, nil for index -1
func (s *Scene) Material(index int) material.Material {
	if index < 0 || index >= len(s.Materials) {
		return nil
	}
	return s.Materials[index]
}

// BoundingSphere returns a sphere enclosing all finite geometry
func (s *Scene) BoundingSphere() (core.Vec3, float64) {
	return s.Aggregate.Bounds().BoundingSphere()
}

// Builder accumulates scene content with material deduplication by
// index.
type Builder struct {
	prims     []geometry.Primitive
	lights    []lights.Light
	materials []material.Material
}

// NewBuilder creates an empty scene builder
func NewBuilder() *Builder { return &Builder{} }

// AddMaterial registers a material and returns its index
func (b *Builder) AddMaterial(m material.Material) int {
	b.materials = append(b.materials, m)
	return len(b.materials) - 1
}

// AddShape adds a non-emissive primitive
func (b *Builder) AddShape(shape geometry.Shape, materialIndex int) {
	b.prims = append(b.prims, geometry.Primitive{Shape: shape, MaterialIndex: materialIndex})
}

// AddShapeInMedium adds a primitive bounding a medium transition
func (b *Builder) AddShapeInMedium(shape geometry.Shape, materialIndex int, inside, outside medium.Medium) {
	b.prims = append(b.prims, geometry.Primitive{
		Shape:         shape,
		MaterialIndex: materialIndex,
		Interface:     &geometry.MediumInterface{Inside: inside, Outside: outside},
	})
}

// AddEmitter adds a shape that both scatters and emits
func (b *Builder) AddEmitter(shape geometry.Shape, materialIndex int, light *lights.DiffuseAreaLight) {
	h := lights.FromDiffuseArea(light)
	b.prims = append(b.prims, geometry.Primitive{
		Shape:         shape,
		MaterialIndex: materialIndex,
		AreaLight:     h,
	})
	b.lights = append(b.lights, h)
}

// AddLight adds a non-geometric light
func (b *Builder) AddLight(l lights.Light) {
	b.lights = append(b.lights, l)
}

// Build finalizes the scene
func (b *Builder) Build(cam camera.Camera) *Scene {
	return &Scene{
		Camera:    cam,
		Aggregate: geometry.NewListAggregate(b.prims),
		Lights:    b.lights,
		Materials: b.materials,
	}
}

// Registry of built-in scenes by name.
var registry = map[string]func(width, height int) *Scene{
	"cornell":      Cornell,
	"furnace":      Furnace,
	"point-plane":  PointLightPlane,
	"fog":          Fog,
	"spheres":      Spheres,
}

// Named builds a registered scene, or an error listing valid names
func Named(name string, width, height int) (*Scene, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q, have %v", name, Names())
	}
	return build(width, height), nil
}

// Names returns the registered scene names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
