// internal/viewer/scene.go
package viewer

import "math"

// Vec3 is a point or direction in scene space
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Box is an axis-aligned bounding box in world space
type Box struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Union returns the smallest box containing both boxes
func (b Box) Union(o Box) Box {
	return Box{
		Min: Vec3{math.Min(b.Min.X, o.Min.X), math.Min(b.Min.Y, o.Min.Y), math.Min(b.Min.Z, o.Min.Z)},
		Max: Vec3{math.Max(b.Max.X, o.Max.X), math.Max(b.Max.Y, o.Max.Y), math.Max(b.Max.Z, o.Max.Z)},
	}
}

// Center returns the midpoint of the box
func (b Box) Center() Vec3 {
	return Vec3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// MaxDimension returns the largest edge length
func (b Box) MaxDimension() float64 {
	return math.Max(b.Max.X-b.Min.X, math.Max(b.Max.Y-b.Min.Y, b.Max.Z-b.Min.Z))
}

// Color is an RGB color with components in [0, 1]
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// HighlightColor is the emissive color applied to highlighted meshes
var HighlightColor = Color{R: 1, G: 0, B: 0}

// Material is a renderable surface that can be cloned
type Material interface {
	Name() string
	Clone(name string) Material
}

// Emissive is implemented by materials that support an emissive color
type Emissive interface {
	SetEmissive(Color)
}

// Disposable is implemented by materials holding renderer resources
type Disposable interface {
	Dispose()
}

// Mesh is a named scene object. Implementations must be comparable,
// they are used as map keys.
type Mesh interface {
	Name() string
	Material() Material
	SetMaterial(Material)
	// Bounds returns the world bounding box, false when the mesh has none
	Bounds() (Box, bool)
}

// Scene exposes the meshes of a loaded model
type Scene interface {
	Meshes() []Mesh
}

// Camera is an orbit camera looking at a target from a distance
type Camera interface {
	Radius() float64
	SetTarget(Vec3)
	SetRadius(float64)
}
