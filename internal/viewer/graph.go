// internal/viewer/graph.go
package viewer

import (
	"sync"
)

// StdMaterial is the headless material used by Graph
type StdMaterial struct {
	mu       sync.Mutex
	name     string
	emissive Color
	disposed bool
}

// NewStdMaterial creates a material with a black emissive color
func NewStdMaterial(name string) *StdMaterial {
	return &StdMaterial{name: name}
}

// Name returns the material name
func (m *StdMaterial) Name() string {
	return m.name
}

// Clone copies the material under a new name
func (m *StdMaterial) Clone(name string) Material {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &StdMaterial{name: name, emissive: m.emissive}
}

// SetEmissive sets the emissive color
func (m *StdMaterial) SetEmissive(c Color) {
	m.mu.Lock()
	m.emissive = c
	m.mu.Unlock()
}

// EmissiveColor returns the emissive color
func (m *StdMaterial) EmissiveColor() Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emissive
}

// Dispose marks the material as released
func (m *StdMaterial) Dispose() {
	m.mu.Lock()
	m.disposed = true
	m.mu.Unlock()
}

// Disposed reports whether Dispose was called
func (m *StdMaterial) Disposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// MeshNode is a headless mesh
type MeshNode struct {
	mu        sync.Mutex
	name      string
	material  Material
	bounds    Box
	hasBounds bool
}

// Name returns the mesh name
func (n *MeshNode) Name() string {
	return n.name
}

// Material returns the current material
func (n *MeshNode) Material() Material {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.material
}

// SetMaterial replaces the current material
func (n *MeshNode) SetMaterial(m Material) {
	n.mu.Lock()
	n.material = m
	n.mu.Unlock()
}

// Bounds returns the bounding box
func (n *MeshNode) Bounds() (Box, bool) {
	return n.bounds, n.hasBounds
}

// Graph is an in-process scene graph the server drives instead of a renderer
type Graph struct {
	mu     sync.RWMutex
	meshes []*MeshNode
}

// NewGraph creates an empty scene graph
func NewGraph() *Graph {
	return &Graph{}
}

// AddMesh appends a mesh; bounds may be nil for meshes without geometry
func (g *Graph) AddMesh(name string, material Material, bounds *Box) *MeshNode {
	node := &MeshNode{name: name, material: material}
	if bounds != nil {
		node.bounds = *bounds
		node.hasBounds = true
	}

	g.mu.Lock()
	g.meshes = append(g.meshes, node)
	g.mu.Unlock()
	return node
}

// Meshes returns the meshes in insertion order
func (g *Graph) Meshes() []Mesh {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Mesh, len(g.meshes))
	for i, m := range g.meshes {
		out[i] = m
	}
	return out
}

// Mesh returns the first mesh with the exact name
func (g *Graph) Mesh(name string) (*MeshNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, m := range g.meshes {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

// Names returns the mesh names in insertion order
func (g *Graph) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, len(g.meshes))
	for i, m := range g.meshes {
		names[i] = m.name
	}
	return names
}

// Rebuild replaces every mesh with the ones described by a metadata document.
// It reports false and keeps the graph when the document describes no meshes.
func (g *Graph) Rebuild(meta *Meta) bool {
	if meta == nil || len(meta.Meshes) == 0 {
		return false
	}

	nodes := make([]*MeshNode, 0, len(meta.Meshes))
	for _, spec := range meta.Meshes {
		materialName := spec.Material
		if materialName == "" {
			materialName = spec.Name + "_mat"
		}
		node := &MeshNode{name: spec.Name, material: NewStdMaterial(materialName)}
		if box, ok := spec.Box(); ok {
			node.bounds = box
			node.hasBounds = true
		}
		nodes = append(nodes, node)
	}

	g.mu.Lock()
	g.meshes = nodes
	g.mu.Unlock()
	return true
}

// OrbitCamera is a headless orbit camera
type OrbitCamera struct {
	mu     sync.Mutex
	target Vec3
	radius float64
}

// NewOrbitCamera creates a camera looking at the origin
func NewOrbitCamera(radius float64) *OrbitCamera {
	return &OrbitCamera{radius: radius}
}

// Radius returns the distance to the target
func (c *OrbitCamera) Radius() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius
}

// SetRadius sets the distance to the target
func (c *OrbitCamera) SetRadius(r float64) {
	c.mu.Lock()
	c.radius = r
	c.mu.Unlock()
}

// Target returns the point the camera looks at
func (c *OrbitCamera) Target() Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// SetTarget sets the point the camera looks at
func (c *OrbitCamera) SetTarget(v Vec3) {
	c.mu.Lock()
	c.target = v
	c.mu.Unlock()
}
