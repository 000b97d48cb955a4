// Package loaders imports mesh files into a format-neutral node tree that the
// scene package turns into scene objects.
package loaders

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/df07/go-multiview-renderer/pkg/core"
)

// ErrUnsupportedFormat is returned for any file that is not .glb or .fbx
var ErrUnsupportedFormat = errors.New("unsupported file type")

// Asset is an imported file: a node forest plus the datablocks it references
type Asset struct {
	Nodes     []Node
	Materials []MaterialInfo
	Images    []string // Names of embedded or referenced images
}

// Node is one transform in the imported hierarchy
type Node struct {
	Name   string
	Parent int       // Index into Asset.Nodes, -1 for roots
	Local  core.Mat4 // Transform relative to the parent
	Mesh   *Mesh     // Nil for pure transforms
}

// Mesh is triangle geometry in node-local space
type Mesh struct {
	Name       string
	Primitives []Primitive
}

// Primitive is a triangle list sharing one material
type Primitive struct {
	Positions []core.Vec3
	Indices   []int // Three per triangle
	Material  int   // Index into Asset.Materials, -1 for none
}

// MaterialInfo carries the material properties the renderer understands
type MaterialInfo struct {
	Name      string
	BaseColor core.Vec3
}

// TriangleCount returns the number of triangles across all primitives
func (m *Mesh) TriangleCount() int {
	count := 0
	for _, p := range m.Primitives {
		count += len(p.Indices) / 3
	}
	return count
}

// Load imports path, dispatching on its extension
func Load(path string) (*Asset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb":
		return LoadGLB(path)
	case ".fbx":
		return LoadFBX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// yUpToZUp rotates +90° about X, mapping the file's +Y up axis onto the world's +Z
var yUpToZUp = core.ComposeTRS(core.Vec3{}, core.RotationX(math.Pi/2), core.NewVec3(1, 1, 1))

// convertRoots applies the up-axis conversion to every root node
func (a *Asset) convertRoots() {
	for i := range a.Nodes {
		if a.Nodes[i].Parent < 0 {
			a.Nodes[i].Local = yUpToZUp.Mul(a.Nodes[i].Local)
		}
	}
}

// validate checks that every primitive indexes inside its vertex array
func (a *Asset) validate() error {
	for _, node := range a.Nodes {
		if node.Mesh == nil {
			continue
		}
		for _, prim := range node.Mesh.Primitives {
			if len(prim.Indices)%3 != 0 {
				return fmt.Errorf("mesh %q: index count %d is not a multiple of 3", node.Mesh.Name, len(prim.Indices))
			}
			for _, idx := range prim.Indices {
				if idx < 0 || idx >= len(prim.Positions) {
					return fmt.Errorf("mesh %q: vertex index %d out of range [0, %d)", node.Mesh.Name, idx, len(prim.Positions))
				}
			}
			if prim.Material >= len(a.Materials) {
				return fmt.Errorf("mesh %q: material index %d out of range", node.Mesh.Name, prim.Material)
			}
		}
	}
	return nil
}
