package scene

import (
	"fmt"

	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/lights"
	"github.com/df07/go-multiview-renderer/pkg/loaders"
	"github.com/df07/go-multiview-renderer/pkg/material"
)

// ObjectKind classifies scene objects
type ObjectKind int

const (
	KindEmpty ObjectKind = iota
	KindMesh
	KindCamera
	KindLight
)

func (k ObjectKind) String() string {
	switch k {
	case KindMesh:
		return "MESH"
	case KindCamera:
		return "CAMERA"
	case KindLight:
		return "LIGHT"
	default:
		return "EMPTY"
	}
}

// Object is a node of the scene graph
type Object struct {
	Name      string
	Kind      ObjectKind
	Parent    *Object
	Local     core.Mat4 // Transform relative to Parent (or the world for roots)
	Mesh      *loaders.Mesh
	Materials []material.Material // Indexed by primitive material slot
	Light     lights.Light        // Set for KindLight
}

// WorldMatrix returns the object's object-to-world transform
func (o *Object) WorldMatrix() core.Mat4 {
	if o.Parent == nil {
		return o.Local
	}
	return o.Parent.WorldMatrix().Mul(o.Local)
}

// IsRoot reports whether the object has no parent
func (o *Object) IsRoot() bool {
	return o.Parent == nil
}

// persistent reports whether Reset keeps the object
func (o *Object) persistent() bool {
	return o.Kind == KindCamera || o.Kind == KindLight
}

// materialFor returns the material of a primitive slot, or the default one
func (o *Object) materialFor(slot int, fallback material.Material) material.Material {
	if slot >= 0 && slot < len(o.Materials) && o.Materials[slot] != nil {
		return o.Materials[slot]
	}
	return fallback
}

// Scene holds the objects and datablocks of the host application
type Scene struct {
	Objects   []*Object
	Materials map[string]*material.Lambertian
	Images    []string
}

// NewScene creates an empty scene
func NewScene() *Scene {
	return &Scene{Materials: make(map[string]*material.Lambertian)}
}

// Add appends an object with a name unique within the scene
func (s *Scene) Add(obj *Object) *Object {
	obj.Name = s.uniqueName(obj.Name, func(name string) bool { return s.Object(name) != nil })
	s.Objects = append(s.Objects, obj)
	return obj
}

// Object returns the object with the given name, or nil
func (s *Scene) Object(name string) *Object {
	for _, obj := range s.Objects {
		if obj.Name == name {
			return obj
		}
	}
	return nil
}

// AddMaterial registers a solid-color material under a unique name
func (s *Scene) AddMaterial(name string, albedo core.Vec3) *material.Lambertian {
	name = s.uniqueName(name, func(n string) bool { _, ok := s.Materials[n]; return ok })
	mat := material.NewLambertian(name, albedo)
	s.Materials[name] = mat
	return mat
}

// Clear removes every object except cameras and lights, then purges all
// materials and images. Parent links to removed objects are dropped.
func (s *Scene) Clear() {
	kept := s.Objects[:0]
	for _, obj := range s.Objects {
		if obj.persistent() {
			kept = append(kept, obj)
		}
	}
	for i := len(kept); i < len(s.Objects); i++ {
		s.Objects[i] = nil
	}
	s.Objects = kept
	for _, obj := range s.Objects {
		if obj.Parent != nil && !obj.Parent.persistent() {
			obj.Local = obj.WorldMatrix()
			obj.Parent = nil
		}
	}

	s.Materials = make(map[string]*material.Lambertian)
	s.Images = nil
}

// MeshObjects returns every object carrying mesh data
func (s *Scene) MeshObjects() []*Object {
	var meshes []*Object
	for _, obj := range s.Objects {
		if obj.Kind == KindMesh && obj.Mesh != nil {
			meshes = append(meshes, obj)
		}
	}
	return meshes
}

// Roots returns the parentless objects that are neither cameras nor lights
func (s *Scene) Roots() []*Object {
	var roots []*Object
	for _, obj := range s.Objects {
		if obj.IsRoot() && !obj.persistent() {
			roots = append(roots, obj)
		}
	}
	return roots
}

// TriangleCount returns the total number of triangles in the scene
func (s *Scene) TriangleCount() int {
	count := 0
	for _, obj := range s.MeshObjects() {
		count += obj.Mesh.TriangleCount()
	}
	return count
}

// uniqueName appends .001, .002, ... to name until taken reports false
func (s *Scene) uniqueName(name string, taken func(string) bool) string {
	if name == "" {
		name = "Object"
	}
	if !taken(name) {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%03d", name, i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// addAsset instantiates an imported asset, returning the objects it created
func (s *Scene) addAsset(asset *loaders.Asset) []*Object {
	mats := make([]material.Material, len(asset.Materials))
	for i, info := range asset.Materials {
		mats[i] = s.AddMaterial(info.Name, info.BaseColor)
	}
	s.Images = append(s.Images, asset.Images...)

	created := make([]*Object, len(asset.Nodes))
	for i, node := range asset.Nodes {
		obj := &Object{Name: node.Name, Kind: KindEmpty, Local: node.Local}
		if node.Mesh != nil {
			obj.Kind = KindMesh
			obj.Mesh = node.Mesh
			obj.Materials = mats
		}
		created[i] = s.Add(obj)
	}
	// Parents may appear after their children in the node list
	for i, node := range asset.Nodes {
		if node.Parent >= 0 && node.Parent < len(created) {
			created[i].Parent = created[node.Parent]
		}
	}
	return created
}

// meshBounds returns the local-space bound box of a mesh; ok is false for a
// mesh without vertices
func meshBounds(mesh *loaders.Mesh) (box core.AABB, ok bool) {
	box = core.EmptyAABB()
	for _, prim := range mesh.Primitives {
		for _, p := range prim.Positions {
			box = box.Extend(p)
		}
	}
	return box, box.IsValid()
}
