package loaders

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/df07/go-multiview-renderer/pkg/core"
)

// defaultBaseColor matches the glTF default base color factor for untextured surfaces
var defaultBaseColor = core.NewVec3(0.8, 0.8, 0.8)

var identityColumnMajor = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// LoadGLB imports a binary glTF file. Every node reachable from the default
// scene becomes a Node; meshes instanced by several nodes are shared.
func LoadGLB(path string) (*Asset, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open glTF file: %w", err)
	}

	asset := &Asset{}
	for i, m := range doc.Materials {
		info := MaterialInfo{Name: m.Name, BaseColor: defaultBaseColor}
		if info.Name == "" {
			info.Name = fmt.Sprintf("Material.%03d", i)
		}
		if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
			c := *pbr.BaseColorFactor
			info.BaseColor = core.NewVec3(float64(c[0]), float64(c[1]), float64(c[2]))
		}
		asset.Materials = append(asset.Materials, info)
	}
	for i, img := range doc.Images {
		name := img.Name
		if name == "" {
			name = img.URI
		}
		if name == "" {
			name = fmt.Sprintf("Image.%03d", i)
		}
		asset.Images = append(asset.Images, name)
	}

	g := &glbImporter{
		doc:     doc,
		asset:   asset,
		meshes:  make(map[int]*Mesh),
		visited: make(map[int]bool),
	}
	for _, root := range g.rootNodes() {
		if err := g.walk(root, -1); err != nil {
			return nil, err
		}
	}

	asset.convertRoots()
	if err := asset.validate(); err != nil {
		return nil, fmt.Errorf("invalid glTF file: %w", err)
	}

	return asset, nil
}

type glbImporter struct {
	doc     *gltf.Document
	asset   *Asset
	meshes  map[int]*Mesh
	visited map[int]bool
}

// rootNodes returns the default scene's roots, or every unparented node when
// the file has no scenes
func (g *glbImporter) rootNodes() []int {
	var roots []int
	if len(g.doc.Scenes) > 0 {
		sceneIndex := 0
		if g.doc.Scene != nil && int(*g.doc.Scene) < len(g.doc.Scenes) {
			sceneIndex = int(*g.doc.Scene)
		}
		for _, n := range g.doc.Scenes[sceneIndex].Nodes {
			roots = append(roots, int(n))
		}
		return roots
	}

	isChild := make(map[int]bool)
	for _, node := range g.doc.Nodes {
		for _, c := range node.Children {
			isChild[int(c)] = true
		}
	}
	for i := range g.doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func (g *glbImporter) walk(index, parent int) error {
	if index < 0 || index >= len(g.doc.Nodes) {
		return fmt.Errorf("node index %d out of range", index)
	}
	if g.visited[index] {
		return fmt.Errorf("node %d appears twice in the hierarchy", index)
	}
	g.visited[index] = true

	src := g.doc.Nodes[index]
	node := Node{
		Name:   src.Name,
		Parent: parent,
		Local:  nodeMatrix(src),
	}
	if node.Name == "" {
		node.Name = fmt.Sprintf("Node.%03d", index)
	}
	if src.Mesh != nil {
		mesh, err := g.mesh(int(*src.Mesh))
		if err != nil {
			return err
		}
		node.Mesh = mesh
	}

	self := len(g.asset.Nodes)
	g.asset.Nodes = append(g.asset.Nodes, node)
	for _, c := range src.Children {
		if err := g.walk(int(c), self); err != nil {
			return err
		}
	}
	return nil
}

func (g *glbImporter) mesh(index int) (*Mesh, error) {
	if m, ok := g.meshes[index]; ok {
		return m, nil
	}
	if index < 0 || index >= len(g.doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", index)
	}

	src := g.doc.Meshes[index]
	mesh := &Mesh{Name: src.Name}
	for _, prim := range src.Primitives {
		p, ok, err := g.primitive(prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %q: %w", src.Name, err)
		}
		if ok {
			mesh.Primitives = append(mesh.Primitives, p)
		}
	}
	g.meshes[index] = mesh
	return mesh, nil
}

// primitive reads one triangle primitive; points and lines are skipped
func (g *glbImporter) primitive(prim *gltf.Primitive) (Primitive, bool, error) {
	switch prim.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		return Primitive{}, false, nil
	}

	posIndex, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return Primitive{}, false, nil
	}
	if int(posIndex) >= len(g.doc.Accessors) {
		return Primitive{}, false, fmt.Errorf("position accessor %d out of range", posIndex)
	}
	positions, err := modeler.ReadPosition(g.doc, g.doc.Accessors[posIndex], nil)
	if err != nil {
		return Primitive{}, false, fmt.Errorf("failed to read positions: %w", err)
	}

	var raw []int
	if prim.Indices != nil {
		if int(*prim.Indices) >= len(g.doc.Accessors) {
			return Primitive{}, false, fmt.Errorf("index accessor %d out of range", *prim.Indices)
		}
		indices, err := modeler.ReadIndices(g.doc, g.doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return Primitive{}, false, fmt.Errorf("failed to read indices: %w", err)
		}
		raw = make([]int, len(indices))
		for i, idx := range indices {
			raw[i] = int(idx)
		}
	} else {
		raw = make([]int, len(positions))
		for i := range raw {
			raw[i] = i
		}
	}

	p := Primitive{
		Positions: make([]core.Vec3, len(positions)),
		Material:  -1,
	}
	for i, v := range positions {
		p.Positions[i] = core.NewVec3(float64(v[0]), float64(v[1]), float64(v[2]))
	}
	if prim.Material != nil {
		p.Material = int(*prim.Material)
	}

	switch prim.Mode {
	case gltf.PrimitiveTriangleStrip:
		p.Indices = stripToList(raw)
	case gltf.PrimitiveTriangleFan:
		p.Indices = fanToList(raw)
	default:
		p.Indices = raw[:len(raw)-len(raw)%3]
	}
	return p, true, nil
}

// nodeMatrix returns the node's local transform from its matrix or TRS fields
func nodeMatrix(n *gltf.Node) core.Mat4 {
	if n.Matrix != ([16]float64{}) && n.Matrix != identityColumnMajor {
		return core.NewMat4FromColumnMajor(n.Matrix)
	}

	t, r, s := n.Translation, n.Rotation, n.Scale
	scale := core.NewVec3(float64(s[0]), float64(s[1]), float64(s[2]))
	if scale == (core.Vec3{}) {
		scale = core.NewVec3(1, 1, 1) // unset
	}
	return core.ComposeTRS(
		core.NewVec3(float64(t[0]), float64(t[1]), float64(t[2])),
		core.QuaternionToMat3(float64(r[0]), float64(r[1]), float64(r[2]), float64(r[3])),
		scale,
	)
}

// stripToList converts triangle strip indices to a triangle list, keeping winding
func stripToList(strip []int) []int {
	var list []int
	for i := 2; i < len(strip); i++ {
		if i%2 == 0 {
			list = append(list, strip[i-2], strip[i-1], strip[i])
		} else {
			list = append(list, strip[i-1], strip[i-2], strip[i])
		}
	}
	return list
}

// fanToList converts triangle fan indices (and FBX polygons) to a triangle list
func fanToList(fan []int) []int {
	var list []int
	for i := 2; i < len(fan); i++ {
		list = append(list, fan[0], fan[i-1], fan[i])
	}
	return list
}
