package loaders

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/df07/go-multiview-renderer/pkg/core"
)

const (
	fbxMagic      = "Kaydara FBX Binary  \x00"
	fbxHeaderSize = 27 // magic + 0x1A 0x00 + uint32 version
)

// fbxNode is one record of the binary FBX node tree
type fbxNode struct {
	Name       string
	Properties []any
	Children   []*fbxNode
}

// child returns the first direct child with the given name
func (n *fbxNode) child(name string) *fbxNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// LoadFBX imports a binary FBX file (versions 7.x). Geometry nodes become
// meshes, Model nodes become transforms, and OO connections supply the hierarchy.
func LoadFBX(path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FBX file: %w", err)
	}

	root, err := parseFBX(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FBX file: %w", err)
	}

	asset, err := buildFBXAsset(root)
	if err != nil {
		return nil, fmt.Errorf("invalid FBX file: %w", err)
	}
	if err := asset.validate(); err != nil {
		return nil, fmt.Errorf("invalid FBX file: %w", err)
	}
	return asset, nil
}

// parseFBX decodes the whole binary node tree into a synthetic root
func parseFBX(data []byte) (*fbxNode, error) {
	if len(data) < fbxHeaderSize || string(data[:len(fbxMagic)]) != fbxMagic {
		if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n\ufeff"), []byte(";")) {
			return nil, fmt.Errorf("ASCII FBX format not yet supported")
		}
		return nil, fmt.Errorf("missing binary FBX header")
	}

	p := &fbxParser{data: data, pos: fbxHeaderSize}
	p.version = binary.LittleEndian.Uint32(data[23:27])

	root := &fbxNode{}
	for p.pos < len(data) {
		node, err := p.readNode()
		if err != nil {
			return nil, err
		}
		if node == nil {
			break // top-level null record, the footer follows
		}
		root.Children = append(root.Children, node)
	}
	return root, nil
}

type fbxParser struct {
	data    []byte
	pos     int
	version uint32
}

func (p *fbxParser) need(n int) error {
	if n < 0 || p.pos+n > len(p.data) {
		return fmt.Errorf("unexpected end of data at offset %d", p.pos)
	}
	return nil
}

func (p *fbxParser) u8() (uint8, error) {
	if err := p.need(1); err != nil {
		return 0, err
	}
	v := p.data[p.pos]
	p.pos++
	return v, nil
}

func (p *fbxParser) u32() (uint32, error) {
	if err := p.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return v, nil
}

func (p *fbxParser) u64() (uint64, error) {
	if err := p.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(p.data[p.pos:])
	p.pos += 8
	return v, nil
}

func (p *fbxParser) bytes(n int) ([]byte, error) {
	if err := p.need(n); err != nil {
		return nil, err
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

// offset reads a header field, 64-bit wide from version 7.5 on
func (p *fbxParser) offset() (uint64, error) {
	if p.version >= 7500 {
		return p.u64()
	}
	v, err := p.u32()
	return uint64(v), err
}

// readNode reads one node record; a null record yields (nil, nil)
func (p *fbxParser) readNode() (*fbxNode, error) {
	endOffset, err := p.offset()
	if err != nil {
		return nil, err
	}
	numProperties, err := p.offset()
	if err != nil {
		return nil, err
	}
	if _, err := p.offset(); err != nil { // property list length
		return nil, err
	}
	nameLen, err := p.u8()
	if err != nil {
		return nil, err
	}
	if endOffset == 0 {
		return nil, nil
	}
	if endOffset > uint64(len(p.data)) {
		return nil, fmt.Errorf("node end offset %d beyond file size %d", endOffset, len(p.data))
	}

	name, err := p.bytes(int(nameLen))
	if err != nil {
		return nil, err
	}
	node := &fbxNode{Name: string(name)}
	if endOffset < uint64(p.pos) {
		return nil, fmt.Errorf("node %q end offset %d before record body at %d", node.Name, endOffset, p.pos)
	}

	for i := uint64(0); i < numProperties; i++ {
		prop, err := p.readProperty()
		if err != nil {
			return nil, fmt.Errorf("node %q property %d: %w", node.Name, i, err)
		}
		node.Properties = append(node.Properties, prop)
	}
	if uint64(p.pos) > endOffset {
		return nil, fmt.Errorf("node %q properties overrun end offset %d", node.Name, endOffset)
	}

	for p.pos < int(endOffset) {
		child, err := p.readNode()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}
		node.Children = append(node.Children, child)
	}
	p.pos = int(endOffset)
	return node, nil
}

func (p *fbxParser) readProperty() (any, error) {
	typeCode, err := p.u8()
	if err != nil {
		return nil, err
	}

	switch typeCode {
	case 'Y':
		b, err := p.bytes(2)
		if err != nil {
			return nil, err
		}
		return int64(int16(binary.LittleEndian.Uint16(b))), nil
	case 'C':
		b, err := p.u8()
		return b != 0, err
	case 'I':
		v, err := p.u32()
		return int64(int32(v)), err
	case 'F':
		v, err := p.u32()
		return float64(math.Float32frombits(v)), err
	case 'D':
		v, err := p.u64()
		return math.Float64frombits(v), err
	case 'L':
		v, err := p.u64()
		return int64(v), err
	case 'S', 'R':
		n, err := p.u32()
		if err != nil {
			return nil, err
		}
		b, err := p.bytes(int(n))
		if err != nil {
			return nil, err
		}
		if typeCode == 'S' {
			return string(b), nil
		}
		return append([]byte(nil), b...), nil
	case 'f', 'd', 'l', 'i', 'b':
		return p.readArray(typeCode)
	default:
		return nil, fmt.Errorf("unknown property type %q", typeCode)
	}
}

// readArray decodes an array property into []float64 (f, d) or []int64 (l, i, b)
func (p *fbxParser) readArray(typeCode byte) (any, error) {
	length, err := p.u32()
	if err != nil {
		return nil, err
	}
	encoding, err := p.u32()
	if err != nil {
		return nil, err
	}
	compressedLength, err := p.u32()
	if err != nil {
		return nil, err
	}
	raw, err := p.bytes(int(compressedLength))
	if err != nil {
		return nil, err
	}

	elemSize := map[byte]int{'f': 4, 'd': 8, 'l': 8, 'i': 4, 'b': 1}[typeCode]
	switch encoding {
	case 0:
	case 1:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to open compressed array: %w", err)
		}
		raw, err = io.ReadAll(io.LimitReader(zr, int64(length)*int64(elemSize)+1))
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to inflate array: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown array encoding %d", encoding)
	}
	if len(raw) != int(length)*elemSize {
		return nil, fmt.Errorf("array holds %d bytes, want %d", len(raw), int(length)*elemSize)
	}

	switch typeCode {
	case 'f', 'd':
		out := make([]float64, length)
		for i := range out {
			if typeCode == 'f' {
				out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
			} else {
				out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
			}
		}
		return out, nil
	default:
		out := make([]int64, length)
		for i := range out {
			switch typeCode {
			case 'l':
				out[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
			case 'i':
				out[i] = int64(int32(binary.LittleEndian.Uint32(raw[i*4:])))
			default:
				out[i] = int64(raw[i])
			}
		}
		return out, nil
	}
}

// fbxModel is a Model object with its resolved local transform
type fbxModel struct {
	id    int64
	name  string
	local core.Mat4
}

// buildFBXAsset turns the Objects and Connections sections into an Asset
func buildFBXAsset(root *fbxNode) (*Asset, error) {
	objects := root.child("Objects")
	if objects == nil {
		return nil, fmt.Errorf("no Objects section")
	}

	asset := &Asset{}
	meshes := make(map[int64]*Mesh)
	var geometryOrder []int64
	var models []fbxModel
	materialIndex := make(map[int64]int)

	for _, obj := range objects.Children {
		id, _ := propInt(obj, 0)
		name := objectName(obj)
		switch obj.Name {
		case "Geometry":
			mesh, err := fbxGeometry(obj, name)
			if err != nil {
				return nil, err
			}
			if mesh != nil {
				meshes[id] = mesh
				geometryOrder = append(geometryOrder, id)
			}
		case "Model":
			models = append(models, fbxModel{id: id, name: name, local: fbxModelTransform(obj)})
		case "Material":
			info := MaterialInfo{Name: name, BaseColor: defaultBaseColor}
			if c, ok := properties70Vec3(obj, "DiffuseColor"); ok {
				info.BaseColor = c
			}
			materialIndex[id] = len(asset.Materials)
			asset.Materials = append(asset.Materials, info)
		case "Video", "Texture":
			if obj.Name == "Video" {
				asset.Images = append(asset.Images, name)
			}
		}
	}

	// child id -> parent ids, for object-object connections only
	parents := make(map[int64][]int64)
	if conns := root.child("Connections"); conns != nil {
		for _, c := range conns.Children {
			kind, _ := propString(c, 0)
			if c.Name != "C" || kind != "OO" {
				continue
			}
			child, ok1 := propInt(c, 1)
			parent, ok2 := propInt(c, 2)
			if ok1 && ok2 {
				parents[child] = append(parents[child], parent)
			}
		}
	}

	modelNode := make(map[int64]int)
	for _, m := range models {
		modelNode[m.id] = len(asset.Nodes)
		asset.Nodes = append(asset.Nodes, Node{Name: m.name, Parent: -1, Local: m.local})
	}
	for _, m := range models {
		for _, parent := range parents[m.id] {
			if idx, ok := modelNode[parent]; ok && parent != m.id {
				asset.Nodes[modelNode[m.id]].Parent = idx
				break
			}
		}
	}
	if hasParentCycle(asset.Nodes) {
		return nil, fmt.Errorf("model hierarchy contains a cycle")
	}

	// Materials attach to models; the first one colors the whole mesh
	modelMaterial := make(map[int64]int)
	for matID, idx := range materialIndex {
		for _, parent := range parents[matID] {
			if existing, ok := modelMaterial[parent]; !ok || idx < existing {
				modelMaterial[parent] = idx
			}
		}
	}

	for _, geomID := range geometryOrder {
		mesh := meshes[geomID]
		attached := false
		for _, parent := range parents[geomID] {
			idx, ok := modelNode[parent]
			if !ok {
				continue
			}
			node := &asset.Nodes[idx]
			if node.Mesh != nil {
				// A model holding two geometries gets an extra child per geometry
				asset.Nodes = append(asset.Nodes, Node{Name: mesh.Name, Parent: idx, Local: core.Identity4(), Mesh: withMaterial(mesh, modelMaterial, parent)})
			} else {
				node.Mesh = withMaterial(mesh, modelMaterial, parent)
			}
			attached = true
		}
		if !attached {
			asset.Nodes = append(asset.Nodes, Node{Name: mesh.Name, Parent: -1, Local: core.Identity4(), Mesh: mesh})
		}
	}

	if fbxUpAxis(root) != 2 {
		asset.convertRoots()
	}
	return asset, nil
}

// withMaterial returns mesh with the model's material applied to every primitive
func withMaterial(mesh *Mesh, modelMaterial map[int64]int, modelID int64) *Mesh {
	idx, ok := modelMaterial[modelID]
	if !ok {
		return mesh
	}
	out := &Mesh{Name: mesh.Name}
	for _, prim := range mesh.Primitives {
		prim.Material = idx
		out.Primitives = append(out.Primitives, prim)
	}
	return out
}

// fbxGeometry reads the vertex and polygon arrays of a Geometry object;
// non-mesh geometry (NURBS, lines) returns nil
func fbxGeometry(obj *fbxNode, name string) (*Mesh, error) {
	verticesNode := obj.child("Vertices")
	indexNode := obj.child("PolygonVertexIndex")
	if verticesNode == nil || indexNode == nil {
		return nil, nil
	}

	coords, ok := propFloats(verticesNode)
	if !ok || len(coords)%3 != 0 {
		return nil, fmt.Errorf("geometry %q: malformed Vertices array", name)
	}
	polygonIndex, ok := propInts(indexNode)
	if !ok {
		return nil, fmt.Errorf("geometry %q: malformed PolygonVertexIndex array", name)
	}

	prim := Primitive{
		Positions: make([]core.Vec3, len(coords)/3),
		Material:  -1,
	}
	for i := range prim.Positions {
		prim.Positions[i] = core.NewVec3(coords[i*3], coords[i*3+1], coords[i*3+2])
	}

	var polygon []int
	for _, v := range polygonIndex {
		// A negative index closes the polygon and stores the bitwise complement
		if v < 0 {
			polygon = append(polygon, int(^v))
			prim.Indices = append(prim.Indices, fanToList(polygon)...)
			polygon = polygon[:0]
			continue
		}
		polygon = append(polygon, int(v))
	}

	return &Mesh{Name: name, Primitives: []Primitive{prim}}, nil
}

// fbxModelTransform composes Lcl Translation, PreRotation * Lcl Rotation and Lcl Scaling
func fbxModelTransform(obj *fbxNode) core.Mat4 {
	translation, _ := properties70Vec3(obj, "Lcl Translation")
	rotation, _ := properties70Vec3(obj, "Lcl Rotation")
	preRotation, _ := properties70Vec3(obj, "PreRotation")
	scaling, ok := properties70Vec3(obj, "Lcl Scaling")
	if !ok {
		scaling = core.NewVec3(1, 1, 1)
	}

	toRadians := math.Pi / 180
	r := core.EulerXYZ(preRotation.Multiply(toRadians)).Mul(core.EulerXYZ(rotation.Multiply(toRadians)))
	return core.ComposeTRS(translation, r, scaling)
}

// fbxUpAxis returns GlobalSettings' UpAxis, defaulting to 1 (+Y)
func fbxUpAxis(root *fbxNode) int64 {
	settings := root.child("GlobalSettings")
	if settings == nil {
		return 1
	}
	for _, p := range properties70(settings) {
		if name, _ := propString(p, 0); name == "UpAxis" && len(p.Properties) > 4 {
			if v, ok := toInt(p.Properties[4]); ok {
				return v
			}
		}
	}
	return 1
}

func properties70(obj *fbxNode) []*fbxNode {
	props := obj.child("Properties70")
	if props == nil {
		return nil
	}
	return props.Children
}

// properties70Vec3 reads a three-component P entry such as Lcl Translation
func properties70Vec3(obj *fbxNode, name string) (core.Vec3, bool) {
	for _, p := range properties70(obj) {
		if n, _ := propString(p, 0); n != name || len(p.Properties) < 7 {
			continue
		}
		x, okX := toFloat(p.Properties[4])
		y, okY := toFloat(p.Properties[5])
		z, okZ := toFloat(p.Properties[6])
		if okX && okY && okZ {
			return core.NewVec3(x, y, z), true
		}
	}
	return core.Vec3{}, false
}

// objectName strips the "\x00\x01Class" suffix FBX appends to object names
func objectName(obj *fbxNode) string {
	name, _ := propString(obj, 1)
	if i := strings.Index(name, "\x00\x01"); i >= 0 {
		name = name[:i]
	}
	if i := strings.Index(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	return name
}

func propString(n *fbxNode, i int) (string, bool) {
	if i >= len(n.Properties) {
		return "", false
	}
	s, ok := n.Properties[i].(string)
	return s, ok
}

func propInt(n *fbxNode, i int) (int64, bool) {
	if i >= len(n.Properties) {
		return 0, false
	}
	return toInt(n.Properties[i])
}

func propFloats(n *fbxNode) ([]float64, bool) {
	if len(n.Properties) == 0 {
		return nil, false
	}
	v, ok := n.Properties[0].([]float64)
	return v, ok
}

func propInts(n *fbxNode) ([]int64, bool) {
	if len(n.Properties) == 0 {
		return nil, false
	}
	v, ok := n.Properties[0].([]int64)
	return v, ok
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// hasParentCycle reports whether following Parent links ever revisits a node
func hasParentCycle(nodes []Node) bool {
	for start := range nodes {
		steps := 0
		for i := nodes[start].Parent; i >= 0; i = nodes[i].Parent {
			steps++
			if steps > len(nodes) {
				return true
			}
		}
	}
	return false
}
