// Package testasset writes small mesh files for tests.
package testasset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// boxIndices are the 12 outward-facing triangles of a box whose corner i has
// bit 0 = +X, bit 1 = +Y, bit 2 = +Z
var boxIndices = []uint16{
	0, 2, 1, 1, 2, 3, // -Z
	4, 5, 6, 5, 7, 6, // +Z
	0, 1, 4, 1, 5, 4, // -Y
	2, 6, 3, 3, 6, 7, // +Y
	0, 4, 2, 2, 4, 6, // -X
	1, 3, 5, 3, 7, 5, // +X
}

// Box describes an axis-aligned box mesh placed by a node translation
type Box struct {
	Min, Max    [3]float32
	Translation [3]float64
	Color       *[4]float64 // Optional base color factor
}

// BoxCorners returns the eight corners in index order
func (b Box) BoxCorners() [][3]float32 {
	corners := make([][3]float32, 8)
	for i := range corners {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				corners[i][axis] = b.Max[axis]
			} else {
				corners[i][axis] = b.Min[axis]
			}
		}
	}
	return corners
}

// WriteGLB saves the box as a binary glTF file at path
func (b Box) WriteGLB(path string) error {
	return WriteBoxesGLB(path, b)
}

// WriteBoxesGLB saves every box as its own root node of one binary glTF file
func WriteBoxesGLB(path string, boxes ...Box) error {
	doc := gltf.NewDocument()
	indices := modeler.WriteIndices(doc, boxIndices)

	for i, b := range boxes {
		positions := modeler.WritePosition(doc, b.BoxCorners())
		prim := &gltf.Primitive{
			Indices:    gltf.Index(indices),
			Attributes: map[string]int{gltf.POSITION: positions},
		}
		if b.Color != nil {
			c := *b.Color
			doc.Materials = append(doc.Materials, &gltf.Material{
				Name: "BoxMaterial",
				PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
					BaseColorFactor: &c,
				},
			})
			prim.Material = gltf.Index(len(doc.Materials) - 1)
		}

		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: "Box", Primitives: []*gltf.Primitive{prim}})
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "BoxNode", Mesh: gltf.Index(i), Translation: b.Translation})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, i)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// UnitCube is a box from (-0.5, -0.5, -0.5) to (0.5, 0.5, 0.5)
func UnitCube() Box {
	return Box{Min: [3]float32{-0.5, -0.5, -0.5}, Max: [3]float32{0.5, 0.5, 0.5}}
}
