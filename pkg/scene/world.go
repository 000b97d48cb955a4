package scene

import (
	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/geometry"
	"github.com/df07/go-multiview-renderer/pkg/lights"
	"github.com/df07/go-multiview-renderer/pkg/loaders"
	"github.com/df07/go-multiview-renderer/pkg/material"
)

// world is a flattened, render-ready snapshot of a Scene
type world struct {
	bvh           *geometry.BVH
	lights        []lights.Light
	triangleCount int
}

// buildWorld bakes every mesh object into world-space triangles under one BVH
func buildWorld(s *Scene) *world {
	fallback := material.NewLambertian("Default", material.DefaultAlbedo)

	var shapes []geometry.Shape
	var sceneLights []lights.Light
	for _, obj := range s.Objects {
		switch obj.Kind {
		case KindMesh:
			shapes = appendTriangles(shapes, obj, fallback)
		case KindLight:
			if obj.Light != nil {
				sceneLights = append(sceneLights, obj.Light)
			}
		}
	}

	return &world{
		bvh:           geometry.NewBVH(shapes),
		lights:        sceneLights,
		triangleCount: len(shapes),
	}
}

// appendTriangles transforms an object's primitives to world space, skipping zero-area faces
func appendTriangles(shapes []geometry.Shape, obj *Object, fallback material.Material) []geometry.Shape {
	if obj.Mesh == nil {
		return shapes
	}
	toWorld := obj.WorldMatrix()
	for _, prim := range obj.Mesh.Primitives {
		mat := obj.materialFor(prim.Material, fallback)
		positions := transformPositions(prim, toWorld)
		for i := 0; i+2 < len(prim.Indices); i += 3 {
			tri := geometry.NewTriangle(positions[prim.Indices[i]], positions[prim.Indices[i+1]], positions[prim.Indices[i+2]], mat)
			if !tri.IsDegenerate() {
				shapes = append(shapes, tri)
			}
		}
	}
	return shapes
}

func transformPositions(prim loaders.Primitive, m core.Mat4) []core.Vec3 {
	out := make([]core.Vec3, len(prim.Positions))
	for i, p := range prim.Positions {
		out[i] = m.TransformPoint(p)
	}
	return out
}

// Hit finds the closest intersection along ray
func (w *world) Hit(ray core.Ray, tMin, tMax float64, hit *material.HitRecord) bool {
	return w.bvh.Hit(ray, tMin, tMax, hit)
}

// GetLights returns the scene's light sources
func (w *world) GetLights() []lights.Light {
	return w.lights
}
