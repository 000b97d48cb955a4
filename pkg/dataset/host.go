// Package dataset drives multi-view dataset generation: scene normalization,
// camera placement, extrinsic export and the per-asset batch loop. It talks to
// the 3D host only through SceneHost.
package dataset

import (
	"context"
	"errors"

	"github.com/df07/go-multiview-renderer/pkg/core"
)

var (
	// ErrEmptyScene is returned when a bounding box is requested for a scene without meshes
	ErrEmptyScene = errors.New("scene contains no mesh objects")
	// ErrDegenerateBounds is returned when the scene has zero extent on every axis
	ErrDegenerateBounds = errors.New("scene bounding box has zero extent")
)

// SceneHost is the capability surface of the 3D application that owns the scene
type SceneHost interface {
	// Reset removes every object except cameras and lights and purges
	// materials, textures and images.
	Reset() error
	// ImportMesh merges a .glb or .fbx file into the scene.
	ImportMesh(path string) error
	// BoundingBox returns the union of the bound-box corners of every mesh
	// object, in world space unless ignoreTransforms is set. With
	// ignoreTransforms the imported object transforms are skipped but the
	// ScaleRoots/TranslateRoots adjustments made since Reset still apply.
	BoundingBox(ignoreTransforms bool) (core.AABB, error)
	// ScaleRoots scales every parentless non-camera, non-light object about
	// the world origin.
	ScaleRoots(factor float64)
	// TranslateRoots moves every parentless non-camera, non-light object by offset.
	TranslateRoots(offset core.Vec3)
	// SetCameraPose places the active camera at position, looking at lookAt.
	SetCameraPose(position, lookAt core.Vec3)
	// CameraWorldMatrix returns the active camera's camera-to-world transform.
	CameraWorldMatrix() core.Mat4
	// RenderFrame renders the current view to a PNG at outputPath and blocks until done.
	RenderFrame(ctx context.Context, outputPath string) error
}
