package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/df07/go-multiview-renderer/pkg/core"
)

// fakeHost models a scene as a single bounding box moved by root transforms
type fakeHost struct {
	meshBox   core.AABB // Box every import produces
	box       core.AABB
	local     core.AABB // meshBox moved only by root adjustments
	hasMesh   bool
	resets    int
	imported  []string
	rendered  []string
	camera    core.Mat4
	importErr error
	renderErr error
	failAt    int // RenderFrame fails on this call number (1-based) when renderErr is set
	calls     int
}

func newFakeHost(meshBox core.AABB) *fakeHost {
	return &fakeHost{meshBox: meshBox, camera: core.Identity4()}
}

func (f *fakeHost) Reset() error {
	f.resets++
	f.hasMesh = false
	f.box = core.AABB{}
	f.local = core.AABB{}
	return nil
}

func (f *fakeHost) ImportMesh(path string) error {
	if f.importErr != nil {
		return f.importErr
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	f.imported = append(f.imported, path)
	f.hasMesh = true
	f.box = f.meshBox
	f.local = f.meshBox
	return nil
}

func (f *fakeHost) BoundingBox(ignoreTransforms bool) (core.AABB, error) {
	if !f.hasMesh {
		return core.AABB{}, ErrEmptyScene
	}
	if ignoreTransforms {
		return f.local, nil
	}
	return f.box, nil
}

func (f *fakeHost) ScaleRoots(factor float64) {
	f.box = core.NewAABB(f.box.Min.Multiply(factor), f.box.Max.Multiply(factor))
	f.local = core.NewAABB(f.local.Min.Multiply(factor), f.local.Max.Multiply(factor))
}

func (f *fakeHost) TranslateRoots(offset core.Vec3) {
	f.box = core.NewAABB(f.box.Min.Add(offset), f.box.Max.Add(offset))
	f.local = core.NewAABB(f.local.Min.Add(offset), f.local.Max.Add(offset))
}

func (f *fakeHost) SetCameraPose(position, lookAt core.Vec3) {
	f.camera = core.ComposeTRS(position, core.LookAt(position, lookAt, core.NewVec3(0, 0, 1)), core.NewVec3(1, 1, 1))
}

func (f *fakeHost) CameraWorldMatrix() core.Mat4 {
	return f.camera
}

func (f *fakeHost) RenderFrame(ctx context.Context, outputPath string) error {
	f.calls++
	if f.renderErr != nil && (f.failAt == 0 || f.calls == f.failAt) {
		return f.renderErr
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return err
	}
	f.rendered = append(f.rendered, outputPath)
	return os.WriteFile(outputPath, []byte(fmt.Sprintf("frame %d", f.calls)), 0644)
}
