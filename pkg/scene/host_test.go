package scene

import (
	"context"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/df07/go-multiview-renderer/internal/testasset"
	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/dataset"
	"github.com/df07/go-multiview-renderer/pkg/loaders"
)

func newTestHost(t *testing.T) *Host {
	t.Helper()
	settings := DefaultSettings()
	settings.Sampling.Width = 24
	settings.Sampling.Height = 24
	settings.Sampling.SamplesPerPixel = 4
	settings.Render.TileSize = 8
	settings.Render.NumWorkers = 2
	return NewHost(settings, zaptest.NewLogger(t))
}

func writeBox(t *testing.T, name string, box testasset.Box) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, box.WriteGLB(path))
	return path
}

func TestNewHostHasCameraAndWorld(t *testing.T) {
	h := newTestHost(t)
	require.Len(t, h.Scene().Objects, 2)
	assert.Equal(t, KindCamera, h.Scene().Object(cameraName).Kind)
	assert.Equal(t, KindLight, h.Scene().Object(worldName).Kind)
	assert.Empty(t, h.Scene().Roots())
}

func TestImportAndReset(t *testing.T) {
	h := newTestHost(t)
	color := [4]float64{1, 0, 0, 1}
	box := testasset.UnitCube()
	box.Color = &color
	path := writeBox(t, "cube.glb", box)

	require.NoError(t, h.ImportMesh(path))
	require.NoError(t, h.ImportMesh(path))
	assert.Len(t, h.Scene().MeshObjects(), 2)
	assert.Len(t, h.Scene().Materials, 2, "second import gets a suffixed material")
	assert.NotNil(t, h.Scene().Object("BoxNode.001"))

	require.NoError(t, h.Reset())
	assert.Empty(t, h.Scene().MeshObjects())
	assert.Empty(t, h.Scene().Materials)
	assert.Empty(t, h.Scene().Images)
	assert.NotNil(t, h.Scene().Object(cameraName))
	assert.NotNil(t, h.Scene().Object(worldName))
}

func TestImportUnsupportedLeavesSceneUntouched(t *testing.T) {
	h := newTestHost(t)
	path := filepath.Join(t.TempDir(), "mesh.obj")
	require.NoError(t, os.WriteFile(path, []byte("v 0 0 0\n"), 0644))

	err := h.ImportMesh(path)
	assert.True(t, errors.Is(err, loaders.ErrUnsupportedFormat))
	assert.Len(t, h.Scene().Objects, 2)
}

func TestBoundingBoxEmptyScene(t *testing.T) {
	h := newTestHost(t)
	_, err := h.BoundingBox(false)
	assert.True(t, errors.Is(err, dataset.ErrEmptyScene))
}

func TestBoundingBoxTransforms(t *testing.T) {
	h := newTestHost(t)
	box := testasset.Box{Min: [3]float32{0, 0, 0}, Max: [3]float32{1, 2, 3}, Translation: [3]float64{10, 0, 0}}
	require.NoError(t, h.ImportMesh(writeBox(t, "box.glb", box)))

	local, err := h.BoundingBox(true)
	require.NoError(t, err)
	assert.Equal(t, core.NewVec3(0, 0, 0), local.Min)
	assert.Equal(t, core.NewVec3(1, 2, 3), local.Max)

	// Y-up file: local Y becomes world Z, local Z becomes world -Y
	world, err := h.BoundingBox(false)
	require.NoError(t, err)
	assertNear(t, core.NewVec3(10, -3, 0), world.Min)
	assertNear(t, core.NewVec3(11, 0, 2), world.Max)
}

func TestScaleAndTranslateSkipCameraAndLights(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.ImportMesh(writeBox(t, "cube.glb", testasset.UnitCube())))
	cameraBefore := h.CameraWorldMatrix()

	h.ScaleRoots(2)
	h.TranslateRoots(core.NewVec3(1, 0, 0))

	box, err := h.BoundingBox(false)
	require.NoError(t, err)
	assertNear(t, core.NewVec3(0, -1, -1), box.Min)
	assertNear(t, core.NewVec3(2, 1, 1), box.Max)
	assert.Equal(t, cameraBefore, h.CameraWorldMatrix())
}

func TestChildrenFollowRoots(t *testing.T) {
	h := newTestHost(t)
	parent := h.Scene().Add(&Object{Name: "parent", Kind: KindEmpty, Local: core.Identity4()})
	child := h.Scene().Add(&Object{Name: "child", Kind: KindEmpty, Parent: parent, Local: core.Identity4().Translate(core.NewVec3(1, 0, 0))})

	h.ScaleRoots(3)
	h.TranslateRoots(core.NewVec3(0, 0, 1))

	assert.Equal(t, core.Identity4().Translate(core.NewVec3(1, 0, 0)), child.Local)
	assertNear(t, core.NewVec3(3, 0, 1), child.WorldMatrix().Translation())
}

func TestSetCameraPoseTracksTarget(t *testing.T) {
	tests := []struct {
		name     string
		position core.Vec3
	}{
		{"front", core.NewVec3(0, -2, 0)},
		{"side", core.NewVec3(1.2, 0, 0.1)},
		{"diagonal", core.NewVec3(-0.7, 0.7, -0.2)},
		{"straight above", core.NewVec3(0, 0, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHost(t)
			h.SetCameraPose(tt.position, core.Vec3{})

			location, rotation, scale := h.CameraWorldMatrix().Decompose()
			assertNear(t, tt.position, location)
			assertNear(t, core.NewVec3(1, 1, 1), scale)

			forward := rotation.Column(2).Negate()
			assertNear(t, tt.position.Negate().Normalize(), forward)

			up := rotation.Column(1)
			assert.GreaterOrEqual(t, up.Z, 0.0)
			assert.InDelta(t, 0, up.Dot(forward), 1e-9)
			assert.InDelta(t, 0, rotation.Column(0).Z, 1e-9, "camera roll should be level")
		})
	}
}

func TestNormalizeWithHost(t *testing.T) {
	h := newTestHost(t)
	box := testasset.Box{Min: [3]float32{2, 2, 2}, Max: [3]float32{6, 3, 4}, Translation: [3]float64{0, 1, 0}}
	require.NoError(t, h.ImportMesh(writeBox(t, "box.glb", box)))

	require.NoError(t, dataset.Normalize(h, false))

	normalized, err := h.BoundingBox(false)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, normalized.Size().MaxComponent(), 1e-9)
	assertNear(t, core.Vec3{}, normalized.Center())
}

func writeBoxes(t *testing.T, name string, boxes ...testasset.Box) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, testasset.WriteBoxesGLB(path, boxes...))
	return path
}

func TestNormalizeMultipleRoots(t *testing.T) {
	tests := []struct {
		name  string
		boxes []testasset.Box
	}{
		{"side by side", []testasset.Box{
			testasset.UnitCube(),
			{Min: [3]float32{-0.5, -0.5, -0.5}, Max: [3]float32{0.5, 0.5, 0.5}, Translation: [3]float64{10, 0, 0}},
		}},
		{"offset and uneven", []testasset.Box{
			{Min: [3]float32{2, 2, 2}, Max: [3]float32{6, 3, 4}, Translation: [3]float64{-4, 1, 0}},
			{Min: [3]float32{0, 0, 0}, Max: [3]float32{1, 1, 1}, Translation: [3]float64{3, -2, 7}},
			{Min: [3]float32{-1, -1, -1}, Max: [3]float32{0, 0, 0}, Translation: [3]float64{0, 9, -3}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHost(t)
			require.NoError(t, h.ImportMesh(writeBoxes(t, "boxes.glb", tt.boxes...)))
			require.Len(t, h.Scene().Roots(), len(tt.boxes))
			before, err := h.BoundingBox(false)
			require.NoError(t, err)

			require.NoError(t, dataset.Normalize(h, false))

			after, err := h.BoundingBox(false)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, after.Size().MaxComponent(), 1e-9)
			assertNear(t, core.Vec3{}, after.Center())
			assertNear(t, before.Size().Multiply(1/before.Size().MaxComponent()), after.Size())
		})
	}
}

func TestNormalizeIgnoringTransforms(t *testing.T) {
	h := newTestHost(t)
	boxes := []testasset.Box{
		{Min: [3]float32{2, 2, 2}, Max: [3]float32{6, 3, 4}, Translation: [3]float64{10, 0, 0}},
		{Min: [3]float32{-0.5, -0.5, -0.5}, Max: [3]float32{0.5, 0.5, 0.5}, Translation: [3]float64{0, 5, 0}},
	}
	require.NoError(t, h.ImportMesh(writeBoxes(t, "boxes.glb", boxes...)))

	local, err := h.BoundingBox(true)
	require.NoError(t, err)
	assertNear(t, core.NewVec3(-0.5, -0.5, -0.5), local.Min)
	assertNear(t, core.NewVec3(6, 3, 4), local.Max)
	world, err := h.BoundingBox(false)
	require.NoError(t, err)

	require.NoError(t, dataset.Normalize(h, true))

	normalized, err := h.BoundingBox(true)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, normalized.Size().MaxComponent(), 1e-9)
	assertNear(t, core.Vec3{}, normalized.Center())

	// The world-space scene shrinks by the same factor
	worldAfter, err := h.BoundingBox(false)
	require.NoError(t, err)
	assertNear(t, world.Size().Multiply(1/6.5), worldAfter.Size())

	require.NoError(t, h.Reset())
	require.NoError(t, h.ImportMesh(writeBoxes(t, "again.glb", boxes...)))
	fresh, err := h.BoundingBox(true)
	require.NoError(t, err)
	assertNear(t, local.Min, fresh.Min)
	assertNear(t, local.Max, fresh.Max)
}

func TestRenderFrame(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.ImportMesh(writeBox(t, "cube.glb", testasset.UnitCube())))
	require.NoError(t, dataset.Normalize(h, false))
	h.SetCameraPose(core.NewVec3(0, -2.5, 0), core.Vec3{})

	out := filepath.Join(t.TempDir(), "views", "000.png")
	require.NoError(t, h.RenderFrame(context.Background(), out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 24, bounds.Dx())
	assert.Equal(t, 24, bounds.Dy())

	_, _, _, cornerAlpha := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), cornerAlpha, "background is transparent")
	r, _, _, centerAlpha := img.At(12, 12).RGBA()
	assert.Equal(t, uint32(0xffff), centerAlpha, "cube covers the center")
	assert.Greater(t, r, uint32(0), "cube is lit by the world light")
}

func TestRenderFrameHonoursCancellation(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.ImportMesh(writeBox(t, "cube.glb", testasset.UnitCube())))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := filepath.Join(t.TempDir(), "000.png")
	err := h.RenderFrame(ctx, out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, out)
}

func assertNear(t *testing.T, want, got core.Vec3) {
	t.Helper()
	if math.Abs(want.X-got.X) > 1e-6 || math.Abs(want.Y-got.Y) > 1e-6 || math.Abs(want.Z-got.Z) > 1e-6 {
		t.Errorf("got %v, want %v", got, want)
	}
}
