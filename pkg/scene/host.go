package scene

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/dataset"
	"github.com/df07/go-multiview-renderer/pkg/integrator"
	"github.com/df07/go-multiview-renderer/pkg/lights"
	"github.com/df07/go-multiview-renderer/pkg/loaders"
	"github.com/df07/go-multiview-renderer/pkg/renderer"
)

const (
	cameraName = "Camera"
	worldName  = "World"
)

var worldUp = core.NewVec3(0, 0, 1)

// Settings controls how the host renders frames
type Settings struct {
	Engine        integrator.Engine
	Sampling      core.SamplingConfig
	LensMM        float64   // Focal length
	SensorWidthMM float64   // Sensor width
	WorldColor    core.Vec3 // Background light color
	WorldStrength float64   // Background light strength
	Render        renderer.Options
}

// DefaultSettings returns the dataset render settings: 576x576, 128 samples,
// a 35mm lens on a 32mm sensor and a white world light at strength 0.8
func DefaultSettings() Settings {
	return Settings{
		Engine:        integrator.EnginePathTrace,
		Sampling:      core.DefaultSamplingConfig(),
		LensMM:        35,
		SensorWidthMM: 32,
		WorldColor:    core.NewVec3(1, 1, 1),
		WorldStrength: 0.8,
		Render:        renderer.DefaultOptions(),
	}
}

// Host is the built-in SceneHost: a scene graph rendered by the in-process path tracer
type Host struct {
	scene    *Scene
	camera   *Object
	adjust   core.Mat4 // Root scaling and translation applied since the last Reset
	settings Settings
	logger   *zap.Logger
}

var _ dataset.SceneHost = (*Host)(nil)

// NewHost creates a host whose scene holds one camera and the world light
func NewHost(settings Settings, logger *zap.Logger) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := NewScene()
	camera := s.Add(&Object{Name: cameraName, Kind: KindCamera, Local: core.Identity4()})
	s.Add(&Object{
		Name:  worldName,
		Kind:  KindLight,
		Local: core.Identity4(),
		Light: lights.NewUniformInfiniteLight(settings.WorldColor, settings.WorldStrength),
	})

	h := &Host{scene: s, camera: camera, adjust: core.Identity4(), settings: settings, logger: logger}
	h.SetCameraPose(core.NewVec3(0, -1.2, 0), core.Vec3{})
	return h
}

// Scene exposes the scene graph
func (h *Host) Scene() *Scene {
	return h.scene
}

// Reset removes everything except cameras and lights
func (h *Host) Reset() error {
	h.scene.Clear()
	h.adjust = core.Identity4()
	return nil
}

// ImportMesh loads a .glb or .fbx file into the scene. Unsupported extensions
// and parse errors leave the scene untouched.
func (h *Host) ImportMesh(path string) error {
	start := time.Now()
	asset, err := loaders.Load(path)
	if err != nil {
		return err
	}

	created := h.scene.addAsset(asset)
	h.logger.Debug("mesh imported",
		zap.String("path", path),
		zap.Int("objects", len(created)),
		zap.Int("materials", len(asset.Materials)),
		zap.Int("triangles", h.scene.TriangleCount()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// BoundingBox unions the eight bound-box corners of every mesh object. With
// ignoreTransforms the corners skip the imported object transforms and only
// see the root adjustments made since Reset.
func (h *Host) BoundingBox(ignoreTransforms bool) (core.AABB, error) {
	box := core.EmptyAABB()
	found := false
	for _, obj := range h.scene.MeshObjects() {
		local, ok := meshBounds(obj.Mesh)
		if !ok {
			continue
		}
		toBox := obj.WorldMatrix()
		if ignoreTransforms {
			toBox = h.adjust
		}
		for _, corner := range local.Corners() {
			box = box.Extend(toBox.TransformPoint(corner))
		}
		found = true
	}
	if !found {
		return core.AABB{}, dataset.ErrEmptyScene
	}
	return box, nil
}

// ScaleRoots scales every root object about the world origin, so roots placed
// apart keep their relative layout
func (h *Host) ScaleRoots(factor float64) {
	for _, obj := range h.scene.Roots() {
		obj.Local = obj.Local.ScaleAboutOrigin(factor)
	}
	h.adjust = h.adjust.ScaleAboutOrigin(factor)
}

// TranslateRoots moves every root object by offset
func (h *Host) TranslateRoots(offset core.Vec3) {
	for _, obj := range h.scene.Roots() {
		obj.Local = obj.Local.Translate(offset)
	}
	h.adjust = h.adjust.Translate(offset)
}

// SetCameraPose places the camera at position with its -Z axis aimed at lookAt
// and its +Y axis as close to world +Z as possible
func (h *Host) SetCameraPose(position, lookAt core.Vec3) {
	rotation := core.LookAt(position, lookAt, worldUp)
	h.camera.Parent = nil
	h.camera.Local = core.ComposeTRS(position, rotation, core.NewVec3(1, 1, 1))
}

// CameraWorldMatrix returns the camera-to-world transform
func (h *Host) CameraWorldMatrix() core.Mat4 {
	return h.camera.WorldMatrix()
}

// RenderFrame renders the current camera view and writes it to outputPath as RGBA PNG
func (h *Host) RenderFrame(ctx context.Context, outputPath string) error {
	start := time.Now()
	world := buildWorld(h.scene)

	integratorInst, err := integrator.New(h.settings.Engine, h.settings.Sampling)
	if err != nil {
		return err
	}

	camera := renderer.NewCamera(renderer.CameraConfig{
		World:         h.CameraWorldMatrix(),
		Width:         h.settings.Sampling.Width,
		Height:        h.settings.Sampling.Height,
		LensMM:        h.settings.LensMM,
		SensorWidthMM: h.settings.SensorWidthMM,
	})

	r := renderer.NewRenderer(world, integratorInst, h.settings.Sampling, h.settings.Render, h.logger)
	img, stats, err := r.Render(ctx, camera)
	if err != nil {
		return err
	}
	if err := renderer.SavePNG(outputPath, img); err != nil {
		return fmt.Errorf("failed to save %s: %w", outputPath, err)
	}

	h.logger.Debug("frame written",
		zap.String("path", outputPath),
		zap.String("engine", string(h.settings.Engine)),
		zap.Int("triangles", world.triangleCount),
		zap.Float64("avg_samples", stats.AverageSamples),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
