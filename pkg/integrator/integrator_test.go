package integrator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/geometry"
	"github.com/df07/go-multiview-renderer/pkg/lights"
	"github.com/df07/go-multiview-renderer/pkg/material"
)

// planeScene is a large Lambertian floor at z = 0 under a uniform world light
type planeScene struct {
	bvh    *geometry.BVH
	lights []lights.Light
}

func newPlaneScene(albedo float64, worldStrength float64) *planeScene {
	mat := material.NewLambertian("floor", core.NewVec3(albedo, albedo, albedo))
	a, b, c, d := core.NewVec3(-100, -100, 0), core.NewVec3(100, -100, 0), core.NewVec3(100, 100, 0), core.NewVec3(-100, 100, 0)
	return &planeScene{
		bvh:    geometry.NewBVH([]geometry.Shape{geometry.NewTriangle(a, b, c, mat), geometry.NewTriangle(a, c, d, mat)}),
		lights: []lights.Light{lights.NewUniformInfiniteLight(core.NewVec3(1, 1, 1), worldStrength)},
	}
}

func (s *planeScene) Hit(ray core.Ray, tMin, tMax float64, hit *material.HitRecord) bool {
	return s.bvh.Hit(ray, tMin, tMax, hit)
}

func (s *planeScene) GetLights() []lights.Light { return s.lights }

func TestParseEngine(t *testing.T) {
	tests := []struct {
		input   string
		want    Engine
		wantErr bool
	}{
		{"pathtrace", EnginePathTrace, false},
		{"PATHTRACE", EnginePathTrace, false},
		{"preview", EnginePreview, false},
		{"Preview", EnginePreview, false},
		{"CYCLES", EnginePathTrace, false},
		{"BLENDER_EEVEE", EnginePreview, false},
		{"BLENDER_WORKBENCH", "", true},
		{"raster", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEngine(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEngine(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEngine(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewRejectsUnknownEngine(t *testing.T) {
	if _, err := New("bdpt", core.DefaultSamplingConfig()); err == nil {
		t.Error("expected an error for an unknown engine")
	}
}

func TestEscapedRays(t *testing.T) {
	scene := newPlaneScene(0.8, 0.8)
	up := core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(0, 0, 1))
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(1)))

	for _, engine := range Engines {
		t.Run(string(engine), func(t *testing.T) {
			config := core.DefaultSamplingConfig()
			integ, err := New(engine, config)
			if err != nil {
				t.Fatal(err)
			}
			color, alpha := integ.RayColor(up, scene, sampler)
			if alpha != 0 || color != (core.Vec3{}) {
				t.Errorf("transparent film: got color %v alpha %v", color, alpha)
			}

			config.TransparentFilm = false
			integ, _ = New(engine, config)
			color, alpha = integ.RayColor(up, scene, sampler)
			if alpha != 1 || math.Abs(color.X-0.8) > 1e-12 {
				t.Errorf("opaque film: got color %v alpha %v", color, alpha)
			}
		})
	}
}

func TestPreviewIsExactOnOpenPlane(t *testing.T) {
	scene := newPlaneScene(0.8, 0.8)
	down := core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(0.1, 0, -1).Normalize())
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(2)))
	integ := NewPreviewIntegrator(core.DefaultSamplingConfig())

	for i := 0; i < 20; i++ {
		color, alpha := integ.RayColor(down, scene, sampler)
		if alpha != 1 {
			t.Fatalf("alpha = %v, want 1", alpha)
		}
		if math.Abs(color.X-0.64) > 1e-9 {
			t.Fatalf("sample %d: got %v, want 0.64", i, color.X)
		}
	}
}

func TestPathTracingConvergesOnOpenPlane(t *testing.T) {
	scene := newPlaneScene(0.8, 0.8)
	down := core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(0, 0, -1))
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(3)))
	integ := NewPathTracingIntegrator(core.DefaultSamplingConfig())

	const n = 4000
	sum := 0.0
	for i := 0; i < n; i++ {
		color, alpha := integ.RayColor(down, scene, sampler)
		if alpha != 1 {
			t.Fatalf("alpha = %v, want 1", alpha)
		}
		if !color.IsFinite() || color.X < 0 {
			t.Fatalf("invalid sample %v", color)
		}
		sum += color.X
	}
	mean := sum / n
	if math.Abs(mean-0.64) > 0.03 {
		t.Errorf("mean radiance %v, want about 0.64", mean)
	}
}
