package integrator

import (
	"fmt"
	"strings"

	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/lights"
	"github.com/df07/go-multiview-renderer/pkg/material"
)

// rayEpsilon offsets secondary rays to avoid self-intersection
const rayEpsilon = 1e-4

// Scene is the part of a render scene the integrators need
type Scene interface {
	Hit(ray core.Ray, tMin, tMax float64, hit *material.HitRecord) bool
	GetLights() []lights.Light
}

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// RayColor returns the radiance carried by a camera ray and its coverage (alpha)
	RayColor(ray core.Ray, scene Scene, sampler core.Sampler) (color core.Vec3, alpha float64)
}

// Engine names a light transport algorithm selectable from the command line
type Engine string

const (
	// EnginePathTrace is full path tracing with next-event estimation
	EnginePathTrace Engine = "pathtrace"
	// EnginePreview shades direct lighting only
	EnginePreview Engine = "preview"
)

// Engines lists every accepted engine name
var Engines = []Engine{EnginePathTrace, EnginePreview}

// engineAliases maps the Blender engine identifiers older scripts pass
var engineAliases = map[string]Engine{
	"cycles":        EnginePathTrace,
	"blender_eevee": EnginePreview,
	"eevee":         EnginePreview,
}

// ParseEngine resolves an engine name or alias case-insensitively
func ParseEngine(name string) (Engine, error) {
	for _, e := range Engines {
		if strings.EqualFold(name, string(e)) {
			return e, nil
		}
	}
	if e, ok := engineAliases[strings.ToLower(name)]; ok {
		return e, nil
	}
	return "", fmt.Errorf("unknown engine %q (want one of %v)", name, Engines)
}

// New creates the integrator for engine
func New(engine Engine, config core.SamplingConfig) (Integrator, error) {
	switch engine {
	case EnginePathTrace:
		return NewPathTracingIntegrator(config), nil
	case EnginePreview:
		return NewPreviewIntegrator(config), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}
}

// escaped handles a camera ray that left the scene without hitting anything
func escaped(ray core.Ray, scene Scene, config core.SamplingConfig) (core.Vec3, float64) {
	if config.TransparentFilm {
		return core.Vec3{}, 0
	}
	return lights.EmitEscaped(scene.GetLights(), ray), 1
}

// directLighting samples one light for the surface at hit, including the shadow ray
func directLighting(scene Scene, ray core.Ray, hit *material.HitRecord, sampler core.Sampler, useMIS bool) core.Vec3 {
	lightSample, ok := lights.SampleLight(scene.GetLights(), hit.Point, hit.Normal, sampler)
	if !ok || lightSample.PDF <= 0 {
		return core.Vec3{}
	}

	cosine := lightSample.Direction.Dot(hit.Normal)
	if cosine <= 0 {
		return core.Vec3{}
	}

	var occluder material.HitRecord
	shadowRay := core.NewRay(hit.Point, lightSample.Direction)
	if scene.Hit(shadowRay, rayEpsilon, lightSample.Distance-rayEpsilon, &occluder) {
		return core.Vec3{}
	}

	brdf := hit.Material.EvaluateBRDF(ray.Direction.Negate(), lightSample.Direction, *hit)

	weight := 1.0
	if useMIS {
		materialPDF, isDelta := hit.Material.PDF(ray.Direction.Negate(), lightSample.Direction, hit.Normal)
		if isDelta {
			return core.Vec3{}
		}
		weight = core.PowerHeuristic(1, lightSample.PDF, 1, materialPDF)
	}

	return brdf.MultiplyVec(lightSample.Emission).Multiply(cosine * weight / lightSample.PDF)
}
