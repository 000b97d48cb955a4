package integrator

import (
	"math"

	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/lights"
	"github.com/df07/go-multiview-renderer/pkg/material"
)

// PathTracingIntegrator implements unidirectional path tracing
type PathTracingIntegrator struct {
	config core.SamplingConfig
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(config core.SamplingConfig) *PathTracingIntegrator {
	return &PathTracingIntegrator{config: config}
}

// RayColor computes the color for a camera ray using unidirectional path tracing
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, scene Scene, sampler core.Sampler) (core.Vec3, float64) {
	var hit material.HitRecord
	if !scene.Hit(ray, rayEpsilon, math.Inf(1), &hit) {
		return escaped(ray, scene, pt.config)
	}
	return pt.shade(ray, &hit, scene, sampler, pt.config.MaxDepth, core.NewVec3(1, 1, 1)), 1
}

// shade returns the radiance leaving hit toward the ray origin
func (pt *PathTracingIntegrator) shade(ray core.Ray, hit *material.HitRecord, scene Scene, sampler core.Sampler, depth int, throughput core.Vec3) core.Vec3 {
	if depth <= 0 {
		return core.Vec3{}
	}

	scatter, didScatter := hit.Material.Scatter(ray, *hit, sampler)
	if !didScatter {
		return core.Vec3{}
	}

	if scatter.IsSpecular() {
		newThroughput := throughput.MultiplyVec(scatter.Attenuation)
		return scatter.Attenuation.MultiplyVec(pt.trace(scatter.Scattered, hit, scatter, scene, sampler, depth-1, newThroughput))
	}

	direct := directLighting(scene, ray, hit, sampler, true)
	if depth == 1 {
		return direct
	}

	shouldTerminate, rrCompensation := pt.applyRussianRoulette(depth, throughput, sampler)
	if shouldTerminate {
		return direct
	}

	cosine := scatter.Scattered.Direction.Normalize().Dot(hit.Normal)
	if cosine <= 0 || scatter.PDF <= 0 {
		return direct
	}

	factor := scatter.Attenuation.Multiply(cosine / scatter.PDF)
	newThroughput := throughput.MultiplyVec(factor).Multiply(rrCompensation)
	incoming := pt.trace(scatter.Scattered, hit, scatter, scene, sampler, depth-1, newThroughput)

	return direct.Add(factor.MultiplyVec(incoming).Multiply(rrCompensation))
}

// trace follows a scattered ray; escaped rays pick up MIS-weighted world emission
func (pt *PathTracingIntegrator) trace(ray core.Ray, from *material.HitRecord, scatter material.ScatterResult, scene Scene, sampler core.Sampler, depth int, throughput core.Vec3) core.Vec3 {
	var hit material.HitRecord
	if scene.Hit(ray, rayEpsilon, math.Inf(1), &hit) {
		return pt.shade(ray, &hit, scene, sampler, depth, throughput)
	}

	emission := lights.EmitEscaped(scene.GetLights(), ray)
	if scatter.IsSpecular() {
		return emission
	}

	lightPDF := lights.CalculateLightPDF(scene.GetLights(), from.Point, from.Normal, ray.Direction)
	return emission.Multiply(core.PowerHeuristic(1, scatter.PDF, 1, lightPDF))
}

// applyRussianRoulette determines if a path should be terminated and returns the compensation factor
func (pt *PathTracingIntegrator) applyRussianRoulette(depth int, throughput core.Vec3, sampler core.Sampler) (bool, float64) {
	currentBounce := pt.config.MaxDepth - depth
	if currentBounce < pt.config.RussianRouletteMinBounces {
		return false, 1.0
	}

	// Survival between 0.5 and 0.95 bounds compensation to [1.05x, 2x]
	survivalProb := math.Min(0.95, math.Max(0.5, throughput.Luminance()))
	if sampler.Get1D() > survivalProb {
		return true, 0.0
	}
	return false, 1.0 / survivalProb
}
