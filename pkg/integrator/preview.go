package integrator

import (
	"math"

	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/material"
)

// PreviewIntegrator shades the first hit with direct lighting only.
// It converges in a handful of samples and is meant for quick dataset checks.
type PreviewIntegrator struct {
	config core.SamplingConfig
}

// NewPreviewIntegrator creates a new preview integrator
func NewPreviewIntegrator(config core.SamplingConfig) *PreviewIntegrator {
	return &PreviewIntegrator{config: config}
}

// RayColor returns the directly lit color of the first surface along ray
func (p *PreviewIntegrator) RayColor(ray core.Ray, scene Scene, sampler core.Sampler) (core.Vec3, float64) {
	var hit material.HitRecord
	if !scene.Hit(ray, rayEpsilon, math.Inf(1), &hit) {
		return escaped(ray, scene, p.config)
	}
	return directLighting(scene, ray, &hit, sampler, false), 1
}
