package lights

import "github.com/df07/go-multiview-renderer/pkg/core"

// Light interface for objects that can be sampled for direct lighting
type Light interface {
	// Sample samples light toward a specific point for direct lighting.
	// Direction points FROM the shading point TO the light.
	Sample(point core.Vec3, normal core.Vec3, sample core.Vec2) LightSample

	// PDF returns the solid-angle density of sampling direction from point
	PDF(point core.Vec3, normal core.Vec3, direction core.Vec3) float64

	// Emit evaluates emission along a ray that escaped the scene
	Emit(ray core.Ray) core.Vec3
}

// LightSample contains information about a sampled point on a light
type LightSample struct {
	Direction core.Vec3 // Direction from shading point to light
	Distance  float64   // Distance to light (+Inf for infinite lights)
	Emission  core.Vec3 // Emitted radiance
	PDF       float64   // Solid-angle probability density of this sample
}
