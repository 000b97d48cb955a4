package lights

import (
	"math"

	"github.com/df07/go-multiview-renderer/pkg/core"
)

// UniformInfiniteLight is a constant-color environment ("world") light
type UniformInfiniteLight struct {
	emission core.Vec3
}

// NewUniformInfiniteLight creates a world light of the given color and strength
func NewUniformInfiniteLight(color core.Vec3, strength float64) *UniformInfiniteLight {
	return &UniformInfiniteLight{emission: color.Multiply(strength)}
}

// Sample draws a cosine-weighted direction in the hemisphere above normal
func (uil *UniformInfiniteLight) Sample(point core.Vec3, normal core.Vec3, sample core.Vec2) LightSample {
	direction := core.SampleCosineHemisphere(normal, sample).Normalize()
	return LightSample{
		Direction: direction,
		Distance:  math.Inf(1),
		Emission:  uil.emission,
		PDF:       math.Max(0, direction.Dot(normal)) / math.Pi,
	}
}

// PDF returns the cosine-weighted hemisphere density for direction
func (uil *UniformInfiniteLight) PDF(point, normal, direction core.Vec3) float64 {
	cosTheta := direction.Normalize().Dot(normal)
	if cosTheta <= 0 {
		return 0.0
	}
	return cosTheta / math.Pi
}

// Emit returns the same radiance in every direction
func (uil *UniformInfiniteLight) Emit(ray core.Ray) core.Vec3 {
	return uil.emission
}
