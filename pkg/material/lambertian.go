package material

import (
	"math"

	"github.com/df07/go-multiview-renderer/pkg/core"
)

// DefaultAlbedo is the base color given to imported surfaces that carry no material
var DefaultAlbedo = core.NewVec3(0.8, 0.8, 0.8)

// Lambertian represents a perfectly diffuse material
type Lambertian struct {
	Name   string
	Albedo core.Vec3
}

// NewLambertian creates a new lambertian material
func NewLambertian(name string, albedo core.Vec3) *Lambertian {
	return &Lambertian{Name: name, Albedo: albedo.Clamp(0, 1)}
}

// Scatter implements the Material interface for lambertian scattering
func (l *Lambertian) Scatter(rayIn core.Ray, hit HitRecord, sampler core.Sampler) (ScatterResult, bool) {
	scatterDirection := core.SampleCosineHemisphere(hit.Normal, sampler.Get2D())

	cosTheta := scatterDirection.Normalize().Dot(hit.Normal)
	if cosTheta <= 0 {
		return ScatterResult{}, false
	}

	return ScatterResult{
		Scattered:   core.NewRay(hit.Point, scatterDirection),
		Attenuation: l.Albedo.Multiply(1.0 / math.Pi),
		PDF:         cosTheta / math.Pi,
	}, true
}

// EvaluateBRDF returns albedo / π above the surface and zero below it
func (l *Lambertian) EvaluateBRDF(incomingDir, outgoingDir core.Vec3, hit HitRecord) core.Vec3 {
	if outgoingDir.Dot(hit.Normal) <= 0 {
		return core.Vec3{}
	}
	return l.Albedo.Multiply(1.0 / math.Pi)
}

// PDF returns the cosine-weighted hemisphere density cos(θ) / π
func (l *Lambertian) PDF(incomingDir, outgoingDir, normal core.Vec3) (float64, bool) {
	cosTheta := outgoingDir.Normalize().Dot(normal)
	if cosTheta <= 0 {
		return 0.0, false
	}
	return cosTheta / math.Pi, false
}
