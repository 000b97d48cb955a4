package lights

import (
	"github.com/df07/go-multiview-renderer/pkg/core"
)

// SampleLight picks one light uniformly and samples it toward point.
// The returned PDF already includes the selection probability.
func SampleLight(lights []Light, point core.Vec3, normal core.Vec3, sampler core.Sampler) (LightSample, bool) {
	if len(lights) == 0 {
		return LightSample{}, false
	}
	index := min(int(sampler.Get1D()*float64(len(lights))), len(lights)-1)

	sample := lights[index].Sample(point, normal, sampler.Get2D())
	sample.PDF /= float64(len(lights))
	return sample, true
}

// CalculateLightPDF returns the combined density of SampleLight producing direction
func CalculateLightPDF(lights []Light, point, normal, direction core.Vec3) float64 {
	if len(lights) == 0 {
		return 0.0
	}
	total := 0.0
	for _, light := range lights {
		total += light.PDF(point, normal, direction)
	}
	return total / float64(len(lights))
}

// EmitEscaped sums the radiance every light contributes along an escaped ray
func EmitEscaped(lights []Light, ray core.Ray) core.Vec3 {
	var total core.Vec3
	for _, light := range lights {
		total = total.Add(light.Emit(ray))
	}
	return total
}
