package renderer

import "github.com/df07/go-multiview-renderer/pkg/core"

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	TotalPixels    int     // Total number of pixels rendered
	TotalSamples   int     // Total number of samples taken
	AverageSamples float64 // Average samples per pixel
	MaxSamples     int     // Maximum samples allowed per pixel
	MinSamples     int     // Minimum samples taken per pixel
	MaxSamplesUsed int     // Maximum samples actually used by any pixel
}

// merge folds the statistics of one tile into the frame totals
func (s *RenderStats) merge(tile RenderStats) {
	if s.TotalPixels == 0 {
		s.MinSamples = tile.MinSamples
	} else {
		s.MinSamples = min(s.MinSamples, tile.MinSamples)
	}
	s.TotalPixels += tile.TotalPixels
	s.TotalSamples += tile.TotalSamples
	s.MaxSamples = max(s.MaxSamples, tile.MaxSamples)
	s.MaxSamplesUsed = max(s.MaxSamplesUsed, tile.MaxSamplesUsed)
	if s.TotalPixels > 0 {
		s.AverageSamples = float64(s.TotalSamples) / float64(s.TotalPixels)
	}
}

// PixelStats tracks sampling statistics for a single pixel
type PixelStats struct {
	ColorAccum       core.Vec3 // RGB accumulator for final result
	AlphaAccum       float64   // Coverage accumulator
	LuminanceAccum   float64   // Luminance accumulator for convergence
	LuminanceSqAccum float64   // Luminance squared for variance
	SampleCount      int       // Number of samples taken
}

// AddSample adds a new color sample to the pixel statistics
func (ps *PixelStats) AddSample(color core.Vec3, alpha float64) {
	ps.ColorAccum = ps.ColorAccum.Add(color)
	ps.AlphaAccum += alpha
	luminance := color.Luminance() + alpha
	ps.LuminanceAccum += luminance
	ps.LuminanceSqAccum += luminance * luminance
	ps.SampleCount++
}

// GetColor returns the current average color and coverage for this pixel
func (ps *PixelStats) GetColor() (core.Vec3, float64) {
	if ps.SampleCount == 0 {
		return core.Vec3{}, 0
	}
	inv := 1.0 / float64(ps.SampleCount)
	return ps.ColorAccum.Multiply(inv), ps.AlphaAccum * inv
}
