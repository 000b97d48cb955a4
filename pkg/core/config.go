package core

// SamplingConfig contains rendering configuration shared by the renderer and integrators
type SamplingConfig struct {
	Width                     int     // Image width
	Height                    int     // Image height
	SamplesPerPixel           int     // Maximum number of rays per pixel
	MaxDepth                  int     // Maximum number of surface interactions per path
	RussianRouletteMinBounces int     // Minimum bounces before Russian Roulette can activate
	AdaptiveMinSamples        float64 // Minimum samples as percentage of max samples (0.0-1.0)
	AdaptiveThreshold         float64 // Relative error threshold for adaptive convergence (0.01 = 1%)
	TransparentFilm           bool    // Primary rays that escape produce alpha 0 instead of the world color
}

// DefaultSamplingConfig returns the settings used for dataset renders
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Width:                     576,
		Height:                    576,
		SamplesPerPixel:           128,
		MaxDepth:                  3,
		RussianRouletteMinBounces: 2,
		AdaptiveMinSamples:        0.1,
		AdaptiveThreshold:         0.02,
		TransparentFilm:           true,
	}
}
