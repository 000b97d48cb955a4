package renderer

import (
	"image"
	"math"
	"math/rand"

	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/integrator"
)

// Tile is a rectangular region of the frame with its own random stream
type Tile struct {
	Bounds image.Rectangle
	Random *rand.Rand
}

// NewTileGrid splits a width x height frame into tiles of at most tileSize pixels a side.
// Tile random streams derive from seed and the tile index, so a frame renders the
// same way regardless of worker scheduling.
func NewTileGrid(width, height, tileSize int, seed int64) []*Tile {
	if tileSize <= 0 {
		tileSize = 64
	}
	var tiles []*Tile
	for y := 0; y < height; y += tileSize {
		for x := 0; x < width; x += tileSize {
			bounds := image.Rect(x, y, min(x+tileSize, width), min(y+tileSize, height))
			tiles = append(tiles, &Tile{
				Bounds: bounds,
				Random: rand.New(rand.NewSource(seed + int64(len(tiles))*7919)),
			})
		}
	}
	return tiles
}

// TileRenderer renders individual tiles using an integrator
type TileRenderer struct {
	scene      integrator.Scene
	integrator integrator.Integrator
	camera     *Camera
	config     core.SamplingConfig
}

// NewTileRenderer creates a new tile renderer with the given scene and integrator
func NewTileRenderer(scene integrator.Scene, integratorInst integrator.Integrator, camera *Camera, config core.SamplingConfig) *TileRenderer {
	return &TileRenderer{
		scene:      scene,
		integrator: integratorInst,
		camera:     camera,
		config:     config,
	}
}

// RenderTile renders every pixel of tile into pixelStats (global image coordinates)
func (tr *TileRenderer) RenderTile(tile *Tile, pixelStats [][]PixelStats) RenderStats {
	bounds := tile.Bounds
	sampler := core.NewRandomSampler(tile.Random)
	stats := RenderStats{
		TotalPixels: bounds.Dx() * bounds.Dy(),
		MaxSamples:  tr.config.SamplesPerPixel,
		MinSamples:  tr.config.SamplesPerPixel,
	}

	for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
		for i := bounds.Min.X; i < bounds.Max.X; i++ {
			samplesUsed := tr.adaptiveSamplePixel(i, j, &pixelStats[j][i], tile.Random, sampler)
			stats.TotalSamples += samplesUsed
			stats.MinSamples = min(stats.MinSamples, samplesUsed)
			stats.MaxSamplesUsed = max(stats.MaxSamplesUsed, samplesUsed)
		}
	}

	if stats.TotalPixels > 0 {
		stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	}
	return stats
}

// adaptiveSamplePixel samples one pixel until convergence or the sample budget
func (tr *TileRenderer) adaptiveSamplePixel(i, j int, ps *PixelStats, random *rand.Rand, sampler core.Sampler) int {
	initialSampleCount := ps.SampleCount
	maxSamples := tr.config.SamplesPerPixel

	for ps.SampleCount < maxSamples && !tr.shouldStopSampling(ps) {
		ray := tr.camera.GetRay(i, j, random)
		color, alpha := tr.integrator.RayColor(ray, tr.scene, sampler)
		if !color.IsFinite() {
			color = core.Vec3{}
		}
		ps.AddSample(color, alpha)
	}

	return ps.SampleCount - initialSampleCount
}

// shouldStopSampling determines if adaptive sampling should stop based on perceptual relative error
func (tr *TileRenderer) shouldStopSampling(ps *PixelStats) bool {
	minSamples := max(1, int(float64(tr.config.SamplesPerPixel)*tr.config.AdaptiveMinSamples))
	if ps.SampleCount < minSamples {
		return false
	}

	mean := ps.LuminanceAccum / float64(ps.SampleCount)
	meanSq := ps.LuminanceSqAccum / float64(ps.SampleCount)
	variance := math.Max(0, meanSq-mean*mean)

	// Empty background pixels have nothing left to learn
	if mean <= 1e-8 {
		return variance < 1e-6
	}

	relativeError := math.Sqrt(variance/float64(ps.SampleCount)) / mean
	return relativeError < tr.config.AdaptiveThreshold
}
