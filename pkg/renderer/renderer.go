package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/integrator"
)

// Options controls how a frame is split across workers
type Options struct {
	TileSize   int   // Size of each tile (64x64 recommended)
	NumWorkers int   // Number of parallel workers (0 = use CPU count)
	Seed       int64 // Base seed for the per-tile random streams
}

// DefaultOptions returns sensible default values
func DefaultOptions() Options {
	return Options{
		TileSize:   64,
		NumWorkers: 0,
		Seed:       42,
	}
}

// Renderer renders frames of a scene with a bounded set of tile workers
type Renderer struct {
	scene      integrator.Scene
	integrator integrator.Integrator
	config     core.SamplingConfig
	options    Options
	logger     *zap.Logger
}

// NewRenderer creates a renderer; a nil logger discards output
func NewRenderer(scene integrator.Scene, integratorInst integrator.Integrator, config core.SamplingConfig, options Options, logger *zap.Logger) *Renderer {
	if options.NumWorkers <= 0 {
		options.NumWorkers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		scene:      scene,
		integrator: integratorInst,
		config:     config,
		options:    options,
		logger:     logger,
	}
}

// Render renders one frame seen through camera. It blocks until every tile
// is done, or returns the context error if ctx ends first.
func (r *Renderer) Render(ctx context.Context, camera *Camera) (*image.NRGBA, RenderStats, error) {
	width, height := r.config.Width, r.config.Height
	if width <= 0 || height <= 0 {
		return nil, RenderStats{}, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	startTime := time.Now()
	pixelStats := make([][]PixelStats, height)
	for y := range pixelStats {
		pixelStats[y] = make([]PixelStats, width)
	}

	tileRenderer := NewTileRenderer(r.scene, r.integrator, camera, r.config)
	tiles := NewTileGrid(width, height, r.options.TileSize, r.options.Seed)

	var (
		mu    sync.Mutex
		stats RenderStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.options.NumWorkers)
	for _, tile := range tiles {
		tile := tile
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Tiles never overlap, so writes to pixelStats need no lock
			tileStats := tileRenderer.RenderTile(tile, pixelStats)
			mu.Lock()
			stats.merge(tileStats)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, RenderStats{}, fmt.Errorf("render interrupted: %w", err)
	}

	r.logger.Debug("frame rendered",
		zap.Int("tiles", len(tiles)),
		zap.Int("workers", r.options.NumWorkers),
		zap.Float64("avg_samples", stats.AverageSamples),
		zap.Int("min_samples", stats.MinSamples),
		zap.Int("max_samples_used", stats.MaxSamplesUsed),
		zap.Duration("elapsed", time.Since(startTime)))

	return toImage(pixelStats, width, height), stats, nil
}

// toImage resolves pixel statistics into a straight-alpha image
func toImage(pixelStats [][]PixelStats, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			colorVec, alpha := pixelStats[y][x].GetColor()
			// Escaped samples contribute black; undo that dilution at the silhouette
			if alpha > 0 {
				colorVec = colorVec.Multiply(1 / alpha)
			}
			img.SetNRGBA(x, y, vec3ToColor(colorVec, alpha))
		}
	}
	return img
}

// vec3ToColor converts a linear color to 8-bit sRGB-ish with gamma 2.2
func vec3ToColor(colorVec core.Vec3, alpha float64) color.NRGBA {
	colorVec = colorVec.GammaCorrect(2.2).Clamp(0.0, 1.0)
	alpha = max(0, min(1, alpha))
	return color.NRGBA{
		R: uint8(255*colorVec.X + 0.5),
		G: uint8(255*colorVec.Y + 0.5),
		B: uint8(255*colorVec.Z + 0.5),
		A: uint8(255*alpha + 0.5),
	}
}

// SavePNG writes img to path, creating parent directories as needed
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return file.Close()
}
