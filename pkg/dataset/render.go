package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ViewRenderer renders the numbered views of one normalized asset
type ViewRenderer struct {
	host       SceneHost
	sampler    *CameraSampler
	numImages  int
	cameraDist float64
	logger     *zap.Logger
}

// NewViewRenderer creates a view renderer; a nil logger discards output
func NewViewRenderer(host SceneHost, sampler *CameraSampler, numImages int, cameraDist float64, logger *zap.Logger) *ViewRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewRenderer{
		host:       host,
		sampler:    sampler,
		numImages:  numImages,
		cameraDist: cameraDist,
		logger:     logger,
	}
}

// ViewPaths returns the image and extrinsic paths of view i inside viewDir
func ViewPaths(viewDir string, i int) (imagePath, extrinsicPath string) {
	base := filepath.Join(viewDir, fmt.Sprintf("%03d", i))
	return base + ".png", base + ".npy"
}

// RenderViews writes NNN.png and NNN.npy for every view into viewDir, one view at a time
func (r *ViewRenderer) RenderViews(ctx context.Context, viewDir string) error {
	if err := os.MkdirAll(viewDir, 0755); err != nil {
		return fmt.Errorf("failed to create view directory: %w", err)
	}

	for i := 0; i < r.numImages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		sample := r.sampler.Place(r.host, i, r.numImages, r.cameraDist)

		imagePath, extrinsicPath := ViewPaths(viewDir, i)
		if err := r.host.RenderFrame(ctx, imagePath); err != nil {
			return fmt.Errorf("view %d: %w", i, err)
		}
		if err := WriteExtrinsicNPY(extrinsicPath, Extrinsic(r.host.CameraWorldMatrix())); err != nil {
			return fmt.Errorf("view %d: %w", i, err)
		}

		r.logger.Info("view rendered",
			zap.Int("view", i),
			zap.Float64s("position", []float64{sample.Position.X, sample.Position.Y, sample.Position.Z}),
			zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}
