package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/df07/go-multiview-renderer/pkg/assets"
)

// Acquirer turns an asset reference into a local file. release must be
// called once the file is no longer needed.
type Acquirer interface {
	Acquire(ctx context.Context, ref string) (path string, release func(), err error)
}

// Options configures a Processor
type Options struct {
	OutputDir        string  // Views land in OutputDir/<asset id>/
	NumImages        int     // Views per asset
	CameraDist       float64 // Nominal camera distance from the origin
	IgnoreTransforms bool    // Normalize using untransformed mesh bounds
}

// Failure records why one asset could not be processed
type Failure struct {
	Ref string
	Err error
}

// Result summarizes a batch run
type Result struct {
	Valid  []string
	Failed []Failure
}

// Processor runs the reset, import, normalize and render steps for each asset
type Processor struct {
	host     SceneHost
	acquirer Acquirer
	views    *ViewRenderer
	options  Options
	logger   *zap.Logger
}

// NewProcessor wires a processor; a nil sampler draws from a clock-seeded source
func NewProcessor(host SceneHost, acquirer Acquirer, sampler *CameraSampler, options Options, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sampler == nil {
		sampler = NewCameraSampler(nil)
	}
	return &Processor{
		host:     host,
		acquirer: acquirer,
		views:    NewViewRenderer(host, sampler, options.NumImages, options.CameraDist, logger),
		options:  options,
		logger:   logger,
	}
}

// ViewDir returns the output directory for ref
func (p *Processor) ViewDir(ref string) string {
	return filepath.Join(p.options.OutputDir, assets.AssetID(ref))
}

// Process renders every view of one asset. Any downloaded copy is removed
// before Process returns, whether or not it succeeded.
func (p *Processor) Process(ctx context.Context, ref string) error {
	path, release, err := p.acquirer.Acquire(ctx, ref)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", ref, err)
	}
	defer release()

	if err := p.host.Reset(); err != nil {
		return fmt.Errorf("reset scene for %s: %w", ref, err)
	}
	if err := p.host.ImportMesh(path); err != nil {
		return fmt.Errorf("import %s: %w", ref, err)
	}
	if err := Normalize(p.host, p.options.IgnoreTransforms); err != nil {
		return fmt.Errorf("normalize %s: %w", ref, err)
	}
	if err := p.views.RenderViews(ctx, p.ViewDir(ref)); err != nil {
		return fmt.Errorf("render %s: %w", ref, err)
	}
	return nil
}

// Run processes refs in order. Failures are logged and collected without
// stopping the batch; cancellation of ctx stops it between assets.
func (p *Processor) Run(ctx context.Context, refs []string) Result {
	var result Result
	start := time.Now()

	for i, ref := range refs {
		if ctx.Err() != nil {
			p.logger.Warn("batch interrupted", zap.Int("remaining", len(refs)-i), zap.Error(ctx.Err()))
			break
		}

		assetStart := time.Now()
		p.logger.Info("processing asset", zap.String("ref", ref), zap.Int("index", i), zap.Int("total", len(refs)))
		if err := p.Process(ctx, ref); err != nil {
			p.logger.Error("asset failed", zap.String("ref", ref), zap.Error(err))
			result.Failed = append(result.Failed, Failure{Ref: ref, Err: err})
			continue
		}
		result.Valid = append(result.Valid, ref)
		p.logger.Info("asset done", zap.String("ref", ref), zap.Duration("elapsed", time.Since(assetStart)))
	}

	p.logger.Info("batch finished",
		zap.Int("valid", len(result.Valid)),
		zap.Int("failed", len(result.Failed)),
		zap.Duration("elapsed", time.Since(start)))
	return result
}
