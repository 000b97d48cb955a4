package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/df07/go-multiview-renderer/pkg/assets"
	"github.com/df07/go-multiview-renderer/pkg/config"
	"github.com/df07/go-multiview-renderer/pkg/core"
	"github.com/df07/go-multiview-renderer/pkg/dataset"
	"github.com/df07/go-multiview-renderer/pkg/integrator"
	"github.com/df07/go-multiview-renderer/pkg/ledger"
	"github.com/df07/go-multiview-renderer/pkg/renderer"
	"github.com/df07/go-multiview-renderer/pkg/scene"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the multiview command. Flag values are applied last, on
// top of the config file and environment.
func newRootCmd() *cobra.Command {
	var (
		flagConfig = config.Defaults()
		configPath string
		cfg        config.Config
		logger     *zap.Logger
	)

	cmd := &cobra.Command{
		Use:   "multiview",
		Short: "Render multi-view image datasets of 3D assets",
		Long: `multiview renders a ring of views around each .glb or .fbx asset.

Every asset is normalized into a unit box at the origin, then viewed from
--num_images cameras spread around the equator at roughly --camera_dist.
Each view is written as <output_dir>/<asset id>/NNN.png together with its
3x4 world-to-camera matrix in NNN.npy. Assets that render successfully are
merged into the --valid_json_path ledger.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, logger, err = prepare(cmd.Flags(), configPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML file with default option values")
	bindFlags(cmd.Flags(), &flagConfig)
	return cmd
}

// bindFlags registers every command-line option against c
func bindFlags(fs *pflag.FlagSet, c *config.Config) {
	fs.StringVar(&c.ObjectPath, "object_path", c.ObjectPath, "Path or URL of a single object file")
	fs.StringVar(&c.ObjectJSONPath, "object_json_path", c.ObjectJSONPath, "JSON list of object paths or URLs (wins over --object_path)")
	fs.StringVar(&c.ValidJSONPath, "valid_json_path", c.ValidJSONPath, "JSON ledger of successfully rendered objects")
	fs.StringVar(&c.OutputDir, "output_dir", c.OutputDir, "Directory receiving one sub-directory per object")
	fs.StringVar(&c.Engine, "engine", c.Engine, fmt.Sprintf("Render engine %v (CYCLES and BLENDER_EEVEE are accepted as aliases)", integrator.Engines))
	fs.Float64Var(&c.Scale, "scale", c.Scale, "Object scale (recorded; normalization fixes the extent at 1)")
	fs.IntVar(&c.NumImages, "num_images", c.NumImages, "Views per object")
	fs.Float64Var(&c.CameraDist, "camera_dist", c.CameraDist, "Nominal camera distance from the origin")
	fs.BoolVar(&c.IgnoreTransforms, "ignore_transforms", c.IgnoreTransforms, "Normalize using untransformed mesh bounds")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "Human-readable debug logging")
	fs.IntVar(&c.Width, "width", c.Width, "Image width in pixels")
	fs.IntVar(&c.Height, "height", c.Height, "Image height in pixels")
	fs.IntVar(&c.Samples, "samples", c.Samples, "Maximum samples per pixel")
	fs.IntVar(&c.MaxDepth, "max_depth", c.MaxDepth, "Maximum surface interactions per path")
	fs.IntVar(&c.Workers, "workers", c.Workers, "Render workers (0 = one per CPU)")
	fs.IntVar(&c.TileSize, "tile_size", c.TileSize, "Render tile size in pixels")
	fs.StringVar(&c.TmpDir, "tmp_dir", c.TmpDir, "Scratch directory for downloaded objects")
}

// loadConfig layers defaults, the optional YAML file, the environment and
// finally the flags the user actually set.
func loadConfig(flags *pflag.FlagSet, configPath string) (config.Config, error) {
	cfg := config.Defaults()
	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	overlay := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	bindFlags(overlay, &cfg)
	var setErr error
	flags.Visit(func(f *pflag.Flag) {
		if overlay.Lookup(f.Name) == nil || setErr != nil {
			return
		}
		setErr = overlay.Set(f.Name, f.Value.String())
	})
	if setErr != nil {
		return cfg, setErr
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// prepare layers the configuration and builds the run's logger from the
// resulting verbosity. A configuration error is logged and returned together
// with the logger.
func prepare(flags *pflag.FlagSet, configPath string) (config.Config, *zap.Logger, error) {
	cfg, cfgErr := loadConfig(flags, configPath)
	verbose := cfg.Verbose
	if v, err := flags.GetBool("verbose"); err == nil && v {
		verbose = true
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))
	if cfgErr != nil {
		logger.Error("invalid configuration", zap.Error(cfgErr))
		return cfg, logger, cfgErr
	}
	return cfg, logger, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build()
	}
	return zap.NewProductionConfig().Build()
}

// hostSettings maps the configuration onto the built-in host's render settings
func hostSettings(cfg config.Config) (scene.Settings, error) {
	engine, err := integrator.ParseEngine(cfg.Engine)
	if err != nil {
		return scene.Settings{}, err
	}

	settings := scene.DefaultSettings()
	settings.Engine = engine
	settings.LensMM = cfg.LensMM
	settings.SensorWidthMM = cfg.SensorWidthMM
	settings.WorldColor = core.NewVec3(1, 1, 1)
	settings.WorldStrength = cfg.WorldStrength

	settings.Sampling.Width = cfg.Width
	settings.Sampling.Height = cfg.Height
	settings.Sampling.SamplesPerPixel = cfg.Samples
	settings.Sampling.MaxDepth = cfg.MaxDepth
	settings.Sampling.AdaptiveMinSamples = cfg.AdaptiveMinSamples
	settings.Sampling.AdaptiveThreshold = cfg.AdaptiveThreshold

	settings.Render = renderer.DefaultOptions()
	settings.Render.NumWorkers = cfg.Workers
	settings.Render.TileSize = cfg.TileSize
	return settings, nil
}

// run renders every requested object and merges the successes into the ledger.
// Per-object failures are logged but do not fail the run.
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	refs := []string{cfg.ObjectPath}
	if cfg.ObjectJSONPath != "" {
		var err error
		refs, err = dataset.LoadRefs(cfg.ObjectJSONPath)
		if err != nil {
			logger.Error("failed to load object list", zap.Error(err))
			return err
		}
	}

	settings, err := hostSettings(cfg)
	if err != nil {
		return err
	}
	logger.Info("starting batch",
		zap.Int("objects", len(refs)),
		zap.String("engine", string(settings.Engine)),
		zap.String("output_dir", cfg.OutputDir),
		zap.Int("num_images", cfg.NumImages),
		zap.Float64("camera_dist", cfg.CameraDist),
		zap.Float64("scale", cfg.Scale))

	host := scene.NewHost(settings, logger)
	fetcher := assets.NewFetcher(cfg.TmpDir, logger)
	processor := dataset.NewProcessor(host, fetcher, nil, dataset.Options{
		OutputDir:        cfg.OutputDir,
		NumImages:        cfg.NumImages,
		CameraDist:       cfg.CameraDist,
		IgnoreTransforms: cfg.IgnoreTransforms,
	}, logger)

	result := processor.Run(ctx, refs)
	if err := ledger.Merge(cfg.ValidJSONPath, result.Valid); err != nil {
		logger.Error("failed to update ledger", zap.String("path", cfg.ValidJSONPath), zap.Error(err))
		return err
	}
	logger.Info("ledger updated", zap.String("path", cfg.ValidJSONPath), zap.Int("added", len(result.Valid)))
	return nil
}
