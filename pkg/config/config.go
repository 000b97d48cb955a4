// Package config holds the command-line configuration and its layering:
// defaults, then an optional YAML file, then MULTIVIEW_* environment
// variables, then flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/df07/go-multiview-renderer/pkg/integrator"
)

// Config is the full set of run options
type Config struct {
	ObjectPath       string  `yaml:"object_path" env:"MULTIVIEW_OBJECT_PATH"`
	ObjectJSONPath   string  `yaml:"object_json_path" env:"MULTIVIEW_OBJECT_JSON_PATH"`
	ValidJSONPath    string  `yaml:"valid_json_path" env:"MULTIVIEW_VALID_JSON_PATH"`
	OutputDir        string  `yaml:"output_dir" env:"MULTIVIEW_OUTPUT_DIR"`
	Engine           string  `yaml:"engine" env:"MULTIVIEW_ENGINE"`
	Scale            float64 `yaml:"scale" env:"MULTIVIEW_SCALE"` // Recorded only; normalization fixes the extent at 1
	NumImages        int     `yaml:"num_images" env:"MULTIVIEW_NUM_IMAGES"`
	CameraDist       float64 `yaml:"camera_dist" env:"MULTIVIEW_CAMERA_DIST"`
	IgnoreTransforms bool    `yaml:"ignore_transforms" env:"MULTIVIEW_IGNORE_TRANSFORMS"`

	Width              int     `yaml:"width" env:"MULTIVIEW_WIDTH"`
	Height             int     `yaml:"height" env:"MULTIVIEW_HEIGHT"`
	Samples            int     `yaml:"samples" env:"MULTIVIEW_SAMPLES"`
	MaxDepth           int     `yaml:"max_depth" env:"MULTIVIEW_MAX_DEPTH"`
	LensMM             float64 `yaml:"lens_mm" env:"MULTIVIEW_LENS_MM"`
	SensorWidthMM      float64 `yaml:"sensor_width_mm" env:"MULTIVIEW_SENSOR_WIDTH_MM"`
	WorldStrength      float64 `yaml:"world_strength" env:"MULTIVIEW_WORLD_STRENGTH"`
	AdaptiveMinSamples float64 `yaml:"adaptive_min_samples" env:"MULTIVIEW_ADAPTIVE_MIN_SAMPLES"`
	AdaptiveThreshold  float64 `yaml:"adaptive_threshold" env:"MULTIVIEW_ADAPTIVE_THRESHOLD"`
	Workers            int     `yaml:"workers" env:"MULTIVIEW_WORKERS"` // 0 = one per CPU
	TileSize           int     `yaml:"tile_size" env:"MULTIVIEW_TILE_SIZE"`
	TmpDir             string  `yaml:"tmp_dir" env:"MULTIVIEW_TMP_DIR"`
	Verbose            bool    `yaml:"verbose" env:"MULTIVIEW_VERBOSE"`
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() Config {
	return Config{
		ValidJSONPath:      "valid_paths.json",
		OutputDir:          "~/.objaverse/hf-objaverse-v1/views_whole_sphere",
		Engine:             string(integrator.EnginePathTrace),
		Scale:              0.8,
		NumImages:          8,
		CameraDist:         1.2,
		Width:              576,
		Height:             576,
		Samples:            128,
		MaxDepth:           3,
		LensMM:             35,
		SensorWidthMM:      32,
		WorldStrength:      0.8,
		AdaptiveMinSamples: 0.1,
		AdaptiveThreshold:  0.02,
		TileSize:           64,
		TmpDir:             "tmp-objects",
	}
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file keep their value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays MULTIVIEW_* environment variables onto c
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks every option and expands a leading ~ in OutputDir
func (c *Config) Validate() error {
	var errs []error
	if c.ObjectPath == "" && c.ObjectJSONPath == "" {
		errs = append(errs, errors.New("one of object_path or object_json_path is required"))
	}
	if _, err := integrator.ParseEngine(c.Engine); err != nil {
		errs = append(errs, err)
	}
	if c.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale must be positive, got %g", c.Scale))
	}
	if c.NumImages <= 0 {
		errs = append(errs, fmt.Errorf("num_images must be positive, got %d", c.NumImages))
	}
	if c.CameraDist <= 0 {
		errs = append(errs, fmt.Errorf("camera_dist must be positive, got %g", c.CameraDist))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("image size must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.Samples <= 0 {
		errs = append(errs, fmt.Errorf("samples must be positive, got %d", c.Samples))
	}
	if c.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth))
	}
	if c.LensMM <= 0 || c.SensorWidthMM <= 0 {
		errs = append(errs, fmt.Errorf("lens and sensor sizes must be positive, got %gmm/%gmm", c.LensMM, c.SensorWidthMM))
	}
	if c.WorldStrength < 0 {
		errs = append(errs, fmt.Errorf("world_strength must not be negative, got %g", c.WorldStrength))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.TileSize <= 0 {
		errs = append(errs, fmt.Errorf("tile_size must be positive, got %d", c.TileSize))
	}
	if c.ValidJSONPath == "" {
		errs = append(errs, errors.New("valid_json_path must not be empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	dir, err := ExpandHome(c.OutputDir)
	if err != nil {
		return err
	}
	c.OutputDir = dir
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
