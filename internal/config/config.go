// Package config loads segeval settings from the environment and an optional
// .env file.
package config

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds run settings. Every field maps to a SEG_* variable.
type Config struct {
	// Name is the model name; the model file is ModelSaveDir/Name.onnx.
	Name         string `env:"SEG_NAME, default=model"`
	ModelSaveDir string `env:"SEG_MODEL_SAVE_DIR, default=models"`
	LogDir       string `env:"SEG_LOG_DIR, default=logs"`

	NumClasses int     `env:"SEG_NUM_CLASSES, default=2"`
	Threshold  float32 `env:"SEG_THRESHOLD, default=0.5"`

	ValImageDir  string `env:"SEG_VAL_IMAGE_DIR, default=data/val/images"`
	ValLabelDir  string `env:"SEG_VAL_LABEL_DIR, default=data/val/labels"`
	TestImageDir string `env:"SEG_TEST_IMAGE_DIR, default=data/test/images"`
	TestLabelDir string `env:"SEG_TEST_LABEL_DIR, default=data/test/labels"`
	ImageExt     string `env:"SEG_IMAGE_EXT, default=.png"`
	ImageWidth   int    `env:"SEG_IMAGE_WIDTH"`  // 0 keeps the source size
	ImageHeight  int    `env:"SEG_IMAGE_HEIGHT"` // 0 keeps the source size

	InputName  string `env:"SEG_INPUT_NAME, default=input"`
	OutputName string `env:"SEG_OUTPUT_NAME, default=output"`
	PoolSize   int    `env:"SEG_POOL_SIZE, default=1"`
	MicroBatch int    `env:"SEG_MICRO_BATCH, default=4"`
	ORTLibrary string `env:"SEG_ORT_LIBRARY"`

	HistoryDB string `env:"SEG_HISTORY_DB"` // empty disables run history
}

// Load reads .env from the working directory when present, then the process
// environment.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load() // A missing .env is fine
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith resolves the configuration from l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.NumClasses <= 0:
		return fmt.Errorf("SEG_NUM_CLASSES must be positive, got %d", c.NumClasses)
	case c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("SEG_THRESHOLD must be in [0, 1], got %v", c.Threshold)
	case c.ImageWidth < 0 || c.ImageHeight < 0:
		return fmt.Errorf("image size must not be negative, got %dx%d", c.ImageWidth, c.ImageHeight)
	case (c.ImageWidth == 0) != (c.ImageHeight == 0):
		return fmt.Errorf("set both SEG_IMAGE_WIDTH and SEG_IMAGE_HEIGHT or neither")
	case c.PoolSize <= 0:
		return fmt.Errorf("SEG_POOL_SIZE must be positive, got %d", c.PoolSize)
	case c.MicroBatch <= 0:
		return fmt.Errorf("SEG_MICRO_BATCH must be positive, got %d", c.MicroBatch)
	}
	return nil
}

// ModelPath returns ModelSaveDir/Name.onnx.
func (c *Config) ModelPath() string {
	return filepath.Join(c.ModelSaveDir, c.Name+".onnx")
}

// ImageSize returns the resize target; the zero point keeps source sizes.
func (c *Config) ImageSize() image.Point {
	return image.Pt(c.ImageWidth, c.ImageHeight)
}
