package inference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/go-segeval/tensor"
)

// Backend is a loaded model.
type Backend interface {
	Predict(ctx context.Context, images *tensor.Tensor) (*tensor.Tensor, error)
	Close() error
}

// Config holds model loading parameters.
type Config struct {
	Format     string
	Names      IONames
	PoolSize   int
	MicroBatch int
}

// Option configures Load.
type Option func(*Config)

func defaultLoadConfig() Config {
	return Config{
		Names:      DefaultIONames,
		PoolSize:   1,
		MicroBatch: DefaultMicroBatch,
	}
}

// WithFormat forces a registry entry instead of dispatching on file extension.
func WithFormat(format string) Option {
	return func(c *Config) {
		c.Format = strings.ToLower(format)
	}
}

// WithIONames sets the model's input and output tensor names.
func WithIONames(names IONames) Option {
	return func(c *Config) {
		if names.Input != "" {
			c.Names.Input = names.Input
		}
		if names.Output != "" {
			c.Names.Output = names.Output
		}
	}
}

// WithPoolSize sets the number of runtime sessions (default: 1).
func WithPoolSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.PoolSize = n
		}
	}
}

// WithMicroBatch sets the per-call batch size (default: DefaultMicroBatch).
func WithMicroBatch(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MicroBatch = n
		}
	}
}

// Loader builds a Backend from a model file.
type Loader func(path string, cfg Config) (Backend, error)

// Registry maps a model format name to its Loader. It is passed explicitly to
// Load; there is no package-level registry.
type Registry map[string]Loader

// NewRegistry returns a new registry holding the built-in "onnx" loader.
// Each call returns an independent map.
func NewRegistry() Registry {
	return Registry{
		"onnx": loadONNX,
	}
}

// Register adds or replaces the loader for format.
func (r Registry) Register(format string, l Loader) {
	r[strings.ToLower(format)] = l
}

// Load resolves a loader from reg and builds the model at path.
func Load(path string, reg Registry, opts ...Option) (Backend, error) {
	cfg := defaultLoadConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	format := cfg.Format
	if format == "" {
		format = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	}
	loader, ok := reg[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("checking model file: %w", err)
	}

	return loader(path, cfg)
}

func loadONNX(path string, cfg Config) (Backend, error) {
	pool, err := NewPool(path, cfg.PoolSize, cfg.Names)
	if err != nil {
		return nil, err
	}
	return NewModel(pool, cfg.MicroBatch), nil
}
