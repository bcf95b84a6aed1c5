package runner

import (
	"fmt"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/inference"
)

// LoadModel opens the model at path through reg. Every failure wraps
// segeval.ErrModelLoad.
func LoadModel(path string, reg inference.Registry, opts ...inference.Option) (inference.Backend, error) {
	b, err := inference.Load(path, reg, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", segeval.ErrModelLoad, err)
	}
	return b, nil
}
