package segeval

import (
	"log/slog"
)

// DefaultThreshold is the probability at or above which a predicted pixel counts
// as positive.
const DefaultThreshold float32 = 0.5

// Option configures an Evaluator.
type Option func(*config)

type config struct {
	threshold float32
	logger    *slog.Logger
}

func defaultConfig() config {
	return config{
		threshold: DefaultThreshold,
		logger:    slog.Default(),
	}
}

// WithThreshold sets the binarization threshold (default: 0.5).
// Values equal to the threshold binarize to 1.
func WithThreshold(t float32) Option {
	return func(c *config) {
		c.threshold = t
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
