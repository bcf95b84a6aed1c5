package inference

import "errors"

var (
	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("inference: pool is closed")

	// ErrSessionClosed is returned by Run after Close.
	ErrSessionClosed = errors.New("inference: session is closed")

	// ErrModelNotFound indicates the model file does not exist.
	ErrModelNotFound = errors.New("inference: model file not found")

	// ErrUnknownFormat indicates no loader is registered for a model format.
	ErrUnknownFormat = errors.New("inference: unknown model format")
)
