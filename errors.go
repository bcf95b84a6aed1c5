package segeval

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
// All of them are fatal for an evaluation or visualization run.
var (
	// ErrShapeMismatch indicates prediction and label dimensions disagree.
	ErrShapeMismatch = errors.New("segeval: shape mismatch")

	// ErrIndexOutOfRange indicates a class index outside the tensor's class axis.
	ErrIndexOutOfRange = errors.New("segeval: class index out of range")

	// ErrNoClasses indicates an explicit, empty class selection.
	ErrNoClasses = errors.New("segeval: no classes selected")

	// ErrModelLoad indicates the model could not be loaded or run.
	ErrModelLoad = errors.New("segeval: model unavailable")

	// ErrIO indicates an output directory or file could not be created or written.
	ErrIO = errors.New("segeval: output write failed")

	// ErrEmptyDataSource indicates a data source with no samples.
	ErrEmptyDataSource = errors.New("segeval: empty data source")
)
