// Package inference provides ONNX Runtime integration for segmentation model inference.
package inference

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/jamesainslie/go-segeval/tensor"
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes ONNX Runtime environment once.
func initORT() error {
	ortEnvOnce.Do(func() {
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// SetLibraryPath points ONNX Runtime at a specific shared library.
// It has no effect once the first session has been created.
func SetLibraryPath(path string) {
	if path != "" {
		ort.SetSharedLibraryPath(path)
	}
}

// IONames names the model's image input and probability output.
type IONames struct {
	Input  string
	Output string
}

// DefaultIONames matches models exported with a single "input" and "output".
var DefaultIONames = IONames{Input: "input", Output: "output"}

// Session wraps an ONNX Runtime session for segmentation inference.
type Session struct {
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
	closed  bool
}

// NewSession creates a new ONNX session from a model file.
func NewSession(modelPath string, names IONames) (*Session, error) {
	// Check file exists
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }() // Cleanup error doesn't affect success

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{names.Input},
		[]string{names.Output},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{session: session}, nil
}

// Run feeds an (N, H, W, 1) image batch to the model and returns its output,
// shaped as ONNX Runtime reports it.
func (s *Session) Run(ctx context.Context, images *tensor.Tensor) (*tensor.Tensor, error) {
	// Check context before expensive operation
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	dims := make([]int64, images.Rank())
	for i, d := range images.Shape() {
		dims[i] = int64(d)
	}

	input, err := ort.NewTensor(ort.NewShape(dims...), images.Data())
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	// nil entries are allocated by Run
	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	probs, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	outShape := probs.GetShape()
	shape := make([]int, len(outShape))
	for i, d := range outShape {
		shape[i] = int(d)
	}

	// Copy out of ORT-owned memory before the value is destroyed.
	data := make([]float32, len(probs.GetData()))
	copy(data, probs.GetData())

	return tensor.New(shape, data)
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
