// Package tensor provides the dense float32 arrays that carry image batches,
// model outputs and ground truth between data sources, predictors and the scorer.
//
// Tensors are stored row-major. Image batches use NHWC order: sample, row,
// column, channel (or class).
package tensor

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrShape indicates data that does not fit the requested shape, or two
	// tensors whose shapes disagree.
	ErrShape = errors.New("tensor: shape mismatch")

	// ErrAxis indicates an axis outside the tensor's rank.
	ErrAxis = errors.New("tensor: axis out of range")
)

// Tensor is a dense N-D array of float32 values.
type Tensor struct {
	shape []int
	data  []float32
}

// New wraps data in a tensor of the given shape. The data slice is not copied.
func New(shape []int, data []float32) (*Tensor, error) {
	n, err := volume(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShape, len(data), shape)
	}
	return &Tensor{shape: slices.Clone(shape), data: data}, nil
}

// Zeros allocates a zero-filled tensor. It panics on a negative dimension.
func Zeros(shape ...int) *Tensor {
	n, err := volume(shape)
	if err != nil {
		panic(err)
	}
	return &Tensor{shape: slices.Clone(shape), data: make([]float32, n)}
}

func volume(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		}
		n *= d
	}
	return n, nil
}

// Shape returns a copy of the tensor's dimensions.
func (t *Tensor) Shape() []int {
	return slices.Clone(t.shape)
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Dim returns the size of one axis. Negative axes count from the end.
func (t *Tensor) Dim(axis int) int {
	a, err := t.normAxis(axis, len(t.shape))
	if err != nil {
		panic(err)
	}
	return t.shape[a]
}

// Len returns the total number of elements.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Data returns the backing slice. Callers must treat it as read-only unless
// they own the tensor.
func (t *Tensor) Data() []float32 {
	return t.data
}

// SameShape reports whether t and o have identical dimensions.
func (t *Tensor) SameShape(o *Tensor) bool {
	return slices.Equal(t.shape, o.shape)
}

// At returns the element at the given index.
func (t *Tensor) At(idx ...int) float32 {
	return t.data[t.offset(idx)]
}

// Set stores v at the given index.
func (t *Tensor) Set(v float32, idx ...int) {
	t.data[t.offset(idx)] = v
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index of rank %d for tensor of rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.shape))
		}
		off = off*t.shape[i] + v
	}
	return off
}

// normAxis resolves a possibly negative axis against rank n.
func (t *Tensor) normAxis(axis, n int) (int, error) {
	if axis < 0 {
		axis += n
	}
	if axis < 0 || axis >= n {
		return 0, fmt.Errorf("%w: axis %d for shape %v", ErrAxis, axis, t.shape)
	}
	return axis, nil
}

// Reshape returns a tensor sharing t's data with a new shape of equal volume.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	return New(shape, t.data)
}

// Squeeze removes a size-1 axis. The result shares t's data.
func (t *Tensor) Squeeze(axis int) (*Tensor, error) {
	a, err := t.normAxis(axis, len(t.shape))
	if err != nil {
		return nil, err
	}
	if t.shape[a] != 1 {
		return nil, fmt.Errorf("%w: cannot squeeze axis %d of size %d", ErrShape, a, t.shape[a])
	}
	shape := slices.Delete(slices.Clone(t.shape), a, a+1)
	return &Tensor{shape: shape, data: t.data}, nil
}

// ExpandDims inserts a size-1 axis at the given position; -1 appends one.
// The result shares t's data.
func (t *Tensor) ExpandDims(axis int) (*Tensor, error) {
	a, err := t.normAxis(axis, len(t.shape)+1)
	if err != nil {
		return nil, err
	}
	shape := slices.Insert(slices.Clone(t.shape), a, 1)
	return &Tensor{shape: shape, data: t.data}, nil
}

// Slice returns samples [start, end) along the first axis, sharing t's data.
func (t *Tensor) Slice(start, end int) (*Tensor, error) {
	if len(t.shape) == 0 {
		return nil, fmt.Errorf("%w: cannot slice a scalar", ErrAxis)
	}
	if start < 0 || end > t.shape[0] || start > end {
		return nil, fmt.Errorf("%w: slice [%d:%d] of %d samples", ErrAxis, start, end, t.shape[0])
	}
	stride := t.sampleStride()
	shape := slices.Clone(t.shape)
	shape[0] = end - start
	return &Tensor{shape: shape, data: t.data[start*stride : end*stride]}, nil
}

func (t *Tensor) sampleStride() int {
	stride := 1
	for _, d := range t.shape[1:] {
		stride *= d
	}
	return stride
}

// Concat joins tensors along the first axis. All trailing dimensions must agree.
func Concat(parts ...*Tensor) (*Tensor, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrShape)
	}
	first := parts[0]
	if first.Rank() == 0 {
		return nil, fmt.Errorf("%w: cannot concatenate scalars", ErrAxis)
	}
	n, size := 0, 0
	for _, p := range parts {
		if p.Rank() != first.Rank() || !slices.Equal(p.shape[1:], first.shape[1:]) {
			return nil, fmt.Errorf("%w: cannot concatenate %v with %v", ErrShape, p.shape, first.shape)
		}
		n += p.shape[0]
		size += len(p.data)
	}
	data := make([]float32, 0, size)
	for _, p := range parts {
		data = append(data, p.data...)
	}
	shape := slices.Clone(first.shape)
	shape[0] = n
	return &Tensor{shape: shape, data: data}, nil
}

// Scale returns a new tensor with every element multiplied by f.
func (t *Tensor) Scale(f float32) *Tensor {
	data := make([]float32, len(t.data))
	for i, v := range t.data {
		data[i] = v * f
	}
	return &Tensor{shape: slices.Clone(t.shape), data: data}
}

// ArgMax returns, for every position, the index of the largest value along the
// last axis. Ties resolve to the lowest index.
func (t *Tensor) ArgMax() (*IndexMap, error) {
	if len(t.shape) < 2 {
		return nil, fmt.Errorf("%w: arg-max needs rank >= 2, got shape %v", ErrAxis, t.shape)
	}
	k := t.shape[len(t.shape)-1]
	if k == 0 {
		return nil, fmt.Errorf("%w: empty class axis in shape %v", ErrShape, t.shape)
	}
	out := make([]int32, len(t.data)/k)
	for i := range out {
		row := t.data[i*k : (i+1)*k]
		best := 0
		for j := 1; j < k; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = int32(best)
	}
	return &IndexMap{shape: slices.Clone(t.shape[:len(t.shape)-1]), data: out}, nil
}
