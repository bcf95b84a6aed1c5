package tensor

import (
	"fmt"
	"slices"
)

// IndexMap holds one class index per position, typically shaped (N, H, W).
type IndexMap struct {
	shape []int
	data  []int32
}

// NewIndexMap wraps data in an index map of the given shape.
func NewIndexMap(shape []int, data []int32) (*IndexMap, error) {
	n, err := volume(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: %d indices for shape %v", ErrShape, len(data), shape)
	}
	return &IndexMap{shape: slices.Clone(shape), data: data}, nil
}

// Shape returns a copy of the map's dimensions.
func (m *IndexMap) Shape() []int {
	return slices.Clone(m.shape)
}

// Data returns the backing slice.
func (m *IndexMap) Data() []int32 {
	return m.data
}

// Sample returns the indices belonging to sample i of the first axis.
func (m *IndexMap) Sample(i int) []int32 {
	stride := 1
	for _, d := range m.shape[1:] {
		stride *= d
	}
	return m.data[i*stride : (i+1)*stride]
}
