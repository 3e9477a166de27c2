// Package models holds the dense array types shared by the filter, tensor and
// scale-space packages.
package models

import (
	"fmt"
)

// Image represents a dense 2D or 3D array of real-valued samples
type Image struct {
	// Data holds the samples as a 1D array in row-major order
	Data []float64

	// Shape lists the size of each axis. A 2D image is (y, x) and a
	// 3D volume is (z, y, x); x is always the last and fastest axis.
	Shape []int
}

// NewImage allocates a zero-filled image with the given shape
func NewImage(shape ...int) *Image {
	s := append([]int(nil), shape...)
	return &Image{
		Data:  make([]float64, NumElements(s)),
		Shape: s,
	}
}

// NewImageFrom wraps existing data. It returns an error if the data length
// does not match the shape.
func NewImageFrom(data []float64, shape ...int) (*Image, error) {
	if len(data) != NumElements(shape) {
		return nil, fmt.Errorf("data length %d does not match shape %v", len(data), shape)
	}
	return &Image{Data: data, Shape: append([]int(nil), shape...)}, nil
}

// Dims returns the number of axes
func (im *Image) Dims() int { return len(im.Shape) }

// Len returns the number of samples
func (im *Image) Len() int { return NumElements(im.Shape) }

// Strides returns the row-major element stride of each axis
func (im *Image) Strides() []int { return Strides(im.Shape) }

// At returns the sample at the given index, one coordinate per axis
func (im *Image) At(idx ...int) float64 {
	return im.Data[offset(im.Shape, idx)]
}

// Set stores v at the given index
func (im *Image) Set(v float64, idx ...int) {
	im.Data[offset(im.Shape, idx)] = v
}

// Clone returns a deep copy of the image
func (im *Image) Clone() *Image {
	return &Image{
		Data:  append([]float64(nil), im.Data...),
		Shape: append([]int(nil), im.Shape...),
	}
}

// SameShape reports whether two shapes are identical
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NumElements returns the product of the shape entries
func NumElements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// Strides returns the row-major element strides for shape
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	step := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = step
		step *= shape[i]
	}
	return strides
}

func offset(shape, idx []int) int {
	if len(idx) != len(shape) {
		panic(fmt.Sprintf("models: index %v does not match shape %v", idx, shape))
	}
	off := 0
	for i, v := range idx {
		off = off*shape[i] + v
	}
	return off
}
