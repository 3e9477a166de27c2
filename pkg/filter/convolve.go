// Package filter implements separable N-dimensional convolution, Gaussian
// derivative filtering and the ring filter used to integrate structure tensor
// components.
package filter

import (
	"errors"
	"fmt"

	"stss/internal/parallel"
	"stss/pkg/models"
)

// ErrInvalidKernel is returned when a kernel cannot be built or placed
var ErrInvalidKernel = errors.New("invalid kernel")

// Convolve1D convolves src with kernel along one axis and stores the result in
// dst. dst and src may be the same slice. The kernel must have odd length and
// is centered on each output sample, shifted by b.Origin.
//
// For a kernel k indexed by offset x in [-half, half], the output is
//
//	dst[i] = sum_x k(x) * src[i - x + origin]
func Convolve1D(dst, src []float64, shape []int, axis int, kernel []float64, b Boundary, workers int) error {
	if axis < 0 || axis >= len(shape) {
		return fmt.Errorf("axis %d out of range for %d dimensions", axis, len(shape))
	}
	total := models.NumElements(shape)
	if len(src) != total || len(dst) != total {
		return fmt.Errorf("buffer length does not match shape %v", shape)
	}
	if len(kernel)%2 == 0 {
		return fmt.Errorf("%w: kernel length %d is not odd", ErrInvalidKernel, len(kernel))
	}
	half := len(kernel) / 2
	if b.Origin < -half || b.Origin > half {
		return fmt.Errorf("%w: origin %d exceeds kernel half width %d", ErrInvalidKernel, b.Origin, half)
	}
	if total == 0 {
		return nil
	}

	n := shape[axis]
	stride := models.Strides(shape)[axis]
	lines := total / n
	pad := half + abs(b.Origin)

	parallel.For(lines, workers, func(start, end int) {
		// Each chunk owns its own line buffers
		buf := make([]float64, n+2*pad)
		out := make([]float64, n)

		for l := start; l < end; l++ {
			base := (l/stride)*n*stride + l%stride

			for j := -pad; j < n+pad; j++ {
				buf[j+pad] = b.extend(src, base, stride, n, j)
			}

			for i := 0; i < n; i++ {
				sum := 0.0
				c := i + b.Origin + pad + half
				for kk, w := range kernel {
					sum += w * buf[c-kk]
				}
				out[i] = sum
			}

			for i := 0; i < n; i++ {
				dst[base+i*stride] = out[i]
			}
		}
	})

	return nil
}

// Separable applies one 1D kernel per axis in sequence. A nil kernel skips
// its axis. dst and src may be the same slice.
func Separable(dst, src []float64, shape []int, kernels [][]float64, b Boundary, workers int) error {
	if len(kernels) != len(shape) {
		return fmt.Errorf("got %d kernels for %d dimensions", len(kernels), len(shape))
	}
	cur := src
	applied := false
	for axis, k := range kernels {
		if k == nil {
			continue
		}
		if err := Convolve1D(dst, cur, shape, axis, k, b, workers); err != nil {
			return err
		}
		cur = dst
		applied = true
	}
	if !applied {
		copy(dst, src)
	}
	return nil
}

// GaussianFilter smooths src with a separable Gaussian of the given sigma.
// orders holds the derivative order per axis (0 or 1); nil means order 0 on
// every axis.
func GaussianFilter(dst, src []float64, shape []int, sigma float64, orders []int, truncate float64, b Boundary, workers int) error {
	if orders == nil {
		orders = make([]int, len(shape))
	}
	if len(orders) != len(shape) {
		return fmt.Errorf("got %d derivative orders for %d dimensions", len(orders), len(shape))
	}

	kernels := make([][]float64, len(shape))
	for axis, order := range orders {
		k, err := GaussianKernel1D(sigma, order, truncate)
		if err != nil {
			return err
		}
		kernels[axis] = k
	}

	return Separable(dst, src, shape, kernels, b, workers)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
