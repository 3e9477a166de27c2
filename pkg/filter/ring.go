package filter

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"stss/pkg/models"
)

// Options controls RingConvolve
type Options struct {
	// Truncate cuts the kernels at this many standard deviations
	Truncate float64

	// Mode, Cval and Origin describe the boundary handling on every axis
	Mode   Mode
	Cval   float64
	Origin int

	// Workers is the number of goroutines used per axis pass (0 = all cores)
	Workers int
}

// DefaultOptions returns truncation at 4 standard deviations with nearest
// boundary extension
func DefaultOptions() Options {
	return Options{
		Truncate: 4.0,
		Mode:     Nearest,
	}
}

func (o Options) boundary() Boundary {
	return Boundary{Mode: o.Mode, Cval: o.Cval, Origin: o.Origin}
}

// RingFilter convolves src with a ring filter of size sigmaR and writes the
// band-pass response into dst. dst and src may be the same slice.
//
// The input is filtered separably with g1 and, independently, with g2 along
// every axis (see RingKernels); the result is their difference.
func RingFilter(dst, src []float64, shape []int, sigmaR, truncate float64, b Boundary, workers int) error {
	g1, g2, err := RingKernels(sigmaR, truncate, len(shape))
	if err != nil {
		return err
	}

	narrow := make([]float64, len(src))
	if err := Separable(narrow, src, shape, repeat(g2, len(shape)), b, workers); err != nil {
		return err
	}
	if err := Separable(dst, src, shape, repeat(g1, len(shape)), b, workers); err != nil {
		return err
	}

	floats.Sub(dst, narrow)
	return nil
}

// RingConvolve returns img convolved with a ring filter of size sigmaR.
// The input image is left untouched.
func RingConvolve(img *models.Image, sigmaR float64, opts Options) (*models.Image, error) {
	if img == nil || img.Len() == 0 {
		return nil, fmt.Errorf("ring convolution of an empty image")
	}

	out := models.NewImage(img.Shape...)
	if err := RingFilter(out.Data, img.Data, img.Shape, sigmaR, opts.Truncate, opts.boundary(), opts.Workers); err != nil {
		return nil, fmt.Errorf("ring convolution failed: %w", err)
	}
	return out, nil
}

func repeat(k []float64, n int) [][]float64 {
	ks := make([][]float64, n)
	for i := range ks {
		ks[i] = k
	}
	return ks
}
