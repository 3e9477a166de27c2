package tensor

import (
	"fmt"

	"stss/pkg/models"
)

// Options holds the parameters of a single-scale structure tensor computation
type Options struct {
	// RingFilter integrates with a ring filter sized by sigma instead of a
	// Gaussian of scale Rho
	RingFilter bool

	// Rho is the Gaussian integration scale, required when RingFilter is false
	Rho float64

	// Out, when set, receives the tensor field in place and is returned.
	// It must have the image shape and the matching channel count.
	Out *models.TensorField

	// EigDecomp requests the eigen decomposition of the result
	EigDecomp bool

	// Truncate cuts every filter at this many standard deviations
	Truncate float64

	// Workers is the number of goroutines per pass (0 = all cores)
	Workers int
}

// DefaultOptions returns the ring-filter configuration with eigen decomposition
// and filters truncated at 4 standard deviations
func DefaultOptions() Options {
	return Options{
		RingFilter: true,
		EigDecomp:  true,
		Truncate:   4.0,
	}
}

// StructureTensor computes the structure tensor of a 2D or 3D image at
// derivative scale sigma.
//
// The returned field has 3 channels (s_xx, s_yy, s_xy) for 2D images and 6
// channels (s_xx, s_yy, s_zz, s_xy, s_xz, s_yz) for 3D images. The eigen field
// is nil unless opts.EigDecomp is set.
func StructureTensor(img *models.Image, sigma float64, opts Options) (*models.TensorField, *models.EigenField, error) {
	if img == nil {
		return nil, nil, fmt.Errorf("%w: no image", ErrInvalidInput)
	}

	eng, err := ForDims(img.Dims())
	if err != nil {
		return nil, nil, err
	}

	S := opts.Out
	if S == nil {
		S = models.NewTensorField(img.Shape...)
	} else if err := checkBuffer(S, img, eng.Channels()); err != nil {
		return nil, nil, err
	}

	integ := Integration{Ring: opts.RingFilter, Rho: opts.Rho}
	if err := eng.ComputeTensorField(img, sigma, integ, opts.Truncate, S, opts.Workers); err != nil {
		return nil, nil, err
	}

	if !opts.EigDecomp {
		return S, nil, nil
	}
	return S, eng.EigenDecompose(S, opts.Workers), nil
}
