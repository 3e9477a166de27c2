// Package scalespace selects, for every pixel of a 2D or 3D image, the
// analysis scale at which the scale-normalized structure tensor responds most
// strongly, and returns the tensor, its eigen decomposition and the scale map.
package scalespace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"stss/internal/parallel"
	"stss/pkg/models"
	"stss/pkg/tensor"
)

// DefaultGamma is the scale-normalization exponent the ring filter response is
// calibrated for
const DefaultGamma = 1.2

var (
	// ErrInvalidInput is returned for images or scale maps that are not 2D or 3D
	ErrInvalidInput = tensor.ErrInvalidInput

	// ErrConfig is returned for inconsistent optimizer settings
	ErrConfig = tensor.ErrConfig
)

// Params holds the scale-space parameters
type Params struct {
	// Sigmas lists the candidate derivative scales. Order decides ties: the
	// earlier scale is kept when two scales respond equally at a pixel.
	Sigmas []float64

	// CorrectScale converts selected scales to feature sizes. It requires
	// RingFilter.
	CorrectScale bool

	// RingFilter integrates with a ring filter sized by each sigma
	RingFilter bool

	// Rhos gives one Gaussian integration scale per sigma. It is required
	// without the ring filter and ignored with it.
	Rhos []float64

	// Gamma is the scale-normalization exponent; responses are multiplied by
	// sigma^(2·Gamma)
	Gamma float64

	// Truncate cuts every filter at this many standard deviations
	Truncate float64

	// Workers is the number of goroutines per pass (0 = all cores)
	Workers int

	// Diagnostics receives warnings and per-scale progress. May be nil.
	Diagnostics DiagnosticsFunc
}

// DefaultParams returns ring-filter parameters with scale correction,
// gamma 1.2 and filters truncated at 4 standard deviations
func DefaultParams(sigmas ...float64) *Params {
	return &Params{
		Sigmas:       append([]float64(nil), sigmas...),
		CorrectScale: true,
		RingFilter:   true,
		Gamma:        DefaultGamma,
		Truncate:     4.0,
	}
}

// Result holds the per-pixel optimum over all candidate scales
type Result struct {
	// S is the scale-normalized tensor at the selected scale
	S *models.TensorField

	// Eigen is the eigen decomposition of S
	Eigen *models.EigenField

	// Scale is the selected scale, corrected when Params.CorrectScale is set
	Scale *models.Image
}

// Optimizer runs the scale-space search for one parameter set
type Optimizer struct {
	params *Params
}

// NewOptimizer creates an optimizer for the given parameters
func NewOptimizer(params *Params) *Optimizer {
	return &Optimizer{params: params}
}

// ScaleSpace is shorthand for NewOptimizer(params).Run(img)
func ScaleSpace(img *models.Image, params *Params) (*Result, error) {
	return NewOptimizer(params).Run(img)
}

// Run computes the structure tensor at every candidate scale and keeps, per
// pixel, the scale whose normalized tensor has the largest trace.
//
// Configuration and input errors are returned before any filtering starts.
func (o *Optimizer) Run(img *models.Image) (*Result, error) {
	p := o.params

	v, err := o.validate(img)
	if err != nil {
		return nil, err
	}

	if p.Gamma != DefaultGamma {
		p.Diagnostics.emit(Event{
			Level:   LevelWarning,
			Message: fmt.Sprintf("gamma is %g, not %g; scale selection may be incorrect", p.Gamma, DefaultGamma),
		})
	}

	n := img.Len()
	S := models.NewTensorField(img.Shape...)
	discr := make([]float64, n)
	diag := (v.Channels() + 1) / 2

	var best *candidate
	for i, sigma := range p.Sigmas {
		integ := tensor.Integration{Ring: p.RingFilter}
		if !p.RingFilter {
			integ.Rho = p.Rhos[i]
		}

		if err := v.ComputeTensorField(img, sigma, integ, p.Truncate, S, p.Workers); err != nil {
			return nil, fmt.Errorf("scale %g: %w", sigma, err)
		}

		floats.Scale(math.Pow(sigma, 2*p.Gamma), S.Data)

		// Trace proxy: sum of the diagonal channels
		copy(discr, S.Channel(0))
		for c := 1; c < diag; c++ {
			floats.Add(discr, S.Channel(c))
		}

		if i == 0 {
			best = newCandidate(S, sigma, discr)
		} else {
			best.merge(S, sigma, discr, p.Workers)
		}

		p.Diagnostics.emit(Event{
			Level:     LevelInfo,
			Message:   fmt.Sprintf("Scale %.3f done.", sigma),
			Scale:     sigma,
			Completed: i + 1,
			Total:     len(p.Sigmas),
		})
	}

	eig := v.EigenDecompose(best.S, p.Workers)

	scale := best.scale
	if p.CorrectScale {
		if scale, err = v.CorrectScale(scale, eig); err != nil {
			return nil, err
		}
	}

	return &Result{S: best.S, Eigen: eig, Scale: scale}, nil
}

func (o *Optimizer) validate(img *models.Image) (Variant, error) {
	p := o.params
	if p == nil {
		return nil, fmt.Errorf("%w: no parameters", ErrConfig)
	}
	if p.CorrectScale && !p.RingFilter {
		return nil, fmt.Errorf("%w: scale correction is only valid with the ring filter; disable correction or enable the ring filter", ErrConfig)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: no image", ErrInvalidInput)
	}

	v, err := VariantFor(img.Dims())
	if err != nil {
		return nil, err
	}

	if len(p.Sigmas) == 0 {
		return nil, fmt.Errorf("%w: at least one scale is required", ErrInvalidInput)
	}
	for _, s := range p.Sigmas {
		if !(s > 0) {
			return nil, fmt.Errorf("%w: scales must be positive, got %g", ErrInvalidInput, s)
		}
	}
	if !p.RingFilter && len(p.Rhos) != len(p.Sigmas) {
		return nil, fmt.Errorf("%w: need one integration scale per sigma without the ring filter, got %d for %d",
			ErrConfig, len(p.Rhos), len(p.Sigmas))
	}

	return v, nil
}

// candidate is the running per-pixel optimum
type candidate struct {
	S     *models.TensorField
	scale *models.Image
	discr []float64
}

func newCandidate(S *models.TensorField, sigma float64, discr []float64) *candidate {
	scale := models.NewImage(S.Shape...)
	for i := range scale.Data {
		scale.Data[i] = sigma
	}
	return &candidate{
		S:     S.Clone(),
		scale: scale,
		discr: append([]float64(nil), discr...),
	}
}

// merge replaces, at every pixel where discr is strictly greater than the
// current optimum, the tensor, scale and discriminant together
func (c *candidate) merge(S *models.TensorField, sigma float64, discr []float64, workers int) {
	n := len(discr)
	channels := S.Channels

	parallel.For(n, workers, func(start, end int) {
		for p := start; p < end; p++ {
			if !(discr[p] > c.discr[p]) {
				continue
			}
			for k := 0; k < channels; k++ {
				c.S.Data[k*n+p] = S.Data[k*n+p]
			}
			c.scale.Data[p] = sigma
			c.discr[p] = discr[p]
		}
	})
}
