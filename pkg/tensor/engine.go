// Package tensor computes single-scale structure tensor fields of 2D images
// and 3D volumes and their per-pixel eigen decomposition.
package tensor

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"stss/internal/parallel"
	"stss/pkg/filter"
	"stss/pkg/models"
)

var (
	// ErrInvalidInput is returned for images that are not 2D or 3D
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig is returned for inconsistent filter settings
	ErrConfig = errors.New("invalid configuration")

	// ErrBufferMismatch is returned when a caller-supplied output buffer does
	// not fit the image
	ErrBufferMismatch = errors.New("output buffer mismatch")
)

// Integration selects how gradient products are integrated over a neighbourhood
type Integration struct {
	// Ring integrates with a ring filter whose size equals the derivative scale
	Ring bool

	// Rho is the Gaussian integration scale, used only when Ring is false
	Rho float64
}

// Engine computes structure tensor fields for one fixed dimensionality
type Engine interface {
	// Dims returns the image dimensionality handled by the engine
	Dims() int

	// Channels returns the number of tensor channels: 3 in 2D, 6 in 3D
	Channels() int

	// ComputeTensorField writes the structure tensor of img at derivative
	// scale sigma into out, which must already have the image shape.
	ComputeTensorField(img *models.Image, sigma float64, integ Integration, truncate float64, out *models.TensorField, workers int) error

	// EigenDecompose returns the ascending eigenvalues and matching
	// eigenvectors of every tensor in S
	EigenDecompose(S *models.TensorField, workers int) *models.EigenField
}

// engine is the shared implementation behind Engine2D and Engine3D
type engine struct {
	dims int

	// pairs lists, per tensor channel, the two gradient components whose
	// product forms the channel. Gradient k is the derivative along x, y, z
	// for k = 0, 1, 2.
	pairs [][2]int
}

var (
	// Engine2D handles (y, x) images with channels (s_xx, s_yy, s_xy)
	Engine2D Engine = &engine{
		dims:  2,
		pairs: [][2]int{{0, 0}, {1, 1}, {0, 1}},
	}

	// Engine3D handles (z, y, x) volumes with channels
	// (s_xx, s_yy, s_zz, s_xy, s_xz, s_yz)
	Engine3D Engine = &engine{
		dims:  3,
		pairs: [][2]int{{0, 0}, {1, 1}, {2, 2}, {0, 1}, {0, 2}, {1, 2}},
	}
)

// ForDims returns the engine for the given image dimensionality
func ForDims(dims int) (Engine, error) {
	switch dims {
	case 2:
		return Engine2D, nil
	case 3:
		return Engine3D, nil
	default:
		return nil, fmt.Errorf("%w: image must be 2D or 3D, got %dD", ErrInvalidInput, dims)
	}
}

func (e *engine) Dims() int     { return e.dims }
func (e *engine) Channels() int { return len(e.pairs) }

// gradientAxis returns the array axis differentiated by gradient component k
func (e *engine) gradientAxis(k int) int {
	return e.dims - 1 - k
}

func (e *engine) ComputeTensorField(img *models.Image, sigma float64, integ Integration, truncate float64, out *models.TensorField, workers int) error {
	if img.Dims() != e.dims {
		return fmt.Errorf("%w: %dD engine got a %dD image", ErrInvalidInput, e.dims, img.Dims())
	}
	if err := checkBuffer(out, img, e.Channels()); err != nil {
		return err
	}
	if !integ.Ring && !(integ.Rho > 0) {
		return fmt.Errorf("%w: integration scale rho must be positive without the ring filter, got %g", ErrConfig, integ.Rho)
	}

	n := img.Len()
	edge := filter.Boundary{Mode: filter.Nearest}

	// Gaussian derivatives, one per spatial direction
	grad := make([][]float64, e.dims)
	for k := range grad {
		orders := make([]int, e.dims)
		orders[e.gradientAxis(k)] = 1

		grad[k] = make([]float64, n)
		if err := filter.GaussianFilter(grad[k], img.Data, img.Shape, sigma, orders, truncate, edge, workers); err != nil {
			return fmt.Errorf("derivative at sigma %g failed: %w", sigma, err)
		}
	}

	// Integrate the gradient products channel by channel
	tmp := make([]float64, n)
	for c, p := range e.pairs {
		floats.MulTo(tmp, grad[p[0]], grad[p[1]])

		var err error
		if integ.Ring {
			err = filter.RingFilter(out.Channel(c), tmp, img.Shape, sigma, truncate, edge, workers)
		} else {
			err = filter.GaussianFilter(out.Channel(c), tmp, img.Shape, integ.Rho, nil, truncate, edge, workers)
		}
		if err != nil {
			return fmt.Errorf("integration of channel %d failed: %w", c, err)
		}
	}

	return nil
}

func (e *engine) EigenDecompose(S *models.TensorField, workers int) *models.EigenField {
	n := S.Len()
	d := e.dims
	out := models.NewEigenField(S.Shape...)

	parallel.For(n, workers, func(start, end int) {
		var eig mat.EigenSym
		sym := mat.NewSymDense(d, nil)
		vecs := mat.NewDense(d, d, nil)
		vals := make([]float64, d)

		for p := start; p < end; p++ {
			for c, pr := range e.pairs {
				sym.SetSym(pr[0], pr[1], S.Data[c*n+p])
			}

			if !eig.Factorize(sym, true) {
				for k := 0; k < d; k++ {
					out.Values[k*n+p] = math.NaN()
					for j := 0; j < d; j++ {
						out.Vectors[(k*d+j)*n+p] = math.NaN()
					}
				}
				continue
			}

			eig.Values(vals)
			eig.VectorsTo(vecs)

			// Column k of vecs is the eigenvector of vals[k]
			for k := 0; k < d; k++ {
				out.Values[k*n+p] = vals[k]
				for j := 0; j < d; j++ {
					out.Vectors[(k*d+j)*n+p] = vecs.At(j, k)
				}
			}
		}
	})

	return out
}

func checkBuffer(out *models.TensorField, img *models.Image, channels int) error {
	if out == nil {
		return fmt.Errorf("%w: no output field", ErrBufferMismatch)
	}
	if out.Channels != channels || !models.SameShape(out.Shape, img.Shape) || len(out.Data) != channels*img.Len() {
		return fmt.Errorf("%w: need %d channels of shape %v, got %d channels of shape %v",
			ErrBufferMismatch, channels, img.Shape, out.Channels, out.Shape)
	}
	return nil
}
