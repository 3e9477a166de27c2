package scalespace

import (
	"fmt"

	"stss/pkg/models"
)

// Constants of the 3D scale correction
const (
	C      = 1.07
	CLin   = 0.65
	CPlan  = 1.0
	CSph   = 0.5
	CWidth = 0.372
)

// Constants of the 2D scale correction
const (
	C2D      = 1.067
	CRatio2D = 0.43
)

// CorrectScale maps selected scales to values that better reflect the size of
// the underlying features, using the eigenvalues of the tensor at each pixel.
//
// For 2D fields the correction assumes an edge-like feature:
//
//	s' = s / (1.067·(1 − 0.43·λ0/λ1)) / 0.372
//
// For 3D fields it blends the linear, planar and spherical anisotropy of the
// ascending eigenvalues λ0 ≤ λ1 ≤ λ2.
//
// The inputs are not modified. Eigenvalues of zero propagate as IEEE Inf/NaN.
func CorrectScale(scale *models.Image, eig *models.EigenField) (*models.Image, error) {
	if scale == nil {
		return nil, fmt.Errorf("%w: no scale map", ErrInvalidInput)
	}
	if eig == nil || eig.Dims != scale.Dims() || !models.SameShape(eig.Shape, scale.Shape) {
		return nil, fmt.Errorf("%w: eigenvalues do not match a scale map of shape %v", ErrInvalidInput, scale.Shape)
	}

	out := models.NewImage(scale.Shape...)

	switch scale.Dims() {
	case 2:
		l0, l1 := eig.Value(0), eig.Value(1)
		for p, s := range scale.Data {
			out.Data[p] = s / (C2D * (1 - CRatio2D*l0[p]/l1[p])) / CWidth
		}
	case 3:
		l0, l1, l2 := eig.Value(0), eig.Value(1), eig.Value(2)
		for p, s := range scale.Data {
			lin := (l1[p] - l0[p]) / l2[p]
			plan := (l2[p] - l1[p]) / l2[p]
			sph := l0[p] / l2[p]
			out.Data[p] = s / (C * (CLin*lin + CPlan*plan + CSph*sph)) / CWidth
		}
	default:
		return nil, fmt.Errorf("%w: scale map must be 2D or 3D, got %dD", ErrInvalidInput, scale.Dims())
	}

	return out, nil
}
