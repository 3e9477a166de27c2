// Package visualization renders scale maps and eigen decompositions as images.
package visualization

import (
	"math"

	"stss/pkg/models"
)

// OrientationAngle returns, per pixel, the direction of the dominant
// eigenvector (largest eigenvalue).
//
// For 2D fields this is the in-plane angle from the x axis, folded into
// [0, π). For 3D fields it is the inclination from the z axis in [0, π/2].
func OrientationAngle(eig *models.EigenField) *models.Image {
	out := models.NewImage(eig.Shape...)
	top := eig.Dims - 1

	switch eig.Dims {
	case 2:
		vx, vy := eig.Vector(top, 0), eig.Vector(top, 1)
		for p := range out.Data {
			a := math.Atan2(vy[p], vx[p])
			if a < 0 {
				a += math.Pi
			}
			if a >= math.Pi {
				a -= math.Pi
			}
			out.Data[p] = a
		}
	case 3:
		vz := eig.Vector(top, 2)
		for p := range out.Data {
			out.Data[p] = math.Acos(math.Min(1, math.Abs(vz[p])))
		}
	}

	return out
}

// Anisotropy returns (λmax − λmin) / λmax per pixel: 0 for isotropic
// neighbourhoods, approaching 1 for edges, sheets or filaments. Pixels with
// λmax <= 0 map to 0.
func Anisotropy(eig *models.EigenField) *models.Image {
	out := models.NewImage(eig.Shape...)
	lo, hi := eig.Value(0), eig.Value(eig.Dims-1)

	for p := range out.Data {
		if hi[p] > 0 {
			out.Data[p] = (hi[p] - lo[p]) / hi[p]
		}
	}
	return out
}
