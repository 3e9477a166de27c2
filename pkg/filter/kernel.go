package filter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ringShrink is the width ratio of the narrower ring component
const ringShrink = 0.999

// GaussianKernel1D returns a normalized 1D Gaussian kernel of standard
// deviation sigma, or its first derivative when order is 1. The kernel is
// truncated at truncate standard deviations, giving a radius of
// int(truncate*sigma+0.5).
func GaussianKernel1D(sigma float64, order int, truncate float64) ([]float64, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("%w: sigma must be positive, got %g", ErrInvalidKernel, sigma)
	}
	if order < 0 || order > 1 {
		return nil, fmt.Errorf("%w: derivative order %d not supported", ErrInvalidKernel, order)
	}

	radius := int(truncate*sigma + 0.5)
	sigma2 := sigma * sigma
	k := make([]float64, 2*radius+1)
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-0.5 * x * x / sigma2)
	}
	floats.Scale(1/floats.Sum(k), k)

	if order == 1 {
		for i := range k {
			x := float64(i - radius)
			k[i] *= -x / sigma2
		}
	}
	return k, nil
}

// gaussNoNorm returns exp(-x²/2t) for x in [-radius, radius]
func gaussNoNorm(variance float64, radius int) []float64 {
	g := make([]float64, 2*radius+1)
	for i := range g {
		x := float64(i - radius)
		g[i] = math.Exp(-x * x / (2 * variance))
	}
	return g
}

// RingKernels returns the two 1D components of a ring filter of size sigmaR
// for data of the given dimensionality.
//
// g1 has variance sigmaR² and g2 variance (0.999·sigmaR)², both with half width
// round(sigmaR·truncate). They share one scale factor chosen so the separable
// difference g1⊗…⊗g1 − g2⊗…⊗g2 sums to one; in 1D this is sum(g1−g2) = 1.
func RingKernels(sigmaR, truncate float64, dims int) (g1, g2 []float64, err error) {
	if sigmaR <= 0 {
		return nil, nil, fmt.Errorf("%w: ring size must be positive, got %g", ErrInvalidKernel, sigmaR)
	}
	if dims < 1 {
		return nil, nil, fmt.Errorf("%w: dimensionality %d", ErrInvalidKernel, dims)
	}

	radius := int(math.RoundToEven(sigmaR * truncate))
	g1 = gaussNoNorm(sigmaR*sigmaR, radius)
	g2 = gaussNoNorm((sigmaR*ringShrink)*(sigmaR*ringShrink), radius)

	d := float64(dims)
	diff := math.Pow(floats.Sum(g1), d) - math.Pow(floats.Sum(g2), d)
	if !(diff > 0) || math.IsInf(diff, 0) {
		return nil, nil, fmt.Errorf("%w: ring of size %g truncated at %g has no support", ErrInvalidKernel, sigmaR, truncate)
	}

	norm := math.Pow(diff, -1/d)
	floats.Scale(norm, g1)
	floats.Scale(norm, g2)
	return g1, g2, nil
}
