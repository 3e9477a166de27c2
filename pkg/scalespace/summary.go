package scalespace

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"stss/pkg/models"
)

// Summary describes the distribution of a scale map
type Summary struct {
	Min, Max     float64
	Mean, StdDev float64
	Median       float64

	// NonFinite counts pixels whose corrected scale is Inf or NaN; they are
	// excluded from the statistics above
	NonFinite int
}

// Summarize computes summary statistics over the finite values of a scale map
func Summarize(scale *models.Image) Summary {
	values := make([]float64, 0, len(scale.Data))
	for _, v := range scale.Data {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			values = append(values, v)
		}
	}

	s := Summary{NonFinite: len(scale.Data) - len(values)}
	if len(values) == 0 {
		s.Min, s.Max, s.Mean, s.StdDev, s.Median = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}

	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)

	sort.Float64s(values)
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	return s
}

// CountSelections counts how many pixels of an uncorrected scale map selected
// each candidate scale
func CountSelections(scale *models.Image, sigmas []float64) []int {
	counts := make([]int, len(sigmas))
	for _, v := range scale.Data {
		for i, s := range sigmas {
			if v == s {
				counts[i]++
				break
			}
		}
	}
	return counts
}
