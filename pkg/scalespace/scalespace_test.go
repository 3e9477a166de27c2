package scalespace

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"stss/pkg/models"
	"stss/pkg/tensor"
)

func randomImage(seed int64, shape ...int) *models.Image {
	rng := rand.New(rand.NewSource(seed))
	img := models.NewImage(shape...)
	for i := range img.Data {
		img.Data[i] = rng.Float64()
	}
	return img
}

// blurredEdge returns an image with a vertical step at x = w/2 smoothed with
// an error function of the given width
func blurredEdge(h, w int, blur float64) *models.Image {
	img := models.NewImage(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := float64(x) - float64(w)/2 + 0.5
			img.Set(0.5*(1+math.Erf(d/(math.Sqrt2*blur))), y, x)
		}
	}
	return img
}

// TestScaleSpaceConfigError verifies correction without the ring filter is rejected up front
func TestScaleSpaceConfigError(t *testing.T) {
	params := DefaultParams(1, 2)
	params.RingFilter = false
	params.Rhos = []float64{2, 3}

	for _, img := range []*models.Image{randomImage(1, 8, 8), models.NewImage(5), nil} {
		var original []float64
		if img != nil {
			original = append([]float64(nil), img.Data...)
		}

		_, err := ScaleSpace(img, params)
		if !errors.Is(err, ErrConfig) {
			t.Errorf("Expected ErrConfig, got %v", err)
		}

		if img != nil {
			for i := range original {
				if img.Data[i] != original[i] {
					t.Fatalf("Image modified at %d", i)
				}
			}
		}
	}
}

// TestScaleSpaceDimensionGuard verifies 1D and 4D images are rejected
func TestScaleSpaceDimensionGuard(t *testing.T) {
	for _, shape := range [][]int{{32}, {3, 3, 3, 3}} {
		_, err := ScaleSpace(models.NewImage(shape...), DefaultParams(1, 2))
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("shape %v: expected ErrInvalidInput, got %v", shape, err)
		}
	}
}

// TestScaleSpaceParameterValidation covers empty scale lists and missing integration scales
func TestScaleSpaceParameterValidation(t *testing.T) {
	img := randomImage(2, 8, 8)

	if _, err := ScaleSpace(img, DefaultParams()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for no scales, got %v", err)
	}

	if _, err := ScaleSpace(img, DefaultParams(1, -2)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a negative scale, got %v", err)
	}

	params := DefaultParams(1, 2)
	params.CorrectScale = false
	params.RingFilter = false
	params.Rhos = []float64{2}
	if _, err := ScaleSpace(img, params); !errors.Is(err, ErrConfig) {
		t.Errorf("Expected ErrConfig for a short rho list, got %v", err)
	}
}

// TestScaleSpaceSelectsListedScale verifies every selected scale is a literal
// candidate and the returned tensor is the normalized tensor at that scale
func TestScaleSpaceSelectsListedScale(t *testing.T) {
	img := randomImage(3, 20, 22)
	sigmas := []float64{1, 1.5, 2.25}

	params := DefaultParams(sigmas...)
	params.CorrectScale = false

	res, err := ScaleSpace(img, params)
	if err != nil {
		t.Fatalf("ScaleSpace failed: %v", err)
	}

	// Reference tensors at every scale, normalized the same way
	refs := make(map[float64]*models.TensorField)
	for _, s := range sigmas {
		opts := tensor.DefaultOptions()
		opts.EigDecomp = false
		S, _, err := tensor.StructureTensor(img, s, opts)
		if err != nil {
			t.Fatalf("StructureTensor(%g) failed: %v", s, err)
		}
		f := math.Pow(s, 2*DefaultGamma)
		for i := range S.Data {
			S.Data[i] *= f
		}
		refs[s] = S
	}

	n := img.Len()
	counts := CountSelections(res.Scale, sigmas)
	total := 0
	for _, c := range counts {
		total += c
	}
	if total != n {
		t.Fatalf("Only %d of %d pixels hold a listed scale", total, n)
	}

	for p := 0; p < n; p++ {
		ref := refs[res.Scale.Data[p]]
		for c := 0; c < 3; c++ {
			got, want := res.S.Data[c*n+p], ref.Data[c*n+p]
			if math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
				t.Fatalf("Pixel %d channel %d: expected %g, got %g", p, c, want, got)
			}
		}

		// The selected scale must have the largest trace
		best := ref.Data[p] + ref.Data[n+p]
		for _, s := range sigmas {
			other := refs[s].Data[p] + refs[s].Data[n+p]
			if other > best+1e-9*math.Max(1, math.Abs(best)) {
				t.Fatalf("Pixel %d: scale %g has trace %g above selected %g", p, s, other, best)
			}
		}
	}
}

// TestScaleSpaceTieKeepsFirstScale verifies equal discriminants keep the earliest scale
func TestScaleSpaceTieKeepsFirstScale(t *testing.T) {
	// An empty image has zero response at every scale
	img := models.NewImage(12, 12)

	params := DefaultParams(2, 1, 3)
	params.CorrectScale = false

	res, err := ScaleSpace(img, params)
	if err != nil {
		t.Fatalf("ScaleSpace failed: %v", err)
	}

	for p, s := range res.Scale.Data {
		if s != 2 {
			t.Fatalf("Pixel %d: expected the first scale 2, got %g", p, s)
		}
	}
}

// TestCandidateMerge verifies the tensor, scale and discriminant move together
func TestCandidateMerge(t *testing.T) {
	S0 := models.NewTensorField(1, 3)
	S0.Data = []float64{
		1, 1, 1, // s_xx
		2, 2, 2, // s_yy
		3, 3, 3, // s_xy
	}
	c := newCandidate(S0, 1.0, []float64{5, 5, 5})

	S1 := models.NewTensorField(1, 3)
	S1.Data = []float64{
		10, 10, 10,
		20, 20, 20,
		30, 30, 30,
	}
	// Lower, equal and higher discriminant
	c.merge(S1, 2.0, []float64{4, 5, 6}, 2)

	expectedScale := []float64{1, 1, 2}
	expectedDiscr := []float64{5, 5, 6}
	expectedS := []float64{1, 1, 10, 2, 2, 20, 3, 3, 30}

	for p := range expectedScale {
		if c.scale.Data[p] != expectedScale[p] {
			t.Errorf("Pixel %d: expected scale %g, got %g", p, expectedScale[p], c.scale.Data[p])
		}
		if c.discr[p] != expectedDiscr[p] {
			t.Errorf("Pixel %d: expected discriminant %g, got %g", p, expectedDiscr[p], c.discr[p])
		}
	}
	for i := range expectedS {
		if c.S.Data[i] != expectedS[i] {
			t.Errorf("Tensor sample %d: expected %g, got %g", i, expectedS[i], c.S.Data[i])
		}
	}

	// The initial tensor must not alias the per-scale buffer
	if S0.Data[2] != 1 {
		t.Error("Merge wrote into the first scale's buffer")
	}
}

// TestScaleSpaceIgnoresRhoWithRing verifies integration scales have no effect in ring mode
func TestScaleSpaceIgnoresRhoWithRing(t *testing.T) {
	img := randomImage(4, 16, 16)

	params := DefaultParams(1, 2)
	a, err := ScaleSpace(img, params)
	if err != nil {
		t.Fatalf("ScaleSpace failed: %v", err)
	}

	params.Rhos = []float64{5, 9}
	b, err := ScaleSpace(img, params)
	if err != nil {
		t.Fatalf("ScaleSpace with rhos failed: %v", err)
	}

	for i := range a.S.Data {
		if a.S.Data[i] != b.S.Data[i] {
			t.Fatalf("Tensor differs at %d", i)
		}
	}
	for i := range a.Scale.Data {
		if a.Scale.Data[i] != b.Scale.Data[i] && !(math.IsNaN(a.Scale.Data[i]) && math.IsNaN(b.Scale.Data[i])) {
			t.Fatalf("Scale differs at %d", i)
		}
	}
}

// TestScaleSpaceGaussianIntegration runs the optimizer without the ring filter
func TestScaleSpaceGaussianIntegration(t *testing.T) {
	img := randomImage(5, 16, 16)
	params := DefaultParams(1, 2)
	params.CorrectScale = false
	params.RingFilter = false
	params.Rhos = []float64{2, 4}

	res, err := ScaleSpace(img, params)
	if err != nil {
		t.Fatalf("ScaleSpace failed: %v", err)
	}
	for p, s := range res.Scale.Data {
		if s != 1 && s != 2 {
			t.Fatalf("Pixel %d: unexpected scale %g", p, s)
		}
	}
}

// TestScaleSpaceDiagnostics verifies the gamma warning and per-scale progress events
func TestScaleSpaceDiagnostics(t *testing.T) {
	img := randomImage(6, 10, 10)

	var events []Event
	params := DefaultParams(1, 1.5, 2)
	params.CorrectScale = false
	params.Gamma = 1.0
	params.Diagnostics = func(e Event) { events = append(events, e) }

	if _, err := ScaleSpace(img, params); err != nil {
		t.Fatalf("ScaleSpace failed: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d: %+v", len(events), events)
	}
	if events[0].Level != LevelWarning {
		t.Errorf("Expected a leading warning, got %s", events[0].Level)
	}
	for i, e := range events[1:] {
		if e.Level != LevelInfo || e.Completed != i+1 || e.Total != 3 || e.Scale != params.Sigmas[i] {
			t.Errorf("Unexpected progress event %d: %+v", i, e)
		}
	}

	// No warning at the default gamma
	events = nil
	params.Gamma = DefaultGamma
	if _, err := ScaleSpace(img, params); err != nil {
		t.Fatalf("ScaleSpace failed: %v", err)
	}
	for _, e := range events {
		if e.Level == LevelWarning {
			t.Errorf("Unexpected warning: %s", e.Message)
		}
	}
}

// TestScaleSpaceEdgeOrientation runs the full pipeline on a blurred straight edge
func TestScaleSpaceEdgeOrientation(t *testing.T) {
	h, w := 32, 48
	img := blurredEdge(h, w, 2.0)
	sigmas := []float64{1, 2, 3}

	params := DefaultParams(sigmas...)
	params.CorrectScale = false

	res, err := ScaleSpace(img, params)
	if err != nil {
		t.Fatalf("ScaleSpace failed: %v", err)
	}

	n := img.Len()
	for y := 4; y < h-4; y++ {
		for _, x := range []int{w/2 - 1, w / 2} {
			p := y*w + x

			s := res.Scale.Data[p]
			if s != 1 && s != 2 && s != 3 {
				t.Fatalf("(%d,%d): scale %g not in candidate list", x, y, s)
			}

			// The dominant eigenvector is perpendicular to the vertical edge
			vx, vy := res.Eigen.Vector(1, 0)[p], res.Eigen.Vector(1, 1)[p]
			angle := math.Atan2(math.Abs(vy), math.Abs(vx)) * 180 / math.Pi
			if angle > 5 {
				t.Errorf("(%d,%d): dominant eigenvector (%g, %g) is %.2f° off the edge normal", x, y, vx, vy, angle)
			}

			if res.Eigen.Values[n+p] <= res.Eigen.Values[p] {
				t.Errorf("(%d,%d): expected anisotropic tensor, got %g <= %g", x, y, res.Eigen.Values[n+p], res.Eigen.Values[p])
			}
		}
	}
}

// verticalBar returns an image with a bright vertical bar of the given width
// centered on column w/2
func verticalBar(h, w, width int) *models.Image {
	img := models.NewImage(h, w)
	lo := w/2 - width/2
	for y := 0; y < h; y++ {
		for x := lo; x < lo+width; x++ {
			img.Set(1, y, x)
		}
	}
	return img
}

// TestScaleSpaceBarWidth verifies the scale selected at the center of a bar
// grows with the bar width
func TestScaleSpaceBarWidth(t *testing.T) {
	h, w := 8, 96
	sigmas := []float64{1, 1.5, 2, 3, 4, 6, 8}

	tests := []struct {
		width    int
		expected float64
	}{
		{4, 1.5},
		{8, 3},
		{16, 6},
	}

	for _, tc := range tests {
		params := DefaultParams(sigmas...)
		params.CorrectScale = false

		res, err := ScaleSpace(verticalBar(h, w, tc.width), params)
		if err != nil {
			t.Fatalf("width %d: ScaleSpace failed: %v", tc.width, err)
		}

		// Even widths leave the bar center between columns w/2-1 and w/2
		for y := 0; y < h; y++ {
			for _, x := range []int{w/2 - 1, w / 2} {
				if s := res.Scale.At(y, x); s != tc.expected {
					t.Errorf("width %d at (%d,%d): expected scale %g, got %g", tc.width, x, y, tc.expected, s)
				}
			}
		}
	}
}

// TestScaleSpace3D runs the corrected pipeline on a small volume
func TestScaleSpace3D(t *testing.T) {
	img := randomImage(7, 10, 11, 12)
	res, err := ScaleSpace(img, DefaultParams(1, 1.5))
	if err != nil {
		t.Fatalf("ScaleSpace failed: %v", err)
	}

	if res.S.Channels != 6 {
		t.Errorf("Expected 6 channels, got %d", res.S.Channels)
	}
	if !models.SameShape(res.Scale.Shape, img.Shape) || res.Eigen.Dims != 3 {
		t.Errorf("Unexpected result shapes: scale %v, eigen dims %d", res.Scale.Shape, res.Eigen.Dims)
	}

	// Corrected scales stay positive where the tensor is positive definite
	n := img.Len()
	for p := 0; p < n; p++ {
		if res.Eigen.Values[p] > 0 && !(res.Scale.Data[p] > 0) {
			t.Fatalf("Pixel %d: expected a positive corrected scale, got %g", p, res.Scale.Data[p])
		}
	}
}

// TestCorrectScale2D checks the edge correction formula
func TestCorrectScale2D(t *testing.T) {
	scale := models.NewImage(1, 2)
	scale.Data = []float64{2, 3}
	eig := models.NewEigenField(1, 2)
	copy(eig.Value(0), []float64{0, 1})
	copy(eig.Value(1), []float64{4, 2})

	out, err := CorrectScale(scale, eig)
	if err != nil {
		t.Fatalf("CorrectScale failed: %v", err)
	}

	expected := []float64{
		2 / 1.067 / 0.372,
		3 / (1.067 * (1 - 0.43*0.5)) / 0.372,
	}
	for i := range expected {
		if math.Abs(out.Data[i]-expected[i]) > 1e-12 {
			t.Errorf("Pixel %d: expected %g, got %g", i, expected[i], out.Data[i])
		}
	}

	// Inputs untouched
	if scale.Data[0] != 2 || scale.Data[1] != 3 {
		t.Error("Scale map was modified")
	}
}

// TestCorrectScale3DIsotropic verifies equal eigenvalues give a finite correction
func TestCorrectScale3DIsotropic(t *testing.T) {
	scale := models.NewImage(2, 2, 2)
	eig := models.NewEigenField(2, 2, 2)
	for p := range scale.Data {
		scale.Data[p] = 2
		eig.Value(0)[p] = 0.7
		eig.Value(1)[p] = 0.7
		eig.Value(2)[p] = 0.7
	}

	out, err := CorrectScale(scale, eig)
	if err != nil {
		t.Fatalf("CorrectScale failed: %v", err)
	}

	// Purely spherical: s / (C·C_SPH) / 0.372
	expected := 2 / (C * CSph) / CWidth
	for p, v := range out.Data {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			t.Fatalf("Pixel %d: non-finite correction", p)
		}
		if math.Abs(v-expected) > 1e-12 {
			t.Errorf("Pixel %d: expected %g, got %g", p, expected, v)
		}
	}
}

// TestCorrectScale3DLinear checks a filament-like tensor against the blend formula
func TestCorrectScale3DLinear(t *testing.T) {
	scale := models.NewImage(1, 1, 1)
	scale.Data[0] = 1.5
	eig := models.NewEigenField(1, 1, 1)
	eig.Values = []float64{0.1, 0.9, 1.0}

	out, err := CorrectScale(scale, eig)
	if err != nil {
		t.Fatalf("CorrectScale failed: %v", err)
	}

	lin, plan, sph := 0.8, 0.1, 0.1
	expected := 1.5 / (1.07 * (0.65*lin + 1*plan + 0.5*sph)) / 0.372
	if math.Abs(out.Data[0]-expected) > 1e-12 {
		t.Errorf("Expected %g, got %g", expected, out.Data[0])
	}
}

// TestCorrectScaleInvalid verifies other dimensionalities are rejected
func TestCorrectScaleInvalid(t *testing.T) {
	scale := models.NewImage(4)
	eig := models.NewEigenField(4)
	if _, err := CorrectScale(scale, eig); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for 1D, got %v", err)
	}

	scale2 := models.NewImage(3, 3)
	if _, err := CorrectScale(scale2, models.NewEigenField(3, 3, 3)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for mismatched eigenvalues, got %v", err)
	}

	if _, err := CorrectScale(nil, models.NewEigenField(3, 3)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a nil scale map, got %v", err)
	}
}

// TestSummarize checks the scale map statistics skip non-finite values
func TestSummarize(t *testing.T) {
	scale := models.NewImage(5)
	scale.Data = []float64{1, 2, 3, math.Inf(1), math.NaN()}

	s := Summarize(scale)
	if s.NonFinite != 2 {
		t.Errorf("Expected 2 non-finite values, got %d", s.NonFinite)
	}
	if s.Min != 1 || s.Max != 3 || s.Mean != 2 || s.Median != 2 {
		t.Errorf("Unexpected summary %+v", s)
	}
}
