package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"stss/pkg/models"
)

// Viewer renders a scalar field (scale map, eigenvalue, orientation) of a 2D
// image or 3D volume as 16-bit grayscale slices
type Viewer struct {
	// field holds the scalar values, (height, width) or (depth, height, width)
	field *models.Image

	// dimensions of the field
	width  int
	height int
	depth  int

	// lo and hi map to black and white; values outside are clipped
	lo, hi float64
}

// NewViewer creates a viewer that stretches the finite range of the field to
// the full gray scale
func NewViewer(field *models.Image) (*Viewer, error) {
	v := &Viewer{field: field}

	switch field.Dims() {
	case 2:
		v.depth, v.height, v.width = 1, field.Shape[0], field.Shape[1]
	case 3:
		v.depth, v.height, v.width = field.Shape[0], field.Shape[1], field.Shape[2]
	default:
		return nil, fmt.Errorf("field must be 2D or 3D, got %dD", field.Dims())
	}

	v.lo, v.hi = math.Inf(1), math.Inf(-1)
	for _, x := range field.Data {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			continue
		}
		v.lo = math.Min(v.lo, x)
		v.hi = math.Max(v.hi, x)
	}
	if v.lo > v.hi {
		v.lo, v.hi = 0, 1
	}

	return v, nil
}

// SetRange fixes the values mapped to black and white
func (v *Viewer) SetRange(lo, hi float64) {
	v.lo, v.hi = lo, hi
}

// gray maps a field value to a 16-bit intensity. Non-finite values are black.
func (v *Viewer) gray(x float64) color.Gray16 {
	if math.IsNaN(x) || math.IsInf(x, 0) || v.hi <= v.lo {
		return color.Gray16{Y: 0}
	}
	t := (x - v.lo) / (v.hi - v.lo)
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, t*65535)))}
}

// ExtractSlice extracts a 2D slice from the field along the specified axis.
// A 2D field is a single z slice.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.Gray16
	plane := v.width * v.height

	switch axis {
	case "x", "X":
		// Extract slice along YZ plane
		if position >= v.width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}

		img = image.NewGray16(image.Rect(0, 0, v.depth, v.height))
		for y := 0; y < v.height; y++ {
			for z := 0; z < v.depth; z++ {
				img.SetGray16(z, y, v.gray(v.field.Data[z*plane+y*v.width+position]))
			}
		}

	case "y", "Y":
		// Extract slice along XZ plane
		if position >= v.height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}

		img = image.NewGray16(image.Rect(0, 0, v.width, v.depth))
		for z := 0; z < v.depth; z++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, z, v.gray(v.field.Data[z*plane+position*v.width+x]))
			}
		}

	case "z", "Z":
		// Extract slice along XY plane
		if position >= v.depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.depth)
		}

		img = image.NewGray16(image.Rect(0, 0, v.width, v.height))
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, y, v.gray(v.field.Data[position*plane+y*v.width+x]))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a 16-bit PNG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.width
	case "y", "Y":
		maxPos = v.height
	case "z", "Z":
		maxPos = v.depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
