// Package imageio reads grayscale images and slice stacks into models.Image
// and stores computed fields as raw float64 arrays.
package imageio

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"stss/internal/parallel"
	"stss/pkg/models"
)

// supportedExts lists the slice formats recognised in a volume directory
var supportedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// Load reads a 2D image from a file or a 3D volume from a directory of slices
func Load(path string, workers int) (*models.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadVolume(path, workers)
	}
	return LoadImage(path)
}

// LoadImage decodes a PNG, JPEG or TIFF file into a (height, width) image
// with intensities in [0, 1]
func LoadImage(path string) (*models.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return ToImage(img), nil
}

// ToImage converts the first channel of img to a (height, width) float image
func ToImage(img image.Image) *models.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := models.NewImage(height, width)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Convert 16-bit color to float64 (0-1 range)
			out.Data[y*width+x] = float64(r) / 65535.0
		}
	}

	return out
}

// LoadVolume loads every supported slice in dir, ordered by the number in its
// filename, into a (depth, height, width) volume. All slices must share the
// same size.
func LoadVolume(dir string, workers int) (*models.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if supportedExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no image slices found in %s", dir)
	}

	// Sort by the number embedded in the filename so slice_10 follows slice_9
	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := extractNumber(files[i]), extractNumber(files[j])
		if ni != nj {
			return ni < nj
		}
		return files[i] < files[j]
	})

	slices := make([]*models.Image, len(files))
	var g errgroup.Group
	g.SetLimit(parallel.Workers(workers))

	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			img, err := LoadImage(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("failed to load slice %s: %w", name, err)
			}
			slices[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	height, width := slices[0].Shape[0], slices[0].Shape[1]
	volume := models.NewImage(len(slices), height, width)
	size := height * width

	for z, s := range slices {
		if !models.SameShape(s.Shape, slices[0].Shape) {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d",
				files[z], s.Shape[1], s.Shape[0], width, height)
		}
		copy(volume.Data[z*size:(z+1)*size], s.Data)
	}

	return volume, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}
