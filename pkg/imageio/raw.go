package imageio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"stss/pkg/models"
)

// RawHeader describes a raw field file. It is stored next to the data as
// <path>.yaml.
type RawHeader struct {
	// Channels is the size of the leading channel axis (1 for scalar fields)
	Channels int `yaml:"channels"`

	// Shape is the spatial shape, slowest axis first
	Shape []int `yaml:"shape"`

	DType     string `yaml:"dtype"`
	ByteOrder string `yaml:"byteOrder"`
}

// SaveRaw writes data as little-endian float64 values with a YAML header
func SaveRaw(path string, data []float64, shape []int, channels int) error {
	if channels < 1 {
		channels = 1
	}
	if len(data) != channels*models.NumElements(shape) {
		return fmt.Errorf("data length %d does not match %d channels of shape %v", len(data), channels, shape)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("error writing raw field: %w", err)
	}

	header, err := yaml.Marshal(RawHeader{
		Channels:  channels,
		Shape:     shape,
		DType:     "float64",
		ByteOrder: "little",
	})
	if err != nil {
		return fmt.Errorf("error marshaling raw header: %w", err)
	}
	return os.WriteFile(path+".yaml", header, 0644)
}

// LoadRaw reads a field written by SaveRaw
func LoadRaw(path string) ([]float64, RawHeader, error) {
	var h RawHeader

	meta, err := os.ReadFile(path + ".yaml")
	if err != nil {
		return nil, h, err
	}
	if err := yaml.Unmarshal(meta, &h); err != nil {
		return nil, h, fmt.Errorf("error parsing raw header: %w", err)
	}
	if h.DType != "float64" || h.ByteOrder != "little" {
		return nil, h, fmt.Errorf("unsupported raw encoding %s/%s", h.DType, h.ByteOrder)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, h, err
	}
	n := h.Channels * models.NumElements(h.Shape)
	if len(buf) != 8*n {
		return nil, h, fmt.Errorf("raw file holds %d bytes, header expects %d", len(buf), 8*n)
	}

	data := make([]float64, n)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return data, h, nil
}
