package filter

import (
	"fmt"
	"strings"
)

// Mode selects how samples beyond the edge of an axis are extended
type Mode int

const (
	// Reflect extends by reflecting about the edge of the last sample (d c b a | a b c d | d c b a)
	Reflect Mode = iota
	// Nearest repeats the edge sample (a a a a | a b c d | d d d d)
	Nearest
	// Mirror reflects about the center of the last sample (d c b | a b c d | c b a)
	Mirror
	// Constant fills with a constant value (k k k k | a b c d | k k k k)
	Constant
	// Wrap wraps around to the opposite edge (a b c d | a b c d | a b c d)
	Wrap
)

var modeNames = map[Mode]string{
	Reflect:  "reflect",
	Nearest:  "nearest",
	Mirror:   "mirror",
	Constant: "constant",
	Wrap:     "wrap",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a mode name such as "nearest" into a Mode
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return Nearest, fmt.Errorf("invalid boundary mode: %q (must be reflect, nearest, mirror, constant or wrap)", s)
}

// Boundary describes the edge handling and kernel placement of a 1D convolution
type Boundary struct {
	Mode Mode

	// Cval is the fill value used by Constant mode
	Cval float64

	// Origin shifts the kernel center; positive values shift the kernel to the left
	Origin int
}

// extend maps an out-of-range index j on an axis of length n to a sample of
// line. line is accessed with the given base offset and stride.
func (b Boundary) extend(src []float64, base, stride, n, j int) float64 {
	if j >= 0 && j < n {
		return src[base+j*stride]
	}

	switch b.Mode {
	case Constant:
		return b.Cval
	case Nearest:
		if j < 0 {
			j = 0
		} else {
			j = n - 1
		}
	case Reflect:
		period := 2 * n
		j = mod(j, period)
		if j >= n {
			j = period - 1 - j
		}
	case Mirror:
		if n == 1 {
			j = 0
			break
		}
		period := 2*n - 2
		j = mod(j, period)
		if j >= n {
			j = period - j
		}
	case Wrap:
		j = mod(j, n)
	}

	return src[base+j*stride]
}

func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
