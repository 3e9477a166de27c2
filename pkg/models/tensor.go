package models

// ChannelsForDims returns the number of independent entries of a symmetric
// dims×dims tensor: 3 for 2D and 6 for 3D.
func ChannelsForDims(dims int) int {
	return dims * (dims + 1) / 2
}

// TensorField stores one symmetric structure tensor per pixel.
//
// The channel axis leads: channel c of pixel p lives at Data[c*n+p] where n is
// the number of pixels. For 2D fields the channels are (s_xx, s_yy, s_xy) and
// for 3D fields (s_xx, s_yy, s_zz, s_xy, s_xz, s_yz).
type TensorField struct {
	Data     []float64
	Channels int
	Shape    []int
}

// NewTensorField allocates a zero tensor field for an image of the given shape
func NewTensorField(shape ...int) *TensorField {
	s := append([]int(nil), shape...)
	ch := ChannelsForDims(len(s))
	return &TensorField{
		Data:     make([]float64, ch*NumElements(s)),
		Channels: ch,
		Shape:    s,
	}
}

// Dims returns the spatial dimensionality
func (t *TensorField) Dims() int { return len(t.Shape) }

// Len returns the number of pixels
func (t *TensorField) Len() int { return NumElements(t.Shape) }

// Channel returns the samples of channel c. The slice aliases Data.
func (t *TensorField) Channel(c int) []float64 {
	n := t.Len()
	return t.Data[c*n : (c+1)*n]
}

// Clone returns a deep copy of the field
func (t *TensorField) Clone() *TensorField {
	return &TensorField{
		Data:     append([]float64(nil), t.Data...),
		Channels: t.Channels,
		Shape:    append([]int(nil), t.Shape...),
	}
}

// EigenField holds the per-pixel eigen decomposition of a TensorField.
//
// Eigenvalues are ascending per pixel: Values[k*n+p] is λk of pixel p.
// Vectors[(k*Dims+j)*n+p] is component j (ordered x, y[, z]) of the unit
// eigenvector belonging to λk.
type EigenField struct {
	Values  []float64
	Vectors []float64
	Dims    int
	Shape   []int
}

// NewEigenField allocates an eigen field for an image of the given shape
func NewEigenField(shape ...int) *EigenField {
	s := append([]int(nil), shape...)
	d := len(s)
	n := NumElements(s)
	return &EigenField{
		Values:  make([]float64, d*n),
		Vectors: make([]float64, d*d*n),
		Dims:    d,
		Shape:   s,
	}
}

// Len returns the number of pixels
func (e *EigenField) Len() int { return NumElements(e.Shape) }

// Value returns the k-th eigenvalue of every pixel. The slice aliases Values.
func (e *EigenField) Value(k int) []float64 {
	n := e.Len()
	return e.Values[k*n : (k+1)*n]
}

// Vector returns component j of the k-th eigenvector of every pixel
func (e *EigenField) Vector(k, j int) []float64 {
	n := e.Len()
	i := k*e.Dims + j
	return e.Vectors[i*n : (i+1)*n]
}
