package scalespace

import (
	"stss/pkg/models"
	"stss/pkg/tensor"
)

// Variant bundles the dimension-specific operations the optimizer needs
type Variant interface {
	tensor.Engine

	// CorrectScale applies the scale correction for this dimensionality
	CorrectScale(scale *models.Image, eig *models.EigenField) (*models.Image, error)
}

type variant struct {
	tensor.Engine
}

func (v variant) CorrectScale(scale *models.Image, eig *models.EigenField) (*models.Image, error) {
	return CorrectScale(scale, eig)
}

// VariantFor returns the 2D or 3D variant
func VariantFor(dims int) (Variant, error) {
	eng, err := tensor.ForDims(dims)
	if err != nil {
		return nil, err
	}
	return variant{Engine: eng}, nil
}
