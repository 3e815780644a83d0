package nn

import (
	"github.com/destin-ml/destin/internal/tensor"
)

// GenericConvolution is direct cross-correlation through the engine's
// Conv2D. It runs on any device and has no constraints beyond matching
// shapes.
type GenericConvolution[B tensor.Backend] struct {
	engine B
}

// Kind returns BackendGeneric.
func (g *GenericConvolution[B]) Kind() BackendKind {
	return BackendGeneric
}

// Validate checks that the shapes can be convolved.
func (g *GenericConvolution[B]) Validate(input, filters tensor.Shape, mode BorderMode, subsample [2]int) error {
	return validateShapes(input, filters, mode, subsample)
}

// Convolve computes the convolution in NCHW layout.
func (g *GenericConvolution[B]) Convolve(input, filters *tensor.Tensor[float32, B], mode BorderMode, subsample [2]int) (*tensor.Tensor[float32, B], error) {
	if err := g.Validate(input.Shape(), filters.Shape(), mode, subsample); err != nil {
		return nil, err
	}
	return genericConvolve(g.engine, input, filters, mode, subsample), nil
}

func genericConvolve[B tensor.Backend](engine B, input, filters *tensor.Tensor[float32, B], mode BorderMode, subsample [2]int) *tensor.Tensor[float32, B] {
	fs := filters.Shape()
	out := engine.Conv2D(input.Raw(), filters.Raw(), subsample, mode.Padding(fs[2], fs[3]))
	return tensor.New[float32, B](out, engine)
}
