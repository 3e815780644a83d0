package nn

import (
	"slices"

	"github.com/destin-ml/destin/internal/tensor"
)

// activationFunc applies a nonlinearity through the tensor's backend.
type activationFunc func(x *tensor.RawTensor, b tensor.Backend) *tensor.RawTensor

// activations maps activation mode names to their implementation.
var activations = map[string]activationFunc{
	"identity": func(x *tensor.RawTensor, _ tensor.Backend) *tensor.RawTensor { return x },
	"linear":   func(x *tensor.RawTensor, _ tensor.Backend) *tensor.RawTensor { return x },
	"tanh":     func(x *tensor.RawTensor, b tensor.Backend) *tensor.RawTensor { return b.Tanh(x) },
	"sigmoid":  func(x *tensor.RawTensor, b tensor.Backend) *tensor.RawTensor { return b.Sigmoid(x) },
	"relu":     func(x *tensor.RawTensor, b tensor.Backend) *tensor.RawTensor { return b.ReLU(x) },
	"softplus": func(x *tensor.RawTensor, b tensor.Backend) *tensor.RawTensor { return b.Softplus(x) },
}

// Activations returns the recognized activation mode names, sorted.
func Activations() []string {
	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Activate applies the named activation to x.
//
// Supported modes: identity (alias linear), tanh, sigmoid, relu, softplus.
func Activate[B tensor.Backend](mode string, x *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	f, ok := activations[mode]
	if !ok {
		return nil, configErrorf("activation", "unknown mode %q", mode)
	}
	return tensor.New[float32, B](f(x.Raw(), x.Backend()), x.Backend()), nil
}
