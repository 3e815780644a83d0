package nn

import (
	"github.com/destin-ml/destin/internal/tensor"
)

// ShuffledConvolution runs the filter-acts kernel in the c01b layout:
// input and filters are transposed so that batch (resp. filters) is the
// innermost axis, convolved, and the result transposed back to NCHW.
//
// Constraints, checked before any work:
//   - channels <= 3 or a multiple of 4 (multiple of 4 with RequireGradients)
//   - square filters
//   - filter count a multiple of 16
//   - unit subsample
type ShuffledConvolution[B tensor.Backend] struct {
	engine     B
	filterActs tensor.FilterActsBackend
	opts       ShuffledOptions
}

// Kind returns BackendShuffled.
func (s *ShuffledConvolution[B]) Kind() BackendKind {
	return BackendShuffled
}

// Validate checks shapes and the c01b constraints.
func (s *ShuffledConvolution[B]) Validate(input, filters tensor.Shape, mode BorderMode, subsample [2]int) error {
	if err := validateShapes(input, filters, mode, subsample); err != nil {
		return err
	}
	return validateFilterActs(BackendShuffled, input, filters, subsample, s.opts)
}

// Convolve computes the convolution through the filter-acts kernel.
func (s *ShuffledConvolution[B]) Convolve(input, filters *tensor.Tensor[float32, B], mode BorderMode, subsample [2]int) (*tensor.Tensor[float32, B], error) {
	if err := s.Validate(input.Shape(), filters.Shape(), mode, subsample); err != nil {
		return nil, err
	}
	return shuffledConvolve(s.engine, s.filterActs, input, filters, mode), nil
}

func shuffledConvolve[B tensor.Backend](engine B, fa tensor.FilterActsBackend, input, filters *tensor.Tensor[float32, B], mode BorderMode) *tensor.Tensor[float32, B] {
	// (B, C, H, W) -> (C, H, W, B); (F, C, K, K) -> (C, K, K, F)
	in := engine.Transpose(input.Raw(), 1, 2, 3, 0)
	fs := engine.Transpose(filters.Raw(), 1, 2, 3, 0)

	pad := 0
	if mode == BorderFull {
		pad = filters.Shape()[3] - 1
	}

	// (F, H', W', B) -> (B, F, H', W')
	out := engine.Transpose(fa.FilterActs(in, fs, pad), 3, 0, 1, 2)
	return tensor.New[float32, B](out, engine)
}
