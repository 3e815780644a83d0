package nn

import (
	"math"
	"math/rand/v2"

	"github.com/destin-ml/destin/internal/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// FilterBound returns the normalized uniform initialization bound for a
// filter bank of shape (F, C, kH, kW) feeding a pool of size (pH, pW):
//
//	fan_in  = C * kH * kW
//	fan_out = F * kH * kW / (pH * pW)
//	bound   = sqrt(6 / (fan_in + fan_out))
//
// The pool area divides fan_out whether or not the layer pools.
func FilterBound(filterShape [4]int, poolSize [2]int) (float64, error) {
	for _, d := range filterShape {
		if d <= 0 {
			return 0, configErrorf("filter_shape", "dimension must be positive, got %v", filterShape)
		}
	}
	if poolSize[0] <= 0 || poolSize[1] <= 0 {
		return 0, configErrorf("pool_size", "pool window must have positive area, got %v", poolSize)
	}
	poolArea := poolSize[0] * poolSize[1]

	fanIn := float64(filterShape[1] * filterShape[2] * filterShape[3])
	fanOut := float64(filterShape[0]*filterShape[2]*filterShape[3]) / float64(poolArea)
	if fanIn+fanOut == 0 {
		return 0, configErrorf("filter_shape", "degenerate fan-in + fan-out")
	}

	return math.Sqrt(6 / (fanIn + fanOut)), nil
}

// NormalizedUniform draws a filter bank with entries i.i.d. in
// [-bound, bound], bound from FilterBound. The result is deterministic for
// a given source state.
func NormalizedUniform[B tensor.Backend](filterShape [4]int, poolSize [2]int, src rand.Source, backend B) (*tensor.Tensor[float32, B], float64, error) {
	bound, err := FilterBound(filterShape, poolSize)
	if err != nil {
		return nil, 0, err
	}

	t := tensor.Zeros[float32](tensor.Shape(filterShape[:]), backend)
	Uniform(t.Data(), -bound, bound, src)

	return t, bound, nil
}

// Uniform fills data with samples from U(lo, hi).
func Uniform[T tensor.DType](data []T, lo, hi float64, src rand.Source) {
	dist := distuv.Uniform{Min: lo, Max: hi, Src: src}
	for i := range data {
		v := T(dist.Rand())
		// Rounding to float32 may step past the bound.
		data[i] = min(max(v, T(lo)), T(hi))
	}
}

// Zeros creates a tensor filled with zeros.
//
// This is commonly used for bias initialization.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}
