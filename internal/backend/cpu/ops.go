package cpu

import (
	"github.com/destin-ml/destin/internal/tensor"
)

type float interface {
	~float32 | ~float64
}

// addBroadcast computes dst = a + b where a and b broadcast to outShape.
func addBroadcast[T float](dst, a, b []T, aShape, bShape, outShape tensor.Shape) {
	if aShape.Equal(bShape) {
		for i := range dst {
			dst[i] = a[i] + b[i]
		}
		return
	}

	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	for i := range dst {
		dst[i] = a[flatIndex(i, outStrides, aStrides)] + b[flatIndex(i, outStrides, bStrides)]
	}
}

// broadcastStrides computes strides for reading a tensor of inShape while
// iterating outShape. Broadcast dimensions get stride 0.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	outDim := len(outShape)
	offset := outDim - len(inShape)
	origStrides := inShape.ComputeStrides()
	strides := make([]int, outDim)

	for i := 0; i < outDim; i++ {
		inIdx := i - offset
		if inIdx < 0 || inShape[inIdx] == 1 {
			continue
		}
		strides[i] = origStrides[inIdx]
	}

	return strides
}

// flatIndex maps an output index to a source index using broadcast strides.
func flatIndex(outIdx int, outStrides, inStrides []int) int {
	idx := 0
	for i := range outStrides {
		coord := outIdx / outStrides[i]
		outIdx %= outStrides[i]
		idx += coord * inStrides[i]
	}
	return idx
}

// transpose writes src permuted by axes into dst.
// dst[i] is read from the source coordinate that axes maps it to.
func transpose[T float](dst, src []T, shape, newShape tensor.Shape, axes []int) {
	srcStrides := shape.ComputeStrides()
	dstStrides := newShape.ComputeStrides()

	// Stride in src for each destination dimension.
	gather := make([]int, len(axes))
	for d, ax := range axes {
		gather[d] = srcStrides[ax]
	}

	for i := range dst {
		dst[i] = src[flatIndex(i, dstStrides, gather)]
	}
}
