package tensor

import "fmt"

// BroadcastTo materializes x expanded to shape following NumPy broadcasting
// rules. Returns x itself when no expansion is needed.
func BroadcastTo(x *RawTensor, shape Shape) (*RawTensor, error) {
	out, _, err := BroadcastShapes(x.Shape(), shape)
	if err != nil {
		return nil, err
	}
	if !out.Equal(shape) {
		return nil, fmt.Errorf("cannot broadcast %v to %v", x.Shape(), shape)
	}
	if x.Shape().Equal(shape) {
		return x, nil
	}

	result, err := NewRaw(shape, x.DType(), x.Device())
	if err != nil {
		return nil, err
	}

	src := broadcastIndex(x.Shape(), shape)
	switch x.DType() {
	case Float32:
		dst, in := result.AsFloat32(), x.AsFloat32()
		for i := range dst {
			dst[i] = in[src(i)]
		}
	case Float64:
		dst, in := result.AsFloat64(), x.AsFloat64()
		for i := range dst {
			dst[i] = in[src(i)]
		}
	default:
		return nil, fmt.Errorf("broadcast: unsupported dtype %s", x.DType())
	}
	return result, nil
}

// BroadcastIndex returns a function mapping a flat index in outShape to the
// flat index of the element of a tensor of shape inShape that broadcasts to it.
func BroadcastIndex(inShape, outShape Shape) func(int) int {
	return broadcastIndex(inShape, outShape)
}

func broadcastIndex(inShape, outShape Shape) func(int) int {
	ndim := len(outShape)
	offset := ndim - len(inShape)
	inStrides := inShape.ComputeStrides()
	outStrides := outShape.ComputeStrides()

	return func(flat int) int {
		idx := 0
		for d := 0; d < ndim; d++ {
			coord := flat / outStrides[d]
			flat %= outStrides[d]
			id := d - offset
			if id < 0 || inShape[id] == 1 {
				continue
			}
			idx += coord * inStrides[id]
		}
		return idx
	}
}
