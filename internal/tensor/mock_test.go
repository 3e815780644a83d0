package tensor

import "math"

var _ Backend = (*mockBackend)(nil)

// mockBackend implements the element-wise parts of Backend naively so the
// Tensor wrapper can be tested without importing a real engine.
type mockBackend struct{}

func (m *mockBackend) Name() string   { return "mock" }
func (m *mockBackend) Device() Device { return CPU }

func (m *mockBackend) Add(a, b *RawTensor) *RawTensor {
	outShape, _, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}
	ea, err := BroadcastTo(a, outShape)
	if err != nil {
		panic(err)
	}
	eb, err := BroadcastTo(b, outShape)
	if err != nil {
		panic(err)
	}
	result, _ := NewRaw(outShape, a.DType(), CPU)
	dst, x, y := result.AsFloat32(), ea.AsFloat32(), eb.AsFloat32()
	for i := range dst {
		dst[i] = x[i] + y[i]
	}
	return result
}

func (m *mockBackend) Conv2D(_, _ *RawTensor, _, _ [2]int) *RawTensor {
	panic("mock: Conv2D not supported")
}

func (m *mockBackend) MaxPool2D(_ *RawTensor, _, _ [2]int) *RawTensor {
	panic("mock: MaxPool2D not supported")
}

func (m *mockBackend) Reshape(t *RawTensor, newShape Shape) *RawTensor {
	r, err := t.Clone().WithShape(newShape)
	if err != nil {
		panic(err)
	}
	return r
}

func (m *mockBackend) Transpose(t *RawTensor, axes ...int) *RawTensor {
	if len(axes) == 0 {
		for i := len(t.Shape()) - 1; i >= 0; i-- {
			axes = append(axes, i)
		}
	}
	outShape := t.Shape().Permute(axes...)
	result, _ := NewRaw(outShape, t.DType(), CPU)
	src, dst := t.AsFloat32(), result.AsFloat32()
	inStrides := t.Strides()
	outStrides := outShape.ComputeStrides()
	for i := range dst {
		rem, idx := i, 0
		for d, ax := range axes {
			idx += (rem / outStrides[d]) * inStrides[ax]
			rem %= outStrides[d]
		}
		dst[i] = src[idx]
	}
	return result
}

func (m *mockBackend) unary(x *RawTensor, f func(float64) float64) *RawTensor {
	result, _ := NewRaw(x.Shape(), x.DType(), CPU)
	dst := result.AsFloat32()
	for i, v := range x.AsFloat32() {
		dst[i] = float32(f(float64(v)))
	}
	return result
}

func (m *mockBackend) Tanh(x *RawTensor) *RawTensor { return m.unary(x, math.Tanh) }

func (m *mockBackend) Sigmoid(x *RawTensor) *RawTensor {
	return m.unary(x, func(v float64) float64 { return 1 / (1 + math.Exp(-v)) })
}

func (m *mockBackend) ReLU(x *RawTensor) *RawTensor {
	return m.unary(x, func(v float64) float64 { return math.Max(0, v) })
}

func (m *mockBackend) Softplus(x *RawTensor) *RawTensor {
	return m.unary(x, func(v float64) float64 { return math.Log1p(math.Exp(v)) })
}
