package cpu

import (
	"math"
	"testing"

	"github.com/destin-ml/destin/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCPUBackend_New tests backend creation.
func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "CPU" {
		t.Errorf("Expected name 'CPU', got '%s'", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Expected device CPU, got %v", backend.Device())
	}
}

// TestCPUBackend_Add tests element-wise addition.
func TestCPUBackend_Add(t *testing.T) {
	backend := New()

	t.Run("SameShape", func(t *testing.T) {
		a := newRaw(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := newRaw(t, tensor.Shape{2, 3}, []float32{10, 11, 12, 13, 14, 15})

		result := backend.Add(a, b)
		assert.Equal(t, []float32{11, 13, 15, 17, 19, 21}, result.AsFloat32())
		assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, a.AsFloat32(), "operands must not be modified")
	})

	t.Run("ChannelBias", func(t *testing.T) {
		x := newRaw(t, tensor.Shape{2, 2, 1, 2}, []float32{1, 2, 3, 4, 5, 6, 7, 8})
		bias := newRaw(t, tensor.Shape{1, 2, 1, 1}, []float32{100, 200})

		result := backend.Add(x, bias)
		require.True(t, result.Shape().Equal(tensor.Shape{2, 2, 1, 2}))
		assert.Equal(t, []float32{101, 102, 203, 204, 105, 106, 207, 208}, result.AsFloat32())
	})

	t.Run("Incompatible", func(t *testing.T) {
		assert.Panics(t, func() {
			backend.Add(newRaw(t, tensor.Shape{2, 3}, nil), newRaw(t, tensor.Shape{2, 4}, nil))
		})
	})
}

func TestCPUBackend_Reshape(t *testing.T) {
	backend := New()
	a := newRaw(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	r := backend.Reshape(a, tensor.Shape{3, 2})
	require.True(t, r.Shape().Equal(tensor.Shape{3, 2}))
	r.AsFloat32()[0] = 42
	assert.Equal(t, float32(1), a.AsFloat32()[0])

	assert.Panics(t, func() { backend.Reshape(a, tensor.Shape{4, 2}) })
}

func TestCPUBackend_Transpose(t *testing.T) {
	backend := New()

	t.Run("Default2D", func(t *testing.T) {
		a := newRaw(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		result := backend.Transpose(a)
		require.True(t, result.Shape().Equal(tensor.Shape{3, 2}))
		assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, result.AsFloat32())
	})

	t.Run("RoundTrip4D", func(t *testing.T) {
		a := arange(t, tensor.Shape{2, 3, 4, 5})
		c01b := backend.Transpose(a, 1, 2, 3, 0)
		require.True(t, c01b.Shape().Equal(tensor.Shape{3, 4, 5, 2}))
		// a[1,2,3,4] lands at c01b[2,3,4,1].
		assert.Equal(t, a.AsFloat32()[((1*3+2)*4+3)*5+4], c01b.AsFloat32()[((2*4+3)*5+4)*2+1])

		back := backend.Transpose(c01b, 3, 0, 1, 2)
		assert.Equal(t, a.AsFloat32(), back.AsFloat32())
	})

	t.Run("InvalidAxes", func(t *testing.T) {
		a := newRaw(t, tensor.Shape{2, 3}, nil)
		assert.Panics(t, func() { backend.Transpose(a, 0, 0) })
		assert.Panics(t, func() { backend.Transpose(a, 0) })
	})
}

func TestCPUBackend_Activations(t *testing.T) {
	backend := New()
	in := []float32{-2, -0.5, 0, 0.5, 2}
	x := newRaw(t, tensor.Shape{5}, in)

	tests := []struct {
		name string
		op   func(*tensor.RawTensor) *tensor.RawTensor
		ref  func(float64) float64
	}{
		{"tanh", backend.Tanh, math.Tanh},
		{"sigmoid", backend.Sigmoid, func(v float64) float64 { return 1 / (1 + math.Exp(-v)) }},
		{"relu", backend.ReLU, func(v float64) float64 { return math.Max(0, v) }},
		{"softplus", backend.Softplus, func(v float64) float64 { return math.Log(1 + math.Exp(v)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op(x).AsFloat32()
			for i, v := range in {
				assert.InDelta(t, tt.ref(float64(v)), float64(got[i]), 1e-6, "%s(%v)", tt.name, v)
			}
		})
	}
}

func TestCPUBackend_ActivationsExtreme(t *testing.T) {
	backend := New()
	x, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	copy(x.AsFloat64(), []float64{-1000, 1000})

	s := backend.Sigmoid(x).AsFloat64()
	assert.Equal(t, 0.0, s[0])
	assert.Equal(t, 1.0, s[1])

	sp := backend.Softplus(x).AsFloat64()
	assert.Equal(t, 0.0, sp[0])
	assert.Equal(t, 1000.0, sp[1])
}
