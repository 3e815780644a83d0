package cpu

import (
	"math/rand/v2"
	"testing"

	"github.com/destin-ml/destin/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFilterActs_MatchesConv2D runs the c01b kernel on transposed operands
// and compares against the NCHW path.
func TestFilterActs_MatchesConv2D(t *testing.T) {
	backend := New()
	rng := rand.New(rand.NewPCG(3, 5))

	for _, padding := range []int{0, 2} {
		input := randomRaw(t, rng, tensor.Shape{3, 4, 8, 8})    // N, C, H, W
		filters := randomRaw(t, rng, tensor.Shape{16, 4, 3, 3}) // F, C, K, K

		want := backend.Conv2D(input, filters, [2]int{1, 1}, [2]int{padding, padding})

		c01b := backend.Transpose(input, 1, 2, 3, 0)
		fc01b := backend.Transpose(filters, 1, 2, 3, 0)
		out := backend.FilterActs(c01b, fc01b, padding)

		require.True(t, out.Shape().Equal(tensor.Shape{16, 8 - 2 + 2*padding, 8 - 2 + 2*padding, 3}), "got %v", out.Shape())

		got := backend.Transpose(out, 3, 0, 1, 2)
		assert.InDeltaSlice(t, want.AsFloat32(), got.AsFloat32(), 1e-4, "padding=%d", padding)
	}
}

func TestFilterActs_BatchInnermost(t *testing.T) {
	backend := New()

	// One channel, 2x2 image, batch of 2 stored interleaved: [C, H, W, N].
	input := newRaw(t, tensor.Shape{1, 2, 2, 2}, []float32{1, 10, 2, 20, 3, 30, 4, 40})
	filters := newRaw(t, tensor.Shape{1, 2, 2, 1}, []float32{1, 1, 1, 1})

	out := backend.FilterActs(input, filters, 0)
	require.True(t, out.Shape().Equal(tensor.Shape{1, 1, 1, 2}))
	assert.Equal(t, []float32{10, 100}, out.AsFloat32())
}

func TestFilterActs_Invalid(t *testing.T) {
	backend := New()
	input := newRaw(t, tensor.Shape{2, 4, 4, 1}, nil)

	assert.Panics(t, func() { backend.FilterActs(input, newRaw(t, tensor.Shape{2, 3, 2, 1}, nil), 0) }, "non-square")
	assert.Panics(t, func() { backend.FilterActs(input, newRaw(t, tensor.Shape{3, 2, 2, 1}, nil), 0) }, "channels")
	assert.Panics(t, func() { backend.FilterActs(input, newRaw(t, tensor.Shape{2, 2, 2, 1}, nil), -1) }, "padding")
}
