package nn

import (
	"errors"
	"testing"

	"github.com/destin-ml/destin/internal/backend/cpu"
	"github.com/destin-ml/destin/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvOutputSize(t *testing.T) {
	assert.Equal(t, [2]int{24, 24}, ConvOutputSize([2]int{28, 28}, [2]int{5, 5}, BorderValid, [2]int{1, 1}))
	assert.Equal(t, [2]int{32, 32}, ConvOutputSize([2]int{28, 28}, [2]int{5, 5}, BorderFull, [2]int{1, 1}))
	assert.Equal(t, [2]int{12, 8}, ConvOutputSize([2]int{28, 28}, [2]int{5, 5}, BorderValid, [2]int{2, 3}))
	assert.Equal(t, [2]int{8, 6}, ConvOutputSize([2]int{6, 4}, [2]int{3, 3}, BorderFull, [2]int{1, 1}))
}

func newBackends(t *testing.T, engine tensor.Backend, opts ShuffledOptions) []ConvolutionBackend[tensor.Backend] {
	t.Helper()
	var out []ConvolutionBackend[tensor.Backend]
	for _, kind := range []BackendKind{BackendGeneric, BackendShuffled, BackendHardware} {
		cb, err := NewConvolutionBackend(kind, engine.Device(), engine, opts)
		require.NoError(t, err, "%s", kind)
		require.Equal(t, kind, cb.Kind())
		out = append(out, cb)
	}
	return out
}

// TestBackendsAgree checks that all strategies compute the same numbers.
func TestBackendsAgree(t *testing.T) {
	engines := map[string]tensor.Backend{
		"cpu":         cpu.New(),
		"accelerator": acceleratorEngine{cpu.New()},
	}

	shapes := []struct {
		input, filters tensor.Shape
	}{
		{tensor.Shape{2, 1, 12, 12}, tensor.Shape{16, 1, 5, 5}},
		{tensor.Shape{3, 3, 9, 7}, tensor.Shape{16, 3, 3, 3}},
		{tensor.Shape{2, 8, 6, 6}, tensor.Shape{32, 8, 2, 2}},
	}

	for name, engine := range engines {
		backends := newBackends(t, engine, ShuffledOptions{})
		for _, s := range shapes {
			x := tensor.New[float32](randomInput(t, s.input, 1, -1, 1).Raw(), engine)
			w := tensor.New[float32](randomInput(t, s.filters, 2, -0.5, 0.5).Raw(), engine)

			for _, mode := range []BorderMode{BorderValid, BorderFull} {
				want, err := backends[0].Convolve(x, w, mode, [2]int{1, 1})
				require.NoError(t, err)

				hw := ConvOutputSize([2]int{s.input[2], s.input[3]}, [2]int{s.filters[2], s.filters[3]}, mode, [2]int{1, 1})
				requireShape(t, tensor.Shape{s.input[0], s.filters[0], hw[0], hw[1]}, want.Shape())

				for _, cb := range backends[1:] {
					got, err := cb.Convolve(x, w, mode, [2]int{1, 1})
					require.NoError(t, err, "%s/%s/%s", name, cb.Kind(), mode)
					requireShape(t, want.Shape(), got.Shape())
					assertAllClose(t, want.Data(), got.Data(), 1e-5, "%s/%s/%s %v", name, cb.Kind(), mode, s.filters)
				}
			}
		}
	}
}

// TestGenericConvolution_CrossCorrelation pins the orientation: the
// filter is applied as written, not flipped.
func TestGenericConvolution_CrossCorrelation(t *testing.T) {
	engine := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, tensor.Shape{1, 1, 3, 3}, engine)
	require.NoError(t, err)
	w, err := tensor.FromSlice([]float32{1, 0, 0, 0}, tensor.Shape{1, 1, 2, 2}, engine)
	require.NoError(t, err)

	g := &GenericConvolution[*cpu.CPUBackend]{engine: engine}
	out, err := g.Convolve(x, w, BorderValid, [2]int{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 4, 5}, out.Data())

	full, err := g.Convolve(x, w, BorderFull, [2]int{1, 1})
	require.NoError(t, err)
	requireShape(t, tensor.Shape{1, 1, 4, 4}, full.Shape())
	// Full mode pads by 1; the top-left tap reads one row/col up-left.
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 1, 2, 3, 0, 4, 5, 6, 0, 7, 8, 9}, full.Data())

	strided, err := g.Convolve(x, w, BorderValid, [2]int{2, 2})
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, strided.Data())
}

func TestShuffledPreconditions(t *testing.T) {
	tests := []struct {
		name       string
		input      tensor.Shape
		filters    tensor.Shape
		subsample  [2]int
		opts       ShuffledOptions
		constraint string
	}{
		{"non-square", tensor.Shape{2, 1, 28, 28}, tensor.Shape{16, 1, 3, 5}, [2]int{1, 1}, ShuffledOptions{}, "square filters"},
		{"filter count", tensor.Shape{2, 1, 28, 28}, tensor.Shape{8, 1, 5, 5}, [2]int{1, 1}, ShuffledOptions{}, "filter count a multiple of 16"},
		{"channels", tensor.Shape{2, 5, 28, 28}, tensor.Shape{16, 5, 5, 5}, [2]int{1, 1}, ShuffledOptions{}, "at most 3 channels or a multiple of 4"},
		{"channels with gradients", tensor.Shape{2, 3, 28, 28}, tensor.Shape{16, 3, 5, 5}, [2]int{1, 1}, ShuffledOptions{RequireGradients: true}, "channels divisible by 4 when gradients are required"},
		{"subsample", tensor.Shape{2, 1, 28, 28}, tensor.Shape{16, 1, 5, 5}, [2]int{2, 2}, ShuffledOptions{}, "unit subsample"},
	}

	for _, kind := range []BackendKind{BackendShuffled, BackendHardware} {
		for _, tt := range tests {
			t.Run(string(kind)+"/"+tt.name, func(t *testing.T) {
				engine := newCountingEngine()
				cb, err := NewConvolutionBackend(kind, engine.Device(), engine, tt.opts)
				require.NoError(t, err)

				x := tensor.Zeros[float32](tt.input, engine)
				w := tensor.Zeros[float32](tt.filters, engine)
				_, err = cb.Convolve(x, w, BorderValid, tt.subsample)

				require.ErrorIs(t, err, ErrPrecondition)
				assert.ErrorIs(t, err, ErrConfiguration, "backend constraints are configuration errors too")
				var pv *PreconditionViolation
				require.True(t, errors.As(err, &pv))
				assert.Equal(t, kind, pv.Backend)
				assert.Equal(t, tt.constraint, pv.Constraint)

				conv2d, filterActs := engine.calls()
				assert.Zero(t, conv2d+filterActs, "no kernel may run")
			})
		}
	}

	// The generic backend accepts all of them.
	engine := cpu.New()
	g, err := NewConvolutionBackend(BackendGeneric, engine.Device(), engine, ShuffledOptions{})
	require.NoError(t, err)
	for _, tt := range tests {
		assert.NoError(t, g.Validate(tt.input, tt.filters, BorderValid, tt.subsample), tt.name)
	}

	// Accepted channel counts.
	shuffled, err := NewConvolutionBackend(BackendShuffled, engine.Device(), engine, ShuffledOptions{})
	require.NoError(t, err)
	for _, c := range []int{1, 2, 3, 4, 8, 16} {
		assert.NoError(t, shuffled.Validate(tensor.Shape{1, c, 8, 8}, tensor.Shape{16, c, 3, 3}, BorderFull, [2]int{1, 1}), "channels=%d", c)
	}
}

func TestConvolution_ShapeErrors(t *testing.T) {
	engine := cpu.New()
	for _, cb := range newBackends(t, engine, ShuffledOptions{}) {
		err := cb.Validate(tensor.Shape{2, 3, 8, 8}, tensor.Shape{16, 1, 3, 3}, BorderValid, [2]int{1, 1})
		assert.ErrorIs(t, err, ErrConfiguration, "%s channel mismatch", cb.Kind())

		err = cb.Validate(tensor.Shape{2, 1, 4, 4}, tensor.Shape{16, 1, 5, 5}, BorderValid, [2]int{1, 1})
		assert.ErrorIs(t, err, ErrConfiguration, "%s filter larger than input", cb.Kind())

		assert.NoError(t, cb.Validate(tensor.Shape{2, 1, 4, 4}, tensor.Shape{16, 1, 5, 5}, BorderFull, [2]int{1, 1}),
			"%s full mode accepts filters larger than input", cb.Kind())

		err = cb.Validate(tensor.Shape{2, 1, 8}, tensor.Shape{16, 1, 5, 5}, BorderValid, [2]int{1, 1})
		assert.ErrorIs(t, err, ErrConfiguration, "%s rank", cb.Kind())

		err = cb.Validate(tensor.Shape{2, 1, 8, 8}, tensor.Shape{16, 1, 5, 5}, "same", [2]int{1, 1})
		assert.ErrorIs(t, err, ErrConfiguration, "%s border mode", cb.Kind())
	}

	_, err := NewConvolutionBackend[tensor.Backend]("cudnn", tensor.CPU, engine, ShuffledOptions{})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestHardwareConvolution_DeviceSelection(t *testing.T) {
	t.Run("CPU", func(t *testing.T) {
		engine := newCountingEngine()
		cb, err := NewConvolutionBackend(BackendHardware, tensor.CPU, engine, ShuffledOptions{})
		require.NoError(t, err)
		hw := cb.(*HardwareConvolution[*countingEngine])
		assert.False(t, hw.Accelerated())
		assert.Equal(t, tensor.CPU, hw.Device())

		x := tensor.Zeros[float32](tensor.Shape{1, 1, 8, 8}, engine)
		w := tensor.Zeros[float32](tensor.Shape{16, 1, 3, 3}, engine)
		_, err = cb.Convolve(x, w, BorderValid, [2]int{1, 1})
		require.NoError(t, err)

		conv2d, filterActs := engine.calls()
		assert.Equal(t, 1, conv2d)
		assert.Zero(t, filterActs)
	})

	t.Run("Accelerator", func(t *testing.T) {
		engine := acceleratorEngine{cpu.New()}
		cb, err := NewConvolutionBackend(BackendHardware, engine.Device(), engine, ShuffledOptions{})
		require.NoError(t, err)
		assert.True(t, cb.(*HardwareConvolution[acceleratorEngine]).Accelerated())
	})

	t.Run("AcceleratorWithoutKernel", func(t *testing.T) {
		engine := plainAccelerator{cpu.New()}
		_, err := NewConvolutionBackend(BackendHardware, engine.Device(), engine, ShuffledOptions{})
		assert.ErrorIs(t, err, ErrConfiguration)

		_, err = NewConvolutionBackend(BackendShuffled, engine.Device(), engine, ShuffledOptions{})
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}
