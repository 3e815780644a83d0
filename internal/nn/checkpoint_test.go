package nn

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/destin-ml/destin/internal/backend/cpu"
	"github.com/destin-ml/destin/internal/serialization"
	"github.com/destin-ml/destin/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvLayer_SaveLoadParameters(t *testing.T) {
	src, input := newLayer(t, validConfig())
	require.NoError(t, src.Bias().Update(func(b []float32) error {
		for i := range b {
			b[i] = float32(i) / 4
		}
		return nil
	}))

	var buf bytes.Buffer
	require.NoError(t, src.SaveParameters(&buf))

	// Same architecture, different initial weights.
	dst, err := NewConvLayer(validConfig(), input, rand.NewPCG(99, 100), cpu.New())
	require.NoError(t, err)
	require.NotEqual(t, src.Filters().Tensor().Data(), dst.Filters().Tensor().Data())

	require.NoError(t, dst.LoadParameters(&buf))
	assert.Equal(t, src.Filters().Tensor().Data(), dst.Filters().Tensor().Data())
	assert.Equal(t, src.Bias().Tensor().Data(), dst.Bias().Tensor().Data())

	want, err := src.Forward(input)
	require.NoError(t, err)
	got, err := dst.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, want.Data(), got.Data())
}

func TestConvLayer_LoadParameters_Errors(t *testing.T) {
	layer, _ := newLayer(t, validConfig())
	before := layer.Filters().Tensor().Data()

	other := validConfig()
	other.FilterShape = [4]int{8, 1, 5, 5}
	mismatched, _ := newLayer(t, other)

	var buf bytes.Buffer
	require.NoError(t, mismatched.SaveParameters(&buf))
	err := layer.LoadParameters(&buf)
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "conv0.filters", cfgErr.Field)
	assert.Equal(t, before, layer.Filters().Tensor().Data(), "nothing replaced")

	renamed := validConfig()
	renamed.LayerNumber = 4
	other4, _ := newLayer(t, renamed)
	buf.Reset()
	require.NoError(t, other4.SaveParameters(&buf))
	err = layer.LoadParameters(&buf)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorContains(t, err, "missing from checkpoint")

	buf.Reset()
	bias, err := tensor.NewRaw(tensor.Shape{16}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	require.NoError(t, serialization.Write(&buf, map[string]*tensor.RawTensor{"conv0.bias": bias},
		map[string]string{"format": "something-else"}))
	err = layer.LoadParameters(&buf)
	assert.ErrorContains(t, err, "unknown format")

	err = layer.LoadParameters(bytes.NewReader([]byte("not a checkpoint")))
	assert.Error(t, err)
}
