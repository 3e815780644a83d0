package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destin-ml/destin/backend/cpu"
	"github.com/destin-ml/destin/backend/webgpu"
	"github.com/destin-ml/destin/nn"
	"github.com/destin-ml/destin/tensor"
)

const layerYAML = `
layer_number: 1
feature_shape: [2, 1, 28, 28]
filter_shape: [16, 1, 5, 5]
pool: true
activation: tanh
`

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"version"}, &stdout, &stderr))
	assert.Equal(t, "Destin ML Framework "+version+"\n", stdout.String())
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "forward")

	err := run([]string{"train"}, &stdout, &stderr)
	assert.ErrorContains(t, err, `unknown command "train"`)
}

func TestRun_Forward(t *testing.T) {
	path := writeConfig(t, layerYAML)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"forward", "-config", path, "-seed", "7", "-v"}, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "ConvLayer(layer=1, filters=16")
	assert.Contains(t, out, "output shape: [2 16 12 12]")
	assert.Contains(t, out, "filter bound: 0.219089")
	assert.Contains(t, stderr.String(), "conv layer ready")

	var again bytes.Buffer
	require.NoError(t, run([]string{"forward", "-config", path, "-seed", "7"}, &again, &stderr))
	assert.Equal(t, out, again.String(), "same seed, same output")
}

func TestRun_ForwardErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run([]string{"forward"}, &stdout, &stderr)
	assert.ErrorContains(t, err, "-config is required")

	err = run([]string{"forward", "-config", filepath.Join(t.TempDir(), "missing.yaml")}, &stdout, &stderr)
	assert.Error(t, err)

	bad := writeConfig(t, "feature_shape: [2, 1, 28, 28]\nfilter_shape: [16, 3, 5, 5]\n")
	err = run([]string{"forward", "-config", bad}, &stdout, &stderr)
	assert.ErrorContains(t, err, "filter_shape")

	good := writeConfig(t, layerYAML)
	err = run([]string{"forward", "-config", good, "-device", "tpu"}, &stdout, &stderr)
	assert.Error(t, err)

	err = run([]string{"forward", "-config", good, "-low", "1", "-high", "0"}, &stdout, &stderr)
	assert.ErrorContains(t, err, "must be below")
}

func TestRun_ForwardSave(t *testing.T) {
	cfgPath := writeConfig(t, layerYAML)
	out := filepath.Join(t.TempDir(), "conv1.safetensors")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"forward", "-config", cfgPath, "-save", out}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "parameters saved to "+out)

	f, err := os.Open(cfgPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := nn.LoadConfig(f)
	require.NoError(t, err)

	backend := cpu.New()
	input := tensor.Zeros[float32](tensor.Shape{2, 1, 28, 28}, backend)
	layer, err := nn.NewConvLayer(cfg, input, nil, backend)
	require.NoError(t, err)

	ckpt, err := os.Open(out)
	require.NoError(t, err)
	defer ckpt.Close()
	require.NoError(t, layer.LoadParameters(ckpt))
}

func TestRun_ForwardWebGPUUnavailable(t *testing.T) {
	if webgpu.IsAvailable() {
		t.Skip("WebGPU adapter present")
	}
	var stdout, stderr bytes.Buffer
	err := run([]string{"forward", "-config", writeConfig(t, layerYAML), "-device", "webgpu"}, &stdout, &stderr)
	assert.ErrorIs(t, err, webgpu.ErrUnavailable)
}
