// Copyright 2025 Destin ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the convolutional layer and its building blocks.
//
// A ConvLayer composes a filter bank, optional max pooling, a per-channel
// bias and an activation. The convolution itself is a pluggable strategy:
//   - generic: direct cross-correlation on any engine
//   - shuffled: c01b filter-acts kernel with layout constraints
//   - hardware: the filter-acts kernel on an accelerator, generic on CPU
//
// Example:
//
//	cfg := nn.LayerConfig{
//	    FeatureShape: [4]int{2, 1, 28, 28},
//	    FilterShape:  [4]int{16, 1, 5, 5},
//	    Pool:         true,
//	}
//	backend := cpu.New()
//	images := tensor.Zeros[float32](tensor.Shape{2, 1, 28, 28}, backend)
//	layer, err := nn.NewConvLayer(cfg, images, rand.NewPCG(1, 2), backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := layer.Forward(images) // [2, 16, 12, 12]
package nn

import (
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/destin-ml/destin/internal/nn"
	"github.com/destin-ml/destin/tensor"
)

// Errors.
var (
	ErrConfiguration = nn.ErrConfiguration
	ErrPrecondition  = nn.ErrPrecondition
)

// ConfigurationError reports an invalid layer configuration.
type ConfigurationError = nn.ConfigurationError

// PreconditionViolation reports a violated convolution backend constraint.
type PreconditionViolation = nn.PreconditionViolation

// Configuration.

// LayerConfig describes one convolutional layer.
type LayerConfig = nn.LayerConfig

// BorderMode selects valid or full convolution.
type BorderMode = nn.BorderMode

// Border modes.
const (
	BorderValid = nn.BorderValid
	BorderFull  = nn.BorderFull
)

// BackendKind names a convolution strategy.
type BackendKind = nn.BackendKind

// Convolution strategies.
const (
	BackendGeneric  = nn.BackendGeneric
	BackendShuffled = nn.BackendShuffled
	BackendHardware = nn.BackendHardware
)

// DefaultConfig returns the layer defaults with zero shapes.
func DefaultConfig() LayerConfig {
	return nn.DefaultConfig()
}

// LoadConfig decodes a YAML layer description and applies defaults.
func LoadConfig(r io.Reader) (LayerConfig, error) {
	return nn.LoadConfig(r)
}

// Layers.

// ConvLayer is a convolutional layer.
type ConvLayer[B tensor.Backend] = nn.ConvLayer[B]

// Option configures a ConvLayer.
type Option = nn.Option

// WithLogger sets the logger used by a ConvLayer.
func WithLogger(logger *slog.Logger) Option {
	return nn.WithLogger(logger)
}

// NewConvLayer builds a layer and runs it once on input.
func NewConvLayer[B tensor.Backend](cfg LayerConfig, input *tensor.Tensor[float32, B], src rand.Source, engine B, opts ...Option) (*ConvLayer[B], error) {
	return nn.NewConvLayer(cfg, input, src, engine, opts...)
}

// Parameter is a learnable tensor owned by a layer.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// Convolution strategies.

// ConvolutionBackend computes the raw convolution of a layer.
type ConvolutionBackend[B tensor.Backend] = nn.ConvolutionBackend[B]

// ShuffledOptions tunes the c01b strategies.
type ShuffledOptions = nn.ShuffledOptions

// NewConvolutionBackend builds the strategy named by kind for the given
// execution device.
func NewConvolutionBackend[B tensor.Backend](kind BackendKind, device tensor.Device, engine B, opts ShuffledOptions) (ConvolutionBackend[B], error) {
	return nn.NewConvolutionBackend(kind, device, engine, opts)
}

// ConvOutputSize returns the spatial output size of a convolution.
func ConvOutputSize(in, kernel [2]int, mode BorderMode, subsample [2]int) [2]int {
	return nn.ConvOutputSize(in, kernel, mode, subsample)
}

// MaxPool is the optional pooling step of a layer.
type MaxPool = nn.MaxPool

// Initialization.

// FilterBound returns the normalized uniform initialization bound.
func FilterBound(filterShape [4]int, poolSize [2]int) (float64, error) {
	return nn.FilterBound(filterShape, poolSize)
}

// NormalizedUniform draws a filter bank within FilterBound.
func NormalizedUniform[B tensor.Backend](filterShape [4]int, poolSize [2]int, src rand.Source, backend B) (*tensor.Tensor[float32, B], float64, error) {
	return nn.NormalizedUniform(filterShape, poolSize, src, backend)
}

// Activations.

// Activate applies the named activation to x.
func Activate[B tensor.Backend](mode string, x *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return nn.Activate(mode, x)
}

// Activations returns the recognized activation mode names.
func Activations() []string {
	return nn.Activations()
}
