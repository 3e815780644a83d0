package nn

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/destin-ml/destin/internal/tensor"
)

// Option configures a ConvLayer.
type Option func(*layerOptions)

type layerOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger for construction and strategy selection
// records. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *layerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// ConvLayer is a convolutional layer: convolution, optional max pooling,
// per-channel bias and an activation, in that order.
//
// Input shape:  [batch, channels, height, width]
// Filter shape: [filters, channels, kernel_h, kernel_w]
// Bias shape:   [filters]
// Output shape: [batch, filters, out_h, out_w]
//
// The layer is immutable after construction except for the values of its
// two parameters, which an optimizer may change through Parameter.Update
// between forward passes. Forward may be called concurrently and with
// inputs other than the construction-time one (weight sharing).
//
// Example:
//
//	cfg := nn.LayerConfig{
//		FeatureShape: [4]int{2, 1, 28, 28},
//		FilterShape:  [4]int{16, 1, 5, 5},
//		Pool:         true,
//	}
//	layer, err := nn.NewConvLayer(cfg, images, rand.NewPCG(1, 2), cpu.New())
//	out := layer.Output() // [2, 16, 12, 12]
type ConvLayer[B tensor.Backend] struct {
	cfg      LayerConfig
	engine   B
	conv     ConvolutionBackend[B]
	pool     MaxPool
	activate activationFunc

	filters     *Parameter[B] // [F, C, kH, kW]
	bias        *Parameter[B] // [F]
	filterBound float64

	output *tensor.Tensor[float32, B]
	logger *slog.Logger
}

// NewConvLayer validates cfg, allocates the filter bank and bias, and runs
// the layer once on input, whose shape must equal cfg.FeatureShape. The
// result is available from Output.
//
// src seeds the filter initialization; nil draws a fresh random seed.
// The convolution strategy is cfg.Convolution, bound to engine.Device().
func NewConvLayer[B tensor.Backend](cfg LayerConfig, input *tensor.Tensor[float32, B], src rand.Source, engine B, opts ...Option) (*ConvLayer[B], error) {
	o := layerOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, configErrorf("input", "construction input is required")
	}
	if want := tensor.Shape(cfg.FeatureShape[:]); !input.Shape().Equal(want) {
		return nil, configErrorf("feature_shape", "input shape %v does not match %v", input.Shape(), want)
	}

	device := engine.Device()
	conv, err := NewConvolutionBackend(cfg.Convolution, device, engine, ShuffledOptions{RequireGradients: cfg.RequireGradients})
	if err != nil {
		return nil, err
	}
	if h, ok := conv.(*HardwareConvolution[B]); ok && !h.Accelerated() {
		o.logger.Debug("hardware convolution on CPU, using generic arithmetic",
			"layer", cfg.LayerNumber, "device", device.String())
	}

	l := &ConvLayer[B]{
		cfg:      cfg,
		engine:   engine,
		conv:     conv,
		activate: activations[cfg.Activation],
		pool: MaxPool{
			Enabled: cfg.Pool,
			Window:  cfg.PoolWindow(),
			Stride:  cfg.PoolStride(),
		},
		logger: o.logger,
	}

	// Shape checks first so nothing is allocated for a bad configuration.
	if _, err := l.OutputShape(input.Shape()); err != nil {
		return nil, err
	}

	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	w, bound, err := NormalizedUniform(cfg.FilterShape, cfg.PoolWindow(), src, engine)
	if err != nil {
		return nil, err
	}
	l.filterBound = bound
	l.filters = NewParameter(fmt.Sprintf("conv%d.filters", cfg.LayerNumber), w)
	l.bias = NewParameter(fmt.Sprintf("conv%d.bias", cfg.LayerNumber), Zeros(tensor.Shape{cfg.FilterShape[0]}, engine))

	l.output, err = l.Forward(input)
	if err != nil {
		return nil, fmt.Errorf("nn: initial forward pass: %w", err)
	}

	l.logger.Debug("conv layer ready",
		"layer", cfg.LayerNumber,
		"backend", string(conv.Kind()),
		"engine", engine.Name(),
		"filter_bound", bound,
		"output", l.output.Shape())

	return l, nil
}

// Forward runs the layer on x with the current parameters.
//
// x may differ from the construction input in batch and spatial size but
// must have the configured channel count. Forward does not change the
// layer; the cached construction output is left untouched.
func (l *ConvLayer[B]) Forward(x *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if x == nil {
		return nil, configErrorf("input", "nil tensor")
	}
	if _, err := l.OutputShape(x.Shape()); err != nil {
		return nil, err
	}

	// Lock order: filters, then bias.
	w, unlockW := l.filters.read()
	defer unlockW()
	b, unlockB := l.bias.read()
	defer unlockB()

	convOut, err := l.conv.Convolve(x, w, l.cfg.BorderMode, l.cfg.ConvStride())
	if err != nil {
		return nil, err
	}

	pooled, err := l.pool.Apply(convOut.Raw(), l.engine)
	if err != nil {
		return nil, err
	}

	// Bias [F] -> [1, F, 1, 1] broadcasts over batch and space.
	bias := l.engine.Reshape(b.Raw(), tensor.Shape{1, l.cfg.FilterShape[0], 1, 1})
	out := l.activate(l.engine.Add(pooled, bias), l.engine)

	return tensor.New[float32, B](out, l.engine), nil
}

// OutputShape returns the shape Forward produces for an input of the
// given shape, or the error Forward would return.
func (l *ConvLayer[B]) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	filters := tensor.Shape(l.cfg.FilterShape[:])
	if err := l.conv.Validate(input, filters, l.cfg.BorderMode, l.cfg.ConvStride()); err != nil {
		return nil, err
	}

	convOut := ConvOutputSize([2]int{input[2], input[3]}, [2]int{filters[2], filters[3]}, l.cfg.BorderMode, l.cfg.ConvStride())
	if err := l.pool.Validate(convOut); err != nil {
		return nil, err
	}
	out := l.pool.OutputSize(convOut)

	return tensor.Shape{input[0], filters[0], out[0], out[1]}, nil
}

// Output returns the output computed at construction.
func (l *ConvLayer[B]) Output() *tensor.Tensor[float32, B] {
	return l.output
}

// Parameters returns the learnable parameters: filters, then bias.
func (l *ConvLayer[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.filters, l.bias}
}

// Filters returns the filter bank parameter.
func (l *ConvLayer[B]) Filters() *Parameter[B] {
	return l.filters
}

// Bias returns the bias parameter.
func (l *ConvLayer[B]) Bias() *Parameter[B] {
	return l.bias
}

// FilterBound returns the bound of the initial filter distribution.
func (l *ConvLayer[B]) FilterBound() float64 {
	return l.filterBound
}

// Config returns the layer configuration with defaults applied.
func (l *ConvLayer[B]) Config() LayerConfig {
	return l.cfg.WithDefaults()
}

// ConvolutionBackend returns the convolution strategy.
func (l *ConvLayer[B]) ConvolutionBackend() ConvolutionBackend[B] {
	return l.conv
}

// String returns a string representation of the layer.
func (l *ConvLayer[B]) String() string {
	pool := "none"
	if l.pool.Enabled {
		pool = fmt.Sprintf("(%d, %d)/(%d, %d)", l.pool.Window[0], l.pool.Window[1], l.pool.Stride[0], l.pool.Stride[1])
	}
	f := l.cfg.FilterShape
	return fmt.Sprintf("ConvLayer(layer=%d, filters=%d, in_channels=%d, kernel_size=(%d, %d), border_mode=%s, pool=%s, activation=%s, backend=%s)",
		l.cfg.LayerNumber, f[0], f[1], f[2], f[3], l.cfg.BorderMode, pool, l.cfg.Activation, l.conv.Kind())
}
