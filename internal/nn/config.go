package nn

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// BorderMode selects how convolution treats the input edges.
type BorderMode string

// Border modes.
const (
	// BorderValid applies no padding; the output shrinks by kernel-1.
	BorderValid BorderMode = "valid"
	// BorderFull pads by kernel-1 on every side; the output grows by kernel-1.
	BorderFull BorderMode = "full"
)

// Padding returns the zero padding per spatial dimension for a kernel of
// size (kH, kW).
func (m BorderMode) Padding(kH, kW int) [2]int {
	if m == BorderFull {
		return [2]int{kH - 1, kW - 1}
	}
	return [2]int{0, 0}
}

// BackendKind names a convolution strategy.
type BackendKind string

// Convolution strategies.
const (
	BackendGeneric  BackendKind = "generic"
	BackendShuffled BackendKind = "shuffled"
	BackendHardware BackendKind = "hardware"
)

// Weight initialization schemes. Only the normalized uniform scheme exists;
// "none" and the empty string select it too.
const (
	WeightInitNone    = "none"
	WeightInitUniform = "uniform"
)

// LayerConfig describes one convolutional layer. It is copied into the
// layer at construction and never changes afterwards.
type LayerConfig struct {
	// LayerNumber is the layer's index in its network.
	LayerNumber int `yaml:"layer_number"`

	// FeatureShape is (batch, channels, height, width) of the
	// construction-time input.
	FeatureShape [4]int `yaml:"feature_shape"`

	// FilterShape is (filters, channels, height, width).
	FilterShape [4]int `yaml:"filter_shape"`

	Pool bool `yaml:"pool"`
	// PoolSize is the pooling window; nil means (2, 2). An explicit
	// non-positive window is rejected, never replaced.
	PoolSize *[2]int `yaml:"pool_size"`
	// StrideSize is the pooling stride; nil means PoolSize (no overlap).
	StrideSize *[2]int `yaml:"stride_size"`

	// Subsample is the convolution stride; nil means (1, 1).
	Subsample  *[2]int    `yaml:"subsample"`
	BorderMode BorderMode `yaml:"border_mode"`

	Activation string `yaml:"activation"`
	WeightInit string `yaml:"weight_init"`

	// ClipGradients and ClipBound are carried for the optimizer; the
	// forward pass does not use them.
	ClipGradients bool    `yaml:"clip_gradients"`
	ClipBound     float64 `yaml:"clip_bound"`

	Convolution BackendKind `yaml:"convolution"`
	// RequireGradients tightens the shuffled and hardware channel
	// constraint to multiples of 4.
	RequireGradients bool `yaml:"require_gradients"`
}

// DefaultConfig returns a valid-mode tanh layer with 2x2 pooling defaults
// and the generic backend. Shapes are left zero.
func DefaultConfig() LayerConfig {
	return LayerConfig{}.WithDefaults()
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c LayerConfig) WithDefaults() LayerConfig {
	c.PoolSize = copyOr(c.PoolSize, defaultPoolSize)
	c.Subsample = copyOr(c.Subsample, defaultSubsample)
	if c.BorderMode == "" {
		c.BorderMode = BorderValid
	}
	if c.Activation == "" {
		c.Activation = "tanh"
	}
	if c.ClipBound == 0 {
		c.ClipBound = 1
	}
	if c.Convolution == "" {
		c.Convolution = BackendGeneric
	}
	if c.StrideSize != nil {
		s := *c.StrideSize
		c.StrideSize = &s
	}
	return c
}

var (
	defaultPoolSize  = [2]int{2, 2}
	defaultSubsample = [2]int{1, 1}
)

// copyOr returns a fresh copy of *p, or of def when p is nil.
func copyOr(p *[2]int, def [2]int) *[2]int {
	if p != nil {
		def = *p
	}
	return &def
}

// PoolWindow returns the effective pooling window.
func (c LayerConfig) PoolWindow() [2]int {
	if c.PoolSize != nil {
		return *c.PoolSize
	}
	return defaultPoolSize
}

// ConvStride returns the effective convolution stride.
func (c LayerConfig) ConvStride() [2]int {
	if c.Subsample != nil {
		return *c.Subsample
	}
	return defaultSubsample
}

// PoolStride returns the effective pooling stride.
func (c LayerConfig) PoolStride() [2]int {
	if c.StrideSize != nil {
		return *c.StrideSize
	}
	return c.PoolWindow()
}

// Validate checks c without touching any tensor. It returns a
// *ConfigurationError describing the first problem found.
func (c LayerConfig) Validate() error {
	for i, d := range c.FeatureShape {
		if d <= 0 {
			return configErrorf("feature_shape", "dimension %d must be positive, got %v", i, c.FeatureShape)
		}
	}
	for i, d := range c.FilterShape {
		if d <= 0 {
			return configErrorf("filter_shape", "dimension %d must be positive, got %v", i, c.FilterShape)
		}
	}
	if c.FilterShape[1] != c.FeatureShape[1] {
		return configErrorf("filter_shape", "filter channels %d != feature map channels %d",
			c.FilterShape[1], c.FeatureShape[1])
	}
	// Checked even without pooling: the fan-out divides by the pool area.
	if w := c.PoolWindow(); w[0] <= 0 || w[1] <= 0 {
		return configErrorf("pool_size", "pool window must have positive area, got %v", w)
	}
	if s := c.PoolStride(); s[0] <= 0 || s[1] <= 0 {
		return configErrorf("stride_size", "pool stride must be positive, got %v", s)
	}
	if s := c.ConvStride(); s[0] <= 0 || s[1] <= 0 {
		return configErrorf("subsample", "must be positive, got %v", s)
	}
	switch c.BorderMode {
	case BorderValid, BorderFull:
	default:
		return configErrorf("border_mode", "unknown mode %q", c.BorderMode)
	}
	switch c.WeightInit {
	case "", WeightInitNone, WeightInitUniform:
	default:
		return configErrorf("weight_init", "unknown scheme %q", c.WeightInit)
	}
	switch c.Convolution {
	case BackendGeneric, BackendShuffled, BackendHardware:
	default:
		return configErrorf("convolution", "unknown backend %q", c.Convolution)
	}
	if _, ok := activations[c.Activation]; !ok {
		return configErrorf("activation", "unknown mode %q", c.Activation)
	}
	if c.ClipBound < 0 {
		return configErrorf("clip_bound", "must be non-negative, got %v", c.ClipBound)
	}
	return nil
}

// LoadConfig decodes a YAML layer description and applies defaults.
// Unknown keys are rejected.
func LoadConfig(r io.Reader) (LayerConfig, error) {
	var c LayerConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return LayerConfig{}, fmt.Errorf("nn: decode layer config: %w", err)
	}
	return c.WithDefaults(), nil
}
