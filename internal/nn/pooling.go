package nn

import (
	"github.com/destin-ml/destin/internal/tensor"
)

// MaxPool is the optional pooling step of a layer. When disabled it passes
// its input through unchanged.
type MaxPool struct {
	Enabled bool
	Window  [2]int
	Stride  [2]int
}

// OutputSize returns the pooled spatial size for an input of size in.
// Rows and columns that do not fill a whole window are dropped.
func (p MaxPool) OutputSize(in [2]int) [2]int {
	if !p.Enabled {
		return in
	}
	return [2]int{
		(in[0]-p.Window[0])/p.Stride[0] + 1,
		(in[1]-p.Window[1])/p.Stride[1] + 1,
	}
}

// Validate checks that the window fits a (height, width) input.
func (p MaxPool) Validate(in [2]int) error {
	if !p.Enabled {
		return nil
	}
	if p.Window[0] <= 0 || p.Window[1] <= 0 {
		return configErrorf("pool_size", "pool window must have positive area, got %v", p.Window)
	}
	if p.Stride[0] <= 0 || p.Stride[1] <= 0 {
		return configErrorf("stride_size", "pool stride must be positive, got %v", p.Stride)
	}
	if p.Window[0] > in[0] || p.Window[1] > in[1] {
		return configErrorf("pool_size", "pool window %v larger than convolution output %v", p.Window, in)
	}
	return nil
}

// Apply max-pools x, shaped (B, F, H, W).
func (p MaxPool) Apply(x *tensor.RawTensor, engine tensor.Backend) (*tensor.RawTensor, error) {
	if !p.Enabled {
		return x, nil
	}
	s := x.Shape()
	if err := p.Validate([2]int{s[2], s[3]}); err != nil {
		return nil, err
	}
	return engine.MaxPool2D(x, p.Window, p.Stride), nil
}
