//go:build !windows

package webgpu

import (
	"github.com/destin-ml/destin/internal/tensor"
)

var (
	_ tensor.Backend           = (*Backend)(nil)
	_ tensor.FilterActsBackend = (*Backend)(nil)
)

// Backend is a placeholder on platforms without WebGPU support.
// New always fails, so its operations are never reached.
type Backend struct{}

// New reports that WebGPU is not available on this platform.
func New() (*Backend, error) {
	return nil, ErrUnavailable
}

// IsAvailable reports false on this platform.
func IsAvailable() bool { return false }

// Release is a no-op.
func (b *Backend) Release() {}

// Name returns the backend name.
func (b *Backend) Name() string { return "WebGPU" }

// Device returns the compute device.
func (b *Backend) Device() tensor.Device { return tensor.WebGPU }

func unavailable(op string) *tensor.RawTensor {
	panic("webgpu: " + op + ": " + ErrUnavailable.Error())
}

func (b *Backend) Add(_, _ *tensor.RawTensor) *tensor.RawTensor { return unavailable("Add") }

func (b *Backend) Conv2D(_, _ *tensor.RawTensor, _, _ [2]int) *tensor.RawTensor {
	return unavailable("Conv2D")
}

func (b *Backend) FilterActs(_, _ *tensor.RawTensor, _ int) *tensor.RawTensor {
	return unavailable("FilterActs")
}

func (b *Backend) MaxPool2D(_ *tensor.RawTensor, _, _ [2]int) *tensor.RawTensor {
	return unavailable("MaxPool2D")
}

func (b *Backend) Reshape(_ *tensor.RawTensor, _ tensor.Shape) *tensor.RawTensor {
	return unavailable("Reshape")
}

func (b *Backend) Transpose(_ *tensor.RawTensor, _ ...int) *tensor.RawTensor {
	return unavailable("Transpose")
}

func (b *Backend) Tanh(_ *tensor.RawTensor) *tensor.RawTensor     { return unavailable("Tanh") }
func (b *Backend) Sigmoid(_ *tensor.RawTensor) *tensor.RawTensor  { return unavailable("Sigmoid") }
func (b *Backend) ReLU(_ *tensor.RawTensor) *tensor.RawTensor     { return unavailable("ReLU") }
func (b *Backend) Softplus(_ *tensor.RawTensor) *tensor.RawTensor { return unavailable("Softplus") }
