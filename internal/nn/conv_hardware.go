package nn

import (
	"github.com/destin-ml/destin/internal/tensor"
)

// HardwareConvolution is the dedicated-accelerator strategy. It carries
// the same constraints as ShuffledConvolution. Where it runs is fixed at
// construction from the execution device: on an accelerator the engine's
// filter-acts kernel is used; on a CPU the generic arithmetic is.
type HardwareConvolution[B tensor.Backend] struct {
	engine     B
	device     tensor.Device
	filterActs tensor.FilterActsBackend // nil on CPU
	opts       ShuffledOptions
}

func newHardwareConvolution[B tensor.Backend](device tensor.Device, engine B, opts ShuffledOptions) (*HardwareConvolution[B], error) {
	h := &HardwareConvolution[B]{engine: engine, device: device, opts: opts}
	if !device.IsAccelerator() {
		return h, nil
	}

	fa, ok := any(engine).(tensor.FilterActsBackend)
	if !ok {
		return nil, configErrorf("convolution", "engine %s on %s has no filter-acts kernel", engine.Name(), device)
	}
	h.filterActs = fa
	return h, nil
}

// Kind returns BackendHardware.
func (h *HardwareConvolution[B]) Kind() BackendKind {
	return BackendHardware
}

// Device returns the execution device chosen at construction.
func (h *HardwareConvolution[B]) Device() tensor.Device {
	return h.device
}

// Accelerated reports whether convolutions run on the accelerator kernel.
func (h *HardwareConvolution[B]) Accelerated() bool {
	return h.filterActs != nil
}

// Validate checks shapes and the c01b constraints. The constraints apply
// on CPU as well, so a configuration valid here is valid on any device.
func (h *HardwareConvolution[B]) Validate(input, filters tensor.Shape, mode BorderMode, subsample [2]int) error {
	if err := validateShapes(input, filters, mode, subsample); err != nil {
		return err
	}
	return validateFilterActs(BackendHardware, input, filters, subsample, h.opts)
}

// Convolve computes the convolution on the device chosen at construction.
func (h *HardwareConvolution[B]) Convolve(input, filters *tensor.Tensor[float32, B], mode BorderMode, subsample [2]int) (*tensor.Tensor[float32, B], error) {
	if err := h.Validate(input.Shape(), filters.Shape(), mode, subsample); err != nil {
		return nil, err
	}
	if h.filterActs == nil {
		return genericConvolve(h.engine, input, filters, mode, subsample), nil
	}
	return shuffledConvolve(h.engine, h.filterActs, input, filters, mode), nil
}
