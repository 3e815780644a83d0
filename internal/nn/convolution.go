package nn

import (
	"fmt"

	"github.com/destin-ml/destin/internal/tensor"
)

// ConvolutionBackend computes the raw convolution of a layer.
//
// Input is (B, C, H, W), filters are (F, C, kH, kW) and the result is
// (B, F, H', W') with, per spatial dimension and stride s:
//
//	valid: H' = (H - kH) / s + 1
//	full:  H' = (H + kH - 2) / s + 1
//
// Every implementation computes cross-correlation (filters are not
// flipped) and agrees numerically with the others.
type ConvolutionBackend[B tensor.Backend] interface {
	// Kind names the strategy.
	Kind() BackendKind

	// Validate checks shapes and backend constraints without computing.
	Validate(input, filters tensor.Shape, mode BorderMode, subsample [2]int) error

	// Convolve validates, then computes the convolution on the engine.
	Convolve(input, filters *tensor.Tensor[float32, B], mode BorderMode, subsample [2]int) (*tensor.Tensor[float32, B], error)
}

// ShuffledOptions tunes the c01b strategies.
type ShuffledOptions struct {
	// RequireGradients demands channel counts divisible by 4, which the
	// gradient kernels of the c01b layout need.
	RequireGradients bool
}

// NewConvolutionBackend builds the strategy named by kind.
//
// device is the execution device the layer runs on; the hardware strategy
// decides here, once, whether it runs on the accelerator or falls back to
// the generic arithmetic on a CPU.
func NewConvolutionBackend[B tensor.Backend](kind BackendKind, device tensor.Device, engine B, opts ShuffledOptions) (ConvolutionBackend[B], error) {
	switch kind {
	case BackendGeneric, "":
		return &GenericConvolution[B]{engine: engine}, nil
	case BackendShuffled:
		fa, ok := any(engine).(tensor.FilterActsBackend)
		if !ok {
			return nil, configErrorf("convolution", "engine %s cannot run the shuffled backend (no filter-acts kernel)", engine.Name())
		}
		return &ShuffledConvolution[B]{engine: engine, filterActs: fa, opts: opts}, nil
	case BackendHardware:
		h, err := newHardwareConvolution(device, engine, opts)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, configErrorf("convolution", "unknown backend %q", kind)
	}
}

// ConvOutputSize returns the spatial output size of a convolution.
func ConvOutputSize(in, kernel [2]int, mode BorderMode, subsample [2]int) [2]int {
	pad := mode.Padding(kernel[0], kernel[1])
	var out [2]int
	for i := range out {
		out[i] = (in[i]+2*pad[i]-kernel[i])/subsample[i] + 1
	}
	return out
}

// validateShapes performs the checks every strategy shares.
func validateShapes(input, filters tensor.Shape, mode BorderMode, subsample [2]int) error {
	if len(input) != 4 {
		return configErrorf("input", "expected 4D (batch, channels, height, width), got %v", input)
	}
	if len(filters) != 4 {
		return configErrorf("filter_shape", "expected 4D (filters, channels, height, width), got %v", filters)
	}
	if err := input.Validate(); err != nil {
		return configErrorf("input", "%v", err)
	}
	if err := filters.Validate(); err != nil {
		return configErrorf("filter_shape", "%v", err)
	}
	if input[1] != filters[1] {
		return configErrorf("filter_shape", "filter channels %d != feature map channels %d", filters[1], input[1])
	}
	if subsample[0] <= 0 || subsample[1] <= 0 {
		return configErrorf("subsample", "must be positive, got %v", subsample)
	}
	switch mode {
	case BorderValid:
		if filters[2] > input[2] || filters[3] > input[3] {
			return configErrorf("filter_shape", "filter %dx%d larger than input %dx%d in valid mode",
				filters[2], filters[3], input[2], input[3])
		}
	case BorderFull:
	default:
		return configErrorf("border_mode", "unknown mode %q", mode)
	}
	return nil
}

// validateFilterActs checks the constraints of the c01b filter-acts kernel.
func validateFilterActs(kind BackendKind, input, filters tensor.Shape, subsample [2]int, opts ShuffledOptions) error {
	channels, numFilters := input[1], filters[0]

	if opts.RequireGradients && channels%4 != 0 {
		return &PreconditionViolation{
			Backend:    kind,
			Constraint: "channels divisible by 4 when gradients are required",
			Detail:     fmt.Sprintf("got %d channels", channels),
		}
	}
	if channels > 3 && channels%4 != 0 {
		return &PreconditionViolation{
			Backend:    kind,
			Constraint: "at most 3 channels or a multiple of 4",
			Detail:     fmt.Sprintf("got %d channels", channels),
		}
	}
	if filters[2] != filters[3] {
		return &PreconditionViolation{
			Backend:    kind,
			Constraint: "square filters",
			Detail:     fmt.Sprintf("got %dx%d", filters[2], filters[3]),
		}
	}
	if numFilters%16 != 0 {
		return &PreconditionViolation{
			Backend:    kind,
			Constraint: "filter count a multiple of 16",
			Detail:     fmt.Sprintf("got %d filters", numFilters),
		}
	}
	if subsample != [2]int{1, 1} {
		return &PreconditionViolation{
			Backend:    kind,
			Constraint: "unit subsample",
			Detail:     fmt.Sprintf("got %v", subsample),
		}
	}
	return nil
}
