package tensor

// Backend defines the operations a compute engine must provide for the
// convolutional layer. All tensors are dense, row-major NCHW unless an
// operation says otherwise.
//
// Implementations:
//   - CPU: pure Go, im2col convolution on gonum BLAS
//   - WebGPU: WGSL compute shaders (windows builds)
//
// Operations panic on shape or dtype misuse; callers validate first.
type Backend interface {
	// Add performs element-wise addition with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor

	// Conv2D computes the cross-correlation of input [N, C, H, W] with
	// kernel [F, C, KH, KW], zero-padding each spatial border by padding and
	// stepping by stride. Output: [N, F, HOut, WOut] with
	// HOut = (H + 2*padding[0] - KH) / stride[0] + 1.
	Conv2D(input, kernel *RawTensor, stride, padding [2]int) *RawTensor

	// MaxPool2D replaces each window [wh, ww] of input [N, C, H, W] with its
	// maximum, stepping by stride. Output: [N, C, (H-wh)/sh+1, (W-ww)/sw+1].
	MaxPool2D(input *RawTensor, window, stride [2]int) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Activation functions (element-wise)
	Tanh(x *RawTensor) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	ReLU(x *RawTensor) *RawTensor
	Softplus(x *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}

// FilterActsBackend is implemented by engines that can convolve directly in
// the channel-major, batch-minor "c01b" layout.
//
// input:   [C, H, W, N]
// filters: [C, KH, KW, F] with KH == KW
// output:  [F, HOut, WOut, N] with HOut = H + 2*padding - KH + 1
//
// Stride is always 1. Each spatial border is zero-padded by padding.
type FilterActsBackend interface {
	FilterActs(input, filters *RawTensor, padding int) *RawTensor
}
