//go:build windows

package webgpu

import (
	"fmt"

	"github.com/destin-ml/destin/internal/tensor"
)

// Add performs element-wise addition on GPU. Broadcasting is resolved on
// the host so the shader only sees equal-shaped operands.
func (b *Backend) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), other.Shape())
	if err != nil {
		panic("webgpu: Add: " + err.Error())
	}
	if a, err = tensor.BroadcastTo(a, outShape); err != nil {
		panic("webgpu: Add: " + err.Error())
	}
	if other, err = tensor.BroadcastTo(other, outShape); err != nil {
		panic("webgpu: Add: " + err.Error())
	}

	result, err := b.run(kernel{
		name:   "add",
		code:   addShader,
		inputs: []*tensor.RawTensor{a, other},
		out:    outShape,
		params: []uint32{u32(outShape.NumElements())},
		groups: groups1D(outShape.NumElements()),
	})
	if err != nil {
		panic("webgpu: Add: " + err.Error())
	}
	return result
}

// Conv2D performs 2D cross-correlation on GPU.
func (b *Backend) Conv2D(input, kern *tensor.RawTensor, stride, padding [2]int) *tensor.RawTensor {
	in, ks := input.Shape(), kern.Shape()
	if len(in) != 4 || len(ks) != 4 {
		panic(fmt.Sprintf("webgpu: Conv2D: expected 4D input and kernel, got %v and %v", in, ks))
	}
	if in[1] != ks[1] {
		panic(fmt.Sprintf("webgpu: Conv2D: input channels %d != kernel channels %d", in[1], ks[1]))
	}
	if stride[0] <= 0 || stride[1] <= 0 || padding[0] < 0 || padding[1] < 0 {
		panic(fmt.Sprintf("webgpu: Conv2D: invalid stride %v or padding %v", stride, padding))
	}

	N, C, H, W := in[0], in[1], in[2], in[3]
	F, KH, KW := ks[0], ks[2], ks[3]
	HOut := (H+2*padding[0]-KH)/stride[0] + 1
	WOut := (W+2*padding[1]-KW)/stride[1] + 1
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("webgpu: Conv2D: invalid output dimensions %dx%d", HOut, WOut))
	}

	result, err := b.run(kernel{
		name:   "conv2d",
		code:   conv2dShader,
		inputs: []*tensor.RawTensor{input, kern},
		out:    tensor.Shape{N, F, HOut, WOut},
		params: []uint32{
			u32(N), u32(C), u32(H), u32(W), u32(F), u32(KH), u32(KW),
			u32(stride[0]), u32(stride[1]), u32(padding[0]), u32(padding[1]),
			u32(HOut), u32(WOut),
		},
		groups: groups3D(WOut, HOut, N*F),
	})
	if err != nil {
		panic("webgpu: Conv2D: " + err.Error())
	}
	return result
}

// FilterActs convolves c01b-layout operands on GPU.
// Input [C, H, W, N], filters [C, K, K, F], output [F, H_out, W_out, N].
func (b *Backend) FilterActs(input, filters *tensor.RawTensor, padding int) *tensor.RawTensor {
	in, fs := input.Shape(), filters.Shape()
	if len(in) != 4 || len(fs) != 4 {
		panic(fmt.Sprintf("webgpu: FilterActs: expected 4D input and filters, got %v and %v", in, fs))
	}
	if in[0] != fs[0] || fs[1] != fs[2] || padding < 0 {
		panic(fmt.Sprintf("webgpu: FilterActs: incompatible input %v, filters %v, padding %d", in, fs, padding))
	}

	C, H, W, N := in[0], in[1], in[2], in[3]
	K, F := fs[1], fs[3]
	HOut := H + 2*padding - K + 1
	WOut := W + 2*padding - K + 1
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("webgpu: FilterActs: invalid output dimensions %dx%d", HOut, WOut))
	}

	out := tensor.Shape{F, HOut, WOut, N}
	result, err := b.run(kernel{
		name:   "filteracts",
		code:   filterActsShader,
		inputs: []*tensor.RawTensor{input, filters},
		out:    out,
		params: []uint32{
			u32(C), u32(H), u32(W), u32(N), u32(K), u32(F), u32(padding), u32(HOut), u32(WOut),
		},
		groups: groups1D(out.NumElements()),
	})
	if err != nil {
		panic("webgpu: FilterActs: " + err.Error())
	}
	return result
}

// MaxPool2D performs 2D max pooling on GPU.
func (b *Backend) MaxPool2D(input *tensor.RawTensor, window, stride [2]int) *tensor.RawTensor {
	in := input.Shape()
	if len(in) != 4 {
		panic(fmt.Sprintf("webgpu: MaxPool2D: expected 4D input, got %v", in))
	}
	N, C, H, W := in[0], in[1], in[2], in[3]
	if window[0] <= 0 || window[1] <= 0 || stride[0] <= 0 || stride[1] <= 0 || window[0] > H || window[1] > W {
		panic(fmt.Sprintf("webgpu: MaxPool2D: invalid window %v or stride %v for input %v", window, stride, in))
	}

	HOut := (H-window[0])/stride[0] + 1
	WOut := (W-window[1])/stride[1] + 1

	result, err := b.run(kernel{
		name:   "maxpool2d",
		code:   maxPool2dShader,
		inputs: []*tensor.RawTensor{input},
		out:    tensor.Shape{N, C, HOut, WOut},
		params: []uint32{
			u32(N * C), u32(H), u32(W), u32(window[0]), u32(window[1]),
			u32(stride[0]), u32(stride[1]), u32(HOut), u32(WOut),
		},
		groups: groups3D(WOut, HOut, N*C),
	})
	if err != nil {
		panic("webgpu: MaxPool2D: " + err.Error())
	}
	return result
}

// Reshape returns a copy of t with a new shape.
// This is a metadata-only change; no kernel is dispatched.
func (b *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result, err := t.Clone().WithShape(newShape)
	if err != nil {
		panic("webgpu: reshape: " + err.Error())
	}
	return result
}

// Transpose permutes dimensions on GPU. Tensors up to 4D are supported.
func (b *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)
	if ndim > 4 {
		panic(fmt.Sprintf("webgpu: Transpose: supports up to 4D tensors, got %dD", ndim))
	}
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	newShape := shape.Permute(axes...)
	srcStrides := shape.ComputeStrides()
	dstStrides := newShape.ComputeStrides()
	total := shape.NumElements()

	// Leading unit dimensions: coordinate is always 0.
	params := make([]uint32, 9)
	params[0] = u32(total)
	lead := 4 - ndim
	for i := 0; i < lead; i++ {
		params[1+i] = u32(total)
	}
	for d, ax := range axes {
		params[1+lead+d] = u32(dstStrides[d])
		params[5+lead+d] = u32(srcStrides[ax])
	}

	result, err := b.run(kernel{
		name:   "transpose",
		code:   transposeShader,
		inputs: []*tensor.RawTensor{t},
		out:    newShape,
		params: params,
		groups: groups1D(total),
	})
	if err != nil {
		panic("webgpu: Transpose: " + err.Error())
	}
	return result
}

// Tanh applies tanh element-wise on GPU.
func (b *Backend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary("tanh", tanhShader, x)
}

// Sigmoid applies the logistic function element-wise on GPU.
func (b *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary("sigmoid", sigmoidShader, x)
}

// ReLU applies max(0, x) element-wise on GPU.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary("relu", reluShader, x)
}

// Softplus applies log(1 + exp(x)) element-wise on GPU.
func (b *Backend) Softplus(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary("softplus", softplusShader, x)
}

func (b *Backend) unary(name, code string, x *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.run(kernel{
		name:   name,
		code:   code,
		inputs: []*tensor.RawTensor{x},
		out:    x.Shape(),
		params: []uint32{u32(x.NumElements())},
		groups: groups1D(x.NumElements()),
	})
	if err != nil {
		panic("webgpu: " + name + ": " + err.Error())
	}
	return result
}
